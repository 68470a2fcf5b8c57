package config

import (
    "strings"
    "time"
)

// ResponseCacheConfig scopes the HTTP response cache to a fixed set of
// echo route paths.  Out of the box only the public screenings listing
// is cached; per-showing seat availability already has its own
// short-lived cache inside the query service, and caching it here too
// would serve two copies with two different TTLs.
type ResponseCacheConfig struct {
    Enabled      bool
    Routes       map[string]bool // echo route paths eligible for caching, GET only
    TTL          time.Duration
    Prefix       string // redis key namespace
    MaxBodyBytes int    // responses larger than this are served but not cached
}

// LoadResponseCacheConfig reads the CACHE_* variables.  CACHE_ROUTES
// is a comma-separated list of route paths; listed routes must not
// vary by user, because the caller's identity never enters the cache
// key.
func LoadResponseCacheConfig() ResponseCacheConfig {
    return ResponseCacheConfig{
        Enabled:      envBool("CACHE_ENABLED", true),
        Routes:       parseRoutes(envStr("CACHE_ROUTES", "/v1/showings")),
        TTL:          envDur("CACHE_TTL", 30*time.Second),
        Prefix:       envStr("CACHE_PREFIX", "seatwise:resp"),
        MaxBodyBytes: envInt("CACHE_MAX_BODY_BYTES", 1<<20),
    }
}

func parseRoutes(s string) map[string]bool {
    routes := map[string]bool{}
    for _, p := range strings.Split(s, ",") {
        if p = strings.TrimSpace(p); p != "" {
            routes[p] = true
        }
    }
    return routes
}
