package config

import "time"

// RateLimitConfig tunes the redis token bucket in front of the
// booking endpoints.  Seats for a hot showing are contended, so the
// limiter keeps a single caller from hammering the hold endpoint while
// everyone else queues behind the same seat.
type RateLimitConfig struct {
    Enabled        bool
    Capacity       int           // bucket size, the burst a caller may spend at once
    RefillTokens   int           // tokens returned per refill interval
    RefillInterval time.Duration // how often the bucket refills
    TTL            time.Duration // how long an idle bucket survives in redis
    KeyStrategy    string        // user_route (default), user, ip or ip_route
    Prefix         string        // redis key namespace
}

// LoadRateLimitConfig reads the RATE_LIMIT_* variables.  Booking
// traffic is identified per user (the gateway forwards X-User-ID on
// every request), so the default key combines user and route: one
// caller flooding RequestBooking cannot starve their own reads, let
// alone anyone else's.
func LoadRateLimitConfig() RateLimitConfig {
    cfg := RateLimitConfig{
        Enabled:        envBool("RATE_LIMIT_ENABLED", true),
        Capacity:       envInt("RATE_LIMIT_CAPACITY", 60),
        RefillTokens:   envInt("RATE_LIMIT_REFILL_TOKENS", 1),
        RefillInterval: envDur("RATE_LIMIT_REFILL_INTERVAL", time.Second),
        TTL:            envDur("RATE_LIMIT_TTL", 10*time.Minute),
        KeyStrategy:    envStr("RATE_LIMIT_KEY_STRATEGY", "user_route"),
        Prefix:         envStr("RATE_LIMIT_PREFIX", "seatwise:rl"),
    }
    if cfg.Capacity < 1 {
        cfg.Capacity = 1
    }
    if cfg.RefillTokens < 1 {
        cfg.RefillTokens = 1
    }
    if cfg.RefillInterval <= 0 {
        cfg.RefillInterval = time.Second
    }
    // Bucket state has to outlive several refill intervals, otherwise
    // an idle bucket expires and resets to full capacity between
    // bursts.
    if min := 5 * cfg.RefillInterval; cfg.TTL < min {
        cfg.TTL = min
    }
    return cfg
}
