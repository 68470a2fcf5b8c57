package config

import (
    "testing"
    "time"

    "github.com/stretchr/testify/assert"
)

func TestLoadRateLimitConfig_Defaults(t *testing.T) {
    for _, k := range []string{
        "RATE_LIMIT_ENABLED", "RATE_LIMIT_CAPACITY", "RATE_LIMIT_REFILL_TOKENS",
        "RATE_LIMIT_REFILL_INTERVAL", "RATE_LIMIT_TTL", "RATE_LIMIT_KEY_STRATEGY", "RATE_LIMIT_PREFIX",
    } {
        t.Setenv(k, "")
    }

    cfg := LoadRateLimitConfig()
    assert.True(t, cfg.Enabled)
    assert.Equal(t, 60, cfg.Capacity)
    assert.Equal(t, 1, cfg.RefillTokens)
    assert.Equal(t, time.Second, cfg.RefillInterval)
    assert.Equal(t, "user_route", cfg.KeyStrategy)
    assert.Equal(t, "seatwise:rl", cfg.Prefix)
}

func TestLoadRateLimitConfig_Clamps(t *testing.T) {
    t.Setenv("RATE_LIMIT_CAPACITY", "0")
    t.Setenv("RATE_LIMIT_REFILL_TOKENS", "-3")
    t.Setenv("RATE_LIMIT_REFILL_INTERVAL", "2s")
    t.Setenv("RATE_LIMIT_TTL", "1s")

    cfg := LoadRateLimitConfig()
    assert.Equal(t, 1, cfg.Capacity)
    assert.Equal(t, 1, cfg.RefillTokens)
    // TTL is raised so an idle bucket outlives several refills.
    assert.Equal(t, 10*time.Second, cfg.TTL)
}

func TestLoadResponseCacheConfig_Routes(t *testing.T) {
    t.Setenv("CACHE_ROUTES", " /v1/showings , /v1/seat-types ,, ")

    cfg := LoadResponseCacheConfig()
    assert.Equal(t, map[string]bool{"/v1/showings": true, "/v1/seat-types": true}, cfg.Routes)
}

func TestLoadResponseCacheConfig_Defaults(t *testing.T) {
    for _, k := range []string{"CACHE_ENABLED", "CACHE_ROUTES", "CACHE_TTL", "CACHE_PREFIX", "CACHE_MAX_BODY_BYTES"} {
        t.Setenv(k, "")
    }

    cfg := LoadResponseCacheConfig()
    assert.True(t, cfg.Enabled)
    assert.Equal(t, map[string]bool{"/v1/showings": true}, cfg.Routes)
    assert.Equal(t, 30*time.Second, cfg.TTL)
    assert.Equal(t, 1<<20, cfg.MaxBodyBytes)
}

func TestEnvHelpers(t *testing.T) {
    t.Setenv("X_STR", "value")
    t.Setenv("X_BOOL", "off")
    t.Setenv("X_INT", "17")
    t.Setenv("X_DUR", "250ms")
    t.Setenv("X_BAD", "not-a-number")

    assert.Equal(t, "value", envStr("X_STR", "def"))
    assert.Equal(t, "def", envStr("X_UNSET_KEY", "def"))
    assert.False(t, envBool("X_BOOL", true))
    assert.True(t, envBool("X_UNSET_KEY", true))
    assert.Equal(t, 17, envInt("X_INT", 5))
    assert.Equal(t, 5, envInt("X_BAD", 5))
    assert.Equal(t, 250*time.Millisecond, envDur("X_DUR", time.Second))
    assert.Equal(t, time.Second, envDur("X_BAD", time.Second))
}
