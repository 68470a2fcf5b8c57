package middleware

import (
    "math"
    "net/http"
    "strconv"
    "strings"
    "time"

    "github.com/labstack/echo/v4"
    "github.com/redis/go-redis/v9"
    "go.uber.org/zap"

    "github.com/seatwise/booking-engine/internal/config"
    "github.com/seatwise/booking-engine/internal/logger"
)

// tokenBucketScript refills and drains one bucket atomically so every
// API instance sharing the redis sees the same remaining budget.  It
// returns {allowed, remaining, retry_after_ms}.
var tokenBucketScript = redis.NewScript(`
    local key = KEYS[1]
    local now_ms = tonumber(ARGV[1])
    local capacity = tonumber(ARGV[2])
    local refill_tokens = tonumber(ARGV[3])
    local interval_ms = tonumber(ARGV[4])
    local ttl_seconds = tonumber(ARGV[5])

    local state = redis.call('HMGET', key, 'tokens', 'last_refill_ms')
    local tokens = tonumber(state[1])
    local last_refill = tonumber(state[2])

    if tokens == nil or last_refill == nil then
        tokens = capacity
        last_refill = now_ms
    end

    local elapsed = math.max(0, now_ms - last_refill)
    local intervals = math.floor(elapsed / interval_ms)
    if intervals > 0 then
        tokens = math.min(capacity, tokens + (intervals * refill_tokens))
        last_refill = last_refill + (intervals * interval_ms)
    end

    local allowed = 0
    local retry_after_ms = 0
    if tokens > 0 then
        allowed = 1
        tokens = tokens - 1
    else
        retry_after_ms = math.max(0, interval_ms - (now_ms - last_refill))
    end

    redis.call('HMSET', key, 'tokens', tokens, 'last_refill_ms', last_refill)
    redis.call('EXPIRE', key, ttl_seconds)

    return { allowed, tokens, retry_after_ms }
`)

// passthrough is the middleware applied when an optional concern is
// disabled or its redis backing is missing.
func passthrough(next echo.HandlerFunc) echo.HandlerFunc { return next }

// RateLimit holds each caller to a token bucket before the booking
// handlers run.  With no redis client the limiter is a no-op: losing
// redis degrades protection, it never blocks bookings.
func RateLimit(cfg config.RateLimitConfig, rdb *redis.Client) echo.MiddlewareFunc {
    if !cfg.Enabled || rdb == nil {
        return passthrough
    }
    return func(next echo.HandlerFunc) echo.HandlerFunc {
        return func(c echo.Context) error {
            key := rateKey(cfg, c)
            args := []interface{}{
                time.Now().UnixMilli(),
                cfg.Capacity,
                cfg.RefillTokens,
                cfg.RefillInterval.Milliseconds(),
                int64(cfg.TTL / time.Second),
            }
            vals, err := tokenBucketScript.Run(c.Request().Context(), rdb, []string{key}, args...).Int64Slice()
            if err != nil || len(vals) != 3 {
                logger.Warn("rate limiter unavailable", zap.String("key", key), zap.Error(err))
                return next(c)
            }
            allowed, remaining, retryMs := vals[0] == 1, vals[1], vals[2]

            h := c.Response().Header()
            h.Set("X-RateLimit-Limit", strconv.Itoa(cfg.Capacity))
            h.Set("X-RateLimit-Remaining", strconv.FormatInt(remaining, 10))

            if !allowed {
                secs := int(math.Ceil(float64(retryMs) / 1000.0))
                h.Set("Retry-After", strconv.Itoa(secs))
                return c.JSON(http.StatusTooManyRequests, echo.Map{
                    "error": echo.Map{"kind": "RATE_LIMITED", "message": "request budget exhausted, retry later"},
                })
            }
            return next(c)
        }
    }
}

// rateKey buckets by the identity the gateway forwarded, falling back
// to the client IP for anonymous traffic.
func rateKey(cfg config.RateLimitConfig, c echo.Context) string {
    parts := []string{cfg.Prefix}
    switch strings.ToLower(cfg.KeyStrategy) {
    case "user":
        parts = append(parts, "user", callerID(c))
    case "ip":
        parts = append(parts, "ip", clientIP(c))
    case "ip_route":
        parts = append(parts, "ip", clientIP(c), "route", routeOf(c))
    default: // user_route
        parts = append(parts, "user", callerID(c), "route", routeOf(c))
    }
    return strings.Join(parts, ":")
}

func routeOf(c echo.Context) string {
    return c.Request().Method + " " + c.Path()
}

func clientIP(c echo.Context) string {
    if ip := c.RealIP(); ip != "" {
        return ip
    }
    return "unknown"
}

// callerID reads the user ID the Identity middleware stored.
func callerID(c echo.Context) string {
    if n, ok := c.Get("user_id").(uint64); ok && n > 0 {
        return strconv.FormatUint(n, 10)
    }
    return "anon@" + clientIP(c)
}
