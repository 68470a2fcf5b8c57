package middleware

import (
    "context"
    "encoding/json"
    "net/http"
    "strconv"
    "time"

    "github.com/cespare/xxhash/v2"
    "github.com/labstack/echo/v4"
    "github.com/redis/go-redis/v9"
    "go.uber.org/zap"

    "github.com/seatwise/booking-engine/internal/config"
    "github.com/seatwise/booking-engine/internal/logger"
)

// cachedResponse is the redis envelope for one cached GET.  Body is
// raw bytes; encoding/json base64s it on the wire.
type cachedResponse struct {
    Status int         `json:"status"`
    Header http.Header `json:"header"`
    Body   []byte      `json:"body"`
}

// recordingWriter tees the response into a buffer up to a size cap.
// An oversized body is still served in full, it just never enters the
// cache.
type recordingWriter struct {
    http.ResponseWriter
    status   int
    body     []byte
    limit    int
    overflow bool
}

func (w *recordingWriter) WriteHeader(code int) {
    w.status = code
    w.ResponseWriter.WriteHeader(code)
}

func (w *recordingWriter) Write(b []byte) (int, error) {
    if !w.overflow {
        if w.limit > 0 && len(w.body)+len(b) > w.limit {
            w.overflow = true
        } else {
            w.body = append(w.body, b...)
        }
    }
    return w.ResponseWriter.Write(b)
}

// ResponseCache serves the GET routes listed in cfg.Routes straight
// from redis.  It exists for the public screenings listing, which
// every browsing client requests and which only changes when the
// catalog does.  The caller's identity never enters the key, so only
// routes whose responses do not vary by user belong in the list; seat
// availability stays out, the query service caches that itself with a
// freshness-appropriate TTL.
func ResponseCache(cfg config.ResponseCacheConfig, rdb *redis.Client) echo.MiddlewareFunc {
    if !cfg.Enabled || rdb == nil || len(cfg.Routes) == 0 {
        return passthrough
    }
    ttl := cfg.TTL
    if ttl <= 0 {
        ttl = 30 * time.Second
    }
    return func(next echo.HandlerFunc) echo.HandlerFunc {
        return func(c echo.Context) error {
            if c.Request().Method != http.MethodGet || !cfg.Routes[c.Path()] {
                return next(c)
            }
            key := responseCacheKey(cfg.Prefix, c)
            if raw, err := rdb.Get(c.Request().Context(), key).Bytes(); err == nil {
                var cached cachedResponse
                if err := json.Unmarshal(raw, &cached); err == nil {
                    return replay(c, cached)
                }
            }

            rec := &recordingWriter{ResponseWriter: c.Response().Writer, status: http.StatusOK, limit: cfg.MaxBodyBytes}
            c.Response().Writer = rec
            c.Response().Header().Set("X-Cache", "MISS")
            if err := next(c); err != nil {
                return err
            }
            if rec.status != http.StatusOK || rec.overflow {
                return nil
            }
            payload, err := json.Marshal(cachedResponse{
                Status: rec.status,
                Header: c.Response().Header().Clone(),
                Body:   rec.body,
            })
            if err != nil {
                return nil
            }
            // The store must outlive the request; its context is done
            // once the response is written.
            if err := rdb.Set(context.WithoutCancel(c.Request().Context()), key, payload, ttl).Err(); err != nil {
                logger.Warn("response cache store failed", zap.String("key", key), zap.Error(err))
            }
            return nil
        }
    }
}

// replay writes a cached response, preserving the headers the handler
// originally produced so clients see identical formatting.
func replay(c echo.Context, cached cachedResponse) error {
    h := c.Response().Header()
    for k, vals := range cached.Header {
        if k == "Content-Length" {
            continue
        }
        for _, v := range vals {
            h.Add(k, v)
        }
    }
    h.Set("X-Cache", "HIT")
    c.Response().WriteHeader(cached.Status)
    _, err := c.Response().Write(cached.Body)
    return err
}

// responseCacheKey hashes route and query so arbitrarily long query
// strings still produce short redis keys.
func responseCacheKey(prefix string, c echo.Context) string {
    sum := xxhash.Sum64String(c.Path() + "?" + c.Request().URL.RawQuery)
    return prefix + ":" + strconv.FormatUint(sum, 16)
}
