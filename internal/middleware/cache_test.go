package middleware

import (
    "net/http"
    "testing"

    "github.com/labstack/echo/v4"
    "github.com/redis/go-redis/v9"
    "github.com/stretchr/testify/assert"
    "github.com/stretchr/testify/require"

    "github.com/seatwise/booking-engine/internal/config"
)

func TestReplay(t *testing.T) {
    c, rec := newEchoContext(http.MethodGet, "/v1/showings", "/v1/showings")
    cached := cachedResponse{
        Status: http.StatusOK,
        Header: http.Header{
            "Content-Type":   {"application/json"},
            "Content-Length": {"15"},
            "X-Cache":        {"MISS"},
        },
        Body: []byte(`{"showings":[]}`),
    }

    require.NoError(t, replay(c, cached))
    assert.Equal(t, http.StatusOK, rec.Code)
    assert.Equal(t, `{"showings":[]}`, rec.Body.String())
    assert.Equal(t, "application/json", rec.Header().Get("Content-Type"))
    assert.Equal(t, "HIT", rec.Header().Get("X-Cache"))
    // Content-Length is recomputed by the server, never replayed.
    assert.Empty(t, rec.Header().Get("Content-Length"))
}

func TestRecordingWriter_OversizedBodyServedNotCached(t *testing.T) {
    c, rec := newEchoContext(http.MethodGet, "/v1/showings", "/v1/showings")
    w := &recordingWriter{ResponseWriter: c.Response().Writer, status: http.StatusOK, limit: 8}

    _, err := w.Write([]byte("12345"))
    require.NoError(t, err)
    _, err = w.Write([]byte("678901"))
    require.NoError(t, err)

    assert.True(t, w.overflow)
    assert.Equal(t, "12345678901", rec.Body.String(), "the client still gets the full body")
}

func TestResponseCacheKey(t *testing.T) {
    c1, _ := newEchoContext(http.MethodGet, "/v1/showings?from=2026-09-01", "/v1/showings")
    c2, _ := newEchoContext(http.MethodGet, "/v1/showings?from=2026-09-01", "/v1/showings")
    c3, _ := newEchoContext(http.MethodGet, "/v1/showings?from=2026-09-02", "/v1/showings")

    assert.Equal(t, responseCacheKey("p", c1), responseCacheKey("p", c2))
    assert.NotEqual(t, responseCacheKey("p", c1), responseCacheKey("p", c3))
}

func TestResponseCache_OnlyListedRoutes(t *testing.T) {
    // Nothing listens on this address; unlisted routes must never
    // reach redis at all.
    rdb := redis.NewClient(&redis.Options{Addr: "127.0.0.1:1"})
    defer rdb.Close()
    cfg := config.ResponseCacheConfig{Enabled: true, Routes: map[string]bool{"/v1/showings": true}}
    mw := ResponseCache(cfg, rdb)

    c, rec := newEchoContext(http.MethodGet, "/v1/showings/3/seats", "/v1/showings/:id/seats")
    require.NoError(t, mw(func(c echo.Context) error { return c.NoContent(http.StatusOK) })(c))
    assert.Equal(t, http.StatusOK, rec.Code)
    assert.Empty(t, rec.Header().Get("X-Cache"))

    // POST to a listed path is not cached either.
    c, rec = newEchoContext(http.MethodPost, "/v1/showings", "/v1/showings")
    require.NoError(t, mw(func(c echo.Context) error { return c.NoContent(http.StatusCreated) })(c))
    assert.Equal(t, http.StatusCreated, rec.Code)
    assert.Empty(t, rec.Header().Get("X-Cache"))
}

func TestResponseCache_MissServesHandlerWhenRedisDown(t *testing.T) {
    rdb := redis.NewClient(&redis.Options{Addr: "127.0.0.1:1"})
    defer rdb.Close()
    cfg := config.ResponseCacheConfig{Enabled: true, Routes: map[string]bool{"/v1/showings": true}}
    mw := ResponseCache(cfg, rdb)

    c, rec := newEchoContext(http.MethodGet, "/v1/showings", "/v1/showings")
    require.NoError(t, mw(func(c echo.Context) error {
        return c.JSON(http.StatusOK, echo.Map{"showings": []string{}})
    })(c))

    assert.Equal(t, http.StatusOK, rec.Code)
    assert.Equal(t, "MISS", rec.Header().Get("X-Cache"))
    assert.Contains(t, rec.Body.String(), "showings")
}

func TestResponseCache_NoRedisIsPassthrough(t *testing.T) {
    mw := ResponseCache(config.LoadResponseCacheConfig(), nil)

    c, rec := newEchoContext(http.MethodGet, "/v1/showings", "/v1/showings")
    require.NoError(t, mw(func(c echo.Context) error { return c.NoContent(http.StatusOK) })(c))
    assert.Equal(t, http.StatusOK, rec.Code)
    assert.Empty(t, rec.Header().Get("X-Cache"))
}
