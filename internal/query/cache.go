package query

import (
    "context"
    "errors"
    "time"

    "github.com/redis/go-redis/v9"
    "go.uber.org/zap"
)

// RedisCache implements SnapshotCache on a Redis backend.  Cache
// failures degrade to misses; availability listings are always
// rebuildable from the seat map.
type RedisCache struct {
    client *redis.Client
    log    *zap.Logger
}

// NewRedisCache wraps the given Redis client.
func NewRedisCache(client *redis.Client, log *zap.Logger) *RedisCache {
    if log == nil {
        log = zap.NewNop()
    }
    return &RedisCache{client: client, log: log}
}

func (c *RedisCache) Get(ctx context.Context, key string) ([]byte, bool) {
    raw, err := c.client.Get(ctx, key).Bytes()
    if err != nil {
        if !errors.Is(err, redis.Nil) {
            c.log.Warn("availability cache read failed", zap.String("key", key), zap.Error(err))
        }
        return nil, false
    }
    return raw, true
}

func (c *RedisCache) Set(ctx context.Context, key string, val []byte, ttl time.Duration) {
    if err := c.client.Set(ctx, key, val, ttl).Err(); err != nil {
        c.log.Warn("availability cache write failed", zap.String("key", key), zap.Error(err))
    }
}
