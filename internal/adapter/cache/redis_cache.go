package cache

import (
	"context"
	"encoding/json"
	"time"

	"github.com/redis/go-redis/v9"
	"go.uber.org/zap"

	"github.com/smallbiznis/valora-accounts/internal/service"
)

// RedisCache implements service.Cache backed by Redis. The cache is only an
// accelerator; every failure here is logged and degrades to a miss so an
// unreachable Redis never fails the owning operation.
type RedisCache struct {
	client redis.UniversalClient
	logger *zap.Logger
}

var _ service.Cache = (*RedisCache)(nil)

// NewRedisCache constructs a Redis-backed cache.
func NewRedisCache(client redis.UniversalClient, logger *zap.Logger) *RedisCache {
	return &RedisCache{client: client, logger: logger}
}

// Get loads and decodes the cached value, reporting a hit.
func (c *RedisCache) Get(ctx context.Context, key string, dest any) bool {
	payload, err := c.client.Get(ctx, key).Bytes()
	if err != nil {
		if err != redis.Nil {
			c.logger.Warn("cache get failed", zap.String("key", key), zap.Error(err))
		}
		return false
	}
	if err := json.Unmarshal(payload, dest); err != nil {
		c.logger.Warn("cache decode failed", zap.String("key", key), zap.Error(err))
		return false
	}
	return true
}

// Set stores the encoded value with TTL.
func (c *RedisCache) Set(ctx context.Context, key string, value any, ttl time.Duration) {
	payload, err := json.Marshal(value)
	if err != nil {
		c.logger.Warn("cache encode failed", zap.String("key", key), zap.Error(err))
		return
	}
	if err := c.client.Set(ctx, key, payload, ttl).Err(); err != nil {
		c.logger.Warn("cache set failed", zap.String("key", key), zap.Error(err))
	}
}

// Delete removes the keys. Missing keys are not an error.
func (c *RedisCache) Delete(ctx context.Context, keys ...string) {
	if len(keys) == 0 {
		return
	}
	if err := c.client.Del(ctx, keys...).Err(); err != nil && err != redis.Nil {
		c.logger.Warn("cache delete failed", zap.Strings("keys", keys), zap.Error(err))
	}
}
