package cache

import (
	"context"
	"encoding/json"
	"time"

	"github.com/redis/go-redis/v9"
	log "github.com/sirupsen/logrus"

	"github.com/vladislavdragonenkov/orderworker/internal/domain"
)

// RedisCache is the Redis-backed, JSON-encoded read-through cache.
// Grounded on the original source's reactive CacheService: get/set/delete/
// exists/expire. Get failures degrade to a miss and Set failures are logged,
// so neither reaches the pipeline; Delete, Exists and Expire return their
// errors to the caller.
type RedisCache struct {
	client *redis.Client
	logger *log.Entry
}

// NewRedisCache wraps an existing Redis client.
func NewRedisCache(client *redis.Client) *RedisCache {
	return &RedisCache{
		client: client,
		logger: log.WithField("component", "cache"),
	}
}

// Get decodes the cached JSON value into out. It returns (false, nil) on any
// miss or degraded-connectivity error; errors are logged, never propagated.
func (c *RedisCache) Get(ctx context.Context, key string, out interface{}) (bool, error) {
	raw, err := c.client.Get(ctx, key).Bytes()
	if err != nil {
		if err != redis.Nil {
			c.logger.WithError(err).WithField("key", key).Warn("cache get failed, treating as miss")
		}
		return false, nil
	}

	if err := json.Unmarshal(raw, out); err != nil {
		c.logger.WithError(err).WithField("key", key).Warn("cache value failed to deserialize, treating as miss")
		return false, nil
	}

	return true, nil
}

// Set writes value JSON-encoded with the given TTL. It is fire-and-forget:
// encode or write failures are logged and swallowed rather than surfaced.
func (c *RedisCache) Set(ctx context.Context, key string, value interface{}, ttl time.Duration) {
	raw, err := json.Marshal(value)
	if err != nil {
		c.logger.WithError(err).WithField("key", key).Warn("cache encode failed, skipping set")
		return
	}
	if err := c.client.Set(ctx, key, raw, ttl).Err(); err != nil {
		c.logger.WithError(err).WithField("key", key).Warn("cache set failed")
	}
}

// Delete removes a key.
func (c *RedisCache) Delete(ctx context.Context, key string) error {
	return c.client.Del(ctx, key).Err()
}

// Exists reports whether a key is present.
func (c *RedisCache) Exists(ctx context.Context, key string) (bool, error) {
	n, err := c.client.Exists(ctx, key).Result()
	if err != nil {
		return false, err
	}
	return n > 0, nil
}

// Expire resets a key's TTL.
func (c *RedisCache) Expire(ctx context.Context, key string, ttl time.Duration) error {
	return c.client.Expire(ctx, key, ttl).Err()
}

var _ domain.Cache = (*RedisCache)(nil)

// ProductKey builds the cache key for a product id: product:{id}.
func ProductKey(id string) string { return "product:" + id }

// CustomerKey builds the cache key for a customer id: customer:{id}.
func CustomerKey(id string) string { return "customer:" + id }
