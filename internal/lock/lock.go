package lock

import (
	"context"
	"time"

	"github.com/google/uuid"
	"github.com/redis/go-redis/v9"

	"github.com/vladislavdragonenkov/orderworker/internal/domain"
)

// releaseScript deletes the key only if its value still matches the
// caller's token, implementing a compare-and-delete
// improvement over the source's unconditional delete.
const releaseScript = `
if redis.call("get", KEYS[1]) == ARGV[1] then
	return redis.call("del", KEYS[1])
else
	return 0
end
`

// extendScript resets the TTL only if the token still matches.
const extendScript = `
if redis.call("get", KEYS[1]) == ARGV[1] then
	return redis.call("pexpire", KEYS[1], ARGV[2])
else
	return 0
end
`

// RedisLock is the Redis-backed distributed lease, grounded on the
// original source's DistributedLockService: acquire via SETNX+TTL, release,
// isLocked, getLockTTL (-1 if absent).
type RedisLock struct {
	client         *redis.Client
	releaseScript  *redis.Script
	extendScript   *redis.Script
}

// NewRedisLock wraps an existing Redis client.
func NewRedisLock(client *redis.Client) *RedisLock {
	return &RedisLock{
		client:        client,
		releaseScript: redis.NewScript(releaseScript),
		extendScript:  redis.NewScript(extendScript),
	}
}

// Acquire is an atomic set-if-absent with TTL, returning a random holder
// token on success. On contention it returns ok=false, not an error.
func (l *RedisLock) Acquire(ctx context.Context, name string, ttl time.Duration) (string, bool, error) {
	token := uuid.NewString()
	ok, err := l.client.SetNX(ctx, name, token, ttl).Result()
	if err != nil {
		return "", false, err
	}
	return token, ok, nil
}

// Release is token-checked: it only deletes the key if the stored value
// still matches token. This improves over the
// source's unconditional delete; UnsafeRelease below preserves the source
// behavior for documentation parity, unused by the pipeline.
func (l *RedisLock) Release(ctx context.Context, name, token string) error {
	return l.releaseScript.Run(ctx, l.client, []string{name}, token).Err()
}

// UnsafeRelease unconditionally deletes the lock key, matching the
// original source's DistributedLockService.releaseLock, which does not
// check the holder token. Kept only for behavioral-parity documentation
// the pipeline never calls it.
func (l *RedisLock) UnsafeRelease(ctx context.Context, name string) error {
	return l.client.Del(ctx, name).Err()
}

// Extend atomically resets the TTL if the token still matches.
func (l *RedisLock) Extend(ctx context.Context, name, token string, ttl time.Duration) (bool, error) {
	res, err := l.extendScript.Run(ctx, l.client, []string{name}, token, ttl.Milliseconds()).Int()
	if err != nil {
		return false, err
	}
	return res == 1, nil
}

// IsHeld reports whether the lease is currently held by anyone.
func (l *RedisLock) IsHeld(ctx context.Context, name string) (bool, error) {
	n, err := l.client.Exists(ctx, name).Result()
	if err != nil {
		return false, err
	}
	return n > 0, nil
}

// TTL returns the remaining lease duration, -1 if absent, -2 if the key has
// no TTL attached (this is the inverse of Redis's own TTL
// command convention, which returns -2 for an absent key and -1 for a key
// with no expiry; the translation happens here).
func (l *RedisLock) TTL(ctx context.Context, name string) (time.Duration, error) {
	d, err := l.client.TTL(ctx, name).Result()
	if err != nil {
		return 0, err
	}
	switch d {
	case -2, -2 * time.Second:
		return -1 * time.Second, nil
	case -1, -1 * time.Second:
		return -2 * time.Second, nil
	default:
		return d, nil
	}
}

// Name builds the lock key for an orderId: order:lock:{orderId}.
func Name(orderID string) string { return "order:lock:" + orderID }

var _ domain.Lock = (*RedisLock)(nil)
