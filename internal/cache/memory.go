package cache

import (
	"context"
	"encoding/json"
	"sync"
	"time"

	"github.com/vladislavdragonenkov/orderworker/internal/domain"
)

type memoryEntry struct {
	value   []byte
	expires time.Time
}

// InMemoryCache is a sync.RWMutex-guarded map implementation of domain.Cache,
// used for local development and tests.
type InMemoryCache struct {
	mu    sync.RWMutex
	items map[string]memoryEntry
}

// NewInMemoryCache returns an in-memory domain.Cache.
func NewInMemoryCache() *InMemoryCache {
	return &InMemoryCache{items: make(map[string]memoryEntry)}
}

func (c *InMemoryCache) Get(_ context.Context, key string, out interface{}) (bool, error) {
	c.mu.RLock()
	entry, ok := c.items[key]
	c.mu.RUnlock()
	if !ok {
		return false, nil
	}
	if !entry.expires.IsZero() && time.Now().After(entry.expires) {
		return false, nil
	}
	if err := json.Unmarshal(entry.value, out); err != nil {
		return false, nil
	}
	return true, nil
}

func (c *InMemoryCache) Set(_ context.Context, key string, value interface{}, ttl time.Duration) {
	raw, err := json.Marshal(value)
	if err != nil {
		return
	}
	var expires time.Time
	if ttl > 0 {
		expires = time.Now().Add(ttl)
	}
	c.mu.Lock()
	c.items[key] = memoryEntry{value: raw, expires: expires}
	c.mu.Unlock()
}

func (c *InMemoryCache) Delete(_ context.Context, key string) error {
	c.mu.Lock()
	delete(c.items, key)
	c.mu.Unlock()
	return nil
}

func (c *InMemoryCache) Exists(_ context.Context, key string) (bool, error) {
	c.mu.RLock()
	entry, ok := c.items[key]
	c.mu.RUnlock()
	if !ok {
		return false, nil
	}
	if !entry.expires.IsZero() && time.Now().After(entry.expires) {
		return false, nil
	}
	return true, nil
}

func (c *InMemoryCache) Expire(_ context.Context, key string, ttl time.Duration) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	entry, ok := c.items[key]
	if !ok {
		return nil
	}
	entry.expires = time.Now().Add(ttl)
	c.items[key] = entry
	return nil
}

var _ domain.Cache = (*InMemoryCache)(nil)
