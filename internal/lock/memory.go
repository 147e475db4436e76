package lock

import (
	"context"
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/vladislavdragonenkov/orderworker/internal/domain"
)

type memoryLease struct {
	token   string
	expires time.Time
}

// InMemoryLock is a sync.Mutex-guarded map implementation of domain.Lock for
// local development and tests, matching the in-memory storage
// convention.
type InMemoryLock struct {
	mu     sync.Mutex
	leases map[string]memoryLease
}

// NewInMemoryLock returns an in-memory domain.Lock.
func NewInMemoryLock() *InMemoryLock {
	return &InMemoryLock{leases: make(map[string]memoryLease)}
}

func (l *InMemoryLock) Acquire(_ context.Context, name string, ttl time.Duration) (string, bool, error) {
	l.mu.Lock()
	defer l.mu.Unlock()

	if existing, ok := l.leases[name]; ok && time.Now().Before(existing.expires) {
		return "", false, nil
	}

	token := uuid.NewString()
	l.leases[name] = memoryLease{token: token, expires: time.Now().Add(ttl)}
	return token, true, nil
}

func (l *InMemoryLock) Release(_ context.Context, name, token string) error {
	l.mu.Lock()
	defer l.mu.Unlock()
	if existing, ok := l.leases[name]; ok && existing.token == token {
		delete(l.leases, name)
	}
	return nil
}

func (l *InMemoryLock) Extend(_ context.Context, name, token string, ttl time.Duration) (bool, error) {
	l.mu.Lock()
	defer l.mu.Unlock()
	existing, ok := l.leases[name]
	if !ok || existing.token != token {
		return false, nil
	}
	existing.expires = time.Now().Add(ttl)
	l.leases[name] = existing
	return true, nil
}

func (l *InMemoryLock) IsHeld(_ context.Context, name string) (bool, error) {
	l.mu.Lock()
	defer l.mu.Unlock()
	existing, ok := l.leases[name]
	return ok && time.Now().Before(existing.expires), nil
}

func (l *InMemoryLock) TTL(_ context.Context, name string) (time.Duration, error) {
	l.mu.Lock()
	defer l.mu.Unlock()
	existing, ok := l.leases[name]
	if !ok {
		return -1 * time.Second, nil
	}
	remaining := time.Until(existing.expires)
	if remaining <= 0 {
		return -1 * time.Second, nil
	}
	return remaining, nil
}

var _ domain.Lock = (*InMemoryLock)(nil)
