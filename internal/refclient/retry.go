package refclient

import (
	"context"
	"time"

	"github.com/vladislavdragonenkov/orderworker/internal/domain"
)

// RetryConfig matches the documented caller-side retry policy: exponential
// backoff starting at 1s, factor 2, max 3 attempts, retried only on
// ErrTransient.
type RetryConfig struct {
	BaseDelay  time.Duration
	Factor     float64
	MaxAttempts int
}

// DefaultRetryConfig is the original source's fixed policy: 1s base, factor
// 2, 3 attempts, no jitter.
func DefaultRetryConfig() RetryConfig {
	return RetryConfig{BaseDelay: time.Second, Factor: 2, MaxAttempts: 3}
}

// WithRetry calls fn up to cfg.MaxAttempts times, retrying only when fn's
// error wraps domain.ErrTransient, backing off exponentially between tries.
// It follows a standard executeWithRetry shape, adapted
// from saga-step retries to reference-client fetch retries.
func WithRetry(ctx context.Context, cfg RetryConfig, fn func(ctx context.Context) error) error {
	var lastErr error
	delay := cfg.BaseDelay

	for attempt := 1; attempt <= cfg.MaxAttempts; attempt++ {
		lastErr = fn(ctx)
		if lastErr == nil {
			return nil
		}
		if !domain.IsTransient(lastErr) {
			return lastErr
		}
		if attempt == cfg.MaxAttempts {
			break
		}

		timer := time.NewTimer(delay)
		select {
		case <-ctx.Done():
			timer.Stop()
			return ctx.Err()
		case <-timer.C:
		}
		delay = time.Duration(float64(delay) * cfg.Factor)
	}

	return lastErr
}
