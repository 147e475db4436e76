package refclient

import (
	"sync"
	"time"
)

// circuitState mirrors a standard CircuitState enum, widened
// to a sliding-window failure-percentage breaker
// (window of 10 calls, 50% failure threshold, 60s cooldown) instead of a
// simple consecutive-failure counter.
type circuitState int

const (
	circuitClosed circuitState = iota
	circuitOpen
	circuitHalfOpen
)

// CircuitBreaker short-circuits calls to an unhealthy dependency for a
// cooldown window, judging health over a sliding window of recent outcomes
// rather than a consecutive-failure streak.
type CircuitBreaker struct {
	name            string
	windowSize      int
	failureThresh   float64
	cooldown        time.Duration

	mu        sync.Mutex
	state     circuitState
	outcomes  []bool // true = success, ring buffer up to windowSize
	openedAt  time.Time
}

// NewCircuitBreaker builds a sliding-window circuit breaker.
func NewCircuitBreaker(name string, windowSize int, failureThresholdPercent float64, cooldown time.Duration) *CircuitBreaker {
	if windowSize <= 0 {
		windowSize = 10
	}
	return &CircuitBreaker{
		name:          name,
		windowSize:    windowSize,
		failureThresh: failureThresholdPercent,
		cooldown:      cooldown,
		state:         circuitClosed,
		outcomes:      make([]bool, 0, windowSize),
	}
}

// ErrOpen is returned by Allow when the breaker is open and the cooldown has
// not yet elapsed.
var ErrOpen = &openError{}

type openError struct{}

func (*openError) Error() string { return "circuit breaker open" }

// Allow reports whether a call should proceed. When it returns false, the
// caller must synthesize the configured failure classification without a
// network round trip (ErrTransient).
func (b *CircuitBreaker) Allow() bool {
	b.mu.Lock()
	defer b.mu.Unlock()

	switch b.state {
	case circuitOpen:
		if time.Since(b.openedAt) >= b.cooldown {
			b.state = circuitHalfOpen
			return true
		}
		return false
	default:
		return true
	}
}

// Record reports the outcome of a call that Allow permitted.
func (b *CircuitBreaker) Record(success bool) {
	b.mu.Lock()
	defer b.mu.Unlock()

	if b.state == circuitHalfOpen {
		if success {
			b.state = circuitClosed
			b.outcomes = b.outcomes[:0]
		} else {
			b.state = circuitOpen
			b.openedAt = time.Now()
			b.outcomes = b.outcomes[:0]
		}
		return
	}

	b.outcomes = append(b.outcomes, success)
	if len(b.outcomes) > b.windowSize {
		b.outcomes = b.outcomes[len(b.outcomes)-b.windowSize:]
	}

	if len(b.outcomes) < b.windowSize {
		return
	}

	failures := 0
	for _, ok := range b.outcomes {
		if !ok {
			failures++
		}
	}
	failurePct := float64(failures) / float64(len(b.outcomes)) * 100
	if failurePct >= b.failureThresh {
		b.state = circuitOpen
		b.openedAt = time.Now()
	}
}

// Name returns the breaker's identifying label, used as a metrics dimension.
func (b *CircuitBreaker) Name() string { return b.name }

// State reports the breaker's current state as a metrics gauge value:
// 0=closed, 1=open, 2=half-open.
func (b *CircuitBreaker) State() float64 {
	b.mu.Lock()
	defer b.mu.Unlock()
	return float64(b.state)
}
