package health

import (
	"encoding/json"
	"net/http"
	"sync"
	"time"
)

// Status is the health state of one dependency.
type Status string

const (
	StatusHealthy   Status = "healthy"
	StatusUnhealthy Status = "unhealthy"
	StatusDegraded  Status = "degraded"
)

// Check is the result of probing a single dependency (cache, store, bus, or
// a reference client's circuit breaker).
type Check struct {
	Name       string `json:"name"`
	Status     Status `json:"status"`
	Message    string `json:"message,omitempty"`
	DurationMs int64  `json:"duration_ms"`
}

// Response is the full /healthz body.
type Response struct {
	Status        Status           `json:"status"`
	Timestamp     time.Time        `json:"timestamp"`
	Checks        map[string]Check `json:"checks,omitempty"`
	Version       string           `json:"version,omitempty"`
	UptimeSeconds int64            `json:"uptime_seconds"`
}

// Checker probes one dependency's health on demand.
type Checker interface {
	Check() Check
}

type registeredChecker struct {
	checker  Checker
	critical bool
}

// Handler aggregates registered Checkers into the worker's /healthz and
// /readyz responses. Two tiers of checker are distinguished: a critical
// checker (cache, store) failing takes the worker out of rotation; an
// advisory checker (a reference client's circuit breaker) only degrades the
// reported status, since the pipeline already routes enrichment failures
// through the Failure Ledger instead of depending on orchestrator traffic
// shedding.
type Handler struct {
	mu        sync.RWMutex
	checkers  map[string]registeredChecker
	version   string
	startTime time.Time
}

// NewHandler creates a health handler reporting the given build version.
func NewHandler(version string) *Handler {
	return &Handler{
		checkers:  make(map[string]registeredChecker),
		version:   version,
		startTime: time.Now(),
	}
}

// RegisterChecker attaches a critical dependency check: cache or store. An
// unhealthy critical check fails both /healthz's overall status and
// /readyz.
func (h *Handler) RegisterChecker(name string, checker Checker) {
	h.register(name, checker, true)
}

// RegisterAdvisoryChecker attaches a non-critical check, such as a
// reference client's circuit breaker. An unhealthy advisory check degrades
// /healthz's reported status but never fails /readyz, since a tripped
// breaker is already being handled by the pipeline's own retry path.
func (h *Handler) RegisterAdvisoryChecker(name string, checker Checker) {
	h.register(name, checker, false)
}

func (h *Handler) register(name string, checker Checker, critical bool) {
	h.mu.Lock()
	defer h.mu.Unlock()
	h.checkers[name] = registeredChecker{checker: checker, critical: critical}
}

func (h *Handler) snapshot() map[string]registeredChecker {
	h.mu.RLock()
	defer h.mu.RUnlock()
	checkers := make(map[string]registeredChecker, len(h.checkers))
	for k, v := range h.checkers {
		checkers[k] = v
	}
	return checkers
}

// ServeHTTP runs every registered checker and reports the aggregate status.
func (h *Handler) ServeHTTP(w http.ResponseWriter, _ *http.Request) {
	checks := make(map[string]Check)
	overallStatus := StatusHealthy

	for name, rc := range h.snapshot() {
		check := rc.checker.Check()
		checks[name] = check

		switch check.Status {
		case StatusUnhealthy:
			if rc.critical {
				overallStatus = StatusUnhealthy
			} else if overallStatus == StatusHealthy {
				overallStatus = StatusDegraded
			}
		case StatusDegraded:
			if overallStatus == StatusHealthy {
				overallStatus = StatusDegraded
			}
		}
	}

	response := Response{
		Status:        overallStatus,
		Timestamp:     time.Now(),
		Checks:        checks,
		Version:       h.version,
		UptimeSeconds: int64(time.Since(h.startTime).Seconds()),
	}

	statusCode := http.StatusOK
	if overallStatus == StatusUnhealthy {
		statusCode = http.StatusServiceUnavailable
	}

	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(statusCode)
	_ = json.NewEncoder(w).Encode(response)
}

// LivenessHandler is a bare liveness probe: the process is up, period.
func LivenessHandler(w http.ResponseWriter, _ *http.Request) {
	w.WriteHeader(http.StatusOK)
	_, _ = w.Write([]byte("ok"))
}

// ReadinessHandler reports 503 only when a critical dependency (cache or
// store) is unhealthy; a tripped reference-client breaker never affects
// readiness.
func (h *Handler) ReadinessHandler(w http.ResponseWriter, _ *http.Request) {
	for _, rc := range h.snapshot() {
		if !rc.critical {
			continue
		}
		if rc.checker.Check().Status == StatusUnhealthy {
			w.WriteHeader(http.StatusServiceUnavailable)
			_, _ = w.Write([]byte("not ready"))
			return
		}
	}

	w.WriteHeader(http.StatusOK)
	_, _ = w.Write([]byte("ready"))
}

// SimpleChecker adapts a bare func() error (a Redis Ping, a Mongo Ping) into
// a Checker.
type SimpleChecker struct {
	name    string
	checkFn func() error
}

// NewSimpleChecker wraps checkFn as a named Checker.
func NewSimpleChecker(name string, checkFn func() error) *SimpleChecker {
	return &SimpleChecker{
		name:    name,
		checkFn: checkFn,
	}
}

// Check runs checkFn and times it.
func (c *SimpleChecker) Check() Check {
	start := time.Now()
	err := c.checkFn()
	duration := time.Since(start)

	if err != nil {
		return Check{
			Name:       c.name,
			Status:     StatusUnhealthy,
			Message:    err.Error(),
			DurationMs: duration.Milliseconds(),
		}
	}

	return Check{
		Name:       c.name,
		Status:     StatusHealthy,
		DurationMs: duration.Milliseconds(),
	}
}

// Breaker is the subset of a reference client's circuit breaker surfaced
// through health checks.
type Breaker interface {
	Name() string
	State() float64
}

// BreakerChecker reports a reference client's circuit breaker state as a
// Check: closed is healthy, half-open (probing the cooldown) is degraded,
// open is unhealthy. It never makes a network call of its own — the
// breaker already paid for every outcome it reports.
type BreakerChecker struct {
	breaker Breaker
}

// NewBreakerChecker wraps breaker as a Checker.
func NewBreakerChecker(breaker Breaker) *BreakerChecker {
	return &BreakerChecker{breaker: breaker}
}

// Check reads the breaker's current state without blocking.
func (c *BreakerChecker) Check() Check {
	switch c.breaker.State() {
	case 1:
		return Check{Name: c.breaker.Name(), Status: StatusUnhealthy, Message: "circuit breaker open"}
	case 2:
		return Check{Name: c.breaker.Name(), Status: StatusDegraded, Message: "circuit breaker half-open"}
	default:
		return Check{Name: c.breaker.Name(), Status: StatusHealthy}
	}
}
