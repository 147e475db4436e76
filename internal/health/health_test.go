package health

import (
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"
)

// fakeBreaker lets tests drive BreakerChecker through every state without a
// real refclient.CircuitBreaker.
type fakeBreaker struct {
	name  string
	state float64
}

func (f *fakeBreaker) Name() string   { return f.name }
func (f *fakeBreaker) State() float64 { return f.state }

func TestHandler_ServeHTTP_AllCriticalHealthy(t *testing.T) {
	handler := NewHandler("v1.0.0")
	handler.RegisterChecker("cache", NewSimpleChecker("cache", func() error { return nil }))
	handler.RegisterChecker("store", NewSimpleChecker("store", func() error { return nil }))

	req := httptest.NewRequest(http.MethodGet, "/healthz", nil)
	w := httptest.NewRecorder()
	handler.ServeHTTP(w, req)

	if w.Code != http.StatusOK {
		t.Errorf("expected status 200, got %d", w.Code)
	}

	var response Response
	if err := json.NewDecoder(w.Body).Decode(&response); err != nil {
		t.Fatalf("failed to decode response: %v", err)
	}
	if response.Status != StatusHealthy {
		t.Errorf("expected status healthy, got %s", response.Status)
	}
	if response.Version != "v1.0.0" {
		t.Errorf("expected version v1.0.0, got %s", response.Version)
	}
	if len(response.Checks) != 2 {
		t.Errorf("expected 2 checks, got %d", len(response.Checks))
	}
}

func TestHandler_ServeHTTP_CriticalUnhealthyFailsOverall(t *testing.T) {
	handler := NewHandler("v1.0.0")
	handler.RegisterChecker("store", NewSimpleChecker("store", func() error {
		return errors.New("dial mongo: connection refused")
	}))

	req := httptest.NewRequest(http.MethodGet, "/healthz", nil)
	w := httptest.NewRecorder()
	handler.ServeHTTP(w, req)

	if w.Code != http.StatusServiceUnavailable {
		t.Errorf("expected status 503, got %d", w.Code)
	}

	var response Response
	if err := json.NewDecoder(w.Body).Decode(&response); err != nil {
		t.Fatalf("failed to decode response: %v", err)
	}
	if response.Status != StatusUnhealthy {
		t.Errorf("expected status unhealthy, got %s", response.Status)
	}
}

func TestHandler_ServeHTTP_AdvisoryUnhealthyOnlyDegrades(t *testing.T) {
	handler := NewHandler("v1.0.0")
	handler.RegisterChecker("cache", NewSimpleChecker("cache", func() error { return nil }))
	handler.RegisterAdvisoryChecker("product_api", NewBreakerChecker(&fakeBreaker{name: "product", state: 1}))

	req := httptest.NewRequest(http.MethodGet, "/healthz", nil)
	w := httptest.NewRecorder()
	handler.ServeHTTP(w, req)

	// An open breaker on a reference client never trips overall /healthz into
	// unhealthy; it degrades the worker's reported status without implying
	// it should be pulled from rotation.
	if w.Code != http.StatusOK {
		t.Errorf("expected status 200, got %d", w.Code)
	}

	var response Response
	if err := json.NewDecoder(w.Body).Decode(&response); err != nil {
		t.Fatalf("failed to decode response: %v", err)
	}
	if response.Status != StatusDegraded {
		t.Errorf("expected status degraded, got %s", response.Status)
	}
}

func TestLivenessHandler(t *testing.T) {
	req := httptest.NewRequest(http.MethodGet, "/livez", nil)
	w := httptest.NewRecorder()

	LivenessHandler(w, req)

	if w.Code != http.StatusOK {
		t.Errorf("expected status 200, got %d", w.Code)
	}
	if w.Body.String() != "ok" {
		t.Errorf("expected body 'ok', got %s", w.Body.String())
	}
}

func TestReadinessHandler_CriticalHealthy(t *testing.T) {
	handler := NewHandler("v1.0.0")
	handler.RegisterChecker("cache", NewSimpleChecker("cache", func() error { return nil }))

	req := httptest.NewRequest(http.MethodGet, "/readyz", nil)
	w := httptest.NewRecorder()
	handler.ReadinessHandler(w, req)

	if w.Code != http.StatusOK {
		t.Errorf("expected status 200, got %d", w.Code)
	}
	if w.Body.String() != "ready" {
		t.Errorf("expected body 'ready', got %s", w.Body.String())
	}
}

func TestReadinessHandler_CriticalUnhealthyFails(t *testing.T) {
	handler := NewHandler("v1.0.0")
	handler.RegisterChecker("store", NewSimpleChecker("store", func() error {
		return errors.New("dial mongo: connection refused")
	}))

	req := httptest.NewRequest(http.MethodGet, "/readyz", nil)
	w := httptest.NewRecorder()
	handler.ReadinessHandler(w, req)

	if w.Code != http.StatusServiceUnavailable {
		t.Errorf("expected status 503, got %d", w.Code)
	}
	if w.Body.String() != "not ready" {
		t.Errorf("expected body 'not ready', got %s", w.Body.String())
	}
}

func TestReadinessHandler_AdvisoryUnhealthyDoesNotFail(t *testing.T) {
	handler := NewHandler("v1.0.0")
	handler.RegisterChecker("cache", NewSimpleChecker("cache", func() error { return nil }))
	handler.RegisterAdvisoryChecker("customer_api", NewBreakerChecker(&fakeBreaker{name: "customer", state: 1}))

	req := httptest.NewRequest(http.MethodGet, "/readyz", nil)
	w := httptest.NewRecorder()
	handler.ReadinessHandler(w, req)

	if w.Code != http.StatusOK {
		t.Errorf("expected status 200, got %d", w.Code)
	}
	if w.Body.String() != "ready" {
		t.Errorf("expected body 'ready', got %s", w.Body.String())
	}
}

func TestSimpleChecker_Healthy(t *testing.T) {
	checker := NewSimpleChecker("cache", func() error {
		time.Sleep(10 * time.Millisecond)
		return nil
	})

	check := checker.Check()

	if check.Status != StatusHealthy {
		t.Errorf("expected status healthy, got %s", check.Status)
	}
	if check.DurationMs < 10 {
		t.Errorf("expected duration_ms >= 10, got %d", check.DurationMs)
	}
}

func TestSimpleChecker_Unhealthy(t *testing.T) {
	checker := NewSimpleChecker("store", func() error {
		return errors.New("dial mongo: connection refused")
	})

	check := checker.Check()

	if check.Status != StatusUnhealthy {
		t.Errorf("expected status unhealthy, got %s", check.Status)
	}
	if check.Message != "dial mongo: connection refused" {
		t.Errorf("expected message to carry the dial error, got %s", check.Message)
	}
}

func TestBreakerChecker_States(t *testing.T) {
	cases := []struct {
		state    float64
		expected Status
	}{
		{state: 0, expected: StatusHealthy},
		{state: 1, expected: StatusUnhealthy},
		{state: 2, expected: StatusDegraded},
	}

	for _, tc := range cases {
		checker := NewBreakerChecker(&fakeBreaker{name: "product", state: tc.state})
		check := checker.Check()
		if check.Status != tc.expected {
			t.Errorf("breaker state %v: expected %s, got %s", tc.state, tc.expected, check.Status)
		}
		if check.Name != "product" {
			t.Errorf("expected check name to carry the breaker's name, got %s", check.Name)
		}
	}
}
