package refclient

import (
	"testing"
	"time"
)

func TestCircuitBreaker_StaysClosedBelowThreshold(t *testing.T) {
	b := NewCircuitBreaker("test", 10, 50, time.Minute)

	for i := 0; i < 4; i++ {
		if !b.Allow() {
			t.Fatal("expected breaker to remain closed")
		}
		b.Record(false)
	}
	for i := 0; i < 6; i++ {
		if !b.Allow() {
			t.Fatal("expected breaker to remain closed")
		}
		b.Record(true)
	}
	if !b.Allow() {
		t.Fatal("expected breaker to still be closed with a 40% failure rate over a full window")
	}
}

func TestCircuitBreaker_OpensAtThreshold(t *testing.T) {
	b := NewCircuitBreaker("test", 4, 50, time.Minute)

	b.Record(true)
	b.Record(false)
	b.Record(true)
	b.Record(false)

	if b.Allow() {
		t.Fatal("expected breaker to open at a 50% failure rate")
	}
}

func TestCircuitBreaker_HalfOpenAfterCooldown(t *testing.T) {
	b := NewCircuitBreaker("test", 2, 50, 10*time.Millisecond)

	b.Record(false)
	b.Record(false)
	if b.Allow() {
		t.Fatal("expected breaker to be open immediately after tripping")
	}

	time.Sleep(20 * time.Millisecond)
	if !b.Allow() {
		t.Fatal("expected breaker to allow a half-open probe after cooldown")
	}
}

func TestCircuitBreaker_HalfOpenSuccessCloses(t *testing.T) {
	b := NewCircuitBreaker("test", 2, 50, 5*time.Millisecond)
	b.Record(false)
	b.Record(false)
	time.Sleep(10 * time.Millisecond)

	if !b.Allow() {
		t.Fatal("expected a half-open probe to be allowed")
	}
	b.Record(true)

	for i := 0; i < 2; i++ {
		if !b.Allow() {
			t.Fatal("expected breaker to be closed after a successful probe")
		}
		b.Record(true)
	}
}

func TestCircuitBreaker_HalfOpenFailureReopens(t *testing.T) {
	b := NewCircuitBreaker("test", 2, 50, 5*time.Millisecond)
	b.Record(false)
	b.Record(false)
	time.Sleep(10 * time.Millisecond)

	if !b.Allow() {
		t.Fatal("expected a half-open probe to be allowed")
	}
	b.Record(false)

	if b.Allow() {
		t.Fatal("expected breaker to reopen immediately after a failed probe")
	}
}

func TestCircuitBreaker_Name(t *testing.T) {
	b := NewCircuitBreaker("customer", 10, 50, time.Minute)
	if b.Name() != "customer" {
		t.Fatalf("unexpected name: %s", b.Name())
	}
}

func TestNewCircuitBreaker_DefaultsWindowSize(t *testing.T) {
	b := NewCircuitBreaker("test", 0, 50, time.Minute)
	if b.windowSize != 10 {
		t.Fatalf("expected default window size 10, got %d", b.windowSize)
	}
}
