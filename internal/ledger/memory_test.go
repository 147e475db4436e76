package ledger_test

import (
	"context"
	"errors"
	"testing"

	"github.com/vladislavdragonenkov/orderworker/internal/domain"
	"github.com/vladislavdragonenkov/orderworker/internal/ledger"
)

func TestInMemoryLedger_RecordsUntilMaxRetriesThenDeadLetters(t *testing.T) {
	l := ledger.NewInMemoryLedger(ledger.Config{MaxRetries: 2})
	ctx := context.Background()
	cause := errors.New("reference service unavailable")

	outcome, err := l.Record(ctx, "order-001", []byte(`{"orderId":"order-001"}`), cause, false)
	if err != nil || outcome != domain.RecordOutcomeRetryRecorded {
		t.Fatalf("expected first record to be retry_recorded, got %v err=%v", outcome, err)
	}

	outcome, err = l.Record(ctx, "order-001", []byte(`{"orderId":"order-001"}`), cause, false)
	if err != nil || outcome != domain.RecordOutcomeRetryRecorded {
		t.Fatalf("expected second record to be retry_recorded, got %v err=%v", outcome, err)
	}

	outcome, err = l.Record(ctx, "order-001", []byte(`{"orderId":"order-001"}`), cause, false)
	if err != nil || outcome != domain.RecordOutcomeDeadLettered {
		t.Fatalf("expected third record to exceed max retries and dead-letter, got %v err=%v", outcome, err)
	}

	record, ok, err := l.Get(ctx, "order-001")
	if err != nil || !ok {
		t.Fatalf("expected a stored record, ok=%v err=%v", ok, err)
	}
	if !record.DeadLetter {
		t.Fatalf("expected stored record to be marked dead letter")
	}
}

func TestInMemoryLedger_PermanentFailureSkipsRetryCounter(t *testing.T) {
	l := ledger.NewInMemoryLedger(ledger.Config{MaxRetries: 5})
	ctx := context.Background()
	cause := errors.New("customer is inactive")

	outcome, err := l.Record(ctx, "order-002", []byte(`{"orderId":"order-002"}`), cause, true)
	if err != nil || outcome != domain.RecordOutcomeDeadLettered {
		t.Fatalf("expected permanent failure to dead-letter immediately, got %v err=%v", outcome, err)
	}

	record, ok, err := l.Get(ctx, "order-002")
	if err != nil || !ok {
		t.Fatalf("expected a stored record, ok=%v err=%v", ok, err)
	}
	if record.RetryCount != 0 {
		t.Fatalf("expected retry count to remain 0 for a permanent failure, got %d", record.RetryCount)
	}
}

func TestInMemoryLedger_GetMissingKeyReturnsFalse(t *testing.T) {
	l := ledger.NewInMemoryLedger(ledger.DefaultConfig())
	ctx := context.Background()

	_, ok, err := l.Get(ctx, "order-missing")
	if err != nil || ok {
		t.Fatalf("expected no record, ok=%v err=%v", ok, err)
	}
}
