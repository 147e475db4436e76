package ledger

import (
	"context"
	"sync"
	"time"

	"github.com/vladislavdragonenkov/orderworker/internal/domain"
)

// InMemoryLedger is a sync.Mutex-guarded map implementation of
// domain.FailureLedger for local development and tests.
type InMemoryLedger struct {
	mu          sync.Mutex
	cfg         Config
	retryCounts map[string]int
	records     map[string]domain.FailureRecord
}

// NewInMemoryLedger returns an in-memory domain.FailureLedger.
func NewInMemoryLedger(cfg Config) *InMemoryLedger {
	return &InMemoryLedger{
		cfg:         cfg,
		retryCounts: make(map[string]int),
		records:     make(map[string]domain.FailureRecord),
	}
}

func (l *InMemoryLedger) Record(_ context.Context, key string, message []byte, cause error, permanent bool) (domain.RecordOutcome, error) {
	l.mu.Lock()
	defer l.mu.Unlock()

	retryCount := l.retryCounts[key]

	if permanent || retryCount >= l.cfg.MaxRetries {
		l.records[key] = domain.FailureRecord{
			Key:        key,
			Message:    message,
			Error:      cause.Error(),
			MaxRetries: l.cfg.MaxRetries,
			Timestamp:  time.Now(),
			DeadLetter: true,
		}
		return domain.RecordOutcomeDeadLettered, nil
	}

	l.retryCounts[key] = retryCount + 1
	l.records[key] = domain.FailureRecord{
		Key:        key,
		Message:    message,
		Error:      cause.Error(),
		RetryCount: retryCount + 1,
		MaxRetries: l.cfg.MaxRetries,
		Timestamp:  time.Now(),
	}
	return domain.RecordOutcomeRetryRecorded, nil
}

func (l *InMemoryLedger) Get(_ context.Context, key string) (domain.FailureRecord, bool, error) {
	l.mu.Lock()
	defer l.mu.Unlock()

	record, ok := l.records[key]
	return record, ok, nil
}

var _ domain.FailureLedger = (*InMemoryLedger)(nil)
