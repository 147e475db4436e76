package pipeline

import (
	"context"
	"encoding/json"
	"errors"
	"time"

	log "github.com/sirupsen/logrus"

	"github.com/vladislavdragonenkov/orderworker/internal/domain"
	"github.com/vladislavdragonenkov/orderworker/internal/lock"
)

// Config tunes the pipeline's lock lease and enrichment deadline.
type Config struct {
	LockTTL              time.Duration
	EnrichmentDeadline   time.Duration
	LeaseExtendThreshold time.Duration
}

// DefaultConfig matches the documented defaults: 30s lease, 60s enrichment deadline,
// extend the lease once elapsed enrichment time exceeds half the lease TTL.
func DefaultConfig() Config {
	return Config{
		LockTTL:              30 * time.Second,
		EnrichmentDeadline:   60 * time.Second,
		LeaseExtendThreshold: 15 * time.Second,
	}
}

// Metrics receives per-intent observations from the pipeline. Implementations
// must be safe for concurrent use; a nil Metrics on Pipeline disables
// recording entirely.
type Metrics interface {
	RecordOutcome(outcome domain.Outcome)
	RecordDuration(d time.Duration)
}

// Pipeline is an order pipeline: orchestrates the lock, idempotency
// check, enrichment, validation, and persistence for a single intent,
// across the lock/exists/enrich/validate/save stages.
type Pipeline struct {
	lock      domain.Lock
	store     domain.OrderStore
	enricher  domain.Enricher
	validator domain.Validator
	ledger    domain.FailureLedger
	cfg       Config
	metrics   Metrics
	logger    *log.Entry
}

// New builds the Order Pipeline over its collaborators.
func New(l domain.Lock, s domain.OrderStore, e domain.Enricher, v domain.Validator, ledger domain.FailureLedger, cfg Config) *Pipeline {
	return &Pipeline{
		lock:      l,
		store:     s,
		enricher:  e,
		validator: v,
		ledger:    ledger,
		cfg:       cfg,
		logger:    log.WithField("component", "pipeline"),
	}
}

// SetMetrics attaches a metrics sink. Optional; nil disables recording.
func (p *Pipeline) SetMetrics(m Metrics) { p.metrics = m }

// Process drives intent end-to-end and returns the terminal Outcome. The
// bus record is always acknowledged by the caller after Process returns;
// only the ledger routing differs by Outcome.
func (p *Pipeline) Process(ctx context.Context, intent domain.OrderIntent) (outcome domain.Outcome, err error) {
	logger := p.logger.WithField("order_id", intent.OrderID)
	start := time.Now()
	defer func() {
		if p.metrics != nil && err == nil {
			p.metrics.RecordOutcome(outcome)
			p.metrics.RecordDuration(time.Since(start))
		}
	}()

	name := lock.Name(intent.OrderID)
	token, acquired, lockErr := p.lock.Acquire(ctx, name, p.cfg.LockTTL)
	if lockErr != nil {
		p.recordFailure(ctx, intent, domain.OutcomeStoreTransient, lockErr)
		return domain.OutcomeStoreTransient, nil
	}
	if !acquired {
		logger.Debug("order lock contended, skipping")
		return domain.OutcomeSkippedLocked, nil
	}
	defer func() {
		if err := p.lock.Release(ctx, name, token); err != nil {
			logger.WithError(err).Warn("failed to release order lock")
		}
	}()

	exists, existsErr := p.store.ExistsByOrderID(ctx, intent.OrderID)
	if existsErr != nil {
		p.recordFailure(ctx, intent, domain.OutcomeStoreTransient, existsErr)
		return domain.OutcomeStoreTransient, nil
	}
	if exists {
		logger.Debug("order already persisted, skipping")
		return domain.OutcomeSkippedExisting, nil
	}

	enrichCtx, cancel := context.WithTimeout(ctx, p.cfg.EnrichmentDeadline)
	enrichStarted := time.Now()
	customer, lines, enrichErr := p.enricher.Enrich(enrichCtx, intent.CustomerID, intent.ProductIDs)
	cancel()
	if enrichErr != nil {
		failedOutcome := domain.OutcomeEnrichmentFailed
		if errors.Is(enrichErr, domain.ErrEnrichmentPermanent) {
			failedOutcome = domain.OutcomeEnrichmentDenied
		}
		p.recordFailure(ctx, intent, failedOutcome, enrichErr)
		return failedOutcome, nil
	}

	if time.Since(enrichStarted) > p.cfg.LeaseExtendThreshold {
		if extended, extendErr := p.lock.Extend(ctx, name, token, p.cfg.LockTTL); extendErr != nil {
			logger.WithError(extendErr).Warn("failed to extend order lock after long enrichment")
		} else if !extended {
			logger.Warn("order lock was lost before it could be extended")
		}
	}

	if len(lines) == 0 {
		p.recordFailure(ctx, intent, domain.OutcomeDroppedValidation, domain.ErrEnrichmentEmpty)
		return domain.OutcomeDroppedValidation, nil
	}

	if validateErr := p.validator.Validate(customer, lines); validateErr != nil {
		logger.WithError(validateErr).Info("order rejected by business validation")
		p.recordFailure(ctx, intent, domain.OutcomeDroppedValidation, validateErr)
		return domain.OutcomeDroppedValidation, nil
	}

	order := domain.NewCompletedOrder(intent.OrderID, domain.SnapshotFromCustomer(customer), lines, time.Now())
	if saveErr := p.store.Save(ctx, order); saveErr != nil {
		if errors.Is(saveErr, domain.ErrStoreConflict) {
			logger.Debug("order conflicted on save, treating as already processed")
			return domain.OutcomeSkippedExisting, nil
		}
		p.recordFailure(ctx, intent, domain.OutcomeStoreTransient, saveErr)
		return domain.OutcomeStoreTransient, nil
	}

	logger.Info("order persisted")
	return domain.OutcomePersisted, nil
}

// recordFailure writes a terminal, ledger-requiring outcome to the Failure
// Ledger, logging (never propagating) any ledger write failure itself.
func (p *Pipeline) recordFailure(ctx context.Context, intent domain.OrderIntent, outcome domain.Outcome, cause error) {
	raw, err := json.Marshal(intent)
	if err != nil {
		raw = []byte(intent.OrderID)
	}
	recordOutcome, err := p.ledger.Record(ctx, intent.OrderID, raw, cause, outcome.Permanent())
	if err != nil {
		p.logger.WithError(err).WithField("order_id", intent.OrderID).Error("failed to record failure in ledger")
		return
	}
	p.logger.WithField("order_id", intent.OrderID).
		WithField("outcome", outcome).
		WithField("ledger_outcome", recordOutcome).
		WithError(cause).
		Warn("order processing failed")
}

var _ domain.Pipeline = (*Pipeline)(nil)
