package domain

import (
	"context"
	"time"
)

// ProductClient fetches a single product snapshot by id.
type ProductClient interface {
	Fetch(ctx context.Context, id string) (Product, error)
}

// CustomerClient fetches a single customer snapshot by id.
type CustomerClient interface {
	Fetch(ctx context.Context, id string) (Customer, error)
}

// Cache is the read-through JSON key/value store backing enrichment.
type Cache interface {
	Get(ctx context.Context, key string, out interface{}) (bool, error)
	Set(ctx context.Context, key string, value interface{}, ttl time.Duration)
	Delete(ctx context.Context, key string) error
	Exists(ctx context.Context, key string) (bool, error)
	Expire(ctx context.Context, key string, ttl time.Duration) error
}

// Lock is the distributed mutual-exclusion lease over an orderId.
type Lock interface {
	Acquire(ctx context.Context, name string, ttl time.Duration) (token string, ok bool, err error)
	Release(ctx context.Context, name, token string) error
	Extend(ctx context.Context, name, token string, ttl time.Duration) (bool, error)
	IsHeld(ctx context.Context, name string) (bool, error)
	TTL(ctx context.Context, name string) (time.Duration, error)
}

// OrderStore persists completed orders with orderId uniqueness.
type OrderStore interface {
	Save(ctx context.Context, order Order) error
	FindByOrderID(ctx context.Context, orderID string) (Order, error)
	ExistsByOrderID(ctx context.Context, orderID string) (bool, error)
}

// FailureLedger records failed intents and escalates to dead-letter.
type FailureLedger interface {
	Record(ctx context.Context, key string, message []byte, cause error, permanent bool) (RecordOutcome, error)
	Get(ctx context.Context, key string) (FailureRecord, bool, error)
}

// Enricher resolves a customer and a product fan-out into order lines.
type Enricher interface {
	Enrich(ctx context.Context, customerID string, productIDs []string) (Customer, []OrderLine, error)
}

// Validator evaluates business rules against an enriched customer + lines.
type Validator interface {
	Validate(customer Customer, lines []OrderLine) error
}

// Pipeline drives one OrderIntent end-to-end.
type Pipeline interface {
	Process(ctx context.Context, intent OrderIntent) (Outcome, error)
}
