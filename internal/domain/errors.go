package domain

import "errors"

var (
	// ErrTransient classifies a failure as retryable.
	ErrTransient = errors.New("transient error")
	// ErrPermanent classifies a failure as non-retryable.
	ErrPermanent = errors.New("permanent error")
	// ErrNotFound is returned by reference clients and the order store for a missing record.
	ErrNotFound = errors.New("not found")

	// ErrOrderIDRequired is returned when an intent carries no orderId.
	ErrOrderIDRequired = errors.New("orderId is required")
	// ErrCustomerIDRequired is returned when an intent carries no customerId.
	ErrCustomerIDRequired = errors.New("customerId is required")
	// ErrProductIDsRequired is returned when an intent carries no productIds.
	ErrProductIDsRequired = errors.New("productIds must be non-empty")

	// ErrLockContended is returned when another worker already holds the order lease.
	ErrLockContended = errors.New("order lock contended")
	// ErrAlreadyProcessed is returned when the order already exists in the store.
	ErrAlreadyProcessed = errors.New("order already processed")
	// ErrStoreConflict is returned by the order store on a unique-index violation.
	ErrStoreConflict = errors.New("order store conflict")

	// ErrCustomerInactive is a validation failure: customer is not active.
	ErrCustomerInactive = errors.New("customer is not active")
	// ErrProductInactive is a validation failure: a product is not active.
	ErrProductInactive = errors.New("product is not active")
	// ErrInsufficientCredit is a validation failure: order total exceeds available credit.
	ErrInsufficientCredit = errors.New("insufficient credit")

	// ErrEnrichmentEmpty guards against an intent whose product list enriched to nothing.
	ErrEnrichmentEmpty = errors.New("enrichment produced no product lines")
	// ErrEnrichmentTransient wraps retry-exhausted transient enrichment failures.
	ErrEnrichmentTransient = errors.New("enrichment failed transiently")
	// ErrEnrichmentPermanent wraps non-retryable enrichment failures (not found, rejected).
	ErrEnrichmentPermanent = errors.New("enrichment failed permanently")

	errUpdatedBeforeCreated = errors.New("updatedAt is before createdAt")
	errTotalAmountMismatch  = errors.New("totalAmount does not match sum of product prices")
)

// IsTransient reports whether err is (or wraps) ErrTransient.
func IsTransient(err error) bool {
	return errors.Is(err, ErrTransient)
}

// IsPermanent reports whether err is (or wraps) ErrPermanent or ErrNotFound.
func IsPermanent(err error) bool {
	return errors.Is(err, ErrPermanent) || errors.Is(err, ErrNotFound)
}
