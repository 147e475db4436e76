package domain

import (
	"time"

	"github.com/shopspring/decimal"
)

// CustomerStatus mirrors the reference service's status enum.
type CustomerStatus string

const (
	CustomerStatusActive    CustomerStatus = "active"
	CustomerStatusInactive  CustomerStatus = "inactive"
	CustomerStatusSuspended CustomerStatus = "suspended"
	CustomerStatusBlocked   CustomerStatus = "blocked"
)

// Customer is the reference-service snapshot of an account.
type Customer struct {
	ID             string          `json:"id"`
	Name           string          `json:"name"`
	Email          string          `json:"email"`
	Status         CustomerStatus  `json:"status"`
	CreditLimit    decimal.Decimal `json:"creditLimit"`
	CurrentBalance decimal.Decimal `json:"currentBalance"`
	CreatedAt      time.Time       `json:"createdAt"`
	UpdatedAt      time.Time       `json:"updatedAt"`
}

// Available returns creditLimit - currentBalance. The worker does not enforce
// that this is non-negative; it only relies on it for the credit check.
func (c Customer) Available() decimal.Decimal {
	return c.CreditLimit.Sub(c.CurrentBalance)
}

// CustomerSnapshot is embedded in a persisted Order; it mirrors Customer minus
// derived fields (CreatedAt/UpdatedAt are reference-service bookkeeping, not
// order-relevant).
type CustomerSnapshot struct {
	CustomerID     string          `json:"customerId" bson:"customerId"`
	Name           string          `json:"name" bson:"name"`
	Email          string          `json:"email" bson:"email"`
	Status         CustomerStatus  `json:"status" bson:"status"`
	CreditLimit    decimal.Decimal `json:"creditLimit" bson:"creditLimit"`
	CurrentBalance decimal.Decimal `json:"currentBalance" bson:"currentBalance"`
}

// SnapshotFromCustomer builds the embedded snapshot from a reference Customer.
func SnapshotFromCustomer(c Customer) CustomerSnapshot {
	return CustomerSnapshot{
		CustomerID:     c.ID,
		Name:           c.Name,
		Email:          c.Email,
		Status:         c.Status,
		CreditLimit:    c.CreditLimit,
		CurrentBalance: c.CurrentBalance,
	}
}
