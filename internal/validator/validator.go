package validator

import (
	"fmt"

	"github.com/shopspring/decimal"

	"github.com/vladislavdragonenkov/orderworker/internal/domain"
)

// Validator evaluates the three business rules of C7, in order, stopping at
// the first violation.
type Validator struct{}

// New returns the business-rule Validator. It is stateless.
func New() *Validator {
	return &Validator{}
}

// Validate runs the rules in order: customer active, all products active,
// sufficient credit.
func (v *Validator) Validate(customer domain.Customer, lines []domain.OrderLine) error {
	if customer.Status != domain.CustomerStatusActive {
		return fmt.Errorf("customer %s has status %s: %w", customer.ID, customer.Status, domain.ErrCustomerInactive)
	}

	for _, line := range lines {
		if !line.Active {
			return fmt.Errorf("product %s is inactive: %w", line.ProductID, domain.ErrProductInactive)
		}
	}

	total := decimal.Zero
	for _, line := range lines {
		total = total.Add(line.Price)
	}
	if total.GreaterThan(customer.Available()) {
		return fmt.Errorf("order total %s exceeds available credit %s: %w",
			total, customer.Available(), domain.ErrInsufficientCredit)
	}

	return nil
}

var _ domain.Validator = (*Validator)(nil)
