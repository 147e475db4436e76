package validator_test

import (
	"errors"
	"testing"

	"github.com/shopspring/decimal"

	"github.com/vladislavdragonenkov/orderworker/internal/domain"
	"github.com/vladislavdragonenkov/orderworker/internal/validator"
)

func activeCustomer(creditLimit, currentBalance int64) domain.Customer {
	return domain.Customer{
		ID:             "cust-1",
		Status:         domain.CustomerStatusActive,
		CreditLimit:    decimal.NewFromInt(creditLimit),
		CurrentBalance: decimal.NewFromInt(currentBalance),
	}
}

func TestValidate_RejectsInactiveCustomerBeforeCheckingProducts(t *testing.T) {
	v := validator.New()
	customer := activeCustomer(1000, 0)
	customer.Status = domain.CustomerStatusSuspended

	lines := []domain.OrderLine{{ProductID: "p1", Active: false, Price: decimal.NewFromInt(5000)}}

	err := v.Validate(customer, lines)
	if !errors.Is(err, domain.ErrCustomerInactive) {
		t.Fatalf("expected ErrCustomerInactive, got %v", err)
	}
}

func TestValidate_RejectsInactiveProduct(t *testing.T) {
	v := validator.New()
	customer := activeCustomer(1000, 0)
	lines := []domain.OrderLine{
		{ProductID: "p1", Active: true, Price: decimal.NewFromInt(10)},
		{ProductID: "p2", Active: false, Price: decimal.NewFromInt(10)},
	}

	err := v.Validate(customer, lines)
	if !errors.Is(err, domain.ErrProductInactive) {
		t.Fatalf("expected ErrProductInactive, got %v", err)
	}
}

func TestValidate_RejectsInsufficientCredit(t *testing.T) {
	v := validator.New()
	customer := activeCustomer(100, 50)
	lines := []domain.OrderLine{{ProductID: "p1", Active: true, Price: decimal.NewFromInt(75)}}

	err := v.Validate(customer, lines)
	if !errors.Is(err, domain.ErrInsufficientCredit) {
		t.Fatalf("expected ErrInsufficientCredit, got %v", err)
	}
}

func TestValidate_AcceptsWithinAvailableCredit(t *testing.T) {
	v := validator.New()
	customer := activeCustomer(100, 50)
	lines := []domain.OrderLine{{ProductID: "p1", Active: true, Price: decimal.NewFromInt(50)}}

	if err := v.Validate(customer, lines); err != nil {
		t.Fatalf("expected order within available credit to pass, got %v", err)
	}
}
