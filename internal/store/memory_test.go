package store_test

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/shopspring/decimal"

	"github.com/vladislavdragonenkov/orderworker/internal/domain"
	"github.com/vladislavdragonenkov/orderworker/internal/store"
)

func sampleOrder(orderID string) domain.Order {
	customer := domain.CustomerSnapshot{
		CustomerID:     "customer-001",
		Name:           "Ada Lovelace",
		Status:         domain.CustomerStatusActive,
		CreditLimit:    decimal.NewFromInt(1000),
		CurrentBalance: decimal.Zero,
	}
	lines := []domain.OrderLine{
		{ProductID: "product-001", Name: "Laptop", Price: decimal.NewFromInt(500), Active: true},
	}
	return domain.NewCompletedOrder(orderID, customer, lines, time.Now())
}

func TestInMemoryStore_SaveAndFind(t *testing.T) {
	s := store.NewInMemoryStore()
	ctx := context.Background()
	order := sampleOrder("order-001")

	if err := s.Save(ctx, order); err != nil {
		t.Fatalf("Save failed: %v", err)
	}

	got, err := s.FindByOrderID(ctx, "order-001")
	if err != nil {
		t.Fatalf("FindByOrderID failed: %v", err)
	}
	if !got.TotalAmount.Equal(decimal.NewFromInt(500)) {
		t.Fatalf("expected total 500, got %s", got.TotalAmount)
	}
}

func TestInMemoryStore_SaveDuplicateConflicts(t *testing.T) {
	s := store.NewInMemoryStore()
	ctx := context.Background()
	order := sampleOrder("order-002")

	if err := s.Save(ctx, order); err != nil {
		t.Fatalf("first Save failed: %v", err)
	}

	err := s.Save(ctx, order)
	if !errors.Is(err, domain.ErrStoreConflict) {
		t.Fatalf("expected ErrStoreConflict, got %v", err)
	}
}

func TestInMemoryStore_FindMissingReturnsNotFound(t *testing.T) {
	s := store.NewInMemoryStore()
	ctx := context.Background()

	_, err := s.FindByOrderID(ctx, "order-missing")
	if !errors.Is(err, domain.ErrNotFound) {
		t.Fatalf("expected ErrNotFound, got %v", err)
	}
}

func TestInMemoryStore_ExistsByOrderID(t *testing.T) {
	s := store.NewInMemoryStore()
	ctx := context.Background()

	exists, err := s.ExistsByOrderID(ctx, "order-003")
	if err != nil || exists {
		t.Fatalf("expected no existing order, err=%v exists=%v", err, exists)
	}

	if err := s.Save(ctx, sampleOrder("order-003")); err != nil {
		t.Fatalf("Save failed: %v", err)
	}

	exists, err = s.ExistsByOrderID(ctx, "order-003")
	if err != nil || !exists {
		t.Fatalf("expected order to exist, err=%v exists=%v", err, exists)
	}
}
