package domain

import (
	"time"

	"github.com/shopspring/decimal"
)

// OrderStatus describes the lifecycle of a persisted order.
type OrderStatus string

const (
	OrderStatusPending    OrderStatus = "pending"
	OrderStatusProcessing OrderStatus = "processing"
	OrderStatusCompleted  OrderStatus = "completed"
	OrderStatusFailed     OrderStatus = "failed"
)

// Order is the fully-denormalized document persisted by the pipeline.
type Order struct {
	OrderID         string            `json:"orderId" bson:"orderId"`
	CustomerID      string            `json:"customerId" bson:"customerId"`
	Products        []OrderLine       `json:"products" bson:"products"`
	TotalAmount     decimal.Decimal   `json:"totalAmount" bson:"totalAmount"`
	Status          OrderStatus       `json:"status" bson:"status"`
	CreatedAt       time.Time         `json:"createdAt" bson:"createdAt"`
	UpdatedAt       time.Time         `json:"updatedAt" bson:"updatedAt"`
	CustomerDetails CustomerSnapshot  `json:"customerDetails" bson:"customerDetails"`
}

// ValidateInvariants checks the structural invariants of a completed order.
// It mirrors a standard Order.ValidateInvariants convention.
func (o Order) ValidateInvariants() []error {
	var errs []error

	if o.OrderID == "" {
		errs = append(errs, ErrOrderIDRequired)
	}
	if o.Status == OrderStatusCompleted && len(o.Products) == 0 {
		errs = append(errs, ErrEnrichmentEmpty)
	}
	if o.UpdatedAt.Before(o.CreatedAt) {
		errs = append(errs, errUpdatedBeforeCreated)
	}

	sum := decimal.Zero
	for _, line := range o.Products {
		sum = sum.Add(line.Price)
	}
	if !sum.Equal(o.TotalAmount) {
		errs = append(errs, errTotalAmountMismatch)
	}

	return errs
}

// NewCompletedOrder builds the single write the pipeline ever performs: a
// terminal, completed order document. The source elides pending/processing
// persistence entirely.
func NewCompletedOrder(orderID string, customer CustomerSnapshot, lines []OrderLine, now time.Time) Order {
	total := decimal.Zero
	for _, line := range lines {
		total = total.Add(line.Price)
	}
	return Order{
		OrderID:         orderID,
		CustomerID:      customer.CustomerID,
		Products:        lines,
		TotalAmount:     total,
		Status:          OrderStatusCompleted,
		CreatedAt:       now,
		UpdatedAt:       now,
		CustomerDetails: customer,
	}
}
