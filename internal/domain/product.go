package domain

import (
	"time"

	"github.com/shopspring/decimal"
)

// Product is the reference-service snapshot of a sellable item.
type Product struct {
	ID          string          `json:"id"`
	Name        string          `json:"name"`
	Description string          `json:"description"`
	Price       decimal.Decimal `json:"price"`
	Active      bool            `json:"active"`
	CreatedAt   time.Time       `json:"createdAt"`
	UpdatedAt   time.Time       `json:"updatedAt"`
}

// OrderLine is the immutable snapshot of a Product embedded in a persisted Order.
type OrderLine struct {
	ProductID   string          `json:"productId" bson:"productId"`
	Name        string          `json:"name" bson:"name"`
	Description string          `json:"description" bson:"description"`
	Price       decimal.Decimal `json:"price" bson:"price"`
	Active      bool            `json:"active" bson:"active"`
}

// LineFromProduct snapshots a Product as an OrderLine.
func LineFromProduct(p Product) OrderLine {
	return OrderLine{
		ProductID:   p.ID,
		Name:        p.Name,
		Description: p.Description,
		Price:       p.Price,
		Active:      p.Active,
	}
}
