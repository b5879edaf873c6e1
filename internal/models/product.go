package models

import (
	"time"

	"github.com/google/uuid"
)

// Product is the narrow slice of the catalog the transaction pipeline needs:
// a current price for cart snapshots, and the stock/sold counters the
// inventory adjuster mutates. Catalog CRUD lives elsewhere.
type Product struct {
	ID        uuid.UUID `json:"id"`
	Name      string    `json:"name"`
	Price     float64   `json:"price"`
	Stock     int       `json:"stock"`
	Sold      int       `json:"sold"`
	CreatedAt time.Time `json:"created_at"`
	UpdatedAt time.Time `json:"updated_at"`
}

// StockAdjustment is one entry of a batched inventory update: decrement
// stock and increment sold by Quantity on the referenced product.
type StockAdjustment struct {
	ProductID uuid.UUID
	Quantity  int
}
