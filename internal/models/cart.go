package models

import (
	"time"

	"github.com/google/uuid"
)

// CartItem is a snapshot line item. Price fields are copied from the catalog
// at the moment the item is added and never re-fetched; orders created later
// must see the price the customer saw.
type CartItem struct {
	ID                 uuid.UUID `json:"id"`
	ProductID          uuid.UUID `json:"product_id"`
	Color              string    `json:"color,omitempty"`
	Quantity           int       `json:"quantity"`
	Price              float64   `json:"price"`
	PriceAfterDiscount *float64  `json:"price_after_discount,omitempty"`
}

// UnitPrice is the price a single unit contributes to the cart total.
func (i CartItem) UnitPrice() float64 {
	if i.PriceAfterDiscount != nil {
		return *i.PriceAfterDiscount
	}

	return i.Price
}

type Cart struct {
	ID              uuid.UUID  `json:"id"`
	UserID          uuid.UUID  `json:"user_id"`
	Items           []CartItem `json:"items"`
	TotalPrice      float64    `json:"total_price"`
	DiscountedTotal *float64   `json:"discounted_total,omitempty"`
	CreatedAt       time.Time  `json:"created_at"`
	UpdatedAt       time.Time  `json:"updated_at"`
}

// FindItem returns the index of the item with the given id, or -1.
func (c *Cart) FindItem(itemID uuid.UUID) int {
	for i, item := range c.Items {
		if item.ID == itemID {
			return i
		}
	}

	return -1
}

// FindLine returns the index of the item matching (productID, color), or -1.
// The pair is the merge identity: adding the same pair twice bumps the
// quantity instead of appending a second row.
func (c *Cart) FindLine(productID uuid.UUID, color string) int {
	for i, item := range c.Items {
		if item.ProductID == productID && item.Color == color {
			return i
		}
	}

	return -1
}

type AddItemRequest struct {
	ProductID uuid.UUID `json:"product_id" validate:"required"`
	Color     string    `json:"color"`
}

type UpdateQuantityRequest struct {
	Quantity int `json:"quantity" validate:"required,min=1"`
}

type ApplyCouponRequest struct {
	Coupon string `json:"coupon" validate:"required"`
}

type CartResponse struct {
	NumOfCartItems int   `json:"num_of_cart_items"`
	Cart           *Cart `json:"cart"`
}
