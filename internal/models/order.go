package models

import (
	"time"

	"github.com/google/uuid"
)

type PaymentMethod string

const (
	PaymentMethodCash PaymentMethod = "cash"
	PaymentMethodCard PaymentMethod = "card"
)

type Address struct {
	Details    string `json:"details" validate:"required"`
	Phone      string `json:"phone" validate:"required"`
	City       string `json:"city" validate:"required"`
	PostalCode string `json:"postal_code"`
}

// Order is immutable once created, except for the two monotonic status
// transitions (paid, delivered). Items are a snapshot copied from the cart;
// later catalog price changes must not affect historical orders.
type Order struct {
	ID              uuid.UUID     `json:"id"`
	UserID          uuid.UUID     `json:"user_id"`
	Items           []CartItem    `json:"items"`
	ShippingAddress *Address      `json:"shipping_address,omitempty"`
	TotalPrice      float64       `json:"total_price"`
	PaymentMethod   PaymentMethod `json:"payment_method"`
	IsPaid          bool          `json:"is_paid"`
	PaidAt          *time.Time    `json:"paid_at,omitempty"`
	IsDelivered     bool          `json:"is_delivered"`
	DeliveredAt     *time.Time    `json:"delivered_at,omitempty"`
	CreatedAt       time.Time     `json:"created_at"`
}

type CreateCashOrderRequest struct {
	ShippingAddress Address `json:"shipping_address" validate:"required"`
}

// CheckoutSession is the ephemeral slice of a provider checkout session the
// pipeline cares about. CartID travels through the provider as the client
// reference id so the webhook can recover the originating cart.
type CheckoutSession struct {
	ID            string  `json:"id"`
	URL           string  `json:"url"`
	CartID        string  `json:"cart_id"`
	CustomerEmail string  `json:"customer_email"`
	AmountTotal   float64 `json:"amount_total"`
}
