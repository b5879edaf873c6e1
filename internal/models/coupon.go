package models

import (
	"time"

	"github.com/google/uuid"
)

// Coupon is a named percentage discount. Names are stored uppercase and
// matched exactly; a coupon is usable only while ExpiresAt is in the future.
type Coupon struct {
	ID        uuid.UUID `json:"id"`
	Name      string    `json:"name"`
	Discount  float64   `json:"discount"`
	ExpiresAt time.Time `json:"expires_at"`
	CreatedAt time.Time `json:"created_at"`
	UpdatedAt time.Time `json:"updated_at"`
}

type CreateCouponRequest struct {
	Name      string    `json:"name" validate:"required,uppercase"`
	Discount  float64   `json:"discount" validate:"required,gt=0,lte=100"`
	ExpiresAt time.Time `json:"expires_at" validate:"required"`
}

type UpdateCouponRequest struct {
	Name      *string    `json:"name,omitempty" validate:"omitempty,uppercase"`
	Discount  *float64   `json:"discount,omitempty" validate:"omitempty,gt=0,lte=100"`
	ExpiresAt *time.Time `json:"expires_at,omitempty"`
}
