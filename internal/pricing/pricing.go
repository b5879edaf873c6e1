// Package pricing computes cart totals. It is pure: no I/O, no clock, no
// catalog lookups. Item prices are the snapshots stored on the cart.
package pricing

import (
	"math"

	"github.com/storefront-labs/commerce-core/internal/models"
)

// Round2 rounds to two decimal places, the precision money totals are
// stored and compared at.
func Round2(v float64) float64 {
	return math.Round(v*100) / 100
}

// ComputeTotals returns the cart total and, when a coupon is supplied, the
// percentage-discounted total rounded to two decimals. A nil coupon yields a
// nil discounted total, which callers persist as "no discount applied".
func ComputeTotals(items []models.CartItem, coupon *models.Coupon) (float64, *float64) {
	var total float64

	for _, item := range items {
		total += item.UnitPrice() * float64(item.Quantity)
	}

	if coupon == nil {
		return total, nil
	}

	discounted := Round2(total - total*coupon.Discount/100)

	return total, &discounted
}
