package pricing_test

import (
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/storefront-labs/commerce-core/internal/models"
	"github.com/storefront-labs/commerce-core/internal/pricing"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func item(price float64, qty int) models.CartItem {
	return models.CartItem{
		ID:        uuid.New(),
		ProductID: uuid.New(),
		Quantity:  qty,
		Price:     price,
	}
}

func TestComputeTotals(t *testing.T) {
	t.Run("Sums Snapshot Prices", func(t *testing.T) {
		items := []models.CartItem{item(50.00, 3), item(20.00, 1)}

		total, discounted := pricing.ComputeTotals(items, nil)

		assert.InDelta(t, 170.00, total, 1e-9)
		assert.Nil(t, discounted)
	})

	t.Run("Prefers Discounted Item Price", func(t *testing.T) {
		discountPrice := 40.00
		it := item(50.00, 2)
		it.PriceAfterDiscount = &discountPrice

		total, _ := pricing.ComputeTotals([]models.CartItem{it}, nil)

		assert.InDelta(t, 80.00, total, 1e-9)
	})

	t.Run("Coupon Round Trip", func(t *testing.T) {
		items := []models.CartItem{item(1000.00, 1)}
		coupon := &models.Coupon{Name: "SAVE10", Discount: 10, ExpiresAt: time.Now().Add(time.Hour)}

		total, discounted := pricing.ComputeTotals(items, coupon)

		assert.InDelta(t, 1000.00, total, 1e-9)
		require.NotNil(t, discounted)
		assert.InDelta(t, 900.00, *discounted, 1e-9)
	})

	t.Run("Discount Rounds To Two Decimals", func(t *testing.T) {
		items := []models.CartItem{item(33.33, 1)}
		coupon := &models.Coupon{Name: "THIRD", Discount: 33.333}

		_, discounted := pricing.ComputeTotals(items, coupon)

		require.NotNil(t, discounted)
		assert.InDelta(t, 22.22, *discounted, 1e-9)
	})

	t.Run("Deterministic", func(t *testing.T) {
		items := []models.CartItem{item(50.00, 3), item(20.00, 1)}
		coupon := &models.Coupon{Name: "SAVE10", Discount: 10}

		total1, disc1 := pricing.ComputeTotals(items, coupon)
		total2, disc2 := pricing.ComputeTotals(items, coupon)

		assert.Equal(t, total1, total2)
		require.NotNil(t, disc1)
		require.NotNil(t, disc2)
		assert.Equal(t, *disc1, *disc2)
	})

	t.Run("Empty Cart", func(t *testing.T) {
		total, discounted := pricing.ComputeTotals(nil, nil)

		assert.Zero(t, total)
		assert.Nil(t, discounted)
	})
}

func TestRound2(t *testing.T) {
	assert.InDelta(t, 153.00, pricing.Round2(153.000000001), 1e-9)
	assert.InDelta(t, 0.01, pricing.Round2(0.005), 1e-9)
	assert.InDelta(t, -2.35, pricing.Round2(-2.345), 1e-9)
}
