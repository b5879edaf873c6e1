package handlers_test

import (
	"bytes"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"

	"github.com/storefront-labs/commerce-core/internal/api/handlers"
	appErrors "github.com/storefront-labs/commerce-core/internal/errors"
	"github.com/storefront-labs/commerce-core/internal/models"
	"github.com/storefront-labs/commerce-core/internal/services/mocks"
	"github.com/storefront-labs/commerce-core/internal/testutils"
)

func TestCreateCouponHandler(t *testing.T) {
	adminID := uuid.New()

	t.Run("Success", func(t *testing.T) {
		// Arrange
		mockCouponService := new(mocks.CouponService)
		couponHandler := handlers.NewCouponHandler(mockCouponService)
		coupon := &models.Coupon{
			ID:        uuid.New(),
			Name:      "SUMMER10",
			Discount:  10,
			ExpiresAt: time.Now().Add(48 * time.Hour),
		}
		mockCouponService.On("CreateCoupon", mock.Anything, mock.AnythingOfType("*models.CreateCouponRequest")).
			Return(coupon, nil).Once()

		body, _ := json.Marshal(models.CreateCouponRequest{
			Name:      "SUMMER10",
			Discount:  10,
			ExpiresAt: time.Now().Add(48 * time.Hour),
		})
		req := testutils.CreateTestRequestWithAdminContext(http.MethodPost, "/api/v1/coupons", bytes.NewReader(body), adminID, nil)
		rr := httptest.NewRecorder()

		// Act
		couponHandler.CreateCoupon().ServeHTTP(rr, req)

		// Assert
		assert.Equal(t, http.StatusCreated, rr.Code)
		resp := decodeResponse(t, rr)
		assert.True(t, resp.Success)
		mockCouponService.AssertExpectations(t)
	})

	t.Run("Failure - Discount Above 100 Rejected", func(t *testing.T) {
		// Arrange
		mockCouponService := new(mocks.CouponService)
		couponHandler := handlers.NewCouponHandler(mockCouponService)

		body, _ := json.Marshal(models.CreateCouponRequest{
			Name:      "TOOMUCH",
			Discount:  150,
			ExpiresAt: time.Now().Add(48 * time.Hour),
		})
		req := testutils.CreateTestRequestWithAdminContext(http.MethodPost, "/api/v1/coupons", bytes.NewReader(body), adminID, nil)
		rr := httptest.NewRecorder()

		// Act
		couponHandler.CreateCoupon().ServeHTTP(rr, req)

		// Assert
		assert.Equal(t, http.StatusBadRequest, rr.Code)
		mockCouponService.AssertNotCalled(t, "CreateCoupon", mock.Anything, mock.Anything)
	})
}

func TestUpdateCouponHandler(t *testing.T) {
	adminID := uuid.New()
	couponID := uuid.New()

	t.Run("Success", func(t *testing.T) {
		// Arrange
		mockCouponService := new(mocks.CouponService)
		couponHandler := handlers.NewCouponHandler(mockCouponService)
		coupon := &models.Coupon{ID: couponID, Name: "SUMMER10", Discount: 15}
		mockCouponService.On("UpdateCoupon", mock.Anything, couponID, mock.AnythingOfType("*models.UpdateCouponRequest")).
			Return(coupon, nil).Once()

		newDiscount := 15.0
		body, _ := json.Marshal(models.UpdateCouponRequest{Discount: &newDiscount})
		req := testutils.CreateTestRequestWithAdminContext(http.MethodPut, "/api/v1/coupons/"+couponID.String(),
			bytes.NewReader(body), adminID, map[string]string{"id": couponID.String()})
		rr := httptest.NewRecorder()

		// Act
		couponHandler.UpdateCoupon().ServeHTTP(rr, req)

		// Assert
		assert.Equal(t, http.StatusOK, rr.Code)
		mockCouponService.AssertExpectations(t)
	})

	t.Run("Failure - Not Found", func(t *testing.T) {
		// Arrange
		mockCouponService := new(mocks.CouponService)
		couponHandler := handlers.NewCouponHandler(mockCouponService)
		mockCouponService.On("UpdateCoupon", mock.Anything, couponID, mock.Anything).
			Return(nil, appErrors.NotFoundError("Coupon not found")).Once()

		body, _ := json.Marshal(models.UpdateCouponRequest{})
		req := testutils.CreateTestRequestWithAdminContext(http.MethodPut, "/api/v1/coupons/"+couponID.String(),
			bytes.NewReader(body), adminID, map[string]string{"id": couponID.String()})
		rr := httptest.NewRecorder()

		// Act
		couponHandler.UpdateCoupon().ServeHTTP(rr, req)

		// Assert
		assert.Equal(t, http.StatusNotFound, rr.Code)
	})
}

func TestDeleteCouponHandler(t *testing.T) {
	adminID := uuid.New()
	couponID := uuid.New()

	t.Run("Success", func(t *testing.T) {
		// Arrange
		mockCouponService := new(mocks.CouponService)
		couponHandler := handlers.NewCouponHandler(mockCouponService)
		mockCouponService.On("DeleteCoupon", mock.Anything, couponID).Return(nil).Once()

		req := testutils.CreateTestRequestWithAdminContext(http.MethodDelete, "/api/v1/coupons/"+couponID.String(),
			nil, adminID, map[string]string{"id": couponID.String()})
		rr := httptest.NewRecorder()

		// Act
		couponHandler.DeleteCoupon().ServeHTTP(rr, req)

		// Assert
		assert.Equal(t, http.StatusNoContent, rr.Code)
		mockCouponService.AssertExpectations(t)
	})
}

func TestListCouponsHandler(t *testing.T) {
	adminID := uuid.New()

	t.Run("Success", func(t *testing.T) {
		// Arrange
		mockCouponService := new(mocks.CouponService)
		couponHandler := handlers.NewCouponHandler(mockCouponService)
		coupons := []models.Coupon{{ID: uuid.New(), Name: "SUMMER10", Discount: 10}}
		mockCouponService.On("ListCoupons", mock.Anything, 1, 20).Return(coupons, 1, nil).Once()

		req := testutils.CreateTestRequestWithAdminContext(http.MethodGet, "/api/v1/coupons?page=1&pageSize=20", nil, adminID, nil)
		rr := httptest.NewRecorder()

		// Act
		couponHandler.ListCoupons().ServeHTTP(rr, req)

		// Assert
		assert.Equal(t, http.StatusOK, rr.Code)
		resp := decodeResponse(t, rr)
		assert.True(t, resp.Success)
		require.NotNil(t, resp.Data)
		mockCouponService.AssertExpectations(t)
	})
}
