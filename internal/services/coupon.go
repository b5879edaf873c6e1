package service

import (
	"context"
	"database/sql"
	"errors"
	"strings"
	"time"

	"github.com/google/uuid"

	appErrors "github.com/storefront-labs/commerce-core/internal/errors"
	"github.com/storefront-labs/commerce-core/internal/models"
	repository "github.com/storefront-labs/commerce-core/internal/repositories"
)

type CouponService interface {
	CouponResolver
	CreateCoupon(ctx context.Context, req *models.CreateCouponRequest) (*models.Coupon, error)
	GetCouponByID(ctx context.Context, id uuid.UUID) (*models.Coupon, error)
	UpdateCoupon(ctx context.Context, id uuid.UUID, req *models.UpdateCouponRequest) (*models.Coupon, error)
	DeleteCoupon(ctx context.Context, id uuid.UUID) error
	ListCoupons(ctx context.Context, page, size int) ([]models.Coupon, int, error)
}

type couponService struct {
	repo repository.CouponRepository
}

func normalizePage(page, size int) (int, int) {
	if page < 1 {
		page = 1
	}

	if size < 1 || size > 100 {
		size = 10
	}

	return page, size
}

func NewCouponService(repo repository.CouponRepository) CouponService {
	return &couponService{repo: repo}
}

// Resolve looks the code up by exact name with the expiry check inside the
// query. Unknown and expired collapse into one error on purpose.
func (s *couponService) Resolve(ctx context.Context, code string) (*models.Coupon, error) {

	coupon, err := s.repo.GetActiveCouponByName(ctx, code)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, appErrors.InvalidOrExpiredCouponError().WithError(err)
		}

		return nil, appErrors.DatabaseError("Failed to fetch coupon").WithError(err)
	}

	return coupon, nil
}

func (s *couponService) CreateCoupon(ctx context.Context, req *models.CreateCouponRequest) (*models.Coupon, error) {

	coupon := &models.Coupon{
		ID:        uuid.New(),
		Name:      strings.ToUpper(strings.TrimSpace(req.Name)),
		Discount:  req.Discount,
		ExpiresAt: req.ExpiresAt,
		CreatedAt: time.Now(),
		UpdatedAt: time.Now(),
	}

	if err := s.repo.CreateCoupon(ctx, coupon); err != nil {
		return nil, appErrors.DatabaseError("Failed to create coupon").WithError(err)
	}

	return coupon, nil
}

func (s *couponService) GetCouponByID(ctx context.Context, id uuid.UUID) (*models.Coupon, error) {

	coupon, err := s.repo.GetCouponByID(ctx, id)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, appErrors.NotFoundError("Coupon not found").WithError(err)
		}

		return nil, appErrors.DatabaseError("Failed to fetch coupon").WithError(err)
	}

	return coupon, nil
}

func (s *couponService) UpdateCoupon(ctx context.Context, id uuid.UUID, req *models.UpdateCouponRequest) (*models.Coupon, error) {

	coupon, err := s.repo.GetCouponByID(ctx, id)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, appErrors.NotFoundError("Coupon not found").WithError(err)
		}

		return nil, appErrors.DatabaseError("Failed to fetch coupon").WithError(err)
	}

	if req.Name != nil {
		coupon.Name = strings.ToUpper(strings.TrimSpace(*req.Name))
	}

	if req.Discount != nil {
		coupon.Discount = *req.Discount
	}

	if req.ExpiresAt != nil {
		coupon.ExpiresAt = *req.ExpiresAt
	}

	if err := s.repo.UpdateCoupon(ctx, coupon); err != nil {
		return nil, appErrors.DatabaseError("Failed to update coupon").WithError(err)
	}

	return coupon, nil
}

func (s *couponService) DeleteCoupon(ctx context.Context, id uuid.UUID) error {

	if err := s.repo.DeleteCoupon(ctx, id); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return appErrors.NotFoundError("Coupon not found").WithError(err)
		}

		return appErrors.DatabaseError("Failed to delete coupon").WithError(err)
	}

	return nil
}

func (s *couponService) ListCoupons(ctx context.Context, page, size int) ([]models.Coupon, int, error) {

	page, size = normalizePage(page, size)

	coupons, total, err := s.repo.ListCoupons(ctx, page, size)
	if err != nil {
		return nil, 0, appErrors.DatabaseError("Failed to fetch coupons").WithError(err)
	}

	return coupons, total, nil
}
