package service

import (
	"context"
	"database/sql"
	"errors"
	"log/slog"
	"time"

	"github.com/google/uuid"

	"github.com/storefront-labs/commerce-core/internal/cache"
	appErrors "github.com/storefront-labs/commerce-core/internal/errors"
	"github.com/storefront-labs/commerce-core/internal/models"
	"github.com/storefront-labs/commerce-core/internal/pricing"
	repository "github.com/storefront-labs/commerce-core/internal/repositories"
)

// CouponResolver is the slice of the coupon service the cart needs.
type CouponResolver interface {
	Resolve(ctx context.Context, code string) (*models.Coupon, error)
}

type CartService interface {
	GetCart(ctx context.Context, userID uuid.UUID) (*models.Cart, error)
	AddItem(ctx context.Context, userID uuid.UUID, req *models.AddItemRequest) (*models.Cart, error)
	RemoveItem(ctx context.Context, userID, itemID uuid.UUID) (*models.Cart, error)
	SetItemQuantity(ctx context.Context, userID, itemID uuid.UUID, quantity int) (*models.Cart, error)
	Clear(ctx context.Context, userID uuid.UUID) error
	ApplyCoupon(ctx context.Context, userID uuid.UUID, code string) (*models.Cart, error)
}

type cartService struct {
	cartRepo    repository.CartRepository
	productRepo repository.ProductRepository
	coupons     CouponResolver
	cache       cache.Cache
}

func NewCartService(cartRepo repository.CartRepository, productRepo repository.ProductRepository, coupons CouponResolver, productCache cache.Cache) CartService {
	return &cartService{cartRepo: cartRepo, productRepo: productRepo, coupons: coupons, cache: productCache}
}

func (s *cartService) GetCart(ctx context.Context, userID uuid.UUID) (*models.Cart, error) {

	cart, err := s.cartRepo.GetCartByUserID(ctx, userID)
	if err != nil {
		return nil, appErrors.NotFoundError("Cart not found").WithError(err)
	}

	return cart, nil
}

// AddItem snapshots the current catalog price onto the cart. The same
// (product, color) pair merges into the existing line instead of appending a
// second row.
func (s *cartService) AddItem(ctx context.Context, userID uuid.UUID, req *models.AddItemRequest) (*models.Cart, error) {

	product, err := s.getProduct(ctx, req.ProductID)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, appErrors.NotFoundError("Product not found").WithError(err)
		}

		return nil, appErrors.DatabaseError("Failed to fetch product").WithError(err)
	}

	cart, err := s.cartRepo.GetCartByUserID(ctx, userID)
	if err != nil {
		if !errors.Is(err, sql.ErrNoRows) {
			return nil, appErrors.DatabaseError("Failed to fetch cart").WithError(err)
		}

		// First item: create the cart.
		cart = &models.Cart{
			ID:     uuid.New(),
			UserID: userID,
			Items: []models.CartItem{{
				ID:        uuid.New(),
				ProductID: req.ProductID,
				Color:     req.Color,
				Quantity:  1,
				Price:     product.Price,
			}},
			CreatedAt: time.Now(),
			UpdatedAt: time.Now(),
		}
		s.recomputeTotals(cart, nil)

		if err := s.cartRepo.CreateCart(ctx, cart); err != nil {
			return nil, appErrors.DatabaseError("Failed to create cart").WithError(err)
		}

		return cart, nil
	}

	if idx := cart.FindLine(req.ProductID, req.Color); idx >= 0 {
		cart.Items[idx].Quantity++
	} else {
		cart.Items = append(cart.Items, models.CartItem{
			ID:        uuid.New(),
			ProductID: req.ProductID,
			Color:     req.Color,
			Quantity:  1,
			Price:     product.Price,
		})
	}

	s.recomputeTotals(cart, nil)

	if err := s.cartRepo.UpdateCart(ctx, cart); err != nil {
		return nil, appErrors.DatabaseError("Failed to update cart").WithError(err)
	}

	return cart, nil
}

func (s *cartService) RemoveItem(ctx context.Context, userID, itemID uuid.UUID) (*models.Cart, error) {

	cart, err := s.cartRepo.GetCartByUserID(ctx, userID)
	if err != nil {
		return nil, appErrors.NotFoundError("Cart not found").WithError(err)
	}

	if idx := cart.FindItem(itemID); idx >= 0 {
		cart.Items = append(cart.Items[:idx], cart.Items[idx+1:]...)
	}

	s.recomputeTotals(cart, nil)

	if err := s.cartRepo.UpdateCart(ctx, cart); err != nil {
		return nil, appErrors.DatabaseError("Failed to update cart").WithError(err)
	}

	return cart, nil
}

func (s *cartService) SetItemQuantity(ctx context.Context, userID, itemID uuid.UUID, quantity int) (*models.Cart, error) {

	cart, err := s.cartRepo.GetCartByUserID(ctx, userID)
	if err != nil {
		return nil, appErrors.NotFoundError("Cart not found").WithError(err)
	}

	idx := cart.FindItem(itemID)
	if idx < 0 {
		return nil, appErrors.NotFoundError("There is no item with that id in the cart")
	}

	cart.Items[idx].Quantity = quantity

	s.recomputeTotals(cart, nil)

	if err := s.cartRepo.UpdateCart(ctx, cart); err != nil {
		return nil, appErrors.DatabaseError("Failed to update cart").WithError(err)
	}

	return cart, nil
}

func (s *cartService) Clear(ctx context.Context, userID uuid.UUID) error {

	if err := s.cartRepo.DeleteCartByUserID(ctx, userID); err != nil {
		return appErrors.DatabaseError("Failed to clear cart").WithError(err)
	}

	return nil
}

func (s *cartService) ApplyCoupon(ctx context.Context, userID uuid.UUID, code string) (*models.Cart, error) {

	coupon, err := s.coupons.Resolve(ctx, code)
	if err != nil {
		return nil, err
	}

	cart, err := s.cartRepo.GetCartByUserID(ctx, userID)
	if err != nil {
		return nil, appErrors.NotFoundError("Cart not found").WithError(err)
	}

	s.recomputeTotals(cart, coupon)

	if err := s.cartRepo.UpdateCart(ctx, cart); err != nil {
		return nil, appErrors.DatabaseError("Failed to update cart").WithError(err)
	}

	return cart, nil
}

// recomputeTotals keeps both totals consistent with the item list. Item
// mutations pass a nil coupon, which clears the discounted total; the coupon
// has to be applied again on the new contents.
func (s *cartService) recomputeTotals(cart *models.Cart, coupon *models.Coupon) {
	cart.TotalPrice, cart.DiscountedTotal = pricing.ComputeTotals(cart.Items, coupon)
	cart.UpdatedAt = time.Now()
}

func (s *cartService) getProduct(ctx context.Context, id uuid.UUID) (*models.Product, error) {

	key := cache.Key(cache.ProductKeyPrefix, id.String())

	var cached models.Product
	if s.cache != nil {
		if hit, err := s.cache.Get(ctx, key, &cached); err == nil && hit {
			return &cached, nil
		}
	}

	product, err := s.productRepo.GetProductByID(ctx, id)
	if err != nil {
		return nil, err
	}

	if s.cache != nil {
		if err := s.cache.Set(ctx, key, product, 0); err != nil {
			slog.Debug("Failed to cache product", slog.String("productId", id.String()), slog.Any("error", err))
		}
	}

	return product, nil
}
