package service

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"log/slog"
	"math"
	"time"

	"github.com/google/uuid"

	"github.com/storefront-labs/commerce-core/internal/config"
	appErrors "github.com/storefront-labs/commerce-core/internal/errors"
	"github.com/storefront-labs/commerce-core/internal/metrics"
	"github.com/storefront-labs/commerce-core/internal/models"
	"github.com/storefront-labs/commerce-core/internal/pricing"
	repository "github.com/storefront-labs/commerce-core/internal/repositories"
	"github.com/storefront-labs/commerce-core/pkg/sendgrid"
	"github.com/storefront-labs/commerce-core/pkg/stripe"
)

const checkoutSessionCompleted = "checkout.session.completed"

type OrderService interface {
	CreateCashOrder(ctx context.Context, userID uuid.UUID, email string, cartID uuid.UUID, req *models.CreateCashOrderRequest) (*models.Order, error)
	CreateCheckoutSession(ctx context.Context, userID uuid.UUID, email string, cartID uuid.UUID) (*models.CheckoutSession, error)
	ProcessWebhook(ctx context.Context, payload []byte, signature string) (stripe.Event, error)
	GetOrderByID(ctx context.Context, id uuid.UUID) (*models.Order, error)
	ListOrdersByUser(ctx context.Context, userID uuid.UUID, page, size int) ([]models.Order, int, error)
	ListAllOrders(ctx context.Context, page, size int) ([]models.Order, int, error)
	MarkPaid(ctx context.Context, id uuid.UUID) (*models.Order, error)
	MarkDelivered(ctx context.Context, id uuid.UUID) (*models.Order, error)
}

type orderService struct {
	orderRepo    repository.OrderRepository
	cartRepo     repository.CartRepository
	productRepo  repository.ProductRepository
	userRepo     repository.UserRepository
	events       repository.IdempotencyStore
	stripeClient stripe.Client
	email        sendgrid.EmailService
	checkoutCfg  config.Checkout
	stripeCfg    config.Stripe
}

func NewOrderService(
	orderRepo repository.OrderRepository,
	cartRepo repository.CartRepository,
	productRepo repository.ProductRepository,
	userRepo repository.UserRepository,
	events repository.IdempotencyStore,
	stripeClient stripe.Client,
	email sendgrid.EmailService,
	checkoutCfg config.Checkout,
	stripeCfg config.Stripe,
) OrderService {
	return &orderService{
		orderRepo:    orderRepo,
		cartRepo:     cartRepo,
		productRepo:  productRepo,
		userRepo:     userRepo,
		events:       events,
		stripeClient: stripeClient,
		email:        email,
		checkoutCfg:  checkoutCfg,
		stripeCfg:    stripeCfg,
	}
}

// orderPrice is the cart price with the coupon discount honoured, plus the
// configured tax and shipping add-ons.
func (s *orderService) orderPrice(cart *models.Cart) float64 {
	cartPrice := cart.TotalPrice
	if cart.DiscountedTotal != nil {
		cartPrice = *cart.DiscountedTotal
	}

	return cartPrice + s.checkoutCfg.TaxPrice + s.checkoutCfg.ShippingPrice
}

func stockAdjustments(items []models.CartItem) []models.StockAdjustment {
	adjustments := make([]models.StockAdjustment, 0, len(items))
	for _, item := range items {
		adjustments = append(adjustments, models.StockAdjustment{ProductID: item.ProductID, Quantity: item.Quantity})
	}

	return adjustments
}

// CreateCashOrder materializes an order from the cart, applies the inventory
// adjustment, and deletes the cart. The three steps are sequential, not one
// transaction; the order insert goes first so a crash can never lose a paid
// order, only leave inventory or the cart to reconcile.
func (s *orderService) CreateCashOrder(ctx context.Context, userID uuid.UUID, email string, cartID uuid.UUID, req *models.CreateCashOrderRequest) (*models.Order, error) {

	cart, err := s.cartRepo.GetCartByID(ctx, cartID)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, appErrors.NotFoundError("There is no cart with that id").WithError(err)
		}

		return nil, appErrors.DatabaseError("Failed to fetch cart").WithError(err)
	}

	if cart.UserID != userID {
		return nil, appErrors.ForbiddenError("You can only check out your own cart")
	}

	if len(cart.Items) == 0 {
		return nil, appErrors.BadRequestError("Cannot create order from an empty cart")
	}

	order := &models.Order{
		ID:              uuid.New(),
		UserID:          userID,
		Items:           append([]models.CartItem(nil), cart.Items...),
		ShippingAddress: &req.ShippingAddress,
		TotalPrice:      s.orderPrice(cart),
		PaymentMethod:   models.PaymentMethodCash,
	}

	if err := s.finalizeOrder(ctx, order, cart); err != nil {
		return nil, err
	}

	s.sendConfirmation(ctx, email, order)

	return order, nil
}

// finalizeOrder persists the order, adjusts inventory, and deletes the
// source cart. Failures after the order insert are surfaced loudly but the
// order stands.
func (s *orderService) finalizeOrder(ctx context.Context, order *models.Order, cart *models.Cart) error {

	if err := s.orderRepo.CreateOrder(ctx, order); err != nil {
		return appErrors.DatabaseError("Failed to create order").WithError(err)
	}

	if err := s.productRepo.BulkAdjustStock(ctx, stockAdjustments(order.Items)); err != nil {
		slog.Error("Order created but inventory adjustment failed",
			slog.String("orderId", order.ID.String()), slog.Any("error", err))
		return appErrors.DatabaseError("Failed to adjust inventory").WithError(err)
	}

	if err := s.cartRepo.DeleteCart(ctx, cart.ID); err != nil {
		slog.Error("Order created but cart deletion failed",
			slog.String("orderId", order.ID.String()),
			slog.String("cartId", cart.ID.String()), slog.Any("error", err))
		return appErrors.DatabaseError("Failed to clear cart").WithError(err)
	}

	metrics.OrdersCreated(string(order.PaymentMethod))

	return nil
}

func (s *orderService) sendConfirmation(ctx context.Context, email string, order *models.Order) {
	if s.email == nil || email == "" {
		return
	}

	if err := s.email.SendOrderConfirmation(ctx, email, order); err != nil {
		slog.Warn("Failed to send order confirmation",
			slog.String("orderId", order.ID.String()), slog.Any("error", err))
	}
}

// CreateCheckoutSession opens a hosted payment flow for the cart. The amount
// is charged as a single line item; the webhook later reports the captured
// amount back, which is what the card order records.
func (s *orderService) CreateCheckoutSession(ctx context.Context, userID uuid.UUID, email string, cartID uuid.UUID) (*models.CheckoutSession, error) {

	cart, err := s.cartRepo.GetCartByID(ctx, cartID)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, appErrors.NotFoundError("There is no cart with that id").WithError(err)
		}

		return nil, appErrors.DatabaseError("Failed to fetch cart").WithError(err)
	}

	if cart.UserID != userID {
		return nil, appErrors.ForbiddenError("You can only check out your own cart")
	}

	amount := pricing.Round2(s.orderPrice(cart))

	// amount*100 can land just below the integer (e.g. 0.29*100 = 28.999…),
	// so round rather than truncate.
	checkout, err := s.stripeClient.CreateCheckoutSession(&stripe.CheckoutParams{
		AmountCents:       int64(math.Round(amount * 100)),
		Currency:          s.stripeCfg.Currency,
		ProductLabel:      fmt.Sprintf("Order for cart %s", cart.ID),
		SuccessURL:        s.stripeCfg.SuccessURL,
		CancelURL:         s.stripeCfg.CancelURL,
		CustomerEmail:     email,
		ClientReferenceID: cart.ID.String(),
	})
	if err != nil {
		return nil, appErrors.UpstreamFailureError("Failed to create checkout session").WithError(err)
	}

	return &models.CheckoutSession{
		ID:            checkout.ID,
		URL:           checkout.URL,
		CartID:        cart.ID.String(),
		CustomerEmail: email,
		AmountTotal:   amount,
	}, nil
}

// ProcessWebhook is the verifier and dispatcher. The only error it returns
// is a failed signature check; once the event is authentic it is always
// acknowledged, and order-creation failures are logged rather than bounced
// back to the provider, which would retry-storm on transient faults.
func (s *orderService) ProcessWebhook(ctx context.Context, payload []byte, signature string) (stripe.Event, error) {

	event, err := s.stripeClient.VerifyWebhookSignature(payload, signature)
	if err != nil {
		metrics.WebhookEvent("unknown", "signature_invalid")
		return stripe.Event{}, appErrors.SignatureInvalidError("Webhook signature verification failed").WithError(err)
	}

	if event.Type != checkoutSessionCompleted {
		metrics.WebhookEvent(string(event.Type), "ignored")
		return event, nil
	}

	// Claim the provider event id before doing anything else. Delivery is
	// at least once; a repeat claim means this event already produced an
	// order and must be acknowledged without side effects.
	claimed, err := s.events.Claim(ctx, event.ID)
	if err != nil {
		slog.Error("Failed to record webhook event id; skipping to avoid a duplicate order",
			slog.String("eventId", event.ID), slog.Any("error", err))
		metrics.WebhookEvent(string(event.Type), "error")
		return event, nil
	}

	if !claimed {
		slog.Warn("Duplicate webhook delivery ignored", slog.String("eventId", event.ID))
		metrics.WebhookEvent(string(event.Type), "duplicate")
		return event, nil
	}

	session, err := checkoutSessionFromEvent(event)
	if err != nil {
		slog.Error("Malformed checkout session payload", slog.String("eventId", event.ID), slog.Any("error", err))
		metrics.WebhookEvent(string(event.Type), "malformed")
		return event, nil
	}

	if _, err := s.createCardOrder(ctx, session); err != nil {
		slog.Error("Failed to create card order from webhook",
			slog.String("eventId", event.ID),
			slog.String("cartId", session.CartID), slog.Any("error", err))
		metrics.WebhookEvent(string(event.Type), "failed")
		return event, nil
	}

	metrics.WebhookEvent(string(event.Type), "order_created")

	return event, nil
}

func checkoutSessionFromEvent(event stripe.Event) (models.CheckoutSession, error) {

	object := event.Data.Object

	cartID, ok := object["client_reference_id"].(string)
	if !ok || cartID == "" {
		return models.CheckoutSession{}, errors.New("missing client_reference_id")
	}

	email, ok := object["customer_email"].(string)
	if !ok || email == "" {
		return models.CheckoutSession{}, errors.New("missing customer_email")
	}

	amountCents, ok := object["amount_total"].(float64)
	if !ok {
		return models.CheckoutSession{}, errors.New("missing amount_total")
	}

	id, _ := object["id"].(string)

	return models.CheckoutSession{
		ID:            id,
		CartID:        cartID,
		CustomerEmail: email,
		AmountTotal:   amountCents / 100,
	}, nil
}

// createCardOrder converts a verified payment-completed session into an
// order. The captured amount is authoritative; it is recorded as the order
// total instead of being recomputed from the cart.
func (s *orderService) createCardOrder(ctx context.Context, session models.CheckoutSession) (*models.Order, error) {

	cartID, err := uuid.Parse(session.CartID)
	if err != nil {
		return nil, appErrors.BadRequestError("Invalid cart reference").WithError(err)
	}

	cart, err := s.cartRepo.GetCartByID(ctx, cartID)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, appErrors.NotFoundError("There is no cart with that id").WithError(err)
		}

		return nil, appErrors.DatabaseError("Failed to fetch cart").WithError(err)
	}

	user, err := s.userRepo.GetUserByEmail(ctx, session.CustomerEmail)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, appErrors.NotFoundError("No user for the paying customer").WithError(err)
		}

		return nil, appErrors.DatabaseError("Failed to fetch user").WithError(err)
	}

	paidAt := time.Now()

	order := &models.Order{
		ID:            uuid.New(),
		UserID:        user.ID,
		Items:         append([]models.CartItem(nil), cart.Items...),
		TotalPrice:    session.AmountTotal,
		PaymentMethod: models.PaymentMethodCard,
		IsPaid:        true,
		PaidAt:        &paidAt,
	}

	if err := s.finalizeOrder(ctx, order, cart); err != nil {
		return nil, err
	}

	s.sendConfirmation(ctx, user.Email, order)

	return order, nil
}

func (s *orderService) GetOrderByID(ctx context.Context, id uuid.UUID) (*models.Order, error) {

	order, err := s.orderRepo.GetOrderByID(ctx, id)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, appErrors.NotFoundError("There is no order with that id").WithError(err)
		}

		return nil, appErrors.DatabaseError("Failed to fetch order").WithError(err)
	}

	return order, nil
}

func (s *orderService) ListOrdersByUser(ctx context.Context, userID uuid.UUID, page, size int) ([]models.Order, int, error) {

	page, size = normalizePage(page, size)

	orders, total, err := s.orderRepo.ListOrdersByUser(ctx, userID, page, size)
	if err != nil {
		return nil, 0, appErrors.DatabaseError("Failed to fetch orders").WithError(err)
	}

	return orders, total, nil
}

func (s *orderService) ListAllOrders(ctx context.Context, page, size int) ([]models.Order, int, error) {

	page, size = normalizePage(page, size)

	orders, total, err := s.orderRepo.ListOrders(ctx, page, size)
	if err != nil {
		return nil, 0, appErrors.DatabaseError("Failed to fetch orders").WithError(err)
	}

	return orders, total, nil
}

func (s *orderService) MarkPaid(ctx context.Context, id uuid.UUID) (*models.Order, error) {

	if err := s.orderRepo.MarkPaid(ctx, id, time.Now()); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, appErrors.NotFoundError("There is no order with that id").WithError(err)
		}

		return nil, appErrors.DatabaseError("Failed to update order").WithError(err)
	}

	return s.GetOrderByID(ctx, id)
}

func (s *orderService) MarkDelivered(ctx context.Context, id uuid.UUID) (*models.Order, error) {

	if err := s.orderRepo.MarkDelivered(ctx, id, time.Now()); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, appErrors.NotFoundError("There is no order with that id").WithError(err)
		}

		return nil, appErrors.DatabaseError("Failed to update order").WithError(err)
	}

	return s.GetOrderByID(ctx, id)
}
