package handlers

import (
	"io"
	"log/slog"
	"net/http"
	"strconv"

	"github.com/go-playground/validator/v10"

	"github.com/storefront-labs/commerce-core/internal/api/middleware"
	"github.com/storefront-labs/commerce-core/internal/errors"
	"github.com/storefront-labs/commerce-core/internal/models"
	service "github.com/storefront-labs/commerce-core/internal/services"
	"github.com/storefront-labs/commerce-core/internal/utils"
	"github.com/storefront-labs/commerce-core/internal/utils/response"
)

// Stripe recommends bounding webhook bodies; their events are far below this.
const maxWebhookBodyBytes = 1 << 16

type OrderHandler struct {
	orderService service.OrderService
	validator    *validator.Validate
}

func NewOrderHandler(orderService service.OrderService) *OrderHandler {
	return &OrderHandler{orderService: orderService, validator: validator.New()}
}

// CreateCashOrder converts the given cart into a paid-on-delivery order.
func (h *OrderHandler) CreateCashOrder() http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {

		logger := middleware.LoggerFromContext(r.Context())

		claims, ok := middleware.ClaimsFromContext(r.Context())
		if !ok {
			response.Error(w, errors.UnauthorizedError("Authentication required"))
			return
		}

		cartID, err := utils.ParseID(r, "cartId")
		if err != nil {
			response.Error(w, err)
			return
		}

		var req models.CreateCashOrderRequest
		if !utils.ParseAndValidate(r, w, &req, h.validator) {
			return
		}

		order, err := h.orderService.CreateCashOrder(r.Context(), claims.UserID, claims.Email, cartID, &req)
		if err != nil {
			logger.Error("Failed to create cash order",
				slog.String("cartId", cartID.String()), slog.Any("error", err))
			response.Error(w, err)
			return
		}

		logger.Info("Cash order created", slog.String("orderId", order.ID.String()))
		response.Success(w, http.StatusCreated, order)
	}
}

// CreateCheckoutSession opens a hosted card payment session for the cart.
func (h *OrderHandler) CreateCheckoutSession() http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {

		logger := middleware.LoggerFromContext(r.Context())

		claims, ok := middleware.ClaimsFromContext(r.Context())
		if !ok {
			response.Error(w, errors.UnauthorizedError("Authentication required"))
			return
		}

		cartID, err := utils.ParseID(r, "cartId")
		if err != nil {
			response.Error(w, err)
			return
		}

		session, err := h.orderService.CreateCheckoutSession(r.Context(), claims.UserID, claims.Email, cartID)
		if err != nil {
			logger.Error("Failed to create checkout session",
				slog.String("cartId", cartID.String()), slog.Any("error", err))
			response.Error(w, err)
			return
		}

		logger.Info("Checkout session created",
			slog.String("cartId", cartID.String()), slog.String("sessionId", session.ID))
		response.Success(w, http.StatusOK, session)
	}
}

// HandleWebhook verifies and dispatches payment provider events. The
// endpoint is unauthenticated; the signature header is the credential.
func (h *OrderHandler) HandleWebhook() http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {

		logger := middleware.LoggerFromContext(r.Context())

		payload, err := io.ReadAll(io.LimitReader(r.Body, maxWebhookBodyBytes))
		if err != nil {
			logger.Warn("Failed to read webhook body", slog.Any("error", err))
			response.Error(w, errors.BadRequestError("Unable to read request body"))
			return
		}

		event, err := h.orderService.ProcessWebhook(r.Context(), payload, r.Header.Get("Stripe-Signature"))
		if err != nil {
			logger.Warn("Webhook rejected", slog.Any("error", err))
			response.Error(w, err)
			return
		}

		logger.Info("Webhook processed", slog.String("eventId", event.ID),
			slog.String("eventType", string(event.Type)))
		response.Success(w, http.StatusOK, map[string]bool{"received": true})
	}
}

func (h *OrderHandler) GetOrder() http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {

		claims, ok := middleware.ClaimsFromContext(r.Context())
		if !ok {
			response.Error(w, errors.UnauthorizedError("Authentication required"))
			return
		}

		orderID, err := utils.ParseID(r, "id")
		if err != nil {
			response.Error(w, err)
			return
		}

		order, err := h.orderService.GetOrderByID(r.Context(), orderID)
		if err != nil {
			response.Error(w, err)
			return
		}

		if order.UserID != claims.UserID && !claims.IsAdmin() {
			response.Error(w, errors.ForbiddenError("You do not have access to this order"))
			return
		}

		response.Success(w, http.StatusOK, order)
	}
}

func (h *OrderHandler) ListOrders() http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {

		claims, ok := middleware.ClaimsFromContext(r.Context())
		if !ok {
			response.Error(w, errors.UnauthorizedError("Authentication required"))
			return
		}

		page, _ := strconv.Atoi(r.URL.Query().Get("page"))
		pageSize, _ := strconv.Atoi(r.URL.Query().Get("pageSize"))

		var (
			orders []models.Order
			total  int
			err    error
		)

		if claims.IsAdmin() {
			orders, total, err = h.orderService.ListAllOrders(r.Context(), page, pageSize)
		} else {
			orders, total, err = h.orderService.ListOrdersByUser(r.Context(), claims.UserID, page, pageSize)
		}

		if err != nil {
			response.Error(w, err)
			return
		}

		response.Success(w, http.StatusOK, models.PaginatedResponse{
			Data:     orders,
			Total:    total,
			Page:     page,
			PageSize: pageSize,
		})
	}
}

func (h *OrderHandler) MarkOrderPaid() http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {

		logger := middleware.LoggerFromContext(r.Context())

		orderID, err := utils.ParseID(r, "id")
		if err != nil {
			response.Error(w, err)
			return
		}

		order, err := h.orderService.MarkPaid(r.Context(), orderID)
		if err != nil {
			logger.Warn("Failed to mark order paid",
				slog.String("orderId", orderID.String()), slog.Any("error", err))
			response.Error(w, err)
			return
		}

		response.Success(w, http.StatusOK, order)
	}
}

func (h *OrderHandler) MarkOrderDelivered() http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {

		logger := middleware.LoggerFromContext(r.Context())

		orderID, err := utils.ParseID(r, "id")
		if err != nil {
			response.Error(w, err)
			return
		}

		order, err := h.orderService.MarkDelivered(r.Context(), orderID)
		if err != nil {
			logger.Warn("Failed to mark order delivered",
				slog.String("orderId", orderID.String()), slog.Any("error", err))
			response.Error(w, err)
			return
		}

		response.Success(w, http.StatusOK, order)
	}
}
