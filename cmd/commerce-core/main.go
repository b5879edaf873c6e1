package main

import (
	"context"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/storefront-labs/commerce-core/internal/api/handlers"
	"github.com/storefront-labs/commerce-core/internal/api/middleware"
	"github.com/storefront-labs/commerce-core/internal/cache"
	"github.com/storefront-labs/commerce-core/internal/config"
	"github.com/storefront-labs/commerce-core/internal/health"
	"github.com/storefront-labs/commerce-core/internal/metrics"
	repository "github.com/storefront-labs/commerce-core/internal/repositories"
	service "github.com/storefront-labs/commerce-core/internal/services"
	"github.com/storefront-labs/commerce-core/internal/telemetry"
	"github.com/storefront-labs/commerce-core/pkg/sendgrid"
	"github.com/storefront-labs/commerce-core/pkg/stripe"
)

func main() {

	// Logger setup
	logger := slog.New(slog.NewJSONHandler(os.Stdout, nil))
	slog.SetDefault(logger)

	// Load config
	cfg := config.MustLoad()

	// Tracing setup
	shutdownTracing, err := telemetry.Setup(context.Background(), &cfg.Telemetry)
	if err != nil {
		slog.Error("❌ Error initializing tracing", "error", err.Error())
		os.Exit(1)
	}

	// Database setup
	repos, err := repository.New(cfg)
	if err != nil {
		slog.Error("❌ Error accessing the database", "error", err.Error())
		os.Exit(1)
	}

	defer func() {
		if err := repos.Close(); err != nil {
			slog.Error("⚠️ Error closing database connection", slog.String("error", err.Error()))
		} else {
			slog.Info("✅ Database connection closed")
		}
	}()

	// Redis setup
	redisClient, err := repository.NewRedisClient(cfg)
	if err != nil {
		slog.Error("❌ Error accessing the redis instance", "error", err.Error())
		os.Exit(1)
	}

	eventStore := repository.NewIdempotencyStore(redisClient)
	productCache := cache.NewRedisCache(redisClient, &cfg.Cache)

	jwtKey := []byte(cfg.Security.JWTKey)
	stripeClient := stripe.NewStripeClient(cfg.Stripe.APIKey, cfg.Stripe.WebhookSecret)
	emailService := sendgrid.NewEmailService(cfg.SendGrid.APIKey, cfg.SendGrid.FromEmail, cfg.SendGrid.FromName)

	couponService := service.NewCouponService(repos.Coupon)
	couponHandler := handlers.NewCouponHandler(couponService)
	cartService := service.NewCartService(repos.Cart, repos.Product, couponService, productCache)
	cartHandler := handlers.NewCartHandler(cartService)
	orderService := service.NewOrderService(repos.Order, repos.Cart, repos.Product, repos.User,
		eventStore, stripeClient, emailService, cfg.Checkout, cfg.Stripe)
	orderHandler := handlers.NewOrderHandler(orderService)
	authMiddleware := middleware.NewAuthMiddleware(jwtKey)

	healthHandler, err := health.NewHealthHandler(cfg)
	if err != nil {
		slog.Error("❌ Error initializing health checks", "error", err.Error())
		os.Exit(1)
	}

	slog.Info("storage initialized", slog.String("env", cfg.Env), slog.String("version", "1.0.0"))

	admin := func(h http.HandlerFunc) http.HandlerFunc {
		return authMiddleware.Authenticate(authMiddleware.RequireAdmin(h))
	}

	// Setup router
	routerMux := http.NewServeMux()
	routerMux.HandleFunc("GET /api/v1/carts", authMiddleware.Authenticate(cartHandler.GetCart()))
	routerMux.HandleFunc("POST /api/v1/carts/items", authMiddleware.Authenticate(cartHandler.AddItem()))
	routerMux.HandleFunc("PUT /api/v1/carts/items/{itemId}", authMiddleware.Authenticate(cartHandler.UpdateItemQuantity()))
	routerMux.HandleFunc("DELETE /api/v1/carts/items/{itemId}", authMiddleware.Authenticate(cartHandler.RemoveItem()))
	routerMux.HandleFunc("DELETE /api/v1/carts", authMiddleware.Authenticate(cartHandler.ClearCart()))
	routerMux.HandleFunc("POST /api/v1/carts/coupon", authMiddleware.Authenticate(cartHandler.ApplyCoupon()))

	routerMux.HandleFunc("POST /api/v1/coupons", admin(couponHandler.CreateCoupon()))
	routerMux.HandleFunc("GET /api/v1/coupons", admin(couponHandler.ListCoupons()))
	routerMux.HandleFunc("GET /api/v1/coupons/{id}", admin(couponHandler.GetCoupon()))
	routerMux.HandleFunc("PUT /api/v1/coupons/{id}", admin(couponHandler.UpdateCoupon()))
	routerMux.HandleFunc("DELETE /api/v1/coupons/{id}", admin(couponHandler.DeleteCoupon()))

	routerMux.HandleFunc("POST /api/v1/orders/{cartId}", authMiddleware.Authenticate(orderHandler.CreateCashOrder()))
	routerMux.HandleFunc("POST /api/v1/orders/checkout-session/{cartId}", authMiddleware.Authenticate(orderHandler.CreateCheckoutSession()))
	routerMux.HandleFunc("GET /api/v1/orders", authMiddleware.Authenticate(orderHandler.ListOrders()))
	routerMux.HandleFunc("GET /api/v1/orders/{id}", authMiddleware.Authenticate(orderHandler.GetOrder()))
	routerMux.HandleFunc("PATCH /api/v1/orders/{id}/pay", admin(orderHandler.MarkOrderPaid()))
	routerMux.HandleFunc("PATCH /api/v1/orders/{id}/deliver", admin(orderHandler.MarkOrderDelivered()))

	routerMux.HandleFunc("POST /api/v1/webhooks/stripe", orderHandler.HandleWebhook())

	routerMux.Handle("GET /health", healthHandler.Handler())
	routerMux.Handle("GET /metrics", metrics.Handler())

	// Middleware chaining
	var handler http.Handler = routerMux
	handler = metrics.Middleware(handler)
	handler = middleware.Logging(handler)
	handler = telemetry.WrapHandler(handler)

	// Setup http server
	server := http.Server{
		Addr:    cfg.Addr,
		Handler: handler,
	}

	slog.Info("🚀 Server is starting...", slog.String("address", cfg.Addr))

	done := make(chan os.Signal, 1)
	signal.Notify(done, os.Interrupt, syscall.SIGINT, syscall.SIGTERM)

	go func() {
		if err := server.ListenAndServe(); err != http.ErrServerClosed {
			slog.Error("❌ Failed to start server", slog.Any("error", err.Error()))
		}
	}()

	<-done

	slog.Warn("🛑 Shutdown signal received. Preparing to stop the server...")

	// Graceful shutdown
	shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	if err := server.Shutdown(shutdownCtx); err != nil {
		slog.Error("⚠️ Server shutdown encountered an issue", slog.String("error", err.Error()))
	} else {
		slog.Info("✅ Server shut down gracefully. All connections closed.")
	}

	if err := shutdownTracing(shutdownCtx); err != nil {
		slog.Error("⚠️ Tracing shutdown encountered an issue", slog.String("error", err.Error()))
	}

	if err := redisClient.Close(); err != nil {
		slog.Error("⚠️ Error closing redis connection", slog.String("error", err.Error()))
	}
}
