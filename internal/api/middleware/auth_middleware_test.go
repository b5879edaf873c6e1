package middleware_test

import (
	"context"
	"io"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/storefront-labs/commerce-core/internal/api/middleware"
	"github.com/storefront-labs/commerce-core/internal/models"
)

var testJwtKey = []byte("test-secret-key-123456789012345")

func createTestToken(userID uuid.UUID, email, role string, duration time.Duration, key []byte, method jwt.SigningMethod) (string, error) {
	claims := &models.Claims{
		UserID: userID,
		Email:  email,
		Role:   role,
		RegisteredClaims: jwt.RegisteredClaims{
			ExpiresAt: jwt.NewNumericDate(time.Now().Add(duration)),
			IssuedAt:  jwt.NewNumericDate(time.Now()),
			NotBefore: jwt.NewNumericDate(time.Now()),
		},
	}
	token := jwt.NewWithClaims(method, claims)

	return token.SignedString(key)
}

func requestWithLogger(method, target string) *http.Request {
	req := httptest.NewRequest(method, target, nil)
	logger := slog.New(slog.NewTextHandler(io.Discard, nil))
	ctx := context.WithValue(req.Context(), middleware.LoggerKey, logger)

	return req.WithContext(ctx)
}

func TestAuthenticate(t *testing.T) {
	authMiddleware := middleware.NewAuthMiddleware(testJwtKey)
	userID := uuid.New()
	userEmail := "test@example.com"

	nextHandler := http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		claims, ok := middleware.ClaimsFromContext(r.Context())
		require.True(t, ok, "User claims should be in context")
		assert.Equal(t, userID, claims.UserID)
		assert.Equal(t, userEmail, claims.Email)

		logger := middleware.LoggerFromContext(r.Context())
		require.NotNil(t, logger)

		w.WriteHeader(http.StatusOK)
	})

	t.Run("Success - Valid Token", func(t *testing.T) {
		// Arrange
		token, err := createTestToken(userID, userEmail, models.RoleUser, time.Hour, testJwtKey, jwt.SigningMethodHS256)
		require.NoError(t, err)

		req := requestWithLogger(http.MethodGet, "/api/v1/carts")
		req.Header.Set("Authorization", "Bearer "+token)
		rr := httptest.NewRecorder()

		// Act
		authMiddleware.Authenticate(nextHandler).ServeHTTP(rr, req)

		// Assert
		assert.Equal(t, http.StatusOK, rr.Code)
	})

	t.Run("Failure - Missing Header", func(t *testing.T) {
		// Arrange
		req := requestWithLogger(http.MethodGet, "/api/v1/carts")
		rr := httptest.NewRecorder()

		// Act
		authMiddleware.Authenticate(nextHandler).ServeHTTP(rr, req)

		// Assert
		assert.Equal(t, http.StatusUnauthorized, rr.Code)
	})

	t.Run("Failure - Malformed Header", func(t *testing.T) {
		// Arrange
		req := requestWithLogger(http.MethodGet, "/api/v1/carts")
		req.Header.Set("Authorization", "NotBearer something")
		rr := httptest.NewRecorder()

		// Act
		authMiddleware.Authenticate(nextHandler).ServeHTTP(rr, req)

		// Assert
		assert.Equal(t, http.StatusUnauthorized, rr.Code)
	})

	t.Run("Failure - Expired Token", func(t *testing.T) {
		// Arrange
		token, err := createTestToken(userID, userEmail, models.RoleUser, -time.Hour, testJwtKey, jwt.SigningMethodHS256)
		require.NoError(t, err)

		req := requestWithLogger(http.MethodGet, "/api/v1/carts")
		req.Header.Set("Authorization", "Bearer "+token)
		rr := httptest.NewRecorder()

		// Act
		authMiddleware.Authenticate(nextHandler).ServeHTTP(rr, req)

		// Assert
		assert.Equal(t, http.StatusUnauthorized, rr.Code)
	})

	t.Run("Failure - Wrong Signing Key", func(t *testing.T) {
		// Arrange
		token, err := createTestToken(userID, userEmail, models.RoleUser, time.Hour, []byte("some-other-key-9876543210987654"), jwt.SigningMethodHS256)
		require.NoError(t, err)

		req := requestWithLogger(http.MethodGet, "/api/v1/carts")
		req.Header.Set("Authorization", "Bearer "+token)
		rr := httptest.NewRecorder()

		// Act
		authMiddleware.Authenticate(nextHandler).ServeHTTP(rr, req)

		// Assert
		assert.Equal(t, http.StatusUnauthorized, rr.Code)
	})
}

func TestRequireAdmin(t *testing.T) {
	authMiddleware := middleware.NewAuthMiddleware(testJwtKey)

	nextHandler := http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusOK)
	})

	withClaims := func(req *http.Request, role string) *http.Request {
		claims := &models.Claims{UserID: uuid.New(), Email: "someone@example.com", Role: role}
		ctx := context.WithValue(req.Context(), middleware.UserContextKey, claims)

		return req.WithContext(ctx)
	}

	t.Run("Success - Admin Role", func(t *testing.T) {
		// Arrange
		req := withClaims(requestWithLogger(http.MethodPost, "/api/v1/coupons"), models.RoleAdmin)
		rr := httptest.NewRecorder()

		// Act
		authMiddleware.RequireAdmin(nextHandler).ServeHTTP(rr, req)

		// Assert
		assert.Equal(t, http.StatusOK, rr.Code)
	})

	t.Run("Failure - Regular User", func(t *testing.T) {
		// Arrange
		req := withClaims(requestWithLogger(http.MethodPost, "/api/v1/coupons"), models.RoleUser)
		rr := httptest.NewRecorder()

		// Act
		authMiddleware.RequireAdmin(nextHandler).ServeHTTP(rr, req)

		// Assert
		assert.Equal(t, http.StatusForbidden, rr.Code)
	})

	t.Run("Failure - No Claims In Context", func(t *testing.T) {
		// Arrange
		req := requestWithLogger(http.MethodPost, "/api/v1/coupons")
		rr := httptest.NewRecorder()

		// Act
		authMiddleware.RequireAdmin(nextHandler).ServeHTTP(rr, req)

		// Assert
		assert.Equal(t, http.StatusUnauthorized, rr.Code)
	})
}
