package repository_test

import (
	"database/sql"
	"errors"
	"regexp"
	"testing"
	"time"

	"github.com/DATA-DOG/go-sqlmock"
	"github.com/google/uuid"
	"github.com/lib/pq"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/storefront-labs/commerce-core/internal/models"
	repository "github.com/storefront-labs/commerce-core/internal/repositories"
)

func setupProductRepoTest(t *testing.T) (repository.ProductRepository, sqlmock.Sqlmock) {
	t.Helper()

	db, mock, err := sqlmock.New(sqlmock.QueryMatcherOption(sqlmock.QueryMatcherRegexp))
	require.NoError(t, err, "Failed to create sqlmock")

	t.Cleanup(func() {
		db.Close()
	})

	repo := repository.NewProductRepo(db)
	require.NotNil(t, repo, "NewProductRepo should return a non-nil repository")

	return repo, mock
}

func TestProductRepository(t *testing.T) {
	repo, mock := setupProductRepoTest(t)
	ctx := t.Context()

	t.Run("Get Product By ID", func(t *testing.T) {
		expectedSQL := regexp.QuoteMeta(`
		SELECT id, name, price, stock, sold, created_at, updated_at
		FROM products
		WHERE id = $1
	`)

		t.Run("Success", func(t *testing.T) {
			// Arrange
			productID := uuid.New()
			now := time.Now()
			mock.ExpectQuery(expectedSQL).
				WithArgs(productID).
				WillReturnRows(sqlmock.NewRows([]string{"id", "name", "price", "stock", "sold", "created_at", "updated_at"}).
					AddRow(productID, "Mechanical Keyboard", 85.0, 40, 12, now, now))

			// Act
			product, err := repo.GetProductByID(ctx, productID)

			// Assert
			require.NoError(t, err)
			assert.Equal(t, "Mechanical Keyboard", product.Name)
			assert.InDelta(t, 85.0, product.Price, 0.001)
			assert.Equal(t, 40, product.Stock)
			require.NoError(t, mock.ExpectationsWereMet(), "SQL mock expectations were not met")
		})

		t.Run("Failure - Not Found", func(t *testing.T) {
			// Arrange
			productID := uuid.New()
			mock.ExpectQuery(expectedSQL).
				WithArgs(productID).
				WillReturnError(sql.ErrNoRows)

			// Act
			product, err := repo.GetProductByID(ctx, productID)

			// Assert
			assert.Nil(t, product)
			assert.ErrorIs(t, err, sql.ErrNoRows)
			require.NoError(t, mock.ExpectationsWereMet(), "SQL mock expectations were not met")
		})
	})

	t.Run("Bulk Adjust Stock", func(t *testing.T) {
		expectedSQL := regexp.QuoteMeta(`
		UPDATE products AS p
		SET stock = p.stock - v.qty,
		    sold = p.sold + v.qty,
		    updated_at = NOW()
		FROM (SELECT unnest($1::uuid[]) AS id, unnest($2::bigint[]) AS qty) AS v
		WHERE p.id = v.id
	`)

		t.Run("Success - Single Statement For All Lines", func(t *testing.T) {
			// Arrange
			adjustments := []models.StockAdjustment{
				{ProductID: uuid.New(), Quantity: 2},
				{ProductID: uuid.New(), Quantity: 1},
			}
			ids := []uuid.UUID{adjustments[0].ProductID, adjustments[1].ProductID}
			quantities := []int64{2, 1}

			mock.ExpectExec(expectedSQL).
				WithArgs(pq.Array(ids), pq.Array(quantities)).
				WillReturnResult(sqlmock.NewResult(0, 2))

			// Act
			err := repo.BulkAdjustStock(ctx, adjustments)

			// Assert
			require.NoError(t, err, "BulkAdjustStock should not return an error on success")
			require.NoError(t, mock.ExpectationsWereMet(), "SQL mock expectations were not met")
		})

		t.Run("Success - No Adjustments", func(t *testing.T) {
			// Act
			err := repo.BulkAdjustStock(ctx, nil)

			// Assert
			require.NoError(t, err, "An empty adjustment list should be a no-op")
			require.NoError(t, mock.ExpectationsWereMet(), "No SQL should be issued for an empty list")
		})

		t.Run("Failure - DB Error", func(t *testing.T) {
			// Arrange
			adjustments := []models.StockAdjustment{{ProductID: uuid.New(), Quantity: 3}}
			dbErr := errors.New("connection reset")
			mock.ExpectExec(expectedSQL).
				WithArgs(sqlmock.AnyArg(), sqlmock.AnyArg()).
				WillReturnError(dbErr)

			// Act
			err := repo.BulkAdjustStock(ctx, adjustments)

			// Assert
			require.Error(t, err)
			assert.ErrorIs(t, err, dbErr)
			require.NoError(t, mock.ExpectationsWereMet(), "SQL mock expectations were not met")
		})
	})
}
