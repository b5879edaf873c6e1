package repository

import (
	"context"
	"database/sql"
	"fmt"

	"github.com/google/uuid"
	"github.com/lib/pq"
	"github.com/storefront-labs/commerce-core/internal/models"
	"github.com/storefront-labs/commerce-core/internal/utils"
)

// ProductRepository is the catalog collaborator surface the pipeline needs:
// price/stock lookups for cart snapshots and the batched inventory update.
type ProductRepository interface {
	GetProductByID(ctx context.Context, id uuid.UUID) (*models.Product, error)
	BulkAdjustStock(ctx context.Context, adjustments []models.StockAdjustment) error
}

type productRepository struct {
	DB *sql.DB
}

func NewProductRepo(db *sql.DB) ProductRepository {
	return &productRepository{DB: db}
}

func (r *productRepository) GetProductByID(ctx context.Context, id uuid.UUID) (*models.Product, error) {
	dbCtx, cancel := utils.WithDBTimeout(ctx)
	defer cancel()

	product := &models.Product{}

	query := `
		SELECT id, name, price, stock, sold, created_at, updated_at
		FROM products
		WHERE id = $1
	`

	err := r.DB.QueryRowContext(dbCtx, query, id).
		Scan(&product.ID, &product.Name, &product.Price, &product.Stock, &product.Sold, &product.CreatedAt, &product.UpdatedAt)
	if err != nil {
		if err == sql.ErrNoRows {
			return nil, err
		}
		return nil, fmt.Errorf("querying database: %w", err)
	}

	return product, nil
}

// BulkAdjustStock decrements stock and increments sold for every adjustment
// in a single statement. The arithmetic happens inside the database, so
// concurrent orders against the same product never lose updates; there is no
// read-modify-write at this layer. Stock is allowed to go negative.
func (r *productRepository) BulkAdjustStock(ctx context.Context, adjustments []models.StockAdjustment) error {
	if len(adjustments) == 0 {
		return nil
	}

	dbCtx, cancel := utils.WithDBTimeout(ctx)
	defer cancel()

	ids := make([]uuid.UUID, 0, len(adjustments))
	quantities := make([]int64, 0, len(adjustments))

	for _, adj := range adjustments {
		ids = append(ids, adj.ProductID)
		quantities = append(quantities, int64(adj.Quantity))
	}

	query := `
		UPDATE products AS p
		SET stock = p.stock - v.qty,
		    sold = p.sold + v.qty,
		    updated_at = NOW()
		FROM (SELECT unnest($1::uuid[]) AS id, unnest($2::bigint[]) AS qty) AS v
		WHERE p.id = v.id
	`

	_, err := r.DB.ExecContext(dbCtx, query, pq.Array(ids), pq.Array(quantities))
	if err != nil {
		return fmt.Errorf("failed to adjust stock: %w", err)
	}

	return nil
}
