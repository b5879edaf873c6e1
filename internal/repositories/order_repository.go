package repository

import (
	"context"
	"database/sql"
	"encoding/json"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/storefront-labs/commerce-core/internal/models"
	"github.com/storefront-labs/commerce-core/internal/utils"
)

type OrderRepository interface {
	CreateOrder(ctx context.Context, order *models.Order) error
	GetOrderByID(ctx context.Context, id uuid.UUID) (*models.Order, error)
	ListOrdersByUser(ctx context.Context, userID uuid.UUID, page, size int) ([]models.Order, int, error)
	ListOrders(ctx context.Context, page, size int) ([]models.Order, int, error)
	MarkPaid(ctx context.Context, id uuid.UUID, paidAt time.Time) error
	MarkDelivered(ctx context.Context, id uuid.UUID, deliveredAt time.Time) error
}

type orderRepository struct {
	DB *sql.DB
}

func NewOrderRepo(db *sql.DB) OrderRepository {
	return &orderRepository{DB: db}
}

func (r *orderRepository) CreateOrder(ctx context.Context, order *models.Order) error {

	dbCtx, cancel := utils.WithDBTimeout(ctx)
	defer cancel()

	itemsJSON, err := json.Marshal(order.Items)
	if err != nil {
		return fmt.Errorf("failed to marshal order items: %w", err)
	}

	var addressJSON []byte
	if order.ShippingAddress != nil {
		addressJSON, err = json.Marshal(order.ShippingAddress)
		if err != nil {
			return fmt.Errorf("failed to marshal shipping address: %w", err)
		}
	}

	query := `
		INSERT INTO orders (id, user_id, items, shipping_address, total_price, payment_method, is_paid, paid_at, is_delivered, delivered_at, created_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, NOW())
		RETURNING created_at
	`

	return r.DB.QueryRowContext(dbCtx, query,
		order.ID, order.UserID, itemsJSON, addressJSON, order.TotalPrice,
		order.PaymentMethod, order.IsPaid, order.PaidAt, order.IsDelivered, order.DeliveredAt).
		Scan(&order.CreatedAt)
}

func (r *orderRepository) GetOrderByID(ctx context.Context, id uuid.UUID) (*models.Order, error) {

	dbCtx, cancel := utils.WithDBTimeout(ctx)
	defer cancel()

	order := &models.Order{}

	query := `
		SELECT id, user_id, items, shipping_address, total_price, payment_method, is_paid, paid_at, is_delivered, delivered_at, created_at
		FROM orders
		WHERE id = $1
	`

	var itemsJSON, addressJSON []byte

	err := r.DB.QueryRowContext(dbCtx, query, id).
		Scan(&order.ID, &order.UserID, &itemsJSON, &addressJSON, &order.TotalPrice,
			&order.PaymentMethod, &order.IsPaid, &order.PaidAt, &order.IsDelivered, &order.DeliveredAt, &order.CreatedAt)
	if err != nil {
		if err == sql.ErrNoRows {
			return nil, err
		}
		return nil, fmt.Errorf("querying database: %w", err)
	}

	if err := json.Unmarshal(itemsJSON, &order.Items); err != nil {
		return nil, fmt.Errorf("failed to unmarshal order items: %w", err)
	}

	if len(addressJSON) > 0 {
		if err := json.Unmarshal(addressJSON, &order.ShippingAddress); err != nil {
			return nil, fmt.Errorf("failed to unmarshal shipping address: %w", err)
		}
	}

	return order, nil
}

func (r *orderRepository) ListOrdersByUser(ctx context.Context, userID uuid.UUID, page, size int) ([]models.Order, int, error) {

	dbCtx, cancel := utils.WithDBTimeout(ctx)
	defer cancel()

	var total int

	countQuery := `SELECT COUNT(*) FROM orders WHERE user_id = $1`
	if err := r.DB.QueryRowContext(dbCtx, countQuery, userID).Scan(&total); err != nil {
		return nil, 0, err
	}

	offset := (page - 1) * size

	query := `
		SELECT id, user_id, items, shipping_address, total_price, payment_method, is_paid, paid_at, is_delivered, delivered_at, created_at
		FROM orders
		WHERE user_id = $1
		ORDER BY created_at DESC
		LIMIT $2 OFFSET $3
	`

	rows, err := r.DB.QueryContext(dbCtx, query, userID, size, offset)
	if err != nil {
		return nil, 0, fmt.Errorf("failed to list orders: %w", err)
	}

	defer rows.Close()

	orders, err := scanOrders(rows)
	if err != nil {
		return nil, 0, err
	}

	return orders, total, nil
}

func (r *orderRepository) ListOrders(ctx context.Context, page, size int) ([]models.Order, int, error) {

	dbCtx, cancel := utils.WithDBTimeout(ctx)
	defer cancel()

	var total int

	countQuery := `SELECT COUNT(*) FROM orders`
	if err := r.DB.QueryRowContext(dbCtx, countQuery).Scan(&total); err != nil {
		return nil, 0, err
	}

	offset := (page - 1) * size

	query := `
		SELECT id, user_id, items, shipping_address, total_price, payment_method, is_paid, paid_at, is_delivered, delivered_at, created_at
		FROM orders
		ORDER BY created_at DESC
		LIMIT $1 OFFSET $2
	`

	rows, err := r.DB.QueryContext(dbCtx, query, size, offset)
	if err != nil {
		return nil, 0, fmt.Errorf("failed to list orders: %w", err)
	}

	defer rows.Close()

	orders, err := scanOrders(rows)
	if err != nil {
		return nil, 0, err
	}

	return orders, total, nil
}

func scanOrders(rows *sql.Rows) ([]models.Order, error) {

	var orders []models.Order

	for rows.Next() {
		var order models.Order

		var itemsJSON, addressJSON []byte

		err := rows.Scan(&order.ID, &order.UserID, &itemsJSON, &addressJSON, &order.TotalPrice,
			&order.PaymentMethod, &order.IsPaid, &order.PaidAt, &order.IsDelivered, &order.DeliveredAt, &order.CreatedAt)
		if err != nil {
			return nil, fmt.Errorf("failed to scan the orders: %w", err)
		}

		if err := json.Unmarshal(itemsJSON, &order.Items); err != nil {
			return nil, fmt.Errorf("failed to unmarshal order items: %w", err)
		}

		if len(addressJSON) > 0 {
			if err := json.Unmarshal(addressJSON, &order.ShippingAddress); err != nil {
				return nil, fmt.Errorf("failed to unmarshal shipping address: %w", err)
			}
		}

		orders = append(orders, order)
	}

	if err := rows.Err(); err != nil {
		return nil, err
	}

	return orders, nil
}

// MarkPaid is monotonic: it only ever sets the flag, never clears it.
func (r *orderRepository) MarkPaid(ctx context.Context, id uuid.UUID, paidAt time.Time) error {
	return r.setFlag(ctx, `UPDATE orders SET is_paid = TRUE, paid_at = $1 WHERE id = $2`, paidAt, id)
}

func (r *orderRepository) MarkDelivered(ctx context.Context, id uuid.UUID, deliveredAt time.Time) error {
	return r.setFlag(ctx, `UPDATE orders SET is_delivered = TRUE, delivered_at = $1 WHERE id = $2`, deliveredAt, id)
}

func (r *orderRepository) setFlag(ctx context.Context, query string, at time.Time, id uuid.UUID) error {
	dbCtx, cancel := utils.WithDBTimeout(ctx)
	defer cancel()

	result, err := r.DB.ExecContext(dbCtx, query, at, id)
	if err != nil {
		return fmt.Errorf("failed to update order status: %w", err)
	}

	updatedRows, err := result.RowsAffected()
	if err != nil {
		return fmt.Errorf("failed to get updated rows: %w", err)
	}

	if updatedRows == 0 {
		return sql.ErrNoRows
	}

	return nil
}
