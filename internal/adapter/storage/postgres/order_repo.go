package postgres

import (
	"context"
	"errors"
	"fmt"

	"campus-token-ledger/internal/core/domain"

	"github.com/jackc/pgx/v5"
	"github.com/shopspring/decimal"
)

// OrderRepo implements ports.OrderRepository.
type OrderRepo struct {
	pool Pool
}

// NewOrderRepo creates a new OrderRepo.
func NewOrderRepo(pool Pool) *OrderRepo {
	return &OrderRepo{pool: pool}
}

// Create inserts an order with its items. It returns false, and writes nothing,
// when an order already exists for the same tx hash.
func (r *OrderRepo) Create(ctx context.Context, tx pgx.Tx, o *domain.Order) (bool, error) {
	query := `INSERT INTO orders (id, owner_id, total_amount, tx_hash, created_at)
		VALUES ($1, $2, $3::numeric, $4, $5)
		ON CONFLICT (tx_hash) DO NOTHING`

	tag, err := tx.Exec(ctx, query, o.ID, o.OwnerID, o.TotalAmount.String(), o.TxHash, o.CreatedAt)
	if err != nil {
		return false, fmt.Errorf("insert order: %w", err)
	}
	if tag.RowsAffected() == 0 {
		return false, nil
	}

	itemQuery := `INSERT INTO order_items (id, order_id, product_id, quantity, unit_price)
		VALUES ($1, $2, $3, $4, $5::numeric)`
	for _, it := range o.Items {
		if _, err := tx.Exec(ctx, itemQuery, it.ID, o.ID, it.ProductID, it.Quantity, it.UnitPrice.String()); err != nil {
			return false, fmt.Errorf("insert order item: %w", err)
		}
	}
	return true, nil
}

// GetByTxHash fetches the order settled by txHash, without items.
func (r *OrderRepo) GetByTxHash(ctx context.Context, txHash string) (*domain.Order, error) {
	query := `SELECT id, owner_id, total_amount::text, tx_hash, created_at FROM orders WHERE tx_hash = $1`

	o := &domain.Order{}
	var total string
	err := r.pool.QueryRow(ctx, query, txHash).Scan(&o.ID, &o.OwnerID, &total, &o.TxHash, &o.CreatedAt)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, nil
		}
		return nil, fmt.Errorf("get order by tx hash: %w", err)
	}
	if o.TotalAmount, err = decimal.NewFromString(total); err != nil {
		return nil, fmt.Errorf("parse order total %q: %w", total, err)
	}
	return o, nil
}
