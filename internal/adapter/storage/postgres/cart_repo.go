package postgres

import (
	"context"
	"fmt"

	"campus-token-ledger/internal/core/domain"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/shopspring/decimal"
)

// CartRepo implements ports.CartRepository.
type CartRepo struct {
	pool Pool
}

// NewCartRepo creates a new CartRepo.
func NewCartRepo(pool Pool) *CartRepo {
	return &CartRepo{pool: pool}
}

// ListLines returns the owner's cart joined with current product prices.
func (r *CartRepo) ListLines(ctx context.Context, ownerID uuid.UUID) ([]domain.CartLine, error) {
	query := `SELECT c.id, c.product_id, p.name, c.quantity, p.price::text
		FROM cart_items c JOIN products p ON p.id = c.product_id
		WHERE c.owner_id = $1
		ORDER BY c.created_at`

	rows, err := r.pool.Query(ctx, query, ownerID)
	if err != nil {
		return nil, fmt.Errorf("list cart lines: %w", err)
	}
	defer rows.Close()

	var lines []domain.CartLine
	for rows.Next() {
		var (
			l     domain.CartLine
			price string
		)
		if err := rows.Scan(&l.CartItemID, &l.ProductID, &l.Name, &l.Quantity, &price); err != nil {
			return nil, fmt.Errorf("scan cart line: %w", err)
		}
		if l.UnitPrice, err = decimal.NewFromString(price); err != nil {
			return nil, fmt.Errorf("parse price %q: %w", price, err)
		}
		lines = append(lines, l)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate cart rows: %w", err)
	}
	return lines, nil
}

// DeleteItems removes only the cart rows that were checked out.
// Items added after the cart snapshot stay in the cart.
func (r *CartRepo) DeleteItems(ctx context.Context, tx pgx.Tx, ownerID uuid.UUID, itemIDs []uuid.UUID) error {
	if len(itemIDs) == 0 {
		return nil
	}
	query := `DELETE FROM cart_items WHERE owner_id = $1 AND id = ANY($2)`

	if _, err := tx.Exec(ctx, query, ownerID, itemIDs); err != nil {
		return fmt.Errorf("delete cart items: %w", err)
	}
	return nil
}
