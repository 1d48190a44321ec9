package postgres

import (
	"context"
	"fmt"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
)

// ProductRepo implements ports.ProductRepository.
type ProductRepo struct {
	pool Pool
}

// NewProductRepo creates a new ProductRepo.
func NewProductRepo(pool Pool) *ProductRepo {
	return &ProductRepo{pool: pool}
}

// DecrementStock takes qty units out of stock. It reports false, without error,
// when the product no longer exists or holds fewer than qty units.
func (r *ProductRepo) DecrementStock(ctx context.Context, tx pgx.Tx, productID uuid.UUID, qty int) (bool, error) {
	query := `UPDATE products SET stock = stock - $1, updated_at = NOW()
		WHERE id = $2 AND stock >= $1`

	tag, err := tx.Exec(ctx, query, qty, productID)
	if err != nil {
		return false, fmt.Errorf("decrement stock: %w", err)
	}
	return tag.RowsAffected() == 1, nil
}
