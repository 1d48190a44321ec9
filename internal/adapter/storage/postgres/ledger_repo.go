package postgres

import (
	"context"
	"fmt"

	"campus-token-ledger/internal/core/domain"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/shopspring/decimal"
)

// LedgerRepo implements ports.LedgerRepository over the transaction_logs table.
type LedgerRepo struct {
	pool Pool
}

// NewLedgerRepo creates a new LedgerRepo.
func NewLedgerRepo(pool Pool) *LedgerRepo {
	return &LedgerRepo{pool: pool}
}

// Append inserts a log row inside the settlement commit.
// The (tx_hash, owner_id, kind) constraint turns a replayed commit into a no-op.
func (r *LedgerRepo) Append(ctx context.Context, tx pgx.Tx, e *domain.TransactionLog) error {
	query := `INSERT INTO transaction_logs (id, owner_id, amount, kind, description, tx_hash, created_at)
		VALUES ($1, $2, $3::numeric, $4, $5, $6, $7)
		ON CONFLICT (tx_hash, owner_id, kind) DO NOTHING`

	_, err := tx.Exec(ctx, query,
		e.ID, e.OwnerID, e.Amount.String(), e.Kind, e.Description, e.TxHash, e.CreatedAt,
	)
	if err != nil {
		return fmt.Errorf("insert transaction log: %w", err)
	}
	return nil
}

// ListByOwner returns an owner's most recent log rows.
func (r *LedgerRepo) ListByOwner(ctx context.Context, ownerID uuid.UUID, limit int) ([]domain.TransactionLog, error) {
	query := `SELECT id, owner_id, amount::text, kind, description, tx_hash, created_at
		FROM transaction_logs WHERE owner_id = $1
		ORDER BY created_at DESC LIMIT $2`

	rows, err := r.pool.Query(ctx, query, ownerID, limit)
	if err != nil {
		return nil, fmt.Errorf("list transaction logs: %w", err)
	}
	defer rows.Close()

	var logs []domain.TransactionLog
	for rows.Next() {
		var (
			e      domain.TransactionLog
			amount string
		)
		if err := rows.Scan(&e.ID, &e.OwnerID, &amount, &e.Kind, &e.Description, &e.TxHash, &e.CreatedAt); err != nil {
			return nil, fmt.Errorf("scan transaction log: %w", err)
		}
		if e.Amount, err = decimal.NewFromString(amount); err != nil {
			return nil, fmt.Errorf("parse log amount %q: %w", amount, err)
		}
		logs = append(logs, e)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate transaction log rows: %w", err)
	}
	return logs, nil
}
