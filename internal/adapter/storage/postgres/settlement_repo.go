package postgres

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"campus-token-ledger/internal/core/domain"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/shopspring/decimal"
)

// SettlementRepo implements ports.SettlementRepository.
type SettlementRepo struct {
	pool Pool
}

// NewSettlementRepo creates a new SettlementRepo.
func NewSettlementRepo(pool Pool) *SettlementRepo {
	return &SettlementRepo{pool: pool}
}

const settlementColumns = `id, kind, status, tx_hash, owner_id, counterparty_id, amount::text,
	description, lines, attempts, last_error, created_at, updated_at`

// Create journals a confirmed settlement.
func (r *SettlementRepo) Create(ctx context.Context, s *domain.Settlement) error {
	lines, err := json.Marshal(s.Lines)
	if err != nil {
		return fmt.Errorf("marshal settlement lines: %w", err)
	}

	query := `INSERT INTO settlements (id, kind, status, tx_hash, owner_id, counterparty_id, amount,
		description, lines, attempts, created_at, updated_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7::numeric, $8, $9, $10, $11, $12)`

	_, err = r.pool.Exec(ctx, query,
		s.ID, s.Kind, s.Status, s.TxHash, s.OwnerID, s.CounterpartyID, s.Amount.String(),
		s.Description, lines, s.Attempts, s.CreatedAt, s.UpdatedAt,
	)
	if err != nil {
		if isUniqueViolation(err) {
			return fmt.Errorf("insert settlement %s: %w", s.TxHash, domain.ErrDuplicate)
		}
		return fmt.Errorf("insert settlement: %w", err)
	}
	return nil
}

// GetByTxHash fetches a journal row by transaction hash.
func (r *SettlementRepo) GetByTxHash(ctx context.Context, txHash string) (*domain.Settlement, error) {
	query := `SELECT ` + settlementColumns + ` FROM settlements WHERE tx_hash = $1`

	s, err := scanSettlement(r.pool.QueryRow(ctx, query, txHash))
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, nil
		}
		return nil, fmt.Errorf("get settlement by tx hash: %w", err)
	}
	return s, nil
}

// MarkCommitted flips a journal row to COMMITTED inside the commit transaction.
func (r *SettlementRepo) MarkCommitted(ctx context.Context, tx pgx.Tx, id uuid.UUID) error {
	query := `UPDATE settlements SET status = $1, last_error = NULL, updated_at = NOW() WHERE id = $2`

	tag, err := tx.Exec(ctx, query, domain.SettlementStatusCommitted, id)
	if err != nil {
		return fmt.Errorf("mark settlement committed: %w", err)
	}
	if tag.RowsAffected() == 0 {
		return fmt.Errorf("settlement not found: %s", id)
	}
	return nil
}

// MarkNeedsReview parks a settlement that can never commit.
func (r *SettlementRepo) MarkNeedsReview(ctx context.Context, id uuid.UUID, reason string) error {
	query := `UPDATE settlements SET status = $1, last_error = $2, attempts = attempts + 1, updated_at = NOW()
		WHERE id = $3`

	if _, err := r.pool.Exec(ctx, query, domain.SettlementStatusNeedsReview, reason, id); err != nil {
		return fmt.Errorf("mark settlement for review: %w", err)
	}
	return nil
}

// RecordFailure notes a failed commit attempt and leaves the row SETTLED.
func (r *SettlementRepo) RecordFailure(ctx context.Context, id uuid.UUID, reason string) error {
	query := `UPDATE settlements SET attempts = attempts + 1, last_error = $1, updated_at = NOW() WHERE id = $2`

	if _, err := r.pool.Exec(ctx, query, reason, id); err != nil {
		return fmt.Errorf("record settlement failure: %w", err)
	}
	return nil
}

// ListSettled returns uncommitted rows untouched since cutoff, oldest first.
func (r *SettlementRepo) ListSettled(ctx context.Context, cutoff time.Time, limit int) ([]domain.Settlement, error) {
	query := `SELECT ` + settlementColumns + ` FROM settlements
		WHERE status = $1 AND updated_at < $2
		ORDER BY created_at LIMIT $3`

	rows, err := r.pool.Query(ctx, query, domain.SettlementStatusSettled, cutoff, limit)
	if err != nil {
		return nil, fmt.Errorf("list settled: %w", err)
	}
	defer rows.Close()

	var out []domain.Settlement
	for rows.Next() {
		s, err := scanSettlement(rows)
		if err != nil {
			return nil, fmt.Errorf("scan settlement: %w", err)
		}
		out = append(out, *s)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate settlement rows: %w", err)
	}
	return out, nil
}

func scanSettlement(row pgx.Row) (*domain.Settlement, error) {
	s := &domain.Settlement{}
	var (
		amount string
		lines  []byte
	)
	err := row.Scan(&s.ID, &s.Kind, &s.Status, &s.TxHash, &s.OwnerID, &s.CounterpartyID, &amount,
		&s.Description, &lines, &s.Attempts, &s.LastError, &s.CreatedAt, &s.UpdatedAt)
	if err != nil {
		return nil, err
	}
	if s.Amount, err = decimal.NewFromString(amount); err != nil {
		return nil, fmt.Errorf("parse settlement amount %q: %w", amount, err)
	}
	if len(lines) > 0 {
		if err := json.Unmarshal(lines, &s.Lines); err != nil {
			return nil, fmt.Errorf("unmarshal settlement lines: %w", err)
		}
	}
	return s, nil
}
