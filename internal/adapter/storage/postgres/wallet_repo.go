package postgres

import (
	"context"
	"errors"
	"fmt"

	"campus-token-ledger/internal/core/domain"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/shopspring/decimal"
)

// WalletRepo implements ports.WalletRepository.
type WalletRepo struct {
	pool Pool
}

// NewWalletRepo creates a new WalletRepo.
func NewWalletRepo(pool Pool) *WalletRepo {
	return &WalletRepo{pool: pool}
}

const walletColumns = `id, owner_id, address, key_ref, balance::text, created_at, updated_at`

// Create inserts a new wallet. A concurrent insert for the same owner surfaces as domain.ErrDuplicate.
func (r *WalletRepo) Create(ctx context.Context, w *domain.Wallet) error {
	query := `INSERT INTO wallets (id, owner_id, address, key_ref, balance, created_at, updated_at)
		VALUES ($1, $2, $3, $4, $5::numeric, $6, $7)`

	_, err := r.pool.Exec(ctx, query,
		w.ID, w.OwnerID, w.Address, w.KeyRef, w.Balance.String(), w.CreatedAt, w.UpdatedAt,
	)
	if err != nil {
		if isUniqueViolation(err) {
			return fmt.Errorf("insert wallet for owner %s: %w", w.OwnerID, domain.ErrDuplicate)
		}
		return fmt.Errorf("insert wallet: %w", err)
	}
	return nil
}

// GetByOwnerID fetches the wallet of an identity.
func (r *WalletRepo) GetByOwnerID(ctx context.Context, ownerID uuid.UUID) (*domain.Wallet, error) {
	query := `SELECT ` + walletColumns + ` FROM wallets WHERE owner_id = $1`

	w, err := scanWallet(r.pool.QueryRow(ctx, query, ownerID))
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, nil
		}
		return nil, fmt.Errorf("get wallet by owner: %w", err)
	}
	return w, nil
}

// GetByAddress fetches a wallet by its chain address, ignoring checksum case.
func (r *WalletRepo) GetByAddress(ctx context.Context, address string) (*domain.Wallet, error) {
	query := `SELECT ` + walletColumns + ` FROM wallets WHERE lower(address) = lower($1)`

	w, err := scanWallet(r.pool.QueryRow(ctx, query, address))
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, nil
		}
		return nil, fmt.Errorf("get wallet by address: %w", err)
	}
	return w, nil
}

// UpdateBalance stores a balance read from chain.
func (r *WalletRepo) UpdateBalance(ctx context.Context, address string, balance decimal.Decimal) error {
	query := `UPDATE wallets SET balance = $1::numeric, updated_at = NOW() WHERE lower(address) = lower($2)`

	tag, err := r.pool.Exec(ctx, query, balance.String(), address)
	if err != nil {
		return fmt.Errorf("update wallet balance: %w", err)
	}
	if tag.RowsAffected() == 0 {
		return fmt.Errorf("wallet not found: %s", address)
	}
	return nil
}

// AdjustBalance applies delta in SQL so concurrent settlements never overwrite each other.
func (r *WalletRepo) AdjustBalance(ctx context.Context, tx pgx.Tx, ownerID uuid.UUID, delta decimal.Decimal) error {
	query := `UPDATE wallets SET balance = balance + $1::numeric, updated_at = NOW() WHERE owner_id = $2`

	tag, err := tx.Exec(ctx, query, delta.String(), ownerID)
	if err != nil {
		return fmt.Errorf("adjust wallet balance: %w", err)
	}
	if tag.RowsAffected() == 0 {
		return fmt.Errorf("wallet not found for owner: %s", ownerID)
	}
	return nil
}

func scanWallet(row pgx.Row) (*domain.Wallet, error) {
	w := &domain.Wallet{}
	var balance string
	if err := row.Scan(&w.ID, &w.OwnerID, &w.Address, &w.KeyRef, &balance, &w.CreatedAt, &w.UpdatedAt); err != nil {
		return nil, err
	}
	b, err := decimal.NewFromString(balance)
	if err != nil {
		return nil, fmt.Errorf("parse wallet balance %q: %w", balance, err)
	}
	w.Balance = b
	return w, nil
}
