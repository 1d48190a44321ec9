package ports

import (
	"context"
	"time"

	"campus-token-ledger/internal/core/domain"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/shopspring/decimal"
)

// WalletRepository defines persistence operations for custodial wallets.
// Methods accepting pgx.Tx run inside the settlement commit.
type WalletRepository interface {
	// Create inserts a wallet. Returns domain.ErrDuplicate when the owner or address already has one.
	Create(ctx context.Context, wallet *domain.Wallet) error
	GetByOwnerID(ctx context.Context, ownerID uuid.UUID) (*domain.Wallet, error)
	GetByAddress(ctx context.Context, address string) (*domain.Wallet, error)
	// UpdateBalance overwrites the cached balance with a value read from chain.
	UpdateBalance(ctx context.Context, address string, balance decimal.Decimal) error
	// AdjustBalance adds delta (may be negative) to the cached balance.
	AdjustBalance(ctx context.Context, tx pgx.Tx, ownerID uuid.UUID, delta decimal.Decimal) error
}

// LedgerRepository appends TransactionLog rows.
type LedgerRepository interface {
	// Append inserts a log row. A replay of the same (tx_hash, owner, kind) is a no-op.
	Append(ctx context.Context, tx pgx.Tx, entry *domain.TransactionLog) error
	ListByOwner(ctx context.Context, ownerID uuid.UUID, limit int) ([]domain.TransactionLog, error)
}

// CartRepository reads a buyer's cart and clears checked-out lines.
type CartRepository interface {
	ListLines(ctx context.Context, ownerID uuid.UUID) ([]domain.CartLine, error)
	DeleteItems(ctx context.Context, tx pgx.Tx, ownerID uuid.UUID, itemIDs []uuid.UUID) error
}

// ProductRepository manages product stock.
type ProductRepository interface {
	// DecrementStock returns false when the product is gone or short on stock.
	DecrementStock(ctx context.Context, tx pgx.Tx, productID uuid.UUID, qty int) (bool, error)
}

// OrderRepository persists settled orders.
type OrderRepository interface {
	// Create inserts the order and its items. Returns false if an order already exists for the tx hash.
	Create(ctx context.Context, tx pgx.Tx, order *domain.Order) (bool, error)
	GetByTxHash(ctx context.Context, txHash string) (*domain.Order, error)
}

// SettlementRepository persists the settlement journal.
type SettlementRepository interface {
	// Create journals a confirmed settlement. Returns domain.ErrDuplicate if the tx hash is already journaled.
	Create(ctx context.Context, s *domain.Settlement) error
	GetByTxHash(ctx context.Context, txHash string) (*domain.Settlement, error)
	MarkCommitted(ctx context.Context, tx pgx.Tx, id uuid.UUID) error
	MarkNeedsReview(ctx context.Context, id uuid.UUID, reason string) error
	RecordFailure(ctx context.Context, id uuid.UUID, reason string) error
	// ListSettled returns SETTLED rows last touched before cutoff, oldest first.
	ListSettled(ctx context.Context, cutoff time.Time, limit int) ([]domain.Settlement, error)
}

// DBTransactor provides database transaction management.
type DBTransactor interface {
	Begin(ctx context.Context) (pgx.Tx, error)
}
