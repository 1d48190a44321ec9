package ports

import (
	"context"
	"crypto/ecdsa"
	"time"

	"campus-token-ledger/internal/core/domain"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
)

// KeyManager generates custodial keypairs and guards their private halves.
type KeyManager interface {
	// NewKey generates a keypair and returns its address with the sealed private key.
	NewKey() (address string, keyRef string, err error)
	// Open unseals a keyRef produced by NewKey.
	Open(keyRef string) (*ecdsa.PrivateKey, error)
}

// TreasuryGuard serializes treasury-funded transfers across instances.
type TreasuryGuard interface {
	// Acquire blocks until the lock for treasury is held or the wait budget runs out.
	// The returned release func is safe to call once.
	Acquire(ctx context.Context, treasury string) (release func(), err error)
}

// TxHashRegistry hands out one-time claims on client-submitted transaction hashes.
type TxHashRegistry interface {
	// Claim returns true if the hash was not claimed before.
	Claim(ctx context.Context, txHash string) (bool, error)
	Release(ctx context.Context, txHash string) error
}

// IdempotencyCache remembers results of non-idempotent calls under a caller-supplied key.
type IdempotencyCache interface {
	// Load decodes the stored result into dest. Reports false when nothing is stored.
	Load(ctx context.Context, key string, dest any) (bool, error)
	Store(ctx context.Context, key string, value any, ttl time.Duration) error
}

// EventPublisher ships ledger events to downstream consumers.
type EventPublisher interface {
	Publish(ctx context.Context, event domain.LedgerEvent) error
}

// TokenService validates the bearer tokens of calling services.
type TokenService interface {
	Generate(subject string) (string, time.Time, error)
	Validate(tokenString string) (*TokenClaims, error)
}

// TokenClaims holds the parsed JWT claims.
type TokenClaims struct {
	Subject string
}

// --- Service Ports (Business Logic) ---

// WalletService provisions custodial wallets.
type WalletService interface {
	CreateWallet(ctx context.Context, ownerID uuid.UUID) (*domain.Wallet, error)
	GetWallet(ctx context.Context, ownerID uuid.UUID) (*domain.Wallet, error)
}

// BalanceService reconciles cached balances with the chain.
type BalanceService interface {
	SyncBalance(ctx context.Context, address string) (decimal.Decimal, error)
	ReadBalance(ctx context.Context, address string) (decimal.Decimal, error)
}

// RewardService moves tokens from the treasury to a recipient.
type RewardService interface {
	Disburse(ctx context.Context, req RewardRequest) (*DisbursementResult, error)
}

// RewardRequest holds validated input for a disbursement.
type RewardRequest struct {
	RecipientID    uuid.UUID
	Amount         decimal.Decimal
	Reason         string
	IdempotencyKey string // optional; a repeated key returns the first result
}

// DisbursementResult describes a confirmed disbursement.
type DisbursementResult struct {
	TxHash           string          `json:"tx_hash"`
	RecipientAddress string          `json:"recipient_address"`
	Amount           decimal.Decimal `json:"amount"`
}

// CheckoutStrategy settles a buyer's cart one particular way.
type CheckoutStrategy interface {
	Mode() domain.CheckoutMode
	Checkout(ctx context.Context, req CheckoutRequest) (*domain.Order, error)
}

// CheckoutService routes a checkout to the configured strategy.
type CheckoutService interface {
	Checkout(ctx context.Context, req CheckoutRequest) (*domain.Order, error)
}

// CheckoutRequest holds validated checkout input.
type CheckoutRequest struct {
	BuyerID    uuid.UUID
	MerchantID uuid.UUID           // uuid.Nil selects the configured merchant
	Mode       domain.CheckoutMode // empty selects the default mode
	TxHash     string              // client-signed transfer, verified mode only
}

// SettlementCommitter runs the local commit that follows every confirmed on-chain settlement.
type SettlementCommitter interface {
	// Settle journals s and commits it. Failures come back as *apperror.AppError carrying the tx hash.
	Settle(ctx context.Context, s *domain.Settlement) error
	// Commit applies a journaled settlement. Returns domain.ErrOutOfStock when it can never succeed.
	Commit(ctx context.Context, s *domain.Settlement) error
	// FlagForReview marks s NEEDS_REVIEW and publishes settlement.needs_review.
	FlagForReview(ctx context.Context, s *domain.Settlement, cause error) error
}
