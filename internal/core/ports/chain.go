package ports

import (
	"context"
	"crypto/ecdsa"
	"math/big"

	"campus-token-ledger/internal/core/domain"

	"github.com/shopspring/decimal"
)

// TokenChain talks to the token contract and the node behind it.
// Write calls never return an error; every failure is folded into the TransferResult.
type TokenChain interface {
	ReadBalance(ctx context.Context, address string) (decimal.Decimal, error)
	// ReadDecimals falls back to domain.DefaultTokenDecimals when the contract call fails.
	ReadDecimals(ctx context.Context) uint8
	ReadAllowance(ctx context.Context, owner, spender string) (decimal.Decimal, error)
	ReadNativeBalance(ctx context.Context, address string) (*big.Int, error)

	Transfer(ctx context.Context, key *ecdsa.PrivateKey, to string, amount decimal.Decimal) domain.TransferResult
	Approve(ctx context.Context, ownerKey *ecdsa.PrivateKey, spender string, amount decimal.Decimal) domain.TransferResult
	TransferFrom(ctx context.Context, operatorKey *ecdsa.PrivateKey, owner, to string, amount decimal.Decimal) domain.TransferResult
	SendNative(ctx context.Context, key *ecdsa.PrivateKey, to string, wei *big.Int) domain.TransferResult

	// AwaitReceipt polls until the receipt exists. Returns nil, nil when polling gives up.
	AwaitReceipt(ctx context.Context, txHash string) (*domain.Receipt, error)
	// FetchReceipt fetches once. Returns nil, nil when the node has no receipt yet.
	FetchReceipt(ctx context.Context, txHash string) (*domain.Receipt, error)
}
