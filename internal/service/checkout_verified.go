package service

import (
	"context"
	"fmt"
	"math/big"
	"strings"
	"time"

	"campus-token-ledger/internal/core/domain"
	"campus-token-ledger/internal/core/ports"
	"campus-token-ledger/pkg/apperror"

	"github.com/google/uuid"
	"github.com/rs/zerolog"
)

// VerifiedCheckout accepts a transfer the buyer signed client-side and checks its
// receipt before creating the order. The server signs nothing.
type VerifiedCheckout struct {
	cartRepo   ports.CartRepository
	walletRepo ports.WalletRepository
	orderRepo  ports.OrderRepository
	chain      ports.TokenChain
	claims     ports.TxHashRegistry
	committer  ports.SettlementCommitter
	log        zerolog.Logger
}

// NewVerifiedCheckout creates a new VerifiedCheckout.
func NewVerifiedCheckout(
	cartRepo ports.CartRepository,
	walletRepo ports.WalletRepository,
	orderRepo ports.OrderRepository,
	chain ports.TokenChain,
	claims ports.TxHashRegistry,
	committer ports.SettlementCommitter,
	log zerolog.Logger,
) *VerifiedCheckout {
	return &VerifiedCheckout{
		cartRepo:   cartRepo,
		walletRepo: walletRepo,
		orderRepo:  orderRepo,
		chain:      chain,
		claims:     claims,
		committer:  committer,
		log:        log,
	}
}

// Mode implements ports.CheckoutStrategy.
func (v *VerifiedCheckout) Mode() domain.CheckoutMode {
	return domain.CheckoutModeVerified
}

// Checkout redeems req.TxHash against the buyer's cart.
func (v *VerifiedCheckout) Checkout(ctx context.Context, req ports.CheckoutRequest) (_ *domain.Order, err error) {
	txHash := strings.ToLower(strings.TrimSpace(req.TxHash))
	if !domain.IsTxHash(txHash) {
		return nil, apperror.Validation("tx_hash must be a 0x-prefixed 32-byte hex string")
	}

	lines, total, err := loadCart(ctx, v.cartRepo, req.BuyerID)
	if err != nil {
		return nil, err
	}
	buyer, merchant, err := resolveParties(ctx, v.walletRepo, req)
	if err != nil {
		return nil, err
	}

	existing, err := v.orderRepo.GetByTxHash(ctx, txHash)
	if err != nil {
		return nil, apperror.InternalError(fmt.Errorf("lookup order by tx hash: %w", err))
	}
	if existing != nil {
		return nil, apperror.ErrTxHashRedeemed().WithTxHash(txHash)
	}

	claimed, err := v.claims.Claim(ctx, txHash)
	if err != nil {
		return nil, apperror.InternalError(fmt.Errorf("claim tx hash: %w", err))
	}
	if !claimed {
		return nil, apperror.ErrTxHashRedeemed().WithTxHash(txHash)
	}
	// A hash that never reached Settle can be submitted again.
	settling := false
	defer func() {
		if settling {
			return
		}
		if rerr := v.claims.Release(context.WithoutCancel(ctx), txHash); rerr != nil {
			v.log.Warn().Err(rerr).Str("tx_hash", txHash).Msg("failed to release tx hash claim")
		}
	}()

	receipt, err := v.chain.FetchReceipt(ctx, txHash)
	if err != nil {
		return nil, apperror.ErrChainUnavailable(err)
	}
	if receipt == nil {
		return nil, apperror.ErrPendingOrNotFound().WithTxHash(txHash)
	}
	if !receipt.Succeeded() {
		return nil, apperror.ErrChainTxFailed("transaction reverted").WithTxHash(txHash)
	}

	expected, err := domain.ToBaseUnits(total, v.chain.ReadDecimals(ctx))
	if err != nil {
		return nil, apperror.ErrInvalidCart()
	}
	if !hasTransfer(receipt.Transfers, buyer.Address, merchant.Address, expected) {
		v.log.Warn().
			Str("tx_hash", txHash).
			Str("buyer", buyer.Address).
			Str("merchant", merchant.Address).
			Str("expected", expected.String()).
			Int("transfers", len(receipt.Transfers)).
			Msg("no matching transfer in receipt")
		return nil, apperror.ErrEventMismatch().WithTxHash(txHash)
	}

	now := time.Now().UTC()
	settlement := &domain.Settlement{
		ID:             uuid.New(),
		Kind:           domain.SettlementKindPurchase,
		Status:         domain.SettlementStatusSettled,
		TxHash:         txHash,
		OwnerID:        buyer.OwnerID,
		CounterpartyID: merchant.OwnerID,
		Amount:         total,
		Description:    purchaseDescription(lines),
		Lines:          lines,
		CreatedAt:      now,
		UpdatedAt:      now,
	}
	settling = true
	if err := v.committer.Settle(ctx, settlement); err != nil {
		return nil, err
	}

	v.log.Info().Str("buyer_id", req.BuyerID.String()).Str("tx_hash", txHash).Msg("verified checkout completed")
	return settlement.Order(), nil
}

// hasTransfer reports whether one decoded Transfer moved exactly value from -> to.
func hasTransfer(events []domain.TransferEvent, from, to string, value *big.Int) bool {
	for _, ev := range events {
		if ev.Value == nil {
			continue
		}
		if strings.EqualFold(ev.From, from) && strings.EqualFold(ev.To, to) && ev.Value.Cmp(value) == 0 {
			return true
		}
	}
	return false
}
