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
	"github.com/shopspring/decimal"
)

// GasTopup configures how the relayer funds buyers that cannot pay for approve.
type GasTopup struct {
	Threshold *big.Int // wei; below this the buyer is topped up
	Amount    *big.Int // wei sent per top-up
}

// CustodialCheckout settles a cart with allowance + transferFrom through the relayer.
// The buyer's approve is signed with the buyer's custodial key.
type CustodialCheckout struct {
	cartRepo   ports.CartRepository
	walletRepo ports.WalletRepository
	chain      ports.TokenChain
	keys       ports.KeyManager
	committer  ports.SettlementCommitter
	relayer    Signer
	gas        GasTopup
	log        zerolog.Logger
}

// NewCustodialCheckout creates a new CustodialCheckout.
func NewCustodialCheckout(
	cartRepo ports.CartRepository,
	walletRepo ports.WalletRepository,
	chain ports.TokenChain,
	keys ports.KeyManager,
	committer ports.SettlementCommitter,
	relayer Signer,
	gas GasTopup,
	log zerolog.Logger,
) *CustodialCheckout {
	return &CustodialCheckout{
		cartRepo:   cartRepo,
		walletRepo: walletRepo,
		chain:      chain,
		keys:       keys,
		committer:  committer,
		relayer:    relayer,
		gas:        gas,
		log:        log,
	}
}

// Mode implements ports.CheckoutStrategy.
func (c *CustodialCheckout) Mode() domain.CheckoutMode {
	return domain.CheckoutModeCustodial
}

// Checkout runs cart -> wallets -> allowance -> (top-up, approve) -> transferFrom -> order.
// Nothing is written locally unless transferFrom confirms.
func (c *CustodialCheckout) Checkout(ctx context.Context, req ports.CheckoutRequest) (*domain.Order, error) {
	lines, total, err := loadCart(ctx, c.cartRepo, req.BuyerID)
	if err != nil {
		return nil, err
	}
	buyer, merchant, err := resolveParties(ctx, c.walletRepo, req)
	if err != nil {
		return nil, err
	}

	log := c.log.With().Str("buyer_id", req.BuyerID.String()).Str("total", total.String()).Logger()

	allowance, err := c.chain.ReadAllowance(ctx, buyer.Address, c.relayer.Address)
	if err != nil {
		return nil, apperror.ErrChainUnavailable(err)
	}
	if allowance.LessThan(total) {
		if err := c.approve(ctx, buyer, total, log); err != nil {
			return nil, err
		}
	} else {
		log.Debug().Str("allowance", allowance.String()).Msg("allowance sufficient, skipping approve")
	}

	res := c.chain.TransferFrom(ctx, c.relayer.Key, buyer.Address, merchant.Address, total)
	if !res.Success {
		log.Warn().Str("outcome", string(res.Outcome)).Str("tx_hash", res.TxHash).Msg(res.Message)
		return nil, transferError(res)
	}

	now := time.Now().UTC()
	settlement := &domain.Settlement{
		ID:             uuid.New(),
		Kind:           domain.SettlementKindPurchase,
		Status:         domain.SettlementStatusSettled,
		TxHash:         strings.ToLower(res.TxHash),
		OwnerID:        buyer.OwnerID,
		CounterpartyID: merchant.OwnerID,
		Amount:         total,
		Description:    purchaseDescription(lines),
		Lines:          lines,
		CreatedAt:      now,
		UpdatedAt:      now,
	}
	if err := c.committer.Settle(ctx, settlement); err != nil {
		return nil, err
	}

	log.Info().Str("tx_hash", settlement.TxHash).Msg("custodial checkout completed")
	return settlement.Order(), nil
}

func (c *CustodialCheckout) approve(ctx context.Context, buyer *domain.Wallet, total decimal.Decimal, log zerolog.Logger) error {
	key, err := c.keys.Open(buyer.KeyRef)
	if err != nil {
		return apperror.ErrKeyManagement(fmt.Errorf("open buyer key: %w", err))
	}
	if err := c.topUpGas(ctx, buyer.Address, log); err != nil {
		return err
	}

	res := c.chain.Approve(ctx, key, c.relayer.Address, total)
	if !res.Success {
		log.Warn().Str("outcome", string(res.Outcome)).Str("tx_hash", res.TxHash).Msg(res.Message)
		return transferError(res)
	}

	allowance, err := c.chain.ReadAllowance(ctx, buyer.Address, c.relayer.Address)
	if err != nil {
		return apperror.ErrChainUnavailable(err)
	}
	if allowance.LessThan(total) {
		log.Warn().Str("allowance", allowance.String()).Str("tx_hash", res.TxHash).Msg("allowance short after approve")
		return apperror.ErrApprovalInsufficient().WithTxHash(res.TxHash)
	}
	return nil
}

// topUpGas funds the buyer's account when it cannot pay for its own approve.
func (c *CustodialCheckout) topUpGas(ctx context.Context, address string, log zerolog.Logger) error {
	native, err := c.chain.ReadNativeBalance(ctx, address)
	if err != nil {
		return apperror.ErrChainUnavailable(err)
	}
	if native.Cmp(c.gas.Threshold) >= 0 {
		return nil
	}

	res := c.chain.SendNative(ctx, c.relayer.Key, address, new(big.Int).Set(c.gas.Amount))
	if !res.Success {
		log.Warn().Str("outcome", string(res.Outcome)).Str("tx_hash", res.TxHash).Msg("gas top-up failed")
		return transferError(res)
	}
	log.Info().
		Str("address", address).
		Str("wei", c.gas.Amount.String()).
		Str("tx_hash", res.TxHash).
		Msg("gas topped up")
	return nil
}

// loadCart returns the buyer's cart lines and their total, or VAL_002.
func loadCart(ctx context.Context, cartRepo ports.CartRepository, buyerID uuid.UUID) ([]domain.CartLine, decimal.Decimal, error) {
	lines, err := cartRepo.ListLines(ctx, buyerID)
	if err != nil {
		return nil, decimal.Zero, apperror.InternalError(fmt.Errorf("load cart: %w", err))
	}
	total := domain.CartTotal(lines)
	if len(lines) == 0 || !total.IsPositive() {
		return nil, decimal.Zero, apperror.ErrInvalidCart()
	}
	return lines, total, nil
}

// resolveParties loads the buyer and merchant wallets, or PRE_001.
func resolveParties(ctx context.Context, walletRepo ports.WalletRepository, req ports.CheckoutRequest) (buyer, merchant *domain.Wallet, err error) {
	buyer, err = walletRepo.GetByOwnerID(ctx, req.BuyerID)
	if err != nil {
		return nil, nil, apperror.InternalError(fmt.Errorf("lookup buyer wallet: %w", err))
	}
	if buyer == nil {
		return nil, nil, apperror.ErrWalletNotFound("buyer")
	}
	merchant, err = walletRepo.GetByOwnerID(ctx, req.MerchantID)
	if err != nil {
		return nil, nil, apperror.InternalError(fmt.Errorf("lookup merchant wallet: %w", err))
	}
	if merchant == nil {
		return nil, nil, apperror.ErrWalletNotFound("merchant")
	}
	return buyer, merchant, nil
}

func purchaseDescription(lines []domain.CartLine) string {
	items := 0
	for _, l := range lines {
		items += l.Quantity
	}
	return fmt.Sprintf("Purchase of %d item(s)", items)
}
