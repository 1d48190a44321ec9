package service

import (
	"context"
	"errors"
	"math/big"
	"strings"
	"testing"

	"campus-token-ledger/internal/core/domain"
	"campus-token-ledger/internal/core/ports"
	"campus-token-ledger/internal/core/ports/mocks"
	"campus-token-ledger/pkg/apperror"

	"github.com/google/uuid"
	"github.com/rs/zerolog"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/mock/gomock"
)

type verifiedTestDeps struct {
	svc        *VerifiedCheckout
	cartRepo   *mocks.MockCartRepository
	walletRepo *mocks.MockWalletRepository
	orderRepo  *mocks.MockOrderRepository
	chain      *mocks.MockTokenChain
	claims     *mocks.MockTxHashRegistry
	committer  *mocks.MockSettlementCommitter
	buyer      *domain.Wallet
	merchant   *domain.Wallet
	lines      []domain.CartLine
}

func setupVerified(t *testing.T) *verifiedTestDeps {
	ctrl := gomock.NewController(t)
	d := &verifiedTestDeps{
		cartRepo:   mocks.NewMockCartRepository(ctrl),
		walletRepo: mocks.NewMockWalletRepository(ctrl),
		orderRepo:  mocks.NewMockOrderRepository(ctrl),
		chain:      mocks.NewMockTokenChain(ctrl),
		claims:     mocks.NewMockTxHashRegistry(ctrl),
		committer:  mocks.NewMockSettlementCommitter(ctrl),
		buyer:      &domain.Wallet{ID: uuid.New(), OwnerID: uuid.New(), Address: buyerAddr},
		merchant:   &domain.Wallet{ID: uuid.New(), OwnerID: uuid.New(), Address: merchantAddr},
		lines: []domain.CartLine{
			{CartItemID: uuid.New(), ProductID: uuid.New(), Name: "Notebook", Quantity: 3, UnitPrice: decimal.NewFromInt(10)},
		},
	}
	d.svc = NewVerifiedCheckout(d.cartRepo, d.walletRepo, d.orderRepo, d.chain, d.claims, d.committer, zerolog.Nop())
	return d
}

func (d *verifiedTestDeps) request(hash string) ports.CheckoutRequest {
	return ports.CheckoutRequest{
		BuyerID:    d.buyer.OwnerID,
		MerchantID: d.merchant.OwnerID,
		Mode:       domain.CheckoutModeVerified,
		TxHash:     hash,
	}
}

func (d *verifiedTestDeps) expectUpToClaim(hash string) {
	d.cartRepo.EXPECT().ListLines(gomock.Any(), d.buyer.OwnerID).Return(d.lines, nil)
	d.walletRepo.EXPECT().GetByOwnerID(gomock.Any(), d.buyer.OwnerID).Return(d.buyer, nil)
	d.walletRepo.EXPECT().GetByOwnerID(gomock.Any(), d.merchant.OwnerID).Return(d.merchant, nil)
	d.orderRepo.EXPECT().GetByTxHash(gomock.Any(), hash).Return(nil, nil)
	d.claims.EXPECT().Claim(gomock.Any(), hash).Return(true, nil)
}

// thirtyTokens is 30 tokens at 18 decimals.
func thirtyTokens() *big.Int {
	v, _ := new(big.Int).SetString("30000000000000000000", 10)
	return v
}

func receiptWith(hash string, events ...domain.TransferEvent) *domain.Receipt {
	return &domain.Receipt{TxHash: hash, Status: 1, BlockNumber: 42, Transfers: events}
}

func TestVerifiedCheckout_Success(t *testing.T) {
	d := setupVerified(t)
	ctx := context.Background()

	d.expectUpToClaim(checkoutHash)
	d.chain.EXPECT().FetchReceipt(ctx, checkoutHash).Return(receiptWith(checkoutHash,
		domain.TransferEvent{From: strings.ToLower(buyerAddr), To: strings.ToLower(merchantAddr), Value: thirtyTokens()},
	), nil)
	d.chain.EXPECT().ReadDecimals(ctx).Return(uint8(18))
	d.committer.EXPECT().Settle(ctx, gomock.Any()).DoAndReturn(func(_ context.Context, s *domain.Settlement) error {
		assert.Equal(t, checkoutHash, s.TxHash)
		assert.True(t, decimal.NewFromInt(30).Equal(s.Amount))
		return nil
	})
	// Release is not called once settling has started.

	order, err := d.svc.Checkout(ctx, d.request(checkoutHash))
	require.NoError(t, err)
	assert.Equal(t, checkoutHash, order.TxHash)
	assert.Equal(t, d.buyer.OwnerID, order.OwnerID)
}

func TestVerifiedCheckout_NormalizesHash(t *testing.T) {
	d := setupVerified(t)
	ctx := context.Background()
	upper := "  0x" + strings.ToUpper(strings.TrimPrefix(checkoutHash, "0x")) + " "

	d.expectUpToClaim(checkoutHash)
	d.chain.EXPECT().FetchReceipt(ctx, checkoutHash).Return(receiptWith(checkoutHash,
		domain.TransferEvent{From: buyerAddr, To: merchantAddr, Value: thirtyTokens()},
	), nil)
	d.chain.EXPECT().ReadDecimals(ctx).Return(uint8(18))
	d.committer.EXPECT().Settle(ctx, gomock.Any()).Return(nil)

	_, err := d.svc.Checkout(ctx, d.request(upper))
	require.NoError(t, err)
}

func TestVerifiedCheckout_EventMismatch(t *testing.T) {
	tests := []struct {
		name  string
		event domain.TransferEvent
	}{
		{"wrong amount", domain.TransferEvent{From: buyerAddr, To: merchantAddr, Value: big.NewInt(1)}},
		{"wrong recipient", domain.TransferEvent{From: buyerAddr, To: testAddr, Value: thirtyTokens()}},
		{"wrong sender", domain.TransferEvent{From: testAddr, To: merchantAddr, Value: thirtyTokens()}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			d := setupVerified(t)
			ctx := context.Background()

			d.expectUpToClaim(checkoutHash)
			d.chain.EXPECT().FetchReceipt(ctx, checkoutHash).Return(receiptWith(checkoutHash, tt.event), nil)
			d.chain.EXPECT().ReadDecimals(ctx).Return(uint8(18))
			d.claims.EXPECT().Release(gomock.Any(), checkoutHash).Return(nil)

			_, err := d.svc.Checkout(ctx, d.request(checkoutHash))
			appErr := assertAppError(t, err, "CON_001")
			assert.Equal(t, checkoutHash, appErr.TxHash)
		})
	}
}

func TestVerifiedCheckout_ReceiptProblems(t *testing.T) {
	tests := []struct {
		name    string
		receipt *domain.Receipt
		err     error
		code    string
	}{
		{"pending", nil, nil, "CHN_004"},
		{"reverted", &domain.Receipt{TxHash: checkoutHash, Status: 0}, nil, "CHN_002"},
		{"node down", nil, errors.New("connection refused"), "CHN_001"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			d := setupVerified(t)
			ctx := context.Background()

			d.expectUpToClaim(checkoutHash)
			d.chain.EXPECT().FetchReceipt(ctx, checkoutHash).Return(tt.receipt, tt.err)
			d.claims.EXPECT().Release(gomock.Any(), checkoutHash).Return(nil)

			_, err := d.svc.Checkout(ctx, d.request(checkoutHash))
			assertAppError(t, err, tt.code)
		})
	}
}

func TestVerifiedCheckout_AlreadyRedeemed(t *testing.T) {
	t.Run("order exists", func(t *testing.T) {
		d := setupVerified(t)
		d.cartRepo.EXPECT().ListLines(gomock.Any(), d.buyer.OwnerID).Return(d.lines, nil)
		d.walletRepo.EXPECT().GetByOwnerID(gomock.Any(), d.buyer.OwnerID).Return(d.buyer, nil)
		d.walletRepo.EXPECT().GetByOwnerID(gomock.Any(), d.merchant.OwnerID).Return(d.merchant, nil)
		d.orderRepo.EXPECT().GetByTxHash(gomock.Any(), checkoutHash).Return(&domain.Order{TxHash: checkoutHash}, nil)

		_, err := d.svc.Checkout(context.Background(), d.request(checkoutHash))
		assertAppError(t, err, "CON_003")
	})

	t.Run("claimed by a concurrent request", func(t *testing.T) {
		d := setupVerified(t)
		d.cartRepo.EXPECT().ListLines(gomock.Any(), d.buyer.OwnerID).Return(d.lines, nil)
		d.walletRepo.EXPECT().GetByOwnerID(gomock.Any(), d.buyer.OwnerID).Return(d.buyer, nil)
		d.walletRepo.EXPECT().GetByOwnerID(gomock.Any(), d.merchant.OwnerID).Return(d.merchant, nil)
		d.orderRepo.EXPECT().GetByTxHash(gomock.Any(), checkoutHash).Return(nil, nil)
		d.claims.EXPECT().Claim(gomock.Any(), checkoutHash).Return(false, nil)
		// The other request owns the claim; it must not be released here.

		_, err := d.svc.Checkout(context.Background(), d.request(checkoutHash))
		assertAppError(t, err, "CON_003")
	})

	t.Run("journal duplicate keeps the claim", func(t *testing.T) {
		d := setupVerified(t)
		ctx := context.Background()
		d.expectUpToClaim(checkoutHash)
		d.chain.EXPECT().FetchReceipt(ctx, checkoutHash).Return(receiptWith(checkoutHash,
			domain.TransferEvent{From: buyerAddr, To: merchantAddr, Value: thirtyTokens()},
		), nil)
		d.chain.EXPECT().ReadDecimals(ctx).Return(uint8(18))
		d.committer.EXPECT().Settle(ctx, gomock.Any()).Return(apperror.ErrTxHashRedeemed().WithTxHash(checkoutHash))

		_, err := d.svc.Checkout(ctx, d.request(checkoutHash))
		assertAppError(t, err, "CON_003")
	})
}

func TestVerifiedCheckout_InvalidHash(t *testing.T) {
	for _, hash := range []string{"", "0x1234", "not-a-hash", "0x" + strings.Repeat("z", 64)} {
		t.Run(hash, func(t *testing.T) {
			d := setupVerified(t)
			_, err := d.svc.Checkout(context.Background(), d.request(hash))
			assertAppError(t, err, "VAL_003")
		})
	}
}

func TestHasTransfer(t *testing.T) {
	events := []domain.TransferEvent{
		{From: buyerAddr, To: merchantAddr, Value: nil},
		{From: strings.ToLower(buyerAddr), To: strings.ToUpper(merchantAddr[2:]), Value: big.NewInt(5)},
		{From: strings.ToLower(buyerAddr), To: strings.ToLower(merchantAddr), Value: big.NewInt(5)},
	}
	assert.True(t, hasTransfer(events, buyerAddr, merchantAddr, big.NewInt(5)))
	assert.False(t, hasTransfer(events, buyerAddr, merchantAddr, big.NewInt(6)))
	assert.False(t, hasTransfer(nil, buyerAddr, merchantAddr, big.NewInt(5)))
}
