package service

import (
	"context"
	"testing"

	"campus-token-ledger/internal/core/domain"
	"campus-token-ledger/internal/core/ports"
	"campus-token-ledger/internal/core/ports/mocks"

	"github.com/google/uuid"
	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/mock/gomock"
)

func setupCheckoutService(t *testing.T, modes ...domain.CheckoutMode) (*CheckoutServiceImpl, map[domain.CheckoutMode]*mocks.MockCheckoutStrategy, uuid.UUID) {
	ctrl := gomock.NewController(t)
	merchantID := uuid.New()
	byMode := make(map[domain.CheckoutMode]*mocks.MockCheckoutStrategy, len(modes))
	strategies := make([]ports.CheckoutStrategy, 0, len(modes))
	for _, m := range modes {
		st := mocks.NewMockCheckoutStrategy(ctrl)
		st.EXPECT().Mode().Return(m).AnyTimes()
		byMode[m] = st
		strategies = append(strategies, st)
	}
	return NewCheckoutService(modes[0], merchantID, zerolog.Nop(), strategies...), byMode, merchantID
}

func TestCheckoutService_DefaultModeAndMerchant(t *testing.T) {
	svc, strategies, merchantID := setupCheckoutService(t, domain.CheckoutModeCustodial, domain.CheckoutModeVerified)
	buyerID := uuid.New()
	order := &domain.Order{ID: uuid.New()}

	strategies[domain.CheckoutModeCustodial].EXPECT().
		Checkout(gomock.Any(), ports.CheckoutRequest{BuyerID: buyerID, MerchantID: merchantID, Mode: domain.CheckoutModeCustodial}).
		Return(order, nil)

	got, err := svc.Checkout(context.Background(), ports.CheckoutRequest{BuyerID: buyerID})
	require.NoError(t, err)
	assert.Equal(t, order, got)
}

func TestCheckoutService_RoutesExplicitMode(t *testing.T) {
	svc, strategies, _ := setupCheckoutService(t, domain.CheckoutModeCustodial, domain.CheckoutModeVerified)
	req := ports.CheckoutRequest{BuyerID: uuid.New(), MerchantID: uuid.New(), Mode: domain.CheckoutModeVerified, TxHash: checkoutHash}

	strategies[domain.CheckoutModeVerified].EXPECT().Checkout(gomock.Any(), req).Return(&domain.Order{}, nil)

	_, err := svc.Checkout(context.Background(), req)
	require.NoError(t, err)
}

func TestCheckoutService_DisabledMode(t *testing.T) {
	svc, _, _ := setupCheckoutService(t, domain.CheckoutModeCustodial)

	_, err := svc.Checkout(context.Background(), ports.CheckoutRequest{BuyerID: uuid.New(), Mode: domain.CheckoutModeVerified})
	assertAppError(t, err, "PRE_002")
}

func TestCheckoutService_Validation(t *testing.T) {
	svc, _, merchantID := setupCheckoutService(t, domain.CheckoutModeCustodial)

	t.Run("missing buyer", func(t *testing.T) {
		_, err := svc.Checkout(context.Background(), ports.CheckoutRequest{})
		assertAppError(t, err, "VAL_003")
	})

	t.Run("buyer is the merchant", func(t *testing.T) {
		_, err := svc.Checkout(context.Background(), ports.CheckoutRequest{BuyerID: merchantID})
		assertAppError(t, err, "VAL_003")
	})
}

func TestCheckoutService_Modes(t *testing.T) {
	svc, _, _ := setupCheckoutService(t, domain.CheckoutModeCustodial, domain.CheckoutModeVerified)
	assert.ElementsMatch(t, []domain.CheckoutMode{domain.CheckoutModeCustodial, domain.CheckoutModeVerified}, svc.Modes())
}
