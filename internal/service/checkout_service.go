package service

import (
	"context"

	"campus-token-ledger/internal/core/domain"
	"campus-token-ledger/internal/core/ports"
	"campus-token-ledger/internal/metrics"
	"campus-token-ledger/pkg/apperror"

	"github.com/google/uuid"
	"github.com/rs/zerolog"
)

// CheckoutServiceImpl implements ports.CheckoutService by routing to the enabled strategies.
// Which strategy is authoritative is decided by configuration alone.
type CheckoutServiceImpl struct {
	strategies  map[domain.CheckoutMode]ports.CheckoutStrategy
	defaultMode domain.CheckoutMode
	merchantID  uuid.UUID
	log         zerolog.Logger
}

// NewCheckoutService creates a CheckoutServiceImpl over the enabled strategies.
func NewCheckoutService(defaultMode domain.CheckoutMode, merchantID uuid.UUID, log zerolog.Logger, strategies ...ports.CheckoutStrategy) *CheckoutServiceImpl {
	s := &CheckoutServiceImpl{
		strategies:  make(map[domain.CheckoutMode]ports.CheckoutStrategy, len(strategies)),
		defaultMode: defaultMode,
		merchantID:  merchantID,
		log:         log,
	}
	for _, st := range strategies {
		s.strategies[st.Mode()] = st
	}
	return s
}

// Checkout implements ports.CheckoutService.
func (s *CheckoutServiceImpl) Checkout(ctx context.Context, req ports.CheckoutRequest) (order *domain.Order, err error) {
	if req.Mode == "" {
		req.Mode = s.defaultMode
	}
	defer func() { metrics.RecordCheckout(string(req.Mode), resultCode(err)) }()

	if req.BuyerID == uuid.Nil {
		return nil, apperror.Validation("buyer_id is required")
	}
	strategy, ok := s.strategies[req.Mode]
	if !ok {
		return nil, apperror.ErrCheckoutModeDisabled(string(req.Mode))
	}
	if req.MerchantID == uuid.Nil {
		req.MerchantID = s.merchantID
	}
	if req.MerchantID == req.BuyerID {
		return nil, apperror.Validation("buyer and merchant must differ")
	}

	return strategy.Checkout(ctx, req)
}

// Modes lists the enabled checkout modes.
func (s *CheckoutServiceImpl) Modes() []domain.CheckoutMode {
	modes := make([]domain.CheckoutMode, 0, len(s.strategies))
	for m := range s.strategies {
		modes = append(modes, m)
	}
	return modes
}
