package service

import (
	"context"
	"fmt"
	"strings"

	"campus-token-ledger/internal/core/domain"
	"campus-token-ledger/internal/core/ports"
	"campus-token-ledger/internal/metrics"
	"campus-token-ledger/pkg/apperror"

	"github.com/rs/zerolog"
	"github.com/shopspring/decimal"
	"golang.org/x/sync/singleflight"
)

// BalanceServiceImpl implements ports.BalanceService.
// The cached wallet balance is a projection of the chain; reads fall back to it
// when the node cannot be reached.
type BalanceServiceImpl struct {
	chain      ports.TokenChain
	walletRepo ports.WalletRepository
	group      singleflight.Group
	log        zerolog.Logger
}

// NewBalanceService creates a new BalanceServiceImpl.
func NewBalanceService(chain ports.TokenChain, walletRepo ports.WalletRepository, log zerolog.Logger) *BalanceServiceImpl {
	return &BalanceServiceImpl{chain: chain, walletRepo: walletRepo, log: log}
}

// SyncBalance reads the on-chain balance and writes it to the cache if it changed.
func (s *BalanceServiceImpl) SyncBalance(ctx context.Context, address string) (decimal.Decimal, error) {
	return s.balance(ctx, address, true)
}

// ReadBalance reads the on-chain balance without touching the cache.
func (s *BalanceServiceImpl) ReadBalance(ctx context.Context, address string) (decimal.Decimal, error) {
	return s.balance(ctx, address, false)
}

func (s *BalanceServiceImpl) balance(ctx context.Context, address string, persist bool) (decimal.Decimal, error) {
	if !domain.IsAddress(address) {
		return decimal.Zero, apperror.Validation("address must be a 0x-prefixed 20-byte hex string")
	}

	key := fmt.Sprintf("%s:%t", strings.ToLower(address), persist)
	v, err, _ := s.group.Do(key, func() (interface{}, error) {
		return s.load(ctx, address, persist)
	})
	if err != nil {
		return decimal.Zero, err
	}
	return v.(decimal.Decimal), nil
}

func (s *BalanceServiceImpl) load(ctx context.Context, address string, persist bool) (decimal.Decimal, error) {
	onChain, chainErr := s.chain.ReadBalance(ctx, address)
	if chainErr != nil {
		return s.cached(ctx, address, chainErr)
	}
	if !persist {
		return onChain, nil
	}

	wallet, err := s.walletRepo.GetByAddress(ctx, address)
	if err != nil {
		s.log.Warn().Err(err).Str("address", address).Msg("balance synced from chain but cache lookup failed")
		return onChain, nil
	}
	if wallet == nil || wallet.Balance.Equal(onChain) {
		return onChain, nil
	}

	if err := s.walletRepo.UpdateBalance(ctx, address, onChain); err != nil {
		s.log.Warn().Err(err).Str("address", address).Msg("failed to write synced balance")
		return onChain, nil
	}

	s.log.Debug().
		Str("address", address).
		Str("cached", wallet.Balance.String()).
		Str("on_chain", onChain.String()).
		Msg("cached balance corrected")
	return onChain, nil
}

// cached answers from the last persisted balance after a chain failure.
func (s *BalanceServiceImpl) cached(ctx context.Context, address string, chainErr error) (decimal.Decimal, error) {
	wallet, err := s.walletRepo.GetByAddress(ctx, address)
	if err != nil {
		return decimal.Zero, apperror.InternalError(fmt.Errorf("cache fallback: %w", err))
	}
	if wallet == nil {
		return decimal.Zero, apperror.ErrChainUnavailable(chainErr)
	}

	metrics.RecordBalanceFallback()
	s.log.Warn().Err(chainErr).
		Str("address", address).
		Str("cached", wallet.Balance.String()).
		Msg("chain unreachable, serving cached balance")
	return wallet.Balance, nil
}
