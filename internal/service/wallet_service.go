package service

import (
	"context"
	"errors"
	"fmt"
	"time"

	"campus-token-ledger/internal/core/domain"
	"campus-token-ledger/internal/core/ports"
	"campus-token-ledger/pkg/apperror"

	"github.com/google/uuid"
	"github.com/rs/zerolog"
	"github.com/shopspring/decimal"
)

// WalletServiceImpl implements ports.WalletService.
type WalletServiceImpl struct {
	walletRepo ports.WalletRepository
	keys       ports.KeyManager
	log        zerolog.Logger
}

// NewWalletService creates a new WalletServiceImpl.
func NewWalletService(walletRepo ports.WalletRepository, keys ports.KeyManager, log zerolog.Logger) *WalletServiceImpl {
	return &WalletServiceImpl{walletRepo: walletRepo, keys: keys, log: log}
}

// CreateWallet returns the owner's wallet, creating it on first call.
func (s *WalletServiceImpl) CreateWallet(ctx context.Context, ownerID uuid.UUID) (*domain.Wallet, error) {
	if ownerID == uuid.Nil {
		return nil, apperror.Validation("owner_id is required")
	}

	existing, err := s.walletRepo.GetByOwnerID(ctx, ownerID)
	if err != nil {
		return nil, apperror.InternalError(fmt.Errorf("lookup wallet: %w", err))
	}
	if existing != nil {
		return existing, nil
	}

	address, keyRef, err := s.keys.NewKey()
	if err != nil {
		return nil, apperror.ErrKeyManagement(fmt.Errorf("generate key: %w", err))
	}

	now := time.Now().UTC()
	wallet := &domain.Wallet{
		ID:        uuid.New(),
		OwnerID:   ownerID,
		Address:   address,
		KeyRef:    keyRef,
		Balance:   decimal.Zero,
		CreatedAt: now,
		UpdatedAt: now,
	}

	if err := s.walletRepo.Create(ctx, wallet); err != nil {
		if !errors.Is(err, domain.ErrDuplicate) {
			return nil, apperror.InternalError(fmt.Errorf("create wallet: %w", err))
		}
		// Lost a race with a concurrent create for the same owner.
		winner, rerr := s.walletRepo.GetByOwnerID(ctx, ownerID)
		if rerr != nil {
			return nil, apperror.InternalError(fmt.Errorf("re-read wallet: %w", rerr))
		}
		if winner == nil {
			return nil, apperror.InternalError(fmt.Errorf("create wallet: %w", err))
		}
		return winner, nil
	}

	s.log.Info().
		Str("owner_id", ownerID.String()).
		Str("address", address).
		Msg("wallet created")

	return wallet, nil
}

// GetWallet returns the owner's wallet or PRE_001.
func (s *WalletServiceImpl) GetWallet(ctx context.Context, ownerID uuid.UUID) (*domain.Wallet, error) {
	wallet, err := s.walletRepo.GetByOwnerID(ctx, ownerID)
	if err != nil {
		return nil, apperror.InternalError(fmt.Errorf("lookup wallet: %w", err))
	}
	if wallet == nil {
		return nil, apperror.ErrWalletNotFound("owner")
	}
	return wallet, nil
}
