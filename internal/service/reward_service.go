package service

import (
	"context"
	"fmt"
	"strings"
	"sync"
	"time"

	"campus-token-ledger/internal/core/domain"
	"campus-token-ledger/internal/core/ports"
	"campus-token-ledger/internal/metrics"
	"campus-token-ledger/pkg/apperror"

	"github.com/google/uuid"
	"github.com/rs/zerolog"
)

const idempotencyTTL = 24 * time.Hour

// RewardServiceImpl implements ports.RewardService.
type RewardServiceImpl struct {
	walletRepo      ports.WalletRepository
	chain           ports.TokenChain
	guard           ports.TreasuryGuard
	committer       ports.SettlementCommitter
	balances        ports.BalanceService
	idempCache      ports.IdempotencyCache
	treasury        Signer
	postSyncTimeout time.Duration
	pending         sync.WaitGroup
	log             zerolog.Logger
}

// NewRewardService creates a new RewardServiceImpl.
func NewRewardService(
	walletRepo ports.WalletRepository,
	chain ports.TokenChain,
	guard ports.TreasuryGuard,
	committer ports.SettlementCommitter,
	balances ports.BalanceService,
	idempCache ports.IdempotencyCache,
	treasury Signer,
	postSyncTimeout time.Duration,
	log zerolog.Logger,
) *RewardServiceImpl {
	return &RewardServiceImpl{
		walletRepo:      walletRepo,
		chain:           chain,
		guard:           guard,
		committer:       committer,
		balances:        balances,
		idempCache:      idempCache,
		treasury:        treasury,
		postSyncTimeout: postSyncTimeout,
		log:             log,
	}
}

// Disburse transfers req.Amount from the treasury to the recipient's wallet.
// Treasury transfers are serialized through the guard and the on-chain balance is
// re-checked under it, so concurrent disbursements cannot overdraw the treasury.
func (s *RewardServiceImpl) Disburse(ctx context.Context, req ports.RewardRequest) (result *ports.DisbursementResult, err error) {
	defer func() { metrics.RecordReward(resultCode(err)) }()

	if !req.Amount.IsPositive() {
		return nil, apperror.ErrInvalidAmount()
	}
	if req.RecipientID == uuid.Nil {
		return nil, apperror.Validation("recipient_id is required")
	}

	idempKey := ""
	if req.IdempotencyKey != "" {
		idempKey = "reward:" + req.IdempotencyKey
		if cached := s.loadResult(ctx, idempKey); cached != nil {
			return cached, nil
		}
	}

	recipient, err := s.walletRepo.GetByOwnerID(ctx, req.RecipientID)
	if err != nil {
		return nil, apperror.InternalError(fmt.Errorf("lookup recipient wallet: %w", err))
	}
	if recipient == nil {
		return nil, apperror.ErrWalletNotFound("recipient")
	}
	treasury, err := s.walletRepo.GetByAddress(ctx, s.treasury.Address)
	if err != nil {
		return nil, apperror.InternalError(fmt.Errorf("lookup treasury wallet: %w", err))
	}
	if treasury == nil {
		return nil, apperror.ErrWalletNotFound("treasury")
	}

	// Advisory only; the authoritative check runs under the lock.
	if treasury.Balance.LessThan(req.Amount) {
		return nil, apperror.ErrInsufficientTreasuryBalance()
	}

	release, err := s.guard.Acquire(ctx, treasury.Address)
	if err != nil {
		return nil, apperror.ErrTreasuryBusy(err)
	}
	defer release()

	if idempKey != "" {
		if cached := s.loadResult(ctx, idempKey); cached != nil {
			return cached, nil
		}
	}

	onChain, err := s.chain.ReadBalance(ctx, treasury.Address)
	if err != nil {
		return nil, apperror.ErrChainUnavailable(err)
	}
	if onChain.LessThan(req.Amount) {
		s.log.Warn().
			Str("on_chain", onChain.String()).
			Str("cached", treasury.Balance.String()).
			Str("amount", req.Amount.String()).
			Msg("treasury short on chain")
		return nil, apperror.ErrInsufficientTreasuryBalance()
	}

	res := s.chain.Transfer(ctx, s.treasury.Key, recipient.Address, req.Amount)
	if !res.Success {
		s.log.Warn().
			Str("recipient_id", req.RecipientID.String()).
			Str("outcome", string(res.Outcome)).
			Str("tx_hash", res.TxHash).
			Msg(res.Message)
		return nil, transferError(res)
	}

	txHash := strings.ToLower(res.TxHash)
	result = &ports.DisbursementResult{
		TxHash:           txHash,
		RecipientAddress: recipient.Address,
		Amount:           req.Amount,
	}
	// The tokens moved; a retry with the same key must not pay again.
	if idempKey != "" {
		if err := s.idempCache.Store(ctx, idempKey, result, idempotencyTTL); err != nil {
			s.log.Warn().Err(err).Str("key", idempKey).Msg("failed to cache disbursement result")
		}
	}

	now := time.Now().UTC()
	settlement := &domain.Settlement{
		ID:             uuid.New(),
		Kind:           domain.SettlementKindReward,
		Status:         domain.SettlementStatusSettled,
		TxHash:         txHash,
		OwnerID:        recipient.OwnerID,
		CounterpartyID: treasury.OwnerID,
		Amount:         req.Amount,
		Description:    req.Reason,
		CreatedAt:      now,
		UpdatedAt:      now,
	}
	if err := s.committer.Settle(ctx, settlement); err != nil {
		return nil, err
	}

	s.syncLater(recipient.Address)

	s.log.Info().
		Str("recipient_id", req.RecipientID.String()).
		Str("amount", req.Amount.String()).
		Str("tx_hash", txHash).
		Msg("reward disbursed")

	return result, nil
}

// Wait blocks until background balance syncs have finished.
func (s *RewardServiceImpl) Wait() {
	s.pending.Wait()
}

// syncLater corrects residual drift on the recipient's cached balance (fire-and-forget).
func (s *RewardServiceImpl) syncLater(address string) {
	s.pending.Add(1)
	go func() {
		defer s.pending.Done()
		ctx, cancel := context.WithTimeout(context.Background(), s.postSyncTimeout)
		defer cancel()
		if _, err := s.balances.SyncBalance(ctx, address); err != nil {
			s.log.Warn().Err(err).Str("address", address).Msg("post-disbursement sync failed")
		}
	}()
}

func (s *RewardServiceImpl) loadResult(ctx context.Context, key string) *ports.DisbursementResult {
	var cached ports.DisbursementResult
	found, err := s.idempCache.Load(ctx, key, &cached)
	if err != nil {
		s.log.Warn().Err(err).Str("key", key).Msg("idempotency lookup failed")
		return nil
	}
	if !found {
		return nil
	}
	return &cached
}
