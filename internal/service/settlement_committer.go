package service

import (
	"context"
	"errors"
	"fmt"

	"campus-token-ledger/internal/core/domain"
	"campus-token-ledger/internal/core/ports"
	"campus-token-ledger/pkg/apperror"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/rs/zerolog"
)

// SettlementCommitterImpl implements ports.SettlementCommitter.
//
// Every flow that moves tokens on chain ends here: the confirmed transfer is
// journaled first, then the ledger side (balances, log row, order) is written in
// one database transaction. A commit that fails leaves the journal row SETTLED
// for the reconciler.
type SettlementCommitterImpl struct {
	settlementRepo ports.SettlementRepository
	walletRepo     ports.WalletRepository
	ledgerRepo     ports.LedgerRepository
	cartRepo       ports.CartRepository
	productRepo    ports.ProductRepository
	orderRepo      ports.OrderRepository
	transactor     ports.DBTransactor
	publisher      ports.EventPublisher
	log            zerolog.Logger
}

// NewSettlementCommitter creates a new SettlementCommitterImpl.
func NewSettlementCommitter(
	settlementRepo ports.SettlementRepository,
	walletRepo ports.WalletRepository,
	ledgerRepo ports.LedgerRepository,
	cartRepo ports.CartRepository,
	productRepo ports.ProductRepository,
	orderRepo ports.OrderRepository,
	transactor ports.DBTransactor,
	publisher ports.EventPublisher,
	log zerolog.Logger,
) *SettlementCommitterImpl {
	return &SettlementCommitterImpl{
		settlementRepo: settlementRepo,
		walletRepo:     walletRepo,
		ledgerRepo:     ledgerRepo,
		cartRepo:       cartRepo,
		productRepo:    productRepo,
		orderRepo:      orderRepo,
		transactor:     transactor,
		publisher:      publisher,
		log:            log,
	}
}

// Settle journals s and commits it.
func (c *SettlementCommitterImpl) Settle(ctx context.Context, s *domain.Settlement) error {
	log := c.log.With().
		Str("tx_hash", s.TxHash).
		Str("kind", string(s.Kind)).
		Str("owner_id", s.OwnerID.String()).
		Logger()

	if err := c.settlementRepo.Create(ctx, s); err != nil {
		if errors.Is(err, domain.ErrDuplicate) {
			if s.Kind == domain.SettlementKindPurchase {
				return apperror.ErrTxHashRedeemed().WithTxHash(s.TxHash)
			}
			// A reward hash is already journaled; the existing row commits on its own.
			return apperror.ErrSettlementCommitFailed(err).WithTxHash(s.TxHash)
		}
		// Nothing durable records this settlement now; the log line is what operators recover from.
		log.Error().Err(err).
			Str("counterparty_id", s.CounterpartyID.String()).
			Str("amount", s.Amount.String()).
			Msg("settled on chain but journal write failed")
		return apperror.ErrSettlementCommitFailed(err).WithTxHash(s.TxHash)
	}

	err := c.Commit(ctx, s)
	switch {
	case err == nil:
		return nil
	case errors.Is(err, domain.ErrOutOfStock):
		_ = c.FlagForReview(ctx, s, err)
		return apperror.ErrStockUnavailable(err).WithTxHash(s.TxHash)
	default:
		if rerr := c.settlementRepo.RecordFailure(ctx, s.ID, err.Error()); rerr != nil {
			log.Warn().Err(rerr).Msg("failed to record commit failure")
		}
		log.Error().Err(err).Msg("settlement commit failed, left for reconciler")
		return apperror.ErrSettlementCommitFailed(err).WithTxHash(s.TxHash)
	}
}

// Commit writes the ledger side of a journaled settlement in one transaction.
func (c *SettlementCommitterImpl) Commit(ctx context.Context, s *domain.Settlement) error {
	dbTx, err := c.transactor.Begin(ctx)
	if err != nil {
		return fmt.Errorf("begin tx: %w", err)
	}
	defer dbTx.Rollback(ctx) //nolint:errcheck

	var event domain.EventType
	switch s.Kind {
	case domain.SettlementKindReward:
		err = c.commitReward(ctx, dbTx, s)
		event = domain.EventRewardDisbursed
	case domain.SettlementKindPurchase:
		err = c.commitPurchase(ctx, dbTx, s)
		event = domain.EventCheckoutCompleted
	default:
		err = fmt.Errorf("unknown settlement kind %q", s.Kind)
	}
	if err != nil {
		return err
	}

	if err := c.settlementRepo.MarkCommitted(ctx, dbTx, s.ID); err != nil {
		return fmt.Errorf("mark committed: %w", err)
	}
	if err := dbTx.Commit(ctx); err != nil {
		return fmt.Errorf("commit tx: %w", err)
	}
	s.Status = domain.SettlementStatusCommitted

	c.log.Info().
		Str("tx_hash", s.TxHash).
		Str("kind", string(s.Kind)).
		Str("amount", s.Amount.String()).
		Msg("settlement committed")

	c.publish(ctx, domain.NewLedgerEvent(event, s.OwnerID, s.Amount, s.TxHash))
	return nil
}

// commitReward moves the cached amount from the treasury owner to the recipient.
func (c *SettlementCommitterImpl) commitReward(ctx context.Context, dbTx pgx.Tx, s *domain.Settlement) error {
	if err := c.walletRepo.AdjustBalance(ctx, dbTx, s.CounterpartyID, s.Amount.Neg()); err != nil {
		return fmt.Errorf("debit treasury: %w", err)
	}
	if err := c.walletRepo.AdjustBalance(ctx, dbTx, s.OwnerID, s.Amount); err != nil {
		return fmt.Errorf("credit recipient: %w", err)
	}
	return c.appendLog(ctx, dbTx, s, domain.LedgerKindReward)
}

// commitPurchase turns the cart snapshot into an order. Stock is taken line by
// line; a short line aborts the whole commit with domain.ErrOutOfStock.
func (c *SettlementCommitterImpl) commitPurchase(ctx context.Context, dbTx pgx.Tx, s *domain.Settlement) error {
	order := s.Order()
	created, err := c.orderRepo.Create(ctx, dbTx, order)
	if err != nil {
		return fmt.Errorf("create order: %w", err)
	}
	if !created {
		return fmt.Errorf("order for %s already exists: %w", s.TxHash, domain.ErrDuplicate)
	}

	for _, line := range s.Lines {
		ok, err := c.productRepo.DecrementStock(ctx, dbTx, line.ProductID, line.Quantity)
		if err != nil {
			return fmt.Errorf("decrement stock: %w", err)
		}
		if !ok {
			return fmt.Errorf("product %s x%d: %w", line.ProductID, line.Quantity, domain.ErrOutOfStock)
		}
	}

	if err := c.cartRepo.DeleteItems(ctx, dbTx, s.OwnerID, s.CartItemIDs()); err != nil {
		return fmt.Errorf("clear cart: %w", err)
	}
	if err := c.walletRepo.AdjustBalance(ctx, dbTx, s.OwnerID, s.Amount.Neg()); err != nil {
		return fmt.Errorf("debit buyer: %w", err)
	}
	if err := c.walletRepo.AdjustBalance(ctx, dbTx, s.CounterpartyID, s.Amount); err != nil {
		return fmt.Errorf("credit merchant: %w", err)
	}
	return c.appendLog(ctx, dbTx, s, domain.LedgerKindPurchase)
}

func (c *SettlementCommitterImpl) appendLog(ctx context.Context, dbTx pgx.Tx, s *domain.Settlement, kind domain.LedgerKind) error {
	entry := &domain.TransactionLog{
		ID:          uuid.NewSHA1(s.ID, []byte(kind)),
		OwnerID:     s.OwnerID,
		Amount:      s.Amount,
		Kind:        kind,
		Description: s.Description,
		TxHash:      s.TxHash,
		CreatedAt:   s.CreatedAt,
	}
	if err := c.ledgerRepo.Append(ctx, dbTx, entry); err != nil {
		return fmt.Errorf("append ledger: %w", err)
	}
	return nil
}

// FlagForReview parks s as NEEDS_REVIEW and announces it. The event is what
// operators act on to refund the buyer.
func (c *SettlementCommitterImpl) FlagForReview(ctx context.Context, s *domain.Settlement, cause error) error {
	if err := c.settlementRepo.MarkNeedsReview(ctx, s.ID, cause.Error()); err != nil {
		c.log.Error().Err(err).Str("tx_hash", s.TxHash).Msg("failed to flag settlement for review")
		return fmt.Errorf("mark needs review: %w", err)
	}
	s.Status = domain.SettlementStatusNeedsReview
	c.log.Error().Err(cause).
		Str("tx_hash", s.TxHash).
		Str("owner_id", s.OwnerID.String()).
		Str("amount", s.Amount.String()).
		Msg("settlement needs operator review")
	c.publish(ctx, domain.NewLedgerEvent(domain.EventSettlementReview, s.OwnerID, s.Amount, s.TxHash))
	return nil
}

// publish is best-effort; the ledger is already committed.
func (c *SettlementCommitterImpl) publish(ctx context.Context, event domain.LedgerEvent) {
	if err := c.publisher.Publish(ctx, event); err != nil {
		c.log.Warn().Err(err).Str("tx_hash", event.TxHash).Str("type", string(event.Type)).Msg("failed to publish ledger event")
	}
}
