package service

import (
	"context"
	"errors"
	"time"

	"campus-token-ledger/internal/core/domain"
	"campus-token-ledger/internal/core/ports"
	"campus-token-ledger/internal/metrics"

	"github.com/rs/zerolog"
)

// Reconciler finishes settlements whose local commit failed after the chain confirmed.
type Reconciler struct {
	settlementRepo ports.SettlementRepository
	committer      ports.SettlementCommitter
	interval       time.Duration
	grace          time.Duration
	batchSize      int
	now            func() time.Time
	log            zerolog.Logger
}

// NewReconciler creates a Reconciler. Rows younger than grace are left to the request that wrote them.
func NewReconciler(
	settlementRepo ports.SettlementRepository,
	committer ports.SettlementCommitter,
	interval, grace time.Duration,
	batchSize int,
	log zerolog.Logger,
) *Reconciler {
	return &Reconciler{
		settlementRepo: settlementRepo,
		committer:      committer,
		interval:       interval,
		grace:          grace,
		batchSize:      batchSize,
		now:            time.Now,
		log:            log,
	}
}

// Run reconciles every interval until ctx is cancelled.
func (r *Reconciler) Run(ctx context.Context) {
	ticker := time.NewTicker(r.interval)
	defer ticker.Stop()

	r.log.Info().Dur("interval", r.interval).Dur("grace", r.grace).Msg("reconciler started")
	for {
		select {
		case <-ctx.Done():
			r.log.Info().Msg("reconciler stopped")
			return
		case <-ticker.C:
			if _, err := r.RunOnce(ctx); err != nil {
				r.log.Error().Err(err).Msg("reconcile pass failed")
			}
		}
	}
}

// RunOnce processes one batch and returns how many settlements it committed.
func (r *Reconciler) RunOnce(ctx context.Context) (int, error) {
	pending, err := r.settlementRepo.ListSettled(ctx, r.now().Add(-r.grace), r.batchSize)
	if err != nil {
		return 0, err
	}

	committed := 0
	for i := range pending {
		if ctx.Err() != nil {
			return committed, ctx.Err()
		}
		s := &pending[i]
		log := r.log.With().Str("tx_hash", s.TxHash).Str("kind", string(s.Kind)).Int("attempts", s.Attempts).Logger()

		err := r.committer.Commit(ctx, s)
		switch {
		case err == nil:
			committed++
			metrics.RecordReconciled("committed")
			log.Info().Msg("settlement reconciled")
		case errors.Is(err, domain.ErrOutOfStock):
			metrics.RecordReconciled("needs_review")
			if ferr := r.committer.FlagForReview(ctx, s, err); ferr != nil {
				log.Warn().Err(ferr).Msg("settlement stays SETTLED until the next pass")
			}
		default:
			metrics.RecordReconciled("failed")
			if rerr := r.settlementRepo.RecordFailure(ctx, s.ID, err.Error()); rerr != nil {
				log.Warn().Err(rerr).Msg("failed to record reconcile failure")
			}
			log.Warn().Err(err).Msg("settlement still not committed")
		}
	}
	return committed, nil
}
