package domain

import (
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
)

// EventType identifies a ledger event published to downstream consumers.
type EventType string

const (
	EventRewardDisbursed   EventType = "reward.disbursed"
	EventCheckoutCompleted EventType = "checkout.completed"
	EventSettlementReview  EventType = "settlement.needs_review"
)

// LedgerEvent is emitted after a settlement commits (or is flagged for review).
type LedgerEvent struct {
	ID         uuid.UUID       `json:"id"`
	Type       EventType       `json:"type"`
	OwnerID    uuid.UUID       `json:"owner_id"`
	Amount     decimal.Decimal `json:"amount"`
	TxHash     string          `json:"tx_hash"`
	OccurredAt time.Time       `json:"occurred_at"`
}

// NewLedgerEvent stamps a fresh event.
func NewLedgerEvent(t EventType, ownerID uuid.UUID, amount decimal.Decimal, txHash string) LedgerEvent {
	return LedgerEvent{
		ID:         uuid.New(),
		Type:       t,
		OwnerID:    ownerID,
		Amount:     amount,
		TxHash:     txHash,
		OccurredAt: time.Now().UTC(),
	}
}
