package domain

import (
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
)

// LedgerKind classifies an append-only ledger row.
type LedgerKind string

const (
	LedgerKindReward     LedgerKind = "REWARD"
	LedgerKindPurchase   LedgerKind = "PURCHASE"
	LedgerKindConversion LedgerKind = "CONVERSION"
)

// TransactionLog is one completed on-chain mutation attributed to an owner.
// Rows are never updated or deleted.
type TransactionLog struct {
	ID          uuid.UUID       `json:"id"`
	OwnerID     uuid.UUID       `json:"owner_id"`
	Amount      decimal.Decimal `json:"amount"`
	Kind        LedgerKind      `json:"kind"`
	Description string          `json:"description"`
	TxHash      string          `json:"tx_hash"`
	CreatedAt   time.Time       `json:"created_at"`
}
