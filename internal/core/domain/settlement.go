package domain

import (
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
)

// SettlementKind is the flow that produced an on-chain settlement.
type SettlementKind string

const (
	SettlementKindReward   SettlementKind = "REWARD"
	SettlementKindPurchase SettlementKind = "PURCHASE"
)

// SettlementStatus tracks the local commit that must follow a settlement.
type SettlementStatus string

const (
	// SettlementStatusSettled means the chain confirmed but the ledger is not yet written.
	SettlementStatusSettled SettlementStatus = "SETTLED"
	// SettlementStatusCommitted means the ledger commit succeeded.
	SettlementStatusCommitted SettlementStatus = "COMMITTED"
	// SettlementStatusNeedsReview means the commit can never succeed (e.g. stock ran
	// out) and an operator has to compensate the on-chain transfer.
	SettlementStatusNeedsReview SettlementStatus = "NEEDS_REVIEW"
)

// Settlement journals a confirmed on-chain transfer until its local commit lands.
// It is written strictly after the receipt confirms, so a crash or failed commit
// leaves enough behind for the reconciler to finish the job.
type Settlement struct {
	ID             uuid.UUID        `json:"id"`
	Kind           SettlementKind   `json:"kind"`
	Status         SettlementStatus `json:"status"`
	TxHash         string           `json:"tx_hash"`
	OwnerID        uuid.UUID        `json:"owner_id"`        // Buyer or reward recipient
	CounterpartyID uuid.UUID        `json:"counterparty_id"` // Merchant or treasury owner
	Amount         decimal.Decimal  `json:"amount"`
	Description    string           `json:"description"`
	Lines          []CartLine       `json:"lines,omitempty"` // Purchase snapshot
	Attempts       int              `json:"attempts"`
	LastError      *string          `json:"last_error,omitempty"`
	CreatedAt      time.Time        `json:"created_at"`
	UpdatedAt      time.Time        `json:"updated_at"`
}

// Order derives the order a purchase settlement commits. IDs are derived from
// the settlement so every commit attempt writes the same rows.
func (s *Settlement) Order() *Order {
	o := &Order{
		ID:          s.ID,
		OwnerID:     s.OwnerID,
		TotalAmount: s.Amount,
		TxHash:      s.TxHash,
		CreatedAt:   s.CreatedAt,
		Items:       make([]OrderItem, 0, len(s.Lines)),
	}
	for _, l := range s.Lines {
		o.Items = append(o.Items, OrderItem{
			ID:        uuid.NewSHA1(s.ID, l.CartItemID[:]),
			OrderID:   s.ID,
			ProductID: l.ProductID,
			Quantity:  l.Quantity,
			UnitPrice: l.UnitPrice,
		})
	}
	return o
}

// CartItemIDs lists the cart rows a purchase settlement consumes.
func (s *Settlement) CartItemIDs() []uuid.UUID {
	ids := make([]uuid.UUID, 0, len(s.Lines))
	for _, l := range s.Lines {
		ids = append(ids, l.CartItemID)
	}
	return ids
}
