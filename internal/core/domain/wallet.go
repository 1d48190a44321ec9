package domain

import (
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
)

// Wallet is a custodial chain account held on behalf of one identity.
type Wallet struct {
	ID        uuid.UUID       `json:"id"`
	OwnerID   uuid.UUID       `json:"owner_id"`
	Address   string          `json:"address"`
	KeyRef    string          `json:"-"`       // Sealed signing key, opened only through the key manager
	Balance   decimal.Decimal `json:"balance"` // Cached projection of the on-chain balance
	CreatedAt time.Time       `json:"created_at"`
	UpdatedAt time.Time       `json:"updated_at"`
}
