package dto

// CreateWalletRequest is the request body for wallet provisioning.
type CreateWalletRequest struct {
	OwnerID string `json:"owner_id" binding:"required,uuid"`
}

// WalletResponse describes a custodial wallet. The key reference is never exposed.
type WalletResponse struct {
	OwnerID   string `json:"owner_id"`
	Address   string `json:"address"`
	Balance   string `json:"balance"`
	CreatedAt string `json:"created_at"`
}

// BalanceResponse is the response for a balance query.
type BalanceResponse struct {
	Address string `json:"address"`
	Balance string `json:"balance"`
	Synced  bool   `json:"synced"` // true when the cached balance was refreshed
}

// RewardRequest is the request body for a treasury disbursement.
type RewardRequest struct {
	RecipientID string `json:"recipient_id" binding:"required,uuid"`
	Amount      string `json:"amount" binding:"required,token_amount"`
	Reason      string `json:"reason" binding:"max=255"`
}

// RewardResponse is the response body for a confirmed disbursement.
type RewardResponse struct {
	TxHash           string `json:"tx_hash"`
	RecipientAddress string `json:"recipient_address"`
	Amount           string `json:"amount"`
}

// CheckoutRequest is the request body for a cart checkout.
// TxHash is required in verified mode and ignored otherwise.
type CheckoutRequest struct {
	BuyerID    string `json:"buyer_id" binding:"required,uuid"`
	MerchantID string `json:"merchant_id,omitempty" binding:"omitempty,uuid"`
	Mode       string `json:"mode,omitempty" binding:"omitempty,oneof=custodial verified"`
	TxHash     string `json:"tx_hash,omitempty" binding:"omitempty,tx_hash"`
}

// OrderResponse is the response body for a completed checkout.
type OrderResponse struct {
	ID          string              `json:"id"`
	OwnerID     string              `json:"owner_id"`
	TotalAmount string              `json:"total_amount"`
	TxHash      string              `json:"tx_hash"`
	Items       []OrderItemResponse `json:"items"`
	CreatedAt   string              `json:"created_at"`
}

// OrderItemResponse is one line of an order.
type OrderItemResponse struct {
	ProductID string `json:"product_id"`
	Quantity  int    `json:"quantity"`
	UnitPrice string `json:"unit_price"`
}

// TransactionLogResponse is one ledger row.
type TransactionLogResponse struct {
	ID          string `json:"id"`
	Kind        string `json:"kind"`
	Amount      string `json:"amount"`
	Description string `json:"description"`
	TxHash      string `json:"tx_hash"`
	CreatedAt   string `json:"created_at"`
}

// TransactionListResponse wraps an owner's most recent ledger rows.
type TransactionListResponse struct {
	Items []TransactionLogResponse `json:"items"`
	Limit int                      `json:"limit"`
}
