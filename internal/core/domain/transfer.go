package domain

import (
	"math/big"
	"regexp"
)

// TransferOutcome classifies how a state-changing chain call ended.
type TransferOutcome string

const (
	OutcomeConfirmed    TransferOutcome = "CONFIRMED"
	OutcomeReverted     TransferOutcome = "REVERTED"
	OutcomeTimeout      TransferOutcome = "TIMEOUT"
	OutcomeSubmitFailed TransferOutcome = "SUBMIT_FAILED"
)

// TransferResult is the uniform result of every signed chain call.
// TxHash is set whenever the transaction was broadcast, including on timeout.
type TransferResult struct {
	Success bool            `json:"success"`
	TxHash  string          `json:"tx_hash,omitempty"`
	Message string          `json:"message"`
	Outcome TransferOutcome `json:"outcome"`
}

// Receipt is the subset of a mined transaction receipt the ledger cares about.
type Receipt struct {
	TxHash      string          `json:"tx_hash"`
	Status      uint64          `json:"status"` // 1 success, 0 failure
	BlockNumber uint64          `json:"block_number"`
	Transfers   []TransferEvent `json:"transfers"`
}

// Succeeded reports whether the transaction executed without reverting.
func (r *Receipt) Succeeded() bool {
	return r != nil && r.Status == 1
}

// TransferEvent is a decoded token Transfer log. Value is in base units.
type TransferEvent struct {
	From  string   `json:"from"`
	To    string   `json:"to"`
	Value *big.Int `json:"value"`
}

var txHashPattern = regexp.MustCompile(`^0x[0-9a-fA-F]{64}$`)

// IsTxHash reports whether s is a 0x-prefixed 32-byte hex hash.
func IsTxHash(s string) bool {
	return txHashPattern.MatchString(s)
}

var addressPattern = regexp.MustCompile(`^0x[0-9a-fA-F]{40}$`)

// IsAddress reports whether s is a 0x-prefixed 20-byte hex account address.
func IsAddress(s string) bool {
	return addressPattern.MatchString(s)
}
