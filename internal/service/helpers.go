package service

import (
	"crypto/ecdsa"
	"errors"

	"campus-token-ledger/internal/core/domain"
	"campus-token-ledger/pkg/apperror"

	"github.com/ethereum/go-ethereum/crypto"
)

// Signer is a platform-held key (treasury or relayer) with its address.
type Signer struct {
	Key     *ecdsa.PrivateKey
	Address string
}

// NewSigner derives the address of key.
func NewSigner(key *ecdsa.PrivateKey) Signer {
	return Signer{Key: key, Address: crypto.PubkeyToAddress(key.PublicKey).Hex()}
}

// transferError maps a failed chain write to its error code, keeping the hash.
func transferError(res domain.TransferResult) *apperror.AppError {
	if res.Outcome == domain.OutcomeTimeout {
		return apperror.ErrChainTxTimeout().WithTxHash(res.TxHash)
	}
	return apperror.ErrChainTxFailed(res.Message).WithTxHash(res.TxHash)
}

// resultCode labels an outcome for metrics.
func resultCode(err error) string {
	if err == nil {
		return "ok"
	}
	var appErr *apperror.AppError
	if errors.As(err, &appErr) {
		return appErr.Code
	}
	return "error"
}
