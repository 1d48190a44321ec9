package apperror

import (
	"fmt"
	"net/http"
)

// AppError is a structured error that maps to HTTP responses.
type AppError struct {
	Code       string `json:"error_code"`
	Message    string `json:"message"`
	HTTPStatus int    `json:"-"`
	TxHash     string `json:"tx_hash,omitempty"` // On-chain transaction the failure relates to, if any
	Err        error  `json:"-"`                 // Wrapped internal error (not exposed to client)
}

func (e *AppError) Error() string {
	if e.Err != nil {
		return fmt.Sprintf("[%s] %s: %v", e.Code, e.Message, e.Err)
	}
	return fmt.Sprintf("[%s] %s", e.Code, e.Message)
}

func (e *AppError) Unwrap() error {
	return e.Err
}

// WithTxHash attaches the related on-chain transaction hash.
func (e *AppError) WithTxHash(hash string) *AppError {
	e.TxHash = hash
	return e
}

// New creates a new AppError.
func New(code string, message string, httpStatus int) *AppError {
	return &AppError{
		Code:       code,
		Message:    message,
		HTTPStatus: httpStatus,
	}
}

// Wrap wraps an internal error with an AppError.
func Wrap(code string, message string, httpStatus int, err error) *AppError {
	return &AppError{
		Code:       code,
		Message:    message,
		HTTPStatus: httpStatus,
		Err:        err,
	}
}

// ---- Validation (VAL) ----

func ErrInvalidAmount() *AppError {
	return New("VAL_001", "Amount must be positive", http.StatusBadRequest)
}

func ErrInvalidCart() *AppError {
	return New("VAL_002", "Cart is empty or has a non-positive total", http.StatusBadRequest)
}

// Validation returns a VAL_003 error with a custom message.
func Validation(message string) *AppError {
	return New("VAL_003", message, http.StatusBadRequest)
}

func ErrBodyTooLarge() *AppError {
	return New("VAL_004", "Request body too large", http.StatusRequestEntityTooLarge)
}

// ---- Preconditions (PRE) ----

func ErrWalletNotFound(who string) *AppError {
	return New("PRE_001", fmt.Sprintf("%s has no wallet", who), http.StatusPreconditionFailed)
}

func ErrCheckoutModeDisabled(mode string) *AppError {
	return New("PRE_002", fmt.Sprintf("checkout mode %q is not enabled", mode), http.StatusPreconditionFailed)
}

// ---- Balances (BAL) ----

func ErrInsufficientTreasuryBalance() *AppError {
	return New("BAL_001", "Treasury balance is insufficient", http.StatusPaymentRequired)
}

func ErrApprovalInsufficient() *AppError {
	return New("BAL_002", "Allowance still insufficient after approve", http.StatusPaymentRequired)
}

// ---- Chain (CHN) ----

func ErrChainUnavailable(err error) *AppError {
	return Wrap("CHN_001", "Blockchain node unreachable", http.StatusBadGateway, err)
}

func ErrChainTxFailed(message string) *AppError {
	return New("CHN_002", "On-chain transaction failed: "+message, http.StatusBadGateway)
}

func ErrChainTxTimeout() *AppError {
	return New("CHN_003", "Transaction not confirmed in time; it may still be mined", http.StatusGatewayTimeout)
}

func ErrPendingOrNotFound() *AppError {
	return New("CHN_004", "Transaction receipt is pending or not found", http.StatusConflict)
}

// ---- Consistency (CON) ----

func ErrEventMismatch() *AppError {
	return New("CON_001", "No matching token transfer in transaction", http.StatusUnprocessableEntity)
}

func ErrSettlementCommitFailed(err error) *AppError {
	return Wrap("CON_002", "Settled on chain but local commit failed; queued for reconciliation", http.StatusAccepted, err)
}

func ErrTxHashRedeemed() *AppError {
	return New("CON_003", "Transaction hash already redeemed", http.StatusConflict)
}

func ErrStockUnavailable(err error) *AppError {
	return Wrap("CON_004", "Product missing or out of stock after settlement; flagged for operator review", http.StatusConflict, err)
}

// ---- Authentication (AUTH) ----

func ErrInvalidToken() *AppError {
	return New("AUTH_001", "Invalid or expired token", http.StatusUnauthorized)
}

// ---- System & Infrastructure (SYS) ----

// InternalError wraps an internal error as a SYS_001 error.
func InternalError(err error) *AppError {
	return Wrap("SYS_001", "Internal server error", http.StatusInternalServerError, err)
}

func ErrTreasuryBusy(err error) *AppError {
	return Wrap("SYS_002", "Treasury lock acquisition timeout", http.StatusServiceUnavailable, err)
}

func ErrKeyManagement(err error) *AppError {
	return Wrap("SYS_003", "Key management failure", http.StatusInternalServerError, err)
}

func ErrRateLimitExceeded() *AppError {
	return New("SYS_004", "Rate limit exceeded", http.StatusTooManyRequests)
}

// ErrServiceUnavailable signals unhealthy dependencies.
func ErrServiceUnavailable() *AppError {
	return New("SYS_005", "Service unavailable", http.StatusServiceUnavailable)
}
