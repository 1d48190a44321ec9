package handler

import (
	"fmt"
	"strconv"
	"time"

	"campus-token-ledger/internal/adapter/http/dto"
	"campus-token-ledger/internal/core/domain"
	"campus-token-ledger/internal/core/ports"
	"campus-token-ledger/pkg/apperror"
	"campus-token-ledger/pkg/response"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
)

const (
	defaultLedgerLimit = 50
	maxLedgerLimit     = 200
)

// WalletHandler handles wallet, balance and ledger endpoints.
type WalletHandler struct {
	walletSvc  ports.WalletService
	balanceSvc ports.BalanceService
	ledgerRepo ports.LedgerRepository
}

// NewWalletHandler creates a new WalletHandler.
func NewWalletHandler(walletSvc ports.WalletService, balanceSvc ports.BalanceService, ledgerRepo ports.LedgerRepository) *WalletHandler {
	return &WalletHandler{
		walletSvc:  walletSvc,
		balanceSvc: balanceSvc,
		ledgerRepo: ledgerRepo,
	}
}

// CreateWallet handles POST /internal/v1/wallets. Repeating the call for the
// same owner returns the existing wallet.
func (h *WalletHandler) CreateWallet(c *gin.Context) {
	var req dto.CreateWalletRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.Error(c, apperror.Validation(err.Error()))
		return
	}

	wallet, err := h.walletSvc.CreateWallet(c.Request.Context(), uuid.MustParse(req.OwnerID))
	if err != nil {
		response.Error(c, err)
		return
	}

	response.Created(c, toWalletResponse(wallet))
}

// GetWallet handles GET /internal/v1/wallets/:owner_id.
func (h *WalletHandler) GetWallet(c *gin.Context) {
	wallet, ok := h.loadWallet(c)
	if !ok {
		return
	}
	response.OK(c, toWalletResponse(wallet))
}

// GetBalance handles GET /internal/v1/wallets/:owner_id/balance.
// With ?sync=true the cached balance is refreshed from chain.
func (h *WalletHandler) GetBalance(c *gin.Context) {
	wallet, ok := h.loadWallet(c)
	if !ok {
		return
	}

	sync, _ := strconv.ParseBool(c.DefaultQuery("sync", "false"))
	read := h.balanceSvc.ReadBalance
	if sync {
		read = h.balanceSvc.SyncBalance
	}

	balance, err := read(c.Request.Context(), wallet.Address)
	if err != nil {
		response.Error(c, err)
		return
	}

	response.OK(c, dto.BalanceResponse{
		Address: wallet.Address,
		Balance: balance.String(),
		Synced:  sync,
	})
}

// ListTransactions handles GET /internal/v1/wallets/:owner_id/transactions.
func (h *WalletHandler) ListTransactions(c *gin.Context) {
	ownerID, ok := parseOwnerID(c)
	if !ok {
		return
	}

	limit, _ := strconv.Atoi(c.DefaultQuery("limit", strconv.Itoa(defaultLedgerLimit)))
	if limit < 1 || limit > maxLedgerLimit {
		limit = defaultLedgerLimit
	}

	logs, err := h.ledgerRepo.ListByOwner(c.Request.Context(), ownerID, limit)
	if err != nil {
		response.Error(c, apperror.InternalError(fmt.Errorf("list ledger: %w", err)))
		return
	}

	items := make([]dto.TransactionLogResponse, 0, len(logs))
	for _, l := range logs {
		items = append(items, dto.TransactionLogResponse{
			ID:          l.ID.String(),
			Kind:        string(l.Kind),
			Amount:      l.Amount.String(),
			Description: l.Description,
			TxHash:      l.TxHash,
			CreatedAt:   l.CreatedAt.Format(time.RFC3339),
		})
	}

	response.OK(c, dto.TransactionListResponse{Items: items, Limit: limit})
}

func (h *WalletHandler) loadWallet(c *gin.Context) (*domain.Wallet, bool) {
	ownerID, ok := parseOwnerID(c)
	if !ok {
		return nil, false
	}
	wallet, err := h.walletSvc.GetWallet(c.Request.Context(), ownerID)
	if err != nil {
		response.Error(c, err)
		return nil, false
	}
	return wallet, true
}

func parseOwnerID(c *gin.Context) (uuid.UUID, bool) {
	ownerID, err := uuid.Parse(c.Param("owner_id"))
	if err != nil {
		response.Error(c, apperror.Validation("owner_id must be a UUID"))
		return uuid.Nil, false
	}
	return ownerID, true
}

func toWalletResponse(w *domain.Wallet) dto.WalletResponse {
	return dto.WalletResponse{
		OwnerID:   w.OwnerID.String(),
		Address:   w.Address,
		Balance:   w.Balance.String(),
		CreatedAt: w.CreatedAt.Format(time.RFC3339),
	}
}
