package handler

import (
	"campus-token-ledger/internal/adapter/http/dto"
	"campus-token-ledger/internal/adapter/http/middleware"
	"campus-token-ledger/internal/core/ports"
	"campus-token-ledger/pkg/apperror"
	"campus-token-ledger/pkg/response"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
)

// RewardHandler handles treasury disbursements.
type RewardHandler struct {
	rewardSvc ports.RewardService
}

// NewRewardHandler creates a new RewardHandler.
func NewRewardHandler(rewardSvc ports.RewardService) *RewardHandler {
	return &RewardHandler{rewardSvc: rewardSvc}
}

// Disburse handles POST /internal/v1/rewards.
// An Idempotency-Key header makes retries return the first result.
func (h *RewardHandler) Disburse(c *gin.Context) {
	idempKey := c.GetHeader(middleware.HeaderIdempotencyKey)
	if idempKey != "" && !dto.ValidIdempotencyKey(idempKey) {
		response.Error(c, apperror.Validation("Idempotency-Key must be 1-128 characters of [A-Za-z0-9_-.:]"))
		return
	}

	var req dto.RewardRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.Error(c, apperror.Validation(err.Error()))
		return
	}
	dto.TrimStruct(&req)

	amount, err := dto.ParseAmount(req.Amount)
	if err != nil {
		response.Error(c, apperror.ErrInvalidAmount())
		return
	}

	result, err := h.rewardSvc.Disburse(c.Request.Context(), ports.RewardRequest{
		RecipientID:    uuid.MustParse(req.RecipientID),
		Amount:         amount,
		Reason:         req.Reason,
		IdempotencyKey: idempKey,
	})
	if err != nil {
		response.Error(c, err)
		return
	}

	response.Created(c, dto.RewardResponse{
		TxHash:           result.TxHash,
		RecipientAddress: result.RecipientAddress,
		Amount:           result.Amount.String(),
	})
}
