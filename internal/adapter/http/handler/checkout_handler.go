package handler

import (
	"time"

	"campus-token-ledger/internal/adapter/http/dto"
	"campus-token-ledger/internal/core/domain"
	"campus-token-ledger/internal/core/ports"
	"campus-token-ledger/pkg/apperror"
	"campus-token-ledger/pkg/response"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
)

// CheckoutHandler handles cart checkouts.
type CheckoutHandler struct {
	checkoutSvc ports.CheckoutService
}

// NewCheckoutHandler creates a new CheckoutHandler.
func NewCheckoutHandler(checkoutSvc ports.CheckoutService) *CheckoutHandler {
	return &CheckoutHandler{checkoutSvc: checkoutSvc}
}

// Checkout handles POST /internal/v1/checkouts.
func (h *CheckoutHandler) Checkout(c *gin.Context) {
	var req dto.CheckoutRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.Error(c, apperror.Validation(err.Error()))
		return
	}

	mode := domain.CheckoutMode(req.Mode)
	if mode == domain.CheckoutModeVerified && req.TxHash == "" {
		response.Error(c, apperror.Validation("tx_hash is required in verified mode"))
		return
	}

	in := ports.CheckoutRequest{
		BuyerID: uuid.MustParse(req.BuyerID),
		Mode:    mode,
		TxHash:  req.TxHash,
	}
	if req.MerchantID != "" {
		in.MerchantID = uuid.MustParse(req.MerchantID)
	}

	order, err := h.checkoutSvc.Checkout(c.Request.Context(), in)
	if err != nil {
		response.Error(c, err)
		return
	}

	response.Created(c, toOrderResponse(order))
}

func toOrderResponse(o *domain.Order) dto.OrderResponse {
	items := make([]dto.OrderItemResponse, 0, len(o.Items))
	for _, it := range o.Items {
		items = append(items, dto.OrderItemResponse{
			ProductID: it.ProductID.String(),
			Quantity:  it.Quantity,
			UnitPrice: it.UnitPrice.String(),
		})
	}
	return dto.OrderResponse{
		ID:          o.ID.String(),
		OwnerID:     o.OwnerID.String(),
		TotalAmount: o.TotalAmount.String(),
		TxHash:      o.TxHash,
		Items:       items,
		CreatedAt:   o.CreatedAt.Format(time.RFC3339),
	}
}
