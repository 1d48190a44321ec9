package middleware

import (
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/rs/zerolog"
)

// AuditAction names a state-changing API operation.
type AuditAction string

const (
	AuditWalletCreate   AuditAction = "wallet.create"
	AuditRewardDisburse AuditAction = "reward.disburse"
	AuditCheckoutSubmit AuditAction = "checkout.submit"
)

// AuditTrail writes one audit line per state-changing request, including
// failed ones: a failed reward or checkout may still have touched the chain.
func AuditTrail(log zerolog.Logger) gin.HandlerFunc {
	return func(c *gin.Context) {
		c.Next()

		action := mapRouteToAction(c.Request.Method, c.FullPath())
		if action == "" {
			return
		}

		event := log.Info()
		if c.Writer.Status() >= http.StatusBadRequest {
			event = log.Warn()
		}
		event.
			Str("audit", string(action)).
			Str("caller", c.GetString(CtxCaller)).
			Str("request_id", c.GetString(CtxRequestID)).
			Str("idempotency_key", c.GetHeader(HeaderIdempotencyKey)).
			Int("status", c.Writer.Status()).
			Str("client_ip", c.ClientIP()).
			Msg("audit")
	}
}

func mapRouteToAction(method, route string) AuditAction {
	if method != http.MethodPost {
		return ""
	}
	switch route {
	case "/internal/v1/wallets":
		return AuditWalletCreate
	case "/internal/v1/rewards":
		return AuditRewardDisburse
	case "/internal/v1/checkouts":
		return AuditCheckoutSubmit
	}
	return ""
}
