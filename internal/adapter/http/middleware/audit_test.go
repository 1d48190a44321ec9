package middleware

import (
	"bytes"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/gin-gonic/gin"
	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func auditRouter(buf *bytes.Buffer, status int) *gin.Engine {
	r := gin.New()
	r.Use(RequestID())
	r.Use(AuditTrail(zerolog.New(buf)))
	handle := func(c *gin.Context) {
		c.Set(CtxCaller, "shop-service")
		c.Status(status)
	}
	r.POST("/internal/v1/rewards", handle)
	r.POST("/internal/v1/checkouts", handle)
	r.POST("/internal/v1/wallets", handle)
	r.GET("/internal/v1/wallets/:owner_id", handle)
	return r
}

func TestAuditTrail_RecordsWrites(t *testing.T) {
	tests := []struct {
		path   string
		action AuditAction
	}{
		{"/internal/v1/rewards", AuditRewardDisburse},
		{"/internal/v1/checkouts", AuditCheckoutSubmit},
		{"/internal/v1/wallets", AuditWalletCreate},
	}

	for _, tt := range tests {
		t.Run(string(tt.action), func(t *testing.T) {
			var buf bytes.Buffer
			r := auditRouter(&buf, http.StatusCreated)

			req := httptest.NewRequest(http.MethodPost, tt.path, nil)
			req.Header.Set(HeaderIdempotencyKey, "k-1")
			r.ServeHTTP(httptest.NewRecorder(), req)

			var line map[string]interface{}
			require.NoError(t, json.Unmarshal(buf.Bytes(), &line))
			assert.Equal(t, string(tt.action), line["audit"])
			assert.Equal(t, "shop-service", line["caller"])
			assert.Equal(t, "k-1", line["idempotency_key"])
			assert.Equal(t, "info", line["level"])
		})
	}
}

func TestAuditTrail_FailedWriteIsWarned(t *testing.T) {
	var buf bytes.Buffer
	r := auditRouter(&buf, http.StatusBadGateway)

	r.ServeHTTP(httptest.NewRecorder(), httptest.NewRequest(http.MethodPost, "/internal/v1/rewards", nil))

	var line map[string]interface{}
	require.NoError(t, json.Unmarshal(buf.Bytes(), &line))
	assert.Equal(t, "warn", line["level"])
	assert.EqualValues(t, http.StatusBadGateway, line["status"])
}

func TestAuditTrail_IgnoresReads(t *testing.T) {
	var buf bytes.Buffer
	r := auditRouter(&buf, http.StatusOK)

	r.ServeHTTP(httptest.NewRecorder(), httptest.NewRequest(http.MethodGet, "/internal/v1/wallets/abc", nil))
	assert.Zero(t, buf.Len())
}
