package handler

import (
	"context"
	"net/http"
	"sync"
	"time"

	"campus-token-ledger/internal/core/ports"

	"github.com/gin-gonic/gin"
)

const healthCheckTimeout = 3 * time.Second

type dependencyStatus struct {
	Status    string `json:"status"`
	LatencyMS int64  `json:"latency_ms"`
	Error     string `json:"error,omitempty"`
}

// HealthCheck handles GET /health. Dependencies are pinged in parallel; any
// failure turns the answer into 503 "degraded". A dead chain node counts: no
// settlement can complete without it.
func HealthCheck(checkers ...ports.HealthChecker) gin.HandlerFunc {
	return func(c *gin.Context) {
		ctx, cancel := context.WithTimeout(c.Request.Context(), healthCheckTimeout)
		defer cancel()

		var (
			mu   sync.Mutex
			wg   sync.WaitGroup
			deps = make(map[string]dependencyStatus, len(checkers))
		)
		for _, checker := range checkers {
			wg.Add(1)
			go func(hc ports.HealthChecker) {
				defer wg.Done()
				start := time.Now()
				err := hc.Ping(ctx)
				st := dependencyStatus{Status: "healthy", LatencyMS: time.Since(start).Milliseconds()}
				if err != nil {
					st.Status = "unhealthy"
					st.Error = err.Error()
				}
				mu.Lock()
				deps[hc.Name()] = st
				mu.Unlock()
			}(checker)
		}
		wg.Wait()

		status, code := "healthy", http.StatusOK
		for _, d := range deps {
			if d.Status != "healthy" {
				status, code = "degraded", http.StatusServiceUnavailable
				break
			}
		}

		c.JSON(code, gin.H{
			"status":       status,
			"dependencies": deps,
		})
	}
}
