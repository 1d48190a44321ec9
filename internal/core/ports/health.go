package ports

import "context"

// HealthChecker is one dependency reported by GET /health.
type HealthChecker interface {
	Name() string
	Ping(ctx context.Context) error
}
