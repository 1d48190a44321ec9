package redis

import (
	"context"
	"fmt"
	"time"

	"campus-token-ledger/config"

	goredis "github.com/redis/go-redis/v9"
	"github.com/rs/zerolog"
)

const healthKey = "health:write-probe"

// NewClient connects to Redis and pings it once before handing the client out.
func NewClient(ctx context.Context, cfg config.RedisConfig, log zerolog.Logger) (*goredis.Client, error) {
	client := goredis.NewClient(&goredis.Options{
		Addr:        cfg.Addr(),
		Password:    cfg.Password,
		DB:          cfg.DB,
		DialTimeout: 5 * time.Second,
	})

	if err := client.Ping(ctx).Err(); err != nil {
		_ = client.Close()
		return nil, fmt.Errorf("pinging redis at %s: %w", cfg.Addr(), err)
	}

	log.Info().Str("addr", cfg.Addr()).Int("db", cfg.DB).Msg("Redis ready")
	return client, nil
}

// HealthCheck implements ports.HealthChecker. It probes with a short-lived
// write: the treasury lock and tx claims are useless on a read-only replica.
type HealthCheck struct {
	client *goredis.Client
}

func NewHealthCheck(client *goredis.Client) *HealthCheck {
	return &HealthCheck{client: client}
}

func (h *HealthCheck) Ping(ctx context.Context) error {
	return h.client.Set(ctx, healthKey, time.Now().Unix(), 5*time.Second).Err()
}

func (h *HealthCheck) Name() string {
	return "redis"
}
