package redis

import (
	"context"
	"fmt"
	"strings"
	"time"

	goredis "github.com/redis/go-redis/v9"
)

// TxClaims implements ports.TxHashRegistry using Redis SET NX.
// The claim only fences concurrent redemptions; orders.tx_hash is the durable record.
type TxClaims struct {
	client *goredis.Client
	prefix string
	ttl    time.Duration
}

// NewTxClaims creates a claim registry whose entries expire after ttl.
func NewTxClaims(client *goredis.Client, ttl time.Duration) *TxClaims {
	return &TxClaims{
		client: client,
		prefix: "txclaim:",
		ttl:    ttl,
	}
}

// Claim returns true if nobody holds a claim on txHash.
func (s *TxClaims) Claim(ctx context.Context, txHash string) (bool, error) {
	result, err := s.client.SetArgs(ctx, s.key(txHash), 1, goredis.SetArgs{
		Mode: "NX",
		TTL:  s.ttl,
	}).Result()
	if err != nil {
		if err == goredis.Nil {
			return false, nil
		}
		return false, fmt.Errorf("redis tx claim: %w", err)
	}
	return result == "OK", nil
}

// Release drops a claim so a failed verification can be retried.
func (s *TxClaims) Release(ctx context.Context, txHash string) error {
	if err := s.client.Del(ctx, s.key(txHash)).Err(); err != nil {
		return fmt.Errorf("redis tx claim release: %w", err)
	}
	return nil
}

func (s *TxClaims) key(txHash string) string {
	return s.prefix + strings.ToLower(txHash)
}
