package redis

import (
	"context"
	"crypto/rand"
	"encoding/hex"
	"errors"
	"fmt"
	"strings"
	"sync"
	"time"

	goredis "github.com/redis/go-redis/v9"
	"github.com/rs/zerolog"
)

// ErrLockTimeout is returned when the lock stays held by someone else for the whole wait budget.
var ErrLockTimeout = errors.New("treasury lock wait exceeded")

const lockRetryInterval = 50 * time.Millisecond

// releaseScript deletes the key only if it still holds our token.
var releaseScript = goredis.NewScript(`
if redis.call("GET", KEYS[1]) == ARGV[1] then
	return redis.call("DEL", KEYS[1])
end
return 0
`)

// TreasuryLock implements ports.TreasuryGuard with SET NX PX and a token-checked release.
type TreasuryLock struct {
	client *goredis.Client
	prefix string
	ttl    time.Duration
	wait   time.Duration
	log    zerolog.Logger
}

// NewTreasuryLock creates a lock whose hold expires after ttl and whose acquisition gives up after wait.
func NewTreasuryLock(client *goredis.Client, ttl, wait time.Duration, log zerolog.Logger) *TreasuryLock {
	return &TreasuryLock{
		client: client,
		prefix: "treasury-lock:",
		ttl:    ttl,
		wait:   wait,
		log:    log,
	}
}

// Acquire blocks until the lock is held, the wait budget runs out, or ctx ends.
func (l *TreasuryLock) Acquire(ctx context.Context, treasury string) (func(), error) {
	key := l.prefix + strings.ToLower(treasury)
	token, err := newLockToken()
	if err != nil {
		return nil, err
	}

	deadline := time.Now().Add(l.wait)
	for {
		ok, err := l.client.SetNX(ctx, key, token, l.ttl).Result()
		if err != nil {
			return nil, fmt.Errorf("redis treasury lock: %w", err)
		}
		if ok {
			break
		}
		if time.Now().After(deadline) {
			return nil, ErrLockTimeout
		}
		select {
		case <-ctx.Done():
			return nil, ctx.Err()
		case <-time.After(lockRetryInterval):
		}
	}

	var once sync.Once
	release := func() {
		once.Do(func() {
			// The caller's context may already be cancelled; the key must still go.
			rctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
			defer cancel()
			if err := releaseScript.Run(rctx, l.client, []string{key}, token).Err(); err != nil {
				l.log.Warn().Err(err).Str("key", key).Msg("treasury lock release failed, relying on TTL")
			}
		})
	}
	return release, nil
}

func newLockToken() (string, error) {
	b := make([]byte, 16)
	if _, err := rand.Read(b); err != nil {
		return "", fmt.Errorf("lock token: %w", err)
	}
	return hex.EncodeToString(b), nil
}
