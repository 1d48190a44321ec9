package redis

import (
	"context"
	"testing"
	"time"

	"github.com/alicebob/miniredis/v2"
	goredis "github.com/redis/go-redis/v9"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type cachedReward struct {
	TxHash string `json:"tx_hash"`
	Amount string `json:"amount"`
}

func TestIdempotencyCache_StoreAndLoad(t *testing.T) {
	s := miniredis.RunT(t)
	client := goredis.NewClient(&goredis.Options{Addr: s.Addr()})
	cache := NewIdempotencyCache(client)
	ctx := context.Background()

	var got cachedReward
	found, err := cache.Load(ctx, "reward:req-1", &got)
	require.NoError(t, err)
	assert.False(t, found)

	require.NoError(t, cache.Store(ctx, "reward:req-1", cachedReward{TxHash: "0xabc", Amount: "10"}, 24*time.Hour))

	found, err = cache.Load(ctx, "reward:req-1", &got)
	require.NoError(t, err)
	assert.True(t, found)
	assert.Equal(t, "0xabc", got.TxHash)
	assert.Equal(t, 24*time.Hour, s.TTL("idempotency:reward:req-1"))
}

func TestIdempotencyCache_Expires(t *testing.T) {
	s := miniredis.RunT(t)
	client := goredis.NewClient(&goredis.Options{Addr: s.Addr()})
	cache := NewIdempotencyCache(client)
	ctx := context.Background()

	require.NoError(t, cache.Store(ctx, "k", cachedReward{TxHash: "0x1"}, time.Second))
	s.FastForward(2 * time.Second)

	var got cachedReward
	found, err := cache.Load(ctx, "k", &got)
	require.NoError(t, err)
	assert.False(t, found)
}

func TestIdempotencyCache_CorruptValue(t *testing.T) {
	s := miniredis.RunT(t)
	client := goredis.NewClient(&goredis.Options{Addr: s.Addr()})
	cache := NewIdempotencyCache(client)
	require.NoError(t, s.Set("idempotency:bad", "not-json"))

	var got cachedReward
	_, err := cache.Load(context.Background(), "bad", &got)
	assert.Error(t, err)
}
