package storage

import (
	"context"
	"testing"
	"time"

	"github.com/alicebob/miniredis/v2"
	"github.com/redis/go-redis/v9"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/burn-tracker/internal/models"
)

func newTestCache(t *testing.T) (*CacheService, *miniredis.Miniredis) {
	t.Helper()

	mr := miniredis.RunT(t)
	client := redis.NewClient(&redis.Options{Addr: mr.Addr()})
	t.Cleanup(func() { client.Close() })

	return NewCacheService(NewRedisCacheFromClient(client), 20*time.Second), mr
}

func TestCacheService_SetGet(t *testing.T) {
	cache, _ := newTestCache(t)
	ctx := context.Background()

	price := 7.5
	burns := []*models.BurnTransaction{
		{TxHash: "0xa", BlockNumber: 100, Timestamp: time.Date(2024, 1, 5, 12, 0, 0, 0, time.UTC), UniAmount: 10, UniPriceUSD: &price},
	}

	require.NoError(t, cache.Set(ctx, cache.KeyRecent(5), burns))

	var got []*models.BurnTransaction
	hit, err := cache.Get(ctx, cache.KeyRecent(5), &got)
	require.NoError(t, err)
	require.True(t, hit)
	require.Len(t, got, 1)
	assert.Equal(t, "0xa", got[0].TxHash)
	require.NotNil(t, got[0].UniPriceUSD)
	assert.Equal(t, 7.5, *got[0].UniPriceUSD)
}

func TestCacheService_Miss(t *testing.T) {
	cache, _ := newTestCache(t)

	var got []*models.BurnTransaction
	hit, err := cache.Get(context.Background(), cache.KeyRecent(5), &got)
	require.NoError(t, err, "a miss is not an error")
	assert.False(t, hit)
}

func TestCacheService_Expiry(t *testing.T) {
	cache, mr := newTestCache(t)
	ctx := context.Background()

	require.NoError(t, cache.Set(ctx, cache.KeyLatest(), &models.BurnTransaction{TxHash: "0xa"}))

	mr.FastForward(21 * time.Second)

	var got models.BurnTransaction
	hit, err := cache.Get(ctx, cache.KeyLatest(), &got)
	require.NoError(t, err)
	assert.False(t, hit, "entries expire after the TTL")
}

func TestCacheService_InvalidateAll(t *testing.T) {
	cache, _ := newTestCache(t)
	ctx := context.Background()

	require.NoError(t, cache.Set(ctx, cache.KeyRecent(5), []string{"a"}))
	require.NoError(t, cache.Set(ctx, cache.KeyStats(), map[string]float64{"total": 1}))
	require.NoError(t, cache.Set(ctx, cache.KeyDailySince("2024-01-01"), []string{"b"}))

	require.NoError(t, cache.InvalidateAll(ctx))

	for _, key := range []string{cache.KeyRecent(5), cache.KeyStats(), cache.KeyDailySince("2024-01-01")} {
		var got interface{}
		hit, err := cache.Get(ctx, key, &got)
		require.NoError(t, err)
		assert.False(t, hit, "key %s should be gone", key)
	}
}

func TestCacheService_InvalidateAllEmpty(t *testing.T) {
	cache, _ := newTestCache(t)
	assert.NoError(t, cache.InvalidateAll(context.Background()), "invalidating an empty namespace is a no-op")
}

func TestCacheService_KeyShapes(t *testing.T) {
	cache, _ := newTestCache(t)

	assert.Equal(t, "burns:recent:5", cache.KeyRecent(5))
	assert.Equal(t, "burns:latest", cache.KeyLatest())
	assert.Equal(t, "burns:stats", cache.KeyStats())
	assert.Equal(t, "burns:daily:2024-01-01", cache.KeyDailySince("2024-01-01"))
}
