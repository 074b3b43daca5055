package storage

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	apperrors "github.com/burn-tracker/internal/errors"
	"github.com/redis/go-redis/v9"
)

// CacheService fronts the hot read paths (recent burns, latest burn,
// aggregate stats, daily rows) with short-TTL JSON entries. The cache is
// never the source of truth: every entry is rebuilt from Postgres on miss
// and the whole namespace is dropped after each successful ingestion.
type CacheService struct {
	redis *RedisCache
	ttl   time.Duration
}

// NewCacheService creates a new cache service
func NewCacheService(redis *RedisCache, ttl time.Duration) *CacheService {
	return &CacheService{
		redis: redis,
		ttl:   ttl,
	}
}

// Cache key namespaces. Everything lives under burns: so a single pattern
// delete invalidates the lot.
const (
	keyPrefixBurns = "burns"
)

// KeyRecent is the cache key for a recent-transactions window.
// Format: burns:recent:<limit>
func (c *CacheService) KeyRecent(limit int) string {
	return fmt.Sprintf("%s:recent:%d", keyPrefixBurns, limit)
}

// KeyLatest is the cache key for the latest burn transaction.
func (c *CacheService) KeyLatest() string {
	return keyPrefixBurns + ":latest"
}

// KeyStats is the cache key for aggregate burn statistics.
func (c *CacheService) KeyStats() string {
	return keyPrefixBurns + ":stats"
}

// KeyDailySince is the cache key for the ascending daily series.
// Format: burns:daily:<start-date>
func (c *CacheService) KeyDailySince(start string) string {
	return fmt.Sprintf("%s:daily:%s", keyPrefixBurns, start)
}

// Set stores a value in cache with the configured TTL
func (c *CacheService) Set(ctx context.Context, key string, value interface{}) error {
	data, err := json.Marshal(value)
	if err != nil {
		return apperrors.NewCacheError("marshal", err)
	}

	if err := c.redis.Set(ctx, key, data, c.ttl); err != nil {
		return apperrors.NewCacheError("set", err)
	}
	return nil
}

// Get retrieves a value from cache and deserializes it. The boolean
// reports a hit; a miss is not an error.
func (c *CacheService) Get(ctx context.Context, key string, dest interface{}) (bool, error) {
	data, err := c.redis.Get(ctx, key)
	if err != nil {
		if errors.Is(err, redis.Nil) {
			return false, nil
		}
		return false, apperrors.NewCacheError("get", err)
	}

	if err := json.Unmarshal([]byte(data), dest); err != nil {
		return false, apperrors.NewCacheError("unmarshal", err)
	}

	return true, nil
}

// InvalidateAll drops every cached read. Called after each successful
// ingestion cycle so readers never see pre-ingest aggregates past the TTL.
func (c *CacheService) InvalidateAll(ctx context.Context) error {
	keys, err := c.redis.Keys(ctx, keyPrefixBurns+":*")
	if err != nil {
		return apperrors.NewCacheError("scan keys", err)
	}

	if len(keys) == 0 {
		return nil
	}

	if err := c.redis.Del(ctx, keys...); err != nil {
		return apperrors.NewCacheError("delete keys", err)
	}
	return nil
}

// TTL returns the configured TTL for this cache service
func (c *CacheService) TTL() time.Duration {
	return c.ttl
}
