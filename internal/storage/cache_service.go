package storage

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/url"
	"strconv"
	"strings"
	"time"

	"github.com/redis/go-redis/v9"

	"github.com/Aghostraa/oli-frontend/internal/logging"
)

// DefaultCacheTTL matches the lifetime upstream responses stay fresh
const DefaultCacheTTL = 30 * time.Second

// CacheKeyType is the first segment of every cache key
type CacheKeyType string

const (
	CacheKeySearch       CacheKeyType = "search"
	CacheKeyLabels       CacheKeyType = "labels"
	CacheKeyAttestations CacheKeyType = "attestations"
	CacheKeyLeaderboard  CacheKeyType = "leaderboard"
)

// CacheService stores JSON encoded upstream responses in Redis for a fixed TTL.
//
// Keys are colon separated: the key type, then request parameters in a fixed
// order. Parameters are trimmed and query-escaped, so a ':' inside a value
// cannot shift it into the next field. They keep their case because tag values
// are case sensitive; addresses are lowercased by the key builders that take
// them.
type CacheService struct {
	redis *RedisCache
	ttl   time.Duration
}

// NewCacheService creates a cache service; ttl <= 0 uses DefaultCacheTTL
func NewCacheService(redis *RedisCache, ttl time.Duration) *CacheService {
	if ttl <= 0 {
		ttl = DefaultCacheTTL
	}
	return &CacheService{redis: redis, ttl: ttl}
}

func cacheKey(keyType CacheKeyType, params ...string) string {
	var b strings.Builder
	b.WriteString(string(keyType))
	for _, param := range params {
		b.WriteByte(':')
		b.WriteString(url.QueryEscape(strings.TrimSpace(param)))
	}
	return b.String()
}

// SearchKey returns search:<tag>:<value>:<chain>:<limit>
func (c *CacheService) SearchKey(tagID, tagValue, chainID string, limit int) string {
	return cacheKey(CacheKeySearch, tagID, tagValue, chainID, strconv.Itoa(limit))
}

// LabelsKey returns labels:<address>:<chain>:<limit>:<includeAll>
func (c *CacheService) LabelsKey(address, chainID string, limit int, includeAll bool) string {
	return cacheKey(CacheKeyLabels, strings.ToLower(address), chainID, strconv.Itoa(limit), strconv.FormatBool(includeAll))
}

// AttestationsKey returns attestations:<recipient>:<attester>:<data>:<chain>:<limit>:<order>
func (c *CacheService) AttestationsKey(recipient, attester, dataContains, chainID string, limit int, order string) string {
	return cacheKey(CacheKeyAttestations, strings.ToLower(recipient), strings.ToLower(attester), dataContains, chainID, strconv.Itoa(limit), order)
}

// LeaderboardKey returns leaderboard:<order>:<chain>:<limit>
func (c *CacheService) LeaderboardKey(order, chainID string, limit int) string {
	return cacheKey(CacheKeyLeaderboard, order, chainID, strconv.Itoa(limit))
}

// Set stores value as JSON for the service TTL
func (c *CacheService) Set(ctx context.Context, key string, value interface{}) error {
	data, err := json.Marshal(value)
	if err != nil {
		return fmt.Errorf("encode cache entry %s: %w", key, err)
	}
	if err := c.redis.Set(ctx, key, data, c.ttl); err != nil {
		return fmt.Errorf("write cache entry %s: %w", key, err)
	}
	return nil
}

// Get decodes the entry under key into dest and reports whether it was found.
// An entry that no longer decodes is evicted so the next request refetches it.
func (c *CacheService) Get(ctx context.Context, key string, dest interface{}) (bool, error) {
	data, err := c.redis.Get(ctx, key)
	if errors.Is(err, redis.Nil) {
		return false, nil
	}
	if err != nil {
		return false, fmt.Errorf("read cache entry %s: %w", key, err)
	}

	if err := json.Unmarshal(data, dest); err != nil {
		if delErr := c.redis.Del(ctx, key); delErr != nil {
			logging.FromContext(ctx).WithError(delErr).WithField("key", key).Warn("Failed to evict corrupt cache entry")
		}
		return false, fmt.Errorf("decode cache entry %s: %w", key, err)
	}
	return true, nil
}

// TTL returns how long entries live
func (c *CacheService) TTL() time.Duration {
	return c.ttl
}
