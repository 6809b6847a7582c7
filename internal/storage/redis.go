package storage

import (
	"context"
	"fmt"
	"net"
	"time"

	"github.com/redis/go-redis/v9"

	"github.com/Aghostraa/oli-frontend/internal/config"
)

const redisConnectTimeout = 5 * time.Second

// RedisCache is the shared Redis connection used by the response cache and
// the distributed upstream budget
type RedisCache struct {
	client *redis.Client
}

func redisOptions(cfg *config.RedisConfig) *redis.Options {
	poolSize := cfg.MaxConnections
	if poolSize < 1 {
		poolSize = 10
	}
	return &redis.Options{
		Addr:     net.JoinHostPort(cfg.Host, cfg.Port),
		Password: cfg.Password,
		DB:       cfg.DB,
		PoolSize: poolSize,
		// a cache lookup must never hold a request longer than an upstream call
		DialTimeout:  redisConnectTimeout,
		ReadTimeout:  time.Second,
		WriteTimeout: time.Second,
		PoolTimeout:  2 * time.Second,
		MaxRetries:   1,
	}
}

// NewRedisCache connects and pings Redis
func NewRedisCache(ctx context.Context, cfg *config.RedisConfig) (*RedisCache, error) {
	client := redis.NewClient(redisOptions(cfg))

	pingCtx, cancel := context.WithTimeout(ctx, redisConnectTimeout)
	defer cancel()
	if err := client.Ping(pingCtx).Err(); err != nil {
		_ = client.Close()
		return nil, fmt.Errorf("redis ping %s: %w", client.Options().Addr, err)
	}

	return &RedisCache{client: client}, nil
}

// NewRedisCacheFromClient wraps an existing client
func NewRedisCacheFromClient(client *redis.Client) *RedisCache {
	return &RedisCache{client: client}
}

// Close releases the client; safe on a zero value
func (r *RedisCache) Close() error {
	if r.client == nil {
		return nil
	}
	return r.client.Close()
}

// Client exposes the go-redis client for scripts such as the upstream budget
func (r *RedisCache) Client() *redis.Client {
	return r.client
}

// Ping is used as the redis health check
func (r *RedisCache) Ping(ctx context.Context) error {
	return r.client.Ping(ctx).Err()
}

// Set stores raw bytes under key for ttl
func (r *RedisCache) Set(ctx context.Context, key string, value []byte, ttl time.Duration) error {
	return r.client.Set(ctx, key, value, ttl).Err()
}

// Get returns the bytes under key; a missing key returns redis.Nil
func (r *RedisCache) Get(ctx context.Context, key string) ([]byte, error) {
	return r.client.Get(ctx, key).Bytes()
}

// Del removes keys, ignoring ones that do not exist
func (r *RedisCache) Del(ctx context.Context, keys ...string) error {
	if len(keys) == 0 {
		return nil
	}
	return r.client.Del(ctx, keys...).Err()
}
