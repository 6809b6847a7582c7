// Package ratelimit shares a per-window request budget for the OLI backend
// between gateway replicas through Redis.
package ratelimit

import (
	"context"
	"errors"
	"fmt"
	"strconv"
	"time"

	"github.com/redis/go-redis/v9"

	"github.com/Aghostraa/oli-frontend/internal/logging"
)

// Default budget configuration values.
const (
	DefaultWindowSize = time.Second
	DefaultKeyPrefix  = "oli:budget:"
)

// Priority selects the pool a request draws from.
type Priority int

const (
	// PriorityHigh is for interactive lookups (reserved pool).
	PriorityHigh Priority = iota
	// PriorityLow is for analytics and other best-effort calls (shared pool).
	PriorityLow
)

// String returns a string representation of the priority level.
func (p Priority) String() string {
	switch p {
	case PriorityHigh:
		return "high"
	case PriorityLow:
		return "low"
	default:
		return "unknown"
	}
}

// consumeScript checks both the total and the pool counter and increments
// them together, so concurrent replicas never overshoot the budget.
var consumeScript = redis.NewScript(`
	local totalKey = KEYS[1]
	local poolKey = KEYS[2]
	local cost = tonumber(ARGV[1])
	local totalBudget = tonumber(ARGV[2])
	local poolBudget = tonumber(ARGV[3])
	local ttl = tonumber(ARGV[4])

	local totalUsed = tonumber(redis.call('GET', totalKey) or '0')
	local poolUsed = tonumber(redis.call('GET', poolKey) or '0')

	if totalUsed + cost > totalBudget or poolUsed + cost > poolBudget then
		return {0, totalUsed, poolUsed}
	end

	redis.call('INCRBY', totalKey, cost)
	redis.call('EXPIRE', totalKey, ttl)
	redis.call('INCRBY', poolKey, cost)
	redis.call('EXPIRE', poolKey, ttl)

	return {1, totalUsed + cost, poolUsed + cost}
`)

// Config holds configuration for a Budget.
type Config struct {
	// Redis is required; the budget is only meaningful when shared.
	Redis redis.Cmdable

	// TotalBudget is the number of backend requests allowed per window.
	TotalBudget int

	// ReservedBudget is the part of TotalBudget only PriorityHigh may use.
	ReservedBudget int

	// WindowSize is the fixed window duration. Default: 1s.
	WindowSize time.Duration

	// KeyPrefix namespaces the Redis counters. Default: "oli:budget:".
	KeyPrefix string
}

// Validate checks if the configuration is valid.
func (c *Config) Validate() error {
	if c.Redis == nil {
		return errors.New("redis client is required")
	}
	if c.TotalBudget <= 0 {
		return errors.New("total budget must be positive")
	}
	if c.ReservedBudget < 0 {
		return errors.New("reserved budget cannot be negative")
	}
	if c.ReservedBudget > c.TotalBudget {
		return fmt.Errorf("reserved budget (%d) cannot exceed total budget (%d)", c.ReservedBudget, c.TotalBudget)
	}
	return nil
}

// Usage is the consumption of the current window.
type Usage struct {
	TotalUsed      int       `json:"totalUsed"`
	ReservedUsed   int       `json:"reservedUsed"`
	SharedUsed     int       `json:"sharedUsed"`
	TotalBudget    int       `json:"totalBudget"`
	ReservedBudget int       `json:"reservedBudget"`
	SharedBudget   int       `json:"sharedBudget"`
	WindowStart    time.Time `json:"windowStart"`
}

// Budget coordinates backend request volume across replicas. PriorityHigh
// draws from the reserved pool and PriorityLow from the remainder; both
// count against the total.
type Budget struct {
	redis    redis.Cmdable
	total    int
	reserved int
	shared   int
	window   time.Duration
	ttl      time.Duration
	prefix   string
	now      func() time.Time
}

// NewBudget creates a new budget with the given configuration.
func NewBudget(cfg *Config) (*Budget, error) {
	if cfg == nil {
		return nil, errors.New("configuration is required")
	}
	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("invalid configuration: %w", err)
	}

	window := cfg.WindowSize
	if window <= 0 {
		window = DefaultWindowSize
	}
	prefix := cfg.KeyPrefix
	if prefix == "" {
		prefix = DefaultKeyPrefix
	}

	return &Budget{
		redis:    cfg.Redis,
		total:    cfg.TotalBudget,
		reserved: cfg.ReservedBudget,
		shared:   cfg.TotalBudget - cfg.ReservedBudget,
		window:   window,
		ttl:      2 * window,
		prefix:   prefix,
		now:      time.Now,
	}, nil
}

func (b *Budget) windowStart() time.Time {
	return b.now().Truncate(b.window)
}

func (b *Budget) keys(start time.Time) (total, reserved, shared string) {
	ts := strconv.FormatInt(start.UnixMilli(), 10)
	return b.prefix + "total:" + ts, b.prefix + "reserved:" + ts, b.prefix + "shared:" + ts
}

// TryConsume takes cost from the pool of priority. When the pool or the total
// is exhausted it reports false and the time until the next window.
func (b *Budget) TryConsume(ctx context.Context, cost int, priority Priority) (bool, time.Duration, error) {
	if cost <= 0 {
		return true, 0, nil
	}

	start := b.windowStart()
	totalKey, reservedKey, sharedKey := b.keys(start)

	poolKey, poolBudget := sharedKey, b.shared
	if priority == PriorityHigh {
		poolKey, poolBudget = reservedKey, b.reserved
	}

	ttlSeconds := int(b.ttl.Seconds())
	if ttlSeconds < 1 {
		ttlSeconds = 1
	}

	result, err := consumeScript.Run(ctx, b.redis, []string{totalKey, poolKey},
		cost, b.total, poolBudget, ttlSeconds).Int64Slice()
	if err != nil {
		return false, 0, fmt.Errorf("budget script failed: %w", err)
	}

	if result[0] == 1 {
		return true, 0, nil
	}
	return false, b.untilNextWindow(start), nil
}

func (b *Budget) untilNextWindow(start time.Time) time.Duration {
	wait := start.Add(b.window).Sub(b.now())
	if wait < 0 {
		wait = 0
	}
	return wait + time.Millisecond
}

// Wait blocks until one request fits the budget or ctx is done. Redis errors
// let the request through so an unhealthy cache never stops the gateway.
func (b *Budget) Wait(ctx context.Context, priority Priority) error {
	for {
		allowed, wait, err := b.TryConsume(ctx, 1, priority)
		if err != nil {
			logging.FromContext(ctx).WithError(err).WithField("priority", priority.String()).
				Warn("Request budget unavailable, continuing without it")
			return nil
		}
		if allowed {
			return nil
		}

		timer := time.NewTimer(wait)
		select {
		case <-ctx.Done():
			timer.Stop()
			return ctx.Err()
		case <-timer.C:
		}
	}
}

// Usage returns the consumption of the current window.
func (b *Budget) Usage(ctx context.Context) (*Usage, error) {
	start := b.windowStart()
	totalKey, reservedKey, sharedKey := b.keys(start)

	pipe := b.redis.Pipeline()
	totalCmd := pipe.Get(ctx, totalKey)
	reservedCmd := pipe.Get(ctx, reservedKey)
	sharedCmd := pipe.Get(ctx, sharedKey)
	if _, err := pipe.Exec(ctx); err != nil && !errors.Is(err, redis.Nil) {
		return nil, fmt.Errorf("failed to read budget usage: %w", err)
	}

	return &Usage{
		TotalUsed:      intOrZero(totalCmd),
		ReservedUsed:   intOrZero(reservedCmd),
		SharedUsed:     intOrZero(sharedCmd),
		TotalBudget:    b.total,
		ReservedBudget: b.reserved,
		SharedBudget:   b.shared,
		WindowStart:    start,
	}, nil
}

// intOrZero treats missing keys as zero.
func intOrZero(cmd *redis.StringCmd) int {
	val, err := cmd.Int()
	if err != nil {
		return 0
	}
	return val
}
