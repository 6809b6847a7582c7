// Package retry repeats failed upstream calls with exponential backoff.
package retry

import (
	"context"
	"errors"
	"math"
	"math/rand"
	"time"

	"github.com/Aghostraa/oli-frontend/internal/logging"
)

// Config configures retry behavior
type Config struct {
	MaxAttempts  int           // attempts including the first
	InitialDelay time.Duration // delay before the first retry
	MaxDelay     time.Duration // cap on any single delay, including server hints
	Multiplier   float64
	Jitter       float64 // fraction of each delay randomized, 0 disables
	// ShouldRetry decides whether an error is worth another attempt. Nil
	// retries every error.
	ShouldRetry func(err error) bool
}

// DefaultConfig returns the backoff used for upstream calls:
// 250ms, 500ms, 1s ... capped at 5s, each ±20%
func DefaultConfig() *Config {
	return &Config{
		MaxAttempts:  3,
		InitialDelay: 250 * time.Millisecond,
		MaxDelay:     5 * time.Second,
		Multiplier:   2.0,
		Jitter:       0.2,
	}
}

// Hinted is implemented by errors that carry a server-requested wait, such
// as a 429 with Retry-After
type Hinted interface {
	RetryAfter() time.Duration
}

// Result describes how a retried call ended
type Result struct {
	Attempts      int
	Success       bool
	TotalDuration time.Duration
	LastError     error
}

// Func is one attempt; attempt starts at 1
type Func func(ctx context.Context, attempt int) error

// WithExponentialBackoff calls fn until it succeeds, ShouldRetry rejects the
// error, attempts run out or ctx is done
func WithExponentialBackoff(ctx context.Context, config *Config, fn Func) *Result {
	if config == nil {
		config = DefaultConfig()
	}
	maxAttempts := max(config.MaxAttempts, 1)

	logger := logging.FromContext(ctx)
	start := time.Now()
	result := &Result{}
	defer func() { result.TotalDuration = time.Since(start) }()

	for attempt := 1; ; attempt++ {
		result.Attempts = attempt
		err := fn(ctx, attempt)
		if err == nil {
			result.Success = true
			result.LastError = nil
			if attempt > 1 {
				logger.WithField("attempts", attempt).Info("Operation succeeded after retry")
			}
			return result
		}
		result.LastError = err

		switch {
		case config.ShouldRetry != nil && !config.ShouldRetry(err):
			return result
		case attempt >= maxAttempts:
			logger.WithError(err).WithField("attempts", attempt).Warn("Giving up after max retry attempts")
			return result
		case ctx.Err() != nil:
			result.LastError = ctx.Err()
			return result
		}

		delay := nextDelay(config, attempt, err)
		logger.WithError(err).WithFields(map[string]interface{}{
			"attempt": attempt,
			"delay":   delay.String(),
		}).Debug("Retrying")

		timer := time.NewTimer(delay)
		select {
		case <-timer.C:
		case <-ctx.Done():
			timer.Stop()
			result.LastError = ctx.Err()
			return result
		}
	}
}

// nextDelay prefers a server hint over the computed backoff when it is longer
func nextDelay(config *Config, attempt int, err error) time.Duration {
	delay := jitter(calculateDelay(config, attempt), config.Jitter)

	var hinted Hinted
	if errors.As(err, &hinted) && hinted.RetryAfter() > delay {
		delay = hinted.RetryAfter()
	}
	if config.MaxDelay > 0 && delay > config.MaxDelay {
		delay = config.MaxDelay
	}
	return delay
}

// calculateDelay returns InitialDelay * Multiplier^(attempt-1), capped at MaxDelay
func calculateDelay(config *Config, attempt int) time.Duration {
	delay := float64(config.InitialDelay) * math.Pow(config.Multiplier, float64(attempt-1))
	if config.MaxDelay > 0 && delay > float64(config.MaxDelay) {
		delay = float64(config.MaxDelay)
	}
	return time.Duration(delay)
}

func jitter(d time.Duration, fraction float64) time.Duration {
	if fraction <= 0 || d <= 0 {
		return d
	}
	spread := float64(d) * fraction
	return time.Duration(float64(d) - spread + rand.Float64()*2*spread) // #nosec G404 - backoff spread, not security
}
