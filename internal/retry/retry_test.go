package retry

import (
	"context"
	"errors"
	"fmt"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
)

func fastConfig(attempts int) *Config {
	return &Config{
		MaxAttempts:  attempts,
		InitialDelay: time.Millisecond,
		MaxDelay:     5 * time.Millisecond,
		Multiplier:   2.0,
	}
}

func TestWithExponentialBackoff_SucceedsAfterFailures(t *testing.T) {
	calls := 0
	result := WithExponentialBackoff(context.Background(), fastConfig(5), func(ctx context.Context, attempt int) error {
		calls++
		if attempt < 3 {
			return errors.New("transient")
		}
		return nil
	})

	assert.True(t, result.Success)
	assert.Equal(t, 3, result.Attempts)
	assert.Equal(t, 3, calls)
	assert.NoError(t, result.LastError)
}

func TestWithExponentialBackoff_GivesUp(t *testing.T) {
	boom := errors.New("boom")
	result := WithExponentialBackoff(context.Background(), fastConfig(3), func(ctx context.Context, attempt int) error {
		return boom
	})

	assert.False(t, result.Success)
	assert.Equal(t, 3, result.Attempts)
	assert.ErrorIs(t, result.LastError, boom)
}

func TestWithExponentialBackoff_StopsOnNonRetryable(t *testing.T) {
	fatal := errors.New("bad request")
	config := fastConfig(5)
	config.ShouldRetry = func(err error) bool { return !errors.Is(err, fatal) }

	calls := 0
	result := WithExponentialBackoff(context.Background(), config, func(ctx context.Context, attempt int) error {
		calls++
		return fatal
	})

	assert.False(t, result.Success)
	assert.Equal(t, 1, calls)
	assert.ErrorIs(t, result.LastError, fatal)
}

func TestWithExponentialBackoff_ContextCancelled(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	config := &Config{MaxAttempts: 5, InitialDelay: time.Hour, MaxDelay: time.Hour, Multiplier: 1}

	result := WithExponentialBackoff(ctx, config, func(ctx context.Context, attempt int) error {
		cancel()
		return errors.New("transient")
	})

	assert.False(t, result.Success)
	assert.Equal(t, 1, result.Attempts)
	assert.ErrorIs(t, result.LastError, context.Canceled)
}

func TestWithExponentialBackoff_ZeroAttemptsRunsOnce(t *testing.T) {
	calls := 0
	result := WithExponentialBackoff(context.Background(), fastConfig(0), func(ctx context.Context, attempt int) error {
		calls++
		return nil
	})
	assert.True(t, result.Success)
	assert.Equal(t, 1, calls)
}

func TestCalculateDelay(t *testing.T) {
	config := &Config{InitialDelay: 100 * time.Millisecond, MaxDelay: 350 * time.Millisecond, Multiplier: 2}

	assert.Equal(t, 100*time.Millisecond, calculateDelay(config, 1))
	assert.Equal(t, 200*time.Millisecond, calculateDelay(config, 2))
	assert.Equal(t, 350*time.Millisecond, calculateDelay(config, 3))
}

type throttled struct{ wait time.Duration }

func (e throttled) Error() string             { return "429" }
func (e throttled) RetryAfter() time.Duration { return e.wait }

func TestNextDelay_HonorsServerHint(t *testing.T) {
	config := &Config{InitialDelay: 10 * time.Millisecond, MaxDelay: time.Second, Multiplier: 2}

	assert.Equal(t, 10*time.Millisecond, nextDelay(config, 1, errors.New("503")))
	assert.Equal(t, 300*time.Millisecond, nextDelay(config, 1, fmt.Errorf("wrapped: %w", throttled{300 * time.Millisecond})))
	assert.Equal(t, time.Second, nextDelay(config, 1, throttled{time.Minute}), "hints are capped by MaxDelay")
	assert.Equal(t, 20*time.Millisecond, nextDelay(config, 2, throttled{time.Millisecond}), "a shorter hint does not shorten backoff")
}

func TestJitter(t *testing.T) {
	assert.Equal(t, time.Second, jitter(time.Second, 0))
	for i := 0; i < 100; i++ {
		d := jitter(time.Second, 0.2)
		assert.GreaterOrEqual(t, d, 800*time.Millisecond)
		assert.LessOrEqual(t, d, 1200*time.Millisecond)
	}
}
