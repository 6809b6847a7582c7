package circuitbreaker

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type fakeClock struct{ t time.Time }

func (c *fakeClock) now() time.Time          { return c.t }
func (c *fakeClock) advance(d time.Duration) { c.t = c.t.Add(d) }

var errUpstream = errors.New("upstream 503")

func testBreaker(clock *fakeClock) *CircuitBreaker {
	return newWithClock(&Config{
		Name:             "oli",
		MinCalls:         4,
		FailureThreshold: 0.5,
		MaxConsecutive:   3,
		Timeout:          10 * time.Second,
		HalfOpenMaxCalls: 2,
	}, clock.now)
}

func fail() error    { return errUpstream }
func succeed() error { return nil }

func TestCircuitBreaker_OpensOnConsecutiveFailures(t *testing.T) {
	clock := &fakeClock{t: time.Unix(1_700_000_000, 0)}
	cb := testBreaker(clock)
	ctx := context.Background()

	for i := 0; i < 3; i++ {
		assert.ErrorIs(t, cb.Execute(ctx, fail), errUpstream)
	}
	assert.Equal(t, StateOpen, cb.GetState())

	called := false
	err := cb.Execute(ctx, func() error { called = true; return nil })
	assert.ErrorIs(t, err, ErrCircuitOpen)
	assert.False(t, called)
}

func TestCircuitBreaker_OpensOnFailureRate(t *testing.T) {
	clock := &fakeClock{t: time.Unix(1_700_000_000, 0)}
	cb := testBreaker(clock)
	ctx := context.Background()

	require.NoError(t, cb.Execute(ctx, succeed))
	_ = cb.Execute(ctx, fail)
	require.NoError(t, cb.Execute(ctx, succeed))
	assert.Equal(t, StateClosed, cb.GetState())

	_ = cb.Execute(ctx, fail)
	assert.Equal(t, StateOpen, cb.GetState())
	assert.InDelta(t, 0.5, cb.GetStats().FailureRate, 0.001)
}

func TestCircuitBreaker_HalfOpenRecovery(t *testing.T) {
	clock := &fakeClock{t: time.Unix(1_700_000_000, 0)}
	cb := testBreaker(clock)
	ctx := context.Background()

	for i := 0; i < 3; i++ {
		_ = cb.Execute(ctx, fail)
	}
	require.Equal(t, StateOpen, cb.GetState())

	clock.advance(11 * time.Second)
	require.NoError(t, cb.Execute(ctx, succeed))
	assert.Equal(t, StateHalfOpen, cb.GetState())

	require.NoError(t, cb.Execute(ctx, succeed))
	assert.Equal(t, StateClosed, cb.GetState())
}

func TestCircuitBreaker_HalfOpenFailureReopens(t *testing.T) {
	clock := &fakeClock{t: time.Unix(1_700_000_000, 0)}
	cb := testBreaker(clock)
	ctx := context.Background()

	for i := 0; i < 3; i++ {
		_ = cb.Execute(ctx, fail)
	}
	clock.advance(11 * time.Second)

	assert.ErrorIs(t, cb.Execute(ctx, fail), errUpstream)
	assert.Equal(t, StateOpen, cb.GetState())
	assert.ErrorIs(t, cb.Execute(ctx, succeed), ErrCircuitOpen)
}

func TestCircuitBreaker_IgnoresNonFailures(t *testing.T) {
	clock := &fakeClock{t: time.Unix(1_700_000_000, 0)}
	notFound := errors.New("404")
	cb := newWithClock(&Config{
		Name:           "oli",
		MaxConsecutive: 1,
		Timeout:        time.Second,
		IsFailure:      func(err error) bool { return !errors.Is(err, notFound) },
	}, clock.now)

	for i := 0; i < 5; i++ {
		assert.ErrorIs(t, cb.Execute(context.Background(), func() error { return notFound }), notFound)
	}
	assert.Equal(t, StateClosed, cb.GetState())
}

func TestCircuitBreaker_CancelledContextNotCounted(t *testing.T) {
	clock := &fakeClock{t: time.Unix(1_700_000_000, 0)}
	cb := testBreaker(clock)
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	for i := 0; i < 5; i++ {
		_ = cb.Execute(ctx, func() error { return ctx.Err() })
	}
	assert.Equal(t, StateClosed, cb.GetState())
	assert.Equal(t, 0, cb.GetStats().TotalCalls)
}

func TestCircuitBreaker_Reset(t *testing.T) {
	clock := &fakeClock{t: time.Unix(1_700_000_000, 0)}
	cb := testBreaker(clock)

	for i := 0; i < 3; i++ {
		_ = cb.Execute(context.Background(), fail)
	}
	cb.Reset()

	stats := cb.GetStats()
	assert.Equal(t, StateClosed, stats.State)
	assert.Zero(t, stats.Failures)
	assert.Equal(t, "oli", stats.Name)
}

func TestCircuitBreaker_OldFailuresLeaveWindow(t *testing.T) {
	clock := &fakeClock{t: time.Unix(1_700_000_000, 0)}
	cb := newWithClock(&Config{
		Name:             "oli",
		WindowSize:       4,
		MinCalls:         4,
		FailureThreshold: 0.75,
		Timeout:          time.Second,
	}, clock.now)
	ctx := context.Background()

	_ = cb.Execute(ctx, fail)
	_ = cb.Execute(ctx, fail)
	for i := 0; i < 4; i++ {
		require.NoError(t, cb.Execute(ctx, succeed))
	}
	stats := cb.GetStats()
	assert.Zero(t, stats.Failures)
	assert.Equal(t, 4, stats.TotalCalls)

	_ = cb.Execute(ctx, fail)
	_ = cb.Execute(ctx, fail)
	assert.Equal(t, StateClosed, cb.GetState())
	_ = cb.Execute(ctx, fail)
	assert.Equal(t, StateOpen, cb.GetState())
}

func TestCircuitBreaker_OnStateChange(t *testing.T) {
	clock := &fakeClock{t: time.Unix(1_700_000_000, 0)}
	var transitions []State
	cb := newWithClock(&Config{
		Name:             "oli",
		MaxConsecutive:   1,
		Timeout:          time.Second,
		HalfOpenMaxCalls: 1,
		OnStateChange: func(name string, from, to State) {
			assert.Equal(t, "oli", name)
			transitions = append(transitions, to)
		},
	}, clock.now)
	ctx := context.Background()

	_ = cb.Execute(ctx, fail)
	clock.advance(2 * time.Second)
	require.NoError(t, cb.Execute(ctx, succeed))

	assert.Equal(t, []State{StateOpen, StateHalfOpen, StateClosed}, transitions)
}

func TestCircuitBreaker_HalfOpenLimitsTrials(t *testing.T) {
	clock := &fakeClock{t: time.Unix(1_700_000_000, 0)}
	cb := newWithClock(&Config{
		Name:             "oli",
		MaxConsecutive:   1,
		Timeout:          time.Second,
		HalfOpenMaxCalls: 1,
	}, clock.now)
	ctx := context.Background()

	_ = cb.Execute(ctx, fail)
	clock.advance(2 * time.Second)

	started := make(chan struct{})
	release := make(chan struct{})
	done := make(chan error, 1)
	go func() {
		done <- cb.Execute(ctx, func() error {
			close(started)
			<-release
			return nil
		})
	}()

	<-started
	assert.ErrorIs(t, cb.Execute(ctx, succeed), ErrTooManyRequests)

	close(release)
	require.NoError(t, <-done)
	assert.Equal(t, StateClosed, cb.GetState())
}
