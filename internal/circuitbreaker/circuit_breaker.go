// Package circuitbreaker stops calls to an upstream that keeps failing and
// tries it again after a cool-down.
package circuitbreaker

import (
	"context"
	"errors"
	"sync"
	"time"

	"github.com/Aghostraa/oli-frontend/internal/logging"
)

// State is the breaker position
type State string

const (
	StateClosed   State = "closed"
	StateOpen     State = "open"
	StateHalfOpen State = "half_open"
)

// ErrCircuitOpen is returned without calling the upstream while the breaker is open
var ErrCircuitOpen = errors.New("circuit breaker is open")

// ErrTooManyRequests is returned when every half-open trial slot is taken
var ErrTooManyRequests = errors.New("too many requests in half-open state")

// Config configures a circuit breaker
type Config struct {
	Name             string
	WindowSize       int           // most recent outcomes the failure rate is computed over
	MinCalls         int           // outcomes in the window before the rate is considered
	FailureThreshold float64       // failure rate (0.0-1.0) that opens the circuit, 0 disables
	MaxConsecutive   int           // consecutive failures that open the circuit, 0 disables
	Timeout          time.Duration // open duration before probing
	HalfOpenMaxCalls int           // successful trial calls needed to close again
	// IsFailure decides whether an error counts against the upstream. Nil
	// counts every error.
	IsFailure func(err error) bool
	// OnStateChange is called with the breaker lock held; it must not call
	// back into the breaker.
	OnStateChange func(name string, from, to State)
}

// DefaultConfig returns the settings used for the OLI backend
func DefaultConfig(name string) *Config {
	return &Config{
		Name:             name,
		WindowSize:       20,
		MinCalls:         10,
		FailureThreshold: 0.5,
		MaxConsecutive:   5,
		Timeout:          30 * time.Second,
		HalfOpenMaxCalls: 3,
	}
}

// CircuitBreaker tracks recent upstream outcomes in a ring buffer
type CircuitBreaker struct {
	config Config
	now    func() time.Time

	mu               sync.RWMutex
	state            State
	window           []bool // true marks a failure
	next             int
	filled           int
	failures         int
	consecutiveFails int
	trials           int // half-open calls started
	trialSuccesses   int
	lastFailureTime  time.Time
	lastStateChange  time.Time
}

// NewCircuitBreaker creates a closed breaker; nil config uses DefaultConfig
func NewCircuitBreaker(config *Config) *CircuitBreaker {
	return newWithClock(config, time.Now)
}

func newWithClock(config *Config, now func() time.Time) *CircuitBreaker {
	if config == nil {
		config = DefaultConfig("default")
	}
	cfg := *config
	if cfg.HalfOpenMaxCalls < 1 {
		cfg.HalfOpenMaxCalls = 1
	}
	if cfg.WindowSize < cfg.MinCalls {
		cfg.WindowSize = cfg.MinCalls
	}
	if cfg.WindowSize < 1 {
		cfg.WindowSize = 1
	}
	return &CircuitBreaker{
		config:          cfg,
		now:             now,
		state:           StateClosed,
		window:          make([]bool, cfg.WindowSize),
		lastStateChange: now(),
	}
}

// Execute runs fn unless the circuit is open. An error returned after ctx was
// cancelled is not counted.
func (cb *CircuitBreaker) Execute(ctx context.Context, fn func() error) error {
	if err := cb.admit(); err != nil {
		return err
	}

	err := fn()

	cb.mu.Lock()
	defer cb.mu.Unlock()
	switch {
	case err != nil && ctx.Err() != nil:
		if cb.state == StateHalfOpen {
			cb.trials--
		}
	case err != nil && (cb.config.IsFailure == nil || cb.config.IsFailure(err)):
		cb.recordFailure()
	default:
		cb.recordSuccess()
	}
	return err
}

func (cb *CircuitBreaker) admit() error {
	cb.mu.Lock()
	defer cb.mu.Unlock()

	if cb.state == StateOpen {
		if cb.now().Sub(cb.lastStateChange) < cb.config.Timeout {
			return ErrCircuitOpen
		}
		cb.transition(StateHalfOpen)
	}
	if cb.state == StateHalfOpen {
		if cb.trials >= cb.config.HalfOpenMaxCalls {
			return ErrTooManyRequests
		}
		cb.trials++
	}
	return nil
}

func (cb *CircuitBreaker) push(failed bool) {
	if cb.filled == len(cb.window) {
		if cb.window[cb.next] {
			cb.failures--
		}
	} else {
		cb.filled++
	}
	cb.window[cb.next] = failed
	cb.next = (cb.next + 1) % len(cb.window)
	if failed {
		cb.failures++
	}
}

func (cb *CircuitBreaker) recordSuccess() {
	cb.consecutiveFails = 0
	switch cb.state {
	case StateHalfOpen:
		cb.trialSuccesses++
		if cb.trialSuccesses >= cb.config.HalfOpenMaxCalls {
			cb.transition(StateClosed)
		}
	case StateClosed:
		cb.push(false)
	}
}

func (cb *CircuitBreaker) recordFailure() {
	cb.consecutiveFails++
	cb.lastFailureTime = cb.now()
	switch cb.state {
	case StateHalfOpen:
		cb.transition(StateOpen)
	case StateClosed:
		cb.push(true)
		if cb.tripped() {
			cb.transition(StateOpen)
		}
	}
}

func (cb *CircuitBreaker) tripped() bool {
	if cb.config.MaxConsecutive > 0 && cb.consecutiveFails >= cb.config.MaxConsecutive {
		return true
	}
	if cb.config.FailureThreshold <= 0 {
		return false
	}
	return cb.filled >= cb.config.MinCalls && cb.failureRate() >= cb.config.FailureThreshold
}

func (cb *CircuitBreaker) failureRate() float64 {
	if cb.filled == 0 {
		return 0
	}
	return float64(cb.failures) / float64(cb.filled)
}

// transition moves to state and clears the counters that belong to the old one
func (cb *CircuitBreaker) transition(to State) {
	from := cb.state
	fields := map[string]interface{}{
		"circuitBreaker":   cb.config.Name,
		"from":             from,
		"to":               to,
		"failureRate":      cb.failureRate(),
		"consecutiveFails": cb.consecutiveFails,
	}

	cb.state = to
	cb.lastStateChange = cb.now()
	cb.trials = 0
	cb.trialSuccesses = 0
	if to == StateClosed {
		cb.clearWindow()
	}

	if to == StateOpen {
		logging.WithFields(fields).Warn("Circuit breaker opened")
	} else {
		logging.WithFields(fields).Info("Circuit breaker state changed")
	}
	if cb.config.OnStateChange != nil {
		cb.config.OnStateChange(cb.config.Name, from, to)
	}
}

func (cb *CircuitBreaker) clearWindow() {
	for i := range cb.window {
		cb.window[i] = false
	}
	cb.next, cb.filled, cb.failures, cb.consecutiveFails = 0, 0, 0, 0
}

// GetState returns the current state. An open breaker whose timeout has passed
// still reports open until the next call tries it.
func (cb *CircuitBreaker) GetState() State {
	cb.mu.RLock()
	defer cb.mu.RUnlock()
	return cb.state
}

// Stats is a snapshot of the breaker for health output
type Stats struct {
	Name             string    `json:"name"`
	State            State     `json:"state"`
	Failures         int       `json:"failures"`   // in the current window
	TotalCalls       int       `json:"totalCalls"` // in the current window
	ConsecutiveFails int       `json:"consecutiveFails"`
	FailureRate      float64   `json:"failureRate"`
	LastFailureTime  time.Time `json:"lastFailureTime"`
	LastStateChange  time.Time `json:"lastStateChange"`
	// RetryAt is when an open breaker admits its next trial call; zero otherwise
	RetryAt time.Time `json:"retryAt,omitempty"`
}

func (cb *CircuitBreaker) GetStats() *Stats {
	cb.mu.RLock()
	defer cb.mu.RUnlock()

	var retryAt time.Time
	if cb.state == StateOpen {
		retryAt = cb.lastStateChange.Add(cb.config.Timeout)
	}
	return &Stats{
		Name:             cb.config.Name,
		State:            cb.state,
		Failures:         cb.failures,
		TotalCalls:       cb.filled,
		ConsecutiveFails: cb.consecutiveFails,
		FailureRate:      cb.failureRate(),
		LastFailureTime:  cb.lastFailureTime,
		LastStateChange:  cb.lastStateChange,
		RetryAt:          retryAt,
	}
}

// Reset closes the breaker and forgets recent outcomes
func (cb *CircuitBreaker) Reset() {
	cb.mu.Lock()
	defer cb.mu.Unlock()

	if cb.state != StateClosed {
		cb.transition(StateClosed)
		return
	}
	cb.clearWindow()
}
