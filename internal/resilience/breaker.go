package resilience

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"time"

	"visapath/internal/platform/metrics"
)

// BreakerState is the position of the breaker state machine.
type BreakerState int

const (
	StateClosed BreakerState = iota
	StateOpen
	StateHalfOpen
)

func (s BreakerState) String() string {
	switch s {
	case StateClosed:
		return "closed"
	case StateOpen:
		return "open"
	case StateHalfOpen:
		return "half-open"
	default:
		return "unknown"
	}
}

// BreakerConfig tunes a single circuit breaker.
type BreakerConfig struct {
	FailureThreshold  int
	ResetTimeout      time.Duration
	HalfOpenSuccesses int
}

// DefaultBreakerConfig is the tuning used for external service calls.
func DefaultBreakerConfig() BreakerConfig {
	return BreakerConfig{
		FailureThreshold:  5,
		ResetTimeout:      60 * time.Second,
		HalfOpenSuccesses: 2,
	}
}

func (c BreakerConfig) withDefaults() BreakerConfig {
	def := DefaultBreakerConfig()
	if c.FailureThreshold <= 0 {
		c.FailureThreshold = def.FailureThreshold
	}
	if c.ResetTimeout <= 0 {
		c.ResetTimeout = def.ResetTimeout
	}
	if c.HalfOpenSuccesses <= 0 {
		c.HalfOpenSuccesses = def.HalfOpenSuccesses
	}
	return c
}

// CircuitOpenError rejects a call because the named breaker is open.
// The wrapped operation was never invoked.
type CircuitOpenError struct {
	Operation string
}

func (e *CircuitOpenError) Error() string {
	return fmt.Sprintf("circuit breaker open for %s", e.Operation)
}

// IsCircuitOpen reports whether err is a breaker rejection.
func IsCircuitOpen(err error) bool {
	var coe *CircuitOpenError
	return errors.As(err, &coe)
}

// Operation is a single attemptable unit of work.
type Operation func(ctx context.Context) (any, error)

// CircuitBreaker guards one named operation against a chronically failing
// dependency: it fails fast once consecutive failures cross the threshold
// and probes recovery after a cooldown. Transitions are lazy: an open
// breaker moves to half-open on the next call after the reset timeout, not
// on a background timer.
type CircuitBreaker struct {
	name    string
	cfg     BreakerConfig
	metrics *metrics.BreakerMetrics

	mu              sync.Mutex
	state           BreakerState
	failures        int
	halfOpenSuccess int
	lastFailure     time.Time

	now func() time.Time
}

func NewCircuitBreaker(name string, cfg BreakerConfig) *CircuitBreaker {
	return &CircuitBreaker{
		name:  name,
		cfg:   cfg.withDefaults(),
		state: StateClosed,
		now:   time.Now,
	}
}

func (b *CircuitBreaker) Name() string { return b.name }

// State resolves any pending lazy transition and reports the current state.
func (b *CircuitBreaker) State() BreakerState {
	b.mu.Lock()
	defer b.mu.Unlock()
	return b.resolveState()
}

// resolveState applies the open to half-open transition once the reset
// timeout has elapsed since the last failure. Caller holds mu.
func (b *CircuitBreaker) resolveState() BreakerState {
	if b.state == StateOpen && b.now().Sub(b.lastFailure) >= b.cfg.ResetTimeout {
		b.setState(StateHalfOpen)
		b.halfOpenSuccess = 0
	}
	return b.state
}

// setState records the transition for the state gauge. Caller holds mu.
func (b *CircuitBreaker) setState(s BreakerState) {
	b.state = s
	b.metrics.ObserveState(b.name, float64(s))
}

// Execute runs op through the breaker. While open it returns
// *CircuitOpenError without invoking op; otherwise op's outcome feeds the
// state machine and op's own error is returned unchanged.
func (b *CircuitBreaker) Execute(ctx context.Context, op Operation) (any, error) {
	b.mu.Lock()
	if b.resolveState() == StateOpen {
		b.mu.Unlock()
		b.metrics.ObserveRejection(b.name)
		return nil, &CircuitOpenError{Operation: b.name}
	}
	b.mu.Unlock()

	result, err := op(ctx)
	if err != nil {
		b.recordFailure()
		return nil, err
	}
	b.recordSuccess()
	return result, nil
}

func (b *CircuitBreaker) recordSuccess() {
	b.mu.Lock()
	defer b.mu.Unlock()
	if b.state == StateHalfOpen {
		b.halfOpenSuccess++
		if b.halfOpenSuccess >= b.cfg.HalfOpenSuccesses {
			b.setState(StateClosed)
			b.failures = 0
			b.halfOpenSuccess = 0
		}
		return
	}
	b.failures = 0
}

func (b *CircuitBreaker) recordFailure() {
	b.mu.Lock()
	defer b.mu.Unlock()
	b.lastFailure = b.now()
	if b.state == StateHalfOpen {
		// A single failure while probing reopens the breaker.
		b.setState(StateOpen)
		b.halfOpenSuccess = 0
		return
	}
	b.failures++
	if b.failures >= b.cfg.FailureThreshold {
		b.setState(StateOpen)
	}
}
