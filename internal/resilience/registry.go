package resilience

import (
	"sync"

	"visapath/internal/platform/metrics"
)

// BreakerRegistry holds one breaker per operation name, created lazily on
// first use. The registry is injected into call sites rather than living as
// a package-level singleton, so tests get isolated breaker state.
type BreakerRegistry struct {
	mu       sync.Mutex
	breakers map[string]*CircuitBreaker
	metrics  *metrics.BreakerMetrics
}

func NewBreakerRegistry() *BreakerRegistry {
	return &BreakerRegistry{breakers: make(map[string]*CircuitBreaker)}
}

// Instrument attaches m to breakers created after this call. Existing
// breakers keep whatever instrumentation they were created with.
func (r *BreakerRegistry) Instrument(m *metrics.BreakerMetrics) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.metrics = m
}

// Get returns the breaker registered under name, creating it with cfg on
// first use. cfg is ignored for an existing breaker.
func (r *BreakerRegistry) Get(name string, cfg BreakerConfig) *CircuitBreaker {
	r.mu.Lock()
	defer r.mu.Unlock()
	if b, ok := r.breakers[name]; ok {
		return b
	}
	b := NewCircuitBreaker(name, cfg)
	b.metrics = r.metrics
	r.metrics.ObserveState(name, float64(StateClosed))
	r.breakers[name] = b
	return b
}

// Reset drops the breaker registered under name, if any.
func (r *BreakerRegistry) Reset(name string) {
	r.mu.Lock()
	defer r.mu.Unlock()
	delete(r.breakers, name)
}

// ResetAll drops every registered breaker.
func (r *BreakerRegistry) ResetAll() {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.breakers = make(map[string]*CircuitBreaker)
}
