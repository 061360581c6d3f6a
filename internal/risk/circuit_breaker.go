package risk

import (
	"sync"
	"time"
)

// BreakerState is the circuit breaker's current state.
type BreakerState string

const (
	StateOK      BreakerState = "ok"
	StateTripped BreakerState = "tripped"
)

// CircuitBreaker is a single trader-scoped object: mutations only ever come
// from that trader's own loop, guarded by a mutex for the rare concurrent
// read from a health check.
type CircuitBreaker struct {
	trippedAt          time.Time
	mu                 sync.Mutex
	cooldown           time.Duration
	failureThreshold   int
	consecutiveFailures int
	totalFailures      int
	totalSuccesses     int
	tripped            bool
}

// NewCircuitBreaker builds a breaker that trips after failureThreshold
// consecutive swap failures and resets after cooldown has elapsed.
func NewCircuitBreaker(failureThreshold int, cooldown time.Duration) *CircuitBreaker {
	return &CircuitBreaker{failureThreshold: failureThreshold, cooldown: cooldown}
}

// IsTripped reports the current state, lazily resetting to OK once the
// cooldown has elapsed since the trip.
func (b *CircuitBreaker) IsTripped() bool {
	b.mu.Lock()
	defer b.mu.Unlock()
	if b.tripped && time.Since(b.trippedAt) >= b.cooldown {
		b.tripped = false
		b.consecutiveFailures = 0
	}
	return b.tripped
}

// RecordSuccess resets the consecutive-failure count.
func (b *CircuitBreaker) RecordSuccess() {
	b.mu.Lock()
	defer b.mu.Unlock()
	b.consecutiveFailures = 0
	b.totalSuccesses++
}

// RecordFailure increments failure counters and trips the breaker if the
// consecutive threshold is reached.
func (b *CircuitBreaker) RecordFailure() {
	b.mu.Lock()
	defer b.mu.Unlock()
	b.consecutiveFailures++
	b.totalFailures++
	if b.consecutiveFailures >= b.failureThreshold {
		b.tripped = true
		b.trippedAt = time.Now()
	}
}

// Stats is a snapshot of the breaker's counters, for health reporting.
type Stats struct {
	ConsecutiveFailures int
	TotalFailures       int
	TotalSuccesses      int
	Tripped             bool
}

// Snapshot returns the breaker's current counters.
func (b *CircuitBreaker) Snapshot() Stats {
	b.mu.Lock()
	defer b.mu.Unlock()
	return Stats{
		ConsecutiveFailures: b.consecutiveFailures,
		TotalFailures:       b.totalFailures,
		TotalSuccesses:      b.totalSuccesses,
		Tripped:             b.tripped,
	}
}

// urgentReasons bypass the breaker (spec §4.8): non-urgent trades are
// refused while tripped, urgent closes go through regardless.
var urgentReasons = map[string]bool{
	"rug":        true,
	"stop_loss":  true,
	"early_stop": true,
	"timeout":    true,
}

// IsUrgent reports whether a close reason bypasses the circuit breaker.
func IsUrgent(closeReason string) bool {
	return urgentReasons[closeReason]
}
