// Copyright 2025 Author(s) of TaskMig
// SPDX-License-Identifier: Apache-2.0

// Package resilience implements the failure-containment building blocks used
// by the dual repository: a per-store circuit breaker and a bounded
// exponential-backoff retry policy.
package resilience

import (
	"log/slog"
	"sync"
	"time"
)

// State represents the current state of the circuit breaker.
type State int

const (
	// StateClosed represents the state where the circuit breaker allows requests to pass through.
	StateClosed State = iota
	// StateOpen represents the state where the circuit breaker blocks requests immediately.
	StateOpen
	// StateHalfOpen represents the state where the circuit breaker admits a single trial request
	// to test whether the store has recovered.
	StateHalfOpen
)

// String returns the textual form used in log records.
func (s State) String() string {
	switch s {
	case StateClosed:
		return "CLOSED"
	case StateOpen:
		return "OPEN"
	case StateHalfOpen:
		return "HALF_OPEN"
	default:
		return "UNKNOWN"
	}
}

const (
	// DefaultFailureThreshold is the number of consecutive failures that opens the circuit.
	DefaultFailureThreshold = 3
	// DefaultRecoveryTimeout is how long the circuit stays open before probing recovery.
	DefaultRecoveryTimeout = 30 * time.Second
)

// CircuitBreaker implements the circuit breaker pattern for one backing
// store. It prevents repeated calls to a store known to be failing and
// admits a single trial request once the recovery timeout has elapsed.
//
// Unlike an Execute-style breaker, the admission decision (Allow) and the
// outcome observations (RecordSuccess / RecordFailure) are separate calls:
// the dual dispatcher also feeds probe results and aggregate timeouts into
// the breaker without running a wrapped function.
type CircuitBreaker struct {
	mutex sync.Mutex

	name             string
	state            State
	failures         int
	lastFailure      time.Time
	failureThreshold int
	recoveryTimeout  time.Duration

	logger *slog.Logger
}

// NewCircuitBreaker creates a breaker for the named store. A non-positive
// threshold or timeout falls back to the defaults. The logger records state
// transitions; nil falls back to slog.Default().
func NewCircuitBreaker(name string, failureThreshold int, recoveryTimeout time.Duration, logger *slog.Logger) *CircuitBreaker {
	if failureThreshold < 1 {
		failureThreshold = DefaultFailureThreshold
	}
	if recoveryTimeout <= 0 {
		recoveryTimeout = DefaultRecoveryTimeout
	}
	if logger == nil {
		logger = slog.Default()
	}
	return &CircuitBreaker{
		name:             name,
		state:            StateClosed,
		failureThreshold: failureThreshold,
		recoveryTimeout:  recoveryTimeout,
		logger:           logger,
	}
}

// State returns the current state. If the circuit is open and the recovery
// timeout has elapsed since the last failure, the observation itself performs
// the OPEN to HALF_OPEN transition.
func (cb *CircuitBreaker) State() State {
	cb.mutex.Lock()
	defer cb.mutex.Unlock()
	return cb.observeLocked()
}

// observeLocked applies the lazy OPEN -> HALF_OPEN transition. Caller holds the mutex.
func (cb *CircuitBreaker) observeLocked() State {
	if cb.state == StateOpen && !cb.lastFailure.IsZero() {
		if elapsed := time.Since(cb.lastFailure); elapsed >= cb.recoveryTimeout {
			cb.state = StateHalfOpen
			cb.logger.Info("circuit breaker state change",
				"store", cb.name, "from", StateOpen.String(), "to", StateHalfOpen.String(),
				"reason", "recovery timeout elapsed", "elapsed", elapsed)
		}
	}
	return cb.state
}

// Allow reports whether a request may be sent to the store. It returns true
// in CLOSED and HALF_OPEN; in HALF_OPEN the subsequent RecordSuccess or
// RecordFailure decides the next transition.
func (cb *CircuitBreaker) Allow() bool {
	switch cb.State() {
	case StateClosed, StateHalfOpen:
		return true
	default:
		return false
	}
}

// RecordSuccess closes the circuit and resets the failure counter. Valid
// from any state.
func (cb *CircuitBreaker) RecordSuccess() {
	cb.mutex.Lock()
	defer cb.mutex.Unlock()

	if cb.state != StateClosed {
		cb.logger.Info("circuit breaker state change",
			"store", cb.name, "from", cb.state.String(), "to", StateClosed.String(),
			"reason", "operation succeeded")
	}
	cb.state = StateClosed
	cb.failures = 0
	cb.lastFailure = time.Time{}
}

// RecordFailure counts a failure. In HALF_OPEN the trial failed, so the
// circuit reopens unconditionally; in CLOSED it opens once the consecutive
// failure count reaches the threshold.
func (cb *CircuitBreaker) RecordFailure() {
	cb.mutex.Lock()
	defer cb.mutex.Unlock()

	cb.failures++
	cb.lastFailure = time.Now()

	switch {
	case cb.state == StateHalfOpen:
		cb.state = StateOpen
		cb.logger.Warn("circuit breaker state change",
			"store", cb.name, "from", StateHalfOpen.String(), "to", StateOpen.String(),
			"reason", "trial request failed")
	case cb.state == StateClosed && cb.failures >= cb.failureThreshold:
		cb.state = StateOpen
		cb.logger.Warn("circuit breaker state change",
			"store", cb.name, "from", StateClosed.String(), "to", StateOpen.String(),
			"reason", "failure threshold reached", "failures", cb.failures)
	}
}

// Reset forces the breaker back to its initial state. Testing affordance.
func (cb *CircuitBreaker) Reset() {
	cb.mutex.Lock()
	defer cb.mutex.Unlock()
	cb.state = StateClosed
	cb.failures = 0
	cb.lastFailure = time.Time{}
}

// Failures returns the consecutive failure count since the last success.
func (cb *CircuitBreaker) Failures() int {
	cb.mutex.Lock()
	defer cb.mutex.Unlock()
	return cb.failures
}

// Name returns the store name the breaker guards.
func (cb *CircuitBreaker) Name() string {
	return cb.name
}
