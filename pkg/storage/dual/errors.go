// Copyright 2025 Author(s) of TaskMig
// SPDX-License-Identifier: Apache-2.0

package dual

import (
	"errors"
	"fmt"
	"time"
)

// ErrCircuitOpen is the per-store cause recorded when an operation never
// reached a store because its circuit breaker rejected the attempt.
var ErrCircuitOpen = errors.New("circuit breaker is open")

// BothUnavailableError is returned when neither store is reachable: both
// breakers rejected the operation, or both probes failed. No store call was
// attempted.
type BothUnavailableError struct {
	Op string
}

// Error returns the error message.
func (e *BothUnavailableError) Error() string {
	return fmt.Sprintf("%s: neither primary nor secondary store is available", e.Op)
}

// BothFailedError is returned when both stores were attempted and both
// returned errors. It carries the two underlying causes.
type BothFailedError struct {
	Op        string
	Primary   error
	Secondary error
}

// Error returns the error message with both causes.
func (e *BothFailedError) Error() string {
	return fmt.Sprintf("%s failed on both stores: primary: %v; secondary: %v",
		e.Op, e.Primary, e.Secondary)
}

// Unwrap exposes both causes to errors.Is / errors.As.
func (e *BothFailedError) Unwrap() []error {
	return []error{e.Primary, e.Secondary}
}

// TimeoutError marks a store operation still pending when the parallel-path
// deadline elapsed. The in-flight call is cancelled best-effort.
type TimeoutError struct {
	Op    string
	Store string
	After time.Duration
}

// Error returns the error message.
func (e *TimeoutError) Error() string {
	return fmt.Sprintf("%s on %s store timed out after %s", e.Op, e.Store, e.After)
}
