// Copyright 2025 Author(s) of TaskMig
// SPDX-License-Identifier: Apache-2.0

package resilience

import (
	"context"
	"database/sql/driver"
	"errors"
	"net"
	"os"
	"syscall"
)

// PermanentError is an error that should not be retried. Store adapters wrap
// logic, validation and programmer errors with it.
type PermanentError struct {
	Err error
}

// Error returns the error message.
func (e *PermanentError) Error() string {
	if e.Err == nil {
		return "permanent error"
	}
	return e.Err.Error()
}

// Unwrap returns the wrapped error.
func (e *PermanentError) Unwrap() error {
	return e.Err
}

// TransientError marks an error as a transient connectivity failure. Store
// adapters wrap driver-specific errors (connection loss, server-selection
// timeouts, pool exhaustion) with it so the retry policy and the dispatcher
// can classify them without importing any driver.
type TransientError struct {
	Err error
}

// Error returns the error message.
func (e *TransientError) Error() string {
	if e.Err == nil {
		return "transient error"
	}
	return e.Err.Error()
}

// Unwrap returns the wrapped error.
func (e *TransientError) Unwrap() error {
	return e.Err
}

// Transient wraps err as a TransientError. A nil err returns nil.
func Transient(err error) error {
	if err == nil {
		return nil
	}
	return &TransientError{Err: err}
}

// Permanent wraps err as a PermanentError. A nil err returns nil.
func Permanent(err error) error {
	if err == nil {
		return nil
	}
	return &PermanentError{Err: err}
}

// IsRetryable reports whether err is a transient failure worth retrying.
// An explicit PermanentError always wins over the generic checks below it.
// Besides the adapter-provided TransientError wrapper, the generic transient
// classes are network errors, I/O timeouts, OS-level connection errors and a
// connection dropped from the database/sql pool.
func IsRetryable(err error) bool {
	if err == nil {
		return false
	}

	var permanent *PermanentError
	if errors.As(err, &permanent) {
		return false
	}

	var transient *TransientError
	if errors.As(err, &transient) {
		return true
	}

	if errors.Is(err, context.DeadlineExceeded) {
		return true
	}
	if errors.Is(err, driver.ErrBadConn) {
		return true
	}
	if errors.Is(err, syscall.ECONNREFUSED) ||
		errors.Is(err, syscall.ECONNRESET) ||
		errors.Is(err, syscall.EPIPE) ||
		errors.Is(err, syscall.ETIMEDOUT) {
		return true
	}

	var netErr net.Error
	if errors.As(err, &netErr) {
		return true
	}
	var syscallErr *os.SyscallError
	if errors.As(err, &syscallErr) {
		return true
	}

	return false
}
