// Copyright 2025 Author(s) of TaskMig
// SPDX-License-Identifier: Apache-2.0

package resilience

import (
	"context"
	"log/slog"
	"time"
)

const (
	// DefaultMaxRetries is the number of additional attempts after the first.
	DefaultMaxRetries = 2
	// DefaultBaseDelay is the base delay doubled on each retry.
	DefaultBaseDelay = 500 * time.Millisecond
)

// Retry implements a bounded exponential-backoff retry policy for a single
// store call. Only errors classified as retryable by IsRetryable are retried;
// everything else propagates immediately.
type Retry struct {
	maxRetries int
	baseDelay  time.Duration
	logger     *slog.Logger
}

// NewRetry creates a retry policy. maxRetries counts the additional attempts
// after the first; negative values fall back to the default. A non-positive
// baseDelay falls back to the default. The logger records each retry with its
// sleep duration; nil falls back to slog.Default().
func NewRetry(maxRetries int, baseDelay time.Duration, logger *slog.Logger) *Retry {
	if maxRetries < 0 {
		maxRetries = DefaultMaxRetries
	}
	if baseDelay <= 0 {
		baseDelay = DefaultBaseDelay
	}
	if logger == nil {
		logger = slog.Default()
	}
	return &Retry{
		maxRetries: maxRetries,
		baseDelay:  baseDelay,
		logger:     logger,
	}
}

// Execute runs work, retrying transient failures up to maxRetries additional
// times. After attempt k (1-indexed) the sleep is baseDelay * 2^(k-1). The op
// string names the operation in log records.
func (r *Retry) Execute(ctx context.Context, op string, work func(context.Context) error) error {
	var err error

	for attempt := 1; attempt <= r.maxRetries+1; attempt++ {
		if ctx.Err() != nil {
			return ctx.Err()
		}

		err = work(ctx)
		if err == nil {
			return nil
		}

		if !IsRetryable(err) {
			return err
		}

		// Last attempt: the retryable error propagates.
		if attempt == r.maxRetries+1 {
			r.logger.Error("retries exhausted",
				"op", op, "attempts", attempt, "error", err)
			return err
		}

		delay := r.backoff(attempt)
		r.logger.Warn("retrying after transient error",
			"op", op, "attempt", attempt, "max_retries", r.maxRetries,
			"sleep", delay, "error", err)

		select {
		case <-ctx.Done():
			return ctx.Err()
		case <-time.After(delay):
		}
	}
	return err
}

// backoff returns baseDelay * 2^(attempt-1). The shift is capped so the
// multiplication cannot overflow for any realistic retry count.
func (r *Retry) backoff(attempt int) time.Duration {
	if attempt < 1 {
		return r.baseDelay
	}
	shift := attempt - 1
	if shift >= 62 {
		shift = 62
	}
	return r.baseDelay * time.Duration(int64(1)<<shift)
}
