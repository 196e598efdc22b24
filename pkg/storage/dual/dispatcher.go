// Copyright 2025 Author(s) of TaskMig
// SPDX-License-Identifier: Apache-2.0

// Package dual implements the dual repository: a dispatcher that mirrors
// writes to a primary (relational) and a secondary (document) task store,
// serves reads from the primary with fallback to the secondary, and isolates
// each store behind its own circuit breaker so one store's outage never
// takes the service down with it. Consistency is best-effort convergent;
// partial dual-writes are logged for an out-of-band reconciler.
package dual

import (
	"context"
	"errors"
	"log/slog"
	"time"

	"github.com/alitto/pond/v2"
	"github.com/google/uuid"

	"github.com/taskmig/core/pkg/resilience"
	"github.com/taskmig/core/pkg/storage"
	"github.com/taskmig/core/pkg/task"
)

const (
	storePrimary   = "primary"
	storeSecondary = "secondary"
)

const (
	// DefaultPingTimeout is the per-probe deadline.
	DefaultPingTimeout = 3 * time.Second
	// DefaultParallelTimeout is the combined deadline for concurrent store operations.
	DefaultParallelTimeout = 10 * time.Second
	// DefaultPoolSize fits two probes plus the two parallel operations.
	DefaultPoolSize = 4
	// DefaultPoolQueueSize bounds queued submissions before rejection.
	DefaultPoolQueueSize = 16
)

// Config holds the dispatcher tunables. Zero values fall back to the
// documented defaults.
type Config struct {
	PingTimeout      time.Duration
	ParallelTimeout  time.Duration
	RetryMaxAttempts int
	RetryBaseDelay   time.Duration
	FailureThreshold int
	RecoveryTimeout  time.Duration
	PoolSize         int
	PoolQueueSize    int

	// SkipPrimaryProbe short-circuits the primary liveness probe to true.
	// Set it only when the primary DSN is a local file-backed engine whose
	// ping proves nothing about a remote dependency.
	SkipPrimaryProbe bool
}

func (c Config) withDefaults() Config {
	if c.PingTimeout <= 0 {
		c.PingTimeout = DefaultPingTimeout
	}
	if c.ParallelTimeout <= 0 {
		c.ParallelTimeout = DefaultParallelTimeout
	}
	if c.RetryMaxAttempts < 0 {
		c.RetryMaxAttempts = resilience.DefaultMaxRetries
	}
	if c.RetryBaseDelay <= 0 {
		c.RetryBaseDelay = resilience.DefaultBaseDelay
	}
	if c.FailureThreshold < 1 {
		c.FailureThreshold = resilience.DefaultFailureThreshold
	}
	if c.RecoveryTimeout <= 0 {
		c.RecoveryTimeout = resilience.DefaultRecoveryTimeout
	}
	if c.PoolSize < DefaultPoolSize {
		c.PoolSize = DefaultPoolSize
	}
	if c.PoolQueueSize <= 0 {
		c.PoolQueueSize = DefaultPoolQueueSize
	}
	return c
}

// Repository implements storage.TaskRepository by composing two concrete
// stores. It exclusively owns its two circuit breakers and its worker pool;
// the store adapters are injected and owned by the caller until Close.
type Repository struct {
	primary   storage.TaskRepository
	secondary storage.TaskRepository

	primaryCB   *resilience.CircuitBreaker
	secondaryCB *resilience.CircuitBreaker
	retry       *resilience.Retry

	pool   pond.Pool
	cfg    Config
	logger *slog.Logger
}

// New creates the dual dispatcher. The worker pool is created here and
// released by Close; it is never recreated per call. A nil logger falls back
// to slog.Default().
func New(primary, secondary storage.TaskRepository, cfg Config, logger *slog.Logger) *Repository {
	if logger == nil {
		logger = slog.Default()
	}
	cfg = cfg.withDefaults()

	return &Repository{
		primary:     primary,
		secondary:   secondary,
		primaryCB:   resilience.NewCircuitBreaker(storePrimary, cfg.FailureThreshold, cfg.RecoveryTimeout, logger),
		secondaryCB: resilience.NewCircuitBreaker(storeSecondary, cfg.FailureThreshold, cfg.RecoveryTimeout, logger),
		retry:       resilience.NewRetry(cfg.RetryMaxAttempts, cfg.RetryBaseDelay, logger),
		pool: pond.NewPool(cfg.PoolSize,
			pond.WithQueueSize(cfg.PoolQueueSize),
			pond.WithNonBlocking(true)),
		cfg:    cfg,
		logger: logger,
	}
}

// storeCall is one repository operation applied to whichever store the
// dispatcher schedules it on.
type storeCall func(ctx context.Context, repo storage.TaskRepository) error

// Save mirrors the upsert to both stores per the write policy.
func (r *Repository) Save(ctx context.Context, t *task.Task) error {
	return r.write(ctx, "save", func(ctx context.Context, repo storage.TaskRepository) error {
		return repo.Save(ctx, t)
	})
}

// Delete mirrors the removal to both stores per the write policy.
func (r *Repository) Delete(ctx context.Context, id uuid.UUID) error {
	return r.write(ctx, "delete", func(ctx context.Context, repo storage.TaskRepository) error {
		return repo.Delete(ctx, id)
	})
}

// write applies the write policy: consult both breakers, probe both stores
// when both circuits admit, then run the parallel or single-store path
// depending on availability.
func (r *Repository) write(ctx context.Context, op string, call storeCall) error {
	allowPrimary := r.primaryCB.Allow()
	allowSecondary := r.secondaryCB.Allow()

	switch {
	case !allowPrimary && !allowSecondary:
		r.logger.Error("write rejected", "op", op, "reason", "both circuits open")
		return &BothUnavailableError{Op: op}

	case allowPrimary && !allowSecondary:
		r.logger.Warn("single-store write", "op", op, "store", storePrimary,
			"reason", "secondary circuit open")
		return r.single(ctx, op, storePrimary, r.primary, r.primaryCB, call)

	case !allowPrimary && allowSecondary:
		r.logger.Warn("single-store write", "op", op, "store", storeSecondary,
			"reason", "primary circuit open")
		return r.single(ctx, op, storeSecondary, r.secondary, r.secondaryCB, call)
	}

	primaryOK, secondaryOK := r.probeBoth(ctx)
	switch {
	case !primaryOK && !secondaryOK:
		r.primaryCB.RecordFailure()
		r.secondaryCB.RecordFailure()
		r.logger.Error("write rejected", "op", op, "reason", "both probes failed")
		return &BothUnavailableError{Op: op}

	case primaryOK && !secondaryOK:
		r.secondaryCB.RecordFailure()
		r.logger.Warn("single-store write", "op", op, "store", storePrimary,
			"reason", "secondary probe failed")
		return r.single(ctx, op, storePrimary, r.primary, r.primaryCB, call)

	case !primaryOK && secondaryOK:
		r.primaryCB.RecordFailure()
		r.logger.Warn("single-store write", "op", op, "store", storeSecondary,
			"reason", "primary probe failed")
		return r.single(ctx, op, storeSecondary, r.secondary, r.secondaryCB, call)
	}

	return r.parallel(ctx, op, call)
}

// single executes the operation on the one surviving store, wrapped in the
// retry policy. The outcome updates that store's breaker and errors propagate
// to the caller.
func (r *Repository) single(ctx context.Context, op, store string, repo storage.TaskRepository, cb *resilience.CircuitBreaker, call storeCall) error {
	err := r.retry.Execute(ctx, op+" "+store, func(ctx context.Context) error {
		return call(ctx, repo)
	})
	if err != nil {
		cb.RecordFailure()
		return err
	}
	cb.RecordSuccess()
	return nil
}

// parallel submits the operation against both stores to the shared pool and
// aggregates the outcomes under the combined ParallelTimeout deadline.
func (r *Repository) parallel(ctx context.Context, op string, call storeCall) error {
	opCtx, cancel := context.WithTimeout(ctx, r.cfg.ParallelTimeout)
	defer cancel()

	primaryCh := r.submit(opCtx, r.primary, call)
	secondaryCh := r.submit(opCtx, r.secondary, call)

	timer := time.NewTimer(r.cfg.ParallelTimeout)
	defer timer.Stop()

	var (
		primaryDone, secondaryDone bool
		primaryErr, secondaryErr   error
		timedOut                   bool
	)

	for !timedOut && (!primaryDone || !secondaryDone) {
		select {
		case err := <-primaryCh:
			primaryDone, primaryErr = true, err
			r.observe(storePrimary, r.primaryCB, err)
		case err := <-secondaryCh:
			secondaryDone, secondaryErr = true, err
			r.observe(storeSecondary, r.secondaryCB, err)
		case <-timer.C:
			timedOut = true
		}
	}

	if timedOut {
		// Cancellation of the in-flight call is best-effort; the driver may
		// not honor it, in which case the call is simply abandoned.
		cancel()
		if !primaryDone {
			primaryErr = &TimeoutError{Op: op, Store: storePrimary, After: r.cfg.ParallelTimeout}
			r.primaryCB.RecordFailure()
			r.logger.Warn("parallel operation timed out", "op", op, "store", storePrimary)
		}
		if !secondaryDone {
			secondaryErr = &TimeoutError{Op: op, Store: storeSecondary, After: r.cfg.ParallelTimeout}
			r.secondaryCB.RecordFailure()
			r.logger.Warn("parallel operation timed out", "op", op, "store", storeSecondary)
		}
	}

	switch {
	case primaryErr == nil && secondaryErr == nil:
		r.logger.Info("dual write succeeded", "op", op)
		return nil
	case primaryErr == nil:
		// The write is accepted; convergence is the reconciler's job.
		r.logger.Warn("dual write diverged", "op", op,
			"failed_store", storeSecondary, "error", secondaryErr)
		return nil
	case secondaryErr == nil:
		r.logger.Warn("dual write diverged", "op", op,
			"failed_store", storePrimary, "error", primaryErr)
		return nil
	default:
		r.logger.Error("dual write failed on both stores", "op", op,
			"primary_error", primaryErr, "secondary_error", secondaryErr)
		return &BothFailedError{Op: op, Primary: primaryErr, Secondary: secondaryErr}
	}
}

// submit schedules one store call on the pool. A rejected submission (full
// queue) surfaces as a transient error on the returned channel.
func (r *Repository) submit(ctx context.Context, repo storage.TaskRepository, call storeCall) <-chan error {
	ch := make(chan error, 1)
	t := r.pool.SubmitErr(func() error {
		return call(ctx, repo)
	})
	go func() {
		err := t.Wait()
		if errors.Is(err, pond.ErrQueueFull) {
			err = resilience.Transient(err)
		}
		ch <- err
	}()
	return ch
}

func (r *Repository) observe(store string, cb *resilience.CircuitBreaker, err error) {
	if err != nil {
		cb.RecordFailure()
		r.logger.Warn("store operation failed", "store", store, "error", err)
		return
	}
	cb.RecordSuccess()
}

// Get reads through the primary with fallback to the secondary. Reads never
// probe. A nil task with a nil error is a lookup miss; absence on the
// primary falls through to the secondary before the miss is final.
func (r *Repository) Get(ctx context.Context, id uuid.UUID) (*task.Task, error) {
	if r.primaryCB.Allow() {
		var got *task.Task
		err := r.retry.Execute(ctx, "get "+storePrimary, func(ctx context.Context) error {
			var err error
			got, err = r.primary.Get(ctx, id)
			return err
		})
		if err == nil {
			r.primaryCB.RecordSuccess()
			if got != nil {
				return got, nil
			}
		} else {
			r.primaryCB.RecordFailure()
			r.logger.Warn("primary read failed, falling back", "op", "get", "error", err)
		}
	} else {
		r.logger.Warn("primary read skipped", "op", "get", "reason", "circuit open")
	}

	if r.secondaryCB.Allow() {
		var got *task.Task
		err := r.retry.Execute(ctx, "get "+storeSecondary, func(ctx context.Context) error {
			var err error
			got, err = r.secondary.Get(ctx, id)
			return err
		})
		if err == nil {
			r.secondaryCB.RecordSuccess()
			return got, nil
		}
		r.secondaryCB.RecordFailure()
		r.logger.Warn("secondary read failed", "op", "get", "error", err)
	} else {
		r.logger.Warn("secondary read skipped", "op", "get", "reason", "circuit open")
	}

	return nil, nil
}

// List enumerates from the primary with fallback to the secondary. An empty
// primary result is authoritative. If neither store can serve the list, the
// error carries both causes.
func (r *Repository) List(ctx context.Context) ([]*task.Task, error) {
	primaryErr := ErrCircuitOpen
	primarySkipped := true

	if r.primaryCB.Allow() {
		primarySkipped = false
		var tasks []*task.Task
		err := r.retry.Execute(ctx, "list "+storePrimary, func(ctx context.Context) error {
			var err error
			tasks, err = r.primary.List(ctx)
			return err
		})
		if err == nil {
			r.primaryCB.RecordSuccess()
			return tasks, nil
		}
		r.primaryCB.RecordFailure()
		primaryErr = err
		r.logger.Warn("primary read failed, falling back", "op", "list", "error", err)
	} else {
		r.logger.Warn("primary read skipped", "op", "list", "reason", "circuit open")
	}

	if r.secondaryCB.Allow() {
		var tasks []*task.Task
		err := r.retry.Execute(ctx, "list "+storeSecondary, func(ctx context.Context) error {
			var err error
			tasks, err = r.secondary.List(ctx)
			return err
		})
		if err == nil {
			r.secondaryCB.RecordSuccess()
			return tasks, nil
		}
		r.secondaryCB.RecordFailure()
		r.logger.Error("secondary read failed", "op", "list", "error", err)
		return nil, &BothFailedError{Op: "list", Primary: primaryErr, Secondary: err}
	}
	r.logger.Warn("secondary read skipped", "op", "list", "reason", "circuit open")

	if primarySkipped {
		return nil, &BothUnavailableError{Op: "list"}
	}
	return nil, &BothFailedError{Op: "list", Primary: primaryErr, Secondary: ErrCircuitOpen}
}

// Ping succeeds when at least one store answers its probe.
func (r *Repository) Ping(ctx context.Context) error {
	primaryOK, secondaryOK := r.probeBoth(ctx)
	if primaryOK || secondaryOK {
		return nil
	}
	return &BothUnavailableError{Op: "ping"}
}

// Close releases the worker pool and both store adapters.
func (r *Repository) Close() error {
	r.pool.StopAndWait()
	return errors.Join(r.primary.Close(), r.secondary.Close())
}
