// Copyright 2025 Author(s) of TaskMig
// SPDX-License-Identifier: Apache-2.0

// Package storage defines the repository port every concrete task store
// satisfies. The dual dispatcher composes two implementations of it.
package storage

import (
	"context"

	"github.com/google/uuid"
	"github.com/taskmig/core/pkg/task"
)

// TaskRepository is the abstract CRUD contract for a task store.
//
// Adapters are responsible for mapping driver-specific errors into the
// resilience taxonomy (TransientError for connectivity loss and timeouts,
// PermanentError for logic and validation failures) before surfacing them.
type TaskRepository interface {
	// Save upserts the task by id. Idempotent.
	Save(ctx context.Context, t *task.Task) error

	// Get looks up a task by id. A (nil, nil) return means the task is
	// absent; absence is not an error.
	Get(ctx context.Context, id uuid.UUID) (*task.Task, error)

	// List enumerates all tasks. Order is unspecified.
	List(ctx context.Context) ([]*task.Task, error)

	// Delete removes the task by id. Deleting an absent id is a no-op.
	Delete(ctx context.Context, id uuid.UUID) error

	// Ping performs a minimal liveness round trip to the store.
	Ping(ctx context.Context) error

	// Close releases the underlying store connection.
	Close() error
}
