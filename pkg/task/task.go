// Copyright 2025 Author(s) of TaskMig
// SPDX-License-Identifier: Apache-2.0

// Package task defines the task domain entity shared by every store adapter.
package task

import (
	"fmt"

	"github.com/google/uuid"
)

// Status is the lifecycle state of a task.
type Status string

const (
	// StatusPending is the initial state of a newly created task.
	StatusPending Status = "pending"
	// StatusInProgress marks a task that has been started.
	StatusInProgress Status = "in_progress"
	// StatusCompleted marks a finished task.
	StatusCompleted Status = "completed"
)

// Valid reports whether s is one of the known status values.
func (s Status) Valid() bool {
	switch s {
	case StatusPending, StatusInProgress, StatusCompleted:
		return true
	}
	return false
}

// Task is the domain entity persisted by every repository. The id is the
// immutable key; saves overwrite all remaining fields.
type Task struct {
	ID          uuid.UUID `json:"id"`
	Title       string    `json:"title"`
	Description string    `json:"description,omitempty"`
	Status      Status    `json:"status"`
}

// New creates a task with a freshly generated id. An empty status defaults
// to StatusPending.
func New(title, description string, status Status) *Task {
	if status == "" {
		status = StatusPending
	}
	return &Task{
		ID:          uuid.New(),
		Title:       title,
		Description: description,
		Status:      status,
	}
}

// Validate checks the entity invariants: a non-nil id, a non-empty title and
// a known status.
func (t *Task) Validate() error {
	if t.ID == uuid.Nil {
		return fmt.Errorf("task id must not be empty")
	}
	if t.Title == "" {
		return fmt.Errorf("task title must not be empty")
	}
	if !t.Status.Valid() {
		return fmt.Errorf("unknown task status %q", t.Status)
	}
	return nil
}

// Clone returns a copy of the task. Stores hand out clones so callers cannot
// mutate cached state.
func (t *Task) Clone() *Task {
	if t == nil {
		return nil
	}
	c := *t
	return &c
}
