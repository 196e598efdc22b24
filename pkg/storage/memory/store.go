// Copyright 2025 Author(s) of TaskMig
// SPDX-License-Identifier: Apache-2.0

// Package memory provides an in-memory task store used in tests and for
// zero-configuration local runs.
package memory

import (
	"context"
	"sync"

	"github.com/google/uuid"
	"github.com/taskmig/core/pkg/task"
)

// Store implements storage.TaskRepository in memory.
type Store struct {
	mu    sync.RWMutex
	tasks map[uuid.UUID]*task.Task
}

// NewStore creates a new memory store.
func NewStore() *Store {
	return &Store{
		tasks: make(map[uuid.UUID]*task.Task),
	}
}

// Save upserts the task by id.
func (s *Store) Save(_ context.Context, t *task.Task) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.tasks[t.ID] = t.Clone()
	return nil
}

// Get looks up a task by id. Absence returns (nil, nil).
func (s *Store) Get(_ context.Context, id uuid.UUID) (*task.Task, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	if t, ok := s.tasks[id]; ok {
		return t.Clone(), nil
	}
	return nil, nil
}

// List enumerates all tasks in unspecified order.
func (s *Store) List(_ context.Context) ([]*task.Task, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	list := make([]*task.Task, 0, len(s.tasks))
	for _, t := range s.tasks {
		list = append(list, t.Clone())
	}
	return list, nil
}

// Delete removes the task by id. Deleting an absent id is a no-op.
func (s *Store) Delete(_ context.Context, id uuid.UUID) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	delete(s.tasks, id)
	return nil
}

// Ping always succeeds.
func (s *Store) Ping(_ context.Context) error {
	return nil
}

// Close is a no-op for the memory store.
func (s *Store) Close() error {
	return nil
}
