// Copyright 2025 Author(s) of TaskMig
// SPDX-License-Identifier: Apache-2.0

// Package tasks implements the application use cases over the repository
// port: create, edit, delete, list and get.
package tasks

import (
	"context"
	"errors"
	"fmt"

	"github.com/google/uuid"
	"github.com/taskmig/core/pkg/resilience"
	"github.com/taskmig/core/pkg/storage"
	"github.com/taskmig/core/pkg/task"
)

// ErrNotFound is returned by Edit and Delete when the id does not exist in
// any reachable store. Absence is a domain outcome, not a store failure.
var ErrNotFound = errors.New("task not found")

// Command carries the caller-supplied task fields. An empty status defaults
// to pending.
type Command struct {
	Title       string
	Description string
	Status      task.Status
}

func (c Command) validate() error {
	if c.Title == "" {
		return resilience.Permanent(fmt.Errorf("task title must not be empty"))
	}
	if c.Status != "" && !c.Status.Valid() {
		return resilience.Permanent(fmt.Errorf("unknown task status %q", c.Status))
	}
	return nil
}

// Service orchestrates the use cases over an injected repository.
type Service struct {
	repo storage.TaskRepository
}

// NewService creates the use-case service.
func NewService(repo storage.TaskRepository) *Service {
	return &Service{repo: repo}
}

// Create builds a task with a freshly generated id and persists it.
func (s *Service) Create(ctx context.Context, cmd Command) (*task.Task, error) {
	if err := cmd.validate(); err != nil {
		return nil, err
	}
	t := task.New(cmd.Title, cmd.Description, cmd.Status)
	if err := s.repo.Save(ctx, t); err != nil {
		return nil, err
	}
	return t, nil
}

// Edit overwrites all fields of an existing task. Returns ErrNotFound when
// the id is absent.
func (s *Service) Edit(ctx context.Context, id uuid.UUID, cmd Command) (*task.Task, error) {
	if err := cmd.validate(); err != nil {
		return nil, err
	}

	existing, err := s.repo.Get(ctx, id)
	if err != nil {
		return nil, err
	}
	if existing == nil {
		return nil, ErrNotFound
	}

	status := cmd.Status
	if status == "" {
		status = task.StatusPending
	}
	updated := &task.Task{
		ID:          id,
		Title:       cmd.Title,
		Description: cmd.Description,
		Status:      status,
	}
	if err := s.repo.Save(ctx, updated); err != nil {
		return nil, err
	}
	return updated, nil
}

// Delete removes a task by id. Returns ErrNotFound when the id is absent.
func (s *Service) Delete(ctx context.Context, id uuid.UUID) error {
	existing, err := s.repo.Get(ctx, id)
	if err != nil {
		return err
	}
	if existing == nil {
		return ErrNotFound
	}
	return s.repo.Delete(ctx, id)
}

// Get looks up a task by id. Returns (nil, nil) on a lookup miss.
func (s *Service) Get(ctx context.Context, id uuid.UUID) (*task.Task, error) {
	return s.repo.Get(ctx, id)
}

// List enumerates all tasks.
func (s *Service) List(ctx context.Context) ([]*task.Task, error) {
	return s.repo.List(ctx)
}
