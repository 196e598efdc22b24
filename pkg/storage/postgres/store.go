// Copyright 2025 Author(s) of TaskMig
// SPDX-License-Identifier: Apache-2.0

package postgres

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	"github.com/google/uuid"
	"github.com/lib/pq"
	"github.com/taskmig/core/pkg/resilience"
	"github.com/taskmig/core/pkg/task"
)

// Store implements storage.TaskRepository on PostgreSQL.
type Store struct {
	db *DB
}

// NewStore creates a new PostgreSQL store.
func NewStore(db *DB) *Store {
	return &Store{db: db}
}

// Save upserts the task by id.
func (s *Store) Save(ctx context.Context, t *task.Task) error {
	if err := t.Validate(); err != nil {
		return resilience.Permanent(err)
	}

	_, err := s.db.ExecContext(ctx, `
		INSERT INTO tasks (id, title, description, status)
		VALUES ($1, $2, $3, $4)
		ON CONFLICT (id) DO UPDATE
		SET title = EXCLUDED.title,
		    description = EXCLUDED.description,
		    status = EXCLUDED.status`,
		t.ID.String(), t.Title, t.Description, string(t.Status))
	if err != nil {
		return classify(fmt.Errorf("failed to save task %s: %w", t.ID, err))
	}
	return nil
}

// Get looks up a task by id. Absence returns (nil, nil).
func (s *Store) Get(ctx context.Context, id uuid.UUID) (*task.Task, error) {
	row := s.db.QueryRowContext(ctx,
		"SELECT title, description, status FROM tasks WHERE id = $1", id.String())

	t := task.Task{ID: id}
	var status string
	if err := row.Scan(&t.Title, &t.Description, &status); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, nil
		}
		return nil, classify(fmt.Errorf("failed to get task %s: %w", id, err))
	}
	t.Status = task.Status(status)
	return &t, nil
}

// List enumerates all tasks.
func (s *Store) List(ctx context.Context) ([]*task.Task, error) {
	rows, err := s.db.QueryContext(ctx,
		"SELECT id, title, description, status FROM tasks")
	if err != nil {
		return nil, classify(fmt.Errorf("failed to list tasks: %w", err))
	}
	defer func() { _ = rows.Close() }()

	var tasks []*task.Task
	for rows.Next() {
		var (
			rawID  string
			status string
			t      task.Task
		)
		if err := rows.Scan(&rawID, &t.Title, &t.Description, &status); err != nil {
			return nil, classify(fmt.Errorf("failed to scan task row: %w", err))
		}
		id, err := uuid.Parse(rawID)
		if err != nil {
			return nil, resilience.Permanent(fmt.Errorf("invalid task id %q: %w", rawID, err))
		}
		t.ID = id
		t.Status = task.Status(status)
		tasks = append(tasks, &t)
	}
	if err := rows.Err(); err != nil {
		return nil, classify(fmt.Errorf("failed to iterate task rows: %w", err))
	}
	return tasks, nil
}

// Delete removes the task by id. Deleting an absent id is a no-op.
func (s *Store) Delete(ctx context.Context, id uuid.UUID) error {
	_, err := s.db.ExecContext(ctx, "DELETE FROM tasks WHERE id = $1", id.String())
	if err != nil {
		return classify(fmt.Errorf("failed to delete task %s: %w", id, err))
	}
	return nil
}

// Ping performs a minimal round trip to the database.
func (s *Store) Ping(ctx context.Context) error {
	if err := s.db.PingContext(ctx); err != nil {
		return resilience.Transient(err)
	}
	return nil
}

// Close closes the underlying database connection.
func (s *Store) Close() error {
	return s.db.Close()
}

// classify maps driver errors into the resilience taxonomy. Postgres error
// classes 08 (connection exception) and 53 (insufficient resources) are
// transient; everything else is left to the generic classifier.
func classify(err error) error {
	if err == nil {
		return nil
	}
	var pqErr *pq.Error
	if errors.As(err, &pqErr) {
		switch pqErr.Code.Class() {
		case "08", "53", "57":
			return resilience.Transient(err)
		}
		return resilience.Permanent(err)
	}
	return err
}
