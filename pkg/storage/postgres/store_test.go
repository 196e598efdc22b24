// Copyright 2025 Author(s) of TaskMig
// SPDX-License-Identifier: Apache-2.0

package postgres

import (
	"context"
	"database/sql"
	"testing"

	"github.com/DATA-DOG/go-sqlmock"
	"github.com/google/uuid"
	"github.com/lib/pq"
	"github.com/stretchr/testify/require"

	"github.com/taskmig/core/pkg/resilience"
	"github.com/taskmig/core/pkg/task"
)

func newMockStore(t *testing.T) (*Store, sqlmock.Sqlmock) {
	t.Helper()
	db, mock, err := sqlmock.New()
	require.NoError(t, err)
	t.Cleanup(func() { _ = db.Close() })
	return NewStore(&DB{db}), mock
}

func TestStoreSave(t *testing.T) {
	t.Run("upserts", func(t *testing.T) {
		s, mock := newMockStore(t)
		want := task.New("write docs", "outline first", "")

		mock.ExpectExec("INSERT INTO tasks").
			WithArgs(want.ID.String(), want.Title, want.Description, "pending").
			WillReturnResult(sqlmock.NewResult(0, 1))

		require.NoError(t, s.Save(context.Background(), want))
		require.NoError(t, mock.ExpectationsWereMet())
	})

	t.Run("rejects_invalid_task_before_touching_db", func(t *testing.T) {
		s, mock := newMockStore(t)

		err := s.Save(context.Background(), &task.Task{ID: uuid.New(), Status: task.StatusPending})
		var permanent *resilience.PermanentError
		require.ErrorAs(t, err, &permanent)
		require.NoError(t, mock.ExpectationsWereMet())
	})

	t.Run("connection_error_is_transient", func(t *testing.T) {
		s, mock := newMockStore(t)
		want := task.New("write docs", "", "")

		mock.ExpectExec("INSERT INTO tasks").
			WillReturnError(&pq.Error{Code: "08006", Message: "connection failure"})

		err := s.Save(context.Background(), want)
		require.Error(t, err)
		require.True(t, resilience.IsRetryable(err))
	})

	t.Run("constraint_error_is_permanent", func(t *testing.T) {
		s, mock := newMockStore(t)
		want := task.New("write docs", "", "")

		mock.ExpectExec("INSERT INTO tasks").
			WillReturnError(&pq.Error{Code: "23505", Message: "duplicate key"})

		err := s.Save(context.Background(), want)
		require.Error(t, err)
		require.False(t, resilience.IsRetryable(err))
	})
}

func TestStoreGet(t *testing.T) {
	t.Run("found", func(t *testing.T) {
		s, mock := newMockStore(t)
		id := uuid.New()

		mock.ExpectQuery("SELECT title, description, status FROM tasks").
			WithArgs(id.String()).
			WillReturnRows(sqlmock.NewRows([]string{"title", "description", "status"}).
				AddRow("write docs", "outline first", "in_progress"))

		got, err := s.Get(context.Background(), id)
		require.NoError(t, err)
		require.Equal(t, &task.Task{
			ID:          id,
			Title:       "write docs",
			Description: "outline first",
			Status:      task.StatusInProgress,
		}, got)
	})

	t.Run("absent_returns_nil", func(t *testing.T) {
		s, mock := newMockStore(t)
		id := uuid.New()

		mock.ExpectQuery("SELECT title, description, status FROM tasks").
			WithArgs(id.String()).
			WillReturnError(sql.ErrNoRows)

		got, err := s.Get(context.Background(), id)
		require.NoError(t, err)
		require.Nil(t, got)
	})
}

func TestStoreList(t *testing.T) {
	t.Run("enumerates_rows", func(t *testing.T) {
		s, mock := newMockStore(t)
		first, second := uuid.New(), uuid.New()

		mock.ExpectQuery("SELECT id, title, description, status FROM tasks").
			WillReturnRows(sqlmock.NewRows([]string{"id", "title", "description", "status"}).
				AddRow(first.String(), "write docs", "", "pending").
				AddRow(second.String(), "review docs", "", "completed"))

		got, err := s.List(context.Background())
		require.NoError(t, err)
		require.Len(t, got, 2)
		require.Equal(t, first, got[0].ID)
		require.Equal(t, task.StatusCompleted, got[1].Status)
	})

	t.Run("empty_table", func(t *testing.T) {
		s, mock := newMockStore(t)

		mock.ExpectQuery("SELECT id, title, description, status FROM tasks").
			WillReturnRows(sqlmock.NewRows([]string{"id", "title", "description", "status"}))

		got, err := s.List(context.Background())
		require.NoError(t, err)
		require.Empty(t, got)
	})

	t.Run("corrupt_id_is_permanent", func(t *testing.T) {
		s, mock := newMockStore(t)

		mock.ExpectQuery("SELECT id, title, description, status FROM tasks").
			WillReturnRows(sqlmock.NewRows([]string{"id", "title", "description", "status"}).
				AddRow("not-a-uuid", "write docs", "", "pending"))

		_, err := s.List(context.Background())
		require.Error(t, err)
		require.False(t, resilience.IsRetryable(err))
	})
}

func TestStoreDelete(t *testing.T) {
	s, mock := newMockStore(t)
	id := uuid.New()

	mock.ExpectExec("DELETE FROM tasks").
		WithArgs(id.String()).
		WillReturnResult(sqlmock.NewResult(0, 0))

	require.NoError(t, s.Delete(context.Background(), id))
	require.NoError(t, mock.ExpectationsWereMet())
}

func TestStorePing(t *testing.T) {
	db, mock, err := sqlmock.New(sqlmock.MonitorPingsOption(true))
	require.NoError(t, err)
	t.Cleanup(func() { _ = db.Close() })
	s := NewStore(&DB{db})

	mock.ExpectPing().WillReturnError(&pq.Error{Code: "57P01", Message: "terminating connection"})

	err = s.Ping(context.Background())
	require.Error(t, err)
	require.True(t, resilience.IsRetryable(err))
}
