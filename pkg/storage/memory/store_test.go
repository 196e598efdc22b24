// Copyright 2025 Author(s) of TaskMig
// SPDX-License-Identifier: Apache-2.0

package memory

import (
	"context"
	"testing"

	"github.com/google/uuid"
	"github.com/stretchr/testify/require"

	"github.com/taskmig/core/pkg/task"
)

func TestStore(t *testing.T) {
	ctx := context.Background()

	t.Run("save_and_get", func(t *testing.T) {
		s := NewStore()
		want := task.New("write docs", "outline first", "")

		require.NoError(t, s.Save(ctx, want))

		got, err := s.Get(ctx, want.ID)
		require.NoError(t, err)
		require.Equal(t, want, got)
	})

	t.Run("get_absent_returns_nil", func(t *testing.T) {
		s := NewStore()

		got, err := s.Get(ctx, uuid.New())
		require.NoError(t, err)
		require.Nil(t, got)
	})

	t.Run("save_overwrites_by_id", func(t *testing.T) {
		s := NewStore()
		original := task.New("write docs", "", "")
		require.NoError(t, s.Save(ctx, original))

		updated := original.Clone()
		updated.Title = "rewrite docs"
		updated.Status = task.StatusCompleted
		require.NoError(t, s.Save(ctx, updated))

		got, err := s.Get(ctx, original.ID)
		require.NoError(t, err)
		require.Equal(t, "rewrite docs", got.Title)
		require.Equal(t, task.StatusCompleted, got.Status)

		list, err := s.List(ctx)
		require.NoError(t, err)
		require.Len(t, list, 1)
	})

	t.Run("stored_task_is_isolated_from_caller", func(t *testing.T) {
		s := NewStore()
		original := task.New("write docs", "", "")
		require.NoError(t, s.Save(ctx, original))

		// Mutating the caller's copy must not affect the stored state.
		original.Title = "mutated"

		got, err := s.Get(ctx, original.ID)
		require.NoError(t, err)
		require.Equal(t, "write docs", got.Title)

		// And mutating a returned copy must not either.
		got.Title = "also mutated"
		again, err := s.Get(ctx, original.ID)
		require.NoError(t, err)
		require.Equal(t, "write docs", again.Title)
	})

	t.Run("list_all", func(t *testing.T) {
		s := NewStore()
		first := task.New("write docs", "", "")
		second := task.New("review docs", "", task.StatusInProgress)
		require.NoError(t, s.Save(ctx, first))
		require.NoError(t, s.Save(ctx, second))

		list, err := s.List(ctx)
		require.NoError(t, err)
		require.Len(t, list, 2)
		require.ElementsMatch(t, []*task.Task{first, second}, list)
	})

	t.Run("delete", func(t *testing.T) {
		s := NewStore()
		want := task.New("write docs", "", "")
		require.NoError(t, s.Save(ctx, want))

		require.NoError(t, s.Delete(ctx, want.ID))

		got, err := s.Get(ctx, want.ID)
		require.NoError(t, err)
		require.Nil(t, got)
	})

	t.Run("delete_absent_is_noop", func(t *testing.T) {
		s := NewStore()
		require.NoError(t, s.Delete(ctx, uuid.New()))
	})

	t.Run("ping_and_close", func(t *testing.T) {
		s := NewStore()
		require.NoError(t, s.Ping(ctx))
		require.NoError(t, s.Close())
	})
}
