// Copyright 2025 Author(s) of TaskMig
// SPDX-License-Identifier: Apache-2.0

package mongo

import (
	"errors"
	"testing"

	"github.com/stretchr/testify/require"
	"go.mongodb.org/mongo-driver/v2/mongo"

	"github.com/taskmig/core/pkg/resilience"
	"github.com/taskmig/core/pkg/task"
)

func TestDocMapping(t *testing.T) {
	t.Run("round_trip", func(t *testing.T) {
		want := task.New("write docs", "outline first", task.StatusInProgress)

		doc := toDoc(want)
		require.Equal(t, want.ID.String(), doc.ID)

		got, err := doc.toTask()
		require.NoError(t, err)
		require.Equal(t, want, got)
	})

	t.Run("empty_description_survives", func(t *testing.T) {
		want := task.New("write docs", "", "")

		got, err := toDoc(want).toTask()
		require.NoError(t, err)
		require.Equal(t, want, got)
	})

	t.Run("corrupt_id_is_permanent", func(t *testing.T) {
		doc := taskDoc{ID: "not-a-uuid", Title: "write docs", Status: "pending"}

		_, err := doc.toTask()
		require.Error(t, err)
		var permanent *resilience.PermanentError
		require.ErrorAs(t, err, &permanent)
	})
}

func TestClassify(t *testing.T) {
	t.Run("nil_passthrough", func(t *testing.T) {
		require.NoError(t, classify(nil))
	})

	t.Run("disconnected_client_is_transient", func(t *testing.T) {
		err := classify(mongo.ErrClientDisconnected)
		require.True(t, resilience.IsRetryable(err))
	})

	t.Run("plain_error_untouched", func(t *testing.T) {
		cause := errors.New("document validation failed")
		err := classify(cause)
		require.ErrorIs(t, err, cause)
		require.False(t, resilience.IsRetryable(err))
	})
}

func TestStoreUsesTasksCollection(t *testing.T) {
	client, err := mongo.Connect()
	require.NoError(t, err)
	s := NewStore(client, "taskmig")
	require.Equal(t, "tasks", s.coll.Name())
	require.Equal(t, "taskmig", s.coll.Database().Name())
	require.NoError(t, s.Close())
}
