// Copyright 2025 Author(s) of TaskMig
// SPDX-License-Identifier: Apache-2.0

package resilience

import (
	"testing"
	"time"

	"github.com/stretchr/testify/require"
)

func TestCircuitBreaker(t *testing.T) {
	t.Run("initial_state_is_closed", func(t *testing.T) {
		cb := NewCircuitBreaker("primary", 3, 10*time.Second, nil)
		require.Equal(t, StateClosed, cb.State())
		require.True(t, cb.Allow())
		require.Equal(t, 0, cb.Failures())
	})

	t.Run("opens_at_threshold_not_before", func(t *testing.T) {
		cb := NewCircuitBreaker("primary", 3, 10*time.Second, nil)

		cb.RecordFailure()
		cb.RecordFailure()
		require.Equal(t, StateClosed, cb.State())
		require.True(t, cb.Allow())
		require.Equal(t, 2, cb.Failures())

		cb.RecordFailure()
		require.Equal(t, StateOpen, cb.State())
		require.False(t, cb.Allow())
	})

	t.Run("success_resets_counter_in_closed", func(t *testing.T) {
		cb := NewCircuitBreaker("primary", 3, 10*time.Second, nil)

		cb.RecordFailure()
		cb.RecordFailure()
		cb.RecordSuccess()
		require.Equal(t, 0, cb.Failures())

		// The counter restarted, so two more failures stay closed.
		cb.RecordFailure()
		cb.RecordFailure()
		require.Equal(t, StateClosed, cb.State())
	})

	t.Run("open_to_half_open_after_recovery_timeout", func(t *testing.T) {
		cb := NewCircuitBreaker("primary", 1, 20*time.Millisecond, nil)

		cb.RecordFailure()
		require.Equal(t, StateOpen, cb.State())

		// Strictly before the timeout the circuit stays open.
		require.Equal(t, StateOpen, cb.State())
		require.False(t, cb.Allow())

		time.Sleep(25 * time.Millisecond)
		require.Equal(t, StateHalfOpen, cb.State())
		require.True(t, cb.Allow())
	})

	t.Run("allow_does_not_demote_half_open", func(t *testing.T) {
		cb := NewCircuitBreaker("primary", 1, 10*time.Millisecond, nil)

		cb.RecordFailure()
		time.Sleep(15 * time.Millisecond)

		require.True(t, cb.Allow())
		require.True(t, cb.Allow())
		require.Equal(t, StateHalfOpen, cb.State())
	})

	t.Run("half_open_to_closed_on_success", func(t *testing.T) {
		cb := NewCircuitBreaker("primary", 1, 10*time.Millisecond, nil)

		cb.RecordFailure()
		time.Sleep(15 * time.Millisecond)
		require.Equal(t, StateHalfOpen, cb.State())

		cb.RecordSuccess()
		require.Equal(t, StateClosed, cb.State())
		require.Equal(t, 0, cb.Failures())
		require.True(t, cb.Allow())
	})

	t.Run("half_open_to_open_on_failure", func(t *testing.T) {
		cb := NewCircuitBreaker("primary", 3, 10*time.Millisecond, nil)

		cb.RecordFailure()
		cb.RecordFailure()
		cb.RecordFailure()
		time.Sleep(15 * time.Millisecond)
		require.Equal(t, StateHalfOpen, cb.State())

		// Trial failure reopens regardless of the failure count.
		cb.RecordFailure()
		require.Equal(t, StateOpen, cb.State())
		require.False(t, cb.Allow())
	})

	t.Run("success_from_open_closes", func(t *testing.T) {
		cb := NewCircuitBreaker("primary", 1, 10*time.Second, nil)

		cb.RecordFailure()
		require.Equal(t, StateOpen, cb.State())

		cb.RecordSuccess()
		require.Equal(t, StateClosed, cb.State())
		require.True(t, cb.Allow())
		require.Equal(t, 0, cb.Failures())
	})

	t.Run("reset_restores_initial_state", func(t *testing.T) {
		cb := NewCircuitBreaker("primary", 1, 10*time.Second, nil)

		cb.RecordFailure()
		require.Equal(t, StateOpen, cb.State())

		cb.Reset()
		require.Equal(t, StateClosed, cb.State())
		require.Equal(t, 0, cb.Failures())
		require.True(t, cb.Allow())
	})
}

func TestStateString(t *testing.T) {
	require.Equal(t, "CLOSED", StateClosed.String())
	require.Equal(t, "OPEN", StateOpen.String())
	require.Equal(t, "HALF_OPEN", StateHalfOpen.String())
}
