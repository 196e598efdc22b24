// Copyright 2025 Author(s) of TaskMig
// SPDX-License-Identifier: Apache-2.0

package config

import (
	"testing"
	"time"

	"github.com/stretchr/testify/require"
)

func clearEnv(t *testing.T) {
	t.Helper()
	for _, key := range []string{
		"ORM", "DATABASE_URL", "MONGO_URI", "MONGO_DB_NAME",
		"CB_FAILURE_THRESHOLD", "CB_RECOVERY_TIMEOUT_SEC",
		"RETRY_MAX_ATTEMPTS", "RETRY_BASE_DELAY_SEC",
		"PARALLEL_TIMEOUT_SEC", "PING_TIMEOUT_SEC",
		"HOST", "PORT", "LOG_LEVEL", "LOG_FORMAT",
	} {
		t.Setenv(key, "")
	}
}

func TestLoad(t *testing.T) {
	t.Run("defaults", func(t *testing.T) {
		clearEnv(t)

		s, err := Load()
		require.NoError(t, err)
		require.Equal(t, RepoPrimary, s.Repository)
		require.Equal(t, "sqlite://tasks.db", s.DatabaseURL)
		require.Equal(t, "mongodb://localhost:27017", s.MongoURI)
		require.Equal(t, "taskmig", s.MongoDBName)
		require.Equal(t, 3, s.FailureThreshold)
		require.Equal(t, 30*time.Second, s.RecoveryTimeout)
		require.Equal(t, 2, s.RetryMaxAttempts)
		require.Equal(t, 500*time.Millisecond, s.RetryBaseDelay)
		require.Equal(t, 10*time.Second, s.ParallelTimeout)
		require.Equal(t, 3*time.Second, s.PingTimeout)
		require.Equal(t, "127.0.0.1:8000", s.Addr())
		require.Equal(t, "info", s.LogLevel)
		require.Equal(t, "text", s.LogFormat)
	})

	t.Run("environment_overrides", func(t *testing.T) {
		clearEnv(t)
		t.Setenv("ORM", "dual")
		t.Setenv("DATABASE_URL", "postgres://user:pass@db:5432/tasks")
		t.Setenv("MONGO_URI", "mongodb://mongo:27017")
		t.Setenv("CB_FAILURE_THRESHOLD", "5")
		t.Setenv("CB_RECOVERY_TIMEOUT_SEC", "60")
		t.Setenv("RETRY_BASE_DELAY_SEC", "0.25")
		t.Setenv("PORT", "9000")

		s, err := Load()
		require.NoError(t, err)
		require.Equal(t, RepoDual, s.Repository)
		require.Equal(t, 5, s.FailureThreshold)
		require.Equal(t, time.Minute, s.RecoveryTimeout)
		require.Equal(t, 250*time.Millisecond, s.RetryBaseDelay)
		require.Equal(t, 9000, s.Port)
	})

	t.Run("orm_value_is_case_insensitive", func(t *testing.T) {
		clearEnv(t)
		t.Setenv("ORM", "DUAL")

		s, err := Load()
		require.NoError(t, err)
		require.Equal(t, RepoDual, s.Repository)
	})

	t.Run("invalid_orm_value", func(t *testing.T) {
		clearEnv(t)
		t.Setenv("ORM", "cassandra")

		_, err := Load()
		require.ErrorContains(t, err, "invalid ORM value")
	})

	t.Run("malformed_int", func(t *testing.T) {
		clearEnv(t)
		t.Setenv("CB_FAILURE_THRESHOLD", "many")

		_, err := Load()
		require.ErrorContains(t, err, "CB_FAILURE_THRESHOLD")
	})

	t.Run("malformed_seconds", func(t *testing.T) {
		clearEnv(t)
		t.Setenv("PING_TIMEOUT_SEC", "soon")

		_, err := Load()
		require.ErrorContains(t, err, "PING_TIMEOUT_SEC")
	})
}

func TestSQLitePath(t *testing.T) {
	tests := []struct {
		name     string
		dsn      string
		wantPath string
		wantOK   bool
	}{
		{"sqlite_scheme", "sqlite://tasks.db", "tasks.db", true},
		{"sqlite_short_scheme", "sqlite:tasks.db", "tasks.db", true},
		{"plain_path", "data/tasks.db", "data/tasks.db", true},
		{"postgres_scheme", "postgres://db:5432/tasks", "", false},
		{"postgresql_scheme", "postgresql://db:5432/tasks", "", false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			s := &Settings{DatabaseURL: tt.dsn}
			path, ok := s.SQLitePath()
			require.Equal(t, tt.wantOK, ok)
			require.Equal(t, tt.wantPath, path)
		})
	}
}
