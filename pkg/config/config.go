// Copyright 2025 Author(s) of TaskMig
// SPDX-License-Identifier: Apache-2.0

// Package config loads the environment-driven application settings. Every
// variable is optional and falls back to a documented default.
package config

import (
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/joho/godotenv"
)

// Repository selection values for the ORM variable.
const (
	RepoPrimary   = "primary"
	RepoSecondary = "secondary"
	RepoDual      = "dual"
	RepoMemory    = "memory"
)

// Settings is the full application configuration.
type Settings struct {
	// Repository selection: primary, secondary, dual or memory.
	Repository string

	// DatabaseURL is the DSN for the primary (relational) store. A
	// "sqlite://" or plain file path DSN selects the local file-backed
	// engine.
	DatabaseURL string

	// MongoURI and MongoDBName locate the secondary (document) store.
	MongoURI    string
	MongoDBName string

	// Dispatcher tunables, forwarded to the dual repository.
	FailureThreshold int
	RecoveryTimeout  time.Duration
	RetryMaxAttempts int
	RetryBaseDelay   time.Duration
	ParallelTimeout  time.Duration
	PingTimeout      time.Duration

	// HTTP server.
	Host string
	Port int

	// Logging.
	LogLevel  string
	LogFormat string
}

// Load reads settings from the environment, after loading a local .env file
// when one exists. Unset variables take their defaults; malformed numeric
// values are an error rather than a silent fallback.
func Load() (*Settings, error) {
	// A missing .env is the normal case outside local development.
	_ = godotenv.Load()

	s := &Settings{
		Repository:  strings.ToLower(getEnv("ORM", RepoPrimary)),
		DatabaseURL: getEnv("DATABASE_URL", "sqlite://tasks.db"),
		MongoURI:    getEnv("MONGO_URI", "mongodb://localhost:27017"),
		MongoDBName: getEnv("MONGO_DB_NAME", "taskmig"),
		Host:        getEnv("HOST", "127.0.0.1"),
		LogLevel:    getEnv("LOG_LEVEL", "info"),
		LogFormat:   getEnv("LOG_FORMAT", "text"),
	}

	switch s.Repository {
	case RepoPrimary, RepoSecondary, RepoDual, RepoMemory:
	default:
		return nil, fmt.Errorf("invalid ORM value %q (want primary, secondary, dual or memory)", s.Repository)
	}

	var err error
	if s.Port, err = getEnvInt("PORT", 8000); err != nil {
		return nil, err
	}
	if s.FailureThreshold, err = getEnvInt("CB_FAILURE_THRESHOLD", 3); err != nil {
		return nil, err
	}
	if s.RetryMaxAttempts, err = getEnvInt("RETRY_MAX_ATTEMPTS", 2); err != nil {
		return nil, err
	}
	if s.RecoveryTimeout, err = getEnvSeconds("CB_RECOVERY_TIMEOUT_SEC", 30*time.Second); err != nil {
		return nil, err
	}
	if s.RetryBaseDelay, err = getEnvSeconds("RETRY_BASE_DELAY_SEC", 500*time.Millisecond); err != nil {
		return nil, err
	}
	if s.ParallelTimeout, err = getEnvSeconds("PARALLEL_TIMEOUT_SEC", 10*time.Second); err != nil {
		return nil, err
	}
	if s.PingTimeout, err = getEnvSeconds("PING_TIMEOUT_SEC", 3*time.Second); err != nil {
		return nil, err
	}

	return s, nil
}

// SQLitePath reports whether the primary DSN selects the local file-backed
// engine, and the file path when it does.
func (s *Settings) SQLitePath() (string, bool) {
	switch {
	case strings.HasPrefix(s.DatabaseURL, "sqlite://"):
		return strings.TrimPrefix(s.DatabaseURL, "sqlite://"), true
	case strings.HasPrefix(s.DatabaseURL, "sqlite:"):
		return strings.TrimPrefix(s.DatabaseURL, "sqlite:"), true
	case strings.HasPrefix(s.DatabaseURL, "postgres://"), strings.HasPrefix(s.DatabaseURL, "postgresql://"):
		return "", false
	default:
		// Plain paths are treated as sqlite files.
		return s.DatabaseURL, true
	}
}

// Addr is the host:port the HTTP server binds.
func (s *Settings) Addr() string {
	return fmt.Sprintf("%s:%d", s.Host, s.Port)
}

func getEnv(key, fallback string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return fallback
}

func getEnvInt(key string, fallback int) (int, error) {
	v := os.Getenv(key)
	if v == "" {
		return fallback, nil
	}
	n, err := strconv.Atoi(v)
	if err != nil {
		return 0, fmt.Errorf("invalid %s value %q: %w", key, v, err)
	}
	return n, nil
}

// getEnvSeconds parses a duration expressed in (possibly fractional) seconds.
func getEnvSeconds(key string, fallback time.Duration) (time.Duration, error) {
	v := os.Getenv(key)
	if v == "" {
		return fallback, nil
	}
	secs, err := strconv.ParseFloat(v, 64)
	if err != nil {
		return 0, fmt.Errorf("invalid %s value %q: %w", key, v, err)
	}
	return time.Duration(secs * float64(time.Second)), nil
}
