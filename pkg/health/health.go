// Copyright 2025 Author(s) of TaskMig
// SPDX-License-Identifier: Apache-2.0

// Package health exposes the /healthz checker built over the store probes.
package health

import (
	"context"
	"log/slog"
	"net/http"
	"sync"
	"time"

	"github.com/alexliesenfeld/health"
	"github.com/taskmig/core/pkg/storage"
)

// Check names reported by the handler.
const (
	CheckPrimary   = "primary-store"
	CheckSecondary = "secondary-store"
)

// NewChecker builds a health checker with one liveness check per configured
// store. Status changes are logged; results are cached briefly so frequent
// polling does not hammer the stores.
func NewChecker(logger *slog.Logger, pingTimeout time.Duration, stores map[string]storage.TaskRepository) health.Checker {
	if logger == nil {
		logger = slog.Default()
	}

	var lastStatus health.AvailabilityStatus
	var lastStatusMu sync.Mutex

	opts := []health.CheckerOption{
		health.WithCacheDuration(1 * time.Second),
		health.WithTimeout(pingTimeout),
		health.WithStatusListener(func(_ context.Context, state health.CheckerState) {
			lastStatusMu.Lock()
			prev := lastStatus
			lastStatus = state.Status
			lastStatusMu.Unlock()
			if prev == state.Status {
				return
			}
			logger.Info("health status changed", "status", state.Status)
		}),
	}

	for name, repo := range stores {
		repo := repo
		opts = append(opts, health.WithCheck(health.Check{
			Name: name,
			Check: func(ctx context.Context) error {
				return repo.Ping(ctx)
			},
		}))
	}

	return health.NewChecker(opts...)
}

// Handler wraps the checker in the standard HTTP handler.
func Handler(checker health.Checker) http.Handler {
	return health.NewHandler(checker)
}
