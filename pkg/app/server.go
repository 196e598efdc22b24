// Copyright 2025 Author(s) of TaskMig
// SPDX-License-Identifier: Apache-2.0

// Package app wires configuration, stores, the dual dispatcher and the HTTP
// surface into a runnable server.
package app

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"os"
	"time"

	"github.com/gin-gonic/gin"

	"github.com/taskmig/core/pkg/api"
	"github.com/taskmig/core/pkg/config"
	"github.com/taskmig/core/pkg/health"
	"github.com/taskmig/core/pkg/logging"
	"github.com/taskmig/core/pkg/storage"
	"github.com/taskmig/core/pkg/storage/dual"
	"github.com/taskmig/core/pkg/storage/memory"
	mongostore "github.com/taskmig/core/pkg/storage/mongo"
	"github.com/taskmig/core/pkg/storage/postgres"
	"github.com/taskmig/core/pkg/storage/sqlite"
	"github.com/taskmig/core/pkg/tasks"
)

const shutdownTimeout = 10 * time.Second

// Run starts the server and blocks until ctx is cancelled or the listener
// fails. All long-lived resources (stores, dispatcher pool) are created here
// once and released on the way out.
func Run(ctx context.Context) error {
	settings, err := config.Load()
	if err != nil {
		return fmt.Errorf("failed to load settings: %w", err)
	}

	logging.Init(logging.ParseLevel(settings.LogLevel), os.Stdout, settings.LogFormat)
	logger := logging.GetLogger()

	repo, checks, err := newRepository(ctx, settings, logger)
	if err != nil {
		return err
	}
	defer func() {
		if err := repo.Close(); err != nil {
			logger.Error("failed to close repository", "error", err)
		}
	}()

	router := NewRouter(repo, checks, settings.PingTimeout, logger)

	srv := &http.Server{
		Addr:              settings.Addr(),
		Handler:           router,
		ReadHeaderTimeout: 10 * time.Second,
	}

	errCh := make(chan error, 1)
	go func() {
		logger.Info("server listening", "addr", settings.Addr(), "repository", settings.Repository)
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			errCh <- err
		}
	}()

	select {
	case err := <-errCh:
		return fmt.Errorf("server failed: %w", err)
	case <-ctx.Done():
	}

	logger.Info("shutting down")
	shutdownCtx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
	defer cancel()
	if err := srv.Shutdown(shutdownCtx); err != nil {
		return fmt.Errorf("shutdown failed: %w", err)
	}
	return nil
}

// NewRouter builds the gin engine with the task routes and the health
// endpoint. checks maps a health check name to the store its probe targets,
// one entry per configured store.
func NewRouter(repo storage.TaskRepository, checks map[string]storage.TaskRepository, pingTimeout time.Duration, logger *slog.Logger) *gin.Engine {
	router := gin.New()
	router.Use(gin.Recovery())

	api.NewHandler(tasks.NewService(repo), logger).Register(router)

	checker := health.NewChecker(logger, pingTimeout, checks)
	router.GET("/healthz", gin.WrapH(health.Handler(checker)))

	return router
}

// newRepository builds the repository selected by ORM: the relational
// primary, the document secondary, the dual dispatcher over both, or the
// in-memory store. The returned map carries one health check per underlying
// store, so in dual mode /healthz reports each store individually instead of
// the dispatcher's either-store-up aggregate.
func newRepository(ctx context.Context, settings *config.Settings, logger *slog.Logger) (storage.TaskRepository, map[string]storage.TaskRepository, error) {
	switch settings.Repository {
	case config.RepoMemory:
		repo := memory.NewStore()
		return repo, map[string]storage.TaskRepository{health.CheckPrimary: repo}, nil

	case config.RepoPrimary:
		repo, _, err := openPrimary(settings)
		if err != nil {
			return nil, nil, err
		}
		return repo, map[string]storage.TaskRepository{health.CheckPrimary: repo}, nil

	case config.RepoSecondary:
		repo, err := openSecondary(ctx, settings)
		if err != nil {
			return nil, nil, err
		}
		return repo, map[string]storage.TaskRepository{health.CheckSecondary: repo}, nil

	case config.RepoDual:
		primary, isLocalFile, err := openPrimary(settings)
		if err != nil {
			return nil, nil, err
		}
		secondary, err := openSecondary(ctx, settings)
		if err != nil {
			_ = primary.Close()
			return nil, nil, err
		}
		repo := dual.New(primary, secondary, dual.Config{
			PingTimeout:      settings.PingTimeout,
			ParallelTimeout:  settings.ParallelTimeout,
			RetryMaxAttempts: settings.RetryMaxAttempts,
			RetryBaseDelay:   settings.RetryBaseDelay,
			FailureThreshold: settings.FailureThreshold,
			RecoveryTimeout:  settings.RecoveryTimeout,
			SkipPrimaryProbe: isLocalFile,
		}, logger)
		return repo, map[string]storage.TaskRepository{
			health.CheckPrimary:   primary,
			health.CheckSecondary: secondary,
		}, nil

	default:
		return nil, nil, fmt.Errorf("unsupported repository selection: %s", settings.Repository)
	}
}

// openPrimary opens the relational store. The second return reports whether
// the DSN selected the local file-backed engine.
func openPrimary(settings *config.Settings) (storage.TaskRepository, bool, error) {
	if path, ok := settings.SQLitePath(); ok {
		db, err := sqlite.NewDB(path)
		if err != nil {
			return nil, false, fmt.Errorf("failed to initialize sqlite db: %w", err)
		}
		return sqlite.NewStore(db), true, nil
	}

	db, err := postgres.NewDB(settings.DatabaseURL)
	if err != nil {
		return nil, false, fmt.Errorf("failed to initialize postgres db: %w", err)
	}
	return postgres.NewStore(db), false, nil
}

func openSecondary(ctx context.Context, settings *config.Settings) (storage.TaskRepository, error) {
	client, err := mongostore.NewClient(ctx, settings.MongoURI)
	if err != nil {
		return nil, fmt.Errorf("failed to initialize mongo client: %w", err)
	}
	return mongostore.NewStore(client, settings.MongoDBName), nil
}
