// Copyright 2025 Author(s) of TaskMig
// SPDX-License-Identifier: Apache-2.0

// Package postgres implements the primary (relational) task store.
package postgres

import (
	"context"
	"database/sql"
	"fmt"
	"time"

	_ "github.com/lib/pq" // Register postgres driver
)

// DB wraps the sql.DB connection.
type DB struct {
	*sql.DB
}

// NewDB opens a PostgreSQL database connection.
func NewDB(dsn string) (*DB, error) {
	return NewDBWithDriver("postgres", dsn)
}

// NewDBWithDriver opens a database connection with the specified driver.
// Any driver registered with database/sql works; the application uses this
// to run the relational store on sqlite for local development.
func NewDBWithDriver(driver, dsn string) (*DB, error) {
	db, err := sql.Open(driver, dsn)
	if err != nil {
		return nil, fmt.Errorf("failed to open %s db: %w", driver, err)
	}

	// Default MaxOpenConns is 0 (unlimited), which can exhaust DB resources.
	// Default MaxIdleConns is 2, which causes high connection churn.
	db.SetMaxOpenConns(25)
	db.SetMaxIdleConns(25)
	db.SetConnMaxLifetime(5 * time.Minute)

	if err := db.PingContext(context.Background()); err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("failed to ping %s db: %w", driver, err)
	}

	if err := initSchema(db); err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("failed to init schema: %w", err)
	}

	return &DB{db}, nil
}

func initSchema(db *sql.DB) error {
	query := `
	CREATE TABLE IF NOT EXISTS tasks (
		id TEXT PRIMARY KEY,
		title TEXT NOT NULL,
		description TEXT NOT NULL DEFAULT '',
		status TEXT NOT NULL DEFAULT 'pending'
	);
	`
	if _, err := db.Exec(query); err != nil {
		return fmt.Errorf("failed to create tasks table: %w", err)
	}
	return nil
}
