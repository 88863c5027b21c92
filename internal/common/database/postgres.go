// internal/common/database/postgres.go
package database

import (
	"context"
	"database/sql"
	"fmt"
	"time"

	"iluma-intelligence/internal/common/config"

	_ "github.com/lib/pq"
)

// PostgresClient wraps the SQL database connection
type PostgresClient struct {
	DB *sql.DB
}

// NewPostgres opens a pooled connection to the profile and snapshot database.
func NewPostgres(cfg config.PostgresConfig) (*PostgresClient, error) {
	db, err := sql.Open("postgres", cfg.GetDSN())
	if err != nil {
		return nil, fmt.Errorf("failed to open postgres: %w", err)
	}

	db.SetMaxOpenConns(cfg.MaxConnections)
	db.SetMaxIdleConns(cfg.MaxIdle)
	db.SetConnMaxLifetime(5 * time.Minute)
	db.SetConnMaxIdleTime(5 * time.Minute)

	return &PostgresClient{DB: db}, nil
}

// Ping tests the database connection
func (c *PostgresClient) Ping(ctx context.Context) error {
	return c.DB.PingContext(ctx)
}

// schemaStatements create the tables read by the profile source and the
// snapshot store. Every statement is idempotent.
var schemaStatements = []string{
	`CREATE TABLE IF NOT EXISTS business_profiles (
		id        TEXT PRIMARY KEY,
		name      TEXT,
		sector    TEXT NOT NULL,
		city      TEXT,
		lat       DOUBLE PRECISION NOT NULL,
		lng       DOUBLE PRECISION NOT NULL,
		metrics   JSONB NOT NULL DEFAULT '{}'::jsonb,
		potential TEXT,
		status    TEXT
	)`,
	`CREATE INDEX IF NOT EXISTS business_profiles_sector_city_idx ON business_profiles (sector, city)`,
	`CREATE TABLE IF NOT EXISTS score_snapshots (
		id               BIGSERIAL PRIMARY KEY,
		business_id      TEXT NOT NULL,
		overall          INTEGER NOT NULL CHECK (overall BETWEEN 0 AND 100),
		breakdown        JSONB NOT NULL,
		trend_direction  TEXT NOT NULL,
		trend_percentage DOUBLE PRECISION NOT NULL,
		recommendations  TEXT[] NOT NULL DEFAULT '{}',
		warnings         TEXT[] NOT NULL DEFAULT '{}',
		computed_at      TIMESTAMPTZ NOT NULL
	)`,
	`CREATE INDEX IF NOT EXISTS score_snapshots_business_computed_idx ON score_snapshots (business_id, computed_at DESC)`,
}

// EnsureSchema creates missing tables and indexes in one transaction.
func (c *PostgresClient) EnsureSchema(ctx context.Context) error {
	tx, err := c.DB.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("begin schema transaction: %w", err)
	}
	for _, stmt := range schemaStatements {
		if _, err := tx.ExecContext(ctx, stmt); err != nil {
			_ = tx.Rollback()
			return fmt.Errorf("apply schema: %w", err)
		}
	}
	if err := tx.Commit(); err != nil {
		return fmt.Errorf("commit schema: %w", err)
	}
	return nil
}

// Close closes the database connection
func (c *PostgresClient) Close() error {
	if c.DB != nil {
		return c.DB.Close()
	}
	return nil
}
