// Package store provides PostgreSQL persistence for application records,
// quota windows, and cached generated content. All state that must survive a
// process restart lives here.
package store

import (
	"context"
	"fmt"

	"github.com/jackc/pgx/v5/pgxpool"
)

// DB wraps a PostgreSQL connection pool.
type DB struct {
	pool *pgxpool.Pool
}

// Connect establishes a connection pool to the database.
func Connect(ctx context.Context, databaseURL string) (*DB, error) {
	pool, err := pgxpool.New(ctx, databaseURL)
	if err != nil {
		return nil, fmt.Errorf("failed to connect to database: %w", err)
	}

	// Verify connection
	if err := pool.Ping(ctx); err != nil {
		pool.Close()
		return nil, fmt.Errorf("failed to ping database: %w", err)
	}

	return &DB{pool: pool}, nil
}

// Close closes the connection pool.
func (db *DB) Close() {
	if db.pool != nil {
		db.pool.Close()
	}
}

// EnsureSchema creates the tables this agent needs if they do not exist.
func (db *DB) EnsureSchema(ctx context.Context) error {
	stmts := []string{
		`CREATE TABLE IF NOT EXISTS application_records (
			id UUID PRIMARY KEY,
			job_identity TEXT NOT NULL,
			profile_version INT NOT NULL,
			job JSONB NOT NULL,
			state TEXT NOT NULL,
			reason TEXT NOT NULL DEFAULT '',
			attempts INT NOT NULL DEFAULT 0,
			retryable BOOLEAN NOT NULL DEFAULT FALSE,
			fingerprint TEXT NOT NULL DEFAULT '',
			admitted_at TIMESTAMPTZ NOT NULL,
			last_attempt_at TIMESTAMPTZ,
			submitted_at TIMESTAMPTZ,
			UNIQUE (job_identity, profile_version)
		)`,
		`CREATE TABLE IF NOT EXISTS quota_windows (
			kind TEXT NOT NULL,
			window_start TIMESTAMPTZ NOT NULL,
			granted INT NOT NULL DEFAULT 0,
			cooldown_until TIMESTAMPTZ,
			PRIMARY KEY (kind, window_start)
		)`,
		`CREATE TABLE IF NOT EXISTS generated_content (
			fingerprint TEXT PRIMARY KEY,
			resume_text TEXT NOT NULL,
			cover_letter TEXT NOT NULL,
			model TEXT NOT NULL DEFAULT '',
			created_at TIMESTAMPTZ NOT NULL DEFAULT NOW()
		)`,
	}
	for _, stmt := range stmts {
		if _, err := db.pool.Exec(ctx, stmt); err != nil {
			return fmt.Errorf("failed to ensure schema: %w", err)
		}
	}
	return nil
}
