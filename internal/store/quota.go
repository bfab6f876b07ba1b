package store

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/jackc/pgx/v5"
)

// QuotaWindowRow is the persisted state of one quota window.
type QuotaWindowRow struct {
	Kind          string
	WindowStart   time.Time
	Granted       int
	CooldownUntil *time.Time
}

// SaveQuotaWindow upserts a quota window row.
func (db *DB) SaveQuotaWindow(ctx context.Context, row *QuotaWindowRow) error {
	_, err := db.pool.Exec(ctx,
		`INSERT INTO quota_windows (kind, window_start, granted, cooldown_until)
		 VALUES ($1, $2, $3, $4)
		 ON CONFLICT (kind, window_start) DO UPDATE SET granted = $3, cooldown_until = $4`,
		row.Kind, row.WindowStart, row.Granted, row.CooldownUntil,
	)
	if err != nil {
		return fmt.Errorf("failed to save quota window %s: %w", row.Kind, err)
	}
	return nil
}

// GetQuotaWindow retrieves the window row for a kind and window start.
// Returns (nil, nil) when the window has never been touched.
func (db *DB) GetQuotaWindow(ctx context.Context, kind string, windowStart time.Time) (*QuotaWindowRow, error) {
	var row QuotaWindowRow
	err := db.pool.QueryRow(ctx,
		`SELECT kind, window_start, granted, cooldown_until
		 FROM quota_windows WHERE kind = $1 AND window_start = $2`,
		kind, windowStart,
	).Scan(&row.Kind, &row.WindowStart, &row.Granted, &row.CooldownUntil)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, nil
		}
		return nil, fmt.Errorf("failed to get quota window %s: %w", kind, err)
	}
	return &row, nil
}
