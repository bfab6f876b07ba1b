package store

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"

	"github.com/jackc/pgx/v5"

	"github.com/jonathan/apply-agent/internal/types"
)

// SaveRecord upserts an application record keyed by its identity pair.
func (db *DB) SaveRecord(ctx context.Context, rec *types.ApplicationRecord) error {
	jobJSON, err := json.Marshal(rec.Job)
	if err != nil {
		return fmt.Errorf("failed to marshal job: %w", err)
	}

	_, err = db.pool.Exec(ctx,
		`INSERT INTO application_records
		 (id, job_identity, profile_version, job, state, reason, attempts, retryable, fingerprint, admitted_at, last_attempt_at, submitted_at)
		 VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12)
		 ON CONFLICT (job_identity, profile_version) DO UPDATE SET
		   state = $5, reason = $6, attempts = $7, retryable = $8,
		   fingerprint = $9, last_attempt_at = $11, submitted_at = $12`,
		rec.ID, rec.JobIdentity, rec.ProfileVersion, jobJSON, rec.State, rec.Reason,
		rec.Attempts, rec.Retryable, rec.Fingerprint, rec.AdmittedAt, rec.LastAttemptAt, rec.SubmittedAt,
	)
	if err != nil {
		return fmt.Errorf("failed to save record %s: %w", rec.JobIdentity, err)
	}
	return nil
}

// GetRecord retrieves the record for a (job identity, profile version) pair.
// Returns (nil, nil) when no record exists.
func (db *DB) GetRecord(ctx context.Context, jobIdentity string, profileVersion int) (*types.ApplicationRecord, error) {
	row := db.pool.QueryRow(ctx,
		`SELECT id, job_identity, profile_version, job, state, reason, attempts, retryable, fingerprint, admitted_at, last_attempt_at, submitted_at
		 FROM application_records WHERE job_identity = $1 AND profile_version = $2`,
		jobIdentity, profileVersion,
	)
	rec, err := scanRecord(row)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, nil
		}
		return nil, fmt.Errorf("failed to get record %s: %w", jobIdentity, err)
	}
	return rec, nil
}

// ListRecordsByState retrieves records in a state, oldest admission first.
func (db *DB) ListRecordsByState(ctx context.Context, state types.State) ([]*types.ApplicationRecord, error) {
	rows, err := db.pool.Query(ctx,
		`SELECT id, job_identity, profile_version, job, state, reason, attempts, retryable, fingerprint, admitted_at, last_attempt_at, submitted_at
		 FROM application_records WHERE state = $1 ORDER BY admitted_at ASC`,
		state,
	)
	if err != nil {
		return nil, fmt.Errorf("failed to list records: %w", err)
	}
	defer rows.Close()

	var records []*types.ApplicationRecord
	for rows.Next() {
		rec, err := scanRecord(rows)
		if err != nil {
			return nil, fmt.Errorf("failed to scan record: %w", err)
		}
		records = append(records, rec)
	}
	return records, rows.Err()
}

// RecoverInFlight returns records left in the Submitting state by a previous
// process. Those submissions may or may not have reached the board.
func (db *DB) RecoverInFlight(ctx context.Context) ([]*types.ApplicationRecord, error) {
	return db.ListRecordsByState(ctx, types.StateSubmitting)
}

type rowScanner interface {
	Scan(dest ...any) error
}

func scanRecord(row rowScanner) (*types.ApplicationRecord, error) {
	var rec types.ApplicationRecord
	var jobJSON []byte
	if err := row.Scan(&rec.ID, &rec.JobIdentity, &rec.ProfileVersion, &jobJSON, &rec.State, &rec.Reason,
		&rec.Attempts, &rec.Retryable, &rec.Fingerprint, &rec.AdmittedAt, &rec.LastAttemptAt, &rec.SubmittedAt); err != nil {
		return nil, err
	}
	if err := json.Unmarshal(jobJSON, &rec.Job); err != nil {
		return nil, fmt.Errorf("failed to unmarshal job: %w", err)
	}
	return &rec, nil
}
