package store

import (
	"context"
	"errors"
	"fmt"

	"github.com/jackc/pgx/v5"

	"github.com/jonathan/apply-agent/internal/types"
)

// SaveContent upserts a generated-content row keyed by fingerprint.
func (db *DB) SaveContent(ctx context.Context, content *types.GeneratedContent) error {
	_, err := db.pool.Exec(ctx,
		`INSERT INTO generated_content (fingerprint, resume_text, cover_letter, model, created_at)
		 VALUES ($1, $2, $3, $4, $5)
		 ON CONFLICT (fingerprint) DO UPDATE SET
		   resume_text = $2, cover_letter = $3, model = $4, created_at = $5`,
		content.Fingerprint, content.ResumeText, content.CoverLetter, content.Model, content.CreatedAt,
	)
	if err != nil {
		return fmt.Errorf("failed to save content %s: %w", content.Fingerprint, err)
	}
	return nil
}

// GetContent retrieves cached content by fingerprint. Returns (nil, nil) on a
// cache miss.
func (db *DB) GetContent(ctx context.Context, fingerprint string) (*types.GeneratedContent, error) {
	var content types.GeneratedContent
	err := db.pool.QueryRow(ctx,
		`SELECT fingerprint, resume_text, cover_letter, model, created_at
		 FROM generated_content WHERE fingerprint = $1`,
		fingerprint,
	).Scan(&content.Fingerprint, &content.ResumeText, &content.CoverLetter, &content.Model, &content.CreatedAt)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, nil
		}
		return nil, fmt.Errorf("failed to get content %s: %w", fingerprint, err)
	}
	return &content, nil
}
