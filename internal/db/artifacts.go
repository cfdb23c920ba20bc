package db

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"

	"github.com/jonathan/experience-matcher/internal/types"
)

// Artifact kinds stored per run.
const (
	KindMatchResult    = "match_result"
	KindJobDescription = "job_description"
)

// SaveArtifact stores a JSON artifact for a run, replacing any previous
// artifact of the same kind.
func (db *DB) SaveArtifact(ctx context.Context, runID uuid.UUID, kind string, content any) error {
	jsonBytes, err := json.Marshal(content)
	if err != nil {
		return fmt.Errorf("failed to marshal artifact: %w", err)
	}

	_, err = db.pool.Exec(ctx,
		`INSERT INTO match_artifacts (run_id, kind, content)
		 VALUES ($1, $2, $3)
		 ON CONFLICT (run_id, kind) DO UPDATE SET content = $3, created_at = NOW()`,
		runID, kind, jsonBytes,
	)
	if err != nil {
		return fmt.Errorf("failed to save artifact %s: %w", kind, err)
	}
	return nil
}

// GetArtifact retrieves a raw JSON artifact, or nil when absent.
func (db *DB) GetArtifact(ctx context.Context, runID uuid.UUID, kind string) ([]byte, error) {
	var content []byte
	err := db.pool.QueryRow(ctx,
		`SELECT content FROM match_artifacts WHERE run_id = $1 AND kind = $2`,
		runID, kind,
	).Scan(&content)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, nil
		}
		return nil, fmt.Errorf("failed to get artifact %s: %w", kind, err)
	}
	return content, nil
}

// SaveResult stores the final match result for a run.
func (db *DB) SaveResult(ctx context.Context, runID uuid.UUID, result *types.JobMatchResult) error {
	return db.SaveArtifact(ctx, runID, KindMatchResult, result)
}

// GetResult retrieves the stored match result for a run, or nil when absent.
func (db *DB) GetResult(ctx context.Context, runID uuid.UUID) (*types.JobMatchResult, error) {
	content, err := db.GetArtifact(ctx, runID, KindMatchResult)
	if err != nil || content == nil {
		return nil, err
	}

	var result types.JobMatchResult
	if err := json.Unmarshal(content, &result); err != nil {
		return nil, fmt.Errorf("failed to unmarshal match result: %w", err)
	}
	return &result, nil
}
