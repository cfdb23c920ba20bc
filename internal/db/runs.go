package db

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
)

// MatchRun represents one recorded matching run.
type MatchRun struct {
	ID          uuid.UUID  `json:"id"`
	JobURL      string     `json:"job_url"`
	Title       string     `json:"title"`
	Company     string     `json:"company"`
	Status      string     `json:"status"`
	CreatedAt   time.Time  `json:"created_at"`
	CompletedAt *time.Time `json:"completed_at,omitempty"`
}

// Run status values.
const (
	RunStatusRunning   = "running"
	RunStatusCompleted = "completed"
	RunStatusFailed    = "failed"
)

// CreateRun records a new matching run and returns its ID.
func (db *DB) CreateRun(ctx context.Context, jobURL, title, company string) (uuid.UUID, error) {
	var id uuid.UUID
	err := db.pool.QueryRow(ctx,
		`INSERT INTO match_runs (job_url, title, company, status)
		 VALUES ($1, $2, $3, $4)
		 RETURNING id`,
		jobURL, title, company, RunStatusRunning,
	).Scan(&id)
	if err != nil {
		return uuid.Nil, fmt.Errorf("failed to create run: %w", err)
	}
	return id, nil
}

// CompleteRun marks a matching run as finished with the given status.
func (db *DB) CompleteRun(ctx context.Context, runID uuid.UUID, status string) error {
	_, err := db.pool.Exec(ctx,
		`UPDATE match_runs SET status = $1, completed_at = NOW() WHERE id = $2`,
		status, runID,
	)
	if err != nil {
		return fmt.Errorf("failed to complete run: %w", err)
	}
	return nil
}

// GetRun retrieves a matching run by ID, or nil when absent.
func (db *DB) GetRun(ctx context.Context, runID uuid.UUID) (*MatchRun, error) {
	var run MatchRun
	err := db.pool.QueryRow(ctx,
		`SELECT id, job_url, title, company, status, created_at, completed_at
		 FROM match_runs WHERE id = $1`,
		runID,
	).Scan(&run.ID, &run.JobURL, &run.Title, &run.Company, &run.Status, &run.CreatedAt, &run.CompletedAt)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, nil
		}
		return nil, fmt.Errorf("failed to get run: %w", err)
	}
	return &run, nil
}

// ListRuns retrieves the most recent matching runs.
func (db *DB) ListRuns(ctx context.Context, limit int) ([]MatchRun, error) {
	if limit <= 0 {
		limit = 50
	}
	rows, err := db.pool.Query(ctx,
		`SELECT id, job_url, title, company, status, created_at, completed_at
		 FROM match_runs ORDER BY created_at DESC LIMIT $1`,
		limit,
	)
	if err != nil {
		return nil, fmt.Errorf("failed to list runs: %w", err)
	}
	defer rows.Close()

	var runs []MatchRun
	for rows.Next() {
		var run MatchRun
		if err := rows.Scan(&run.ID, &run.JobURL, &run.Title, &run.Company, &run.Status, &run.CreatedAt, &run.CompletedAt); err != nil {
			return nil, fmt.Errorf("failed to scan run: %w", err)
		}
		runs = append(runs, run)
	}
	return runs, nil
}

// DeleteRun deletes a matching run and its artifacts via cascade.
func (db *DB) DeleteRun(ctx context.Context, runID uuid.UUID) error {
	result, err := db.pool.Exec(ctx, `DELETE FROM match_runs WHERE id = $1`, runID)
	if err != nil {
		return fmt.Errorf("failed to delete run: %w", err)
	}
	if result.RowsAffected() == 0 {
		return fmt.Errorf("run not found: %s", runID)
	}
	return nil
}
