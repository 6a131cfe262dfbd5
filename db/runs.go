// ABOUTME: Pipeline run ledger database operations
// ABOUTME: Records each stage invocation per account with ULID ids that sort by start time
package db

import (
	"context"
	"crypto/rand"
	"fmt"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/harperreed/introengine/apperr"
	"github.com/harperreed/introengine/models"
	"github.com/oklog/ulid/v2"
)

var (
	entropyMu  sync.Mutex
	runEntropy = ulid.Monotonic(rand.Reader, 0)
)

// newRunID is monotonic within a process so runs started in the same
// millisecond still list in start order.
func newRunID(t time.Time) string {
	entropyMu.Lock()
	defer entropyMu.Unlock()
	return ulid.MustNew(ulid.Timestamp(t), runEntropy).String()
}

// RecordRun inserts a run row with the given status and returns it.
func (s *Store) RecordRun(ctx context.Context, userID uuid.UUID, stage, status string) (*models.PipelineRun, error) {
	const op = "record_run"
	if err := requireUser(op, userID); err != nil {
		return nil, err
	}

	now := time.Now().UTC()
	run := &models.PipelineRun{
		ID:        newRunID(now),
		UserID:    userID,
		Stage:     stage,
		Status:    status,
		StartedAt: now,
	}
	if status != models.RunStatusRunning {
		run.FinishedAt = &now
	}

	_, err := s.db.ExecContext(ctx, `
		INSERT INTO pipeline_runs (id, user_id, stage, status, started_at, finished_at)
		VALUES (?, ?, ?, ?, ?, ?)
	`, run.ID, userID.String(), stage, status, run.StartedAt, run.FinishedAt)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", op, err)
	}
	return run, nil
}

// FinishRun closes a running run with its outcome.
func (s *Store) FinishRun(ctx context.Context, run *models.PipelineRun, status, summary string, runErr error) error {
	const op = "finish_run"
	now := time.Now().UTC()
	run.Status = status
	run.Summary = summary
	run.FinishedAt = &now
	if runErr != nil {
		run.Error = runErr.Error()
	}

	res, err := s.db.ExecContext(ctx, `
		UPDATE pipeline_runs SET status = ?, summary = ?, error = ?, finished_at = ?
		WHERE user_id = ? AND id = ?
	`, run.Status, run.Summary, run.Error, now, run.UserID.String(), run.ID)
	if err != nil {
		return fmt.Errorf("%s: %w", op, err)
	}
	if n, _ := res.RowsAffected(); n == 0 {
		return apperr.NotFound(op, "run", run.ID)
	}
	return nil
}

// ListRuns returns the newest runs of a user first.
func (s *Store) ListRuns(ctx context.Context, userID uuid.UUID, limit int) ([]models.PipelineRun, error) {
	const op = "list_runs"
	if err := requireUser(op, userID); err != nil {
		return nil, err
	}
	if limit <= 0 {
		limit = 20
	}

	rows, err := s.db.QueryContext(ctx, `
		SELECT id, user_id, stage, status, summary, error, started_at, finished_at
		FROM pipeline_runs
		WHERE user_id = ?
		ORDER BY id DESC
		LIMIT ?
	`, userID.String(), limit)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", op, err)
	}
	defer func() { _ = rows.Close() }()

	var runs []models.PipelineRun
	for rows.Next() {
		var r models.PipelineRun
		if err := rows.Scan(&r.ID, &r.UserID, &r.Stage, &r.Status, &r.Summary, &r.Error, &r.StartedAt, &r.FinishedAt); err != nil {
			return nil, fmt.Errorf("%s: %w", op, err)
		}
		runs = append(runs, r)
	}
	return runs, rows.Err()
}
