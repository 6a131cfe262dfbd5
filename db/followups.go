// ABOUTME: Database operations for follow-up drafts
// ABOUTME: Persists drafted follow-up text per opportunity and lists the history
package db

import (
	"context"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/harperreed/introengine/apperr"
	"github.com/harperreed/introengine/models"
)

// SaveFollowUpDraft stores a non-empty draft.
func (s *Store) SaveFollowUpDraft(ctx context.Context, draft *models.FollowUpDraft) error {
	const op = "save_followup"
	if err := requireUser(op, draft.UserID); err != nil {
		return err
	}
	if draft.IsEmpty() {
		return apperr.Validation(op, "draft has no subject or body")
	}
	if draft.ID == uuid.Nil {
		draft.ID = uuid.New()
	}
	if draft.CreatedAt.IsZero() {
		draft.CreatedAt = time.Now().UTC()
	}

	res, err := s.db.ExecContext(ctx, `
		INSERT INTO followup_drafts (id, user_id, opportunity_id, subject, body, days_waiting, created_at)
		SELECT ?, ?, ?, ?, ?, ?, ?
		WHERE EXISTS (SELECT 1 FROM opportunities WHERE user_id = ? AND id = ?)
	`, draft.ID.String(), draft.UserID.String(), draft.OpportunityID.String(), draft.Subject, draft.Body,
		draft.DaysWaiting, draft.CreatedAt, draft.UserID.String(), draft.OpportunityID.String())
	if err != nil {
		return fmt.Errorf("%s: %w", op, err)
	}
	if n, _ := res.RowsAffected(); n == 0 {
		return apperr.NotFound(op, "opportunity", draft.OpportunityID)
	}
	return nil
}

// ListFollowUpDrafts returns drafts newest first, optionally for one opportunity.
func (s *Store) ListFollowUpDrafts(ctx context.Context, userID uuid.UUID, opportunityID *uuid.UUID, limit int) ([]models.FollowUpDraft, error) {
	const op = "list_followups"
	if err := requireUser(op, userID); err != nil {
		return nil, err
	}
	if limit <= 0 {
		limit = 50
	}

	query := `
		SELECT id, user_id, opportunity_id, subject, body, days_waiting, created_at
		FROM followup_drafts
		WHERE user_id = ?`
	args := []any{userID.String()}
	if opportunityID != nil {
		query += ` AND opportunity_id = ?`
		args = append(args, opportunityID.String())
	}
	query += ` ORDER BY created_at DESC, id LIMIT ?`
	args = append(args, limit)

	rows, err := s.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", op, err)
	}
	defer func() { _ = rows.Close() }()

	var drafts []models.FollowUpDraft
	for rows.Next() {
		var d models.FollowUpDraft
		if err := rows.Scan(&d.ID, &d.UserID, &d.OpportunityID, &d.Subject, &d.Body, &d.DaysWaiting, &d.CreatedAt); err != nil {
			return nil, fmt.Errorf("%s: %w", op, err)
		}
		drafts = append(drafts, d)
	}
	return drafts, rows.Err()
}
