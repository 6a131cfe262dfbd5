// ABOUTME: Opportunity database operations keyed on (user, target, contact-or-none)
// ABOUTME: Natural-key upsert, score writes, status transitions and retirement
package db

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"sort"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/harperreed/introengine/apperr"
	"github.com/harperreed/introengine/models"
)

// OpportunityFields are the values inference and outbound write on upsert.
type OpportunityFields struct {
	Type      models.OpportunityType
	Rationale string
}

// UpsertResult reports what an upsert did to the active row for a key.
type UpsertResult struct {
	ID      uuid.UUID
	Created bool
	Changed bool
}

const opportunityColumns = `o.id, o.user_id, o.target_id, o.contact_id, o.type, o.status,
	o.industry_fit, o.buying_signal, o.intro_strength, o.lead_potential, o.score_total,
	o.rationale, o.created_at, o.updated_at, o.status_changed_at,
	COALESCE(c.name, ''), COALESCE(p.name, '')`

const opportunityFrom = `
	FROM opportunities o
	LEFT JOIN companies c ON c.id = o.target_id
	LEFT JOIN contacts p ON p.id = o.contact_id`

func scanOpportunity(row scanner) (*models.Opportunity, error) {
	o := &models.Opportunity{}
	err := row.Scan(
		&o.ID,
		&o.UserID,
		&o.TargetID,
		&o.ContactID,
		&o.Type,
		&o.Status,
		&o.Scores.IndustryFit,
		&o.Scores.BuyingSignal,
		&o.Scores.IntroStrength,
		&o.Scores.LeadPotential,
		&o.Scores.Total,
		&o.Rationale,
		&o.CreatedAt,
		&o.UpdatedAt,
		&o.StatusChangedAt,
		&o.TargetName,
		&o.ContactName,
	)
	return o, err
}

func validateKey(op string, key models.OpportunityKey, typ models.OpportunityType) error {
	if err := requireUser(op, key.UserID); err != nil {
		return err
	}
	if key.TargetID == uuid.Nil {
		return apperr.Validation(op, "target id is required")
	}
	if !typ.Valid() {
		return apperr.Validation(op, "unknown opportunity type %q", typ)
	}
	if typ.IsIntro() && key.ContactID == nil {
		return apperr.Validation(op, "contact id is required for %s opportunities", typ)
	}
	if typ == models.TypeOutbound && key.ContactID != nil {
		return apperr.Validation(op, "outbound opportunities must not reference a contact")
	}
	return nil
}

// UpsertOpportunity writes onto the single active row for key, creating it
// with status suggested when none exists. Unchanged rows are not rewritten.
func (s *Store) UpsertOpportunity(ctx context.Context, key models.OpportunityKey, fields OpportunityFields) (UpsertResult, error) {
	const op = "upsert_opportunity"
	if err := validateKey(op, key, fields.Type); err != nil {
		return UpsertResult{}, err
	}

	var result UpsertResult
	err := withTx(ctx, s.db, func(tx *sql.Tx) error {
		if err := checkOwned(ctx, tx, op, "companies", "company", key.UserID, key.TargetID); err != nil {
			return err
		}
		if key.ContactID != nil {
			if err := checkOwned(ctx, tx, op, "contacts", "contact", key.UserID, *key.ContactID); err != nil {
				return err
			}
		}

		var existingID uuid.UUID
		var existingType models.OpportunityType
		var existingRationale string
		err := tx.QueryRowContext(ctx, `
			SELECT id, type, rationale FROM opportunities
			WHERE user_id = ? AND target_id = ? AND contact_key = ? AND status NOT IN ('won', 'lost')
		`, key.UserID.String(), key.TargetID.String(), key.ContactKey()).Scan(&existingID, &existingType, &existingRationale)
		switch {
		case err == nil:
			result.ID = existingID
			if existingType == fields.Type && existingRationale == fields.Rationale {
				return nil
			}
			result.Changed = true
		case errors.Is(err, sql.ErrNoRows):
			result.ID = uuid.New()
			result.Created = true
		default:
			return fmt.Errorf("%s: %w", op, err)
		}

		var contactID any
		if key.ContactID != nil {
			contactID = key.ContactID.String()
		}
		now := time.Now().UTC()
		var id uuid.UUID
		err = tx.QueryRowContext(ctx, `
			INSERT INTO opportunities (id, user_id, target_id, contact_id, contact_key, type, status, rationale,
				created_at, updated_at, status_changed_at)
			VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)
			ON CONFLICT(user_id, target_id, contact_key) WHERE status NOT IN ('won', 'lost') DO UPDATE SET
				type = excluded.type,
				rationale = excluded.rationale,
				updated_at = excluded.updated_at
			RETURNING id
		`, result.ID.String(), key.UserID.String(), key.TargetID.String(), contactID, key.ContactKey(),
			string(fields.Type), string(models.StatusSuggested), fields.Rationale, now, now, now).Scan(&id)
		if err != nil {
			return classify(op, err)
		}
		if id != result.ID {
			// Another writer created the row between our read and write.
			result.ID = id
			result.Created = false
			result.Changed = true
		}
		return nil
	})
	if err != nil {
		return UpsertResult{}, err
	}
	return result, nil
}

func checkOwned(ctx context.Context, tx *sql.Tx, op, table, what string, userID, id uuid.UUID) error {
	var n int
	err := tx.QueryRowContext(ctx, `SELECT COUNT(*) FROM `+table+` WHERE user_id = ? AND id = ?`,
		userID.String(), id.String()).Scan(&n)
	if err != nil {
		return fmt.Errorf("%s: %w", op, err)
	}
	if n == 0 {
		return apperr.NotFound(op, what, id)
	}
	return nil
}

// ListActiveOpportunities returns the non-terminal opportunities in creation order.
func (s *Store) ListActiveOpportunities(ctx context.Context, userID uuid.UUID) ([]models.Opportunity, error) {
	return s.ListOpportunities(ctx, userID, OpportunityFilter{ActiveOnly: true, OrderByCreation: true})
}

// OpportunityFilter narrows ListOpportunities. Zero values mean no filter.
type OpportunityFilter struct {
	Status          models.Status
	Type            models.OpportunityType
	TargetID        uuid.UUID
	ActiveOnly      bool
	MinScore        int
	Limit           int
	OrderByCreation bool
}

// ListOpportunities returns matching opportunities, best score first unless
// OrderByCreation is set.
func (s *Store) ListOpportunities(ctx context.Context, userID uuid.UUID, filter OpportunityFilter) ([]models.Opportunity, error) {
	const op = "list_opportunities"
	if err := requireUser(op, userID); err != nil {
		return nil, err
	}

	where := []string{"o.user_id = ?"}
	args := []any{userID.String()}
	if filter.Status != "" {
		where = append(where, "o.status = ?")
		args = append(args, string(filter.Status))
	}
	if filter.Type != "" {
		where = append(where, "o.type = ?")
		args = append(args, string(filter.Type))
	}
	if filter.TargetID != uuid.Nil {
		where = append(where, "o.target_id = ?")
		args = append(args, filter.TargetID.String())
	}
	if filter.ActiveOnly {
		where = append(where, "o.status NOT IN ('won', 'lost')")
	}
	if filter.MinScore > 0 {
		where = append(where, "o.score_total >= ?")
		args = append(args, filter.MinScore)
	}

	query := `SELECT ` + opportunityColumns + opportunityFrom + ` WHERE ` + strings.Join(where, " AND ")
	if filter.OrderByCreation {
		query += ` ORDER BY o.created_at, o.id`
	} else {
		query += ` ORDER BY o.score_total DESC, o.created_at, o.id`
	}
	if filter.Limit > 0 {
		query += ` LIMIT ?`
		args = append(args, filter.Limit)
	}

	rows, err := s.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", op, err)
	}
	defer func() { _ = rows.Close() }()

	var opps []models.Opportunity
	for rows.Next() {
		o, err := scanOpportunity(rows)
		if err != nil {
			return nil, fmt.Errorf("%s: %w", op, err)
		}
		opps = append(opps, *o)
	}
	return opps, rows.Err()
}

func (s *Store) GetOpportunity(ctx context.Context, userID, id uuid.UUID) (*models.Opportunity, error) {
	const op = "get_opportunity"
	if err := requireUser(op, userID); err != nil {
		return nil, err
	}
	o, err := scanOpportunity(s.db.QueryRowContext(ctx,
		`SELECT `+opportunityColumns+opportunityFrom+` WHERE o.user_id = ? AND o.id = ?`, userID.String(), id.String()))
	if errors.Is(err, sql.ErrNoRows) {
		return nil, apperr.NotFound(op, "opportunity", id)
	}
	if err != nil {
		return nil, fmt.Errorf("%s: %w", op, err)
	}
	return o, nil
}

// UpdateOpportunityScores writes the five score columns and nothing else.
// Returns false when the stored scores already equal the new ones.
func (s *Store) UpdateOpportunityScores(ctx context.Context, userID, id uuid.UUID, scores models.Scores) (bool, error) {
	const op = "update_scores"
	if err := requireUser(op, userID); err != nil {
		return false, err
	}

	res, err := s.db.ExecContext(ctx, `
		UPDATE opportunities
		SET industry_fit = ?, buying_signal = ?, intro_strength = ?, lead_potential = ?, score_total = ?
		WHERE user_id = ? AND id = ?
		  AND (industry_fit <> ? OR buying_signal <> ? OR intro_strength <> ? OR lead_potential <> ? OR score_total <> ?)
	`, scores.IndustryFit, scores.BuyingSignal, scores.IntroStrength, scores.LeadPotential, scores.Total,
		userID.String(), id.String(),
		scores.IndustryFit, scores.BuyingSignal, scores.IntroStrength, scores.LeadPotential, scores.Total)
	if err != nil {
		return false, fmt.Errorf("%s: %w", op, err)
	}
	n, err := res.RowsAffected()
	if err != nil {
		return false, fmt.Errorf("%s: %w", op, err)
	}
	if n > 0 {
		return true, nil
	}
	if _, err := s.GetOpportunity(ctx, userID, id); err != nil {
		return false, err
	}
	return false, nil
}

// UpdateOpportunityStatus applies a user-driven status change.
func (s *Store) UpdateOpportunityStatus(ctx context.Context, userID, id uuid.UUID, next models.Status) (*models.Opportunity, error) {
	const op = "update_status"
	if err := requireUser(op, userID); err != nil {
		return nil, err
	}

	err := withTx(ctx, s.db, func(tx *sql.Tx) error {
		var current models.Status
		err := tx.QueryRowContext(ctx, `SELECT status FROM opportunities WHERE user_id = ? AND id = ?`,
			userID.String(), id.String()).Scan(&current)
		if errors.Is(err, sql.ErrNoRows) {
			return apperr.NotFound(op, "opportunity", id)
		}
		if err != nil {
			return fmt.Errorf("%s: %w", op, err)
		}
		if err := current.CanTransitionTo(next); err != nil {
			return err
		}
		if current == next {
			return nil
		}

		now := time.Now().UTC()
		_, err = tx.ExecContext(ctx, `
			UPDATE opportunities SET status = ?, status_changed_at = ?, updated_at = ?
			WHERE user_id = ? AND id = ?
		`, string(next), now, now, userID.String(), id.String())
		return classify(op, err)
	})
	if err != nil {
		return nil, err
	}
	return s.GetOpportunity(ctx, userID, id)
}

// RetireOpportunity moves an active opportunity to lost. Returns false when
// it was already closed.
func (s *Store) RetireOpportunity(ctx context.Context, userID, id uuid.UUID) (bool, error) {
	const op = "retire_opportunity"
	if err := requireUser(op, userID); err != nil {
		return false, err
	}
	now := time.Now().UTC()
	res, err := s.db.ExecContext(ctx, `
		UPDATE opportunities SET status = 'lost', status_changed_at = ?, updated_at = ?
		WHERE user_id = ? AND id = ? AND status NOT IN ('won', 'lost')
	`, now, now, userID.String(), id.String())
	if err != nil {
		return false, fmt.Errorf("%s: %w", op, err)
	}
	n, err := res.RowsAffected()
	if err != nil {
		return false, fmt.Errorf("%s: %w", op, err)
	}
	return n > 0, nil
}

// ListStaleOpportunities returns active, user-surfaced opportunities whose
// status has not changed since before cutoff, oldest first.
func (s *Store) ListStaleOpportunities(ctx context.Context, userID uuid.UUID, cutoff time.Time) ([]models.Opportunity, error) {
	active, err := s.ListActiveOpportunities(ctx, userID)
	if err != nil {
		return nil, err
	}
	var stale []models.Opportunity
	for _, o := range active {
		if o.Status == models.StatusSuggested {
			continue
		}
		if o.StatusChangedAt.Before(cutoff) {
			stale = append(stale, o)
		}
	}
	sort.SliceStable(stale, func(i, j int) bool {
		return stale[i].StatusChangedAt.Before(stale[j].StatusChangedAt)
	})
	return stale, nil
}

