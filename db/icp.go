// ABOUTME: ICP definition and account settings database operations
// ABOUTME: One ICP row and one account row per user, both upserted on user_id
package db

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/harperreed/introengine/apperr"
	"github.com/harperreed/introengine/models"
)

// SaveICP replaces the user's ICP definition. Validation is the caller's job.
func (s *Store) SaveICP(ctx context.Context, icp *models.ICPDefinition) error {
	const op = "save_icp"
	if err := requireUser(op, icp.UserID); err != nil {
		return err
	}
	icp.UpdatedAt = time.Now().UTC()

	return withTx(ctx, s.db, func(tx *sql.Tx) error {
		if err := ensureAccount(ctx, tx, icp.UserID); err != nil {
			return err
		}
		_, err := tx.ExecContext(ctx, `
			INSERT INTO icp_definitions (user_id, industries, min_employees, max_employees, technologies, digital_maturity,
				locations, target_roles, pain_points, triggers, anti_criteria, updated_at)
			VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)
			ON CONFLICT(user_id) DO UPDATE SET
				industries = excluded.industries,
				min_employees = excluded.min_employees,
				max_employees = excluded.max_employees,
				technologies = excluded.technologies,
				digital_maturity = excluded.digital_maturity,
				locations = excluded.locations,
				target_roles = excluded.target_roles,
				pain_points = excluded.pain_points,
				triggers = excluded.triggers,
				anti_criteria = excluded.anti_criteria,
				updated_at = excluded.updated_at
		`, icp.UserID.String(), encodeStrings(icp.Industries), nullableInt(icp.MinEmployees), nullableInt(icp.MaxEmployees),
			encodeStrings(icp.Technologies), icp.DigitalMaturity, encodeStrings(icp.Locations), encodeStrings(icp.TargetRoles),
			icp.PainPoints, icp.Triggers, icp.AntiCriteria, icp.UpdatedAt)
		if err != nil {
			return fmt.Errorf("%s: %w", op, err)
		}
		return nil
	})
}

func (s *Store) GetICP(ctx context.Context, userID uuid.UUID) (*models.ICPDefinition, error) {
	const op = "get_icp"
	if err := requireUser(op, userID); err != nil {
		return nil, err
	}

	icp := &models.ICPDefinition{}
	var industries, techs, locations, roles string
	var minEmp, maxEmp sql.NullInt64
	err := s.db.QueryRowContext(ctx, `
		SELECT user_id, industries, min_employees, max_employees, technologies, digital_maturity,
			locations, target_roles, pain_points, triggers, anti_criteria, updated_at
		FROM icp_definitions WHERE user_id = ?
	`, userID.String()).Scan(&icp.UserID, &industries, &minEmp, &maxEmp, &techs, &icp.DigitalMaturity,
		&locations, &roles, &icp.PainPoints, &icp.Triggers, &icp.AntiCriteria, &icp.UpdatedAt)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, apperr.NotFound(op, "icp for user", userID)
	}
	if err != nil {
		return nil, fmt.Errorf("%s: %w", op, err)
	}

	icp.Industries = decodeStrings(industries)
	icp.Technologies = decodeStrings(techs)
	icp.Locations = decodeStrings(locations)
	icp.TargetRoles = decodeStrings(roles)
	icp.MinEmployees = intPtr(minEmp)
	icp.MaxEmployees = intPtr(maxEmp)
	return icp, nil
}

func ensureAccount(ctx context.Context, ex execer, userID uuid.UUID) error {
	now := time.Now().UTC()
	_, err := ex.ExecContext(ctx, `
		INSERT INTO accounts (user_id, created_at, updated_at) VALUES (?, ?, ?)
		ON CONFLICT(user_id) DO NOTHING
	`, userID.String(), now, now)
	if err != nil {
		return fmt.Errorf("ensure_account: %w", err)
	}
	return nil
}

// EnsureAccount registers a user so the scheduler picks it up.
func (s *Store) EnsureAccount(ctx context.Context, userID uuid.UUID) error {
	if err := requireUser("ensure_account", userID); err != nil {
		return err
	}
	return ensureAccount(ctx, s.db, userID)
}

// GetAccountSettings returns the stored settings, or defaults for an unknown account.
func (s *Store) GetAccountSettings(ctx context.Context, userID uuid.UUID) (*models.AccountSettings, error) {
	const op = "get_account_settings"
	if err := requireUser(op, userID); err != nil {
		return nil, err
	}

	settings := &models.AccountSettings{UserID: userID}
	err := s.db.QueryRowContext(ctx, `
		SELECT name, allow_inferred, outbound_quota, created_at, updated_at
		FROM accounts WHERE user_id = ?
	`, userID.String()).Scan(&settings.Name, &settings.AllowInferred, &settings.OutboundQuota,
		&settings.CreatedAt, &settings.UpdatedAt)
	if errors.Is(err, sql.ErrNoRows) {
		return settings, nil
	}
	if err != nil {
		return nil, fmt.Errorf("%s: %w", op, err)
	}
	return settings, nil
}

func (s *Store) SaveAccountSettings(ctx context.Context, settings *models.AccountSettings) error {
	const op = "save_account_settings"
	if err := requireUser(op, settings.UserID); err != nil {
		return err
	}
	if settings.OutboundQuota < 0 {
		return apperr.Validation(op, "outbound quota must not be negative")
	}
	now := time.Now().UTC()
	settings.UpdatedAt = now
	if settings.CreatedAt.IsZero() {
		settings.CreatedAt = now
	}

	_, err := s.db.ExecContext(ctx, `
		INSERT INTO accounts (user_id, name, allow_inferred, outbound_quota, created_at, updated_at)
		VALUES (?, ?, ?, ?, ?, ?)
		ON CONFLICT(user_id) DO UPDATE SET
			name = excluded.name,
			allow_inferred = excluded.allow_inferred,
			outbound_quota = excluded.outbound_quota,
			updated_at = excluded.updated_at
	`, settings.UserID.String(), settings.Name, settings.AllowInferred, settings.OutboundQuota,
		settings.CreatedAt, settings.UpdatedAt)
	if err != nil {
		return fmt.Errorf("%s: %w", op, err)
	}
	return nil
}

// ListAccounts returns every registered user id in a stable order.
func (s *Store) ListAccounts(ctx context.Context) ([]uuid.UUID, error) {
	rows, err := s.db.QueryContext(ctx, `SELECT user_id FROM accounts ORDER BY created_at, user_id`)
	if err != nil {
		return nil, fmt.Errorf("list_accounts: %w", err)
	}
	defer func() { _ = rows.Close() }()

	var ids []uuid.UUID
	for rows.Next() {
		var id uuid.UUID
		if err := rows.Scan(&id); err != nil {
			return nil, fmt.Errorf("list_accounts: %w", err)
		}
		ids = append(ids, id)
	}
	return ids, rows.Err()
}
