// ABOUTME: Company (target account) database operations
// ABOUTME: Handles domain-keyed upserts, ICP score writes and enrichment backfill
package db

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/harperreed/introengine/apperr"
	"github.com/harperreed/introengine/models"
)

const companyColumns = `id, user_id, name, domain, industry, employees, technologies, location, digital_maturity, icp_score, signals, created_at, updated_at`

func scanCompany(row scanner) (*models.Company, error) {
	c := &models.Company{}
	var employees sql.NullInt64
	var techs, signals string
	err := row.Scan(
		&c.ID,
		&c.UserID,
		&c.Name,
		&c.Domain,
		&c.Industry,
		&employees,
		&techs,
		&c.Location,
		&c.DigitalMaturity,
		&c.ICPScore,
		&signals,
		&c.CreatedAt,
		&c.UpdatedAt,
	)
	if err != nil {
		return nil, err
	}
	c.Employees = intPtr(employees)
	c.Technologies = decodeStrings(techs)
	if signals != "" {
		_ = json.Unmarshal([]byte(signals), &c.Signals)
	}
	return c, nil
}

// UpsertCompany creates a company or updates the one with the same domain
// (or id, or case-insensitive name when no domain is known).
// Returns true when a new row was created.
func (s *Store) UpsertCompany(ctx context.Context, company *models.Company) (bool, error) {
	const op = "upsert_company"
	if err := requireUser(op, company.UserID); err != nil {
		return false, err
	}
	if strings.TrimSpace(company.Name) == "" {
		return false, apperr.Validation(op, "company name is required")
	}
	company.Domain = models.NormalizeDomain(company.Domain)
	if m := strings.ToLower(strings.TrimSpace(company.DigitalMaturity)); m != "" {
		company.DigitalMaturity = m
	}

	signals, err := encodeJSON(company.Signals)
	if err != nil {
		return false, fmt.Errorf("%s: %w", op, err)
	}
	if company.Signals == nil {
		signals = "[]"
	}

	created := false
	err = withTx(ctx, s.db, func(tx *sql.Tx) error {
		if err := ensureAccount(ctx, tx, company.UserID); err != nil {
			return err
		}
		existingID, err := findExistingCompany(ctx, tx, company)
		if err != nil {
			return err
		}

		now := time.Now().UTC()
		if existingID == uuid.Nil {
			if company.ID == uuid.Nil {
				company.ID = uuid.New()
			}
			company.CreatedAt = now
			company.UpdatedAt = now
			_, err := tx.ExecContext(ctx, `
				INSERT INTO companies (id, user_id, name, domain, industry, employees, technologies, location, digital_maturity, icp_score, signals, created_at, updated_at)
				VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)
			`, company.ID.String(), company.UserID.String(), company.Name, company.Domain, company.Industry,
				nullableInt(company.Employees), encodeStrings(company.Technologies), company.Location,
				company.DigitalMaturity, models.ClampScore(company.ICPScore), signals, company.CreatedAt, company.UpdatedAt)
			if err != nil {
				return classify(op, err)
			}
			created = true
			return nil
		}

		existing, err := scanCompany(tx.QueryRowContext(ctx,
			`SELECT `+companyColumns+` FROM companies WHERE id = ?`, existingID.String()))
		if err != nil {
			return fmt.Errorf("failed to load company: %w", err)
		}
		mergeCompany(existing, company)
		if len(company.Signals) > 0 {
			if signals, err = encodeJSON(company.Signals); err != nil {
				return fmt.Errorf("%s: %w", op, err)
			}
		}

		// icp_score is owned by the matcher and left untouched here.
		company.ID = existingID
		company.CreatedAt = existing.CreatedAt
		company.UpdatedAt = now
		_, err = tx.ExecContext(ctx, `
			UPDATE companies
			SET name = ?, domain = ?, industry = ?, employees = ?, technologies = ?, location = ?,
			    digital_maturity = ?, signals = ?, updated_at = ?
			WHERE id = ? AND user_id = ?
		`, company.Name, company.Domain, company.Industry, nullableInt(company.Employees),
			encodeStrings(company.Technologies), company.Location, company.DigitalMaturity, signals,
			company.UpdatedAt, company.ID.String(), company.UserID.String())
		return classify(op, err)
	})
	return created, err
}

// mergeCompany fills the blanks of a partial incoming record from the
// stored row, so a re-upsert never erases known or enriched firmographics.
func mergeCompany(existing, incoming *models.Company) {
	if incoming.Domain == "" {
		incoming.Domain = existing.Domain
	}
	if strings.TrimSpace(incoming.Industry) == "" {
		incoming.Industry = existing.Industry
	}
	if incoming.Employees == nil {
		incoming.Employees = existing.Employees
	}
	if len(incoming.Technologies) == 0 {
		incoming.Technologies = existing.Technologies
	}
	if strings.TrimSpace(incoming.Location) == "" {
		incoming.Location = existing.Location
	}
	if incoming.DigitalMaturity == "" {
		incoming.DigitalMaturity = existing.DigitalMaturity
	}
	if len(incoming.Signals) == 0 {
		incoming.Signals = existing.Signals
	}
}

func findExistingCompany(ctx context.Context, tx *sql.Tx, company *models.Company) (uuid.UUID, error) {
	var row *sql.Row
	switch {
	case company.Domain != "":
		row = tx.QueryRowContext(ctx, `SELECT id FROM companies WHERE user_id = ? AND domain = ?`,
			company.UserID.String(), company.Domain)
	case company.ID != uuid.Nil:
		row = tx.QueryRowContext(ctx, `SELECT id FROM companies WHERE user_id = ? AND id = ?`,
			company.UserID.String(), company.ID.String())
	default:
		row = tx.QueryRowContext(ctx, `SELECT id FROM companies WHERE user_id = ? AND LOWER(name) = LOWER(?) ORDER BY created_at LIMIT 1`,
			company.UserID.String(), company.Name)
	}

	var id uuid.UUID
	err := row.Scan(&id)
	if errors.Is(err, sql.ErrNoRows) {
		return uuid.Nil, nil
	}
	if err != nil {
		return uuid.Nil, fmt.Errorf("failed to look up company: %w", err)
	}
	return id, nil
}

func (s *Store) GetCompany(ctx context.Context, userID, id uuid.UUID) (*models.Company, error) {
	const op = "get_company"
	if err := requireUser(op, userID); err != nil {
		return nil, err
	}
	company, err := scanCompany(s.db.QueryRowContext(ctx,
		`SELECT `+companyColumns+` FROM companies WHERE user_id = ? AND id = ?`, userID.String(), id.String()))
	if errors.Is(err, sql.ErrNoRows) {
		return nil, apperr.NotFound(op, "company", id)
	}
	if err != nil {
		return nil, fmt.Errorf("%s: %w", op, err)
	}
	return company, nil
}

// GetCompanies returns all companies of a user ordered by name.
func (s *Store) GetCompanies(ctx context.Context, userID uuid.UUID) ([]models.Company, error) {
	const op = "get_companies"
	if err := requireUser(op, userID); err != nil {
		return nil, err
	}

	rows, err := s.db.QueryContext(ctx, `
		SELECT `+companyColumns+`
		FROM companies
		WHERE user_id = ?
		ORDER BY name, id
	`, userID.String())
	if err != nil {
		return nil, fmt.Errorf("%s: %w", op, err)
	}
	defer func() { _ = rows.Close() }()

	var companies []models.Company
	for rows.Next() {
		c, err := scanCompany(rows)
		if err != nil {
			return nil, fmt.Errorf("%s: %w", op, err)
		}
		companies = append(companies, *c)
	}
	return companies, rows.Err()
}

// UpdateCompanyICPScore writes the matcher's score (last write wins).
func (s *Store) UpdateCompanyICPScore(ctx context.Context, userID, id uuid.UUID, score int) error {
	const op = "update_icp_score"
	if err := requireUser(op, userID); err != nil {
		return err
	}
	res, err := s.db.ExecContext(ctx, `
		UPDATE companies SET icp_score = ?
		WHERE user_id = ? AND id = ? AND icp_score <> ?
	`, models.ClampScore(score), userID.String(), id.String(), models.ClampScore(score))
	if err != nil {
		return fmt.Errorf("%s: %w", op, err)
	}
	if n, _ := res.RowsAffected(); n == 0 {
		var exists int
		err := s.db.QueryRowContext(ctx, `SELECT COUNT(*) FROM companies WHERE user_id = ? AND id = ?`,
			userID.String(), id.String()).Scan(&exists)
		if err != nil {
			return fmt.Errorf("%s: %w", op, err)
		}
		if exists == 0 {
			return apperr.NotFound(op, "company", id)
		}
	}
	return nil
}

// FillCompanyFirmographics sets industry and headcount only where unknown.
func (s *Store) FillCompanyFirmographics(ctx context.Context, userID, id uuid.UUID, industry string, employees *int) error {
	const op = "fill_firmographics"
	if err := requireUser(op, userID); err != nil {
		return err
	}
	_, err := s.db.ExecContext(ctx, `
		UPDATE companies
		SET industry = CASE WHEN industry = '' THEN ? ELSE industry END,
		    employees = COALESCE(employees, ?),
		    updated_at = ?
		WHERE user_id = ? AND id = ?
	`, industry, nullableInt(employees), time.Now().UTC(), userID.String(), id.String())
	if err != nil {
		return fmt.Errorf("%s: %w", op, err)
	}
	return nil
}
