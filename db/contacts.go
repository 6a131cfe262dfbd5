// ABOUTME: Contact and work history database operations
// ABOUTME: Handles merge-on-reimport upserts, soft deletes and history loading
package db

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/harperreed/introengine/apperr"
	"github.com/harperreed/introengine/models"
)

const contactColumns = `id, user_id, name, email, linkedin, current_company, current_company_domain, title, created_at, updated_at, deleted_at`

func scanContact(row scanner) (*models.Contact, error) {
	c := &models.Contact{}
	err := row.Scan(
		&c.ID,
		&c.UserID,
		&c.Name,
		&c.Email,
		&c.LinkedIn,
		&c.CurrentCompany,
		&c.CurrentCompanyDomain,
		&c.Title,
		&c.CreatedAt,
		&c.UpdatedAt,
		&c.DeletedAt,
	)
	return c, err
}

// UpsertContact creates a contact or merges it into the existing one with the
// same email (or id). Re-importing a soft-deleted contact restores it.
// Returns true when a new row was created.
func (s *Store) UpsertContact(ctx context.Context, contact *models.Contact) (bool, error) {
	const op = "upsert_contact"
	if err := requireUser(op, contact.UserID); err != nil {
		return false, err
	}
	if strings.TrimSpace(contact.Name) == "" {
		return false, apperr.Validation(op, "contact name is required")
	}
	contact.Email = models.NormalizeEmail(contact.Email)
	contact.CurrentCompanyDomain = models.NormalizeDomain(contact.CurrentCompanyDomain)

	created := false
	err := withTx(ctx, s.db, func(tx *sql.Tx) error {
		if err := ensureAccount(ctx, tx, contact.UserID); err != nil {
			return err
		}
		existing, err := findExistingContact(ctx, tx, contact)
		if err != nil {
			return err
		}

		now := time.Now().UTC()
		if existing == nil {
			if contact.ID == uuid.Nil {
				contact.ID = uuid.New()
			}
			contact.CreatedAt = now
			contact.UpdatedAt = now
			contact.DeletedAt = nil
			_, err := tx.ExecContext(ctx, `
				INSERT INTO contacts (id, user_id, name, email, linkedin, current_company, current_company_domain, title, created_at, updated_at)
				VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?)
			`, contact.ID.String(), contact.UserID.String(), contact.Name, contact.Email, contact.LinkedIn,
				contact.CurrentCompany, contact.CurrentCompanyDomain, contact.Title, contact.CreatedAt, contact.UpdatedAt)
			if err != nil {
				return classify(op, err)
			}
			created = true
			return replaceHistory(ctx, tx, contact)
		}

		mergeContact(existing, contact)
		existing.UpdatedAt = now
		existing.DeletedAt = nil
		_, err = tx.ExecContext(ctx, `
			UPDATE contacts
			SET name = ?, email = ?, linkedin = ?, current_company = ?, current_company_domain = ?, title = ?, updated_at = ?, deleted_at = NULL
			WHERE id = ? AND user_id = ?
		`, existing.Name, existing.Email, existing.LinkedIn, existing.CurrentCompany, existing.CurrentCompanyDomain,
			existing.Title, existing.UpdatedAt, existing.ID.String(), existing.UserID.String())
		if err != nil {
			return classify(op, err)
		}
		if contact.History != nil {
			existing.History = contact.History
			if err := replaceHistory(ctx, tx, existing); err != nil {
				return err
			}
		}
		*contact = *existing
		return nil
	})
	return created, err
}

func findExistingContact(ctx context.Context, tx *sql.Tx, contact *models.Contact) (*models.Contact, error) {
	if contact.Email != "" {
		existing, err := scanContact(tx.QueryRowContext(ctx, `SELECT `+contactColumns+` FROM contacts WHERE user_id = ? AND email = ?`,
			contact.UserID.String(), contact.Email))
		if err == nil {
			return existing, nil
		}
		if !errors.Is(err, sql.ErrNoRows) {
			return nil, fmt.Errorf("failed to look up contact: %w", err)
		}
	}
	if contact.ID == uuid.Nil {
		return nil, nil
	}

	// A known id whose email changed still updates in place.
	existing, err := scanContact(tx.QueryRowContext(ctx, `SELECT `+contactColumns+` FROM contacts WHERE user_id = ? AND id = ?`,
		contact.UserID.String(), contact.ID.String()))
	if errors.Is(err, sql.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("failed to look up contact: %w", err)
	}
	return existing, nil
}

// mergeContact copies non-empty incoming fields over existing ones.
func mergeContact(existing, incoming *models.Contact) {
	if incoming.Name != "" {
		existing.Name = incoming.Name
	}
	if incoming.Email != "" {
		existing.Email = incoming.Email
	}
	if incoming.LinkedIn != "" {
		existing.LinkedIn = incoming.LinkedIn
	}
	if incoming.CurrentCompany != "" || incoming.CurrentCompanyDomain != "" {
		existing.CurrentCompany = incoming.CurrentCompany
		existing.CurrentCompanyDomain = incoming.CurrentCompanyDomain
	}
	if incoming.Title != "" {
		existing.Title = incoming.Title
	}
}

func replaceHistory(ctx context.Context, tx *sql.Tx, contact *models.Contact) error {
	if _, err := tx.ExecContext(ctx, `DELETE FROM work_history WHERE contact_id = ?`, contact.ID.String()); err != nil {
		return fmt.Errorf("failed to clear work history: %w", err)
	}
	for i, h := range contact.History {
		if strings.TrimSpace(h.Company) == "" {
			continue
		}
		_, err := tx.ExecContext(ctx, `
			INSERT INTO work_history (contact_id, user_id, position, company, domain, title, start_year, end_year)
			VALUES (?, ?, ?, ?, ?, ?, ?, ?)
		`, contact.ID.String(), contact.UserID.String(), i, h.Company, models.NormalizeDomain(h.Domain), h.Title,
			nullableInt(h.StartYear), nullableInt(h.EndYear))
		if err != nil {
			return fmt.Errorf("failed to insert work history: %w", err)
		}
	}
	return nil
}

// GetContact returns one contact, including soft-deleted ones, with history.
func (s *Store) GetContact(ctx context.Context, userID, id uuid.UUID) (*models.Contact, error) {
	const op = "get_contact"
	if err := requireUser(op, userID); err != nil {
		return nil, err
	}

	contact, err := scanContact(s.db.QueryRowContext(ctx,
		`SELECT `+contactColumns+` FROM contacts WHERE user_id = ? AND id = ?`, userID.String(), id.String()))
	if errors.Is(err, sql.ErrNoRows) {
		return nil, apperr.NotFound(op, "contact", id)
	}
	if err != nil {
		return nil, fmt.Errorf("%s: %w", op, err)
	}

	history, err := s.historyFor(ctx, userID, &id)
	if err != nil {
		return nil, err
	}
	contact.History = history[id]
	return contact, nil
}

// GetContacts returns all live contacts of a user in creation order.
func (s *Store) GetContacts(ctx context.Context, userID uuid.UUID) ([]models.Contact, error) {
	const op = "get_contacts"
	if err := requireUser(op, userID); err != nil {
		return nil, err
	}

	rows, err := s.db.QueryContext(ctx, `
		SELECT `+contactColumns+`
		FROM contacts
		WHERE user_id = ? AND deleted_at IS NULL
		ORDER BY created_at, id
	`, userID.String())
	if err != nil {
		return nil, fmt.Errorf("%s: %w", op, err)
	}
	defer func() { _ = rows.Close() }()

	var contacts []models.Contact
	for rows.Next() {
		c, err := scanContact(rows)
		if err != nil {
			return nil, fmt.Errorf("%s: %w", op, err)
		}
		contacts = append(contacts, *c)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("%s: %w", op, err)
	}

	history, err := s.GetWorkHistory(ctx, userID)
	if err != nil {
		return nil, err
	}
	for i := range contacts {
		contacts[i].History = history[contacts[i].ID]
	}
	return contacts, nil
}

// GetWorkHistory returns every contact's past employers keyed by contact id.
func (s *Store) GetWorkHistory(ctx context.Context, userID uuid.UUID) (map[uuid.UUID][]models.Employment, error) {
	if err := requireUser("get_work_history", userID); err != nil {
		return nil, err
	}
	return s.historyFor(ctx, userID, nil)
}

func (s *Store) historyFor(ctx context.Context, userID uuid.UUID, contactID *uuid.UUID) (map[uuid.UUID][]models.Employment, error) {
	query := `
		SELECT contact_id, company, domain, title, start_year, end_year
		FROM work_history
		WHERE user_id = ?`
	args := []any{userID.String()}
	if contactID != nil {
		query += ` AND contact_id = ?`
		args = append(args, contactID.String())
	}
	query += ` ORDER BY contact_id, position`

	rows, err := s.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("get_work_history: %w", err)
	}
	defer func() { _ = rows.Close() }()

	history := make(map[uuid.UUID][]models.Employment)
	for rows.Next() {
		var id uuid.UUID
		var e models.Employment
		var start, end sql.NullInt64
		if err := rows.Scan(&id, &e.Company, &e.Domain, &e.Title, &start, &end); err != nil {
			return nil, fmt.Errorf("get_work_history: %w", err)
		}
		e.StartYear = intPtr(start)
		e.EndYear = intPtr(end)
		history[id] = append(history[id], e)
	}
	return history, rows.Err()
}

// SoftDeleteContact hides a contact from discovery but keeps it for the
// opportunities that still reference it.
func (s *Store) SoftDeleteContact(ctx context.Context, userID, id uuid.UUID) error {
	const op = "delete_contact"
	if err := requireUser(op, userID); err != nil {
		return err
	}
	res, err := s.db.ExecContext(ctx, `
		UPDATE contacts SET deleted_at = ?, updated_at = ?
		WHERE user_id = ? AND id = ? AND deleted_at IS NULL
	`, time.Now().UTC(), time.Now().UTC(), userID.String(), id.String())
	if err != nil {
		return fmt.Errorf("%s: %w", op, err)
	}
	if n, _ := res.RowsAffected(); n == 0 {
		return apperr.NotFound(op, "contact", id)
	}
	return nil
}
