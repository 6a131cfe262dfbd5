// ABOUTME: Connection strength and interaction log database operations
// ABOUTME: Logging an interaction refreshes the aggregated connection row in one transaction
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

// UpsertConnection writes the aggregated edge for one contact.
func (s *Store) UpsertConnection(ctx context.Context, conn *models.Connection) error {
	const op = "upsert_connection"
	if err := requireUser(op, conn.UserID); err != nil {
		return err
	}
	if conn.ContactID == uuid.Nil {
		return apperr.Validation(op, "contact id is required")
	}
	conn.Strength = models.ClampScore(conn.Strength)
	conn.UpdatedAt = time.Now().UTC()
	return upsertConnection(ctx, s.db, conn)
}

type execer interface {
	ExecContext(ctx context.Context, query string, args ...any) (sql.Result, error)
}

func upsertConnection(ctx context.Context, ex execer, conn *models.Connection) error {
	_, err := ex.ExecContext(ctx, `
		INSERT INTO connections (user_id, contact_id, strength, interaction_count, last_interaction_at, updated_at)
		VALUES (?, ?, ?, ?, ?, ?)
		ON CONFLICT(user_id, contact_id) DO UPDATE SET
			strength = excluded.strength,
			interaction_count = excluded.interaction_count,
			last_interaction_at = excluded.last_interaction_at,
			updated_at = excluded.updated_at
	`, conn.UserID.String(), conn.ContactID.String(), conn.Strength, conn.InteractionCount,
		conn.LastInteractionAt, conn.UpdatedAt)
	if err != nil {
		return fmt.Errorf("upsert_connection: %w", err)
	}
	return nil
}

const connectionColumns = `user_id, contact_id, strength, interaction_count, last_interaction_at, updated_at`

func scanConnection(row scanner) (*models.Connection, error) {
	c := &models.Connection{}
	err := row.Scan(&c.UserID, &c.ContactID, &c.Strength, &c.InteractionCount, &c.LastInteractionAt, &c.UpdatedAt)
	return c, err
}

// GetConnections returns the user's connection rows keyed by contact id.
func (s *Store) GetConnections(ctx context.Context, userID uuid.UUID) (map[uuid.UUID]models.Connection, error) {
	const op = "get_connections"
	if err := requireUser(op, userID); err != nil {
		return nil, err
	}

	rows, err := s.db.QueryContext(ctx, `SELECT `+connectionColumns+` FROM connections WHERE user_id = ?`, userID.String())
	if err != nil {
		return nil, fmt.Errorf("%s: %w", op, err)
	}
	defer func() { _ = rows.Close() }()

	conns := make(map[uuid.UUID]models.Connection)
	for rows.Next() {
		c, err := scanConnection(rows)
		if err != nil {
			return nil, fmt.Errorf("%s: %w", op, err)
		}
		conns[c.ContactID] = *c
	}
	return conns, rows.Err()
}

// LogInteraction records an interaction and folds it into the connection.
func (s *Store) LogInteraction(ctx context.Context, entry *models.InteractionLog) (*models.Connection, error) {
	const op = "log_interaction"
	if err := requireUser(op, entry.UserID); err != nil {
		return nil, err
	}
	if !models.ValidInteractionType(entry.InteractionType) {
		return nil, apperr.Validation(op, "unknown interaction type %q", entry.InteractionType)
	}
	if entry.ID == uuid.Nil {
		entry.ID = uuid.New()
	}
	if entry.Timestamp.IsZero() {
		entry.Timestamp = time.Now()
	}
	entry.Timestamp = entry.Timestamp.UTC()

	var conn *models.Connection
	err := withTx(ctx, s.db, func(tx *sql.Tx) error {
		var exists int
		err := tx.QueryRowContext(ctx, `SELECT COUNT(*) FROM contacts WHERE user_id = ? AND id = ? AND deleted_at IS NULL`,
			entry.UserID.String(), entry.ContactID.String()).Scan(&exists)
		if err != nil {
			return fmt.Errorf("%s: %w", op, err)
		}
		if exists == 0 {
			return apperr.NotFound(op, "contact", entry.ContactID)
		}

		_, err = tx.ExecContext(ctx, `
			INSERT INTO interaction_log (id, user_id, contact_id, interaction_type, timestamp, notes)
			VALUES (?, ?, ?, ?, ?, ?)
		`, entry.ID.String(), entry.UserID.String(), entry.ContactID.String(), entry.InteractionType,
			entry.Timestamp, entry.Notes)
		if err != nil {
			return fmt.Errorf("%s: %w", op, err)
		}

		conn, err = scanConnection(tx.QueryRowContext(ctx,
			`SELECT `+connectionColumns+` FROM connections WHERE user_id = ? AND contact_id = ?`,
			entry.UserID.String(), entry.ContactID.String()))
		if errors.Is(err, sql.ErrNoRows) {
			conn = &models.Connection{UserID: entry.UserID, ContactID: entry.ContactID, Strength: models.DefaultStrength}
		} else if err != nil {
			return fmt.Errorf("%s: %w", op, err)
		}

		conn.RecordInteraction(entry.InteractionType, entry.Timestamp)
		return upsertConnection(ctx, tx, conn)
	})
	if err != nil {
		return nil, err
	}
	return conn, nil
}

// ListInteractions returns the most recent interactions with a contact.
func (s *Store) ListInteractions(ctx context.Context, userID, contactID uuid.UUID, limit int) ([]models.InteractionLog, error) {
	const op = "list_interactions"
	if err := requireUser(op, userID); err != nil {
		return nil, err
	}
	if limit <= 0 {
		limit = 20
	}

	rows, err := s.db.QueryContext(ctx, `
		SELECT id, user_id, contact_id, interaction_type, timestamp, notes
		FROM interaction_log
		WHERE user_id = ? AND contact_id = ?
		ORDER BY timestamp DESC
		LIMIT ?
	`, userID.String(), contactID.String(), limit)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", op, err)
	}
	defer func() { _ = rows.Close() }()

	var logs []models.InteractionLog
	for rows.Next() {
		var l models.InteractionLog
		if err := rows.Scan(&l.ID, &l.UserID, &l.ContactID, &l.InteractionType, &l.Timestamp, &l.Notes); err != nil {
			return nil, fmt.Errorf("%s: %w", op, err)
		}
		logs = append(logs, l)
	}
	return logs, rows.Err()
}
