// ABOUTME: Database operations for sync_state and sync_log tables
// ABOUTME: Tracks per-user import status and maps external records to contacts
package db

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
)

// Sync status values.
const (
	SyncIdle    = "idle"
	SyncSyncing = "syncing"
	SyncError   = "error"
)

// SyncState represents the import state of one external service for a user.
type SyncState struct {
	UserID       uuid.UUID
	Service      string
	LastSyncTime *time.Time
	Status       string
	ErrorMessage *string
	CreatedAt    time.Time
	UpdatedAt    time.Time
}

// GetSyncState returns nil when the service has never been synced.
func (s *Store) GetSyncState(ctx context.Context, userID uuid.UUID, service string) (*SyncState, error) {
	if err := requireUser("get_sync_state", userID); err != nil {
		return nil, err
	}

	var state SyncState
	var errorMessage sql.NullString
	err := s.db.QueryRowContext(ctx, `
		SELECT user_id, service, last_sync_time, status, error_message, created_at, updated_at
		FROM sync_state
		WHERE user_id = ? AND service = ?
	`, userID.String(), service).Scan(
		&state.UserID,
		&state.Service,
		&state.LastSyncTime,
		&state.Status,
		&errorMessage,
		&state.CreatedAt,
		&state.UpdatedAt,
	)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("failed to get sync state: %w", err)
	}
	if errorMessage.Valid {
		state.ErrorMessage = &errorMessage.String
	}
	return &state, nil
}

// UpdateSyncStatus sets the status; a successful idle transition also stamps
// last_sync_time.
func (s *Store) UpdateSyncStatus(ctx context.Context, userID uuid.UUID, service, status string, errorMsg *string) error {
	if err := requireUser("update_sync_status", userID); err != nil {
		return err
	}

	var errorMsgVal sql.NullString
	if errorMsg != nil {
		errorMsgVal = sql.NullString{String: *errorMsg, Valid: true}
	}
	now := time.Now().UTC()
	var lastSync any
	if status == SyncIdle && errorMsg == nil {
		lastSync = now
	}

	_, err := s.db.ExecContext(ctx, `
		INSERT INTO sync_state (user_id, service, last_sync_time, status, error_message, created_at, updated_at)
		VALUES (?, ?, ?, ?, ?, ?, ?)
		ON CONFLICT(user_id, service) DO UPDATE SET
			last_sync_time = COALESCE(excluded.last_sync_time, sync_state.last_sync_time),
			status = excluded.status,
			error_message = excluded.error_message,
			updated_at = excluded.updated_at
	`, userID.String(), service, lastSync, status, errorMsgVal, now, now)
	if err != nil {
		return fmt.Errorf("failed to update sync status: %w", err)
	}
	return nil
}

// SyncedContact returns the contact an external record was imported as.
func (s *Store) SyncedContact(ctx context.Context, userID uuid.UUID, sourceService, sourceID string) (uuid.UUID, bool, error) {
	var id uuid.UUID
	err := s.db.QueryRowContext(ctx, `
		SELECT contact_id FROM sync_log
		WHERE user_id = ? AND source_service = ? AND source_id = ?
	`, userID.String(), sourceService, sourceID).Scan(&id)
	if errors.Is(err, sql.ErrNoRows) {
		return uuid.Nil, false, nil
	}
	if err != nil {
		return uuid.Nil, false, fmt.Errorf("failed to check sync log: %w", err)
	}
	return id, true, nil
}

// RecordSync remembers which contact an external record maps to.
func (s *Store) RecordSync(ctx context.Context, userID uuid.UUID, sourceService, sourceID string, contactID uuid.UUID) error {
	if err := requireUser("record_sync", userID); err != nil {
		return err
	}
	_, err := s.db.ExecContext(ctx, `
		INSERT INTO sync_log (user_id, source_service, source_id, contact_id, imported_at)
		VALUES (?, ?, ?, ?, ?)
		ON CONFLICT(user_id, source_service, source_id) DO UPDATE SET
			contact_id = excluded.contact_id,
			imported_at = excluded.imported_at
	`, userID.String(), sourceService, sourceID, contactID.String(), time.Now().UTC())
	if err != nil {
		return fmt.Errorf("failed to create sync log: %w", err)
	}
	return nil
}
