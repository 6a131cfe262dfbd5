// ABOUTME: User-scoped store over the SQLite database
// ABOUTME: Shared helpers for scoping, JSON columns and constraint translation
package db

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"

	"github.com/google/uuid"
	"github.com/harperreed/introengine/apperr"
	"github.com/mattn/go-sqlite3"
)

// Store provides every read and write the engines need. Every method is
// scoped by user id; a row owned by another user behaves as not found.
type Store struct {
	db *sql.DB
}

// NewStore wraps an open database.
func NewStore(db *sql.DB) *Store {
	return &Store{db: db}
}

// DB exposes the underlying handle for CLI commands that print raw stats.
func (s *Store) DB() *sql.DB {
	return s.db
}

func requireUser(op string, userID uuid.UUID) error {
	if userID == uuid.Nil {
		return apperr.Validation(op, "user id is required")
	}
	return nil
}

type scanner interface {
	Scan(dest ...any) error
}

func encodeJSON(v any) (string, error) {
	b, err := json.Marshal(v)
	if err != nil {
		return "", err
	}
	return string(b), nil
}

func encodeStrings(values []string) string {
	if values == nil {
		values = []string{}
	}
	s, _ := encodeJSON(values)
	return s
}

func decodeStrings(raw string) []string {
	var out []string
	if raw == "" {
		return nil
	}
	if err := json.Unmarshal([]byte(raw), &out); err != nil {
		return nil
	}
	if len(out) == 0 {
		return nil
	}
	return out
}

func nullableInt(v *int) any {
	if v == nil {
		return nil
	}
	return *v
}

func intPtr(v sql.NullInt64) *int {
	if !v.Valid {
		return nil
	}
	n := int(v.Int64)
	return &n
}

func isUniqueViolation(err error) bool {
	var sqliteErr sqlite3.Error
	if errors.As(err, &sqliteErr) {
		return sqliteErr.ExtendedCode == sqlite3.ErrConstraintUnique
	}
	return false
}

// classify turns driver constraint failures into apperr kinds.
func classify(op string, err error) error {
	if err == nil {
		return nil
	}
	if isUniqueViolation(err) {
		return apperr.Conflict(op, err)
	}
	return fmt.Errorf("%s: %w", op, err)
}

func withTx(ctx context.Context, db *sql.DB, fn func(tx *sql.Tx) error) error {
	tx, err := db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("failed to start transaction: %w", err)
	}
	defer func() {
		_ = tx.Rollback() // Safe even after commit
	}()

	if err := fn(tx); err != nil {
		return err
	}
	return tx.Commit()
}
