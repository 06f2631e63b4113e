// Package store is the persistence boundary. Every function takes a Querier,
// so it runs either standalone against the database or inside a caller's
// transaction opened with WithTx.
package store

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/jmoiron/sqlx"
	"modernc.org/sqlite"
	sqlite3 "modernc.org/sqlite/lib"

	"github.com/erazemk/prostock/internal/model"
)

// Querier is satisfied by both *sqlx.DB and *sqlx.Tx.
type Querier interface {
	sqlx.ExtContext
}

// WithTx runs fn in a transaction. The transaction is committed when fn
// returns nil and rolled back otherwise, so a failed multi-row change leaves
// every row untouched.
func WithTx(ctx context.Context, db *sqlx.DB, fn func(tx *sqlx.Tx) error) error {
	tx, err := db.BeginTxx(ctx, nil)
	if err != nil {
		return fmt.Errorf("beginning transaction: %w", err)
	}
	defer tx.Rollback()

	if err := fn(tx); err != nil {
		return err
	}

	if err := tx.Commit(); err != nil {
		return fmt.Errorf("committing transaction: %w", err)
	}
	return nil
}

// isUniqueViolation reports whether err is a UNIQUE or PRIMARY KEY failure.
func isUniqueViolation(err error) bool {
	var se *sqlite.Error
	if errors.As(err, &se) {
		code := se.Code()
		return code == sqlite3.SQLITE_CONSTRAINT_UNIQUE || code == sqlite3.SQLITE_CONSTRAINT_PRIMARYKEY
	}
	return err != nil && strings.Contains(err.Error(), "UNIQUE constraint failed")
}

// wrapWrite wraps a failed write, translating uniqueness violations into
// model.ErrConflict.
func wrapWrite(op string, err error) error {
	if isUniqueViolation(err) {
		return fmt.Errorf("%s: %w: %v", op, model.ErrConflict, err)
	}
	return fmt.Errorf("%s: %w", op, err)
}

// affectedOne returns model.ErrNotFound when a write touched no row.
func affectedOne(res interface{ RowsAffected() (int64, error) }, what string, id int64) error {
	n, err := res.RowsAffected()
	if err != nil {
		return fmt.Errorf("reading affected rows: %w", err)
	}
	if n == 0 {
		return fmt.Errorf("%w: %s %d", model.ErrNotFound, what, id)
	}
	return nil
}
