package db

import (
	"context"
	"fmt"

	"github.com/jmoiron/sqlx"
)

// migration is one ordered schema step. Statements of a step run in a single
// transaction together with the version bookkeeping row.
type migration struct {
	version    int
	name       string
	statements []string
}

// migrations is the ordered schema history. Append new steps at the end and
// never edit a step that has shipped.
var migrations = []migration{
	{
		version: 1,
		name:    "base schema",
		statements: []string{
			`CREATE TABLE IF NOT EXISTS users (
			    id            INTEGER PRIMARY KEY,
			    username      TEXT NOT NULL,
			    password_hash TEXT NOT NULL,
			    role          TEXT NOT NULL DEFAULT 'user' CHECK (role IN ('admin', 'manager', 'user')),
			    created_at    DATETIME NOT NULL DEFAULT CURRENT_TIMESTAMP,
			    deleted_at    DATETIME
			)`,
			`CREATE UNIQUE INDEX IF NOT EXISTS idx_users_username_active
			     ON users(username) WHERE deleted_at IS NULL`,
			`CREATE TABLE IF NOT EXISTS revoked_tokens (
			    jti        TEXT PRIMARY KEY,
			    expires_at DATETIME NOT NULL
			)`,
			`CREATE TABLE IF NOT EXISTS settings (
			    key   TEXT PRIMARY KEY,
			    value TEXT NOT NULL
			)`,
			`CREATE TABLE IF NOT EXISTS equipment (
			    id          INTEGER PRIMARY KEY,
			    name        TEXT NOT NULL,
			    brand       TEXT NOT NULL DEFAULT '',
			    model       TEXT NOT NULL DEFAULT '',
			    category    TEXT NOT NULL CHECK (category IN ('Photo', 'Vidéo', 'Son', 'Lumière', 'Accessoires')),
			    serial      TEXT NOT NULL,
			    price       TEXT NOT NULL DEFAULT '0',
			    quantity    INTEGER NOT NULL DEFAULT 1 CHECK (quantity > 0),
			    is_lot      BOOLEAN NOT NULL DEFAULT 0,
			    status      TEXT NOT NULL DEFAULT 'En stock' CHECK (status IN ('En stock', 'Sorti', 'En Maintenance')),
			    parent_id   INTEGER REFERENCES equipment(id),
			    checkout_at DATETIME,
			    created_at  DATETIME NOT NULL DEFAULT CURRENT_TIMESTAMP,
			    updated_at  DATETIME NOT NULL DEFAULT CURRENT_TIMESTAMP,
			    deleted_at  DATETIME
			)`,
			`CREATE TABLE IF NOT EXISTS repairs (
			    id           INTEGER PRIMARY KEY,
			    equipment_id INTEGER NOT NULL REFERENCES equipment(id),
			    date         TEXT NOT NULL,
			    description  TEXT NOT NULL DEFAULT '',
			    cost         TEXT NOT NULL DEFAULT '0',
			    provider     TEXT NOT NULL DEFAULT '',
			    created_at   DATETIME NOT NULL DEFAULT CURRENT_TIMESTAMP
			)`,
			`CREATE TABLE IF NOT EXISTS kits (
			    id         INTEGER PRIMARY KEY,
			    name       TEXT NOT NULL UNIQUE,
			    created_at DATETIME NOT NULL DEFAULT CURRENT_TIMESTAMP
			)`,
			`CREATE TABLE IF NOT EXISTS kit_items (
			    id           INTEGER PRIMARY KEY,
			    kit_id       INTEGER NOT NULL REFERENCES kits(id) ON DELETE CASCADE,
			    equipment_id INTEGER NOT NULL REFERENCES equipment(id) ON DELETE CASCADE,
			    UNIQUE (kit_id, equipment_id)
			)`,
		},
	},
	{
		version: 2,
		name:    "equipment location, purchase date and invoice",
		statements: []string{
			`ALTER TABLE equipment ADD COLUMN location TEXT NOT NULL DEFAULT ''`,
			`ALTER TABLE equipment ADD COLUMN purchase_date TEXT NOT NULL DEFAULT ''`,
			`ALTER TABLE equipment ADD COLUMN invoice BLOB`,
			`ALTER TABLE equipment ADD COLUMN invoice_mime TEXT`,
		},
	},
	{
		version: 3,
		name:    "equipment indexes",
		statements: []string{
			// Serials are unique among active rows only, so a deleted
			// item's serial can be registered again.
			`CREATE UNIQUE INDEX IF NOT EXISTS idx_equipment_serial_active
			     ON equipment(serial) WHERE deleted_at IS NULL`,
			`CREATE INDEX IF NOT EXISTS idx_equipment_parent ON equipment(parent_id)`,
			`CREATE INDEX IF NOT EXISTS idx_equipment_status ON equipment(status)`,
			`CREATE INDEX IF NOT EXISTS idx_repairs_equipment ON repairs(equipment_id)`,
		},
	},
}

// Migrate applies every migration newer than the recorded schema version.
func Migrate(db *sqlx.DB) error {
	ctx := context.Background()

	if _, err := db.ExecContext(ctx,
		`CREATE TABLE IF NOT EXISTS schema_migrations (
		    version    INTEGER PRIMARY KEY,
		    name       TEXT NOT NULL,
		    applied_at DATETIME NOT NULL DEFAULT CURRENT_TIMESTAMP
		)`,
	); err != nil {
		return fmt.Errorf("creating schema_migrations: %w", err)
	}

	current, err := SchemaVersion(db)
	if err != nil {
		return err
	}

	for _, m := range migrations {
		if m.version <= current {
			continue
		}
		if err := apply(ctx, db, m); err != nil {
			return err
		}
	}

	return nil
}

// SchemaVersion returns the highest applied migration version, or 0.
func SchemaVersion(db *sqlx.DB) (int, error) {
	var version int
	err := db.Get(&version, `SELECT COALESCE(MAX(version), 0) FROM schema_migrations`)
	if err != nil {
		return 0, fmt.Errorf("reading schema version: %w", err)
	}
	return version, nil
}

func apply(ctx context.Context, db *sqlx.DB, m migration) error {
	tx, err := db.BeginTxx(ctx, nil)
	if err != nil {
		return fmt.Errorf("beginning migration %d: %w", m.version, err)
	}
	defer tx.Rollback()

	// Another process may have applied this step since we read the version.
	var applied int
	if err := tx.GetContext(ctx, &applied,
		`SELECT COUNT(*) FROM schema_migrations WHERE version = ?`, m.version,
	); err != nil {
		return fmt.Errorf("checking migration %d: %w", m.version, err)
	}
	if applied > 0 {
		return nil
	}

	for i, stmt := range m.statements {
		if _, err := tx.ExecContext(ctx, stmt); err != nil {
			return fmt.Errorf("running migration %d (%s) statement %d: %w", m.version, m.name, i+1, err)
		}
	}

	if _, err := tx.ExecContext(ctx,
		`INSERT INTO schema_migrations (version, name) VALUES (?, ?)`, m.version, m.name,
	); err != nil {
		return fmt.Errorf("recording migration %d: %w", m.version, err)
	}

	if err := tx.Commit(); err != nil {
		return fmt.Errorf("committing migration %d: %w", m.version, err)
	}
	return nil
}
