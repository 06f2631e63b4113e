package db

import (
	"fmt"
	"strings"

	"github.com/jmoiron/sqlx"
	_ "modernc.org/sqlite"
)

// pragmas are applied to every pooled connection through the DSN.
var pragmas = []string{
	"journal_mode(WAL)",
	"busy_timeout(5000)",
	"foreign_keys(1)",
	"synchronous(NORMAL)",
}

// Open opens a SQLite database and configures pragmas and locking.
//
// Transactions begin with BEGIN IMMEDIATE, so a read-then-write transaction
// holds the database write lock from its first statement and concurrent
// writers block (up to busy_timeout) instead of interleaving.
func Open(path string) (*sqlx.DB, error) {
	db, err := sqlx.Open("sqlite", dsn(path))
	if err != nil {
		return nil, fmt.Errorf("opening database: %w", err)
	}

	// Each connection to :memory: is a separate database.
	if isMemory(path) {
		db.SetMaxOpenConns(1)
	}

	if err := db.Ping(); err != nil {
		db.Close()
		return nil, fmt.Errorf("connecting to database: %w", err)
	}

	return db, nil
}

func dsn(path string) string {
	params := []string{"_txlock=immediate"}
	for _, p := range pragmas {
		params = append(params, "_pragma="+p)
	}
	sep := "?"
	if strings.Contains(path, "?") {
		sep = "&"
	}
	return path + sep + strings.Join(params, "&")
}

func isMemory(path string) bool {
	return path == ":memory:" || strings.Contains(path, "mode=memory")
}
