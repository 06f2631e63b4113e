package store

import (
	"context"
	"crypto/rand"
	"database/sql"
	"encoding/hex"
	"errors"
	"fmt"

	"github.com/jmoiron/sqlx"

	"github.com/erazemk/prostock/internal/model"
)

const jwtSecretKey = "jwt_secret"

// GetJWTSecret returns the signing secret, generating and storing one on
// first use. INSERT OR IGNORE followed by a read keeps concurrent first
// starts on the same value.
func GetJWTSecret(ctx context.Context, q Querier) (string, error) {
	buf := make([]byte, 32)
	if _, err := rand.Read(buf); err != nil {
		return "", fmt.Errorf("generating jwt secret: %w", err)
	}

	_, err := q.ExecContext(ctx,
		`INSERT OR IGNORE INTO settings (key, value) VALUES (?, ?)`,
		jwtSecretKey, hex.EncodeToString(buf),
	)
	if err != nil {
		return "", fmt.Errorf("storing jwt secret: %w", err)
	}

	return GetSetting(ctx, q, jwtSecretKey)
}

// GetSetting returns a stored setting value.
func GetSetting(ctx context.Context, q Querier, key string) (string, error) {
	var value string
	err := sqlx.GetContext(ctx, q, &value, `SELECT value FROM settings WHERE key = ?`, key)
	if errors.Is(err, sql.ErrNoRows) {
		return "", fmt.Errorf("%w: setting %q", model.ErrNotFound, key)
	}
	if err != nil {
		return "", fmt.Errorf("reading setting %q: %w", key, err)
	}
	return value, nil
}

