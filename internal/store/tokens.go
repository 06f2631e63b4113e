package store

import (
	"context"
	"fmt"
	"time"

	"github.com/jmoiron/sqlx"
)

// RevokeToken adds a token's JTI to the revocation list.
func RevokeToken(ctx context.Context, q Querier, jti string, expiresAt time.Time) error {
	_, err := q.ExecContext(ctx,
		`INSERT OR IGNORE INTO revoked_tokens (jti, expires_at) VALUES (?, ?)`,
		jti, expiresAt,
	)
	if err != nil {
		return fmt.Errorf("revoking token: %w", err)
	}

	// Expired revocations can never match a valid token again.
	_, _ = q.ExecContext(ctx,
		`DELETE FROM revoked_tokens WHERE expires_at < ?`, time.Now(),
	)

	return nil
}

// IsTokenRevoked checks if a token's JTI has been revoked.
func IsTokenRevoked(ctx context.Context, q Querier, jti string) (bool, error) {
	var count int
	err := sqlx.GetContext(ctx, q, &count,
		`SELECT COUNT(*) FROM revoked_tokens WHERE jti = ?`, jti,
	)
	if err != nil {
		return false, fmt.Errorf("checking token revocation: %w", err)
	}
	return count > 0, nil
}
