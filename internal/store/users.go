package store

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	"github.com/jmoiron/sqlx"

	"github.com/erazemk/prostock/internal/model"
)

const userColumns = `id, username, password_hash, role, created_at, deleted_at`

// CreateUser creates a new operator account.
func CreateUser(ctx context.Context, q Querier, username, passwordHash, role string) (*model.User, error) {
	if !model.ValidRole(role) {
		return nil, fmt.Errorf("%w: unknown role %q", model.ErrValidation, role)
	}

	result, err := q.ExecContext(ctx,
		`INSERT INTO users (username, password_hash, role) VALUES (?, ?, ?)`,
		username, passwordHash, role,
	)
	if err != nil {
		return nil, wrapWrite("creating user", err)
	}

	id, err := result.LastInsertId()
	if err != nil {
		return nil, fmt.Errorf("getting user id: %w", err)
	}

	return GetUser(ctx, q, id)
}

// GetUser returns a user by ID.
func GetUser(ctx context.Context, q Querier, id int64) (*model.User, error) {
	u := &model.User{}
	err := sqlx.GetContext(ctx, q, u, `SELECT `+userColumns+` FROM users WHERE id = ?`, id)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, fmt.Errorf("%w: user %d", model.ErrNotFound, id)
	}
	if err != nil {
		return nil, fmt.Errorf("getting user: %w", err)
	}
	return u, nil
}

// GetUserByUsername returns the active user with the given name.
func GetUserByUsername(ctx context.Context, q Querier, username string) (*model.User, error) {
	u := &model.User{}
	err := sqlx.GetContext(ctx, q, u,
		`SELECT `+userColumns+` FROM users WHERE username = ? AND deleted_at IS NULL`, username,
	)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, fmt.Errorf("%w: user %q", model.ErrNotFound, username)
	}
	if err != nil {
		return nil, fmt.Errorf("getting user by username: %w", err)
	}
	return u, nil
}

// ListUsers returns all non-deleted users.
func ListUsers(ctx context.Context, q Querier) ([]model.User, error) {
	var users []model.User
	err := sqlx.SelectContext(ctx, q, &users,
		`SELECT `+userColumns+` FROM users WHERE deleted_at IS NULL ORDER BY id`,
	)
	if err != nil {
		return nil, fmt.Errorf("listing users: %w", err)
	}
	return users, nil
}

// CountUsers returns the number of active users.
func CountUsers(ctx context.Context, q Querier) (int, error) {
	var n int
	if err := sqlx.GetContext(ctx, q, &n, `SELECT COUNT(*) FROM users WHERE deleted_at IS NULL`); err != nil {
		return 0, fmt.Errorf("counting users: %w", err)
	}
	return n, nil
}

// UpdateUser updates a user's role.
func UpdateUser(ctx context.Context, q Querier, id int64, role string) error {
	if !model.ValidRole(role) {
		return fmt.Errorf("%w: unknown role %q", model.ErrValidation, role)
	}
	result, err := q.ExecContext(ctx,
		`UPDATE users SET role = ? WHERE id = ? AND deleted_at IS NULL`,
		role, id,
	)
	if err != nil {
		return fmt.Errorf("updating user: %w", err)
	}
	return affectedOne(result, "user", id)
}

// UpdateUserPassword updates a user's password hash.
func UpdateUserPassword(ctx context.Context, q Querier, id int64, passwordHash string) error {
	result, err := q.ExecContext(ctx,
		`UPDATE users SET password_hash = ? WHERE id = ? AND deleted_at IS NULL`,
		passwordHash, id,
	)
	if err != nil {
		return fmt.Errorf("updating user password: %w", err)
	}
	return affectedOne(result, "user", id)
}

// DeleteUser soft-deletes a user.
func DeleteUser(ctx context.Context, q Querier, id int64) error {
	result, err := q.ExecContext(ctx,
		`UPDATE users SET deleted_at = CURRENT_TIMESTAMP WHERE id = ? AND deleted_at IS NULL`,
		id,
	)
	if err != nil {
		return fmt.Errorf("deleting user: %w", err)
	}
	return affectedOne(result, "user", id)
}
