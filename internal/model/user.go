package model

import (
	"errors"
	"time"
)

// User is an operator account for the API.
type User struct {
	ID           int64      `db:"id" json:"id"`
	Username     string     `db:"username" json:"username"`
	PasswordHash string     `db:"password_hash" json:"-"`
	Role         string     `db:"role" json:"role"`
	CreatedAt    time.Time  `db:"created_at" json:"created_at"`
	DeletedAt    *time.Time `db:"deleted_at" json:"deleted_at,omitempty"`
}

// Roles.
const (
	RoleAdmin   = "admin"
	RoleManager = "manager"
	RoleUser    = "user"
)

// MinPasswordLength is the shortest accepted operator password.
const MinPasswordLength = 8

// ValidRole reports whether role is one of the defined roles.
func ValidRole(role string) bool {
	return role == RoleAdmin || role == RoleManager || role == RoleUser
}

// RoleAtLeast checks if role meets or exceeds the minimum required role.
func RoleAtLeast(role, minimum string) bool {
	levels := map[string]int{
		RoleAdmin:   3,
		RoleManager: 2,
		RoleUser:    1,
	}
	have, want := levels[role], levels[minimum]
	return have > 0 && want > 0 && have >= want
}

// ValidatePassword checks a new password against the length policy.
func ValidatePassword(password string) error {
	if len(password) < MinPasswordLength {
		return errors.New("password must be at least 8 characters")
	}
	return nil
}
