package model

import "errors"

// Error taxonomy shared by the store, the lifecycle engine and the resolver.
// Callers wrap these with context and test them with errors.Is.
var (
	// ErrValidation marks an operation refused because of the entity's
	// current status or an out-of-range argument. Nothing was written.
	ErrValidation = errors.New("validation failed")

	// ErrConflict marks a uniqueness violation (serial, kit name, username).
	ErrConflict = errors.New("conflict")

	// ErrNotFound marks a reference to a row that does not exist.
	ErrNotFound = errors.New("not found")

	// ErrScan marks a scanned identifier that cannot be parsed.
	ErrScan = errors.New("invalid scan code")
)
