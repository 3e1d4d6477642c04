package storage

import (
	"errors"
	"strings"
)

var (
	// ErrNotFound reports that a referenced paper, chunk, tag or reference
	// does not exist. Expected condition, never fatal.
	ErrNotFound = errors.New("not found")

	// ErrDuplicate reports a unique-constraint violation on insert, e.g. two
	// papers with the same file path. Callers treat it as "already exists".
	ErrDuplicate = errors.New("already exists")
)

// isUniqueViolation detects a sqlite UNIQUE constraint failure. The modernc
// driver surfaces constraint failures as flat error strings.
func isUniqueViolation(err error) bool {
	if err == nil {
		return false
	}
	return strings.Contains(err.Error(), "UNIQUE constraint failed")
}

// isForeignKeyViolation detects a sqlite FOREIGN KEY constraint failure,
// meaning the owning row is gone.
func isForeignKeyViolation(err error) bool {
	if err == nil {
		return false
	}
	return strings.Contains(err.Error(), "FOREIGN KEY constraint failed")
}
