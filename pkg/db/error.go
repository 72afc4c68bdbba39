package db

import (
	"errors"
	"fmt"
	"strings"

	"gorm.io/gorm"
)

// PersistenceError marks a failed read or write against the store.
type PersistenceError struct {
	Op  string
	Err error
}

func (e *PersistenceError) Error() string {
	if e.Op == "" {
		return fmt.Sprintf("persistence: %v", e.Err)
	}
	return fmt.Sprintf("persistence: %s: %v", e.Op, e.Err)
}

func (e *PersistenceError) Unwrap() error { return e.Err }

// Wrap returns nil for a nil err, and err unchanged when it already carries a
// PersistenceError.
func Wrap(op string, err error) error {
	if err == nil {
		return nil
	}
	var existing *PersistenceError
	if errors.As(err, &existing) {
		return err
	}
	return &PersistenceError{Op: op, Err: err}
}

func IsPersistenceErr(err error) bool {
	var target *PersistenceError
	return errors.As(err, &target)
}

func IsDuplicateKeyErr(err error) bool {
	if err == nil {
		return false
	}

	if errors.Is(err, gorm.ErrDuplicatedKey) {
		return true
	}

	// PostgreSQL (23505)
	if strings.Contains(err.Error(), "duplicate key value violates unique constraint") {
		return true
	}

	// MySQL (1062)
	if strings.Contains(err.Error(), "Error 1062") {
		return true
	}

	// SQLite (2067)
	if strings.Contains(err.Error(), "UNIQUE constraint failed") {
		return true
	}

	return false
}
