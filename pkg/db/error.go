package db

import (
	"errors"
	"strings"

	"gorm.io/gorm"
)

func IsDuplicateKeyErr(err error) bool {
	if err == nil {
		return false
	}

	if errors.Is(err, gorm.ErrDuplicatedKey) {
		return true
	}

	// PostgreSQL (error code 23505)
	if strings.Contains(err.Error(), "duplicate key value violates unique constraint") {
		return true
	}

	// MySQL (error code 1062)
	if strings.Contains(err.Error(), "Error 1062") {
		return true
	}

	// SQLite (error code 2067)
	if strings.Contains(err.Error(), "UNIQUE constraint failed") {
		return true
	}

	return false
}

// IsLockContentionErr classifies transient locking failures that a caller
// may retry: lock_timeout expiry, deadlock detection, serialization
// failures and SQLite busy errors.
func IsLockContentionErr(err error) bool {
	if err == nil {
		return false
	}

	msg := err.Error()

	// PostgreSQL 55P03 / 40P01 / 40001
	if strings.Contains(msg, "could not obtain lock") ||
		strings.Contains(msg, "canceling statement due to lock timeout") ||
		strings.Contains(msg, "deadlock detected") ||
		strings.Contains(msg, "could not serialize access") {
		return true
	}

	// MySQL 1205 / 1213
	if strings.Contains(msg, "Lock wait timeout exceeded") ||
		strings.Contains(msg, "Deadlock found when trying to get lock") {
		return true
	}

	// SQLite
	if strings.Contains(msg, "database is locked") ||
		strings.Contains(msg, "database table is locked") {
		return true
	}

	return false
}
