// Package store provides the data access layer for gazette.
//
// The store receives an already-opened *sql.DB (see dbopen) and owns the
// schema plus all SQL for resources, change records, readers, subscriptions,
// and per-reader read state.
package store

import (
	"database/sql"
	"strings"
)

// Store wraps the gazette database.
type Store struct {
	DB *sql.DB
}

// NewStore creates a Store from an already-opened database connection.
func NewStore(db *sql.DB) *Store {
	return &Store{DB: db}
}

// IsConflict reports whether err is a SQLite unique constraint violation.
func IsConflict(err error) bool {
	return err != nil && strings.Contains(err.Error(), "UNIQUE constraint failed")
}

// IsForeignKey reports whether err is a SQLite foreign key violation,
// meaning a referenced row does not exist.
func IsForeignKey(err error) bool {
	return err != nil && strings.Contains(err.Error(), "FOREIGN KEY constraint failed")
}
