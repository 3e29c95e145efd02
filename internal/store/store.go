// Package store provides SQLite-backed persistence for gesture bindings
// and the dispatched event history.
package store

import (
	"database/sql"
	"errors"
	"fmt"

	_ "modernc.org/sqlite"
)

// ErrNotFound is returned when a requested record does not exist.
var ErrNotFound = errors.New("record not found")

// Store wraps the SQLite database and its repositories.
type Store struct {
	db       *sql.DB
	bindings *BindingRepository
	events   *EventRepository
}

// New opens (or creates) the database at the given path and runs
// migrations.
func New(dbPath string) (*Store, error) {
	db, err := sql.Open("sqlite", dbPath)
	if err != nil {
		return nil, fmt.Errorf("open database: %w", err)
	}

	if _, err := db.Exec("PRAGMA foreign_keys = ON"); err != nil {
		db.Close()
		return nil, fmt.Errorf("enable foreign keys: %w", err)
	}

	if err := runMigrations(db); err != nil {
		db.Close()
		return nil, fmt.Errorf("run migrations: %w", err)
	}

	return &Store{
		db:       db,
		bindings: &BindingRepository{db: db},
		events:   &EventRepository{db: db},
	}, nil
}

// Close closes the underlying database.
func (s *Store) Close() error {
	return s.db.Close()
}

// Bindings returns the gesture binding repository.
func (s *Store) Bindings() *BindingRepository {
	return s.bindings
}

// Events returns the event history repository.
func (s *Store) Events() *EventRepository {
	return s.events
}

// DB exposes the raw handle for tests.
func (s *Store) DB() *sql.DB {
	return s.db
}
