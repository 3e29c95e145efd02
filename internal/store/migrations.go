package store

import "database/sql"

// migrations are applied in order on startup. Each statement must be
// idempotent.
var migrations = []string{
	`CREATE TABLE IF NOT EXISTS bindings (
		id TEXT PRIMARY KEY,
		gesture TEXT NOT NULL UNIQUE,
		kind TEXT NOT NULL,
		value TEXT NOT NULL,
		enabled INTEGER NOT NULL DEFAULT 1,
		created_at TIMESTAMP DEFAULT CURRENT_TIMESTAMP,
		updated_at TIMESTAMP DEFAULT CURRENT_TIMESTAMP
	)`,
	`CREATE INDEX IF NOT EXISTS idx_bindings_gesture ON bindings(gesture)`,

	`CREATE TABLE IF NOT EXISTS events (
		id TEXT PRIMARY KEY,
		type TEXT NOT NULL,
		channel TEXT NOT NULL DEFAULT '',
		x INTEGER NOT NULL DEFAULT 0,
		y INTEGER NOT NULL DEFAULT 0,
		created_at TIMESTAMP DEFAULT CURRENT_TIMESTAMP
	)`,
	`CREATE INDEX IF NOT EXISTS idx_events_created_at ON events(created_at)`,
	`CREATE INDEX IF NOT EXISTS idx_events_type ON events(type)`,
}

func runMigrations(db *sql.DB) error {
	for _, m := range migrations {
		if _, err := db.Exec(m); err != nil {
			return err
		}
	}
	return nil
}
