package store

import (
	"database/sql"
	"fmt"
	"time"

	"github.com/google/uuid"
)

// Event is one dispatched gesture recorded for the history view.
// Continuous events (cursor and drag movement) are not recorded.
type Event struct {
	ID        string    `json:"id"`
	Type      string    `json:"type"`
	Channel   string    `json:"channel,omitempty"`
	X         int       `json:"x"`
	Y         int       `json:"y"`
	CreatedAt time.Time `json:"created_at"`
}

// EventRepository stores and queries the dispatched event history.
type EventRepository struct {
	db *sql.DB
}

// Record inserts one event.
func (r *EventRepository) Record(evType, channel string, x, y int) error {
	_, err := r.db.Exec(
		`INSERT INTO events (id, type, channel, x, y) VALUES (?, ?, ?, ?, ?)`,
		uuid.New().String(), evType, channel, x, y,
	)
	if err != nil {
		return fmt.Errorf("record event: %w", err)
	}
	return nil
}

// Recent returns the newest events, most recent first.
func (r *EventRepository) Recent(limit int) ([]*Event, error) {
	if limit <= 0 {
		limit = 50
	}

	rows, err := r.db.Query(
		`SELECT id, type, channel, x, y, created_at FROM events
		 ORDER BY created_at DESC, id LIMIT ?`, limit,
	)
	if err != nil {
		return nil, fmt.Errorf("list events: %w", err)
	}
	defer rows.Close()

	var events []*Event
	for rows.Next() {
		var e Event
		if err := rows.Scan(&e.ID, &e.Type, &e.Channel, &e.X, &e.Y, &e.CreatedAt); err != nil {
			return nil, fmt.Errorf("scan event: %w", err)
		}
		events = append(events, &e)
	}
	return events, rows.Err()
}

// CountByType returns event totals grouped by type.
func (r *EventRepository) CountByType() (map[string]int, error) {
	rows, err := r.db.Query(`SELECT type, COUNT(*) FROM events GROUP BY type`)
	if err != nil {
		return nil, fmt.Errorf("count events: %w", err)
	}
	defer rows.Close()

	counts := make(map[string]int)
	for rows.Next() {
		var typ string
		var n int
		if err := rows.Scan(&typ, &n); err != nil {
			return nil, fmt.Errorf("scan event count: %w", err)
		}
		counts[typ] = n
	}
	return counts, rows.Err()
}

// Prune deletes events older than the cutoff and returns how many were
// removed.
func (r *EventRepository) Prune(olderThan time.Time) (int64, error) {
	result, err := r.db.Exec(
		`DELETE FROM events WHERE created_at < ?`,
		olderThan.UTC().Format("2006-01-02 15:04:05"),
	)
	if err != nil {
		return 0, fmt.Errorf("prune events: %w", err)
	}
	return result.RowsAffected()
}
