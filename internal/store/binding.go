package store

import (
	"database/sql"
	"fmt"
	"time"

	"github.com/google/uuid"
)

// Binding kinds.
const (
	KindKey     = "key"
	KindMouse   = "mouse"
	KindCommand = "command"
)

// KnownGestures lists every gesture name a binding can attach to.
var KnownGestures = []string{
	"pinch",
	"pinch_right",
	"pinch_hold",
	"double_tap",
	"swipe_up",
	"swipe_down",
	"swipe_left",
	"swipe_right",
}

// ValidKind reports whether kind is one of the binding kinds.
func ValidKind(kind string) bool {
	return kind == KindKey || kind == KindMouse || kind == KindCommand
}

// ValidGesture reports whether gesture is a known gesture name.
func ValidGesture(gesture string) bool {
	for _, g := range KnownGestures {
		if g == gesture {
			return true
		}
	}
	return false
}

// Binding maps a gesture to an OS action. For the core pointer gestures
// the binding acts as an enable switch; for swipes it defines the
// action itself.
type Binding struct {
	ID        string    `json:"id"`
	Gesture   string    `json:"gesture"`
	Kind      string    `json:"kind"`
	Value     string    `json:"value"`
	Enabled   bool      `json:"enabled"`
	CreatedAt time.Time `json:"created_at"`
	UpdatedAt time.Time `json:"updated_at"`
}

// BindingRepository provides CRUD access to gesture bindings.
type BindingRepository struct {
	db *sql.DB
}

// Create inserts a new binding. The ID must be set by the caller.
func (r *BindingRepository) Create(b *Binding) error {
	enabled := 0
	if b.Enabled {
		enabled = 1
	}

	_, err := r.db.Exec(
		`INSERT INTO bindings (id, gesture, kind, value, enabled) VALUES (?, ?, ?, ?, ?)`,
		b.ID, b.Gesture, b.Kind, b.Value, enabled,
	)
	if err != nil {
		return fmt.Errorf("create binding: %w", err)
	}
	return nil
}

// GetByID returns the binding with the given ID.
func (r *BindingRepository) GetByID(id string) (*Binding, error) {
	row := r.db.QueryRow(
		`SELECT id, gesture, kind, value, enabled, created_at, updated_at
		 FROM bindings WHERE id = ?`, id,
	)
	return scanBinding(row)
}

// GetByGesture returns the binding attached to the given gesture name.
func (r *BindingRepository) GetByGesture(gesture string) (*Binding, error) {
	row := r.db.QueryRow(
		`SELECT id, gesture, kind, value, enabled, created_at, updated_at
		 FROM bindings WHERE gesture = ?`, gesture,
	)
	return scanBinding(row)
}

// List returns all bindings ordered by gesture name.
func (r *BindingRepository) List() ([]*Binding, error) {
	rows, err := r.db.Query(
		`SELECT id, gesture, kind, value, enabled, created_at, updated_at
		 FROM bindings ORDER BY gesture`,
	)
	if err != nil {
		return nil, fmt.Errorf("list bindings: %w", err)
	}
	defer rows.Close()

	var bindings []*Binding
	for rows.Next() {
		var b Binding
		var enabled int
		if err := rows.Scan(&b.ID, &b.Gesture, &b.Kind, &b.Value, &enabled,
			&b.CreatedAt, &b.UpdatedAt); err != nil {
			return nil, fmt.Errorf("scan binding: %w", err)
		}
		b.Enabled = enabled != 0
		bindings = append(bindings, &b)
	}
	return bindings, rows.Err()
}

// Update rewrites the kind, value and enabled flag of a binding.
func (r *BindingRepository) Update(b *Binding) error {
	enabled := 0
	if b.Enabled {
		enabled = 1
	}

	result, err := r.db.Exec(
		`UPDATE bindings SET kind = ?, value = ?, enabled = ?,
		 updated_at = CURRENT_TIMESTAMP WHERE id = ?`,
		b.Kind, b.Value, enabled, b.ID,
	)
	if err != nil {
		return fmt.Errorf("update binding: %w", err)
	}

	affected, err := result.RowsAffected()
	if err != nil {
		return err
	}
	if affected == 0 {
		return ErrNotFound
	}
	return nil
}

// Delete removes a binding.
func (r *BindingRepository) Delete(id string) error {
	result, err := r.db.Exec(`DELETE FROM bindings WHERE id = ?`, id)
	if err != nil {
		return fmt.Errorf("delete binding: %w", err)
	}

	affected, err := result.RowsAffected()
	if err != nil {
		return err
	}
	if affected == 0 {
		return ErrNotFound
	}
	return nil
}

// SeedDefaults inserts the stock binding set when the table is empty,
// so a fresh install clicks and swipes out of the box.
func (r *BindingRepository) SeedDefaults() error {
	var count int
	if err := r.db.QueryRow(`SELECT COUNT(*) FROM bindings`).Scan(&count); err != nil {
		return fmt.Errorf("count bindings: %w", err)
	}
	if count > 0 {
		return nil
	}

	defaults := []Binding{
		{Gesture: "pinch", Kind: KindMouse, Value: "left-click", Enabled: true},
		{Gesture: "pinch_right", Kind: KindMouse, Value: "right-click", Enabled: true},
		{Gesture: "pinch_hold", Kind: KindMouse, Value: "drag", Enabled: true},
		{Gesture: "double_tap", Kind: KindMouse, Value: "double-click", Enabled: true},
		{Gesture: "swipe_up", Kind: KindKey, Value: "alt+tab", Enabled: true},
		{Gesture: "swipe_down", Kind: KindKey, Value: "win+d", Enabled: true},
		{Gesture: "swipe_left", Kind: KindMouse, Value: "scroll-down", Enabled: false},
		{Gesture: "swipe_right", Kind: KindMouse, Value: "scroll-up", Enabled: false},
	}
	for i := range defaults {
		defaults[i].ID = uuid.New().String()
		if err := r.Create(&defaults[i]); err != nil {
			return err
		}
	}
	return nil
}

func scanBinding(row *sql.Row) (*Binding, error) {
	var b Binding
	var enabled int
	err := row.Scan(&b.ID, &b.Gesture, &b.Kind, &b.Value, &enabled,
		&b.CreatedAt, &b.UpdatedAt)
	if err == sql.ErrNoRows {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("scan binding: %w", err)
	}
	b.Enabled = enabled != 0
	return &b, nil
}
