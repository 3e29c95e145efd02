// Package action turns gesture events into OS input: pointer movement,
// clicks, drags, scrolling and keyboard shortcuts, with rate limiting
// and safe-mode guards between the pipeline and the host.
package action

import (
	"fmt"
	"sync"

	"github.com/go-vgo/robotgo"
)

// Input abstracts the OS input primitives so tests can record operations
// instead of injecting them.
type Input interface {
	// Move places the pointer at an absolute screen position.
	Move(x, y int)
	// MoveSmooth glides the pointer to an absolute screen position.
	MoveSmooth(x, y int)
	// Click presses and releases a mouse button ("left", "right",
	// "center"), optionally as a double click.
	Click(button string, double bool)
	// Toggle presses ("down") or releases ("up") a mouse button.
	Toggle(button, direction string) error
	// Scroll scrolls by the given horizontal and vertical amounts.
	Scroll(x, y int)
	// KeyTap taps a key with optional modifiers.
	KeyTap(key string, mods []string) error
	// ScreenSize returns the primary display dimensions in pixels.
	ScreenSize() (int, int)
}

// systemInput drives the real pointer and keyboard through robotgo.
type systemInput struct{}

// NewSystemInput returns the robotgo-backed Input.
func NewSystemInput() Input {
	return systemInput{}
}

func (systemInput) Move(x, y int) {
	robotgo.Move(x, y)
}

func (systemInput) MoveSmooth(x, y int) {
	robotgo.MoveSmooth(x, y)
}

func (systemInput) Click(button string, double bool) {
	robotgo.Click(button, double)
}

func (systemInput) Toggle(button, direction string) error {
	return robotgo.Toggle(button, direction)
}

func (systemInput) Scroll(x, y int) {
	robotgo.Scroll(x, y)
}

func (systemInput) KeyTap(key string, mods []string) error {
	args := make([]interface{}, len(mods))
	for i, m := range mods {
		args[i] = m
	}
	return robotgo.KeyTap(key, args...)
}

func (systemInput) ScreenSize() (int, int) {
	return robotgo.GetScreenSize()
}

// MockInput records operations for tests. Each operation is rendered as
// one readable line, e.g. "move 960 540" or "keytap tab alt".
type MockInput struct {
	mu  sync.Mutex
	ops []string
	w   int
	h   int
	err error
}

// NewMockInput returns a recorder reporting the given screen size.
func NewMockInput(w, h int) *MockInput {
	return &MockInput{w: w, h: h}
}

// SetError makes subsequent Toggle and KeyTap calls fail.
func (m *MockInput) SetError(err error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.err = err
}

// Operations returns a copy of everything recorded so far.
func (m *MockInput) Operations() []string {
	m.mu.Lock()
	defer m.mu.Unlock()
	out := make([]string, len(m.ops))
	copy(out, m.ops)
	return out
}

// Clear discards the recorded operations.
func (m *MockInput) Clear() {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.ops = m.ops[:0]
}

func (m *MockInput) record(format string, args ...interface{}) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.ops = append(m.ops, fmt.Sprintf(format, args...))
}

// Move implements Input.
func (m *MockInput) Move(x, y int) {
	m.record("move %d %d", x, y)
}

// MoveSmooth implements Input.
func (m *MockInput) MoveSmooth(x, y int) {
	m.record("movesmooth %d %d", x, y)
}

// Click implements Input.
func (m *MockInput) Click(button string, double bool) {
	if double {
		m.record("click %s double", button)
		return
	}
	m.record("click %s", button)
}

// Toggle implements Input.
func (m *MockInput) Toggle(button, direction string) error {
	m.mu.Lock()
	err := m.err
	m.mu.Unlock()
	if err != nil {
		return err
	}
	m.record("toggle %s %s", button, direction)
	return nil
}

// Scroll implements Input.
func (m *MockInput) Scroll(x, y int) {
	m.record("scroll %d %d", x, y)
}

// KeyTap implements Input.
func (m *MockInput) KeyTap(key string, mods []string) error {
	m.mu.Lock()
	err := m.err
	m.mu.Unlock()
	if err != nil {
		return err
	}
	if len(mods) == 0 {
		m.record("keytap %s", key)
		return nil
	}
	line := "keytap " + key
	for _, mod := range mods {
		line += " " + mod
	}
	m.mu.Lock()
	m.ops = append(m.ops, line)
	m.mu.Unlock()
	return nil
}

// ScreenSize implements Input.
func (m *MockInput) ScreenSize() (int, int) {
	return m.w, m.h
}
