// Package tray provides the system tray interface for the Mudra gesture
// cursor engine.
package tray

import (
	"sync"

	"github.com/getlantern/systray"
)

// Tray represents the system tray application.
type Tray struct {
	onToggle   func(paused bool)
	onRestart  func()
	onSettings func()
	onQuit     func()
	paused     bool
	mu         sync.RWMutex

	// Menu items stored for later updates
	menuToggle     *systray.MenuItem
	menuLastAction *systray.MenuItem
}

// New creates a new Tray instance. The engine starts active, so the
// paused state defaults to false.
func New() *Tray {
	return &Tray{}
}

// OnToggle sets the callback function to be called when the pause state
// is toggled from the menu.
func (t *Tray) OnToggle(fn func(paused bool)) {
	t.mu.Lock()
	defer t.mu.Unlock()
	t.onToggle = fn
}

// OnRestartCamera sets the callback function to be called when the
// camera restart menu item is clicked.
func (t *Tray) OnRestartCamera(fn func()) {
	t.mu.Lock()
	defer t.mu.Unlock()
	t.onRestart = fn
}

// OnSettings sets the callback function to be called when the settings
// menu item is clicked.
func (t *Tray) OnSettings(fn func()) {
	t.mu.Lock()
	defer t.mu.Unlock()
	t.onSettings = fn
}

// OnQuit sets the callback function to be called when the quit menu
// item is clicked.
func (t *Tray) OnQuit(fn func()) {
	t.mu.Lock()
	defer t.mu.Unlock()
	t.onQuit = fn
}

// Run starts the system tray application.
// This function blocks until systray.Quit() is called.
func (t *Tray) Run() {
	systray.Run(t.onReady, t.onExit)
}

// Quit tears the tray down, unblocking Run.
func (t *Tray) Quit() {
	systray.Quit()
}

// onReady is called when the system tray is ready.
// It sets up the menu structure.
func (t *Tray) onReady() {
	systray.SetTitle("Mudra")
	systray.SetTooltip("Mudra Gesture Cursor")

	t.menuToggle = systray.AddMenuItem("● Active", "Pause or resume gesture control")
	systray.AddSeparator()

	t.menuLastAction = systray.AddMenuItem("Last: none", "Last dispatched action")
	t.menuLastAction.Disable()
	systray.AddSeparator()

	menuRestart := systray.AddMenuItem("Restart Camera", "Reopen the camera device")
	menuSettings := systray.AddMenuItem("Open Settings...", "Open settings in browser")
	systray.AddSeparator()

	menuQuit := systray.AddMenuItem("Quit", "Quit Mudra")

	// Handle menu item clicks in a separate goroutine
	go func() {
		for {
			select {
			case <-t.menuToggle.ClickedCh:
				t.handleToggle()
			case <-menuRestart.ClickedCh:
				t.handleRestart()
			case <-menuSettings.ClickedCh:
				t.handleSettings()
			case <-menuQuit.ClickedCh:
				t.handleQuit()
				return
			}
		}
	}()
}

// onExit is called when the system tray is about to exit.
func (t *Tray) onExit() {
}

// handleToggle handles the pause toggle menu item click.
func (t *Tray) handleToggle() {
	t.mu.Lock()
	t.paused = !t.paused
	paused := t.paused
	t.updateToggleLocked()
	callback := t.onToggle
	t.mu.Unlock()

	// Call the callback outside the lock to prevent deadlocks
	if callback != nil {
		callback(paused)
	}
}

// handleRestart handles the camera restart menu item click.
func (t *Tray) handleRestart() {
	t.mu.RLock()
	callback := t.onRestart
	t.mu.RUnlock()

	if callback != nil {
		callback()
	}
}

// handleSettings handles the settings menu item click.
func (t *Tray) handleSettings() {
	t.mu.RLock()
	callback := t.onSettings
	t.mu.RUnlock()

	if callback != nil {
		callback()
	}
}

// handleQuit handles the quit menu item click.
func (t *Tray) handleQuit() {
	t.mu.RLock()
	callback := t.onQuit
	t.mu.RUnlock()

	if callback != nil {
		callback()
	}

	systray.Quit()
}

// SetPaused reflects a pause state change made elsewhere (REST API or
// hotkey) in the menu. It does not invoke the toggle callback.
func (t *Tray) SetPaused(paused bool) {
	t.mu.Lock()
	defer t.mu.Unlock()
	t.paused = paused
	t.updateToggleLocked()
}

// updateToggleLocked refreshes the toggle menu text. Caller holds mu.
func (t *Tray) updateToggleLocked() {
	if t.menuToggle == nil {
		return
	}
	if t.paused {
		t.menuToggle.SetTitle("○ Paused")
	} else {
		t.menuToggle.SetTitle("● Active")
	}
}

// SetLastAction updates the last action display in the menu.
func (t *Tray) SetLastAction(name string) {
	t.mu.RLock()
	defer t.mu.RUnlock()

	if t.menuLastAction != nil {
		if name == "" {
			t.menuLastAction.SetTitle("Last: none")
		} else {
			t.menuLastAction.SetTitle("Last: " + name)
		}
	}
}

// Paused returns the current paused state.
func (t *Tray) Paused() bool {
	t.mu.RLock()
	defer t.mu.RUnlock()
	return t.paused
}
