// Package config defines the TOML configuration file, its defaults and
// validation, and hot reloading of edits made while the engine runs.
package config

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"time"

	"github.com/BurntSushi/toml"
)

// ErrInvalidConfig is wrapped by every validation failure.
var ErrInvalidConfig = errors.New("invalid config")

// Config is the full configuration file.
type Config struct {
	Camera   Camera   `toml:"camera" json:"camera"`
	Tracking Tracking `toml:"tracking" json:"tracking"`
	Gestures Gestures `toml:"gestures" json:"gestures"`
	Cursor   Cursor   `toml:"cursor" json:"cursor"`
	Actions  Actions  `toml:"actions" json:"actions"`
	System   System   `toml:"system" json:"system"`
}

// Camera configures the capture device and its lifecycle.
type Camera struct {
	DeviceIndex       int     `toml:"device_index" json:"device_index"`
	Width             int     `toml:"width" json:"width"`
	Height            int     `toml:"height" json:"height"`
	Fps               int     `toml:"fps" json:"fps"`
	AutoReconnect     bool    `toml:"auto_reconnect" json:"auto_reconnect"`
	ReconnectDelaySec float64 `toml:"reconnect_delay_sec" json:"reconnect_delay_sec"`
	WarmupFrames      int     `toml:"warmup_frames" json:"warmup_frames"`
}

// Tracking configures hand detection and landmark smoothing.
type Tracking struct {
	MaxHands               int     `toml:"max_hands" json:"max_hands"`
	MinDetectionConfidence float64 `toml:"min_detection_confidence" json:"min_detection_confidence"`
	MinTrackingConfidence  float64 `toml:"min_tracking_confidence" json:"min_tracking_confidence"`
	SmoothingFactor        float64 `toml:"smoothing_factor" json:"smoothing_factor"`
	MaxGapFrames           int     `toml:"max_gap_frames" json:"max_gap_frames"`
}

// Gestures configures pinch classification timing.
type Gestures struct {
	PinchThreshold    float64 `toml:"pinch_threshold" json:"pinch_threshold"`
	DebounceMs        int     `toml:"debounce_ms" json:"debounce_ms"`
	HoldTimeMs        int     `toml:"hold_time_ms" json:"hold_time_ms"`
	ClickReleaseMs    int     `toml:"click_release_ms" json:"click_release_ms"`
	VelocityThreshold float64 `toml:"velocity_threshold" json:"velocity_threshold"`
	DoubleClickFactor int     `toml:"double_click_factor" json:"double_click_factor"`
}

// Cursor configures hand-to-screen coordinate mapping. Zero screen
// dimensions mean autodetect from the OS at startup.
type Cursor struct {
	ScreenWidth  int     `toml:"screen_width" json:"screen_width"`
	ScreenHeight int     `toml:"screen_height" json:"screen_height"`
	Sensitivity  float64 `toml:"sensitivity" json:"sensitivity"`
	DeadZone     float64 `toml:"dead_zone" json:"dead_zone"`
	InvertX      bool    `toml:"invert_x" json:"invert_x"`
	InvertY      bool    `toml:"invert_y" json:"invert_y"`
	MarginPx     int     `toml:"margin_px" json:"margin_px"`
	Smoothing    float64 `toml:"smoothing" json:"smoothing"`
}

// Actions configures OS input dispatch.
type Actions struct {
	EnableMouse     bool `toml:"enable_mouse" json:"enable_mouse"`
	EnableKeyboard  bool `toml:"enable_keyboard" json:"enable_keyboard"`
	MoveDurationMs  int  `toml:"move_duration_ms" json:"move_duration_ms"`
	ClickIntervalMs int  `toml:"click_interval_ms" json:"click_interval_ms"`
	ScrollAmount    int  `toml:"scroll_amount" json:"scroll_amount"`
	SafeMode        bool `toml:"safe_mode" json:"safe_mode"`
}

// System configures the run loop and the control surface.
type System struct {
	IdleFps           int    `toml:"idle_fps" json:"idle_fps"`
	ActiveFps         int    `toml:"active_fps" json:"active_fps"`
	IdleTimeoutFrames int    `toml:"idle_timeout_frames" json:"idle_timeout_frames"`
	Port              int    `toml:"port" json:"port"`
	DataDir           string `toml:"data_dir" json:"data_dir"`
}

// Default returns the stock configuration.
func Default() *Config {
	return &Config{
		Camera: Camera{
			DeviceIndex:       0,
			Width:             1280,
			Height:            720,
			Fps:               30,
			AutoReconnect:     true,
			ReconnectDelaySec: 2.0,
			WarmupFrames:      10,
		},
		Tracking: Tracking{
			MaxHands:               1,
			MinDetectionConfidence: 0.7,
			MinTrackingConfidence:  0.5,
			SmoothingFactor:        0.4,
			MaxGapFrames:           5,
		},
		Gestures: Gestures{
			PinchThreshold:    0.05,
			DebounceMs:        200,
			HoldTimeMs:        300,
			ClickReleaseMs:    200,
			VelocityThreshold: 0.01,
			DoubleClickFactor: 2,
		},
		Cursor: Cursor{
			ScreenWidth:  0,
			ScreenHeight: 0,
			Sensitivity:  1.0,
			DeadZone:     0.02,
			InvertX:      true,
			InvertY:      false,
			MarginPx:     10,
			Smoothing:    0.0,
		},
		Actions: Actions{
			EnableMouse:     true,
			EnableKeyboard:  true,
			MoveDurationMs:  0,
			ClickIntervalMs: 100,
			ScrollAmount:    3,
			SafeMode:        true,
		},
		System: System{
			IdleFps:           5,
			ActiveFps:         30,
			IdleTimeoutFrames: 30,
			Port:              8765,
			DataDir:           "",
		},
	}
}

// Validate checks every parameter against its allowed range. The first
// violation is returned wrapped in ErrInvalidConfig.
func (c *Config) Validate() error {
	checks := []struct {
		ok   bool
		what string
	}{
		{c.Camera.DeviceIndex >= 0 && c.Camera.DeviceIndex <= 10, "camera.device_index must be 0-10"},
		{c.Camera.Width > 0 && c.Camera.Height > 0, "camera resolution must be positive"},
		{c.Camera.Fps >= 1 && c.Camera.Fps <= 120, "camera.fps must be 1-120"},
		{c.Camera.ReconnectDelaySec >= 0.1 && c.Camera.ReconnectDelaySec <= 30, "camera.reconnect_delay_sec must be 0.1-30"},
		{c.Camera.WarmupFrames >= 0 && c.Camera.WarmupFrames <= 100, "camera.warmup_frames must be 0-100"},

		{c.Tracking.MaxHands >= 1 && c.Tracking.MaxHands <= 2, "tracking.max_hands must be 1-2"},
		{c.Tracking.MinDetectionConfidence >= 0.1 && c.Tracking.MinDetectionConfidence <= 1.0, "tracking.min_detection_confidence must be 0.1-1.0"},
		{c.Tracking.MinTrackingConfidence >= 0.1 && c.Tracking.MinTrackingConfidence <= 1.0, "tracking.min_tracking_confidence must be 0.1-1.0"},
		{c.Tracking.SmoothingFactor >= 0.1 && c.Tracking.SmoothingFactor <= 1.0, "tracking.smoothing_factor must be 0.1-1.0"},
		{c.Tracking.MaxGapFrames >= 1 && c.Tracking.MaxGapFrames <= 60, "tracking.max_gap_frames must be 1-60"},

		{c.Gestures.PinchThreshold >= 0.01 && c.Gestures.PinchThreshold <= 0.2, "gestures.pinch_threshold must be 0.01-0.2"},
		{c.Gestures.DebounceMs >= 50 && c.Gestures.DebounceMs <= 1000, "gestures.debounce_ms must be 50-1000"},
		{c.Gestures.HoldTimeMs >= 100 && c.Gestures.HoldTimeMs <= 2000, "gestures.hold_time_ms must be 100-2000"},
		{c.Gestures.ClickReleaseMs >= 50 && c.Gestures.ClickReleaseMs <= 1000, "gestures.click_release_ms must be 50-1000"},
		{c.Gestures.VelocityThreshold >= 0.001 && c.Gestures.VelocityThreshold <= 0.1, "gestures.velocity_threshold must be 0.001-0.1"},
		{c.Gestures.DoubleClickFactor >= 1 && c.Gestures.DoubleClickFactor <= 10, "gestures.double_click_factor must be 1-10"},

		{c.Cursor.ScreenWidth >= 0, "cursor.screen_width must be >= 0"},
		{c.Cursor.ScreenHeight >= 0, "cursor.screen_height must be >= 0"},
		{c.Cursor.Sensitivity >= 0.1 && c.Cursor.Sensitivity <= 5.0, "cursor.sensitivity must be 0.1-5.0"},
		{c.Cursor.DeadZone >= 0 && c.Cursor.DeadZone <= 0.2, "cursor.dead_zone must be 0-0.2"},
		{c.Cursor.MarginPx >= 0 && c.Cursor.MarginPx <= 100, "cursor.margin_px must be 0-100"},
		{c.Cursor.Smoothing >= 0 && c.Cursor.Smoothing <= 0.95, "cursor.smoothing must be 0-0.95"},

		{c.Actions.MoveDurationMs >= 0 && c.Actions.MoveDurationMs <= 1000, "actions.move_duration_ms must be 0-1000"},
		{c.Actions.ClickIntervalMs == 0 || (c.Actions.ClickIntervalMs >= 10 && c.Actions.ClickIntervalMs <= 2000), "actions.click_interval_ms must be 0 or 10-2000"},
		{c.Actions.ScrollAmount >= 1 && c.Actions.ScrollAmount <= 20, "actions.scroll_amount must be 1-20"},

		{c.System.IdleFps >= 1 && c.System.IdleFps <= 120, "system.idle_fps must be 1-120"},
		{c.System.ActiveFps >= 1 && c.System.ActiveFps <= 120, "system.active_fps must be 1-120"},
		{c.System.IdleFps <= c.System.ActiveFps, "system.idle_fps must not exceed active_fps"},
		{c.System.IdleTimeoutFrames >= 1 && c.System.IdleTimeoutFrames <= 1000, "system.idle_timeout_frames must be 1-1000"},
		{c.System.Port >= 1024 && c.System.Port <= 65535, "system.port must be 1024-65535"},
	}

	for _, check := range checks {
		if !check.ok {
			return fmt.Errorf("%w: %s", ErrInvalidConfig, check.what)
		}
	}
	return nil
}

// Duration helpers for the millisecond fields.

// Debounce returns the click debounce as a duration.
func (g Gestures) Debounce() time.Duration {
	return time.Duration(g.DebounceMs) * time.Millisecond
}

// HoldTime returns the drag hold time as a duration.
func (g Gestures) HoldTime() time.Duration {
	return time.Duration(g.HoldTimeMs) * time.Millisecond
}

// ClickRelease returns the quick-tap release window as a duration.
func (g Gestures) ClickRelease() time.Duration {
	return time.Duration(g.ClickReleaseMs) * time.Millisecond
}

// DoubleClickWindow returns the coalescing window: the click debounce
// scaled by the double-click factor.
func (g Gestures) DoubleClickWindow() time.Duration {
	return time.Duration(g.DebounceMs*g.DoubleClickFactor) * time.Millisecond
}

// ReconnectDelay returns the reopen pause as a duration.
func (c Camera) ReconnectDelay() time.Duration {
	return time.Duration(c.ReconnectDelaySec * float64(time.Second))
}

// MoveDuration returns the pointer glide duration.
func (a Actions) MoveDuration() time.Duration {
	return time.Duration(a.MoveDurationMs) * time.Millisecond
}

// ClickInterval returns the minimum click spacing as a duration.
func (a Actions) ClickInterval() time.Duration {
	return time.Duration(a.ClickIntervalMs) * time.Millisecond
}

// Load reads and validates the config file. A missing file is created
// with defaults; an unreadable or invalid one is an error.
func Load(path string) (*Config, error) {
	data, err := os.ReadFile(path)
	if os.IsNotExist(err) {
		cfg := Default()
		if err := Save(path, cfg); err != nil {
			return nil, fmt.Errorf("write default config: %w", err)
		}
		return cfg, nil
	}
	if err != nil {
		return nil, fmt.Errorf("read config: %w", err)
	}

	cfg := Default()
	if err := toml.Unmarshal(data, cfg); err != nil {
		return nil, fmt.Errorf("%w: %v", ErrInvalidConfig, err)
	}
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

// Save writes the config as TOML, creating parent directories as needed.
func Save(path string, cfg *Config) error {
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return fmt.Errorf("create config dir: %w", err)
	}

	f, err := os.Create(path)
	if err != nil {
		return fmt.Errorf("create config: %w", err)
	}
	defer f.Close()

	if err := toml.NewEncoder(f).Encode(cfg); err != nil {
		return fmt.Errorf("encode config: %w", err)
	}
	return nil
}
