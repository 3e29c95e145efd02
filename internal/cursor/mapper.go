// Package cursor maps normalized hand positions from camera space onto
// absolute screen pixels, applying inversion, dead-zone filtering,
// sensitivity scaling and output smoothing.
package cursor

import "math"

// Config holds the mapping parameters. Screen dimensions are resolved
// by the caller (autodetected or configured) before the mapper is built.
type Config struct {
	ScreenW int
	ScreenH int

	// Sensitivity scales per-update movement deltas. 1.0 maps movement
	// one to one, above amplifies, below dampens.
	Sensitivity float64

	// DeadZone is the normalized displacement under which movement is
	// treated as jitter and the cursor holds position.
	DeadZone float64

	// InvertX mirrors the horizontal axis. On for a user-facing camera,
	// so moving the hand right moves the cursor right.
	InvertX bool
	// InvertY mirrors the vertical axis.
	InvertY bool

	// MarginPx keeps the mapped pixel away from the screen edges.
	MarginPx int

	// Smoothing is the weight of the previous output position in the
	// final pixel, 0 disables the output filter.
	Smoothing float64
}

// Mapper converts normalized points into screen pixels. It keeps the
// previous output and a dead-zone anchor between calls, so one mapper
// serves exactly one pointer. Driven from a single goroutine.
type Mapper struct {
	cfg     Config
	hasPrev bool
	prevX   float64
	prevY   float64
	anchorX float64
	anchorY float64
}

// NewMapper returns a mapper with no position history.
func NewMapper(cfg Config) *Mapper {
	return &Mapper{cfg: cfg}
}

// SetConfig swaps the mapping parameters, keeping position history so
// the cursor does not jump on a settings change.
func (m *Mapper) SetConfig(cfg Config) {
	m.cfg = cfg
}

// Reset forgets the position history. The next Map call places the
// cursor absolutely, with no delta scaling or smoothing against the
// stale position.
func (m *Mapper) Reset() {
	m.hasPrev = false
}

// Map runs the full mapping pipeline on one normalized point:
// axis inversion, dead-zone hold, absolute projection, sensitivity on
// the movement delta, margin clamp, then output smoothing.
func (m *Mapper) Map(nx, ny float64) (int, int) {
	if m.cfg.InvertX {
		nx = 1 - nx
	}
	if m.cfg.InvertY {
		ny = 1 - ny
	}

	if m.hasPrev {
		// Jitter filter: displacement under the dead zone on both axes
		// holds the previous pixel. The anchor only advances on real
		// movement, so slow drift still accumulates its way out of the
		// zone instead of being suppressed forever.
		if math.Abs(nx-m.anchorX) < m.cfg.DeadZone && math.Abs(ny-m.anchorY) < m.cfg.DeadZone {
			return m.rounded()
		}
	}
	m.anchorX, m.anchorY = nx, ny

	tx := nx * float64(m.cfg.ScreenW)
	ty := ny * float64(m.cfg.ScreenH)

	if m.hasPrev && m.cfg.Sensitivity > 0 {
		tx = m.prevX + (tx-m.prevX)*m.cfg.Sensitivity
		ty = m.prevY + (ty-m.prevY)*m.cfg.Sensitivity
	}

	margin := float64(m.cfg.MarginPx)
	tx = clamp(tx, margin, float64(m.cfg.ScreenW)-margin)
	ty = clamp(ty, margin, float64(m.cfg.ScreenH)-margin)

	if m.hasPrev && m.cfg.Smoothing > 0 {
		s := m.cfg.Smoothing
		tx = m.prevX*s + tx*(1-s)
		ty = m.prevY*s + ty*(1-s)
	}

	m.prevX, m.prevY = tx, ty
	m.hasPrev = true
	return m.rounded()
}

func (m *Mapper) rounded() (int, int) {
	return int(math.Round(m.prevX)), int(math.Round(m.prevY))
}

func clamp(v, lo, hi float64) float64 {
	if v < lo {
		return lo
	}
	if v > hi {
		return hi
	}
	return v
}
