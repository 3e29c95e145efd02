package cursor

// Zone identifies one cell of the 3x3 grid over normalized frame space.
// Zones feed the status surface so clients can show where the hand is
// without streaming full landmark sets.
type Zone int

const (
	ZoneTopLeft Zone = iota
	ZoneTopCenter
	ZoneTopRight
	ZoneMiddleLeft
	ZoneCenter
	ZoneMiddleRight
	ZoneBottomLeft
	ZoneBottomCenter
	ZoneBottomRight
)

var zoneNames = [...]string{
	"top-left", "top-center", "top-right",
	"middle-left", "center", "middle-right",
	"bottom-left", "bottom-center", "bottom-right",
}

// String returns the zone name used on the status feed.
func (z Zone) String() string {
	if z < 0 || int(z) >= len(zoneNames) {
		return "unknown"
	}
	return zoneNames[z]
}

// ZoneOf returns the grid cell containing the normalized point.
// Out-of-range coordinates clamp to the nearest cell.
func ZoneOf(x, y float64) Zone {
	return Zone(cell(y)*3 + cell(x))
}

func cell(v float64) int {
	switch {
	case v < 1.0/3:
		return 0
	case v < 2.0/3:
		return 1
	default:
		return 2
	}
}

// EdgeProximity returns the normalized distance from the point to the
// nearest frame edge: 0 at an edge, 0.5 at dead center. Useful for
// warning the user before the hand leaves the camera's view.
func EdgeProximity(x, y float64) float64 {
	d := x
	if 1-x < d {
		d = 1 - x
	}
	if y < d {
		d = y
	}
	if 1-y < d {
		d = 1 - y
	}
	if d < 0 {
		return 0
	}
	return d
}
