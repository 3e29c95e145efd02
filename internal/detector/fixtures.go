package detector

import "time"

// Landmark fixtures for tests across the pipeline. Geometry is a rough
// right hand facing the camera in normalized coordinates, with variants
// for the two pinch pairs. All fixtures keep the index tip as the cursor
// reference point.

// OpenHandLandmarks returns a relaxed open hand. Neither pinch pair is
// closed; the index tip sits at (0.58, 0.35).
func OpenHandLandmarks() HandLandmarks {
	h := HandLandmarks{
		Handedness:    "Right",
		Score:         0.95,
		TrackingScore: 0.9,
		Timestamp:     time.Now(),
	}
	h.Points[Wrist] = Point3D{X: 0.50, Y: 0.80}

	h.Points[ThumbCMC] = Point3D{X: 0.60, Y: 0.75}
	h.Points[ThumbMCP] = Point3D{X: 0.66, Y: 0.70}
	h.Points[ThumbIP] = Point3D{X: 0.70, Y: 0.65}
	h.Points[ThumbTip] = Point3D{X: 0.73, Y: 0.60}

	h.Points[IndexMCP] = Point3D{X: 0.55, Y: 0.55}
	h.Points[IndexPIP] = Point3D{X: 0.57, Y: 0.45}
	h.Points[IndexDIP] = Point3D{X: 0.58, Y: 0.40}
	h.Points[IndexTip] = Point3D{X: 0.58, Y: 0.35}

	h.Points[MiddleMCP] = Point3D{X: 0.50, Y: 0.53}
	h.Points[MiddlePIP] = Point3D{X: 0.50, Y: 0.43}
	h.Points[MiddleDIP] = Point3D{X: 0.50, Y: 0.33}
	h.Points[MiddleTip] = Point3D{X: 0.50, Y: 0.28}

	h.Points[RingMCP] = Point3D{X: 0.45, Y: 0.55}
	h.Points[RingPIP] = Point3D{X: 0.44, Y: 0.46}
	h.Points[RingDIP] = Point3D{X: 0.44, Y: 0.38}
	h.Points[RingTip] = Point3D{X: 0.43, Y: 0.32}

	h.Points[PinkyMCP] = Point3D{X: 0.40, Y: 0.58}
	h.Points[PinkyPIP] = Point3D{X: 0.38, Y: 0.50}
	h.Points[PinkyDIP] = Point3D{X: 0.37, Y: 0.45}
	h.Points[PinkyTip] = Point3D{X: 0.36, Y: 0.40}
	return h
}

// PinchedHandLandmarks returns a hand with the thumb-index pair closed
// (distance roughly 0.014) and the thumb-middle pair open.
func PinchedHandLandmarks() HandLandmarks {
	h := OpenHandLandmarks()
	h.Points[ThumbIP] = Point3D{X: 0.60, Y: 0.42, Z: 0.01}
	h.Points[ThumbTip] = Point3D{X: 0.59, Y: 0.36}
	return h
}

// RightPinchLandmarks returns a hand with the thumb-middle pair closed
// and the thumb-index pair open.
func RightPinchLandmarks() HandLandmarks {
	h := OpenHandLandmarks()
	h.Points[IndexTip] = Point3D{X: 0.62, Y: 0.38}
	h.Points[ThumbIP] = Point3D{X: 0.54, Y: 0.35, Z: 0.01}
	h.Points[ThumbTip] = Point3D{X: 0.51, Y: 0.29}
	return h
}

// HandAt returns an open hand translated so the index tip sits at (x, y).
func HandAt(x, y float64) HandLandmarks {
	h := OpenHandLandmarks()
	return translate(h, x-h.Points[IndexTip].X, y-h.Points[IndexTip].Y)
}

// PinchedHandAt returns a thumb-index pinched hand translated so the
// index tip sits at (x, y).
func PinchedHandAt(x, y float64) HandLandmarks {
	h := PinchedHandLandmarks()
	return translate(h, x-h.Points[IndexTip].X, y-h.Points[IndexTip].Y)
}

func translate(h HandLandmarks, dx, dy float64) HandLandmarks {
	for i := range h.Points {
		h.Points[i].X += dx
		h.Points[i].Y += dy
	}
	return h
}
