package imaging

import (
	"image"
	"math"
)

// Point represents a 2D point
type Point struct {
	X int `json:"x"`
	Y int `json:"y"`
}

// Diagonal returns the Euclidean length of r's diagonal in pixels.
// It does not depend on which corner r was built from.
func Diagonal(r image.Rectangle) float64 {
	r = r.Canon()
	dx := float64(r.Dx())
	dy := float64(r.Dy())
	return math.Sqrt(dx*dx + dy*dy)
}

// NormalizeCorners orders the corners of a box so that (x1,y1) is the top-left one.
func NormalizeCorners(x1, y1, x2, y2 int) (int, int, int, int) {
	if x1 > x2 {
		x1, x2 = x2, x1
	}
	if y1 > y2 {
		y1, y2 = y2, y1
	}
	return x1, y1, x2, y2
}

// ClampRect clips r to bounds after normalizing it. A rectangle that lies
// entirely outside bounds collapses onto the nearest edge.
func ClampRect(r image.Rectangle, bounds image.Rectangle) image.Rectangle {
	r = r.Canon()
	return image.Rect(
		clampInt(r.Min.X, bounds.Min.X, bounds.Max.X),
		clampInt(r.Min.Y, bounds.Min.Y, bounds.Max.Y),
		clampInt(r.Max.X, bounds.Min.X, bounds.Max.X),
		clampInt(r.Max.Y, bounds.Min.Y, bounds.Max.Y),
	)
}

func clampInt(v, lo, hi int) int {
	if v < lo {
		return lo
	}
	if v > hi {
		return hi
	}
	return v
}
