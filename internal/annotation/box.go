package annotation

import (
	"encoding/json"
	"fmt"
	"image"

	"github.com/ironsheep/spine-tools/internal/imaging"
)

// BoundingBox is a spine's box on one frame, in pixel coordinates.
//
// Boxes built with NewBox or BoxFromRect are normalized: X1 <= X2 and
// Y1 <= Y2. The zero value is an empty box at the origin.
type BoundingBox struct {
	X1 int `json:"x1"`
	Y1 int `json:"y1"`
	X2 int `json:"x2"`
	Y2 int `json:"y2"`
}

// NewBox builds a normalized box from any two opposite corners.
func NewBox(x1, y1, x2, y2 int) BoundingBox {
	x1, y1, x2, y2 = imaging.NormalizeCorners(x1, y1, x2, y2)
	return BoundingBox{X1: x1, Y1: y1, X2: x2, Y2: y2}
}

// BoxFromRect converts an image rectangle into a normalized box.
func BoxFromRect(r image.Rectangle) BoundingBox {
	r = r.Canon()
	return BoundingBox{X1: r.Min.X, Y1: r.Min.Y, X2: r.Max.X, Y2: r.Max.Y}
}

// Normalize returns b with its corners ordered.
func (b BoundingBox) Normalize() BoundingBox {
	return NewBox(b.X1, b.Y1, b.X2, b.Y2)
}

// Rect returns b as a canonical image rectangle.
func (b BoundingBox) Rect() image.Rectangle {
	return image.Rect(b.X1, b.Y1, b.X2, b.Y2)
}

// Area is the box area in square pixels.
func (b BoundingBox) Area() int {
	r := b.Rect()
	return r.Dx() * r.Dy()
}

// LengthPx is the box diagonal in pixels.
func (b BoundingBox) LengthPx() float64 {
	return imaging.Diagonal(b.Rect())
}

// LengthUm is the box diagonal converted to microns.
func (b BoundingBox) LengthUm(pixelToMicron float64) float64 {
	return b.LengthPx() * pixelToMicron
}

func (b BoundingBox) String() string {
	return fmt.Sprintf("(%d,%d)-(%d,%d)", b.X1, b.Y1, b.X2, b.Y2)
}

// validate checks b against the frame it is placed on. Frames with unknown
// dimensions only get the area check.
func (b BoundingBox) validate(frame imaging.Frame) error {
	if b.Area() <= 0 {
		return fmt.Errorf("%w: %s has no area", ErrInvalidBox, b)
	}
	if frame.Width > 0 && frame.Height > 0 && !b.Rect().In(frame.Bounds()) {
		return fmt.Errorf("%w: %s lies outside frame %s (%dx%d)",
			ErrInvalidBox, b, frame.Name, frame.Width, frame.Height)
	}
	return nil
}

// UnmarshalJSON accepts both the object form {"x1":..,"y1":..,"x2":..,"y2":..}
// and the four-element array form [x1, y1, x2, y2] written by older files.
func (b *BoundingBox) UnmarshalJSON(data []byte) error {
	var arr []int
	if err := json.Unmarshal(data, &arr); err == nil {
		if len(arr) != 4 {
			return fmt.Errorf("box array must have 4 elements, got %d", len(arr))
		}
		*b = NewBox(arr[0], arr[1], arr[2], arr[3])
		return nil
	}

	type plain BoundingBox
	var p plain
	if err := json.Unmarshal(data, &p); err != nil {
		return err
	}
	*b = BoundingBox(p).Normalize()
	return nil
}
