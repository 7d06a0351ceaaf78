package imaging

import (
	"image"
	"image/color"

	"github.com/anthonynsimon/bild/clone"
	"github.com/disintegration/imaging"
	"golang.org/x/image/font"
	"golang.org/x/image/font/basicfont"
	"golang.org/x/image/math/fixed"
)

// Zoom limits and step used by the annotation view.
const (
	MinZoom  = 0.1
	MaxZoom  = 10.0
	ZoomStep = 1.2
)

// Overlay is one labelled box to draw on a frame.
type Overlay struct {
	Label string
	Rect  image.Rectangle
	Color color.Color

	// Width is the outline thickness in pixels; 0 means 1.
	Width int
}

// RenderOverlay returns a copy of img with every overlay drawn on it as a
// rectangle outline and a name label above its top-left corner.
//
// Outlines and labels are clipped to the image; img itself is not modified.
func RenderOverlay(img image.Image, overlays []Overlay) *image.RGBA {
	canvas := clone.AsRGBA(img)
	for _, o := range overlays {
		w := o.Width
		if w <= 0 {
			w = 1
		}
		drawOutline(canvas, o.Rect.Canon(), w, o.Color)
		if o.Label != "" {
			drawLabel(canvas, o.Rect.Canon(), o.Label, o.Color)
		}
	}
	return canvas
}

func drawOutline(img *image.RGBA, r image.Rectangle, width int, c color.Color) {
	for i := 0; i < width; i++ {
		x1, y1 := r.Min.X+i, r.Min.Y+i
		x2, y2 := r.Max.X-i, r.Max.Y-i
		if x1 > x2 || y1 > y2 {
			return
		}
		for x := x1; x <= x2; x++ {
			setClipped(img, x, y1, c)
			setClipped(img, x, y2, c)
		}
		for y := y1; y <= y2; y++ {
			setClipped(img, x1, y, c)
			setClipped(img, x2, y, c)
		}
	}
}

func setClipped(img *image.RGBA, x, y int, c color.Color) {
	if (image.Point{X: x, Y: y}).In(img.Bounds()) {
		img.Set(x, y, c)
	}
}

// drawLabel writes text just above r, or just inside it when r touches the
// top edge of the image.
func drawLabel(img *image.RGBA, r image.Rectangle, text string, c color.Color) {
	face := basicfont.Face7x13
	baseline := r.Min.Y - 3
	if baseline-face.Ascent < img.Bounds().Min.Y {
		baseline = r.Min.Y + face.Ascent + 1
	}

	d := &font.Drawer{
		Dst:  img,
		Src:  image.NewUniform(c),
		Face: face,
		Dot:  fixed.P(r.Min.X, baseline),
	}
	d.DrawString(text)
}

// ClampZoom bounds a zoom factor to [MinZoom, MaxZoom].
func ClampZoom(factor float64) float64 {
	if factor < MinZoom {
		return MinZoom
	}
	if factor > MaxZoom {
		return MaxZoom
	}
	return factor
}

// ZoomIn and ZoomOut step a zoom factor by ZoomStep within the limits.
func ZoomIn(factor float64) float64  { return ClampZoom(factor * ZoomStep) }
func ZoomOut(factor float64) float64 { return ClampZoom(factor / ZoomStep) }

// Zoom resamples img by factor with a Lanczos filter.
func Zoom(img image.Image, factor float64) image.Image {
	factor = ClampZoom(factor)
	if factor == 1 {
		return img
	}
	b := img.Bounds()
	w := int(float64(b.Dx()) * factor)
	h := int(float64(b.Dy()) * factor)
	if w < 1 {
		w = 1
	}
	if h < 1 {
		h = 1
	}
	return imaging.Resize(img, w, h, imaging.Lanczos)
}
