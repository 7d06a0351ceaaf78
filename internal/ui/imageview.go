package ui

import (
	"image"
	"image/color"
	"math"

	"fyne.io/fyne/v2"
	"fyne.io/fyne/v2/canvas"
	"fyne.io/fyne/v2/widget"
)

// imageView shows a frame at a zoom factor and turns a press-drag-release
// into a rectangle in image pixel coordinates.
type imageView struct {
	widget.BaseWidget

	image *canvas.Image
	band  *canvas.Rectangle

	zoom    float64
	imgSize image.Point

	dragging   bool
	start, end fyne.Position

	// OnBoxDrawn receives the dragged rectangle in image pixels. Clicks and
	// drags that cover no pixel are not reported.
	OnBoxDrawn func(image.Rectangle)
}

func newImageView() *imageView {
	v := &imageView{
		image: canvas.NewImageFromImage(nil),
		band:  canvas.NewRectangle(color.Transparent),
		zoom:  1,
	}
	v.image.FillMode = canvas.ImageFillStretch
	v.image.ScaleMode = canvas.ImageScalePixels

	v.band.StrokeColor = color.RGBA{R: 255, G: 255, B: 0, A: 255}
	v.band.StrokeWidth = 1
	v.band.Hide()

	v.ExtendBaseWidget(v)
	return v
}

// SetImage displays img, already rendered at zoom. imgSize is the size of
// the frame before zooming, which drawn boxes are mapped back onto.
func (v *imageView) SetImage(img image.Image, imgSize image.Point, zoom float64) {
	v.image.Image = img
	v.imgSize = imgSize
	v.zoom = zoom
	v.image.Refresh()
	v.Refresh()
}

// Clear removes the displayed frame.
func (v *imageView) Clear() {
	v.SetImage(nil, image.Point{}, 1)
}

func (v *imageView) contentSize() fyne.Size {
	return fyne.NewSize(float32(float64(v.imgSize.X)*v.zoom), float32(float64(v.imgSize.Y)*v.zoom))
}

// toImage maps a position on the widget to the pixel under it.
func (v *imageView) toImage(p fyne.Position) image.Point {
	return image.Pt(
		int(math.Floor(float64(p.X)/v.zoom)),
		int(math.Floor(float64(p.Y)/v.zoom)),
	)
}

// dragRect converts the press and release positions into an image
// rectangle with those pixels as its corners.
func (v *imageView) dragRect(a, b fyne.Position) image.Rectangle {
	pa, pb := v.toImage(a), v.toImage(b)
	r := image.Rectangle{Min: pa, Max: pb}.Canon()
	if r.Empty() {
		return image.Rectangle{}
	}
	return r
}

// Dragged implements fyne.Draggable.
func (v *imageView) Dragged(ev *fyne.DragEvent) {
	if v.image.Image == nil {
		return
	}
	if !v.dragging {
		v.dragging = true
		v.start = ev.Position.Subtract(ev.Dragged)
	}

	minX, maxX := ordered(v.start.X, ev.Position.X)
	minY, maxY := ordered(v.start.Y, ev.Position.Y)
	v.band.Move(fyne.NewPos(minX, minY))
	v.band.Resize(fyne.NewSize(maxX-minX, maxY-minY))
	v.band.Show()
	v.band.Refresh()

	v.end = ev.Position
}

// DragEnd implements fyne.Draggable.
func (v *imageView) DragEnd() {
	if !v.dragging {
		return
	}
	v.dragging = false
	v.band.Hide()

	r := v.dragRect(v.start, v.end)
	if r.Empty() || v.OnBoxDrawn == nil {
		return
	}
	v.OnBoxDrawn(r)
}

func ordered(a, b float32) (float32, float32) {
	if a > b {
		return b, a
	}
	return a, b
}

func (v *imageView) CreateRenderer() fyne.WidgetRenderer {
	return &imageViewRenderer{view: v, objects: []fyne.CanvasObject{v.image, v.band}}
}

type imageViewRenderer struct {
	view    *imageView
	objects []fyne.CanvasObject
}

func (r *imageViewRenderer) Layout(fyne.Size) {
	r.view.image.Move(fyne.NewPos(0, 0))
	r.view.image.Resize(r.view.contentSize())
}

func (r *imageViewRenderer) MinSize() fyne.Size { return r.view.contentSize() }

func (r *imageViewRenderer) Refresh() {
	r.Layout(r.view.Size())
	canvas.Refresh(r.view.image)
	canvas.Refresh(r.view.band)
}

func (r *imageViewRenderer) Objects() []fyne.CanvasObject { return r.objects }

func (r *imageViewRenderer) Destroy() {}
