package ui

import (
	"image"
	"testing"

	"fyne.io/fyne/v2"
	"fyne.io/fyne/v2/test"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func drag(v *imageView, from, to fyne.Position) {
	mid := fyne.NewPos((from.X+to.X)/2, (from.Y+to.Y)/2)
	v.Dragged(&fyne.DragEvent{
		PointEvent: fyne.PointEvent{Position: mid},
		Dragged:    fyne.NewDelta(mid.X-from.X, mid.Y-from.Y),
	})
	v.Dragged(&fyne.DragEvent{
		PointEvent: fyne.PointEvent{Position: to},
		Dragged:    fyne.NewDelta(to.X-mid.X, to.Y-mid.Y),
	})
	v.DragEnd()
}

func TestImageView_Drag(t *testing.T) {
	test.NewTempApp(t)

	v := newImageView()
	v.SetImage(image.NewRGBA(image.Rect(0, 0, 120, 100)), image.Pt(60, 50), 2)
	assert.Equal(t, fyne.NewSize(120, 100), v.MinSize())

	var got []image.Rectangle
	v.OnBoxDrawn = func(r image.Rectangle) { got = append(got, r) }

	drag(v, fyne.NewPos(40, 10), fyne.NewPos(10, 41))
	require.Len(t, got, 1)
	assert.Equal(t, image.Rect(5, 5, 20, 20), got[0], "corners are normalized and unzoomed")
	assert.False(t, v.band.Visible(), "rubber band hides on release")

	// Less than a pixel at this zoom.
	drag(v, fyne.NewPos(10, 10), fyne.NewPos(11, 11))
	assert.Len(t, got, 1)
}

func TestImageView_NoImage(t *testing.T) {
	test.NewTempApp(t)

	v := newImageView()
	called := false
	v.OnBoxDrawn = func(image.Rectangle) { called = true }

	drag(v, fyne.NewPos(0, 0), fyne.NewPos(30, 30))
	assert.False(t, called)
}

func TestImageView_ToImage(t *testing.T) {
	v := &imageView{zoom: 0.5}
	assert.Equal(t, image.Pt(20, 7), v.toImage(fyne.NewPos(10, 3.9)))

	v.zoom = 1.2
	assert.Equal(t, image.Pt(0, 10), v.toImage(fyne.NewPos(1.1, 12.5)))
}
