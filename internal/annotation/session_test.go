package annotation

import (
	"fmt"
	"image"
	"image/color"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"golang.org/x/image/tiff"

	"github.com/ironsheep/spine-tools/internal/config"
	"github.com/ironsheep/spine-tools/internal/imaging"
)

// testFrames builds n in-memory 100x80 frames named t000.tif, t001.tif, ...
func testFrames(n int) []imaging.Frame {
	frames := make([]imaging.Frame, n)
	for i := range frames {
		name := fmt.Sprintf("t%03d.tif", i)
		frames[i] = imaging.Frame{Index: i, Path: "/data/" + name, Name: name, Width: 100, Height: 80}
	}
	return frames
}

func newTestSession(t *testing.T, n int) *Session {
	t.Helper()
	return NewSession(config.NewDefaultConfig(), testFrames(n))
}

func TestOpenFolder(t *testing.T) {
	dir := t.TempDir()
	for _, name := range []string{"b.tif", "a.tif", "c.tiff"} {
		img := image.NewGray16(image.Rect(0, 0, 32, 16))
		img.SetGray16(0, 0, color.Gray16{Y: 1000})
		f, err := os.Create(filepath.Join(dir, name))
		require.NoError(t, err)
		require.NoError(t, tiff.Encode(f, img, nil))
		require.NoError(t, f.Close())
	}

	s, err := OpenFolder(nil, dir)
	require.NoError(t, err)

	require.Equal(t, 3, s.FrameCount())
	names := []string{}
	for _, f := range s.Frames() {
		names = append(names, f.Name)
	}
	assert.Equal(t, []string{"a.tif", "b.tif", "c.tiff"}, names)
	assert.Equal(t, 32, s.Frames()[0].Width)
}

func TestOpenFolder_Empty(t *testing.T) {
	_, err := OpenFolder(config.NewDefaultConfig(), t.TempDir())
	assert.ErrorIs(t, err, ErrNoImagesFound)
}

func TestCreateSpine(t *testing.T) {
	s := newTestSession(t, 3)

	sp, err := s.CreateSpine("spine_1")
	require.NoError(t, err)
	assert.Equal(t, "spine_1", sp.Name)
	assert.Equal(t, "#ff0000", sp.Color)
	assert.Equal(t, "spine_1", s.ActiveSpine(), "a new spine becomes active")

	_, err = s.CreateSpine("spine_2")
	require.NoError(t, err)
	assert.Equal(t, []string{"spine_1", "spine_2"}, s.Spines())

	_, err = s.CreateSpine("spine_1")
	assert.ErrorIs(t, err, ErrDuplicateName)
	_, err = s.CreateSpine("  spine_2 ")
	assert.ErrorIs(t, err, ErrDuplicateName)
	_, err = s.CreateSpine("   ")
	assert.ErrorIs(t, err, ErrInvalidName)

	assert.Equal(t, []string{"spine_1", "spine_2"}, s.Spines(), "failed creates must not add spines")
	assert.Equal(t, "spine_2", s.ActiveSpine())
}

func TestNextSpineName(t *testing.T) {
	s := newTestSession(t, 1)
	assert.Equal(t, "spine_1", s.NextSpineName())

	_, err := s.CreateSpine("spine_2")
	require.NoError(t, err)
	assert.Equal(t, "spine_3", s.NextSpineName(), "skips names already taken")
}

func TestSetBox(t *testing.T) {
	s := newTestSession(t, 3)
	_, err := s.CreateSpine("a")
	require.NoError(t, err)

	require.NoError(t, s.SetBox("a", 1, BoundingBox{X1: 30, Y1: 40, X2: 10, Y2: 20}))

	sp, err := s.Spine("a")
	require.NoError(t, err)
	got, ok := sp.Box(1)
	require.True(t, ok)
	assert.Equal(t, BoundingBox{X1: 10, Y1: 20, X2: 30, Y2: 40}, got, "stored boxes are normalized")

	// Overwrite.
	require.NoError(t, s.SetBox("a", 1, NewBox(0, 0, 3, 4)))
	got, _ = sp.Box(1)
	assert.Equal(t, NewBox(0, 0, 3, 4), got)
	assert.Equal(t, 1, sp.Len(), "at most one box per spine and frame")
}

func TestSetBox_Errors(t *testing.T) {
	tests := []struct {
		name  string
		spine string
		frame int
		box   BoundingBox
		want  error
	}{
		{"unknown spine", "ghost", 0, NewBox(0, 0, 5, 5), ErrUnknownSpine},
		{"negative frame", "a", -1, NewBox(0, 0, 5, 5), ErrFrameOutOfRange},
		{"frame past end", "a", 3, NewBox(0, 0, 5, 5), ErrFrameOutOfRange},
		{"zero area", "a", 0, NewBox(5, 5, 5, 5), ErrInvalidBox},
		{"zero height", "a", 0, NewBox(0, 5, 10, 5), ErrInvalidBox},
		{"outside width", "a", 0, NewBox(90, 0, 101, 10), ErrInvalidBox},
		{"outside height", "a", 0, NewBox(0, 70, 10, 81), ErrInvalidBox},
		{"negative coordinate", "a", 0, NewBox(-1, 0, 10, 10), ErrInvalidBox},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			s := newTestSession(t, 3)
			_, err := s.CreateSpine("a")
			require.NoError(t, err)
			require.NoError(t, s.SetBox("a", 0, NewBox(1, 1, 9, 9)))

			err = s.SetBox(tt.spine, tt.frame, tt.box)
			assert.ErrorIs(t, err, tt.want)

			sp, _ := s.Spine("a")
			got, _ := sp.Box(0)
			assert.Equal(t, NewBox(1, 1, 9, 9), got, "failed SetBox must not modify the session")
		})
	}
}

func TestSetBox_FullFrameAllowed(t *testing.T) {
	s := newTestSession(t, 1)
	_, err := s.CreateSpine("a")
	require.NoError(t, err)
	assert.NoError(t, s.SetBox("a", 0, NewBox(0, 0, 100, 80)))
}

func TestDeleteBox(t *testing.T) {
	s := newTestSession(t, 3)
	_, err := s.CreateSpine("a")
	require.NoError(t, err)
	require.NoError(t, s.SetBox("a", 2, NewBox(1, 1, 5, 5)))

	s.DeleteBox("a", 2)
	sp, _ := s.Spine("a")
	_, ok := sp.Box(2)
	assert.False(t, ok)

	// No-ops.
	s.DeleteBox("a", 2)
	s.DeleteBox("a", 99)
	s.DeleteBox("ghost", 0)
}

func TestClampBox(t *testing.T) {
	s := newTestSession(t, 1)

	got, err := s.ClampBox(0, NewBox(-10, 50, 120, 90))
	require.NoError(t, err)
	assert.Equal(t, NewBox(0, 50, 100, 80), got)

	_, err = s.ClampBox(5, NewBox(0, 0, 1, 1))
	assert.ErrorIs(t, err, ErrFrameOutOfRange)
}

func TestNavigation(t *testing.T) {
	s := newTestSession(t, 3)
	assert.Equal(t, 0, s.CurrentFrame())

	assert.False(t, s.PrevFrame())
	assert.True(t, s.NextFrame())
	assert.True(t, s.NextFrame())
	assert.False(t, s.NextFrame(), "stops at the last frame")
	assert.Equal(t, 2, s.CurrentFrame())

	require.NoError(t, s.SetCurrentFrame(1))
	assert.Equal(t, 1, s.CurrentFrame())

	assert.ErrorIs(t, s.SetCurrentFrame(3), ErrFrameOutOfRange)
	assert.ErrorIs(t, s.SetCurrentFrame(-1), ErrFrameOutOfRange)
	assert.Equal(t, 1, s.CurrentFrame())
}

func TestNavigation_NoFrames(t *testing.T) {
	s := NewSession(nil, nil)
	assert.False(t, s.NextFrame())
	assert.False(t, s.PrevFrame())
	assert.ErrorIs(t, s.SetCurrentFrame(0), ErrFrameOutOfRange)
}

func TestSelectSpine(t *testing.T) {
	s := newTestSession(t, 1)
	_, _ = s.CreateSpine("a")
	_, _ = s.CreateSpine("b")

	require.NoError(t, s.SelectSpine("a"))
	assert.Equal(t, "a", s.ActiveSpine())

	assert.ErrorIs(t, s.SelectSpine("ghost"), ErrUnknownSpine)
	assert.Equal(t, "a", s.ActiveSpine())
}

func TestAnnotatedFrames(t *testing.T) {
	s := newTestSession(t, 5)
	_, _ = s.CreateSpine("a")
	for _, f := range []int{4, 0, 2} {
		require.NoError(t, s.SetBox("a", f, NewBox(0, 0, 2, 2)))
	}

	frames, err := s.AnnotatedFrames("a")
	require.NoError(t, err)
	assert.Equal(t, []int{0, 2, 4}, frames)

	_, err = s.AnnotatedFrames("ghost")
	assert.ErrorIs(t, err, ErrUnknownSpine)
}

func TestBoxesOnFrameAndOverlays(t *testing.T) {
	s := newTestSession(t, 2)
	_, _ = s.CreateSpine("a")
	_, _ = s.CreateSpine("b")
	_, _ = s.CreateSpine("c")
	require.NoError(t, s.SetBox("c", 0, NewBox(1, 1, 4, 4)))
	require.NoError(t, s.SetBox("a", 0, NewBox(5, 5, 9, 9)))
	require.NoError(t, s.SetBox("b", 1, NewBox(5, 5, 9, 9)))
	require.NoError(t, s.SelectSpine("c"))

	boxes := s.BoxesOnFrame(0)
	require.Len(t, boxes, 2)
	assert.Equal(t, "a", boxes[0].Spine)
	assert.Equal(t, "c", boxes[1].Spine)
	assert.False(t, boxes[0].Active)
	assert.True(t, boxes[1].Active)

	overlays := s.Overlays(0)
	require.Len(t, overlays, 2)
	assert.Equal(t, image.Rect(5, 5, 9, 9), overlays[0].Rect)
	assert.Equal(t, 1, overlays[0].Width)
	assert.Equal(t, 2, overlays[1].Width)
	assert.Equal(t, color.RGBA{255, 0, 0, 255}, overlays[0].Color)
}
