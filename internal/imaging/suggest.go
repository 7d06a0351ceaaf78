package imaging

import (
	"errors"
	"fmt"
	"image"
	"image/color"

	"github.com/anthonynsimon/bild/blur"
)

// ErrRegionTooLarge is returned by SuggestBox when the grown region exceeds
// the area limit, usually because the seed sits on background.
var ErrRegionTooLarge = errors.New("region too large")

// SuggestOptions tunes SuggestBox.
type SuggestOptions struct {
	// Tolerance is the largest gray level difference from the seed pixel
	// that still joins the region. Zero means 40.
	Tolerance uint8
	// Blur is the Gaussian radius applied before growing. Zero disables it.
	Blur float64
	// MaxArea caps the region size in pixels. Zero means a quarter of the image.
	MaxArea int
	// Pad grows the resulting box on every side, clipped to the image.
	Pad int
}

// SuggestBox grows a region of similar brightness around seed and returns
// its bounding box. It is a starting point for a spine box on a bright
// spine against a dark background, not a segmentation.
//
// The region is 8-connected and grown with an explicit stack.
func SuggestBox(img image.Image, seed image.Point, opts SuggestOptions) (image.Rectangle, error) {
	bounds := img.Bounds()
	if !seed.In(bounds) {
		return image.Rectangle{}, fmt.Errorf("seed %v outside image %v", seed, bounds)
	}
	if opts.Tolerance == 0 {
		opts.Tolerance = 40
	}
	if opts.MaxArea <= 0 {
		opts.MaxArea = bounds.Dx() * bounds.Dy() / 4
	}

	src := img
	if opts.Blur > 0 {
		src = blur.Gaussian(img, opts.Blur)
		// bild returns an image anchored at the origin.
		seed = seed.Sub(bounds.Min)
		bounds = src.Bounds()
		seed = seed.Add(bounds.Min)
	}

	width, height := bounds.Dx(), bounds.Dy()
	gray := make([]uint8, width*height)
	for y := 0; y < height; y++ {
		for x := 0; x < width; x++ {
			g := color.GrayModel.Convert(src.At(bounds.Min.X+x, bounds.Min.Y+y)).(color.Gray)
			gray[y*width+x] = g.Y
		}
	}

	sx, sy := seed.X-bounds.Min.X, seed.Y-bounds.Min.Y
	ref := int(gray[sy*width+sx])
	tol := int(opts.Tolerance)

	visited := make([]bool, width*height)
	region := image.Rect(sx, sy, sx+1, sy+1)
	area := 0
	stack := []image.Point{{X: sx, Y: sy}}

	for len(stack) > 0 {
		p := stack[len(stack)-1]
		stack = stack[:len(stack)-1]

		if p.X < 0 || p.X >= width || p.Y < 0 || p.Y >= height {
			continue
		}
		i := p.Y*width + p.X
		if visited[i] {
			continue
		}
		visited[i] = true
		if d := int(gray[i]) - ref; d > tol || d < -tol {
			continue
		}

		area++
		if area > opts.MaxArea {
			return image.Rectangle{}, fmt.Errorf("%w: more than %d pixels", ErrRegionTooLarge, opts.MaxArea)
		}
		region = region.Union(image.Rect(p.X, p.Y, p.X+1, p.Y+1))

		for dy := -1; dy <= 1; dy++ {
			for dx := -1; dx <= 1; dx++ {
				if dx != 0 || dy != 0 {
					stack = append(stack, image.Point{X: p.X + dx, Y: p.Y + dy})
				}
			}
		}
	}

	region = region.Add(img.Bounds().Min).Inset(-opts.Pad)
	return region.Intersect(img.Bounds()), nil
}
