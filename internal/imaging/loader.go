package imaging

import (
	"errors"
	"fmt"
	"image"
	_ "image/png" // Register PNG format decoder
	"os"
	"path/filepath"
	"sort"
	"strings"
	"sync"

	"github.com/anthonynsimon/bild/adjust"
	"github.com/anthonynsimon/bild/clone"
	_ "golang.org/x/image/tiff" // Register TIFF format decoder
)

// ErrNoImagesFound is returned when a folder is missing or holds no files
// with an accepted extension.
var ErrNoImagesFound = errors.New("no images found")

// Frame is one image of the time-ordered sequence.
//
// Frames are immutable once loaded. Index is the 0-based position in the
// filename sort order of the folder.
type Frame struct {
	// Index is the 0-based position in the sequence.
	Index int `json:"index"`

	// Path is the full path to the image file.
	Path string `json:"path"`

	// Name is the base file name, used as the frame label in exports.
	Name string `json:"name"`

	// Width is the image width in pixels.
	Width int `json:"width"`

	// Height is the image height in pixels.
	Height int `json:"height"`
}

// Bounds returns the frame's pixel rectangle, (0,0)-(Width,Height).
func (f Frame) Bounds() image.Rectangle {
	return image.Rect(0, 0, f.Width, f.Height)
}

// LoadFolder enumerates the images in dir whose extension is in exts and
// returns them as frames sorted by filename.
//
// Only the image header is read for each file, so loading a long sequence
// is cheap; pixels are decoded later through a FrameCache.
//
// # Errors
//
//   - ErrNoImagesFound if dir does not exist, is not a directory, or has no
//     matching files
//   - a wrapped decode error if a matching file has an unreadable header
func LoadFolder(dir string, exts []string) ([]Frame, error) {
	entries, err := os.ReadDir(dir)
	if err != nil {
		if errors.Is(err, os.ErrNotExist) {
			return nil, fmt.Errorf("%w: folder %s does not exist", ErrNoImagesFound, dir)
		}
		return nil, fmt.Errorf("%w: cannot read folder %s: %v", ErrNoImagesFound, dir, err)
	}

	var names []string
	for _, e := range entries {
		if e.IsDir() || !matchExtension(e.Name(), exts) {
			continue
		}
		names = append(names, e.Name())
	}
	if len(names) == 0 {
		return nil, fmt.Errorf("%w: no %s files in %s", ErrNoImagesFound, strings.Join(exts, "/"), dir)
	}
	sort.Strings(names)

	frames := make([]Frame, 0, len(names))
	for i, name := range names {
		path := filepath.Join(dir, name)
		w, h, err := readDimensions(path)
		if err != nil {
			return nil, fmt.Errorf("failed to read frame %s: %w", name, err)
		}
		frames = append(frames, Frame{
			Index:  i,
			Path:   path,
			Name:   name,
			Width:  w,
			Height: h,
		})
	}
	return frames, nil
}

func matchExtension(name string, exts []string) bool {
	ext := strings.ToLower(filepath.Ext(name))
	if ext == "" {
		return false
	}
	for _, e := range exts {
		if strings.ToLower(e) == ext {
			return true
		}
	}
	return false
}

func readDimensions(path string) (int, int, error) {
	f, err := os.Open(path)
	if err != nil {
		return 0, 0, fmt.Errorf("failed to open image: %w", err)
	}
	defer f.Close()

	cfg, _, err := image.DecodeConfig(f)
	if err != nil {
		return 0, 0, fmt.Errorf("failed to decode image header: %w", err)
	}
	return cfg.Width, cfg.Height, nil
}

// FrameCache keeps decoded, display-ready frames keyed by path.
//
// Microscopy frames are usually 16-bit grayscale; Load stretches them to
// 8 bits and converts them to RGBA once, so redraws while annotating do not
// touch the disk.
//
// FrameCache is safe for concurrent use, which lets the UI prefetch the
// neighbouring frames in the background.
type FrameCache struct {
	mu     sync.RWMutex
	gamma  float64
	images map[string]*image.RGBA
}

// NewFrameCache creates an empty cache. Frames are gamma-corrected on load
// unless gamma is 1.
func NewFrameCache(gamma float64) *FrameCache {
	if gamma <= 0 {
		gamma = 1
	}
	return &FrameCache{
		gamma:  gamma,
		images: make(map[string]*image.RGBA),
	}
}

// Load returns the display image for path, decoding it on first use.
func (c *FrameCache) Load(path string) (*image.RGBA, error) {
	c.mu.RLock()
	if img, ok := c.images[path]; ok {
		c.mu.RUnlock()
		return img, nil
	}
	c.mu.RUnlock()

	img, err := DecodeDisplay(path, c.gamma)
	if err != nil {
		return nil, err
	}

	c.mu.Lock()
	c.images[path] = img
	c.mu.Unlock()

	return img, nil
}

// Len reports the number of cached frames.
func (c *FrameCache) Len() int {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return len(c.images)
}

// Clear drops every cached frame. Call it when a new folder is loaded.
func (c *FrameCache) Clear() {
	c.mu.Lock()
	c.images = make(map[string]*image.RGBA)
	c.mu.Unlock()
}

// Evict removes a single frame from the cache.
func (c *FrameCache) Evict(path string) {
	c.mu.Lock()
	delete(c.images, path)
	c.mu.Unlock()
}

// DecodeDisplay decodes the image at path and prepares it for display.
//
// Only the first page of a multi-page TIFF is read. Images deeper than 8 bits
// per sample are min-max stretched to the full 8-bit range; a flat image
// becomes black.
func DecodeDisplay(path string, gamma float64) (*image.RGBA, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("failed to open image: %w", err)
	}
	defer f.Close()

	img, _, err := image.Decode(f)
	if err != nil {
		return nil, fmt.Errorf("failed to decode image: %w", err)
	}

	out := clone.AsRGBA(Normalize(img))
	if gamma != 1 {
		out = adjust.Gamma(out, gamma)
	}
	return out, nil
}

// Normalize maps 16-bit grayscale images onto 8 bits using the image's own
// minimum and maximum. Other images are returned unchanged.
func Normalize(img image.Image) image.Image {
	g16, ok := img.(*image.Gray16)
	if !ok {
		return img
	}

	b := g16.Bounds()
	lo, hi := uint16(0xffff), uint16(0)
	for y := b.Min.Y; y < b.Max.Y; y++ {
		for x := b.Min.X; x < b.Max.X; x++ {
			v := g16.Gray16At(x, y).Y
			if v < lo {
				lo = v
			}
			if v > hi {
				hi = v
			}
		}
	}

	out := image.NewGray(b)
	if hi <= lo {
		return out
	}
	span := float64(hi - lo)
	for y := b.Min.Y; y < b.Max.Y; y++ {
		for x := b.Min.X; x < b.Max.X; x++ {
			v := g16.Gray16At(x, y).Y
			out.Pix[out.PixOffset(x, y)] = uint8(float64(v-lo) / span * 255)
		}
	}
	return out
}
