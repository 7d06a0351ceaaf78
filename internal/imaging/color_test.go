package imaging

import (
	"image"
	"image/color"
	"testing"
)

// createInMemoryImage creates an in-memory test image
func createInMemoryImage(width, height int, c color.Color) image.Image {
	img := image.NewRGBA(image.Rect(0, 0, width, height))
	for y := 0; y < height; y++ {
		for x := 0; x < width; x++ {
			img.Set(x, y, c)
		}
	}
	return img
}

// createPatternImage creates an image with different colors in each quadrant
func createPatternImage(width, height int) *image.RGBA {
	img := image.NewRGBA(image.Rect(0, 0, width, height))
	for y := 0; y < height; y++ {
		for x := 0; x < width; x++ {
			var c color.Color
			if x < width/2 && y < height/2 {
				c = color.RGBA{255, 0, 0, 255} // Red top-left
			} else if x >= width/2 && y < height/2 {
				c = color.RGBA{0, 255, 0, 255} // Green top-right
			} else if x < width/2 && y >= height/2 {
				c = color.RGBA{0, 0, 255, 255} // Blue bottom-left
			} else {
				c = color.RGBA{255, 255, 255, 255} // White bottom-right
			}
			img.Set(x, y, c)
		}
	}
	return img
}

func TestSpineColorHex_FixedPalette(t *testing.T) {
	tests := []struct {
		index int
		want  string
	}{
		{0, "#ff0000"},
		{1, "#0000ff"},
		{2, "#008000"},
		{7, "#ffc0cb"},
	}

	for _, tt := range tests {
		if got := SpineColorHex(tt.index); got != tt.want {
			t.Errorf("SpineColorHex(%d): got %s, want %s", tt.index, got, tt.want)
		}
	}
}

func TestSpineColor_Generated(t *testing.T) {
	seen := make(map[string]bool)
	for i := 0; i < 40; i++ {
		c := SpineColor(i)
		if !c.IsValid() {
			t.Errorf("SpineColor(%d) is outside the RGB gamut: %v", i, c)
		}
		seen[c.Hex()] = true
	}
	if len(seen) < 35 {
		t.Errorf("expected mostly distinct colours, got %d unique of 40", len(seen))
	}
}

func TestParseHexColor(t *testing.T) {
	tests := []struct {
		in      string
		want    color.RGBA
		wantErr bool
	}{
		{"#FF8040", color.RGBA{255, 128, 64, 255}, false},
		{"00ff00", color.RGBA{0, 255, 0, 255}, false},
		{"", color.RGBA{}, true},
		{"#GGGGGG", color.RGBA{}, true},
		{"#12345", color.RGBA{}, true},
	}

	for _, tt := range tests {
		t.Run(tt.in, func(t *testing.T) {
			got, err := ParseHexColor(tt.in)
			if tt.wantErr {
				if err == nil {
					t.Errorf("expected error for %q", tt.in)
				}
				return
			}
			if err != nil {
				t.Fatalf("ParseHexColor failed: %v", err)
			}
			if got != tt.want {
				t.Errorf("got %v, want %v", got, tt.want)
			}
		})
	}
}

func TestHexColor(t *testing.T) {
	if got := HexColor(color.RGBA{255, 128, 64, 255}); got != "#ff8040" {
		t.Errorf("HexColor: got %s, want #ff8040", got)
	}
}
