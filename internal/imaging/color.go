package imaging

import (
	"fmt"
	"image/color"
	"math"

	"github.com/lucasb-eyer/go-colorful"
)

// spinePalette is the fixed set of outline colours handed out to the first
// spines of a session, in creation order.
var spinePalette = []string{
	"#FF0000", // red
	"#0000FF", // blue
	"#008000", // green
	"#FFA500", // orange
	"#800080", // purple
	"#00FFFF", // cyan
	"#FFFF00", // yellow
	"#FFC0CB", // pink
}

// SpineColor returns the outline colour for the i-th spine of a session.
//
// The first spines get the fixed palette. Later spines get hues spaced by the
// golden angle so neighbouring indices stay distinguishable.
func SpineColor(i int) colorful.Color {
	if i < 0 {
		i = -i
	}
	if i < len(spinePalette) {
		c, _ := colorful.Hex(spinePalette[i])
		return c
	}
	hue := math.Mod(float64(i)*137.508, 360)
	return colorful.Hcl(hue, 0.6, 0.65).Clamped()
}

// SpineColorHex is SpineColor formatted as "#rrggbb".
func SpineColorHex(i int) string {
	return SpineColor(i).Hex()
}

// ParseHexColor parses "#RRGGBB" into an opaque RGBA colour.
func ParseHexColor(hex string) (color.RGBA, error) {
	if hex == "" {
		return color.RGBA{}, fmt.Errorf("empty color string")
	}
	if hex[0] != '#' {
		hex = "#" + hex
	}
	c, err := colorful.Hex(hex)
	if err != nil {
		return color.RGBA{}, fmt.Errorf("invalid hex color %q: %w", hex, err)
	}
	r, g, b := c.RGB255()
	return color.RGBA{R: r, G: g, B: b, A: 255}, nil
}

// HexColor formats any colour as "#rrggbb", dropping alpha.
func HexColor(c color.Color) string {
	cf, _ := colorful.MakeColor(c)
	return cf.Hex()
}
