package imaging

import (
	"fmt"
	"image"
	"image/color"

	"github.com/ironsheep/paint-match-mcp/internal/colormath"
)

// SampleResult contains the color at one pixel.
type SampleResult struct {
	X     int                 `json:"x"`
	Y     int                 `json:"y"`
	Alpha uint8               `json:"alpha"`
	Color colormath.ColorInfo `json:"color"`
}

// SampleColor extracts the color value at a specific pixel coordinate.
//
// This is the eyedropper: a user points at a wall and the sampled color is
// fed to paint matching or recoloring.
//
// # Coordinate System
//
// Coordinates are 0-based with origin at the top-left of img.Bounds():
//   - Valid X range: Min.X to Max.X-1
//   - Valid Y range: Min.Y to Max.Y-1
//
// # Color Conversion
//
// The pixel is converted to non-premultiplied 8-bit components, so a
// half-transparent wall keeps its hue instead of darkening toward black.
func SampleColor(img image.Image, x, y int) (*SampleResult, error) {
	if isNilImage(img) {
		return nil, ErrNoImageLoaded
	}
	bounds := img.Bounds()
	if x < bounds.Min.X || x >= bounds.Max.X || y < bounds.Min.Y || y >= bounds.Max.Y {
		return nil, fmt.Errorf("coordinates (%d,%d) outside image bounds", x, y)
	}

	c := color.NRGBAModel.Convert(img.At(x, y)).(color.NRGBA)
	rgb := colormath.RGB{R: c.R, G: c.G, B: c.B}

	return &SampleResult{
		X:     x,
		Y:     y,
		Alpha: c.A,
		Color: colormath.Describe(rgb),
	}, nil
}
