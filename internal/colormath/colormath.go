package colormath

import (
	"errors"
	"fmt"
	"math"
	"strconv"
	"strings"
)

// ErrInvalidColorFormat is returned when a string is not a 6-digit hex colour.
var ErrInvalidColorFormat = errors.New("invalid color format")

// RGB represents an RGB color with 8-bit components.
//
// The uint8 channels keep every value inside [0,255]; arithmetic that can
// leave that range goes through Clamp.
type RGB struct {
	R uint8 `json:"r"` // Red component (0-255)
	G uint8 `json:"g"` // Green component (0-255)
	B uint8 `json:"b"` // Blue component (0-255)
}

// Hex returns the canonical "#rrggbb" form of the color.
func (c RGB) Hex() string {
	return RGBToHex(c)
}

// String implements fmt.Stringer.
func (c RGB) String() string {
	return c.Hex()
}

// HexToRGB parses "#RRGGBB" or "RRGGBB" (case-insensitive).
//
// Any other shape, including 3-digit shorthand and 8-digit RGBA, fails with
// ErrInvalidColorFormat. The input is never coerced to a default color.
func HexToRGB(hex string) (RGB, error) {
	s := strings.TrimPrefix(hex, "#")
	if len(s) != 6 {
		return RGB{}, fmt.Errorf("%w: %q", ErrInvalidColorFormat, hex)
	}
	for i := 0; i < len(s); i++ {
		if !isHexDigit(s[i]) {
			return RGB{}, fmt.Errorf("%w: %q", ErrInvalidColorFormat, hex)
		}
	}

	val, err := strconv.ParseUint(s, 16, 32)
	if err != nil {
		return RGB{}, fmt.Errorf("%w: %q", ErrInvalidColorFormat, hex)
	}

	return RGB{
		R: uint8(val >> 16),
		G: uint8(val >> 8),
		B: uint8(val),
	}, nil
}

func isHexDigit(b byte) bool {
	return (b >= '0' && b <= '9') || (b >= 'a' && b <= 'f') || (b >= 'A' && b <= 'F')
}

// RGBToHex formats a color as lowercase "#rrggbb".
func RGBToHex(c RGB) string {
	return fmt.Sprintf("#%02x%02x%02x", c.R, c.G, c.B)
}

// Canonicalize returns the lowercase, '#'-prefixed form of a hex color.
func Canonicalize(hex string) (string, error) {
	c, err := HexToRGB(hex)
	if err != nil {
		return "", err
	}
	return RGBToHex(c), nil
}

// Clamp rounds v to the nearest integer and limits it to [0,255].
// Halves round to even, matching how canvas pixel arrays store blended values.
func Clamp(v float64) uint8 {
	if math.IsNaN(v) || v <= 0 {
		return 0
	}
	if v >= 255 {
		return 255
	}
	return uint8(math.RoundToEven(v))
}

// EuclideanDistance is sqrt(dr² + dg² + db²). Used by the recolor renderer.
func EuclideanDistance(a, b RGB) float64 {
	return math.Sqrt(float64(EuclideanDistanceSq(a, b)))
}

// EuclideanDistanceSq is the squared Euclidean distance, for threshold tests
// that do not need the root.
func EuclideanDistanceSq(a, b RGB) int {
	dr := int(a.R) - int(b.R)
	dg := int(a.G) - int(b.G)
	db := int(a.B) - int(b.B)
	return dr*dr + dg*dg + db*db
}

// WeightedDistance is sqrt(2·dr² + 4·dg² + 3·db²).
//
// Paint matching depends on these exact weights. Note the blue weight sits
// above red, which is not the usual perceptual ordering; keep it as is so
// catalog rankings stay stable.
func WeightedDistance(a, b RGB) float64 {
	dr := float64(int(a.R) - int(b.R))
	dg := float64(int(a.G) - int(b.G))
	db := float64(int(a.B) - int(b.B))
	return math.Sqrt(2*dr*dr + 4*dg*dg + 3*db*db)
}

// WeightedDistanceHex parses both colors and returns their weighted distance,
// or +Inf if either one is unparsable.
func WeightedDistanceHex(a, b string) float64 {
	ca, err := HexToRGB(a)
	if err != nil {
		return math.Inf(1)
	}
	cb, err := HexToRGB(b)
	if err != nil {
		return math.Inf(1)
	}
	return WeightedDistance(ca, cb)
}
