package imaging

import (
	"errors"
	"fmt"
	"image"
	"math"

	"github.com/ironsheep/paint-match-mcp/internal/colormath"
)

var (
	// ErrNoImageLoaded is returned when an operation needs a pixel buffer and none is present.
	ErrNoImageLoaded = errors.New("no image loaded")

	// ErrInvalidSettings is returned for out-of-domain blend parameters.
	// Values are reported, never clamped.
	ErrInvalidSettings = errors.New("invalid settings")
)

// GlobalOpacityFactor scales opacity when no wall colors are known and the
// whole image is tinted instead of a mask.
const GlobalOpacityFactor = 0.3

// BlendSettings controls how strongly and how widely a color is applied.
type BlendSettings struct {
	// Tolerance is the Euclidean RGB distance within which a pixel matches a mask color.
	Tolerance float64 `json:"tolerance"`

	// Feather softens the blend inside the tolerance gate in feathered mode:
	// a larger value applies more of the target color near the gate's edge.
	Feather float64 `json:"feather"`

	// Opacity is the interpolation factor toward the target color, 0-1.
	Opacity float64 `json:"opacity"`
}

// DefaultBlendSettings returns tolerance 50, feather 20, opacity 0.7.
func DefaultBlendSettings() BlendSettings {
	return BlendSettings{Tolerance: 50, Feather: 20, Opacity: 0.7}
}

// Validate rejects negative tolerance or feather, opacity outside [0,1], and NaN.
func (s BlendSettings) Validate() error {
	if math.IsNaN(s.Tolerance) || s.Tolerance < 0 {
		return fmt.Errorf("%w: tolerance must be >= 0, got %v", ErrInvalidSettings, s.Tolerance)
	}
	if math.IsNaN(s.Feather) || s.Feather < 0 {
		return fmt.Errorf("%w: feather must be >= 0, got %v", ErrInvalidSettings, s.Feather)
	}
	if math.IsNaN(s.Opacity) || s.Opacity < 0 || s.Opacity > 1 {
		return fmt.Errorf("%w: opacity must be within [0,1], got %v", ErrInvalidSettings, s.Opacity)
	}
	return nil
}

// Mode selects the renderer used when mask colors are available.
type Mode string

const (
	// ModeOverlay blends every pixel within tolerance of a mask color by Opacity.
	ModeOverlay Mode = "overlay"

	// ModeFeathered derives a per-pixel blend factor from the mask distance.
	ModeFeathered Mode = "feathered"
)

// ParseMode parses "overlay" or "feathered". The empty string selects overlay.
func ParseMode(s string) (Mode, error) {
	switch Mode(s) {
	case "", ModeOverlay:
		return ModeOverlay, nil
	case ModeFeathered:
		return ModeFeathered, nil
	default:
		return "", fmt.Errorf("%w: unknown render mode %q", ErrInvalidSettings, s)
	}
}

// Recolor tints src toward targetHex and returns a new buffer.
//
// With mask colors, only matching pixels change, using the renderer chosen by
// mode. Without mask colors the whole image gets a global overlay at reduced
// opacity. src is never modified.
//
// # Errors
//
//   - ErrNoImageLoaded if src is nil
//   - ErrInvalidSettings if settings or mode are out of range
//   - colormath.ErrInvalidColorFormat if targetHex is unparsable
func Recolor(src *image.NRGBA, maskColors []colormath.RGB, targetHex string, settings BlendSettings, mode Mode) (*image.NRGBA, error) {
	if src == nil {
		return nil, ErrNoImageLoaded
	}
	if err := settings.Validate(); err != nil {
		return nil, err
	}
	target, err := colormath.HexToRGB(targetHex)
	if err != nil {
		return nil, err
	}

	if len(maskColors) == 0 {
		return OverlayGlobal(src, target, settings)
	}

	switch mode {
	case "", ModeOverlay:
		return OverlayMasked(src, maskColors, target, settings)
	case ModeFeathered:
		return ReplaceFeathered(src, maskColors, target, settings)
	default:
		return nil, fmt.Errorf("%w: unknown render mode %q", ErrInvalidSettings, mode)
	}
}

// OverlayMasked blends pixels whose Euclidean distance to any mask color is
// within Tolerance toward target by Opacity. Fully transparent pixels and
// pixels matching no mask color are copied unchanged.
func OverlayMasked(src *image.NRGBA, maskColors []colormath.RGB, target colormath.RGB, settings BlendSettings) (*image.NRGBA, error) {
	if src == nil {
		return nil, ErrNoImageLoaded
	}
	if err := settings.Validate(); err != nil {
		return nil, err
	}

	tolSq := settings.Tolerance * settings.Tolerance
	return blendPixels(src, target, func(c colormath.RGB) float64 {
		for _, m := range maskColors {
			if float64(colormath.EuclideanDistanceSq(c, m)) <= tolSq {
				return settings.Opacity
			}
		}
		return 0
	}), nil
}

// OverlayGlobal blends every non-transparent pixel toward target at
// Opacity*GlobalOpacityFactor. It is the fallback when wall isolation failed.
func OverlayGlobal(src *image.NRGBA, target colormath.RGB, settings BlendSettings) (*image.NRGBA, error) {
	if src == nil {
		return nil, ErrNoImageLoaded
	}
	if err := settings.Validate(); err != nil {
		return nil, err
	}

	factor := settings.Opacity * GlobalOpacityFactor
	return blendPixels(src, target, func(colormath.RGB) float64 {
		return factor
	}), nil
}

// ReplaceFeathered computes a soft blend factor per pixel from its distance d
// to the nearest mask color. Pixels with d > tolerance are never touched;
// inside the gate:
//
//	feather > 0:  blend = max(0, 1 - d/(tolerance+feather))
//	feather == 0: blend = 1
//
// The factor is then scaled by Opacity, so pixels near the gate's edge keep
// more of their own color.
func ReplaceFeathered(src *image.NRGBA, maskColors []colormath.RGB, target colormath.RGB, settings BlendSettings) (*image.NRGBA, error) {
	if src == nil {
		return nil, ErrNoImageLoaded
	}
	if err := settings.Validate(); err != nil {
		return nil, err
	}

	return blendPixels(src, target, func(c colormath.RGB) float64 {
		if len(maskColors) == 0 {
			return 0
		}
		d := math.Inf(1)
		for _, m := range maskColors {
			if md := colormath.EuclideanDistance(c, m); md < d {
				d = md
			}
		}

		if d > settings.Tolerance {
			return 0
		}
		blend := 1.0
		if settings.Feather > 0 {
			blend = math.Max(0, 1-d/(settings.Tolerance+settings.Feather))
		}
		return blend * settings.Opacity
	}), nil
}

// blendPixels copies src and interpolates each non-transparent pixel toward
// target by the factor returned from factorFn. Alpha is preserved.
func blendPixels(src *image.NRGBA, target colormath.RGB, factorFn func(colormath.RGB) float64) *image.NRGBA {
	dst := cloneBuffer(src)
	w := src.Rect.Dx()
	h := src.Rect.Dy()

	for y := 0; y < h; y++ {
		row := dst.Pix[y*dst.Stride : y*dst.Stride+w*4]
		for i := 0; i < len(row); i += 4 {
			if row[i+3] == 0 {
				continue
			}
			c := colormath.RGB{R: row[i], G: row[i+1], B: row[i+2]}
			f := factorFn(c)
			if f <= 0 {
				continue
			}
			row[i] = lerp(c.R, target.R, f)
			row[i+1] = lerp(c.G, target.G, f)
			row[i+2] = lerp(c.B, target.B, f)
		}
	}
	return dst
}

func lerp(c, target uint8, f float64) uint8 {
	v := float64(c)
	return colormath.Clamp(v + (float64(target)-v)*f)
}

// cloneBuffer returns a copy of src with its own pixel memory and the same bounds.
func cloneBuffer(src *image.NRGBA) *image.NRGBA {
	dst := image.NewNRGBA(src.Rect)
	rowLen := src.Rect.Dx() * 4
	for y := 0; y < src.Rect.Dy(); y++ {
		copy(dst.Pix[y*dst.Stride:y*dst.Stride+rowLen], src.Pix[y*src.Stride:y*src.Stride+rowLen])
	}
	return dst
}
