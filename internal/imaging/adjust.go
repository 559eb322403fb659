package imaging

import (
	"fmt"
	"image"
	"image/color"

	"github.com/anthonynsimon/bild/adjust"
	"github.com/disintegration/imaging"

	"github.com/ironsheep/paint-match-mcp/internal/colormath"
)

// MaxBrightnessDelta bounds AdjustBrightness in both directions.
const MaxBrightnessDelta = 100

// AdjustBrightness adds delta to the R, G, and B channels of every pixel,
// clamping to [0,255], and returns a new buffer. Alpha is untouched.
//
// The adjustment is applied in premultiplied space, which is exact for
// opaque photos; semi-transparent edges may shift slightly.
func AdjustBrightness(src *image.NRGBA, delta int) (*image.NRGBA, error) {
	if src == nil {
		return nil, ErrNoImageLoaded
	}
	if delta < -MaxBrightnessDelta || delta > MaxBrightnessDelta {
		return nil, fmt.Errorf("%w: brightness adjustment must be within [-%d,%d], got %d",
			ErrInvalidSettings, MaxBrightnessDelta, MaxBrightnessDelta, delta)
	}
	if delta == 0 {
		return cloneBuffer(src), nil
	}

	d := float64(delta)
	out := adjust.Apply(src, func(c color.RGBA) color.RGBA {
		if c.A == 0 {
			return c
		}
		// Channels are premultiplied; keep them <= alpha.
		limit := float64(c.A)
		return color.RGBA{
			R: clampTo(float64(c.R)+d*limit/255, limit),
			G: clampTo(float64(c.G)+d*limit/255, limit),
			B: clampTo(float64(c.B)+d*limit/255, limit),
			A: c.A,
		}
	})

	return imaging.Clone(out), nil
}

func clampTo(v, limit float64) uint8 {
	if v > limit {
		v = limit
	}
	return colormath.Clamp(v)
}
