package colormath

import (
	"math"

	"github.com/lucasb-eyer/go-colorful"
)

// HSL holds hue in degrees (0-360) and saturation/lightness as percentages (0-100).
type HSL struct {
	H int `json:"h"`
	S int `json:"s"`
	L int `json:"l"`
}

// Lab holds CIE L*a*b* coordinates (D65), rounded to two decimals.
type Lab struct {
	L float64 `json:"l"`
	A float64 `json:"a"`
	B float64 `json:"b"`
}

// ColorInfo contains a color value in multiple representations.
type ColorInfo struct {
	Hex string `json:"hex"`
	RGB RGB    `json:"rgb"`
	HSL HSL    `json:"hsl"`
	Lab Lab    `json:"lab"`
}

// Describe converts c to the representations in ColorInfo.
func Describe(c RGB) ColorInfo {
	cf := toColorful(c)
	h, s, l := cf.Hsl()
	labL, labA, labB := cf.Lab()

	return ColorInfo{
		Hex: RGBToHex(c),
		RGB: c,
		HSL: HSL{
			H: int(math.Round(h)) % 360,
			S: int(math.Round(s * 100)),
			L: int(math.Round(l * 100)),
		},
		Lab: Lab{
			L: round2(labL * 100),
			A: round2(labA * 100),
			B: round2(labB * 100),
		},
	}
}

// DeltaE returns the CIEDE2000 difference between two colors on the usual
// 0-100 scale. It is informational only; ranking uses WeightedDistance.
func DeltaE(a, b RGB) float64 {
	return toColorful(a).DistanceCIEDE2000(toColorful(b)) * 100
}

func toColorful(c RGB) colorful.Color {
	return colorful.Color{
		R: float64(c.R) / 255.0,
		G: float64(c.G) / 255.0,
		B: float64(c.B) / 255.0,
	}
}

func round2(v float64) float64 {
	return math.Round(v*100) / 100
}
