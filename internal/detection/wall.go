package detection

import (
	"fmt"
	"image"
	"sort"

	"github.com/ironsheep/paint-match-mcp/internal/colormath"
	"github.com/ironsheep/paint-match-mcp/internal/imaging"
)

const (
	// DefaultSampleTarget is the approximate number of pixels inspected per image.
	DefaultSampleTarget = 5000

	// DefaultMaxColors is the number of dominant colors returned.
	DefaultMaxColors = 5

	minAlpha      = 128 // below this a pixel counts as transparent
	darkCutoff    = 30  // all channels below: near-black
	brightCutoff  = 240 // all channels above: blown-out highlight
	minBrightness = 100 // wall-like pixels are lighter than this
	maxSaturation = 100 // and less saturated than this
	quantStep     = 10
)

// DominantColor is a quantized wall candidate and how many sampled pixels fell into it.
type DominantColor struct {
	colormath.RGB
	Hex   string `json:"hex"`
	Count int    `json:"count"`
}

// Options configures wall color detection.
type Options struct {
	// SampleTarget is the approximate number of pixels to inspect. Values <= 0
	// use DefaultSampleTarget.
	SampleTarget int

	// MaxColors caps the result length. Values <= 0 use DefaultMaxColors.
	MaxColors int

	// Region optionally restricts sampling to a rectangle inside the buffer.
	Region *image.Rectangle
}

// DefaultOptions returns the detector defaults.
func DefaultOptions() Options {
	return Options{
		SampleTarget: DefaultSampleTarget,
		MaxColors:    DefaultMaxColors,
	}
}

// Result contains the dominant wall colors and sampling statistics.
type Result struct {
	// Colors are sorted by Count descending; ties keep first-seen order.
	Colors []DominantColor `json:"colors"`

	// Step is the pixel stride used while sampling.
	Step int `json:"step"`

	// SampledPixels is the number of pixels inspected.
	SampledPixels int `json:"sampled_pixels"`

	// AcceptedPixels is the number of sampled pixels classified as wall-like.
	AcceptedPixels int `json:"accepted_pixels"`
}

// DetectWallColors returns up to MaxColors dominant wall-like colors, most
// frequent first. An empty slice means no wall color was detected; it is not
// an error.
func DetectWallColors(buf *image.NRGBA, opts Options) ([]DominantColor, error) {
	res, err := Detect(buf, opts)
	if err != nil {
		return nil, err
	}
	return res.Colors, nil
}

// Detect samples buf and classifies wall-like pixels.
//
// # Algorithm
//
//  1. Walk the pixels in row-major order with stride
//     max(1, floor(totalPixels / SampleTarget)).
//  2. Skip pixels with alpha < 128, all channels < 30, or all channels > 240.
//  3. Keep pixels with mean brightness > 100 and max-min saturation < 100.
//  4. Round each channel to the nearest multiple of 10 (clamped to 255) and
//     count occurrences per quantized color.
//  5. Sort by count descending, stable on first-seen order, and truncate.
//
// # Errors
//
//   - imaging.ErrNoImageLoaded if buf is nil
//   - an error if Region is empty or not inside buf's bounds
func Detect(buf *image.NRGBA, opts Options) (*Result, error) {
	if buf == nil {
		return nil, imaging.ErrNoImageLoaded
	}
	if opts.SampleTarget <= 0 {
		opts.SampleTarget = DefaultSampleTarget
	}
	if opts.MaxColors <= 0 {
		opts.MaxColors = DefaultMaxColors
	}

	img := buf
	if opts.Region != nil {
		r := *opts.Region
		if r.Empty() || !r.In(buf.Rect) {
			return nil, fmt.Errorf("region %v outside image bounds %v", r, buf.Rect)
		}
		img = buf.SubImage(r).(*image.NRGBA)
	}

	w := img.Rect.Dx()
	total := w * img.Rect.Dy()
	res := &Result{Colors: []DominantColor{}, Step: 1}
	if total == 0 {
		return res, nil
	}

	step := total / opts.SampleTarget
	if step < 1 {
		step = 1
	}
	res.Step = step

	counts := make(map[colormath.RGB]int)
	var order []colormath.RGB

	for p := 0; p < total; p += step {
		res.SampledPixels++
		i := (p/w)*img.Stride + (p%w)*4
		r, g, b, a := img.Pix[i], img.Pix[i+1], img.Pix[i+2], img.Pix[i+3]
		if !isWallLike(r, g, b, a) {
			continue
		}
		res.AcceptedPixels++

		key := colormath.RGB{R: quantize(r), G: quantize(g), B: quantize(b)}
		if _, seen := counts[key]; !seen {
			order = append(order, key)
		}
		counts[key]++
	}

	colors := make([]DominantColor, 0, len(order))
	for _, c := range order {
		colors = append(colors, DominantColor{RGB: c, Hex: c.Hex(), Count: counts[c]})
	}
	sort.SliceStable(colors, func(i, j int) bool {
		return colors[i].Count > colors[j].Count
	})
	if len(colors) > opts.MaxColors {
		colors = colors[:opts.MaxColors]
	}
	res.Colors = colors

	return res, nil
}

// MaskColors strips counts so detected colors can be passed to the renderer.
func MaskColors(colors []DominantColor) []colormath.RGB {
	out := make([]colormath.RGB, len(colors))
	for i, c := range colors {
		out[i] = c.RGB
	}
	return out
}

func isWallLike(r, g, b, a uint8) bool {
	if a < minAlpha {
		return false
	}
	if r < darkCutoff && g < darkCutoff && b < darkCutoff {
		return false
	}
	if r > brightCutoff && g > brightCutoff && b > brightCutoff {
		return false
	}

	brightness := float64(int(r)+int(g)+int(b)) / 3
	saturation := int(max(r, g, b)) - int(min(r, g, b))
	return brightness > minBrightness && saturation < maxSaturation
}

// quantize rounds v half-up to the nearest multiple of quantStep, capped at 255.
func quantize(v uint8) uint8 {
	q := (int(v) + quantStep/2) / quantStep * quantStep
	if q > 255 {
		q = 255
	}
	return uint8(q)
}
