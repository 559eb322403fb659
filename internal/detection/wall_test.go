package detection

import (
	"errors"
	"image"
	"image/color"
	"testing"

	"github.com/ironsheep/paint-match-mcp/internal/colormath"
	"github.com/ironsheep/paint-match-mcp/internal/imaging"
)

// createUniformBuffer creates an NRGBA buffer filled with one color
func createUniformBuffer(width, height int, c color.NRGBA) *image.NRGBA {
	img := image.NewNRGBA(image.Rect(0, 0, width, height))
	for y := 0; y < height; y++ {
		for x := 0; x < width; x++ {
			img.SetNRGBA(x, y, c)
		}
	}
	return img
}

// createStripedBuffer fills each column with colors[x % len(colors)]
func createStripedBuffer(width, height int, colors []color.NRGBA) *image.NRGBA {
	img := image.NewNRGBA(image.Rect(0, 0, width, height))
	for y := 0; y < height; y++ {
		for x := 0; x < width; x++ {
			img.SetNRGBA(x, y, colors[x%len(colors)])
		}
	}
	return img
}

func expectedSamples(total, target int) int {
	step := total / target
	if step < 1 {
		step = 1
	}
	return (total + step - 1) / step
}

func TestDetect_UniformGray(t *testing.T) {
	sizes := []struct {
		name          string
		width, height int
	}{
		{"tiny", 3, 2},
		{"small", 40, 30},
		{"exact target", 100, 50},
		{"large", 317, 211},
	}

	for _, sz := range sizes {
		t.Run(sz.name, func(t *testing.T) {
			buf := createUniformBuffer(sz.width, sz.height, color.NRGBA{200, 200, 200, 255})

			res, err := Detect(buf, DefaultOptions())
			if err != nil {
				t.Fatalf("Detect failed: %v", err)
			}
			if len(res.Colors) != 1 {
				t.Fatalf("expected 1 color, got %d", len(res.Colors))
			}

			want := expectedSamples(sz.width*sz.height, DefaultSampleTarget)
			got := res.Colors[0]
			if got.RGB != (colormath.RGB{R: 200, G: 200, B: 200}) {
				t.Errorf("color: got %+v, want 200,200,200", got.RGB)
			}
			if got.Hex != "#c8c8c8" {
				t.Errorf("hex: got %s, want #c8c8c8", got.Hex)
			}
			if got.Count != want || res.SampledPixels != want {
				t.Errorf("count: got %d (sampled %d), want %d", got.Count, res.SampledPixels, want)
			}
		})
	}
}

func TestDetect_Quantization(t *testing.T) {
	buf := createUniformBuffer(10, 10, color.NRGBA{204, 195, 186, 255})

	colors, err := DetectWallColors(buf, DefaultOptions())
	if err != nil {
		t.Fatalf("DetectWallColors failed: %v", err)
	}
	if len(colors) != 1 {
		t.Fatalf("expected 1 color, got %d", len(colors))
	}
	want := colormath.RGB{R: 200, G: 200, B: 190}
	if colors[0].RGB != want {
		t.Errorf("quantized: got %+v, want %+v", colors[0].RGB, want)
	}
}

func TestDetect_QuantizationClampsTo255(t *testing.T) {
	// 255 rounds to 260 and must be clamped; pixel is not all > 240 so it is kept
	buf := createUniformBuffer(4, 4, color.NRGBA{255, 230, 200, 255})

	colors, err := DetectWallColors(buf, DefaultOptions())
	if err != nil {
		t.Fatalf("DetectWallColors failed: %v", err)
	}
	if len(colors) != 1 {
		t.Fatalf("expected 1 color, got %d", len(colors))
	}
	if colors[0].R != 255 || colors[0].G != 230 || colors[0].B != 200 {
		t.Errorf("got %+v, want 255,230,200", colors[0].RGB)
	}
}

func TestDetect_Rejections(t *testing.T) {
	tests := []struct {
		name  string
		color color.NRGBA
	}{
		{"near black", color.NRGBA{10, 20, 29, 255}},
		{"blown out white", color.NRGBA{250, 245, 241, 255}},
		{"transparent", color.NRGBA{200, 200, 200, 127}},
		{"too dark", color.NRGBA{90, 100, 110, 255}},
		{"too saturated", color.NRGBA{230, 120, 130, 255}},
		{"brightness exactly 100", color.NRGBA{100, 100, 100, 255}},
		{"saturation exactly 100", color.NRGBA{200, 150, 100, 255}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			buf := createUniformBuffer(20, 20, tt.color)
			res, err := Detect(buf, DefaultOptions())
			if err != nil {
				t.Fatalf("Detect failed: %v", err)
			}
			if len(res.Colors) != 0 {
				t.Errorf("expected no wall colors, got %+v", res.Colors)
			}
			if res.AcceptedPixels != 0 {
				t.Errorf("AcceptedPixels: got %d, want 0", res.AcceptedPixels)
			}
		})
	}
}

func TestDetect_NearBlackImageReturnsEmpty(t *testing.T) {
	buf := createUniformBuffer(640, 480, color.NRGBA{5, 5, 5, 255})

	colors, err := DetectWallColors(buf, DefaultOptions())
	if err != nil {
		t.Fatalf("DetectWallColors failed: %v", err)
	}
	if colors == nil || len(colors) != 0 {
		t.Errorf("expected empty non-nil slice, got %#v", colors)
	}
}

func TestDetect_SortedByFrequencyStable(t *testing.T) {
	a := color.NRGBA{200, 190, 180, 255}
	b := color.NRGBA{150, 150, 160, 255}
	c := color.NRGBA{170, 170, 170, 255}
	// Per row of 4 columns: a twice, b once, c once. b is seen before c.
	buf := createStripedBuffer(4, 10, []color.NRGBA{a, b, a, c})

	colors, err := DetectWallColors(buf, DefaultOptions())
	if err != nil {
		t.Fatalf("DetectWallColors failed: %v", err)
	}
	if len(colors) != 3 {
		t.Fatalf("expected 3 colors, got %d", len(colors))
	}

	wantHex := []string{"#c8beb4", "#9696a0", "#aaaaaa"}
	wantCount := []int{20, 10, 10}
	for i := range colors {
		if colors[i].Hex != wantHex[i] || colors[i].Count != wantCount[i] {
			t.Errorf("colors[%d]: got %s x%d, want %s x%d",
				i, colors[i].Hex, colors[i].Count, wantHex[i], wantCount[i])
		}
	}
}

func TestDetect_TopFive(t *testing.T) {
	var stripes []color.NRGBA
	for i := 0; i < 8; i++ {
		v := uint8(120 + i*10)
		stripes = append(stripes, color.NRGBA{v, v, v, 255})
	}
	buf := createStripedBuffer(8, 8, stripes)

	colors, err := DetectWallColors(buf, DefaultOptions())
	if err != nil {
		t.Fatalf("DetectWallColors failed: %v", err)
	}
	if len(colors) != DefaultMaxColors {
		t.Fatalf("expected %d colors, got %d", DefaultMaxColors, len(colors))
	}
	// All counts tie, so encounter order decides.
	if colors[0].R != 120 || colors[4].R != 160 {
		t.Errorf("tie order: got first %d last %d, want 120 and 160", colors[0].R, colors[4].R)
	}

	opts := DefaultOptions()
	opts.MaxColors = 2
	colors, err = DetectWallColors(buf, opts)
	if err != nil {
		t.Fatalf("DetectWallColors failed: %v", err)
	}
	if len(colors) != 2 {
		t.Errorf("MaxColors=2: got %d colors", len(colors))
	}
}

func TestDetect_Stride(t *testing.T) {
	buf := createUniformBuffer(200, 100, color.NRGBA{180, 180, 180, 255})

	opts := DefaultOptions()
	opts.SampleTarget = 1000
	res, err := Detect(buf, opts)
	if err != nil {
		t.Fatalf("Detect failed: %v", err)
	}
	if res.Step != 20 {
		t.Errorf("Step: got %d, want 20", res.Step)
	}
	if res.SampledPixels != 1000 {
		t.Errorf("SampledPixels: got %d, want 1000", res.SampledPixels)
	}
}

func TestDetect_Region(t *testing.T) {
	buf := createUniformBuffer(20, 20, color.NRGBA{5, 5, 5, 255})
	for y := 10; y < 20; y++ {
		for x := 10; x < 20; x++ {
			buf.SetNRGBA(x, y, color.NRGBA{210, 200, 190, 255})
		}
	}

	region := image.Rect(10, 10, 20, 20)
	opts := DefaultOptions()
	opts.Region = &region
	res, err := Detect(buf, opts)
	if err != nil {
		t.Fatalf("Detect failed: %v", err)
	}
	if len(res.Colors) != 1 || res.Colors[0].Count != 100 {
		t.Fatalf("expected one color with 100 samples, got %+v", res.Colors)
	}

	bad := image.Rect(15, 15, 30, 30)
	opts.Region = &bad
	if _, err := Detect(buf, opts); err == nil {
		t.Error("Detect should fail for region outside bounds")
	}
}

func TestDetect_NilBuffer(t *testing.T) {
	_, err := Detect(nil, DefaultOptions())
	if !errors.Is(err, imaging.ErrNoImageLoaded) {
		t.Errorf("expected ErrNoImageLoaded, got %v", err)
	}
}

func TestDetect_EmptyBuffer(t *testing.T) {
	res, err := Detect(image.NewNRGBA(image.Rect(0, 0, 0, 0)), DefaultOptions())
	if err != nil {
		t.Fatalf("Detect failed: %v", err)
	}
	if len(res.Colors) != 0 || res.SampledPixels != 0 {
		t.Errorf("expected no samples, got %+v", res)
	}
}

func TestMaskColors(t *testing.T) {
	in := []DominantColor{
		{RGB: colormath.RGB{R: 1, G: 2, B: 3}, Count: 9},
		{RGB: colormath.RGB{R: 4, G: 5, B: 6}, Count: 1},
	}
	out := MaskColors(in)
	if len(out) != 2 || out[0] != in[0].RGB || out[1] != in[1].RGB {
		t.Errorf("MaskColors: got %+v", out)
	}
}
