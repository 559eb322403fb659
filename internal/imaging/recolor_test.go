package imaging

import (
	"bytes"
	"errors"
	"image"
	"image/color"
	"math"
	"testing"

	"github.com/ironsheep/paint-match-mcp/internal/colormath"
)

func countChanged(a, b *image.NRGBA) int {
	changed := 0
	for i := 0; i < len(a.Pix); i += 4 {
		if !bytes.Equal(a.Pix[i:i+4], b.Pix[i:i+4]) {
			changed++
		}
	}
	return changed
}

func pixelAt(img *image.NRGBA, x, y int) color.NRGBA {
	return img.NRGBAAt(x, y)
}

func TestBlendSettings_Validate(t *testing.T) {
	tests := []struct {
		name    string
		s       BlendSettings
		wantErr bool
	}{
		{"defaults", DefaultBlendSettings(), false},
		{"zeros", BlendSettings{}, false},
		{"opacity one", BlendSettings{Tolerance: 255, Opacity: 1}, false},
		{"negative tolerance", BlendSettings{Tolerance: -1, Opacity: 0.5}, true},
		{"negative feather", BlendSettings{Feather: -0.1, Opacity: 0.5}, true},
		{"opacity above one", BlendSettings{Opacity: 1.01}, true},
		{"opacity below zero", BlendSettings{Opacity: -0.01}, true},
		{"nan opacity", BlendSettings{Opacity: math.NaN()}, true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := tt.s.Validate()
			if tt.wantErr {
				if !errors.Is(err, ErrInvalidSettings) {
					t.Errorf("expected ErrInvalidSettings, got %v", err)
				}
			} else if err != nil {
				t.Errorf("unexpected error: %v", err)
			}
		})
	}
}

func TestParseMode(t *testing.T) {
	if m, err := ParseMode(""); err != nil || m != ModeOverlay {
		t.Errorf("empty: got %v, %v", m, err)
	}
	if m, err := ParseMode("feathered"); err != nil || m != ModeFeathered {
		t.Errorf("feathered: got %v, %v", m, err)
	}
	if _, err := ParseMode("sparkly"); !errors.Is(err, ErrInvalidSettings) {
		t.Errorf("unknown mode: expected ErrInvalidSettings, got %v", err)
	}
}

func TestOverlayMasked_ZeroTolerance(t *testing.T) {
	img := createPatternImage(20, 20)
	mask := []colormath.RGB{{R: 255, G: 0, B: 0}, {R: 1, G: 2, B: 3}}
	target := colormath.RGB{R: 10, G: 200, B: 30}

	out, err := OverlayMasked(img, mask, target, BlendSettings{Tolerance: 0, Opacity: 1})
	if err != nil {
		t.Fatalf("OverlayMasked failed: %v", err)
	}

	// Only the red quadrant exactly equals a mask color.
	if changed := countChanged(img, out); changed != 100 {
		t.Errorf("changed pixels: got %d, want 100", changed)
	}
	if p := pixelAt(out, 0, 0); p != (color.NRGBA{10, 200, 30, 255}) {
		t.Errorf("red quadrant: got %+v", p)
	}
	if p := pixelAt(out, 15, 15); p != (color.NRGBA{255, 255, 255, 255}) {
		t.Errorf("white quadrant should be unchanged, got %+v", p)
	}
}

func TestOverlayMasked_ZeroToleranceNoMatch(t *testing.T) {
	img := createInMemoryImage(10, 10, color.RGBA{200, 200, 200, 255})
	mask := []colormath.RGB{{R: 200, G: 200, B: 201}}

	out, err := OverlayMasked(img, mask, colormath.RGB{}, BlendSettings{Opacity: 1})
	if err != nil {
		t.Fatalf("OverlayMasked failed: %v", err)
	}
	if changed := countChanged(img, out); changed != 0 {
		t.Errorf("changed pixels: got %d, want 0", changed)
	}
}

func TestOverlayMasked_FullReplacement(t *testing.T) {
	img := createPatternImage(10, 10)
	mask := []colormath.RGB{{R: 128, G: 128, B: 128}}
	target := colormath.RGB{R: 12, G: 34, B: 56}

	out, err := OverlayMasked(img, mask, target, BlendSettings{Tolerance: 255, Opacity: 1})
	if err != nil {
		t.Fatalf("OverlayMasked failed: %v", err)
	}

	// Every quadrant color is within 255 of mid gray.
	for y := 0; y < 10; y++ {
		for x := 0; x < 10; x++ {
			if p := pixelAt(out, x, y); p != (color.NRGBA{12, 34, 56, 255}) {
				t.Fatalf("pixel (%d,%d): got %+v, want exact target", x, y, p)
			}
		}
	}
}

func TestOverlayMasked_PartialOpacity(t *testing.T) {
	img := createInMemoryImage(4, 4, color.RGBA{200, 100, 0, 255})
	mask := []colormath.RGB{{R: 200, G: 100, B: 0}}

	out, err := OverlayMasked(img, mask, colormath.RGB{R: 0, G: 200, B: 100}, BlendSettings{Tolerance: 10, Opacity: 0.5})
	if err != nil {
		t.Fatalf("OverlayMasked failed: %v", err)
	}
	if p := pixelAt(out, 2, 2); p != (color.NRGBA{100, 150, 50, 255}) {
		t.Errorf("got %+v, want {100 150 50 255}", p)
	}
}

func TestOverlayMasked_SkipsTransparent(t *testing.T) {
	img := createInMemoryImage(4, 4, color.NRGBA{200, 200, 200, 255})
	img.SetNRGBA(0, 0, color.NRGBA{200, 200, 200, 0})

	out, err := OverlayMasked(img, []colormath.RGB{{R: 200, G: 200, B: 200}}, colormath.RGB{}, BlendSettings{Tolerance: 5, Opacity: 1})
	if err != nil {
		t.Fatalf("OverlayMasked failed: %v", err)
	}
	if p := pixelAt(out, 0, 0); p != (color.NRGBA{200, 200, 200, 0}) {
		t.Errorf("transparent pixel changed: %+v", p)
	}
	if p := pixelAt(out, 1, 1); p != (color.NRGBA{0, 0, 0, 255}) {
		t.Errorf("opaque pixel: got %+v", p)
	}
}

func TestOverlayGlobal(t *testing.T) {
	img := createInMemoryImage(5, 5, color.RGBA{100, 100, 100, 255})

	out, err := OverlayGlobal(img, colormath.RGB{R: 200, G: 0, B: 100}, BlendSettings{Opacity: 1})
	if err != nil {
		t.Fatalf("OverlayGlobal failed: %v", err)
	}
	// factor 0.3: 100 + (200-100)*0.3 = 130; 100 - 30 = 70; 100
	if p := pixelAt(out, 3, 3); p != (color.NRGBA{130, 70, 100, 255}) {
		t.Errorf("got %+v, want {130 70 100 255}", p)
	}
	if changed := countChanged(img, out); changed != 25 {
		t.Errorf("changed: got %d, want 25", changed)
	}
}

func TestReplaceFeathered(t *testing.T) {
	img := image.NewNRGBA(image.Rect(0, 0, 4, 1))
	img.SetNRGBA(0, 0, color.NRGBA{100, 100, 100, 255}) // d = 0
	img.SetNRGBA(1, 0, color.NRGBA{130, 140, 100, 255}) // d = 50
	img.SetNRGBA(2, 0, color.NRGBA{136, 148, 100, 255}) // d = 60
	img.SetNRGBA(3, 0, color.NRGBA{160, 180, 100, 255}) // d = 100

	mask := []colormath.RGB{{R: 100, G: 100, B: 100}}
	target := colormath.RGB{R: 0, G: 0, B: 0}

	t.Run("feathered", func(t *testing.T) {
		out, err := ReplaceFeathered(img, mask, target, BlendSettings{Tolerance: 50, Feather: 50, Opacity: 1})
		if err != nil {
			t.Fatalf("ReplaceFeathered failed: %v", err)
		}
		// blend = 1 - d/100 inside tolerance; d = 60 is outside it
		want := []color.NRGBA{
			{0, 0, 0, 255},
			{65, 70, 50, 255},
			{136, 148, 100, 255},
			{160, 180, 100, 255},
		}
		for x, w := range want {
			if p := pixelAt(out, x, 0); p != w {
				t.Errorf("x=%d: got %+v, want %+v", x, p, w)
			}
		}
	})

	t.Run("zero tolerance", func(t *testing.T) {
		near := image.NewNRGBA(image.Rect(0, 0, 2, 1))
		near.SetNRGBA(0, 0, color.NRGBA{100, 100, 100, 255})
		near.SetNRGBA(1, 0, color.NRGBA{105, 100, 100, 255})

		out, err := ReplaceFeathered(near, mask, target, BlendSettings{Tolerance: 0, Feather: 20, Opacity: 1})
		if err != nil {
			t.Fatalf("ReplaceFeathered failed: %v", err)
		}
		if p := pixelAt(out, 0, 0); p != (color.NRGBA{0, 0, 0, 255}) {
			t.Errorf("exact mask pixel: got %+v, want black", p)
		}
		if p := pixelAt(out, 1, 0); p != (color.NRGBA{105, 100, 100, 255}) {
			t.Errorf("non-matching pixel changed: got %+v", p)
		}
		if changed := countChanged(near, out); changed != 1 {
			t.Errorf("changed: got %d, want 1", changed)
		}
	})

	t.Run("hard cutoff", func(t *testing.T) {
		out, err := ReplaceFeathered(img, mask, target, BlendSettings{Tolerance: 50, Feather: 0, Opacity: 1})
		if err != nil {
			t.Fatalf("ReplaceFeathered failed: %v", err)
		}
		want := []color.NRGBA{
			{0, 0, 0, 255},
			{0, 0, 0, 255},
			{136, 148, 100, 255},
			{160, 180, 100, 255},
		}
		for x, w := range want {
			if p := pixelAt(out, x, 0); p != w {
				t.Errorf("x=%d: got %+v, want %+v", x, p, w)
			}
		}
	})

	t.Run("opacity scales blend", func(t *testing.T) {
		out, err := ReplaceFeathered(img, mask, target, BlendSettings{Tolerance: 50, Feather: 0, Opacity: 0.5})
		if err != nil {
			t.Fatalf("ReplaceFeathered failed: %v", err)
		}
		if p := pixelAt(out, 0, 0); p != (color.NRGBA{50, 50, 50, 255}) {
			t.Errorf("got %+v, want {50 50 50 255}", p)
		}
	})
}

func TestRecolor_Dispatch(t *testing.T) {
	img := createInMemoryImage(4, 4, color.RGBA{100, 100, 100, 255})
	mask := []colormath.RGB{{R: 100, G: 100, B: 100}}
	settings := BlendSettings{Tolerance: 10, Feather: 0, Opacity: 1}

	masked, err := Recolor(img, mask, "#000000", settings, ModeOverlay)
	if err != nil {
		t.Fatalf("Recolor overlay failed: %v", err)
	}
	if p := pixelAt(masked, 0, 0); p != (color.NRGBA{0, 0, 0, 255}) {
		t.Errorf("overlay: got %+v", p)
	}

	feathered, err := Recolor(img, mask, "000000", settings, ModeFeathered)
	if err != nil {
		t.Fatalf("Recolor feathered failed: %v", err)
	}
	if p := pixelAt(feathered, 0, 0); p != (color.NRGBA{0, 0, 0, 255}) {
		t.Errorf("feathered: got %+v", p)
	}

	global, err := Recolor(img, nil, "#000000", settings, ModeFeathered)
	if err != nil {
		t.Fatalf("Recolor global failed: %v", err)
	}
	if p := pixelAt(global, 0, 0); p != (color.NRGBA{70, 70, 70, 255}) {
		t.Errorf("global: got %+v, want {70 70 70 255}", p)
	}
}

func TestRecolor_DoesNotMutateInput(t *testing.T) {
	img := createPatternImage(10, 10)
	before := append([]uint8(nil), img.Pix...)

	out, err := Recolor(img, []colormath.RGB{{R: 255}}, "#00ff00", BlendSettings{Tolerance: 100, Opacity: 1}, ModeOverlay)
	if err != nil {
		t.Fatalf("Recolor failed: %v", err)
	}
	if !bytes.Equal(before, img.Pix) {
		t.Error("input buffer was modified")
	}
	if out == img || &out.Pix[0] == &img.Pix[0] {
		t.Error("output shares memory with input")
	}
}

func TestRecolor_SubImage(t *testing.T) {
	img := createPatternImage(20, 20)
	sub := img.SubImage(image.Rect(10, 10, 20, 20)).(*image.NRGBA)

	out, err := Recolor(sub, []colormath.RGB{{R: 255, G: 255, B: 255}}, "#000000", BlendSettings{Opacity: 1}, ModeOverlay)
	if err != nil {
		t.Fatalf("Recolor failed: %v", err)
	}
	if out.Bounds() != sub.Bounds() {
		t.Errorf("bounds: got %v, want %v", out.Bounds(), sub.Bounds())
	}
	if p := out.NRGBAAt(15, 15); p != (color.NRGBA{0, 0, 0, 255}) {
		t.Errorf("got %+v", p)
	}
}

func TestRecolor_Errors(t *testing.T) {
	img := createInMemoryImage(2, 2, color.RGBA{1, 2, 3, 255})

	tests := []struct {
		name     string
		src      *image.NRGBA
		hex      string
		settings BlendSettings
		mode     Mode
		want     error
	}{
		{"nil image", nil, "#ffffff", DefaultBlendSettings(), ModeOverlay, ErrNoImageLoaded},
		{"negative tolerance", img, "#ffffff", BlendSettings{Tolerance: -5, Opacity: 0.5}, ModeOverlay, ErrInvalidSettings},
		{"opacity too high", img, "#ffffff", BlendSettings{Opacity: 2}, ModeOverlay, ErrInvalidSettings},
		{"bad hex", img, "white", DefaultBlendSettings(), ModeOverlay, colormath.ErrInvalidColorFormat},
		{"bad mode", img, "#ffffff", DefaultBlendSettings(), Mode("x"), ErrInvalidSettings},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := Recolor(tt.src, []colormath.RGB{{R: 1}}, tt.hex, tt.settings, tt.mode)
			if !errors.Is(err, tt.want) {
				t.Errorf("expected %v, got %v", tt.want, err)
			}
		})
	}
}
