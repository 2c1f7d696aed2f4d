package overlay

import (
	"image"
	"image/color"
	"testing"

	"github.com/skarv/object-eraser/pkg/mask"
)

func TestRenderDimensionsAndTint(t *testing.T) {
	m, err := mask.New(16, 12)
	if err != nil {
		t.Fatalf("mask.New failed: %v", err)
	}
	m.Set(5, 5, 1)
	m.Set(0, 0, 1)

	g := New()
	ov := g.Render(m)

	if ov.Bounds().Dx() != 16 || ov.Bounds().Dy() != 12 {
		t.Errorf("Expected 16x12 overlay, got %dx%d", ov.Bounds().Dx(), ov.Bounds().Dy())
	}

	want := color.NRGBA{R: 244, G: 67, B: 54, A: 140}
	if got := ov.NRGBAAt(5, 5); got != want {
		t.Errorf("Expected tint %v at foreground pixel, got %v", want, got)
	}
	if got := ov.NRGBAAt(0, 0); got != want {
		t.Errorf("Expected tint %v at foreground pixel, got %v", want, got)
	}

	if got := ov.NRGBAAt(3, 3); got.A != 0 {
		t.Errorf("Background pixel must be fully transparent, got alpha %d", got.A)
	}
}

func TestRenderCustomTint(t *testing.T) {
	m, _ := mask.New(4, 4)
	m.Set(1, 1, 1)

	tint := color.NRGBA{R: 0, G: 128, B: 255, A: 200}
	ov := NewWithColor(tint).Render(m)

	if got := ov.NRGBAAt(1, 1); got != tint {
		t.Errorf("Expected custom tint %v, got %v", tint, got)
	}
}

func TestRenderEmptyMaskIsTransparent(t *testing.T) {
	m, _ := mask.New(8, 8)

	ov := New().Render(m)
	for i := 3; i < len(ov.Pix); i += 4 {
		if ov.Pix[i] != 0 {
			t.Fatal("Empty mask must render fully transparent")
		}
	}
}

func TestCompositeAppliesOverlay(t *testing.T) {
	base := image.NewNRGBA(image.Rect(0, 0, 8, 8))
	for i := 0; i < len(base.Pix); i += 4 {
		base.Pix[i+0] = 255 // white background
		base.Pix[i+1] = 255
		base.Pix[i+2] = 255
		base.Pix[i+3] = 255
	}

	m, _ := mask.New(8, 8)
	m.Set(4, 4, 1)
	ov := New().Render(m)

	out := Composite(base, ov)

	tinted := out.NRGBAAt(4, 4)
	plain := out.NRGBAAt(1, 1)
	if tinted == plain {
		t.Error("Composite should visibly tint masked pixels")
	}
	if plain.R != 255 || plain.G != 255 || plain.B != 255 {
		t.Errorf("Unmasked pixel must keep the base color, got %v", plain)
	}
}
