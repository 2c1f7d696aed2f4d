// Package overlay renders masks as translucent preview images.
package overlay

import (
	"image"
	"image/color"

	"github.com/disintegration/imaging"
	xdraw "golang.org/x/image/draw"

	"github.com/skarv/object-eraser/pkg/mask"
)

// Generator turns masks into display overlays. Overlays are purely derived
// data: they are rebuilt from scratch whenever the authoritative mask changes
// and never feed back into mask state.
type Generator struct {
	tint color.NRGBA
}

// New creates a Generator with the default semi-opaque red tint used for
// "will be removed" regions.
func New() *Generator {
	return &Generator{tint: color.NRGBA{R: 244, G: 67, B: 54, A: 140}}
}

// NewWithColor creates a Generator with a custom tint.
func NewWithColor(tint color.NRGBA) *Generator {
	return &Generator{tint: tint}
}

// Render produces a translucent image the same size as the mask: every
// foreground pixel carries the tint, every background pixel is fully
// transparent.
func (g *Generator) Render(m *mask.Mask) *image.NRGBA {
	out := image.NewNRGBA(image.Rect(0, 0, m.W, m.H))
	for y := 0; y < m.H; y++ {
		row := y * m.W
		di := y * out.Stride
		for x := 0; x < m.W; x++ {
			if m.Pix[row+x] != 0 {
				out.Pix[di+0] = g.tint.R
				out.Pix[di+1] = g.tint.G
				out.Pix[di+2] = g.tint.B
				out.Pix[di+3] = g.tint.A
			}
			di += 4
		}
	}
	return out
}

// Composite draws an overlay over a copy of img, for debug dumps and
// previews outside a real UI.
func Composite(img image.Image, ov *image.NRGBA) *image.NRGBA {
	base := imaging.Clone(img)
	xdraw.Draw(base, base.Bounds(), ov, image.Point{}, xdraw.Over)
	return base
}
