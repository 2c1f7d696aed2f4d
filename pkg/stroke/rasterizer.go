package stroke

import (
	"github.com/skarv/object-eraser/pkg/mask"
)

// Rasterizer converts accumulated strokes into a binary mask at image
// resolution.
type Rasterizer struct{}

// NewRasterizer creates a new stroke rasterizer.
func NewRasterizer() *Rasterizer {
	return &Rasterizer{}
}

// Rasterize renders strokes into an all-new mask of the given dimensions.
// Each stroke is drawn as a round-capped, round-joined polyline of width
// twice its brush radius; a single-point stroke becomes a filled disc.
// Strokes are applied in order, so later strokes override earlier ones where
// they overlap. Output is strictly binary, no anti-aliasing.
func (r *Rasterizer) Rasterize(strokes []Stroke, width, height int) (*mask.Mask, error) {
	m, err := mask.New(width, height)
	if err != nil {
		return nil, err
	}

	for _, s := range strokes {
		var v uint8 = 1
		if s.Eraser {
			v = 0
		}

		pts := denormalize(s.Points, width, height)
		switch len(pts) {
		case 0:
		case 1:
			fillDisc(m, pts[0], s.Radius, v)
		default:
			// Capsule fill per segment gives round caps and round joins
			// without special-casing the vertices.
			for i := 0; i < len(pts)-1; i++ {
				fillCapsule(m, pts[i], pts[i+1], s.Radius, v)
			}
		}
	}

	return m, nil
}

type pixel struct {
	X float64
	Y float64
}

func denormalize(pts []Point, width, height int) []pixel {
	out := make([]pixel, len(pts))
	for i, p := range pts {
		out[i] = pixel{X: p.X * float64(width), Y: p.Y * float64(height)}
	}
	return out
}

// fillDisc paints v into every pixel whose center lies within radius of c.
func fillDisc(m *mask.Mask, c pixel, radius float64, v uint8) {
	x0, y0, x1, y1 := clampBox(m, c.X-radius, c.Y-radius, c.X+radius, c.Y+radius)
	rr := radius * radius
	for y := y0; y <= y1; y++ {
		for x := x0; x <= x1; x++ {
			dx := float64(x) - c.X
			dy := float64(y) - c.Y
			if dx*dx+dy*dy <= rr {
				m.Set(x, y, v)
			}
		}
	}
}

// fillCapsule paints v into every pixel within radius of the segment a-b.
func fillCapsule(m *mask.Mask, a, b pixel, radius float64, v uint8) {
	minX := min(a.X, b.X) - radius
	minY := min(a.Y, b.Y) - radius
	maxX := max(a.X, b.X) + radius
	maxY := max(a.Y, b.Y) + radius

	x0, y0, x1, y1 := clampBox(m, minX, minY, maxX, maxY)
	rr := radius * radius
	for y := y0; y <= y1; y++ {
		for x := x0; x <= x1; x++ {
			if distToSegmentSq(float64(x), float64(y), a, b) <= rr {
				m.Set(x, y, v)
			}
		}
	}
}

// distToSegmentSq returns the squared distance from (px, py) to segment a-b.
func distToSegmentSq(px, py float64, a, b pixel) float64 {
	dx := b.X - a.X
	dy := b.Y - a.Y
	lenSq := dx*dx + dy*dy

	t := 0.0
	if lenSq > 0 {
		t = ((px-a.X)*dx + (py-a.Y)*dy) / lenSq
		if t < 0 {
			t = 0
		} else if t > 1 {
			t = 1
		}
	}

	cx := a.X + t*dx - px
	cy := a.Y + t*dy - py
	return cx*cx + cy*cy
}

func clampBox(m *mask.Mask, minX, minY, maxX, maxY float64) (int, int, int, int) {
	x0 := int(minX)
	y0 := int(minY)
	x1 := int(maxX) + 1
	y1 := int(maxY) + 1
	if x0 < 0 {
		x0 = 0
	}
	if y0 < 0 {
		y0 = 0
	}
	if x1 > m.W-1 {
		x1 = m.W - 1
	}
	if y1 > m.H-1 {
		y1 = m.H - 1
	}
	return x0, y0, x1, y1
}
