// Package mask implements the binary pixel grid that flows through the
// removal pipeline. A mask always has the same dimensions as the image it was
// derived for; one byte per pixel, value 0 or 1.
package mask

import (
	"errors"
	"fmt"
)

// ErrInvalidDimensions is returned when a mask is requested with a zero or
// negative width or height.
var ErrInvalidDimensions = errors.New("invalid mask dimensions")

// Mask is a binary per-pixel grid marking "selected for removal".
type Mask struct {
	W   int
	H   int
	Pix []uint8 // row-major, len == W*H, values 0 or 1
}

// New creates an all-zero mask of the given dimensions.
func New(w, h int) (*Mask, error) {
	if w <= 0 || h <= 0 {
		return nil, fmt.Errorf("%w: %dx%d", ErrInvalidDimensions, w, h)
	}
	return &Mask{W: w, H: h, Pix: make([]uint8, w*h)}, nil
}

// At returns the value at (x, y). The caller must keep coordinates in range.
func (m *Mask) At(x, y int) uint8 {
	return m.Pix[y*m.W+x]
}

// Set writes v at (x, y). The caller must keep coordinates in range.
func (m *Mask) Set(x, y int, v uint8) {
	m.Pix[y*m.W+x] = v
}

// Clone returns a deep copy with its own pixel buffer.
func (m *Mask) Clone() *Mask {
	pix := make([]uint8, len(m.Pix))
	copy(pix, m.Pix)
	return &Mask{W: m.W, H: m.H, Pix: pix}
}

// Count returns the number of foreground pixels.
func (m *Mask) Count() int {
	n := 0
	for _, v := range m.Pix {
		if v != 0 {
			n++
		}
	}
	return n
}

// Empty reports whether the mask has no foreground pixels.
func (m *Mask) Empty() bool {
	for _, v := range m.Pix {
		if v != 0 {
			return false
		}
	}
	return true
}

// Equal reports whether two masks have identical dimensions and pixels.
func (m *Mask) Equal(o *Mask) bool {
	if m.W != o.W || m.H != o.H {
		return false
	}
	for i, v := range m.Pix {
		if o.Pix[i] != v {
			return false
		}
	}
	return true
}

// BoundingBox holds inclusive pixel bounds of a mask's foreground region.
type BoundingBox struct {
	MinX int
	MinY int
	MaxX int
	MaxY int
}

// Bounds computes the bounding box of all foreground pixels. The second
// return value is false when the mask is empty.
func (m *Mask) Bounds() (BoundingBox, bool) {
	b := BoundingBox{MinX: m.W, MinY: m.H, MaxX: -1, MaxY: -1}
	for y := 0; y < m.H; y++ {
		row := y * m.W
		for x := 0; x < m.W; x++ {
			if m.Pix[row+x] == 0 {
				continue
			}
			if x < b.MinX {
				b.MinX = x
			}
			if x > b.MaxX {
				b.MaxX = x
			}
			if y < b.MinY {
				b.MinY = y
			}
			if y > b.MaxY {
				b.MaxY = y
			}
		}
	}
	if b.MaxX < 0 {
		return BoundingBox{}, false
	}
	return b, true
}

// Width returns the pixel width of the box.
func (b BoundingBox) Width() int {
	return b.MaxX - b.MinX + 1
}

// Height returns the pixel height of the box.
func (b BoundingBox) Height() int {
	return b.MaxY - b.MinY + 1
}

// Center returns the center pixel of the box.
func (b BoundingBox) Center() (int, int) {
	return (b.MinX + b.MaxX) / 2, (b.MinY + b.MaxY) / 2
}

// Contains reports whether (x, y) lies inside the box.
func (b BoundingBox) Contains(x, y int) bool {
	return x >= b.MinX && x <= b.MaxX && y >= b.MinY && y <= b.MaxY
}

// Grow expands the box by margin pixels on every side, clamped to the
// [0,w)x[0,h) grid.
func (b BoundingBox) Grow(margin, w, h int) BoundingBox {
	out := BoundingBox{
		MinX: b.MinX - margin,
		MinY: b.MinY - margin,
		MaxX: b.MaxX + margin,
		MaxY: b.MaxY + margin,
	}
	if out.MinX < 0 {
		out.MinX = 0
	}
	if out.MinY < 0 {
		out.MinY = 0
	}
	if out.MaxX > w-1 {
		out.MaxX = w - 1
	}
	if out.MaxY > h-1 {
		out.MaxY = h - 1
	}
	return out
}
