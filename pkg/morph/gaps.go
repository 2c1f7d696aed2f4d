package morph

import (
	"github.com/skarv/object-eraser/pkg/mask"
)

// bridgeGaps closes short foreground discontinuities along four scan
// directions: rows, columns, and both diagonals. All four scans read the same
// input snapshot and union their fills into one output; since scans only add
// pixels, their order does not matter.
//
// Within a 1-D scan, a gap is the distance between consecutive foreground
// pixels. A gap of 1 means they are already adjacent; gaps in [2, maxGap] are
// filled completely; longer gaps are left open and treated as intentionally
// disjoint regions.
func bridgeGaps(m *mask.Mask, maxGap int) *mask.Mask {
	out := m.Clone()

	// Horizontal rows.
	for y := 0; y < m.H; y++ {
		scanLine(m, out, 0, y, 1, 0, maxGap)
	}

	// Vertical columns.
	for x := 0; x < m.W; x++ {
		scanLine(m, out, x, 0, 0, 1, maxGap)
	}

	// Down-right diagonals start on the top row and the left column.
	for x := 0; x < m.W; x++ {
		scanLine(m, out, x, 0, 1, 1, maxGap)
	}
	for y := 1; y < m.H; y++ {
		scanLine(m, out, 0, y, 1, 1, maxGap)
	}

	// Up-right diagonals start on the left column and the bottom row.
	for y := 0; y < m.H; y++ {
		scanLine(m, out, 0, y, 1, -1, maxGap)
	}
	for x := 1; x < m.W; x++ {
		scanLine(m, out, x, m.H-1, 1, -1, maxGap)
	}

	return out
}

// scanLine walks one line of the grid in direction (dx, dy), reading from in
// and filling bridged gaps into out.
func scanLine(in, out *mask.Mask, startX, startY, dx, dy, maxGap int) {
	last := -1
	step := 0
	for x, y := startX, startY; x >= 0 && x < in.W && y >= 0 && y < in.H; x, y = x+dx, y+dy {
		if in.At(x, y) != 0 {
			if last >= 0 {
				gap := step - last
				if gap >= 2 && gap <= maxGap {
					fx := startX + (last+1)*dx
					fy := startY + (last+1)*dy
					for s := last + 1; s < step; s++ {
						out.Set(fx, fy, 1)
						fx += dx
						fy += dy
					}
				}
			}
			last = step
		}
		step++
	}
}
