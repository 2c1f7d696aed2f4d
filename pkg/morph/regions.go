package morph

import (
	"github.com/skarv/object-eraser/pkg/mask"
)

// fillHoles flips interior background regions to foreground, in place. It
// flood-fills background from every zero pixel on the image border
// (4-connectivity); any zero pixel the flood never reaches is enclosed by
// foreground and becomes part of the mask.
//
// A hole that touches the image border is reached by the border-seeded flood
// and therefore stays open. That is intentional: such a region connects to
// the exterior and the user can still see it is not enclosed.
func fillHoles(m *mask.Mask) {
	reached := make([]bool, len(m.Pix))
	queue := make([]int, 0, 2*(m.W+m.H))

	seed := func(x, y int) {
		i := y*m.W + x
		if m.Pix[i] == 0 && !reached[i] {
			reached[i] = true
			queue = append(queue, i)
		}
	}

	for x := 0; x < m.W; x++ {
		seed(x, 0)
		seed(x, m.H-1)
	}
	for y := 0; y < m.H; y++ {
		seed(0, y)
		seed(m.W-1, y)
	}

	for len(queue) > 0 {
		i := queue[0]
		queue = queue[1:]
		x := i % m.W
		y := i / m.W

		if x > 0 {
			visit(m, reached, &queue, i-1)
		}
		if x < m.W-1 {
			visit(m, reached, &queue, i+1)
		}
		if y > 0 {
			visit(m, reached, &queue, i-m.W)
		}
		if y < m.H-1 {
			visit(m, reached, &queue, i+m.W)
		}
	}

	for i := range m.Pix {
		if m.Pix[i] == 0 && !reached[i] {
			m.Pix[i] = 1
		}
	}
}

func visit(m *mask.Mask, reached []bool, queue *[]int, i int) {
	if m.Pix[i] == 0 && !reached[i] {
		reached[i] = true
		*queue = append(*queue, i)
	}
}

// removeSmallRegions clears 4-connected foreground components with fewer than
// minSize pixels, in place.
func removeSmallRegions(m *mask.Mask, minSize int) {
	seen := make([]bool, len(m.Pix))
	var component []int

	for start := range m.Pix {
		if m.Pix[start] == 0 || seen[start] {
			continue
		}

		component = component[:0]
		seen[start] = true
		stack := []int{start}
		for len(stack) > 0 {
			i := stack[len(stack)-1]
			stack = stack[:len(stack)-1]
			component = append(component, i)

			x := i % m.W
			y := i / m.W
			if x > 0 {
				push(m, seen, &stack, i-1)
			}
			if x < m.W-1 {
				push(m, seen, &stack, i+1)
			}
			if y > 0 {
				push(m, seen, &stack, i-m.W)
			}
			if y < m.H-1 {
				push(m, seen, &stack, i+m.W)
			}
		}

		if len(component) < minSize {
			for _, i := range component {
				m.Pix[i] = 0
			}
		}
	}
}

func push(m *mask.Mask, seen []bool, stack *[]int, i int) {
	if m.Pix[i] != 0 && !seen[i] {
		seen[i] = true
		*stack = append(*stack, i)
	}
}
