// Package stroke records freehand input and rasterizes it into binary masks.
package stroke

// Point is a stroke vertex normalized to [0,1] relative to the image
// dimensions.
type Point struct {
	X float64 `json:"x"`
	Y float64 `json:"y"`
}

// Stroke is an ordered sequence of normalized points with a brush radius in
// pixels. Eraser strokes clear mask pixels instead of setting them. Strokes
// are immutable once recorded; a session only ever appends new ones.
type Stroke struct {
	Points []Point `json:"points"`
	Radius float64 `json:"radius"`
	Eraser bool    `json:"eraser,omitempty"`
}
