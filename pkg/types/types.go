package types

// Box represents a normalized bounding box with coordinates in [0,1] range
type Box struct {
	X float64 `json:"x"`
	Y float64 `json:"y"`
	W float64 `json:"w"`
	H float64 `json:"h"`
}

// PromptKind selects the geometric prompt variant sent to a segmentation model
type PromptKind int

const (
	// PromptPoint is a single labeled point in model input coordinates
	PromptPoint PromptKind = iota
	// PromptBox is a bounding box in model input coordinates
	PromptBox
)

// GeometricPrompt seeds a segmentation model with either a labeled point or a
// box. Coordinates are already scaled into the model's input space: points by
// a single uniform factor derived from the image's longer side, boxes per axis.
type GeometricPrompt struct {
	Kind PromptKind

	// Point prompt fields
	X        float64
	Y        float64
	Positive bool

	// Box prompt fields
	MinX float64
	MinY float64
	MaxX float64
	MaxY float64
}

// ProbabilityMask is a single-channel activation map at model resolution with
// values in [0,1]
type ProbabilityMask struct {
	Width  int
	Height int
	Values []float32
}

// Valid reports whether the buffer matches the declared dimensions
func (p ProbabilityMask) Valid() bool {
	return p.Width > 0 && p.Height > 0 && len(p.Values) == p.Width*p.Height
}

// At returns the activation at (x, y); out-of-range coordinates return 0
func (p ProbabilityMask) At(x, y int) float32 {
	if x < 0 || y < 0 || x >= p.Width || y >= p.Height {
		return 0
	}
	return p.Values[y*p.Width+x]
}
