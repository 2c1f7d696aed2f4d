// Package client defines the narrow interfaces through which the pipeline
// consumes external model capabilities.
package client

import (
	"context"
	"image"

	"github.com/skarv/object-eraser/pkg/mask"
	"github.com/skarv/object-eraser/pkg/types"
)

// SegmentClient produces candidate probability masks for an image given a
// geometric prompt. Calls may suspend on model inference and may fail.
type SegmentClient interface {
	Segment(ctx context.Context, img image.Image, prompt types.GeometricPrompt) ([]types.ProbabilityMask, error)
}

// BoxPrompter marks a SegmentClient that accepts box prompts. The snap
// adapter prefers a box prompt when the capability is present and falls back
// to a positive center point otherwise.
type BoxPrompter interface {
	SupportsBoxPrompt() bool
}

// InpaintClient fills the masked region of an image and returns the edited
// result. It is the sole external sink for the refined mask.
type InpaintClient interface {
	Inpaint(ctx context.Context, img image.Image, m *mask.Mask) (image.Image, error)
}
