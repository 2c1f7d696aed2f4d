// Package segment snaps rough stroke masks to model-predicted object
// boundaries and selects the refinement strategy used by a session.
package segment

import (
	"context"
	"image"
	"log/slog"

	"github.com/disintegration/imaging"

	"github.com/skarv/object-eraser/pkg/client"
	"github.com/skarv/object-eraser/pkg/mask"
	"github.com/skarv/object-eraser/pkg/types"
)

// Config holds the tuning parameters of the snap adapter.
type Config struct {
	InputSize     int     // long side of the model's input space
	ExpandMargin  int     // pixels the rough bounds grow before fusion
	MaskThreshold float32 // binarization threshold for the model output
	FuseThreshold float32 // stricter threshold applied during fusion
}

// DefaultConfig returns parameters suitable for SAM-family models.
func DefaultConfig() Config {
	return Config{
		InputSize:     1024,
		ExpandMargin:  16,
		MaskThreshold: 0.5,
		FuseThreshold: 0.6,
	}
}

// SnapAdapter derives a geometric prompt from a rough mask, invokes the
// segmentation collaborator, and fuses its output with the rough mask's
// bounds.
type SnapAdapter struct {
	client client.SegmentClient
	config Config
	logger *slog.Logger
}

// New creates a SnapAdapter with default configuration.
func New(c client.SegmentClient) *SnapAdapter {
	return NewWithConfig(c, DefaultConfig())
}

// NewWithConfig creates a SnapAdapter with custom configuration.
func NewWithConfig(c client.SegmentClient, config Config) *SnapAdapter {
	return &SnapAdapter{
		client: c,
		config: config,
		logger: slog.Default().With("component", "segment"),
	}
}

// Snap refines rough against the segmentation model. Any failure (transport
// error, missing output, malformed shape) falls back to returning rough
// unchanged: segmentation snap is an enhancement, never a gate. The result
// never marks a pixel outside the rough mask's expanded bounding box.
func (a *SnapAdapter) Snap(ctx context.Context, img image.Image, rough *mask.Mask) *mask.Mask {
	bbox, ok := rough.Bounds()
	if !ok {
		// Nothing marked, no prompt derivable.
		return rough
	}

	prompt := a.derivePrompt(bbox, rough.W, rough.H)

	candidates, err := a.client.Segment(ctx, img, prompt)
	if err != nil {
		a.logger.Warn("segmentation failed, falling back to rough mask", "error", err)
		return rough
	}

	best, ok := a.pickCandidate(candidates, bbox, rough.W, rough.H)
	if !ok {
		a.logger.Warn("segmentation returned no usable mask, falling back to rough mask")
		return rough
	}

	prob := resizeToGrid(best, rough.W, rough.H)
	if !anyAbove(prob, uint8(a.config.MaskThreshold*255)) {
		a.logger.Warn("segmentation produced an empty mask, falling back to rough mask")
		return rough
	}

	expanded := bbox.Grow(a.config.ExpandMargin, rough.W, rough.H)

	return a.fuse(rough, prob, expanded)
}

// derivePrompt builds a box prompt when the client supports it, scaling each
// axis into model input space independently; otherwise it builds a positive
// point prompt at the bounding-box center, scaled uniformly by the image's
// longer side.
func (a *SnapAdapter) derivePrompt(bbox mask.BoundingBox, w, h int) types.GeometricPrompt {
	if bp, ok := a.client.(client.BoxPrompter); ok && bp.SupportsBoxPrompt() {
		sx := float64(a.config.InputSize) / float64(w)
		sy := float64(a.config.InputSize) / float64(h)
		return types.GeometricPrompt{
			Kind: types.PromptBox,
			MinX: float64(bbox.MinX) * sx,
			MinY: float64(bbox.MinY) * sy,
			MaxX: float64(bbox.MaxX) * sx,
			MaxY: float64(bbox.MaxY) * sy,
		}
	}

	long := w
	if h > long {
		long = h
	}
	scale := float64(a.config.InputSize) / float64(long)
	cx, cy := bbox.Center()
	return types.GeometricPrompt{
		Kind:     types.PromptPoint,
		X:        float64(cx) * scale,
		Y:        float64(cy) * scale,
		Positive: true,
	}
}

// pickCandidate scores each returned mask by its mean activation over the
// prompt's bounding box and keeps the maximum-scoring one.
func (a *SnapAdapter) pickCandidate(candidates []types.ProbabilityMask, bbox mask.BoundingBox, w, h int) (types.ProbabilityMask, bool) {
	bestScore := float64(-1)
	var best types.ProbabilityMask

	for _, cand := range candidates {
		if !cand.Valid() {
			continue
		}

		// Map the image-space box into this candidate's resolution.
		sx := float64(cand.Width) / float64(w)
		sy := float64(cand.Height) / float64(h)
		x0 := int(float64(bbox.MinX) * sx)
		y0 := int(float64(bbox.MinY) * sy)
		x1 := int(float64(bbox.MaxX) * sx)
		y1 := int(float64(bbox.MaxY) * sy)

		var sum float64
		count := 0
		for y := y0; y <= y1; y++ {
			for x := x0; x <= x1; x++ {
				sum += float64(cand.At(x, y))
				count++
			}
		}
		if count == 0 {
			continue
		}

		score := sum / float64(count)
		if score > bestScore {
			bestScore = score
			best = cand
		}
	}

	return best, bestScore >= 0
}

// resizeToGrid scales a model-resolution probability mask to image
// resolution, returned as an 8-bit activation grid.
func resizeToGrid(p types.ProbabilityMask, w, h int) *image.Gray {
	gray := image.NewGray(image.Rect(0, 0, p.Width, p.Height))
	for i, v := range p.Values {
		if v < 0 {
			v = 0
		} else if v > 1 {
			v = 1
		}
		gray.Pix[i] = uint8(v*255 + 0.5)
	}

	resized := imaging.Resize(gray, w, h, imaging.Lanczos)

	out := image.NewGray(image.Rect(0, 0, w, h))
	for y := 0; y < h; y++ {
		for x := 0; x < w; x++ {
			out.Pix[y*w+x] = resized.NRGBAAt(x, y).R
		}
	}
	return out
}

// anyAbove reports whether any activation reaches level.
func anyAbove(prob *image.Gray, level uint8) bool {
	for _, v := range prob.Pix {
		if v >= level {
			return true
		}
	}
	return false
}

// fuse combines the rough mask with the resized model activations: pixels
// outside the expanded box are always background, and inside it only pixels
// the user actually marked can survive, gated by the stricter fusion
// threshold. This keeps the model from leaking the mask onto unrelated
// objects.
func (a *SnapAdapter) fuse(rough *mask.Mask, prob *image.Gray, expanded mask.BoundingBox) *mask.Mask {
	out, _ := mask.New(rough.W, rough.H)
	fuseLevel := uint8(a.config.FuseThreshold * 255)

	for y := expanded.MinY; y <= expanded.MaxY; y++ {
		row := y * rough.W
		for x := expanded.MinX; x <= expanded.MaxX; x++ {
			if rough.Pix[row+x] == 0 {
				continue
			}
			if prob.Pix[row+x] >= fuseLevel {
				out.Pix[row+x] = 1
			}
		}
	}
	return out
}
