package segment

import (
	"context"
	"fmt"
	"image"

	"github.com/skarv/object-eraser/pkg/mask"
	"github.com/skarv/object-eraser/pkg/morph"
)

// Strategy selects how a rough mask becomes the refined mask.
type Strategy int

const (
	// StrategyMorphological runs only the pure morphology pipeline.
	StrategyMorphological Strategy = iota
	// StrategySnap runs morphology and then snaps the result to
	// model-predicted object boundaries.
	StrategySnap
)

// String returns the config-file name of the strategy.
func (s Strategy) String() string {
	switch s {
	case StrategyMorphological:
		return "morphological"
	case StrategySnap:
		return "snap"
	default:
		return "unknown"
	}
}

// ParseStrategy converts a config-file name into a Strategy.
func ParseStrategy(name string) (Strategy, error) {
	switch name {
	case "morphological":
		return StrategyMorphological, nil
	case "snap":
		return StrategySnap, nil
	default:
		return 0, fmt.Errorf("unknown refinement strategy: %q", name)
	}
}

// Refinement is the shared mask-to-mask contract the session coordinator
// invokes regardless of strategy. Implementations must treat the input as a
// snapshot and return a freshly owned mask (or the input itself, unmodified).
type Refinement interface {
	Refine(ctx context.Context, img image.Image, rough *mask.Mask) *mask.Mask
}

// NewRefinement builds the Refinement for the given strategy. The snap
// adapter may be nil for StrategyMorphological.
func NewRefinement(strategy Strategy, refiner *morph.Refiner, adapter *SnapAdapter) Refinement {
	if strategy == StrategySnap && adapter != nil {
		return snapRefinement{refiner: refiner, adapter: adapter}
	}
	return morphRefinement{refiner: refiner}
}

type morphRefinement struct {
	refiner *morph.Refiner
}

func (r morphRefinement) Refine(_ context.Context, _ image.Image, rough *mask.Mask) *mask.Mask {
	return r.refiner.Refine(rough)
}

type snapRefinement struct {
	refiner *morph.Refiner
	adapter *SnapAdapter
}

func (r snapRefinement) Refine(ctx context.Context, img image.Image, rough *mask.Mask) *mask.Mask {
	cleaned := r.refiner.Refine(rough)
	return r.adapter.Snap(ctx, img, cleaned)
}
