// Package objecteraser implements the interactive mask pipeline behind a
// stroke-based object removal tool.
//
// The user marks an object with freehand strokes; the pipeline turns the
// accumulated strokes into a raster mask, cleans it with morphological
// operators, optionally snaps it to true object boundaries via a
// segmentation model, and hands the final mask to an inpainting backend.
//
// Basic usage:
//
//	package main
//
//	import (
//		"context"
//		"log"
//
//		objecteraser "github.com/skarv/object-eraser"
//		"github.com/skarv/object-eraser/pkg/lama"
//		"github.com/skarv/object-eraser/pkg/sam"
//		"github.com/skarv/object-eraser/pkg/stroke"
//	)
//
//	func main() {
//		segClient, _ := sam.NewClient("http://localhost:8500")
//		inpaintClient, _ := lama.NewClient("http://localhost:8600")
//		eraser := objecteraser.NewWithClients(segClient, inpaintClient)
//
//		img := loadImage("photo.jpg")
//		strokes := []stroke.Stroke{{
//			Points: []stroke.Point{{X: 0.4, Y: 0.5}, {X: 0.6, Y: 0.5}},
//			Radius: 24,
//		}}
//
//		result, mask, err := eraser.Erase(context.Background(), img, strokes)
//		if err != nil {
//			log.Fatal(err)
//		}
//		_ = mask
//		saveImage(result, "photo_clean.jpg")
//	}
//
// The package consists of five main components:
//
// 1. Rasterizer (pkg/stroke): turns strokes into a binary mask
// 2. Refiner (pkg/morph): cleans the raw mask with binary morphology
// 3. SnapAdapter (pkg/segment): snaps the mask to model-predicted boundaries
// 4. Generator (pkg/overlay): renders the translucent removal preview
// 5. Coordinator (pkg/session): debounces, cancels, and applies edits
//
// For interactive use, NewSession wires the components into a
// session.Coordinator that owns all mutable state, debounces refinement
// behind the user's stroke activity, and guarantees that a stale refinement
// can never overwrite a newer mask.
package objecteraser

import (
	"context"
	"fmt"
	"image"

	"github.com/skarv/object-eraser/pkg/client"
	"github.com/skarv/object-eraser/pkg/mask"
	"github.com/skarv/object-eraser/pkg/morph"
	"github.com/skarv/object-eraser/pkg/overlay"
	"github.com/skarv/object-eraser/pkg/segment"
	"github.com/skarv/object-eraser/pkg/session"
	"github.com/skarv/object-eraser/pkg/stroke"
)

// Version of the object eraser library
const Version = "1.0.0"

// Eraser bundles the pipeline components for one-shot use and constructs
// session coordinators for interactive use.
type Eraser struct {
	rasterizer *stroke.Rasterizer
	refiner    *morph.Refiner
	snap       *segment.SnapAdapter
	preview    *overlay.Generator
	inpainter  client.InpaintClient
	strategy   segment.Strategy
}

// New creates an Eraser that refines masks with pure morphology only and has
// no inpainting backend attached.
func New() *Eraser {
	return &Eraser{
		rasterizer: stroke.NewRasterizer(),
		refiner:    morph.New(),
		preview:    overlay.New(),
		strategy:   segment.StrategyMorphological,
	}
}

// NewWithClients creates an Eraser that snaps masks to a segmentation model
// and applies them through an inpainting backend. segClient may be nil to
// disable snapping; inpaint may be nil to disable Erase and auto-apply.
func NewWithClients(segClient client.SegmentClient, inpaint client.InpaintClient) *Eraser {
	e := New()
	e.inpainter = inpaint
	if segClient != nil {
		e.snap = segment.New(segClient)
		e.strategy = segment.StrategySnap
	}
	return e
}

// SetSnapConfig replaces the snap adapter's tuning parameters. Only
// meaningful when a segmentation client is attached.
func (e *Eraser) SetSnapConfig(segClient client.SegmentClient, cfg segment.Config) {
	e.snap = segment.NewWithConfig(segClient, cfg)
	e.strategy = segment.StrategySnap
}

// SetMorphConfig replaces the morphological refiner's tuning parameters.
func (e *Eraser) SetMorphConfig(cfg morph.Config) {
	e.refiner = morph.NewWithConfig(cfg)
}

// DeriveMask rasterizes strokes and runs the morphological cleanup, without
// touching any model. Useful for previews and tests.
func (e *Eraser) DeriveMask(strokes []stroke.Stroke, width, height int) (*mask.Mask, error) {
	rough, err := e.rasterizer.Rasterize(strokes, width, height)
	if err != nil {
		return nil, err
	}
	return e.refiner.Refine(rough), nil
}

// RefineMask runs the configured refinement strategy on an already
// rasterized rough mask.
func (e *Eraser) RefineMask(ctx context.Context, img image.Image, rough *mask.Mask) *mask.Mask {
	return segment.NewRefinement(e.strategy, e.refiner, e.snap).Refine(ctx, img, rough)
}

// Overlay renders a mask as a translucent preview image.
func (e *Eraser) Overlay(m *mask.Mask) *image.NRGBA {
	return e.preview.Render(m)
}

// Erase runs the full one-shot pipeline: rasterize, refine, inpaint. It
// returns the edited image together with the mask that was applied.
func (e *Eraser) Erase(ctx context.Context, img image.Image, strokes []stroke.Stroke) (image.Image, *mask.Mask, error) {
	if e.inpainter == nil {
		return nil, nil, fmt.Errorf("no inpainting backend attached")
	}

	b := img.Bounds()
	rough, err := e.rasterizer.Rasterize(strokes, b.Dx(), b.Dy())
	if err != nil {
		return nil, nil, fmt.Errorf("rasterization failed: %w", err)
	}

	refined := e.RefineMask(ctx, img, rough)
	if refined.Empty() {
		return img, refined, nil
	}

	out, err := e.inpainter.Inpaint(ctx, img, refined)
	if err != nil {
		return nil, refined, fmt.Errorf("inpainting failed: %w", err)
	}
	return out, refined, nil
}

// NewSession creates an interactive session coordinator for the given image
// using this Eraser's components and strategy. The caller must Start it and
// Stop it when the tool exits.
func (e *Eraser) NewSession(img image.Image, notify func(session.Update), cfg session.Config) *session.Coordinator {
	refinement := segment.NewRefinement(e.strategy, e.refiner, e.snap)
	return session.NewWithConfig(img, refinement, e.inpainter, notify, cfg)
}
