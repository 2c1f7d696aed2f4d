package session

import (
	"context"
	"errors"
	"image"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/skarv/object-eraser/pkg/mask"
	"github.com/skarv/object-eraser/pkg/stroke"
)

const (
	pollInterval = 5 * time.Millisecond
	waitTimeout  = 3 * time.Second
)

func testImage(w, h int) image.Image {
	return image.NewNRGBA(image.Rect(0, 0, w, h))
}

func strokeAt(x, y, radius float64) stroke.Stroke {
	return stroke.Stroke{
		Points: []stroke.Point{{X: x, Y: y}},
		Radius: radius,
	}
}

// fakeRefinement returns the rough snapshot unchanged and records every call.
// One call can be gated to simulate slow model inference.
type fakeRefinement struct {
	mu        sync.Mutex
	snapshots []*mask.Mask
	gate      chan struct{}
	gateCall  int
	fixed     *mask.Mask // returned instead of the snapshot when set
}

func (f *fakeRefinement) Refine(_ context.Context, _ image.Image, rough *mask.Mask) *mask.Mask {
	f.mu.Lock()
	f.snapshots = append(f.snapshots, rough.Clone())
	n := len(f.snapshots)
	gate := f.gate
	gateCall := f.gateCall
	fixed := f.fixed
	f.mu.Unlock()

	if gate != nil && n == gateCall {
		<-gate
	}
	if fixed != nil {
		return fixed
	}
	return rough
}

func (f *fakeRefinement) calls() int {
	f.mu.Lock()
	defer f.mu.Unlock()
	return len(f.snapshots)
}

func (f *fakeRefinement) snapshot(i int) *mask.Mask {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.snapshots[i]
}

type fakeInpainter struct {
	mu     sync.Mutex
	count  int
	result image.Image
	err    error
}

func (f *fakeInpainter) Inpaint(_ context.Context, _ image.Image, _ *mask.Mask) (image.Image, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.count++
	if f.err != nil {
		return nil, f.err
	}
	return f.result, nil
}

func (f *fakeInpainter) calls() int {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.count
}

// recorder collects every Update pushed by the coordinator.
type recorder struct {
	mu      sync.Mutex
	updates []Update
}

func (r *recorder) notify(u Update) {
	r.mu.Lock()
	r.updates = append(r.updates, u)
	r.mu.Unlock()
}

func (r *recorder) last() Update {
	r.mu.Lock()
	defer r.mu.Unlock()
	if len(r.updates) == 0 {
		return Update{}
	}
	return r.updates[len(r.updates)-1]
}

func (r *recorder) lastPhaseIs(p Phase) func() bool {
	return func() bool { return r.last().Phase == p }
}

func (r *recorder) sawError() bool {
	r.mu.Lock()
	defer r.mu.Unlock()
	for _, u := range r.updates {
		if u.Err != nil {
			return true
		}
	}
	return false
}

func TestDebounceCollapsesStrokesIntoOneRefinement(t *testing.T) {
	ref := &fakeRefinement{}
	rec := &recorder{}

	c := NewWithConfig(testImage(64, 64), ref, nil, rec.notify, Config{
		DebounceDelay: 50 * time.Millisecond,
		AutoApply:     false,
	})
	c.Start()
	defer c.Stop()

	c.AddStroke(strokeAt(0.3, 0.5, 6))
	c.AddStroke(strokeAt(0.5, 0.5, 6))
	c.AddStroke(strokeAt(0.7, 0.5, 6))

	require.Eventually(t, rec.lastPhaseIs(PhaseReadyToApply), waitTimeout, pollInterval)

	assert.Equal(t, 1, ref.calls(), "strokes within the debounce window must collapse into one refinement")
	assert.True(t, rec.last().CanAccept)
	assert.True(t, rec.last().CanReject)
}

func TestLastStrokeWins(t *testing.T) {
	gate := make(chan struct{})
	ref := &fakeRefinement{gate: gate, gateCall: 1}
	rec := &recorder{}

	c := NewWithConfig(testImage(64, 64), ref, nil, rec.notify, Config{
		DebounceDelay: 20 * time.Millisecond,
		AutoApply:     false,
	})
	c.Start()
	defer c.Stop()

	// First stroke starts a refinement that hangs on the gate.
	c.AddStroke(strokeAt(0.25, 0.5, 5))
	require.Eventually(t, rec.lastPhaseIs(PhaseRefining), waitTimeout, pollInterval)

	// Second stroke supersedes it mid-flight.
	c.AddStroke(strokeAt(0.75, 0.5, 5))
	require.Eventually(t, rec.lastPhaseIs(PhaseReadyToApply), waitTimeout, pollInterval)
	close(gate)

	require.Equal(t, 2, ref.calls())
	assert.Greater(t, ref.snapshot(1).Count(), ref.snapshot(0).Count(),
		"second refinement must see both strokes")

	// The committed overlay reflects the full stroke set, never the
	// intermediate one.
	ov := rec.last().Overlay
	require.NotNil(t, ov)
	assert.NotZero(t, ov.NRGBAAt(48, 32).A, "second stroke missing from the final overlay")
	assert.NotZero(t, ov.NRGBAAt(16, 32).A, "first stroke missing from the final overlay")
}

func TestAutoApplyReplacesImage(t *testing.T) {
	original := testImage(64, 64)
	edited := testImage(64, 64)
	ref := &fakeRefinement{}
	inp := &fakeInpainter{result: edited}
	rec := &recorder{}

	c := NewWithConfig(original, ref, inp, rec.notify, Config{
		DebounceDelay: 20 * time.Millisecond,
		AutoApply:     true,
	})
	c.Start()
	defer c.Stop()

	c.AddStroke(strokeAt(0.5, 0.5, 8))

	require.Eventually(t, func() bool {
		return rec.last().Phase == PhaseIdle && c.CurrentImage() == edited
	}, waitTimeout, pollInterval)

	assert.Equal(t, 1, inp.calls())
	assert.Nil(t, rec.last().Overlay, "session buffers must be released after commit")
	assert.False(t, rec.last().CanManualRefine)
}

func TestApplyFailureKeepsStrokes(t *testing.T) {
	original := testImage(64, 64)
	ref := &fakeRefinement{}
	inp := &fakeInpainter{err: errors.New("inpaint backend down")}
	rec := &recorder{}

	c := NewWithConfig(original, ref, inp, rec.notify, Config{
		DebounceDelay: 20 * time.Millisecond,
		AutoApply:     true,
	})
	c.Start()
	defer c.Stop()

	c.AddStroke(strokeAt(0.5, 0.5, 8))

	require.Eventually(t, func() bool {
		return rec.sawError() && rec.last().Phase == PhaseAccumulating
	}, waitTimeout, pollInterval)

	assert.Same(t, original, c.CurrentImage(), "failed apply must not touch the image")
	assert.True(t, rec.last().CanManualRefine, "strokes must survive a failed apply")

	// The user can retry from the retained strokes.
	c.ManualRefine()
	require.Eventually(t, func() bool { return inp.calls() == 2 }, waitTimeout, pollInterval)
}

func TestAcceptAppliesRefinedMask(t *testing.T) {
	edited := testImage(64, 64)
	ref := &fakeRefinement{}
	inp := &fakeInpainter{result: edited}
	rec := &recorder{}

	c := NewWithConfig(testImage(64, 64), ref, inp, rec.notify, Config{
		DebounceDelay: 20 * time.Millisecond,
		AutoApply:     false,
	})
	c.Start()
	defer c.Stop()

	c.AddStroke(strokeAt(0.5, 0.5, 8))
	require.Eventually(t, rec.lastPhaseIs(PhaseReadyToApply), waitTimeout, pollInterval)
	require.Zero(t, inp.calls(), "nothing may be applied before the user accepts")

	c.AcceptRefinedMask()
	require.Eventually(t, func() bool {
		return rec.last().Phase == PhaseIdle && c.CurrentImage() == edited
	}, waitTimeout, pollInterval)
}

func TestRejectReturnsToAccumulating(t *testing.T) {
	ref := &fakeRefinement{}
	rec := &recorder{}

	c := NewWithConfig(testImage(64, 64), ref, nil, rec.notify, Config{
		DebounceDelay: 20 * time.Millisecond,
		AutoApply:     false,
	})
	c.Start()
	defer c.Stop()

	c.AddStroke(strokeAt(0.5, 0.5, 8))
	require.Eventually(t, rec.lastPhaseIs(PhaseReadyToApply), waitTimeout, pollInterval)

	c.RejectRefinedMask()
	require.Eventually(t, rec.lastPhaseIs(PhaseAccumulating), waitTimeout, pollInterval)

	assert.True(t, rec.last().CanManualRefine, "strokes stay after a reject")
	assert.NotNil(t, rec.last().Overlay, "rough overlay is restored after a reject")
}

func TestResetClearsSession(t *testing.T) {
	ref := &fakeRefinement{}
	rec := &recorder{}

	c := NewWithConfig(testImage(64, 64), ref, nil, rec.notify, Config{
		DebounceDelay: time.Hour, // never fires on its own
		AutoApply:     false,
	})
	c.Start()
	defer c.Stop()

	c.AddStroke(strokeAt(0.5, 0.5, 8))
	require.Eventually(t, rec.lastPhaseIs(PhaseAccumulating), waitTimeout, pollInterval)

	c.Reset()
	require.Eventually(t, func() bool {
		u := rec.last()
		return u.Phase == PhaseIdle && u.Overlay == nil && !u.CanManualRefine
	}, waitTimeout, pollInterval)

	assert.Zero(t, ref.calls(), "reset before the debounce fires must prevent refinement")
}

func TestEmptyRefinedMaskIsANoOpApply(t *testing.T) {
	empty, err := mask.New(64, 64)
	require.NoError(t, err)

	ref := &fakeRefinement{fixed: empty}
	inp := &fakeInpainter{result: testImage(64, 64)}
	rec := &recorder{}

	original := testImage(64, 64)
	c := NewWithConfig(original, ref, inp, rec.notify, Config{
		DebounceDelay: 20 * time.Millisecond,
		AutoApply:     true,
	})
	c.Start()
	defer c.Stop()

	c.AddStroke(strokeAt(0.5, 0.5, 8))

	require.Eventually(t, func() bool {
		return ref.calls() == 1 && rec.last().Phase == PhaseIdle
	}, waitTimeout, pollInterval)

	assert.Zero(t, inp.calls(), "an empty refined mask must not reach the inpainter")
	assert.Same(t, original, c.CurrentImage())
}

func TestManualRefineBypassesDebounce(t *testing.T) {
	ref := &fakeRefinement{}
	rec := &recorder{}

	c := NewWithConfig(testImage(64, 64), ref, nil, rec.notify, Config{
		DebounceDelay: time.Hour,
		AutoApply:     false,
	})
	c.Start()
	defer c.Stop()

	// Manual refine with no strokes is ignored.
	c.ManualRefine()

	c.AddStroke(strokeAt(0.5, 0.5, 8))
	require.Eventually(t, rec.lastPhaseIs(PhaseAccumulating), waitTimeout, pollInterval)

	c.ManualRefine()
	require.Eventually(t, rec.lastPhaseIs(PhaseReadyToApply), waitTimeout, pollInterval)
	assert.Equal(t, 1, ref.calls())
}

func TestPhaseString(t *testing.T) {
	names := map[Phase]string{
		PhaseIdle:         "idle",
		PhaseAccumulating: "accumulating",
		PhaseRefining:     "refining",
		PhaseReadyToApply: "ready-to-apply",
		PhaseApplying:     "applying",
	}
	for p, want := range names {
		assert.Equal(t, want, p.String())
	}
}
