// Package session coordinates stroke accumulation, debounced refinement, and
// mask application for one editing session. The coordinator is the single
// writer of all session state: strokes, rough and refined masks, and the
// preview overlay. Everything mutable lives on one goroutine; commands arrive
// over a channel and results of asynchronous work are re-injected the same
// way, so a stale refinement or apply can never overwrite a newer mask.
package session

import (
	"context"
	"image"
	"log/slog"
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/skarv/object-eraser/pkg/client"
	"github.com/skarv/object-eraser/pkg/mask"
	"github.com/skarv/object-eraser/pkg/overlay"
	"github.com/skarv/object-eraser/pkg/segment"
	"github.com/skarv/object-eraser/pkg/stroke"
)

// Update is pushed to the UI consumer on every state change.
type Update struct {
	Phase           Phase
	Overlay         *image.NRGBA // current preview, nil when the session is empty
	Label           string       // object label from the describer, may be empty
	CanManualRefine bool
	CanAccept       bool
	CanReject       bool
	Err             error // non-fatal error surfaced to the user, if any
}

// Config holds session coordinator settings.
type Config struct {
	DebounceDelay time.Duration // quiet period after the last stroke
	AutoApply     bool          // apply automatically once refinement completes
}

// DefaultConfig returns the settings used by the interactive tool.
func DefaultConfig() Config {
	return Config{
		DebounceDelay: 600 * time.Millisecond,
		AutoApply:     true,
	}
}

// Describer names the object under the refined mask. Optional; failures are
// swallowed and only cost the label.
type Describer interface {
	Describe(ctx context.Context, img image.Image, box mask.BoundingBox) (string, error)
}

type cmdKind int

const (
	cmdAddStroke cmdKind = iota
	cmdManualRefine
	cmdAcceptRefined
	cmdRejectRefined
	cmdReset
	cmdCancel
	cmdStop
)

type command struct {
	kind cmdKind
	s    stroke.Stroke
}

type refineResult struct {
	gen     uint64
	refined *mask.Mask
	label   string
}

type applyResult struct {
	gen uint64
	img image.Image
	err error
}

// Coordinator owns one editing session. Construct it, Start it, feed it
// commands, and Stop it when the tool exits; it holds no global state.
type Coordinator struct {
	cfg        Config
	rasterizer *stroke.Rasterizer
	refinement segment.Refinement
	inpainter  client.InpaintClient
	preview    *overlay.Generator
	describer  Describer
	notify     func(Update)
	logger     *slog.Logger

	cmds       chan command
	refineDone chan refineResult
	applyDone  chan applyResult
	stopped    chan struct{}

	imgMu sync.RWMutex
	img   image.Image

	// Owned by the run goroutine.
	strokes []stroke.Stroke
	rough   *mask.Mask
	refined *mask.Mask
	ov      *image.NRGBA
	label   string
	phase   Phase
	timer   *time.Timer
	timerC  <-chan time.Time
	gen     uint64
	cancel  context.CancelFunc
}

// New creates a Coordinator with default configuration. notify receives an
// Update on every state change; it is invoked from the coordinator goroutine
// and must not block. inpainter may be nil when auto-apply is disabled.
func New(img image.Image, refinement segment.Refinement, inpainter client.InpaintClient, notify func(Update)) *Coordinator {
	return NewWithConfig(img, refinement, inpainter, notify, DefaultConfig())
}

// NewWithConfig creates a Coordinator with custom configuration.
func NewWithConfig(img image.Image, refinement segment.Refinement, inpainter client.InpaintClient, notify func(Update), cfg Config) *Coordinator {
	if notify == nil {
		notify = func(Update) {}
	}
	return &Coordinator{
		cfg:        cfg,
		rasterizer: stroke.NewRasterizer(),
		refinement: refinement,
		inpainter:  inpainter,
		preview:    overlay.New(),
		notify:     notify,
		logger:     slog.Default().With("component", "session", "id", uuid.NewString()),
		cmds:       make(chan command, 16),
		refineDone: make(chan refineResult, 1),
		applyDone:  make(chan applyResult, 1),
		stopped:    make(chan struct{}),
		img:        img,
	}
}

// SetDescriber attaches an optional object labeler. Must be called before
// Start.
func (c *Coordinator) SetDescriber(d Describer) {
	c.describer = d
}

// Start launches the coordinator goroutine.
func (c *Coordinator) Start() {
	go c.run()
}

// Stop cancels all pending work, releases session buffers, and waits for the
// coordinator goroutine to exit. The session commits nothing on Stop.
func (c *Coordinator) Stop() {
	c.enqueue(command{kind: cmdStop})
	<-c.stopped
}

// AddStroke appends a stroke to the session and re-arms the debounce timer.
// Any in-flight refinement or apply is superseded: its result will be
// discarded when it completes.
func (c *Coordinator) AddStroke(s stroke.Stroke) {
	c.enqueue(command{kind: cmdAddStroke, s: s})
}

// ManualRefine bypasses the debounce timer and refines immediately.
func (c *Coordinator) ManualRefine() {
	c.enqueue(command{kind: cmdManualRefine})
}

// AcceptRefinedMask applies the refined mask now. Only meaningful in the
// ready-to-apply phase, which is only observable when auto-apply is off.
func (c *Coordinator) AcceptRefinedMask() {
	c.enqueue(command{kind: cmdAcceptRefined})
}

// RejectRefinedMask discards the refined mask and returns to accumulating,
// keeping the strokes so the user can adjust them.
func (c *Coordinator) RejectRefinedMask() {
	c.enqueue(command{kind: cmdRejectRefined})
}

// Reset clears strokes, masks, and overlay and returns to idle.
func (c *Coordinator) Reset() {
	c.enqueue(command{kind: cmdReset})
}

// Cancel discards all pending work and session buffers without committing.
func (c *Coordinator) Cancel() {
	c.enqueue(command{kind: cmdCancel})
}

// CurrentImage returns the current committed image.
func (c *Coordinator) CurrentImage() image.Image {
	c.imgMu.RLock()
	defer c.imgMu.RUnlock()
	return c.img
}

func (c *Coordinator) enqueue(cmd command) {
	select {
	case c.cmds <- cmd:
	case <-c.stopped:
	}
}

func (c *Coordinator) run() {
	c.phase = PhaseIdle
	c.push(nil)

	for {
		select {
		case cmd := <-c.cmds:
			switch cmd.kind {
			case cmdAddStroke:
				c.handleAddStroke(cmd.s)
			case cmdManualRefine:
				c.handleManualRefine()
			case cmdAcceptRefined:
				c.handleAccept()
			case cmdRejectRefined:
				c.handleReject()
			case cmdReset, cmdCancel:
				c.handleReset()
			case cmdStop:
				c.supersede()
				c.clearSession()
				close(c.stopped)
				return
			}

		case <-c.timerC:
			c.timerC = nil
			c.beginRefine()

		case res := <-c.refineDone:
			if res.gen != c.gen {
				// Superseded while in flight; a newer stroke set owns the
				// session now.
				continue
			}
			c.finishRefine(res)

		case res := <-c.applyDone:
			if res.gen != c.gen {
				continue
			}
			c.finishApply(res)
		}
	}
}

func (c *Coordinator) handleAddStroke(s stroke.Stroke) {
	c.supersede()
	c.stopTimer()

	c.strokes = append(c.strokes, s)

	img := c.CurrentImage()
	b := img.Bounds()
	rough, err := c.rasterizer.Rasterize(c.strokes, b.Dx(), b.Dy())
	if err != nil {
		// Only reachable with a degenerate image; nothing sane to render.
		c.logger.Error("rasterization failed", "error", err)
		return
	}

	c.rough = rough
	c.refined = nil
	c.label = ""
	c.ov = c.preview.Render(rough)

	c.armTimer()
	c.phase = PhaseAccumulating
	c.push(nil)
}

func (c *Coordinator) handleManualRefine() {
	if len(c.strokes) == 0 {
		return
	}
	c.supersede()
	c.stopTimer()
	c.beginRefine()
}

func (c *Coordinator) handleAccept() {
	if c.phase != PhaseReadyToApply || c.refined == nil {
		return
	}
	c.beginApply()
}

func (c *Coordinator) handleReject() {
	if c.phase != PhaseReadyToApply {
		return
	}
	c.refined = nil
	c.label = ""
	if c.rough != nil {
		c.ov = c.preview.Render(c.rough)
	}
	c.phase = PhaseAccumulating
	c.push(nil)
}

func (c *Coordinator) handleReset() {
	c.supersede()
	c.stopTimer()
	c.clearSession()
	c.phase = PhaseIdle
	c.push(nil)
}

func (c *Coordinator) beginRefine() {
	if c.rough == nil {
		return
	}

	c.phase = PhaseRefining
	c.push(nil)

	ctx, cancel := context.WithCancel(context.Background())
	c.cancel = cancel
	gen := c.gen

	img := c.CurrentImage()
	snapshot := c.rough.Clone()
	describer := c.describer

	go func() {
		refined := c.refinement.Refine(ctx, img, snapshot)

		label := ""
		if describer != nil && ctx.Err() == nil {
			if box, ok := refined.Bounds(); ok {
				if l, err := describer.Describe(ctx, img, box); err == nil {
					label = l
				}
			}
		}

		select {
		case c.refineDone <- refineResult{gen: gen, refined: refined, label: label}:
		case <-ctx.Done():
		}
	}()
}

func (c *Coordinator) finishRefine(res refineResult) {
	c.clearCancel()

	c.refined = res.refined
	c.label = res.label
	c.ov = c.preview.Render(res.refined)

	c.phase = PhaseReadyToApply
	c.push(nil)

	if c.cfg.AutoApply {
		c.beginApply()
	}
}

func (c *Coordinator) beginApply() {
	if c.inpainter == nil {
		return
	}
	if c.refined.Empty() {
		// Nothing to remove; treat as a completed no-op edit.
		c.clearSession()
		c.phase = PhaseIdle
		c.push(nil)
		return
	}

	c.phase = PhaseApplying
	c.push(nil)

	ctx, cancel := context.WithCancel(context.Background())
	c.cancel = cancel
	gen := c.gen

	img := c.CurrentImage()
	refined := c.refined.Clone()

	go func() {
		out, err := c.inpainter.Inpaint(ctx, img, refined)

		select {
		case c.applyDone <- applyResult{gen: gen, img: out, err: err}:
		case <-ctx.Done():
		}
	}()
}

func (c *Coordinator) finishApply(res applyResult) {
	c.clearCancel()

	if res.err != nil {
		// Keep the strokes and masks so the user can retry or adjust; the
		// edit history is untouched.
		c.logger.Warn("apply failed", "error", res.err)
		c.phase = PhaseAccumulating
		c.push(res.err)
		return
	}

	c.setImage(res.img)
	c.clearSession()
	c.phase = PhaseIdle
	c.push(nil)
}

// supersede invalidates every in-flight operation: the generation bump makes
// their eventual results stale, and the cancel lets them stop early.
func (c *Coordinator) supersede() {
	c.gen++
	c.clearCancel()
}

func (c *Coordinator) clearCancel() {
	if c.cancel != nil {
		c.cancel()
		c.cancel = nil
	}
}

// clearSession releases every session buffer. Masks and overlays are
// full-resolution pixel buffers, so superseded ones must not linger.
func (c *Coordinator) clearSession() {
	c.strokes = nil
	c.rough = nil
	c.refined = nil
	c.ov = nil
	c.label = ""
}

func (c *Coordinator) setImage(img image.Image) {
	c.imgMu.Lock()
	c.img = img
	c.imgMu.Unlock()
}

func (c *Coordinator) armTimer() {
	if c.timer == nil {
		c.timer = time.NewTimer(c.cfg.DebounceDelay)
	} else {
		c.timer.Reset(c.cfg.DebounceDelay)
	}
	c.timerC = c.timer.C
}

func (c *Coordinator) stopTimer() {
	if c.timer != nil && !c.timer.Stop() {
		// Drain a fire that raced the stop so a later Reset starts clean.
		select {
		case <-c.timer.C:
		default:
		}
	}
	c.timerC = nil
}

func (c *Coordinator) push(err error) {
	c.notify(Update{
		Phase:           c.phase,
		Overlay:         c.ov,
		Label:           c.label,
		CanManualRefine: c.phase == PhaseAccumulating && len(c.strokes) > 0,
		CanAccept:       c.phase == PhaseReadyToApply,
		CanReject:       c.phase == PhaseReadyToApply,
		Err:             err,
	})
}
