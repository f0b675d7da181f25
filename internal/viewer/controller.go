// Package viewer owns the interactive state of the model viewer: which model is
// selected, its load state, and the user transform applied when drawing it.
package viewer

import (
	"context"
	"errors"
	"image"
	"sync"
	"time"

	"github.com/go-gl/mathgl/mgl32"
	"go.uber.org/zap"

	"github.com/Faultbox/model-viewer/internal/capture"
	"github.com/Faultbox/model-viewer/internal/scene"
)

// ModelLoader produces a centered, renderable node for a model reference.
type ModelLoader interface {
	Load(ctx context.Context, ref string) (*scene.Node, error)
}

// Surface is the render target frames are captured from.
type Surface interface {
	ReadFrame() (image.Image, error)
}

// loadResult is a finished load waiting to be applied by Update.
type loadResult struct {
	gen     uint64
	ref     string
	node    *scene.Node
	err     error
	elapsed time.Duration
}

// Controller drives model selection and transform state from a single thread.
// Loads run in the background; their results only take effect in Update, and only
// when they still belong to the current selection.
//
// Except for the internal result queue, Controller is not safe for concurrent use.
type Controller struct {
	loader   ModelLoader
	log      *zap.Logger
	minScale float64

	selection string
	gen       uint64
	state     State
	node      *scene.Node
	err       error
	transform Transform
	surface   Surface
	cancel    context.CancelFunc

	mu       sync.Mutex
	pending  []loadResult
	inflight sync.WaitGroup
}

// Option configures a Controller.
type Option func(*Controller)

// WithLogger sets the controller's logger.
func WithLogger(log *zap.Logger) Option {
	return func(c *Controller) {
		if log != nil {
			c.log = log
		}
	}
}

// WithMinScale overrides the scale floor. Non-positive values are ignored.
func WithMinScale(floor float64) Option {
	return func(c *Controller) {
		if floor > 0 {
			c.minScale = floor
		}
	}
}

// NewController creates a controller with nothing selected.
func NewController(l ModelLoader, opts ...Option) *Controller {
	c := &Controller{
		loader:    l,
		log:       zap.NewNop(),
		minScale:  MinScale,
		state:     StateUnloaded,
		transform: NewTransform(),
	}
	for _, opt := range opts {
		opt(c)
	}
	c.resetTransform()
	return c
}

// resetTransform restores the default transform, lifted to the scale floor when
// the floor is above the default scale.
func (c *Controller) resetTransform() {
	c.transform.Reset()
	c.transform.Scale = max(c.transform.Scale, c.minScale)
}

// SelectModel makes ref the active model, resets the transform and starts loading it.
// The previous node is dropped immediately and any earlier load is abandoned.
func (c *Controller) SelectModel(ref string) {
	if c.cancel != nil {
		c.cancel()
	}

	c.gen++
	c.selection = ref
	c.resetTransform()
	c.node = nil
	c.err = nil
	c.state = StateLoading

	ctx, cancel := context.WithCancel(context.Background())
	c.cancel = cancel

	c.log.Info("model selected", zap.String("ref", ref), zap.Uint64("generation", c.gen))

	gen := c.gen
	c.inflight.Add(1)
	go func() {
		defer c.inflight.Done()
		start := time.Now()
		node, err := c.loader.Load(ctx, ref)

		c.mu.Lock()
		c.pending = append(c.pending, loadResult{gen: gen, ref: ref, node: node, err: err, elapsed: time.Since(start)})
		c.mu.Unlock()
	}()
}

// Update applies finished loads. Results for anything but the current selection are
// discarded. It returns true when the state of the active model changed.
func (c *Controller) Update() bool {
	c.mu.Lock()
	results := c.pending
	c.pending = nil
	c.mu.Unlock()

	changed := false
	for _, r := range results {
		if r.gen != c.gen || r.ref != c.selection {
			c.log.Debug("discarding stale load",
				zap.String("ref", r.ref),
				zap.Uint64("generation", r.gen),
				zap.Uint64("current", c.gen),
			)
			continue
		}
		if c.state != StateLoading {
			continue
		}

		if r.err != nil {
			c.state = StateErrored
			c.err = r.err
			c.log.Warn("model load failed", zap.String("ref", r.ref), zap.Error(r.err))
		} else {
			c.state = StateReady
			c.node = r.node
			c.log.Info("model ready",
				zap.String("ref", r.ref),
				zap.Int("meshes", r.node.MeshCount()),
				zap.Int("triangles", r.node.TriangleCount()),
				zap.Duration("elapsed", r.elapsed),
			)
		}
		if c.cancel != nil {
			c.cancel()
			c.cancel = nil
		}
		changed = true
	}
	return changed
}

// Wait blocks until every started load has returned. Results still need Update.
func (c *Controller) Wait() {
	c.inflight.Wait()
}

// Close abandons any in-flight load and waits for it to return.
func (c *Controller) Close() {
	if c.cancel != nil {
		c.cancel()
		c.cancel = nil
	}
	c.inflight.Wait()
}

// AdjustRotation adds delta radians to the given axis. Invalid axes are ignored.
func (c *Controller) AdjustRotation(axis Axis, delta float64) {
	if !axis.Valid() {
		c.log.Warn("ignoring rotation on invalid axis", zap.Stringer("axis", axis))
		return
	}
	c.transform.Rotate(axis, delta)
}

// AdjustScale adds delta to the scale, clamped to the configured floor.
func (c *Controller) AdjustScale(delta float64) {
	c.transform.GrowWithFloor(delta, c.minScale)
}

// AttachSurface sets the surface CaptureFrame reads from. The controller does not own it.
func (c *Controller) AttachSurface(s Surface) {
	c.surface = s
}

// CaptureFrame returns the current rendered frame as PNG bytes. It fails with
// ErrCaptureUnavailable when no surface is attached or the model is not ready.
// Selection and transform are never modified.
func (c *Controller) CaptureFrame() ([]byte, error) {
	img, err := c.CaptureImage()
	if err != nil {
		return nil, err
	}
	return capture.EncodePNG(img)
}

// CaptureImage is CaptureFrame without the PNG encoding.
func (c *Controller) CaptureImage() (image.Image, error) {
	if c.surface == nil || c.state != StateReady {
		return nil, ErrCaptureUnavailable
	}
	img, err := c.surface.ReadFrame()
	if err != nil {
		return nil, errors.Join(ErrCaptureUnavailable, err)
	}
	return img, nil
}

// State returns the load state of the active model.
func (c *Controller) State() State { return c.state }

// Node returns the active model's node, or nil unless the state is Ready.
func (c *Controller) Node() *scene.Node { return c.node }

// Err returns the load error when the state is Errored.
func (c *Controller) Err() error { return c.err }

// Selection returns the active model reference.
func (c *Controller) Selection() string { return c.selection }

// Transform returns a copy of the current transform.
func (c *Controller) Transform() Transform { return c.transform }

// ModelMatrix returns the current transform as a model matrix.
func (c *Controller) ModelMatrix() mgl32.Mat4 { return c.transform.Matrix() }
