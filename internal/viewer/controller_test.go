package viewer

import (
	"bytes"
	"context"
	"errors"
	"image"
	"image/png"
	"math"
	"sync"
	"testing"
	"time"

	"github.com/Faultbox/model-viewer/internal/loader"
	"github.com/Faultbox/model-viewer/internal/scene"
)

// gatedLoader blocks each Load until its reference is released. It ignores
// cancellation so stale results really do arrive late.
type gatedLoader struct {
	mu    sync.Mutex
	gates map[string]chan struct{}
	errs  map[string]error
	calls []string
}

func newGatedLoader() *gatedLoader {
	return &gatedLoader{gates: make(map[string]chan struct{}), errs: make(map[string]error)}
}

func (g *gatedLoader) gate(ref string) chan struct{} {
	g.mu.Lock()
	defer g.mu.Unlock()
	ch, ok := g.gates[ref]
	if !ok {
		ch = make(chan struct{})
		g.gates[ref] = ch
	}
	return ch
}

func (g *gatedLoader) release(ref string) { close(g.gate(ref)) }

func (g *gatedLoader) Load(ctx context.Context, ref string) (*scene.Node, error) {
	g.mu.Lock()
	g.calls = append(g.calls, ref)
	err := g.errs[ref]
	g.mu.Unlock()

	<-g.gate(ref)
	if err != nil {
		return nil, err
	}
	node := scene.NewNode(ref)
	node.Meshes = []*scene.Mesh{{
		Vertices: []scene.Vertex{{Position: [3]float32{0, 0, 0}}, {Position: [3]float32{1, 0, 0}}, {Position: [3]float32{0, 1, 0}}},
		Indices:  []uint32{0, 1, 2},
	}}
	return node, nil
}

// instantLoader resolves every reference immediately.
type instantLoader struct{}

func (instantLoader) Load(ctx context.Context, ref string) (*scene.Node, error) {
	n := scene.NewNode(ref)
	n.Meshes = []*scene.Mesh{{}}
	return n, nil
}

func loadNow(t *testing.T, c *Controller, ref string) {
	t.Helper()
	c.SelectModel(ref)
	c.Wait()
	c.Update()
}

// waitPending polls until n results are queued for Update.
func waitPending(t *testing.T, c *Controller, n int) {
	t.Helper()
	deadline := time.Now().Add(2 * time.Second)
	for time.Now().Before(deadline) {
		c.mu.Lock()
		got := len(c.pending)
		c.mu.Unlock()
		if got >= n {
			return
		}
		time.Sleep(time.Millisecond)
	}
	t.Fatalf("timed out waiting for %d pending results", n)
}

func near(a, b float64) bool { return math.Abs(a-b) < 1e-9 }

func TestNewController_Defaults(t *testing.T) {
	c := NewController(instantLoader{})
	if c.State() != StateUnloaded {
		t.Errorf("state = %s, want Unloaded", c.State())
	}
	if c.Node() != nil || c.Err() != nil || c.Selection() != "" {
		t.Error("expected empty selection")
	}
	if !c.Transform().IsDefault() {
		t.Errorf("transform = %s, want default", c.Transform())
	}
}

func TestSelectModel_LoadsAndBecomesReady(t *testing.T) {
	g := newGatedLoader()
	c := NewController(g)
	defer c.Close()

	c.SelectModel("/models/Duck.glb")
	if c.State() != StateLoading {
		t.Fatalf("state = %s, want Loading", c.State())
	}
	if c.Update() {
		t.Error("Update reported a change before the load finished")
	}
	if c.Node() != nil {
		t.Error("expected no node while loading")
	}

	g.release("/models/Duck.glb")
	c.Wait()
	if !c.Update() {
		t.Fatal("expected Update to apply the finished load")
	}
	if c.State() != StateReady {
		t.Fatalf("state = %s, want Ready", c.State())
	}
	if c.Node() == nil || c.Node().Name != "/models/Duck.glb" {
		t.Errorf("unexpected node %+v", c.Node())
	}
}

func TestSelectModel_StaleResultDiscarded(t *testing.T) {
	g := newGatedLoader()
	c := NewController(g)
	defer c.Close()

	c.SelectModel("a.glb")
	c.SelectModel("b.stl")

	// A finishes first while B is still in flight.
	g.release("a.glb")
	waitPending(t, c, 1)
	if c.Update() {
		t.Error("stale result must not change state")
	}
	if c.State() != StateLoading || c.Node() != nil {
		t.Fatalf("state = %s node = %v, want Loading with no node", c.State(), c.Node())
	}

	g.release("b.stl")
	c.Wait()
	c.Update()
	if c.State() != StateReady || c.Node().Name != "b.stl" {
		t.Fatalf("expected b.stl to be displayed, got state %s node %v", c.State(), c.Node())
	}
}

func TestSelectModel_StaleResultArrivingLast(t *testing.T) {
	g := newGatedLoader()
	c := NewController(g)
	defer c.Close()

	c.SelectModel("a.glb")
	c.SelectModel("b.stl")

	g.release("b.stl")
	waitPending(t, c, 1)
	c.Update()
	if c.Node() == nil || c.Node().Name != "b.stl" {
		t.Fatalf("expected b.stl, got %v", c.Node())
	}

	g.release("a.glb")
	c.Wait()
	if c.Update() {
		t.Error("late stale result must be discarded")
	}
	if c.Node().Name != "b.stl" {
		t.Errorf("stale load overwrote selection: %s", c.Node().Name)
	}
}

func TestSelectModel_SameReferenceTwice(t *testing.T) {
	g := newGatedLoader()
	c := NewController(g)
	defer c.Close()

	c.SelectModel("a.glb")
	first := c.gen
	c.SelectModel("a.glb")

	g.release("a.glb")
	c.Wait()
	c.Update()

	if c.State() != StateReady {
		t.Fatalf("state = %s, want Ready", c.State())
	}
	if c.gen == first {
		t.Error("reselecting must start a new generation")
	}
}

func TestSelectModel_UnsupportedFormatErrors(t *testing.T) {
	l := loader.New(loader.FileFetcher{BaseDir: t.TempDir()})
	c := NewController(l)
	defer c.Close()

	loadNow(t, c, "cloud.xyz")

	if c.State() != StateErrored {
		t.Fatalf("state = %s, want Errored", c.State())
	}
	var unsupported *loader.UnsupportedFormatError
	if !errors.As(c.Err(), &unsupported) {
		t.Errorf("expected UnsupportedFormatError, got %v", c.Err())
	}
	if c.Node() != nil {
		t.Error("expected no node")
	}
}

func TestSelectModel_FailureAfterReadyClearsNode(t *testing.T) {
	g := newGatedLoader()
	g.errs["broken.obj"] = errors.New("decode failed")
	g.release("good.glb")
	g.release("broken.obj")

	c := NewController(g)
	defer c.Close()

	loadNow(t, c, "good.glb")
	if c.State() != StateReady {
		t.Fatalf("state = %s, want Ready", c.State())
	}

	loadNow(t, c, "broken.obj")
	if c.State() != StateErrored {
		t.Fatalf("state = %s, want Errored", c.State())
	}
	if c.Node() != nil {
		t.Error("previous model must not remain displayed after a failed load")
	}
	if c.Err() == nil {
		t.Error("expected load error")
	}
}

func TestSelectModel_ResetsTransform(t *testing.T) {
	c := NewController(instantLoader{})
	defer c.Close()
	loadNow(t, c, "a.glb")

	c.AdjustRotation(AxisX, 1)
	c.AdjustRotation(AxisZ, -3)
	c.AdjustScale(2)

	c.SelectModel("b.obj")
	tr := c.Transform()
	if tr.Scale != 1.0 || tr.Rotation != [3]float64{} {
		t.Errorf("transform not reset: %s", tr)
	}
}

func TestAdjustScale_Floor(t *testing.T) {
	c := NewController(instantLoader{})

	for i := 0; i < 50; i++ {
		c.AdjustScale(-ScaleStep)
		if c.Transform().Scale < MinScale {
			t.Fatalf("scale %v dropped below floor after %d steps", c.Transform().Scale, i+1)
		}
	}
	if got := c.Transform().Scale; got != MinScale {
		t.Errorf("scale = %v, want %v", got, MinScale)
	}

	for i := 0; i < 100; i++ {
		c.AdjustScale(ScaleStep)
	}
	if got := c.Transform().Scale; got < 20 {
		t.Errorf("scale must have no ceiling, got %v", got)
	}
}

func TestAdjustScale_CustomFloor(t *testing.T) {
	c := NewController(instantLoader{}, WithMinScale(0.5))
	c.AdjustScale(-10)
	if got := c.Transform().Scale; got != 0.5 {
		t.Errorf("scale = %v, want 0.5", got)
	}
}

func TestSelectModel_FloorAboveDefaultScale(t *testing.T) {
	c := NewController(instantLoader{}, WithMinScale(1.5))
	defer c.Close()
	if got := c.Transform().Scale; got != 1.5 {
		t.Errorf("initial scale = %v, want 1.5", got)
	}

	c.AdjustScale(2)
	c.SelectModel("a.glb")
	if got := c.Transform().Scale; got != 1.5 {
		t.Errorf("scale after select = %v, want 1.5", got)
	}

	// A floor below the default leaves the default alone.
	c2 := NewController(instantLoader{}, WithMinScale(0.5))
	defer c2.Close()
	c2.SelectModel("a.glb")
	if got := c2.Transform().Scale; got != DefaultScale {
		t.Errorf("scale = %v, want %v", got, DefaultScale)
	}
}

func TestAdjustRotation_InvalidAxisIgnored(t *testing.T) {
	c := NewController(instantLoader{})
	c.AdjustRotation(Axis(7), 1)
	if c.Transform().Rotation != [3]float64{} {
		t.Errorf("rotation changed: %v", c.Transform().Rotation)
	}
}

// stubSurface returns a solid frame.
type stubSurface struct {
	err   error
	reads int
}

func (s *stubSurface) ReadFrame() (image.Image, error) {
	s.reads++
	if s.err != nil {
		return nil, s.err
	}
	return image.NewRGBA(image.Rect(0, 0, 8, 6)), nil
}

func TestCaptureFrame_BeforeLoad(t *testing.T) {
	c := NewController(instantLoader{})
	c.AdjustRotation(AxisY, 0.4)
	before := c.Transform()

	if _, err := c.CaptureFrame(); !errors.Is(err, ErrCaptureUnavailable) {
		t.Fatalf("expected ErrCaptureUnavailable, got %v", err)
	}

	// A surface alone is not enough while nothing is ready.
	surf := &stubSurface{}
	c.AttachSurface(surf)
	if _, err := c.CaptureFrame(); !errors.Is(err, ErrCaptureUnavailable) {
		t.Fatalf("expected ErrCaptureUnavailable, got %v", err)
	}
	if surf.reads != 0 {
		t.Error("surface must not be read before a model is ready")
	}

	if c.Transform() != before || c.Selection() != "" || c.State() != StateUnloaded {
		t.Error("failed capture must not change viewer state")
	}
}

func TestCaptureFrame_Ready(t *testing.T) {
	c := NewController(instantLoader{})
	defer c.Close()
	loadNow(t, c, "a.glb")

	c.AttachSurface(&stubSurface{})
	data, err := c.CaptureFrame()
	if err != nil {
		t.Fatalf("CaptureFrame: %v", err)
	}
	img, err := png.Decode(bytes.NewReader(data))
	if err != nil {
		t.Fatalf("capture is not a PNG: %v", err)
	}
	if img.Bounds().Dx() != 8 || img.Bounds().Dy() != 6 {
		t.Errorf("unexpected size %v", img.Bounds())
	}
}

func TestCaptureFrame_SurfaceError(t *testing.T) {
	c := NewController(instantLoader{})
	defer c.Close()
	loadNow(t, c, "a.glb")

	readErr := errors.New("gl error")
	c.AttachSurface(&stubSurface{err: readErr})
	_, err := c.CaptureFrame()
	if !errors.Is(err, ErrCaptureUnavailable) || !errors.Is(err, readErr) {
		t.Errorf("expected both sentinel and cause, got %v", err)
	}
}

func TestScenario_RotateThenSwitchFormat(t *testing.T) {
	g := newGatedLoader()
	c := NewController(g)
	defer c.Close()

	if c.State() != StateUnloaded {
		t.Fatalf("initial state = %s", c.State())
	}

	c.SelectModel("/models/Duck.glb")
	if c.State() != StateLoading {
		t.Fatalf("state = %s, want Loading", c.State())
	}
	g.release("/models/Duck.glb")
	c.Wait()
	c.Update()
	if c.State() != StateReady {
		t.Fatalf("state = %s, want Ready", c.State())
	}

	y, err := ParseAxis("y")
	if err != nil {
		t.Fatal(err)
	}
	for i := 0; i < 6; i++ {
		c.AdjustRotation(y, RotationStep)
	}
	if got := c.Transform().Rotation[AxisY]; !near(got, 1.2) {
		t.Fatalf("rotation.y = %v, want 1.2", got)
	}

	c.SelectModel("/models/AT&T Building.stl")
	tr := c.Transform()
	if tr.Rotation != [3]float64{} || tr.Scale != 1.0 {
		t.Errorf("transform not reset: %s", tr)
	}
	if c.State() != StateLoading {
		t.Errorf("state = %s, want Loading", c.State())
	}
	if c.Selection() != "/models/AT&T Building.stl" {
		t.Errorf("selection = %q", c.Selection())
	}
	g.release("/models/AT&T Building.stl")
}
