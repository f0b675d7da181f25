// Package render draws a scene.Node into an offscreen OpenGL framebuffer.
// All methods must be called on the thread owning the GL context.
package render

import (
	"errors"
	"fmt"
	"image"
	"unsafe"

	"github.com/go-gl/gl/v4.1-core/gl"
	"github.com/go-gl/mathgl/mgl32"
	"go.uber.org/zap"

	"github.com/Faultbox/model-viewer/internal/capture"
	"github.com/Faultbox/model-viewer/internal/scene"
)

// Lighting is a flat ambient term plus one directional light.
type Lighting struct {
	Ambient   float32
	Direction mgl32.Vec3 // toward the light
	Intensity float32
}

// DefaultLighting is ambient 0.8 with a white directional light from (5, 10, 7).
var DefaultLighting = Lighting{
	Ambient:   0.8,
	Direction: mgl32.Vec3{5, 10, 7},
	Intensity: 1.0,
}

// Options configures a Renderer.
type Options struct {
	Background [4]float32
	Lighting   Lighting
	Logger     *zap.Logger
}

// gpuMesh is one uploaded scene mesh.
type gpuMesh struct {
	vao, vbo, ebo uint32
	indexCount    int32
	world         mgl32.Mat4
	color         [4]float32
}

func (m *gpuMesh) transparent() bool { return m.color[3] < 1 }

// Renderer owns the GL resources for the viewport.
type Renderer struct {
	fb     *framebuffer
	prog   *program
	camera *OrbitCamera
	opts   Options
	log    *zap.Logger
	meshes []gpuMesh
	node   *scene.Node
	drawn  bool
}

// New creates a renderer with a width x height framebuffer.
func New(width, height int32, opts Options) (*Renderer, error) {
	if opts.Logger == nil {
		opts.Logger = zap.NewNop()
	}
	if opts.Lighting == (Lighting{}) {
		opts.Lighting = DefaultLighting
	}

	fb, err := newFramebuffer(width, height)
	if err != nil {
		return nil, err
	}
	prog, err := newProgram()
	if err != nil {
		fb.destroy()
		return nil, fmt.Errorf("compiling mesh shader: %w", err)
	}

	return &Renderer{
		fb:     fb,
		prog:   prog,
		camera: NewOrbitCamera(),
		opts:   opts,
		log:    opts.Logger,
	}, nil
}

// Camera returns the orbit camera.
func (r *Renderer) Camera() *OrbitCamera { return r.camera }

// Size returns the framebuffer dimensions.
func (r *Renderer) Size() (width, height int32) { return r.fb.width, r.fb.height }

// Resize changes the framebuffer dimensions.
func (r *Renderer) Resize(width, height int32) { r.fb.resize(width, height) }

// SetNode replaces everything on the GPU with the meshes of node. A nil node
// clears the viewport. The camera is refitted to the new bounds.
func (r *Renderer) SetNode(node *scene.Node) {
	if node == r.node {
		return
	}
	r.releaseMeshes()
	r.node = node
	if node == nil {
		return
	}

	for _, item := range scene.Flatten(node) {
		if m, ok := upload(item); ok {
			r.meshes = append(r.meshes, m)
		}
	}
	r.camera.Fit(node.Bounds())

	r.log.Debug("uploaded scene",
		zap.Int("meshes", len(r.meshes)),
		zap.Int("triangles", node.TriangleCount()))
}

func upload(item scene.DrawItem) (gpuMesh, bool) {
	mesh := item.Mesh
	if mesh == nil || len(mesh.Vertices) == 0 || len(mesh.Indices) == 0 {
		return gpuMesh{}, false
	}

	m := gpuMesh{
		indexCount: int32(len(mesh.Indices)),
		world:      item.World,
		color:      mesh.Material.BaseColor,
	}
	stride := int32(unsafe.Sizeof(scene.Vertex{}))

	gl.GenVertexArrays(1, &m.vao)
	gl.BindVertexArray(m.vao)

	gl.GenBuffers(1, &m.vbo)
	gl.BindBuffer(gl.ARRAY_BUFFER, m.vbo)
	gl.BufferData(gl.ARRAY_BUFFER, len(mesh.Vertices)*int(stride), unsafe.Pointer(&mesh.Vertices[0]), gl.STATIC_DRAW)

	gl.GenBuffers(1, &m.ebo)
	gl.BindBuffer(gl.ELEMENT_ARRAY_BUFFER, m.ebo)
	gl.BufferData(gl.ELEMENT_ARRAY_BUFFER, len(mesh.Indices)*4, unsafe.Pointer(&mesh.Indices[0]), gl.STATIC_DRAW)

	gl.VertexAttribPointerWithOffset(0, 3, gl.FLOAT, false, stride, 0)
	gl.EnableVertexAttribArray(0)
	gl.VertexAttribPointerWithOffset(1, 3, gl.FLOAT, false, stride, 12)
	gl.EnableVertexAttribArray(1)

	gl.BindVertexArray(0)
	return m, true
}

// Render draws the current node with the given model transform applied above
// its root and returns the color texture.
func (r *Renderer) Render(model mgl32.Mat4) uint32 {
	restore := r.fb.bind()
	defer restore()

	bg := r.opts.Background
	gl.ClearColor(bg[0], bg[1], bg[2], bg[3])
	gl.Clear(gl.COLOR_BUFFER_BIT | gl.DEPTH_BUFFER_BIT)
	r.drawn = true

	if len(r.meshes) == 0 {
		return r.fb.colorTexture
	}

	gl.Enable(gl.DEPTH_TEST)
	gl.DepthFunc(gl.LESS)
	gl.Enable(gl.BLEND)
	gl.BlendFunc(gl.SRC_ALPHA, gl.ONE_MINUS_SRC_ALPHA)
	gl.Disable(gl.CULL_FACE)

	p := r.prog
	gl.UseProgram(p.id)

	aspect := float32(r.fb.width) / float32(r.fb.height)
	projection := r.camera.Projection(aspect)
	view := r.camera.ViewMatrix()
	light := r.opts.Lighting

	gl.UniformMatrix4fv(p.locProjection, 1, false, &projection[0])
	gl.UniformMatrix4fv(p.locView, 1, false, &view[0])
	gl.Uniform3f(p.locLightDir, light.Direction.X(), light.Direction.Y(), light.Direction.Z())
	gl.Uniform1f(p.locAmbient, light.Ambient)
	gl.Uniform1f(p.locDiffuse, light.Intensity)

	// Opaque first, then translucent meshes without depth writes.
	for pass := 0; pass < 2; pass++ {
		translucent := pass == 1
		gl.DepthMask(!translucent)
		for i := range r.meshes {
			m := &r.meshes[i]
			if m.transparent() != translucent {
				continue
			}
			world := model.Mul4(m.world)
			gl.UniformMatrix4fv(p.locModel, 1, false, &world[0])
			gl.Uniform4f(p.locBaseColor, m.color[0], m.color[1], m.color[2], m.color[3])
			gl.BindVertexArray(m.vao)
			gl.DrawElementsWithOffset(gl.TRIANGLES, m.indexCount, gl.UNSIGNED_INT, 0)
		}
	}
	gl.DepthMask(true)
	gl.BindVertexArray(0)
	gl.UseProgram(0)
	gl.Disable(gl.DEPTH_TEST)

	return r.fb.colorTexture
}

// ReadFrame returns the last rendered frame as a top-down image.
func (r *Renderer) ReadFrame() (image.Image, error) {
	if !r.drawn {
		return nil, errors.New("nothing rendered yet")
	}
	pixels := r.fb.readPixels()
	return capture.FromGLPixels(pixels, int(r.fb.width), int(r.fb.height))
}

// HandleMouseDrag orbits the camera.
func (r *Renderer) HandleMouseDrag(deltaX, deltaY float32) { r.camera.HandleDrag(deltaX, deltaY) }

// HandleMouseWheel zooms the camera.
func (r *Renderer) HandleMouseWheel(delta float32) { r.camera.HandleZoom(delta) }

// ResetView refits the camera to the current node.
func (r *Renderer) ResetView() {
	r.camera.Reset()
	if r.node != nil {
		r.camera.Fit(r.node.Bounds())
	}
}

func (r *Renderer) releaseMeshes() {
	for i := range r.meshes {
		m := &r.meshes[i]
		gl.DeleteVertexArrays(1, &m.vao)
		gl.DeleteBuffers(1, &m.vbo)
		gl.DeleteBuffers(1, &m.ebo)
	}
	r.meshes = nil
}

// Destroy releases all GL resources.
func (r *Renderer) Destroy() {
	r.releaseMeshes()
	r.node = nil
	if r.prog != nil && r.prog.id != 0 {
		gl.DeleteProgram(r.prog.id)
		r.prog.id = 0
	}
	if r.fb != nil {
		r.fb.destroy()
	}
}
