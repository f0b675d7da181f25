package render

import (
	"math"

	"github.com/go-gl/mathgl/mgl32"

	"github.com/Faultbox/model-viewer/internal/scene"
)

// OrbitCamera orbits a target point. It is independent of the model transform and
// survives model switches; Fit only moves it to frame new bounds.
type OrbitCamera struct {
	Target mgl32.Vec3

	Distance float32
	Pitch    float32 // radians, positive looks down
	Yaw      float32 // radians

	FovY float32 // radians

	MinDistance float32
	MaxDistance float32
	MinPitch    float32
	MaxPitch    float32

	DragSensitivity float32
	ZoomSensitivity float32
}

// Initial view: eye at (0, 2, 5) looking at the origin with a 60 degree field of view.
var defaultEye = mgl32.Vec3{0, 2, 5}

// NewOrbitCamera creates a camera at the default viewpoint.
func NewOrbitCamera() *OrbitCamera {
	c := &OrbitCamera{
		FovY:            mgl32.DegToRad(60),
		MinDistance:     0.01,
		MaxDistance:     1e5,
		MinPitch:        -1.5,
		MaxPitch:        1.5,
		DragSensitivity: 0.01,
		ZoomSensitivity: 0.1,
	}
	c.Reset()
	return c
}

// Reset returns to the default viewpoint.
func (c *OrbitCamera) Reset() {
	c.Target = mgl32.Vec3{}
	c.Distance = defaultEye.Len()
	c.Pitch = float32(math.Atan2(float64(defaultEye.Y()), float64(defaultEye.Z())))
	c.Yaw = 0
}

// Position returns the eye position in world space.
func (c *OrbitCamera) Position() mgl32.Vec3 {
	cosP := float32(math.Cos(float64(c.Pitch)))
	sinP := float32(math.Sin(float64(c.Pitch)))
	cosY := float32(math.Cos(float64(c.Yaw)))
	sinY := float32(math.Sin(float64(c.Yaw)))

	return c.Target.Add(mgl32.Vec3{
		c.Distance * cosP * sinY,
		c.Distance * sinP,
		c.Distance * cosP * cosY,
	})
}

// ViewMatrix returns the view matrix for this camera.
func (c *OrbitCamera) ViewMatrix() mgl32.Mat4 {
	return mgl32.LookAtV(c.Position(), c.Target, mgl32.Vec3{0, 1, 0})
}

// Projection returns a perspective projection whose clip planes follow the distance.
func (c *OrbitCamera) Projection(aspect float32) mgl32.Mat4 {
	if aspect <= 0 {
		aspect = 1
	}
	near := max(c.Distance*0.01, 0.001)
	far := max(c.Distance*100, 100)
	return mgl32.Perspective(c.FovY, aspect, near, far)
}

// Fit keeps the view direction and moves the camera so the bounding sphere of b
// fills the view.
func (c *OrbitCamera) Fit(b scene.Bounds) {
	if b.IsEmpty() {
		c.Reset()
		return
	}
	center := b.Center()
	c.Target = mgl32.Vec3{center[0], center[1], center[2]}

	size := b.Size()
	radius := mgl32.Vec3{size[0], size[1], size[2]}.Len() / 2
	if radius <= 0 {
		radius = 1
	}
	dist := radius / float32(math.Sin(float64(c.FovY)/2))
	c.Distance = mgl32.Clamp(dist*1.1, c.MinDistance, c.MaxDistance)
}

// HandleDrag orbits by a mouse drag delta in pixels.
func (c *OrbitCamera) HandleDrag(deltaX, deltaY float32) {
	c.Yaw -= deltaX * c.DragSensitivity
	c.Pitch = mgl32.Clamp(c.Pitch+deltaY*c.DragSensitivity, c.MinPitch, c.MaxPitch)
}

// HandleZoom moves toward or away from the target by a wheel delta.
func (c *OrbitCamera) HandleZoom(delta float32) {
	c.Distance = mgl32.Clamp(c.Distance-delta*c.Distance*c.ZoomSensitivity, c.MinDistance, c.MaxDistance)
}
