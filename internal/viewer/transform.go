package viewer

import (
	"fmt"
	"strings"

	"github.com/go-gl/mathgl/mgl32"
)

// Transform defaults and UI step sizes.
const (
	DefaultScale = 1.0
	MinScale     = 0.2
	RotationStep = 0.2 // radians per button press
	ScaleStep    = 0.2
)

// Axis selects one component of the rotation vector.
type Axis int

const (
	AxisX Axis = iota
	AxisY
	AxisZ
)

func (a Axis) String() string {
	switch a {
	case AxisX:
		return "x"
	case AxisY:
		return "y"
	case AxisZ:
		return "z"
	default:
		return fmt.Sprintf("Axis(%d)", int(a))
	}
}

// Valid reports whether a names one of the three axes.
func (a Axis) Valid() bool {
	return a >= AxisX && a <= AxisZ
}

// ParseAxis accepts "x", "y" or "z" in any case.
func ParseAxis(s string) (Axis, error) {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "x":
		return AxisX, nil
	case "y":
		return AxisY, nil
	case "z":
		return AxisZ, nil
	}
	return 0, fmt.Errorf("unknown axis %q", s)
}

// Transform is the user-adjustable model transform. It is applied at draw time and
// never baked into geometry.
type Transform struct {
	Scale    float64
	Rotation [3]float64 // radians, Euler XYZ
}

// NewTransform returns the default transform: unit scale, no rotation.
func NewTransform() Transform {
	return Transform{Scale: DefaultScale}
}

// Reset restores the defaults.
func (t *Transform) Reset() {
	*t = NewTransform()
}

// Rotate adds delta to one rotation component. Angles accumulate without wrapping.
func (t *Transform) Rotate(axis Axis, delta float64) {
	if !axis.Valid() {
		return
	}
	t.Rotation[axis] += delta
}

// Grow adds delta to the scale, never going below MinScale.
func (t *Transform) Grow(delta float64) {
	t.GrowWithFloor(delta, MinScale)
}

// GrowWithFloor adds delta to the scale, never going below floor.
func (t *Transform) GrowWithFloor(delta, floor float64) {
	t.Scale = max(floor, t.Scale+delta)
}

// IsDefault reports whether t equals the default transform.
func (t Transform) IsDefault() bool {
	return t == NewTransform()
}

// Matrix composes rotation (X, then Y, then Z) with a uniform scale.
func (t Transform) Matrix() mgl32.Mat4 {
	rot := mgl32.HomogRotate3DX(float32(t.Rotation[0])).
		Mul4(mgl32.HomogRotate3DY(float32(t.Rotation[1]))).
		Mul4(mgl32.HomogRotate3DZ(float32(t.Rotation[2])))
	s := float32(t.Scale)
	return rot.Mul4(mgl32.Scale3D(s, s, s))
}

func (t Transform) String() string {
	return fmt.Sprintf("scale=%.2f rot=(%.2f, %.2f, %.2f)", t.Scale, t.Rotation[0], t.Rotation[1], t.Rotation[2])
}
