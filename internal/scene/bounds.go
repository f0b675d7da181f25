package scene

import "github.com/go-gl/mathgl/mgl32"

// Bounds is an axis-aligned bounding box.
type Bounds struct {
	Min [3]float32
	Max [3]float32
}

// EmptyBounds returns an inverted box that any Extend call will replace.
func EmptyBounds() Bounds {
	return Bounds{
		Min: [3]float32{1e30, 1e30, 1e30},
		Max: [3]float32{-1e30, -1e30, -1e30},
	}
}

// IsEmpty reports whether no point has been added.
func (b Bounds) IsEmpty() bool {
	return b.Min[0] > b.Max[0] || b.Min[1] > b.Max[1] || b.Min[2] > b.Max[2]
}

// Extend grows the box to contain p.
func (b *Bounds) Extend(p [3]float32) {
	for i := 0; i < 3; i++ {
		if p[i] < b.Min[i] {
			b.Min[i] = p[i]
		}
		if p[i] > b.Max[i] {
			b.Max[i] = p[i]
		}
	}
}

// Union grows the box to contain other.
func (b *Bounds) Union(other Bounds) {
	if other.IsEmpty() {
		return
	}
	b.Extend(other.Min)
	b.Extend(other.Max)
}

// Center returns the midpoint of the box.
func (b Bounds) Center() [3]float32 {
	if b.IsEmpty() {
		return [3]float32{}
	}
	return [3]float32{
		(b.Min[0] + b.Max[0]) / 2,
		(b.Min[1] + b.Max[1]) / 2,
		(b.Min[2] + b.Max[2]) / 2,
	}
}

// Size returns the box extent along each axis.
func (b Bounds) Size() [3]float32 {
	if b.IsEmpty() {
		return [3]float32{}
	}
	return [3]float32{b.Max[0] - b.Min[0], b.Max[1] - b.Min[1], b.Max[2] - b.Min[2]}
}

// MaxExtent returns the largest axis extent.
func (b Bounds) MaxExtent() float32 {
	s := b.Size()
	m := s[0]
	if s[1] > m {
		m = s[1]
	}
	if s[2] > m {
		m = s[2]
	}
	return m
}

// Transform returns the bounds of the box's eight corners under m.
func (b Bounds) Transform(m mgl32.Mat4) Bounds {
	out := EmptyBounds()
	if b.IsEmpty() {
		return out
	}
	for i := 0; i < 8; i++ {
		corner := mgl32.Vec3{b.Min[0], b.Min[1], b.Min[2]}
		if i&1 != 0 {
			corner[0] = b.Max[0]
		}
		if i&2 != 0 {
			corner[1] = b.Max[1]
		}
		if i&4 != 0 {
			corner[2] = b.Max[2]
		}
		out.Extend(mgl32.TransformCoordinate(corner, m))
	}
	return out
}
