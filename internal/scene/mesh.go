// Package scene provides the format-independent renderable node tree produced by model decoding.
package scene

import (
	gomath "math"
)

// Vertex is a mesh vertex with position and normal.
type Vertex struct {
	Position [3]float32
	Normal   [3]float32
}

// Material describes the flat appearance of a mesh.
type Material struct {
	Name      string
	BaseColor [4]float32 // Linear RGBA
	// Default is set when the source carried no material and a fallback was assigned.
	Default bool
}

// Mesh holds indexed triangle data ready for GPU upload.
type Mesh struct {
	Vertices []Vertex
	Indices  []uint32
	Material Material
}

// TriangleCount returns the number of indexed triangles.
func (m *Mesh) TriangleCount() int {
	return len(m.Indices) / 3
}

// Bounds returns the mesh's local axis-aligned bounding box.
func (m *Mesh) Bounds() Bounds {
	b := EmptyBounds()
	for i := range m.Vertices {
		b.Extend(m.Vertices[i].Position)
	}
	return b
}

// ComputeNormals derives smooth per-vertex normals from the indexed triangles,
// weighting each face by its area. Existing normals are overwritten.
func ComputeNormals(m *Mesh) {
	for i := range m.Vertices {
		m.Vertices[i].Normal = [3]float32{}
	}

	for i := 0; i+2 < len(m.Indices); i += 3 {
		i0, i1, i2 := m.Indices[i], m.Indices[i+1], m.Indices[i+2]
		if int(i0) >= len(m.Vertices) || int(i1) >= len(m.Vertices) || int(i2) >= len(m.Vertices) {
			continue
		}
		n := FaceNormal(m.Vertices[i0].Position, m.Vertices[i1].Position, m.Vertices[i2].Position, false)
		for _, idx := range [3]uint32{i0, i1, i2} {
			v := &m.Vertices[idx]
			v.Normal[0] += n[0]
			v.Normal[1] += n[1]
			v.Normal[2] += n[2]
		}
	}

	for i := range m.Vertices {
		m.Vertices[i].Normal = Normalize(m.Vertices[i].Normal)
	}
}

// FaceNormal returns the normal of triangle (a, b, c).
// With unit set the result is normalized, otherwise its length is twice the triangle area.
func FaceNormal(a, b, c [3]float32, unit bool) [3]float32 {
	e1 := [3]float32{b[0] - a[0], b[1] - a[1], b[2] - a[2]}
	e2 := [3]float32{c[0] - a[0], c[1] - a[1], c[2] - a[2]}
	n := [3]float32{
		e1[1]*e2[2] - e1[2]*e2[1],
		e1[2]*e2[0] - e1[0]*e2[2],
		e1[0]*e2[1] - e1[1]*e2[0],
	}
	if unit {
		return Normalize(n)
	}
	return n
}

// Normalize returns v scaled to unit length, or the zero vector for degenerate input.
func Normalize(v [3]float32) [3]float32 {
	l := float32(gomath.Sqrt(float64(v[0]*v[0] + v[1]*v[1] + v[2]*v[2])))
	if l < 1e-12 {
		return [3]float32{}
	}
	return [3]float32{v[0] / l, v[1] / l, v[2] / l}
}
