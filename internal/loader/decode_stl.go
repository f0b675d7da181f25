package loader

import (
	"github.com/Faultbox/model-viewer/internal/scene"
	"github.com/Faultbox/model-viewer/pkg/formats"
)

// stlDecoder builds a single flat-shaded mesh. STL carries no material, so every
// solid gets the fallback appearance.
type stlDecoder struct {
	fallback scene.Material
}

func (d stlDecoder) Decode(res *Resource) (*scene.Node, error) {
	stl, err := formats.ParseSTL(res.Data)
	if err != nil {
		return nil, err
	}

	mesh := &scene.Mesh{
		Vertices: make([]scene.Vertex, 0, len(stl.Triangles)*3),
		Indices:  make([]uint32, 0, len(stl.Triangles)*3),
		Material: d.fallback,
	}

	for _, tri := range stl.Triangles {
		normal := scene.Normalize(tri.Normal)
		if normal == ([3]float32{}) {
			normal = scene.FaceNormal(tri.Vertices[0], tri.Vertices[1], tri.Vertices[2], true)
		}
		base := uint32(len(mesh.Vertices))
		for _, v := range tri.Vertices {
			mesh.Vertices = append(mesh.Vertices, scene.Vertex{Position: v, Normal: normal})
		}
		mesh.Indices = append(mesh.Indices, base, base+1, base+2)
	}

	name := stl.Name
	if name == "" {
		name = res.Name()
	}
	node := scene.NewNode(name)
	node.Meshes = []*scene.Mesh{mesh}
	return node, nil
}
