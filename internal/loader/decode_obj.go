package loader

import (
	"go.uber.org/zap"

	"github.com/Faultbox/model-viewer/internal/scene"
	"github.com/Faultbox/model-viewer/pkg/formats"
)

// objDecoder builds one child node per OBJ group. Materials come from the mtllib
// files next to the OBJ; groups without a resolvable material get the fallback.
type objDecoder struct {
	fallback scene.Material
	log      *zap.Logger
}

func (d objDecoder) Decode(res *Resource) (*scene.Node, error) {
	obj, err := formats.ParseOBJ(res.Data)
	if err != nil {
		return nil, err
	}

	materials := d.loadMaterials(res, obj.MaterialLibs)

	root := scene.NewNode(res.Name())
	for i := range obj.Groups {
		group := &obj.Groups[i]
		mesh := buildOBJMesh(obj, group)
		if len(mesh.Indices) == 0 {
			continue
		}

		mesh.Material = d.fallback
		if mat, ok := materials[group.Material]; ok {
			mesh.Material = scene.Material{
				Name:      mat.Name,
				BaseColor: [4]float32{mat.Diffuse[0], mat.Diffuse[1], mat.Diffuse[2], mat.Opacity},
			}
		}

		child := scene.NewNode(group.Name)
		child.Meshes = []*scene.Mesh{mesh}
		root.AddChild(child)
	}
	return root, nil
}

// loadMaterials reads every referenced MTL library. Missing or broken libraries are
// logged and skipped.
func (d objDecoder) loadMaterials(res *Resource, libs []string) map[string]*formats.OBJMaterial {
	out := make(map[string]*formats.OBJMaterial)
	for _, lib := range libs {
		data, err := res.Sibling(lib)
		if err != nil {
			d.log.Warn("material library unavailable", zap.String("ref", res.Reference), zap.String("mtllib", lib), zap.Error(err))
			continue
		}
		mats, err := formats.ParseMTL(data)
		if err != nil {
			d.log.Warn("material library invalid", zap.String("ref", res.Reference), zap.String("mtllib", lib), zap.Error(err))
			continue
		}
		for name, m := range mats {
			out[name] = m
		}
	}
	return out
}

// buildOBJMesh converts a group's polygons into an indexed triangle mesh.
// Corners sharing the same position/normal pair share a vertex.
func buildOBJMesh(obj *formats.OBJ, group *formats.OBJGroup) *scene.Mesh {
	mesh := &scene.Mesh{}
	type key struct{ v, vn int }
	lookup := make(map[key]uint32)
	missingNormals := false

	corner := func(c formats.OBJIndex) uint32 {
		k := key{c.V, c.VN}
		if idx, ok := lookup[k]; ok {
			return idx
		}
		v := scene.Vertex{Position: obj.Positions[c.V]}
		if c.VN >= 0 {
			v.Normal = obj.Normals[c.VN]
		} else {
			missingNormals = true
		}
		idx := uint32(len(mesh.Vertices))
		mesh.Vertices = append(mesh.Vertices, v)
		lookup[k] = idx
		return idx
	}

	for _, face := range group.Faces {
		first := corner(face.Corners[0])
		for i := 1; i+1 < len(face.Corners); i++ {
			mesh.Indices = append(mesh.Indices, first, corner(face.Corners[i]), corner(face.Corners[i+1]))
		}
	}

	if missingNormals {
		scene.ComputeNormals(mesh)
	}
	return mesh
}
