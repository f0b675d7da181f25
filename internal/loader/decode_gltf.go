package loader

import (
	"bytes"
	"errors"
	"fmt"

	"github.com/go-gl/mathgl/mgl32"
	"github.com/qmuntal/gltf"
	"github.com/qmuntal/gltf/modeler"

	"github.com/Faultbox/model-viewer/internal/scene"
)

var (
	errNoScene     = errors.New("glTF document has no nodes")
	errNodeCycle   = errors.New("glTF node hierarchy contains a cycle")
	errBadIndex    = errors.New("glTF index out of range")
	identityMatrix = [16]float64{1, 0, 0, 0, 0, 1, 0, 0, 0, 0, 1, 0, 0, 0, 0, 1}
)

// gltfDecoder handles both JSON glTF and binary GLB containers. External buffers are
// resolved next to the reference through the same transport.
type gltfDecoder struct {
	fallback scene.Material
}

func (d gltfDecoder) Decode(res *Resource) (*scene.Node, error) {
	doc := new(gltf.Document)
	if err := gltf.NewDecoderFS(bytes.NewReader(res.Data), res.FS()).Decode(doc); err != nil {
		return nil, err
	}

	roots, err := gltfRootNodes(doc)
	if err != nil {
		return nil, err
	}

	root := scene.NewNode(res.Name())
	visiting := make(map[int]bool)
	for _, idx := range roots {
		child, err := d.buildNode(doc, idx, visiting)
		if err != nil {
			return nil, err
		}
		root.AddChild(child)
	}
	return root, nil
}

// gltfRootNodes returns the default scene's roots, falling back to every parentless
// node when the document declares no scenes.
func gltfRootNodes(doc *gltf.Document) ([]int, error) {
	if len(doc.Scenes) > 0 {
		sceneIdx := 0
		if doc.Scene != nil {
			sceneIdx = int(*doc.Scene)
		}
		if sceneIdx < 0 || sceneIdx >= len(doc.Scenes) {
			return nil, fmt.Errorf("%w: scene %d", errBadIndex, sceneIdx)
		}
		var roots []int
		for _, n := range doc.Scenes[sceneIdx].Nodes {
			roots = append(roots, int(n))
		}
		return roots, nil
	}

	if len(doc.Nodes) == 0 {
		return nil, errNoScene
	}
	isChild := make(map[int]bool)
	for _, n := range doc.Nodes {
		for _, c := range n.Children {
			isChild[int(c)] = true
		}
	}
	var roots []int
	for i := range doc.Nodes {
		if !isChild[i] {
			roots = append(roots, i)
		}
	}
	return roots, nil
}

func (d gltfDecoder) buildNode(doc *gltf.Document, idx int, visiting map[int]bool) (*scene.Node, error) {
	if idx < 0 || idx >= len(doc.Nodes) {
		return nil, fmt.Errorf("%w: node %d", errBadIndex, idx)
	}
	if visiting[idx] {
		return nil, errNodeCycle
	}
	visiting[idx] = true
	defer delete(visiting, idx)

	src := doc.Nodes[idx]
	node := scene.NewNode(src.Name)
	node.Transform = gltfLocalTransform(src)

	if src.Mesh != nil {
		meshIdx := int(*src.Mesh)
		if meshIdx < 0 || meshIdx >= len(doc.Meshes) {
			return nil, fmt.Errorf("%w: mesh %d", errBadIndex, meshIdx)
		}
		for i, prim := range doc.Meshes[meshIdx].Primitives {
			mesh, err := d.buildPrimitive(doc, prim)
			if err != nil {
				return nil, fmt.Errorf("mesh %d primitive %d: %w", meshIdx, i, err)
			}
			if mesh != nil {
				node.Meshes = append(node.Meshes, mesh)
			}
		}
	}

	for _, c := range src.Children {
		child, err := d.buildNode(doc, int(c), visiting)
		if err != nil {
			return nil, err
		}
		node.AddChild(child)
	}
	return node, nil
}

// gltfLocalTransform returns the node matrix, or T*R*S when no matrix is given.
func gltfLocalTransform(n *gltf.Node) mgl32.Mat4 {
	if n.Matrix != ([16]float64{}) && n.Matrix != identityMatrix {
		var m mgl32.Mat4
		for i, v := range n.Matrix {
			m[i] = float32(v)
		}
		return m
	}

	t := n.Translation
	translate := mgl32.Translate3D(float32(t[0]), float32(t[1]), float32(t[2]))

	rotate := mgl32.Ident4()
	if r := n.Rotation; r != ([4]float64{}) {
		q := mgl32.Quat{W: float32(r[3]), V: mgl32.Vec3{float32(r[0]), float32(r[1]), float32(r[2])}}
		rotate = q.Normalize().Mat4()
	}

	s := n.Scale
	if s == ([3]float64{}) {
		s = [3]float64{1, 1, 1}
	}
	scale := mgl32.Scale3D(float32(s[0]), float32(s[1]), float32(s[2]))

	return translate.Mul4(rotate).Mul4(scale)
}

// buildPrimitive converts a triangle primitive. Points, lines and primitives without
// positions are skipped and return nil.
func (d gltfDecoder) buildPrimitive(doc *gltf.Document, prim *gltf.Primitive) (*scene.Mesh, error) {
	if prim.Mode != gltf.PrimitiveTriangles {
		return nil, nil
	}
	posIdx, ok := prim.Attributes[gltf.POSITION]
	if !ok {
		return nil, nil
	}
	if int(posIdx) >= len(doc.Accessors) {
		return nil, fmt.Errorf("%w: accessor %d", errBadIndex, posIdx)
	}

	positions, err := modeler.ReadPosition(doc, doc.Accessors[posIdx], nil)
	if err != nil {
		return nil, fmt.Errorf("positions: %w", err)
	}

	mesh := &scene.Mesh{Vertices: make([]scene.Vertex, len(positions))}
	for i, p := range positions {
		mesh.Vertices[i].Position = p
	}

	if prim.Indices != nil {
		if int(*prim.Indices) >= len(doc.Accessors) {
			return nil, fmt.Errorf("%w: accessor %d", errBadIndex, *prim.Indices)
		}
		mesh.Indices, err = modeler.ReadIndices(doc, doc.Accessors[*prim.Indices], nil)
		if err != nil {
			return nil, fmt.Errorf("indices: %w", err)
		}
		for _, idx := range mesh.Indices {
			if int(idx) >= len(positions) {
				return nil, fmt.Errorf("%w: vertex %d", errBadIndex, idx)
			}
		}
	} else {
		mesh.Indices = make([]uint32, len(positions))
		for i := range mesh.Indices {
			mesh.Indices[i] = uint32(i)
		}
	}

	normals, err := d.readNormals(doc, prim)
	if err != nil {
		return nil, err
	}
	if len(normals) == len(positions) {
		for i, n := range normals {
			mesh.Vertices[i].Normal = n
		}
	} else {
		// Missing or short NORMAL accessors are replaced wholesale.
		scene.ComputeNormals(mesh)
	}

	mesh.Material = d.material(doc, prim)
	return mesh, nil
}

// readNormals returns the primitive's NORMAL attribute, or nil when it has none.
func (d gltfDecoder) readNormals(doc *gltf.Document, prim *gltf.Primitive) ([][3]float32, error) {
	idx, ok := prim.Attributes[gltf.NORMAL]
	if !ok || int(idx) >= len(doc.Accessors) {
		return nil, nil
	}
	normals, err := modeler.ReadNormal(doc, doc.Accessors[idx], nil)
	if err != nil {
		return nil, fmt.Errorf("normals: %w", err)
	}
	return normals, nil
}

func (d gltfDecoder) material(doc *gltf.Document, prim *gltf.Primitive) scene.Material {
	if prim.Material == nil || int(*prim.Material) >= len(doc.Materials) {
		return d.fallback
	}
	src := doc.Materials[*prim.Material]
	mat := scene.Material{Name: src.Name, BaseColor: [4]float32{1, 1, 1, 1}}
	if pbr := src.PBRMetallicRoughness; pbr != nil && pbr.BaseColorFactor != nil {
		c := *pbr.BaseColorFactor
		mat.BaseColor = [4]float32{float32(c[0]), float32(c[1]), float32(c[2]), float32(c[3])}
	}
	return mat
}
