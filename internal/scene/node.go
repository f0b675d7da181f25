package scene

import "github.com/go-gl/mathgl/mgl32"

// Node is a drawable subtree: a local transform, zero or more meshes and child nodes.
// A decoded model is handed out as a root Node; it is replaced wholesale when a
// different model is loaded and is never shared between loads.
type Node struct {
	Name      string
	Transform mgl32.Mat4 // Local transform relative to the parent
	Meshes    []*Mesh
	Children  []*Node
}

// NewNode creates a node with an identity transform.
func NewNode(name string) *Node {
	return &Node{Name: name, Transform: mgl32.Ident4()}
}

// AddChild appends child to the node.
func (n *Node) AddChild(child *Node) {
	n.Children = append(n.Children, child)
}

// Walk visits the subtree depth-first, passing each node with its world transform.
func (n *Node) Walk(fn func(node *Node, world mgl32.Mat4)) {
	n.walk(mgl32.Ident4(), fn)
}

func (n *Node) walk(parent mgl32.Mat4, fn func(*Node, mgl32.Mat4)) {
	world := parent.Mul4(n.Transform)
	fn(n, world)
	for _, c := range n.Children {
		c.walk(world, fn)
	}
}

// Bounds returns the world-space bounding box of every mesh in the subtree.
func (n *Node) Bounds() Bounds {
	b := EmptyBounds()
	n.Walk(func(node *Node, world mgl32.Mat4) {
		for _, m := range node.Meshes {
			b.Union(m.Bounds().Transform(world))
		}
	})
	return b
}

// TriangleCount returns the number of triangles in the subtree.
func (n *Node) TriangleCount() int {
	total := 0
	n.Walk(func(node *Node, _ mgl32.Mat4) {
		for _, m := range node.Meshes {
			total += m.TriangleCount()
		}
	})
	return total
}

// MeshCount returns the number of meshes in the subtree.
func (n *Node) MeshCount() int {
	total := 0
	n.Walk(func(node *Node, _ mgl32.Mat4) {
		total += len(node.Meshes)
	})
	return total
}

// DrawItem is one mesh with its accumulated world transform.
type DrawItem struct {
	World mgl32.Mat4
	Mesh  *Mesh
}

// Flatten collects every mesh in the subtree in draw order.
func Flatten(root *Node) []DrawItem {
	var items []DrawItem
	root.Walk(func(node *Node, world mgl32.Mat4) {
		for _, m := range node.Meshes {
			items = append(items, DrawItem{World: world, Mesh: m})
		}
	})
	return items
}

// Center wraps root in a parent node translated so that the subtree's bounding box
// is centered on the origin. Returns the wrapper.
func Center(root *Node) *Node {
	c := root.Bounds().Center()
	wrapper := NewNode("center")
	wrapper.Transform = mgl32.Translate3D(-c[0], -c[1], -c[2])
	wrapper.AddChild(root)
	return wrapper
}
