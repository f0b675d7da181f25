// Package formats provides parsers for 3D model interchange formats.
package formats

// Note: STL (binary and ASCII) is implemented in stl.go
// Note: Wavefront OBJ is implemented in obj.go, its MTL companion in mtl.go
