package formats

import (
	"encoding/binary"
	"errors"
	"math"
	"testing"
)

// makeBinarySTL builds a binary STL with the given triangles.
func makeBinarySTL(header string, tris []STLTriangle) []byte {
	data := make([]byte, 84+50*len(tris))
	copy(data, header)
	binary.LittleEndian.PutUint32(data[80:], uint32(len(tris)))

	off := 84
	putVec := func(v [3]float32) {
		for i := 0; i < 3; i++ {
			binary.LittleEndian.PutUint32(data[off:], math.Float32bits(v[i]))
			off += 4
		}
	}
	for _, tri := range tris {
		putVec(tri.Normal)
		for _, v := range tri.Vertices {
			putVec(v)
		}
		binary.LittleEndian.PutUint16(data[off:], tri.Attribute)
		off += 2
	}
	return data
}

var unitTriangle = STLTriangle{
	Normal:   [3]float32{0, 0, 1},
	Vertices: [3][3]float32{{0, 0, 0}, {1, 0, 0}, {0, 1, 0}},
}

func TestParseSTL_Binary(t *testing.T) {
	second := STLTriangle{
		Normal:    [3]float32{0, 0, -1},
		Vertices:  [3][3]float32{{0, 0, 0}, {0, 1, 0}, {1, 0, 0}},
		Attribute: 7,
	}
	data := makeBinarySTL("test part", []STLTriangle{unitTriangle, second})

	stl, err := ParseSTL(data)
	if err != nil {
		t.Fatalf("ParseSTL: %v", err)
	}
	if stl.ASCII {
		t.Error("expected binary STL")
	}
	if stl.Name != "test part" {
		t.Errorf("expected name 'test part', got %q", stl.Name)
	}
	if len(stl.Triangles) != 2 {
		t.Fatalf("expected 2 triangles, got %d", len(stl.Triangles))
	}
	if stl.Triangles[0].Vertices[1] != [3]float32{1, 0, 0} {
		t.Errorf("unexpected vertex: %v", stl.Triangles[0].Vertices[1])
	}
	if stl.Triangles[1].Normal != [3]float32{0, 0, -1} {
		t.Errorf("unexpected normal: %v", stl.Triangles[1].Normal)
	}
	if stl.Triangles[1].Attribute != 7 {
		t.Errorf("expected attribute 7, got %d", stl.Triangles[1].Attribute)
	}
}

func TestParseSTL_BinaryWithSolidHeader(t *testing.T) {
	// Binary files whose header starts with "solid" must not be read as ASCII.
	data := makeBinarySTL("solid exported_by_cad", []STLTriangle{unitTriangle})

	stl, err := ParseSTL(data)
	if err != nil {
		t.Fatalf("ParseSTL: %v", err)
	}
	if stl.ASCII {
		t.Error("expected binary detection from size")
	}
	if len(stl.Triangles) != 1 {
		t.Errorf("expected 1 triangle, got %d", len(stl.Triangles))
	}
}

func TestParseSTL_ASCII(t *testing.T) {
	src := `solid cube corner
  facet normal 0 0 1
    outer loop
      vertex 0 0 0
      vertex 1 0 0
      vertex 0 1 0
    endloop
  endfacet
  facet normal 0 0 1
    outer loop
      vertex 1 0 0
      vertex 1 1 0
      vertex 0 1 0
    endloop
  endfacet
endsolid cube corner
`
	stl, err := ParseSTL([]byte(src))
	if err != nil {
		t.Fatalf("ParseSTL: %v", err)
	}
	if !stl.ASCII {
		t.Error("expected ASCII STL")
	}
	if stl.Name != "cube corner" {
		t.Errorf("expected name 'cube corner', got %q", stl.Name)
	}
	if len(stl.Triangles) != 2 {
		t.Fatalf("expected 2 triangles, got %d", len(stl.Triangles))
	}
	if stl.Triangles[1].Vertices[1] != [3]float32{1, 1, 0} {
		t.Errorf("unexpected vertex: %v", stl.Triangles[1].Vertices[1])
	}
}

func TestParseSTL_Errors(t *testing.T) {
	truncated := makeBinarySTL("", []STLTriangle{unitTriangle, unitTriangle})
	truncated = truncated[:len(truncated)-10]

	tests := []struct {
		name    string
		data    []byte
		wantErr error
	}{
		{"empty data", []byte{}, ErrTruncatedSTL},
		{"short header", make([]byte, 40), ErrTruncatedSTL},
		{"truncated triangles", truncated, ErrTruncatedSTL},
		{"zero triangles", makeBinarySTL("", nil), ErrEmptySTL},
		{"ascii without facets", []byte("solid empty\nendsolid empty\n"), ErrEmptySTL},
		{"ascii bad vertex", []byte("solid x\nfacet normal 0 0 1\nouter loop\nvertex a b c\n"), ErrInvalidSTLASCII},
		{"ascii short facet", []byte("solid x\nfacet normal 0 0 1\nouter loop\nvertex 0 0 0\nendloop\nendfacet\n"), ErrInvalidSTLASCII},
		{"ascii unterminated", []byte("solid x\nfacet normal 0 0 1\nouter loop\nvertex 0 0 0\n"), ErrTruncatedSTL},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := ParseSTL(tt.data)
			if !errors.Is(err, tt.wantErr) {
				t.Errorf("expected %v, got %v", tt.wantErr, err)
			}
		})
	}
}
