// Wavefront OBJ parser for plain-text meshes with named groups.
package formats

import (
	"bufio"
	"bytes"
	"errors"
	"fmt"
	"strconv"
	"strings"
)

// OBJ format errors.
var (
	ErrInvalidOBJVertex = errors.New("invalid OBJ vertex")
	ErrInvalidOBJFace   = errors.New("invalid OBJ face")
	ErrEmptyOBJ         = errors.New("OBJ contains no faces")
)

// OBJIndex references one corner of a face. Indices are zero-based; -1 means absent.
type OBJIndex struct {
	V  int
	VT int
	VN int
}

// OBJFace is a polygon with three or more corners.
type OBJFace struct {
	Corners []OBJIndex
}

// OBJGroup is a run of faces sharing a group name and material.
type OBJGroup struct {
	Name     string
	Material string // usemtl name, empty if none
	Faces    []OBJFace
}

// OBJ represents a parsed Wavefront OBJ file.
type OBJ struct {
	Positions    [][3]float32
	Normals      [][3]float32
	TexCoords    [][2]float32
	MaterialLibs []string // mtllib references, relative to the OBJ file
	Groups       []OBJGroup
}

// TriangleCount returns the number of triangles after fan triangulation.
func (o *OBJ) TriangleCount() int {
	n := 0
	for _, g := range o.Groups {
		for _, f := range g.Faces {
			n += len(f.Corners) - 2
		}
	}
	return n
}

// ParseOBJ parses Wavefront OBJ text.
// Lines for features the viewer does not draw (lines, points, curves) are skipped.
func ParseOBJ(data []byte) (*OBJ, error) {
	obj := &OBJ{}

	cur := OBJGroup{Name: "default"}
	flush := func() {
		if len(cur.Faces) > 0 {
			obj.Groups = append(obj.Groups, cur)
		}
		cur.Faces = nil
	}

	sc := bufio.NewScanner(bytes.NewReader(data))
	sc.Buffer(make([]byte, 0, 64*1024), 4*1024*1024)

	lineNo := 0
	for sc.Scan() {
		lineNo++
		line := sc.Text()
		if i := strings.IndexByte(line, '#'); i >= 0 {
			line = line[:i]
		}
		fields := strings.Fields(line)
		if len(fields) == 0 {
			continue
		}

		switch fields[0] {
		case "v":
			if len(fields) < 4 {
				return nil, fmt.Errorf("%w: line %d", ErrInvalidOBJVertex, lineNo)
			}
			p, err := parseFloats3(fields[1:4])
			if err != nil {
				return nil, fmt.Errorf("%w: line %d: %v", ErrInvalidOBJVertex, lineNo, err)
			}
			obj.Positions = append(obj.Positions, p)
		case "vn":
			if len(fields) < 4 {
				return nil, fmt.Errorf("%w: line %d: normal", ErrInvalidOBJVertex, lineNo)
			}
			n, err := parseFloats3(fields[1:4])
			if err != nil {
				return nil, fmt.Errorf("%w: line %d: %v", ErrInvalidOBJVertex, lineNo, err)
			}
			obj.Normals = append(obj.Normals, n)
		case "vt":
			var uv [2]float32
			for i := 0; i < 2 && i+1 < len(fields); i++ {
				f, err := strconv.ParseFloat(fields[i+1], 32)
				if err != nil {
					return nil, fmt.Errorf("%w: line %d: %v", ErrInvalidOBJVertex, lineNo, err)
				}
				uv[i] = float32(f)
			}
			obj.TexCoords = append(obj.TexCoords, uv)
		case "f":
			if len(fields) < 4 {
				return nil, fmt.Errorf("%w: line %d: fewer than 3 corners", ErrInvalidOBJFace, lineNo)
			}
			face := OBJFace{Corners: make([]OBJIndex, 0, len(fields)-1)}
			for _, ref := range fields[1:] {
				idx, err := obj.parseCorner(ref)
				if err != nil {
					return nil, fmt.Errorf("%w: line %d: %v", ErrInvalidOBJFace, lineNo, err)
				}
				face.Corners = append(face.Corners, idx)
			}
			cur.Faces = append(cur.Faces, face)
		case "g", "o":
			name := "default"
			if len(fields) > 1 {
				name = strings.Join(fields[1:], " ")
			}
			if name != cur.Name {
				flush()
				cur.Name = name
			}
		case "usemtl":
			name := ""
			if len(fields) > 1 {
				name = strings.Join(fields[1:], " ")
			}
			if name != cur.Material {
				flush()
				cur.Material = name
			}
		case "mtllib":
			obj.MaterialLibs = append(obj.MaterialLibs, fields[1:]...)
		}
	}
	if err := sc.Err(); err != nil {
		return nil, err
	}
	flush()

	if len(obj.Groups) == 0 {
		return nil, ErrEmptyOBJ
	}
	return obj, nil
}

// parseCorner parses "v", "v/vt", "v//vn" or "v/vt/vn" against the elements read so far.
func (o *OBJ) parseCorner(ref string) (OBJIndex, error) {
	idx := OBJIndex{V: -1, VT: -1, VN: -1}
	parts := strings.Split(ref, "/")
	if len(parts) > 3 {
		return idx, fmt.Errorf("corner %q", ref)
	}

	var err error
	if idx.V, err = resolveOBJIndex(parts[0], len(o.Positions)); err != nil {
		return idx, err
	}
	if idx.V < 0 {
		return idx, fmt.Errorf("corner %q has no position", ref)
	}
	if len(parts) > 1 {
		if idx.VT, err = resolveOBJIndex(parts[1], len(o.TexCoords)); err != nil {
			return idx, err
		}
	}
	if len(parts) > 2 {
		if idx.VN, err = resolveOBJIndex(parts[2], len(o.Normals)); err != nil {
			return idx, err
		}
	}
	return idx, nil
}

// resolveOBJIndex converts a 1-based (or negative, relative) index to zero-based.
func resolveOBJIndex(s string, count int) (int, error) {
	if s == "" {
		return -1, nil
	}
	n, err := strconv.Atoi(s)
	if err != nil {
		return -1, fmt.Errorf("index %q: %v", s, err)
	}
	switch {
	case n > 0 && n <= count:
		return n - 1, nil
	case n < 0 && -n <= count:
		return count + n, nil
	default:
		return -1, fmt.Errorf("index %d out of range (have %d)", n, count)
	}
}
