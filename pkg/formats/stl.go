// Package formats provides parsers for 3D model interchange formats.
// STL (stereolithography) parser for triangulated solids.
package formats

import (
	"bufio"
	"bytes"
	"encoding/binary"
	"errors"
	"fmt"
	"math"
	"strconv"
	"strings"
)

// STL format errors.
var (
	ErrTruncatedSTL    = errors.New("truncated STL data")
	ErrInvalidSTLASCII = errors.New("invalid ASCII STL")
	ErrInvalidTriCount = errors.New("invalid STL triangle count")
	ErrEmptySTL        = errors.New("STL contains no triangles")
)

const (
	stlHeaderSize   = 80
	stlTriangleSize = 50 // normal + 3 vertices (12 floats) + attribute word
	maxSTLTriangles = 50_000_000
)

// STLTriangle is a single facet of an STL solid.
type STLTriangle struct {
	Normal    [3]float32
	Vertices  [3][3]float32
	Attribute uint16 // Attribute byte count (binary only, some exporters store color here)
}

// STL represents a parsed STL file.
type STL struct {
	Name      string // Solid name (ASCII) or trimmed header text (binary)
	ASCII     bool
	Triangles []STLTriangle
}

// ParseSTL parses STL data in either binary or ASCII form.
func ParseSTL(data []byte) (*STL, error) {
	if isBinarySTL(data) {
		return parseBinarySTL(data)
	}
	if bytes.HasPrefix(bytes.TrimLeft(data, " \t\r\n"), []byte("solid")) {
		return parseASCIISTL(data)
	}
	return parseBinarySTL(data)
}

// isBinarySTL reports whether the declared triangle count matches the data size.
// Some exporters write "solid" into binary headers, so the prefix alone is not enough.
func isBinarySTL(data []byte) bool {
	if len(data) < stlHeaderSize+4 {
		return false
	}
	count := binary.LittleEndian.Uint32(data[stlHeaderSize:])
	return uint64(stlHeaderSize+4)+uint64(count)*stlTriangleSize == uint64(len(data))
}

func parseBinarySTL(data []byte) (*STL, error) {
	if len(data) < stlHeaderSize+4 {
		return nil, ErrTruncatedSTL
	}

	count := binary.LittleEndian.Uint32(data[stlHeaderSize:])
	if count > maxSTLTriangles {
		return nil, fmt.Errorf("%w: %d", ErrInvalidTriCount, count)
	}
	need := stlHeaderSize + 4 + int(count)*stlTriangleSize
	if len(data) < need {
		return nil, fmt.Errorf("%w: need %d bytes for %d triangles, have %d", ErrTruncatedSTL, need, count, len(data))
	}
	if count == 0 {
		return nil, ErrEmptySTL
	}

	stl := &STL{
		Name:      strings.TrimRight(string(bytes.TrimRight(data[:stlHeaderSize], "\x00")), " "),
		Triangles: make([]STLTriangle, count),
	}

	off := stlHeaderSize + 4
	for i := range stl.Triangles {
		tri := &stl.Triangles[i]
		tri.Normal = readVec3(data[off:])
		for v := 0; v < 3; v++ {
			tri.Vertices[v] = readVec3(data[off+12+12*v:])
		}
		tri.Attribute = binary.LittleEndian.Uint16(data[off+48:])
		off += stlTriangleSize
	}

	return stl, nil
}

func readVec3(b []byte) [3]float32 {
	return [3]float32{
		math.Float32frombits(binary.LittleEndian.Uint32(b[0:])),
		math.Float32frombits(binary.LittleEndian.Uint32(b[4:])),
		math.Float32frombits(binary.LittleEndian.Uint32(b[8:])),
	}
}

// parseASCIISTL parses the "solid / facet normal / outer loop / endsolid" form.
func parseASCIISTL(data []byte) (*STL, error) {
	stl := &STL{ASCII: true}

	sc := bufio.NewScanner(bytes.NewReader(data))
	sc.Buffer(make([]byte, 0, 64*1024), 1024*1024)

	var (
		tri     STLTriangle
		inFacet bool
		vertIdx int
		lineNo  int
	)

	for sc.Scan() {
		lineNo++
		fields := strings.Fields(sc.Text())
		if len(fields) == 0 {
			continue
		}

		switch fields[0] {
		case "solid":
			if len(fields) > 1 {
				stl.Name = strings.Join(fields[1:], " ")
			}
		case "facet":
			if inFacet {
				return nil, fmt.Errorf("%w: line %d: nested facet", ErrInvalidSTLASCII, lineNo)
			}
			tri = STLTriangle{}
			inFacet = true
			vertIdx = 0
			if len(fields) >= 5 && fields[1] == "normal" {
				n, err := parseFloats3(fields[2:5])
				if err != nil {
					return nil, fmt.Errorf("%w: line %d: %v", ErrInvalidSTLASCII, lineNo, err)
				}
				tri.Normal = n
			}
		case "vertex":
			if !inFacet || vertIdx >= 3 || len(fields) < 4 {
				return nil, fmt.Errorf("%w: line %d: unexpected vertex", ErrInvalidSTLASCII, lineNo)
			}
			v, err := parseFloats3(fields[1:4])
			if err != nil {
				return nil, fmt.Errorf("%w: line %d: %v", ErrInvalidSTLASCII, lineNo, err)
			}
			tri.Vertices[vertIdx] = v
			vertIdx++
		case "endfacet":
			if !inFacet || vertIdx != 3 {
				return nil, fmt.Errorf("%w: line %d: facet has %d vertices", ErrInvalidSTLASCII, lineNo, vertIdx)
			}
			stl.Triangles = append(stl.Triangles, tri)
			inFacet = false
		case "outer", "endloop", "endsolid":
			// Structural keywords, no data
		default:
			return nil, fmt.Errorf("%w: line %d: unknown keyword %q", ErrInvalidSTLASCII, lineNo, fields[0])
		}
	}
	if err := sc.Err(); err != nil {
		return nil, fmt.Errorf("%w: %v", ErrInvalidSTLASCII, err)
	}
	if inFacet {
		return nil, fmt.Errorf("%w: unterminated facet", ErrTruncatedSTL)
	}
	if len(stl.Triangles) == 0 {
		return nil, ErrEmptySTL
	}

	return stl, nil
}

func parseFloats3(fields []string) ([3]float32, error) {
	var out [3]float32
	for i := 0; i < 3; i++ {
		f, err := strconv.ParseFloat(fields[i], 32)
		if err != nil {
			return out, err
		}
		out[i] = float32(f)
	}
	return out, nil
}
