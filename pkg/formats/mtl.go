// Wavefront MTL material library parser.
package formats

import (
	"bufio"
	"bytes"
	"errors"
	"fmt"
	"strconv"
	"strings"
)

// ErrInvalidMTL is returned for malformed material statements.
var ErrInvalidMTL = errors.New("invalid MTL")

// OBJMaterial is a material declared in an MTL library.
type OBJMaterial struct {
	Name       string
	Diffuse    [3]float32 // Kd
	Opacity    float32    // d, or 1-Tr
	DiffuseMap string     // map_Kd
}

// ParseMTL parses an MTL library into materials keyed by name.
func ParseMTL(data []byte) (map[string]*OBJMaterial, error) {
	materials := make(map[string]*OBJMaterial)
	var cur *OBJMaterial

	sc := bufio.NewScanner(bytes.NewReader(data))
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

		if fields[0] == "newmtl" {
			if len(fields) < 2 {
				return nil, fmt.Errorf("%w: line %d: newmtl without name", ErrInvalidMTL, lineNo)
			}
			cur = &OBJMaterial{
				Name:    strings.Join(fields[1:], " "),
				Diffuse: [3]float32{0.8, 0.8, 0.8},
				Opacity: 1,
			}
			materials[cur.Name] = cur
			continue
		}
		if cur == nil {
			continue
		}

		switch fields[0] {
		case "Kd":
			if len(fields) < 4 {
				return nil, fmt.Errorf("%w: line %d: Kd", ErrInvalidMTL, lineNo)
			}
			kd, err := parseFloats3(fields[1:4])
			if err != nil {
				return nil, fmt.Errorf("%w: line %d: %v", ErrInvalidMTL, lineNo, err)
			}
			cur.Diffuse = kd
		case "d", "Tr":
			if len(fields) < 2 {
				return nil, fmt.Errorf("%w: line %d: %s", ErrInvalidMTL, lineNo, fields[0])
			}
			v, err := strconv.ParseFloat(fields[len(fields)-1], 32)
			if err != nil {
				return nil, fmt.Errorf("%w: line %d: %v", ErrInvalidMTL, lineNo, err)
			}
			if fields[0] == "Tr" {
				v = 1 - v
			}
			cur.Opacity = float32(v)
		case "map_Kd":
			if len(fields) > 1 {
				cur.DiffuseMap = fields[len(fields)-1]
			}
		}
	}
	if err := sc.Err(); err != nil {
		return nil, err
	}
	return materials, nil
}
