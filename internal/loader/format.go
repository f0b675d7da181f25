// Package loader resolves model references to a decoding strategy by file suffix and
// produces centered, format-independent scene nodes.
package loader

import (
	"fmt"
	"net/url"
	"path"
	"sort"
	"strings"
)

// FormatTag classifies supported container formats. Each tag maps to exactly one Decoder.
type FormatTag int

const (
	// FormatUnknown is never produced for a valid reference.
	FormatUnknown FormatTag = iota
	// FormatMeshWithMaterials is a single triangulated solid (STL).
	FormatMeshWithMaterials
	// FormatSceneGraph is a hierarchical multi-node scene with materials (glTF, GLB).
	FormatSceneGraph
	// FormatTaggedMesh is a plain-text mesh with named groups (OBJ).
	FormatTaggedMesh
)

// String returns a human-readable tag name.
func (f FormatTag) String() string {
	switch f {
	case FormatMeshWithMaterials:
		return "MeshWithMaterials"
	case FormatSceneGraph:
		return "SceneGraph"
	case FormatTaggedMesh:
		return "TaggedMesh"
	default:
		return fmt.Sprintf("Unknown(%d)", int(f))
	}
}

// formatTable maps lower-case suffixes to their tag.
var formatTable = map[string]FormatTag{
	"glb":  FormatSceneGraph,
	"gltf": FormatSceneGraph,
	"stl":  FormatMeshWithMaterials,
	"obj":  FormatTaggedMesh,
}

// Suffix returns the lower-cased text after the last '.' of the reference's final path
// element. URL queries and fragments are ignored. Returns "" when there is no suffix.
func Suffix(ref string) string {
	p := ref
	if u, err := url.Parse(ref); err == nil && u.Scheme != "" && u.Opaque == "" && len(u.Scheme) > 1 {
		p = u.Path
	}
	p = strings.ReplaceAll(p, "\\", "/")
	base := path.Base(p)
	i := strings.LastIndexByte(base, '.')
	if i < 0 || i == len(base)-1 {
		return ""
	}
	return strings.ToLower(base[i+1:])
}

// FormatOf resolves the reference's format tag.
// Unknown suffixes fail with *UnsupportedFormatError.
func FormatOf(ref string) (FormatTag, error) {
	suffix := Suffix(ref)
	tag, ok := formatTable[suffix]
	if !ok {
		return FormatUnknown, &UnsupportedFormatError{Reference: ref, Suffix: suffix}
	}
	return tag, nil
}

// SupportedSuffixes returns the known suffixes in sorted order.
func SupportedSuffixes() []string {
	out := make([]string, 0, len(formatTable))
	for s := range formatTable {
		out = append(out, s)
	}
	sort.Strings(out)
	return out
}
