package main

import (
	"bytes"
	"encoding/json"
	"errors"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/Faultbox/model-viewer/internal/loader"
)

const triangleSTL = `solid tri
  facet normal 0 0 1
    outer loop
      vertex 10 10 10
      vertex 12 10 10
      vertex 10 13 10
    endloop
  endfacet
endsolid tri
`

// setup writes a model and a config pointing base_dir at it.
func setup(t *testing.T) string {
	t.Helper()
	dir := t.TempDir()
	if err := os.WriteFile(filepath.Join(dir, "tri.stl"), []byte(triangleSTL), 0644); err != nil {
		t.Fatal(err)
	}
	cfg := "fetch:\n  base_dir: " + dir + "\nmodels:\n  - name: Triangle\n    url: tri.stl\n  - name: Legacy\n    url: old.fbx\n"
	cfgPath := filepath.Join(dir, "viewer.yaml")
	if err := os.WriteFile(cfgPath, []byte(cfg), 0644); err != nil {
		t.Fatal(err)
	}
	return cfgPath
}

func execute(t *testing.T, args ...string) (string, error) {
	t.Helper()
	var out, errOut bytes.Buffer
	cmd := newRootCmd()
	cmd.SetOut(&out)
	cmd.SetErr(&errOut)
	cmd.SetArgs(args)
	err := cmd.Execute()
	return out.String(), err
}

func TestFormatsCommand(t *testing.T) {
	out, err := execute(t, "formats")
	if err != nil {
		t.Fatalf("formats: %v", err)
	}
	for _, want := range []string{".glb", ".gltf", "SceneGraph", ".stl", "MeshWithMaterials", ".obj", "TaggedMesh"} {
		if !strings.Contains(out, want) {
			t.Errorf("expected %q in output:\n%s", want, out)
		}
	}
}

func TestCatalogCommand(t *testing.T) {
	cfgPath := setup(t)
	out, err := execute(t, "catalog", "--config", cfgPath)
	if err != nil {
		t.Fatalf("catalog: %v", err)
	}

	lines := strings.Split(strings.TrimSpace(out), "\n")
	if len(lines) != 3 {
		t.Fatalf("expected header and 2 rows, got %d:\n%s", len(lines), out)
	}
	if !strings.Contains(lines[1], "Triangle") || !strings.Contains(lines[1], "MeshWithMaterials") {
		t.Errorf("unexpected row %q", lines[1])
	}
	if !strings.Contains(lines[2], "unsupported") {
		t.Errorf("expected unsupported marker in %q", lines[2])
	}
}

func TestInspectText(t *testing.T) {
	cfgPath := setup(t)
	out, err := execute(t, "inspect", "--config", cfgPath, "tri.stl")
	if err != nil {
		t.Fatalf("inspect: %v", err)
	}
	for _, want := range []string{"Format:    MeshWithMaterials", "Triangles: 1", "[default]", "#999999", "Tree:"} {
		if !strings.Contains(out, want) {
			t.Errorf("expected %q in output:\n%s", want, out)
		}
	}
}

func TestInspectJSONIsCentered(t *testing.T) {
	cfgPath := setup(t)
	out, err := execute(t, "inspect", "--config", cfgPath, "--json", "tri.stl")
	if err != nil {
		t.Fatalf("inspect: %v", err)
	}

	var s Summary
	if err := json.Unmarshal([]byte(out), &s); err != nil {
		t.Fatalf("decoding summary: %v\n%s", err, out)
	}
	if s.Triangles != 1 || s.Meshes != 1 {
		t.Errorf("expected 1 mesh with 1 triangle, got %d/%d", s.Meshes, s.Triangles)
	}
	for i := 0; i < 3; i++ {
		if d := s.Min[i] + s.Max[i]; d > 1e-5 || d < -1e-5 {
			t.Errorf("axis %d not centered: min %v max %v", i, s.Min[i], s.Max[i])
		}
	}
	if len(s.Materials) != 1 || !s.Materials[0].Default {
		t.Errorf("expected one default material, got %+v", s.Materials)
	}
}

func TestInspectUnsupported(t *testing.T) {
	cfgPath := setup(t)
	_, err := execute(t, "inspect", "--config", cfgPath, "old.fbx")

	var unsupported *loader.UnsupportedFormatError
	if !errors.As(err, &unsupported) {
		t.Fatalf("expected UnsupportedFormatError, got %v", err)
	}
}

func TestInspectMissingFile(t *testing.T) {
	cfgPath := setup(t)
	_, err := execute(t, "inspect", "--config", cfgPath, "missing.obj")

	var fetchErr *loader.FetchError
	if !errors.As(err, &fetchErr) {
		t.Fatalf("expected FetchError, got %v", err)
	}
}
