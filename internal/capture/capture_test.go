package capture

import (
	"bytes"
	"errors"
	"image"
	"image/color"
	"image/png"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"golang.org/x/image/bmp"
)

func TestFromGLPixels_FlipsRows(t *testing.T) {
	// 1x2 frame: bottom row red, top row blue (GL order is bottom-up).
	pixels := []byte{
		255, 0, 0, 255,
		0, 0, 255, 255,
	}
	img, err := FromGLPixels(pixels, 1, 2)
	if err != nil {
		t.Fatalf("FromGLPixels: %v", err)
	}
	if got := img.RGBAAt(0, 0); got != (color.RGBA{0, 0, 255, 255}) {
		t.Errorf("top pixel = %v, want blue", got)
	}
	if got := img.RGBAAt(0, 1); got != (color.RGBA{255, 0, 0, 255}) {
		t.Errorf("bottom pixel = %v, want red", got)
	}
}

func TestFromGLPixels_Errors(t *testing.T) {
	tests := []struct {
		name   string
		pixels []byte
		w, h   int
	}{
		{"size mismatch", make([]byte, 7), 1, 2},
		{"zero width", nil, 0, 2},
		{"negative height", nil, 2, -1},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if _, err := FromGLPixels(tt.pixels, tt.w, tt.h); err == nil {
				t.Error("expected error")
			}
		})
	}
}

func testImage() *image.RGBA {
	img := image.NewRGBA(image.Rect(0, 0, 4, 3))
	for i := range img.Pix {
		img.Pix[i] = byte(i * 7)
	}
	for i := 3; i < len(img.Pix); i += 4 {
		img.Pix[i] = 255
	}
	return img
}

func TestEncodePNG(t *testing.T) {
	src := testImage()
	data, err := EncodePNG(src)
	if err != nil {
		t.Fatalf("EncodePNG: %v", err)
	}
	if !bytes.HasPrefix(data, []byte("\x89PNG\r\n\x1a\n")) {
		t.Fatal("missing PNG signature")
	}
	decoded, err := png.Decode(bytes.NewReader(data))
	if err != nil {
		t.Fatalf("decode: %v", err)
	}
	if decoded.Bounds() != src.Bounds() {
		t.Errorf("bounds = %v, want %v", decoded.Bounds(), src.Bounds())
	}
}

func TestEncodeBMP(t *testing.T) {
	data, err := Encode(testImage(), FormatBMP)
	if err != nil {
		t.Fatalf("Encode: %v", err)
	}
	cfg, err := bmp.DecodeConfig(bytes.NewReader(data))
	if err != nil {
		t.Fatalf("decode config: %v", err)
	}
	if cfg.Width != 4 || cfg.Height != 3 {
		t.Errorf("size = %dx%d, want 4x3", cfg.Width, cfg.Height)
	}
}

func TestEncode_Errors(t *testing.T) {
	if _, err := Encode(testImage(), "gif"); err == nil {
		t.Error("expected error for unsupported format")
	}
	if _, err := Encode(nil, FormatPNG); err == nil {
		t.Error("expected error for nil image")
	}
}

func TestSaver(t *testing.T) {
	dir := filepath.Join(t.TempDir(), "captures")
	s := NewSaver(dir, "duck", "")
	s.now = func() time.Time { return time.Date(2024, 3, 9, 14, 5, 6, 0, time.UTC) }

	want := filepath.Join(dir, "duck-20240309-140506.png")
	if got := s.Filename(); got != want {
		t.Fatalf("Filename() = %q, want %q", got, want)
	}

	path, err := s.Save([]byte("png-bytes"))
	if err != nil {
		t.Fatalf("Save: %v", err)
	}
	if path != want {
		t.Errorf("Save path = %q, want %q", path, want)
	}
	data, err := os.ReadFile(path)
	if err != nil {
		t.Fatal(err)
	}
	if string(data) != "png-bytes" {
		t.Errorf("content = %q", data)
	}
}

func TestSaver_Defaults(t *testing.T) {
	s := &Saver{Ext: ".bmp"}
	name := s.Filename()
	if !strings.HasPrefix(name, "screenshot-") || !strings.HasSuffix(name, ".bmp") {
		t.Errorf("unexpected default name %q", name)
	}
}

func TestSaver_SaveAs(t *testing.T) {
	dir := t.TempDir()
	chosen := filepath.Join(dir, "picked")
	stamp := func() time.Time { return time.Date(2024, 3, 9, 14, 5, 6, 0, time.UTC) }
	fallback := filepath.Join(dir, "out", "screenshot-20240309-140506.bmp")

	tests := []struct {
		name    string
		pick    Picker
		want    string
		wantErr error
	}{
		{"no picker", nil, fallback, nil},
		{"picked path gets extension", func(string) (string, error) { return chosen, nil }, chosen + ".bmp", nil},
		{"picker failure falls back", func(string) (string, error) { return "", errors.New("no display") }, fallback, nil},
		{"cancelled writes nothing", func(string) (string, error) { return "", ErrCancelled }, "", ErrCancelled},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			os.RemoveAll(filepath.Join(dir, "out"))
			os.Remove(chosen + ".bmp")

			s := NewSaver(filepath.Join(dir, "out"), "screenshot", FormatBMP)
			s.now = stamp
			path, err := s.SaveAs([]byte("bmp-bytes"), "screenshot.bmp", tt.pick)
			if !errors.Is(err, tt.wantErr) {
				t.Fatalf("SaveAs error = %v, want %v", err, tt.wantErr)
			}
			if path != tt.want {
				t.Errorf("SaveAs path = %q, want %q", path, tt.want)
			}
			if tt.wantErr != nil {
				if _, err := os.Stat(fallback); !os.IsNotExist(err) {
					t.Errorf("expected no fallback file, stat err = %v", err)
				}
				return
			}
			if data, err := os.ReadFile(path); err != nil || string(data) != "bmp-bytes" {
				t.Errorf("content = %q, %v", data, err)
			}
		})
	}
}
