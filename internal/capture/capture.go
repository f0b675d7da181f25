// Package capture turns rendered frames into image files.
package capture

import (
	"bytes"
	"errors"
	"fmt"
	"image"
	"image/png"
	"os"
	"path/filepath"
	"strings"
	"time"

	"golang.org/x/image/bmp"
)

// DefaultFileName is offered when the user is asked where to save a capture.
const DefaultFileName = "screenshot.png"

// ErrCancelled is returned by a Picker when the user declines to choose a path.
var ErrCancelled = errors.New("capture cancelled")

// Picker asks where a capture should go, starting from a suggested file name.
type Picker func(suggested string) (string, error)

// Supported output formats.
const (
	FormatPNG = "png"
	FormatBMP = "bmp"
)

// FromGLPixels copies bottom-up RGBA rows, as returned by glReadPixels, into a
// top-down image.
func FromGLPixels(pixels []byte, width, height int) (*image.RGBA, error) {
	if width <= 0 || height <= 0 {
		return nil, fmt.Errorf("invalid frame size %dx%d", width, height)
	}
	if len(pixels) != width*height*4 {
		return nil, fmt.Errorf("pixel data size mismatch: expected %d, got %d", width*height*4, len(pixels))
	}

	img := image.NewRGBA(image.Rect(0, 0, width, height))
	rowSize := width * 4
	for y := 0; y < height; y++ {
		src := (height - 1 - y) * rowSize
		dst := y * img.Stride
		copy(img.Pix[dst:dst+rowSize], pixels[src:src+rowSize])
	}
	return img, nil
}

// EncodePNG encodes img as PNG.
func EncodePNG(img image.Image) ([]byte, error) {
	return Encode(img, FormatPNG)
}

// Encode encodes img in the named format ("png" or "bmp").
func Encode(img image.Image, format string) ([]byte, error) {
	if img == nil {
		return nil, fmt.Errorf("encoding %s: nil image", format)
	}
	var buf bytes.Buffer
	var err error
	switch strings.ToLower(format) {
	case FormatPNG, "":
		err = png.Encode(&buf, img)
	case FormatBMP:
		err = bmp.Encode(&buf, img)
	default:
		return nil, fmt.Errorf("unsupported capture format %q", format)
	}
	if err != nil {
		return nil, fmt.Errorf("encoding %s: %w", format, err)
	}
	return buf.Bytes(), nil
}

// Saver writes encoded captures into a directory under timestamped names.
type Saver struct {
	Dir    string
	Prefix string
	Ext    string // without dot; defaults to png

	now func() time.Time
}

// NewSaver creates a Saver for dir.
func NewSaver(dir, prefix, ext string) *Saver {
	return &Saver{Dir: dir, Prefix: prefix, Ext: ext, now: time.Now}
}

// Filename returns the path the next Save call would write to.
func (s *Saver) Filename() string {
	now := time.Now
	if s.now != nil {
		now = s.now
	}
	prefix := s.Prefix
	if prefix == "" {
		prefix = "screenshot"
	}
	ext := strings.TrimPrefix(s.Ext, ".")
	if ext == "" {
		ext = FormatPNG
	}
	name := fmt.Sprintf("%s-%s.%s", prefix, now().Format("20060102-150405"), ext)
	if s.Dir != "" {
		name = filepath.Join(s.Dir, name)
	}
	return name
}

// Save writes data to a new timestamped file and returns its path.
func (s *Saver) Save(data []byte) (string, error) {
	if s.Dir != "" {
		if err := os.MkdirAll(s.Dir, 0755); err != nil {
			return "", fmt.Errorf("creating output dir: %w", err)
		}
	}
	path := s.Filename()
	if err := WriteFile(path, data); err != nil {
		return "", err
	}
	return path, nil
}

// SaveAs writes data to the path pick returns, adding the Saver's extension when the
// path has none. A nil pick, or one failing with anything but ErrCancelled, falls
// back to Save. A cancelled pick writes nothing and returns ErrCancelled.
func (s *Saver) SaveAs(data []byte, suggested string, pick Picker) (string, error) {
	if pick == nil {
		return s.Save(data)
	}
	path, err := pick(suggested)
	switch {
	case errors.Is(err, ErrCancelled):
		return "", ErrCancelled
	case err != nil || path == "":
		return s.Save(data)
	}
	if filepath.Ext(path) == "" {
		ext := strings.TrimPrefix(s.Ext, ".")
		if ext == "" {
			ext = FormatPNG
		}
		path += "." + ext
	}
	if err := WriteFile(path, data); err != nil {
		return "", err
	}
	return path, nil
}

// WriteFile writes data to path, creating parent directories.
func WriteFile(path string, data []byte) error {
	if dir := filepath.Dir(path); dir != "." {
		if err := os.MkdirAll(dir, 0755); err != nil {
			return fmt.Errorf("creating output dir: %w", err)
		}
	}
	if err := os.WriteFile(path, data, 0644); err != nil {
		return fmt.Errorf("writing capture: %w", err)
	}
	return nil
}
