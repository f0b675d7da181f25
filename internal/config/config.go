// Package config handles viewer configuration loading and management.
package config

import (
	"errors"
	"fmt"
	"strconv"
	"strings"
	"time"
)

// Config holds all viewer settings.
type Config struct {
	Window  WindowConfig  `yaml:"window"`
	Viewer  ViewerConfig  `yaml:"viewer"`
	Models  []ModelEntry  `yaml:"models"`
	Fetch   FetchConfig   `yaml:"fetch"`
	Capture CaptureConfig `yaml:"capture"`
	Logging LoggingConfig `yaml:"logging"`
}

// WindowConfig holds window and render target settings.
type WindowConfig struct {
	Title          string `yaml:"title"`
	Width          int    `yaml:"width"`
	Height         int    `yaml:"height"`
	ViewportWidth  int    `yaml:"viewport_width"`  // offscreen render size
	ViewportHeight int    `yaml:"viewport_height"` // offscreen render size
}

// ViewerConfig holds interaction settings.
type ViewerConfig struct {
	RotationStep float64 `yaml:"rotation_step"` // radians
	ScaleStep    float64 `yaml:"scale_step"`
	MinScale     float64 `yaml:"min_scale"`
	DefaultColor string  `yaml:"default_color"` // hex, applied to geometry without materials
	Background   string  `yaml:"background"`    // hex clear colour
	InitialModel string  `yaml:"initial_model"` // name or reference selected at startup
}

// ModelEntry is one item of the model selector.
type ModelEntry struct {
	Name string `yaml:"name"`
	URL  string `yaml:"url"`
}

// FetchConfig controls how model references are read.
type FetchConfig struct {
	BaseDir   string        `yaml:"base_dir"` // relative references resolve here
	Timeout   time.Duration `yaml:"timeout"`
	UserAgent string        `yaml:"user_agent"`
}

// CaptureConfig controls where frame captures go.
type CaptureConfig struct {
	Dir       string `yaml:"dir"`
	FileName  string `yaml:"file_name"` // suggested name in the save dialog
	Format    string `yaml:"format"`    // png or bmp
	UseDialog bool   `yaml:"use_dialog"`
}

// LoggingConfig holds logging settings.
type LoggingConfig struct {
	Level      string `yaml:"level"`
	LogFile    string `yaml:"log_file"`
	MaxSizeMB  int    `yaml:"max_size_mb"`
	MaxBackups int    `yaml:"max_backups"`
	MaxAgeDays int    `yaml:"max_age_days"`
	Compress   bool   `yaml:"compress"`
}

// Default returns a Config with sensible default values.
func Default() *Config {
	return &Config{
		Window: WindowConfig{
			Title:          "Model Viewer",
			Width:          1280,
			Height:         800,
			ViewportWidth:  960,
			ViewportHeight: 720,
		},
		Viewer: ViewerConfig{
			RotationStep: 0.2,
			ScaleStep:    0.2,
			MinScale:     0.2,
			DefaultColor: "#999999",
			Background:   "#1e1e24",
			InitialModel: "Duck (GLB)",
		},
		Models: []ModelEntry{
			{Name: "Duck (GLB)", URL: "models/Duck.glb"},
			{Name: "AT&T Building (STL)", URL: "models/AT&T Building.stl"},
			{Name: "Bugatti (OBJ)", URL: "models/bugatti.obj"},
		},
		Fetch: FetchConfig{
			BaseDir:   ".",
			Timeout:   30 * time.Second,
			UserAgent: "model-viewer/1.0",
		},
		Capture: CaptureConfig{
			Dir:       "screenshots",
			FileName:  "screenshot.png",
			Format:    "png",
			UseDialog: true,
		},
		Logging: LoggingConfig{
			Level:      "info",
			LogFile:    "",
			MaxSizeMB:  10,
			MaxBackups: 3,
			MaxAgeDays: 28,
		},
	}
}

// Validate checks values the viewer cannot run with.
func (c *Config) Validate() error {
	var errs []error
	if c.Window.Width <= 0 || c.Window.Height <= 0 {
		errs = append(errs, fmt.Errorf("window size %dx%d must be positive", c.Window.Width, c.Window.Height))
	}
	if c.Window.ViewportWidth <= 0 || c.Window.ViewportHeight <= 0 {
		errs = append(errs, fmt.Errorf("viewport size %dx%d must be positive", c.Window.ViewportWidth, c.Window.ViewportHeight))
	}
	if c.Viewer.RotationStep <= 0 {
		errs = append(errs, fmt.Errorf("rotation_step %v must be positive", c.Viewer.RotationStep))
	}
	if c.Viewer.ScaleStep <= 0 {
		errs = append(errs, fmt.Errorf("scale_step %v must be positive", c.Viewer.ScaleStep))
	}
	if c.Viewer.MinScale <= 0 {
		errs = append(errs, fmt.Errorf("min_scale %v must be positive", c.Viewer.MinScale))
	}
	if _, err := ParseColor(c.Viewer.DefaultColor); err != nil {
		errs = append(errs, fmt.Errorf("default_color: %w", err))
	}
	if _, err := ParseColor(c.Viewer.Background); err != nil {
		errs = append(errs, fmt.Errorf("background: %w", err))
	}
	switch strings.ToLower(c.Capture.Format) {
	case "png", "bmp":
	default:
		errs = append(errs, fmt.Errorf("capture format %q must be png or bmp", c.Capture.Format))
	}
	for i, m := range c.Models {
		if m.URL == "" {
			errs = append(errs, fmt.Errorf("models[%d] %q has no url", i, m.Name))
		}
	}
	return errors.Join(errs...)
}

// InitialReference resolves Viewer.InitialModel against the catalog. A value that
// names no catalog entry is returned as a reference.
func (c *Config) InitialReference() string {
	want := c.Viewer.InitialModel
	for _, m := range c.Models {
		if m.Name == want {
			return m.URL
		}
	}
	return want
}

// ParseColor parses "#rgb", "#rrggbb" or "#rrggbbaa" into normalized RGBA.
func ParseColor(s string) ([4]float32, error) {
	hex := strings.TrimPrefix(strings.TrimSpace(s), "#")
	if len(hex) == 3 {
		hex = string([]byte{hex[0], hex[0], hex[1], hex[1], hex[2], hex[2]})
	}
	if len(hex) == 6 {
		hex += "ff"
	}
	if len(hex) != 8 {
		return [4]float32{}, fmt.Errorf("invalid colour %q", s)
	}
	v, err := strconv.ParseUint(hex, 16, 32)
	if err != nil {
		return [4]float32{}, fmt.Errorf("invalid colour %q", s)
	}
	return [4]float32{
		float32(v>>24&0xff) / 255,
		float32(v>>16&0xff) / 255,
		float32(v>>8&0xff) / 255,
		float32(v&0xff) / 255,
	}, nil
}
