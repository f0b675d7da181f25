package config

import "flag"

// Flags are the command-line overrides, applied on top of the config file.
type Flags struct {
	Config     string
	Debug      bool
	Model      string
	Width      int
	Height     int
	CaptureDir string
}

// RegisterFlags defines the viewer flags on fs.
func RegisterFlags(fs *flag.FlagSet) *Flags {
	f := &Flags{}
	fs.StringVar(&f.Config, "config", "", "Path to config file")
	fs.BoolVar(&f.Debug, "debug", false, "Enable debug logging")
	fs.StringVar(&f.Model, "model", "", "Model name or reference to open at startup")
	fs.IntVar(&f.Width, "width", 0, "Window width")
	fs.IntVar(&f.Height, "height", 0, "Window height")
	fs.StringVar(&f.CaptureDir, "capture-dir", "", "Directory for captured frames")
	return f
}

// Apply applies flag overrides to the config.
func (f *Flags) Apply(cfg *Config) {
	if f == nil {
		return
	}
	if f.Debug {
		cfg.Logging.Level = "debug"
	}
	if f.Model != "" {
		cfg.Viewer.InitialModel = f.Model
	}
	if f.Width > 0 {
		cfg.Window.Width = f.Width
	}
	if f.Height > 0 {
		cfg.Window.Height = f.Height
	}
	if f.CaptureDir != "" {
		cfg.Capture.Dir = f.CaptureDir
	}
}
