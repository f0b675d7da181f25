// Model Viewer - an interactive viewer for glTF, GLB, STL and OBJ models.
package main

import (
	"flag"
	"fmt"
	"os"
	"runtime"

	"go.uber.org/zap"

	"github.com/Faultbox/model-viewer/internal/config"
	"github.com/Faultbox/model-viewer/internal/logger"
)

func main() {
	// SDL and OpenGL calls must stay on the main thread.
	runtime.LockOSThread()

	flags := config.RegisterFlags(flag.CommandLine)
	flag.Parse()

	cfg, err := config.Load(flags)
	if err != nil {
		fmt.Fprintf(os.Stderr, "Error loading config: %v\n", err)
		os.Exit(1)
	}

	if err := logger.Init(loggerOptions(cfg.Logging)); err != nil {
		fmt.Fprintf(os.Stderr, "Error initializing logger: %v\n", err)
		os.Exit(1)
	}
	defer logger.Sync()

	logger.Info("starting model viewer",
		zap.Int("width", cfg.Window.Width),
		zap.Int("height", cfg.Window.Height),
		zap.Int("models", len(cfg.Models)))

	app, err := NewApp(cfg)
	if err != nil {
		logger.Fatal("failed to create viewer", zap.Error(err))
	}
	defer app.Close()

	if ref := cfg.InitialReference(); ref != "" {
		app.Select(ref)
	}

	app.Run()
}

func loggerOptions(lc config.LoggingConfig) logger.Options {
	opts := logger.Options{Level: lc.Level, Console: os.Stderr}
	if lc.LogFile != "" {
		fc := logger.DefaultFileConfig(lc.LogFile)
		if lc.MaxSizeMB > 0 {
			fc.MaxSizeMB = lc.MaxSizeMB
		}
		if lc.MaxBackups > 0 {
			fc.MaxBackups = lc.MaxBackups
		}
		if lc.MaxAgeDays > 0 {
			fc.MaxAgeDays = lc.MaxAgeDays
		}
		fc.Compress = lc.Compress
		opts.File = fc
	}
	return opts
}
