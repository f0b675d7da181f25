package main

import (
	"errors"
	"fmt"
	"path/filepath"
	"strings"

	"github.com/sqweek/dialog"
	"go.uber.org/zap"

	"github.com/Faultbox/model-viewer/internal/capture"
	"github.com/Faultbox/model-viewer/internal/viewer"
)

// captureFrame encodes the current frame and hands it to the save path. Encoding
// happens here on the GL thread; the dialog and file write run in a goroutine.
func (app *App) captureFrame() {
	format := strings.ToLower(app.cfg.Capture.Format)
	if format == "" {
		format = capture.FormatPNG
	}

	data, err := app.encodeFrame(format)
	if err != nil {
		if errors.Is(err, viewer.ErrCaptureUnavailable) {
			app.showNotification("Nothing to capture yet")
		} else {
			app.showNotification(fmt.Sprintf("Capture failed: %v", err))
		}
		app.log.Warn("capture failed", zap.Error(err))
		return
	}

	go app.saveCapture(data, format)
}

func (app *App) encodeFrame(format string) ([]byte, error) {
	if format == capture.FormatPNG {
		return app.ctrl.CaptureFrame()
	}
	img, err := app.ctrl.CaptureImage()
	if err != nil {
		return nil, err
	}
	return capture.Encode(img, format)
}

// saveCapture writes data through the save dialog, or to a timestamped file in the
// capture dir when dialogs are disabled or fail to open. Cancelling saves nothing.
func (app *App) saveCapture(data []byte, format string) {
	var pick capture.Picker
	if app.cfg.Capture.UseDialog {
		pick = app.pickCapturePath(format)
	}

	saver := capture.NewSaver(app.cfg.Capture.Dir, "screenshot", format)
	path, err := saver.SaveAs(data, captureFileName(app.cfg.Capture.FileName, format), pick)
	switch {
	case errors.Is(err, capture.ErrCancelled):
		app.log.Debug("capture cancelled")
		return
	case err != nil:
		app.log.Error("failed to save capture", zap.Error(err))
		app.notify(fmt.Sprintf("Capture failed: %v", err))
		return
	}
	app.log.Info("capture saved", zap.String("path", path), zap.Int("bytes", len(data)))
	app.notify("Saved: " + path)
}

func (app *App) pickCapturePath(format string) capture.Picker {
	return func(suggested string) (string, error) {
		path, err := dialog.File().
			Filter(strings.ToUpper(format)+" Image", format).
			Title("Save Capture").
			SetStartFile(suggested).
			Save()
		if err == dialog.ErrCancelled {
			return "", capture.ErrCancelled
		}
		if err != nil {
			app.log.Warn("save dialog failed", zap.Error(err))
		}
		return path, err
	}
}

// captureFileName swaps the configured name's extension for format.
func captureFileName(name, format string) string {
	if name == "" {
		name = capture.DefaultFileName
	}
	return strings.TrimSuffix(name, filepath.Ext(name)) + "." + format
}
