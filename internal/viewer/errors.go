package viewer

import "errors"

// ErrCaptureUnavailable is returned by CaptureFrame when there is no rendered frame to
// read: no surface is attached or the active model is not ready.
var ErrCaptureUnavailable = errors.New("capture unavailable: no rendered frame")
