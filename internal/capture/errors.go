package capture

import "errors"

// Errors returned by Session operations.
var (
	ErrClosed            = errors.New("capture session closed")
	ErrNoDevice          = errors.New("no capture device")
	ErrNoInput           = errors.New("device has no usable video input")
	ErrNoFrame           = errors.New("no frame captured yet")
	ErrUnsupportedFormat = errors.New("signal format does not match the configured target")
	ErrInvalidConfig     = errors.New("invalid capture configuration")
)
