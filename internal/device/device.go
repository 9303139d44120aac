// Package device defines the capability interfaces between the capture core and
// a capture card driver.
//
// The core never polls the driver. It registers an InputCallback to be told
// about frames and signal changes, and a DeviceHandler to be told about
// hot-plug. Every outbound driver call returns an error; a non-nil error is the
// driver's failure status and aborts whatever transition issued the call.
package device

import (
	"errors"
	"time"
)

// TicksPerSecond is the resolution of Frame.StreamTime (100 ns ticks).
const TicksPerSecond = int64(time.Second / 100)

// Errors reported by drivers and helpers.
var (
	ErrOutputUnsupported = errors.New("device has no video output")
	ErrInputUnsupported  = errors.New("device has no video input")
	ErrUnknownMode       = errors.New("unknown display mode")
)

// Attributes describes static capabilities of a device.
type Attributes struct {
	Name                    string
	SupportsFormatDetection bool
}

// Handle is one physical capture card. Close releases it; a handle must not be
// used after Close.
type Handle interface {
	ID() string
	Attributes() Attributes
	Input() (Input, error)
	Output() (Output, error)
	Close() error
}

// InputFlags modify EnableVideoInput.
type InputFlags uint32

// Input flags.
const (
	InputFlagDefault           InputFlags = 0
	InputEnableFormatDetection InputFlags = 1 << 0
)

// Has reports whether all bits of f are set.
func (i InputFlags) Has(f InputFlags) bool {
	return i&f == f
}

// DefaultPlaybackTimescale is the scheduled playback timescale used when none
// is configured.
const DefaultPlaybackTimescale int64 = 600

// DefaultPlaybackSpeed is the speed passed to StartScheduledPlayback.
const DefaultPlaybackSpeed = 1.0

// Input is the capture half of a device.
type Input interface {
	// SetCallback installs the frame/format callback. nil uninstalls it.
	SetCallback(cb InputCallback)
	EnableVideoInput(mode DisplayMode, format PixelFormat, flags InputFlags) error
	DisableVideoInput() error
	StartStreams() error
	StopStreams() error
	FlushStreams() error
}

// Output is the playback half of a device.
type Output interface {
	EnableVideoOutput(mode DisplayMode) error
	DisableVideoOutput() error
	StartScheduledPlayback(start, timescale int64, speed float64) error
	StopScheduledPlayback() error
	CreateVideoFrame(width, height, rowBytes int, format PixelFormat) (OutputFrame, error)
	DisplayVideoFrameSync(frame OutputFrame) error
}

// OutputFrame is a driver-owned frame whose bytes the device samples on its
// next display.
type OutputFrame interface {
	Bytes() []byte
	RowBytes() int
	Height() int
}

// Frame is one captured video frame as delivered by the driver. Pixels is only
// valid for the duration of the callback.
type Frame struct {
	Pixels     []byte
	RowBytes   int
	Height     int
	StreamTime int64
	Format     PixelFormat
}

// Len returns the number of meaningful bytes in the frame.
func (f Frame) Len() int {
	n := f.RowBytes * f.Height
	if n > len(f.Pixels) {
		return len(f.Pixels)
	}
	return n
}

// FormatChange reports a newly detected input signal.
type FormatChange struct {
	Width  int
	Height int
	Mode   DisplayMode
	Flags  SignalFlags
}

// FrameHandler receives frames on the driver's thread.
type FrameHandler interface {
	FrameArrived(frame Frame)
}

// FormatHandler receives detected signal changes on the driver's thread.
type FormatHandler interface {
	FormatChanged(change FormatChange) error
}

// InputCallback is the full capture callback target.
type InputCallback interface {
	FrameHandler
	FormatHandler
}

// DeviceHandler receives hot-plug notifications. DeviceArrived returns true
// when the handler keeps the handle; otherwise the notifier must release it.
type DeviceHandler interface {
	DeviceArrived(h Handle) bool
	DeviceRemoved(h Handle)
}

// Notifier delivers hot-plug notifications.
type Notifier interface {
	InstallDeviceNotifications(h DeviceHandler) error
	UninstallDeviceNotifications() error
}
