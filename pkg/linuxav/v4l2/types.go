//go:build linux && (amd64 || arm64)

package v4l2

import (
	"errors"
	"syscall"
)

// ErrEventsNotSupported is returned when the device doesn't support V4L2 events.
var ErrEventsNotSupported = errors.New("v4l2: source change events not supported")

// ErrNoSignal is returned by ApplyDetectedTimings when nothing is locked.
var ErrNoSignal = errors.New("v4l2: no signal locked")

// DeviceInfo contains information about a V4L2 capture device.
type DeviceInfo struct {
	DevicePath string
	DeviceName string
	DeviceID   string // Stable identifier (from /dev/v4l/by-id/ or synthetic)
	Driver     string
	Caps       uint32
}

// IsCapture reports whether the node captures video. USB grabbers also
// expose metadata nodes that do not.
func (d DeviceInfo) IsCapture() bool {
	return d.Caps&v4l2CapVideoCapture != 0
}

// CanStream reports whether the device supports streaming I/O.
func (d DeviceInfo) CanStream() bool {
	return d.Caps&v4l2CapStreaming != 0
}

// SignalState represents the state of a video signal.
type SignalState int

// Signal states.
const (
	SignalStateNoDevice     SignalState = -1
	SignalStateNoLink       SignalState = 0 // No cable connected
	SignalStateNoSignal     SignalState = 1 // Cable connected, no signal
	SignalStateUnstable     SignalState = 2 // Signal present but unstable
	SignalStateLocked       SignalState = 3
	SignalStateOutOfRange   SignalState = 4
	SignalStateNotSupported SignalState = 5 // Device doesn't support DV timings
)

func (s SignalState) String() string {
	switch s {
	case SignalStateNoDevice:
		return "no_device"
	case SignalStateNoLink:
		return "no_link"
	case SignalStateNoSignal:
		return "no_signal"
	case SignalStateUnstable:
		return "unstable"
	case SignalStateLocked:
		return "locked"
	case SignalStateOutOfRange:
		return "out_of_range"
	case SignalStateNotSupported:
		return "not_supported"
	default:
		return "unknown"
	}
}

// stateForErrno maps a QUERY_DV_TIMINGS failure to a signal state.
func stateForErrno(err error) SignalState {
	switch {
	case errors.Is(err, syscall.ENOLINK):
		return SignalStateNoLink
	case errors.Is(err, syscall.ENOLCK):
		return SignalStateUnstable
	case errors.Is(err, syscall.ERANGE):
		return SignalStateOutOfRange
	case errors.Is(err, syscall.ENOTTY):
		return SignalStateNotSupported
	default:
		return SignalStateNoSignal
	}
}

// SignalStatus contains detailed signal information.
type SignalStatus struct {
	State      SignalState
	Width      uint32
	Height     uint32
	FPS        float64
	Interlaced bool
}

// Source change flags reported by WaitForSourceChange.
const (
	SourceChangeResolution uint32 = 1 << 0
)
