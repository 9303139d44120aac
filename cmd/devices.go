package cmd

import (
	"time"

	"github.com/smazurov/framelink/internal/capture"
	"github.com/smazurov/framelink/internal/config"
	"github.com/smazurov/framelink/internal/device"
	"github.com/smazurov/framelink/internal/device/simulated"
	"github.com/smazurov/framelink/internal/device/v4l2cap"
)

// SimulatedDeviceID identifies the built-in test-pattern card.
const SimulatedDeviceID = "simulated-0"

// NewNotifier returns the device source selected by opts: the test-pattern
// card, a single V4L2 node, or hot-plug discovery of every V4L2 capture node.
func NewNotifier(opts *config.Options, mode device.DisplayMode) device.Notifier {
	if opts.DeviceSimulate {
		card := simulated.NewCard(SimulatedDeviceID,
			simulated.WithName("Framelink test pattern"),
			simulated.WithSignal(mode, device.SignalYCbCr422),
		)
		return simulated.NewNotifier(card)
	}

	var paths []string
	if opts.DevicePath != "" {
		paths = []string{opts.DevicePath}
	}
	return v4l2cap.NewNotifier(paths, time.Duration(opts.DeviceSignalPoll)*time.Millisecond)
}

// CaptureConfig returns the session geometry described by opts.
func CaptureConfig(opts *config.Options) capture.Config {
	return capture.Config{
		Width:             opts.FrameWidth,
		Height:            opts.FrameHeight,
		BytesPerPixel:     opts.FrameBytesPerPixel,
		RingSize:          opts.FrameRingSize,
		PlaybackTimescale: int64(opts.OutputPlaybackTimescale),
		OutputEnabled:     opts.OutputEnabled,
	}
}
