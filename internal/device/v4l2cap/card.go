//go:build linux && (amd64 || arm64)

// Package v4l2cap drives Video4Linux2 capture devices, such as HDMI bridges
// and USB grabbers, through the device interfaces. Frames are streamed with
// blackjack/webcam; signal changes are detected by polling DV timings.
package v4l2cap

import (
	"log/slog"
	"sync"
	"time"

	"github.com/pkg/errors"

	"github.com/smazurov/framelink/internal/device"
	"github.com/smazurov/framelink/internal/logging"
	"github.com/smazurov/framelink/pkg/linuxav/v4l2"
)

// DefaultSignalPoll is how often DV timings are re-read while streaming.
const DefaultSignalPoll = 500 * time.Millisecond

var errClosed = errors.New("device closed")

// Option configures a Card.
type Option func(*Card)

// WithSignalPoll sets the DV timings poll interval.
func WithSignalPoll(d time.Duration) Option {
	return func(c *Card) {
		if d > 0 {
			c.poll = d
		}
	}
}

// Card is one V4L2 capture node. It has no playback side.
type Card struct {
	info   v4l2.DeviceInfo
	dv     bool
	poll   time.Duration
	logger *slog.Logger

	mu     sync.Mutex
	input  *Input
	closed bool
}

// Open queries the node at path and returns a handle for it.
func Open(path string, opts ...Option) (*Card, error) {
	info, err := v4l2.QueryDevice(path)
	if err != nil {
		return nil, errors.Wrapf(err, "open %s", path)
	}
	if !info.IsCapture() || !info.CanStream() {
		return nil, errors.Errorf("%s is not a streaming capture node", path)
	}

	state := v4l2.GetDVTimings(path).State
	c := &Card{
		info:   info,
		dv:     state != v4l2.SignalStateNotSupported && state != v4l2.SignalStateNoDevice,
		poll:   DefaultSignalPoll,
		logger: logging.GetLogger("device").With("device", path),
	}
	for _, opt := range opts {
		opt(c)
	}
	return c, nil
}

// ID returns the stable device identifier.
func (c *Card) ID() string { return c.info.DeviceID }

// Path returns the device node.
func (c *Card) Path() string { return c.info.DevicePath }

// Attributes reports format detection only for DV timings capable receivers.
func (c *Card) Attributes() device.Attributes {
	return device.Attributes{
		Name:                    c.info.DeviceName,
		SupportsFormatDetection: c.dv,
	}
}

// Input returns the card's capture half.
func (c *Card) Input() (device.Input, error) {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.closed {
		return nil, errClosed
	}
	if c.input == nil {
		c.input = newInput(c.info.DevicePath, c.dv, c.poll, c.logger)
	}
	return c.input, nil
}

// Output always fails; V4L2 capture nodes have no playback side.
func (c *Card) Output() (device.Output, error) {
	return nil, device.ErrOutputUnsupported
}

// Close stops streaming and releases the device node.
func (c *Card) Close() error {
	c.mu.Lock()
	in := c.input
	c.closed = true
	c.input = nil
	c.mu.Unlock()

	if in == nil {
		return nil
	}
	return in.DisableVideoInput()
}
