// Package simulated provides a software capture card. It generates a moving
// test pattern for the configured input signal and loops displayed output
// frames back for inspection.
package simulated

import (
	"sync"
	"time"

	"github.com/smazurov/framelink/internal/device"
)

// Option configures a Card.
type Option func(*Card)

// WithName sets the model name reported in Attributes.
func WithName(name string) Option {
	return func(c *Card) {
		c.name = name
	}
}

// WithFormatDetection controls whether the card reports signal changes.
func WithFormatDetection(enabled bool) Option {
	return func(c *Card) {
		c.formatDetection = enabled
	}
}

// WithoutOutput makes the card input-only.
func WithoutOutput() Option {
	return func(c *Card) {
		c.output = nil
	}
}

// WithSignal sets the signal present on the input connector.
func WithSignal(mode device.DisplayMode, flags device.SignalFlags) Option {
	return func(c *Card) {
		c.input.signal = mode
		c.input.signalFlags = flags
	}
}

// WithFrameInterval overrides the frame period derived from the mode rate.
func WithFrameInterval(d time.Duration) Option {
	return func(c *Card) {
		c.input.interval = d
	}
}

// Card is a simulated device.Handle.
type Card struct {
	id              string
	name            string
	formatDetection bool

	input  *Input
	output *Output

	mu     sync.Mutex
	closed bool
}

// NewCard creates a card carrying a 1080p30 YUV signal.
func NewCard(id string, opts ...Option) *Card {
	c := &Card{
		id:              id,
		name:            "Simulated Capture Card",
		formatDetection: true,
		input: &Input{
			signal:      device.ModeHD1080p30,
			signalFlags: device.SignalYCbCr422,
		},
		output: &Output{},
	}
	for _, opt := range opts {
		opt(c)
	}
	c.input.detection = c.formatDetection
	return c
}

// ID returns the card identifier.
func (c *Card) ID() string { return c.id }

// Attributes reports the card's capabilities.
func (c *Card) Attributes() device.Attributes {
	return device.Attributes{
		Name:                    c.name,
		SupportsFormatDetection: c.formatDetection,
	}
}

// Input returns the capture half.
func (c *Card) Input() (device.Input, error) {
	if c.isClosed() {
		return nil, device.ErrInputUnsupported
	}
	return c.input, nil
}

// Output returns the loopback output, if the card has one.
func (c *Card) Output() (device.Output, error) {
	if c.output == nil || c.isClosed() {
		return nil, device.ErrOutputUnsupported
	}
	return c.output, nil
}

// Loopback returns the concrete output for inspection, or nil.
func (c *Card) Loopback() *Output {
	return c.output
}

// Generator returns the concrete input for signal control.
func (c *Card) Generator() *Input {
	return c.input
}

// Close stops streaming and releases the handle. The notifier reopens the card
// if it reports it again.
func (c *Card) Close() error {
	c.mu.Lock()
	if c.closed {
		c.mu.Unlock()
		return nil
	}
	c.closed = true
	c.mu.Unlock()
	return c.input.StopStreams()
}

func (c *Card) reopen() {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.closed = false
}

func (c *Card) isClosed() bool {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.closed
}
