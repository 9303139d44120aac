package simulated

import (
	"errors"
	"sync"

	"github.com/smazurov/framelink/internal/device"
)

var (
	errOutputNotEnabled = errors.New("video output not enabled")
	errForeignFrame     = errors.New("frame was not created by this output")
)

// Output loops displayed frames back so callers can inspect them.
type Output struct {
	mu sync.Mutex

	enabled   bool
	playing   bool
	mode      device.DisplayMode
	timescale int64

	last      []byte
	displayed int64
}

// Frame is a host-memory output frame.
type Frame struct {
	pix      []byte
	rowBytes int
	height   int
	format   device.PixelFormat
}

// Bytes returns the frame's pixel storage.
func (f *Frame) Bytes() []byte { return f.pix }

// RowBytes returns the stride.
func (f *Frame) RowBytes() int { return f.rowBytes }

// Height returns the row count.
func (f *Frame) Height() int { return f.height }

// EnableVideoOutput enables output in mode.
func (o *Output) EnableVideoOutput(mode device.DisplayMode) error {
	if w, _ := mode.Dimensions(); w == 0 {
		return device.ErrUnknownMode
	}
	o.mu.Lock()
	defer o.mu.Unlock()
	o.enabled = true
	o.mode = mode
	return nil
}

// DisableVideoOutput disables output.
func (o *Output) DisableVideoOutput() error {
	o.mu.Lock()
	defer o.mu.Unlock()
	o.enabled = false
	o.playing = false
	return nil
}

// StartScheduledPlayback starts the playback clock.
func (o *Output) StartScheduledPlayback(_, timescale int64, _ float64) error {
	o.mu.Lock()
	defer o.mu.Unlock()
	if !o.enabled {
		return errOutputNotEnabled
	}
	o.playing = true
	o.timescale = timescale
	return nil
}

// StopScheduledPlayback stops the playback clock.
func (o *Output) StopScheduledPlayback() error {
	o.mu.Lock()
	defer o.mu.Unlock()
	o.playing = false
	return nil
}

// CreateVideoFrame allocates a frame of rowBytes*height bytes.
func (o *Output) CreateVideoFrame(_, height, rowBytes int, format device.PixelFormat) (device.OutputFrame, error) {
	return &Frame{
		pix:      make([]byte, rowBytes*height),
		rowBytes: rowBytes,
		height:   height,
		format:   format,
	}, nil
}

// DisplayVideoFrameSync copies frame to the loopback buffer.
func (o *Output) DisplayVideoFrameSync(frame device.OutputFrame) error {
	f, ok := frame.(*Frame)
	if !ok {
		return errForeignFrame
	}

	o.mu.Lock()
	defer o.mu.Unlock()
	if !o.enabled {
		return errOutputNotEnabled
	}
	o.last = append(o.last[:0], f.pix...)
	o.displayed++
	return nil
}

// Playing reports whether scheduled playback is running.
func (o *Output) Playing() bool {
	o.mu.Lock()
	defer o.mu.Unlock()
	return o.playing
}

// LastDisplayed returns a copy of the last displayed frame and the number of
// frames displayed so far.
func (o *Output) LastDisplayed() ([]byte, int64) {
	o.mu.Lock()
	defer o.mu.Unlock()
	return append([]byte(nil), o.last...), o.displayed
}
