// Package mirror re-emits composited frames to a device's video output in step
// with the capture clock.
//
// The render thread stages a texture with SubmitCompositedFrame and calls Pump
// once per tick. Pump copies a finished readback into the reusable output frame
// and starts the next readback, so the render thread never waits on the GPU.
// The capture thread calls DisplaySync on every captured frame, which hands the
// current output frame to the device.
//
// All state is guarded by the output lock. The capture session may take the
// output lock while already holding its capture lock (frame arrival, format
// change); the mirror never takes the capture lock.
package mirror

import (
	"errors"
	"log/slog"
	"sync"

	"github.com/smazurov/framelink/internal/device"
	"github.com/smazurov/framelink/internal/logging"
	"github.com/smazurov/framelink/internal/texture"
)

// ErrNoData is returned by Readback.Fetch when no completed readback exists.
var ErrNoData = errors.New("no readback data available")

// Readback pulls texture contents into host memory asynchronously.
type Readback interface {
	// PrepareFetch starts copying src. It must not block on the copy.
	PrepareFetch(src texture.Texture) error
	// DataAvailable reports whether a completed copy is waiting.
	DataAvailable() bool
	// Fetch moves the completed copy into dst.
	Fetch(dst []byte) error
}

// Mirror owns the reusable output frame and the readback staging state.
type Mirror struct {
	mu       sync.Mutex
	frame    device.OutputFrame
	readback Readback
	source   texture.Texture
	logger   *slog.Logger
}

// New creates a mirror writing into frame.
func New(frame device.OutputFrame, readback Readback) *Mirror {
	return &Mirror{
		frame:    frame,
		readback: readback,
		logger:   logging.GetLogger("mirror"),
	}
}

// SubmitCompositedFrame stages tex as the source for the next readback.
// Passing nil stops mirroring new content; the last fetched frame keeps
// being displayed.
func (m *Mirror) SubmitCompositedFrame(tex texture.Texture) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.source = tex
}

// Pump collects a finished readback into the output frame, then kicks off the
// next readback of the staged texture. It returns true when the output frame
// was refreshed.
func (m *Mirror) Pump() (bool, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	refreshed := false
	if m.readback.DataAvailable() {
		if err := m.readback.Fetch(m.frame.Bytes()); err != nil && !errors.Is(err, ErrNoData) {
			readbackErrors.Inc()
			return false, err
		}
		refreshed = true
		framesFetched.Inc()
	}

	if m.source == nil {
		return refreshed, nil
	}
	if err := m.readback.PrepareFetch(m.source); err != nil {
		readbackErrors.Inc()
		m.logger.Debug("Readback staging failed", "error", err)
		return refreshed, err
	}
	return refreshed, nil
}

// DisplaySync hands the current output frame to out for immediate display.
func (m *Mirror) DisplaySync(out device.Output) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	if err := out.DisplayVideoFrameSync(m.frame); err != nil {
		displayErrors.Inc()
		return err
	}
	framesDisplayed.Inc()
	return nil
}

// Hold runs fn with the output lock held.
func (m *Mirror) Hold(fn func()) {
	m.mu.Lock()
	defer m.mu.Unlock()
	fn()
}

// Frame returns the reusable output frame.
func (m *Mirror) Frame() device.OutputFrame {
	return m.frame
}
