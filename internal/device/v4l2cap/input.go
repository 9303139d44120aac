//go:build linux && (amd64 || arm64)

package v4l2cap

import (
	"log/slog"
	"sync"
	"sync/atomic"
	"time"

	"github.com/blackjack/webcam"
	"github.com/pkg/errors"

	"github.com/smazurov/framelink/internal/device"
	"github.com/smazurov/framelink/pkg/linuxav/v4l2"
)

const (
	// bufferCount is the number of driver buffers and of copies in flight
	// between the reader and the callback goroutine.
	bufferCount = 4
	// waitSeconds bounds WaitForFrame so the reader notices StopStreams.
	waitSeconds = 1
)

var (
	errInputNotEnabled = errors.New("video input not enabled")
	errStreaming       = errors.New("streams already running")
)

type capturedFrame struct {
	pixels     []byte
	streamTime int64
}

// stream is the state shared by one StartStreams/StopStreams cycle.
type stream struct {
	stop   chan struct{}
	frames chan capturedFrame
	free   chan []byte
}

// Input streams frames from one device node. Two goroutines serve a running
// stream: a reader that owns the webcam handle and never blocks on the
// consumer, and a delivery goroutine that runs callbacks and polls the
// receiver's timings.
type Input struct {
	path   string
	dv     bool
	poll   time.Duration
	logger *slog.Logger

	mu      sync.Mutex
	cb      device.InputCallback
	enabled bool
	mode    device.DisplayMode
	format  device.PixelFormat
	flags   device.InputFlags
	code    uint32
	width   int
	height  int
	cam     *webcam.Webcam
	current *stream
	// closed when the reader has stopped streaming on cam
	readerDone chan struct{}
	// last mode the consumer knows about, either enabled or reported
	known device.DisplayMode

	dropped atomic.Int64
}

func newInput(path string, dv bool, poll time.Duration, logger *slog.Logger) *Input {
	return &Input{path: path, dv: dv, poll: poll, logger: logger}
}

// SetCallback installs cb. nil uninstalls.
func (in *Input) SetCallback(cb device.InputCallback) {
	in.mu.Lock()
	defer in.mu.Unlock()
	in.cb = cb
}

// EnableVideoInput opens the node and negotiates the frame layout. On an
// already enabled input it reopens with the new configuration.
func (in *Input) EnableVideoInput(mode device.DisplayMode, format device.PixelFormat, flags device.InputFlags) error {
	width, height := mode.Dimensions()
	if width == 0 {
		return device.ErrUnknownMode
	}

	in.mu.Lock()
	defer in.mu.Unlock()
	if in.current != nil {
		return errStreaming
	}
	in.releaseLocked()

	if in.dv {
		if status, err := v4l2.ApplyDetectedTimings(in.path); err != nil {
			in.logger.Debug("Receiver timings not applied", "state", status.State, "error", err)
		}
	}

	cam, code, err := openCamera(in.path, format, width, height)
	if err != nil {
		return err
	}

	in.cam = cam
	in.code = code
	in.width, in.height = width, height
	in.enabled = true
	in.mode = mode
	in.format = format
	in.flags = flags
	in.known = mode
	in.logger.Debug("Video input enabled", "mode", mode, "layout", fourccString(code))
	return nil
}

func openCamera(path string, format device.PixelFormat, width, height int) (*webcam.Webcam, uint32, error) {
	cam, err := webcam.Open(path)
	if err != nil {
		return nil, 0, errors.Wrap(err, "can not open device")
	}

	supported := cam.GetSupportedFormats()
	for _, code := range candidates(format) {
		if _, ok := supported[webcam.PixelFormat(code)]; !ok {
			continue
		}
		got, w, h, err := cam.SetImageFormat(webcam.PixelFormat(code), uint32(width), uint32(height))
		if err != nil {
			_ = cam.Close()
			return nil, 0, errors.Wrapf(err, "can not set %s %dx%d", fourccString(code), width, height)
		}
		if uint32(got) != code || int(w) != width || int(h) != height {
			_ = cam.Close()
			return nil, 0, errors.Errorf("device negotiated %s %dx%d instead of %s %dx%d",
				fourccString(uint32(got)), w, h, fourccString(code), width, height)
		}
		if err := cam.SetBufferCount(bufferCount); err != nil {
			_ = cam.Close()
			return nil, 0, errors.Wrap(err, "can not set buffer count")
		}
		return cam, code, nil
	}

	_ = cam.Close()
	return nil, 0, errors.Errorf("device offers no layout for %s", format)
}

// releaseLocked waits for the reader to let go of the handle and closes it.
func (in *Input) releaseLocked() {
	if in.readerDone != nil {
		<-in.readerDone
		in.readerDone = nil
	}
	if in.cam != nil {
		if err := in.cam.Close(); err != nil {
			in.logger.Debug("Failed to close device", "error", err)
		}
		in.cam = nil
	}
	in.enabled = false
}

// DisableVideoInput stops any running stream and closes the node.
func (in *Input) DisableVideoInput() error {
	in.mu.Lock()
	defer in.mu.Unlock()
	in.stopLocked()
	in.releaseLocked()
	return nil
}

// StartStreams begins streaming on the enabled node.
func (in *Input) StartStreams() error {
	in.mu.Lock()
	defer in.mu.Unlock()
	if !in.enabled {
		return errInputNotEnabled
	}
	if in.current != nil {
		return errStreaming
	}
	if in.readerDone != nil {
		<-in.readerDone
		in.readerDone = nil
	}
	if err := in.cam.StartStreaming(); err != nil {
		return errors.Wrap(err, "can not start streaming")
	}

	size := in.width * in.format.BytesPerPixel() * in.height
	st := &stream{
		stop:   make(chan struct{}),
		frames: make(chan capturedFrame, bufferCount),
		free:   make(chan []byte, bufferCount),
	}
	for range bufferCount {
		st.free <- make([]byte, size)
	}
	done := make(chan struct{})
	in.current = st
	in.readerDone = done

	go in.read(in.cam, in.code, st, done)
	go in.deliver(st, device.Frame{
		RowBytes: in.width * in.format.BytesPerPixel(),
		Height:   in.height,
		Format:   in.format,
	})
	return nil
}

// StopStreams signals both goroutines and returns without waiting for them.
func (in *Input) StopStreams() error {
	in.mu.Lock()
	defer in.mu.Unlock()
	in.stopLocked()
	return nil
}

func (in *Input) stopLocked() {
	if in.current == nil {
		return
	}
	close(in.current.stop)
	in.current = nil
}

// FlushStreams is a no-op; frames queued at StopStreams are never delivered.
func (in *Input) FlushStreams() error {
	return nil
}

// FramesDropped counts frames discarded because the consumer fell behind.
func (in *Input) FramesDropped() int64 {
	return in.dropped.Load()
}

func (in *Input) read(cam *webcam.Webcam, code uint32, st *stream, done chan<- struct{}) {
	defer close(done)
	defer func() {
		if err := cam.StopStreaming(); err != nil {
			in.logger.Debug("Failed to stop streaming", "error", err)
		}
	}()

	start := time.Now()
	for {
		select {
		case <-st.stop:
			return
		default:
		}

		err := cam.WaitForFrame(waitSeconds)
		switch err.(type) {
		case nil:
		case *webcam.Timeout:
			continue
		default:
			in.logger.Warn("Capture stream ended", "error", err)
			return
		}

		raw, err := cam.ReadFrame()
		if err != nil {
			in.logger.Warn("Capture stream ended", "error", err)
			return
		}
		if len(raw) == 0 {
			continue
		}

		var buf []byte
		select {
		case buf = <-st.free:
		default:
			in.dropped.Add(1)
			continue
		}
		n := copyFrame(buf, raw, code)
		st.frames <- capturedFrame{
			pixels:     buf[:n],
			streamTime: int64(time.Since(start) / 100),
		}
	}
}

func (in *Input) deliver(st *stream, geometry device.Frame) {
	var tick <-chan time.Time
	if in.dv {
		ticker := time.NewTicker(in.poll)
		defer ticker.Stop()
		tick = ticker.C
	}

	for {
		select {
		case <-st.stop:
			return
		case f := <-st.frames:
			if cb := in.callback(); cb != nil {
				frame := geometry
				frame.Pixels = f.pixels
				frame.StreamTime = f.streamTime
				cb.FrameArrived(frame)
			}
			st.free <- f.pixels[:cap(f.pixels)]
		case <-tick:
			in.checkSignal()
		}
	}
}

func (in *Input) callback() device.InputCallback {
	in.mu.Lock()
	defer in.mu.Unlock()
	return in.cb
}

// checkSignal reports a format change when the receiver locks to a mode the
// consumer has not seen.
func (in *Input) checkSignal() {
	status := v4l2.GetDVTimings(in.path)
	if status.State != v4l2.SignalStateLocked {
		return
	}
	mode := modeForSignal(int(status.Width), int(status.Height), status.FPS, status.Interlaced)

	in.mu.Lock()
	if mode == in.known || !in.flags.Has(device.InputEnableFormatDetection) {
		in.mu.Unlock()
		return
	}
	in.known = mode
	cb := in.cb
	flags := signalFlagsFor(in.format)
	in.mu.Unlock()

	in.logger.Info("Input signal changed", "mode", mode, "width", status.Width, "height", status.Height, "fps", status.FPS)
	if cb == nil {
		return
	}
	change := device.FormatChange{
		Width:  int(status.Width),
		Height: int(status.Height),
		Mode:   mode,
		Flags:  flags,
	}
	if err := cb.FormatChanged(change); err != nil {
		in.logger.Warn("Format change rejected", "mode", mode, "error", err)
	}
}
