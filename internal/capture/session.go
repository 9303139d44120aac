// Package capture drives a capture card: it enables input and output, copies
// arriving frames into a fixed ring of buffers, and re-negotiates when the
// input signal changes.
//
// Two locks protect a session. The capture lock (Session.mu) guards the ring,
// the session state and every mode transition. The output lock lives in the
// mirror and guards the reusable output frame. Paths that need both take the
// capture lock first. The render path takes one at a time: WithFrame and
// LatestFrame take the capture lock, SubmitCompositedFrame and PumpOutput take
// the output lock.
//
// Driver callbacks (FrameArrived, FormatChanged) run on the driver's thread and
// block on the capture lock, so drivers must never invoke them from inside a
// call the session makes.
package capture

import (
	"errors"
	"fmt"
	"log/slog"
	"sync"
	"time"

	"github.com/smazurov/framelink/internal/device"
	"github.com/smazurov/framelink/internal/events"
	"github.com/smazurov/framelink/internal/framering"
	"github.com/smazurov/framelink/internal/logging"
	"github.com/smazurov/framelink/internal/mirror"
	"github.com/smazurov/framelink/internal/texture"
)

// Option configures a Session.
type Option func(*Session)

// WithEventBus publishes state and format events to bus.
func WithEventBus(bus *events.Bus) Option {
	return func(s *Session) {
		s.bus = bus
	}
}

// WithReadback overrides the readback used by the output mirror.
func WithReadback(rb mirror.Readback) Option {
	return func(s *Session) {
		s.readback = rb
	}
}

// Session owns the capture state machine for one device.
type Session struct {
	mu sync.Mutex

	handle device.Handle
	input  device.Input
	output device.Output
	mirror *mirror.Mirror
	ring   *framering.Ring
	cfg    Config

	state           State
	mode            device.DisplayMode
	pixelFormat     device.PixelFormat
	supportsOutput  bool
	outputActive    bool
	formatDetection bool
	dirty           bool
	closed          bool
	dropped         uint64
	lastStreamTime  int64

	readback mirror.Readback
	bus      *events.Bus
	logger   *slog.Logger
}

// New initializes a session on h. The session borrows h: closing the session
// releases input and output but not the handle itself. A device without an
// input is an error; a device without a usable output captures input-only.
func New(h device.Handle, cfg Config, opts ...Option) (*Session, error) {
	if h == nil {
		return nil, ErrNoDevice
	}
	if err := cfg.validate(); err != nil {
		return nil, err
	}

	input, err := h.Input()
	if err != nil {
		return nil, fmt.Errorf("%w: %w", ErrNoInput, err)
	}

	s := &Session{
		handle:          h,
		input:           input,
		ring:            framering.New(cfg.RingSize, cfg.FrameSize()),
		cfg:             cfg,
		state:           StateIdle,
		pixelFormat:     device.PixelFormatYUV,
		formatDetection: h.Attributes().SupportsFormatDetection,
		dirty:           true,
		logger:          logging.GetLogger("capture").With("device", h.ID()),
	}
	for _, opt := range opts {
		opt(s)
	}
	if s.readback == nil {
		s.readback = mirror.NewHostReadback()
	}

	if cfg.OutputEnabled {
		s.initOutput()
	}

	recordState(s.state)
	s.logger.Info("Capture session initialized",
		"width", cfg.Width,
		"height", cfg.Height,
		"ring_size", cfg.RingSize,
		"format_detection", s.formatDetection,
		"output", s.supportsOutput)
	return s, nil
}

func (s *Session) initOutput() {
	out, err := s.handle.Output()
	if err != nil {
		s.logger.Info("Output not available, capturing input only", "error", err)
		return
	}
	frame, err := out.CreateVideoFrame(s.cfg.Width, s.cfg.Height, s.cfg.Width*device.PixelFormatBGRA.BytesPerPixel(), device.PixelFormatBGRA)
	if err != nil {
		s.logger.Warn("Failed to create output frame, capturing input only", "error", err)
		return
	}
	s.output = out
	s.mirror = mirror.New(frame, s.readback)
	s.supportsOutput = true
}

// StartCapture enables input in mode and starts streaming. Output is enabled
// too when supported; an output failure only disables mirroring. Any input
// failure aborts the start and is returned. Starting resets the frame counter.
func (s *Session) StartCapture(mode device.DisplayMode) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.closed {
		return ErrClosed
	}
	switch s.state {
	case StateCapturing:
		return nil
	case StateStopped:
		if err := s.teardownLocked(); err != nil {
			s.logger.Warn("Teardown before restart reported errors", "error", err)
		}
	}

	flags := device.InputFlagDefault
	if s.formatDetection {
		flags |= device.InputEnableFormatDetection
	}

	s.input.SetCallback(s)
	if err := s.input.EnableVideoInput(mode, device.PixelFormatYUV, flags); err != nil {
		s.input.SetCallback(nil)
		s.logger.Error("Failed to enable video input", "mode", mode, "error", err)
		return fmt.Errorf("enable video input: %w", err)
	}
	s.mode = mode
	s.pixelFormat = device.PixelFormatYUV

	s.withOutputLock(func() { s.startOutputLocked(mode) })

	if err := s.input.StartStreams(); err != nil {
		s.withOutputLock(func() { _ = s.stopOutputLocked() })
		_ = s.input.DisableVideoInput()
		s.input.SetCallback(nil)
		s.logger.Error("Failed to start input streams", "error", err)
		return fmt.Errorf("start streams: %w", err)
	}

	s.ring.Reset()
	s.dirty = true
	s.setStateLocked(StateCapturing, "start")
	return nil
}

// StopCapture stops streaming and output. It is safe to call in any state.
// Driver errors are logged and returned joined; the session is idle
// afterwards regardless.
func (s *Session) StopCapture() error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.state == StateIdle {
		return nil
	}
	err := s.teardownLocked()
	if err != nil {
		s.logger.Warn("Stop reported driver errors", "error", err)
	}
	s.setStateLocked(StateIdle, "stop")
	return err
}

// teardownLocked stops input and output. Caller holds s.mu.
func (s *Session) teardownLocked() error {
	errs := []error{
		s.input.StopStreams(),
		s.input.FlushStreams(),
	}
	s.input.SetCallback(nil)
	s.withOutputLock(func() { errs = append(errs, s.stopOutputLocked()) })
	errs = append(errs, s.input.DisableVideoInput())
	return errors.Join(errs...)
}

// Close stops capture and releases the device's input and output. The handle
// itself stays open.
func (s *Session) Close() error {
	err := s.StopCapture()

	s.mu.Lock()
	defer s.mu.Unlock()
	if s.closed {
		return nil
	}
	s.closed = true
	s.input = nil
	s.output = nil
	s.supportsOutput = false
	s.logger.Info("Capture session closed", "frames", s.ring.Count(), "dropped", s.dropped)
	return err
}

// FrameArrived stores frame in the ring and, when output is active, displays
// the current output frame. Frames arriving while the session is not
// capturing are dropped. It implements device.FrameHandler.
func (s *Session) FrameArrived(frame device.Frame) {
	n := frame.Len()
	if n <= 0 {
		return
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	if s.state != StateCapturing {
		s.dropped++
		framesDropped.Inc()
		return
	}

	s.ring.Write(frame.Pixels[:n], frame.StreamTime)
	s.lastStreamTime = frame.StreamTime
	s.dirty = false
	framesCaptured.Inc()

	if s.outputActive {
		if err := s.mirror.DisplaySync(s.output); err != nil {
			s.logger.Debug("Synchronous display failed", "error", err)
		}
	}
}

// FormatChanged handles a detected signal change. A signal whose dimensions
// differ from the configured target halts capture and returns
// ErrUnsupportedFormat; capture resumes when a matching signal is reported.
// A matching signal re-enables input (and output) in the new mode with the
// pixel format implied by the signal flags. It implements
// device.FormatHandler.
func (s *Session) FormatChanged(change device.FormatChange) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.closed || s.state == StateIdle {
		return nil
	}

	ev := events.FormatChangedEvent{
		DeviceID:  s.handle.ID(),
		Width:     change.Width,
		Height:    change.Height,
		Mode:      change.Mode.String(),
		Timestamp: time.Now().Format(time.RFC3339),
	}

	pf := device.PixelFormatFor(change.Flags)
	if change.Width != s.cfg.Width || change.Height != s.cfg.Height || !s.cfg.Fits(pf) {
		s.logger.Warn("Unsupported input signal, capture halted",
			"width", change.Width,
			"height", change.Height,
			"mode", change.Mode,
			"want_width", s.cfg.Width,
			"want_height", s.cfg.Height)
		formatChanges.WithLabelValues(resultRejected).Inc()
		ev.Error = ErrUnsupportedFormat.Error()
		s.publish(ev)
		s.setStateLocked(StateStopped, "unsupported format")
		return ErrUnsupportedFormat
	}

	s.setStateLocked(StateChangingFormat, "format change")

	var err error
	s.withOutputLock(func() { err = s.reconfigureLocked(change.Mode, pf) })

	ev.PixelFormat = pf.String()
	if err != nil {
		s.logger.Error("Failed to apply new input format", "mode", change.Mode, "error", err)
		formatChanges.WithLabelValues(resultFailed).Inc()
		ev.Error = err.Error()
		s.publish(ev)
		s.setStateLocked(StateStopped, "format change failed")
		return err
	}

	s.logger.Info("Input format changed", "mode", change.Mode, "pixel_format", pf)
	formatChanges.WithLabelValues(resultAccepted).Inc()
	ev.Accepted = true
	s.publish(ev)
	s.setStateLocked(StateCapturing, "format change")
	return nil
}

// reconfigureLocked restarts input and output in mode. Caller holds both
// locks.
func (s *Session) reconfigureLocked(mode device.DisplayMode, pf device.PixelFormat) error {
	if err := s.input.StopStreams(); err != nil {
		return fmt.Errorf("stop streams: %w", err)
	}
	if err := s.input.FlushStreams(); err != nil {
		return fmt.Errorf("flush streams: %w", err)
	}
	if err := s.stopOutputLocked(); err != nil {
		s.logger.Debug("Output stop during format change failed", "error", err)
	}

	flags := device.InputFlagDefault
	if s.formatDetection {
		flags |= device.InputEnableFormatDetection
	}
	if err := s.input.EnableVideoInput(mode, pf, flags); err != nil {
		return fmt.Errorf("enable video input: %w", err)
	}
	if err := s.input.StartStreams(); err != nil {
		return fmt.Errorf("start streams: %w", err)
	}

	s.mode = mode
	s.pixelFormat = pf
	s.dirty = true
	s.startOutputLocked(mode)
	return nil
}

// startOutputLocked enables output and scheduled playback. A failure disables
// output support for the rest of the session. Caller holds both locks.
func (s *Session) startOutputLocked(mode device.DisplayMode) {
	if !s.supportsOutput {
		return
	}
	if err := s.output.EnableVideoOutput(mode); err != nil {
		s.degradeOutputLocked(fmt.Errorf("enable video output: %w", err))
		return
	}
	if err := s.output.StartScheduledPlayback(0, s.cfg.PlaybackTimescale, device.DefaultPlaybackSpeed); err != nil {
		_ = s.output.DisableVideoOutput()
		s.degradeOutputLocked(fmt.Errorf("start scheduled playback: %w", err))
		return
	}
	s.outputActive = true
}

// stopOutputLocked stops playback and disables output if active. Caller holds
// both locks.
func (s *Session) stopOutputLocked() error {
	if !s.outputActive {
		return nil
	}
	s.outputActive = false
	return errors.Join(
		s.output.StopScheduledPlayback(),
		s.output.DisableVideoOutput(),
	)
}

func (s *Session) degradeOutputLocked(err error) {
	s.supportsOutput = false
	s.outputActive = false
	outputDegraded.Inc()
	s.logger.Warn("Output disabled, continuing input-only", "error", err)
	s.publish(events.OutputDegradedEvent{
		DeviceID:  s.handle.ID(),
		Error:     err.Error(),
		Timestamp: time.Now().Format(time.RFC3339),
	})
}

// withOutputLock runs fn under the output lock when a mirror exists.
func (s *Session) withOutputLock(fn func()) {
	if s.mirror != nil {
		s.mirror.Hold(fn)
		return
	}
	fn()
}

func (s *Session) setStateLocked(to State, reason string) {
	from := s.state
	if from == to {
		return
	}
	s.state = to
	recordState(to)
	s.logger.Debug("Capture state changed", "from", from, "to", to, "reason", reason)
	s.publish(events.CaptureStateChangedEvent{
		DeviceID:  s.handle.ID(),
		From:      string(from),
		To:        string(to),
		Reason:    reason,
		Timestamp: time.Now().Format(time.RFC3339),
	})
}

func (s *Session) publish(ev events.Event) {
	if s.bus != nil {
		s.bus.Publish(ev)
	}
}

// LatestFrame copies the slot for index into dst and returns the byte count
// and timestamp. The copy happens under the capture lock, so it never mixes
// two frames. Indexes older than the ring capacity alias newer frames.
func (s *Session) LatestFrame(index int64, dst []byte) (int, int64, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.closed {
		return 0, 0, ErrClosed
	}
	n, ts := s.ring.CopyOut(index, dst)
	return n, ts, nil
}

// FrameInfo describes a frame copied out of the ring.
type FrameInfo struct {
	Index     int64
	Length    int
	Timestamp int64
}

// NewestFrame copies the most recently written frame into dst.
func (s *Session) NewestFrame(dst []byte) (FrameInfo, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.closed {
		return FrameInfo{}, ErrClosed
	}
	idx := s.ring.Count()
	if idx == 0 {
		return FrameInfo{}, ErrNoFrame
	}
	n, ts := s.ring.CopyOut(idx, dst)
	return FrameInfo{Index: idx, Length: n, Timestamp: ts}, nil
}

// WithFrame calls fn with the slot for index while holding the capture lock.
// pixels must not be retained after fn returns.
func (s *Session) WithFrame(index int64, fn func(pixels []byte, timestamp int64)) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.closed {
		return ErrClosed
	}
	pixels, ts := s.ring.Read(index)
	fn(pixels, ts)
	return nil
}

// FrameCount returns the capture counter; the newest frame is at this index.
func (s *Session) FrameCount() int64 {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.ring.Count()
}

// IsCapturing reports whether frames are currently being stored.
func (s *Session) IsCapturing() bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.state == StateCapturing
}

// State returns the current session state.
func (s *Session) State() State {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.state
}

// ActivePixelFormat returns the pixel format frames are captured in.
func (s *Session) ActivePixelFormat() device.PixelFormat {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.pixelFormat
}

// OutputYUV reports whether captured frames are YUV rather than BGRA.
func (s *Session) OutputYUV() bool {
	return s.ActivePixelFormat() == device.PixelFormatYUV
}

// SupportsOutput reports whether output mirroring is available.
func (s *Session) SupportsOutput() bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.supportsOutput
}

// Dirty reports whether no frame has arrived since the last start or format
// change.
func (s *Session) Dirty() bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.dirty
}

// Config returns the session's fixed configuration.
func (s *Session) Config() Config {
	return s.cfg
}

// SubmitCompositedFrame stages tex for mirroring to the device output. It is
// a no-op without output support.
func (s *Session) SubmitCompositedFrame(tex texture.Texture) {
	if s.mirror == nil {
		return
	}
	s.mirror.SubmitCompositedFrame(tex)
}

// PumpOutput advances the output mirror's readback by one tick. It reports
// whether the output frame was refreshed.
func (s *Session) PumpOutput() (bool, error) {
	if s.mirror == nil {
		return false, nil
	}
	return s.mirror.Pump()
}

// Status is a point-in-time view of a session.
type Status struct {
	DeviceID        string `json:"device_id" example:"video0" doc:"Device identifier"`
	DeviceName      string `json:"device_name" example:"HDMI capture" doc:"Device name"`
	State           State  `json:"state" example:"capturing" doc:"Session state" enum:"idle,capturing,changing_format,stopped"`
	Mode            string `json:"mode" example:"1080p30" doc:"Active display mode"`
	PixelFormat     string `json:"pixel_format" example:"yuv" doc:"Active capture pixel format"`
	Width           int    `json:"width" example:"1920" doc:"Configured frame width"`
	Height          int    `json:"height" example:"1080" doc:"Configured frame height"`
	RingSize        int    `json:"ring_size" example:"10" doc:"Number of cached frames"`
	FrameCount      int64  `json:"frame_count" example:"1200" doc:"Frames captured since start"`
	FramesDropped   uint64 `json:"frames_dropped" example:"0" doc:"Frames dropped while not capturing"`
	LastStreamTime  int64  `json:"last_stream_time" example:"400000" doc:"Stream time of the newest frame in 100ns ticks"`
	SupportsOutput  bool   `json:"supports_output" example:"true" doc:"Whether output mirroring is available"`
	OutputActive    bool   `json:"output_active" example:"true" doc:"Whether scheduled playback is running"`
	FormatDetection bool   `json:"format_detection" example:"true" doc:"Whether the device reports signal changes"`
	Dirty           bool   `json:"dirty" example:"false" doc:"No frame since the last start or format change"`
}

// Status returns a snapshot of the session.
func (s *Session) Status() Status {
	s.mu.Lock()
	defer s.mu.Unlock()
	return Status{
		DeviceID:        s.handle.ID(),
		DeviceName:      s.handle.Attributes().Name,
		State:           s.state,
		Mode:            s.mode.String(),
		PixelFormat:     s.pixelFormat.String(),
		Width:           s.cfg.Width,
		Height:          s.cfg.Height,
		RingSize:        s.ring.Len(),
		FrameCount:      s.ring.Count(),
		FramesDropped:   s.dropped,
		LastStreamTime:  s.lastStreamTime,
		SupportsOutput:  s.supportsOutput,
		OutputActive:    s.outputActive,
		FormatDetection: s.formatDetection,
		Dirty:           s.dirty,
	}
}
