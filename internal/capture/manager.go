package capture

import (
	"log/slog"
	"sync"

	"github.com/smazurov/framelink/internal/device"
	"github.com/smazurov/framelink/internal/logging"
	"github.com/smazurov/framelink/internal/texture"
)

// Manager keeps one session for whichever device discovery currently holds.
// It presents a stable capture surface to the render loop and the API while
// devices come and go.
type Manager struct {
	mu      sync.RWMutex
	session *Session

	cfg       Config
	mode      device.DisplayMode
	autoStart bool
	opts      []Option
	logger    *slog.Logger
}

// NewManager creates a manager that opens sessions with cfg and opts. When
// autoStart is set, capture starts in mode as soon as a device arrives.
func NewManager(cfg Config, mode device.DisplayMode, autoStart bool, opts ...Option) *Manager {
	return &Manager{
		cfg:       cfg,
		mode:      mode,
		autoStart: autoStart,
		opts:      opts,
		logger:    logging.GetLogger("capture"),
	}
}

// DeviceChanged opens or closes the session. It has the signature of a
// discovery.ActiveChangedFunc.
func (m *Manager) DeviceChanged(h device.Handle, present bool) {
	if !present {
		m.mu.Lock()
		s := m.session
		if s != nil && s.handle.ID() == h.ID() {
			m.session = nil
		} else {
			s = nil
		}
		m.mu.Unlock()

		if s != nil {
			if err := s.Close(); err != nil {
				m.logger.Warn("Session close reported errors", "device", h.ID(), "error", err)
			}
		}
		return
	}

	s, err := New(h, m.cfg, m.opts...)
	if err != nil {
		m.logger.Error("Failed to open capture session", "device", h.ID(), "error", err)
		return
	}

	m.mu.Lock()
	old := m.session
	m.session = s
	m.mu.Unlock()
	if old != nil {
		_ = old.Close()
	}

	if m.autoStart {
		if err := s.StartCapture(m.mode); err != nil {
			m.logger.Error("Failed to start capture", "device", h.ID(), "mode", m.mode, "error", err)
		}
	}
}

// Session returns the current session.
func (m *Manager) Session() (*Session, bool) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return m.session, m.session != nil
}

func (m *Manager) current() (*Session, error) {
	s, ok := m.Session()
	if !ok {
		return nil, ErrNoDevice
	}
	return s, nil
}

// Start starts capture in mode on the current device. ModeUnknown uses the
// configured mode.
func (m *Manager) Start(mode device.DisplayMode) error {
	s, err := m.current()
	if err != nil {
		return err
	}
	if mode == device.ModeUnknown {
		mode = m.mode
	}
	return s.StartCapture(mode)
}

// Stop stops capture on the current device.
func (m *Manager) Stop() error {
	s, err := m.current()
	if err != nil {
		return err
	}
	return s.StopCapture()
}

// Status snapshots the current session.
func (m *Manager) Status() (Status, bool) {
	s, ok := m.Session()
	if !ok {
		return Status{}, false
	}
	return s.Status(), true
}

// Close closes the current session.
func (m *Manager) Close() error {
	m.mu.Lock()
	s := m.session
	m.session = nil
	m.mu.Unlock()
	if s == nil {
		return nil
	}
	return s.Close()
}

// FrameCount returns the current session's capture counter.
func (m *Manager) FrameCount() int64 {
	if s, ok := m.Session(); ok {
		return s.FrameCount()
	}
	return 0
}

// IsCapturing reports whether the current session is capturing.
func (m *Manager) IsCapturing() bool {
	if s, ok := m.Session(); ok {
		return s.IsCapturing()
	}
	return false
}

// ActivePixelFormat returns the current session's capture format.
func (m *Manager) ActivePixelFormat() device.PixelFormat {
	if s, ok := m.Session(); ok {
		return s.ActivePixelFormat()
	}
	return device.PixelFormatYUV
}

// WithFrame forwards to the current session.
func (m *Manager) WithFrame(index int64, fn func(pixels []byte, timestamp int64)) error {
	s, err := m.current()
	if err != nil {
		return err
	}
	return s.WithFrame(index, fn)
}

// SubmitCompositedFrame forwards to the current session.
func (m *Manager) SubmitCompositedFrame(tex texture.Texture) {
	if s, ok := m.Session(); ok {
		s.SubmitCompositedFrame(tex)
	}
}

// PumpOutput forwards to the current session. Without a device there is
// nothing to pump.
func (m *Manager) PumpOutput() (bool, error) {
	s, ok := m.Session()
	if !ok {
		return false, nil
	}
	return s.PumpOutput()
}
