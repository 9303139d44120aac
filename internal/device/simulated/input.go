package simulated

import (
	"errors"
	"sync"
	"sync/atomic"
	"time"

	"github.com/smazurov/framelink/internal/device"
)

var (
	errInputNotEnabled = errors.New("video input not enabled")
	errStreaming       = errors.New("streams already running")
)

// Input generates frames for whatever signal is on the connector. Callbacks
// run on the generator goroutine, never inside a method call.
type Input struct {
	mu sync.Mutex

	cb      device.InputCallback
	enabled bool
	mode    device.DisplayMode
	format  device.PixelFormat
	flags   device.InputFlags
	stop    chan struct{}

	signal      device.DisplayMode
	signalFlags device.SignalFlags
	// last signal the consumer knows about, either enabled or reported
	known      device.DisplayMode
	knownFlags device.SignalFlags

	detection bool
	interval  time.Duration

	delivered atomic.Int64
	reported  atomic.Int64
}

// SetCallback installs cb. nil uninstalls.
func (in *Input) SetCallback(cb device.InputCallback) {
	in.mu.Lock()
	defer in.mu.Unlock()
	in.cb = cb
}

// EnableVideoInput configures capture for mode and format.
func (in *Input) EnableVideoInput(mode device.DisplayMode, format device.PixelFormat, flags device.InputFlags) error {
	if w, _ := mode.Dimensions(); w == 0 {
		return device.ErrUnknownMode
	}

	in.mu.Lock()
	defer in.mu.Unlock()
	in.enabled = true
	in.mode = mode
	in.format = format
	in.flags = flags
	in.known = mode
	in.knownFlags = in.signalFlags
	return nil
}

// DisableVideoInput turns capture off. Running streams deliver nothing until
// input is enabled again.
func (in *Input) DisableVideoInput() error {
	in.mu.Lock()
	defer in.mu.Unlock()
	in.enabled = false
	return nil
}

// StartStreams starts the generator.
func (in *Input) StartStreams() error {
	in.mu.Lock()
	defer in.mu.Unlock()
	if !in.enabled {
		return errInputNotEnabled
	}
	if in.stop != nil {
		return errStreaming
	}
	in.stop = make(chan struct{})
	go in.run(in.stop, in.frameInterval())
	return nil
}

// StopStreams signals the generator to stop. It does not wait: a callback
// already in flight may still complete afterwards.
func (in *Input) StopStreams() error {
	in.mu.Lock()
	defer in.mu.Unlock()
	if in.stop != nil {
		close(in.stop)
		in.stop = nil
	}
	return nil
}

// FlushStreams discards queued frames. The generator queues nothing.
func (in *Input) FlushStreams() error {
	return nil
}

// SetSignal changes the signal on the connector. With format detection
// enabled the next tick reports it.
func (in *Input) SetSignal(mode device.DisplayMode, flags device.SignalFlags) {
	in.mu.Lock()
	defer in.mu.Unlock()
	in.signal = mode
	in.signalFlags = flags
}

// Streaming reports whether the generator is running.
func (in *Input) Streaming() bool {
	in.mu.Lock()
	defer in.mu.Unlock()
	return in.stop != nil
}

// Enabled returns the configured mode and format, if input is enabled.
func (in *Input) Enabled() (device.DisplayMode, device.PixelFormat, bool) {
	in.mu.Lock()
	defer in.mu.Unlock()
	return in.mode, in.format, in.enabled
}

// FramesDelivered counts FrameArrived callbacks.
func (in *Input) FramesDelivered() int64 {
	return in.delivered.Load()
}

// FormatChangesReported counts FormatChanged callbacks.
func (in *Input) FormatChangesReported() int64 {
	return in.reported.Load()
}

func (in *Input) frameInterval() time.Duration {
	if in.interval > 0 {
		return in.interval
	}
	rate := in.mode.FrameRate()
	if rate <= 0 {
		rate = 30
	}
	return time.Duration(float64(time.Second) / rate)
}

type tick struct {
	cb      device.InputCallback
	mode    device.DisplayMode
	format  device.PixelFormat
	signal  device.DisplayMode
	flags   device.SignalFlags
	report  bool
	enabled bool
}

// next snapshots what this tick should do. A stale generator gets ok=false.
func (in *Input) next(stop chan struct{}) (t tick, ok bool) {
	in.mu.Lock()
	defer in.mu.Unlock()
	if in.stop != stop {
		return tick{}, false
	}
	t = tick{
		cb:      in.cb,
		mode:    in.mode,
		format:  in.format,
		signal:  in.signal,
		flags:   in.signalFlags,
		enabled: in.enabled,
	}
	changed := in.signal != in.known || in.signalFlags != in.knownFlags
	if changed && in.detection && in.flags.Has(device.InputEnableFormatDetection) && t.cb != nil {
		t.report = true
		in.known = in.signal
		in.knownFlags = in.signalFlags
	}
	return t, true
}

func (in *Input) run(stop chan struct{}, interval time.Duration) {
	ticker := time.NewTicker(interval)
	defer ticker.Stop()

	var pattern *testPattern
	var n int64
	for {
		select {
		case <-stop:
			return
		case <-ticker.C:
		}

		t, ok := in.next(stop)
		if !ok {
			return
		}
		if t.cb == nil || !t.enabled {
			continue
		}

		if t.report {
			w, h := t.signal.Dimensions()
			in.reported.Add(1)
			_ = t.cb.FormatChanged(device.FormatChange{Width: w, Height: h, Mode: t.signal, Flags: t.flags})
			continue
		}
		if t.signal != t.mode {
			continue
		}

		if pattern == nil || !pattern.matches(t.mode, t.format) {
			pattern = newTestPattern(t.mode, t.format)
		}
		in.delivered.Add(1)
		t.cb.FrameArrived(pattern.frame(n, streamTime(n, t.mode, interval)))
		n++
	}
}

func streamTime(n int64, mode device.DisplayMode, interval time.Duration) int64 {
	if rate := mode.FrameRate(); rate > 0 {
		return int64(float64(n) * float64(device.TicksPerSecond) / rate)
	}
	return n * int64(interval/100)
}
