package simulated_test

import (
	"errors"
	"testing"
	"time"

	"github.com/smazurov/framelink/internal/capture"
	"github.com/smazurov/framelink/internal/device"
	"github.com/smazurov/framelink/internal/device/simulated"
)

func waitState(t *testing.T, s *capture.Session, want capture.State) {
	t.Helper()
	deadline := time.Now().Add(2 * time.Second)
	for s.State() != want {
		if time.Now().After(deadline) {
			t.Fatalf("state = %s, want %s", s.State(), want)
		}
		time.Sleep(2 * time.Millisecond)
	}
}

func waitFrames(t *testing.T, s *capture.Session, n int64) {
	t.Helper()
	deadline := time.Now().Add(2 * time.Second)
	for s.FrameCount() < n {
		if time.Now().After(deadline) {
			t.Fatalf("frame count = %d, want >= %d", s.FrameCount(), n)
		}
		time.Sleep(2 * time.Millisecond)
	}
}

func TestSessionOnSimulatedCard(t *testing.T) {
	card := simulated.NewCard("sim0",
		simulated.WithSignal(device.ModeNTSC, device.SignalYCbCr422),
		simulated.WithFrameInterval(time.Millisecond))

	cfg := capture.Config{Width: 720, Height: 486, BytesPerPixel: 4, RingSize: 4, PlaybackTimescale: 600, OutputEnabled: true}
	s, err := capture.New(card, cfg)
	if err != nil {
		t.Fatal(err)
	}
	t.Cleanup(func() { _ = s.Close() })

	if err := s.StartCapture(device.ModeNTSC); err != nil {
		t.Fatal(err)
	}
	if !card.Loopback().Playing() {
		t.Error("output playback should be running")
	}
	waitFrames(t, s, 3)

	dst := make([]byte, cfg.FrameSize())
	info, err := s.NewestFrame(dst)
	if err != nil {
		t.Fatal(err)
	}
	if info.Length != 720*486*2 {
		t.Errorf("frame length = %d", info.Length)
	}

	// PAL does not fit the configured dimensions.
	card.Generator().SetSignal(device.ModePAL, device.SignalYCbCr422)
	waitState(t, s, capture.StateStopped)

	// Same dimensions as RGB: accepted, capture resumes in BGRA.
	card.Generator().SetSignal(device.ModeNTSC, device.SignalRGB444)
	waitState(t, s, capture.StateCapturing)
	if pf := s.ActivePixelFormat(); pf != device.PixelFormatBGRA {
		t.Errorf("pixel format = %v, want bgra", pf)
	}
	before := s.FrameCount()
	waitFrames(t, s, before+2)

	if err := s.StopCapture(); err != nil {
		t.Fatal(err)
	}
	if card.Generator().Streaming() {
		t.Error("streams still running after StopCapture")
	}
	if s.IsCapturing() {
		t.Error("still capturing after StopCapture")
	}

	if err := s.Close(); err != nil {
		t.Fatal(err)
	}
	if _, _, err := s.LatestFrame(0, dst); !errors.Is(err, capture.ErrClosed) {
		t.Errorf("LatestFrame after close error = %v", err)
	}
}
