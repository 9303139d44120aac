package v4l2cap

import (
	"bytes"
	"testing"

	"github.com/smazurov/framelink/internal/device"
)

func TestFourccCodes(t *testing.T) {
	tests := []struct {
		code uint32
		want string
		raw  uint32
	}{
		{fourccUYVY, "UYVY", 0x59565955},
		{fourccYUYV, "YUYV", 0x56595559},
		{fourccBGRA, "BA24", 0x34324142},
	}
	for _, tt := range tests {
		if got := fourccString(tt.code); got != tt.want {
			t.Errorf("fourccString(%#x) = %q, want %q", tt.code, got, tt.want)
		}
		if tt.code != tt.raw {
			t.Errorf("%s = %#x, want %#x", tt.want, tt.code, tt.raw)
		}
	}
}

func TestCandidates(t *testing.T) {
	if got := candidates(device.PixelFormatYUV); len(got) != 2 || got[0] != fourccUYVY {
		t.Errorf("candidates(yuv) = %v", got)
	}
	if got := candidates(device.PixelFormatBGRA); len(got) != 1 || got[0] != fourccBGRA {
		t.Errorf("candidates(bgra) = %v", got)
	}
}

func TestCopyFrame(t *testing.T) {
	src := []byte{'Y', 'U', 'y', 'V', 'A', 'B', 'C', 'D', 'x'}

	tests := []struct {
		name string
		code uint32
		dst  int
		want []byte
	}{
		{"uyvy copies", fourccUYVY, 9, src},
		{"yuyv reorders whole macropixels", fourccYUYV, 9, []byte{'U', 'Y', 'V', 'y', 'B', 'A', 'D', 'C'}},
		{"short destination", fourccUYVY, 3, src[:3]},
		{"bgra copies", fourccBGRA, 4, src[:4]},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			dst := make([]byte, tt.dst)
			n := copyFrame(dst, src, tt.code)
			if !bytes.Equal(dst[:n], tt.want) {
				t.Errorf("copyFrame = %q, want %q", dst[:n], tt.want)
			}
		})
	}
}

func TestModeForSignal(t *testing.T) {
	tests := []struct {
		name       string
		w, h       int
		fps        float64
		interlaced bool
		want       device.DisplayMode
	}{
		{"1080p60", 1920, 1080, 60, false, device.ModeHD1080p60},
		{"1080p25", 1920, 1080, 25, false, device.ModeHD1080p25},
		{"1080i50", 1920, 1080, 25, true, device.ModeHD1080i50},
		{"1080i59.94", 1920, 1080, 29.97, true, device.ModeHD1080i5994},
		{"720p59.94", 1280, 720, 59.94, false, device.ModeHD720p5994},
		{"unknown size", 1024, 768, 60, false, device.ModeUnknown},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := modeForSignal(tt.w, tt.h, tt.fps, tt.interlaced); got != tt.want {
				t.Errorf("modeForSignal = %v, want %v", got, tt.want)
			}
		})
	}
}

func TestSignalFlagsFor(t *testing.T) {
	if signalFlagsFor(device.PixelFormatBGRA) != device.SignalRGB444 {
		t.Error("bgra capture should describe an RGB signal")
	}
	if device.PixelFormatFor(signalFlagsFor(device.PixelFormatYUV)) != device.PixelFormatYUV {
		t.Error("yuv capture flags should map back to yuv")
	}
}
