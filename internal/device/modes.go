package device

import (
	"fmt"
	"strings"
)

// PixelFormat is the in-memory layout of frame pixels.
type PixelFormat int

// Pixel formats.
const (
	PixelFormatYUV  PixelFormat = iota // 8-bit 4:2:2 YCbCr, 2 bytes per pixel
	PixelFormatBGRA                    // 8-bit BGRA, 4 bytes per pixel
)

// BytesPerPixel returns the packed size of one pixel.
func (p PixelFormat) BytesPerPixel() int {
	if p == PixelFormatBGRA {
		return 4
	}
	return 2
}

func (p PixelFormat) String() string {
	switch p {
	case PixelFormatYUV:
		return "yuv"
	case PixelFormatBGRA:
		return "bgra"
	default:
		return fmt.Sprintf("pixfmt(%d)", int(p))
	}
}

// SignalFlags describe a detected input signal.
type SignalFlags uint32

// Detected signal flags.
const (
	SignalYCbCr422     SignalFlags = 1 << 0
	SignalRGB444       SignalFlags = 1 << 1
	SignalDualStream3D SignalFlags = 1 << 2
)

// PixelFormatFor selects the capture pixel format for a detected signal:
// RGB-family signals capture as BGRA, everything else as YUV.
func PixelFormatFor(flags SignalFlags) PixelFormat {
	if flags&SignalRGB444 != 0 {
		return PixelFormatBGRA
	}
	return PixelFormatYUV
}

// DisplayMode identifies a video standard (resolution and rate).
type DisplayMode uint32

// Display modes.
const (
	ModeUnknown DisplayMode = iota
	ModeNTSC
	ModePAL
	ModeHD720p50
	ModeHD720p5994
	ModeHD720p60
	ModeHD1080p2398
	ModeHD1080p24
	ModeHD1080p25
	ModeHD1080p2997
	ModeHD1080p30
	ModeHD1080i50
	ModeHD1080i5994
	ModeHD1080p50
	ModeHD1080p5994
	ModeHD1080p60
	Mode4K2160p30
	Mode4K2160p60
)

type modeInfo struct {
	name      string
	width     int
	height    int
	frameRate float64
}

var modeTable = map[DisplayMode]modeInfo{
	ModeNTSC:        {"ntsc", 720, 486, 29.97},
	ModePAL:         {"pal", 720, 576, 25},
	ModeHD720p50:    {"720p50", 1280, 720, 50},
	ModeHD720p5994:  {"720p59.94", 1280, 720, 59.94},
	ModeHD720p60:    {"720p60", 1280, 720, 60},
	ModeHD1080p2398: {"1080p23.98", 1920, 1080, 23.98},
	ModeHD1080p24:   {"1080p24", 1920, 1080, 24},
	ModeHD1080p25:   {"1080p25", 1920, 1080, 25},
	ModeHD1080p2997: {"1080p29.97", 1920, 1080, 29.97},
	ModeHD1080p30:   {"1080p30", 1920, 1080, 30},
	ModeHD1080i50:   {"1080i50", 1920, 1080, 25},
	ModeHD1080i5994: {"1080i59.94", 1920, 1080, 29.97},
	ModeHD1080p50:   {"1080p50", 1920, 1080, 50},
	ModeHD1080p5994: {"1080p59.94", 1920, 1080, 59.94},
	ModeHD1080p60:   {"1080p60", 1920, 1080, 60},
	Mode4K2160p30:   {"2160p30", 3840, 2160, 30},
	Mode4K2160p60:   {"2160p60", 3840, 2160, 60},
}

// Dimensions returns the frame size of the mode, or zeros if unknown.
func (m DisplayMode) Dimensions() (width, height int) {
	info, ok := modeTable[m]
	if !ok {
		return 0, 0
	}
	return info.width, info.height
}

// FrameRate returns frames per second of the mode, or zero if unknown.
func (m DisplayMode) FrameRate() float64 {
	return modeTable[m].frameRate
}

func (m DisplayMode) String() string {
	if info, ok := modeTable[m]; ok {
		return info.name
	}
	return fmt.Sprintf("mode(%d)", uint32(m))
}

// ParseDisplayMode resolves a mode by name, e.g. "1080p30".
func ParseDisplayMode(name string) (DisplayMode, error) {
	name = strings.ToLower(strings.TrimSpace(name))
	for mode, info := range modeTable {
		if info.name == name {
			return mode, nil
		}
	}
	return ModeUnknown, fmt.Errorf("%w: %q", ErrUnknownMode, name)
}

// ModeFor picks the closest known mode for a detected resolution and rate.
func ModeFor(width, height int, fps float64) DisplayMode {
	best := ModeUnknown
	bestDiff := 0.0
	for mode, info := range modeTable {
		if info.width != width || info.height != height {
			continue
		}
		diff := info.frameRate - fps
		if diff < 0 {
			diff = -diff
		}
		if best == ModeUnknown || diff < bestDiff || (diff == bestDiff && mode < best) {
			best, bestDiff = mode, diff
		}
	}
	return best
}
