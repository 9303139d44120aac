package capture

import (
	"fmt"

	"github.com/smazurov/framelink/internal/device"
)

// Config fixes the frame geometry for the life of a session.
type Config struct {
	Width             int
	Height            int
	BytesPerPixel     int
	RingSize          int
	PlaybackTimescale int64
	OutputEnabled     bool
}

// DefaultConfig returns a 1080p BGRA-sized configuration.
func DefaultConfig() Config {
	return Config{
		Width:             1920,
		Height:            1080,
		BytesPerPixel:     4,
		RingSize:          10,
		PlaybackTimescale: device.DefaultPlaybackTimescale,
		OutputEnabled:     true,
	}
}

// FrameSize is the capacity of one ring slot.
func (c Config) FrameSize() int {
	return c.Width * c.Height * c.BytesPerPixel
}

// Fits reports whether a frame in format p at the target size fits a slot.
func (c Config) Fits(p device.PixelFormat) bool {
	return c.Width*c.Height*p.BytesPerPixel() <= c.FrameSize()
}

func (c Config) validate() error {
	switch {
	case c.Width <= 0 || c.Height <= 0:
		return fmt.Errorf("%w: frame size %dx%d", ErrInvalidConfig, c.Width, c.Height)
	case c.BytesPerPixel < device.PixelFormatYUV.BytesPerPixel():
		return fmt.Errorf("%w: %d bytes per pixel", ErrInvalidConfig, c.BytesPerPixel)
	case c.RingSize < 2:
		return fmt.Errorf("%w: ring size %d", ErrInvalidConfig, c.RingSize)
	case c.PlaybackTimescale <= 0:
		return fmt.Errorf("%w: playback timescale %d", ErrInvalidConfig, c.PlaybackTimescale)
	}
	return nil
}
