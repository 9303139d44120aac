// Package render is the host side of the capture pipeline. Once per tick it
// uploads the newest captured frame, composites it and hands the result to the
// output mirror.
package render

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"github.com/smazurov/framelink/internal/device"
	"github.com/smazurov/framelink/internal/logging"
	"github.com/smazurov/framelink/internal/texture"
)

// DefaultFPS is the tick rate used when none is configured.
const DefaultFPS = 60

// Source is the capture session as seen by the render loop.
type Source interface {
	FrameCount() int64
	IsCapturing() bool
	ActivePixelFormat() device.PixelFormat
	WithFrame(index int64, fn func(pixels []byte, timestamp int64)) error
	SubmitCompositedFrame(tex texture.Texture)
	PumpOutput() (bool, error)
}

// Option configures a Loop.
type Option func(*Loop)

// WithCompositor replaces the passthrough compositor.
func WithCompositor(c Compositor) Option {
	return func(l *Loop) {
		l.compositor = c
	}
}

// WithFPS sets the tick rate of Run.
func WithFPS(fps int) Option {
	return func(l *Loop) {
		if fps > 0 {
			l.fps = fps
		}
	}
}

// Loop drives upload, composition and output mirroring.
type Loop struct {
	src        Source
	compositor Compositor
	width      int
	height     int
	fps        int

	uploads   map[device.PixelFormat]*texture.Host
	lastIndex int64
	timestamp int64

	logger *slog.Logger
}

// New creates a loop for frames of width x height.
func New(src Source, width, height int, opts ...Option) *Loop {
	l := &Loop{
		src:     src,
		width:   width,
		height:  height,
		fps:     DefaultFPS,
		uploads: make(map[device.PixelFormat]*texture.Host),
		logger:  logging.GetLogger("render"),
	}
	for _, opt := range opts {
		opt(l)
	}
	if l.compositor == nil {
		l.compositor = NewPassthrough(width, height)
	}
	return l
}

// Update uploads the frame at frameIndex, composites it and submits the result
// for output. The slot is read under the capture lock; composition and output
// run without it.
func (l *Loop) Update(frameIndex int64) error {
	start := time.Now()
	format := l.src.ActivePixelFormat()
	tex := l.upload(format)
	stride := l.width * format.BytesPerPixel()

	var uploadErr error
	err := l.src.WithFrame(frameIndex, func(pixels []byte, timestamp int64) {
		uploadErr = tex.Upload(pixels, stride)
		l.timestamp = timestamp
	})
	if err != nil {
		return fmt.Errorf("read frame %d: %w", frameIndex, err)
	}
	if uploadErr != nil {
		return fmt.Errorf("upload frame %d: %w", frameIndex, uploadErr)
	}

	if l.lastIndex > 0 && frameIndex > l.lastIndex+1 {
		framesSkipped.Add(float64(frameIndex - l.lastIndex - 1))
	}
	l.lastIndex = frameIndex

	l.src.SubmitCompositedFrame(l.compositor.Composite(tex, format))
	framesRendered.Inc()
	updateSeconds.Observe(time.Since(start).Seconds())
	return nil
}

// Tick renders the newest frame if one arrived since the last tick, then
// pumps the output mirror.
func (l *Loop) Tick() error {
	if l.src.IsCapturing() {
		if idx := l.src.FrameCount(); idx > 0 && idx != l.lastIndex {
			if err := l.Update(idx); err != nil {
				return err
			}
		}
	}

	fetched, err := l.src.PumpOutput()
	if err != nil {
		return fmt.Errorf("pump output: %w", err)
	}
	if fetched {
		mirrorFetches.Inc()
	}
	return nil
}

// Run ticks at the configured rate until ctx is done.
func (l *Loop) Run(ctx context.Context) error {
	interval := time.Second / time.Duration(l.fps)
	l.logger.Info("Starting render loop", "fps", l.fps, "width", l.width, "height", l.height)
	ticker := time.NewTicker(interval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			l.logger.Info("Render loop stopped", "last_frame", l.lastIndex)
			return nil
		case <-ticker.C:
			if err := l.Tick(); err != nil {
				l.logger.Debug("Render tick failed", "error", err)
			}
		}
	}
}

// LastFrame returns the index and stream time of the last rendered frame. It
// must not be called while Run is active.
func (l *Loop) LastFrame() (index, timestamp int64) {
	return l.lastIndex, l.timestamp
}

func (l *Loop) upload(format device.PixelFormat) *texture.Host {
	tex, ok := l.uploads[format]
	if !ok {
		tex = texture.NewHost(l.width, l.height, format.BytesPerPixel())
		l.uploads[format] = tex
	}
	return tex
}
