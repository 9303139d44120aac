package config

import "github.com/smazurov/framelink/internal/logging"

// Options is the flat CLI/env/TOML option set shared by the server and the
// capture subcommand.
type Options struct {
	Config string `help:"Path to configuration file" short:"c" default:"framelink.toml"`

	// Server settings
	Port string `help:"Port to listen on" short:"p" default:":8090" toml:"server.port" env:"SERVER_PORT"`

	// API authentication; empty credentials disable auth
	AuthUsername string `help:"Basic auth username" default:"" toml:"auth.username" env:"AUTH_USERNAME"`
	AuthPassword string `help:"Basic auth password" default:"" toml:"auth.password" env:"AUTH_PASSWORD"`

	// Device settings
	DevicePath        string `help:"Capture device node; empty uses hot-plug discovery" default:"" toml:"device.path" env:"DEVICE_PATH"`
	DeviceSimulate    bool   `help:"Use the built-in test-pattern device" default:"false" toml:"device.simulate" env:"DEVICE_SIMULATE"`
	DeviceDisplayMode string `help:"Initial display mode (e.g. 1080p30)" default:"1080p30" toml:"device.display_mode" env:"DEVICE_DISPLAY_MODE"`
	DeviceSignalPoll  int    `help:"Signal detection poll interval in milliseconds" default:"500" toml:"device.signal_poll_ms" env:"DEVICE_SIGNAL_POLL_MS"`

	// Frame geometry, fixed for the life of the process
	FrameWidth         int `help:"Target frame width" default:"1920" toml:"frame.width" env:"FRAME_WIDTH"`
	FrameHeight        int `help:"Target frame height" default:"1080" toml:"frame.height" env:"FRAME_HEIGHT"`
	FrameBytesPerPixel int `help:"Bytes per pixel of a ring slot" default:"4" toml:"frame.bytes_per_pixel" env:"FRAME_BYTES_PER_PIXEL"`
	FrameRingSize      int `help:"Number of cached frames" default:"10" toml:"frame.ring_size" env:"FRAME_RING_SIZE"`

	// Output mirroring
	OutputEnabled           bool `help:"Mirror composited frames to the device output" default:"true" toml:"output.enabled" env:"OUTPUT_ENABLED"`
	OutputPlaybackTimescale int  `help:"Scheduled playback timescale" default:"600" toml:"output.playback_timescale" env:"OUTPUT_PLAYBACK_TIMESCALE"`

	// Render loop
	RenderFps int `help:"Render loop rate" default:"60" toml:"render.fps" env:"RENDER_FPS"`

	// Logging settings
	LoggingLevel     string `help:"Global logging level (debug, info, warn, error)" default:"info" toml:"logging.level" env:"LOGGING_LEVEL"`
	LoggingFormat    string `help:"Logging format (text, json)" default:"text" toml:"logging.format" env:"LOGGING_FORMAT"`
	LoggingCapture   string `help:"Capture session logging level" default:"info" toml:"logging.capture" env:"LOGGING_CAPTURE"`
	LoggingMirror    string `help:"Output mirror logging level" default:"info" toml:"logging.mirror" env:"LOGGING_MIRROR"`
	LoggingDiscovery string `help:"Device discovery logging level" default:"info" toml:"logging.discovery" env:"LOGGING_DISCOVERY"`
	LoggingDevice    string `help:"Device backend logging level" default:"info" toml:"logging.device" env:"LOGGING_DEVICE"`
	LoggingRender    string `help:"Render loop logging level" default:"info" toml:"logging.render" env:"LOGGING_RENDER"`
	LoggingAPI       string `help:"HTTP API logging level" default:"info" toml:"logging.api" env:"LOGGING_API"`
}

// LoggingConfig returns the logging configuration described by o.
func (o *Options) LoggingConfig() logging.Config {
	return logging.Config{
		Level:  o.LoggingLevel,
		Format: o.LoggingFormat,
		Modules: map[string]string{
			"capture":   o.LoggingCapture,
			"mirror":    o.LoggingMirror,
			"discovery": o.LoggingDiscovery,
			"device":    o.LoggingDevice,
			"render":    o.LoggingRender,
			"api":       o.LoggingAPI,
			"http":      o.LoggingAPI,
		},
	}
}
