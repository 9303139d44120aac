package main

import (
	"context"
	"errors"
	"log/slog"
	"net/http"
	"os"
	"sync/atomic"
	"time"

	"github.com/coreos/go-systemd/v22/daemon"
	"github.com/danielgtaylor/huma/v2/humacli"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/smazurov/framelink/cmd"
	"github.com/smazurov/framelink/internal/api"
	"github.com/smazurov/framelink/internal/capture"
	"github.com/smazurov/framelink/internal/config"
	"github.com/smazurov/framelink/internal/device"
	"github.com/smazurov/framelink/internal/discovery"
	"github.com/smazurov/framelink/internal/events"
	"github.com/smazurov/framelink/internal/logging"
	"github.com/smazurov/framelink/internal/render"
)

func main() {
	var cli humacli.CLI
	cli = humacli.New(func(hooks humacli.Hooks, opts *config.Options) {
		// Load configuration: flags set on the command line win over env and file
		if loadErr := config.LoadConfig(opts, cli.Root()); loadErr != nil {
			slog.Warn("Failed to load config", "error", loadErr)
		}

		logging.Initialize(opts.LoggingConfig())
		logger := logging.GetLogger("main")

		// Create event bus for in-process event handling
		eventBus := events.New()

		var seq atomic.Uint64
		logging.SetLogCallback(func(entry logging.LogEntry) {
			eventBus.Publish(events.LogEntryEvent{
				Seq:        seq.Add(1),
				Timestamp:  entry.Timestamp.Format(time.RFC3339Nano),
				Level:      entry.Level,
				Module:     entry.Module,
				Message:    entry.Message,
				Attributes: entry.Attributes,
			})
		})

		var (
			watcher *config.Watcher[logging.Config]
			manager *capture.Manager
			disc    *discovery.Discovery
			server  *api.Server
		)
		cancel := context.CancelFunc(func() {})
		done := make(chan struct{})

		hooks.OnStart(func() {
			mode, err := device.ParseDisplayMode(opts.DeviceDisplayMode)
			if err != nil {
				logger.Error("Invalid display mode", "mode", opts.DeviceDisplayMode, "error", err)
				os.Exit(1)
			}

			// Only logging levels are reloadable; frame geometry is fixed at start
			watcher = config.NewConfigWatcher(opts.Config, config.LoadLoggingConfig, logging.GetLogger("config"))
			watcher.OnReload(func(cfg logging.Config) {
				logging.UpdateLevels(cfg)
				logger.Info("Logging levels reloaded", "level", cfg.Level)
			})
			if startErr := watcher.Start(); startErr != nil {
				logger.Warn("Config hot reload disabled", "error", startErr)
			}

			manager = capture.NewManager(cmd.CaptureConfig(opts), mode, true, capture.WithEventBus(eventBus))
			disc = discovery.New(cmd.NewNotifier(opts, mode), discovery.WithEventBus(eventBus))
			disc.OnActiveChanged(manager.DeviceChanged)
			if enableErr := disc.Enable(); enableErr != nil {
				logger.Error("Failed to enable device discovery", "error", enableErr)
				os.Exit(1)
			}

			var ctx context.Context
			ctx, cancel = context.WithCancel(context.Background())
			loop := render.New(manager, opts.FrameWidth, opts.FrameHeight, render.WithFPS(opts.RenderFps))
			go func() {
				defer close(done)
				if runErr := loop.Run(ctx); runErr != nil {
					logger.Error("Render loop stopped", "error", runErr)
				}
			}()

			server = api.NewServer(&api.Options{
				AuthUsername:      opts.AuthUsername,
				AuthPassword:      opts.AuthPassword,
				Capture:           manager,
				EventBus:          eventBus,
				PrometheusHandler: promhttp.Handler(),
			})

			if _, notifyErr := daemon.SdNotify(false, daemon.SdNotifyReady); notifyErr != nil {
				logger.Debug("systemd notification failed", "error", notifyErr)
			}

			logger.Info("Starting HTTP server", "port", opts.Port)
			if startErr := server.Start(opts.Port); startErr != nil && !errors.Is(startErr, http.ErrServerClosed) {
				logger.Error("Failed to start HTTP server", "error", startErr)
				os.Exit(1)
			}
		})

		hooks.OnStop(func() {
			logger.Info("Shutting down")
			_, _ = daemon.SdNotify(false, daemon.SdNotifyStopping)

			if server != nil {
				if stopErr := server.Stop(); stopErr != nil {
					logger.Error("Error stopping HTTP server", "error", stopErr)
				}
			}

			// Stop the render loop before the session it reads from goes away
			cancel()
			if manager != nil {
				<-done
				if closeErr := manager.Close(); closeErr != nil {
					logger.Warn("Capture session close reported errors", "error", closeErr)
				}
			}
			if disc != nil {
				if closeErr := disc.Close(); closeErr != nil {
					logger.Warn("Device discovery close reported errors", "error", closeErr)
				}
			}
			if watcher != nil {
				if stopErr := watcher.Stop(); stopErr != nil {
					logger.Warn("Error stopping config watcher", "error", stopErr)
				}
			}
		})
	})

	// Add capture command
	cli.Root().AddCommand(cmd.CreateCaptureCmd())

	// Run the CLI
	cli.Run()
}
