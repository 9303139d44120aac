package cmd

import (
	"context"
	"errors"
	"fmt"
	"io"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/danielgtaylor/huma/v2/humacli"
	"github.com/smazurov/framelink/internal/capture"
	"github.com/smazurov/framelink/internal/config"
	"github.com/smazurov/framelink/internal/device"
	"github.com/smazurov/framelink/internal/discovery"
	"github.com/smazurov/framelink/internal/logging"
	"github.com/smazurov/framelink/internal/render"
	"github.com/spf13/cobra"
)

// CreateCaptureCmd creates the capture command.
func CreateCaptureCmd() *cobra.Command {
	var duration time.Duration
	var devicePath string
	var simulate bool

	cmd := &cobra.Command{
		Use:   "capture",
		Short: "Run one headless capture session",
		Long: `Opens the first capture device found (or the test pattern with --simulate), ` +
			`captures and composites frames for --duration, then prints frame statistics.`,
		Args: cobra.NoArgs,
		Run: humacli.WithOptions(func(cmd *cobra.Command, _ []string, opts *config.Options) {
			if devicePath != "" {
				opts.DevicePath = devicePath
			}
			if simulate {
				opts.DeviceSimulate = true
			}

			ctx, stop := signal.NotifyContext(cmd.Context(), os.Interrupt, syscall.SIGTERM)
			defer stop()

			if err := runCapture(ctx, opts, duration, cmd.OutOrStdout()); err != nil {
				logging.GetLogger("main").Error("Capture failed", "error", err)
				os.Exit(1)
			}
		}),
	}

	cmd.Flags().DurationVar(&duration, "duration", 10*time.Second, "How long to capture")
	cmd.Flags().StringVar(&devicePath, "device", "", "Capture device node (overrides device.path)")
	cmd.Flags().BoolVar(&simulate, "simulate", false, "Capture the built-in test pattern")
	return cmd
}

func runCapture(ctx context.Context, opts *config.Options, duration time.Duration, out io.Writer) error {
	logger := logging.GetLogger("main")

	mode, err := device.ParseDisplayMode(opts.DeviceDisplayMode)
	if err != nil {
		return err
	}

	manager := capture.NewManager(CaptureConfig(opts), mode, true)
	disc := discovery.New(NewNotifier(opts, mode))
	disc.OnActiveChanged(manager.DeviceChanged)
	if err := disc.Enable(); err != nil {
		return fmt.Errorf("failed to enable device discovery: %w", err)
	}

	loop := render.New(manager, opts.FrameWidth, opts.FrameHeight, render.WithFPS(opts.RenderFps))

	runCtx, cancel := context.WithTimeout(ctx, duration)
	defer cancel()

	logger.Info("Capturing", "mode", mode, "duration", duration)
	started := time.Now()
	runErr := loop.Run(runCtx)
	elapsed := time.Since(started)

	status, ok := manager.Status()
	index, _ := loop.LastFrame()

	closeErr := errors.Join(manager.Close(), disc.Close())
	if runErr != nil {
		return runErr
	}

	printStats(out, status, ok, index, elapsed)
	return closeErr
}

func printStats(out io.Writer, status capture.Status, ok bool, composited int64, elapsed time.Duration) {
	if !ok {
		fmt.Fprintln(out, "No capture device became available.")
		return
	}

	rate := 0.0
	if secs := elapsed.Seconds(); secs > 0 {
		rate = float64(status.FrameCount) / secs
	}
	fmt.Fprintf(out, "Device:        %s (%s)\n", status.DeviceName, status.DeviceID)
	fmt.Fprintf(out, "State:         %s\n", status.State)
	fmt.Fprintf(out, "Mode:          %s %s\n", status.Mode, status.PixelFormat)
	fmt.Fprintf(out, "Frames:        %d in %s (%.2f fps)\n", status.FrameCount, elapsed.Round(time.Millisecond), rate)
	fmt.Fprintf(out, "Dropped:       %d\n", status.FramesDropped)
	fmt.Fprintf(out, "Composited:    frame %d\n", composited)
	fmt.Fprintf(out, "Output mirror: supported=%t active=%t\n", status.SupportsOutput, status.OutputActive)
}
