//go:build linux && (amd64 || arm64)

// Package v4l2 is a cgo-free binding to the parts of Video4Linux2 that frame
// streaming libraries leave out: capture device enumeration, DV timings for
// HDMI signal detection, and source change events.
//
// # Signal Detection
//
//	status := v4l2.GetDVTimings("/dev/video0")
//	if status.State == v4l2.SignalStateLocked {
//	    fmt.Printf("Signal: %dx%d @ %.2f fps\n", status.Width, status.Height, status.FPS)
//	}
//
// Receivers such as the TC358743 do not retime themselves; call
// ApplyDetectedTimings before streaming so the capture size follows the
// source.
//
// # Source Change Events
//
//	changes, err := v4l2.WaitForSourceChange("/dev/video0", time.Second)
//	if err == nil && changes&v4l2.SourceChangeResolution != 0 {
//	    // re-query timings
//	}
package v4l2
