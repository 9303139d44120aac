package v4l2cap

import "github.com/smazurov/framelink/internal/device"

// V4L2 fourcc codes for the layouts the capture core understands.
const (
	fourccUYVY uint32 = 'U' | 'Y'<<8 | 'V'<<16 | 'Y'<<24
	fourccYUYV uint32 = 'Y' | 'U'<<8 | 'Y'<<16 | 'V'<<24
	fourccBGRA uint32 = 'B' | 'A'<<8 | '2'<<16 | '4'<<24
)

// candidates lists the device layouts that can serve format, best first.
// YUYV is accepted for YUV capture and reordered to UYVY on read.
func candidates(format device.PixelFormat) []uint32 {
	if format == device.PixelFormatBGRA {
		return []uint32{fourccBGRA}
	}
	return []uint32{fourccUYVY, fourccYUYV}
}

func fourccString(code uint32) string {
	return string([]byte{byte(code), byte(code >> 8), byte(code >> 16), byte(code >> 24)})
}

// copyFrame copies src into dst, converting YUYV to UYVY when the device
// delivers the former. It returns the number of bytes written.
func copyFrame(dst, src []byte, code uint32) int {
	n := min(len(dst), len(src))
	if code != fourccYUYV {
		return copy(dst, src[:n])
	}
	n &^= 3
	for i := 0; i < n; i += 4 {
		dst[i] = src[i+1]
		dst[i+1] = src[i]
		dst[i+2] = src[i+3]
		dst[i+3] = src[i+2]
	}
	return n
}

// modeForSignal maps detected timings to a display mode. Interlaced timings
// report their frame rate, which collides with the progressive mode of the
// same rate.
func modeForSignal(width, height int, fps float64, interlaced bool) device.DisplayMode {
	mode := device.ModeFor(width, height, fps)
	if !interlaced {
		return mode
	}
	switch mode {
	case device.ModeHD1080p25, device.ModeHD1080i50:
		return device.ModeHD1080i50
	case device.ModeHD1080p2997, device.ModeHD1080i5994:
		return device.ModeHD1080i5994
	default:
		return mode
	}
}

// signalFlagsFor describes the signal in terms of the layout being captured;
// the receiver's colorspace is not queried.
func signalFlagsFor(format device.PixelFormat) device.SignalFlags {
	if format == device.PixelFormatBGRA {
		return device.SignalRGB444
	}
	return device.SignalYCbCr422
}
