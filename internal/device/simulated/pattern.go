package simulated

import "github.com/smazurov/framelink/internal/device"

// 75% colour bars: white, yellow, cyan, green, magenta, red, blue, black.
var bars = [8]struct{ r, g, b uint8 }{
	{191, 191, 191},
	{191, 191, 0},
	{0, 191, 191},
	{0, 191, 0},
	{191, 0, 191},
	{191, 0, 0},
	{0, 0, 191},
	{16, 16, 16},
}

// testPattern is a bar row that scrolls left one pixel pair per frame.
type testPattern struct {
	mode   device.DisplayMode
	format device.PixelFormat
	height int
	stride int
	step   int
	row    []byte
	pixels []byte
}

func newTestPattern(mode device.DisplayMode, format device.PixelFormat) *testPattern {
	w, h := mode.Dimensions()
	stride := w * format.BytesPerPixel()
	p := &testPattern{
		mode:   mode,
		format: format,
		height: h,
		stride: stride,
		row:    make([]byte, stride),
		pixels: make([]byte, stride*h),
	}

	barWidth := max(w/len(bars), 1)
	switch format {
	case device.PixelFormatBGRA:
		p.step = 8
		for x := range w {
			c := bars[min(x/barWidth, len(bars)-1)]
			o := x * 4
			p.row[o], p.row[o+1], p.row[o+2], p.row[o+3] = c.b, c.g, c.r, 0xff
		}
	default:
		// UYVY, one chroma pair per two pixels.
		p.step = 4
		for x := 0; x+1 < w; x += 2 {
			c := bars[min(x/barWidth, len(bars)-1)]
			y, cb, cr := ycbcr(c.r, c.g, c.b)
			o := x * 2
			p.row[o], p.row[o+1], p.row[o+2], p.row[o+3] = cb, y, cr, y
		}
	}
	return p
}

func (p *testPattern) matches(mode device.DisplayMode, format device.PixelFormat) bool {
	return p.mode == mode && p.format == format
}

// frame renders frame n. The returned pixels are reused by the next call.
func (p *testPattern) frame(n, streamTime int64) device.Frame {
	shift := 0
	if p.stride > 0 {
		shift = int(n*int64(p.step)) % p.stride
	}
	for y := range p.height {
		line := p.pixels[y*p.stride : (y+1)*p.stride]
		k := copy(line, p.row[shift:])
		copy(line[k:], p.row[:shift])
	}
	return device.Frame{
		Pixels:     p.pixels,
		RowBytes:   p.stride,
		Height:     p.height,
		StreamTime: streamTime,
		Format:     p.format,
	}
}

// ycbcr converts studio-range RGB with BT.709 coefficients.
func ycbcr(r, g, b uint8) (y, cb, cr uint8) {
	rf, gf, bf := float64(r), float64(g), float64(b)
	yf := 0.2126*rf + 0.7152*gf + 0.0722*bf
	cbf := 128 + (bf-yf)/1.8556
	crf := 128 + (rf-yf)/1.5748
	return clamp(yf), clamp(cbf), clamp(crf)
}

func clamp(v float64) uint8 {
	switch {
	case v < 0:
		return 0
	case v > 255:
		return 255
	default:
		return uint8(v + 0.5)
	}
}
