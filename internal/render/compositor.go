package render

import (
	"github.com/smazurov/framelink/internal/device"
	"github.com/smazurov/framelink/internal/texture"
)

// Compositor turns the uploaded capture frame into the frame to mirror.
type Compositor interface {
	Composite(input *texture.Host, format device.PixelFormat) texture.Texture
}

// Passthrough converts the capture frame to BGRA unchanged.
type Passthrough struct {
	out     *texture.Host
	scratch []byte
}

// NewPassthrough creates a compositor producing width x height BGRA frames.
func NewPassthrough(width, height int) *Passthrough {
	return &Passthrough{out: texture.NewHost(width, height, device.PixelFormatBGRA.BytesPerPixel())}
}

// Composite implements Compositor.
func (p *Passthrough) Composite(input *texture.Host, format device.PixelFormat) texture.Texture {
	if cap(p.scratch) < input.Len() {
		p.scratch = make([]byte, input.Len())
	}
	src := p.scratch[:input.Len()]
	input.Snapshot(src)
	srcStride := input.Stride()
	width, height := min(input.Width(), p.out.Width()), min(input.Height(), p.out.Height())

	p.out.Update(func(dst []byte, stride int) {
		for y := range height {
			in := src[y*srcStride : (y+1)*srcStride]
			out := dst[y*stride : (y+1)*stride]
			if format == device.PixelFormatBGRA {
				copy(out, in[:width*4])
				continue
			}
			uyvyToBGRA(out, in, width)
		}
	})
	return p.out
}

// uyvyToBGRA converts one row of 8-bit 4:2:2 video-range BT.709 pixels.
func uyvyToBGRA(dst, src []byte, width int) {
	for x := 0; x+1 < width; x += 2 {
		o := x * 2
		cb := int32(src[o]) - 128
		y0 := int32(src[o+1]) - 16
		cr := int32(src[o+2]) - 128
		y1 := int32(src[o+3]) - 16

		// Fixed point (x1024) BT.709 coefficients.
		rd := 1836 * cr
		gd := -218*cb - 546*cr
		bd := 2163 * cb
		for i, yv := range [2]int32{y0, y1} {
			luma := 1192 * yv
			d := (x + i) * 4
			dst[d] = clip((luma + bd) >> 10)
			dst[d+1] = clip((luma + gd) >> 10)
			dst[d+2] = clip((luma + rd) >> 10)
			dst[d+3] = 0xff
		}
	}
}

func clip(v int32) uint8 {
	switch {
	case v < 0:
		return 0
	case v > 255:
		return 255
	default:
		return uint8(v)
	}
}
