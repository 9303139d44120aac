// Package texture provides the texture handles exchanged between the capture
// core and the render pipeline.
//
// Texture is opaque: GPU backends hand the core whatever handle
// they use. Host is a CPU-memory texture used by the software pipeline and by
// tests.
package texture

import (
	"fmt"
	"sync"
)

// Texture is an image owned by the render pipeline.
type Texture interface {
	Width() int
	Height() int
}

// Host is a tightly packed texture in host memory. It is safe for concurrent
// use: uploads and snapshots are serialized.
type Host struct {
	mu            sync.RWMutex
	width         int
	height        int
	bytesPerPixel int
	pix           []byte
	generation    uint64
}

// NewHost allocates a zeroed width x height texture.
func NewHost(width, height, bytesPerPixel int) *Host {
	return &Host{
		width:         width,
		height:        height,
		bytesPerPixel: bytesPerPixel,
		pix:           make([]byte, width*height*bytesPerPixel),
	}
}

// Width implements Texture.
func (t *Host) Width() int { return t.width }

// Height implements Texture.
func (t *Host) Height() int { return t.height }

// Stride returns the row pitch in bytes.
func (t *Host) Stride() int { return t.width * t.bytesPerPixel }

// Len returns the size of the pixel store in bytes.
func (t *Host) Len() int { return len(t.pix) }

// Generation increments on every upload.
func (t *Host) Generation() uint64 {
	t.mu.RLock()
	defer t.mu.RUnlock()
	return t.generation
}

// Upload replaces texture contents with src, whose rows are srcStride bytes
// apart. Rows longer than the texture pitch are truncated.
func (t *Host) Upload(src []byte, srcStride int) error {
	if srcStride <= 0 {
		return fmt.Errorf("invalid source stride %d", srcStride)
	}
	t.mu.Lock()
	defer t.mu.Unlock()

	stride := t.Stride()
	if srcStride == stride {
		copy(t.pix, src)
	} else {
		row := min(stride, srcStride)
		for y := 0; y < t.height; y++ {
			off := y * srcStride
			if off >= len(src) {
				break
			}
			copy(t.pix[y*stride:y*stride+row], src[off:min(off+row, len(src))])
		}
	}
	t.generation++
	return nil
}

// Snapshot copies the texture into dst and returns the number of bytes copied.
func (t *Host) Snapshot(dst []byte) int {
	t.mu.RLock()
	defer t.mu.RUnlock()
	return copy(dst, t.pix)
}

// Update runs fn with write access to the pixel store.
func (t *Host) Update(fn func(pix []byte, stride int)) {
	t.mu.Lock()
	defer t.mu.Unlock()
	fn(t.pix, t.Stride())
	t.generation++
}
