package mirror

import (
	"errors"
	"sync"

	"github.com/smazurov/framelink/internal/texture"
)

// ErrUnsupportedTexture is returned when a readback cannot read a texture type.
var ErrUnsupportedTexture = errors.New("texture type not supported by readback")

// snapshotter is implemented by textures that live in host memory.
type snapshotter interface {
	texture.Texture
	Len() int
	Snapshot(dst []byte) int
}

// HostReadback is a double-buffered asynchronous readback for host textures.
// One staging buffer is filled in the background while the other holds the
// last completed copy.
type HostReadback struct {
	mu       sync.Mutex
	staging  [2][]byte
	lengths  [2]int
	filling  int
	ready    int
	inflight bool
	wg       sync.WaitGroup
}

// NewHostReadback creates an idle readback.
func NewHostReadback() *HostReadback {
	return &HostReadback{ready: -1}
}

// PrepareFetch starts copying src in the background. If a previous copy is
// still running the request is skipped.
func (r *HostReadback) PrepareFetch(src texture.Texture) error {
	snap, ok := src.(snapshotter)
	if !ok {
		return ErrUnsupportedTexture
	}

	r.mu.Lock()
	if r.inflight {
		r.mu.Unlock()
		return nil
	}
	idx := r.filling
	size := snap.Len()
	if cap(r.staging[idx]) < size {
		r.staging[idx] = make([]byte, size)
	}
	buf := r.staging[idx][:size]
	r.inflight = true
	r.wg.Add(1)
	r.mu.Unlock()

	go func() {
		defer r.wg.Done()
		n := snap.Snapshot(buf)

		r.mu.Lock()
		r.lengths[idx] = n
		r.ready = idx
		r.filling = idx ^ 1
		r.inflight = false
		r.mu.Unlock()
	}()
	return nil
}

// DataAvailable reports whether a completed copy is waiting to be fetched.
func (r *HostReadback) DataAvailable() bool {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.ready >= 0
}

// Fetch copies the completed staging buffer into dst and marks it consumed.
func (r *HostReadback) Fetch(dst []byte) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	if r.ready < 0 {
		return ErrNoData
	}
	copy(dst, r.staging[r.ready][:r.lengths[r.ready]])
	r.ready = -1
	return nil
}

// Wait blocks until no copy is in flight.
func (r *HostReadback) Wait() {
	r.wg.Wait()
}
