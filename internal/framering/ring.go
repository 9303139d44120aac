// Package framering holds a fixed pool of pre-allocated frame buffers indexed
// by a capture counter.
//
// A Ring is not synchronized. The capture session serializes writes and reads
// under its capture lock; a reader that copies a slot out while holding that
// lock never observes a partially written frame.
package framering

import (
	"errors"
	"fmt"
)

// ErrFrameTooLarge is the panic value for a write larger than a slot. Frame size
// is fixed by configuration, so this is a contract violation, not a runtime
// condition.
var ErrFrameTooLarge = errors.New("frame exceeds slot capacity")

// Slot is one pre-allocated frame buffer.
type Slot struct {
	pixels    []byte
	length    int
	timestamp int64
}

// Ring is a fixed-capacity pool of slots. Slot memory is allocated once in New
// and only ever overwritten in place.
type Ring struct {
	slots      []Slot
	slotSize   int
	writeIndex int64
}

// New allocates n zeroed slots of slotSize bytes each.
func New(n, slotSize int) *Ring {
	if n <= 0 || slotSize <= 0 {
		panic(fmt.Sprintf("framering: invalid geometry %d slots x %d bytes", n, slotSize))
	}
	r := &Ring{
		slots:    make([]Slot, n),
		slotSize: slotSize,
	}
	for i := range r.slots {
		r.slots[i].pixels = make([]byte, slotSize)
	}
	return r
}

// Len returns the number of slots.
func (r *Ring) Len() int {
	return len(r.slots)
}

// SlotSize returns the capacity of each slot in bytes.
func (r *Ring) SlotSize() int {
	return r.slotSize
}

// Count returns the write counter: the number of writes since the last Reset.
// The newest frame lives at index Count().
func (r *Ring) Count() int64 {
	return r.writeIndex
}

// Write advances the counter and copies data into the slot it now points at.
// It returns the counter value the frame was stored under.
func (r *Ring) Write(data []byte, timestamp int64) int64 {
	if len(data) > r.slotSize {
		panic(fmt.Errorf("%w: %d > %d bytes", ErrFrameTooLarge, len(data), r.slotSize))
	}
	r.writeIndex++
	slot := &r.slots[r.physical(r.writeIndex)]
	slot.length = copy(slot.pixels, data)
	slot.timestamp = timestamp
	return r.writeIndex
}

// Read returns the slot for index. The returned bytes alias slot memory: they
// must not be modified and are valid only until the next Write that lands on
// the same physical slot.
func (r *Ring) Read(index int64) ([]byte, int64) {
	slot := &r.slots[r.physical(index)]
	return slot.pixels[:slot.length:slot.length], slot.timestamp
}

// CopyOut copies the slot for index into dst and returns the number of bytes
// copied together with the slot timestamp.
func (r *Ring) CopyOut(index int64, dst []byte) (int, int64) {
	pixels, ts := r.Read(index)
	return copy(dst, pixels), ts
}

// Reset rewinds the write counter. Slot memory is kept.
func (r *Ring) Reset() {
	r.writeIndex = 0
}

// Zero clears every slot and rewinds the counter.
func (r *Ring) Zero() {
	for i := range r.slots {
		clear(r.slots[i].pixels)
		r.slots[i].length = 0
		r.slots[i].timestamp = 0
	}
	r.writeIndex = 0
}

func (r *Ring) physical(index int64) int {
	n := int64(len(r.slots))
	i := index % n
	if i < 0 {
		i += n
	}
	return int(i)
}
