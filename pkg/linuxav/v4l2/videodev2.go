//go:build linux && (amd64 || arm64)

package v4l2

import (
	"encoding/binary"
	"unsafe"
)

// Struct sizes must match the kernel's or the ioctl numbers below are wrong.
var (
	_ [104]byte = [unsafe.Sizeof(v4l2Capability{})]byte{}
	_ [132]byte = [unsafe.Sizeof(v4l2DVTimings{})]byte{}
	_ [32]byte  = [unsafe.Sizeof(v4l2EventSubscription{})]byte{}
	_ [136]byte = [unsafe.Sizeof(v4l2Event{})]byte{}
)

const (
	vidiocQuerycap         = 0x80685600
	vidiocSDVTimings       = 0xc0845657
	vidiocGDVTimings       = 0xc0845658
	vidiocDqevent          = 0x80885659
	vidiocSubscribeEvent   = 0x4020565a
	vidiocUnsubscribeEvent = 0x4020565b
	vidiocQueryDVTimings   = 0x80845663
)

const (
	v4l2CapVideoCapture = 0x00000001
	v4l2CapStreaming    = 0x04000000
	v4l2CapDeviceCaps   = 0x80000000

	v4l2DVBTType656_1120  = 0
	v4l2EventSourceChange = 5
)

type v4l2Capability struct {
	driver       [16]byte
	card         [32]byte
	busInfo      [32]byte
	version      uint32
	capabilities uint32
	deviceCaps   uint32
	reserved     [3]uint32
}

// v4l2DVTimings keeps the packed v4l2_bt_timings union as raw bytes; Go
// cannot express the kernel's packed layout.
type v4l2DVTimings struct {
	typ uint32
	bt  [128]byte
}

type v4l2EventSubscription struct {
	typ      uint32
	id       uint32
	flags    uint32
	reserved [5]uint32
}

type v4l2Event struct {
	typ       uint32
	_         [4]byte
	u         [64]byte
	pending   uint32
	sequence  uint32
	timestamp [16]byte
	id        uint32
	reserved  [8]uint32
	_         [4]byte
}

// srcChanges returns v4l2_event_src_change.changes from the union.
func (e *v4l2Event) srcChanges() uint32 {
	return binary.NativeEndian.Uint32(e.u[0:4])
}

// btTimings is the decoded subset of v4l2_bt_timings.
type btTimings struct {
	width         uint32
	height        uint32
	interlaced    bool
	pixelclock    uint64
	hfrontporch   uint32
	hsync         uint32
	hbackporch    uint32
	vfrontporch   uint32
	vsync         uint32
	vbackporch    uint32
	ilVfrontporch uint32
	ilVsync       uint32
	ilVbackporch  uint32
}

func (t *v4l2DVTimings) decode() btTimings {
	b := t.bt[:]
	u32 := func(off int) uint32 { return binary.NativeEndian.Uint32(b[off:]) }
	return btTimings{
		width:         u32(0),
		height:        u32(4),
		interlaced:    u32(8) != 0,
		pixelclock:    binary.NativeEndian.Uint64(b[16:]),
		hfrontporch:   u32(24),
		hsync:         u32(28),
		hbackporch:    u32(32),
		vfrontporch:   u32(36),
		vsync:         u32(40),
		vbackporch:    u32(44),
		ilVfrontporch: u32(48),
		ilVsync:       u32(52),
		ilVbackporch:  u32(56),
	}
}

func (bt btTimings) locked() bool {
	return bt.width > 0 && bt.height > 0 && bt.pixelclock > 0
}

// fps returns the frame rate; for interlaced timings that is half the field
// rate.
func (bt btTimings) fps() float64 {
	if bt.pixelclock == 0 {
		return 0
	}
	htotal := uint64(bt.width + bt.hfrontporch + bt.hsync + bt.hbackporch)
	vtotal := uint64(bt.height + bt.vfrontporch + bt.vsync + bt.vbackporch)
	if bt.interlaced {
		vtotal += uint64(bt.ilVfrontporch + bt.ilVsync + bt.ilVbackporch)
	}
	if htotal == 0 || vtotal == 0 {
		return 0
	}
	return float64(bt.pixelclock) / float64(htotal*vtotal)
}
