package render

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/smazurov/framelink/internal/device"
	"github.com/smazurov/framelink/internal/texture"
)

type fakeSource struct {
	capturing bool
	format    device.PixelFormat
	count     int64
	frames    map[int64][]byte
	frameErr  error

	reads     []int64
	submitted []texture.Texture
	pumps     int
	fetched   bool
}

func (f *fakeSource) FrameCount() int64                     { return f.count }
func (f *fakeSource) IsCapturing() bool                     { return f.capturing }
func (f *fakeSource) ActivePixelFormat() device.PixelFormat { return f.format }

func (f *fakeSource) WithFrame(index int64, fn func([]byte, int64)) error {
	if f.frameErr != nil {
		return f.frameErr
	}
	f.reads = append(f.reads, index)
	fn(f.frames[index], index*100)
	return nil
}

func (f *fakeSource) SubmitCompositedFrame(tex texture.Texture) {
	f.submitted = append(f.submitted, tex)
}

func (f *fakeSource) PumpOutput() (bool, error) {
	f.pumps++
	return f.fetched, nil
}

func snapshot(t *testing.T, tex texture.Texture) []byte {
	t.Helper()
	host, ok := tex.(*texture.Host)
	if !ok {
		t.Fatalf("composited texture is %T", tex)
	}
	out := make([]byte, host.Len())
	host.Snapshot(out)
	return out
}

func TestUpdate_BGRA(t *testing.T) {
	pix := []byte{
		1, 2, 3, 255, 4, 5, 6, 255,
		7, 8, 9, 255, 10, 11, 12, 255,
	}
	src := &fakeSource{capturing: true, format: device.PixelFormatBGRA, frames: map[int64][]byte{1: pix}}
	l := New(src, 2, 2)

	if err := l.Update(1); err != nil {
		t.Fatal(err)
	}
	if len(src.submitted) != 1 {
		t.Fatalf("submitted %d frames", len(src.submitted))
	}
	got := snapshot(t, src.submitted[0])
	for i := range pix {
		if got[i] != pix[i] {
			t.Fatalf("composited = %v, want %v", got, pix)
		}
	}
	if idx, ts := l.LastFrame(); idx != 1 || ts != 100 {
		t.Errorf("LastFrame = %d, %d", idx, ts)
	}
}

func TestUpdate_YUVConvertsToBGRA(t *testing.T) {
	tests := []struct {
		name   string
		uyvy   []byte
		lo, hi uint8
	}{
		{"white", []byte{128, 235, 128, 235}, 250, 255},
		{"black", []byte{128, 16, 128, 16}, 0, 2},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			src := &fakeSource{capturing: true, format: device.PixelFormatYUV, frames: map[int64][]byte{1: tt.uyvy}}
			l := New(src, 2, 1)
			if err := l.Update(1); err != nil {
				t.Fatal(err)
			}
			got := snapshot(t, src.submitted[0])
			for px := range 2 {
				for c := range 3 {
					v := got[px*4+c]
					if v < tt.lo || v > tt.hi {
						t.Errorf("pixel %d channel %d = %d, want [%d,%d]", px, c, v, tt.lo, tt.hi)
					}
				}
				if got[px*4+3] != 0xff {
					t.Errorf("pixel %d alpha = %d", px, got[px*4+3])
				}
			}
		})
	}
}

func TestUpdate_ReadError(t *testing.T) {
	errClosed := errors.New("closed")
	src := &fakeSource{capturing: true, frameErr: errClosed}
	l := New(src, 2, 2)
	if err := l.Update(1); !errors.Is(err, errClosed) {
		t.Errorf("Update error = %v", err)
	}
	if len(src.submitted) != 0 {
		t.Error("submitted a frame after a failed read")
	}
}

func TestTick(t *testing.T) {
	frame := make([]byte, 2*2*2)
	src := &fakeSource{
		capturing: true,
		format:    device.PixelFormatYUV,
		count:     3,
		frames:    map[int64][]byte{3: frame, 4: frame},
	}
	l := New(src, 2, 2)

	for range 2 {
		if err := l.Tick(); err != nil {
			t.Fatal(err)
		}
	}
	src.count = 4
	if err := l.Tick(); err != nil {
		t.Fatal(err)
	}

	if len(src.reads) != 2 || src.reads[0] != 3 || src.reads[1] != 4 {
		t.Errorf("reads = %v, want [3 4]", src.reads)
	}
	if src.pumps != 3 {
		t.Errorf("pumps = %d, want 3", src.pumps)
	}
}

func TestTick_NotCapturing(t *testing.T) {
	src := &fakeSource{count: 5}
	l := New(src, 2, 2)
	if err := l.Tick(); err != nil {
		t.Fatal(err)
	}
	if len(src.reads) != 0 {
		t.Errorf("read %v while not capturing", src.reads)
	}
	if src.pumps != 1 {
		t.Errorf("pumps = %d, want 1", src.pumps)
	}
}

func TestRun_StopsOnCancel(t *testing.T) {
	l := New(&fakeSource{}, 2, 2, WithFPS(500))
	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan error, 1)
	go func() { done <- l.Run(ctx) }()

	time.Sleep(10 * time.Millisecond)
	cancel()
	select {
	case err := <-done:
		if err != nil {
			t.Errorf("Run returned %v", err)
		}
	case <-time.After(time.Second):
		t.Fatal("Run did not return after cancel")
	}
}

type countingCompositor struct{ calls int }

func (c *countingCompositor) Composite(input *texture.Host, _ device.PixelFormat) texture.Texture {
	c.calls++
	return input
}

func TestWithCompositor(t *testing.T) {
	comp := &countingCompositor{}
	src := &fakeSource{capturing: true, format: device.PixelFormatBGRA, frames: map[int64][]byte{1: make([]byte, 16)}}
	l := New(src, 2, 2, WithCompositor(comp))
	if err := l.Update(1); err != nil {
		t.Fatal(err)
	}
	if comp.calls != 1 {
		t.Errorf("compositor calls = %d", comp.calls)
	}
}
