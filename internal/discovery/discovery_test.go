package discovery

import (
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/smazurov/framelink/internal/device"
	"github.com/smazurov/framelink/internal/events"
)

type fakeHandle struct {
	id     string
	mu     sync.Mutex
	closed int
}

func (h *fakeHandle) ID() string                     { return h.id }
func (h *fakeHandle) Attributes() device.Attributes  { return device.Attributes{Name: "Fake " + h.id} }
func (h *fakeHandle) Input() (device.Input, error)   { return nil, device.ErrInputUnsupported }
func (h *fakeHandle) Output() (device.Output, error) { return nil, device.ErrOutputUnsupported }
func (h *fakeHandle) Close() error {
	h.mu.Lock()
	defer h.mu.Unlock()
	h.closed++
	return nil
}

func (h *fakeHandle) closeCount() int {
	h.mu.Lock()
	defer h.mu.Unlock()
	return h.closed
}

type fakeNotifier struct {
	handler    device.DeviceHandler
	installErr error
	installs   int
	uninstalls int
}

func (n *fakeNotifier) InstallDeviceNotifications(h device.DeviceHandler) error {
	n.installs++
	if n.installErr != nil {
		return n.installErr
	}
	n.handler = h
	return nil
}

func (n *fakeNotifier) UninstallDeviceNotifications() error {
	n.uninstalls++
	n.handler = nil
	return nil
}

func activeID(d *Discovery) string {
	h, ok := d.Active()
	if !ok {
		return ""
	}
	return h.ID()
}

func TestDiscovery_Latch(t *testing.T) {
	d := New(&fakeNotifier{})
	a := &fakeHandle{id: "a"}
	b := &fakeHandle{id: "b"}

	if !d.DeviceArrived(a) {
		t.Fatal("first device should be kept")
	}
	if d.DeviceArrived(b) {
		t.Error("second device should be ignored while one is held")
	}
	if got := activeID(d); got != "a" {
		t.Errorf("active = %q, want a", got)
	}
	if b.closeCount() != 0 {
		t.Error("ignored device must be released by the notifier, not discovery")
	}

	d.DeviceRemoved(a)
	if _, ok := d.Active(); ok {
		t.Error("active should be cleared after removal")
	}
	if a.closeCount() != 1 {
		t.Errorf("removed device closed %d times, want 1", a.closeCount())
	}

	if !d.DeviceArrived(b) {
		t.Error("device arriving after removal should be kept")
	}
	if got := activeID(d); got != "b" {
		t.Errorf("active = %q, want b", got)
	}
}

func TestDiscovery_IgnoresUnheldRemoval(t *testing.T) {
	d := New(&fakeNotifier{})
	a := &fakeHandle{id: "a"}
	d.DeviceArrived(a)

	d.DeviceRemoved(&fakeHandle{id: "b"})
	d.DeviceRemoved(nil)

	if got := activeID(d); got != "a" {
		t.Errorf("active = %q, want a", got)
	}
	if a.closeCount() != 0 {
		t.Error("held device closed by unrelated removal")
	}
}

func TestDiscovery_NilArrival(t *testing.T) {
	d := New(&fakeNotifier{})
	if d.DeviceArrived(nil) {
		t.Error("nil handle should not be kept")
	}
	if _, ok := d.Active(); ok {
		t.Error("nil handle became active")
	}
}

func TestDiscovery_EnableDisable(t *testing.T) {
	n := &fakeNotifier{}
	d := New(n)

	if err := d.Enable(); err != nil {
		t.Fatal(err)
	}
	if err := d.Enable(); err != nil {
		t.Fatal(err)
	}
	if n.installs != 1 || n.handler != d {
		t.Errorf("installs = %d, handler = %v", n.installs, n.handler)
	}

	if err := d.Disable(); err != nil {
		t.Fatal(err)
	}
	if err := d.Disable(); err != nil {
		t.Fatal(err)
	}
	if n.uninstalls != 1 {
		t.Errorf("uninstalls = %d, want 1", n.uninstalls)
	}
}

func TestDiscovery_EnableFailure(t *testing.T) {
	errBoom := errors.New("boom")
	n := &fakeNotifier{installErr: errBoom}
	d := New(n)

	if err := d.Enable(); !errors.Is(err, errBoom) {
		t.Fatalf("Enable error = %v", err)
	}
	n.installErr = nil
	if err := d.Enable(); err != nil {
		t.Fatalf("retry Enable: %v", err)
	}
	if n.installs != 2 {
		t.Errorf("installs = %d, want 2", n.installs)
	}
}

func TestDiscovery_ActiveChangedCallbacks(t *testing.T) {
	d := New(&fakeNotifier{})
	a := &fakeHandle{id: "a"}

	type change struct {
		id      string
		present bool
		closed  int
	}
	var got []change
	d.OnActiveChanged(func(h device.Handle, present bool) {
		// Callbacks must be free to query discovery.
		d.Active()
		got = append(got, change{h.ID(), present, h.(*fakeHandle).closeCount()})
	})

	d.DeviceArrived(a)
	d.DeviceArrived(&fakeHandle{id: "b"})
	d.DeviceRemoved(a)

	want := []change{{"a", true, 0}, {"a", false, 0}}
	if len(got) != len(want) {
		t.Fatalf("changes = %+v, want %+v", got, want)
	}
	for i := range want {
		if got[i] != want[i] {
			t.Errorf("change %d = %+v, want %+v", i, got[i], want[i])
		}
	}
}

func TestDiscovery_CloseReleasesActive(t *testing.T) {
	n := &fakeNotifier{}
	d := New(n)
	if err := d.Enable(); err != nil {
		t.Fatal(err)
	}
	a := &fakeHandle{id: "a"}
	d.DeviceArrived(a)

	if err := d.Close(); err != nil {
		t.Fatal(err)
	}
	if a.closeCount() != 1 {
		t.Errorf("closed %d times, want 1", a.closeCount())
	}
	if n.uninstalls != 1 {
		t.Errorf("uninstalls = %d, want 1", n.uninstalls)
	}
	if _, ok := d.Active(); ok {
		t.Error("active after Close")
	}
}

func TestDiscovery_PublishesEvents(t *testing.T) {
	bus := events.New()
	got := make(chan events.DeviceDiscoveryEvent, 8)
	defer bus.Subscribe(func(e events.DeviceDiscoveryEvent) { got <- e })()

	d := New(&fakeNotifier{}, WithEventBus(bus))
	a := &fakeHandle{id: "a"}
	d.DeviceArrived(a)
	d.DeviceArrived(&fakeHandle{id: "b"})
	d.DeviceRemoved(a)

	want := []struct {
		id     string
		action string
		active bool
	}{
		{"a", "added", true},
		{"b", "added", false},
		{"a", "removed", false},
	}
	for i, w := range want {
		select {
		case e := <-got:
			if e.DeviceID != w.id || e.Action != w.action || e.Active != w.active {
				t.Errorf("event %d = %+v, want %+v", i, e, w)
			}
		case <-time.After(time.Second):
			t.Fatalf("event %d not delivered", i)
		}
	}
}
