//go:build linux

// Package hotplug reports kernel device events read from a
// NETLINK_KOBJECT_UEVENT socket, without cgo or libudev.
package hotplug

import (
	"bytes"
	"context"
	"errors"
	"slices"
	"strconv"
	"strings"
	"syscall"
)

// Action is the kernel's verb for a device event.
type Action string

// Actions the capture stack reacts to.
const (
	ActionAdd    Action = "add"
	ActionRemove Action = "remove"
	ActionChange Action = "change"
)

// SubsystemVideo4Linux is the subsystem of V4L2 device nodes.
const SubsystemVideo4Linux = "video4linux"

// Event is one parsed uevent.
type Event struct {
	Action    Action
	KObj      string // Kernel object path: /devices/pci0000:00/...
	Subsystem string
	DevName   string // Node name relative to /dev, e.g. "video0"
	SeqNum    uint64
	Env       map[string]string
}

// DevNode returns the absolute device node path, or "" if the event has none.
func (e Event) DevNode() string {
	switch {
	case e.DevName == "":
		return ""
	case strings.HasPrefix(e.DevName, "/"):
		return e.DevName
	default:
		return "/dev/" + e.DevName
	}
}

const (
	netlinkKobjectUEvent = 15
	kernelGroup          = 1
)

// Monitor listens for kernel device events. Configure it with options; it is
// not reconfigurable once running.
type Monitor struct {
	fd         int
	subsystems []string
}

// Option configures a Monitor.
type Option func(*Monitor)

// WithSubsystems limits events to the named subsystems. Without it every
// event is delivered.
func WithSubsystems(names ...string) Option {
	return func(m *Monitor) {
		m.subsystems = append(m.subsystems, names...)
	}
}

// NewMonitor opens the netlink socket.
func NewMonitor(opts ...Option) (*Monitor, error) {
	fd, err := syscall.Socket(syscall.AF_NETLINK, syscall.SOCK_DGRAM|syscall.SOCK_CLOEXEC, netlinkKobjectUEvent)
	if err != nil {
		return nil, err
	}
	if err := syscall.Bind(fd, &syscall.SockaddrNetlink{Family: syscall.AF_NETLINK, Groups: kernelGroup}); err != nil {
		_ = syscall.Close(fd)
		return nil, err
	}
	// Receive wakes up once a second so Run can notice cancellation.
	tv := syscall.Timeval{Sec: 1}
	if err := syscall.SetsockoptTimeval(fd, syscall.SOL_SOCKET, syscall.SO_RCVTIMEO, &tv); err != nil {
		_ = syscall.Close(fd)
		return nil, err
	}

	m := &Monitor{fd: fd}
	for _, opt := range opts {
		opt(m)
	}
	return m, nil
}

// Close releases the socket. Call it after Run has returned.
func (m *Monitor) Close() error {
	return syscall.Close(m.fd)
}

func (m *Monitor) accepts(e *Event) bool {
	return len(m.subsystems) == 0 || slices.Contains(m.subsystems, e.Subsystem)
}

// Run calls handler for each matching event until ctx is cancelled or the
// socket fails. handler runs on Run's goroutine.
func (m *Monitor) Run(ctx context.Context, handler func(Event)) error {
	buf := make([]byte, 8192)
	for {
		if err := ctx.Err(); err != nil {
			return err
		}

		n, _, err := syscall.Recvfrom(m.fd, buf, 0)
		if err != nil {
			if errors.Is(err, syscall.EAGAIN) || errors.Is(err, syscall.EINTR) {
				continue
			}
			return err
		}

		event := ParseUEvent(buf[:n])
		if event == nil || !m.accepts(event) {
			continue
		}
		handler(*event)
	}
}

// ParseUEvent parses a kernel uevent message of the form
// "ACTION@KOBJ\0KEY=VALUE\0...". Messages rebroadcast by udev carry a
// "libudev" header and are ignored.
func ParseUEvent(data []byte) *Event {
	if len(data) == 0 || bytes.HasPrefix(data, []byte("libudev")) {
		return nil
	}

	parts := bytes.Split(data, []byte{0})
	action, kobj, ok := strings.Cut(string(parts[0]), "@")
	if !ok || action == "" {
		return nil
	}

	event := &Event{
		Action: Action(action),
		KObj:   kobj,
		Env:    make(map[string]string),
	}
	for _, part := range parts[1:] {
		key, value, ok := strings.Cut(string(part), "=")
		if !ok || key == "" {
			continue
		}
		event.Env[key] = value

		switch key {
		case "SUBSYSTEM":
			event.Subsystem = value
		case "DEVNAME":
			event.DevName = value
		case "SEQNUM":
			event.SeqNum, _ = strconv.ParseUint(value, 10, 64)
		}
	}
	return event
}
