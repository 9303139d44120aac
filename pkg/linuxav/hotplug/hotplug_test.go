//go:build linux

package hotplug

import (
	"context"
	"errors"
	"reflect"
	"testing"
)

func TestParseUEvent(t *testing.T) {
	tests := []struct {
		name     string
		input    []byte
		expected *Event
	}{
		{"empty input", []byte{}, nil},
		{"nil input", nil, nil},
		{"no @ separator", []byte("invalid"), nil},
		{"missing action", []byte("@/devices/foo"), nil},
		{"udev rebroadcast", []byte("libudev\x00\xfe\xed\x00add@/devices/video0\x00"), nil},
		{
			name:  "add video node",
			input: []byte("add@/devices/pci0000:00/video4linux/video0\x00ACTION=add\x00SUBSYSTEM=video4linux\x00DEVNAME=video0\x00SEQNUM=4120\x00"),
			expected: &Event{
				Action:    ActionAdd,
				KObj:      "/devices/pci0000:00/video4linux/video0",
				Subsystem: SubsystemVideo4Linux,
				DevName:   "video0",
				SeqNum:    4120,
				Env: map[string]string{
					"ACTION":    "add",
					"SUBSYSTEM": "video4linux",
					"DEVNAME":   "video0",
					"SEQNUM":    "4120",
				},
			},
		},
		{
			name:  "remove without devname",
			input: []byte("remove@/devices/usb/1-1\x00SUBSYSTEM=usb\x00=ignored\x00garbage\x00"),
			expected: &Event{
				Action:    ActionRemove,
				KObj:      "/devices/usb/1-1",
				Subsystem: "usb",
				Env:       map[string]string{"SUBSYSTEM": "usb"},
			},
		},
		{
			name:  "value containing equals",
			input: []byte("change@/devices/x\x00MODALIAS=a=b\x00"),
			expected: &Event{
				Action: ActionChange,
				KObj:   "/devices/x",
				Env:    map[string]string{"MODALIAS": "a=b"},
			},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := ParseUEvent(tt.input)
			if !reflect.DeepEqual(got, tt.expected) {
				t.Errorf("ParseUEvent() = %+v, want %+v", got, tt.expected)
			}
		})
	}
}

func TestDevNode(t *testing.T) {
	tests := []struct {
		devName string
		want    string
	}{
		{"video0", "/dev/video0"},
		{"v4l/by-id/cam", "/dev/v4l/by-id/cam"},
		{"/dev/video2", "/dev/video2"},
		{"", ""},
	}
	for _, tt := range tests {
		if got := (Event{DevName: tt.devName}).DevNode(); got != tt.want {
			t.Errorf("DevNode(%q) = %q, want %q", tt.devName, got, tt.want)
		}
	}
}

func TestAccepts(t *testing.T) {
	all := &Monitor{}
	video := &Monitor{}
	WithSubsystems(SubsystemVideo4Linux)(video)

	v4l := &Event{Subsystem: SubsystemVideo4Linux}
	usb := &Event{Subsystem: "usb"}

	if !all.accepts(v4l) || !all.accepts(usb) {
		t.Error("unfiltered monitor should accept everything")
	}
	if !video.accepts(v4l) {
		t.Error("video monitor rejected a video4linux event")
	}
	if video.accepts(usb) {
		t.Error("video monitor accepted a usb event")
	}
}

func TestMonitorRunCancellation(t *testing.T) {
	m, err := NewMonitor(WithSubsystems(SubsystemVideo4Linux))
	if err != nil {
		t.Skipf("netlink unavailable: %v", err)
	}
	defer func() { _ = m.Close() }()

	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	runErr := m.Run(ctx, func(Event) { t.Error("handler called after cancel") })
	if !errors.Is(runErr, context.Canceled) {
		t.Errorf("expected context.Canceled, got %v", runErr)
	}
}
