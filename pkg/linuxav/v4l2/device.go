//go:build linux && (amd64 || arm64)

package v4l2

import (
	"bytes"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"strconv"
	"strings"
	"unsafe"
)

const (
	sysfsVideoDir = "/sys/class/video4linux"
	byIDDir       = "/dev/v4l/by-id"
)

// FindDevices finds all V4L2 video capture devices on the system.
func FindDevices() ([]DeviceInfo, error) {
	entries, err := os.ReadDir(sysfsVideoDir)
	if err != nil {
		if os.IsNotExist(err) {
			return []DeviceInfo{}, nil
		}
		return nil, fmt.Errorf("failed to read video4linux directory: %w", err)
	}

	var devices []DeviceInfo
	for _, entry := range entries {
		info, err := QueryDevice("/dev/" + entry.Name())
		if err != nil {
			slog.With("component", "linuxav").Debug("skipping video device", "name", entry.Name(), "error", err)
			continue
		}
		if !info.IsCapture() {
			continue
		}
		devices = append(devices, info)
	}
	return devices, nil
}

// QueryDevice returns the identity and capabilities of one device node.
func QueryDevice(devicePath string) (DeviceInfo, error) {
	fd, err := openDevice(devicePath)
	if err != nil {
		return DeviceInfo{}, err
	}
	defer closeDevice(fd)

	cp := v4l2Capability{}
	if err := ioctl(fd, vidiocQuerycap, unsafe.Pointer(&cp)); err != nil {
		return DeviceInfo{}, fmt.Errorf("query capabilities: %w", err)
	}

	caps := cp.capabilities
	if caps&v4l2CapDeviceCaps != 0 {
		caps = cp.deviceCaps
	}

	name := filepath.Base(devicePath)
	index := readSysfsInt(filepath.Join(sysfsVideoDir, name, "index"))
	return DeviceInfo{
		DevicePath: devicePath,
		DeviceName: cstr(cp.card[:]),
		DeviceID:   stableID(name, index, cstr(cp.busInfo[:])),
		Driver:     cstr(cp.driver[:]),
		Caps:       caps,
	}, nil
}

// stableID prefers the /dev/v4l/by-id link name and falls back to bus info.
func stableID(deviceName string, index int, busInfo string) string {
	if id := findStableID(deviceName, index); id != "" {
		return id
	}
	if strings.HasPrefix(busInfo, "usb-") {
		return fmt.Sprintf("%s-video-index%d", busInfo, index)
	}
	return fmt.Sprintf("platform-%s-video-index%d", busInfo, index)
}

func findStableID(deviceName string, index int) string {
	entries, err := os.ReadDir(byIDDir)
	if err != nil {
		return ""
	}

	suffix := fmt.Sprintf("-video-index%d", index)
	for _, entry := range entries {
		if entry.Type()&os.ModeSymlink == 0 || !strings.HasSuffix(entry.Name(), suffix) {
			continue
		}
		target, err := os.Readlink(filepath.Join(byIDDir, entry.Name()))
		if err != nil {
			continue
		}
		if filepath.Base(target) == deviceName {
			return entry.Name()
		}
	}
	return ""
}

func readSysfsInt(path string) int {
	data, err := os.ReadFile(path)
	if err != nil {
		return 0
	}
	val, _ := strconv.Atoi(strings.TrimSpace(string(data)))
	return val
}

// cstr converts a null-terminated byte slice to a Go string.
func cstr(b []byte) string {
	if i := bytes.IndexByte(b, 0); i >= 0 {
		return string(b[:i])
	}
	return string(b)
}
