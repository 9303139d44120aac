//go:build linux && (amd64 || arm64)

package v4l2

import (
	"errors"
	"fmt"
	"syscall"
	"time"
	"unsafe"
)

// GetDVTimings returns the timings the receiver currently detects.
func GetDVTimings(devicePath string) SignalStatus {
	fd, err := openDevice(devicePath)
	if err != nil {
		return SignalStatus{State: SignalStateNoDevice}
	}
	defer closeDevice(fd)

	timings := v4l2DVTimings{}
	if err := ioctl(fd, vidiocQueryDVTimings, unsafe.Pointer(&timings)); err != nil {
		return SignalStatus{State: stateForErrno(err)}
	}
	return statusFor(timings.decode())
}

func statusFor(bt btTimings) SignalStatus {
	if !bt.locked() {
		return SignalStatus{State: SignalStateNoSignal}
	}
	return SignalStatus{
		State:      SignalStateLocked,
		Width:      bt.width,
		Height:     bt.height,
		FPS:        bt.fps(),
		Interlaced: bt.interlaced,
	}
}

// ApplyDetectedTimings programs the receiver with the timings it detects.
// It must be called while the device is not streaming.
func ApplyDetectedTimings(devicePath string) (SignalStatus, error) {
	fd, err := openDevice(devicePath)
	if err != nil {
		return SignalStatus{State: SignalStateNoDevice}, err
	}
	defer closeDevice(fd)

	timings := v4l2DVTimings{}
	if err := ioctl(fd, vidiocQueryDVTimings, unsafe.Pointer(&timings)); err != nil {
		return SignalStatus{State: stateForErrno(err)}, fmt.Errorf("query dv timings: %w", err)
	}
	status := statusFor(timings.decode())
	if status.State != SignalStateLocked || timings.typ != v4l2DVBTType656_1120 {
		return status, ErrNoSignal
	}

	current := v4l2DVTimings{}
	if err := ioctl(fd, vidiocGDVTimings, unsafe.Pointer(&current)); err == nil && current == timings {
		return status, nil
	}
	if err := ioctl(fd, vidiocSDVTimings, unsafe.Pointer(&timings)); err != nil {
		return status, fmt.Errorf("set dv timings: %w", err)
	}
	return status, nil
}

// WaitForSourceChange waits for a source change event. It returns the change
// flags, 0 on timeout, or ErrEventsNotSupported. A zero timeout waits forever.
func WaitForSourceChange(devicePath string, timeout time.Duration) (uint32, error) {
	fd, err := openDevice(devicePath)
	if err != nil {
		return 0, err
	}
	defer closeDevice(fd)

	sub := v4l2EventSubscription{typ: v4l2EventSourceChange}
	if subErr := ioctl(fd, vidiocSubscribeEvent, unsafe.Pointer(&sub)); subErr != nil {
		if errors.Is(subErr, syscall.ENOTTY) || errors.Is(subErr, syscall.EINVAL) {
			return 0, ErrEventsNotSupported
		}
		return 0, subErr
	}
	defer func() { _ = ioctl(fd, vidiocUnsubscribeEvent, unsafe.Pointer(&sub)) }()

	// V4L2 events signal through the exception set.
	var exceptFds syscall.FdSet
	exceptFds.Bits[fd/64] |= 1 << (uint(fd) % 64)

	var tv *syscall.Timeval
	if timeout > 0 {
		t := syscall.NsecToTimeval(timeout.Nanoseconds())
		tv = &t
	}

	n, err := syscall.Select(fd+1, nil, nil, &exceptFds, tv)
	if err != nil {
		return 0, err
	}
	if n == 0 {
		return 0, nil
	}

	event := v4l2Event{}
	if err := ioctl(fd, vidiocDqevent, unsafe.Pointer(&event)); err != nil {
		return 0, err
	}
	return event.srcChanges(), nil
}
