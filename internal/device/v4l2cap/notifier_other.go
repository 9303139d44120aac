//go:build !(linux && (amd64 || arm64))

package v4l2cap

import (
	"errors"
	"time"

	"github.com/smazurov/framelink/internal/device"
)

// ErrUnsupported is returned on platforms without V4L2 capture.
var ErrUnsupported = errors.New("v4l2 capture requires linux on amd64 or arm64")

// Notifier is unavailable on this platform.
type Notifier struct{}

// NewNotifier returns a notifier that fails to install.
func NewNotifier(_ []string, _ time.Duration) *Notifier {
	return &Notifier{}
}

// InstallDeviceNotifications always fails with ErrUnsupported.
func (n *Notifier) InstallDeviceNotifications(device.DeviceHandler) error {
	return ErrUnsupported
}

// UninstallDeviceNotifications is a no-op.
func (n *Notifier) UninstallDeviceNotifications() error {
	return nil
}
