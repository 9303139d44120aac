// Package discovery latches onto the first capture device that appears and
// holds it until that device is removed.
package discovery

import (
	"errors"
	"log/slog"
	"sync"
	"time"

	"github.com/smazurov/framelink/internal/device"
	"github.com/smazurov/framelink/internal/events"
	"github.com/smazurov/framelink/internal/logging"
)

// ActiveChangedFunc is told when the held device changes. present is false
// when h was just removed; h is closed right after the callback returns.
type ActiveChangedFunc func(h device.Handle, present bool)

// Option configures a Discovery.
type Option func(*Discovery)

// WithEventBus publishes a DeviceDiscoveryEvent for every arrival and removal.
func WithEventBus(bus *events.Bus) Option {
	return func(d *Discovery) {
		d.bus = bus
	}
}

// Discovery holds at most one device. It implements device.DeviceHandler.
type Discovery struct {
	mu        sync.Mutex
	notifier  device.Notifier
	active    device.Handle
	enabled   bool
	listeners []ActiveChangedFunc

	bus    *events.Bus
	logger *slog.Logger
}

// New creates a disabled discovery on notifier.
func New(notifier device.Notifier, opts ...Option) *Discovery {
	d := &Discovery{
		notifier: notifier,
		logger:   logging.GetLogger("discovery"),
	}
	for _, opt := range opts {
		opt(d)
	}
	return d
}

// OnActiveChanged registers fn. Callbacks run on the notifier's thread
// without discovery's lock held.
func (d *Discovery) OnActiveChanged(fn ActiveChangedFunc) {
	d.mu.Lock()
	defer d.mu.Unlock()
	d.listeners = append(d.listeners, fn)
}

// Enable installs hot-plug notifications.
func (d *Discovery) Enable() error {
	d.mu.Lock()
	if d.enabled {
		d.mu.Unlock()
		return nil
	}
	d.enabled = true
	d.mu.Unlock()

	if err := d.notifier.InstallDeviceNotifications(d); err != nil {
		d.mu.Lock()
		d.enabled = false
		d.mu.Unlock()
		return err
	}
	d.logger.Info("Device discovery enabled")
	return nil
}

// Disable removes hot-plug notifications. A held device stays held.
func (d *Discovery) Disable() error {
	d.mu.Lock()
	if !d.enabled {
		d.mu.Unlock()
		return nil
	}
	d.enabled = false
	d.mu.Unlock()

	d.logger.Info("Device discovery disabled")
	return d.notifier.UninstallDeviceNotifications()
}

// Close disables discovery and releases the held device.
func (d *Discovery) Close() error {
	err := d.Disable()

	d.mu.Lock()
	h := d.active
	d.active = nil
	listeners := d.listeners
	d.mu.Unlock()

	if h != nil {
		err = errors.Join(err, d.release(h, listeners))
	}
	return err
}

// Active returns the held device.
func (d *Discovery) Active() (device.Handle, bool) {
	d.mu.Lock()
	defer d.mu.Unlock()
	return d.active, d.active != nil
}

// DeviceArrived keeps h if no device is held. It returns false when h was
// ignored; the notifier then still owns h and must close it.
func (d *Discovery) DeviceArrived(h device.Handle) bool {
	if h == nil {
		return false
	}

	d.mu.Lock()
	if d.active != nil {
		held := d.active.ID()
		d.mu.Unlock()
		d.logger.Info("Ignoring device, one is already held", "device", h.ID(), "held", held)
		d.publish(h, "added", false)
		return false
	}
	d.active = h
	listeners := d.listeners
	d.mu.Unlock()

	d.logger.Info("Device arrived", "device", h.ID(), "name", h.Attributes().Name)
	d.publish(h, "added", true)
	for _, fn := range listeners {
		fn(h, true)
	}
	return true
}

// DeviceRemoved releases the held device when h is that device. Removal of a
// device that was never retained is ignored.
func (d *Discovery) DeviceRemoved(h device.Handle) {
	if h == nil {
		return
	}

	d.mu.Lock()
	if d.active == nil || d.active.ID() != h.ID() {
		d.mu.Unlock()
		d.logger.Debug("Ignoring removal of a device that is not held", "device", h.ID())
		d.publish(h, "removed", false)
		return
	}
	held := d.active
	d.active = nil
	listeners := d.listeners
	d.mu.Unlock()

	d.logger.Info("Device removed", "device", held.ID())
	if err := d.release(held, listeners); err != nil {
		d.logger.Warn("Failed to close removed device", "device", held.ID(), "error", err)
	}
}

func (d *Discovery) release(h device.Handle, listeners []ActiveChangedFunc) error {
	d.publish(h, "removed", false)
	for _, fn := range listeners {
		fn(h, false)
	}
	return h.Close()
}

func (d *Discovery) publish(h device.Handle, action string, active bool) {
	if d.bus == nil {
		return
	}
	d.bus.Publish(events.DeviceDiscoveryEvent{
		DeviceID:  h.ID(),
		Name:      h.Attributes().Name,
		Action:    action,
		Active:    active,
		Timestamp: time.Now().Format(time.RFC3339),
	})
}
