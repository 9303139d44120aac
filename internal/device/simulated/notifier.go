package simulated

import (
	"slices"
	"sync"

	"github.com/smazurov/framelink/internal/device"
)

// Notifier reports plugged cards to an installed handler. Cards plugged before
// installation are reported on install.
type Notifier struct {
	mu      sync.Mutex
	handler device.DeviceHandler
	cards   []*Card
}

// NewNotifier creates a notifier with cards already plugged in.
func NewNotifier(cards ...*Card) *Notifier {
	return &Notifier{cards: cards}
}

// InstallDeviceNotifications installs h and reports every plugged card.
func (n *Notifier) InstallDeviceNotifications(h device.DeviceHandler) error {
	n.mu.Lock()
	n.handler = h
	cards := slices.Clone(n.cards)
	n.mu.Unlock()

	for _, c := range cards {
		n.arrive(h, c)
	}
	return nil
}

// UninstallDeviceNotifications removes the handler.
func (n *Notifier) UninstallDeviceNotifications() error {
	n.mu.Lock()
	defer n.mu.Unlock()
	n.handler = nil
	return nil
}

// Plug connects c and reports it.
func (n *Notifier) Plug(c *Card) {
	n.mu.Lock()
	n.cards = append(n.cards, c)
	h := n.handler
	n.mu.Unlock()

	if h != nil {
		n.arrive(h, c)
	}
}

// Unplug disconnects c and reports its removal.
func (n *Notifier) Unplug(c *Card) {
	n.mu.Lock()
	n.cards = slices.DeleteFunc(n.cards, func(x *Card) bool { return x == c })
	h := n.handler
	n.mu.Unlock()

	if h != nil {
		h.DeviceRemoved(c)
	}
}

func (n *Notifier) arrive(h device.DeviceHandler, c *Card) {
	c.reopen()
	if !h.DeviceArrived(c) {
		_ = c.Close()
	}
}
