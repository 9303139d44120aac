//go:build linux && (amd64 || arm64)

package v4l2cap

import (
	"context"
	"log/slog"
	"path/filepath"
	"sync"
	"time"

	"github.com/pkg/errors"

	"github.com/smazurov/framelink/internal/device"
	"github.com/smazurov/framelink/internal/logging"
	"github.com/smazurov/framelink/pkg/linuxav/hotplug"
	"github.com/smazurov/framelink/pkg/linuxav/v4l2"
)

// Notifier reports V4L2 capture nodes. With explicit paths only those nodes
// are considered; otherwise every streaming capture node is. Nodes present at
// install are reported immediately and later ones through netlink hot-plug
// events.
type Notifier struct {
	paths  []string
	poll   time.Duration
	logger *slog.Logger

	mu      sync.Mutex
	handler device.DeviceHandler
	// nil values reserve a node while it is being opened
	cards  map[string]*Card
	cancel context.CancelFunc
	done   chan struct{}
}

// NewNotifier creates a notifier for paths, or for all nodes if none are
// given. poll is passed to every card as its signal poll interval.
func NewNotifier(paths []string, poll time.Duration) *Notifier {
	return &Notifier{
		paths:  paths,
		poll:   poll,
		logger: logging.GetLogger("device"),
		cards:  make(map[string]*Card),
	}
}

// InstallDeviceNotifications starts hot-plug monitoring and reports every
// node already present. Monitoring is best effort: without a netlink socket
// only the initial scan is reported.
func (n *Notifier) InstallDeviceNotifications(h device.DeviceHandler) error {
	n.mu.Lock()
	if n.handler != nil {
		n.mu.Unlock()
		return errors.New("device notifications already installed")
	}
	n.handler = h
	n.mu.Unlock()

	mon, err := hotplug.NewMonitor(hotplug.WithSubsystems(hotplug.SubsystemVideo4Linux))
	if err != nil {
		n.logger.Warn("Hot-plug monitoring unavailable, reporting present devices only", "error", err)
	} else {
		ctx, cancel := context.WithCancel(context.Background())
		done := make(chan struct{})
		n.mu.Lock()
		n.cancel, n.done = cancel, done
		n.mu.Unlock()
		go n.watch(ctx, mon, done)
	}

	for _, path := range n.present() {
		n.arrive(path)
	}
	return nil
}

// UninstallDeviceNotifications stops monitoring. Cards already handed out
// stay open; their holder closes them.
func (n *Notifier) UninstallDeviceNotifications() error {
	n.mu.Lock()
	cancel, done := n.cancel, n.done
	n.handler = nil
	n.cancel, n.done = nil, nil
	n.cards = make(map[string]*Card)
	n.mu.Unlock()

	if cancel != nil {
		cancel()
		<-done
	}
	return nil
}

func (n *Notifier) present() []string {
	if len(n.paths) > 0 {
		return n.paths
	}
	devices, err := v4l2.FindDevices()
	if err != nil {
		n.logger.Warn("Failed to enumerate video devices", "error", err)
		return nil
	}
	paths := make([]string, 0, len(devices))
	for _, d := range devices {
		paths = append(paths, d.DevicePath)
	}
	return paths
}

// configured maps a kernel node to the configured path naming it, which may
// be a /dev/v4l/by-id link.
func (n *Notifier) configured(node string) (string, bool) {
	if len(n.paths) == 0 {
		return node, true
	}
	for _, p := range n.paths {
		if p == node {
			return p, true
		}
		if resolved, err := filepath.EvalSymlinks(p); err == nil && resolved == node {
			return p, true
		}
	}
	return "", false
}

func (n *Notifier) watch(ctx context.Context, mon *hotplug.Monitor, done chan<- struct{}) {
	defer close(done)
	defer func() { _ = mon.Close() }()

	err := mon.Run(ctx, func(e hotplug.Event) {
		path, ok := n.configured(e.DevNode())
		if !ok || path == "" {
			return
		}
		switch e.Action {
		case hotplug.ActionAdd:
			n.arrive(path)
		case hotplug.ActionRemove:
			n.depart(path)
		}
	})
	if err != nil && !errors.Is(err, context.Canceled) {
		n.logger.Error("Hot-plug monitor stopped", "error", err)
	}
}

func (n *Notifier) arrive(path string) {
	n.mu.Lock()
	h := n.handler
	_, seen := n.cards[path]
	if h == nil || seen {
		n.mu.Unlock()
		return
	}
	n.cards[path] = nil
	n.mu.Unlock()

	card, err := Open(path, WithSignalPoll(n.poll))
	if err != nil {
		n.logger.Debug("Ignoring video node", "path", path, "error", err)
		n.forget(path, nil)
		return
	}

	n.mu.Lock()
	n.cards[path] = card
	n.mu.Unlock()

	n.logger.Info("Capture device present", "path", path, "id", card.ID(), "name", card.Attributes().Name)
	if !h.DeviceArrived(card) {
		n.forget(path, card)
		_ = card.Close()
	}
}

func (n *Notifier) depart(path string) {
	n.mu.Lock()
	card := n.cards[path]
	h := n.handler
	n.mu.Unlock()
	if card == nil || h == nil {
		return
	}

	n.forget(path, card)
	n.logger.Info("Capture device removed", "path", path, "id", card.ID())
	h.DeviceRemoved(card)
}

// forget drops path if it still maps to card.
func (n *Notifier) forget(path string, card *Card) {
	n.mu.Lock()
	defer n.mu.Unlock()
	if cur, ok := n.cards[path]; ok && cur == card {
		delete(n.cards, path)
	}
}
