package api

import (
	"context"
	"net/http"

	"github.com/danielgtaylor/huma/v2"
	"github.com/danielgtaylor/huma/v2/sse"
	"github.com/smazurov/framelink/internal/capture"
	"github.com/smazurov/framelink/internal/events"
)

// registerSSERoutes registers the capture event stream.
func (s *Server) registerSSERoutes() {
	sse.Register(s.api, huma.Operation{
		OperationID: "events-stream",
		Method:      http.MethodGet,
		Path:        "/api/events",
		Summary:     "Server-Sent Events Stream",
		Description: "Real-time capture state changes, signal changes, output faults and device hot-plug",
		Tags:        []string{"events"},
		Security:    withAuth(),
		Errors:      []int{401},
	}, map[string]any{
		"capture-status":        capture.Status{},
		"capture-state-changed": events.CaptureStateChangedEvent{},
		"format-changed":        events.FormatChangedEvent{},
		"output-degraded":       events.OutputDegradedEvent{},
		"device-discovery":      events.DeviceDiscoveryEvent{},
	}, func(ctx context.Context, _ *struct{}, send sse.Sender) {
		eventCh := make(chan any, 10)
		unsubscribers := []func(){
			events.SubscribeToChannel[events.CaptureStateChangedEvent](s.eventBus, eventCh),
			events.SubscribeToChannel[events.FormatChangedEvent](s.eventBus, eventCh),
			events.SubscribeToChannel[events.OutputDegradedEvent](s.eventBus, eventCh),
			events.SubscribeToChannel[events.DeviceDiscoveryEvent](s.eventBus, eventCh),
		}
		defer func() {
			for _, unsub := range unsubscribers {
				unsub()
			}
		}()

		// Current status first so clients start from a known state.
		if s.capture != nil {
			if status, ok := s.capture.Status(); ok {
				if err := send.Data(status); err != nil {
					return
				}
			}
		}

		for {
			select {
			case <-ctx.Done():
				return
			case event := <-eventCh:
				if err := send.Data(event); err != nil {
					return
				}
			}
		}
	})
}
