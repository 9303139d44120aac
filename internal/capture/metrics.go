package capture

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	framesCaptured = promauto.NewCounter(prometheus.CounterOpts{
		Namespace: "framelink",
		Subsystem: "capture",
		Name:      "frames_captured_total",
		Help:      "Frames written into the ring buffer",
	})

	framesDropped = promauto.NewCounter(prometheus.CounterOpts{
		Namespace: "framelink",
		Subsystem: "capture",
		Name:      "frames_dropped_total",
		Help:      "Frames delivered while the session was not capturing",
	})

	formatChanges = promauto.NewCounterVec(prometheus.CounterOpts{
		Namespace: "framelink",
		Subsystem: "capture",
		Name:      "format_changes_total",
		Help:      "Detected signal changes by outcome",
	}, []string{"result"})

	outputDegraded = promauto.NewCounter(prometheus.CounterOpts{
		Namespace: "framelink",
		Subsystem: "capture",
		Name:      "output_degraded_total",
		Help:      "Times output mirroring was disabled after a device failure",
	})

	sessionState = promauto.NewGaugeVec(prometheus.GaugeOpts{
		Namespace: "framelink",
		Subsystem: "capture",
		Name:      "state",
		Help:      "1 for the current capture session state",
	}, []string{"state"})
)

// Format change outcomes.
const (
	resultAccepted = "accepted"
	resultRejected = "rejected"
	resultFailed   = "failed"
)

func recordState(s State) {
	for _, st := range allStates {
		v := 0.0
		if st == s {
			v = 1
		}
		sessionState.WithLabelValues(string(st)).Set(v)
	}
}
