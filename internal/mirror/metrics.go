package mirror

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	framesFetched = promauto.NewCounter(prometheus.CounterOpts{
		Namespace: "framelink",
		Subsystem: "mirror",
		Name:      "frames_fetched_total",
		Help:      "Composited frames copied from readback into the output frame",
	})

	framesDisplayed = promauto.NewCounter(prometheus.CounterOpts{
		Namespace: "framelink",
		Subsystem: "mirror",
		Name:      "frames_displayed_total",
		Help:      "Output frames handed to the device for synchronous display",
	})

	displayErrors = promauto.NewCounter(prometheus.CounterOpts{
		Namespace: "framelink",
		Subsystem: "mirror",
		Name:      "display_errors_total",
		Help:      "Synchronous display calls rejected by the device",
	})

	readbackErrors = promauto.NewCounter(prometheus.CounterOpts{
		Namespace: "framelink",
		Subsystem: "mirror",
		Name:      "readback_errors_total",
		Help:      "Failed readback staging or fetch operations",
	})
)
