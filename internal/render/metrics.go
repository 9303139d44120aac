package render

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	framesRendered = promauto.NewCounter(prometheus.CounterOpts{
		Namespace: "framelink",
		Subsystem: "render",
		Name:      "frames_total",
		Help:      "Capture frames uploaded and composited",
	})

	framesSkipped = promauto.NewCounter(prometheus.CounterOpts{
		Namespace: "framelink",
		Subsystem: "render",
		Name:      "frames_skipped_total",
		Help:      "Capture frames overwritten before the render loop read them",
	})

	mirrorFetches = promauto.NewCounter(prometheus.CounterOpts{
		Namespace: "framelink",
		Subsystem: "render",
		Name:      "mirror_fetches_total",
		Help:      "Completed readbacks copied into the output frame",
	})

	updateSeconds = promauto.NewHistogram(prometheus.HistogramOpts{
		Namespace: "framelink",
		Subsystem: "render",
		Name:      "update_seconds",
		Help:      "Time spent uploading and compositing one frame",
		Buckets:   prometheus.ExponentialBuckets(0.0005, 2, 10),
	})
)
