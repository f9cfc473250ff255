package monitoring

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

// Reconstruction counters, served from /metrics by the display server.
var (
	// HitsReconstructed counts raw hits turned into reconstructed hits.
	HitsReconstructed = promauto.NewCounter(prometheus.CounterOpts{
		Name: "mtpc_hits_reconstructed_total",
		Help: "Total raw hits reconstructed into 3D positions",
	})

	// MeasurementsProduced counts surface measurements emitted.
	MeasurementsProduced = promauto.NewCounter(prometheus.CounterOpts{
		Name: "mtpc_measurements_total",
		Help: "Total 2D surface measurements produced",
	})

	// ProjectionFailures counts hits dropped because they could not be
	// projected onto their surface, by failure reason.
	ProjectionFailures = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "mtpc_projection_failures_total",
		Help: "Total hits skipped after a failed surface projection",
	}, []string{"reason"}) // "not_on_surface", "unknown_surface", "numerical"

	// EventsProcessed counts events by outcome.
	EventsProcessed = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "mtpc_events_processed_total",
		Help: "Total events processed by outcome",
	}, []string{"result"}) // "ok" or "error"

	// EventDuration tracks per-event reconstruction latency.
	EventDuration = promauto.NewHistogram(prometheus.HistogramOpts{
		Name:    "mtpc_event_duration_seconds",
		Help:    "Per-event reconstruction duration in seconds",
		Buckets: prometheus.ExponentialBuckets(0.00001, 2, 14), // 10us to ~80ms
	})
)
