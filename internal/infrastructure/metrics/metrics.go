// Package metrics exposes the node's Prometheus counters and gauges.
package metrics

import (
	"net/http"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

// Metrics groups the counters the core subsystems report against. All are
// registered against a private registry rather than the global default, so
// multiple nodes in the same test binary don't collide.
type Metrics struct {
	registry *prometheus.Registry

	RoundsEntered   prometheus.Counter
	BlocksApplied   prometheus.Counter
	BlocksRejected  prometheus.Counter
	SyncRequests    prometheus.Counter
	SyncSteals      prometheus.Counter
	PostponedFrames prometheus.Counter
	NeighborCount   prometheus.Gauge
}

// New builds a Metrics instance with every collector registered.
func New() *Metrics {
	reg := prometheus.NewRegistry()
	factory := promauto.With(reg)

	return &Metrics{
		registry: reg,
		RoundsEntered: factory.NewCounter(prometheus.CounterOpts{
			Namespace: "node", Subsystem: "consensus", Name: "rounds_entered_total",
			Help: "Rounds the node has entered via the round advancement controller.",
		}),
		BlocksApplied: factory.NewCounter(prometheus.CounterOpts{
			Namespace: "node", Subsystem: "consensus", Name: "blocks_applied_total",
			Help: "Blocks accepted and committed to storage.",
		}),
		BlocksRejected: factory.NewCounter(prometheus.CounterOpts{
			Namespace: "node", Subsystem: "consensus", Name: "blocks_rejected_total",
			Help: "Blocks that failed validation.",
		}),
		SyncRequests: factory.NewCounter(prometheus.CounterOpts{
			Namespace: "node", Subsystem: "sync", Name: "block_requests_total",
			Help: "BlockRequest frames sent by the pool synchronizer.",
		}),
		SyncSteals: factory.NewCounter(prometheus.CounterOpts{
			Namespace: "node", Subsystem: "sync", Name: "window_steals_total",
			Help: "Sequences reassigned away from a slow neighbor.",
		}),
		PostponedFrames: factory.NewCounter(prometheus.CounterOpts{
			Namespace: "node", Subsystem: "wire", Name: "postponed_frames_total",
			Help: "Frames held by the router for a future round.",
		}),
		NeighborCount: factory.NewGauge(prometheus.GaugeOpts{
			Namespace: "node", Subsystem: "network", Name: "neighbor_count",
			Help: "Currently connected non-signal neighbors.",
		}),
	}
}

// Handler serves the registry in the Prometheus exposition format.
func (m *Metrics) Handler() http.Handler {
	return promhttp.HandlerFor(m.registry, promhttp.HandlerOpts{})
}
