// Package metrics exposes Prometheus collectors for the bot.
package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	// InboundEvents counts inbound transport events by kind.
	InboundEvents = promauto.NewCounterVec(prometheus.CounterOpts{
		Namespace: "tourist_bot",
		Name:      "inbound_events_total",
		Help:      "Inbound events received from the transport, by kind.",
	}, []string{"kind"})

	// Generations counts finished generation tasks by status.
	Generations = promauto.NewCounterVec(prometheus.CounterOpts{
		Namespace: "tourist_bot",
		Name:      "generations_total",
		Help:      "Finished route generation tasks, by status.",
	}, []string{"status"})

	// GenerationDuration observes how long generation tasks ran.
	GenerationDuration = promauto.NewHistogram(prometheus.HistogramOpts{
		Namespace: "tourist_bot",
		Name:      "generation_duration_seconds",
		Help:      "Route generation latency.",
		Buckets:   []float64{0.5, 1, 2.5, 5, 10, 30, 60, 120, 300},
	})

	// AbsorbedEvents counts events swallowed while a session was waiting.
	AbsorbedEvents = promauto.NewCounter(prometheus.CounterOpts{
		Namespace: "tourist_bot",
		Name:      "absorbed_events_total",
		Help:      "Events absorbed while generation was in flight.",
	})
)

// RegisterActiveSessions registers a gauge backed by the registry size.
func RegisterActiveSessions(count func() int) {
	promauto.NewGaugeFunc(prometheus.GaugeOpts{
		Namespace: "tourist_bot",
		Name:      "active_sessions",
		Help:      "Sessions currently tracked by the registry.",
	}, func() float64 { return float64(count()) })
}
