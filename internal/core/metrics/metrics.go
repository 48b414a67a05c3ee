// Package metrics exports marketplace transition metrics to Prometheus.
package metrics

import (
	"context"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"

	"kittycore/internal/core"
)

// Metrics implements core.MetricsRecorder.
type Metrics struct {
	// Transition outcomes by operation and result code
	Transitions *prometheus.CounterVec

	// Transition latency by operation, including rule evaluation and persistence
	TransitionLatency *prometheus.HistogramVec

	// Kitties minted by successful create_kitty calls
	KittiesCreated prometheus.Counter
}

// New registers the marketplace metrics with reg. A nil reg uses the default
// registerer.
func New(reg prometheus.Registerer) *Metrics {
	if reg == nil {
		reg = prometheus.DefaultRegisterer
	}
	factory := promauto.With(reg)
	return &Metrics{
		Transitions: factory.NewCounterVec(prometheus.CounterOpts{
			Name: "kittycore_transitions_total",
			Help: "Total marketplace transitions by operation and result code",
		}, []string{"op", "code"}),

		TransitionLatency: factory.NewHistogramVec(prometheus.HistogramOpts{
			Name:    "kittycore_transition_duration_seconds",
			Help:    "Duration of marketplace transitions by operation",
			Buckets: []float64{0.0001, 0.0005, 0.001, 0.005, 0.01, 0.05, 0.1, 0.5, 1},
		}, []string{"op"}),

		KittiesCreated: factory.NewCounter(prometheus.CounterOpts{
			Name: "kittycore_kitties_created_total",
			Help: "Total kitties minted",
		}),
	}
}

var _ core.MetricsRecorder = (*Metrics)(nil)

// Observe records a transition outcome.
func (m *Metrics) Observe(_ context.Context, op, code string, d time.Duration) {
	if m == nil || op == "" {
		return
	}
	m.Transitions.WithLabelValues(op, code).Inc()
	m.TransitionLatency.WithLabelValues(op).Observe(d.Seconds())
	if op == core.OpCreateKitty && code == "ok" {
		m.KittiesCreated.Inc()
	}
}
