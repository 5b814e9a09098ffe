// Package metrics exposes prop activity as Prometheus collectors.
package metrics

import (
	"net/http"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/prometheus/client_golang/prometheus/promauto"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	domain "github.com/oshokin/ghost-host/internal/domain/performance"
)

const namespace = "ghost_host"

// Metrics holds the collectors and implements the orchestrator observer.
type Metrics struct {
	// registry owns every collector below.
	registry *prometheus.Registry
	// factory registers new collectors in registry.
	factory promauto.Factory

	Performances *prometheus.CounterVec
	Rejected     *prometheus.CounterVec
	Duration     prometheus.Histogram
	Active       prometheus.Gauge
}

// New creates the collectors on a fresh registry, together with the Go and
// process collectors.
func New() *Metrics {
	registry := prometheus.NewRegistry()
	registry.MustRegister(
		collectors.NewGoCollector(),
		collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}),
	)

	factory := promauto.With(registry)

	return &Metrics{
		registry: registry,
		factory:  factory,
		Performances: factory.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: namespace,
				Name:      "performances_total",
				Help:      "Total number of accepted performances by trigger source and outcome",
			},
			[]string{"source", "outcome"},
		),
		Rejected: factory.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: namespace,
				Name:      "rejected_triggers_total",
				Help:      "Total number of rejected triggers by source and reason",
			},
			[]string{"source", "reason"},
		),
		Duration: factory.NewHistogram(
			prometheus.HistogramOpts{
				Namespace: namespace,
				Name:      "performance_duration_seconds",
				Help:      "Time from playback start to the end of a performance",
				Buckets:   []float64{1, 2, 5, 10, 20, 30, 60, 120},
			},
		),
		Active: factory.NewGauge(
			prometheus.GaugeOpts{
				Namespace: namespace,
				Name:      "performance_active",
				Help:      "1 while a performance is running",
			},
		),
	}
}

// WatchCooldown exports the remaining cooldown, read on every scrape.
func (m *Metrics) WatchCooldown(remaining func() time.Duration) {
	m.factory.NewGaugeFunc(
		prometheus.GaugeOpts{
			Namespace: namespace,
			Name:      "cooldown_remaining_seconds",
			Help:      "Seconds until the prop accepts triggers again",
		},
		func() float64 { return remaining().Seconds() },
	)
}

// Handler serves the registry in the Prometheus text format.
func (m *Metrics) Handler() http.Handler {
	return promhttp.HandlerFor(m.registry, promhttp.HandlerOpts{Registry: m.registry})
}

// Registry returns the underlying registry.
func (m *Metrics) Registry() *prometheus.Registry {
	return m.registry
}

// TriggerRejected counts a rejected trigger.
func (m *Metrics) TriggerRejected(source domain.TriggerSource, reason domain.RejectReason) {
	m.Rejected.WithLabelValues(source.String(), reason.String()).Inc()
}

// PerformanceStarted marks a performance as running.
func (m *Metrics) PerformanceStarted(*domain.Session) {
	m.Active.Set(1)
}

// PerformanceFinished counts a finished performance.
func (m *Metrics) PerformanceFinished(session *domain.Session, outcome domain.Outcome, elapsed time.Duration) {
	m.Active.Set(0)
	m.Performances.WithLabelValues(session.Source.String(), outcome.String()).Inc()

	if session.ReachedActive {
		m.Duration.Observe(elapsed.Seconds())
	}
}
