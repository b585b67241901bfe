// Package metric provides prometheus instrumentation for the extension
// loader: load counters, failure counters, activation counters and the
// loader gauge, plus a registry wrapper and HTTP handler for scraping.
package metric

import (
	"github.com/prometheus/client_golang/prometheus"
)

// Metrics contains all loader-level metrics
type Metrics struct {
	// ExtensionLoads counts successful extension constructions per point
	// and name.
	ExtensionLoads *prometheus.CounterVec

	// LoadFailures counts failed lookups and constructions per point.
	LoadFailures *prometheus.CounterVec

	// Activations counts activation-filter evaluations per point and group.
	Activations *prometheus.CounterVec

	// AdaptiveSyntheses counts synthesized adaptive dispatchers per point.
	AdaptiveSyntheses *prometheus.CounterVec

	// LoadersActive tracks the number of live loaders.
	LoadersActive prometheus.Gauge
}

// NewMetrics creates a new Metrics instance with all loader metrics
func NewMetrics() *Metrics {
	return &Metrics{
		ExtensionLoads: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: "halcyon",
				Subsystem: "extension",
				Name:      "loads_total",
				Help:      "Total number of extension instances constructed",
			},
			[]string{"point", "name"},
		),

		LoadFailures: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: "halcyon",
				Subsystem: "extension",
				Name:      "load_failures_total",
				Help:      "Total number of failed extension lookups and constructions",
			},
			[]string{"point"},
		),

		Activations: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: "halcyon",
				Subsystem: "extension",
				Name:      "activations_total",
				Help:      "Total number of activation-filter evaluations",
			},
			[]string{"point", "group"},
		),

		AdaptiveSyntheses: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: "halcyon",
				Subsystem: "extension",
				Name:      "adaptive_syntheses_total",
				Help:      "Total number of synthesized adaptive dispatchers",
			},
			[]string{"point"},
		),

		LoadersActive: prometheus.NewGauge(
			prometheus.GaugeOpts{
				Namespace: "halcyon",
				Subsystem: "loader",
				Name:      "active",
				Help:      "Number of live extension loaders",
			},
		),
	}
}

// collectors returns every metric for registry registration.
func (m *Metrics) collectors() []prometheus.Collector {
	return []prometheus.Collector{
		m.ExtensionLoads,
		m.LoadFailures,
		m.Activations,
		m.AdaptiveSyntheses,
		m.LoadersActive,
	}
}
