package metric

import (
	stderrors "errors"
	"fmt"
	"net/http"
	"sync"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/halcyon-dev/halcyon/errors"
)

// Registry manages the registration and lifecycle of loader metrics
type Registry struct {
	prometheusRegistry *prometheus.Registry
	Metrics            *Metrics
	registeredMetrics  map[string]prometheus.Collector
	mu                 sync.RWMutex
}

// NewRegistry creates a new metrics registry with core loader metrics and
// Go runtime collectors registered.
func NewRegistry() *Registry {
	prometheusRegistry := prometheus.NewRegistry()

	registry := &Registry{
		prometheusRegistry: prometheusRegistry,
		Metrics:            NewMetrics(),
		registeredMetrics:  make(map[string]prometheus.Collector),
	}

	for _, c := range registry.Metrics.collectors() {
		prometheusRegistry.MustRegister(c)
	}

	prometheusRegistry.MustRegister(
		collectors.NewGoCollector(),
		collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}),
	)

	return registry
}

// PrometheusRegistry returns the underlying Prometheus registry
func (r *Registry) PrometheusRegistry() *prometheus.Registry {
	return r.prometheusRegistry
}

// CoreMetrics returns the core loader metrics
func (r *Registry) CoreMetrics() *Metrics {
	return r.Metrics
}

// RegisterCollector registers a host-specific collector under a scoped key.
// Returns an error if the key or the collector is already registered.
func (r *Registry) RegisterCollector(scope, metricName string, collector prometheus.Collector) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	key := fmt.Sprintf("%s.%s", scope, metricName)

	if _, exists := r.registeredMetrics[key]; exists {
		return errors.WrapConfig(
			fmt.Errorf("metric %s already registered for scope %s", metricName, scope),
			"Registry", "RegisterCollector", "duplicate metric registration")
	}

	if err := r.prometheusRegistry.Register(collector); err != nil {
		var alreadyRegErr prometheus.AlreadyRegisteredError
		if stderrors.As(err, &alreadyRegErr) {
			return errors.WrapConfig(err, "Registry", "RegisterCollector",
				fmt.Sprintf("prometheus conflict for metric %s", metricName))
		}
		return errors.WrapFatal(err, "Registry", "RegisterCollector",
			"failed to register collector with prometheus")
	}

	r.registeredMetrics[key] = collector
	return nil
}

// Unregister removes a host-specific collector by its scoped key.
func (r *Registry) Unregister(scope, metricName string) bool {
	r.mu.Lock()
	defer r.mu.Unlock()

	key := fmt.Sprintf("%s.%s", scope, metricName)
	collector, exists := r.registeredMetrics[key]
	if !exists {
		return false
	}
	delete(r.registeredMetrics, key)
	return r.prometheusRegistry.Unregister(collector)
}

// Handler returns an HTTP handler serving the registry in the prometheus
// exposition format.
func (r *Registry) Handler() http.Handler {
	return promhttp.HandlerFor(r.prometheusRegistry, promhttp.HandlerOpts{})
}
