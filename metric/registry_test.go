package metric

import (
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestNewRegistryRegistersCoreMetrics(t *testing.T) {
	r := NewRegistry()
	require.NotNil(t, r.CoreMetrics())

	r.Metrics.ExtensionLoads.WithLabelValues("demo.Robot", "optimusPrime").Inc()
	r.Metrics.LoadersActive.Inc()

	families, err := r.PrometheusRegistry().Gather()
	require.NoError(t, err)

	names := make(map[string]bool)
	for _, f := range families {
		names[f.GetName()] = true
	}
	assert.True(t, names["halcyon_extension_loads_total"])
	assert.True(t, names["halcyon_loader_active"])
}

func TestRegisterCollectorRejectsDuplicates(t *testing.T) {
	r := NewRegistry()
	c := prometheus.NewCounter(prometheus.CounterOpts{Name: "host_custom_total"})

	require.NoError(t, r.RegisterCollector("host", "custom", c))
	assert.Error(t, r.RegisterCollector("host", "custom", c))
}

func TestUnregister(t *testing.T) {
	r := NewRegistry()
	c := prometheus.NewCounter(prometheus.CounterOpts{Name: "host_gone_total"})

	require.NoError(t, r.RegisterCollector("host", "gone", c))
	assert.True(t, r.Unregister("host", "gone"))
	assert.False(t, r.Unregister("host", "gone"))
}

func TestHandlerServesExposition(t *testing.T) {
	r := NewRegistry()
	r.Metrics.LoadFailures.WithLabelValues("demo.Robot").Inc()

	rec := httptest.NewRecorder()
	r.Handler().ServeHTTP(rec, httptest.NewRequest("GET", "/metrics", nil))

	assert.Equal(t, 200, rec.Code)
	assert.True(t, strings.Contains(rec.Body.String(), "halcyon_extension_load_failures_total"))
}
