package metrics

import (
	"testing"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/gridflow/gridval/pkg/types"
)

func TestNewMetricCounter(t *testing.T) {
	registry := prometheus.NewRegistry()
	collector := NewPrometheusCollector(registry)

	metric, err := collector.NewMetric(types.MetricOpts{
		Namespace: "gridval",
		Subsystem: "rules",
		Name:      "executions_total",
		Help:      "test counter",
		Type:      types.MetricTypeCounter,
		Labels:    []types.MetricLabel{{Name: "scope"}},
	})
	require.NoError(t, err)

	metric.Inc(types.MetricLabel{Name: "scope", Value: "single_cell"})
	metric.Add(2, types.MetricLabel{Name: "scope", Value: "single_cell"})

	families, err := registry.Gather()
	require.NoError(t, err)
	require.Len(t, families, 1)
	assert.Equal(t, "gridval_rules_executions_total", families[0].GetName())
	assert.Equal(t, float64(3), families[0].GetMetric()[0].GetCounter().GetValue())
}

func TestNewMetricHistogramDefaultBuckets(t *testing.T) {
	collector := NewPrometheusCollector(nil)

	metric, err := collector.NewMetric(types.MetricOpts{
		Name: "duration_seconds",
		Help: "test histogram",
		Type: types.MetricTypeHistogram,
	})
	require.NoError(t, err)
	metric.Observe(0.5)
}

func TestNewMetricRejectsInvalidOptions(t *testing.T) {
	collector := NewPrometheusCollector(nil)

	_, err := collector.NewMetric(types.MetricOpts{
		Name: "bad name",
		Type: types.MetricTypeCounter,
	})
	assert.Error(t, err)

	_, err = collector.NewMetric(types.MetricOpts{
		Name: "valid_name",
		Type: types.MetricType("summary"),
	})
	assert.Error(t, err, "unsupported metric types are rejected")
}

func TestNewMetricIsIdempotentPerName(t *testing.T) {
	collector := NewPrometheusCollector(nil)

	opts := types.MetricOpts{
		Name: "repeated_total",
		Help: "test",
		Type: types.MetricTypeCounter,
	}
	first, err := collector.NewMetric(opts)
	require.NoError(t, err)
	second, err := collector.NewMetric(opts)
	require.NoError(t, err)
	assert.Same(t, first, second, "asking twice returns the registered metric")
}
