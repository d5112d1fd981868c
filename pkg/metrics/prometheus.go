// Package metrics provides a Prometheus-backed implementation of the
// types.MetricsCollector interface.
package metrics

import (
	"fmt"
	"sync"

	"github.com/prometheus/client_golang/prometheus"

	"github.com/gridflow/gridval/pkg/types"
)

// PrometheusMetric adapts Prometheus metric vectors to our Metric interface
type PrometheusMetric struct {
	vec interface{} // *prometheus.CounterVec, *GaugeVec or *HistogramVec
}

// convertLabels converts our MetricLabels to Prometheus labels
func convertLabels(labels []types.MetricLabel) prometheus.Labels {
	if len(labels) == 0 {
		return nil
	}
	promLabels := make(prometheus.Labels)
	for _, l := range labels {
		promLabels[l.Name] = l.Value
	}
	return promLabels
}

// getLabelNames extracts label names from MetricLabels
func getLabelNames(labels []types.MetricLabel) []string {
	if len(labels) == 0 {
		return nil
	}
	names := make([]string, len(labels))
	for i, l := range labels {
		names[i] = l.Name
	}
	return names
}

// Inc implements types.Metric.Inc
func (m *PrometheusMetric) Inc(labels ...types.MetricLabel) {
	if counter, ok := m.vec.(*prometheus.CounterVec); ok {
		counter.With(convertLabels(labels)).Inc()
	}
}

// Add implements types.Metric.Add
func (m *PrometheusMetric) Add(value float64, labels ...types.MetricLabel) {
	if counter, ok := m.vec.(*prometheus.CounterVec); ok {
		counter.With(convertLabels(labels)).Add(value)
	}
}

// Set implements types.Metric.Set
func (m *PrometheusMetric) Set(value float64, labels ...types.MetricLabel) {
	if gauge, ok := m.vec.(*prometheus.GaugeVec); ok {
		gauge.With(convertLabels(labels)).Set(value)
	}
}

// Observe implements types.Metric.Observe
func (m *PrometheusMetric) Observe(value float64, labels ...types.MetricLabel) {
	if histogram, ok := m.vec.(*prometheus.HistogramVec); ok {
		histogram.With(convertLabels(labels)).Observe(value)
	}
}

// PrometheusCollector implements our MetricsCollector interface
type PrometheusCollector struct {
	mu       sync.Mutex
	registry *prometheus.Registry
	metrics  map[string]*PrometheusMetric
}

// NewPrometheusCollector creates a new PrometheusCollector backed by the
// given registry. A nil registry creates a private one.
func NewPrometheusCollector(registry *prometheus.Registry) types.MetricsCollector {
	if registry == nil {
		registry = prometheus.NewRegistry()
	}
	return &PrometheusCollector{
		registry: registry,
		metrics:  make(map[string]*PrometheusMetric),
	}
}

// NewMetric implements types.MetricsCollector.NewMetric
func (c *PrometheusCollector) NewMetric(opts types.MetricOpts) (types.Metric, error) {
	if err := opts.Validate(); err != nil {
		return nil, fmt.Errorf("invalid metric options: %w", err)
	}

	c.mu.Lock()
	defer c.mu.Unlock()

	key := prometheus.BuildFQName(opts.Namespace, opts.Subsystem, opts.Name)
	if existing, ok := c.metrics[key]; ok {
		return existing, nil
	}

	labelNames := getLabelNames(opts.Labels)

	var collector prometheus.Collector
	var vec interface{}

	switch opts.Type {
	case types.MetricTypeCounter:
		counterVec := prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: opts.Namespace,
				Subsystem: opts.Subsystem,
				Name:      opts.Name,
				Help:      opts.Help,
			},
			labelNames,
		)
		collector = counterVec
		vec = counterVec

	case types.MetricTypeGauge:
		gaugeVec := prometheus.NewGaugeVec(
			prometheus.GaugeOpts{
				Namespace: opts.Namespace,
				Subsystem: opts.Subsystem,
				Name:      opts.Name,
				Help:      opts.Help,
			},
			labelNames,
		)
		collector = gaugeVec
		vec = gaugeVec

	case types.MetricTypeHistogram:
		buckets := opts.Buckets
		if len(buckets) == 0 {
			buckets = prometheus.DefBuckets
		}
		histogramVec := prometheus.NewHistogramVec(
			prometheus.HistogramOpts{
				Namespace: opts.Namespace,
				Subsystem: opts.Subsystem,
				Name:      opts.Name,
				Help:      opts.Help,
				Buckets:   buckets,
			},
			labelNames,
		)
		collector = histogramVec
		vec = histogramVec

	default:
		return nil, fmt.Errorf("unsupported metric type: %s", opts.Type)
	}

	if err := c.registry.Register(collector); err != nil {
		return nil, fmt.Errorf("failed to register metric %s: %w", key, err)
	}

	metric := &PrometheusMetric{vec: vec}
	c.metrics[key] = metric
	return metric, nil
}
