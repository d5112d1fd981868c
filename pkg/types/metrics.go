package types

import (
	"fmt"
	"regexp"
)

var (
	// validMetricNameRegex defines the pattern for valid metric names
	validMetricNameRegex = regexp.MustCompile(`^[a-zA-Z_][a-zA-Z0-9_]*$`)
)

// MetricType represents the type of metric
type MetricType string

const (
	// MetricTypeCounter represents a counter metric that only increases
	MetricTypeCounter MetricType = "counter"
	// MetricTypeGauge represents a gauge metric that can go up and down
	MetricTypeGauge MetricType = "gauge"
	// MetricTypeHistogram represents a histogram metric for value distributions
	MetricTypeHistogram MetricType = "histogram"
)

// MetricLabel represents a label/tag for a metric with validation
type MetricLabel struct {
	Name  string
	Value string
}

// Validate checks if the label name is valid
func (l MetricLabel) Validate() error {
	if !validMetricNameRegex.MatchString(l.Name) {
		return fmt.Errorf("invalid label name: %s", l.Name)
	}
	return nil
}

// MetricOpts represents options for creating a metric
type MetricOpts struct {
	// Namespace for grouping metrics (e.g., "gridval")
	Namespace string
	// Subsystem for grouping metrics within a namespace (e.g., "rules")
	Subsystem string
	// Name of the metric
	Name string
	// Help text describing the metric
	Help string
	// Type of metric
	Type MetricType
	// Labels/tags for the metric
	Labels []MetricLabel
	// Buckets for histogram metrics (must be sorted in ascending order)
	Buckets []float64
}

// Validate checks if the metric options are valid
func (o MetricOpts) Validate() error {
	if o.Namespace != "" && !validMetricNameRegex.MatchString(o.Namespace) {
		return fmt.Errorf("invalid namespace: %s", o.Namespace)
	}
	if o.Subsystem != "" && !validMetricNameRegex.MatchString(o.Subsystem) {
		return fmt.Errorf("invalid subsystem: %s", o.Subsystem)
	}
	if !validMetricNameRegex.MatchString(o.Name) {
		return fmt.Errorf("invalid metric name: %s", o.Name)
	}
	for _, label := range o.Labels {
		if err := label.Validate(); err != nil {
			return err
		}
	}
	return nil
}

// Metric represents a single metric
type Metric interface {
	// Inc increments a counter metric
	Inc(labels ...MetricLabel)
	// Add adds a value to a counter metric
	Add(value float64, labels ...MetricLabel)
	// Set sets the value of a gauge metric
	Set(value float64, labels ...MetricLabel)
	// Observe records a value for histogram metrics
	Observe(value float64, labels ...MetricLabel)
}

// MetricsCollector collects and manages metrics. The validation engine
// records rule execution outcomes and durations through this interface and
// functions correctly with a no-op implementation.
type MetricsCollector interface {
	// NewMetric creates a new metric with validation
	NewMetric(opts MetricOpts) (Metric, error)
}

// NoOpMetric implements Metric with no-op operations
type NoOpMetric struct{}

func (m *NoOpMetric) Inc(labels ...MetricLabel)                    {}
func (m *NoOpMetric) Add(value float64, labels ...MetricLabel)     {}
func (m *NoOpMetric) Set(value float64, labels ...MetricLabel)     {}
func (m *NoOpMetric) Observe(value float64, labels ...MetricLabel) {}

// NoOpMetricsCollector implements MetricsCollector with no-op operations
type NoOpMetricsCollector struct{}

func (c *NoOpMetricsCollector) NewMetric(opts MetricOpts) (Metric, error) {
	return &NoOpMetric{}, nil
}

// NewNoOpMetricsCollector creates a new no-op metrics collector
func NewNoOpMetricsCollector() MetricsCollector {
	return &NoOpMetricsCollector{}
}
