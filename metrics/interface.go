package metrics

// MetricsCollector creates metrics registered to the service registry.
//
// It does not expose Prometheus types, so callers can substitute their own
// implementation in tests.
type MetricsCollector interface {
	// CreateCounter registers a cumulative counter with the given labels.
	CreateCounter(name, help string, labels []string) Counter

	// CreateHistogram registers a histogram with the given labels and buckets.
	// nil buckets select the Prometheus defaults.
	CreateHistogram(name, help string, labels []string, buckets []float64) Histogram

	// CreateGauge registers a gauge with the given labels.
	CreateGauge(name, help string, labels []string) Gauge
}

var _ MetricsCollector = (*Metrics)(nil)
