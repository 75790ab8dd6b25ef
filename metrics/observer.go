package metrics

import (
	"context"
	"errors"

	"github.com/prometheus/client_golang/prometheus"

	"github.com/aalemi-dev/shardkit/observability"
)

const (
	statusOK       = "ok"
	statusError    = "error"
	statusCanceled = "canceled"
)

// OperationObserver records observability.OperationContext events as
// Prometheus metrics:
//
//	shardkit_operations_total{component,operation,status}
//	shardkit_operation_duration_seconds{component,operation}
//	shardkit_operation_size{component,operation}
//	shardkit_broadcast_failed_shards{component,resource}
//
// Size is whatever the component reports: rows for "execute", shards for
// "ensure" and "broadcast".
type OperationObserver struct {
	operations Counter
	duration   Histogram
	size       Histogram
	failed     Gauge
}

var _ observability.Observer = (*OperationObserver)(nil)

// NewOperationObserver registers the operation metrics on collector.
// It panics if called twice with the same collector, like any duplicate
// Prometheus registration.
func NewOperationObserver(collector MetricsCollector) *OperationObserver {
	return &OperationObserver{
		operations: collector.CreateCounter(
			"shardkit_operations_total",
			"Completed operations by component, operation and status.",
			[]string{"component", "operation", "status"},
		),
		duration: collector.CreateHistogram(
			"shardkit_operation_duration_seconds",
			"Operation latency in seconds.",
			[]string{"component", "operation"},
			prometheus.ExponentialBuckets(0.001, 2, 15),
		),
		size: collector.CreateHistogram(
			"shardkit_operation_size",
			"Rows or shards involved in an operation.",
			[]string{"component", "operation"},
			prometheus.ExponentialBuckets(1, 4, 10),
		),
		failed: collector.CreateGauge(
			"shardkit_broadcast_failed_shards",
			"Shards that failed in the most recent broadcast per env.category.",
			[]string{"component", "resource"},
		),
	}
}

// ObserveOperation implements observability.Observer.
func (o *OperationObserver) ObserveOperation(ctx observability.OperationContext) {
	o.operations.WithLabelValues(ctx.Component, ctx.Operation, status(ctx.Error)).Inc()
	o.duration.WithLabelValues(ctx.Component, ctx.Operation).Observe(ctx.Duration.Seconds())

	if ctx.Size > 0 {
		o.size.WithLabelValues(ctx.Component, ctx.Operation).Observe(float64(ctx.Size))
	}

	if failed, ok := ctx.Metadata["failed"].(int); ok {
		o.failed.WithLabelValues(ctx.Component, ctx.Resource).Set(float64(failed))
	}
}

func status(err error) string {
	switch {
	case err == nil:
		return statusOK
	case errors.Is(err, context.Canceled), errors.Is(err, context.DeadlineExceeded):
		return statusCanceled
	default:
		return statusError
	}
}
