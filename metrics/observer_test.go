package metrics_test

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"testing"
	"time"

	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/aalemi-dev/shardkit/metrics"
	"github.com/aalemi-dev/shardkit/observability"
)

func TestOperationObserverCountsByStatus(t *testing.T) {
	t.Parallel()
	m := newCollectOnly(t)
	observer := metrics.NewOperationObserver(m)

	events := []observability.OperationContext{
		{Component: "shardpool", Operation: "execute", Resource: "prod.orders.r1.s0", Duration: 2 * time.Millisecond, Size: 1},
		{Component: "shardpool", Operation: "execute", Resource: "prod.orders.r1.s0", Duration: 3 * time.Millisecond, Size: 4},
		{Component: "shardpool", Operation: "execute", Resource: "prod.orders.r1.s1", Error: errors.New("connect failed")},
		{Component: "shardpool", Operation: "broadcast", Resource: "prod.orders", Error: fmt.Errorf("wait: %w", context.Canceled)},
	}
	for _, e := range events {
		observer.ObserveOperation(e)
	}

	expected := `
# HELP shardkit_operations_total Completed operations by component, operation and status.
# TYPE shardkit_operations_total counter
shardkit_operations_total{component="shardpool",operation="broadcast",service="TestOperationObserverCountsByStatus",status="canceled"} 1
shardkit_operations_total{component="shardpool",operation="execute",service="TestOperationObserverCountsByStatus",status="error"} 1
shardkit_operations_total{component="shardpool",operation="execute",service="TestOperationObserverCountsByStatus",status="ok"} 2
`
	require.NoError(t, testutil.GatherAndCompare(m.Registry, strings.NewReader(expected), "shardkit_operations_total"))

	// two execute observations with a size, none for the failed shard
	assert.Equal(t, 1, testutil.CollectAndCount(m.Registry, "shardkit_operation_size"))
	assert.Equal(t, 2, testutil.CollectAndCount(m.Registry, "shardkit_operation_duration_seconds"))
}

func TestOperationObserverFailedShardsGauge(t *testing.T) {
	t.Parallel()
	m := newCollectOnly(t)
	observer := metrics.NewOperationObserver(m)

	observer.ObserveOperation(observability.OperationContext{
		Component: "shardpool", Operation: "broadcast", Resource: "prod.orders", Size: 3,
		Metadata: map[string]interface{}{"failed": 2},
	})
	observer.ObserveOperation(observability.OperationContext{
		Component: "shardpool", Operation: "broadcast", Resource: "prod.orders", Size: 3,
		Metadata: map[string]interface{}{"failed": 1},
	})

	expected := `
# HELP shardkit_broadcast_failed_shards Shards that failed in the most recent broadcast per env.category.
# TYPE shardkit_broadcast_failed_shards gauge
shardkit_broadcast_failed_shards{component="shardpool",resource="prod.orders",service="TestOperationObserverFailedShardsGauge"} 1
`
	require.NoError(t, testutil.GatherAndCompare(m.Registry, strings.NewReader(expected), "shardkit_broadcast_failed_shards"))
}

func TestOperationObserverRegistersOnce(t *testing.T) {
	t.Parallel()
	m := newCollectOnly(t)
	metrics.NewOperationObserver(m)
	assert.Panics(t, func() { metrics.NewOperationObserver(m) })
}
