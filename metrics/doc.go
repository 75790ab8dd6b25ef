// Package metrics exposes shardkit metrics through Prometheus.
//
// A Metrics instance owns one registry and, unless Config.Address points to
// an empty string, an HTTP server serving it on /metrics. Every metric is
// labeled with the configured service name.
//
// # Shard pool metrics
//
// OperationObserver implements observability.Observer, so it can be handed
// to shardpool.Registry.WithObserver and shardpool.Dispatcher.WithObserver:
//
//	m := metrics.NewMetrics(metrics.Config{ServiceName: "orders-api"})
//	observer := metrics.NewOperationObserver(m)
//	registry := shardpool.NewRegistry(topo, shardpool.NewMySQLConnector(), cfg).WithObserver(observer)
//
// # Custom metrics
//
//	requests := m.CreateCounter("orders_requests_total", "Requests served.", []string{"route"})
//	requests.WithLabelValues("/orders").Inc()
//
// # FX
//
// FXModule provides *Metrics, MetricsCollector and an observability.Observer,
// which shardpool.FXModule picks up automatically.
package metrics
