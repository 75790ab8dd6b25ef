// Package observability defines the Observer hook that infrastructure
// packages call when an operation completes.
//
// shardpool reports "ensure", "create_pool", "execute" and "broadcast"
// operations. metrics.OperationObserver turns them into Prometheus metrics;
// any other sink can be plugged in with ObserverFunc, and several sinks can
// be combined with Multi:
//
//	observer := observability.Multi(
//		metrics.NewOperationObserver(m),
//		observability.ObserverFunc(func(op observability.OperationContext) {
//			if op.Error != nil {
//				log.Warn("operation failed", op.Error, map[string]interface{}{"resource": op.Resource})
//			}
//		}),
//	)
//	registry.WithObserver(observer)
//
// Observers are called synchronously from the goroutine that ran the
// operation, possibly from many goroutines at once, and must be safe for
// concurrent use.
package observability
