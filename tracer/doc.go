// Package tracer wraps OpenTelemetry tracing behind a small interface.
//
// shardpool.Dispatcher accepts a Tracer through WithTracer and opens a
// "shardpool.broadcast" span per fan-out with one "shardpool.shard" child per
// target, or a single "shardpool.execute" span for ExecuteOne. Failed shards
// record their error on the child span.
//
//	client, err := tracer.NewClient(tracer.Config{
//		ServiceName:  "orders-api",
//		AppEnv:       "production",
//		EnableExport: true,
//		Endpoint:     "http://otel-collector:4318",
//	})
//	if err != nil {
//		return err
//	}
//	defer client.Shutdown(ctx)
//
//	dispatcher := shardpool.NewDispatcher(registry).WithTracer(client)
//
// GetCarrier and SetCarrierOnContext carry W3C trace context across process
// boundaries, for example in HTTP headers.
//
// FXModule provides *TracerClient and Tracer, which shardpool.FXModule picks
// up when present.
package tracer
