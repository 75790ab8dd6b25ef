// Package logger provides structured JSON logging on top of Uber's Zap.
//
// The package follows the "accept interfaces, return structs" pattern: NewLoggerClient
// returns a *LoggerClient, and consumers such as shardpool depend on a narrow interface
// that *LoggerClient satisfies.
//
// Every method takes an optional error and any number of field maps:
//
//	log, err := logger.NewLoggerClient(logger.Config{
//		Level:         logger.Info,
//		ServiceName:   "shardctl",
//		EnableTracing: true,
//	})
//	if err != nil {
//		return err
//	}
//
//	log.InfoWithContext(ctx, "Shard pool created", nil, map[string]interface{}{
//		"target": "prod.orders.r1.s0",
//	})
//
// With EnableTracing set, the ...WithContext methods add "trace_id" and "span_id"
// from the active OpenTelemetry span in ctx.
package logger
