package tracer

import (
	"context"
)

// Tracer creates spans and moves trace context across process boundaries.
//
// This interface is implemented by the concrete *TracerClient type.
type Tracer interface {
	// StartSpan starts a span named name, parented to the span in ctx if any.
	StartSpan(ctx context.Context, name string) (context.Context, Span)

	// GetCarrier extracts the trace context of ctx as string headers.
	GetCarrier(ctx context.Context) map[string]string

	// SetCarrierOnContext injects headers produced by GetCarrier into ctx.
	SetCarrierOnContext(ctx context.Context, carrier map[string]string) context.Context
}

// Span is a single traced operation.
//
//	ctx, span := tr.StartSpan(ctx, "shardpool.execute")
//	defer span.End()
//	span.SetAttributes(map[string]interface{}{"shard": "s0"})
//	if err != nil {
//		span.RecordError(err)
//	}
type Span interface {
	// End completes the span. No further calls are allowed afterwards.
	End()

	// SetAttributes adds key-value attributes to the span.
	SetAttributes(attrs map[string]interface{})

	// RecordError records err and sets the span status to Error.
	RecordError(err error)
}

var _ Tracer = (*TracerClient)(nil)
