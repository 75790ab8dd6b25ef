package shardpool

import (
	"context"
	"time"

	"github.com/aalemi-dev/shardkit/observability"
)

const component = "shardpool"

// observeOperation notifies the observer about an operation if one is configured.
//
// Notes:
//   - resource: the target path, or env.category for category-wide operations
//   - size: rows returned or affected, or the number of shards for broadcasts
func observeOperation(observer observability.Observer, operation, resource string, duration time.Duration, err error, size int64, metadata map[string]interface{}) {
	if observer == nil {
		return
	}

	observer.ObserveOperation(observability.OperationContext{
		Component: component,
		Operation: operation,
		Resource:  resource,
		Duration:  duration,
		Error:     err,
		Size:      size,
		Metadata:  metadata,
	})
}

func logInfo(ctx context.Context, logger Logger, msg string, fields map[string]interface{}) {
	if logger != nil {
		logger.InfoWithContext(ctx, msg, nil, fields)
	}
}

func logWarn(ctx context.Context, logger Logger, msg string, err error, fields map[string]interface{}) {
	if logger != nil {
		logger.WarnWithContext(ctx, msg, err, fields)
	}
}

func logError(ctx context.Context, logger Logger, msg string, err error, fields map[string]interface{}) {
	if logger != nil {
		logger.ErrorWithContext(ctx, msg, err, fields)
	}
}
