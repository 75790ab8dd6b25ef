package metrics

import (
	"context"
	"errors"
	"net"
	"net/http"

	"go.uber.org/fx"

	"github.com/aalemi-dev/shardkit/logger"
	"github.com/aalemi-dev/shardkit/observability"
)

// FXModule provides *Metrics, the MetricsCollector interface and an
// observability.Observer backed by OperationObserver, and runs the metrics
// server for the lifetime of the application. A Config must be available in
// the container.
var FXModule = fx.Module("metrics",
	fx.Provide(
		NewMetrics,
		fx.Annotate(
			func(m *Metrics) MetricsCollector { return m },
			fx.As(new(MetricsCollector)),
		),
		fx.Annotate(
			func(m MetricsCollector) observability.Observer { return NewOperationObserver(m) },
			fx.As(new(observability.Observer)),
		),
	),
	fx.Invoke(RegisterMetricsLifecycle),
)

// MetricsLifecycleParams groups the dependencies of RegisterMetricsLifecycle.
type MetricsLifecycleParams struct {
	fx.In

	Lifecycle fx.Lifecycle
	Metrics   *Metrics
	Logger    logger.Logger `optional:"true"`
}

// RegisterMetricsLifecycle starts the metrics server on application start and
// shuts it down on stop. The listener is bound in OnStart so address errors
// fail the start instead of surfacing later in a goroutine.
func RegisterMetricsLifecycle(params MetricsLifecycleParams) {
	m := params.Metrics
	if m.Server == nil {
		return
	}

	params.Lifecycle.Append(fx.Hook{
		OnStart: func(ctx context.Context) error {
			ln, err := net.Listen("tcp", m.Server.Addr)
			if err != nil {
				return err
			}
			logInfo(params.Logger, "Starting metrics server", map[string]interface{}{
				"address": ln.Addr().String(),
			})

			go func() {
				if err := m.Server.Serve(ln); err != nil && !errors.Is(err, http.ErrServerClosed) {
					logError(params.Logger, "Metrics server stopped", err)
				}
			}()
			return nil
		},
		OnStop: func(ctx context.Context) error {
			logInfo(params.Logger, "Shutting down metrics server", nil)
			return m.Server.Shutdown(ctx)
		},
	})
}

func logInfo(log logger.Logger, msg string, fields map[string]interface{}) {
	if log != nil {
		log.Info(msg, nil, fields)
	}
}

func logError(log logger.Logger, msg string, err error) {
	if log != nil {
		log.Error(msg, err)
	}
}
