package cli

import (
	"context"
	"errors"
	"time"

	"github.com/spf13/cobra"
	"go.uber.org/fx"
	"go.uber.org/fx/fxevent"

	"github.com/aalemi-dev/shardkit/logger"
	"github.com/aalemi-dev/shardkit/metrics"
	"github.com/aalemi-dev/shardkit/shardpool"
	"github.com/aalemi-dev/shardkit/topology"
	"github.com/aalemi-dev/shardkit/tracer"
)

const stopTimeout = 15 * time.Second

// appOptions wires logger, metrics, tracer and shardpool into one fx graph.
func (r *runner) appOptions(extra ...fx.Option) []fx.Option {
	options := []fx.Option{
		fx.Supply(r.settings.ShardPool, r.settings.Log, r.settings.Metrics, r.settings.Tracing),
		fx.Provide(func() *topology.Topology { return r.topology }),
		logger.FXModule,
		metrics.FXModule,
		tracer.FXModule,
		shardpool.FXModule,
		fx.Provide(func(l *logger.LoggerClient) shardpool.Logger { return l }),
	}

	if r.connector != nil {
		connector := r.connector
		options = append(options, fx.Provide(func() shardpool.Connector { return connector }))
	}

	if r.verbose {
		options = append(options, fx.WithLogger(func(l *logger.LoggerClient) fxevent.Logger {
			return &fxevent.ZapLogger{Logger: l.Zap}
		}))
	} else {
		options = append(options, fx.NopLogger)
	}

	return append(options, extra...)
}

// withClient starts the application, runs fn with the shard pool client under
// the configured timeout and stops the application again, closing every pool.
func (r *runner) withClient(cmd *cobra.Command, fn func(ctx context.Context, client shardpool.Client) error) error {
	var client shardpool.Client
	app := fx.New(r.appOptions(fx.Populate(&client))...)
	if err := app.Err(); err != nil {
		return err
	}

	startCtx, cancelStart := context.WithTimeout(cmd.Context(), app.StartTimeout())
	defer cancelStart()
	if err := app.Start(startCtx); err != nil {
		return err
	}

	ctx, cancel := context.WithTimeout(cmd.Context(), r.settings.Timeout)
	runErr := fn(ctx, client)
	cancel()

	stopCtx, cancelStop := context.WithTimeout(context.WithoutCancel(cmd.Context()), stopTimeout)
	defer cancelStop()
	return errors.Join(runErr, app.Stop(stopCtx))
}
