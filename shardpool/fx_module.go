package shardpool

import (
	"context"

	"go.uber.org/fx"

	"github.com/aalemi-dev/shardkit/observability"
	"github.com/aalemi-dev/shardkit/topology"
	"github.com/aalemi-dev/shardkit/tracer"
)

// FXModule is an fx module that provides the shard pool manager.
//
// This module provides:
//   - *Registry - pool management
//   - *Dispatcher (concrete type) - statement execution and lifecycle management
//   - Client (interface) - for consumers who want an abstraction
//
// It requires a Config and a *topology.Topology. A Connector, Logger, Observer and
// tracer.Tracer are picked up when present; without a Connector, MySQLConnector is used.
var FXModule = fx.Module("shardpool",
	fx.Provide(
		NewRegistryWithDI,
		NewDispatcherWithDI,
		fx.Annotate(
			ProvideClient,
			fx.As(new(Client)),
		),
	),
	fx.Invoke(RegisterShardPoolLifecycle),
)

// ProvideClient returns the concrete *Dispatcher as Client.
func ProvideClient(d *Dispatcher) Client {
	return d
}

// RegistryParams groups the dependencies needed to create a Registry via dependency injection.
type RegistryParams struct {
	fx.In

	Config    Config
	Topology  *topology.Topology
	Connector Connector              `optional:"true"`
	Logger    Logger                 `optional:"true"`
	Observer  observability.Observer `optional:"true"`
}

// NewRegistryWithDI creates a Registry from injected dependencies.
func NewRegistryWithDI(params RegistryParams) *Registry {
	connector := params.Connector
	if connector == nil {
		connector = NewMySQLConnector()
	}

	registry := NewRegistry(params.Topology, connector, params.Config)
	if params.Logger != nil {
		registry.WithLogger(params.Logger)
	}
	if params.Observer != nil {
		registry.WithObserver(params.Observer)
	}
	return registry
}

// DispatcherParams groups the dependencies needed to create a Dispatcher via dependency injection.
type DispatcherParams struct {
	fx.In

	Registry *Registry
	Logger   Logger                 `optional:"true"`
	Observer observability.Observer `optional:"true"`
	Tracer   tracer.Tracer          `optional:"true"`
}

// NewDispatcherWithDI creates a Dispatcher from injected dependencies.
func NewDispatcherWithDI(params DispatcherParams) *Dispatcher {
	dispatcher := NewDispatcher(params.Registry)
	if params.Logger != nil {
		dispatcher.WithLogger(params.Logger)
	}
	if params.Observer != nil {
		dispatcher.WithObserver(params.Observer)
	}
	if params.Tracer != nil {
		dispatcher.WithTracer(params.Tracer)
	}
	return dispatcher
}

// ShardPoolLifecycleParams groups the dependencies needed for lifecycle management.
type ShardPoolLifecycleParams struct {
	fx.In

	Lifecycle  fx.Lifecycle
	Dispatcher *Dispatcher
}

// RegisterShardPoolLifecycle closes every pool when the application stops,
// after in-flight broadcasts have finished.
func RegisterShardPoolLifecycle(params ShardPoolLifecycleParams) {
	params.Lifecycle.Append(fx.Hook{
		OnStop: func(ctx context.Context) error {
			done := make(chan error, 1)
			go func() {
				done <- params.Dispatcher.Close()
			}()

			select {
			case err := <-done:
				return err
			case <-ctx.Done():
				return ctx.Err()
			}
		},
	})
}
