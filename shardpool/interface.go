package shardpool

import (
	"context"

	"github.com/aalemi-dev/shardkit/topology"
)

// Client is the execution interface of the shard pool manager.
//
// This interface allows applications to:
//   - Depend on abstractions rather than the concrete *Dispatcher
//   - Mock shard execution in tests of HTTP handlers or jobs
//
// The Dispatcher type implements this interface.
type Client interface {
	// ExecuteOne runs a statement on a single shard that already has a live pool.
	ExecuteOne(ctx context.Context, target topology.Target, query string, args ...any) (*ExecutionResult, error)

	// ExecuteBroadcast runs a statement on every shard under env/category.
	ExecuteBroadcast(ctx context.Context, env, category, query string, args ...any) ([]Outcome, error)

	// ExecuteZone runs a statement on every shard of one zone.
	ExecuteZone(ctx context.Context, env, category, zone, query string, args ...any) ([]Outcome, error)

	// Registry gives access to pool management (Ensure, Snapshot, Ledger...).
	Registry() *Registry

	// Close waits for background executions and closes every pool.
	Close() error
}

var _ Client = (*Dispatcher)(nil)
