// Package shardpool manages connection pools for a sharded MariaDB/MySQL fleet and
// executes SQL on one shard or across all shards of an environment/category.
//
// Shards are addressed by a four-level path (environment, category, zone, shard)
// resolved against a static topology.Topology. Pools are created lazily:
//
//   - Registry.Ensure connects every shard of an env/category that has no pool yet.
//     A shard that fails to connect is stored with its *PoolCreationError and is not
//     retried unless WithForceRefresh is given.
//   - Registry.EnsureShard does the same for a single shard and returns its pool.
//   - Dispatcher.ExecuteOne runs a statement on one shard with a live pool.
//   - Dispatcher.ExecuteBroadcast runs a statement on every shard concurrently and
//     returns one Outcome per shard; failures are data, not errors.
//
// # Concurrency model
//
// Registry entries live in one map under a sync.RWMutex. Concurrent requests for the
// same new shard share one connection attempt through golang.org/x/sync/singleflight,
// so Connector.Connect runs at most once per shard at a time. Broadcasts fan out with
// an errgroup that never cancels siblings. When the caller's context is cancelled the
// caller stops waiting; the shard work finishes in the background and
// Dispatcher.Close waits for it.
//
// Basic Usage:
//
//	topo, err := topology.Decode(yamlBytes)
//	if err != nil {
//		log.Fatal(err)
//	}
//
//	registry := shardpool.NewRegistry(topo, shardpool.NewMySQLConnector(), shardpool.Config{})
//	dispatcher := shardpool.NewDispatcher(registry)
//	defer dispatcher.Close()
//
//	outcomes, err := dispatcher.ExecuteBroadcast(ctx, "prod", "orders", "SELECT COUNT(*) AS n FROM orders")
//	if err != nil {
//		return err // unknown env/category or ctx done
//	}
//	for _, o := range outcomes {
//		if o.Err() != nil {
//			log.Printf("%s: %v", o.Path(), o.Err())
//		}
//	}
//
// Error Handling:
//
//	if errors.Is(err, shardpool.ErrConfigNotFound) { ... }
//	if errors.Is(err, shardpool.ErrPoolUnavailable) { ... }
//
//	var execErr *shardpool.ExecutionError
//	if errors.As(err, &execErr) && shardpool.IsRetryable(err) { ... }
//
// FX Integration:
//
//	app := fx.New(
//		shardpool.FXModule,
//		logger.FXModule, // optional
//		fx.Provide(
//			func() shardpool.Config { return shardpool.Config{} },
//			func() (*topology.Topology, error) { return topology.Decode(data) },
//		),
//	)
package shardpool
