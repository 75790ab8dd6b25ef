package shardpool

import (
	"context"
	"database/sql"
	"fmt"
	"strings"
	"sync"
	"time"

	"golang.org/x/sync/errgroup"

	"github.com/aalemi-dev/shardkit/observability"
	"github.com/aalemi-dev/shardkit/serializer"
	"github.com/aalemi-dev/shardkit/topology"
	"github.com/aalemi-dev/shardkit/tracer"
)

// Execution stages reported by ExecutionError.
const (
	stageAcquire   = "acquire"
	stageExecute   = "execute"
	stageFetch     = "fetch"
	stageSerialize = "serialize"
	stageCommit    = "commit"
	stagePanic     = "panic"
)

type executeFunc func(ctx context.Context, pool *Pool, query string, args []any) (*ExecutionResult, error)

// Dispatcher runs SQL statements against one shard or fans them out across
// every shard of an environment/category.
type Dispatcher struct {
	registry *Registry
	tracer   tracer.Tracer
	logger   Logger
	observer observability.Observer

	run executeFunc

	mu     sync.Mutex
	closed bool
	tasks  sync.WaitGroup
}

// NewDispatcher creates a dispatcher that executes on the pools of registry.
func NewDispatcher(registry *Registry) *Dispatcher {
	d := &Dispatcher{registry: registry}
	d.run = d.execute
	return d
}

// WithTracer attaches a tracer. Broadcasts open one span for the fan-out and one
// per shard.
func (d *Dispatcher) WithTracer(t tracer.Tracer) *Dispatcher {
	d.tracer = t
	return d
}

// WithLogger attaches a logger for shard failures and returns d for chaining.
func (d *Dispatcher) WithLogger(logger Logger) *Dispatcher {
	d.logger = logger
	return d
}

// WithObserver attaches an observer for observability hooks and returns d for chaining.
func (d *Dispatcher) WithObserver(observer observability.Observer) *Dispatcher {
	d.observer = observer
	return d
}

// Registry returns the registry the dispatcher executes on.
func (d *Dispatcher) Registry() *Registry {
	return d.registry
}

// ExecuteOne runs query on a single shard. The shard must be in the topology
// (*ConfigNotFoundError otherwise) and must already have a live pool
// (*PoolUnavailableError otherwise); ExecuteOne never connects.
// Statement failures are returned as *ExecutionError.
func (d *Dispatcher) ExecuteOne(ctx context.Context, target topology.Target, query string, args ...any) (*ExecutionResult, error) {
	target = target.Normalize()
	if _, err := d.registry.Topology().Resolve(target); err != nil {
		return nil, err
	}

	if err := d.begin(); err != nil {
		return nil, err
	}
	defer d.tasks.Done()

	pool, err := d.registry.Get(target)
	if err != nil {
		return nil, err
	}

	ctx, span := d.startSpan(ctx, "shardpool.execute", map[string]interface{}{
		"shard.target": target.String(),
	})
	defer span.End()

	result, err := d.runShard(ctx, target, pool, query, args)
	if err != nil {
		span.RecordError(err)
		return nil, err
	}
	return result, nil
}

// ExecuteBroadcast runs query on every shard under env/category, connecting
// shards that have no pool yet. It returns one Outcome per registered shard in
// target order: an *ExecutionResult or an *ErrorRecord. A failing shard never
// affects its siblings.
//
// The returned error is only set for an unknown env/category, a closed registry
// or when ctx is done before all shards finished. In the last case the shards
// keep running to completion in the background.
func (d *Dispatcher) ExecuteBroadcast(ctx context.Context, env, category, query string, args ...any) ([]Outcome, error) {
	return d.fanOut(ctx, env, category, "", query, args)
}

// ExecuteZone is ExecuteBroadcast restricted to the shards of one zone.
func (d *Dispatcher) ExecuteZone(ctx context.Context, env, category, zone, query string, args ...any) ([]Outcome, error) {
	if strings.TrimSpace(zone) == "" {
		return nil, &ConfigNotFoundError{Env: env, Category: category, Zone: zone}
	}
	return d.fanOut(ctx, env, category, zone, query, args)
}

// Close rejects new executions, waits for running ones (including background
// shard executions of abandoned broadcasts) to finish, then closes the registry.
func (d *Dispatcher) Close() error {
	d.mu.Lock()
	d.closed = true
	d.mu.Unlock()

	d.tasks.Wait()
	return d.registry.Close()
}

// begin registers an execution that Close must wait for. The caller calls
// d.tasks.Done when it finishes.
func (d *Dispatcher) begin() error {
	d.mu.Lock()
	defer d.mu.Unlock()
	if d.closed {
		return ErrRegistryClosed
	}
	d.tasks.Add(1)
	return nil
}

func (d *Dispatcher) fanOut(ctx context.Context, env, category, zone, query string, args []any) ([]Outcome, error) {
	start := time.Now()
	resource := env + "." + category

	var opts []EnsureOption
	if zone != "" {
		opts = append(opts, WithZone(zone))
	}
	if _, err := d.registry.Ensure(ctx, env, category, opts...); err != nil {
		observeOperation(d.observer, "broadcast", resource, time.Since(start), err, 0, nil)
		return nil, err
	}

	targets := d.registry.Targets(env, category)
	if zone != "" {
		zone = topology.Target{Zone: zone}.Normalize().Zone
		filtered := targets[:0]
		for _, t := range targets {
			if t.Zone == zone {
				filtered = append(filtered, t)
			}
		}
		targets = filtered
	}

	ctx, span := d.startSpan(ctx, "shardpool.broadcast", map[string]interface{}{
		"shard.env":      env,
		"shard.category": category,
		"shard.zone":     zone,
		"shard.count":    len(targets),
	})
	defer span.End()

	if err := d.begin(); err != nil {
		span.RecordError(err)
		observeOperation(d.observer, "broadcast", resource, time.Since(start), err, 0, nil)
		return nil, err
	}

	outcomes := make([]Outcome, len(targets))
	done := make(chan struct{})
	detached := context.WithoutCancel(ctx)

	go func() {
		defer d.tasks.Done()
		defer close(done)

		var g errgroup.Group
		for i, target := range targets {
			g.Go(func() error {
				outcomes[i] = d.shardOutcome(detached, target, query, args)
				return nil
			})
		}
		_ = g.Wait()
	}()

	select {
	case <-done:
	case <-ctx.Done():
		span.RecordError(ctx.Err())
		observeOperation(d.observer, "broadcast", resource, time.Since(start), ctx.Err(), int64(len(targets)), nil)
		return nil, ctx.Err()
	}

	failed := 0
	for _, o := range outcomes {
		if o.Err() != nil {
			failed++
		}
	}
	span.SetAttributes(map[string]interface{}{"shard.failed": failed})
	observeOperation(d.observer, "broadcast", resource, time.Since(start), nil, int64(len(targets)), map[string]interface{}{
		"zone":   zone,
		"failed": failed,
	})
	return outcomes, nil
}

// shardOutcome turns one shard's execution into an Outcome. It never panics.
func (d *Dispatcher) shardOutcome(ctx context.Context, target topology.Target, query string, args []any) Outcome {
	ctx, span := d.startSpan(ctx, "shardpool.shard", map[string]interface{}{
		"shard.target": target.String(),
	})
	defer span.End()

	pool, err := d.registry.Get(target)
	if err != nil {
		span.RecordError(err)
		return &ErrorRecord{Target: target, Cause: err}
	}

	result, err := d.runShard(ctx, target, pool, query, args)
	if err != nil {
		span.RecordError(err)
		return &ErrorRecord{Target: target, Cause: err}
	}
	return result
}

// runShard executes on pool, turning panics into an *ExecutionError and
// recording every failure in the ledger.
func (d *Dispatcher) runShard(ctx context.Context, target topology.Target, pool *Pool, query string, args []any) (result *ExecutionResult, err error) {
	start := time.Now()

	defer func() {
		if r := recover(); r != nil {
			result = nil
			err = &ExecutionError{Target: target, Stage: stagePanic, Cause: fmt.Errorf("%v", r)}
		}

		var size int64
		if result != nil {
			size = int64(len(result.Rows))
			if result.Count != nil {
				size = *result.Count
			}
		}
		observeOperation(d.observer, "execute", target.String(), time.Since(start), err, size, nil)

		if err != nil {
			d.registry.ledger.record(target, StageExecute, err)
			logWarn(ctx, d.logger, "Shard execution failed", err, map[string]interface{}{
				"target": target.String(),
			})
		}
	}()

	return d.run(ctx, pool, query, args)
}

// execute runs query on one connection taken from pool.
func (d *Dispatcher) execute(ctx context.Context, pool *Pool, query string, args []any) (*ExecutionResult, error) {
	target := pool.Target()

	conn, err := pool.Acquire(ctx)
	if err != nil {
		return nil, &ExecutionError{Target: target, Stage: stageAcquire, Cause: TranslateError(err)}
	}
	defer conn.Close()

	switch classify(query) {
	case stmtQuery:
		return queryRows(ctx, conn, target, query, args)
	case stmtMutatingQuery:
		return queryInTx(ctx, conn, target, query, args)
	default:
		return execStatement(ctx, conn, target, query, args)
	}
}

// queryer is satisfied by *sql.Conn and *sql.Tx.
type queryer interface {
	QueryContext(ctx context.Context, query string, args ...any) (*sql.Rows, error)
}

func queryRows(ctx context.Context, q queryer, target topology.Target, query string, args []any) (*ExecutionResult, error) {
	rows, err := q.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, &ExecutionError{Target: target, Stage: stageExecute, Cause: TranslateError(err)}
	}
	defer rows.Close()

	columns, err := rows.Columns()
	if err != nil {
		return nil, &ExecutionError{Target: target, Stage: stageFetch, Cause: TranslateError(err)}
	}
	columnTypes, err := rows.ColumnTypes()
	if err != nil {
		return nil, &ExecutionError{Target: target, Stage: stageFetch, Cause: TranslateError(err)}
	}
	dbTypes := make([]string, len(columnTypes))
	for i, ct := range columnTypes {
		dbTypes[i] = ct.DatabaseTypeName()
	}

	data := []map[string]any{}
	for rows.Next() {
		raw := make([]any, len(columns))
		dest := make([]any, len(columns))
		for i := range raw {
			dest[i] = &raw[i]
		}
		if err := rows.Scan(dest...); err != nil {
			return nil, &ExecutionError{Target: target, Stage: stageFetch, Cause: TranslateError(err)}
		}

		row, err := serializer.Row(columns, dbTypes, raw)
		if err != nil {
			return nil, &ExecutionError{Target: target, Stage: stageSerialize, Cause: err}
		}
		data = append(data, row)
	}
	if err := rows.Err(); err != nil {
		return nil, &ExecutionError{Target: target, Stage: stageFetch, Cause: TranslateError(err)}
	}

	return &ExecutionResult{Target: target, Rows: data}, nil
}

// queryInTx runs a statement that both writes and returns rows in its own
// transaction. The rows are read in full before the commit.
func queryInTx(ctx context.Context, conn *sql.Conn, target topology.Target, query string, args []any) (*ExecutionResult, error) {
	tx, err := conn.BeginTx(ctx, nil)
	if err != nil {
		return nil, &ExecutionError{Target: target, Stage: stageExecute, Cause: TranslateError(err)}
	}

	result, err := queryRows(ctx, tx, target, query, args)
	if err != nil {
		_ = tx.Rollback()
		return nil, err
	}

	if err := tx.Commit(); err != nil {
		return nil, &ExecutionError{Target: target, Stage: stageCommit, Cause: TranslateError(err)}
	}
	return result, nil
}

// execStatement runs a statement without a result set in its own transaction
// and commits it.
func execStatement(ctx context.Context, conn *sql.Conn, target topology.Target, query string, args []any) (*ExecutionResult, error) {
	tx, err := conn.BeginTx(ctx, nil)
	if err != nil {
		return nil, &ExecutionError{Target: target, Stage: stageExecute, Cause: TranslateError(err)}
	}

	res, err := tx.ExecContext(ctx, query, args...)
	if err != nil {
		_ = tx.Rollback()
		return nil, &ExecutionError{Target: target, Stage: stageExecute, Cause: TranslateError(err)}
	}

	affected, err := res.RowsAffected()
	if err != nil {
		_ = tx.Rollback()
		return nil, &ExecutionError{Target: target, Stage: stageFetch, Cause: TranslateError(err)}
	}

	if err := tx.Commit(); err != nil {
		return nil, &ExecutionError{Target: target, Stage: stageCommit, Cause: TranslateError(err)}
	}
	return &ExecutionResult{Target: target, Count: &affected}, nil
}

// startSpan opens a span when a tracer is configured.
func (d *Dispatcher) startSpan(ctx context.Context, name string, attrs map[string]interface{}) (context.Context, tracer.Span) {
	if d.tracer == nil {
		return ctx, noopSpan{}
	}
	ctx, span := d.tracer.StartSpan(ctx, name)
	span.SetAttributes(attrs)
	return ctx, span
}

type noopSpan struct{}

func (noopSpan) End()                                 {}
func (noopSpan) SetAttributes(map[string]interface{}) {}
func (noopSpan) RecordError(error)                    {}
