package shardpool

import (
	"context"
	"errors"
	"strings"
	"sync"
	"sync/atomic"
	"time"

	"golang.org/x/sync/errgroup"
	"golang.org/x/sync/singleflight"

	"github.com/aalemi-dev/shardkit/observability"
	"github.com/aalemi-dev/shardkit/topology"
)

// createConcurrency bounds how many shards one Ensure call dials at once.
const createConcurrency = 8

// entry is the registry's tagged state for one target: exactly one of pool or err is set.
type entry struct {
	pool *Pool
	err  *PoolCreationError
}

// EntryStatus describes one registry entry for diagnostics.
type EntryStatus struct {
	Target          topology.Target `json:"target"`
	Live            bool            `json:"live"`
	Error           string          `json:"error,omitempty"`
	OpenConnections int             `json:"openConnections"`
	InUse           int             `json:"inUse"`
}

// Registry owns the pools of every shard that has been ensured.
//
// Pools are created lazily and at most once per target path. Concurrent requests
// for the same new path share a single connection attempt; the outcome (a pool or
// a *PoolCreationError) is stored under the path and returned to all of them.
type Registry struct {
	topology  *topology.Topology
	connector Connector
	opts      PoolOptions
	ledger    *Ledger
	observer  observability.Observer
	logger    Logger

	mu       sync.RWMutex
	entries  map[topology.Target]entry
	closed   bool
	inflight sync.WaitGroup
	flights  singleflight.Group
}

// NewRegistry creates an empty registry over topo. Pools are opened through connector
// with the settings in cfg.Pool.
func NewRegistry(topo *topology.Topology, connector Connector, cfg Config) *Registry {
	return &Registry{
		topology:  topo,
		connector: connector,
		opts:      cfg.Pool.withDefaults(),
		ledger:    NewLedger(cfg.LedgerHistory),
		entries:   make(map[topology.Target]entry),
	}
}

// WithObserver attaches an observer for observability hooks and returns r for chaining.
func (r *Registry) WithObserver(observer observability.Observer) *Registry {
	r.observer = observer
	return r
}

// WithLogger attaches a logger for pool lifecycle events and returns r for chaining.
func (r *Registry) WithLogger(logger Logger) *Registry {
	r.logger = logger
	return r
}

// Topology returns the static topology the registry resolves against.
func (r *Registry) Topology() *topology.Topology {
	return r.topology
}

// Ledger returns the read-only error history.
func (r *Registry) Ledger() ErrorLog {
	return r.ledger
}

// EnsureOption narrows or widens an Ensure call.
type EnsureOption func(*ensureOptions)

type ensureOptions struct {
	zone         string
	forceRefresh bool
}

// WithZone restricts Ensure to the shards of one zone.
func WithZone(zone string) EnsureOption {
	return func(o *ensureOptions) {
		o.zone = zone
	}
}

// WithForceRefresh makes Ensure re-attempt targets whose previous creation failed.
// Live pools are never recreated.
func WithForceRefresh() EnsureOption {
	return func(o *ensureOptions) {
		o.forceRefresh = true
	}
}

// Ensure guarantees that every shard under env/category (or under one zone, with
// WithZone) has a registry entry. Shards without an entry are connected; shards
// that already have one, live or failed, are left alone unless WithForceRefresh
// is given, in which case failed shards are attempted again.
//
// It returns true if at least one connection attempt was made. Individual shard
// failures are recorded in the registry, not returned; the error result is
// reserved for unknown env/category/zone names (*ConfigNotFoundError), a closed
// registry and cancellation of ctx.
func (r *Registry) Ensure(ctx context.Context, env, category string, opts ...EnsureOption) (bool, error) {
	o := ensureOptions{}
	for _, opt := range opts {
		opt(&o)
	}

	if r.isClosed() {
		return false, ErrRegistryClosed
	}

	start := time.Now()
	targets, err := r.topology.Targets(env, category, o.zone)
	if err != nil {
		observeOperation(r.observer, "ensure", env+"."+category, time.Since(start), err, 0, nil)
		return false, err
	}

	var attempted atomic.Bool
	g := errgroup.Group{}
	g.SetLimit(createConcurrency)
	for _, target := range targets {
		if !r.needsAttempt(target, o.forceRefresh) {
			continue
		}
		g.Go(func() error {
			_, created, err := r.materialize(ctx, target, o.forceRefresh)
			if created {
				attempted.Store(true)
			}
			return err
		})
	}
	err = g.Wait()

	observeOperation(r.observer, "ensure", env+"."+category, time.Since(start), err, int64(len(targets)), map[string]interface{}{
		"zone":          o.zone,
		"force_refresh": o.forceRefresh,
		"attempted":     attempted.Load(),
	})
	return attempted.Load(), err
}

// EnsureShard guarantees a live pool for a single target and returns it.
// Unlike Ensure it retries a target whose previous creation failed, and it
// propagates the outcome: *ConfigNotFoundError if the target is not in the
// topology, *PoolCreationError if connecting failed.
func (r *Registry) EnsureShard(ctx context.Context, target topology.Target) (*Pool, error) {
	target = target.Normalize()
	if _, err := r.topology.Resolve(target); err != nil {
		return nil, err
	}

	e, _, err := r.materialize(ctx, target, true)
	if err != nil {
		return nil, err
	}
	if e.err != nil {
		return nil, e.err
	}
	return e.pool, nil
}

// Get returns the live pool for target, or a *PoolUnavailableError if the target
// was never ensured or its creation failed.
func (r *Registry) Get(target topology.Target) (*Pool, error) {
	target = target.Normalize()

	r.mu.RLock()
	e, ok := r.entries[target]
	closed := r.closed
	r.mu.RUnlock()

	switch {
	case closed:
		return nil, &PoolUnavailableError{Target: target, Cause: ErrRegistryClosed}
	case !ok:
		return nil, &PoolUnavailableError{Target: target}
	case e.err != nil:
		return nil, &PoolUnavailableError{Target: target, Cause: e.err}
	default:
		return e.pool, nil
	}
}

// Lookup returns the tagged entry for target. ok is false when there is no entry.
func (r *Registry) Lookup(target topology.Target) (pool *Pool, creationErr error, ok bool) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	e, ok := r.entries[target.Normalize()]
	if !ok {
		return nil, nil, false
	}
	if e.err != nil {
		return nil, e.err, true
	}
	return e.pool, nil, true
}

// Targets lists every registered target under env/category, live or failed, sorted.
func (r *Registry) Targets(env, category string) []topology.Target {
	prefix := topology.Target{Env: env, Category: category}.Normalize()

	r.mu.RLock()
	targets := make([]topology.Target, 0, len(r.entries))
	for t := range r.entries {
		if t.Env == prefix.Env && t.Category == prefix.Category {
			targets = append(targets, t)
		}
	}
	r.mu.RUnlock()

	topology.SortTargets(targets)
	return targets
}

// Snapshot describes every registry entry, sorted by target.
func (r *Registry) Snapshot() []EntryStatus {
	r.mu.RLock()
	statuses := make([]EntryStatus, 0, len(r.entries))
	for t, e := range r.entries {
		status := EntryStatus{Target: t}
		if e.err != nil {
			status.Error = e.err.Error()
		} else {
			stats := e.pool.Stats()
			status.Live = true
			status.OpenConnections = stats.OpenConnections
			status.InUse = stats.InUse
		}
		statuses = append(statuses, status)
	}
	r.mu.RUnlock()

	targets := make([]topology.Target, len(statuses))
	byTarget := make(map[topology.Target]EntryStatus, len(statuses))
	for i, s := range statuses {
		targets[i] = s.Target
		byTarget[s.Target] = s
	}
	topology.SortTargets(targets)
	for i, t := range targets {
		statuses[i] = byTarget[t]
	}
	return statuses
}

// Close closes every live pool and rejects further Ensure calls. Connection
// attempts already in flight are waited for, and their pools closed too.
func (r *Registry) Close() error {
	r.mu.Lock()
	if r.closed {
		r.mu.Unlock()
		return nil
	}
	r.closed = true
	r.mu.Unlock()

	r.inflight.Wait()

	r.mu.Lock()
	entries := r.entries
	r.entries = make(map[topology.Target]entry)
	r.mu.Unlock()

	var errs []error
	for t, e := range entries {
		if e.pool == nil {
			continue
		}
		if err := e.pool.Close(); err != nil {
			logError(context.Background(), r.logger, "Failed to close shard pool", err, map[string]interface{}{
				"target": t.String(),
			})
			errs = append(errs, err)
		}
	}

	logInfo(context.Background(), r.logger, "Closed shard pools", map[string]interface{}{
		"pools": len(entries),
	})
	return errors.Join(errs...)
}

func (r *Registry) isClosed() bool {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return r.closed
}

func (r *Registry) needsAttempt(target topology.Target, retryFailed bool) bool {
	r.mu.RLock()
	defer r.mu.RUnlock()

	e, ok := r.entries[target]
	return !ok || (retryFailed && e.err != nil)
}

// materialize returns the entry for target, connecting first when the target has
// no entry, or has a failed one and retryFailed is set. All concurrent callers for
// one target share a single flight; the entry is re-checked inside the flight so a
// flight that starts after another one stored a pool does not connect again.
//
// The connection attempt runs on a context detached from ctx: a caller that gives
// up only stops waiting, the attempt completes and its outcome is stored.
func (r *Registry) materialize(ctx context.Context, target topology.Target, retryFailed bool) (entry, bool, error) {
	type flightResult struct {
		entry   entry
		created bool
	}

	detached := context.WithoutCancel(ctx)
	ch := r.flights.DoChan(flightKey(target), func() (interface{}, error) {
		r.mu.Lock()
		if r.closed {
			r.mu.Unlock()
			return nil, ErrRegistryClosed
		}
		if e, ok := r.entries[target]; ok && (e.pool != nil || !retryFailed) {
			r.mu.Unlock()
			return flightResult{entry: e}, nil
		}
		r.inflight.Add(1)
		r.mu.Unlock()
		defer r.inflight.Done()

		return flightResult{entry: r.create(detached, target), created: true}, nil
	})

	select {
	case res := <-ch:
		if res.Err != nil {
			return entry{}, false, res.Err
		}
		fr := res.Val.(flightResult)
		return fr.entry, fr.created, nil
	case <-ctx.Done():
		return entry{}, false, ctx.Err()
	}
}

// flightKey identifies target for singleflight. Components are NUL-separated so
// distinct paths never share a key, whatever characters their names contain.
func flightKey(target topology.Target) string {
	return strings.Join([]string{target.Env, target.Category, target.Zone, target.Shard}, "\x00")
}

// create runs the connector for target and stores the outcome.
func (r *Registry) create(ctx context.Context, target topology.Target) entry {
	start := time.Now()
	fields := map[string]interface{}{"target": target.String()}

	var e entry
	shard, err := r.topology.Resolve(target)
	if err == nil {
		var pool *Pool
		pool, err = r.connector.Connect(ctx, target, shard, r.opts)
		if err == nil && pool == nil {
			err = errors.New("connector returned no pool")
		}
		e.pool = pool
	}
	if err != nil {
		e = entry{err: &PoolCreationError{Target: target, Cause: TranslateError(err)}}
	}

	r.mu.Lock()
	if r.closed {
		r.mu.Unlock()
		if e.pool != nil {
			_ = e.pool.Close()
		}
		return entry{err: &PoolCreationError{Target: target, Cause: ErrRegistryClosed}}
	}
	r.entries[target] = e
	r.mu.Unlock()

	if e.err != nil {
		r.ledger.record(target, StageCreate, e.err)
		logWarn(ctx, r.logger, "Shard pool creation failed", e.err, fields)
		observeOperation(r.observer, "create_pool", target.String(), time.Since(start), e.err, 0, nil)
		return e
	}

	logInfo(ctx, r.logger, "Shard pool created", fields)
	observeOperation(r.observer, "create_pool", target.String(), time.Since(start), nil, 0, nil)
	return e
}
