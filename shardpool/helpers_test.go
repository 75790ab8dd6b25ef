package shardpool

import (
	"context"
	"errors"
	"path/filepath"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/require"
	_ "modernc.org/sqlite"

	"github.com/aalemi-dev/shardkit/observability"
	"github.com/aalemi-dev/shardkit/topology"
	"github.com/aalemi-dev/shardkit/tracer"
)

// unreachableHost marks shards the test connector refuses to open.
const unreachableHost = "unreachable"

func testTopology(t *testing.T) *topology.Topology {
	t.Helper()
	topo, err := topology.New(topology.Map{
		"prod": {
			"orders": {
				"r1": {
					"s0": {Host: "10.0.0.10", Port: 3306, Username: "app", Password: "pw", Database: "orders"},
					"s1": {Host: unreachableHost, Port: 3306, Username: "app", Password: "pw", Database: "orders"},
				},
				"r2": {
					"s2": {Host: "10.0.0.12", Port: 3306, Username: "app", Password: "pw", Database: "orders"},
				},
			},
		},
		"sit": {
			"orders": {
				"r1": {
					"s0": {Host: "10.1.0.10", Port: 3306, Database: "orders"},
				},
			},
		},
	})
	require.NoError(t, err)
	return topo
}

// testConnector opens every shard as its own sqlite file and counts Connect calls.
// Shards whose host is unreachableHost fail with "connect failed" unless healed.
type testConnector struct {
	sqlite *SQLConnector
	calls  atomic.Int64
	healed atomic.Bool

	// gate, when set, blocks Connect until it is closed
	gate  chan struct{}
	delay time.Duration
}

func newTestConnector(t *testing.T) *testConnector {
	t.Helper()
	dir := t.TempDir()
	return &testConnector{
		sqlite: &SQLConnector{
			Driver: "sqlite",
			DSN: func(target topology.Target, _ topology.Shard, _ PoolOptions) string {
				return filepath.Join(dir, target.String()+".db")
			},
		},
	}
}

func (c *testConnector) Connect(ctx context.Context, target topology.Target, shard topology.Shard, opts PoolOptions) (*Pool, error) {
	c.calls.Add(1)
	if c.gate != nil {
		<-c.gate
	}
	if c.delay > 0 {
		time.Sleep(c.delay)
	}
	if shard.Host == unreachableHost && !c.healed.Load() {
		return nil, errors.New("connect failed")
	}
	return c.sqlite.Connect(ctx, target, shard, opts)
}

func newTestRegistry(t *testing.T, connector Connector) *Registry {
	t.Helper()
	registry := NewRegistry(testTopology(t), connector, Config{
		Pool: PoolOptions{ConnectTimeout: 5 * time.Second},
	})
	t.Cleanup(func() { _ = registry.Close() })
	return registry
}

func shardPath(env, category, zone, shard string) topology.Target {
	return topology.Target{Env: env, Category: category, Zone: zone, Shard: shard}
}

// TestObserver records every observed operation.
type TestObserver struct {
	mu         sync.Mutex
	operations []observability.OperationContext
}

func (o *TestObserver) ObserveOperation(ctx observability.OperationContext) {
	o.mu.Lock()
	defer o.mu.Unlock()
	o.operations = append(o.operations, ctx)
}

func (o *TestObserver) GetOperations() []observability.OperationContext {
	o.mu.Lock()
	defer o.mu.Unlock()
	out := make([]observability.OperationContext, len(o.operations))
	copy(out, o.operations)
	return out
}

func (o *TestObserver) byOperation(operation string) []observability.OperationContext {
	var out []observability.OperationContext
	for _, op := range o.GetOperations() {
		if op.Operation == operation {
			out = append(out, op)
		}
	}
	return out
}

type logEntry struct {
	level string
	msg   string
	err   error
}

// TestLogger records log calls.
type TestLogger struct {
	mu      sync.Mutex
	entries []logEntry
}

func (l *TestLogger) add(level, msg string, err error) {
	l.mu.Lock()
	defer l.mu.Unlock()
	l.entries = append(l.entries, logEntry{level: level, msg: msg, err: err})
}

func (l *TestLogger) InfoWithContext(_ context.Context, msg string, err error, _ ...map[string]interface{}) {
	l.add("info", msg, err)
}

func (l *TestLogger) WarnWithContext(_ context.Context, msg string, err error, _ ...map[string]interface{}) {
	l.add("warn", msg, err)
}

func (l *TestLogger) ErrorWithContext(_ context.Context, msg string, err error, _ ...map[string]interface{}) {
	l.add("error", msg, err)
}

func (l *TestLogger) levels() []string {
	l.mu.Lock()
	defer l.mu.Unlock()
	out := make([]string, len(l.entries))
	for i, e := range l.entries {
		out[i] = e.level
	}
	return out
}

// recordingTracer is a tracer.Tracer that keeps every span it starts.
type recordingTracer struct {
	mu    sync.Mutex
	spans []*recordingSpan
}

type recordingSpan struct {
	name  string
	ended atomic.Bool
	err   atomic.Bool
}

func (s *recordingSpan) End()                                 { s.ended.Store(true) }
func (s *recordingSpan) SetAttributes(map[string]interface{}) {}
func (s *recordingSpan) RecordError(error)                    { s.err.Store(true) }

func (r *recordingTracer) StartSpan(ctx context.Context, name string) (context.Context, tracer.Span) {
	span := &recordingSpan{name: name}
	r.mu.Lock()
	r.spans = append(r.spans, span)
	r.mu.Unlock()
	return ctx, span
}

func (r *recordingTracer) GetCarrier(context.Context) map[string]string { return map[string]string{} }

func (r *recordingTracer) SetCarrierOnContext(ctx context.Context, _ map[string]string) context.Context {
	return ctx
}

func (r *recordingTracer) names() []string {
	r.mu.Lock()
	defer r.mu.Unlock()
	out := make([]string, len(r.spans))
	for i, s := range r.spans {
		out[i] = s.name
	}
	return out
}

func (r *recordingTracer) ended() int {
	r.mu.Lock()
	defer r.mu.Unlock()
	n := 0
	for _, s := range r.spans {
		if s.ended.Load() {
			n++
		}
	}
	return n
}

func (r *recordingTracer) errors() int {
	r.mu.Lock()
	defer r.mu.Unlock()
	n := 0
	for _, s := range r.spans {
		if s.err.Load() {
			n++
		}
	}
	return n
}
