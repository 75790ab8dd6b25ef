package shardpool

import (
	"context"
	"encoding/json"
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/goleak"
)

func newTestDispatcher(t *testing.T) (*Dispatcher, *testConnector) {
	t.Helper()
	connector := newTestConnector(t)
	return NewDispatcher(newTestRegistry(t, connector)), connector
}

func TestBroadcastEndToEnd(t *testing.T) {
	defer goleak.VerifyNone(t, goleak.IgnoreCurrent())

	connector := newTestConnector(t)
	registry := NewRegistry(testTopology(t), connector, Config{})
	dispatcher := NewDispatcher(registry)

	outcomes, err := dispatcher.ExecuteZone(context.Background(), "prod", "orders", "r1", "SELECT 1")
	require.NoError(t, err)
	require.Len(t, outcomes, 2)

	ok, isResult := outcomes[0].(*ExecutionResult)
	require.True(t, isResult)
	assert.Equal(t, "prod.orders.r1.s0", ok.Path().String())
	assert.Equal(t, []map[string]any{{"1": int64(1)}}, ok.Rows)
	assert.NoError(t, ok.Err())

	failed, isRecord := outcomes[1].(*ErrorRecord)
	require.True(t, isRecord)
	assert.Equal(t, "prod.orders.r1.s1", failed.Path().String())
	assert.ErrorIs(t, failed.Err(), ErrPoolUnavailable)
	assert.Contains(t, failed.Err().Error(), "connect failed")

	encoded, err := json.Marshal(outcomes)
	require.NoError(t, err)
	assert.JSONEq(t, `[
		{"env":"prod","category":"orders","zone":"r1","shardName":"s0","data":[{"1":1}]},
		{"env":"prod","category":"orders","zone":"r1","shardName":"s1","error":"no live pool for [prod.orders.r1.s1]: create pool for [prod.orders.r1.s1]: connect failed"}
	]`, string(encoded))

	require.NoError(t, dispatcher.Close())
}

func TestBroadcastOneOutcomePerShard(t *testing.T) {
	t.Parallel()
	dispatcher, connector := newTestDispatcher(t)

	outcomes, err := dispatcher.ExecuteBroadcast(context.Background(), "prod", "orders", "SELECT 1 AS one")
	require.NoError(t, err)
	require.Len(t, outcomes, 3)
	assert.Equal(t, int64(3), connector.calls.Load())

	results, failures := Split(outcomes)
	assert.Len(t, results, 2)
	require.Len(t, failures, 1)
	assert.Equal(t, "s1", failures[0].Target.Shard)

	for _, r := range results {
		assert.Equal(t, []map[string]any{{"one": int64(1)}}, r.Rows)
	}

	_, err = dispatcher.ExecuteBroadcast(context.Background(), "prod", "orders", "SELECT 1 AS one")
	require.NoError(t, err)
	assert.Equal(t, int64(3), connector.calls.Load(), "broadcasts reuse existing entries")
}

func TestBroadcastUnknownConfig(t *testing.T) {
	t.Parallel()
	dispatcher, connector := newTestDispatcher(t)

	_, err := dispatcher.ExecuteBroadcast(context.Background(), "qa", "orders", "SELECT 1")
	assert.ErrorIs(t, err, ErrConfigNotFound)

	_, err = dispatcher.ExecuteZone(context.Background(), "prod", "orders", "", "SELECT 1")
	assert.ErrorIs(t, err, ErrConfigNotFound)

	assert.Zero(t, connector.calls.Load())
}

func TestExecuteOneQueryAndMutation(t *testing.T) {
	t.Parallel()
	dispatcher, _ := newTestDispatcher(t)
	ctx := context.Background()
	s2 := shardPath("prod", "orders", "r2", "s2")

	_, err := dispatcher.Registry().EnsureShard(ctx, s2)
	require.NoError(t, err)

	created, err := dispatcher.ExecuteOne(ctx, s2, "CREATE TABLE orders (id INTEGER PRIMARY KEY, item TEXT NOT NULL, price DECIMAL(10,2))")
	require.NoError(t, err)
	require.NotNil(t, created.Count)

	inserted, err := dispatcher.ExecuteOne(ctx, s2, "INSERT INTO orders (item, price) VALUES (?, ?), (?, ?)", "pen", 1.5, "ink", 2.25)
	require.NoError(t, err)
	require.NotNil(t, inserted.Count)
	assert.Equal(t, int64(2), *inserted.Count)
	assert.Equal(t, map[string]any{"count": int64(2)}, inserted.Data())

	selected, err := dispatcher.ExecuteOne(ctx, s2, "  select id, item FROM orders ORDER BY id")
	require.NoError(t, err)
	assert.Nil(t, selected.Count)
	assert.Equal(t, []map[string]any{
		{"id": int64(1), "item": "pen"},
		{"id": int64(2), "item": "ink"},
	}, selected.Rows)

	empty, err := dispatcher.ExecuteOne(ctx, s2, "SELECT id FROM orders WHERE id > 100")
	require.NoError(t, err)
	assert.Equal(t, []map[string]any{}, empty.Data())

	returned, err := dispatcher.ExecuteOne(ctx, s2, "INSERT INTO orders (item, price) VALUES (?, ?) RETURNING id, item", "nib", 0.75)
	require.NoError(t, err)
	assert.Nil(t, returned.Count)
	assert.Equal(t, []map[string]any{{"id": int64(3), "item": "nib"}}, returned.Rows)

	counted, err := dispatcher.ExecuteOne(ctx, s2, "SELECT COUNT(*) AS n FROM orders")
	require.NoError(t, err)
	assert.Equal(t, []map[string]any{{"n": int64(3)}}, counted.Rows, "rows written with RETURNING are committed")

	deleted, err := dispatcher.ExecuteOne(ctx, s2, "DELETE FROM orders WHERE item = 'nib' RETURNING id")
	require.NoError(t, err)
	assert.Equal(t, []map[string]any{{"id": int64(3)}}, deleted.Rows)
}

func TestCloseRejectsNewExecutions(t *testing.T) {
	t.Parallel()
	dispatcher, _ := newTestDispatcher(t)
	ctx := context.Background()

	const callers = 16
	type result struct {
		outcomes []Outcome
		err      error
	}
	results := make(chan result, callers)
	for i := 0; i < callers; i++ {
		go func() {
			outcomes, err := dispatcher.ExecuteZone(ctx, "prod", "orders", "r2", "SELECT 1")
			results <- result{outcomes: outcomes, err: err}
		}()
	}
	require.NoError(t, dispatcher.Close())

	for i := 0; i < callers; i++ {
		res := <-results
		if res.err != nil {
			assert.ErrorIs(t, res.err, ErrRegistryClosed)
			continue
		}
		require.Len(t, res.outcomes, 1)
		assert.NoError(t, res.outcomes[0].Err(), "an accepted broadcast runs before the pools close")
	}

	_, err := dispatcher.ExecuteOne(ctx, shardPath("prod", "orders", "r2", "s2"), "SELECT 1")
	assert.ErrorIs(t, err, ErrRegistryClosed)
	assert.ErrorIs(t, dispatcher.begin(), ErrRegistryClosed)
}

func TestExecuteOneErrors(t *testing.T) {
	t.Parallel()
	dispatcher, connector := newTestDispatcher(t)
	ctx := context.Background()

	_, err := dispatcher.ExecuteOne(ctx, shardPath("qa", "orders", "r1", "s0"), "SELECT 1")
	require.ErrorIs(t, err, ErrConfigNotFound)
	assert.Zero(t, connector.calls.Load())

	_, err = dispatcher.ExecuteOne(ctx, shardPath("prod", "orders", "r2", "s2"), "SELECT 1")
	require.ErrorIs(t, err, ErrPoolUnavailable)
	assert.Zero(t, connector.calls.Load(), "ExecuteOne never connects")

	_, err = dispatcher.Registry().EnsureShard(ctx, shardPath("prod", "orders", "r2", "s2"))
	require.NoError(t, err)

	_, err = dispatcher.ExecuteOne(ctx, shardPath("prod", "orders", "r2", "s2"), "SELECT * FROM missing")
	require.ErrorIs(t, err, ErrExecution)
	assert.ErrorIs(t, err, ErrTableNotFound)

	var execErr *ExecutionError
	require.True(t, errors.As(err, &execErr))
	assert.Equal(t, stageExecute, execErr.Stage)

	last, ok := dispatcher.Registry().Ledger().Last(shardPath("prod", "orders", "r2", "s2"))
	require.True(t, ok)
	assert.Equal(t, StageExecute, last.Stage)

	_, err = dispatcher.ExecuteOne(ctx, shardPath("prod", "orders", "r2", "s2"), "UPDATE missing SET x = 1")
	require.ErrorIs(t, err, ErrExecution)
}

func TestExecuteOneAcquireTimeout(t *testing.T) {
	t.Parallel()
	connector := newTestConnector(t)
	registry := NewRegistry(testTopology(t), connector, Config{
		Pool: PoolOptions{MaxConns: 1, ConnectTimeout: 100 * time.Millisecond},
	})
	dispatcher := NewDispatcher(registry)
	t.Cleanup(func() { _ = dispatcher.Close() })

	s2 := shardPath("prod", "orders", "r2", "s2")
	pool, err := registry.EnsureShard(context.Background(), s2)
	require.NoError(t, err)

	held, err := pool.Acquire(context.Background())
	require.NoError(t, err)

	_, err = dispatcher.ExecuteOne(context.Background(), s2, "SELECT 1")
	require.ErrorIs(t, err, ErrAcquireTimeout)
	assert.ErrorIs(t, err, ErrExecution)
	assert.True(t, IsRetryable(err))

	require.NoError(t, held.Close())
	_, err = dispatcher.ExecuteOne(context.Background(), s2, "SELECT 1")
	assert.NoError(t, err)
}

func TestBroadcastRecoversPanics(t *testing.T) {
	t.Parallel()
	dispatcher, _ := newTestDispatcher(t)
	dispatcher.run = func(ctx context.Context, pool *Pool, query string, args []any) (*ExecutionResult, error) {
		if pool.Target().Shard == "s2" {
			panic("driver exploded")
		}
		return dispatcher.execute(ctx, pool, query, args)
	}

	outcomes, err := dispatcher.ExecuteBroadcast(context.Background(), "prod", "orders", "SELECT 1")
	require.NoError(t, err)
	require.Len(t, outcomes, 3)

	assert.NoError(t, outcomes[0].Err())
	assert.ErrorIs(t, outcomes[1].Err(), ErrPoolUnavailable)

	panicked := outcomes[2].Err()
	require.ErrorIs(t, panicked, ErrExecution)
	var execErr *ExecutionError
	require.True(t, errors.As(panicked, &execErr))
	assert.Equal(t, stagePanic, execErr.Stage)
	assert.Contains(t, panicked.Error(), "driver exploded")

	history := dispatcher.Registry().Ledger().History(shardPath("prod", "orders", "r2", "s2"))
	require.Len(t, history, 1)
	assert.Equal(t, StageExecute, history[0].Stage)
}

func TestBroadcastCallerCancellation(t *testing.T) {
	t.Parallel()
	dispatcher, _ := newTestDispatcher(t)

	_, err := dispatcher.Registry().Ensure(context.Background(), "prod", "orders")
	require.NoError(t, err)

	release := make(chan struct{})
	started := make(chan struct{}, 3)
	finished := make(chan struct{}, 3)
	dispatcher.run = func(ctx context.Context, pool *Pool, query string, args []any) (*ExecutionResult, error) {
		started <- struct{}{}
		<-release
		defer func() { finished <- struct{}{} }()
		return dispatcher.execute(ctx, pool, query, args)
	}

	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan error, 1)
	go func() {
		_, err := dispatcher.ExecuteBroadcast(ctx, "prod", "orders", "SELECT 1")
		done <- err
	}()

	<-started
	<-started
	cancel()
	assert.ErrorIs(t, <-done, context.Canceled)

	close(release)
	<-finished
	<-finished

	require.NoError(t, dispatcher.Close())
}

func TestDispatcherObservesAndTraces(t *testing.T) {
	t.Parallel()
	obs := &TestObserver{}
	log := &TestLogger{}
	spans := &recordingTracer{}
	dispatcher, _ := newTestDispatcher(t)
	dispatcher.WithObserver(obs).WithLogger(log).WithTracer(spans)

	_, err := dispatcher.ExecuteBroadcast(context.Background(), "prod", "orders", "SELECT 1")
	require.NoError(t, err)

	broadcasts := obs.byOperation("broadcast")
	require.Len(t, broadcasts, 1)
	assert.Equal(t, "prod.orders", broadcasts[0].Resource)
	assert.Equal(t, int64(3), broadcasts[0].Size)
	assert.Equal(t, 1, broadcasts[0].Metadata["failed"])

	assert.Len(t, obs.byOperation("execute"), 2)
	assert.ElementsMatch(t, []string{"shardpool.broadcast", "shardpool.shard", "shardpool.shard", "shardpool.shard"}, spans.names())
	assert.Equal(t, 4, spans.ended())
	assert.Equal(t, 1, spans.errors())
}

func TestClassify(t *testing.T) {
	t.Parallel()
	cases := []struct {
		query string
		want  statementKind
	}{
		{"SELECT 1", stmtQuery},
		{"  select * from t", stmtQuery},
		{"(SELECT 1) UNION (SELECT 2)", stmtQuery},
		{"WITH x AS (SELECT 1) SELECT * FROM x", stmtQuery},
		{"SHOW TABLES", stmtQuery},
		{"desc orders", stmtQuery},
		{"EXPLAIN SELECT 1", stmtQuery},
		{"-- comment\nSELECT 1", stmtQuery},
		{"/* hint */ SELECT 1", stmtQuery},
		{"# mysql comment\nshow databases", stmtQuery},
		{"SELECT 'x INTO y' AS label", stmtQuery},
		{"SELECT `into` FROM t", stmtQuery},
		{"SELECT id FROM t WHERE id IN (SELECT id FROM u)", stmtQuery},
		{"CALL list_orders()", stmtMutatingQuery},
		{"call archive_orders(?, ?)", stmtMutatingQuery},
		{"INSERT INTO t(x) VALUES (1) RETURNING id", stmtMutatingQuery},
		{"DELETE FROM t RETURNING *", stmtMutatingQuery},
		{"UPDATE t SET a = 1 WHERE id = 2 returning a", stmtMutatingQuery},
		{"WITH x AS (SELECT 1 AS id) INSERT INTO t SELECT id FROM x RETURNING id", stmtMutatingQuery},
		{"SELECT 1 INTO @x", stmtExec},
		{"SELECT id, item INTO @id, @item FROM orders LIMIT 1", stmtExec},
		{"INSERT INTO t VALUES (1)", stmtExec},
		{"INSERT INTO t (note) VALUES ('returning soon')", stmtExec},
		{"INSERT INTO t SELECT * FROM u", stmtExec},
		{"WITH x AS (SELECT 1 AS id) INSERT INTO t SELECT id FROM x", stmtExec},
		{"UPDATE t SET a = 1", stmtExec},
		{"DELETE FROM t", stmtExec},
		{"CREATE TABLE t (id INT)", stmtExec},
		{"SELECTED", stmtExec},
		{"", stmtExec},
		{"-- only a comment", stmtExec},
	}
	for _, tc := range cases {
		tc := tc
		t.Run(tc.query, func(t *testing.T) {
			t.Parallel()
			assert.Equal(t, tc.want, classify(tc.query))
		})
	}
}

func TestOutcomeJSON(t *testing.T) {
	t.Parallel()
	count := int64(4)
	result := &ExecutionResult{Target: shardPath("prod", "orders", "r1", "s0"), Count: &count}
	encoded, err := json.Marshal(result)
	require.NoError(t, err)
	assert.JSONEq(t, `{"env":"prod","category":"orders","zone":"r1","shardName":"s0","data":{"count":4}}`, string(encoded))

	record := &ErrorRecord{Target: shardPath("prod", "orders", "r1", "s1"), Cause: errors.New("connect failed")}
	encoded, err = json.Marshal(record)
	require.NoError(t, err)
	assert.JSONEq(t, `{"env":"prod","category":"orders","zone":"r1","shardName":"s1","error":"connect failed"}`, string(encoded))
}
