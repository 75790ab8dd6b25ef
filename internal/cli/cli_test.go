package cli

import (
	"bytes"
	"context"
	"encoding/json"
	"io"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	_ "modernc.org/sqlite"

	"github.com/aalemi-dev/shardkit/shardpool"
	"github.com/aalemi-dev/shardkit/topology"
)

const inlineConfig = `
topology:
  prod:
    orders:
      r1:
        s0: {host: 10.0.0.10, port: 3306, username: app, password: pw, database: orders}
        s1: {host: unreachable, port: 3306, username: app, password: pw, database: orders}
      r2:
        s2: {host: 10.0.0.12, port: 3306, username: app, password: pw, database: orders}
shardpool:
  pool:
    connect_timeout: 5s
log:
  level: error
`

// harness runs shardctl against sqlite files in a per-test directory.
// Shards on host "unreachable" point into a directory that does not exist.
type harness struct {
	t       *testing.T
	dir     string
	cfgPath string
}

func newHarness(t *testing.T, config string) *harness {
	t.Helper()
	dir := t.TempDir()
	cfgPath := filepath.Join(dir, "shardctl.yaml")
	require.NoError(t, os.WriteFile(cfgPath, []byte(config), 0o600))
	return &harness{t: t, dir: dir, cfgPath: cfgPath}
}

func (h *harness) connector() shardpool.Connector {
	return &shardpool.SQLConnector{
		Driver: "sqlite",
		DSN: func(target topology.Target, shard topology.Shard, _ shardpool.PoolOptions) string {
			if shard.Host == "unreachable" {
				return filepath.Join(h.dir, "missing", target.String()+".db")
			}
			return filepath.Join(h.dir, target.String()+".db")
		},
	}
}

func (h *harness) run(args ...string) (string, error) {
	h.t.Helper()
	cmd := NewRootCmd(WithConnector(h.connector()))
	var out bytes.Buffer
	cmd.SetOut(&out)
	cmd.SetErr(io.Discard)
	cmd.SetArgs(append([]string{"--config", h.cfgPath}, args...))
	err := cmd.ExecuteContext(context.Background())
	return out.String(), err
}

func decodeOutcomes(t *testing.T, out string) []map[string]any {
	t.Helper()
	var docs []map[string]any
	require.NoError(t, json.Unmarshal([]byte(out), &docs), out)
	return docs
}

func TestTopologyCommand(t *testing.T) {
	t.Parallel()
	h := newHarness(t, inlineConfig)

	out, err := h.run("topology")
	require.NoError(t, err)
	assert.Contains(t, out, "ENV")
	assert.Contains(t, out, "s0")
	assert.Contains(t, out, "s2")

	out, err = h.run("topology", "--env", "PROD", "--category", "orders", "--zone", "r2", "-o", "json")
	require.NoError(t, err)
	assert.JSONEq(t, `[{"env":"prod","category":"orders","zone":"r2","shardName":"s2"}]`, out)

	_, err = h.run("topology", "--env", "prod")
	assert.Error(t, err)

	_, err = h.run("topology", "--env", "qa", "--category", "orders")
	assert.ErrorIs(t, err, shardpool.ErrConfigNotFound)
}

func TestExecZoneReportsResultsAndFailures(t *testing.T) {
	t.Parallel()
	h := newHarness(t, inlineConfig)

	out, err := h.run("exec", "--env", "prod", "--category", "orders", "--zone", "r1", "-o", "json", "SELECT 1")
	require.ErrorIs(t, err, ErrShardsFailed)
	assert.Contains(t, err.Error(), "1 of 2")

	docs := decodeOutcomes(t, out)
	require.Len(t, docs, 2)
	assert.Equal(t, "s0", docs[0]["shardName"])
	assert.Equal(t, []any{map[string]any{"1": float64(1)}}, docs[0]["data"])
	assert.Equal(t, "s1", docs[1]["shardName"])
	assert.Contains(t, docs[1]["error"], "create pool for [prod.orders.r1.s1]")
}

func TestExecBroadcastTable(t *testing.T) {
	t.Parallel()
	h := newHarness(t, inlineConfig)

	out, err := h.run("exec", "--env", "prod", "--category", "orders", "SELECT 1")
	require.ErrorIs(t, err, ErrShardsFailed)
	assert.Contains(t, out, "prod.orders.r2.s2")
	assert.Contains(t, out, "Summary: 2 successful, 1 failed")
}

func TestExecSingleShardStatements(t *testing.T) {
	t.Parallel()
	h := newHarness(t, inlineConfig)
	shard := []string{"exec", "--env", "prod", "--category", "orders", "--zone", "r2", "--shard", "s2", "-o", "json"}

	out, err := h.run(append(shard, "CREATE TABLE items (id INTEGER, name TEXT)")...)
	require.NoError(t, err)
	docs := decodeOutcomes(t, out)
	require.Len(t, docs, 1)
	assert.Equal(t, map[string]any{"count": float64(0)}, docs[0]["data"])

	out, err = h.run(append(shard, "INSERT INTO items (id, name) VALUES (?, ?)", "7", "widget")...)
	require.NoError(t, err)
	assert.Equal(t, map[string]any{"count": float64(1)}, decodeOutcomes(t, out)[0]["data"])

	out, err = h.run(append(shard, "SELECT name FROM items WHERE id = ?", "7")...)
	require.NoError(t, err)
	assert.Equal(t, []any{map[string]any{"name": "widget"}}, decodeOutcomes(t, out)[0]["data"])
}

func TestExecSingleShardFailureIsRecord(t *testing.T) {
	t.Parallel()
	h := newHarness(t, inlineConfig)

	out, err := h.run("exec", "--env", "prod", "--category", "orders", "--zone", "r1", "--shard", "s1", "-o", "json", "SELECT 1")
	require.ErrorIs(t, err, ErrShardsFailed)
	docs := decodeOutcomes(t, out)
	require.Len(t, docs, 1)
	assert.Contains(t, docs[0]["error"], "no live pool for [prod.orders.r1.s1]")
}

func TestExecArgumentErrors(t *testing.T) {
	t.Parallel()
	h := newHarness(t, inlineConfig)

	_, err := h.run("exec", "--env", "prod", "--category", "orders", "--shard", "s0", "SELECT 1")
	assert.EqualError(t, err, "--shard requires --zone")

	_, err = h.run("exec", "--env", "prod", "--category", "orders", "--zone", "r1", "--shard", "s9", "SELECT 1")
	assert.ErrorIs(t, err, shardpool.ErrConfigNotFound)

	_, err = h.run("exec", "--env", "prod", "--category", "billing", "SELECT 1")
	assert.ErrorIs(t, err, shardpool.ErrConfigNotFound)

	_, err = h.run("exec", "--category", "orders", "SELECT 1")
	assert.ErrorContains(t, err, `required flag(s) "env" not set`)

	_, err = h.run("exec", "--env", "prod", "--category", "orders", "-o", "xml", "SELECT 1")
	assert.ErrorContains(t, err, "unknown output format")
}

func TestEnsureCommand(t *testing.T) {
	t.Parallel()
	h := newHarness(t, inlineConfig)

	out, err := h.run("ensure", "--env", "prod", "--category", "orders", "--zone", "r1", "-o", "json")
	require.ErrorIs(t, err, ErrShardsFailed)

	var statuses []shardpool.EntryStatus
	require.NoError(t, json.Unmarshal([]byte(out), &statuses))
	require.Len(t, statuses, 2)
	assert.True(t, statuses[0].Live)
	assert.Equal(t, "s0", statuses[0].Target.Shard)
	assert.False(t, statuses[1].Live)
	assert.NotEmpty(t, statuses[1].Error)

	out, err = h.run("ensure", "--env", "prod", "--category", "orders", "--zone", "r2", "--force")
	require.NoError(t, err)
	assert.Contains(t, out, "LIVE")
	assert.Contains(t, out, "prod.orders.r2.s2")
}

func TestTopologyFile(t *testing.T) {
	t.Parallel()
	dir := t.TempDir()
	topoPath := filepath.Join(dir, "topology.yaml")
	require.NoError(t, os.WriteFile(topoPath, []byte(`
sit:
  orders:
    r1:
      s0: {host: 10.1.0.10, port: 3306, databases: orders}
`), 0o600))

	h := newHarness(t, "topology_file: "+topoPath+"\n")
	out, err := h.run("topology", "-o", "json")
	require.NoError(t, err)
	assert.JSONEq(t, `[{"env":"sit","category":"orders","zone":"r1","shardName":"s0"}]`, out)
}

func TestMissingTopology(t *testing.T) {
	t.Parallel()
	h := newHarness(t, "log: {level: error}\n")
	_, err := h.run("topology")
	assert.ErrorContains(t, err, "no topology configured")
}

func TestSettingsFromFileEnvAndFlags(t *testing.T) {
	h := newHarness(t, inlineConfig)
	t.Setenv("SHARDCTL_SHARDPOOL_POOL_MAX_CONNS", "3")
	t.Setenv("SHARDCTL_TRACING_APP_ENV", "staging")

	r := &runner{viper: newViper(), cfgFile: h.cfgPath}
	require.NoError(t, r.init())

	assert.Equal(t, 3, r.settings.ShardPool.Pool.MaxConns)
	assert.Equal(t, 5*time.Second, r.settings.ShardPool.Pool.ConnectTimeout)
	assert.Equal(t, shardpool.DefaultLedgerHistory, r.settings.ShardPool.LedgerHistory)
	assert.Equal(t, "error", r.settings.Log.Level)
	assert.Equal(t, "staging", r.settings.Tracing.AppEnv)
	assert.Equal(t, "shardctl", r.settings.Tracing.ServiceName)
	require.NotNil(t, r.settings.Metrics.Address)
	assert.Empty(t, *r.settings.Metrics.Address)
	assert.Equal(t, defaultTimeout, r.settings.Timeout)
	assert.Len(t, r.topology.All(), 3)
}
