package shardpool

import (
	"context"
	"database/sql"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/aalemi-dev/shardkit/topology"
)

func TestPoolOptionsDefaults(t *testing.T) {
	t.Parallel()
	opts := PoolOptions{}.withDefaults()
	assert.Equal(t, PoolOptions{
		MinConns:        1,
		MaxConns:        10,
		ConnectTimeout:  60 * time.Second,
		RecycleInterval: time.Hour,
		Charset:         "utf8mb4",
	}, opts)

	clamped := PoolOptions{MinConns: 5, MaxConns: 2}.withDefaults()
	assert.Equal(t, 2, clamped.MinConns)
}

func TestNewPoolAppliesBounds(t *testing.T) {
	t.Parallel()
	db, err := sql.Open("sqlite", filepath.Join(t.TempDir(), "bounds.db"))
	require.NoError(t, err)

	pool := NewPool(shardPath("Prod", "orders", "r1", "s0"), db, PoolOptions{MaxConns: 3})
	t.Cleanup(func() { _ = pool.Close() })

	assert.Equal(t, "prod", pool.Target().Env)
	assert.Equal(t, 3, pool.Stats().MaxOpenConnections)
	assert.Nil(t, pool.ORM())
	assert.Equal(t, 3, pool.Options().MaxConns)
}

func TestPoolWarmOpensMinConns(t *testing.T) {
	t.Parallel()
	db, err := sql.Open("sqlite", filepath.Join(t.TempDir(), "warm.db"))
	require.NoError(t, err)

	pool := NewPool(shardPath("prod", "orders", "r1", "s0"), db, PoolOptions{MinConns: 2, MaxConns: 4})
	t.Cleanup(func() { _ = pool.Close() })

	require.NoError(t, pool.warm(context.Background()))
	stats := pool.Stats()
	assert.Equal(t, 2, stats.OpenConnections)
	assert.Equal(t, 0, stats.InUse)
}

func TestPoolCloseIsIdempotent(t *testing.T) {
	t.Parallel()
	db, err := sql.Open("sqlite", filepath.Join(t.TempDir(), "close.db"))
	require.NoError(t, err)

	pool := NewPool(shardPath("prod", "orders", "r1", "s0"), db, PoolOptions{})
	require.NoError(t, pool.Close())
	require.NoError(t, pool.Close())

	_, err = pool.Acquire(context.Background())
	assert.Error(t, err)
}

func TestMySQLConnectorBuildDSN(t *testing.T) {
	t.Parallel()
	connector := &MySQLConnector{Loc: time.UTC}
	dsn := connector.BuildDSN(topology.Shard{
		Host:     "10.0.0.10",
		Port:     3306,
		Username: "app",
		Password: "pw",
		Database: "orders",
	}, PoolOptions{ConnectTimeout: 5 * time.Second})

	assert.Contains(t, dsn, "app:pw@tcp(10.0.0.10:3306)/orders?")
	assert.Contains(t, dsn, "charset=utf8mb4")
	assert.Contains(t, dsn, "parseTime=true")
	assert.Contains(t, dsn, "timeout=5s")
}

func TestMySQLConnectorUnreachableShard(t *testing.T) {
	t.Parallel()
	connector := NewMySQLConnector()
	_, err := connector.Connect(context.Background(), shardPath("prod", "orders", "r1", "s0"), topology.Shard{
		Host:     "127.0.0.1",
		Port:     1,
		Username: "app",
		Password: "pw",
		Database: "orders",
	}, PoolOptions{ConnectTimeout: 2 * time.Second})
	require.Error(t, err)
	assert.ErrorIs(t, TranslateError(err), ErrConnectionFailed)
}

func TestSQLConnectorUnknownDriver(t *testing.T) {
	t.Parallel()
	connector := &SQLConnector{
		Driver: "no-such-driver",
		DSN:    func(topology.Target, topology.Shard, PoolOptions) string { return "" },
	}
	_, err := connector.Connect(context.Background(), shardPath("prod", "orders", "r1", "s0"), topology.Shard{}, PoolOptions{})
	assert.Error(t, err)
}
