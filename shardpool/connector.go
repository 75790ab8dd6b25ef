package shardpool

import (
	"context"
	"database/sql"
	"fmt"
	"time"

	"github.com/go-sql-driver/mysql"
	gormmysql "gorm.io/driver/mysql"
	"gorm.io/gorm"
	gormlogger "gorm.io/gorm/logger"

	"github.com/aalemi-dev/shardkit/topology"
)

// Connector builds the pool for one shard. Implementations must either return a
// usable pool or an error, never a pool that failed half way; the registry relies
// on that to keep creation atomic. Connectors do not retry.
type Connector interface {
	Connect(ctx context.Context, target topology.Target, shard topology.Shard, opts PoolOptions) (*Pool, error)
}

// ConnectorFunc adapts a function to the Connector interface.
type ConnectorFunc func(ctx context.Context, target topology.Target, shard topology.Shard, opts PoolOptions) (*Pool, error)

// Connect calls f.
func (f ConnectorFunc) Connect(ctx context.Context, target topology.Target, shard topology.Shard, opts PoolOptions) (*Pool, error) {
	return f(ctx, target, shard, opts)
}

// MySQLConnector opens MariaDB/MySQL shards through go-sql-driver/mysql and
// exposes a GORM handle on the same connections through Pool.ORM.
type MySQLConnector struct {
	// Loc is the location used to parse DATE/DATETIME values. Default: time.Local
	Loc *time.Location

	// TLS is the go-sql-driver TLS config name ("true", "skip-verify", ...). Empty disables TLS.
	TLS string
}

// NewMySQLConnector returns a MySQLConnector with default settings.
func NewMySQLConnector() *MySQLConnector {
	return &MySQLConnector{}
}

// BuildDSN renders the data source name for shard.
// Format: username:password@tcp(host:port)/database?charset=...&parseTime=true&loc=...&timeout=...
func (c *MySQLConnector) BuildDSN(shard topology.Shard, opts PoolOptions) string {
	opts = opts.withDefaults()

	loc := c.Loc
	if loc == nil {
		loc = time.Local
	}

	cfg := mysql.NewConfig()
	cfg.User = shard.Username
	cfg.Passwd = shard.Password
	cfg.Net = "tcp"
	cfg.Addr = shard.Address()
	cfg.DBName = shard.Database
	cfg.ParseTime = true
	cfg.Loc = loc
	cfg.Timeout = opts.ConnectTimeout
	cfg.TLSConfig = c.TLS
	cfg.Params = map[string]string{"charset": opts.Charset}
	return cfg.FormatDSN()
}

// Connect opens and warms the shard's pool, then attaches a GORM handle to it.
func (c *MySQLConnector) Connect(ctx context.Context, target topology.Target, shard topology.Shard, opts PoolOptions) (*Pool, error) {
	db, err := sql.Open("mysql", c.BuildDSN(shard, opts))
	if err != nil {
		return nil, fmt.Errorf("failed to open MariaDB/MySQL shard %s: %w", shard.Address(), err)
	}

	pool := NewPool(target, db, opts)
	if err := pool.warm(ctx); err != nil {
		return nil, fmt.Errorf("failed to connect to MariaDB/MySQL shard %s: %w", shard.Address(), err)
	}

	orm, err := gorm.Open(
		gormmysql.New(gormmysql.Config{
			Conn:                      db,
			SkipInitializeWithVersion: true,
		}),
		&gorm.Config{
			TranslateError:       true,
			DisableAutomaticPing: true,
			Logger:               gormlogger.Default.LogMode(gormlogger.Silent),
		})
	if err != nil {
		_ = pool.Close()
		return nil, fmt.Errorf("failed to attach GORM to shard %s: %w", shard.Address(), err)
	}
	pool.orm = orm

	return pool, nil
}

// SQLConnector opens shards through any registered database/sql driver.
type SQLConnector struct {
	// Driver is the database/sql driver name, e.g. "mysql" or "sqlite"
	Driver string

	// DSN renders the data source name for a shard
	DSN func(target topology.Target, shard topology.Shard, opts PoolOptions) string
}

// Connect opens and warms the shard's pool.
func (c *SQLConnector) Connect(ctx context.Context, target topology.Target, shard topology.Shard, opts PoolOptions) (*Pool, error) {
	db, err := sql.Open(c.Driver, c.DSN(target, shard, opts))
	if err != nil {
		return nil, fmt.Errorf("failed to open %s shard: %w", c.Driver, err)
	}

	pool := NewPool(target, db, opts)
	if err := pool.warm(ctx); err != nil {
		return nil, fmt.Errorf("failed to connect to %s shard: %w", c.Driver, err)
	}
	return pool, nil
}
