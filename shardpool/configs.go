package shardpool

import (
	"context"
	"time"
)

// Defaults applied to zero-valued PoolOptions fields.
const (
	DefaultMinConns        = 1
	DefaultMaxConns        = 10
	DefaultConnectTimeout  = 60 * time.Second
	DefaultRecycleInterval = time.Hour
	DefaultCharset         = "utf8mb4"
	DefaultLedgerHistory   = 32
)

// Config represents the configuration of the shard pool manager.
type Config struct {
	// Pool contains the settings applied to every shard pool
	Pool PoolOptions `yaml:"pool" mapstructure:"pool"`

	// LedgerHistory bounds how many errors are kept per target.
	// If set to 0, DefaultLedgerHistory is used.
	LedgerHistory int `yaml:"ledger_history" mapstructure:"ledger_history" envconfig:"SHARDPOOL_LEDGER_HISTORY"`
}

// PoolOptions holds the settings for one shard's connection pool.
// They are shared by every shard; per-shard values come from the topology.
type PoolOptions struct {
	// MinConns is the number of connections kept open while idle.
	// The pool is only published after at least one connection was established.
	// If set to 0, DefaultMinConns is used.
	MinConns int `yaml:"min_conns" mapstructure:"min_conns" envconfig:"SHARDPOOL_MIN_CONNS"`

	// MaxConns bounds the number of open connections per shard.
	// Acquisition waits for a free connection once the bound is reached.
	// If set to 0, DefaultMaxConns is used.
	MaxConns int `yaml:"max_conns" mapstructure:"max_conns" envconfig:"SHARDPOOL_MAX_CONNS"`

	// ConnectTimeout limits both dialing a shard and waiting for a free pooled connection.
	// If set to 0, DefaultConnectTimeout is used.
	ConnectTimeout time.Duration `yaml:"connect_timeout" mapstructure:"connect_timeout" envconfig:"SHARDPOOL_CONNECT_TIMEOUT"`

	// RecycleInterval is the maximum amount of time a connection may be reused.
	// If set to 0, DefaultRecycleInterval is used.
	RecycleInterval time.Duration `yaml:"recycle_interval" mapstructure:"recycle_interval" envconfig:"SHARDPOOL_RECYCLE_INTERVAL"`

	// Charset is the character set negotiated on every connection.
	// Default: "utf8mb4"
	Charset string `yaml:"charset" mapstructure:"charset" envconfig:"SHARDPOOL_CHARSET"`
}

// withDefaults returns a copy of o with zero fields replaced by package defaults.
func (o PoolOptions) withDefaults() PoolOptions {
	if o.MinConns <= 0 {
		o.MinConns = DefaultMinConns
	}
	if o.MaxConns <= 0 {
		o.MaxConns = DefaultMaxConns
	}
	if o.MinConns > o.MaxConns {
		o.MinConns = o.MaxConns
	}
	if o.ConnectTimeout <= 0 {
		o.ConnectTimeout = DefaultConnectTimeout
	}
	if o.RecycleInterval <= 0 {
		o.RecycleInterval = DefaultRecycleInterval
	}
	if o.Charset == "" {
		o.Charset = DefaultCharset
	}
	return o
}

// Logger is an interface that matches the logger.Logger interface.
// It provides context-aware structured logging with optional error and field parameters.
type Logger interface {
	// InfoWithContext logs an informational message with trace context.
	InfoWithContext(ctx context.Context, msg string, err error, fields ...map[string]interface{})

	// WarnWithContext logs a warning message with trace context.
	WarnWithContext(ctx context.Context, msg string, err error, fields ...map[string]interface{})

	// ErrorWithContext logs an error message with trace context.
	ErrorWithContext(ctx context.Context, msg string, err error, fields ...map[string]interface{})
}
