package shardpool

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"sync"

	"gorm.io/gorm"

	"github.com/aalemi-dev/shardkit/topology"
)

// Pool is the bounded set of live connections to one shard.
// A Pool is only ever handed out fully initialized: connectors publish it after
// at least MinConns connections were established.
type Pool struct {
	target topology.Target
	db     *sql.DB
	orm    *gorm.DB
	opts   PoolOptions

	closeOnce sync.Once
	closeErr  error
}

// NewPool wraps db, applying the pool bounds from opts. It does not contact the shard;
// connectors call warm before publishing the pool.
func NewPool(target topology.Target, db *sql.DB, opts PoolOptions) *Pool {
	opts = opts.withDefaults()
	db.SetMaxOpenConns(opts.MaxConns)
	db.SetMaxIdleConns(opts.MaxConns)
	db.SetConnMaxLifetime(opts.RecycleInterval)
	return &Pool{
		target: target.Normalize(),
		db:     db,
		opts:   opts,
	}
}

// Target returns the shard this pool connects to.
func (p *Pool) Target() topology.Target {
	return p.target
}

// DB returns the underlying *sql.DB.
func (p *Pool) DB() *sql.DB {
	return p.db
}

// ORM returns the GORM handle sharing this pool's connections, or nil when the
// pool was not opened through a GORM dialector.
func (p *Pool) ORM() *gorm.DB {
	return p.orm
}

// Options returns the effective pool settings.
func (p *Pool) Options() PoolOptions {
	return p.opts
}

// Stats returns the database/sql pool statistics.
func (p *Pool) Stats() sql.DBStats {
	return p.db.Stats()
}

// Acquire takes one connection out of the pool, waiting at most ConnectTimeout
// for a free one. The caller owns the connection and must Close it to return it.
func (p *Pool) Acquire(ctx context.Context) (*sql.Conn, error) {
	acquireCtx, cancel := context.WithTimeout(ctx, p.opts.ConnectTimeout)
	defer cancel()

	conn, err := p.db.Conn(acquireCtx)
	if err != nil {
		if errors.Is(err, context.DeadlineExceeded) && ctx.Err() == nil {
			return nil, fmt.Errorf("%w after %s: %w", ErrAcquireTimeout, p.opts.ConnectTimeout, err)
		}
		return nil, err
	}
	return conn, nil
}

// Close closes every connection of the pool. It is safe to call more than once.
func (p *Pool) Close() error {
	p.closeOnce.Do(func() {
		p.closeErr = p.db.Close()
	})
	return p.closeErr
}

// warm establishes MinConns connections, pinging each, then returns them to the pool.
// A failure closes the whole pool so that nothing half-initialized escapes.
func (p *Pool) warm(ctx context.Context) error {
	ctx, cancel := context.WithTimeout(ctx, p.opts.ConnectTimeout)
	defer cancel()

	conns := make([]*sql.Conn, 0, p.opts.MinConns)
	release := func() {
		for _, c := range conns {
			_ = c.Close()
		}
	}

	for i := 0; i < p.opts.MinConns; i++ {
		conn, err := p.db.Conn(ctx)
		if err == nil {
			err = conn.PingContext(ctx)
			if err != nil {
				_ = conn.Close()
			}
		}
		if err != nil {
			release()
			_ = p.Close()
			return err
		}
		conns = append(conns, conn)
	}

	release()
	return nil
}
