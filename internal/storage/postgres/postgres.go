// Package postgres stores the roll history audit trail in PostgreSQL.
// The roll_history table comes from the embedded migrations applied by
// cmd/migrate; this package never creates schema itself.
package postgres

import (
	"context"
	"fmt"
	"time"

	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/cory-johannsen/diceengine/internal/config"
)

// Pool is the connection pool shared by the history repository and the
// diceserver health check.
type Pool struct {
	pool *pgxpool.Pool
}

// NewPool connects to the history database described by cfg.
// Unset pool sizes and lifetimes keep the pgx defaults.
//
// Precondition: cfg.DSN() must name a reachable database.
// Postcondition: Returns a pool that has answered one ping, or an error.
func NewPool(ctx context.Context, cfg config.DatabaseConfig) (*Pool, error) {
	poolCfg, err := pgxpool.ParseConfig(cfg.DSN())
	if err != nil {
		return nil, fmt.Errorf("parsing history database dsn: %w", err)
	}
	if cfg.MaxConns > 0 {
		poolCfg.MaxConns = cfg.MaxConns
	}
	if cfg.MinConns > 0 {
		poolCfg.MinConns = cfg.MinConns
	}
	if cfg.MaxConnLifetime > 0 {
		poolCfg.MaxConnLifetime = cfg.MaxConnLifetime
	}

	pool, err := pgxpool.NewWithConfig(ctx, poolCfg)
	if err != nil {
		return nil, fmt.Errorf("opening history pool: %w", err)
	}
	if err := pool.Ping(ctx); err != nil {
		pool.Close()
		return nil, fmt.Errorf("pinging history database %s: %w", cfg.Name, err)
	}
	return &Pool{pool: pool}, nil
}

// Health pings the database, giving up after timeout. A closed pool is
// reported as unhealthy.
func (p *Pool) Health(ctx context.Context, timeout time.Duration) error {
	ctx, cancel := context.WithTimeout(ctx, timeout)
	defer cancel()
	return p.pool.Ping(ctx)
}

// Close releases every connection. Safe to call more than once.
func (p *Pool) Close() {
	p.pool.Close()
}

// DB exposes the pgx pool for NewHistoryRepository.
func (p *Pool) DB() *pgxpool.Pool {
	return p.pool
}
