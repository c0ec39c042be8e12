// Package dbpool owns the PostgreSQL connection pool shared by the stores,
// the migration runner and the notification bridge.
package dbpool

import (
	"context"
	"fmt"
	"strconv"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/jackc/pgx/v5/pgxpool"
)

// Pool tuning. Moderation writes are short transactions, so connections are
// recycled aggressively.
const (
	DefaultMaxConns  = 20
	minConns         = 2
	statementTimeout = 30 * time.Second
	connLifetime     = 30 * time.Minute
	connIdleTime     = 5 * time.Minute
	healthPeriod     = 30 * time.Second
	applicationName  = "mediate"
)

// Pool wraps a pgxpool.Pool. The underlying pool is unexported so that stores
// go through their own timeout and transaction helpers.
type Pool struct {
	pool *pgxpool.Pool
}

// NewPool connects to databaseURL. maxConns bounds query connections; one
// extra connection is reserved for the LISTEN/NOTIFY bridge.
func NewPool(ctx context.Context, databaseURL string, maxConns int) (*Pool, error) {
	cfg, err := pgxpool.ParseConfig(databaseURL)
	if err != nil {
		return nil, fmt.Errorf("parsing database URL: %w", err)
	}

	if maxConns <= 0 {
		maxConns = DefaultMaxConns
	}

	params := cfg.ConnConfig.RuntimeParams
	params["statement_timeout"] = strconv.FormatInt(statementTimeout.Milliseconds(), 10)
	params["application_name"] = applicationName

	cfg.MaxConns = int32(maxConns + 1) //nolint:gosec // bounded by config validation.
	cfg.MinConns = minConns
	cfg.MaxConnLifetime = connLifetime
	cfg.MaxConnIdleTime = connIdleTime
	cfg.HealthCheckPeriod = healthPeriod

	pool, err := pgxpool.NewWithConfig(ctx, cfg)
	if err != nil {
		return nil, fmt.Errorf("creating connection pool: %w", err)
	}

	if err := pool.Ping(ctx); err != nil {
		pool.Close()

		return nil, fmt.Errorf("pinging database: %w", err)
	}

	return &Pool{pool: pool}, nil
}

// Acquire returns a dedicated connection from the pool.
func (p *Pool) Acquire(ctx context.Context) (*pgxpool.Conn, error) {
	return p.pool.Acquire(ctx)
}

// Exec runs sql outside a transaction.
func (p *Pool) Exec(ctx context.Context, sql string, arguments ...any) (pgconn.CommandTag, error) {
	return p.pool.Exec(ctx, sql, arguments...)
}

func (p *Pool) QueryRow(ctx context.Context, sql string, args ...any) pgx.Row {
	return p.pool.QueryRow(ctx, sql, args...)
}

// BeginTx starts a transaction with the given options.
func (p *Pool) BeginTx(ctx context.Context, txOptions pgx.TxOptions) (pgx.Tx, error) { //nolint:gocritic // matching pgxpool.Pool signature.
	return p.pool.BeginTx(ctx, txOptions)
}

// Ping verifies the pool can reach the database.
func (p *Pool) Ping(ctx context.Context) error {
	return p.pool.Ping(ctx)
}

// HealthCheck runs a trivial query.
func (p *Pool) HealthCheck(ctx context.Context) error {
	var result int

	if err := p.pool.QueryRow(ctx, "SELECT 1").Scan(&result); err != nil {
		return fmt.Errorf("health check query: %w", err)
	}

	return nil
}

// ConnString returns the connection string used to create the pool.
func (p *Pool) ConnString() string {
	return p.pool.Config().ConnString()
}

// Usage reports acquired, idle and total connections. It feeds the pool
// gauges in package metrics.
func (p *Pool) Usage() (acquired, idle, total int32) {
	st := p.pool.Stat()

	return st.AcquiredConns(), st.IdleConns(), st.TotalConns()
}

// Close waits for acquired connections to be released, then closes the pool.
func (p *Pool) Close() {
	p.pool.Close()
}
