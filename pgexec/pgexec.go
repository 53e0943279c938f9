// Package pgexec fetches execution plans from a live Postgres server.
// Connection lifecycle, statement timeout, and retry policy live
// here; the transform pipeline never touches the network.
package pgexec

import (
	"context"
	"errors"
	"fmt"
	"strconv"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
)

const (
	DefaultStatementTimeout = 5 * time.Second
	DefaultMaxAttempts      = 3
	DefaultRetryDelay       = 10 * time.Second
)

// retryableCodes are the SQLSTATEs worth another attempt: a statement
// timeout, or an undefined table/column which may be a transient
// schema race.
var retryableCodes = map[string]struct{}{
	"57014": {}, // query_canceled
	"42P01": {}, // undefined_table
	"42703": {}, // undefined_column
}

type Config struct {
	// DSN in any form pgx accepts (URL or key/value).
	DSN string
	// StatementTimeout bounds each EXPLAIN execution server-side.
	StatementTimeout time.Duration
	MaxAttempts      int
	RetryDelay       time.Duration
}

func (cfg Config) withDefaults() Config {
	if cfg.StatementTimeout <= 0 {
		cfg.StatementTimeout = DefaultStatementTimeout
	}
	if cfg.MaxAttempts <= 0 {
		cfg.MaxAttempts = DefaultMaxAttempts
	}
	if cfg.RetryDelay <= 0 {
		cfg.RetryDelay = DefaultRetryDelay
	}
	return cfg
}

// Client is one open connection used to run EXPLAIN statements.
type Client struct {
	conn        *pgx.Conn
	maxAttempts int
	retryDelay  time.Duration
}

// Connect opens a connection with the statement timeout applied as a
// session runtime parameter. It does not retry; a server that is not
// reachable at startup is surfaced immediately.
func Connect(ctx context.Context, cfg Config) (*Client, error) {
	cfg = cfg.withDefaults()

	connCfg, err := pgx.ParseConfig(cfg.DSN)
	if err != nil {
		return nil, fmt.Errorf("invalid DSN: %w", err)
	}
	connCfg.RuntimeParams["statement_timeout"] = strconv.FormatInt(cfg.StatementTimeout.Milliseconds(), 10)

	conn, err := pgx.ConnectConfig(ctx, connCfg)
	if err != nil {
		return nil, fmt.Errorf("connect: %w", err)
	}
	return &Client{
		conn:        conn,
		maxAttempts: cfg.MaxAttempts,
		retryDelay:  cfg.RetryDelay,
	}, nil
}

func (c *Client) Close(ctx context.Context) error {
	return c.conn.Close(ctx)
}

// Explain runs EXPLAIN (ANALYZE, FORMAT JSON) over the query and
// returns the raw plan document. ANALYZE executes the statement, so
// each attempt runs in a transaction that is always rolled back; an
// UPDATE being explained must not modify data. Retryable failures are
// attempted up to MaxAttempts times with a fixed delay; anything else
// fails immediately.
func (c *Client) Explain(ctx context.Context, query string) ([]byte, error) {
	stmt := "EXPLAIN (ANALYZE, FORMAT JSON) " + query

	var lastErr error
	for attempt := 0; attempt < c.maxAttempts; attempt++ {
		if attempt > 0 {
			select {
			case <-ctx.Done():
				return nil, ctx.Err()
			case <-time.After(c.retryDelay):
			}
		}

		plan, err := c.explainOnce(ctx, stmt)
		if err == nil {
			return plan, nil
		}
		if !isRetryable(err) {
			return nil, fmt.Errorf("explain: %w", err)
		}
		lastErr = err
	}
	return nil, fmt.Errorf("explain failed after %d attempts: %w", c.maxAttempts, lastErr)
}

func (c *Client) explainOnce(ctx context.Context, stmt string) ([]byte, error) {
	tx, err := c.conn.Begin(ctx)
	if err != nil {
		return nil, err
	}
	defer func() { _ = tx.Rollback(ctx) }()

	var plan []byte
	if err := tx.QueryRow(ctx, stmt).Scan(&plan); err != nil {
		return nil, err
	}
	return plan, nil
}

func isRetryable(err error) bool {
	var pgErr *pgconn.PgError
	if !errors.As(err, &pgErr) {
		return false
	}
	_, ok := retryableCodes[pgErr.Code]
	return ok
}
