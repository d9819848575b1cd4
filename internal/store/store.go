// Package store is the Postgres persistence layer. Its only job is holding
// shared fixed-window rate-limit counters so several API processes behind a
// load balancer enforce one limit per client. Inquiry content is never
// written here.
//
// Dependency rule: store imports ratelimit only. It never imports api,
// email, submission, or inquiry.
package store

import (
	"context"
	"database/sql"
	"fmt"
	"time"

	_ "github.com/lib/pq" // postgres driver
)

// Store holds the connection pool and the window parameters the counters are
// evaluated against. The operation file (ratelimit.go) attaches methods to
// this type.
type Store struct {
	pool *sql.DB

	window time.Duration
	max    int
	now    func() time.Time
}

// New creates a Store from a live connection pool. The pool must already be
// open and verified (see Open).
func New(pool *sql.DB, window time.Duration, max int) *Store {
	return &Store{
		pool:   pool,
		window: window,
		max:    max,
		now:    time.Now,
	}
}

// Open opens and tunes a connection pool for dsn and verifies it is reachable.
// The pool is small: each submission costs one short statement.
func Open(ctx context.Context, dsn string) (*sql.DB, error) {
	pool, err := sql.Open("postgres", dsn)
	if err != nil {
		return nil, fmt.Errorf("store: open: %w", err)
	}

	pool.SetMaxOpenConns(10)
	pool.SetMaxIdleConns(5)
	pool.SetConnMaxLifetime(5 * time.Minute)
	pool.SetConnMaxIdleTime(2 * time.Minute)

	pingCtx, cancel := context.WithTimeout(ctx, 10*time.Second)
	defer cancel()

	if err := pool.PingContext(pingCtx); err != nil {
		pool.Close()
		return nil, fmt.Errorf("store: ping: %w", err)
	}
	return pool, nil
}

// txFunc receives the transaction. Returning a non-nil error causes withTx to
// roll back.
type txFunc func(ctx context.Context, tx *sql.Tx) error

// withTx begins a transaction, passes it to fn, and commits on success or
// rolls back on any error (including panics).
func (s *Store) withTx(ctx context.Context, fn txFunc) error {
	tx, err := s.pool.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("store: begin transaction: %w", err)
	}

	defer func() {
		if p := recover(); p != nil {
			_ = tx.Rollback()
			panic(p)
		}
	}()

	if err := fn(ctx, tx); err != nil {
		if rbErr := tx.Rollback(); rbErr != nil {
			return fmt.Errorf("store: fn error: %w; rollback error: %v", err, rbErr)
		}
		return err
	}

	if err := tx.Commit(); err != nil {
		return fmt.Errorf("store: commit transaction: %w", err)
	}
	return nil
}

// schema is applied by EnsureSchema. Every statement is idempotent.
var schema = []string{
	`CREATE TABLE IF NOT EXISTS rate_limit_windows (
		client_key   TEXT        PRIMARY KEY,
		client_addr  INET,
		window_start TIMESTAMPTZ NOT NULL,
		hits         INTEGER     NOT NULL
	)`,
	`CREATE INDEX IF NOT EXISTS rate_limit_windows_start_idx
		ON rate_limit_windows (window_start)`,
}

// EnsureSchema creates the counter table and its index in one transaction.
// Safe to call on every startup.
func (s *Store) EnsureSchema(ctx context.Context) error {
	return s.withTx(ctx, func(ctx context.Context, tx *sql.Tx) error {
		for _, stmt := range schema {
			if _, err := tx.ExecContext(ctx, stmt); err != nil {
				return fmt.Errorf("store: apply schema: %w", err)
			}
		}
		return nil
	})
}
