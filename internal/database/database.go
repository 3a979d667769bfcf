// Package database opens the PostgreSQL pool and Redis client the service
// runs on and applies the embedded schema migrations.
package database

import (
	"context"
	"fmt"
	"log/slog"

	"github.com/jackc/pgx/v5/pgxpool"
)

// DB wraps a pgxpool.Pool for database operations.
type DB struct {
	pool *pgxpool.Pool
}

// Pool returns the underlying connection pool.
func (db *DB) Pool() *pgxpool.Pool {
	return db.pool
}

// Option tunes the connection pool.
type Option func(*pgxpool.Config)

// WithMaxConns caps the pool size. The minimum stays at a fifth of it.
func WithMaxConns(n int32) Option {
	return func(c *pgxpool.Config) {
		if n <= 0 {
			return
		}
		c.MaxConns = n
		c.MinConns = max(n/5, 1)
	}
}

// New creates a new database connection pool.
func New(ctx context.Context, databaseURL string, opts ...Option) (*DB, error) {
	config, err := pgxpool.ParseConfig(databaseURL)
	if err != nil {
		return nil, fmt.Errorf("parse database URL: %w", err)
	}

	config.MaxConns = 10
	config.MinConns = 2
	for _, opt := range opts {
		opt(config)
	}

	pool, err := pgxpool.NewWithConfig(ctx, config)
	if err != nil {
		return nil, fmt.Errorf("create connection pool: %w", err)
	}

	if err := pool.Ping(ctx); err != nil {
		pool.Close()
		return nil, fmt.Errorf("ping database: %w", err)
	}

	slog.Info("database connected", "max_conns", config.MaxConns)

	return &DB{pool: pool}, nil
}

// Close closes the database connection pool.
func (db *DB) Close() {
	db.pool.Close()
	slog.Info("database connection closed")
}
