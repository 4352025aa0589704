package database

import (
	"context"
	"fmt"

	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/donia1222/remix-crypto-sub000/internal/config"
)

// schema creates the quote history table. Rows are append-only; the
// primary key makes a replayed batch a no-op.
const schema = `
CREATE TABLE IF NOT EXISTS price_quotes (
	symbol      TEXT        NOT NULL,
	updated_at  TIMESTAMPTZ NOT NULL,
	price       NUMERIC     NOT NULL,
	last_price  NUMERIC     NOT NULL,
	direction   TEXT        NOT NULL,
	synthetic   BOOLEAN     NOT NULL DEFAULT FALSE,
	PRIMARY KEY (symbol, updated_at)
)`

// Connect creates a connection pool and verifies it with a ping.
func Connect(ctx context.Context, cfg config.DBConfig) (*pgxpool.Pool, error) {
	poolCfg, err := pgxpool.ParseConfig(BuildConnString(cfg))
	if err != nil {
		return nil, fmt.Errorf("parse connection string: %w", err)
	}

	poolCfg.MinConns = int32(cfg.MinConns)
	poolCfg.MaxConns = int32(cfg.MaxConns)

	pool, err := pgxpool.NewWithConfig(ctx, poolCfg)
	if err != nil {
		return nil, fmt.Errorf("create pool: %w", err)
	}

	if err := pool.Ping(ctx); err != nil {
		pool.Close()
		return nil, fmt.Errorf("ping database %s: %w", Redacted(cfg), err)
	}

	return pool, nil
}

// EnsureSchema creates the tables the writer needs if they are missing.
func EnsureSchema(ctx context.Context, pool *pgxpool.Pool) error {
	if _, err := pool.Exec(ctx, schema); err != nil {
		return fmt.Errorf("create price_quotes: %w", err)
	}
	return nil
}
