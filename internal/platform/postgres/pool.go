package postgres

import (
	"context"
	"database/sql"
	"fmt"

	"github.com/jackc/pgx/v5/pgxpool"
	_ "github.com/lib/pq"
)

// Pool wraps pgxpool with health checking for the domain stores.
type Pool struct {
	*pgxpool.Pool
}

// New creates a pgx pool from the connection URL and verifies connectivity.
func New(ctx context.Context, url string) (*Pool, error) {
	if url == "" {
		return nil, fmt.Errorf("postgres URL is required")
	}
	pool, err := pgxpool.New(ctx, url)
	if err != nil {
		return nil, fmt.Errorf("create postgres pool: %w", err)
	}
	if err := pool.Ping(ctx); err != nil {
		pool.Close()
		return nil, fmt.Errorf("postgres ping failed: %w", err)
	}
	return &Pool{Pool: pool}, nil
}

// Health checks if the database connection is healthy.
func (p *Pool) Health(ctx context.Context) error {
	return p.Ping(ctx)
}

// OpenSQL opens a database/sql handle on the same database for components
// built on database/sql (the audit outbox store and goose migrations).
func OpenSQL(url string) (*sql.DB, error) {
	db, err := sql.Open("postgres", url)
	if err != nil {
		return nil, fmt.Errorf("open sql handle: %w", err)
	}
	if err := db.Ping(); err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("sql ping failed: %w", err)
	}
	return db, nil
}
