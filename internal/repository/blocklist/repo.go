// Package blocklist looks up previously blocked content hashes in the
// platform's relational database. It is defense in depth: the system of
// record lies elsewhere, so this lookup never fails the caller.
package blocklist

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
	"go.uber.org/zap"

	"github.com/solshare/contentiq/internal/domain"
)

// querier is the consumer interface over pgxpool.Pool.
type querier interface {
	QueryRow(ctx context.Context, sql string, args ...any) pgx.Row
}

// Repo checks image hashes against the blocked-content table. A nil pool
// means the lookup is not configured; every check then reports not blocked.
type Repo struct {
	pool   querier
	table  string
	logger *zap.Logger
}

// New creates a blocklist repository over an existing connection pool.
func New(pool *pgxpool.Pool, table string, logger *zap.Logger) *Repo {
	r := &Repo{table: table, logger: logger}
	if pool != nil {
		r.pool = pool
	}
	return r
}

// Connect builds a pgx pool from dsn. An empty dsn yields a disabled
// repository rather than an error.
func Connect(ctx context.Context, dsn, table string, logger *zap.Logger) (*Repo, error) {
	if dsn == "" {
		logger.Warn("blocklist not configured, hash checks will always report not blocked")
		return &Repo{table: table, logger: logger}, nil
	}

	cfg, err := pgxpool.ParseConfig(dsn)
	if err != nil {
		return nil, fmt.Errorf("parse blocklist dsn: %w", err)
	}

	pool, err := pgxpool.NewWithConfig(ctx, cfg)
	if err != nil {
		return nil, fmt.Errorf("connect blocklist: %w", err)
	}

	return New(pool, table, logger), nil
}

// Ping reports backend availability. A disabled repository is always
// healthy.
func (r *Repo) Ping(ctx context.Context) error {
	if p, ok := r.pool.(*pgxpool.Pool); ok {
		return p.Ping(ctx)
	}
	return nil
}

// Check reports whether hash is known bad. Backing failures are logged and
// swallowed: the answer is then "not blocked".
func (r *Repo) Check(ctx context.Context, hash string) domain.HashCheck {
	if r.pool == nil {
		return domain.HashCheck{}
	}

	query := fmt.Sprintf("SELECT reason, created_at FROM %s WHERE image_hash = $1", r.table)

	var reason string
	var createdAt time.Time
	err := r.pool.QueryRow(ctx, query, hash).Scan(&reason, &createdAt)
	if err != nil {
		if !errors.Is(err, pgx.ErrNoRows) {
			r.logger.Error("blocked-hash lookup failed", zap.Error(err))
		}
		return domain.HashCheck{}
	}

	return domain.HashCheck{KnownBad: true, Reason: reason, BlockedAt: createdAt}
}
