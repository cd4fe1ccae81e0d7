package db

import (
	"context"
	"fmt"

	"github.com/jackc/pgx/v5"
)

// pgConnLike is the subset of *pgx.Conn the counter uses, so tests can
// inject a fake connection.
type pgConnLike interface {
	QueryRow(ctx context.Context, sql string, args ...any) pgx.Row
	Close(ctx context.Context) error
}

type pgCounter struct{ conn pgConnLike }

// NewPgCounter connects to Postgres with pgx.
func NewPgCounter(ctx context.Context, dsn string) (Counter, error) {
	c, err := pgx.Connect(ctx, dsn)
	if err != nil {
		return nil, fmt.Errorf("postgres connect: %w", err)
	}
	return &pgCounter{conn: c}, nil
}

// CountEncounters sends the ids as a single array parameter.
func (p *pgCounter) CountEncounters(ctx context.Context, ids []string) (int64, error) {
	if len(ids) == 0 {
		return 0, nil
	}
	var n int64
	if err := p.conn.QueryRow(ctx, pgCountQuery, ids).Scan(&n); err != nil {
		return 0, fmt.Errorf("postgres count: %w", err)
	}
	return n, nil
}

func (p *pgCounter) Close(ctx context.Context) error { return p.conn.Close(ctx) }
