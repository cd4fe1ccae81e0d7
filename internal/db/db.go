// Package db runs the read-only verification counts of a merge script
// against a live database. Postgres goes through pgx; SQL Server and SQLite
// go through database/sql.
package db

import (
	"context"
	"fmt"

	"mergeprep/internal/domain"
)

// Counter counts dated encounters owned by the given individual uuids.
type Counter interface {
	CountEncounters(ctx context.Context, ids []string) (int64, error)
	Close(ctx context.Context) error
}

// CounterFactory opens a fresh Counter.
type CounterFactory func(ctx context.Context) (Counter, error)

// Probe measures the pre-update counts for pairs: encounters owned by the
// merge sources and encounters already owned by the keep targets.
func Probe(ctx context.Context, c Counter, pairs []domain.MergePair) (domain.Counts, error) {
	affected, err := c.CountEncounters(ctx, domain.MergeSources(pairs))
	if err != nil {
		return domain.Counts{}, fmt.Errorf("count merge sources: %w", err)
	}
	retained, err := c.CountEncounters(ctx, domain.KeepTargets(pairs))
	if err != nil {
		return domain.Counts{}, fmt.Errorf("count keep targets: %w", err)
	}
	return domain.Counts{Affected: affected, Retained: retained, Known: true}, nil
}
