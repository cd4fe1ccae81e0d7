package db

import (
	"context"
	"database/sql"
	"fmt"
	"time"

	// SQL Server driver, registered as "sqlserver".
	_ "github.com/microsoft/go-mssqldb"
	// SQLite driver, registered as "sqlite".
	_ "modernc.org/sqlite"
)

// DefaultChunkSize keeps IN lists well under SQL Server's 2100 parameter cap.
const DefaultChunkSize = 1000

type sqlCounter struct {
	db        *sql.DB
	style     Placeholder
	chunkSize int
}

// NewSQLCounter opens a database/sql connection for driver ("sqlserver" or
// "sqlite") and pings it. chunkSize <= 0 selects DefaultChunkSize.
func NewSQLCounter(ctx context.Context, driver, dsn string, chunkSize int) (Counter, error) {
	style, err := placeholderFor(driver)
	if err != nil {
		return nil, err
	}
	d, err := sql.Open(driver, dsn)
	if err != nil {
		return nil, fmt.Errorf("%s open: %w", driver, err)
	}

	pingCtx, cancel := context.WithTimeout(ctx, 5*time.Second)
	defer cancel()
	if err := d.PingContext(pingCtx); err != nil {
		_ = d.Close()
		return nil, fmt.Errorf("%s ping: %w", driver, err)
	}
	return newSQLCounter(d, style, chunkSize), nil
}

func newSQLCounter(d *sql.DB, style Placeholder, chunkSize int) *sqlCounter {
	if chunkSize <= 0 {
		chunkSize = DefaultChunkSize
	}
	return &sqlCounter{db: d, style: style, chunkSize: chunkSize}
}

func placeholderFor(driver string) (Placeholder, error) {
	switch driver {
	case "sqlserver":
		return PlaceholderAtP, nil
	case "sqlite":
		return PlaceholderQuestion, nil
	default:
		return 0, fmt.Errorf("unsupported database/sql driver %q", driver)
	}
}

// CountEncounters queries ids in chunks and sums the results. Each
// encounter belongs to one individual, so chunk counts never overlap as long
// as ids are distinct; callers pass deduplicated lists.
func (s *sqlCounter) CountEncounters(ctx context.Context, ids []string) (int64, error) {
	var total int64
	for start := 0; start < len(ids); start += s.chunkSize {
		end := min(start+s.chunkSize, len(ids))
		chunk := ids[start:end]

		args := make([]any, len(chunk))
		for i, id := range chunk {
			args[i] = id
		}
		var n int64
		if err := s.db.QueryRowContext(ctx, countQueryIn(s.style, len(chunk)), args...).Scan(&n); err != nil {
			return 0, fmt.Errorf("count chunk %d-%d: %w", start, end, err)
		}
		total += n
	}
	return total, nil
}

func (s *sqlCounter) Close(ctx context.Context) error { return s.db.Close() }
