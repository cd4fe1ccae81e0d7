// Package pairfile reads and writes the merge-pair CSV that sits between the
// segment parser and the SQL generator.
//
// Writing is lenient (encoding/csv only quotes a field when it must, so
// ordinary identifiers come out as plain comma-joined text). Reading is
// strict: the first row that cannot be trusted aborts the whole load, because
// the pairs feed a destructive update.
package pairfile

import (
	"encoding/csv"
	"errors"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"

	"github.com/google/uuid"

	"mergeprep/internal/domain"
	"mergeprep/internal/textio"
)

// Header is the first row of every pair file.
var Header = []string{domain.ColumnMergeID, domain.ColumnKeepID}

// ReadOptions tune Read.
type ReadOptions struct {
	StrictUUID bool // require both identifiers to parse as UUIDs
}

// Write emits Header followed by one row per pair, in order.
func Write(w io.Writer, pairs []domain.MergePair) error {
	cw := csv.NewWriter(w)
	if err := cw.Write(Header); err != nil {
		return err
	}
	for _, p := range pairs {
		if err := cw.Write([]string{p.MergeID, p.KeepID}); err != nil {
			return err
		}
	}
	cw.Flush()
	return cw.Error()
}

// WriteFile writes pairs to path, creating parent directories.
func WriteFile(path string, pairs []domain.MergePair) error {
	if dir := filepath.Dir(path); dir != "." {
		if err := os.MkdirAll(dir, 0o755); err != nil {
			return fmt.Errorf("create dir %s: %w", dir, err)
		}
	}
	f, err := os.Create(path)
	if err != nil {
		return fmt.Errorf("create %s: %w", path, err)
	}
	if err := Write(f, pairs); err != nil {
		_ = f.Close()
		return fmt.Errorf("write %s: %w", path, err)
	}
	return f.Close()
}

// Read loads pairs from r. The header must name both pair columns (extra
// columns are ignored, order is free). Any malformed row returns a
// *domain.RowError matching domain.ErrInvalidMergeRow.
func Read(r io.Reader, opts ReadOptions) ([]domain.MergePair, error) {
	cr := csv.NewReader(r)
	cr.FieldsPerRecord = 0 // header width applies to every row

	header, err := cr.Read()
	if errors.Is(err, io.EOF) {
		return nil, &domain.RowError{Line: 1, Reason: "missing header"}
	}
	if err != nil {
		return nil, rowErr(err, "unreadable header")
	}

	mergeCol, keepCol := -1, -1
	for i, h := range header {
		switch strings.TrimSpace(h) {
		case domain.ColumnMergeID:
			mergeCol = i
		case domain.ColumnKeepID:
			keepCol = i
		}
	}
	if mergeCol < 0 {
		return nil, &domain.RowError{Line: 1, Reason: "header lacks column " + domain.ColumnMergeID}
	}
	if keepCol < 0 {
		return nil, &domain.RowError{Line: 1, Reason: "header lacks column " + domain.ColumnKeepID}
	}

	var pairs []domain.MergePair
	for {
		rec, err := cr.Read()
		if errors.Is(err, io.EOF) {
			break
		}
		if err != nil {
			return nil, rowErr(err, "malformed row")
		}
		line, _ := cr.FieldPos(0)

		p := domain.MergePair{
			MergeID: strings.TrimSpace(rec[mergeCol]),
			KeepID:  strings.TrimSpace(rec[keepCol]),
		}
		if p.MergeID == "" {
			return nil, &domain.RowError{Line: line, Reason: "empty " + domain.ColumnMergeID}
		}
		if p.KeepID == "" {
			return nil, &domain.RowError{Line: line, Reason: "empty " + domain.ColumnKeepID}
		}
		if opts.StrictUUID {
			if _, err := uuid.Parse(p.MergeID); err != nil {
				return nil, &domain.RowError{Line: line, Reason: domain.ColumnMergeID + " is not a UUID", Err: err}
			}
			if _, err := uuid.Parse(p.KeepID); err != nil {
				return nil, &domain.RowError{Line: line, Reason: domain.ColumnKeepID + " is not a UUID", Err: err}
			}
		}
		pairs = append(pairs, p)
	}
	return pairs, nil
}

// ReadFile loads pairs from path. A missing file matches
// domain.ErrInputNotFound.
func ReadFile(path string, opts ReadOptions) ([]domain.MergePair, error) {
	rc, err := textio.Open(path)
	if err != nil {
		return nil, err
	}
	defer rc.Close()

	pairs, err := Read(rc, opts)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", path, err)
	}
	return pairs, nil
}

// rowErr converts csv parse failures into RowErrors carrying the line.
func rowErr(err error, reason string) error {
	var pe *csv.ParseError
	if errors.As(err, &pe) {
		return &domain.RowError{Line: pe.Line, Reason: reason, Err: pe.Err}
	}
	return fmt.Errorf("read pairs: %w", err)
}
