// Package skiplog keeps an audit trail of input lines the segment parser
// refused. Every skip is counted per reason; when a path is given the skips
// are also written to a CSV file so a reviewer can check what was dropped
// before a destructive merge runs.
package skiplog

import (
	"encoding/csv"
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"strconv"
	"sync"
)

// Header is the first row of every skip file.
var Header = []string{"reason", "group", "line_number", "raw_line"}

// Log counts skipped lines by reason and optionally mirrors them to CSV.
// The zero value is not usable; call New or NewCounter.
type Log struct {
	mu      sync.Mutex
	reasons map[string]int
	w       *csv.Writer
}

// NewCounter returns a Log that only counts.
func NewCounter() *Log {
	return &Log{reasons: make(map[string]int)}
}

// New creates path (and its parent directories), writes the header and
// returns the Log plus a close func that flushes and closes the file.
// An empty path yields a counting-only Log and a no-op close.
func New(path string) (*Log, func() error, error) {
	if path == "" {
		return NewCounter(), func() error { return nil }, nil
	}
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return nil, nil, fmt.Errorf("create dir %s: %w", filepath.Dir(path), err)
	}
	f, err := os.Create(path)
	if err != nil {
		return nil, nil, fmt.Errorf("open %s: %w", path, err)
	}
	w := csv.NewWriter(f)
	if err := w.Write(Header); err != nil {
		_ = f.Close()
		return nil, nil, fmt.Errorf("write header %s: %w", path, err)
	}
	l := &Log{reasons: make(map[string]int), w: w}
	return l, func() error {
		w.Flush()
		werr := w.Error()
		cerr := f.Close()
		if werr != nil {
			return fmt.Errorf("flush %s: %w", path, werr)
		}
		return cerr
	}, nil
}

// Add records one skipped line. group and lineNum are 1-based.
func (l *Log) Add(reason string, group, lineNum int, raw string) {
	l.mu.Lock()
	defer l.mu.Unlock()
	l.reasons[reason]++
	if l.w != nil {
		_ = l.w.Write([]string{reason, strconv.Itoa(group), strconv.Itoa(lineNum), raw})
	}
}

// Count returns how many skips were recorded for reason.
func (l *Log) Count(reason string) int {
	l.mu.Lock()
	defer l.mu.Unlock()
	return l.reasons[reason]
}

// Total returns the number of skips across all reasons.
func (l *Log) Total() int {
	l.mu.Lock()
	defer l.mu.Unlock()
	n := 0
	for _, c := range l.reasons {
		n += c
	}
	return n
}

// Reasons returns the recorded reasons in sorted order.
func (l *Log) Reasons() []string {
	l.mu.Lock()
	defer l.mu.Unlock()
	out := make([]string, 0, len(l.reasons))
	for r := range l.reasons {
		out = append(out, r)
	}
	sort.Strings(out)
	return out
}
