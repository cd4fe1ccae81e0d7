package domain

import (
	"errors"
	"fmt"
)

var (
	// ErrInputNotFound reports a missing input file.
	ErrInputNotFound = errors.New("input not found")

	// ErrInvalidMergeRow reports a pair-file row that cannot be trusted to
	// drive a merge. Generation stops at the first one.
	ErrInvalidMergeRow = errors.New("invalid merge row")
)

// RowError pins an ErrInvalidMergeRow to a line of the pair file.
type RowError struct {
	Line   int    // 1-based, header is line 1
	Reason string // human readable
	Err    error  // underlying parse error, may be nil
}

func (e *RowError) Error() string {
	if e.Err != nil {
		return fmt.Sprintf("%s at line %d: %s: %v", ErrInvalidMergeRow, e.Line, e.Reason, e.Err)
	}
	return fmt.Sprintf("%s at line %d: %s", ErrInvalidMergeRow, e.Line, e.Reason)
}

// Is makes errors.Is(err, ErrInvalidMergeRow) hold for every RowError.
func (e *RowError) Is(target error) bool { return target == ErrInvalidMergeRow }

func (e *RowError) Unwrap() error { return e.Err }

// NotFound wraps ErrInputNotFound with the offending path.
func NotFound(path string, err error) error {
	return fmt.Errorf("%w: %s: %w", ErrInputNotFound, path, err)
}
