// Package textio opens the tool's text inputs. Files exported from
// spreadsheets often start with a byte order mark (and sometimes arrive as
// UTF-16); readers returned here decode to plain UTF-8 and drop the BOM so
// the first identifier or header cell is not polluted.
package textio

import (
	"errors"
	"fmt"
	"io"
	"io/fs"
	"os"

	"golang.org/x/text/encoding/unicode"
	"golang.org/x/text/transform"

	"mergeprep/internal/domain"
)

// NewReader wraps r so a leading UTF-8 or UTF-16 BOM selects the decoding
// and is removed. Input without a BOM is read as UTF-8.
func NewReader(r io.Reader) io.Reader {
	return transform.NewReader(r, unicode.BOMOverride(unicode.UTF8.NewDecoder()))
}

// Open opens path for decoded reading. A missing file is reported as
// domain.ErrInputNotFound.
func Open(path string) (io.ReadCloser, error) {
	f, err := os.Open(path)
	if err != nil {
		if errors.Is(err, fs.ErrNotExist) {
			return nil, domain.NotFound(path, err)
		}
		return nil, fmt.Errorf("open %s: %w", path, err)
	}
	return readCloser{Reader: NewReader(f), c: f}, nil
}

// ReadFile returns the decoded content of path.
func ReadFile(path string) (string, error) {
	rc, err := Open(path)
	if err != nil {
		return "", err
	}
	defer rc.Close()

	b, err := io.ReadAll(rc)
	if err != nil {
		return "", fmt.Errorf("read %s: %w", path, err)
	}
	return string(b), nil
}

type readCloser struct {
	io.Reader
	c io.Closer
}

func (r readCloser) Close() error { return r.c.Close() }
