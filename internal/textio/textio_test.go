package textio

import (
	"io"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"mergeprep/internal/domain"
)

func TestReadFile_StripsUTF8BOM(t *testing.T) {
	t.Parallel()

	path := filepath.Join(t.TempDir(), "data.txt")
	require.NoError(t, os.WriteFile(path, []byte("\xEF\xBB\xBFid1\tKeep\n"), 0o644))

	got, err := ReadFile(path)
	require.NoError(t, err)
	assert.Equal(t, "id1\tKeep\n", got)
}

func TestReadFile_DecodesUTF16LE(t *testing.T) {
	t.Parallel()

	// "a\tb" as UTF-16LE with BOM.
	raw := []byte{0xFF, 0xFE, 'a', 0, '\t', 0, 'b', 0}
	path := filepath.Join(t.TempDir(), "utf16.txt")
	require.NoError(t, os.WriteFile(path, raw, 0o644))

	got, err := ReadFile(path)
	require.NoError(t, err)
	assert.Equal(t, "a\tb", got)
}

func TestReadFile_MissingFile(t *testing.T) {
	t.Parallel()

	_, err := ReadFile(filepath.Join(t.TempDir(), "nope.txt"))
	require.ErrorIs(t, err, domain.ErrInputNotFound)
}

func TestNewReader_PlainUTF8Unchanged(t *testing.T) {
	t.Parallel()

	got, err := io.ReadAll(NewReader(strings.NewReader("žluťoučký\tMerge")))
	require.NoError(t, err)
	assert.Equal(t, "žluťoučký\tMerge", string(got))
}
