package pairfile

import (
	"bytes"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"mergeprep/internal/domain"
)

func TestWrite_PlainCommaJoinedRows(t *testing.T) {
	t.Parallel()

	var buf bytes.Buffer
	err := Write(&buf, []domain.MergePair{
		{MergeID: "id2", KeepID: "id1"},
		{MergeID: "id3", KeepID: "id1"},
	})
	require.NoError(t, err)
	assert.Equal(t, "individual_uuid,individual_uuid_to_merge_into\nid2,id1\nid3,id1\n", buf.String())
}

func TestRoundTrip_PreservesOrderAndDuplicates(t *testing.T) {
	t.Parallel()

	var in []domain.MergePair
	for i := 0; i < 50; i++ {
		in = append(in, domain.MergePair{MergeID: fmt.Sprintf("m%02d", i%7), KeepID: fmt.Sprintf("k%d", i%3)})
	}
	path := filepath.Join(t.TempDir(), "out", "output.csv")

	require.NoError(t, WriteFile(path, in))
	got, err := ReadFile(path, ReadOptions{})
	require.NoError(t, err)
	assert.Equal(t, in, got)
}

func TestRead_HeaderColumnsAnyOrderExtraTolerated(t *testing.T) {
	t.Parallel()

	src := "note,individual_uuid_to_merge_into,individual_uuid\nx,k1,m1\ny,k1,m2\n"
	got, err := Read(strings.NewReader(src), ReadOptions{})
	require.NoError(t, err)
	assert.Equal(t, []domain.MergePair{{MergeID: "m1", KeepID: "k1"}, {MergeID: "m2", KeepID: "k1"}}, got)
}

func TestRead_InvalidRows(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name     string
		src      string
		strict   bool
		wantLine int
		wantMsg  string
	}{
		{
			name:     "empty input",
			src:      "",
			wantLine: 1,
			wantMsg:  "missing header",
		},
		{
			name:     "header lacks keep column",
			src:      "individual_uuid\nm1\n",
			wantLine: 1,
			wantMsg:  "individual_uuid_to_merge_into",
		},
		{
			name:     "missing column in data row",
			src:      "individual_uuid,individual_uuid_to_merge_into\nm1,k1\nm2\n",
			wantLine: 3,
			wantMsg:  "malformed row",
		},
		{
			name:     "empty keep value",
			src:      "individual_uuid,individual_uuid_to_merge_into\nm1,k1\nm2,\n",
			wantLine: 3,
			wantMsg:  "empty individual_uuid_to_merge_into",
		},
		{
			name:     "non uuid under strict mode",
			src:      "individual_uuid,individual_uuid_to_merge_into\nm1,0b1f2a9e-6c7d-4f4e-9a51-3c2d1e0f9a8b\n",
			strict:   true,
			wantLine: 2,
			wantMsg:  "not a UUID",
		},
	}

	for _, tt := range tests {
		tt := tt
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()

			_, err := Read(strings.NewReader(tt.src), ReadOptions{StrictUUID: tt.strict})
			require.ErrorIs(t, err, domain.ErrInvalidMergeRow)

			var re *domain.RowError
			require.ErrorAs(t, err, &re)
			assert.Equal(t, tt.wantLine, re.Line)
			assert.Contains(t, err.Error(), tt.wantMsg)
		})
	}
}

func TestRead_StrictUUIDAcceptsUUIDs(t *testing.T) {
	t.Parallel()

	src := "individual_uuid,individual_uuid_to_merge_into\n" +
		"5d6c7b8a-1e2f-4a3b-8c9d-0e1f2a3b4c5d,0b1f2a9e-6c7d-4f4e-9a51-3c2d1e0f9a8b\n"
	got, err := Read(strings.NewReader(src), ReadOptions{StrictUUID: true})
	require.NoError(t, err)
	assert.Len(t, got, 1)
}

func TestReadFile_MissingAndBOM(t *testing.T) {
	t.Parallel()

	dir := t.TempDir()
	_, err := ReadFile(filepath.Join(dir, "nope.csv"), ReadOptions{})
	require.ErrorIs(t, err, domain.ErrInputNotFound)

	path := filepath.Join(dir, "bom.csv")
	require.NoError(t, os.WriteFile(path, []byte("\xEF\xBB\xBFindividual_uuid,individual_uuid_to_merge_into\nm,k\n"), 0o644))
	got, err := ReadFile(path, ReadOptions{})
	require.NoError(t, err)
	assert.Equal(t, []domain.MergePair{{MergeID: "m", KeepID: "k"}}, got)
}
