// Package sqlgen assembles the reviewable SQL script that copies encounters
// from duplicate individuals onto their canonical individuals.
//
// The script is a dry run by default: it opens a transaction, measures,
// inserts, measures again and rolls back. An operator flips the trailing
// ROLLBACK to COMMIT by hand once the counts check out.
package sqlgen

import (
	"bytes"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"text/template"
	"unicode"

	"github.com/zeebo/xxh3"

	"mergeprep/internal/domain"
)

// ErrNoPairs is returned when there is nothing to merge; an empty IN () is
// not valid SQL.
var ErrNoPairs = errors.New("no merge pairs")

// Params are the environment-specific values baked into the script.
type Params struct {
	Role         string // SET ROLE target
	Organisation string // organisation.name owning the encounters
	Username     string // public.users.username stamped as last modifier
	HistoryNote  string // appended to manual_update_history
	Ticket       string // optional, appended to the note as "#<ticket>"
	Counts       domain.Counts
}

func (p Params) historyEntry() string {
	entry := " | " + p.HistoryNote
	if p.Ticket != "" {
		entry += " | #" + strings.TrimPrefix(p.Ticket, "#")
	}
	return entry
}

type countArgs struct {
	IDs   string
	Known bool
	N     int64
}

type scriptData struct {
	PairCount    int
	MergeCount   int
	KeepCount    int
	Fingerprint  string
	Role         string
	Organisation string
	Username     string
	History      string
	Values       string
	MergeIn      string
	KeepIn       string
	AllIn        string
	Counts       domain.Counts
	After        int64
}

var script = template.Must(template.New("script").Funcs(template.FuncMap{
	"count": func(ids string, known bool, n int64) countArgs { return countArgs{ids, known, n} },
}).Parse(scriptTemplate))

// Generate renders the merge script for pairs. Pairs with empty identifiers
// or control characters are rejected as domain.ErrInvalidMergeRow; the line
// reported is the pair's line in a pair file with a header.
func Generate(pairs []domain.MergePair, p Params) (string, error) {
	if len(pairs) == 0 {
		return "", ErrNoPairs
	}
	for i, mp := range pairs {
		if reason := checkPair(mp); reason != "" {
			return "", &domain.RowError{Line: i + 2, Reason: reason}
		}
	}

	merges := domain.MergeSources(pairs)
	keeps := domain.KeepTargets(pairs)
	all := domain.Unique(append(append([]string{}, merges...), keeps...))

	rows := make([]string, len(pairs))
	for i, mp := range pairs {
		rows[i] = "(" + QuoteLiteral(mp.MergeID) + ", " + QuoteLiteral(mp.KeepID) + ")"
	}

	data := scriptData{
		PairCount:    len(pairs),
		MergeCount:   len(merges),
		KeepCount:    len(keeps),
		Fingerprint:  Fingerprint(pairs),
		Role:         QuoteIdent(p.Role),
		Organisation: QuoteLiteral(p.Organisation),
		Username:     QuoteLiteral(p.Username),
		History:      QuoteLiteral(p.historyEntry()),
		Values:       strings.Join(rows, ",\n        "),
		MergeIn:      InList(merges),
		KeepIn:       InList(keeps),
		AllIn:        InList(all),
		Counts:       p.Counts,
		After:        p.Counts.ExpectedAfter(),
	}

	var buf bytes.Buffer
	if err := script.Execute(&buf, data); err != nil {
		return "", fmt.Errorf("render script: %w", err)
	}
	return buf.String(), nil
}

// Fingerprint hashes the ordered pairs so a script can be matched to the
// pair file it was generated from.
func Fingerprint(pairs []domain.MergePair) string {
	h := xxh3.New()
	for _, p := range pairs {
		_, _ = h.WriteString(p.MergeID)
		_, _ = h.WriteString(",")
		_, _ = h.WriteString(p.KeepID)
		_, _ = h.WriteString("\n")
	}
	return fmt.Sprintf("%016x", h.Sum64())
}

// WriteFile writes doc to path, creating parent directories.
func WriteFile(path, doc string) error {
	if dir := filepath.Dir(path); dir != "." {
		if err := os.MkdirAll(dir, 0o755); err != nil {
			return fmt.Errorf("create dir %s: %w", dir, err)
		}
	}
	if err := os.WriteFile(path, []byte(doc), 0o644); err != nil {
		return fmt.Errorf("write %s: %w", path, err)
	}
	return nil
}

func checkPair(p domain.MergePair) string {
	switch {
	case p.MergeID == "":
		return "empty " + domain.ColumnMergeID
	case p.KeepID == "":
		return "empty " + domain.ColumnKeepID
	case strings.IndexFunc(p.MergeID, unicode.IsControl) >= 0:
		return domain.ColumnMergeID + " contains control characters"
	case strings.IndexFunc(p.KeepID, unicode.IsControl) >= 0:
		return domain.ColumnKeepID + " contains control characters"
	case p.MergeID == p.KeepID:
		return "individual merged into itself"
	}
	return ""
}
