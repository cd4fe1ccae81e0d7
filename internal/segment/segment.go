// Package segment turns a keep/merge review file into merge pairs.
//
// The file is a sequence of record groups separated by a delimiter (by
// default a blank line followed by a tab). Each line of a group is
// "<identifier>\t<Keep|Merge>". Within a group every Merge identifier is
// paired with the group's Keep identifier; if a group names more than one
// Keep, the last one wins.
//
// Parsing is best effort: lines that cannot be read are skipped, counted and
// handed to a Skipper so the skip can be audited.
package segment

import (
	"strings"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"mergeprep/internal/domain"
)

// DefaultDelimiter separates record groups.
const DefaultDelimiter = "\n\n\t"

// Skip reasons.
const (
	ReasonMissingTab        = "missing_tab"
	ReasonUnknownLabel      = "unknown_label"
	ReasonInvalidIdentifier = "invalid_identifier"
	ReasonNoKeepEntry       = "no_keep_entry"
	ReasonSelfMerge         = "self_merge"
)

// Skipper receives every line the parser refuses. group and lineNum are
// 1-based. skiplog.Log implements it.
type Skipper interface {
	Add(reason string, group, lineNum int, raw string)
}

// Options tune Parse. The zero value parses with DefaultDelimiter, accepts
// any non-empty identifier and discards skip details.
type Options struct {
	Delimiter  string
	StrictUUID bool // require identifiers to parse as UUIDs
	Skips      Skipper
	Logger     *zap.Logger
}

// GroupStat describes one record group after parsing.
type GroupStat struct {
	Index       int    // 1-based
	FirstLine   int    // 1-based line of the group's first line
	KeepID      string // empty when the group had no Keep entry
	KeepEntries int    // Keep lines seen; >1 means earlier ones were overwritten
	Merges      int
	Skipped     int // lines skipped inside the group
}

// Result is everything one parse pass produced.
type Result struct {
	Pairs             []domain.MergePair
	Groups            []GroupStat
	SkippedLines      int
	GroupsWithoutKeep int
}

// Parse splits content into record groups and emits merge pairs in input
// order.
func Parse(content string, opts Options) Result {
	log := opts.Logger
	if log == nil {
		log = zap.NewNop()
	}
	delim := opts.Delimiter
	if delim == "" {
		delim = DefaultDelimiter
	}

	content = strings.ReplaceAll(content, "\r\n", "\n")
	chunks := strings.Split(content, delim)
	log.Debug("split input into groups", zap.Int("groups", len(chunks)))

	var res Result
	firstLine := 1
	for i, chunk := range chunks {
		g := parseGroup(chunk, i+1, firstLine, opts, &res)

		if g.stat.KeepID == "" {
			res.GroupsWithoutKeep++
			log.Debug("keep not found, group skipped",
				zap.Int("group", g.stat.Index),
				zap.Int("line", g.stat.FirstLine),
				zap.Int("merges", len(g.merges)))
			if len(g.merges) > 0 && opts.Skips != nil {
				ids := make([]string, len(g.merges))
				for j, m := range g.merges {
					ids[j] = m.id
				}
				opts.Skips.Add(ReasonNoKeepEntry, g.stat.Index, g.stat.FirstLine, strings.Join(ids, " "))
			}
		} else {
			if g.stat.KeepEntries > 1 {
				log.Warn("group has more than one Keep entry, using the last",
					zap.Int("group", g.stat.Index),
					zap.Int("keep_entries", g.stat.KeepEntries),
					zap.String("keep", g.stat.KeepID))
			}
			log.Debug("keep found",
				zap.Int("group", g.stat.Index),
				zap.String("keep", g.stat.KeepID),
				zap.Int("merges", len(g.merges)))
			for _, m := range g.merges {
				// Merging an individual into itself would duplicate its encounters.
				if m.id == g.stat.KeepID {
					log.Warn("identifier marked both Keep and Merge, merge skipped",
						zap.Int("group", g.stat.Index),
						zap.Int("line", m.line),
						zap.String("id", m.id))
					g.stat.Merges--
					g.stat.Skipped++
					res.SkippedLines++
					if opts.Skips != nil {
						opts.Skips.Add(ReasonSelfMerge, g.stat.Index, m.line, m.raw)
					}
					continue
				}
				res.Pairs = append(res.Pairs, domain.MergePair{MergeID: m.id, KeepID: g.stat.KeepID})
			}
		}
		res.Groups = append(res.Groups, g.stat)

		firstLine += strings.Count(chunk, "\n") + strings.Count(delim, "\n")
	}

	log.Info("parsed keep/merge groups",
		zap.Int("groups", len(res.Groups)),
		zap.Int("pairs", len(res.Pairs)),
		zap.Int("groups_without_keep", res.GroupsWithoutKeep),
		zap.Int("skipped_lines", res.SkippedLines))
	return res
}

type group struct {
	stat   GroupStat
	merges []mergeLine
}

type mergeLine struct {
	id   string
	line int
	raw  string
}

func parseGroup(chunk string, index, firstLine int, opts Options, res *Result) group {
	g := group{stat: GroupStat{Index: index, FirstLine: firstLine}}

	skip := func(reason string, line int, raw string) {
		g.stat.Skipped++
		res.SkippedLines++
		if opts.Skips != nil {
			opts.Skips.Add(reason, index, line, raw)
		}
	}

	for n, raw := range strings.Split(chunk, "\n") {
		line := firstLine + n
		trimmed := strings.TrimSpace(raw)
		if trimmed == "" {
			continue
		}

		fields := strings.Split(trimmed, "\t")
		if len(fields) != 2 {
			skip(ReasonMissingTab, line, raw)
			continue
		}
		id, label := strings.TrimSpace(fields[0]), strings.TrimSpace(fields[1])
		if !validIdentifier(id, opts.StrictUUID) {
			skip(ReasonInvalidIdentifier, line, raw)
			continue
		}

		switch label {
		case domain.LabelKeep:
			g.stat.KeepID = id
			g.stat.KeepEntries++
		case domain.LabelMerge:
			g.merges = append(g.merges, mergeLine{id: id, line: line, raw: raw})
		default:
			skip(ReasonUnknownLabel, line, raw)
		}
	}
	g.stat.Merges = len(g.merges)
	return g
}

func validIdentifier(id string, strict bool) bool {
	if id == "" {
		return false
	}
	if !strict {
		return true
	}
	_, err := uuid.Parse(id)
	return err == nil
}
