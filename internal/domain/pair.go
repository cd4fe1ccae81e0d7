// Package domain holds the business objects shared by the segment parser,
// the pair file and the SQL generator.
package domain

// Labels used in the keep/merge input file.
const (
	LabelKeep  = "Keep"
	LabelMerge = "Merge"
)

// CSV header of the pair file.
const (
	ColumnMergeID = "individual_uuid"
	ColumnKeepID  = "individual_uuid_to_merge_into"
)

// MergePair maps a duplicate identifier to the canonical identifier whose
// dependent rows it should be folded into.
type MergePair struct {
	MergeID string // duplicate individual
	KeepID  string // canonical individual
}

// Counts are the pre-update encounter counts embedded in a generated script.
// Known is false when nobody measured them.
type Counts struct {
	Affected int64 // encounters owned by merge sources
	Retained int64 // encounters already owned by keep targets
	Known    bool
}

// ExpectedAfter is the total encounter count over all involved individuals
// once the INSERT has run: originals stay in place, copies are added to the
// keep targets, and the targets keep their own rows.
func (c Counts) ExpectedAfter() int64 {
	return c.Affected*2 + c.Retained
}

// MergeSources returns the merge identifiers, deduplicated in order of first
// occurrence.
func MergeSources(pairs []MergePair) []string {
	ids := make([]string, 0, len(pairs))
	for _, p := range pairs {
		ids = append(ids, p.MergeID)
	}
	return Unique(ids)
}

// KeepTargets returns the keep identifiers, deduplicated in order of first
// occurrence.
func KeepTargets(pairs []MergePair) []string {
	ids := make([]string, 0, len(pairs))
	for _, p := range pairs {
		ids = append(ids, p.KeepID)
	}
	return Unique(ids)
}

// Unique drops repeated values and keeps the first occurrence of each.
func Unique(ids []string) []string {
	seen := make(map[string]struct{}, len(ids))
	out := make([]string, 0, len(ids))
	for _, id := range ids {
		if _, ok := seen[id]; ok {
			continue
		}
		seen[id] = struct{}{}
		out = append(out, id)
	}
	return out
}
