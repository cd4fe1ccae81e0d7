package sqlgen

import (
	"regexp"
	"strings"
)

var bareIdent = regexp.MustCompile(`^[a-z_][a-z0-9_$]*$`)

// QuoteLiteral renders s as a single-quoted SQL string literal.
func QuoteLiteral(s string) string {
	return "'" + strings.ReplaceAll(s, "'", "''") + "'"
}

// QuoteIdent leaves plain lower-case identifiers bare and double-quotes
// anything else.
func QuoteIdent(s string) string {
	if bareIdent.MatchString(s) {
		return s
	}
	return `"` + strings.ReplaceAll(s, `"`, `""`) + `"`
}

// InList renders ids as the body of an IN (...) clause.
func InList(ids []string) string {
	quoted := make([]string, len(ids))
	for i, id := range ids {
		quoted[i] = QuoteLiteral(id)
	}
	return strings.Join(quoted, ", ")
}
