package db

import (
	"strconv"
	"strings"
)

// Placeholder is a driver's bind parameter style.
type Placeholder int

const (
	// PlaceholderQuestion is "?" (SQLite).
	PlaceholderQuestion Placeholder = iota
	// PlaceholderAtP is "@p1", "@p2", ... (SQL Server).
	PlaceholderAtP
)

const countBase = `SELECT COUNT(*)
FROM individual i
JOIN encounter e ON i.id = e.individual_id
WHERE e.encounter_date_time IS NOT NULL
  AND i.uuid `

// pgCountQuery binds the whole uuid list as one text[] parameter.
const pgCountQuery = countBase + "= ANY($1)"

// countQueryIn builds the count query with n bind parameters in an IN list.
func countQueryIn(style Placeholder, n int) string {
	var sb strings.Builder
	sb.WriteString(countBase)
	sb.WriteString("IN (")
	for i := 1; i <= n; i++ {
		if i > 1 {
			sb.WriteString(", ")
		}
		switch style {
		case PlaceholderAtP:
			sb.WriteString("@p" + strconv.Itoa(i))
		default:
			sb.WriteString("?")
		}
	}
	sb.WriteString(")")
	return sb.String()
}
