package dbadapter

import (
	"strings"
	"time"
)

// booleanLikeName reports whether a column name should be heuristically
// coerced from integer 0/1 to bool on fetch.
func booleanLikeName(col string) bool {
	lc := strings.ToLower(col)
	switch lc {
	case "active", "enabled", "ssl", "tls":
		return true
	}
	return strings.HasPrefix(lc, "is_") || strings.HasPrefix(lc, "use_") || strings.HasPrefix(lc, "has_")
}

// timestampLikeName reports whether a column name should be heuristically
// coerced from an ISO-8601 string to time.Time on fetch.
func timestampLikeName(col string) bool {
	lc := strings.ToLower(col)
	switch lc {
	case "created", "updated", "timestamp", "expires":
		return true
	}
	return strings.HasSuffix(lc, "_at") || strings.HasSuffix(lc, "_date") || strings.HasSuffix(lc, "_time")
}

// normalizeRow mutates row in place applying the name-based heuristics.
// This heuristic set is carried only for the embedded (sqlite) backend,
// since postgres already returns native BOOLEAN/TIMESTAMP values.
func normalizeRow(row Row) {
	for col, val := range row {
		switch v := val.(type) {
		case int64:
			if booleanLikeName(col) {
				row[col] = v != 0
			}
		case string:
			if timestampLikeName(col) {
				if t, err := time.Parse(time.RFC3339, v); err == nil {
					row[col] = t
				}
			}
		}
	}
}
