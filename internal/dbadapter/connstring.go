package dbadapter

import (
	"fmt"
	"strings"
)

// Open dispatches on the connection string form and returns the matching
// adapter.
func Open(connString string) (Adapter, error) {
	switch {
	case connString == ":memory:",
		strings.HasPrefix(connString, "/"),
		strings.HasPrefix(connString, "./"):
		return OpenSQLite(connString)
	case strings.HasPrefix(connString, "sqlite:"):
		return OpenSQLite(strings.TrimPrefix(connString, "sqlite:"))
	case strings.HasPrefix(connString, "postgresql://"),
		strings.HasPrefix(connString, "postgres://"):
		return OpenPostgres(connString)
	default:
		return nil, fmt.Errorf("unrecognized database connection string: %q", connString)
	}
}
