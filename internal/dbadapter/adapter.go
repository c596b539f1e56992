// Package dbadapter implements the backend adapter: a narrow interface
// over a backend driver (driver selection, DSN construction, connection
// pool tuning) covering two supported backends: embedded sqlite and
// networked postgres.
package dbadapter

import (
	"context"
	"database/sql"
)

// Row is a single fetched record keyed by column name, the shape every
// fetch-returning operation works with.
type Row = map[string]interface{}

// Conn is one acquired, already-transactional connection.
type Conn interface {
	Exec(ctx context.Context, query string, named map[string]interface{}) (int64, error)
	ExecMany(ctx context.Context, query string, named []map[string]interface{}) error
	FetchOne(ctx context.Context, query string, named map[string]interface{}) (Row, bool, error)
	FetchAll(ctx context.Context, query string, named map[string]interface{}) ([]Row, error)
	ExecuteScript(ctx context.Context, script string) error
	InsertReturningID(ctx context.Context, table, pkColumn, query string, named map[string]interface{}) (int64, error)

	Commit() error
	Rollback() error
}

// Adapter is the narrow backend contract. The database manager and every
// table/query helper compose SQL using only Adapter.Placeholder, never
// string-concatenated values.
type Adapter interface {
	Name() string

	// Ping reports whether the underlying driver connection is currently
	// reachable, used by the health route's degraded-mode field.
	Ping() error

	// Acquire opens (or checks out) one connection and begins its
	// implicit transaction.
	Acquire(ctx context.Context) (Conn, error)
	// Release returns a connection that was committed/rolled back by the
	// caller back to the pool.
	Release(conn Conn) error
	Shutdown() error

	// Placeholder renders the portable ":name" bind-parameter token that
	// table/query code embeds directly in SQL text; Conn implementations
	// rewrite it to the backend's native form before executing.
	Placeholder(name string) string

	// ForUpdateClause returns the textual "FOR UPDATE" clause, or "" when
	// the backend has no row-level locking.
	ForUpdateClause() string

	// AutoIncrementPKClause renders the backend's native idiom for an
	// autoincrement integer primary-key column declaration.
	AutoIncrementPKClause(columnName string) string

	// Normalize applies the backend's value-normalization heuristics to a
	// freshly fetched row in place.
	// Backends with native boolean/timestamp types are expected to no-op.
	Normalize(row Row)
}

// DB is the minimal handle every concrete adapter keeps; exported so tests
// can construct adapters around an in-memory sql.DB via sqlmock-less
// direct wiring.
type DB = sql.DB
