package dbadapter

import (
	"context"
	"database/sql"
	"fmt"

	_ "github.com/mattn/go-sqlite3"
)

// sqliteAdapter implements Adapter for the embedded file backend via the
// mattn/go-sqlite3 driver. SQLite has no native boolean/timestamp type, so
// Normalize applies the boolean/timestamp heuristics; it has no row-level
// locking, so ForUpdateClause is empty.
type sqliteAdapter struct {
	db *sql.DB
}

// OpenSQLite opens the embedded backend at path (":memory:" or a file
// path).
func OpenSQLite(path string) (Adapter, error) {
	db, err := sql.Open("sqlite3", path+"?_foreign_keys=on")
	if err != nil {
		return nil, fmt.Errorf("sqlite open: %w", err)
	}
	if err := db.Ping(); err != nil {
		db.Close()
		return nil, fmt.Errorf("sqlite ping: %w", err)
	}
	// SQLite serializes writers at the file level; a single connection
	// avoids SQLITE_BUSY under concurrent task access.
	db.SetMaxOpenConns(1)
	return &sqliteAdapter{db: db}, nil
}

func (a *sqliteAdapter) Name() string { return "sqlite" }

func (a *sqliteAdapter) Ping() error { return a.db.Ping() }

func (a *sqliteAdapter) Acquire(ctx context.Context) (Conn, error) {
	tx, err := a.db.BeginTx(ctx, nil)
	if err != nil {
		return nil, fmt.Errorf("sqlite begin: %w", err)
	}
	return &sqliteConn{tx: tx}, nil
}

func (a *sqliteAdapter) Release(Conn) error { return nil }
func (a *sqliteAdapter) Shutdown() error { return a.db.Close() }

func (a *sqliteAdapter) Placeholder(name string) string { return ":" + name }
func (a *sqliteAdapter) ForUpdateClause() string { return "" }

func (a *sqliteAdapter) AutoIncrementPKClause(columnName string) string {
	return fmt.Sprintf("%s INTEGER PRIMARY KEY AUTOINCREMENT", columnName)
}

func (a *sqliteAdapter) Normalize(row Row) { normalizeRow(row) }

type sqliteConn struct {
	tx *sql.Tx
}

func (c *sqliteConn) rewrite(query string, named map[string]interface{}) (string, []interface{}, error) {
	return rewritePositional(query, named, qmarkPlaceholder)
}

func (c *sqliteConn) Exec(ctx context.Context, query string, named map[string]interface{}) (int64, error) {
	q, args, err := c.rewrite(query, named)
	if err != nil {
		return 0, err
	}
	res, err := c.tx.ExecContext(ctx, q, args...)
	if err != nil {
		return 0, err
	}
	return res.RowsAffected()
}

func (c *sqliteConn) ExecMany(ctx context.Context, query string, named []map[string]interface{}) error {
	for _, n := range named {
		if _, err := c.Exec(ctx, query, n); err != nil {
			return err
		}
	}
	return nil
}

func (c *sqliteConn) FetchAll(ctx context.Context, query string, named map[string]interface{}) ([]Row, error) {
	q, args, err := c.rewrite(query, named)
	if err != nil {
		return nil, err
	}
	rows, err := c.tx.QueryContext(ctx, q, args...)
	if err != nil {
		return nil, err
	}
	out, err := scanRows(rows)
	if err != nil {
		return nil, err
	}
	for _, r := range out {
		normalizeRow(r)
	}
	return out, nil
}

func (c *sqliteConn) FetchOne(ctx context.Context, query string, named map[string]interface{}) (Row, bool, error) {
	rows, err := c.FetchAll(ctx, query, named)
	if err != nil {
		return nil, false, err
	}
	if len(rows) == 0 {
		return nil, false, nil
	}
	return rows[0], true, nil
}

func (c *sqliteConn) ExecuteScript(ctx context.Context, script string) error {
	_, err := c.tx.ExecContext(ctx, script)
	return err
}

func (c *sqliteConn) InsertReturningID(ctx context.Context, table, pkColumn, query string, named map[string]interface{}) (int64, error) {
	q, args, err := c.rewrite(query, named)
	if err != nil {
		return 0, err
	}
	res, err := c.tx.ExecContext(ctx, q, args...)
	if err != nil {
		return 0, err
	}
	return res.LastInsertId()
}

func (c *sqliteConn) Commit() error { return c.tx.Commit() }
func (c *sqliteConn) Rollback() error { return c.tx.Rollback() }
