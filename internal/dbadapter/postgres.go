package dbadapter

import (
	"context"
	"database/sql"
	"fmt"

	_ "github.com/lib/pq"
)

// postgresAdapter implements Adapter for the networked relational backend
// via lib/pq. Postgres has native BOOLEAN/TIMESTAMP types so
// Normalize is a no-op, and it supports row locking so ForUpdateClause
// returns "FOR UPDATE".
type postgresAdapter struct {
	db *sql.DB
}

// OpenPostgres opens the networked backend from a postgres://... DSN.
func OpenPostgres(dsn string) (Adapter, error) {
	db, err := sql.Open("postgres", dsn)
	if err != nil {
		return nil, fmt.Errorf("postgres open: %w", err)
	}
	if err := db.Ping(); err != nil {
		db.Close()
		return nil, fmt.Errorf("postgres ping: %w", err)
	}
	db.SetMaxOpenConns(25)
	db.SetMaxIdleConns(5)
	return &postgresAdapter{db: db}, nil
}

func (a *postgresAdapter) Name() string { return "postgres" }

func (a *postgresAdapter) Ping() error { return a.db.Ping() }

func (a *postgresAdapter) Acquire(ctx context.Context) (Conn, error) {
	tx, err := a.db.BeginTx(ctx, nil)
	if err != nil {
		return nil, fmt.Errorf("postgres begin: %w", err)
	}
	return &postgresConn{tx: tx}, nil
}

func (a *postgresAdapter) Release(Conn) error { return nil }
func (a *postgresAdapter) Shutdown() error { return a.db.Close() }

func (a *postgresAdapter) Placeholder(name string) string { return ":" + name }
func (a *postgresAdapter) ForUpdateClause() string { return "FOR UPDATE" }

func (a *postgresAdapter) AutoIncrementPKClause(columnName string) string {
	return fmt.Sprintf("%s SERIAL PRIMARY KEY", columnName)
}

func (a *postgresAdapter) Normalize(row Row) {}

type postgresConn struct {
	tx *sql.Tx
}

func (c *postgresConn) rewrite(query string, named map[string]interface{}) (string, []interface{}, error) {
	return rewritePositional(query, named, postgresPlaceholder)
}

func (c *postgresConn) Exec(ctx context.Context, query string, named map[string]interface{}) (int64, error) {
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

func (c *postgresConn) ExecMany(ctx context.Context, query string, named []map[string]interface{}) error {
	for _, n := range named {
		if _, err := c.Exec(ctx, query, n); err != nil {
			return err
		}
	}
	return nil
}

func (c *postgresConn) FetchAll(ctx context.Context, query string, named map[string]interface{}) ([]Row, error) {
	q, args, err := c.rewrite(query, named)
	if err != nil {
		return nil, err
	}
	rows, err := c.tx.QueryContext(ctx, q, args...)
	if err != nil {
		return nil, err
	}
	return scanRows(rows)
}

func (c *postgresConn) FetchOne(ctx context.Context, query string, named map[string]interface{}) (Row, bool, error) {
	rows, err := c.FetchAll(ctx, query, named)
	if err != nil {
		return nil, false, err
	}
	if len(rows) == 0 {
		return nil, false, nil
	}
	return rows[0], true, nil
}

func (c *postgresConn) ExecuteScript(ctx context.Context, script string) error {
	_, err := c.tx.ExecContext(ctx, script)
	return err
}

// InsertReturningID appends a RETURNING clause, since postgres has no
// driver-level last-insert-id concept.
func (c *postgresConn) InsertReturningID(ctx context.Context, table, pkColumn, query string, named map[string]interface{}) (int64, error) {
	q, args, err := c.rewrite(query+fmt.Sprintf(" RETURNING %s", pkColumn), named)
	if err != nil {
		return 0, err
	}
	var id int64
	if err := c.tx.QueryRowContext(ctx, q, args...).Scan(&id); err != nil {
		return 0, err
	}
	return id, nil
}

func (c *postgresConn) Commit() error { return c.tx.Commit() }
func (c *postgresConn) Rollback() error { return c.tx.Rollback() }
