// Package dbmanager implements the database manager: a task-local
// connection context, DDL generation for caller-supplied table schemas,
// and the simple-equality CRUD helpers every Table builds on, wrapping a
// single shared *sql.DB in a per-request transactional model.
package dbmanager

import (
	"context"
	"fmt"

	"github.com/genrocorp/genroproxy/internal/apperr"
	"github.com/genrocorp/genroproxy/internal/dbadapter"
)

type connKey struct{}

// Manager owns one adapter. It keeps no registry of tables and has no
// lookup of a table by name: CheckStructure and SyncSchema take the table
// schemas from the caller, and the CRUD helpers take a table name. It is safe for
// concurrent use: every goroutine carries its own connection via
// context.Context, so no two goroutines ever observe the same
// *dbadapter.Conn.
type Manager struct {
	adapter Adapter
}

// Adapter is the subset of dbadapter.Adapter the manager depends on; kept
// as its own name so callers can read dbmanager's contract without jumping
// packages.
type Adapter = dbadapter.Adapter

// New wraps an already-open adapter.
func New(adapter Adapter) *Manager {
	return &Manager{adapter: adapter}
}

func (m *Manager) Adapter() Adapter { return m.adapter }

// Connection opens a scoped connection context: acquires one
// connection, runs fn with a context carrying it, commits on normal return,
// rolls back on error or panic, and always releases. Concurrent callers in
// different goroutines never share the acquired connection.
func (m *Manager) Connection(ctx context.Context, fn func(ctx context.Context) error) (err error) {
	conn, acquireErr := m.adapter.Acquire(ctx)
	if acquireErr != nil {
		return apperr.BackendUnavailable("failed to acquire database connection").WithCause(acquireErr)
	}

	scoped := context.WithValue(ctx, connKey{}, conn)

	defer func() {
		if r := recover(); r != nil {
			_ = conn.Rollback()
			_ = m.adapter.Release(conn)
			panic(r)
		}
		if err != nil {
			_ = conn.Rollback()
		} else {
			err = conn.Commit()
		}
		_ = m.adapter.Release(conn)
	}()

	err = fn(scoped)
	return err
}

// Current returns the connection bound to ctx by Connection. Calling any
// query method outside an active Connection is a programming error and
// surfaces immediately as an error return.
func Current(ctx context.Context) (dbadapter.Conn, error) {
	conn, ok := ctx.Value(connKey{}).(dbadapter.Conn)
	if !ok {
		return nil, fmt.Errorf("dbmanager: no connection bound to context, query method called outside Connection()")
	}
	return conn, nil
}
