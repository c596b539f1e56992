package dbmanager

import (
	"context"
	"fmt"
	"sort"
	"strings"

	"github.com/genrocorp/genroproxy/internal/dbadapter"
)

// whereClause renders a simple equality where-map (implicit AND) into SQL
// plus its named bind values. Deterministic column order keeps generated
// SQL stable for tests and logs.
func whereClause(adapter dbadapter.Adapter, where map[string]interface{}, paramPrefix string) (string, map[string]interface{}) {
	if len(where) == 0 {
		return "", nil
	}
	cols := make([]string, 0, len(where))
	for c := range where {
		cols = append(cols, c)
	}
	sort.Strings(cols)

	parts := make([]string, 0, len(cols))
	named := make(map[string]interface{}, len(cols))
	for _, c := range cols {
		pname := paramPrefix + c
		parts = append(parts, fmt.Sprintf("%s = %s", c, adapter.Placeholder(pname)))
		named[pname] = where[c]
	}
	return " WHERE " + strings.Join(parts, " AND "), named
}

// Insert inserts record into table, using the adapter's placeholder
// discipline throughout.
func (m *Manager) Insert(ctx context.Context, table string, record map[string]interface{}) error {
	conn, err := Current(ctx)
	if err != nil {
		return err
	}

	cols := make([]string, 0, len(record))
	for c := range record {
		cols = append(cols, c)
	}
	sort.Strings(cols)

	placeholders := make([]string, len(cols))
	named := make(map[string]interface{}, len(cols))
	for i, c := range cols {
		placeholders[i] = m.adapter.Placeholder("v_" + c)
		named["v_"+c] = record[c]
	}

	query := fmt.Sprintf("INSERT INTO %s (%s) VALUES (%s)", table, strings.Join(cols, ", "), strings.Join(placeholders, ", "))
	_, err = conn.Exec(ctx, query, named)
	return err
}

// InsertReturningID inserts record and returns the backend-generated
// primary key.
func (m *Manager) InsertReturningID(ctx context.Context, table, pkColumn string, record map[string]interface{}) (int64, error) {
	conn, err := Current(ctx)
	if err != nil {
		return 0, err
	}

	cols := make([]string, 0, len(record))
	for c := range record {
		cols = append(cols, c)
	}
	sort.Strings(cols)

	placeholders := make([]string, len(cols))
	named := make(map[string]interface{}, len(cols))
	for i, c := range cols {
		placeholders[i] = m.adapter.Placeholder("v_" + c)
		named["v_"+c] = record[c]
	}

	query := fmt.Sprintf("INSERT INTO %s (%s) VALUES (%s)", table, strings.Join(cols, ", "), strings.Join(placeholders, ", "))
	return conn.InsertReturningID(ctx, table, pkColumn, query, named)
}

// Select returns rows matching the equality where-map.
// Complex predicates go through the query builder instead.
func (m *Manager) Select(ctx context.Context, table string, columns []string, where map[string]interface{}, orderBy string, limit int) ([]dbadapter.Row, error) {
	return m.SelectLocking(ctx, table, columns, where, orderBy, limit, false)
}

// SelectLocking is Select with an optional row lock; the lock clause is empty on backends without
// row-level locking.
func (m *Manager) SelectLocking(ctx context.Context, table string, columns []string, where map[string]interface{}, orderBy string, limit int, forUpdate bool) ([]dbadapter.Row, error) {
	conn, err := Current(ctx)
	if err != nil {
		return nil, err
	}

	colList := "*"
	if len(columns) > 0 {
		colList = strings.Join(columns, ", ")
	}

	clause, named := whereClause(m.adapter, where, "w_")
	query := fmt.Sprintf("SELECT %s FROM %s%s", colList, table, clause)
	if orderBy != "" {
		query += " ORDER BY " + orderBy
	}
	if limit > 0 {
		query += fmt.Sprintf(" LIMIT %d", limit)
	}
	if forUpdate {
		if lock := m.adapter.ForUpdateClause(); lock != "" {
			query += " " + lock
		}
	}

	return conn.FetchAll(ctx, query, named)
}

// Update updates rows matching where with values.
func (m *Manager) Update(ctx context.Context, table string, values, where map[string]interface{}) (int64, error) {
	conn, err := Current(ctx)
	if err != nil {
		return 0, err
	}

	cols := make([]string, 0, len(values))
	for c := range values {
		cols = append(cols, c)
	}
	sort.Strings(cols)

	sets := make([]string, len(cols))
	named := make(map[string]interface{}, len(cols))
	for i, c := range cols {
		pname := "s_" + c
		sets[i] = fmt.Sprintf("%s = %s", c, m.adapter.Placeholder(pname))
		named[pname] = values[c]
	}

	clause, whereNamed := whereClause(m.adapter, where, "w_")
	for k, v := range whereNamed {
		named[k] = v
	}

	query := fmt.Sprintf("UPDATE %s SET %s%s", table, strings.Join(sets, ", "), clause)
	return conn.Exec(ctx, query, named)
}

// Delete removes rows matching where.
func (m *Manager) Delete(ctx context.Context, table string, where map[string]interface{}) (int64, error) {
	conn, err := Current(ctx)
	if err != nil {
		return 0, err
	}
	clause, named := whereClause(m.adapter, where, "w_")
	query := fmt.Sprintf("DELETE FROM %s%s", table, clause)
	return conn.Exec(ctx, query, named)
}

// Exists reports whether any row matches where.
func (m *Manager) Exists(ctx context.Context, table string, where map[string]interface{}) (bool, error) {
	conn, err := Current(ctx)
	if err != nil {
		return false, err
	}
	clause, named := whereClause(m.adapter, where, "w_")
	query := fmt.Sprintf("SELECT 1 FROM %s%s LIMIT 1", table, clause)
	row, found, err := conn.FetchOne(ctx, query, named)
	_ = row
	return found, err
}

// Count returns the number of rows matching where.
func (m *Manager) Count(ctx context.Context, table string, where map[string]interface{}) (int64, error) {
	conn, err := Current(ctx)
	if err != nil {
		return 0, err
	}
	clause, named := whereClause(m.adapter, where, "w_")
	query := fmt.Sprintf("SELECT COUNT(*) AS n FROM %s%s", table, clause)
	row, _, err := conn.FetchOne(ctx, query, named)
	if err != nil {
		return 0, err
	}
	return toInt64(row["n"]), nil
}

func toInt64(v interface{}) int64 {
	switch n := v.(type) {
	case int64:
		return n
	case int:
		return int64(n)
	case float64:
		return int64(n)
	default:
		return 0
	}
}
