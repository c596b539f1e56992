package query

import (
	"context"
	"fmt"

	"github.com/genrocorp/genroproxy/internal/dbadapter"
	"github.com/genrocorp/genroproxy/internal/dbmanager"
)

// Query is the fluent query-builder object, bound to one table. Build it
// with either Where (simple equality, implicit AND) or Match (a free-form
// boolean expression over named predicates).
type Query struct {
	db    *dbmanager.Manager
	table string

	equality map[string]interface{}
	expr     string
	preds    map[string]Predicate
	external map[string]interface{}
}

// New starts a Query over table.
func New(db *dbmanager.Manager, table string) *Query {
	return &Query{db: db, table: table}
}

// Where sets a simple equality predicate map, combined with implicit AND.
func (q *Query) Where(equality map[string]interface{}) *Query {
	q.equality = equality
	return q
}

// Match sets a free-form boolean expression over named predicates.
// external supplies values referenced by predicates whose Value is the
// string form ":name".
func (q *Query) Match(expr string, predicates map[string]Predicate, external map[string]interface{}) *Query {
	q.expr = expr
	q.preds = predicates
	q.external = external
	return q
}

// compile renders the accumulated predicate(s) into a WHERE clause body
// (without the "WHERE" keyword) and the named bind values.
func (q *Query) compile() (string, map[string]interface{}, error) {
	adapter := q.db.Adapter()

	if q.expr != "" {
		sql, named, err := Compile(q.expr, q.preds, adapter.Placeholder, q.external)
		if err != nil {
			return "", nil, err
		}
		return sql, named, nil
	}

	if len(q.equality) == 0 {
		return "", nil, nil
	}

	named := map[string]interface{}{}
	parts := make([]string, 0, len(q.equality))
	i := 0
	for col, val := range q.equality {
		pname := fmt.Sprintf("eq_%d", i)
		i++
		parts = append(parts, fmt.Sprintf("%s = %s", col, adapter.Placeholder(pname)))
		named[pname] = val
	}
	clause := parts[0]
	for _, p := range parts[1:] {
		clause = clause + " AND " + p
	}
	return clause, named, nil
}

func (q *Query) selectSQL(columns string) (string, map[string]interface{}, error) {
	clause, named, err := q.compile()
	if err != nil {
		return "", nil, err
	}
	sql := fmt.Sprintf("SELECT %s FROM %s", columns, q.table)
	if clause != "" {
		sql += " WHERE " + clause
	}
	return sql, named, nil
}

// Fetch returns every matching row as the adapter scanned it: no JSON
// decoding and no decryption is applied.
func (q *Query) Fetch(ctx context.Context) ([]dbadapter.Row, error) {
	conn, err := dbmanager.Current(ctx)
	if err != nil {
		return nil, err
	}
	sql, named, err := q.selectSQL("*")
	if err != nil {
		return nil, err
	}
	return conn.FetchAll(ctx, sql, named)
}

// FetchOne returns the first matching row, or ok=false if none match.
func (q *Query) FetchOne(ctx context.Context) (dbadapter.Row, bool, error) {
	rows, err := q.Fetch(ctx)
	if err != nil {
		return nil, false, err
	}
	if len(rows) == 0 {
		return nil, false, nil
	}
	return rows[0], true, nil
}

// Count returns the number of matching rows.
func (q *Query) Count(ctx context.Context) (int64, error) {
	conn, err := dbmanager.Current(ctx)
	if err != nil {
		return 0, err
	}
	clause, named, err := q.compile()
	if err != nil {
		return 0, err
	}
	sql := fmt.Sprintf("SELECT COUNT(*) AS n FROM %s", q.table)
	if clause != "" {
		sql += " WHERE " + clause
	}
	row, _, err := conn.FetchOne(ctx, sql, named)
	if err != nil {
		return 0, err
	}
	n, _ := row["n"].(int64)
	return n, nil
}

// Exists reports whether any row matches.
func (q *Query) Exists(ctx context.Context) (bool, error) {
	conn, err := dbmanager.Current(ctx)
	if err != nil {
		return false, err
	}
	clause, named, err := q.compile()
	if err != nil {
		return false, err
	}
	sql := fmt.Sprintf("SELECT 1 FROM %s", q.table)
	if clause != "" {
		sql += " WHERE " + clause
	}
	sql += " LIMIT 1"
	_, found, err := conn.FetchOne(ctx, sql, named)
	return found, err
}

// RawUpdate issues a single UPDATE over every matching row with no
// triggers and no JSON/encryption encoding.
func (q *Query) RawUpdate(ctx context.Context, values map[string]interface{}) (int64, error) {
	conn, err := dbmanager.Current(ctx)
	if err != nil {
		return 0, err
	}
	adapter := q.db.Adapter()

	clause, named, err := q.compile()
	if err != nil {
		return 0, err
	}
	if named == nil {
		named = map[string]interface{}{}
	}

	i := 0
	sets := make([]string, 0, len(values))
	for col, val := range values {
		pname := fmt.Sprintf("set_%d", i)
		i++
		sets = append(sets, fmt.Sprintf("%s = %s", col, adapter.Placeholder(pname)))
		named[pname] = val
	}
	setClause := sets[0]
	for _, s := range sets[1:] {
		setClause += ", " + s
	}

	sql := fmt.Sprintf("UPDATE %s SET %s", q.table, setClause)
	if clause != "" {
		sql += " WHERE " + clause
	}
	return conn.Exec(ctx, sql, named)
}

// RawDelete issues a single DELETE over every matching row with no
// triggers.
func (q *Query) RawDelete(ctx context.Context) (int64, error) {
	conn, err := dbmanager.Current(ctx)
	if err != nil {
		return 0, err
	}
	clause, named, err := q.compile()
	if err != nil {
		return 0, err
	}
	sql := fmt.Sprintf("DELETE FROM %s", q.table)
	if clause != "" {
		sql += " WHERE " + clause
	}
	return conn.Exec(ctx, sql, named)
}
