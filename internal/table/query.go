package table

import (
	"context"

	"github.com/genrocorp/genroproxy/internal/query"
)

// Query starts a query.Query bound to this table.
func (t *Table) Query() *query.Query {
	return query.New(t.db, t.name)
}

// QueryUpdate applies values to every row q matches. raw issues one
// UPDATE with no triggers/encoding (query.Query.RawUpdate); the default
// mode selects the matching rows then updates each individually through
// Table.Update, preserving the trigger contract consistent with single-row
// operations.
func (t *Table) QueryUpdate(ctx context.Context, q *query.Query, values map[string]interface{}, raw bool) (int64, error) {
	if raw {
		return q.RawUpdate(ctx, values)
	}

	rows, err := q.Fetch(ctx)
	if err != nil {
		return 0, err
	}
	var n int64
	for _, row := range rows {
		pk := row[t.pkColumn]
		merged := make(map[string]interface{}, len(values))
		for k, v := range values {
			merged[k] = v
		}
		affected, err := t.Update(ctx, merged, map[string]interface{}{t.pkColumn: pk})
		if err != nil {
			return n, err
		}
		n += affected
	}
	return n, nil
}

// QueryDelete removes every row q matches. raw issues one DELETE with no
// triggers; the default mode selects then deletes each row individually
// through Table.Delete.
func (t *Table) QueryDelete(ctx context.Context, q *query.Query, raw bool) (int64, error) {
	if raw {
		return q.RawDelete(ctx)
	}

	rows, err := q.Fetch(ctx)
	if err != nil {
		return 0, err
	}
	var n int64
	for _, row := range rows {
		pk := row[t.pkColumn]
		affected, err := t.Delete(ctx, map[string]interface{}{t.pkColumn: pk})
		if err != nil {
			return n, err
		}
		n += affected
	}
	return n, nil
}
