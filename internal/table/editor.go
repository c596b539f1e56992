package table

import (
	"context"

	"github.com/genrocorp/genroproxy/internal/apperr"
	"github.com/genrocorp/genroproxy/internal/query"
)

// EditorOptions configures RecordToUpdate's not-found behavior.
type EditorOptions struct {
	InsertMissing bool
	IgnoreMissing bool
}

// RecordToUpdate implements the scoped-record-editor contract as a
// callback: fn receives the locked (or seeded, or empty) record to
// mutate; a non-nil return aborts with no write; a nil return commits an
// insert (if seeded) or an update (by key).
func (t *Table) RecordToUpdate(ctx context.Context, key interface{}, opts EditorOptions, fn func(rec Record) error) error {
	where := t.keyToWhere(key)

	rec, err := t.Record(ctx, key, RecordOptions{ForUpdate: true, IgnoreMissing: true})
	if err != nil {
		return err
	}

	seeded := false
	if len(rec) == 0 {
		exists, err := t.db.Exists(ctx, t.name, where)
		if err != nil {
			return apperr.Unhandled("record-to-update existence check failed").WithCause(err)
		}
		if !exists {
			switch {
			case opts.InsertMissing:
				rec = Record{}
				for k, v := range where {
					rec[k] = v
				}
				seeded = true
			case opts.IgnoreMissing:
				rec = Record{}
			default:
				return apperr.NotFound("record not found for update")
			}
		}
	}

	if err := fn(rec); err != nil {
		return err
	}

	if seeded {
		return t.Insert(ctx, rec, false)
	}
	if len(rec) == 0 {
		return nil
	}
	_, err = t.Update(ctx, rec, where)
	return err
}

// BatchUpdate applies updater to every row whose primary key is in pkeys.
// raw issues a single UPDATE ... WHERE pk IN (...) with no triggers; the
// default mode selects each row and updates it individually with triggers,
// and updater may return (nil, false) to skip a row
func (t *Table) BatchUpdate(ctx context.Context, pkeys []interface{}, raw bool, values map[string]interface{}, updater func(rec Record) (Record, bool)) error {
	if raw {
		q := t.Query().Match("$pks", map[string]query.Predicate{
				"pks": {Column: t.pkColumn, Op: query.OpIn, Value: pkeys},
			}, nil)
		_, err := q.RawUpdate(ctx, values)
		if err != nil {
			return apperr.Unhandled("batch update failed").WithCause(err)
		}
		return nil
	}

	for _, k := range pkeys {
		rec, err := t.Record(ctx, k, RecordOptions{})
		if err != nil {
			return err
		}
		updated, ok := updater(rec)
		if !ok {
			continue
		}
		if _, err := t.Update(ctx, updated, map[string]interface{}{t.pkColumn: k}); err != nil {
			return err
		}
	}
	return nil
}
