// Package table implements schema-bound CRUD with JSON encode/decode,
// field encryption, and the update-trigger contract, layered over
// internal/dbmanager's simple-equality helpers, over a declarative,
// per-entity column set.
package table

import (
	"context"
	"encoding/json"
	"fmt"

	"github.com/genrocorp/genroproxy/internal/apperr"
	"github.com/genrocorp/genroproxy/internal/crypto"
	"github.com/genrocorp/genroproxy/internal/dbadapter"
	"github.com/genrocorp/genroproxy/internal/dbmanager"
	"github.com/genrocorp/genroproxy/internal/schema"
	"github.com/google/uuid"
)

// Record is one row represented as a column-name-keyed map, the shape
// every Table operation reads and writes.
type Record = map[string]interface{}

// Triggers are the six optional update hooks. Mutations a trigger makes to
// rec are visible to the subsequent storage call.
type Triggers struct {
	OnInserting func(ctx context.Context, rec Record) error
	OnInserted  func(ctx context.Context, rec Record) error
	OnUpdating  func(ctx context.Context, rec Record) error
	OnUpdated   func(ctx context.Context, rec Record) error
	OnDeleting  func(ctx context.Context, rec Record) error
	OnDeleted   func(ctx context.Context, rec Record) error
}

// Table binds a schema (name, primary key, columns) to a database manager
// and an optional encryption manager, and implements schema.TableSchema so
// the manager's CheckStructure/SyncSchema can generate its DDL.
type Table struct {
	name      string
	pkColumn  string
	pkPolicy  schema.PKPolicy
	columns   []schema.Column
	extraUniq []string
	triggers  Triggers

	db  *dbmanager.Manager
	enc *crypto.Manager
}

// Config is the declarative shape a concrete entity package passes to New.
type Config struct {
	Name             string
	PrimaryKey       string
	PrimaryKeyPolicy schema.PKPolicy
	Columns          []schema.Column
	ExtraUnique      []string // e.g. "UNIQUE (tenant_id, slug)"
	Triggers         Triggers
}

// New constructs a Table from a Config, bound to db for CRUD and enc for
// field encryption (enc may be nil, meaning "not configured").
func New(cfg Config, db *dbmanager.Manager, enc *crypto.Manager) *Table {
	return &Table{
		name:      cfg.Name,
		pkColumn:  cfg.PrimaryKey,
		pkPolicy:  cfg.PrimaryKeyPolicy,
		columns:   cfg.Columns,
		extraUniq: cfg.ExtraUnique,
		triggers:  cfg.Triggers,
		db:        db,
		enc:       enc,
	}
}

func (t *Table) Name() string { return t.name }

// schema.TableSchema implementation.
func (t *Table) TableName() string                 { return t.name }
func (t *Table) PrimaryKeyColumn() string          { return t.pkColumn }
func (t *Table) PrimaryKeyPolicy() schema.PKPolicy { return t.pkPolicy }
func (t *Table) SchemaColumns() []schema.Column    { return t.columns }
func (t *Table) ExtraConstraints() []string        { return t.extraUniq }

func (t *Table) columnByName(name string) (schema.Column, bool) {
	for _, c := range t.columns {
		if c.Name == name {
			return c, true
		}
	}
	return schema.Column{}, false
}

// encodeForStorage applies JSON encoding and encryption to rec's columns
// in place before a write.
func (t *Table) encodeForStorage(rec Record) error {
	for _, c := range t.columns {
		val, ok := rec[c.Name]
		if !ok || val == nil {
			continue
		}
		if c.JSONEncoded {
			b, err := json.Marshal(val)
			if err != nil {
				return fmt.Errorf("encode column %s: %w", c.Name, err)
			}
			val = string(b)
		}
		if c.Encrypted {
			s, ok := val.(string)
			if !ok {
				return fmt.Errorf("encrypted column %s must be a string after JSON encoding", c.Name)
			}
			enc, err := t.encryptionManager().Encrypt(s)
			if err != nil {
				return fmt.Errorf("encrypt column %s: %w", c.Name, err)
			}
			val = enc
		}
		rec[c.Name] = val
	}
	return nil
}

// decodeFromStorage applies decryption and JSON decoding to a freshly
// fetched row in place. Decryption failures are tolerated: the stored
// string is returned unchanged.
func (t *Table) decodeFromStorage(row dbadapter.Row) {
	for _, c := range t.columns {
		val, ok := row[c.Name]
		if !ok || val == nil {
			continue
		}
		s, isString := val.(string)

		if c.Encrypted && isString {
			if dec, err := t.encryptionManager().Decrypt(s); err == nil {
				s = dec
				val = dec
			}
		}

		if c.JSONEncoded && isString {
			var decoded interface{}
			if err := json.Unmarshal([]byte(s), &decoded); err == nil {
				val = decoded
			}
		}

		row[c.Name] = val
	}
}

func (t *Table) encryptionManager() *crypto.Manager {
	if t.enc != nil {
		return t.enc
	}
	return &crypto.Manager{}
}

// generatePK seeds rec[pk] for the UUID policy, or leaves it absent for the
// autoincrement policy (the backend/InsertReturningID produces it).
func (t *Table) generatePK(rec Record) {
	if t.pkPolicy != schema.PKPolicyUUID {
		return
	}
	if _, ok := rec[t.pkColumn]; !ok {
		rec[t.pkColumn] = uuid.NewString()
	}
}

// Insert runs on_inserting, encodes/encrypts, inserts (capturing a
// generated autoincrement key into rec), and runs on_inserted. raw skips
// encode/encrypt/triggers entirely for bulk-load style callers.
func (t *Table) Insert(ctx context.Context, rec Record, raw bool) error {
	if !raw {
		if t.triggers.OnInserting != nil {
			if err := t.triggers.OnInserting(ctx, rec); err != nil {
				return err
			}
		}
		t.generatePK(rec)
		if err := t.encodeForStorage(rec); err != nil {
			return err
		}
	}

	if t.pkPolicy == schema.PKPolicyAutoincrement {
		id, err := t.db.InsertReturningID(ctx, t.name, t.pkColumn, rec)
		if err != nil {
			return apperr.Unhandled("insert failed").WithCause(err)
		}
		rec[t.pkColumn] = id
	} else {
		if err := t.db.Insert(ctx, t.name, rec); err != nil {
			return apperr.Unhandled("insert failed").WithCause(err)
		}
	}

	if !raw && t.triggers.OnInserted != nil {
		if err := t.triggers.OnInserted(ctx, rec); err != nil {
			return err
		}
	}
	return nil
}

// RecordOptions configures Record's not-found/duplicate tolerance and
// column projection.
type RecordOptions struct {
	IgnoreMissing   bool
	IgnoreDuplicate bool
	ForUpdate       bool
	Columns         []string
	Raw             bool
}

// Record fetches exactly one row by primary key or equality predicate. Key
// may be a scalar (matched against the primary key) or a map (matched as
// an equality where-clause).
func (t *Table) Record(ctx context.Context, key interface{}, opts RecordOptions) (Record, error) {
	where := t.keyToWhere(key)

	rows, err := t.db.SelectLocking(ctx, t.name, opts.Columns, where, "", 0, opts.ForUpdate)
	if err != nil {
		return nil, apperr.Unhandled("record fetch failed").WithCause(err)
	}

	if len(rows) == 0 {
		if opts.IgnoreMissing {
			return Record{}, nil
		}
		return nil, apperr.NotFound(fmt.Sprintf("%s record not found", t.name))
	}
	if len(rows) > 1 && !opts.IgnoreDuplicate {
		return nil, apperr.Duplicate(fmt.Sprintf("%s predicate matched more than one row", t.name))
	}

	row := rows[0]
	if !opts.Raw {
		t.decodeFromStorage(row)
	}
	return Record(row), nil
}

func (t *Table) keyToWhere(key interface{}) map[string]interface{} {
	if m, ok := key.(map[string]interface{}); ok {
		return m
	}
	return map[string]interface{}{t.pkColumn: key}
}

// Select runs an equality-predicate read, decoding every row.
func (t *Table) Select(ctx context.Context, columns []string, where map[string]interface{}, orderBy string, limit int) ([]Record, error) {
	rows, err := t.db.Select(ctx, t.name, columns, where, orderBy, limit)
	if err != nil {
		return nil, apperr.Unhandled("select failed").WithCause(err)
	}
	out := make([]Record, len(rows))
	for i, r := range rows {
		t.decodeFromStorage(r)
		out[i] = Record(r)
	}
	return out, nil
}

// Update runs on_updating, encodes/encrypts the value set, issues the
// UPDATE, and runs on_updated.
func (t *Table) Update(ctx context.Context, values, where map[string]interface{}) (int64, error) {
	if t.triggers.OnUpdating != nil {
		if err := t.triggers.OnUpdating(ctx, values); err != nil {
			return 0, err
		}
	}
	if err := t.encodeForStorage(values); err != nil {
		return 0, err
	}

	n, err := t.db.Update(ctx, t.name, values, where)
	if err != nil {
		return 0, apperr.Unhandled("update failed").WithCause(err)
	}

	if t.triggers.OnUpdated != nil {
		if err := t.triggers.OnUpdated(ctx, values); err != nil {
			return n, err
		}
	}
	return n, nil
}

// Delete runs on_deleting, issues the DELETE, and runs on_deleted.
func (t *Table) Delete(ctx context.Context, where map[string]interface{}) (int64, error) {
	if t.triggers.OnDeleting != nil {
		if err := t.triggers.OnDeleting(ctx, where); err != nil {
			return 0, err
		}
	}

	n, err := t.db.Delete(ctx, t.name, where)
	if err != nil {
		return 0, apperr.Unhandled("delete failed").WithCause(err)
	}

	if t.triggers.OnDeleted != nil {
		if err := t.triggers.OnDeleted(ctx, where); err != nil {
			return n, err
		}
	}
	return n, nil
}

func (t *Table) Exists(ctx context.Context, where map[string]interface{}) (bool, error) {
	return t.db.Exists(ctx, t.name, where)
}

func (t *Table) Count(ctx context.Context, where map[string]interface{}) (int64, error) {
	return t.db.Count(ctx, t.name, where)
}
