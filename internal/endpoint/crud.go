package endpoint

import (
	"context"

	"github.com/genrocorp/genroproxy/internal/schema"
	"github.com/genrocorp/genroproxy/internal/table"
)

// RegisterDefaultCRUD adds the four standard methods (list, get, add,
// delete) against b.table, with their parameter descriptors synthesized
// from the table's column set. Concrete entity packages call this after
// New and before any entity-specific Register call, so a bespoke method
// of the same name simply overwrites the default.
func (b *Base) RegisterDefaultCRUD() {
	if b.table == nil {
		return
	}
	pk := b.table.PrimaryKeyColumn()

	b.RegisterWithOverride(Method{
		Name: "list",
		Params: []Param{
			{Name: "tenant_id", Type: ParamString},
			{Name: "where", Type: ParamMap},
			{Name: "order_by", Type: ParamString},
			{Name: "limit", Type: ParamInt, Default: int64(0)},
		},
		Handler: b.handleList,
	}, MethodOverride{})

	b.RegisterWithOverride(Method{
		Name: "get",
		Params: []Param{
			{Name: "tenant_id", Type: ParamString},
			{Name: pk, Type: ParamString, Required: true},
		},
		Handler: b.handleGet,
	}, MethodOverride{})

	post := true
	b.RegisterWithOverride(Method{
		Name:    "add",
		Params:  columnParams(b.table.SchemaColumns(), pk, b.table.PrimaryKeyPolicy()),
		Handler: b.handleAdd,
	}, MethodOverride{POST: &post})

	b.RegisterWithOverride(Method{
		Name: "delete",
		Params: []Param{
			{Name: "tenant_id", Type: ParamString},
			{Name: pk, Type: ParamString, Required: true},
		},
		Handler: b.handleDelete,
	}, MethodOverride{POST: &post})
}

// columnParams synthesizes the add method's field set from a table's
// declared columns: every column but an autoincrement primary key (which
// the backend generates) becomes a parameter, required when the column is
// non-nullable with no default. A kept primary key is never required:
// Insert generates a UUID key when it is absent.
func columnParams(columns []schema.Column, pk string, pkPolicy schema.PKPolicy) []Param {
	params := make([]Param, 0, len(columns))
	for _, c := range columns {
		if c.Name == pk && pkPolicy == schema.PKPolicyAutoincrement {
			continue
		}
		p := Param{Name: c.Name, Type: paramTypeForColumn(c)}
		if c.Name != pk {
			p.Required = !c.Nullable && c.Default == nil
		}
		params = append(params, p)
	}
	return params
}

func paramTypeForColumn(c schema.Column) ParamType {
	if c.JSONEncoded {
		return ParamMap
	}
	switch c.Type {
	case schema.TypeInteger:
		return ParamInt
	case schema.TypeBoolean:
		return ParamBool
	case schema.TypeTimestamp:
		return ParamString
	default:
		return ParamString
	}
}

func (b *Base) tenantScopedWhere(params map[string]interface{}, extra map[string]interface{}) map[string]interface{} {
	where := map[string]interface{}{}
	for k, v := range extra {
		where[k] = v
	}
	if tid, ok := params["tenant_id"]; ok && tid != nil && tid != "" {
		where["tenant_id"] = tid
	}
	return where
}

func (b *Base) handleList(ctx context.Context, params map[string]interface{}) (interface{}, error) {
	extra, _ := params["where"].(map[string]interface{})
	where := b.tenantScopedWhere(params, extra)

	orderBy, _ := params["order_by"].(string)
	limit := 0
	if n, ok := params["limit"].(int64); ok {
		limit = int(n)
	}

	return b.table.Select(ctx, nil, where, orderBy, limit)
}

func (b *Base) handleGet(ctx context.Context, params map[string]interface{}) (interface{}, error) {
	pk := b.table.PrimaryKeyColumn()
	where := b.tenantScopedWhere(params, map[string]interface{}{pk: params[pk]})
	return b.table.Record(ctx, where, table.RecordOptions{})
}

func (b *Base) handleAdd(ctx context.Context, params map[string]interface{}) (interface{}, error) {
	rec := make(map[string]interface{}, len(params))
	for k, v := range params {
		if v != nil {
			rec[k] = v
		}
	}
	if err := b.table.Insert(ctx, rec, false); err != nil {
		return nil, err
	}
	return rec, nil
}

func (b *Base) handleDelete(ctx context.Context, params map[string]interface{}) (interface{}, error) {
	pk := b.table.PrimaryKeyColumn()
	where := b.tenantScopedWhere(params, map[string]interface{}{pk: params[pk]})
	n, err := b.table.Delete(ctx, where)
	if err != nil {
		return nil, err
	}
	return map[string]interface{}{"deleted": n}, nil
}
