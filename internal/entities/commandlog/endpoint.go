package commandlog

import (
	"context"

	"github.com/genrocorp/genroproxy/internal/dbmanager"
	"github.com/genrocorp/genroproxy/internal/endpoint"
	"github.com/genrocorp/genroproxy/internal/table"
)

// NewEndpoint exposes the audit log as read-only: list and export (an
// alias used by the replay/export scenario) are both admin-facing, and
// there is deliberately no add/delete. Entries are appended only by
// Append, called directly by the proxy composition layer's request
// wrapper, never by a client.
func NewEndpoint(db *dbmanager.Manager, t *table.Table) *endpoint.Base {
	b := endpoint.New(Name, t, db, nil, endpoint.Defaults{API: true, CLI: true})

	list := func(ctx context.Context, params map[string]interface{}) (interface{}, error) {
		where := map[string]interface{}{}
		if tid, ok := params["tenant_id"]; ok && tid != nil && tid != "" {
			where["tenant_id"] = tid
		}
		orderBy, _ := params["order_by"].(string)
		if orderBy == "" {
			orderBy = "command_ts"
		}
		limit := 0
		if n, ok := params["limit"].(int64); ok {
			limit = int(n)
		}
		return t.Select(ctx, nil, where, orderBy, limit)
	}

	params := []endpoint.Param{
		{Name: "tenant_id", Type: endpoint.ParamString},
		{Name: "order_by", Type: endpoint.ParamString},
		{Name: "limit", Type: endpoint.ParamInt, Default: int64(0)},
	}

	b.Register(endpoint.Method{Name: "list", Params: params, Handler: list, Axes: endpoint.Axes{API: true, CLI: true}})
	b.Register(endpoint.Method{Name: "export", Params: params, Handler: list, Axes: endpoint.Axes{API: true, CLI: true}})

	return b
}

// Append records one audit entry. Called by the proxy composition layer's
// request wrapper after every state-changing invocation; never exposed as
// an endpoint method.
func Append(ctx context.Context, t *table.Table, r Record) error {
	return t.Insert(ctx, r.toMap(), false)
}
