// Package commandlog is the illustrative audit-record entity: an
// append-only log of every state-changing invocation, written by the
// proxy composition layer's request wrapper and never mutated afterward.
package commandlog

import (
	"github.com/genrocorp/genroproxy/internal/crypto"
	"github.com/genrocorp/genroproxy/internal/dbmanager"
	"github.com/genrocorp/genroproxy/internal/schema"
	"github.com/genrocorp/genroproxy/internal/table"
)

const Name = "command_log"

func NewTable(db *dbmanager.Manager, enc *crypto.Manager) *table.Table {
	return table.New(table.Config{
		Name:             Name,
		PrimaryKey:       "id",
		PrimaryKeyPolicy: schema.PKPolicyAutoincrement,
		Columns: []schema.Column{
			{Name: "id", Type: schema.TypeInteger},
			{Name: "command_ts", Type: schema.TypeInteger},
			{Name: "endpoint", Type: schema.TypeString},
			{Name: "tenant_id", Type: schema.TypeString, Nullable: true},
			{Name: "payload", Type: schema.TypeString, Nullable: true, JSONEncoded: true},
			{Name: "response_status", Type: schema.TypeInteger, Nullable: true},
			{Name: "response_body", Type: schema.TypeString, Nullable: true, JSONEncoded: true},
		},
	}, db, enc)
}

// Record is one audit entry, matching the shape Insert expects.
type Record struct {
	CommandTS      int64
	Endpoint       string
	TenantID       string
	Payload        interface{}
	ResponseStatus int
	ResponseBody   interface{}
}

func (r Record) toMap() map[string]interface{} {
	m := map[string]interface{}{
		"command_ts":      r.CommandTS,
		"endpoint":        r.Endpoint,
		"payload":         r.Payload,
		"response_status": r.ResponseStatus,
		"response_body":   r.ResponseBody,
	}
	if r.TenantID != "" {
		m["tenant_id"] = r.TenantID
	}
	return m
}
