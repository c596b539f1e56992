// Package account is the illustrative tenant-scoped account entity: one
// record per tenant-owned resource, used by the end-to-end tenant-token
// scoping scenario.
package account

import (
	"github.com/genrocorp/genroproxy/internal/crypto"
	"github.com/genrocorp/genroproxy/internal/dbmanager"
	"github.com/genrocorp/genroproxy/internal/entities/tenant"
	"github.com/genrocorp/genroproxy/internal/schema"
	"github.com/genrocorp/genroproxy/internal/table"
)

const Name = "accounts"

func NewTable(db *dbmanager.Manager, enc *crypto.Manager) *table.Table {
	return table.New(table.Config{
		Name:             Name,
		PrimaryKey:       "id",
		PrimaryKeyPolicy: schema.PKPolicyUUID,
		Columns: []schema.Column{
			{Name: "id", Type: schema.TypeString},
			{Name: "tenant_id", Type: schema.TypeString, References: &schema.ForeignKey{Table: tenant.Name, Column: "id"}},
			{Name: "name", Type: schema.TypeString},
			{Name: "active", Type: schema.TypeBoolean, Default: true},
		},
		ExtraUnique: []string{"UNIQUE (tenant_id, id)"},
	}, db, enc)
}
