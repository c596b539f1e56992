// Package tenant is the illustrative tenant entity: the root of the
// admin/tenant two-tier model, carrying the hashed API key every other
// entity's tenant-token resolution checks against.
package tenant

import (
	"github.com/genrocorp/genroproxy/internal/crypto"
	"github.com/genrocorp/genroproxy/internal/dbmanager"
	"github.com/genrocorp/genroproxy/internal/schema"
	"github.com/genrocorp/genroproxy/internal/table"
)

const Name = "tenants"

// NewTable builds the tenants table: a registry.TableFactory.
func NewTable(db *dbmanager.Manager, enc *crypto.Manager) *table.Table {
	return table.New(table.Config{
		Name:             Name,
		PrimaryKey:       "id",
		PrimaryKeyPolicy: schema.PKPolicyUUID, // caller-supplied id wins; UUID only fills an absent one
		Columns: []schema.Column{
			{Name: "id", Type: schema.TypeString},
			{Name: "name", Type: schema.TypeString},
			{Name: "api_key_hash", Type: schema.TypeString, Nullable: true},
			{Name: "key_expires_at", Type: schema.TypeTimestamp, Nullable: true},
			{Name: "active", Type: schema.TypeBoolean, Default: true},
			{Name: "config", Type: schema.TypeString, Nullable: true, JSONEncoded: true},
		},
	}, db, enc)
}
