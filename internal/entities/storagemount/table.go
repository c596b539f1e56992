// Package storagemount is the illustrative storage-mount entity: a
// tenant-scoped pointer to an external object-storage location. The
// storage backend itself (the cloud SDK calls) is out of scope; this
// entity only persists the mount's configuration.
package storagemount

import (
	"github.com/genrocorp/genroproxy/internal/crypto"
	"github.com/genrocorp/genroproxy/internal/dbmanager"
	"github.com/genrocorp/genroproxy/internal/entities/tenant"
	"github.com/genrocorp/genroproxy/internal/schema"
	"github.com/genrocorp/genroproxy/internal/table"
)

const Name = "storage_mounts"

func NewTable(db *dbmanager.Manager, enc *crypto.Manager) *table.Table {
	return table.New(table.Config{
		Name:             Name,
		PrimaryKey:       "id",
		PrimaryKeyPolicy: schema.PKPolicyUUID,
		Columns: []schema.Column{
			{Name: "id", Type: schema.TypeString},
			{Name: "tenant_id", Type: schema.TypeString, References: &schema.ForeignKey{Table: tenant.Name, Column: "id"}},
			{Name: "backend", Type: schema.TypeString},
			{Name: "bucket", Type: schema.TypeString},
			{Name: "credentials", Type: schema.TypeString, Nullable: true, Encrypted: true},
			{Name: "config", Type: schema.TypeString, Nullable: true, JSONEncoded: true},
			{Name: "active", Type: schema.TypeBoolean, Default: true},
		},
	}, db, enc)
}
