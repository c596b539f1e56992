package storagemount

import (
	"github.com/genrocorp/genroproxy/internal/dbmanager"
	"github.com/genrocorp/genroproxy/internal/endpoint"
	"github.com/genrocorp/genroproxy/internal/table"
)

func NewEndpoint(db *dbmanager.Manager, t *table.Table, tenants endpoint.TenantResolver) *endpoint.Base {
	b := endpoint.New(Name, t, db, tenants, endpoint.Defaults{API: true, CLI: true})
	b.RegisterDefaultCRUD()
	return b
}
