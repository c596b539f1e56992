package tenant

import (
	"context"

	"github.com/genrocorp/genroproxy/internal/apperr"
	"github.com/genrocorp/genroproxy/internal/auth"
	"github.com/genrocorp/genroproxy/internal/crypto"
	"github.com/genrocorp/genroproxy/internal/dbmanager"
	"github.com/genrocorp/genroproxy/internal/endpoint"
	"github.com/genrocorp/genroproxy/internal/table"
)

// NewEndpoint builds the tenants endpoint: a registry.EndpointFactory.
// Every method is admin-only in practice (enforced at the HTTP route
// factory's admin-only gate, since tenant management precedes the
// existence of any tenant able to call it).
func NewEndpoint(db *dbmanager.Manager, t *table.Table, tenants endpoint.TenantResolver) *endpoint.Base {
	b := endpoint.New(Name, t, db, tenants, endpoint.Defaults{API: true, CLI: true})
	b.RegisterDefaultCRUD()

	post := true
	b.RegisterWithOverride(endpoint.Method{
		Name: "create_api_key",
		Params: []endpoint.Param{
			{Name: "id", Type: endpoint.ParamString, Required: true},
		},
		Handler: handleCreateAPIKey(t),
	}, endpoint.MethodOverride{POST: &post})

	return b
}

// handleCreateAPIKey generates a fresh bearer token, persists only its
// hash, and returns the plaintext once. Key issuance is its own explicit
// operation rather than a side effect of add, so the plaintext token is
// never stored or echoed back outside this one call.
func handleCreateAPIKey(t *table.Table) endpoint.Handler {
	return func(ctx context.Context, params map[string]interface{}) (interface{}, error) {
		id, _ := params["id"].(string)

		token, err := crypto.GenerateAdminToken()
		if err != nil {
			return nil, apperr.Unhandled("failed to generate API key").WithCause(err)
		}

		n, err := t.Update(ctx, map[string]interface{}{"api_key_hash": auth.HashTokenHex(token)}, map[string]interface{}{"id": id})
		if err != nil {
			return nil, err
		}
		if n == 0 {
			return nil, apperr.NotFound("tenant not found: " + id)
		}

		return map[string]interface{}{"id": id, "api_key": token}, nil
	}
}
