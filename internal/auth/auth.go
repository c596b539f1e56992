// Package auth implements the admin/tenant authentication gate and tenant
// token resolution: a constant-time comparison against the admin token,
// and a lookup of the token's SHA-256 hash in the tenants table.
package auth

import (
	"context"
	"crypto/hmac"
	"crypto/sha256"
	"encoding/hex"
	"time"

	"github.com/genrocorp/genroproxy/internal/apperr"
	"github.com/genrocorp/genroproxy/internal/table"
)

// Gate evaluates the regular and admin-only authentication rules against
// the process admin token and the tenants table.
type Gate struct {
	adminToken string
	tenants    *table.Table
}

// New constructs a Gate. adminToken empty means "open access" (no admin
// token configured). tenants may be nil if the concrete proxy has no
// tenant entity at all.
func New(adminToken string, tenants *table.Table) *Gate {
	return &Gate{adminToken: adminToken, tenants: tenants}
}

// CallerState is the per-request identity the regular and admin-only gates
// compute before the endpoint base's Invoke ever sees the request.
type CallerState struct {
	Token   string
	IsAdmin bool
}

// isAdminToken does a constant-time comparison against the configured
// admin token. Returns false immediately (no comparison) when no admin
// token is configured, since there is nothing to compare against.
func (g *Gate) isAdminToken(token string) bool {
	if g.adminToken == "" || token == "" {
		return false
	}
	return hmac.Equal(hashToken(token), hashToken(g.adminToken))
}

// RegularGate implements the regular route authentication rule: open when
// no token is presented and no admin token configured; otherwise a
// presented admin token is accepted outright, any other token is accepted
// and deferred to per-request tenant resolution, and a missing token with
// an admin token configured is rejected.
func (g *Gate) RegularGate(token string) (CallerState, error) {
	switch {
	case token == "" && g.adminToken == "":
		return CallerState{}, nil
	case token == "" && g.adminToken != "":
		return CallerState{}, apperr.InvalidToken("missing API token")
	case g.isAdminToken(token):
		return CallerState{Token: token, IsAdmin: true}, nil
	default:
		return CallerState{Token: token}, nil
	}
}

// AdminOnlyGate implements the stricter admin-only rule: a tenant token,
// even a valid live one, is rejected as forbidden rather than deferred.
// Admin-only routes never accept tenant scope. Callers must invoke this
// inside an active dbmanager.Connection scope, since a live tenant token
// is checked against the tenants table.
func (g *Gate) AdminOnlyGate(ctx context.Context, token string) (CallerState, error) {
	switch {
	case token == "" && g.adminToken == "":
		return CallerState{}, nil
	case token == "" && g.adminToken != "":
		return CallerState{}, apperr.InvalidToken("missing API token")
	case g.isAdminToken(token):
		return CallerState{Token: token, IsAdmin: true}, nil
	}

	if g.tenants != nil {
		if _, err := g.ResolveTenantToken(ctx, token); err == nil {
			return CallerState{}, apperr.Forbidden("admin-only endpoint does not accept a tenant token")
		}
	}
	return CallerState{}, apperr.InvalidToken("invalid API token")
}

// ResolveTenantToken implements endpoint.TenantResolver: hash the
// presented token, look up a tenant row by hash, and reject an expired
// key.
func (g *Gate) ResolveTenantToken(ctx context.Context, token string) (string, error) {
	if g.tenants == nil || token == "" {
		return "", apperr.InvalidToken("invalid API token")
	}

	hash := hex.EncodeToString(hashToken(token))
	rec, err := g.tenants.Record(ctx, map[string]interface{}{"api_key_hash": hash}, table.RecordOptions{IgnoreMissing: true})
	if err != nil {
		return "", apperr.InvalidToken("invalid API token").WithCause(err)
	}
	if len(rec) == 0 {
		return "", apperr.InvalidToken("invalid API token")
	}

	if exp, ok := rec["key_expires_at"]; ok && exp != nil {
		if t, ok := exp.(time.Time); ok && time.Now().After(t) {
			return "", apperr.InvalidToken("API token has expired")
		}
	}

	id, _ := rec["id"].(string)
	return id, nil
}

func hashToken(token string) []byte {
	sum := sha256.Sum256([]byte(token))
	return sum[:]
}

// HashTokenHex hashes token the same way ResolveTenantToken does, for
// callers (e.g. the tenant entity's create_api_key method) that need to
// store a comparable hash without going through a Gate.
func HashTokenHex(token string) string {
	return hex.EncodeToString(hashToken(token))
}
