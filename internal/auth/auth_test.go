package auth

import (
	"context"
	"testing"

	"github.com/genrocorp/genroproxy/internal/apperr"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestRegularGateOpenWhenNoTokenAndNoAdminConfigured(t *testing.T) {
	g := New("", nil)
	state, err := g.RegularGate("")
	require.NoError(t, err)
	assert.Equal(t, CallerState{}, state)
}

func TestRegularGateRejectsMissingTokenWhenAdminConfigured(t *testing.T) {
	g := New("admin-secret", nil)
	_, err := g.RegularGate("")
	require.Error(t, err)
	assert.Equal(t, apperr.KindInvalidToken, apperr.KindOf(err))
}

func TestRegularGateAcceptsAdminToken(t *testing.T) {
	g := New("admin-secret", nil)
	state, err := g.RegularGate("admin-secret")
	require.NoError(t, err)
	assert.True(t, state.IsAdmin)
	assert.Equal(t, "admin-secret", state.Token)
}

func TestRegularGateDefersOtherTokens(t *testing.T) {
	g := New("admin-secret", nil)
	state, err := g.RegularGate("some-tenant-token")
	require.NoError(t, err)
	assert.False(t, state.IsAdmin)
	assert.Equal(t, "some-tenant-token", state.Token)
}

func TestAdminOnlyGateOpenWhenNoTokenAndNoAdminConfigured(t *testing.T) {
	g := New("", nil)
	state, err := g.AdminOnlyGate(context.Background(), "")
	require.NoError(t, err)
	assert.Equal(t, CallerState{}, state)
}

func TestAdminOnlyGateRejectsMissingToken(t *testing.T) {
	g := New("admin-secret", nil)
	_, err := g.AdminOnlyGate(context.Background(), "")
	assert.Equal(t, apperr.KindInvalidToken, apperr.KindOf(err))
}

func TestAdminOnlyGateAcceptsAdminToken(t *testing.T) {
	g := New("admin-secret", nil)
	state, err := g.AdminOnlyGate(context.Background(), "admin-secret")
	require.NoError(t, err)
	assert.True(t, state.IsAdmin)
}

func TestAdminOnlyGateRejectsArbitraryTokenWithNoTenantsTable(t *testing.T) {
	g := New("admin-secret", nil)
	_, err := g.AdminOnlyGate(context.Background(), "random-token")
	assert.Equal(t, apperr.KindInvalidToken, apperr.KindOf(err))
}

func TestResolveTenantTokenWithNoTenantsTableIsInvalid(t *testing.T) {
	g := New("", nil)
	_, err := g.ResolveTenantToken(context.Background(), "any-token")
	assert.Equal(t, apperr.KindInvalidToken, apperr.KindOf(err))
}

func TestResolveTenantTokenEmptyTokenIsInvalid(t *testing.T) {
	g := New("", nil)
	_, err := g.ResolveTenantToken(context.Background(), "")
	assert.Equal(t, apperr.KindInvalidToken, apperr.KindOf(err))
}

func TestHashTokenHexIsDeterministicAndDistinct(t *testing.T) {
	a := HashTokenHex("token-a")
	b := HashTokenHex("token-a")
	c := HashTokenHex("token-b")
	assert.Equal(t, a, b)
	assert.NotEqual(t, a, c)
	assert.Len(t, a, 64) // hex-encoded sha256
}
