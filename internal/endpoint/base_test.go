package endpoint

import (
	"context"
	"testing"

	"github.com/genrocorp/genroproxy/internal/apperr"
	"github.com/genrocorp/genroproxy/internal/dbadapter"
	"github.com/genrocorp/genroproxy/internal/dbmanager"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newTestDB(t *testing.T) *dbmanager.Manager {
	t.Helper()
	adapter, err := dbadapter.OpenSQLite(":memory:")
	require.NoError(t, err)
	t.Cleanup(func() { _ = adapter.Shutdown() })
	return dbmanager.New(adapter)
}

type stubResolver struct {
	tenantID string
	err      error
}

func (s stubResolver) ResolveTenantToken(ctx context.Context, token string) (string, error) {
	return s.tenantID, s.err
}

func echoHandler(ctx context.Context, params map[string]interface{}) (interface{}, error) {
	return params, nil
}

func TestRegisterWithOverrideAppliesDefaults(t *testing.T) {
	b := New("widgets", nil, newTestDB(t), nil, Defaults{API: true, CLI: false})
	b.RegisterWithOverride(Method{Name: "list", Handler: echoHandler}, MethodOverride{})

	m, ok := b.Method("list")
	require.True(t, ok)
	assert.True(t, m.Axes.API)
	assert.False(t, m.Axes.CLI)
}

func TestRegisterWithOverrideCanFlipSpecificAxis(t *testing.T) {
	b := New("widgets", nil, newTestDB(t), nil, Defaults{API: true, CLI: true})
	post := true
	b.RegisterWithOverride(Method{Name: "create_api_key", Handler: echoHandler}, MethodOverride{POST: &post})

	m, ok := b.Method("create_api_key")
	require.True(t, ok)
	assert.True(t, m.Axes.API)
	assert.True(t, m.Axes.POST)
}

func TestIsAvailablePerChannel(t *testing.T) {
	b := New("widgets", nil, newTestDB(t), nil, Defaults{API: true, CLI: false, REPL: true})
	b.RegisterWithOverride(Method{Name: "info"}, MethodOverride{})

	assert.True(t, b.IsAvailable("info", ChannelAPI))
	assert.False(t, b.IsAvailable("info", ChannelCLI))
	assert.True(t, b.IsAvailable("info", ChannelREPL))
	assert.False(t, b.IsAvailable("missing", ChannelAPI))
}

func TestHTTPMethodResolvesVerb(t *testing.T) {
	b := New("widgets", nil, newTestDB(t), nil, Defaults{})
	b.Register(Method{Name: "add", Axes: Axes{POST: true}})
	b.Register(Method{Name: "list", Axes: Axes{POST: false}})

	assert.Equal(t, "POST", b.HTTPMethod("add"))
	assert.Equal(t, "GET", b.HTTPMethod("list"))
	assert.Equal(t, "GET", b.HTTPMethod("unknown-method"))
}

func TestMethodsReturnsRegistrationOrder(t *testing.T) {
	b := New("widgets", nil, newTestDB(t), nil, Defaults{})
	b.Register(Method{Name: "b"})
	b.Register(Method{Name: "a"})

	names := []string{}
	for _, m := range b.Methods() {
		names = append(names, m.Name)
	}
	assert.Equal(t, []string{"b", "a"}, names)
}

func TestInvokeUnknownMethodReturnsNotFound(t *testing.T) {
	b := New("widgets", nil, newTestDB(t), nil, Defaults{})
	_, err := b.Invoke(context.Background(), "nope", nil, "", false)
	assert.Equal(t, apperr.KindNotFound, apperr.KindOf(err))
}

func tenantAwareMethod(name string) Method {
	return Method{
		Name:    name,
		Params:  []Param{{Name: "tenant_id", Type: ParamString}},
		Handler: echoHandler,
	}
}

func TestInvokeWithoutTokenSkipsTenantResolution(t *testing.T) {
	b := New("widgets", nil, newTestDB(t), nil, Defaults{})
	b.Register(tenantAwareMethod("list"))

	result, err := b.Invoke(context.Background(), "list", map[string]interface{}{}, "", false)
	require.NoError(t, err)
	params := result.(map[string]interface{})
	assert.Nil(t, params["tenant_id"])
}

func TestInvokeAdminCallSkipsTenantResolutionEvenWithToken(t *testing.T) {
	b := New("widgets", nil, newTestDB(t), nil, Defaults{})
	b.Register(tenantAwareMethod("list"))

	result, err := b.Invoke(context.Background(), "list", map[string]interface{}{}, "admin-token", true)
	require.NoError(t, err)
	params := result.(map[string]interface{})
	assert.Nil(t, params["tenant_id"])
}

func TestInvokeResolvesTenantFromToken(t *testing.T) {
	resolver := stubResolver{tenantID: "tenant-42"}
	b := New("widgets", nil, newTestDB(t), resolver, Defaults{})
	b.Register(tenantAwareMethod("list"))

	result, err := b.Invoke(context.Background(), "list", map[string]interface{}{}, "tenant-token", false)
	require.NoError(t, err)
	params := result.(map[string]interface{})
	assert.Equal(t, "tenant-42", params["tenant_id"])
}

func TestInvokeRejectsTokenWithNoResolverConfigured(t *testing.T) {
	b := New("widgets", nil, newTestDB(t), nil, Defaults{})
	b.Register(Method{Name: "list", Handler: echoHandler})

	_, err := b.Invoke(context.Background(), "list", map[string]interface{}{}, "some-token", false)
	assert.Equal(t, apperr.KindInvalidToken, apperr.KindOf(err))
}

func TestInvokePropagatesResolverFailure(t *testing.T) {
	resolver := stubResolver{err: apperr.InvalidToken("expired")}
	b := New("widgets", nil, newTestDB(t), resolver, Defaults{})
	b.Register(Method{Name: "list", Handler: echoHandler})

	_, err := b.Invoke(context.Background(), "list", map[string]interface{}{}, "expired-token", false)
	assert.Equal(t, apperr.KindInvalidToken, apperr.KindOf(err))
}

func TestInvokeValidatesParamsBeforeCallingHandler(t *testing.T) {
	b := New("widgets", nil, newTestDB(t), nil, Defaults{})
	called := false
	b.Register(Method{
		Name:   "add",
		Params: []Param{{Name: "name", Type: ParamString, Required: true}},
		Handler: func(ctx context.Context, params map[string]interface{}) (interface{}, error) {
			called = true
			return nil, nil
		},
	})

	_, err := b.Invoke(context.Background(), "add", map[string]interface{}{}, "", false)
	assert.Equal(t, apperr.KindValidation, apperr.KindOf(err))
	assert.False(t, called, "handler must not run when validation fails")
}

func TestInvokePropagatesHandlerError(t *testing.T) {
	b := New("widgets", nil, newTestDB(t), nil, Defaults{})
	b.Register(Method{Name: "fail", Handler: func(ctx context.Context, params map[string]interface{}) (interface{}, error) {
		return nil, apperr.Unhandled("boom")
	}})

	_, err := b.Invoke(context.Background(), "fail", nil, "", false)
	assert.Equal(t, apperr.KindUnhandled, apperr.KindOf(err))
}
