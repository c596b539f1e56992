package registry

import (
	"testing"

	"github.com/genrocorp/genroproxy/internal/crypto"
	"github.com/genrocorp/genroproxy/internal/dbmanager"
	"github.com/genrocorp/genroproxy/internal/endpoint"
	"github.com/genrocorp/genroproxy/internal/table"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func tableFactory(tag string) TableFactory {
	return func(db *dbmanager.Manager, enc *crypto.Manager) *table.Table { return nil }
}

func endpointFactory(tag string) EndpointFactory {
	return func(db *dbmanager.Manager, t *table.Table, tenants endpoint.TenantResolver) *endpoint.Base {
		return nil
	}
}

func TestRegisterAddsInOrder(t *testing.T) {
	r := New()
	r.Register(Entity{Name: "b", NewTable: tableFactory("b"), NewEndpoint: endpointFactory("b")})
	r.Register(Entity{Name: "a", NewTable: tableFactory("a"), NewEndpoint: endpointFactory("a")})

	assert.Equal(t, []string{"b", "a"}, r.Names())
	assert.Equal(t, []string{"a", "b"}, r.SortedNames())
}

func TestRegisterFirstWinsOnDuplicateName(t *testing.T) {
	r := New()
	r.Register(Entity{Name: "x", NewTable: tableFactory("first")})
	r.Register(Entity{Name: "x", NewTable: tableFactory("second")})

	e, ok := r.Get("x")
	require.True(t, ok)
	assert.NotNil(t, e.NewTable)
	assert.Equal(t, []string{"x"}, r.Names(), "duplicate registration must not append a second entry")
}

func TestOverrideReplacesExistingEntity(t *testing.T) {
	r := New()
	r.Register(Entity{Name: "x", NewEndpoint: endpointFactory("base")})
	r.Override(Entity{Name: "x", NewEndpoint: endpointFactory("override")})

	assert.Equal(t, []string{"x"}, r.Names(), "override must not duplicate the registration order entry")
}

func TestOverrideAddsWhenAbsent(t *testing.T) {
	r := New()
	r.Override(Entity{Name: "fresh"})

	_, ok := r.Get("fresh")
	assert.True(t, ok)
	assert.Equal(t, []string{"fresh"}, r.Names())
}

func TestGetMissingEntityReturnsFalse(t *testing.T) {
	r := New()
	_, ok := r.Get("nope")
	assert.False(t, ok)
}

func TestEntitiesReturnsInRegistrationOrder(t *testing.T) {
	r := New()
	r.Register(Entity{Name: "second"})
	r.Register(Entity{Name: "first"})

	got := r.Entities()
	require.Len(t, got, 2)
	assert.Equal(t, "second", got[0].Name)
	assert.Equal(t, "first", got[1].Name)
}
