// Package registry implements the entity registry: the mapping from
// entity name to a (Table, Endpoint) constructor pair. Filesystem
// package-scanning discovery and most-derived-class resolution become, in
// a compiled language, an explicit compile-time list supplied by the
// concrete proxy binary: Register calls in deterministic order, with
// Override standing in for mixin composition (a later call wins outright
// rather than competing on subtype order).
package registry

import (
	"fmt"
	"sort"

	"github.com/genrocorp/genroproxy/internal/crypto"
	"github.com/genrocorp/genroproxy/internal/dbmanager"
	"github.com/genrocorp/genroproxy/internal/endpoint"
	"github.com/genrocorp/genroproxy/internal/table"
)

// TableFactory builds the Table for one entity, bound to the shared
// database manager and encryption manager.
type TableFactory func(db *dbmanager.Manager, enc *crypto.Manager) *table.Table

// EndpointFactory builds the Endpoint for one entity, given its Table (nil
// for a table-less, process-managing endpoint) and the tenant resolver.
type EndpointFactory func(db *dbmanager.Manager, t *table.Table, tenants endpoint.TenantResolver) *endpoint.Base

// Entity is one contributed (Table, Endpoint) pair.
type Entity struct {
	Name        string
	NewTable    TableFactory // nil for a table-less endpoint
	NewEndpoint EndpointFactory
}

// Registry holds every contributed entity, in registration order.
type Registry struct {
	order    []string
	entities map[string]Entity
}

// New returns an empty registry.
func New() *Registry {
	return &Registry{entities: map[string]Entity{}}
}

// Register adds e. If an entity by the same name is already registered,
// the first registration wins and this call is a no-op.
func (r *Registry) Register(e Entity) {
	if _, exists := r.entities[e.Name]; exists {
		return
	}
	r.entities[e.Name] = e
	r.order = append(r.order, e.Name)
}

// Override replaces whatever is registered under e.Name (or adds it fresh
// if absent), standing in for the mixin-composition step: the EE package's
// composed class always takes precedence over the CE base.
func (r *Registry) Override(e Entity) {
	if _, exists := r.entities[e.Name]; !exists {
		r.order = append(r.order, e.Name)
	}
	r.entities[e.Name] = e
}

// Entities returns every registered entity in registration order.
func (r *Registry) Entities() []Entity {
	out := make([]Entity, 0, len(r.order))
	for _, n := range r.order {
		out = append(out, r.entities[n])
	}
	return out
}

// Names returns every registered entity name in registration order.
func (r *Registry) Names() []string {
	out := make([]string, len(r.order))
	copy(out, r.order)
	return out
}

// Get looks up one entity by name.
func (r *Registry) Get(name string) (Entity, bool) {
	e, ok := r.entities[name]
	return e, ok
}

// SortedNames returns every registered name in lexical order, useful for
// deterministic CLI group listings independent of registration order.
func (r *Registry) SortedNames() []string {
	out := r.Names()
	sort.Strings(out)
	return out
}

func (r *Registry) String() string {
	return fmt.Sprintf("registry(%d entities)", len(r.order))
}
