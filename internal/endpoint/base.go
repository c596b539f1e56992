package endpoint

import (
	"context"

	"github.com/genrocorp/genroproxy/internal/apperr"
	"github.com/genrocorp/genroproxy/internal/dbmanager"
	"github.com/genrocorp/genroproxy/internal/table"
)

// TenantResolver looks up a tenant by its presented API token. Declared
// here, implemented by internal/auth, to keep endpoint free of an import
// on auth (internal/proxy wires the two together at startup).
type TenantResolver interface {
	ResolveTenantToken(ctx context.Context, token string) (tenantID string, err error)
}

// Defaults are the class-level axis defaults every method falls back to
// unless it carries a per-method override.
type Defaults struct {
	API  bool
	CLI  bool
	REPL bool
	POST bool
}

// Base is an endpoint base: a named component exposing a set of Methods,
// optionally bound to a Table.
type Base struct {
	name     string
	table    *table.Table // nil for a table-less (process-managing) endpoint
	db       *dbmanager.Manager
	tenants  TenantResolver
	defaults Defaults
	methods  map[string]Method
	order    []string
}

// New constructs an Endpoint Base. tenants may be nil for a proxy with no
// tenant resolution configured (admin-only deployments).
func New(name string, t *table.Table, db *dbmanager.Manager, tenants TenantResolver, defaults Defaults) *Base {
	return &Base{
		name:     name,
		table:    t,
		db:       db,
		tenants:  tenants,
		defaults: defaults,
		methods:  map[string]Method{},
	}
}

func (b *Base) Name() string        { return b.name }
func (b *Base) Table() *table.Table { return b.table }

// Register adds m with its axes taken as-authored. Use RegisterWithOverride
// instead when m should inherit b.defaults and only override specific axes.
func (b *Base) Register(m Method) {
	if _, exists := b.methods[m.Name]; !exists {
		b.order = append(b.order, m.Name)
	}
	b.methods[m.Name] = m
}

// MethodOverride lets a concrete method flip any of the four axes away
// from the component's class default.
type MethodOverride struct {
	API, CLI, REPL, POST *bool
}

// RegisterWithOverride registers m, resolving each axis against b.defaults
// unless override supplies an explicit value for that axis.
func (b *Base) RegisterWithOverride(m Method, override MethodOverride) {
	axes := b.defaults
	if override.API != nil {
		axes.API = *override.API
	}
	if override.CLI != nil {
		axes.CLI = *override.CLI
	}
	if override.REPL != nil {
		axes.REPL = *override.REPL
	}
	if override.POST != nil {
		axes.POST = *override.POST
	}
	m.Axes = Axes(axes)
	b.Register(m)
}

// Methods returns every registered method in registration order.
func (b *Base) Methods() []Method {
	out := make([]Method, 0, len(b.order))
	for _, n := range b.order {
		out = append(out, b.methods[n])
	}
	return out
}

func (b *Base) Method(name string) (Method, bool) {
	m, ok := b.methods[name]
	return m, ok
}

// HTTPMethod resolves the verb for method name.
func (b *Base) HTTPMethod(name string) string {
	m, ok := b.methods[name]
	if !ok {
		return "GET"
	}
	return m.httpVerb()
}

// Channel is one of the exposure axes IsAvailable checks (process/REPL
// access is handled identically to CLI at the invoke layer).
type Channel string

const (
	ChannelAPI  Channel = "api"
	ChannelCLI  Channel = "cli"
	ChannelREPL Channel = "repl"
)

// IsAvailable reports whether method is exposed on channel.
func (b *Base) IsAvailable(name string, channel Channel) bool {
	m, ok := b.methods[name]
	if !ok {
		return false
	}
	switch channel {
	case ChannelAPI:
		return m.Axes.API
	case ChannelCLI:
		return m.Axes.CLI
	case ChannelREPL:
		return m.Axes.REPL
	default:
		return false
	}
}

// IsSimpleParams reports whether method name has no list/map parameters.
func (b *Base) IsSimpleParams(name string) bool {
	m, ok := b.methods[name]
	return ok && m.isSimpleParams()
}

// CountParams reports the number of parameters method name declares.
func (b *Base) CountParams(name string) int {
	m, ok := b.methods[name]
	if !ok {
		return 0
	}
	return len(m.Params)
}

// Invoke is the one entry point used by every channel: method lookup, a
// scoped database connection, tenant-token resolution, request validation,
// and the handler call, with the connection committing on success and
// rolling back on any error.
func (b *Base) Invoke(ctx context.Context, methodName string, params map[string]interface{}, apiToken string, isAdmin bool) (result interface{}, err error) {
	m, ok := b.methods[methodName]
	if !ok {
		return nil, apperr.NotFound("method not found: " + methodName)
	}
	if params == nil {
		params = map[string]interface{}{}
	}

	err = b.db.Connection(ctx, func(ctx context.Context) error {
		if apiToken != "" && !isAdmin {
			if _, has := params["tenant_id"]; !has {
				if b.tenants == nil {
					return apperr.InvalidToken("invalid API token")
				}
				tenantID, terr := b.tenants.ResolveTenantToken(ctx, apiToken)
				if terr != nil {
					return apperr.InvalidToken("invalid API token").WithCause(terr)
				}
				params["tenant_id"] = tenantID
			}
		}

		coerceComplexInputs(m.Params, params)

		validated, verr := validate(m.Params, params)
		if verr != nil {
			return verr
		}

		res, herr := m.Handler(ctx, validated)
		if herr != nil {
			return herr
		}
		result = res
		return nil
	})

	return result, err
}
