// Package proxy is the composition root: it wires the database manager,
// encryption manager, entity registry, authentication gate, audit log and
// HTTP surface into one running service. The CLI command tree and the
// process supervisor are wired by the binaries under cmd/.
package proxy

import (
	"context"
	"fmt"
	"log/slog"
	"strings"
	"time"

	"github.com/genrocorp/genroproxy/internal/apperr"
	"github.com/genrocorp/genroproxy/internal/auth"
	"github.com/genrocorp/genroproxy/internal/config"
	"github.com/genrocorp/genroproxy/internal/crypto"
	"github.com/genrocorp/genroproxy/internal/dbadapter"
	"github.com/genrocorp/genroproxy/internal/dbmanager"
	"github.com/genrocorp/genroproxy/internal/endpoint"
	"github.com/genrocorp/genroproxy/internal/entities/account"
	"github.com/genrocorp/genroproxy/internal/entities/commandlog"
	"github.com/genrocorp/genroproxy/internal/entities/instance"
	"github.com/genrocorp/genroproxy/internal/entities/storagemount"
	"github.com/genrocorp/genroproxy/internal/entities/tenant"
	"github.com/genrocorp/genroproxy/internal/httpapi"
	"github.com/genrocorp/genroproxy/internal/instanceconfig"
	"github.com/genrocorp/genroproxy/internal/logging"
	"github.com/genrocorp/genroproxy/internal/registry"
	"github.com/genrocorp/genroproxy/internal/schema"
	"github.com/genrocorp/genroproxy/internal/table"
)

// Proxy is a fully wired instance of the foundation: every registered
// entity's table and endpoint, plus the HTTP surface built over them.
type Proxy struct {
	Config    config.Config
	Registry  *registry.Registry
	DB        *dbmanager.Manager
	Crypto    *crypto.Manager
	Gate      *auth.Gate
	Log       *logging.Logger
	Endpoints map[string]*endpoint.Base
	HTTP      *httpapi.Server

	logTable *table.Table
}

// AdminOnly is the set of entity names whose HTTP routes use the
// stricter admin-only gate: tenant management, the audit log, and the
// instance singleton are all operator-facing, never tenant-facing.
var AdminOnly = httpapi.AdminOnly{
	tenant.Name:     true,
	commandlog.Name: true,
	instance.Name:   true,
}

// New opens the backend adapter named by cfg.DatabaseURL's scheme, builds
// the encryption manager, registers the bundled illustrative entities,
// and wires the HTTP surface on Proxy.HTTP. It does not start listening;
// the caller builds an *http.Server over Proxy.HTTP.Handler() once
// CheckStructure has run.
func New(cfg config.Config) (*Proxy, error) {
	adapter, err := openAdapter(cfg.DatabaseURL)
	if err != nil {
		return nil, fmt.Errorf("proxy: open database: %w", err)
	}
	db := dbmanager.New(adapter)

	enc, err := crypto.Load("")
	if err != nil {
		return nil, fmt.Errorf("proxy: load encryption key: %w", err)
	}

	level := slog.LevelInfo
	if cfg.TestMode {
		level = slog.LevelDebug
	}
	log := logging.New(cfg.TestMode, level)

	reg := registry.New()
	registerBundledEntities(reg, cfg)

	tables := map[string]*table.Table{}
	endpoints := map[string]*endpoint.Base{}
	for _, e := range reg.Entities() {
		if e.NewTable != nil {
			tables[e.Name] = e.NewTable(db, enc)
		}
	}

	tenantTable := tables[tenant.Name]
	gate := auth.New(cfg.AdminToken, tenantTable)

	for _, e := range reg.Entities() {
		endpoints[e.Name] = e.NewEndpoint(db, tables[e.Name], gate)
	}

	p := &Proxy{
		Config:    cfg,
		Registry:  reg,
		DB:        db,
		Crypto:    enc,
		Gate:      gate,
		Log:       log,
		Endpoints: endpoints,
		logTable:  tables[commandlog.Name],
	}

	p.HTTP = httpapi.New(reg, endpoints, db, gate, AdminOnly, log, adapter)
	p.HTTP.OnInvoked = func(entityName, methodName string, params map[string]interface{}, result interface{}, err error) {
		p.audit(context.Background(), entityName, methodName, params, result, err)
	}
	return p, nil
}

// openAdapter selects a backend from a connection string per the
// foundation's connection-string grammar: an absolute path, a "./"-
// relative path, ":memory:", or a "sqlite:" prefix all select the
// embedded backend; "postgres://" or "postgresql://" selects the
// networked backend; anything else is a configuration error.
func openAdapter(dsn string) (dbadapter.Adapter, error) {
	switch {
	case dsn == "":
		return dbadapter.OpenSQLite(":memory:")
	case dsn == ":memory:":
		return dbadapter.OpenSQLite(dsn)
	case strings.HasPrefix(dsn, "postgres://"), strings.HasPrefix(dsn, "postgresql://"):
		return dbadapter.OpenPostgres(dsn)
	case strings.HasPrefix(dsn, "sqlite:"):
		return dbadapter.OpenSQLite(strings.TrimPrefix(dsn, "sqlite:"))
	case strings.HasPrefix(dsn, "/"), strings.HasPrefix(dsn, "./"):
		return dbadapter.OpenSQLite(dsn)
	default:
		return nil, fmt.Errorf("unrecognized connection string %q", dsn)
	}
}

// registerBundledEntities registers the foundation's illustrative leaves.
// A concrete proxy built from this foundation would instead call
// Register/Override for its own domain entities; these five exist to
// exercise every registry/table/endpoint code path end to end.
func registerBundledEntities(reg *registry.Registry, cfg config.Config) {
	reg.Register(registry.Entity{
		Name:        tenant.Name,
		NewTable:    tenant.NewTable,
		NewEndpoint: tenant.NewEndpoint,
	})
	reg.Register(registry.Entity{
		Name:        account.Name,
		NewTable:    account.NewTable,
		NewEndpoint: account.NewEndpoint,
	})
	reg.Register(registry.Entity{
		Name:        storagemount.Name,
		NewTable:    storagemount.NewTable,
		NewEndpoint: storagemount.NewEndpoint,
	})
	reg.Register(registry.Entity{
		Name:     commandlog.Name,
		NewTable: commandlog.NewTable,
		NewEndpoint: func(db *dbmanager.Manager, t *table.Table, _ endpoint.TenantResolver) *endpoint.Base {
			return commandlog.NewEndpoint(db, t)
		},
	})
	reg.Register(registry.Entity{
		Name: instance.Name,
		NewEndpoint: func(db *dbmanager.Manager, _ *table.Table, _ endpoint.TenantResolver) *endpoint.Base {
			return instance.NewEndpoint(db, &instanceconfig.Config{ServerName: cfg.Instance, Host: cfg.Host, Port: cfg.Port})
		},
	})
}

// CheckStructure creates every registered entity's table if missing, then
// runs the additive column sync, in foreign-key dependency order.
func (p *Proxy) CheckStructure(ctx context.Context) error {
	var schemas []schema.TableSchema
	for _, e := range p.Registry.Entities() {
		if t, ok := p.tableFor(e.Name); ok {
			schemas = append(schemas, t)
		}
	}
	if err := p.DB.CheckStructure(ctx, schemas); err != nil {
		return err
	}
	for _, t := range schemas {
		if err := p.DB.SyncSchema(ctx, t); err != nil {
			return err
		}
	}
	return nil
}

func (p *Proxy) tableFor(name string) (*table.Table, bool) {
	ep, ok := p.Endpoints[name]
	if !ok || ep.Table() == nil {
		return nil, false
	}
	return ep.Table(), true
}

// Invoke runs one call through the named entity's endpoint and appends an
// audit entry to the command log, mirroring what the HTTP and CLI
// surfaces each do independently. Used by tests and by any additional
// channel (e.g. a REPL) that wants the same audit guarantee.
func (p *Proxy) Invoke(ctx context.Context, entityName, methodName string, params map[string]interface{}, token string, isAdmin bool) (interface{}, error) {
	ep, ok := p.Endpoints[entityName]
	if !ok {
		return nil, fmt.Errorf("proxy: unknown entity %q", entityName)
	}
	result, err := ep.Invoke(ctx, methodName, params, token, isAdmin)
	p.audit(ctx, entityName, methodName, params, result, err)
	return result, err
}

// AuditCLI is the CLI surface's equivalent of httpapi.Server.OnInvoked:
// called by the command factory after every dispatched subcommand so the
// command log covers all three invocation channels uniformly.
func (p *Proxy) AuditCLI(entityName, methodName string, params map[string]interface{}, result interface{}, invokeErr error) {
	p.audit(context.Background(), entityName, methodName, params, result, invokeErr)
}

func (p *Proxy) audit(ctx context.Context, entityName, methodName string, params map[string]interface{}, result interface{}, invokeErr error) {
	if p.logTable == nil {
		return
	}
	ep, ok := p.Endpoints[entityName]
	if invokeErr == nil && (!ok || ep.HTTPMethod(methodName) != "POST") {
		return
	}
	status := 200
	var body interface{} = result
	if invokeErr != nil {
		status = apperr.HTTPStatus(apperr.KindOf(invokeErr))
		body = invokeErr.Error()
	}
	tenantID, _ := params["tenant_id"].(string)
	rec := commandlog.Record{
		CommandTS:      time.Now().Unix(),
		Endpoint:       entityName + "/" + methodName,
		TenantID:       tenantID,
		Payload:        params,
		ResponseStatus: status,
		ResponseBody:   body,
	}
	_ = p.DB.Connection(ctx, func(ctx context.Context) error {
		return commandlog.Append(ctx, p.logTable, rec)
	})
}
