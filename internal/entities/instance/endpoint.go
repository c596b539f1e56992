// Package instance is the illustrative instance-singleton entity: a
// table-less endpoint exposing the running process's own configuration
// record as a read-only "info" method; start/stop/restart live
// exclusively on the supervisor-backed CLI surface (cmd/genroproxyctl over
// internal/supervisor), so the two never cross-expose the same verb.
package instance

import (
	"context"

	"github.com/genrocorp/genroproxy/internal/dbmanager"
	"github.com/genrocorp/genroproxy/internal/endpoint"
	"github.com/genrocorp/genroproxy/internal/instanceconfig"
)

const Name = "instance"

// NewEndpoint builds the singleton endpoint over the already-loaded
// configuration record of the running process. db must be non-nil:
// Base.Invoke opens a connection around every call, info included, even
// though info touches no table.
func NewEndpoint(db *dbmanager.Manager, cfg *instanceconfig.Config) *endpoint.Base {
	b := endpoint.New(Name, nil, db, nil, endpoint.Defaults{API: true, CLI: true})

	info := func(ctx context.Context, params map[string]interface{}) (interface{}, error) {
		return map[string]interface{}{
			"name": cfg.ServerName,
			"host": cfg.Host,
			"port": cfg.Port,
		}, nil
	}

	b.Register(endpoint.Method{
		Name:    "info",
		Params:  nil,
		Handler: info,
		Axes:    endpoint.Axes{API: true, CLI: true},
	})

	return b
}
