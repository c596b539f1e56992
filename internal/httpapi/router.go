// Package httpapi implements the HTTP route factory: one route per
// exposed endpoint method, the GET/POST request-decoding split, the
// {data}/{error} response envelope, and the /health and /ui mounts. Routing
// uses net/http's method-and-pattern ServeMux rather than a router
// dependency.
package httpapi

import (
	"context"
	"encoding/json"
	"net/http"
	"os"
	"path/filepath"
	"strings"

	"github.com/genrocorp/genroproxy/internal/apperr"
	"github.com/genrocorp/genroproxy/internal/auth"
	"github.com/genrocorp/genroproxy/internal/dbadapter"
	"github.com/genrocorp/genroproxy/internal/dbmanager"
	"github.com/genrocorp/genroproxy/internal/endpoint"
	"github.com/genrocorp/genroproxy/internal/logging"
	"github.com/genrocorp/genroproxy/internal/registry"
)

// AdminOnly lists entity names whose routes use the stricter admin-only
// gate instead of the regular gate.
type AdminOnly map[string]bool

// Server wires the registry's endpoints onto an http.ServeMux.
type Server struct {
	mux       *http.ServeMux
	reg       *registry.Registry
	endpoints map[string]*endpoint.Base
	db        *dbmanager.Manager
	gate      *auth.Gate
	adminOnly AdminOnly
	log       *logging.Logger
	adapter   dbadapter.Adapter
	uiDir     string

	// OnInvoked, if set, runs after every method call this server
	// dispatches, used by the composition layer to append a command-log
	// entry regardless of which entity/method was hit.
	OnInvoked func(entityName, methodName string, params map[string]interface{}, result interface{}, err error)
}

// New builds the HTTP surface for every entity in reg, using endpoints
// (entity name → bound Endpoint Base, built once at startup by the
// concrete proxy's composition step).
func New(reg *registry.Registry, endpoints map[string]*endpoint.Base, db *dbmanager.Manager, gate *auth.Gate, adminOnly AdminOnly, log *logging.Logger, adapter dbadapter.Adapter) *Server {
	s := &Server{
		mux:       http.NewServeMux(),
		reg:       reg,
		endpoints: endpoints,
		db:        db,
		gate:      gate,
		adminOnly: adminOnly,
		log:       log,
		adapter:   adapter,
	}
	s.registerHealth()
	for _, e := range reg.Entities() {
		ep, ok := endpoints[e.Name]
		if !ok {
			continue
		}
		s.registerEntity(e.Name, ep)
	}
	return s
}

// MountUI serves static files at /ui from dir, with index.html as the
// default document, when dir exists.
func (s *Server) MountUI(dir string) {
	if info, err := os.Stat(dir); err != nil || !info.IsDir() {
		return
	}
	s.uiDir = dir
	fileServer := http.FileServer(http.Dir(dir))
	s.mux.Handle("/ui/", http.StripPrefix("/ui/", fileServer))
}

func (s *Server) Handler() http.Handler { return s.mux }

func (s *Server) registerHealth() {
	s.mux.HandleFunc("GET /health", func(w http.ResponseWriter, r *http.Request) {
		body := map[string]interface{}{"status": "ok"}
		if s.adapter != nil && s.adapter.Ping() != nil {
			body["db"] = "down"
		}
		writeJSON(w, http.StatusOK, body)
	})
}

func routeMethodName(m string) string { return strings.ReplaceAll(m, "_", "-") }

func (s *Server) registerEntity(name string, ep *endpoint.Base) {
	for _, m := range ep.Methods() {
		if !ep.IsAvailable(m.Name, endpoint.ChannelAPI) {
			continue
		}
		path := "/api/" + name + "/" + routeMethodName(m.Name)
		verb := ep.HTTPMethod(m.Name)
		pattern := verb + " " + path
		methodName := m.Name

		s.mux.HandleFunc(pattern, func(w http.ResponseWriter, r *http.Request) {
			s.handle(w, r, name, ep, methodName)
		})
	}
}

func (s *Server) handle(w http.ResponseWriter, r *http.Request, entityName string, ep *endpoint.Base, methodName string) {
	token := r.Header.Get("X-API-Token")

	var caller auth.CallerState
	var err error
	if s.adminOnly[entityName] {
		err = s.db.Connection(r.Context(), func(ctx context.Context) error {
			var gateErr error
			caller, gateErr = s.gate.AdminOnlyGate(ctx, token)
			return gateErr
		})
	} else {
		caller, err = s.gate.RegularGate(token)
	}
	if err != nil {
		s.writeError(w, err)
		return
	}

	params, err := decodeParams(r)
	if err != nil {
		s.writeError(w, apperr.Validation("malformed request body"))
		return
	}

	result, err := ep.Invoke(r.Context(), methodName, params, caller.Token, caller.IsAdmin)
	if s.OnInvoked != nil {
		s.OnInvoked(entityName, methodName, params, result, err)
	}
	if err != nil {
		s.writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]interface{}{"data": result})
}

func decodeParams(r *http.Request) (map[string]interface{}, error) {
	if r.Method == http.MethodGet {
		params := map[string]interface{}{}
		for k, v := range r.URL.Query() {
			if len(v) > 0 {
				params[k] = v[0]
			}
		}
		return params, nil
	}

	defer r.Body.Close()
	dec := json.NewDecoder(r.Body)
	var params map[string]interface{}
	if err := dec.Decode(&params); err != nil {
		if err.Error() == "EOF" {
			return map[string]interface{}{}, nil
		}
		return nil, err
	}
	if params == nil {
		params = map[string]interface{}{}
	}
	return params, nil
}

func (s *Server) writeError(w http.ResponseWriter, err error) {
	kind := apperr.KindOf(err)
	status := apperr.HTTPStatus(kind)

	if s.log != nil {
		s.log.Error("request failed", "kind", kind, "status", status, "err", err.Error())
	}

	if kind == apperr.KindValidation {
		details := []interface{}{err.Error()}
		if fe, ok := err.(*apperr.Error); ok && fe.Details != nil {
			if list, ok := fe.Details["errors"].([]map[string]interface{}); ok {
				details = make([]interface{}, len(list))
				for i, d := range list {
					details[i] = d
				}
			}
		}
		writeJSON(w, status, map[string]interface{}{"error": details})
		return
	}

	writeJSON(w, status, map[string]interface{}{"error": err.Error()})
}

func writeJSON(w http.ResponseWriter, status int, body interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(body)
}

// RelativeToBinary resolves a path relative to the running binary's
// directory, used to locate a built UI bundle alongside the server
// executable.
func RelativeToBinary(rel string) string {
	exe, err := os.Executable()
	if err != nil {
		return rel
	}
	return filepath.Join(filepath.Dir(exe), rel)
}
