// Package docgen renders a minimal OpenAPI-shaped description of a
// registry's entities and their exposed methods, for operators who want a
// machine-readable surface to hand to an external API browser without
// standing up the HTTP server. Document-level metadata (title, version,
// description) comes from an optional TOML file rather than flags.
package docgen

import (
	"fmt"
	"os"
	"sort"

	"github.com/BurntSushi/toml"
	"github.com/genrocorp/genroproxy/internal/endpoint"
	"github.com/genrocorp/genroproxy/internal/registry"
)

// Info is the document-level metadata a TOML file may supply.
type Info struct {
	Title       string `toml:"title"`
	Version     string `toml:"version"`
	Description string `toml:"description"`
}

// defaultInfo is used when no metadata file is given or it omits a field.
var defaultInfo = Info{Title: "genroproxy", Version: "0.1.0"}

// LoadInfo reads document metadata from a TOML file at path. A missing path
// falls back to defaultInfo; any other read or parse error is returned.
func LoadInfo(path string) (Info, error) {
	if path == "" {
		return defaultInfo, nil
	}
	data, err := os.ReadFile(path)
	if err != nil {
		if os.IsNotExist(err) {
			return defaultInfo, nil
		}
		return Info{}, fmt.Errorf("read doc metadata %q: %w", path, err)
	}
	info := defaultInfo
	if err := toml.Unmarshal(data, &info); err != nil {
		return Info{}, fmt.Errorf("parse doc metadata %q: %w", path, err)
	}
	return info, nil
}

// Operation describes one exposed method of one entity.
type Operation struct {
	Entity    string   `json:"entity"`
	Method    string   `json:"method"`
	HTTPVerb  string   `json:"httpVerb"`
	AdminOnly bool     `json:"adminOnly,omitempty"`
	Params    []Param  `json:"params"`
	Channels  []string `json:"channels"`
}

// Param mirrors endpoint.Param in a JSON-friendly shape.
type Param struct {
	Name     string `json:"name"`
	Type     string `json:"type"`
	Required bool   `json:"required"`
}

// Document is the full generated description.
type Document struct {
	Info       Info        `json:"info"`
	Operations []Operation `json:"operations"`
}

// Generate walks reg in sorted entity order and describes every method
// exposed on the API or CLI channel for each entity's endpoint in eps.
// Entities present in reg but absent from eps (a registration gap) are
// skipped rather than causing an error.
func Generate(reg *registry.Registry, eps map[string]*endpoint.Base, info Info, adminOnly map[string]bool) Document {
	doc := Document{Info: info}
	for _, name := range reg.SortedNames() {
		ep, ok := eps[name]
		if !ok {
			continue
		}
		methods := ep.Methods()
		sort.Slice(methods, func(i, j int) bool { return methods[i].Name < methods[j].Name })
		for _, m := range methods {
			if !ep.IsAvailable(m.Name, endpoint.ChannelAPI) && !ep.IsAvailable(m.Name, endpoint.ChannelCLI) {
				continue
			}
			op := Operation{
				Entity:    name,
				Method:    m.Name,
				HTTPVerb:  ep.HTTPMethod(m.Name),
				AdminOnly: adminOnly[name],
			}
			if ep.IsAvailable(m.Name, endpoint.ChannelAPI) {
				op.Channels = append(op.Channels, "api")
			}
			if ep.IsAvailable(m.Name, endpoint.ChannelCLI) {
				op.Channels = append(op.Channels, "cli")
			}
			for _, p := range m.Params {
				op.Params = append(op.Params, Param{Name: p.Name, Type: string(p.Type), Required: p.Required})
			}
			doc.Operations = append(doc.Operations, op)
		}
	}
	return doc
}
