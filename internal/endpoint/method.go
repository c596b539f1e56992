// Package endpoint implements the endpoint base: method introspection,
// request-schema synthesis, and the invoke pipeline that every channel
// (HTTP, CLI, process) funnels through. One Method descriptor drives
// HTTP, CLI, and direct invocation uniformly, replacing a
// one-handler-per-route model.
package endpoint

import "context"

// ParamType is the coercion target for one method parameter: an explicit
// descriptor in place of runtime signature introspection.
type ParamType string

const (
	ParamString ParamType = "string"
	ParamInt    ParamType = "int"
	ParamFloat  ParamType = "float"
	ParamBool   ParamType = "bool"
	ParamList   ParamType = "list"
	ParamMap    ParamType = "map"
	ParamAny    ParamType = "any"
)

// IsComplex reports whether the type is a list/map, the axis
// IsSimpleParams checks across a method's whole parameter set.
func (t ParamType) IsComplex() bool { return t == ParamList || t == ParamMap }

// Param is one method parameter descriptor.
type Param struct {
	Name     string
	Type     ParamType
	Required bool
	Default  interface{}
	// Choices restricts a string parameter to a literal set, used by the
	// CLI to build a flag's choice set.
	Choices []string
}

// Handler is the method body: it receives the validated, tenant-scoped
// parameter map and returns a JSON-serializable result or an *apperr.Error.
type Handler func(ctx context.Context, params map[string]interface{}) (interface{}, error)

// Axes are the four booleans controlling which channels a method is
// exposed on, plus whether it uses POST.
type Axes struct {
	API  bool
	CLI  bool
	REPL bool
	POST bool
}

// Method is the unit of exposed operation.
type Method struct {
	Name    string
	Params  []Param
	Axes    Axes
	Handler Handler
}

// httpVerb resolves the HTTP verb: POST when Axes.POST is true, GET
// otherwise.
func (m Method) httpVerb() string {
	if m.Axes.POST {
		return "POST"
	}
	return "GET"
}

// isSimpleParams reports true iff no parameter's type is or contains a
// list/map.
func (m Method) isSimpleParams() bool {
	for _, p := range m.Params {
		if p.Type.IsComplex() {
			return false
		}
	}
	return true
}
