// Package query implements the query builder: named predicates combined
// through a small boolean expression grammar, plus
// fetch/count/exists/update/delete operations consistent with the trigger
// contract of internal/table's single-row operations. Composed by hand
// rather than through an ORM.
package query

import (
	"fmt"
	"strings"
)

// Op is one of the closed set of comparison operators allowed.
type Op string

const (
	OpEq        Op = "="
	OpNeq       Op = "!="
	OpNeqAlt    Op = "<>"
	OpLt        Op = "<"
	OpGt        Op = ">"
	OpLte       Op = "<="
	OpGte       Op = ">="
	OpLike      Op = "LIKE"
	OpILike     Op = "ILIKE"
	OpNotLike   Op = "NOT LIKE"
	OpNotILike  Op = "NOT ILIKE"
	OpIn        Op = "IN"
	OpNotIn     Op = "NOT IN"
	OpIsNull    Op = "IS NULL"
	OpIsNotNull Op = "IS NOT NULL"
	OpBetween   Op = "BETWEEN"
)

var validOps = map[Op]bool{
	OpEq: true, OpNeq: true, OpNeqAlt: true, OpLt: true, OpGt: true,
	OpLte: true, OpGte: true, OpLike: true, OpILike: true, OpNotLike: true,
	OpNotILike: true, OpIn: true, OpNotIn: true, OpIsNull: true,
	OpIsNotNull: true, OpBetween: true,
}

// Predicate is a named {column, op, value} triple. Value may be a literal,
// a []interface{} for IN/NOT IN, a two-element []interface{} for BETWEEN,
// or the string form ":name" which binds to an external parameter supplied
// alongside the expression.
type Predicate struct {
	Column string
	Op     Op
	Value  interface{}
}

// render produces the SQL fragment for one predicate and the named bind
// values it introduces, using placeholder names derived from the
// predicate's own name (paramName): "c_<name>",
// "c_<name>_<index>" for IN, "c_<name>_low"/"_high" for BETWEEN.
func (p Predicate) render(paramName string, placeholder func(string) string, external map[string]interface{}) (string, map[string]interface{}, error) {
	if !validOps[p.Op] {
		return "", nil, fmt.Errorf("query builder: unknown operator %q", p.Op)
	}

	switch p.Op {
	case OpIsNull:
		return fmt.Sprintf("%s IS NULL", p.Column), nil, nil
	case OpIsNotNull:
		return fmt.Sprintf("%s IS NOT NULL", p.Column), nil, nil

	case OpIn, OpNotIn:
		values, err := resolveSlice(p.Value, external)
		if err != nil {
			return "", nil, err
		}
		if len(values) == 0 {
			if p.Op == OpIn {
				return "1=0", nil, nil
			}
			return "1=1", nil, nil
		}
		named := make(map[string]interface{}, len(values))
		toks := make([]string, len(values))
		for i, v := range values {
			pname := fmt.Sprintf("c_%s_%d", paramName, i)
			named[pname] = v
			toks[i] = placeholder(pname)
		}
		verb := "IN"
		if p.Op == OpNotIn {
			verb = "NOT IN"
		}
		return fmt.Sprintf("%s %s (%s)", p.Column, verb, strings.Join(toks, ", ")), named, nil

	case OpBetween:
		values, err := resolveSlice(p.Value, external)
		if err != nil {
			return "", nil, err
		}
		if len(values) != 2 {
			return "", nil, fmt.Errorf("query builder: BETWEEN requires exactly 2 values for %q, got %d", paramName, len(values))
		}
		lowName := fmt.Sprintf("c_%s_low", paramName)
		highName := fmt.Sprintf("c_%s_high", paramName)
		named := map[string]interface{}{lowName: values[0], highName: values[1]}
		return fmt.Sprintf("%s BETWEEN %s AND %s", p.Column, placeholder(lowName), placeholder(highName)), named, nil

	default:
		val, err := resolveScalar(p.Value, external)
		if err != nil {
			return "", nil, err
		}
		pname := fmt.Sprintf("c_%s", paramName)
		return fmt.Sprintf("%s %s %s", p.Column, p.Op, placeholder(pname)), map[string]interface{}{pname: val}, nil
	}
}

func resolveScalar(v interface{}, external map[string]interface{}) (interface{}, error) {
	if s, ok := v.(string); ok && strings.HasPrefix(s, ":") {
		name := strings.TrimPrefix(s, ":")
		ext, ok := external[name]
		if !ok {
			return nil, fmt.Errorf("query builder: no external parameter %q", name)
		}
		return ext, nil
	}
	return v, nil
}

func resolveSlice(v interface{}, external map[string]interface{}) ([]interface{}, error) {
	if s, ok := v.(string); ok && strings.HasPrefix(s, ":") {
		name := strings.TrimPrefix(s, ":")
		ext, ok := external[name]
		if !ok {
			return nil, fmt.Errorf("query builder: no external parameter %q", name)
		}
		v = ext
	}
	switch vv := v.(type) {
	case []interface{}:
		return vv, nil
	case nil:
		return nil, nil
	default:
		return nil, fmt.Errorf("query builder: expected a list value, got %T", v)
	}
}
