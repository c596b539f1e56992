package query

import "strings"

// ParseKwargs accepts two equivalent predicate styles: a nested map under
// "where_<name>" shaped like {column, op, value}, or flattened keys
// "where_<name>_column" / "where_<name>_op" / "where_<name>_value" sharing
// a leading name. Entries missing "column" are ignored. This is the
// HTTP/CLI-facing convenience for callers that cannot construct a
// Predicate map directly (e.g. a flat query-string or form payload).
func ParseKwargs(kwargs map[string]interface{}) map[string]Predicate {
	out := map[string]Predicate{}

	// Nested-map style: where_<name> = {column, op, value}
	for k, v := range kwargs {
		if !strings.HasPrefix(k, "where_") {
			continue
		}
		rest := strings.TrimPrefix(k, "where_")
		if strings.Contains(rest, "_column") || strings.Contains(rest, "_op") || strings.Contains(rest, "_value") {
			continue // handled by the flattened pass below
		}
		m, ok := v.(map[string]interface{})
		if !ok {
			continue
		}
		col, hasCol := m["column"].(string)
		if !hasCol {
			continue
		}
		out[rest] = Predicate{
			Column: col,
			Op:     Op(stringOrDefault(m["op"], string(OpEq))),
			Value:  m["value"],
		}
	}

	// Flattened style: where_<name>_column / _op / _value
	partials := map[string]map[string]interface{}{}
	for k, v := range kwargs {
		if !strings.HasPrefix(k, "where_") {
			continue
		}
		rest := strings.TrimPrefix(k, "where_")
		for _, suffix := range []string{"_column", "_op", "_value"} {
			if strings.HasSuffix(rest, suffix) {
				name := strings.TrimSuffix(rest, suffix)
				if partials[name] == nil {
					partials[name] = map[string]interface{}{}
				}
				partials[name][strings.TrimPrefix(suffix, "_")] = v
			}
		}
	}
	for name, fields := range partials {
		col, ok := fields["column"].(string)
		if !ok {
			continue
		}
		out[name] = Predicate{
			Column: col,
			Op:     Op(stringOrDefault(fields["op"], string(OpEq))),
			Value:  fields["value"],
		}
	}

	return out
}

func stringOrDefault(v interface{}, def string) string {
	if s, ok := v.(string); ok && s != "" {
		return s
	}
	return def
}
