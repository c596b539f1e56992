package endpoint

import (
	"encoding/json"
	"fmt"
	"strconv"

	"github.com/genrocorp/genroproxy/internal/apperr"
)

// coerceComplexInputs attempts a JSON parse of every string-typed input
// whose declared parameter type is list/map. Parse failure is silent here;
// the schema validation step that follows is what ultimately accepts or
// rejects the value.
func coerceComplexInputs(params []Param, values map[string]interface{}) {
	byName := make(map[string]Param, len(params))
	for _, p := range params {
		byName[p.Name] = p
	}

	for name, v := range values {
		p, ok := byName[name]
		if !ok || !p.Type.IsComplex() {
			continue
		}
		s, ok := v.(string)
		if !ok {
			continue
		}
		var decoded interface{}
		if err := json.Unmarshal([]byte(s), &decoded); err == nil {
			values[name] = decoded
		}
	}
}

// validate synthesizes the request schema from params and validates and
// coerces values against it, returning the validated map or a
// *apperr.Error of kind validation.
func validate(params []Param, values map[string]interface{}) (map[string]interface{}, error) {
	out := make(map[string]interface{}, len(params))
	var fieldErrors []map[string]interface{}

	for _, p := range params {
		raw, present := values[p.Name]
		if !present || raw == nil {
			if p.Required {
				fieldErrors = append(fieldErrors, map[string]interface{}{
					"field": p.Name, "error": "required",
				})
				continue
			}
			out[p.Name] = p.Default
			continue
		}

		coerced, err := coerceValue(p, raw)
		if err != nil {
			fieldErrors = append(fieldErrors, map[string]interface{}{
				"field": p.Name, "error": err.Error(),
			})
			continue
		}
		out[p.Name] = coerced
	}

	if len(fieldErrors) > 0 {
		return nil, apperr.Validation("request validation failed").WithDetails(map[string]interface{}{
			"errors": fieldErrors,
		})
	}
	return out, nil
}

func coerceValue(p Param, raw interface{}) (interface{}, error) {
	switch p.Type {
	case ParamAny, ParamList, ParamMap:
		return raw, nil
	case ParamString:
		s, err := asString(raw)
		if err != nil {
			return nil, err
		}
		if len(p.Choices) > 0 && !contains(p.Choices, s) {
			return nil, fmt.Errorf("must be one of %v", p.Choices)
		}
		return s, nil
	case ParamInt:
		return asInt(raw)
	case ParamFloat:
		return asFloat(raw)
	case ParamBool:
		return asBool(raw)
	default:
		return raw, nil
	}
}

func asString(v interface{}) (string, error) {
	switch s := v.(type) {
	case string:
		return s, nil
	default:
		return fmt.Sprintf("%v", s), nil
	}
}

func asInt(v interface{}) (int64, error) {
	switch n := v.(type) {
	case int64:
		return n, nil
	case int:
		return int64(n), nil
	case float64:
		return int64(n), nil
	case string:
		return strconv.ParseInt(n, 10, 64)
	default:
		return 0, fmt.Errorf("expected an integer")
	}
}

func asFloat(v interface{}) (float64, error) {
	switch n := v.(type) {
	case float64:
		return n, nil
	case int64:
		return float64(n), nil
	case string:
		return strconv.ParseFloat(n, 64)
	default:
		return 0, fmt.Errorf("expected a number")
	}
}

func asBool(v interface{}) (bool, error) {
	switch b := v.(type) {
	case bool:
		return b, nil
	case string:
		return strconv.ParseBool(b)
	default:
		return false, fmt.Errorf("expected a boolean")
	}
}

func contains(set []string, v string) bool {
	for _, s := range set {
		if s == v {
			return true
		}
	}
	return false
}
