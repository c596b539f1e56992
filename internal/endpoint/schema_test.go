package endpoint

import (
	"testing"

	"github.com/genrocorp/genroproxy/internal/apperr"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestValidateRequiredFieldMissing(t *testing.T) {
	params := []Param{{Name: "id", Type: ParamString, Required: true}}
	_, err := validate(params, map[string]interface{}{})
	require.Error(t, err)
	assert.Equal(t, apperr.KindValidation, apperr.KindOf(err))
}

func TestValidateAppliesDefaultWhenAbsent(t *testing.T) {
	params := []Param{{Name: "limit", Type: ParamInt, Default: int64(10)}}
	out, err := validate(params, map[string]interface{}{})
	require.NoError(t, err)
	assert.Equal(t, int64(10), out["limit"])
}

func TestValidateCoercesStringToInt(t *testing.T) {
	params := []Param{{Name: "n", Type: ParamInt}}
	out, err := validate(params, map[string]interface{}{"n": "42"})
	require.NoError(t, err)
	assert.Equal(t, int64(42), out["n"])
}

func TestValidateCoercesFloat64ToInt(t *testing.T) {
	params := []Param{{Name: "n", Type: ParamInt}}
	out, err := validate(params, map[string]interface{}{"n": float64(7)})
	require.NoError(t, err)
	assert.Equal(t, int64(7), out["n"])
}

func TestValidateRejectsUnparsableInt(t *testing.T) {
	params := []Param{{Name: "n", Type: ParamInt}}
	_, err := validate(params, map[string]interface{}{"n": "not-a-number"})
	require.Error(t, err)
}

func TestValidateCoercesBoolFromString(t *testing.T) {
	params := []Param{{Name: "flag", Type: ParamBool}}
	out, err := validate(params, map[string]interface{}{"flag": "true"})
	require.NoError(t, err)
	assert.Equal(t, true, out["flag"])
}

func TestValidateEnforcesChoices(t *testing.T) {
	params := []Param{{Name: "tier", Type: ParamString, Choices: []string{"gold", "silver"}}}
	_, err := validate(params, map[string]interface{}{"tier": "bronze"})
	require.Error(t, err)

	out, err := validate(params, map[string]interface{}{"tier": "gold"})
	require.NoError(t, err)
	assert.Equal(t, "gold", out["tier"])
}

func TestValidateAccumulatesMultipleFieldErrors(t *testing.T) {
	params := []Param{
		{Name: "a", Type: ParamString, Required: true},
		{Name: "b", Type: ParamInt, Required: true},
	}
	_, err := validate(params, map[string]interface{}{})
	require.Error(t, err)
	ae, ok := err.(*apperr.Error)
	require.True(t, ok)
	errs, _ := ae.Details["errors"].([]map[string]interface{})
	assert.Len(t, errs, 2)
}

func TestValidatePassesThroughAnyAndListAndMap(t *testing.T) {
	params := []Param{
		{Name: "a", Type: ParamAny},
		{Name: "b", Type: ParamList},
		{Name: "c", Type: ParamMap},
	}
	input := map[string]interface{}{
		"a": 123,
		"b": []interface{}{1, 2},
		"c": map[string]interface{}{"k": "v"},
	}
	out, err := validate(params, input)
	require.NoError(t, err)
	assert.Equal(t, input["a"], out["a"])
	assert.Equal(t, input["b"], out["b"])
	assert.Equal(t, input["c"], out["c"])
}

func TestCoerceComplexInputsParsesJSONStrings(t *testing.T) {
	params := []Param{{Name: "tags", Type: ParamList}}
	values := map[string]interface{}{"tags": `["a","b"]`}
	coerceComplexInputs(params, values)
	assert.Equal(t, []interface{}{"a", "b"}, values["tags"])
}

func TestCoerceComplexInputsLeavesUnparsableStringAlone(t *testing.T) {
	params := []Param{{Name: "tags", Type: ParamList}}
	values := map[string]interface{}{"tags": "not json"}
	coerceComplexInputs(params, values)
	assert.Equal(t, "not json", values["tags"])
}

func TestCoerceComplexInputsIgnoresSimpleParams(t *testing.T) {
	params := []Param{{Name: "name", Type: ParamString}}
	values := map[string]interface{}{"name": "acme"}
	coerceComplexInputs(params, values)
	assert.Equal(t, "acme", values["name"])
}
