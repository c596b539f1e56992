package query

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestParseKwargsNestedStyle(t *testing.T) {
	kwargs := map[string]interface{}{
		"where_active": map[string]interface{}{
			"column": "status",
			"op":     "=",
			"value":  "active",
		},
	}
	preds := ParseKwargs(kwargs)
	require.Contains(t, preds, "active")
	assert.Equal(t, Predicate{Column: "status", Op: OpEq, Value: "active"}, preds["active"])
}

func TestParseKwargsFlattenedStyle(t *testing.T) {
	kwargs := map[string]interface{}{
		"where_region_column": "region",
		"where_region_op":     "LIKE",
		"where_region_value":  "eu%",
	}
	preds := ParseKwargs(kwargs)
	require.Contains(t, preds, "region")
	assert.Equal(t, Predicate{Column: "region", Op: OpLike, Value: "eu%"}, preds["region"])
}

func TestParseKwargsFlattenedDefaultsToEquality(t *testing.T) {
	kwargs := map[string]interface{}{
		"where_tier_column": "tier",
		"where_tier_value":  "gold",
	}
	preds := ParseKwargs(kwargs)
	assert.Equal(t, OpEq, preds["tier"].Op)
}

func TestParseKwargsIgnoresEntriesMissingColumn(t *testing.T) {
	kwargs := map[string]interface{}{
		"where_incomplete": map[string]interface{}{"op": "="},
	}
	preds := ParseKwargs(kwargs)
	assert.NotContains(t, preds, "incomplete")
}

func TestParseKwargsIgnoresUnrelatedKeys(t *testing.T) {
	preds := ParseKwargs(map[string]interface{}{"limit": 10})
	assert.Empty(t, preds)
}
