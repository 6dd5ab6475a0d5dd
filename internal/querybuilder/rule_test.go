package querybuilder

import (
	"encoding/json"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const sampleQuery = `{
  "condition": "and",
  "entity": "patients",
  "rules": [
    {"field": "S.A.age", "operator": ">", "value": 18},
    {
      "condition": "or",
      "entity": "S.B",
      "rules": [
        {"field": "S.B.code", "operator": "in", "value": ["a", "b"]},
        {"condition": "and", "rules": []}
      ]
    }
  ]
}`

func TestParseRuleSet_DiscriminatesByRules(t *testing.T) {
	rs, err := ParseRuleSet([]byte(sampleQuery))
	require.NoError(t, err)
	require.Len(t, rs.Rules, 2)

	r, ok := rs.Rules[0].(*Rule)
	require.True(t, ok)
	assert.Equal(t, "S.A.age", r.Field)
	assert.NotEmpty(t, r.ID)

	nested, ok := rs.Rules[1].(*RuleSet)
	require.True(t, ok)
	assert.Equal(t, ConditionOr, nested.Condition)
	assert.Equal(t, "S.B", nested.Entity)
	require.Len(t, nested.Rules, 2)
	_, ok = nested.Rules[1].(*RuleSet)
	assert.True(t, ok)
}

func TestRuleSet_JSONRoundTrip(t *testing.T) {
	rs, err := ParseRuleSet([]byte(sampleQuery))
	require.NoError(t, err)
	out, err := json.Marshal(rs)
	require.NoError(t, err)

	again, err := ParseRuleSet(out)
	require.NoError(t, err)
	out2, err := json.Marshal(again)
	require.NoError(t, err)
	assert.JSONEq(t, string(out), string(out2))
	assert.True(t, again.ReferencesField("S.B.code"))
}

func TestRuleSet_EmptyRulesEncodeAsArray(t *testing.T) {
	out, err := json.Marshal(NewRuleSet("", "x"))
	require.NoError(t, err)
	assert.JSONEq(t, `{"condition":"and","entity":"x","rules":[]}`, string(out))
}

func TestRuleSet_FindDepthRemove(t *testing.T) {
	rs, err := ParseRuleSet([]byte(sampleQuery))
	require.NoError(t, err)
	nested := rs.Rules[1].(*RuleSet)
	inner := nested.Rules[1].(*RuleSet)

	n, parent := rs.Find(inner.ID)
	assert.Same(t, inner, n)
	assert.Same(t, nested, parent)
	assert.Equal(t, 0, rs.Depth(rs.ID))
	assert.Equal(t, 1, rs.Depth(nested.ID))
	assert.Equal(t, 2, rs.Depth(inner.ID))
	assert.Equal(t, -1, rs.Depth("missing"))

	assert.True(t, rs.HasEmptyRuleSet())
	assert.True(t, nested.Remove(inner.ID))
	assert.False(t, rs.HasEmptyRuleSet())
	assert.False(t, nested.Remove(inner.ID))
}

func TestReferencesField_Prefix(t *testing.T) {
	rs := NewRuleSet(ConditionAnd, "")
	rs.Rules = append(rs.Rules, NewRule("S.A.age_at_diagnosis", OpEqual, 1))
	assert.True(t, rs.ReferencesField("S.A.age"))
	assert.False(t, rs.ReferencesField("S.B"))
	var nilSet *RuleSet
	assert.False(t, nilSet.ReferencesField("S.A"))
}
