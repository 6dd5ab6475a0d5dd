package condition

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	qb "github.com/gyaneshwarpardhi/catalogue-explorer/internal/querybuilder"
)

func sampleTree() *qb.RuleSet {
	root := qb.NewRuleSet(qb.ConditionAnd, "S.A")
	root.Rules = append(root.Rules, qb.NewRule("S.A.age", qb.OpGreaterEqual, 18))

	group := qb.NewRuleSet(qb.ConditionOr, "S.B")
	group.Rules = append(group.Rules,
		qb.NewRule("S.B.code", qb.OpIn, []interface{}{"a", "b"}),
		qb.NewRule("S.B.died", qb.OpIsNull, nil),
	)
	root.Rules = append(root.Rules, group, qb.NewRuleSet(qb.ConditionAnd, "S.C"))
	return root
}

func TestSummary(t *testing.T) {
	got, err := Summary(sampleTree())
	require.NoError(t, err)
	assert.Equal(t, `S.A.age >= 18 AND (S.B.code in ["a", "b"] OR S.B.died is null)`, got)
}

func TestSummary_Empty(t *testing.T) {
	got, err := Summary(qb.NewRuleSet(qb.ConditionAnd, ""))
	require.NoError(t, err)
	assert.Equal(t, "", got)

	got, err = Summary(nil)
	require.NoError(t, err)
	assert.Equal(t, "", got)
}

func TestSummary_RuleWithoutField(t *testing.T) {
	rs := qb.NewRuleSet(qb.ConditionAnd, "")
	rs.Rules = append(rs.Rules, qb.NewRule("", qb.OpEqual, 1))
	_, err := Summary(rs)
	assert.Error(t, err)
}

func TestSummary_QuotesAwkwardFields(t *testing.T) {
	rs := qb.NewRuleSet(qb.ConditionAnd, "")
	rs.Rules = append(rs.Rules, qb.NewRule("S.A.age at diagnosis", qb.OpLess, 2.5))
	got, err := Summary(rs)
	require.NoError(t, err)
	assert.Equal(t, "`S.A.age at diagnosis` < 2.5", got)
}

func TestRenderedSummaryParsesToSameResult(t *testing.T) {
	tree := sampleTree()
	expr, err := FromRuleSet(tree)
	require.NoError(t, err)
	reparsed, err := Parse(String(expr))
	require.NoError(t, err)

	records := []Record{
		{"S.A.age": 20, "S.B.code": "a", "S.B.died": "2001-01-01"},
		{"S.A.age": 20, "S.B.code": "z"},
		{"S.A.age": 10, "S.B.code": "a"},
	}
	for _, r := range records {
		want, err := Evaluate(expr, r)
		require.NoError(t, err)
		got, err := Evaluate(reparsed, r)
		require.NoError(t, err)
		assert.Equal(t, want, got, "record %v", r)
	}
	assert.Equal(t, String(expr), String(reparsed))
}
