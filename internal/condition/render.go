package condition

import (
	"fmt"
	"regexp"
	"strconv"
	"strings"

	qb "github.com/gyaneshwarpardhi/catalogue-explorer/internal/querybuilder"
)

// FromRuleSet converts a rule tree into an expression. Empty rule sets
// contribute nothing; an entirely empty tree yields a nil Expr.
func FromRuleSet(rs *qb.RuleSet) (Expr, error) {
	if rs == nil {
		return nil, nil
	}
	op := "AND"
	if strings.EqualFold(rs.Condition, qb.ConditionOr) {
		op = "OR"
	}
	var out Expr
	for _, n := range rs.Rules {
		var child Expr
		var err error
		switch m := n.(type) {
		case *qb.Rule:
			child, err = fromRule(m)
		case *qb.RuleSet:
			child, err = FromRuleSet(m)
		}
		if err != nil {
			return nil, err
		}
		if child == nil {
			continue
		}
		if out == nil {
			out = child
		} else {
			out = &BinaryExpr{Op: op, Left: out, Right: child}
		}
	}
	return out, nil
}

func fromRule(r *qb.Rule) (Expr, error) {
	if r.Field == "" {
		return nil, fmt.Errorf("rule %s has no field", r.ID)
	}
	if r.Operator == "" {
		return nil, fmt.Errorf("rule on %q has no operator", r.Field)
	}
	cmp := &ComparisonExpr{
		Left: &FieldOperand{Path: strings.Split(r.Field, ".")},
		Op:   Operator(r.Operator),
	}
	if !cmp.Op.unary() {
		cmp.Right = &LiteralOperand{Value: r.Value}
	}
	return cmp, nil
}

// String renders expr in the syntax Parse accepts.
func String(expr Expr) string {
	var b strings.Builder
	writeExpr(&b, expr, "")
	return b.String()
}

func writeExpr(b *strings.Builder, expr Expr, parentOp string) {
	switch e := expr.(type) {
	case nil:
	case *BinaryExpr:
		wrap := parentOp != "" && parentOp != e.Op
		if wrap {
			b.WriteString("(")
		}
		writeExpr(b, e.Left, e.Op)
		b.WriteString(" " + e.Op + " ")
		writeExpr(b, e.Right, e.Op)
		if wrap {
			b.WriteString(")")
		}
	case *NotExpr:
		b.WriteString("NOT ")
		writeExpr(b, e.Expr, "NOT")
	case *ComparisonExpr:
		writeOperand(b, e.Left)
		b.WriteString(" " + string(e.Op))
		if e.Right != nil {
			b.WriteString(" ")
			writeOperand(b, e.Right)
		}
	}
}

var plainField = regexp.MustCompile(`^[A-Za-z_][A-Za-z0-9_]*(\.[A-Za-z_][A-Za-z0-9_]*)*$`)

var keywords = map[string]bool{
	"and": true, "or": true, "not": true, "in": true, "is": true,
	"null": true, "true": true, "false": true, "contains": true, "like": true,
}

func writeOperand(b *strings.Builder, op Operand) {
	switch o := op.(type) {
	case *FieldOperand:
		key := o.Key()
		if plainField.MatchString(key) && !keywords[strings.ToLower(key)] {
			b.WriteString(key)
			return
		}
		b.WriteString("`" + strings.ReplaceAll(key, "`", "\\`") + "`")
	case *LiteralOperand:
		writeLiteral(b, o.Value)
	}
}

func writeLiteral(b *strings.Builder, v interface{}) {
	switch x := v.(type) {
	case nil:
		b.WriteString("null")
	case string:
		b.WriteString(strconv.Quote(x))
	case bool:
		b.WriteString(strconv.FormatBool(x))
	case []interface{}:
		b.WriteString("[")
		for i, item := range x {
			if i > 0 {
				b.WriteString(", ")
			}
			writeLiteral(b, item)
		}
		b.WriteString("]")
	default:
		if f, ok := toFloat64(x); ok {
			b.WriteString(strconv.FormatFloat(f, 'f', -1, 64))
			return
		}
		b.WriteString(strconv.Quote(fmt.Sprintf("%v", x)))
	}
}

// Summary renders a rule tree as a readable expression.
func Summary(rs *qb.RuleSet) (string, error) {
	expr, err := FromRuleSet(rs)
	if err != nil {
		return "", err
	}
	return String(expr), nil
}
