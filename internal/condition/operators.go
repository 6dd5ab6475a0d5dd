package condition

import (
	"fmt"
	"math"
	"regexp"
	"strings"
)

// Operator represents a comparison operator. The vocabulary matches the
// operators a query builder rule can carry.
type Operator string

const (
	OpEq        Operator = "="
	OpNeq       Operator = "!="
	OpGt        Operator = ">"
	OpGte       Operator = ">="
	OpLt        Operator = "<"
	OpLte       Operator = "<="
	OpContains  Operator = "contains"
	OpLike      Operator = "like"
	OpIn        Operator = "in"
	OpNotIn     Operator = "not in"
	OpIsNull    Operator = "is null"
	OpIsNotNull Operator = "is not null"
)

// unary reports whether op takes no right operand.
func (op Operator) unary() bool {
	return op == OpIsNull || op == OpIsNotNull
}

// toFloat64 coerces a numeric value to float64.
func toFloat64(v interface{}) (float64, bool) {
	switch n := v.(type) {
	case int:
		return float64(n), true
	case int32:
		return float64(n), true
	case int64:
		return float64(n), true
	case float32:
		return float64(n), true
	case float64:
		return n, true
	}
	return 0, false
}

// compare applies a binary comparison operator to two values.
func compare(op Operator, left, right interface{}) (bool, error) {
	switch op {
	case OpEq:
		return equal(left, right), nil
	case OpNeq:
		return !equal(left, right), nil
	case OpGt, OpGte, OpLt, OpLte:
		return orderedCompare(op, left, right)
	case OpContains:
		return containsOp(left, right)
	case OpLike:
		return likeOp(left, right)
	case OpIn:
		return inOp(left, right)
	case OpNotIn:
		in, err := inOp(left, right)
		return !in, err
	case OpIsNull:
		return left == nil, nil
	case OpIsNotNull:
		return left != nil, nil
	default:
		return false, fmt.Errorf("unknown operator: %s", op)
	}
}

// equal does deep-ish equality: numeric types are compared by value.
func equal(left, right interface{}) bool {
	lf, lok := toFloat64(left)
	rf, rok := toFloat64(right)
	if lok && rok {
		return math.Abs(lf-rf) < 1e-9
	}
	if lb, ok := left.(bool); ok {
		if rb, ok := right.(bool); ok {
			return lb == rb
		}
		return false
	}
	if left == nil || right == nil {
		return left == right
	}
	return fmt.Sprintf("%v", left) == fmt.Sprintf("%v", right)
}

// orderedCompare compares numbers by value, and strings lexically so that
// ISO dates and times order correctly.
func orderedCompare(op Operator, left, right interface{}) (bool, error) {
	var cmp int
	lf, lok := toFloat64(left)
	rf, rok := toFloat64(right)
	ls, lsok := left.(string)
	rs, rsok := right.(string)
	switch {
	case lok && rok:
		switch {
		case lf < rf:
			cmp = -1
		case lf > rf:
			cmp = 1
		}
	case lsok && rsok:
		cmp = strings.Compare(ls, rs)
	default:
		return false, fmt.Errorf("operator %s requires numeric or string operands, got %T and %T", op, left, right)
	}
	switch op {
	case OpGt:
		return cmp > 0, nil
	case OpGte:
		return cmp >= 0, nil
	case OpLt:
		return cmp < 0, nil
	case OpLte:
		return cmp <= 0, nil
	}
	return false, nil
}

func containsOp(left, right interface{}) (bool, error) {
	ls, ok := left.(string)
	if !ok {
		return false, fmt.Errorf("contains: left operand must be a string, got %T", left)
	}
	return strings.Contains(ls, fmt.Sprintf("%v", right)), nil
}

// likeOp matches SQL LIKE patterns: % is any run, _ is any single character.
func likeOp(left, right interface{}) (bool, error) {
	ls, ok := left.(string)
	if !ok {
		return false, fmt.Errorf("like: left operand must be a string, got %T", left)
	}
	pattern, ok := right.(string)
	if !ok {
		return false, fmt.Errorf("like: right operand must be a string pattern, got %T", right)
	}
	var b strings.Builder
	b.WriteString("(?s)^")
	for _, r := range pattern {
		switch r {
		case '%':
			b.WriteString(".*")
		case '_':
			b.WriteString(".")
		default:
			b.WriteString(regexp.QuoteMeta(string(r)))
		}
	}
	b.WriteString("$")
	re, err := regexp.Compile(b.String())
	if err != nil {
		return false, fmt.Errorf("like: invalid pattern %q: %w", pattern, err)
	}
	return re.MatchString(ls), nil
}

func inOp(left, right interface{}) (bool, error) {
	list, ok := right.([]interface{})
	if !ok {
		return false, fmt.Errorf("in: right operand must be a list, got %T", right)
	}
	for _, v := range list {
		if equal(left, v) {
			return true, nil
		}
	}
	return false, nil
}
