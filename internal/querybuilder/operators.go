package querybuilder

import "log/slog"

// Operator vocabulary used by rules.
const (
	OpEqual        = "="
	OpNotEqual     = "!="
	OpGreater      = ">"
	OpGreaterEqual = ">="
	OpLess         = "<"
	OpLessEqual    = "<="
	OpContains     = "contains"
	OpLike         = "like"
	OpIn           = "in"
	OpNotIn        = "not in"
	OpIsNull       = "is null"
	OpIsNotNull    = "is not null"
)

// DefaultOperatorMap is used when neither the field nor the injected map
// names operators for a type.
var DefaultOperatorMap = map[string][]string{
	TypeString:      {OpEqual, OpNotEqual, OpContains, OpLike},
	TypeNumber:      {OpEqual, OpNotEqual, OpGreater, OpGreaterEqual, OpLess, OpLessEqual},
	TypeTime:        {OpEqual, OpNotEqual, OpGreater, OpGreaterEqual, OpLess, OpLessEqual},
	TypeDate:        {OpEqual, OpNotEqual, OpGreater, OpGreaterEqual, OpLess, OpLessEqual},
	TypeCategory:    {OpEqual, OpNotEqual, OpIn, OpNotIn},
	TypeBoolean:     {OpEqual},
	TypeMultiselect: {OpIn, OpNotIn},
	TypeTerminology: {OpEqual, OpNotEqual},
}

// GetOperators lists the operators available for a field: the field's own
// list wins, then the injected map, then DefaultOperatorMap. Nullable fields
// additionally get "is null" and "is not null".
//
// A field with no type, or a type with no operators, yields an empty list and
// a warning rather than an error.
func GetOperators(field *Field, injected map[string][]string) []string {
	if field == nil {
		return nil
	}
	var operators []string
	switch {
	case len(field.Operators) > 0:
		operators = field.Operators
	case field.Type == "":
		slog.Warn("query builder field has no type", "field", field.Name)
	default:
		typ := NormalizeType(field.Type)
		if ops, ok := injected[typ]; ok {
			operators = ops
		} else {
			operators = DefaultOperatorMap[typ]
		}
	}

	out := make([]string, 0, len(operators)+2)
	out = append(out, operators...)
	if field.Nullable {
		out = append(out, OpIsNull, OpIsNotNull)
	}
	if len(out) == 0 {
		slog.Warn("query builder field has no operators", "field", field.Name, "type", field.Type)
	}
	return out
}

// DefaultOperator is the field's declared default, else its first operator.
func DefaultOperator(field *Field, injected map[string][]string) string {
	if field == nil {
		return ""
	}
	if field.DefaultOperator != "" {
		return field.DefaultOperator
	}
	if ops := GetOperators(field, injected); len(ops) > 0 {
		return ops[0]
	}
	return ""
}

// GetInputType returns the editor input to show for field under operator.
// An empty result means no value input is shown.
func GetInputType(field *Field, operator string) string {
	if field == nil {
		return ""
	}
	typ := NormalizeType(field.Type)
	if typ == "" {
		slog.Warn("query builder field has no type", "field", field.Name)
		return ""
	}
	switch operator {
	case OpIsNull, OpIsNotNull:
		return ""
	case OpIn, OpNotIn:
		if typ == TypeCategory || typ == TypeBoolean {
			return TypeMultiselect
		}
	}
	return typ
}
