package editor

import (
	"fmt"
	"log/slog"
	"strings"

	qb "github.com/gyaneshwarpardhi/catalogue-explorer/internal/querybuilder"
)

// AddRule appends a rule to parent (the root when nil), seeded with the
// first field of the parent's entity.
func (e *Editor) AddRule(parent *qb.RuleSet) *qb.Rule {
	if e.disabled {
		return nil
	}
	parent = e.orRoot(parent)

	rule := qb.NewRule("", "", nil)
	if field := e.firstField(parent.Entity); field != nil {
		rule.Field = field.Value
		rule.Entity = field.Entity
		rule.Operator = qb.DefaultOperator(field, e.opts.Operators)
		rule.Value = field.DefaultValue
	} else {
		slog.Warn("no fields available for new rule", "entity", parent.Entity)
	}
	parent.Rules = append(parent.Rules, rule)
	e.notify()
	return rule
}

func (e *Editor) firstField(entity string) *qb.Field {
	fields := e.Fields(entity)
	if len(fields) == 0 {
		return nil
	}
	return fields[0]
}

// RemoveRule deletes rule from parent, found in the tree when nil.
func (e *Editor) RemoveRule(rule *qb.Rule, parent *qb.RuleSet) {
	if e.disabled || rule == nil {
		return
	}
	parent = e.parentOf(rule, parent)
	if parent == nil || !parent.Remove(rule.ID) {
		return
	}
	delete(e.contexts, rule.ID)
	e.notify()
}

// AvailableEntities lists entities a new top-level rule set may be scoped to:
// every entity not already used by the root or one of its nested rule sets.
func (e *Editor) AvailableEntities() []*qb.Entity {
	used := map[string]bool{e.data.Entity: true}
	for _, n := range e.data.Rules {
		if rs, ok := n.(*qb.RuleSet); ok {
			used[rs.Entity] = true
		}
	}
	var out []*qb.Entity
	for _, ent := range e.entities {
		if !used[ent.Value] {
			out = append(out, ent)
		}
	}
	return out
}

// CanAddRuleSet reports whether a top-level rule set can still be added.
func (e *Editor) CanAddRuleSet() bool {
	return !e.disabled && len(e.AvailableEntities()) > 0
}

// AddRuleSet appends an empty "and" rule set to parent (the root when nil).
// Directly under the root the user picks an unused entity; deeper rule sets
// inherit their parent's entity. It returns nil when nothing was added.
func (e *Editor) AddRuleSet(parent *qb.RuleSet) *qb.RuleSet {
	if e.disabled {
		return nil
	}
	parent = e.orRoot(parent)

	var entity string
	switch level := e.data.Depth(parent.ID); {
	case level < 0:
		return nil
	case level == 0:
		available := e.AvailableEntities()
		if len(available) == 0 {
			return nil
		}
		if e.opts.Picker == nil {
			slog.Warn("no entity picker configured, rule set not added")
			return nil
		}
		chosen, ok := e.opts.Picker.PickEntity(available)
		if !ok || chosen == nil {
			return nil
		}
		entity = chosen.Value
		if entity == "" {
			entity = strings.ReplaceAll(chosen.Name, " > ", ".")
		}
	default:
		entity = parent.Entity
	}

	rs := qb.NewRuleSet(qb.ConditionAnd, entity)
	parent.Rules = append(parent.Rules, rs)
	e.notify()
	return rs
}

// RemoveRuleSet deletes rs from parent, found in the tree when nil. The root
// cannot be removed.
func (e *Editor) RemoveRuleSet(rs *qb.RuleSet, parent *qb.RuleSet) {
	if e.disabled || rs == nil || rs == e.data {
		return
	}
	parent = e.parentOf(rs, parent)
	if parent == nil || !parent.Remove(rs.ID) {
		return
	}
	rs.Walk(func(n qb.Node, _ *qb.RuleSet, _ int) bool {
		delete(e.contexts, n.NodeID())
		return true
	})
	e.notify()
	for _, fn := range e.onRulesetRemoved {
		fn(rs)
	}
}

// ChangeCondition sets rs's logical operator.
func (e *Editor) ChangeCondition(condition string, rs *qb.RuleSet) {
	if e.disabled || rs == nil {
		return
	}
	rs.Condition = condition
	e.notify()
}

// ToggleCollapsed flips rs's collapsed flag.
func (e *Editor) ToggleCollapsed(rs *qb.RuleSet) {
	if e.disabled || rs == nil {
		return
	}
	rs.Collapsed = !rs.Collapsed
	e.notify()
}

// ChangeField moves rule to another field. The value survives only when
// persistence is enabled and both fields share a persistable type; otherwise
// it resets to the new field's default.
func (e *Editor) ChangeField(fieldValue string, rule *qb.Rule) {
	if e.disabled || rule == nil {
		return
	}
	prev := e.fieldByValue[rule.Field]
	next := e.fieldByValue[fieldValue]

	if !e.keepsValue(prev, next) {
		if next != nil {
			rule.Value = next.DefaultValue
		} else {
			rule.Value = nil
		}
	}
	rule.Field = fieldValue
	rule.Operator = qb.DefaultOperator(next, e.opts.Operators)

	// operator lists and input types may change for every rule
	e.contexts = make(map[string]*RuleContext)
	e.notify()
}

func (e *Editor) keepsValue(prev, next *qb.Field) bool {
	if !e.opts.PersistValueOnFieldChange || prev == nil || next == nil {
		return false
	}
	typ := qb.NormalizeType(prev.Type)
	return typ == qb.NormalizeType(next.Type) && persistableTypes[typ]
}

// ChangeEntity scopes rule to another entity and moves it to that entity's
// default field.
func (e *Editor) ChangeEntity(entityValue string, rule *qb.Rule) {
	if e.disabled || rule == nil {
		return
	}
	ent := e.entityByValue[entityValue]
	if ent == nil {
		slog.Warn("unknown entity", "entity", entityValue)
		return
	}
	rule.Entity = ent.Value
	if ent.DefaultField == "" {
		slog.Warn("entity has no default field", "entity", ent.Name)
	}
	e.ChangeField(ent.DefaultField, rule)
}

// ChangeOperator sets rule's operator and reshapes its value for the new
// input: cleared when no input is shown, reset to an empty list for
// multiselect unless it already is one.
func (e *Editor) ChangeOperator(operator string, rule *qb.Rule) {
	if e.disabled || rule == nil {
		return
	}
	rule.Operator = operator
	rule.Value = coerceValue(qb.GetInputType(e.fieldByValue[rule.Field], operator), rule.Value)
	delete(e.contexts, rule.ID)
	e.notify()
}

func coerceValue(inputType string, value interface{}) interface{} {
	list, isList := value.([]interface{})
	switch {
	case inputType == "":
		return nil
	case inputType == qb.TypeMultiselect && !isList:
		return []interface{}{}
	case inputType != qb.TypeMultiselect && isList:
		if len(list) == 0 {
			return nil
		}
		return list[0]
	}
	return value
}

// ChangeInput sets rule's value.
func (e *Editor) ChangeInput(value interface{}, rule *qb.Rule) {
	if e.disabled || rule == nil {
		return
	}
	rule.Value = value
	e.notify()
}

// RuleContext returns the operators, input type and options for rule,
// cached by rule id until the rule's field or operator changes.
func (e *Editor) RuleContext(rule *qb.Rule) *RuleContext {
	if ctx, ok := e.contexts[rule.ID]; ok {
		return ctx
	}
	field := e.fieldByValue[rule.Field]
	ctx := &RuleContext{Field: field}
	if field != nil {
		ctx.Operators = qb.GetOperators(field, e.opts.Operators)
		ctx.InputType = qb.GetInputType(field, rule.Operator)
		ctx.Options = field.Options
	}
	e.contexts[rule.ID] = ctx
	return ctx
}

// Validate checks the tree for empty rule sets, unless allowed, and runs
// each field's validator against its rules.
func (e *Editor) Validate() error {
	var problems []string
	if !e.opts.AllowEmptyRulesets && e.data.HasEmptyRuleSet() {
		problems = append(problems, "Empty rulesets are not allowed")
	}
	e.data.Walk(func(n qb.Node, parent *qb.RuleSet, _ int) bool {
		rule, ok := n.(*qb.Rule)
		if !ok {
			return true
		}
		field := e.fieldByValue[rule.Field]
		if field == nil || field.Validator == nil {
			return true
		}
		if err := field.Validator(rule, parent); err != nil {
			problems = append(problems, fmt.Sprintf("%s: %v", rule.Field, err))
		}
		return true
	})
	if len(problems) > 0 {
		return &ValidationError{Problems: problems}
	}
	return nil
}
