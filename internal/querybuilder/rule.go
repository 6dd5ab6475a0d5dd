package querybuilder

import (
	"bytes"
	"encoding/json"
	"fmt"
	"strings"

	"github.com/google/uuid"
)

// Boolean conditions joining the members of a RuleSet.
const (
	ConditionAnd = "and"
	ConditionOr  = "or"
)

// Node is either a *Rule or a *RuleSet.
type Node interface {
	NodeID() string
	isNode()
}

// Rule is a leaf condition: <field> <operator> <value>.
// ID is assigned on creation and on decode; it is never serialized.
type Rule struct {
	ID       string      `json:"-"`
	Entity   string      `json:"entity,omitempty"`
	Field    string      `json:"field,omitempty"`
	Operator string      `json:"operator,omitempty"`
	Value    interface{} `json:"value"`
}

func (r *Rule) NodeID() string { return r.ID }
func (*Rule) isNode()          {}

// RuleSet is a boolean group of rules and nested rule sets.
type RuleSet struct {
	ID        string `json:"-"`
	Condition string `json:"condition"`
	Entity    string `json:"entity,omitempty"`
	Rules     []Node `json:"rules"`
	Collapsed bool   `json:"collapsed,omitempty"`
}

func (rs *RuleSet) NodeID() string { return rs.ID }
func (*RuleSet) isNode()           {}

// NewRule returns a rule with a fresh id.
func NewRule(field, operator string, value interface{}) *Rule {
	return &Rule{ID: newID(), Field: field, Operator: operator, Value: value}
}

// NewRuleSet returns an empty rule set with a fresh id.
func NewRuleSet(condition, entity string) *RuleSet {
	if condition == "" {
		condition = ConditionAnd
	}
	return &RuleSet{ID: newID(), Condition: condition, Entity: entity, Rules: []Node{}}
}

func newID() string { return uuid.NewString() }

func (r *Rule) UnmarshalJSON(data []byte) error {
	type plain Rule
	var p plain
	if err := json.Unmarshal(data, &p); err != nil {
		return err
	}
	*r = Rule(p)
	r.ID = newID()
	return nil
}

// UnmarshalJSON decodes members by shape: anything carrying a "rules" array
// is a RuleSet, everything else is a Rule.
func (rs *RuleSet) UnmarshalJSON(data []byte) error {
	var raw struct {
		Condition string            `json:"condition"`
		Entity    string            `json:"entity"`
		Rules     []json.RawMessage `json:"rules"`
		Collapsed bool              `json:"collapsed"`
	}
	if err := json.Unmarshal(data, &raw); err != nil {
		return err
	}
	out := RuleSet{
		ID:        newID(),
		Condition: strings.ToLower(raw.Condition),
		Entity:    raw.Entity,
		Rules:     make([]Node, 0, len(raw.Rules)),
		Collapsed: raw.Collapsed,
	}
	if out.Condition == "" {
		out.Condition = ConditionAnd
	}
	for i, member := range raw.Rules {
		if isRuleSet(member) {
			child := &RuleSet{}
			if err := json.Unmarshal(member, child); err != nil {
				return fmt.Errorf("rules[%d]: %w", i, err)
			}
			out.Rules = append(out.Rules, child)
			continue
		}
		child := &Rule{}
		if err := json.Unmarshal(member, child); err != nil {
			return fmt.Errorf("rules[%d]: %w", i, err)
		}
		out.Rules = append(out.Rules, child)
	}
	*rs = out
	return nil
}

func isRuleSet(member json.RawMessage) bool {
	var shape map[string]json.RawMessage
	if err := json.Unmarshal(member, &shape); err != nil {
		return false
	}
	rules, ok := shape["rules"]
	return ok && bytes.HasPrefix(bytes.TrimSpace(rules), []byte("["))
}

// ParseRuleSet decodes a serialized query payload.
func ParseRuleSet(data []byte) (*RuleSet, error) {
	rs := &RuleSet{}
	if err := json.Unmarshal(data, rs); err != nil {
		return nil, fmt.Errorf("parse rule set: %w", err)
	}
	return rs, nil
}

// Walk visits every node depth-first. parent is nil for the receiver itself
// and depth is 0 for the receiver's direct members. Returning false from fn
// stops descent into that node.
func (rs *RuleSet) Walk(fn func(n Node, parent *RuleSet, depth int) bool) {
	walk(rs, 0, fn)
}

func walk(rs *RuleSet, depth int, fn func(Node, *RuleSet, int) bool) {
	for _, n := range rs.Rules {
		if !fn(n, rs, depth) {
			continue
		}
		if child, ok := n.(*RuleSet); ok {
			walk(child, depth+1, fn)
		}
	}
}

// Find returns the node with the given id and its parent.
func (rs *RuleSet) Find(id string) (Node, *RuleSet) {
	if rs.ID == id {
		return rs, nil
	}
	var found Node
	var parent *RuleSet
	rs.Walk(func(n Node, p *RuleSet, _ int) bool {
		if found != nil {
			return false
		}
		if n.NodeID() == id {
			found, parent = n, p
			return false
		}
		return true
	})
	return found, parent
}

// Depth returns the nesting level of the rule set with the given id: 0 for
// the receiver, 1 for its direct children, -1 when absent.
func (rs *RuleSet) Depth(id string) int {
	if rs.ID == id {
		return 0
	}
	level := -1
	rs.Walk(func(n Node, _ *RuleSet, depth int) bool {
		if level >= 0 {
			return false
		}
		if n.NodeID() == id {
			level = depth + 1
			return false
		}
		return true
	})
	return level
}

// Remove deletes the direct member with the given id. It reports whether a
// member was removed.
func (rs *RuleSet) Remove(id string) bool {
	for i, n := range rs.Rules {
		if n.NodeID() == id {
			rs.Rules = append(rs.Rules[:i], rs.Rules[i+1:]...)
			return true
		}
	}
	return false
}

// HasEmptyRuleSet reports whether the receiver or any nested rule set has no members.
func (rs *RuleSet) HasEmptyRuleSet() bool {
	if len(rs.Rules) == 0 {
		return true
	}
	for _, n := range rs.Rules {
		if child, ok := n.(*RuleSet); ok && child.HasEmptyRuleSet() {
			return true
		}
	}
	return false
}

// ReferencesField reports whether any rule's field starts with key.
func (rs *RuleSet) ReferencesField(key string) bool {
	if rs == nil || key == "" {
		return false
	}
	found := false
	rs.Walk(func(n Node, _ *RuleSet, _ int) bool {
		if r, ok := n.(*Rule); ok && strings.HasPrefix(r.Field, key) {
			found = true
		}
		return !found
	})
	return found
}
