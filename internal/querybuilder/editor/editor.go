// Package editor is the view-model behind the query builder's rule tree.
//
// An Editor owns one rule tree and the field/entity configuration it is
// edited against. Every mutating operation runs synchronously, then invokes
// the change and touched callbacks so a rendering layer can refresh.
package editor

import (
	"errors"
	"fmt"
	"sort"
	"strings"

	qb "github.com/gyaneshwarpardhi/catalogue-explorer/internal/querybuilder"
)

// ErrInvalidConfig is returned when an editor is created without a config.
var ErrInvalidConfig = errors.New("query builder editor: a config object is required")

// persistableTypes keep their value when a rule moves to another field of the same type.
var persistableTypes = map[string]bool{
	qb.TypeString:  true,
	qb.TypeNumber:  true,
	qb.TypeTime:    true,
	qb.TypeDate:    true,
	qb.TypeBoolean: true,
}

// EntityPicker asks the user which entity a new top-level rule set is scoped to.
type EntityPicker interface {
	PickEntity(available []*qb.Entity) (*qb.Entity, bool)
}

// PickerFunc adapts a function to EntityPicker.
type PickerFunc func(available []*qb.Entity) (*qb.Entity, bool)

func (f PickerFunc) PickEntity(available []*qb.Entity) (*qb.Entity, bool) { return f(available) }

// Options tune editor behaviour.
type Options struct {
	AllowEmptyRulesets        bool
	PersistValueOnFieldChange bool
	// Operators overrides DefaultOperatorMap per input type.
	Operators map[string][]string
	Picker    EntityPicker
	// Defer schedules fn to run after the current update completes.
	// When nil, fn runs immediately.
	Defer func(fn func())
}

// RuleContext is the derived, cacheable UI state of one rule.
type RuleContext struct {
	Field     *qb.Field   `json:"field,omitempty"`
	Operators []string    `json:"operators"`
	InputType string      `json:"inputType"`
	Options   []qb.Option `json:"options,omitempty"`
}

// ValidationError lists every problem found in a rule tree.
type ValidationError struct {
	Problems []string
}

func (e *ValidationError) Error() string {
	return fmt.Sprintf("query is invalid:\n  - %s", strings.Join(e.Problems, "\n  - "))
}

// Editor edits a rule tree against a field/entity configuration.
type Editor struct {
	data   *qb.RuleSet
	config *qb.Config
	opts   Options

	fields        []*qb.Field
	entities      []*qb.Entity
	fieldByValue  map[string]*qb.Field
	entityByValue map[string]*qb.Entity

	contexts map[string]*RuleContext // rule id → context
	disabled bool

	onChange         []func(*qb.RuleSet)
	onTouched        []func()
	onRulesetRemoved []func(*qb.RuleSet)
}

// New builds the flat field and entity lists from config. A nil data starts
// an empty "and" rule set. A nil config, or a nil field or entity entry,
// yields ErrInvalidConfig.
func New(config *qb.Config, data *qb.RuleSet, opts Options) (*Editor, error) {
	if config == nil {
		return nil, ErrInvalidConfig
	}
	if data == nil {
		data = qb.NewRuleSet(qb.ConditionAnd, "")
	}
	e := &Editor{
		data:          data,
		config:        config,
		opts:          opts,
		fieldByValue:  make(map[string]*qb.Field, len(config.Fields)),
		entityByValue: make(map[string]*qb.Entity, len(config.Entities)),
		contexts:      make(map[string]*RuleContext),
	}

	for key, f := range config.Fields {
		if f == nil {
			return nil, fmt.Errorf("%w: field %q is null", ErrInvalidConfig, key)
		}
		if f.Value == "" {
			f.Value = key
		}
		e.fields = append(e.fields, f)
		e.fieldByValue[f.Value] = f
	}
	sort.Slice(e.fields, func(i, j int) bool { return e.fields[i].Value < e.fields[j].Value })

	for key, ent := range config.Entities {
		if ent == nil {
			return nil, fmt.Errorf("%w: entity %q is null", ErrInvalidConfig, key)
		}
		if ent.Value == "" {
			ent.Value = key
		}
		e.entities = append(e.entities, ent)
		e.entityByValue[ent.Value] = ent
	}
	sort.Slice(e.entities, func(i, j int) bool { return e.entities[i].Value < e.entities[j].Value })
	return e, nil
}

// Data returns the edited rule tree.
func (e *Editor) Data() *qb.RuleSet { return e.data }

// Fields returns the fields scoped to entity, or all fields when entity is empty.
func (e *Editor) Fields(entity string) []*qb.Field {
	if entity == "" || len(e.entities) == 0 {
		return e.fields
	}
	var out []*qb.Field
	for _, f := range e.fields {
		if f.Entity == entity {
			out = append(out, f)
		}
	}
	return out
}

// Entities returns every configured entity in value order.
func (e *Editor) Entities() []*qb.Entity { return e.entities }

// OnChange registers a callback fired after every mutation.
func (e *Editor) OnChange(fn func(*qb.RuleSet)) { e.onChange = append(e.onChange, fn) }

// OnTouched registers a callback fired after every mutation.
func (e *Editor) OnTouched(fn func()) { e.onTouched = append(e.onTouched, fn) }

// OnRulesetRemoved registers a callback fired when a rule set is removed.
func (e *Editor) OnRulesetRemoved(fn func(*qb.RuleSet)) {
	e.onRulesetRemoved = append(e.onRulesetRemoved, fn)
}

// SetDisabled toggles read-only mode; mutations are ignored while disabled.
func (e *Editor) SetDisabled(disabled bool) {
	e.disabled = disabled
	e.notify()
}

// Disabled reports whether the editor is read-only.
func (e *Editor) Disabled() bool { return e.disabled }

// PinRootEntity sets the root rule set's entity to the configured core entity.
// The update is scheduled through Options.Defer so it never runs inside the
// caller's own update. Call it once the callbacks are registered.
func (e *Editor) PinRootEntity() {
	core := e.config.CoreEntityName
	if core == "" || e.data.Entity == core {
		return
	}
	pin := func() {
		e.data.Entity = core
		e.notify()
	}
	if e.opts.Defer != nil {
		e.opts.Defer(pin)
		return
	}
	pin()
}

func (e *Editor) notify() {
	for _, fn := range e.onChange {
		fn(e.data)
	}
	for _, fn := range e.onTouched {
		fn()
	}
}

func (e *Editor) orRoot(parent *qb.RuleSet) *qb.RuleSet {
	if parent == nil {
		return e.data
	}
	return parent
}

// parentOf returns parent when given, else searches the tree for node's parent.
func (e *Editor) parentOf(node qb.Node, parent *qb.RuleSet) *qb.RuleSet {
	if parent != nil {
		return parent
	}
	_, p := e.data.Find(node.NodeID())
	return p
}

// Field looks a field up by its value.
func (e *Editor) Field(value string) *qb.Field { return e.fieldByValue[value] }
