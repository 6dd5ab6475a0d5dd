package querybuilder

import (
	"strings"

	"github.com/gyaneshwarpardhi/catalogue-explorer/internal/catalogue"
)

// Input types a field can resolve to.
const (
	TypeString      = "string"
	TypeNumber      = "number"
	TypeBoolean     = "boolean"
	TypeDate        = "date"
	TypeTime        = "time"
	TypeCategory    = "category"
	TypeTerminology = "terminology"
	TypeMultiselect = "multiselect"
)

// FieldValidator returns a non-nil error when rule is not acceptable.
type FieldValidator func(rule *Rule, parent *RuleSet) error

// Option is a selectable value, or contextual storage for model references.
type Option struct {
	Name  string      `json:"name"`
	Value interface{} `json:"value"`
}

// Field is one filterable data element.
type Field struct {
	Name            string         `json:"name"`
	Value           string         `json:"value,omitempty"`
	Type            string         `json:"type"`
	Entity          string         `json:"entity,omitempty"`
	Nullable        bool           `json:"nullable,omitempty"`
	Options         []Option       `json:"options,omitempty"`
	Operators       []string       `json:"operators,omitempty"`
	DefaultOperator string         `json:"defaultOperator,omitempty"`
	DefaultValue    interface{}    `json:"defaultValue"`
	Validator       FieldValidator `json:"-"`
}

// Entity is a schema.class grouping of fields.
type Entity struct {
	Name         string `json:"name"`
	Value        string `json:"value,omitempty"`
	DefaultField string `json:"defaultField,omitempty"`
}

// Config is the field/entity map the rule-tree editor works from.
type Config struct {
	Fields         map[string]*Field  `json:"fields"`
	Entities       map[string]*Entity `json:"entities"`
	CoreEntityName string             `json:"coreEntityName,omitempty"`
}

// QueryConfiguration is the result of a configuration build.
type QueryConfiguration struct {
	DataElementSearchResult       []catalogue.DataElement `json:"dataElementSearchResult"`
	DataSpecificationQueryPayload *RuleSet                `json:"dataSpecificationQueryPayload,omitempty"`
	Config                        Config                  `json:"config"`
}

// NormalizeType lower-cases a resolved type for comparisons.
func NormalizeType(t string) string {
	return strings.ToLower(strings.TrimSpace(t))
}

// DefaultValueFor returns the initial rule value for a field type.
func DefaultValueFor(fieldType string) interface{} {
	switch NormalizeType(fieldType) {
	case TypeNumber:
		return 0
	case TypeString:
		return ""
	case TypeBoolean:
		return false
	}
	return nil
}

// EntityPath returns the dot-separated schema.class path for an element's
// breadcrumbs. The owning data model is not part of the path.
func EntityPath(crumbs []catalogue.Breadcrumb) string {
	labels := make([]string, 0, len(crumbs))
	for _, c := range crumbs {
		if c.DomainType == catalogue.DomainDataModel || c.DomainType == catalogue.DomainDataElement {
			continue
		}
		labels = append(labels, c.Label)
	}
	if len(labels) > 2 {
		labels = labels[len(labels)-2:]
	}
	return strings.Join(labels, ".")
}

// FieldKey returns the composite "schema.class.label" key of an element.
func FieldKey(el catalogue.DataElement) string {
	entity := EntityPath(el.Breadcrumbs)
	if entity == "" {
		return el.Label
	}
	return entity + "." + el.Label
}

// EntityDisplayName formats an entity value for display.
func EntityDisplayName(value string) string {
	return strings.ReplaceAll(value, ".", " > ")
}
