package api

import (
	"errors"
	"fmt"
	"net/http"

	"github.com/gyaneshwarpardhi/catalogue-explorer/internal/condition"
	"github.com/gyaneshwarpardhi/catalogue-explorer/internal/querybuilder"
	"github.com/gyaneshwarpardhi/catalogue-explorer/internal/querybuilder/editor"
)

// POST /v1/querybuilder/config: Build the field/entity configuration.
func (h *Handler) buildConfig(w http.ResponseWriter, r *http.Request) {
	var req querybuilder.BuildRequest
	if !decodeJSON(w, r, &req) {
		return
	}
	qc, err := h.Builder.Build(r.Context(), req)
	if err != nil {
		writeFailure(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, qc)
}

type treeRequest struct {
	Config *querybuilder.Config  `json:"config"`
	Query  *querybuilder.RuleSet `json:"query"`
}

// newEditor builds an editor from the current query-builder settings. The
// root is pinned to the core entity straight away.
func (h *Handler) newEditor(req treeRequest, picker editor.EntityPicker) (*editor.Editor, error) {
	conf := h.Builder.Config()
	ed, err := editor.New(req.Config, req.Query, editor.Options{
		AllowEmptyRulesets:        conf.AllowEmptyRulesets,
		PersistValueOnFieldChange: conf.PersistValue(),
		Operators:                 conf.Operators,
		Picker:                    picker,
	})
	if err != nil {
		return nil, err
	}
	ed.PinRootEntity()
	return ed, nil
}

// POST /v1/querybuilder/validate: Run the editor's validation over a query.
func (h *Handler) validateQuery(w http.ResponseWriter, r *http.Request) {
	var req treeRequest
	if !decodeJSON(w, r, &req) {
		return
	}
	ed, err := h.newEditor(req, nil)
	if err != nil {
		writeFailure(w, r, err)
		return
	}
	resp := map[string]interface{}{"valid": true, "problems": []string{}}
	if err := ed.Validate(); err != nil {
		var verr *editor.ValidationError
		if !errors.As(err, &verr) {
			writeFailure(w, r, err)
			return
		}
		resp["valid"] = false
		resp["problems"] = verr.Problems
	}
	writeJSON(w, http.StatusOK, resp)
}

type operatorsRequest struct {
	Field *querybuilder.Field `json:"field"`
}

// POST /v1/querybuilder/operators: Operators and input types for a field.
func (h *Handler) operators(w http.ResponseWriter, r *http.Request) {
	var req operatorsRequest
	if !decodeJSON(w, r, &req) {
		return
	}
	if req.Field == nil {
		writeError(w, http.StatusBadRequest, "field is required")
		return
	}
	injected := h.Builder.Config().Operators
	ops := querybuilder.GetOperators(req.Field, injected)
	inputTypes := make(map[string]string, len(ops))
	for _, op := range ops {
		inputTypes[op] = querybuilder.GetInputType(req.Field, op)
	}
	writeJSON(w, http.StatusOK, map[string]interface{}{
		"operators":       ops,
		"defaultOperator": querybuilder.DefaultOperator(req.Field, injected),
		"inputTypes":      inputTypes,
	})
}

// editAction addresses a node by its index path from the root: [] is the
// root, [1, 0] the first member of the root's second member.
type editAction struct {
	Type      string      `json:"type"`
	Path      []int       `json:"path"`
	Field     string      `json:"field,omitempty"`
	Entity    string      `json:"entity,omitempty"`
	Operator  string      `json:"operator,omitempty"`
	Condition string      `json:"condition,omitempty"`
	Value     interface{} `json:"value,omitempty"`
}

type editRequest struct {
	treeRequest
	Action editAction `json:"action"`
}

type editResponse struct {
	Query             *querybuilder.RuleSet  `json:"query"`
	Summary           string                 `json:"summary,omitempty"`
	CanAddRuleSet     bool                   `json:"canAddRuleSet"`
	AvailableEntities []*querybuilder.Entity `json:"availableEntities"`
}

// POST /v1/querybuilder/edit: Apply one editor operation and return the tree.
func (h *Handler) editQuery(w http.ResponseWriter, r *http.Request) {
	var req editRequest
	if !decodeJSON(w, r, &req) {
		return
	}
	picker := editor.PickerFunc(func(available []*querybuilder.Entity) (*querybuilder.Entity, bool) {
		for _, e := range available {
			if e.Value == req.Action.Entity {
				return e, true
			}
		}
		return nil, false
	})
	ed, err := h.newEditor(req.treeRequest, picker)
	if err != nil {
		writeFailure(w, r, err)
		return
	}
	if err := applyAction(ed, req.Action); err != nil {
		writeError(w, http.StatusBadRequest, err.Error())
		return
	}
	summary, _ := condition.Summary(ed.Data())
	available := ed.AvailableEntities()
	if available == nil {
		available = []*querybuilder.Entity{}
	}
	writeJSON(w, http.StatusOK, editResponse{
		Query:             ed.Data(),
		Summary:           summary,
		CanAddRuleSet:     ed.CanAddRuleSet(),
		AvailableEntities: available,
	})
}

func applyAction(ed *editor.Editor, a editAction) error {
	node, parent, err := nodeAt(ed.Data(), a.Path)
	if err != nil {
		return err
	}
	rs, isSet := node.(*querybuilder.RuleSet)
	rule, isRule := node.(*querybuilder.Rule)

	switch a.Type {
	case "addRule", "addRuleSet", "removeRuleSet", "changeCondition", "toggleCollapsed":
		if !isSet {
			return fmt.Errorf("%s needs a rule set at path %v", a.Type, a.Path)
		}
	case "removeRule", "changeField", "changeEntity", "changeOperator", "changeValue":
		if !isRule {
			return fmt.Errorf("%s needs a rule at path %v", a.Type, a.Path)
		}
	default:
		return fmt.Errorf("unknown action %q", a.Type)
	}

	switch a.Type {
	case "addRule":
		ed.AddRule(rs)
	case "addRuleSet":
		if ed.AddRuleSet(rs) == nil {
			return fmt.Errorf("entity %q is not available for a new rule set", a.Entity)
		}
	case "removeRuleSet":
		ed.RemoveRuleSet(rs, parent)
	case "changeCondition":
		ed.ChangeCondition(a.Condition, rs)
	case "toggleCollapsed":
		ed.ToggleCollapsed(rs)
	case "removeRule":
		ed.RemoveRule(rule, parent)
	case "changeField":
		ed.ChangeField(a.Field, rule)
	case "changeEntity":
		ed.ChangeEntity(a.Entity, rule)
	case "changeOperator":
		ed.ChangeOperator(a.Operator, rule)
	case "changeValue":
		ed.ChangeInput(a.Value, rule)
	}
	return nil
}

// nodeAt follows an index path from root and returns the node with its parent.
func nodeAt(root *querybuilder.RuleSet, path []int) (querybuilder.Node, *querybuilder.RuleSet, error) {
	var node querybuilder.Node = root
	var parent *querybuilder.RuleSet
	for depth, i := range path {
		rs, ok := node.(*querybuilder.RuleSet)
		if !ok || i < 0 || i >= len(rs.Rules) {
			return nil, nil, fmt.Errorf("no node at path %v (depth %d)", path, depth)
		}
		parent, node = rs, rs.Rules[i]
	}
	return node, parent, nil
}

// previewRequest carries either a rule tree or a written expression.
type previewRequest struct {
	Query      *querybuilder.RuleSet `json:"query"`
	Expression string                `json:"expression"`
	Records    []condition.Record    `json:"records"`
}

func (req previewRequest) expr() (condition.Expr, error) {
	switch {
	case req.Query != nil && req.Expression != "":
		return nil, errors.New("give either query or expression, not both")
	case req.Expression != "":
		return condition.Parse(req.Expression)
	}
	return condition.FromRuleSet(req.Query)
}

// POST /v1/querybuilder/preview: Evaluate a query against sample records.
func (h *Handler) previewQuery(w http.ResponseWriter, r *http.Request) {
	var req previewRequest
	if !decodeJSON(w, r, &req) {
		return
	}
	expr, err := req.expr()
	if err != nil {
		writeError(w, http.StatusBadRequest, err.Error())
		return
	}
	matches := make([]bool, len(req.Records))
	for i, rec := range req.Records {
		ok, err := condition.Evaluate(expr, rec)
		if err != nil {
			writeError(w, http.StatusUnprocessableEntity, fmt.Sprintf("record %d: %s", i, err))
			return
		}
		matches[i] = ok
	}
	writeJSON(w, http.StatusOK, map[string]interface{}{
		"expression": condition.String(expr),
		"matches":    matches,
	})
}
