package submission

import (
	"fmt"

	"github.com/gyaneshwarpardhi/catalogue-explorer/internal/catalogue"
)

// Keys of the shared submission state.
const (
	KeySpecificationID   = "specificationId"
	KeyProjectID         = "projectId"
	KeyDataRequestID     = "dataRequestId"
	KeyDataRequestStatus = "dataRequestStatus"
	KeyFileProperties    = "fileProperties"
	KeySQLFileID         = "sqlFileId"
	KeyPDFFileID         = "pdfFileId"
	KeyCancel            = "cancel"
)

// State is the flat record shared by the steps of one submission. Steps read
// a projection of it and return a delta that the pipeline merges back.
type State map[string]interface{}

// Merge copies every key of delta into s.
func (s State) Merge(delta State) {
	for k, v := range delta {
		s[k] = v
	}
}

// Project returns the subset of s named by keys. The cancel flag is always
// carried so a step never runs after cancellation.
func (s State) Project(keys []string) State {
	out := make(State, len(keys)+1)
	for _, k := range keys {
		if v, ok := s[k]; ok {
			out[k] = v
		}
	}
	if v, ok := s[KeyCancel]; ok {
		out[KeyCancel] = v
	}
	return out
}

// Cancelled reports whether the cancel flag is set.
func (s State) Cancelled() bool {
	c, _ := s[KeyCancel].(bool)
	return c
}

// Clone returns a shallow copy.
func (s State) Clone() State {
	out := make(State, len(s))
	out.Merge(s)
	return out
}

// MissingInputError reports a step invoked without a key it needs.
type MissingInputError struct {
	Step     string
	Function string
	Field    string
}

func (e *MissingInputError) Error() string {
	return fmt.Sprintf("%s.%s: missing required input %q", e.Step, e.Function, e.Field)
}

func requireString(in State, step, function, key string) (string, error) {
	v, _ := in[key].(string)
	if v == "" {
		return "", &MissingInputError{Step: step, Function: function, Field: key}
	}
	return v, nil
}

func requireFile(in State, step, function string) (*catalogue.FileProperties, error) {
	fp, _ := in[KeyFileProperties].(*catalogue.FileProperties)
	if fp == nil {
		return nil, &MissingInputError{Step: step, Function: function, Field: KeyFileProperties}
	}
	return fp, nil
}

// userFacing marks errors whose message is shown to the user verbatim.
type userFacing interface {
	error
	UserMessage() string
}

// NoProjectsFoundError is returned when the user has no project to raise a
// data request against.
type NoProjectsFoundError struct{}

func (*NoProjectsFoundError) Error() string {
	return "No projects were found for your account. Please contact your administrator to be added to a project before submitting a data specification."
}

func (e *NoProjectsFoundError) UserMessage() string { return e.Error() }

// ProjectSelectionError is returned when a project must be chosen, or the
// chosen one is not available to the user.
type ProjectSelectionError struct {
	ProjectID string
	Available int
}

func (e *ProjectSelectionError) Error() string {
	if e.ProjectID != "" {
		return fmt.Sprintf("Project %s is not available for your account.", e.ProjectID)
	}
	return fmt.Sprintf("You belong to %d projects. Please choose the project to submit this data specification to.", e.Available)
}

func (e *ProjectSelectionError) UserMessage() string { return e.Error() }
