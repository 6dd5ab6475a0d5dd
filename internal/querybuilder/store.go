package querybuilder

import (
	"context"
	"encoding/json"
	"fmt"

	"github.com/gyaneshwarpardhi/catalogue-explorer/internal/catalogue"
	"github.com/gyaneshwarpardhi/catalogue-explorer/internal/config"
)

const queryPropertyName = "query"

// QueryStore persists a data specification's rule tree in a profile field.
type QueryStore struct {
	profiles catalogue.ProfileClient
	profile  func() config.ProfileRef
}

// NewQueryStore creates a store; profile is read on every call so reloaded
// settings take effect.
func NewQueryStore(profiles catalogue.ProfileClient, profile func() config.ProfileRef) *QueryStore {
	return &QueryStore{profiles: profiles, profile: profile}
}

func specificationRef(specificationID string) catalogue.ItemRef {
	return catalogue.ItemRef{DomainType: catalogue.DomainDataModel, ID: specificationID}
}

// Load returns the stored query, or nil when none has been saved.
func (s *QueryStore) Load(ctx context.Context, specificationID string) (*RuleSet, error) {
	ref := s.profile()
	p, err := s.profiles.GetProfile(ctx, specificationRef(specificationID), ref.Namespace, ref.Name)
	if err != nil {
		if catalogue.IsNotFound(err) {
			return nil, nil
		}
		return nil, fmt.Errorf("load query for %s: %w", specificationID, err)
	}
	value := p.Value()
	if value == "" {
		return nil, nil
	}
	rs, err := ParseRuleSet([]byte(value))
	if err != nil {
		return nil, fmt.Errorf("load query for %s: %w", specificationID, err)
	}
	return rs, nil
}

// Save validates and stores rs against the specification.
func (s *QueryStore) Save(ctx context.Context, specificationID string, rs *RuleSet) error {
	data, err := json.Marshal(rs)
	if err != nil {
		return fmt.Errorf("encode query for %s: %w", specificationID, err)
	}
	ref := s.profile()
	item := specificationRef(specificationID)

	p := &catalogue.Profile{}
	p.SetValue(queryPropertyName, string(data))

	verrs, err := s.profiles.ValidateProfile(ctx, item, ref.Namespace, ref.Name, p)
	if err != nil {
		return fmt.Errorf("validate query for %s: %w", specificationID, err)
	}
	if verrs != nil && len(verrs.Errors) > 0 {
		problems := make([]string, 0, len(verrs.Errors))
		for _, ve := range verrs.Errors {
			problems = append(problems, fmt.Sprintf("%s: %s", ve.FieldName, ve.Message))
		}
		return &ConfigurationError{Problems: problems}
	}
	if _, err := s.profiles.SaveProfile(ctx, item, ref.Namespace, ref.Name, p); err != nil {
		return fmt.Errorf("save query for %s: %w", specificationID, err)
	}
	return nil
}
