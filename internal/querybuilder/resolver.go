package querybuilder

import (
	"context"
	"fmt"

	"github.com/gyaneshwarpardhi/catalogue-explorer/internal/catalogue"
	"github.com/gyaneshwarpardhi/catalogue-explorer/internal/config"
	"github.com/gyaneshwarpardhi/catalogue-explorer/internal/metrics"
)

// Resolution is the input type chosen for a data type.
type Resolution struct {
	Type    string
	Options []Option
}

// TypeResolver maps catalogue data types onto editor input types.
type TypeResolver struct {
	profiles catalogue.ProfileClient
	profile  config.ProfileRef
}

// NewTypeResolver creates a resolver reading primitive mappings from profile.
func NewTypeResolver(profiles catalogue.ProfileClient, profile config.ProfileRef) *TypeResolver {
	return &TypeResolver{profiles: profiles, profile: profile}
}

// Resolve returns the resolution for dt, or nil when dt is not filterable.
// The first rule that applies wins:
//  1. a model reference to a Terminology or CodeSet is "terminology"
//  2. a type with enumeration values is "category"
//  3. a primitive type takes the value of its mapping profile
//
// A 404 from the profile lookup means "no mapping"; any other error is returned.
func (r *TypeResolver) Resolve(ctx context.Context, dt *catalogue.DataType) (*Resolution, error) {
	if dt == nil {
		return nil, nil
	}
	if dt.IsTerminologyReference() {
		return &Resolution{
			Type: TypeTerminology,
			Options: []Option{
				{Name: "modelResourceDomainType", Value: string(dt.ModelResourceDomainType)},
				{Name: "modelResourceId", Value: dt.ModelResourceID},
			},
		}, nil
	}
	if len(dt.EnumerationValues) > 0 {
		opts := make([]Option, 0, len(dt.EnumerationValues))
		for _, ev := range dt.EnumerationValues {
			opts = append(opts, Option{Name: ev.Key, Value: ev.Value})
		}
		return &Resolution{Type: TypeCategory, Options: opts}, nil
	}
	if dt.DomainType != catalogue.DomainPrimitiveType {
		return nil, nil
	}

	item := catalogue.ItemRef{DomainType: catalogue.DomainPrimitiveType, ID: dt.ID}
	p, err := r.profiles.GetProfile(ctx, item, r.profile.Namespace, r.profile.Name)
	if err != nil {
		if catalogue.IsNotFound(err) {
			metrics.ProfileLookups.WithLabelValues("unmapped").Inc()
			return nil, nil
		}
		metrics.ProfileLookups.WithLabelValues("error").Inc()
		return nil, fmt.Errorf("type profile for %s (%s): %w", dt.Label, dt.ID, err)
	}
	value := p.Value()
	if value == "" {
		metrics.ProfileLookups.WithLabelValues("unmapped").Inc()
		return nil, nil
	}
	metrics.ProfileLookups.WithLabelValues("mapped").Inc()
	return &Resolution{Type: value}, nil
}
