package querybuilder

import (
	"context"
	"fmt"
	"sort"
	"strings"
	"sync/atomic"
	"time"

	"golang.org/x/sync/errgroup"

	"github.com/gyaneshwarpardhi/catalogue-explorer/internal/catalogue"
	"github.com/gyaneshwarpardhi/catalogue-explorer/internal/config"
	"github.com/gyaneshwarpardhi/catalogue-explorer/internal/metrics"
)

// ConfigurationError aggregates core-table problems that prevent a build.
type ConfigurationError struct {
	Problems []string
}

func (e *ConfigurationError) Error() string {
	return fmt.Sprintf("query builder configuration is invalid:\n  - %s", strings.Join(e.Problems, "\n  - "))
}

// BuildRequest is the input of a configuration build.
type BuildRequest struct {
	DataModel    catalogue.ItemRef       `json:"dataModel"`
	DataElements []catalogue.DataElement `json:"dataElements"`
	Query        *RuleSet                `json:"query,omitempty"`
}

// Builder assembles QueryConfigurations from catalogue metadata.
type Builder struct {
	profiles catalogue.ProfileClient
	conf     atomic.Pointer[config.QueryBuilderConf]
}

// NewBuilder creates a Builder.
func NewBuilder(profiles catalogue.ProfileClient, conf config.QueryBuilderConf) *Builder {
	b := &Builder{profiles: profiles}
	b.conf.Store(&conf)
	return b
}

// SetConfig swaps the settings used by subsequent builds (used on hot-reload).
func (b *Builder) SetConfig(conf config.QueryBuilderConf) {
	b.conf.Store(&conf)
}

// Config returns the current settings.
func (b *Builder) Config() config.QueryBuilderConf {
	return *b.conf.Load()
}

// Build resolves every element's type and the data model's core table
// concurrently, then assembles the field and entity maps. Any lookup error
// other than a missing mapping aborts the whole build.
func (b *Builder) Build(ctx context.Context, req BuildRequest) (*QueryConfiguration, error) {
	start := time.Now()
	conf := b.Config()
	resolver := NewTypeResolver(b.profiles, conf.PrimitiveTypeProfile)
	model := dataModelOf(req)

	resolutions := make([]*Resolution, len(req.DataElements))
	var (
		coreEntity string
		problems   []string
	)

	g, gctx := errgroup.WithContext(ctx)
	if conf.LookupConcurrency > 0 {
		g.SetLimit(conf.LookupConcurrency + 1)
	}
	g.Go(func() error {
		name, probs, err := b.coreTable(gctx, model, conf.CoreTableProfile)
		if err != nil {
			return err
		}
		coreEntity, problems = name, probs
		return nil
	})
	for i, el := range req.DataElements {
		g.Go(func() error {
			res, err := resolver.Resolve(gctx, el.DataType)
			if err != nil {
				return fmt.Errorf("data element %s: %w", el.Label, err)
			}
			resolutions[i] = res
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		metrics.ConfigBuilds.WithLabelValues("error").Inc()
		return nil, err
	}
	if len(problems) > 0 {
		metrics.ConfigBuilds.WithLabelValues("invalid").Inc()
		return nil, &ConfigurationError{Problems: problems}
	}

	fields := buildFields(req.DataElements, resolutions, req.Query)
	out := &QueryConfiguration{
		DataElementSearchResult:       req.DataElements,
		DataSpecificationQueryPayload: req.Query,
		Config: Config{
			Fields:         fields,
			Entities:       BuildEntities(fields),
			CoreEntityName: coreEntity,
		},
	}

	metrics.ConfigBuilds.WithLabelValues("ok").Inc()
	metrics.ConfigBuildDuration.Observe(float64(time.Since(start).Milliseconds()))
	return out, nil
}

// coreTable reads and validates the data model's core table profile. Missing
// profiles and validation failures are returned as problems, not errors.
func (b *Builder) coreTable(ctx context.Context, model catalogue.ItemRef, ref config.ProfileRef) (string, []string, error) {
	if model.ID == "" {
		return "", []string{"No data model was given to read the core table from"}, nil
	}
	p, err := b.profiles.GetProfile(ctx, model, ref.Namespace, ref.Name)
	if err != nil {
		if catalogue.IsNotFound(err) {
			return "", []string{fmt.Sprintf("No core table profile (%s) is configured for data model %s", ref.Name, model.ID)}, nil
		}
		return "", nil, fmt.Errorf("core table profile for %s: %w", model.ID, err)
	}
	verrs, err := b.profiles.ValidateProfile(ctx, model, ref.Namespace, ref.Name, p)
	if err != nil {
		return "", nil, fmt.Errorf("validate core table profile for %s: %w", model.ID, err)
	}
	var problems []string
	if verrs != nil {
		for _, ve := range verrs.Errors {
			problems = append(problems, fmt.Sprintf("Core table profile %s: %s", ve.FieldName, ve.Message))
		}
	}
	return p.Value(), problems, nil
}

// buildFields keys every resolvable element by "schema.class.label". Elements
// without a resolution are kept as strings only when the existing query
// already references them.
func buildFields(elements []catalogue.DataElement, resolutions []*Resolution, query *RuleSet) map[string]*Field {
	fields := make(map[string]*Field, len(elements))
	for i, el := range elements {
		key := FieldKey(el)
		res := resolutions[i]
		if res == nil {
			if !query.ReferencesField(key) {
				continue
			}
			res = &Resolution{Type: TypeString}
		}
		fields[key] = &Field{
			Name:         el.Label,
			Value:        key,
			Type:         res.Type,
			Entity:       EntityPath(el.Breadcrumbs),
			Options:      res.Options,
			DefaultValue: DefaultValueFor(res.Type),
		}
	}
	return fields
}

// BuildEntities derives the distinct, sorted entity set referenced by fields.
// Each entity's default field is its lexicographically first field key.
func BuildEntities(fields map[string]*Field) map[string]*Entity {
	keys := make([]string, 0, len(fields))
	for k := range fields {
		keys = append(keys, k)
	}
	sort.Strings(keys)

	entities := make(map[string]*Entity)
	for _, k := range keys {
		f := fields[k]
		if f.Entity == "" {
			continue
		}
		if _, ok := entities[f.Entity]; ok {
			continue
		}
		entities[f.Entity] = &Entity{
			Name:         EntityDisplayName(f.Entity),
			Value:        f.Entity,
			DefaultField: k,
		}
	}
	return entities
}

// SortedEntities returns entity values in lexicographic order.
func SortedEntities(entities map[string]*Entity) []string {
	out := make([]string, 0, len(entities))
	for v := range entities {
		out = append(out, v)
	}
	sort.Strings(out)
	return out
}

// dataModelOf returns the explicit data model or infers it from the elements.
func dataModelOf(req BuildRequest) catalogue.ItemRef {
	if req.DataModel.ID != "" {
		if req.DataModel.DomainType == "" {
			req.DataModel.DomainType = catalogue.DomainDataModel
		}
		return req.DataModel
	}
	for _, el := range req.DataElements {
		if el.Model != "" {
			return catalogue.ItemRef{DomainType: catalogue.DomainDataModel, ID: el.Model}
		}
		for _, c := range el.Breadcrumbs {
			if c.DomainType == catalogue.DomainDataModel && c.ID != "" {
				return catalogue.ItemRef{DomainType: catalogue.DomainDataModel, ID: c.ID}
			}
		}
	}
	return catalogue.ItemRef{DomainType: catalogue.DomainDataModel}
}
