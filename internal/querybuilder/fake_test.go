package querybuilder

import (
	"context"
	"net/http"
	"sync"

	"github.com/gyaneshwarpardhi/catalogue-explorer/internal/catalogue"
	"github.com/gyaneshwarpardhi/catalogue-explorer/internal/config"
)

var testConf = config.QueryBuilderConf{
	PrimitiveTypeProfile: config.ProfileRef{Namespace: "ns.qb", Name: "TypeProfile"},
	CoreTableProfile:     config.ProfileRef{Namespace: "ns.qb", Name: "CoreTable"},
	QueryProfile:         config.ProfileRef{Namespace: "ns.qb", Name: "Query"},
	LookupConcurrency:    4,
}

// fakeProfiles is an in-memory catalogue.ProfileClient. Unknown profiles
// answer 404.
type fakeProfiles struct {
	mu         sync.Mutex
	profiles   map[string]*catalogue.Profile
	errs       map[string]error
	validation map[string]*catalogue.ValidationErrorList
	gets       int
}

func newFakeProfiles() *fakeProfiles {
	return &fakeProfiles{
		profiles:   make(map[string]*catalogue.Profile),
		errs:       make(map[string]error),
		validation: make(map[string]*catalogue.ValidationErrorList),
	}
}

func profileKey(item catalogue.ItemRef, name string) string {
	return string(item.DomainType) + "/" + item.ID + "/" + name
}

func valueProfile(v string) *catalogue.Profile {
	p := &catalogue.Profile{}
	p.SetValue("value", v)
	return p
}

func (f *fakeProfiles) set(item catalogue.ItemRef, name, value string) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.profiles[profileKey(item, name)] = valueProfile(value)
}

func (f *fakeProfiles) fail(item catalogue.ItemRef, name string, err error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.errs[profileKey(item, name)] = err
}

func (f *fakeProfiles) GetProfile(_ context.Context, item catalogue.ItemRef, _, name string) (*catalogue.Profile, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.gets++
	k := profileKey(item, name)
	if err, ok := f.errs[k]; ok {
		return nil, err
	}
	if p, ok := f.profiles[k]; ok {
		return p, nil
	}
	return nil, &catalogue.HTTPError{StatusCode: http.StatusNotFound, Method: http.MethodGet, URL: k}
}

func (f *fakeProfiles) ValidateProfile(_ context.Context, item catalogue.ItemRef, _, name string, _ *catalogue.Profile) (*catalogue.ValidationErrorList, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if v, ok := f.validation[profileKey(item, name)]; ok {
		return v, nil
	}
	return &catalogue.ValidationErrorList{}, nil
}

func (f *fakeProfiles) SaveProfile(_ context.Context, item catalogue.ItemRef, _, name string, p *catalogue.Profile) (*catalogue.Profile, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.profiles[profileKey(item, name)] = p
	return p, nil
}

func primitive(id, label string) *catalogue.DataType {
	return &catalogue.DataType{ID: id, Label: label, DomainType: catalogue.DomainPrimitiveType}
}

func element(schema, class, label string, dt *catalogue.DataType) catalogue.DataElement {
	return catalogue.DataElement{
		ID:    schema + "-" + class + "-" + label,
		Label: label,
		Model: "dm-1",
		Breadcrumbs: []catalogue.Breadcrumb{
			{ID: "dm-1", Label: "Model", DomainType: catalogue.DomainDataModel},
			{ID: schema, Label: schema, DomainType: catalogue.DomainDataClass},
			{ID: class, Label: class, DomainType: catalogue.DomainDataClass},
		},
		DataType: dt,
	}
}

var dataModel = catalogue.ItemRef{DomainType: catalogue.DomainDataModel, ID: "dm-1"}
