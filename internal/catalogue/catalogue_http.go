package catalogue

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"strings"
	"time"
)

// HTTPCatalogue talks to the metadata catalogue REST API.
type HTTPCatalogue struct {
	rest restClient
}

var (
	_ ProfileClient       = (*HTTPCatalogue)(nil)
	_ SpecificationClient = (*HTTPCatalogue)(nil)
	_ PreferencesClient   = (*HTTPCatalogue)(nil)
)

// NewHTTPCatalogue creates a catalogue client rooted at baseURL.
func NewHTTPCatalogue(baseURL, apiKey string, timeout time.Duration) *HTTPCatalogue {
	return &HTTPCatalogue{rest: newRestClient(baseURL, apiKey, timeout)}
}

func (c *HTTPCatalogue) profileURL(item ItemRef, namespace, name string, suffix ...string) string {
	segs := append([]string{item.DomainType.pathSegment(), item.ID, "profile", namespace, name}, suffix...)
	return c.rest.endpoint(segs...)
}

func (c *HTTPCatalogue) GetProfile(ctx context.Context, item ItemRef, namespace, name string) (*Profile, error) {
	var p Profile
	if err := c.rest.doJSON(ctx, http.MethodGet, c.profileURL(item, namespace, name), nil, &p); err != nil {
		return nil, err
	}
	return &p, nil
}

func (c *HTTPCatalogue) ValidateProfile(ctx context.Context, item ItemRef, namespace, name string, p *Profile) (*ValidationErrorList, error) {
	var out ValidationErrorList
	if err := c.rest.doJSON(ctx, http.MethodPost, c.profileURL(item, namespace, name, "validate"), p, &out); err != nil {
		return nil, err
	}
	return &out, nil
}

func (c *HTTPCatalogue) SaveProfile(ctx context.Context, item ItemRef, namespace, name string, p *Profile) (*Profile, error) {
	var out Profile
	if err := c.rest.doJSON(ctx, http.MethodPost, c.profileURL(item, namespace, name), p, &out); err != nil {
		return nil, err
	}
	return &out, nil
}

func (c *HTTPCatalogue) ExportSpecification(ctx context.Context, specificationID string, exporter Exporter) (*FileProperties, error) {
	u := c.rest.endpoint("dataModels", specificationID, "export", exporter.Namespace, exporter.Name, exporter.Version)
	data, contentType, err := c.rest.download(ctx, u)
	if err != nil {
		return nil, fmt.Errorf("export specification %s with %s: %w", specificationID, exporter.Name, err)
	}
	return &FileProperties{
		FileName:    fmt.Sprintf("%s.%s", specificationID, extensionFor(contentType)),
		ContentType: contentType,
		Content:     data,
	}, nil
}

func (c *HTTPCatalogue) GetUserPreferences(ctx context.Context, userID string) (json.RawMessage, error) {
	var raw json.RawMessage
	if err := c.rest.doJSON(ctx, http.MethodGet, c.rest.endpoint("catalogueUsers", userID, "userPreferences"), nil, &raw); err != nil {
		return nil, err
	}
	return raw, nil
}

func (c *HTTPCatalogue) SaveUserPreferences(ctx context.Context, userID string, prefs json.RawMessage) error {
	return c.rest.doJSON(ctx, http.MethodPut, c.rest.endpoint("catalogueUsers", userID, "userPreferences"), prefs, nil)
}

func extensionFor(contentType string) string {
	mediaType, _, _ := strings.Cut(contentType, ";")
	switch strings.TrimSpace(mediaType) {
	case "application/pdf":
		return "pdf"
	case "application/sql", "text/x-sql", "application/x-sql":
		return "sql"
	case "application/json":
		return "json"
	}
	return "bin"
}
