package api

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/gyaneshwarpardhi/catalogue-explorer/internal/bookmark"
	"github.com/gyaneshwarpardhi/catalogue-explorer/internal/catalogue"
	"github.com/gyaneshwarpardhi/catalogue-explorer/internal/config"
	"github.com/gyaneshwarpardhi/catalogue-explorer/internal/querybuilder"
	"github.com/gyaneshwarpardhi/catalogue-explorer/internal/submission"
)

const testYAML = `
version: v1
catalogue: {base_url: "http://catalogue.test/api"}
sde: {base_url: "http://sde.test/api"}
query_builder:
  primitive_type_profile: {namespace: ns, name: TypeProfile}
  core_table_profile: {namespace: ns, name: CoreTable}
  query_profile: {namespace: ns, name: Query}
submission:
  workers: 1
  queue_depth: 4
  steps: [CreateDataRequest]
`

// memCatalogue fakes every catalogue collaborator the API needs.
type memCatalogue struct {
	mu       sync.Mutex
	profiles map[string]*catalogue.Profile
	prefs    map[string]json.RawMessage
	projects []catalogue.Project
	requests map[string]*catalogue.DataRequest
}

func newMemCatalogue() *memCatalogue {
	return &memCatalogue{
		profiles: make(map[string]*catalogue.Profile),
		prefs:    make(map[string]json.RawMessage),
		requests: make(map[string]*catalogue.DataRequest),
	}
}

func key(item catalogue.ItemRef, name string) string {
	return string(item.DomainType) + "/" + item.ID + "/" + name
}

func (m *memCatalogue) setProfile(item catalogue.ItemRef, name, value string) {
	p := &catalogue.Profile{}
	p.SetValue("value", value)
	m.profiles[key(item, name)] = p
}

func (m *memCatalogue) GetProfile(_ context.Context, item catalogue.ItemRef, _, name string) (*catalogue.Profile, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if p, ok := m.profiles[key(item, name)]; ok {
		return p, nil
	}
	return nil, &catalogue.HTTPError{StatusCode: http.StatusNotFound}
}

func (m *memCatalogue) ValidateProfile(context.Context, catalogue.ItemRef, string, string, *catalogue.Profile) (*catalogue.ValidationErrorList, error) {
	return &catalogue.ValidationErrorList{}, nil
}

func (m *memCatalogue) SaveProfile(_ context.Context, item catalogue.ItemRef, _, name string, p *catalogue.Profile) (*catalogue.Profile, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.profiles[key(item, name)] = p
	return p, nil
}

func (m *memCatalogue) GetUserPreferences(_ context.Context, userID string) (json.RawMessage, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.prefs[userID], nil
}

func (m *memCatalogue) SaveUserPreferences(_ context.Context, userID string, prefs json.RawMessage) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.prefs[userID] = prefs
	return nil
}

func (m *memCatalogue) ListProjects(context.Context) ([]catalogue.Project, error) {
	return m.projects, nil
}

func (m *memCatalogue) FindDataRequest(_ context.Context, specID string) (*catalogue.DataRequest, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.requests[specID], nil
}

func (m *memCatalogue) CreateDataRequest(_ context.Context, projectID, specID string) (*catalogue.DataRequest, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	dr := &catalogue.DataRequest{ID: "dr-1", ProjectID: projectID, SpecificationID: specID, Status: catalogue.DataRequestUnsubmitted}
	m.requests[specID] = dr
	return dr, nil
}

func (m *memCatalogue) GetDataRequest(context.Context, string) (*catalogue.DataRequest, error) {
	return nil, &catalogue.HTTPError{StatusCode: http.StatusNotFound}
}

func (m *memCatalogue) SubmitForApproval(context.Context, string) (*catalogue.DataRequest, error) {
	return nil, &catalogue.HTTPError{StatusCode: http.StatusNotImplemented}
}

func (m *memCatalogue) ListAttachments(context.Context, string) ([]catalogue.Attachment, error) {
	return nil, nil
}

func (m *memCatalogue) AttachFile(context.Context, string, string, string) error { return nil }

func (m *memCatalogue) UploadFile(context.Context, *catalogue.FileProperties, func(catalogue.UploadProgress)) (string, error) {
	return "file-1", nil
}

func (m *memCatalogue) ExportSpecification(context.Context, string, catalogue.Exporter) (*catalogue.FileProperties, error) {
	return &catalogue.FileProperties{FileName: "spec.sql"}, nil
}

type testServer struct {
	*httptest.Server
	cat        *memCatalogue
	loader     *config.Loader
	configPath string
}

func newTestServer(t *testing.T) *testServer {
	t.Helper()
	path := filepath.Join(t.TempDir(), "explorer.yaml")
	require.NoError(t, os.WriteFile(path, []byte(testYAML), 0o600))
	loader, err := config.NewLoader(path)
	require.NoError(t, err)
	cfg := loader.Config()
	require.NoError(t, config.Validate(cfg))

	cat := newMemCatalogue()
	builder := querybuilder.NewBuilder(cat, cfg.QueryBuilder)
	queries := querybuilder.NewQueryStore(cat, func() config.ProfileRef { return builder.Config().QueryProfile })

	reg := submission.NewRegistry()
	submission.RegisterDefaults(reg, cat, cat, cfg.Submission)
	steps, err := reg.Sequence(cfg.Submission.Steps)
	require.NoError(t, err)

	ctx, cancel := context.WithCancel(context.Background())
	subs := submission.NewService(ctx, submission.NewPipeline(steps, cfg.Submission.DefaultErrorMessage), cfg.Submission)
	t.Cleanup(func() {
		cancel()
		subs.Shutdown()
	})

	srv := httptest.NewServer(New(Deps{
		Loader:      loader,
		Builder:     builder,
		Queries:     queries,
		Bookmarks:   bookmark.NewService(cat),
		Submissions: subs,
	}))
	t.Cleanup(srv.Close)
	return &testServer{Server: srv, cat: cat, loader: loader, configPath: path}
}

func (s *testServer) do(t *testing.T, method, path, body string) (*http.Response, map[string]interface{}) {
	t.Helper()
	req, err := http.NewRequest(method, s.URL+path, strings.NewReader(body))
	require.NoError(t, err)
	resp, err := http.DefaultClient.Do(req)
	require.NoError(t, err)
	defer resp.Body.Close()
	var out map[string]interface{}
	_ = json.NewDecoder(resp.Body).Decode(&out)
	return resp, out
}

func (s *testServer) doList(t *testing.T, method, path, body string) []interface{} {
	t.Helper()
	req, err := http.NewRequest(method, s.URL+path, strings.NewReader(body))
	require.NoError(t, err)
	resp, err := http.DefaultClient.Do(req)
	require.NoError(t, err)
	defer resp.Body.Close()
	require.Equal(t, http.StatusOK, resp.StatusCode)
	var out []interface{}
	require.NoError(t, json.NewDecoder(resp.Body).Decode(&out))
	return out
}

var dataModel = catalogue.ItemRef{DomainType: catalogue.DomainDataModel, ID: "dm-1"}

const configBody = `{
  "dataModel": {"domainType": "DataModel", "id": "dm-1"},
  "dataElements": [{
    "id": "de-1",
    "label": "age",
    "model": "dm-1",
    "breadcrumbs": [
      {"id": "dm-1", "label": "Model", "domainType": "DataModel"},
      {"id": "s", "label": "S", "domainType": "DataClass"},
      {"id": "a", "label": "A", "domainType": "DataClass"}
    ],
    "dataType": {"id": "int", "label": "int", "domainType": "PrimitiveType"}
  }]
}`

func TestBuildConfig(t *testing.T) {
	s := newTestServer(t)
	s.cat.setProfile(catalogue.ItemRef{DomainType: catalogue.DomainPrimitiveType, ID: "int"}, "TypeProfile", "number")
	s.cat.setProfile(dataModel, "CoreTable", "patients")

	resp, out := s.do(t, http.MethodPost, "/v1/querybuilder/config", configBody)
	require.Equal(t, http.StatusOK, resp.StatusCode, out)

	cfg := out["config"].(map[string]interface{})
	assert.Equal(t, "patients", cfg["coreEntityName"])
	field := cfg["fields"].(map[string]interface{})["S.A.age"].(map[string]interface{})
	assert.Equal(t, "number", field["type"])
	assert.Equal(t, float64(0), field["defaultValue"])
	entity := cfg["entities"].(map[string]interface{})["S.A"].(map[string]interface{})
	assert.Equal(t, "S > A", entity["name"])
}

func TestBuildConfig_MissingCoreTable(t *testing.T) {
	s := newTestServer(t)
	resp, out := s.do(t, http.MethodPost, "/v1/querybuilder/config", configBody)
	assert.Equal(t, http.StatusUnprocessableEntity, resp.StatusCode)
	assert.Len(t, out["problems"], 1)
}

func TestValidateQuery(t *testing.T) {
	s := newTestServer(t)
	body := `{
	  "config": {"fields": {"S.A.age": {"name": "age", "type": "number", "entity": "S.A"}}, "entities": {}},
	  "query": {"condition": "and", "rules": [{"condition": "and", "entity": "S.A", "rules": []}]}
	}`
	resp, out := s.do(t, http.MethodPost, "/v1/querybuilder/validate", body)
	require.Equal(t, http.StatusOK, resp.StatusCode)
	assert.Equal(t, false, out["valid"])
	assert.Equal(t, []interface{}{"Empty rulesets are not allowed"}, out["problems"])

	resp, _ = s.do(t, http.MethodPost, "/v1/querybuilder/validate", `{"query": {"condition": "and", "rules": []}}`)
	assert.Equal(t, http.StatusBadRequest, resp.StatusCode)
}

func TestValidateQuery_NullFieldEntry(t *testing.T) {
	s := newTestServer(t)
	for _, path := range []string{"/v1/querybuilder/validate", "/v1/querybuilder/edit"} {
		resp, out := s.do(t, http.MethodPost, path,
			`{"config": {"fields": {"S.A.age": null}, "entities": {}}, "query": {"condition": "and", "rules": []}, "action": {"type": "addRule", "path": []}}`)
		assert.Equal(t, http.StatusBadRequest, resp.StatusCode, path)
		assert.Contains(t, out["error"], `field "S.A.age" is null`, path)
	}
}

func TestOperators(t *testing.T) {
	s := newTestServer(t)
	resp, out := s.do(t, http.MethodPost, "/v1/querybuilder/operators",
		`{"field": {"name": "sex", "type": "category", "nullable": true}}`)
	require.Equal(t, http.StatusOK, resp.StatusCode)
	assert.Equal(t, []interface{}{"=", "!=", "in", "not in", "is null", "is not null"}, out["operators"])
	assert.Equal(t, "=", out["defaultOperator"])
	inputTypes := out["inputTypes"].(map[string]interface{})
	assert.Equal(t, "multiselect", inputTypes["in"])
	assert.Equal(t, "", inputTypes["is null"])
}

func TestEditQuery(t *testing.T) {
	s := newTestServer(t)
	cfg := `"config": {
	  "fields": {
	    "S.A.age": {"name": "age", "type": "number", "entity": "S.A", "defaultValue": 0},
	    "S.B.sex": {"name": "sex", "type": "category", "entity": "S.B"}
	  },
	  "entities": {"S.A": {"name": "S > A", "defaultField": "S.A.age"}, "S.B": {"name": "S > B", "defaultField": "S.B.sex"}},
	  "coreEntityName": "S.A"
	}`

	resp, out := s.do(t, http.MethodPost, "/v1/querybuilder/edit",
		`{`+cfg+`, "action": {"type": "addRule", "path": []}}`)
	require.Equal(t, http.StatusOK, resp.StatusCode, out)
	query := out["query"].(map[string]interface{})
	assert.Equal(t, "S.A", query["entity"])
	rules := query["rules"].([]interface{})
	require.Len(t, rules, 1)
	assert.Equal(t, "S.A.age", rules[0].(map[string]interface{})["field"])
	assert.Equal(t, "S.A.age = 0", out["summary"])
	assert.Equal(t, true, out["canAddRuleSet"])

	resp, out = s.do(t, http.MethodPost, "/v1/querybuilder/edit",
		`{`+cfg+`, "query": {"condition": "and", "entity": "S.A", "rules": []}, "action": {"type": "addRuleSet", "path": [], "entity": "S.B"}}`)
	require.Equal(t, http.StatusOK, resp.StatusCode, out)
	nested := out["query"].(map[string]interface{})["rules"].([]interface{})[0].(map[string]interface{})
	assert.Equal(t, "S.B", nested["entity"])
	assert.Equal(t, false, out["canAddRuleSet"])

	resp, _ = s.do(t, http.MethodPost, "/v1/querybuilder/edit",
		`{`+cfg+`, "action": {"type": "changeField", "path": [3]}}`)
	assert.Equal(t, http.StatusBadRequest, resp.StatusCode)
}

func TestPreviewQuery(t *testing.T) {
	s := newTestServer(t)
	body := `{
	  "query": {"condition": "or", "rules": [
	    {"field": "S.A.age", "operator": ">", "value": 18},
	    {"field": "S.B.sex", "operator": "in", "value": ["F"]}
	  ]},
	  "records": [{"S.A.age": 20, "S.B.sex": "M"}, {"S.A.age": 2, "S.B.sex": "M"}, {"S.A.age": 2, "S.B.sex": "F"}]
	}`
	resp, out := s.do(t, http.MethodPost, "/v1/querybuilder/preview", body)
	require.Equal(t, http.StatusOK, resp.StatusCode, out)
	assert.Equal(t, `S.A.age > 18 OR S.B.sex in ["F"]`, out["expression"])
	assert.Equal(t, []interface{}{true, false, true}, out["matches"])
}

func TestPreviewExpression(t *testing.T) {
	s := newTestServer(t)
	body := `{
	  "expression": "S.A.age > 18 OR S.B.sex in [\"F\"]",
	  "records": [{"S": {"A": {"age": 20}, "B": {"sex": "M"}}}, {"S.A.age": 2, "S.B.sex": "M"}, {"S.A.age": 2, "S.B.sex": "F"}]
	}`
	resp, out := s.do(t, http.MethodPost, "/v1/querybuilder/preview", body)
	require.Equal(t, http.StatusOK, resp.StatusCode, out)
	assert.Equal(t, `S.A.age > 18 OR S.B.sex in ["F"]`, out["expression"])
	assert.Equal(t, []interface{}{true, false, true}, out["matches"])

	tests := []struct {
		name string
		body string
	}{
		{"malformed", `{"expression": "S.A.age >", "records": []}`},
		{"both forms", `{"expression": "S.A.age > 1", "query": {"condition": "and", "rules": []}, "records": []}`},
	}
	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			resp, _ := s.do(t, http.MethodPost, "/v1/querybuilder/preview", tc.body)
			assert.Equal(t, http.StatusBadRequest, resp.StatusCode)
		})
	}
}

func TestSpecificationQueryRoundTrip(t *testing.T) {
	s := newTestServer(t)

	resp, _ := s.do(t, http.MethodGet, "/v1/specifications/spec-1/query", "")
	assert.Equal(t, http.StatusNotFound, resp.StatusCode)

	resp, out := s.do(t, http.MethodPut, "/v1/specifications/spec-1/query",
		`{"condition": "and", "entity": "S.A", "rules": [{"field": "S.A.age", "operator": ">=", "value": 18}]}`)
	require.Equal(t, http.StatusOK, resp.StatusCode, out)
	assert.Equal(t, "S.A.age >= 18", out["summary"])

	resp, out = s.do(t, http.MethodGet, "/v1/specifications/spec-1/query", "")
	require.Equal(t, http.StatusOK, resp.StatusCode)
	assert.Equal(t, "S.A.age >= 18", out["summary"])
}

func TestBookmarks(t *testing.T) {
	s := newTestServer(t)
	b := `{"id": "dm-1", "path": "dm:Model", "label": "Model", "domainType": "DataModel"}`

	assert.Empty(t, s.doList(t, http.MethodGet, "/v1/users/u1/bookmarks", ""))
	assert.Len(t, s.doList(t, http.MethodPost, "/v1/users/u1/bookmarks", b), 1)
	assert.Len(t, s.doList(t, http.MethodPost, "/v1/users/u1/bookmarks", b), 1)
	assert.Empty(t, s.doList(t, http.MethodDelete, "/v1/users/u1/bookmarks/dm-1", ""))
	assert.Empty(t, s.doList(t, http.MethodDelete, "/v1/users/u1/bookmarks/dm-1", ""))

	resp, _ := s.do(t, http.MethodPost, "/v1/users/u1/bookmarks", `{"label": "no key"}`)
	assert.Equal(t, http.StatusBadRequest, resp.StatusCode)
}

func TestSubmission(t *testing.T) {
	s := newTestServer(t)
	s.cat.projects = []catalogue.Project{{ID: "p1"}}

	resp, out := s.do(t, http.MethodPost, "/v1/specifications/spec-1/submissions", "")
	require.Equal(t, http.StatusAccepted, resp.StatusCode, out)
	jobID := out["jobId"].(string)

	require.Eventually(t, func() bool {
		_, job := s.do(t, http.MethodGet, "/v1/submissions/"+jobID, "")
		return job["status"] == string(submission.JobCompleted)
	}, 2*time.Second, 10*time.Millisecond)

	_, job := s.do(t, http.MethodGet, "/v1/submissions/"+jobID, "")
	state := job["state"].(map[string]interface{})
	assert.Equal(t, "dr-1", state["dataRequestId"])
	assert.Equal(t, false, job["loading"])

	resp, _ = s.do(t, http.MethodGet, "/v1/submissions/unknown", "")
	assert.Equal(t, http.StatusNotFound, resp.StatusCode)
}

func TestHealthAndReload(t *testing.T) {
	s := newTestServer(t)

	resp, out := s.do(t, http.MethodGet, "/healthz", "")
	assert.Equal(t, http.StatusOK, resp.StatusCode)
	assert.Equal(t, "ok", out["status"])

	resp, out = s.do(t, http.MethodGet, "/readyz", "")
	assert.Equal(t, http.StatusOK, resp.StatusCode)
	assert.Equal(t, "ready", out["status"])

	resp, out = s.do(t, http.MethodPost, "/v1/config/reload", "")
	assert.Equal(t, http.StatusOK, resp.StatusCode)
	assert.Equal(t, true, out["reloaded"])
}

func TestReload_InvalidConfigKeepsPrevious(t *testing.T) {
	s := newTestServer(t)
	before := s.loader.Config()

	invalid := strings.Replace(testYAML, `"http://sde.test/api"`, `"not a url"`, 1)
	require.NoError(t, os.WriteFile(s.configPath, []byte(invalid), 0o600))

	resp, out := s.do(t, http.MethodPost, "/v1/config/reload", "")
	assert.Equal(t, http.StatusUnprocessableEntity, resp.StatusCode)
	assert.Contains(t, out["error"], "not an absolute URL")
	assert.Same(t, before, s.loader.Config())
}
