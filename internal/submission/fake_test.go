package submission

import (
	"context"
	"sync"

	"github.com/gyaneshwarpardhi/catalogue-explorer/internal/catalogue"
	"github.com/gyaneshwarpardhi/catalogue-explorer/internal/event"
)

// fakeSDE is an in-memory SDE.
type fakeSDE struct {
	mu          sync.Mutex
	projects    []catalogue.Project
	requests    map[string]*catalogue.DataRequest // by id
	attachments map[string][]catalogue.Attachment // by request id
	uploads     int
	submitted   int
	failSubmit  error
}

func newFakeSDE(projects ...catalogue.Project) *fakeSDE {
	return &fakeSDE{
		projects:    projects,
		requests:    make(map[string]*catalogue.DataRequest),
		attachments: make(map[string][]catalogue.Attachment),
	}
}

func (f *fakeSDE) ListProjects(context.Context) ([]catalogue.Project, error) {
	return f.projects, nil
}

func (f *fakeSDE) FindDataRequest(_ context.Context, specID string) (*catalogue.DataRequest, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	for _, dr := range f.requests {
		if dr.SpecificationID == specID {
			cp := *dr
			return &cp, nil
		}
	}
	return nil, nil
}

func (f *fakeSDE) CreateDataRequest(_ context.Context, projectID, specID string) (*catalogue.DataRequest, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	dr := &catalogue.DataRequest{
		ID: "dr-" + specID, ProjectID: projectID, SpecificationID: specID,
		Status: catalogue.DataRequestUnsubmitted,
	}
	f.requests[dr.ID] = dr
	cp := *dr
	return &cp, nil
}

func (f *fakeSDE) GetDataRequest(_ context.Context, id string) (*catalogue.DataRequest, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	dr, ok := f.requests[id]
	if !ok {
		return nil, &catalogue.HTTPError{StatusCode: 404}
	}
	cp := *dr
	return &cp, nil
}

func (f *fakeSDE) SubmitForApproval(_ context.Context, id string) (*catalogue.DataRequest, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.failSubmit != nil {
		return nil, f.failSubmit
	}
	dr := f.requests[id]
	dr.Status = catalogue.DataRequestSubmitted
	f.submitted++
	cp := *dr
	return &cp, nil
}

func (f *fakeSDE) ListAttachments(_ context.Context, id string) ([]catalogue.Attachment, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	return append([]catalogue.Attachment(nil), f.attachments[id]...), nil
}

func (f *fakeSDE) AttachFile(_ context.Context, id, fileID, attachmentType string) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.attachments[id] = append(f.attachments[id], catalogue.Attachment{
		ID: "att-" + fileID, FileID: fileID, AttachmentType: attachmentType,
	})
	return nil
}

func (f *fakeSDE) UploadFile(_ context.Context, file *catalogue.FileProperties, progress func(catalogue.UploadProgress)) (string, error) {
	f.mu.Lock()
	f.uploads++
	id := "file-" + file.FileName
	f.mu.Unlock()
	if progress != nil {
		size := int64(len(file.Content))
		progress(catalogue.UploadProgress{Loaded: size, Total: size})
		progress(catalogue.UploadProgress{Loaded: size, Total: size, Done: true, FileID: id})
	}
	return id, nil
}

// fakeExporter returns a small file named after the exporter.
type fakeExporter struct {
	mu      sync.Mutex
	exports []string
}

func (f *fakeExporter) ExportSpecification(_ context.Context, specID string, exp catalogue.Exporter) (*catalogue.FileProperties, error) {
	f.mu.Lock()
	f.exports = append(f.exports, exp.Name)
	f.mu.Unlock()
	return &catalogue.FileProperties{
		FileName:    specID + "." + exp.Name,
		ContentType: "text/plain",
		Content:     []byte("content"),
	}, nil
}

// recorder collects emitted events.
type recorder struct {
	mu     sync.Mutex
	events []*event.Event
}

func (r *recorder) Emit(ev *event.Event) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.events = append(r.events, ev)
}

func (r *recorder) kinds(kind event.Kind) []*event.Event {
	r.mu.Lock()
	defer r.mu.Unlock()
	var out []*event.Event
	for _, ev := range r.events {
		if ev.Kind == kind {
			out = append(out, ev)
		}
	}
	return out
}

// stubStep is a scripted step that records its calls.
type stubStep struct {
	name     string
	shape    []string
	required bool
	result   State
	runOut   State
	runErr   error
	reqErr   error
	caption  string

	isRequiredCalls int
	runCalls        int
	lastInput       State
}

func (s *stubStep) Name() string         { return s.name }
func (s *stubStep) InputShape() []string { return s.shape }

func (s *stubStep) IsRequired(_ context.Context, in State) (Requirement, error) {
	s.isRequiredCalls++
	s.lastInput = in
	if s.reqErr != nil {
		return Requirement{}, s.reqErr
	}
	return Requirement{Required: s.required, Result: s.result}, nil
}

func (s *stubStep) Run(_ context.Context, in State) (State, error) {
	s.runCalls++
	s.lastInput = in
	return s.runOut, s.runErr
}

type captionedStub struct{ *stubStep }

func (c captionedStub) Caption() string { return c.caption }
