package submission

import (
	"context"
	"fmt"
	"strconv"

	"github.com/gyaneshwarpardhi/catalogue-explorer/internal/catalogue"
	"github.com/gyaneshwarpardhi/catalogue-explorer/internal/config"
	"github.com/gyaneshwarpardhi/catalogue-explorer/internal/event"
)

// Step names, in their default order.
const (
	StepCreateDataRequest = "CreateDataRequest"
	StepGenerateSQLFile   = "GenerateSqlFile"
	StepAttachSQLFile     = "AttachSqlFile"
	StepGeneratePDFFile   = "GeneratePdfFile"
	StepAttachPDFFile     = "AttachPdfFile"
	StepSubmitDataRequest = "SubmitDataRequest"
)

// Attachment types used on data requests.
const (
	AttachmentSQL = "sql"
	AttachmentPDF = "pdf"
)

// RegisterDefaults registers the six SDE steps on r.
func RegisterDefaults(r *Registry, spec catalogue.SpecificationClient, sde catalogue.SDEClient, conf config.SubmissionConf) {
	r.Register(&createDataRequest{sde: sde})
	r.Register(&generateFile{
		name: StepGenerateSQLFile, attachmentType: AttachmentSQL, caption: "Generating SQL file...",
		exporter: exporterOf(conf.SQLExporter), spec: spec, sde: sde,
	})
	r.Register(&attachFile{
		name: StepAttachSQLFile, attachmentType: AttachmentSQL, caption: "Attaching SQL file...",
		resultKey: KeySQLFileID, sde: sde,
	})
	r.Register(&generateFile{
		name: StepGeneratePDFFile, attachmentType: AttachmentPDF, caption: "Generating PDF file...",
		exporter: exporterOf(conf.PDFExporter), spec: spec, sde: sde,
	})
	r.Register(&attachFile{
		name: StepAttachPDFFile, attachmentType: AttachmentPDF, caption: "Attaching PDF file...",
		resultKey: KeyPDFFileID, sde: sde,
	})
	r.Register(&submitDataRequest{sde: sde})
}

func exporterOf(ref config.ExporterRef) catalogue.Exporter {
	return catalogue.Exporter{Namespace: ref.Namespace, Name: ref.Name, Version: ref.Version}
}

// -----------------------------------------------------------------------
// CreateDataRequest
// -----------------------------------------------------------------------

type createDataRequest struct {
	sde catalogue.SDEClient
}

func (*createDataRequest) Name() string { return StepCreateDataRequest }

func (*createDataRequest) InputShape() []string {
	return []string{KeySpecificationID, KeyProjectID}
}

func (s *createDataRequest) IsRequired(ctx context.Context, in State) (Requirement, error) {
	specID, err := requireString(in, s.Name(), "IsRequired", KeySpecificationID)
	if err != nil {
		return Requirement{}, err
	}
	existing, err := s.sde.FindDataRequest(ctx, specID)
	if err != nil {
		return Requirement{}, fmt.Errorf("find data request for %s: %w", specID, err)
	}
	if existing == nil {
		return Requirement{Required: true}, nil
	}
	return Requirement{Result: requestState(existing)}, nil
}

func (s *createDataRequest) Run(ctx context.Context, in State) (State, error) {
	specID, err := requireString(in, s.Name(), "Run", KeySpecificationID)
	if err != nil {
		return nil, err
	}
	projectID, _ := in[KeyProjectID].(string)
	project, err := selectProject(ctx, s.sde, projectID)
	if err != nil {
		return nil, err
	}
	dr, err := s.sde.CreateDataRequest(ctx, project.ID, specID)
	if err != nil {
		return nil, fmt.Errorf("create data request in project %s: %w", project.ID, err)
	}
	return requestState(dr), nil
}

func requestState(dr *catalogue.DataRequest) State {
	out := State{
		KeyDataRequestID:     dr.ID,
		KeyDataRequestStatus: dr.Status,
	}
	if dr.ProjectID != "" {
		out[KeyProjectID] = dr.ProjectID
	}
	return out
}

// selectProject picks the project a new data request is raised in: the
// requested one when given, otherwise the user's only project.
func selectProject(ctx context.Context, sde catalogue.SDEClient, projectID string) (catalogue.Project, error) {
	projects, err := sde.ListProjects(ctx)
	if err != nil {
		return catalogue.Project{}, fmt.Errorf("list projects: %w", err)
	}
	if len(projects) == 0 {
		return catalogue.Project{}, &NoProjectsFoundError{}
	}
	if projectID != "" {
		for _, p := range projects {
			if p.ID == projectID {
				return p, nil
			}
		}
		return catalogue.Project{}, &ProjectSelectionError{ProjectID: projectID, Available: len(projects)}
	}
	if len(projects) > 1 {
		return catalogue.Project{}, &ProjectSelectionError{Available: len(projects)}
	}
	return projects[0], nil
}

// -----------------------------------------------------------------------
// Generate / attach files
// -----------------------------------------------------------------------

func hasAttachment(ctx context.Context, sde catalogue.SDEClient, requestID, attachmentType string) (bool, error) {
	attachments, err := sde.ListAttachments(ctx, requestID)
	if err != nil {
		return false, fmt.Errorf("list attachments of %s: %w", requestID, err)
	}
	for _, a := range attachments {
		if a.AttachmentType == attachmentType {
			return true, nil
		}
	}
	return false, nil
}

type generateFile struct {
	name           string
	attachmentType string
	caption        string
	exporter       catalogue.Exporter
	spec           catalogue.SpecificationClient
	sde            catalogue.SDEClient
}

func (s *generateFile) Name() string    { return s.name }
func (s *generateFile) Caption() string { return s.caption }

func (s *generateFile) InputShape() []string {
	return []string{KeySpecificationID, KeyDataRequestID}
}

func (s *generateFile) IsRequired(ctx context.Context, in State) (Requirement, error) {
	requestID, err := requireString(in, s.name, "IsRequired", KeyDataRequestID)
	if err != nil {
		return Requirement{}, err
	}
	attached, err := hasAttachment(ctx, s.sde, requestID, s.attachmentType)
	if err != nil {
		return Requirement{}, err
	}
	return Requirement{Required: !attached}, nil
}

func (s *generateFile) Run(ctx context.Context, in State) (State, error) {
	specID, err := requireString(in, s.name, "Run", KeySpecificationID)
	if err != nil {
		return nil, err
	}
	file, err := s.spec.ExportSpecification(ctx, specID, s.exporter)
	if err != nil {
		return nil, fmt.Errorf("export %s with %s: %w", specID, s.exporter.Name, err)
	}
	return State{KeyFileProperties: file}, nil
}

type attachFile struct {
	name           string
	attachmentType string
	caption        string
	resultKey      string
	sde            catalogue.SDEClient
}

func (s *attachFile) Name() string    { return s.name }
func (s *attachFile) Caption() string { return s.caption }

func (s *attachFile) InputShape() []string {
	return []string{KeyDataRequestID, KeyFileProperties}
}

func (s *attachFile) IsRequired(ctx context.Context, in State) (Requirement, error) {
	requestID, err := requireString(in, s.name, "IsRequired", KeyDataRequestID)
	if err != nil {
		return Requirement{}, err
	}
	attached, err := hasAttachment(ctx, s.sde, requestID, s.attachmentType)
	if err != nil {
		return Requirement{}, err
	}
	return Requirement{Required: !attached}, nil
}

func (s *attachFile) Run(ctx context.Context, in State) (State, error) {
	requestID, err := requireString(in, s.name, "Run", KeyDataRequestID)
	if err != nil {
		return nil, err
	}
	file, err := requireFile(in, s.name, "Run")
	if err != nil {
		return nil, err
	}
	fileID, err := s.sde.UploadFile(ctx, file, func(p catalogue.UploadProgress) {
		ev := event.New(event.KindUpload, s.name, fmt.Sprintf("Uploading %s", file.FileName))
		ev.Meta = map[string]string{
			"loaded": strconv.FormatInt(p.Loaded, 10),
			"total":  strconv.FormatInt(p.Total, 10),
			"done":   strconv.FormatBool(p.Done),
		}
		emit(ctx, ev)
	})
	if err != nil {
		return nil, fmt.Errorf("upload %s: %w", file.FileName, err)
	}
	if err := s.sde.AttachFile(ctx, requestID, fileID, s.attachmentType); err != nil {
		return nil, fmt.Errorf("attach %s to %s: %w", fileID, requestID, err)
	}
	return State{s.resultKey: fileID}, nil
}

// -----------------------------------------------------------------------
// SubmitDataRequest
// -----------------------------------------------------------------------

type submitDataRequest struct {
	sde catalogue.SDEClient
}

func (*submitDataRequest) Name() string    { return StepSubmitDataRequest }
func (*submitDataRequest) Caption() string { return "Submitting data request..." }

func (*submitDataRequest) InputShape() []string {
	return []string{KeyDataRequestID}
}

func (s *submitDataRequest) IsRequired(ctx context.Context, in State) (Requirement, error) {
	requestID, err := requireString(in, s.Name(), "IsRequired", KeyDataRequestID)
	if err != nil {
		return Requirement{}, err
	}
	dr, err := s.sde.GetDataRequest(ctx, requestID)
	if err != nil {
		return Requirement{}, fmt.Errorf("get data request %s: %w", requestID, err)
	}
	if dr.Status == catalogue.DataRequestUnsubmitted || dr.Status == "" {
		return Requirement{Required: true}, nil
	}
	return Requirement{Result: State{KeyDataRequestStatus: dr.Status}}, nil
}

func (s *submitDataRequest) Run(ctx context.Context, in State) (State, error) {
	requestID, err := requireString(in, s.Name(), "Run", KeyDataRequestID)
	if err != nil {
		return nil, err
	}
	dr, err := s.sde.SubmitForApproval(ctx, requestID)
	if err != nil {
		return nil, fmt.Errorf("submit data request %s: %w", requestID, err)
	}
	return State{KeyDataRequestStatus: dr.Status}, nil
}
