package catalogue

import (
	"context"
	"encoding/json"
)

// ProfileClient reads, validates and saves profiles attached to catalogue items.
type ProfileClient interface {
	// GetProfile fetches the profile addressed by namespace and name.
	// A missing profile is reported as an *HTTPError with status 404.
	GetProfile(ctx context.Context, item ItemRef, namespace, name string) (*Profile, error)

	// ValidateProfile asks the catalogue to validate p without saving it.
	ValidateProfile(ctx context.Context, item ItemRef, namespace, name string, p *Profile) (*ValidationErrorList, error)

	// SaveProfile stores p against item and returns the stored profile.
	SaveProfile(ctx context.Context, item ItemRef, namespace, name string, p *Profile) (*Profile, error)
}

// SpecificationClient exports data specifications into files.
type SpecificationClient interface {
	ExportSpecification(ctx context.Context, specificationID string, exporter Exporter) (*FileProperties, error)
}

// PreferencesClient reads and writes a user's preferences blob.
type PreferencesClient interface {
	GetUserPreferences(ctx context.Context, userID string) (json.RawMessage, error)
	SaveUserPreferences(ctx context.Context, userID string, prefs json.RawMessage) error
}

// SDEClient is the secure-data-environment collaborator.
type SDEClient interface {
	// ListProjects returns the projects the current user may request data for.
	ListProjects(ctx context.Context) ([]Project, error)

	// FindDataRequest returns the data request already raised for a
	// specification, or nil when there is none.
	FindDataRequest(ctx context.Context, specificationID string) (*DataRequest, error)

	CreateDataRequest(ctx context.Context, projectID, specificationID string) (*DataRequest, error)
	GetDataRequest(ctx context.Context, requestID string) (*DataRequest, error)
	SubmitForApproval(ctx context.Context, requestID string) (*DataRequest, error)

	ListAttachments(ctx context.Context, requestID string) ([]Attachment, error)
	AttachFile(ctx context.Context, requestID, fileID, attachmentType string) error

	// UploadFile uploads a file and returns its id. progress, when not nil,
	// receives upload events ending with one where Done is true.
	UploadFile(ctx context.Context, file *FileProperties, progress func(UploadProgress)) (string, error)
}
