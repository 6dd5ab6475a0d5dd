// Package catalogue describes the REST collaborators the explorer talks to:
// the metadata catalogue (profiles, exports, user preferences) and the
// secure-data-environment (projects, data requests, attachments).
package catalogue

import "strings"

// DomainType discriminates catalogue items.
type DomainType string

const (
	DomainDataModel       DomainType = "DataModel"
	DomainDataClass       DomainType = "DataClass"
	DomainDataElement     DomainType = "DataElement"
	DomainPrimitiveType   DomainType = "PrimitiveType"
	DomainEnumerationType DomainType = "EnumerationType"
	DomainModelDataType   DomainType = "ModelDataType"
	DomainReferenceType   DomainType = "ReferenceType"
	DomainTerminology     DomainType = "Terminology"
	DomainCodeSet         DomainType = "CodeSet"
)

// pathSegment returns the REST collection name for a domain type.
func (d DomainType) pathSegment() string {
	switch d {
	case DomainDataModel:
		return "dataModels"
	case DomainDataClass:
		return "dataClasses"
	case DomainDataElement:
		return "dataElements"
	case DomainPrimitiveType, DomainEnumerationType, DomainModelDataType, DomainReferenceType:
		return "dataTypes"
	case DomainTerminology:
		return "terminologies"
	case DomainCodeSet:
		return "codeSets"
	}
	s := string(d)
	if s == "" {
		return ""
	}
	return strings.ToLower(s[:1]) + s[1:] + "s"
}

// ItemRef addresses any catalogue item.
type ItemRef struct {
	DomainType DomainType `json:"domainType"`
	ID         string     `json:"id"`
}

// Breadcrumb is one ancestor on the path to a catalogue item.
type Breadcrumb struct {
	ID         string     `json:"id"`
	Label      string     `json:"label"`
	DomainType DomainType `json:"domainType"`
}

// EnumerationValue is one entry of an enumeration data type.
type EnumerationValue struct {
	ID    string `json:"id,omitempty"`
	Key   string `json:"key"`
	Value string `json:"value"`
}

// DataType is the declared type of a data element.
type DataType struct {
	ID                      string             `json:"id"`
	Label                   string             `json:"label"`
	DomainType              DomainType         `json:"domainType"`
	EnumerationValues       []EnumerationValue `json:"enumerationValues,omitempty"`
	ModelResourceDomainType DomainType         `json:"modelResourceDomainType,omitempty"`
	ModelResourceID         string             `json:"modelResourceId,omitempty"`
}

// IsModelReference reports whether the type points at another model resource.
func (t DataType) IsModelReference() bool {
	return t.DomainType == DomainModelDataType && t.ModelResourceID != ""
}

// IsTerminologyReference reports whether the type points at a Terminology or CodeSet.
func (t DataType) IsTerminologyReference() bool {
	return t.IsModelReference() &&
		(t.ModelResourceDomainType == DomainTerminology || t.ModelResourceDomainType == DomainCodeSet)
}

// DataElement is a column-like catalogue item.
type DataElement struct {
	ID          string       `json:"id"`
	Label       string       `json:"label"`
	Description string       `json:"description,omitempty"`
	Model       string       `json:"model,omitempty"`
	DataClass   string       `json:"dataClass,omitempty"`
	Breadcrumbs []Breadcrumb `json:"breadcrumbs"`
	DataType    *DataType    `json:"dataType,omitempty"`
}

// ProfileField is one field of a profile section.
type ProfileField struct {
	FieldName            string `json:"fieldName"`
	MetadataPropertyName string `json:"metadataPropertyName"`
	DataType             string `json:"dataType,omitempty"`
	CurrentValue         string `json:"currentValue"`
}

// ProfileSection groups profile fields.
type ProfileSection struct {
	Name   string         `json:"name"`
	Fields []ProfileField `json:"fields"`
}

// Profile is a namespaced metadata document attached to a catalogue item.
type Profile struct {
	ID         string           `json:"id,omitempty"`
	DomainType DomainType       `json:"domainType,omitempty"`
	Label      string           `json:"label,omitempty"`
	Sections   []ProfileSection `json:"sections"`
}

// Value returns the current value of the profile's designated (first) field.
func (p *Profile) Value() string {
	if p == nil || len(p.Sections) == 0 || len(p.Sections[0].Fields) == 0 {
		return ""
	}
	return p.Sections[0].Fields[0].CurrentValue
}

// SetValue writes the designated field, creating it when the profile is empty.
func (p *Profile) SetValue(metadataPropertyName, value string) {
	if len(p.Sections) == 0 {
		p.Sections = []ProfileSection{{Name: "Query Builder"}}
	}
	if len(p.Sections[0].Fields) == 0 {
		p.Sections[0].Fields = []ProfileField{{
			FieldName:            metadataPropertyName,
			MetadataPropertyName: metadataPropertyName,
			DataType:             "json",
		}}
	}
	p.Sections[0].Fields[0].CurrentValue = value
}

// ValidationError is one problem reported by profile validation.
type ValidationError struct {
	FieldName            string `json:"fieldName"`
	MetadataPropertyName string `json:"metadataPropertyName,omitempty"`
	Message              string `json:"message"`
}

// ValidationErrorList is the response of a profile validation.
type ValidationErrorList struct {
	Total      int               `json:"total"`
	FieldTotal int               `json:"fieldTotal"`
	Errors     []ValidationError `json:"errors"`
}

// Exporter names an export plugin.
type Exporter struct {
	Namespace string `json:"namespace"`
	Name      string `json:"name"`
	Version   string `json:"version"`
}

// FileProperties is a generated file ready to be uploaded.
type FileProperties struct {
	FileName    string `json:"fileName"`
	ContentType string `json:"contentType"`
	Content     []byte `json:"content"`
}

// Project is an SDE project the user belongs to.
type Project struct {
	ID   string `json:"id"`
	Name string `json:"name"`
}

// DataRequestStatus values reported by the SDE.
const (
	DataRequestUnsubmitted = "unsubmitted"
	DataRequestSubmitted   = "submitted"
	DataRequestApproved    = "approved"
	DataRequestRejected    = "rejected"
)

// DataRequest is an SDE request for access to a data specification.
type DataRequest struct {
	ID              string `json:"id"`
	Name            string `json:"name,omitempty"`
	ProjectID       string `json:"projectId"`
	SpecificationID string `json:"specificationId"`
	Status          string `json:"status"`
}

// Attachment is a file attached to a data request.
type Attachment struct {
	ID             string `json:"id"`
	FileID         string `json:"fileId"`
	FileName       string `json:"fileName"`
	AttachmentType string `json:"attachmentType"`
}

// UploadProgress is reported while a file is uploaded.
type UploadProgress struct {
	Loaded int64  `json:"loaded"`
	Total  int64  `json:"total"`
	Done   bool   `json:"done"`
	FileID string `json:"fileId,omitempty"`
}
