package models

import (
	"encoding/json"
	"time"
)

// PackageField is one multipart text part.
type PackageField struct {
	Name  string
	Value string
}

// Attachment is one multipart file part.
type Attachment struct {
	Field    string
	Filename string
	MIMEType string
	Content  []byte
}

// SubmissionPackage is the flattened, network-ready application. It is built
// once per submit attempt and never mutated.
type SubmissionPackage struct {
	Fields        []PackageField
	Files         []Attachment
	Summary       Attachment
	ProvisionalID string
	SubmittedAt   time.Time
}

// Field returns the value of a text part.
func (p *SubmissionPackage) Field(name string) (string, bool) {
	for _, f := range p.Fields {
		if f.Name == name {
			return f.Value, true
		}
	}
	return "", false
}

// HasFile reports whether a file part named field is present.
func (p *SubmissionPackage) HasFile(field string) bool {
	for _, f := range p.Files {
		if f.Field == field {
			return true
		}
	}
	return false
}

// Receipt is the application backend's answer to a submission.
type Receipt struct {
	ApplicationID string          `json:"applicationId"`
	Application   json.RawMessage `json:"application,omitempty"`
	// Provisional is set when the backend returned no id and the
	// provisional id stands in.
	Provisional bool `json:"provisional,omitempty"`
}

// SummarySnapshot is the read-only view the summary document is rendered from.
type SummarySnapshot struct {
	Role          Role
	Email         string
	ProvisionalID string
	Draft         Draft
	Files         Manifest
}
