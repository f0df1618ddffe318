// Package files checks candidate uploads against a slot policy and tracks the
// accepted file per slot.
package files

import (
	"bytes"
	"encoding/base64"
	"fmt"
	"io"
	"strings"

	"github.com/gabriel-vasile/mimetype"

	"idcard/internal/wizard/models"
)

// Reason classifies a rejected candidate.
type Reason string

const (
	ReasonTooLarge        Reason = "file_too_large"
	ReasonUnsupportedType Reason = "unsupported_type"
	ReasonUnknownSlot     Reason = "unknown_slot"
	ReasonEmpty           Reason = "empty_file"
)

// RejectionError explains why a candidate was not accepted.
type RejectionError struct {
	Slot   models.Slot
	Reason Reason
	MaxMB  int64
}

func (e *RejectionError) Error() string {
	switch e.Reason {
	case ReasonTooLarge:
		return fmt.Sprintf("File size exceeds %dMB limit", e.MaxMB)
	case ReasonUnsupportedType:
		return "Only image files are allowed for the " + string(e.Slot)
	case ReasonEmpty:
		return "The selected file is empty"
	default:
		return fmt.Sprintf("Unknown upload slot %q", e.Slot)
	}
}

// Candidate is a file the applicant selected.
type Candidate struct {
	Name         string
	DeclaredType string
	Body         io.Reader
}

// Accept reads the candidate, enforces the policy rule of slot and returns
// the accepted file with its preview. Rejections return *RejectionError.
func Accept(slot models.Slot, c Candidate, p Policy) (models.FileSlot, error) {
	rule, ok := p.Slots[slot]
	if !ok {
		return models.FileSlot{}, &RejectionError{Slot: slot, Reason: ReasonUnknownSlot}
	}

	var buf bytes.Buffer
	n, err := io.Copy(&buf, io.LimitReader(c.Body, rule.MaxBytes+1))
	if err != nil {
		return models.FileSlot{}, fmt.Errorf("read %s upload: %w", slot, err)
	}
	if n > rule.MaxBytes {
		return models.FileSlot{}, &RejectionError{Slot: slot, Reason: ReasonTooLarge, MaxMB: rule.MaxBytes / mb}
	}
	if n == 0 {
		return models.FileSlot{}, &RejectionError{Slot: slot, Reason: ReasonEmpty}
	}

	content := buf.Bytes()
	mimeType := contentType(c.DeclaredType, content)
	f := models.FileSlot{
		Slot:      slot,
		Name:      c.Name,
		SizeBytes: n,
		MIMEType:  mimeType,
		Content:   content,
	}
	if rule.ImageOnly && !f.IsImage() {
		return models.FileSlot{}, &RejectionError{Slot: slot, Reason: ReasonUnsupportedType}
	}
	if f.IsImage() {
		f.PreviewDataURI = "data:" + mimeType + ";base64," + base64.StdEncoding.EncodeToString(content)
	}
	return f, nil
}

// contentType prefers the declared type and sniffs when the client sent none.
func contentType(declared string, content []byte) string {
	declared = strings.TrimSpace(strings.SplitN(declared, ";", 2)[0])
	if declared != "" && declared != "application/octet-stream" {
		return strings.ToLower(declared)
	}
	detected := mimetype.Detect(content).String()
	return strings.SplitN(detected, ";", 2)[0]
}

// Acknowledgment is the line shown for files without a preview.
func Acknowledgment(f models.FileSlot) string {
	return fmt.Sprintf("✓ %s (%s)", f.Name, FormatSize(f.SizeBytes))
}
