// Package submission turns a completed wizard session into the one
// multipart package the application backend accepts.
package submission

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"math/rand/v2"
	"strings"
	"time"

	"idcard/internal/wizard/form"
	"idcard/internal/wizard/models"
	"idcard/internal/wizard/ports"
	dErrors "idcard/pkg/domain-errors"
	"idcard/pkg/requestcontext"
)

// Multipart part names fixed by the application backend.
const (
	FieldUserType    = "userType"
	FieldSubmittedAt = "submittedAt"
	FieldSummary     = "applicationPdf"
)

// Input is everything a submission is built from.
type Input struct {
	Role     models.Role
	Identity models.Identity
	Draft    models.Draft
	Files    []models.FileSlot
}

// Assembler builds submission packages.
type Assembler struct {
	docs        ports.DocumentGenerator
	institution string
	// serial returns a number in [0, n).
	serial func(n int) int
}

type Option func(*Assembler)

// WithSerialSource replaces the random source of provisional id serials.
func WithSerialSource(fn func(n int) int) Option {
	return func(a *Assembler) {
		a.serial = fn
	}
}

func New(docs ports.DocumentGenerator, institution string, opts ...Option) (*Assembler, error) {
	if docs == nil {
		return nil, errors.New("document generator is required")
	}
	institution = strings.ToUpper(strings.TrimSpace(institution))
	if institution == "" {
		return nil, errors.New("institution code is required")
	}
	a := &Assembler{docs: docs, institution: institution, serial: rand.IntN}
	for _, opt := range opts {
		opt(a)
	}
	return a, nil
}

// ProvisionalID returns <INSTITUTION>-<STU|FAC|STF>-<YEAR>-<10000..99999>.
func (a *Assembler) ProvisionalID(role models.Role, now time.Time) string {
	return fmt.Sprintf("%s-%s-%d-%d", a.institution, role.IDPrefix(), now.Year(), 10000+a.serial(90000))
}

// Assemble flattens in into an immutable package and renders its summary.
func (a *Assembler) Assemble(ctx context.Context, in Input) (*models.SubmissionPackage, error) {
	if !in.Identity.Verified {
		return nil, dErrors.New(dErrors.CodeUnauthorized, "Please verify your identity first")
	}
	now := requestcontext.Now(ctx).UTC()
	schema := form.For(in.Role)
	draft := form.BindIdentity(schema, in.Draft, in.Identity)

	fields, err := flatten(schema, in.Role, in.Identity, draft)
	if err != nil {
		return nil, err
	}
	fields = append(fields, models.PackageField{Name: FieldSubmittedAt, Value: now.Format(time.RFC3339Nano)})

	pkg := &models.SubmissionPackage{
		Fields:        fields,
		ProvisionalID: a.ProvisionalID(in.Role, now),
		SubmittedAt:   now,
	}

	manifest := make(models.Manifest, len(in.Files))
	for _, f := range in.Files {
		pkg.Files = append(pkg.Files, models.Attachment{
			Field:    string(f.Slot),
			Filename: f.Name,
			MIMEType: f.MIMEType,
			Content:  f.Content,
		})
		manifest[f.Slot] = f.Name
	}

	summary, err := a.docs.RenderSummary(ctx, models.SummarySnapshot{
		Role:          in.Role,
		Email:         in.Identity.Email,
		ProvisionalID: pkg.ProvisionalID,
		Draft:         draft,
		Files:         manifest,
	}, false)
	if err != nil {
		return nil, dErrors.Wrap(err, dErrors.CodeSubmissionFailed, "failed to generate application summary")
	}
	pkg.Summary = models.Attachment{
		Field:    FieldSummary,
		Filename: SummaryFilename(draft, pkg.ProvisionalID),
		MIMEType: "application/pdf",
		Content:  summary,
	}
	return pkg, nil
}

// SummaryFilename names the summary after the staff number, then the roll
// number, then the provisional id.
func SummaryFilename(draft models.Draft, provisionalID string) string {
	key := provisionalID
	for _, name := range []string{form.FieldStaffNo, form.FieldRollNo} {
		if v := strings.TrimSpace(draft.Text(name)); v != "" {
			key = v
			break
		}
	}
	key = strings.NewReplacer("/", "-", `\`, "-", `"`, "").Replace(key)
	return "application_" + key + ".pdf"
}

// Finalize applies the backend's answer. A receipt without an id falls back
// to the provisional id and is flagged.
func Finalize(pkg *models.SubmissionPackage, r *models.Receipt) models.Receipt {
	if r == nil {
		return models.Receipt{ApplicationID: pkg.ProvisionalID, Provisional: true}
	}
	out := *r
	if strings.TrimSpace(out.ApplicationID) == "" {
		out.ApplicationID = pkg.ProvisionalID
		out.Provisional = true
	}
	return out
}

// flatten emits identity fields first, then every non-empty draft field in
// schema order. Sets are JSON-encoded.
func flatten(schema *form.Schema, role models.Role, id models.Identity, draft models.Draft) ([]models.PackageField, error) {
	fields := []models.PackageField{
		{Name: FieldUserType, Value: string(role)},
		{Name: form.FieldEmail, Value: id.Email},
	}
	if role == models.RoleStudent {
		fields = append(fields, models.PackageField{Name: form.FieldRollNo, Value: id.RollNo})
	}

	for _, f := range schema.Fields {
		if f.Name == form.FieldEmail || f.Name == form.FieldRollNo || draft.Empty(f.Name) {
			continue
		}
		if f.Kind == form.KindSet {
			encoded, err := json.Marshal(draft.Set(f.Name))
			if err != nil {
				return nil, dErrors.Wrap(err, dErrors.CodeInternal, "failed to encode "+f.Name)
			}
			fields = append(fields, models.PackageField{Name: f.Name, Value: string(encoded)})
			continue
		}
		fields = append(fields, models.PackageField{Name: f.Name, Value: draft.Text(f.Name)})
	}
	return fields, nil
}
