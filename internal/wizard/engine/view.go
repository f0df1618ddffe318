package engine

import (
	"context"
	"slices"
	"strings"
	"time"

	"idcard/internal/catalog"
	"idcard/internal/wizard/files"
	"idcard/internal/wizard/form"
	"idcard/internal/wizard/models"
	"idcard/pkg/requestcontext"
)

// View is what the client renders. It never carries the identity token or
// file contents beyond image previews.
type View struct {
	SessionID  string             `json:"sessionId"`
	Role       models.Role        `json:"role"`
	RoleLocked bool               `json:"roleLocked"`
	Topology   Topology           `json:"topology"`
	Step       models.Step        `json:"step"`
	Substep    models.Substep     `json:"substep,omitempty"`
	Steps      []StepView         `json:"steps"`
	OTPSentTo  string             `json:"otpSentTo,omitempty"`
	Identity   *IdentityView      `json:"identity,omitempty"`
	Draft      models.Draft       `json:"draft"`
	Files      []FileView         `json:"files"`
	Notice     *models.Notice     `json:"notice,omitempty"`
	Pending    []models.Operation `json:"pending,omitempty"`
	Preview    []PreviewRow       `json:"preview,omitempty"`
	Receipt    *models.Receipt    `json:"receipt,omitempty"`
}

type StepView struct {
	Step      models.Step `json:"step"`
	Current   bool        `json:"current"`
	Completed bool        `json:"completed"`
}

type IdentityView struct {
	Email  string `json:"email"`
	RollNo string `json:"rollNo,omitempty"`
}

type FileView struct {
	Slot     models.Slot `json:"slot"`
	Required bool        `json:"required"`
	MaxMB    int64       `json:"maxMb"`
	// InputGeneration keys the client's file input.
	InputGeneration int    `json:"inputGeneration"`
	Name            string `json:"name,omitempty"`
	Size            string `json:"size,omitempty"`
	MIMEType        string `json:"mimeType,omitempty"`
	Preview         string `json:"preview,omitempty"`
	Acknowledgment  string `json:"acknowledgment,omitempty"`
	// PreviousName is a file from before a resume that must be re-attached.
	PreviousName string `json:"previousName,omitempty"`
}

// PreviewRow is one labelled line of the Preview step.
type PreviewRow struct {
	Label string `json:"label"`
	Value string `json:"value"`
}

// View renders the current state as of the request time in ctx.
func (w *Wizard) View(ctx context.Context) View {
	w.mu.Lock()
	defer w.mu.Unlock()

	now := requestcontext.Now(ctx)
	v := View{
		SessionID:  w.id,
		Role:       w.flow.Role,
		Topology:   w.flow.Topology,
		Step:       w.step,
		Draft:      w.draft.Clone(),
		Receipt:    w.receipt,
		RoleLocked: w.step != models.StepVerification || w.substep != models.SubstepRequestOTP || w.identity != nil,
	}
	if w.step == models.StepVerification {
		v.Substep = w.substep
		if w.otp != nil {
			v.OTPSentTo = w.otp.Email
		}
	}
	if w.notice.Active(now) {
		n := *w.notice
		v.Notice = &n
	}
	if w.identity != nil {
		v.Identity = &IdentityView{Email: w.identity.Email, RollNo: w.identity.RollNo}
	}
	for _, op := range []models.Operation{models.OpRequestOTP, models.OpConfirmOTP, models.OpEncodeFile, models.OpSubmit} {
		if w.pending[op] {
			v.Pending = append(v.Pending, op)
		}
	}

	current := w.flow.index(w.step)
	if w.step == models.StepSubmitted {
		current = len(w.flow.Topology.Steps())
	}
	for i, step := range w.flow.Topology.Steps() {
		completed := i < current
		if step == models.StepVerification && w.identity != nil {
			completed = true
		}
		v.Steps = append(v.Steps, StepView{Step: step, Current: i == current, Completed: completed})
	}

	required := w.flow.RequiredSlots(w.draft)
	for _, slot := range models.Slots {
		rule, ok := w.flow.Policy.Slots[slot]
		if !ok {
			continue
		}
		if slot == models.SlotPayment && w.flow.Role != models.RoleStudent {
			continue
		}
		fv := FileView{
			Slot:            slot,
			Required:        slices.Contains(required, slot),
			MaxMB:           rule.MaxBytes / (1024 * 1024),
			InputGeneration: w.files.Generation(slot),
			PreviousName:    w.manifest[slot],
		}
		if f, ok := w.files.Get(slot); ok {
			fv.Name = f.Name
			fv.Size = files.FormatSize(f.SizeBytes)
			fv.MIMEType = f.MIMEType
			fv.Preview = f.PreviewDataURI
			fv.PreviousName = ""
			if f.PreviewDataURI == "" {
				fv.Acknowledgment = files.Acknowledgment(f)
			}
		}
		v.Files = append(v.Files, fv)
	}

	if w.step == models.StepPreview {
		v.Preview = PreviewRows(w.flow.Schema, w.draft)
	}
	return v
}

const previewDateLayout = "02/01/2006"

// PreviewRows lists the non-empty draft fields for the Preview step. Dates
// read dd/mm/yyyy; data-to-change entries are joined with the free-text
// "Other" detail.
func PreviewRows(s *form.Schema, draft models.Draft) []PreviewRow {
	var rows []PreviewRow
	for _, f := range s.Fields {
		if f.Name == form.FieldOtherDataChange || draft.Empty(f.Name) {
			continue
		}
		value := draft.Text(f.Name)
		switch f.Kind {
		case form.KindDate:
			if t, err := time.Parse("2006-01-02", value); err == nil {
				value = t.Format(previewDateLayout)
			}
		case form.KindSet:
			items := slices.Clone(draft.Set(f.Name))
			if other := strings.TrimSpace(draft.Text(form.FieldOtherDataChange)); other != "" {
				if i := slices.Index(items, catalog.OtherOption); i >= 0 {
					items[i] = catalog.OtherOption + ": " + other
				}
			}
			value = strings.Join(items, ", ")
		case form.KindBool:
			value = "No"
			if draft.Flag(f.Name) {
				value = "Yes"
			}
		case form.KindSelect:
			for _, o := range f.Options {
				if o.Value == value {
					value = o.Label
					break
				}
			}
		}
		rows = append(rows, PreviewRow{Label: f.Label, Value: value})
	}
	return rows
}

// Step returns the current step.
func (w *Wizard) Step() models.Step {
	w.mu.Lock()
	defer w.mu.Unlock()
	return w.step
}

// Role returns the role of the active flow.
func (w *Wizard) Role() models.Role {
	w.mu.Lock()
	defer w.mu.Unlock()
	return w.flow.Role
}

// ID returns the session id.
func (w *Wizard) ID() string { return w.id }
