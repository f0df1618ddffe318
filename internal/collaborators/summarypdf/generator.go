// Package summarypdf renders the one-page application summary attached to
// every submission.
package summarypdf

import (
	"bytes"
	"context"
	"fmt"
	"strings"

	"github.com/go-pdf/fpdf"

	"idcard/internal/wizard/engine"
	"idcard/internal/wizard/form"
	"idcard/internal/wizard/models"
	"idcard/pkg/requestcontext"
)

// Generator implements ports.DocumentGenerator with fpdf.
type Generator struct {
	institution string
	compress    bool
}

type Option func(*Generator)

// WithCompression toggles stream compression. Uncompressed output keeps the
// text searchable.
func WithCompression(on bool) Option {
	return func(g *Generator) { g.compress = on }
}

func New(institution string, opts ...Option) *Generator {
	g := &Generator{institution: institution, compress: true}
	for _, opt := range opts {
		opt(g)
	}
	return g
}

var roleTitles = map[models.Role]string{
	models.RoleStudent: "Student",
	models.RoleFaculty: "Faculty",
	models.RoleStaff:   "Staff",
}

// RenderSummary lays out the snapshot as a labelled table. includeWatermark
// stamps a diagonal DRAFT across the page for previews.
func (g *Generator) RenderSummary(ctx context.Context, snap models.SummarySnapshot, includeWatermark bool) ([]byte, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	pdf := fpdf.New("P", "mm", "A4", "")
	pdf.SetCompression(g.compress)
	now := requestcontext.Now(ctx)
	pdf.SetCreationDate(now)
	pdf.SetModificationDate(now)
	pdf.SetTitle("ID Card Application", false)
	pdf.SetMargins(18, 18, 18)
	pdf.AddPage()
	tr := pdf.UnicodeTranslatorFromDescriptor("")

	if includeWatermark {
		watermark(pdf)
	}

	pdf.SetFont("Helvetica", "B", 15)
	pdf.CellFormat(0, 9, tr(g.institution), "", 1, "C", false, 0, "")
	pdf.SetFont("Helvetica", "", 12)
	pdf.CellFormat(0, 7, tr(fmt.Sprintf("Identity Card Application (%s)", roleTitles[snap.Role])), "", 1, "C", false, 0, "")
	pdf.Ln(4)

	pdf.SetFont("Helvetica", "", 10)
	header := [][2]string{
		{"Application No.", snap.ProvisionalID},
		{"Verified Email", snap.Email},
		{"Generated", now.Format("02/01/2006 15:04")},
	}
	for _, row := range header {
		line(pdf, tr, row[0], row[1])
	}
	pdf.Ln(3)

	section(pdf, "Applicant Details")
	for _, row := range engine.PreviewRows(form.For(snap.Role), snap.Draft) {
		if row.Label == "" {
			continue
		}
		line(pdf, tr, row.Label, row.Value)
	}

	if len(snap.Files) > 0 {
		pdf.Ln(3)
		section(pdf, "Attached Documents")
		for _, slot := range models.Slots {
			if name, ok := snap.Files[slot]; ok && name != "" {
				line(pdf, tr, slotLabel(slot), name)
			}
		}
	}

	pdf.Ln(10)
	pdf.SetFont("Helvetica", "I", 9)
	pdf.MultiCell(0, 5, tr("I declare that the information given above is true to the best of my knowledge."), "", "L", false)

	var buf bytes.Buffer
	if err := pdf.Output(&buf); err != nil {
		return nil, fmt.Errorf("render summary pdf: %w", err)
	}
	return buf.Bytes(), nil
}

func section(pdf *fpdf.Fpdf, title string) {
	pdf.SetFont("Helvetica", "B", 11)
	pdf.SetFillColor(230, 236, 245)
	pdf.CellFormat(0, 7, title, "", 1, "L", true, 0, "")
	pdf.SetFont("Helvetica", "", 10)
}

func line(pdf *fpdf.Fpdf, tr func(string) string, label, value string) {
	pdf.CellFormat(55, 6, tr(label), "B", 0, "L", false, 0, "")
	pdf.MultiCell(0, 6, tr(strings.TrimSpace(value)), "B", "L", false)
}

func watermark(pdf *fpdf.Fpdf) {
	w, h := pdf.GetPageSize()
	pdf.SetFont("Helvetica", "B", 80)
	pdf.SetTextColor(225, 225, 225)
	pdf.TransformBegin()
	pdf.TransformRotate(45, w/2, h/2)
	pdf.Text(w/2-45, h/2+10, "DRAFT")
	pdf.TransformEnd()
	pdf.SetTextColor(0, 0, 0)
}

func slotLabel(slot models.Slot) string {
	switch slot {
	case models.SlotPhoto:
		return "Photograph"
	case models.SlotFIR:
		return "FIR / Complaint Copy"
	case models.SlotPayment:
		return "Payment Receipt"
	default:
		return string(slot)
	}
}
