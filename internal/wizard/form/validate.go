package form

import (
	"fmt"
	"slices"

	"idcard/internal/catalog"
	"idcard/internal/wizard/models"
)

// Problem codes, also used as notice codes. Their numeric order is the order
// in which the Form guard reports them.
const (
	ProblemCategoryRequired     = "category_required"
	ProblemDataToChangeRequired = "data_to_change_required"
	ProblemFieldsRequired       = "fields_required"
	ProblemInvalidFormat        = "invalid_format"
)

var problemRank = map[string]int{
	ProblemCategoryRequired:     0,
	ProblemDataToChangeRequired: 1,
	ProblemFieldsRequired:       2,
	ProblemInvalidFormat:        3,
}

// FieldError is one unmet form rule.
type FieldError struct {
	Field   string `json:"field"`
	Code    string `json:"code"`
	Message string `json:"message"`
}

// Validate returns every unmet rule in draft, ordered by problem rank and
// then by schema order. It has no side effects.
func Validate(s *Schema, draft models.Draft) []FieldError {
	var errs []FieldError

	category := draft.Text(FieldRequestCategory)
	if category == "" {
		errs = append(errs, FieldError{Field: FieldRequestCategory, Code: ProblemCategoryRequired, Message: "Please select a request category"})
	} else if catalog.NeedsDataToChange(category) && draft.Empty(FieldDataToChange) {
		errs = append(errs, FieldError{Field: FieldDataToChange, Code: ProblemDataToChangeRequired, Message: "Please select at least one item under Data to be Changed"})
	}

	for _, f := range s.Fields {
		if f.Name == FieldRequestCategory || f.Locked {
			continue
		}
		if f.Required && draft.Empty(f.Name) {
			errs = append(errs, FieldError{Field: f.Name, Code: ProblemFieldsRequired, Message: "Please fill all required fields: " + f.Label + " is required"})
			continue
		}
		if f.Digits > 0 && !draft.Empty(f.Name) && !allDigits(draft.Text(f.Name), f.Digits) {
			errs = append(errs, FieldError{Field: f.Name, Code: ProblemInvalidFormat, Message: fmt.Sprintf("%s must be exactly %d digits", f.Label, f.Digits)})
		}
	}

	slices.SortStableFunc(errs, func(a, b FieldError) int {
		return problemRank[a.Code] - problemRank[b.Code]
	})
	return errs
}

func allDigits(s string, n int) bool {
	if len(s) != n {
		return false
	}
	for _, r := range s {
		if r < '0' || r > '9' {
			return false
		}
	}
	return true
}
