package engine

import (
	"idcard/internal/wizard/files"
	"idcard/internal/wizard/form"
	"idcard/internal/wizard/models"
)

// Guard problem codes beyond those of the form validator.
const (
	ProblemVerificationRequired = "verification_required"
	ProblemPhotoRequired        = "photo_required"
	ProblemPaymentRequired      = "payment_required"
)

// Problem is the first unmet condition of a guard.
type Problem struct {
	Code    string
	Field   string
	Message string
}

// GuardError is returned when a transition is refused.
type GuardError struct {
	Problem Problem
}

func (e *GuardError) Error() string {
	return e.Problem.Message
}

// formProblem returns the first unmet form rule. Category comes first, then
// data-to-change, then completeness, then formats.
func formProblem(flow Flow, draft models.Draft) *Problem {
	errs := form.Validate(flow.Schema, draft)
	if len(errs) == 0 {
		return nil
	}
	return &Problem{Code: errs[0].Code, Field: errs[0].Field, Message: errs[0].Message}
}

func documentsProblem(flow Flow, draft models.Draft, set *files.Set) *Problem {
	for _, slot := range flow.RequiredSlots(draft) {
		if set.Has(slot) {
			continue
		}
		switch slot {
		case models.SlotPhoto:
			return &Problem{Code: ProblemPhotoRequired, Field: string(slot), Message: "Please upload a passport-size photo"}
		case models.SlotPayment:
			return &Problem{Code: ProblemPaymentRequired, Field: string(slot), Message: "Please upload payment receipt"}
		}
	}
	return nil
}

// exitProblem evaluates the guard for leaving step forward.
func exitProblem(flow Flow, step models.Step, draft models.Draft, set *files.Set) *Problem {
	switch step {
	case models.StepForm:
		if p := formProblem(flow, draft); p != nil {
			return p
		}
		if flow.Topology == TopologyLegacy {
			return documentsProblem(flow, draft, set)
		}
	case models.StepDocuments:
		return documentsProblem(flow, draft, set)
	}
	return nil
}
