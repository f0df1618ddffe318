// Package engine is the step wizard: one state machine, parametrized by a
// Flow, that owns the session state and enforces the per-step guards.
package engine

import (
	"fmt"
	"slices"

	"idcard/internal/catalog"
	"idcard/internal/wizard/files"
	"idcard/internal/wizard/form"
	"idcard/internal/wizard/models"
)

// Topology selects the step sequence.
type Topology string

const (
	// TopologyStaged has a dedicated Documents step.
	TopologyStaged Topology = "staged"
	// TopologyLegacy folds document upload into the Form step.
	TopologyLegacy Topology = "legacy"
)

// ParseTopology maps a configured name to a Topology.
func ParseTopology(s string) (Topology, error) {
	switch t := Topology(s); t {
	case TopologyStaged, TopologyLegacy:
		return t, nil
	default:
		return "", fmt.Errorf("unknown topology %q (want %q or %q)", s, TopologyStaged, TopologyLegacy)
	}
}

// Steps lists the navigable steps in order. Submitted is terminal and not
// part of the sequence.
func (t Topology) Steps() []models.Step {
	if t == TopologyLegacy {
		return []models.Step{models.StepVerification, models.StepForm, models.StepPreview}
	}
	return []models.Step{models.StepVerification, models.StepForm, models.StepDocuments, models.StepPreview}
}

// UploadStep is the step that carries the file slots.
func (t Topology) UploadStep() models.Step {
	if t == TopologyLegacy {
		return models.StepForm
	}
	return models.StepDocuments
}

// Flow is the configuration one wizard runs with. Role picks schema,
// catalogs and slot rules; it never changes the machine shape.
type Flow struct {
	Role     models.Role
	Topology Topology
	Schema   *form.Schema
	Policy   files.Policy
}

// NewFlow binds the role's schema to a topology and file policy.
func NewFlow(role models.Role, topology Topology, policy files.Policy) Flow {
	return Flow{
		Role:     role,
		Topology: topology,
		Schema:   form.For(role),
		Policy:   policy,
	}
}

func (f Flow) index(step models.Step) int {
	return slices.Index(f.Topology.Steps(), step)
}

// RequiresPayment reports whether a payment receipt must be attached. Only
// students pay, and a first-time (New) card is free.
func RequiresPayment(role models.Role, category string) bool {
	return role == models.RoleStudent && category != catalog.CategoryNew
}

// RequiredSlots returns the slots that must be filled for draft.
func (f Flow) RequiredSlots(draft models.Draft) []models.Slot {
	slots := []models.Slot{models.SlotPhoto}
	if RequiresPayment(f.Role, draft.Text(form.FieldRequestCategory)) {
		slots = append(slots, models.SlotPayment)
	}
	return slots
}
