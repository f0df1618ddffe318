package files

import (
	"fmt"

	"idcard/internal/wizard/models"
)

const mb = 1024 * 1024

// SlotRule bounds what a slot accepts.
type SlotRule struct {
	MaxBytes  int64
	ImageOnly bool
}

// Policy is a named set of slot rules. Deployments pick one explicitly.
type Policy struct {
	Name  string
	Slots map[models.Slot]SlotRule
}

const (
	PolicyStaged            = "staged"
	PolicyLegacyInlinePhoto = "legacy-inline-photo"
)

// Staged is the document-upload step policy: 5 MB per file, any type.
var Staged = Policy{
	Name: PolicyStaged,
	Slots: map[models.Slot]SlotRule{
		models.SlotPhoto:   {MaxBytes: 5 * mb},
		models.SlotFIR:     {MaxBytes: 5 * mb},
		models.SlotPayment: {MaxBytes: 5 * mb},
	},
}

// LegacyInlinePhoto is the inline-photo form policy: the photo must be an
// image of at most 1 MB; other slots keep the 5 MB ceiling.
var LegacyInlinePhoto = Policy{
	Name: PolicyLegacyInlinePhoto,
	Slots: map[models.Slot]SlotRule{
		models.SlotPhoto:   {MaxBytes: 1 * mb, ImageOnly: true},
		models.SlotFIR:     {MaxBytes: 5 * mb},
		models.SlotPayment: {MaxBytes: 5 * mb},
	},
}

// PolicyByName resolves a configured policy name.
func PolicyByName(name string) (Policy, error) {
	switch name {
	case PolicyStaged:
		return Staged, nil
	case PolicyLegacyInlinePhoto:
		return LegacyInlinePhoto, nil
	default:
		return Policy{}, fmt.Errorf("unknown file policy %q (want %q or %q)", name, PolicyStaged, PolicyLegacyInlinePhoto)
	}
}
