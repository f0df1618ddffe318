package models

import "strings"

// Slot is a logical upload target.
type Slot string

const (
	SlotPhoto   Slot = "photo"
	SlotFIR     Slot = "fir"
	SlotPayment Slot = "payment"
)

// Slots lists every slot in display order.
var Slots = []Slot{SlotPhoto, SlotFIR, SlotPayment}

// ParseSlot validates a slot name.
func ParseSlot(s string) (Slot, bool) {
	for _, slot := range Slots {
		if string(slot) == s {
			return slot, true
		}
	}
	return "", false
}

// FileSlot is an accepted file bound to a slot.
type FileSlot struct {
	Slot      Slot   `json:"slot"`
	Name      string `json:"name"`
	SizeBytes int64  `json:"sizeBytes"`
	MIMEType  string `json:"mimeType"`
	// PreviewDataURI is set for images only.
	PreviewDataURI string `json:"previewDataUri,omitempty"`
	Content        []byte `json:"-"`
}

// IsImage reports whether the accepted file is an image.
func (f FileSlot) IsImage() bool {
	return strings.HasPrefix(f.MIMEType, "image/")
}

// Manifest records uploaded file names per slot for resume display.
type Manifest map[Slot]string
