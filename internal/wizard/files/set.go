package files

import "idcard/internal/wizard/models"

// Set holds the accepted file per slot for one wizard session.
type Set struct {
	slots map[models.Slot]models.FileSlot
	// generation is bumped on every effective removal; clients key the
	// native file input on it so the same filename can be picked again.
	generation map[models.Slot]int
}

func NewSet() *Set {
	return &Set{
		slots:      make(map[models.Slot]models.FileSlot),
		generation: make(map[models.Slot]int),
	}
}

func (s *Set) Put(f models.FileSlot) {
	s.slots[f.Slot] = f
}

func (s *Set) Get(slot models.Slot) (models.FileSlot, bool) {
	f, ok := s.slots[slot]
	return f, ok
}

func (s *Set) Has(slot models.Slot) bool {
	_, ok := s.slots[slot]
	return ok
}

// Remove clears the slot and its preview. Removing an empty slot is a no-op
// and reports false.
func (s *Set) Remove(slot models.Slot) bool {
	if _, ok := s.slots[slot]; !ok {
		return false
	}
	delete(s.slots, slot)
	s.generation[slot]++
	return true
}

// Generation returns the input generation of slot.
func (s *Set) Generation(slot models.Slot) int {
	return s.generation[slot]
}

// Present returns the populated slots in display order.
func (s *Set) Present() []models.FileSlot {
	out := make([]models.FileSlot, 0, len(s.slots))
	for _, slot := range models.Slots {
		if f, ok := s.slots[slot]; ok {
			out = append(out, f)
		}
	}
	return out
}

// Manifest lists file names only, for crash-resume display.
func (s *Set) Manifest() models.Manifest {
	m := make(models.Manifest, len(s.slots))
	for slot, f := range s.slots {
		m[slot] = f.Name
	}
	return m
}

// Clear empties every slot.
func (s *Set) Clear() {
	for slot := range s.slots {
		s.Remove(slot)
	}
}
