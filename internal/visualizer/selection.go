package visualizer

// SelectionLimit is the number of catalog machines that can be staged at once.
const SelectionLimit = 2

// Selector tracks the catalog machines staged for the next commit, in the
// order they were selected.
type Selector struct {
	catalog  Catalog
	selected []string
}

// NewSelector returns an empty selection over catalog.
func NewSelector(catalog Catalog) *Selector {
	return &Selector{catalog: catalog}
}

// Toggle removes machineID if it is selected and adds it otherwise. Adding
// beyond SelectionLimit fails with a precondition error and leaves the
// selection unchanged.
func (s *Selector) Toggle(machineID string) (bool, error) {
	if _, ok := s.catalog.Lookup(machineID); !ok {
		return false, invalidInput(MsgUnknownMachine, nil)
	}

	for i, id := range s.selected {
		if id == machineID {
			s.selected = append(s.selected[:i], s.selected[i+1:]...)
			return false, nil
		}
	}

	if len(s.selected) >= SelectionLimit {
		return false, precondition(MsgSelectionLimit)
	}
	s.selected = append(s.selected, machineID)
	return true, nil
}

// IsSelected reports whether machineID is staged.
func (s *Selector) IsSelected(machineID string) bool {
	for _, id := range s.selected {
		if id == machineID {
			return true
		}
	}
	return false
}

// Selected returns a copy of the staged machine ids in selection order.
func (s *Selector) Selected() []string {
	out := make([]string, len(s.selected))
	copy(out, s.selected)
	return out
}

// Len returns the number of staged machines.
func (s *Selector) Len() int {
	return len(s.selected)
}

// Clear empties the selection.
func (s *Selector) Clear() {
	s.selected = nil
}
