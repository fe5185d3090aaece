package representation

// Set is the quality ordered representation list of one adaptation.
// It is replaced wholesale on every manifest update.
type Set struct {
	reps []*Representation
}

func (s *Set) replace(reps []*Representation) {
	s.reps = reps
}

func (s *Set) clear() {
	s.reps = nil
}

// Len returns the number of representations.
func (s *Set) Len() int {
	return len(s.reps)
}

// At returns the representation at quality rank q, or nil.
func (s *Set) At(q int) *Representation {
	if q < 0 || q >= len(s.reps) {
		return nil
	}
	return s.reps[q]
}

// QualityOf returns the rank of r in the set, or -1.
func (s *Set) QualityOf(r *Representation) int {
	if r == nil {
		return -1
	}
	for i, rep := range s.reps {
		if rep == r {
			return i
		}
	}
	return -1
}

// All returns a copy of the ordered list.
func (s *Set) All() []*Representation {
	out := make([]*Representation, len(s.reps))
	copy(out, s.reps)
	return out
}

func (s *Set) contains(r *Representation) bool {
	return s.QualityOf(r) >= 0
}

// clamp bounds q to a valid rank. It returns -1 for an empty set.
func (s *Set) clamp(q int) int {
	if len(s.reps) == 0 {
		return -1
	}
	if q < 0 {
		return 0
	}
	if q >= len(s.reps) {
		return len(s.reps) - 1
	}
	return q
}

// allIndexed reports whether every representation has a resolved index.
func (s *Set) allIndexed() bool {
	for _, rep := range s.reps {
		if !rep.indexResolved() {
			return false
		}
	}
	return true
}
