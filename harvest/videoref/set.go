package videoref

// Set accumulates unique references for one run, in first-seen order.
// It is owned by a single run and is not safe for concurrent use.
type Set struct {
	seen  map[Ref]struct{}
	order []Ref
}

// NewSet returns an empty Set.
func NewSet() *Set {
	return &Set{seen: make(map[Ref]struct{})}
}

// Add normalizes raw and inserts it. It returns the canonical reference and
// whether it was new. Unrecognised input is discarded.
func (s *Set) Add(raw string) (Ref, bool) {
	ref, ok := Normalize(raw)
	if !ok {
		return "", false
	}
	return ref, s.Insert(ref)
}

// Insert adds an already canonical reference. It reports whether it was new.
func (s *Set) Insert(ref Ref) bool {
	if _, dup := s.seen[ref]; dup {
		return false
	}
	s.seen[ref] = struct{}{}
	s.order = append(s.order, ref)
	return true
}

// Has reports whether ref is already in the set.
func (s *Set) Has(ref Ref) bool {
	_, ok := s.seen[ref]
	return ok
}

// Len returns the number of unique references.
func (s *Set) Len() int { return len(s.order) }

// Refs returns a copy of the references in insertion order.
func (s *Set) Refs() []Ref {
	out := make([]Ref, len(s.order))
	copy(out, s.order)
	return out
}

// Strings returns the references as plain strings in insertion order.
func (s *Set) Strings() []string {
	out := make([]string, len(s.order))
	for i, r := range s.order {
		out[i] = string(r)
	}
	return out
}
