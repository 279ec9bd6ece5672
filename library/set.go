package library

// Set is an insertion-ordered collection of libraries keyed by id.
type Set struct {
	ids  []string
	byID map[string]*Library
}

// NewSet creates an empty set.
func NewSet() *Set {
	return &Set{byID: map[string]*Library{}}
}

// Add inserts l. A library whose id is already present replaces the old
// record but keeps its position.
func (s *Set) Add(l *Library) {
	if _, ok := s.byID[l.ID]; !ok {
		s.ids = append(s.ids, l.ID)
	}
	s.byID[l.ID] = l
}

// Get looks up a library by id.
func (s *Set) Get(id string) (*Library, bool) {
	l, ok := s.byID[id]
	return l, ok
}

// Lookup finds the library for an identifier taken from a QC table. An
// exact match wins; otherwise the normalized form of id is tried.
func (s *Set) Lookup(id string) (*Library, bool) {
	if l, ok := s.byID[id]; ok {
		return l, true
	}
	l, ok := s.byID[NormalizeID(id)]
	return l, ok
}

// Len returns the number of libraries.
func (s *Set) Len() int { return len(s.ids) }

// IDs returns library ids in insertion order.
func (s *Set) IDs() []string {
	return append([]string(nil), s.ids...)
}

// Libraries returns the records in insertion order.
func (s *Set) Libraries() []*Library {
	libs := make([]*Library, len(s.ids))
	for i, id := range s.ids {
		libs[i] = s.byID[id]
	}
	return libs
}
