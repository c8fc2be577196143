package index

import "sort"

// DocSet is an unordered, deduplicated set of document IDs. Every query
// evaluation returns a freshly allocated DocSet owned by the caller.
type DocSet map[string]struct{}

// NewDocSet builds a set from the given IDs.
func NewDocSet(ids ...string) DocSet {
	s := make(DocSet, len(ids))
	for _, id := range ids {
		s[id] = struct{}{}
	}
	return s
}

func (s DocSet) Add(id string) {
	s[id] = struct{}{}
}

func (s DocSet) Contains(id string) bool {
	_, ok := s[id]
	return ok
}

func (s DocSet) Len() int {
	return len(s)
}

// Clone returns an independent copy of s.
func (s DocSet) Clone() DocSet {
	out := make(DocSet, len(s))
	for id := range s {
		out[id] = struct{}{}
	}
	return out
}

// Intersect returns a new set with the IDs present in both s and other.
// It iterates the smaller operand.
func (s DocSet) Intersect(other DocSet) DocSet {
	small, large := s, other
	if len(large) < len(small) {
		small, large = large, small
	}
	out := make(DocSet, len(small))
	for id := range small {
		if _, ok := large[id]; ok {
			out[id] = struct{}{}
		}
	}
	return out
}

// Union returns a new set with the IDs present in either s or other.
func (s DocSet) Union(other DocSet) DocSet {
	out := make(DocSet, len(s)+len(other))
	for id := range s {
		out[id] = struct{}{}
	}
	for id := range other {
		out[id] = struct{}{}
	}
	return out
}

// Difference returns a new set with the IDs of s that are not in other.
func (s DocSet) Difference(other DocSet) DocSet {
	out := make(DocSet, len(s))
	for id := range s {
		if _, ok := other[id]; !ok {
			out[id] = struct{}{}
		}
	}
	return out
}

// Equal reports whether both sets hold exactly the same IDs.
func (s DocSet) Equal(other DocSet) bool {
	if len(s) != len(other) {
		return false
	}
	for id := range s {
		if _, ok := other[id]; !ok {
			return false
		}
	}
	return true
}

// Sorted returns the IDs in ascending order. The result is never nil so it
// encodes as an empty JSON array.
func (s DocSet) Sorted() []string {
	ids := make([]string, 0, len(s))
	for id := range s {
		ids = append(ids, id)
	}
	sort.Strings(ids)
	return ids
}
