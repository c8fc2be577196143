// Package index defines read-only access to an inverted index and its
// positional postings, the set algebra used to combine postings, and an
// immutable in-memory implementation that can be swapped atomically when the
// index source changes.
package index

// PostingsAccess looks up the documents containing a term.
//
// Lookup returns an empty set for unknown terms, never nil-with-error.
// Callers must treat the returned set as read-only.
type PostingsAccess interface {
	Lookup(term string) DocSet
	AllTerms() []string
}

// PositionalAccess looks up the token offsets at which a term occurs, keyed
// by document ID. Unknown terms yield an empty map. Offsets are expected in
// ascending order but callers must not rely on it.
type PositionalAccess interface {
	Positions(term string) map[string][]int
}

// Universe is the union of the postings of every indexed term, i.e. every
// document known to idx.
func Universe(idx PostingsAccess) DocSet {
	all := make(DocSet)
	for _, term := range idx.AllTerms() {
		for id := range idx.Lookup(term) {
			all[id] = struct{}{}
		}
	}
	return all
}
