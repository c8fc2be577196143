package index

import (
	"sort"
)

// MemoryIndex is an immutable in-memory inverted index with optional
// positional postings. It is safe for concurrent reads without locking; build
// one with a Builder.
type MemoryIndex struct {
	postings  map[string]DocSet
	positions map[string]map[string][]int
	terms     []string
	docCount  int
}

// Lookup returns the shared postings set for term. The set must not be
// modified.
func (m *MemoryIndex) Lookup(term string) DocSet {
	if docs, ok := m.postings[term]; ok {
		return docs
	}
	return DocSet{}
}

// AllTerms returns the indexed terms in ascending order.
func (m *MemoryIndex) AllTerms() []string {
	out := make([]string, len(m.terms))
	copy(out, m.terms)
	return out
}

// Positions returns the shared per-document offsets for term. The map and its
// slices must not be modified.
func (m *MemoryIndex) Positions(term string) map[string][]int {
	if docs, ok := m.positions[term]; ok {
		return docs
	}
	return map[string][]int{}
}

func (m *MemoryIndex) Stats() Stats {
	return Stats{
		Terms:           len(m.postings),
		PositionalTerms: len(m.positions),
		Documents:       m.docCount,
	}
}

// Builder accumulates postings and positions before freezing them into a
// MemoryIndex. A Builder is not safe for concurrent use.
type Builder struct {
	postings  map[string]DocSet
	positions map[string]map[string][]int
}

func NewBuilder() *Builder {
	return &Builder{
		postings:  make(map[string]DocSet),
		positions: make(map[string]map[string][]int),
	}
}

// AddPostings records that each of docIDs contains term.
func (b *Builder) AddPostings(term string, docIDs ...string) {
	docs, ok := b.postings[term]
	if !ok {
		docs = make(DocSet, len(docIDs))
		b.postings[term] = docs
	}
	for _, id := range docIDs {
		docs[id] = struct{}{}
	}
}

// AddPositions records the offsets of term inside docID. Offsets are appended
// to any previously recorded for the same pair.
func (b *Builder) AddPositions(term, docID string, offsets ...int) {
	docs, ok := b.positions[term]
	if !ok {
		docs = make(map[string][]int)
		b.positions[term] = docs
	}
	docs[docID] = append(docs[docID], offsets...)
}

// AddEntries loads loader output. Postings carrying positions populate both
// the inverted and the positional view. Terms with no postings are still
// indexed.
func (b *Builder) AddEntries(entries []TermEntry) {
	for _, entry := range entries {
		b.AddPostings(entry.Term)
		for _, p := range entry.Postings {
			b.AddPostings(entry.Term, p.DocID)
			if p.Positions != nil {
				b.AddPositions(entry.Term, p.DocID, p.Positions...)
			}
		}
	}
}

// AddPositionalEntries loads entries into the positional view only, for
// sources that keep the inverted and positional indexes apart.
func (b *Builder) AddPositionalEntries(entries []TermEntry) {
	for _, entry := range entries {
		if _, ok := b.positions[entry.Term]; !ok {
			b.positions[entry.Term] = make(map[string][]int)
		}
		for _, p := range entry.Postings {
			b.AddPositions(entry.Term, p.DocID, p.Positions...)
		}
	}
}

// Build freezes the accumulated data. Offsets are sorted ascending and the
// Builder must not be used afterwards.
func (b *Builder) Build() *MemoryIndex {
	terms := make([]string, 0, len(b.postings))
	docs := make(DocSet)
	for term, set := range b.postings {
		terms = append(terms, term)
		for id := range set {
			docs[id] = struct{}{}
		}
	}
	sort.Strings(terms)
	for _, byDoc := range b.positions {
		for id, offsets := range byDoc {
			sort.Ints(offsets)
			docs[id] = struct{}{}
		}
	}
	m := &MemoryIndex{
		postings:  b.postings,
		positions: b.positions,
		terms:     terms,
		docCount:  len(docs),
	}
	b.postings = nil
	b.positions = nil
	return m
}
