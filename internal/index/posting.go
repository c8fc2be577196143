package index

// Posting is one document's entry in a term's postings. Positions is nil when
// the source carries no positional data for the term.
type Posting struct {
	DocID     string `json:"doc_id"`
	Positions []int  `json:"positions,omitempty"`
}

type PostingList []Posting

// TermEntry groups every posting of a single term, the unit produced by the
// index loaders.
type TermEntry struct {
	Term     string
	Postings PostingList
}

// DocIDs returns the document IDs of the list in order.
func (pl PostingList) DocIDs() []string {
	ids := make([]string, 0, len(pl))
	for _, p := range pl {
		ids = append(ids, p.DocID)
	}
	return ids
}

// Stats summarises an index snapshot.
type Stats struct {
	Terms           int `json:"terms"`
	PositionalTerms int `json:"positional_terms"`
	Documents       int `json:"documents"`
}
