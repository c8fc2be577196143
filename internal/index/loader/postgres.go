package loader

import (
	"context"
	"database/sql"
	"fmt"

	"github.com/Adithya-Monish-Kumar-K/boolean-proximity-search/internal/index"
)

// Schema expected by PostgresSource:
//
//	CREATE TABLE term_postings  (term TEXT NOT NULL, doc_id TEXT NOT NULL);
//	CREATE TABLE term_positions (term TEXT NOT NULL, doc_id TEXT NOT NULL, position INTEGER NOT NULL);
const (
	selectPostings  = `SELECT term, doc_id FROM term_postings ORDER BY term, doc_id`
	selectPositions = `SELECT term, doc_id, position FROM term_positions ORDER BY term, doc_id, position`
)

// Querier is the subset of *sql.DB the Postgres source needs.
type Querier interface {
	QueryContext(ctx context.Context, query string, args ...any) (*sql.Rows, error)
}

// PostgresSource reads postings and positions from relational tables.
type PostgresSource struct {
	db Querier
}

func NewPostgresSource(db Querier) *PostgresSource {
	return &PostgresSource{db: db}
}

func (p *PostgresSource) Name() string { return "postgres" }

func (p *PostgresSource) LoadPostings(ctx context.Context) ([]index.TermEntry, error) {
	rows, err := p.db.QueryContext(ctx, selectPostings)
	if err != nil {
		return nil, fmt.Errorf("querying term_postings: %w", err)
	}
	defer rows.Close()

	entries := make([]index.TermEntry, 0)
	for rows.Next() {
		var term, docID string
		if err := rows.Scan(&term, &docID); err != nil {
			return nil, fmt.Errorf("scanning term_postings row: %w", err)
		}
		entries = appendPosting(entries, term, index.Posting{DocID: docID})
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterating term_postings: %w", err)
	}
	return entries, nil
}

func (p *PostgresSource) LoadPositions(ctx context.Context) ([]index.TermEntry, error) {
	rows, err := p.db.QueryContext(ctx, selectPositions)
	if err != nil {
		return nil, fmt.Errorf("querying term_positions: %w", err)
	}
	defer rows.Close()

	entries := make([]index.TermEntry, 0)
	for rows.Next() {
		var (
			term, docID string
			position    int
		)
		if err := rows.Scan(&term, &docID, &position); err != nil {
			return nil, fmt.Errorf("scanning term_positions row: %w", err)
		}
		if position < 0 {
			return nil, fmt.Errorf("term %q doc %q: negative position %d", term, docID, position)
		}
		entries = appendPosition(entries, term, docID, position)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterating term_positions: %w", err)
	}
	return entries, nil
}

// appendPosting relies on rows arriving ordered by term.
func appendPosting(entries []index.TermEntry, term string, p index.Posting) []index.TermEntry {
	if n := len(entries); n > 0 && entries[n-1].Term == term {
		entries[n-1].Postings = append(entries[n-1].Postings, p)
		return entries
	}
	return append(entries, index.TermEntry{Term: term, Postings: index.PostingList{p}})
}

// appendPosition relies on rows arriving ordered by term then document.
func appendPosition(entries []index.TermEntry, term, docID string, position int) []index.TermEntry {
	if n := len(entries); n > 0 && entries[n-1].Term == term {
		postings := entries[n-1].Postings
		if m := len(postings); m > 0 && postings[m-1].DocID == docID {
			postings[m-1].Positions = append(postings[m-1].Positions, position)
			return entries
		}
		entries[n-1].Postings = append(postings, index.Posting{DocID: docID, Positions: []int{position}})
		return entries
	}
	return append(entries, index.TermEntry{
		Term:     term,
		Postings: index.PostingList{{DocID: docID, Positions: []int{position}}},
	})
}
