package sink

import (
	"context"
	"database/sql"
	"fmt"
	"log/slog"

	"github.com/Adithya-Monish-Kumar-K/boolean-proximity-search/internal/index"
)

// TxRunner runs fn inside a transaction; *postgres.Client satisfies it.
type TxRunner interface {
	InTx(ctx context.Context, fn func(tx *sql.Tx) error) error
}

// PostgresSink replaces the term_postings and term_positions tables read by
// loader.PostgresSource in a single transaction.
type PostgresSink struct {
	db     TxRunner
	logger *slog.Logger
}

func NewPostgresSink(db TxRunner) *PostgresSink {
	return &PostgresSink{
		db:     db,
		logger: slog.Default().With("component", "postgres-sink"),
	}
}

func (p *PostgresSink) Name() string { return "postgres" }

func (p *PostgresSink) Write(ctx context.Context, postings, positions []index.TermEntry) error {
	rows := 0
	err := p.db.InTx(ctx, func(tx *sql.Tx) error {
		if _, err := tx.ExecContext(ctx, `DELETE FROM term_postings`); err != nil {
			return fmt.Errorf("clearing term_postings: %w", err)
		}
		if _, err := tx.ExecContext(ctx, `DELETE FROM term_positions`); err != nil {
			return fmt.Errorf("clearing term_positions: %w", err)
		}

		insertPosting, err := tx.PrepareContext(ctx, `INSERT INTO term_postings (term, doc_id) VALUES ($1, $2)`)
		if err != nil {
			return fmt.Errorf("preparing postings insert: %w", err)
		}
		defer insertPosting.Close()
		for _, entry := range postings {
			for _, posting := range entry.Postings {
				if _, err := insertPosting.ExecContext(ctx, entry.Term, posting.DocID); err != nil {
					return fmt.Errorf("inserting posting %q/%q: %w", entry.Term, posting.DocID, err)
				}
				rows++
			}
		}

		insertPosition, err := tx.PrepareContext(ctx, `INSERT INTO term_positions (term, doc_id, position) VALUES ($1, $2, $3)`)
		if err != nil {
			return fmt.Errorf("preparing positions insert: %w", err)
		}
		defer insertPosition.Close()
		for _, entry := range positions {
			for _, posting := range entry.Postings {
				for _, off := range posting.Positions {
					if _, err := insertPosition.ExecContext(ctx, entry.Term, posting.DocID, off); err != nil {
						return fmt.Errorf("inserting position %q/%q: %w", entry.Term, posting.DocID, err)
					}
					rows++
				}
			}
		}
		return nil
	})
	if err != nil {
		return err
	}
	p.logger.Info("index written", "rows", rows)
	return nil
}
