// Package sink writes index entries into the stores the loader reads from, so
// files produced offline can be published to Redis or Postgres. Each write
// replaces the previous contents of the store.
package sink

import (
	"context"

	"github.com/Adithya-Monish-Kumar-K/boolean-proximity-search/internal/index"
)

// Sink replaces a store's index data with postings and positions.
type Sink interface {
	Name() string
	Write(ctx context.Context, postings, positions []index.TermEntry) error
}
