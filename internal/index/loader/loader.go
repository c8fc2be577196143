// Package loader materialises index snapshots from external sources: the
// line-oriented "term : literal" files, Postgres tables, or Redis sets and
// hashes. Every source is schema-checked while it is read; malformed input is
// rejected with the file and line (or key) that caused it and nothing in a
// source is ever executed.
package loader

import (
	"context"
	"fmt"
	"io"
	"log/slog"
	"time"

	"github.com/Adithya-Monish-Kumar-K/boolean-proximity-search/internal/index"
	"github.com/Adithya-Monish-Kumar-K/boolean-proximity-search/pkg/config"
	apperrors "github.com/Adithya-Monish-Kumar-K/boolean-proximity-search/pkg/errors"
	"github.com/Adithya-Monish-Kumar-K/boolean-proximity-search/pkg/postgres"
	pkgredis "github.com/Adithya-Monish-Kumar-K/boolean-proximity-search/pkg/redis"
	"github.com/Adithya-Monish-Kumar-K/boolean-proximity-search/pkg/resilience"
	"golang.org/x/sync/errgroup"
)

// Source yields the term entries of an index. LoadPostings feeds the
// inverted view; LoadPositions feeds the positional view.
type Source interface {
	Name() string
	LoadPostings(ctx context.Context) ([]index.TermEntry, error)
	LoadPositions(ctx context.Context) ([]index.TermEntry, error)
}

// Load reads both views of src concurrently and freezes them into an
// immutable snapshot.
func Load(ctx context.Context, src Source) (*index.MemoryIndex, error) {
	start := time.Now()
	var postings, positions []index.TermEntry
	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		var err error
		postings, err = src.LoadPostings(gctx)
		if err != nil {
			return fmt.Errorf("loading postings from %s: %w", src.Name(), err)
		}
		return nil
	})
	g.Go(func() error {
		var err error
		positions, err = src.LoadPositions(gctx)
		if err != nil {
			return fmt.Errorf("loading positions from %s: %w", src.Name(), err)
		}
		return nil
	})
	if err := g.Wait(); err != nil {
		return nil, err
	}

	b := index.NewBuilder()
	b.AddEntries(postings)
	b.AddPositionalEntries(positions)
	idx := b.Build()
	stats := idx.Stats()
	slog.Default().With("component", "index-loader").Info("index loaded",
		"source", src.Name(),
		"terms", stats.Terms,
		"positional_terms", stats.PositionalTerms,
		"documents", stats.Documents,
		"duration_ms", time.Since(start).Milliseconds(),
	)
	return idx, nil
}

type nopCloser struct{}

func (nopCloser) Close() error { return nil }

// Open builds the Source selected by cfg.Index.Source. The returned Closer
// releases any connection the source holds.
func Open(ctx context.Context, cfg *config.Config) (Source, io.Closer, error) {
	switch cfg.Index.Source {
	case "file":
		return &FileSource{
			InvertedPath:   cfg.Index.InvertedPath,
			PositionalPath: cfg.Index.PositionalPath,
		}, nopCloser{}, nil
	case "postgres":
		client, err := postgres.New(ctx, cfg.Postgres)
		if err != nil {
			return nil, nil, fmt.Errorf("connecting index source: %w", err)
		}
		return NewPostgresSource(client.DB), client, nil
	case "redis":
		client, err := pkgredis.NewClient(ctx, cfg.Redis)
		if err != nil {
			return nil, nil, fmt.Errorf("connecting index source: %w", err)
		}
		return NewRedisSource(client, cfg.Redis.KeyPrefix), client, nil
	default:
		return nil, nil, fmt.Errorf("%w: %q", apperrors.ErrUnknownSource, cfg.Index.Source)
	}
}

// LoadFunc adapts src to index.LoadFunc. Each load is bounded by timeout
// when it is positive and, when breaker is non-nil, refused outright while
// the source keeps failing.
func LoadFunc(src Source, timeout time.Duration, breaker *resilience.CircuitBreaker) index.LoadFunc {
	return func(ctx context.Context) (*index.MemoryIndex, error) {
		var idx *index.MemoryIndex
		load := func() error {
			return resilience.WithTimeout(ctx, timeout, "index-load", func(ctx context.Context) error {
				var err error
				idx, err = Load(ctx, src)
				return err
			})
		}
		var err error
		if breaker != nil {
			err = breaker.Execute(load)
		} else {
			err = load()
		}
		if err != nil {
			return nil, err
		}
		return idx, nil
	}
}
