package index

import (
	"context"
	"fmt"
	"log/slog"
	"sync/atomic"
	"time"

	"golang.org/x/sync/singleflight"
)

// LoadFunc produces a fresh snapshot from the configured index source.
type LoadFunc func(ctx context.Context) (*MemoryIndex, error)

// Store holds the active index snapshot. Readers take the current snapshot
// with Current and keep using it for the whole query; Reload swaps in a new
// one without blocking them.
type Store struct {
	current  atomic.Pointer[MemoryIndex]
	loadedAt atomic.Int64
	load     LoadFunc
	group    singleflight.Group
	logger   *slog.Logger
}

func NewStore(load LoadFunc) *Store {
	return &Store{
		load:   load,
		logger: slog.Default().With("component", "index-store"),
	}
}

// Current returns the active snapshot, or nil before the first successful
// load.
func (s *Store) Current() *MemoryIndex {
	return s.current.Load()
}

// LoadedAt reports when the active snapshot was installed.
func (s *Store) LoadedAt() time.Time {
	ns := s.loadedAt.Load()
	if ns == 0 {
		return time.Time{}
	}
	return time.Unix(0, ns)
}

// Set installs idx directly, bypassing the loader.
func (s *Store) Set(idx *MemoryIndex) {
	s.current.Store(idx)
	s.loadedAt.Store(time.Now().UnixNano())
}

// Reload runs the loader and installs its result. Concurrent calls share a
// single load, which is detached from any one caller's cancellation; a caller
// whose ctx ends stops waiting but the shared load carries on. On failure the
// previous snapshot stays active.
func (s *Store) Reload(ctx context.Context) (Stats, error) {
	loadCtx := context.WithoutCancel(ctx)
	ch := s.group.DoChan("reload", func() (interface{}, error) {
		start := time.Now()
		idx, err := s.load(loadCtx)
		if err != nil {
			return nil, err
		}
		s.Set(idx)
		stats := idx.Stats()
		s.logger.Info("index snapshot installed",
			"terms", stats.Terms,
			"positional_terms", stats.PositionalTerms,
			"documents", stats.Documents,
			"duration_ms", time.Since(start).Milliseconds(),
		)
		return stats, nil
	})
	var res singleflight.Result
	select {
	case res = <-ch:
	case <-ctx.Done():
		return Stats{}, fmt.Errorf("waiting for index reload: %w", ctx.Err())
	}
	v, err, shared := res.Val, res.Err, res.Shared
	if err != nil {
		s.logger.Error("index reload failed, keeping previous snapshot", "error", err)
		return Stats{}, fmt.Errorf("reloading index: %w", err)
	}
	if shared {
		s.logger.Debug("reload joined an in-flight load")
	}
	return v.(Stats), nil
}
