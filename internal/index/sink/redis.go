package sink

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"

	"github.com/Adithya-Monish-Kumar-K/boolean-proximity-search/internal/index"
)

// RedisWriter is the subset of the Redis client the Redis sink needs.
type RedisWriter interface {
	ScanKeys(ctx context.Context, pattern string) ([]string, error)
	SAdd(ctx context.Context, key string, members ...string) error
	HSet(ctx context.Context, key, field, value string) error
	Del(ctx context.Context, keys ...string) error
}

// RedisSink writes the key layout read by loader.RedisSource.
type RedisSink struct {
	client RedisWriter
	prefix string
	logger *slog.Logger
}

func NewRedisSink(client RedisWriter, prefix string) *RedisSink {
	return &RedisSink{
		client: client,
		prefix: prefix,
		logger: slog.Default().With("component", "redis-sink"),
	}
}

func (r *RedisSink) Name() string { return "redis" }

func (r *RedisSink) Write(ctx context.Context, postings, positions []index.TermEntry) error {
	for _, kind := range []string{"postings:", "positions:"} {
		stale, err := r.client.ScanKeys(ctx, r.prefix+kind+"*")
		if err != nil {
			return err
		}
		if len(stale) > 0 {
			if err := r.client.Del(ctx, stale...); err != nil {
				return fmt.Errorf("clearing %s keys: %w", kind, err)
			}
		}
	}

	written := 0
	for _, entry := range postings {
		ids := entry.Postings.DocIDs()
		if len(ids) == 0 {
			// Redis has no empty sets.
			continue
		}
		if err := r.client.SAdd(ctx, r.prefix+"postings:"+entry.Term, ids...); err != nil {
			return fmt.Errorf("writing postings for %q: %w", entry.Term, err)
		}
		written++
	}
	for _, entry := range positions {
		key := r.prefix + "positions:" + entry.Term
		for _, p := range entry.Postings {
			offsets := p.Positions
			if offsets == nil {
				offsets = []int{}
			}
			value, err := json.Marshal(offsets)
			if err != nil {
				return fmt.Errorf("encoding offsets for %q/%q: %w", entry.Term, p.DocID, err)
			}
			if err := r.client.HSet(ctx, key, p.DocID, string(value)); err != nil {
				return fmt.Errorf("writing positions for %q: %w", entry.Term, err)
			}
		}
	}
	r.logger.Info("index written",
		"prefix", r.prefix,
		"posting_terms", written,
		"positional_terms", len(positions),
	)
	return nil
}
