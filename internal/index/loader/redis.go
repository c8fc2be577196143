package loader

import (
	"context"
	"encoding/json"
	"fmt"
	"sort"
	"strings"

	"github.com/Adithya-Monish-Kumar-K/boolean-proximity-search/internal/index"
)

// RedisReader is the subset of the Redis client the Redis source needs.
type RedisReader interface {
	ScanKeys(ctx context.Context, pattern string) ([]string, error)
	SMembers(ctx context.Context, key string) ([]string, error)
	HGetAll(ctx context.Context, key string) (map[string]string, error)
}

// RedisSource reads postings stored as sets at <prefix>postings:<term> and
// positions stored as hashes at <prefix>positions:<term>, one field per
// document holding a JSON array of offsets.
type RedisSource struct {
	client RedisReader
	prefix string
}

func NewRedisSource(client RedisReader, prefix string) *RedisSource {
	return &RedisSource{client: client, prefix: prefix}
}

func (r *RedisSource) Name() string { return "redis" }

func (r *RedisSource) PostingsKey(term string) string {
	return r.prefix + "postings:" + term
}

func (r *RedisSource) PositionsKey(term string) string {
	return r.prefix + "positions:" + term
}

func (r *RedisSource) LoadPostings(ctx context.Context) ([]index.TermEntry, error) {
	base := r.prefix + "postings:"
	keys, err := r.client.ScanKeys(ctx, base+"*")
	if err != nil {
		return nil, err
	}
	sort.Strings(keys)
	entries := make([]index.TermEntry, 0, len(keys))
	for _, key := range keys {
		members, err := r.client.SMembers(ctx, key)
		if err != nil {
			return nil, fmt.Errorf("reading %s: %w", key, err)
		}
		sort.Strings(members)
		postings := make(index.PostingList, 0, len(members))
		for _, m := range members {
			postings = append(postings, index.Posting{DocID: m})
		}
		entries = append(entries, index.TermEntry{Term: strings.TrimPrefix(key, base), Postings: postings})
	}
	return entries, nil
}

func (r *RedisSource) LoadPositions(ctx context.Context) ([]index.TermEntry, error) {
	base := r.prefix + "positions:"
	keys, err := r.client.ScanKeys(ctx, base+"*")
	if err != nil {
		return nil, err
	}
	sort.Strings(keys)
	entries := make([]index.TermEntry, 0, len(keys))
	for _, key := range keys {
		fields, err := r.client.HGetAll(ctx, key)
		if err != nil {
			return nil, fmt.Errorf("reading %s: %w", key, err)
		}
		docIDs := make([]string, 0, len(fields))
		for id := range fields {
			docIDs = append(docIDs, id)
		}
		sort.Strings(docIDs)
		postings := make(index.PostingList, 0, len(fields))
		for _, id := range docIDs {
			var offsets []int
			if err := json.Unmarshal([]byte(fields[id]), &offsets); err != nil {
				return nil, &FormatError{Source: key, Msg: fmt.Sprintf("document %q: %v", id, err)}
			}
			for _, off := range offsets {
				if off < 0 {
					return nil, &FormatError{Source: key, Msg: fmt.Sprintf("document %q: negative offset %d", id, off)}
				}
			}
			if offsets == nil {
				offsets = []int{}
			}
			postings = append(postings, index.Posting{DocID: id, Positions: offsets})
		}
		entries = append(entries, index.TermEntry{Term: strings.TrimPrefix(key, base), Postings: postings})
	}
	return entries, nil
}
