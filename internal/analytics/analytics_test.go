package analytics

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"sync"
	"testing"
	"time"

	"github.com/Adithya-Monish-Kumar-K/boolean-proximity-search/pkg/kafka"
)

type fakePublisher struct {
	mu      sync.Mutex
	batches [][]kafka.Event
}

func (f *fakePublisher) PublishBatch(_ context.Context, events []kafka.Event) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	cp := make([]kafka.Event, len(events))
	copy(cp, events)
	f.batches = append(f.batches, cp)
	return nil
}

func (f *fakePublisher) total() int {
	f.mu.Lock()
	defer f.mu.Unlock()
	n := 0
	for _, b := range f.batches {
		n += len(b)
	}
	return n
}

func TestCollectorFlushesOnBatchSize(t *testing.T) {
	pub := &fakePublisher{}
	c := NewCollector(pub, 100, 3, time.Hour)
	c.Start(context.Background())

	for i := 0; i < 3; i++ {
		c.Track(QueryEvent{Kind: "boolean", Query: "cat AND dog"})
	}
	deadline := time.Now().Add(2 * time.Second)
	for pub.total() < 3 && time.Now().Before(deadline) {
		time.Sleep(5 * time.Millisecond)
	}
	if got := pub.total(); got != 3 {
		t.Fatalf("expected 3 published events, got %d", got)
	}
	c.Close()
}

func TestCollectorCloseFlushesRemainder(t *testing.T) {
	pub := &fakePublisher{}
	c := NewCollector(pub, 100, 50, time.Hour)
	c.Start(context.Background())
	c.Track(QueryEvent{Kind: "proximity", Query: "cat dog"})
	c.Track(QueryEvent{Kind: "boolean", Query: "cat"})
	c.Close()

	if got := pub.total(); got != 2 {
		t.Fatalf("expected 2 events after close, got %d", got)
	}
	if key := pub.batches[0][0].Key; key != "proximity" {
		t.Errorf("expected events keyed by kind, got %q", key)
	}
}

func TestCollectorTrackAfterClose(t *testing.T) {
	pub := &fakePublisher{}
	c := NewCollector(pub, 100, 50, time.Hour)
	ctx, cancel := context.WithCancel(context.Background())
	c.Start(ctx)
	c.Track(QueryEvent{Kind: "boolean", Query: "cat"})
	cancel()
	c.Close()
	c.Close()

	c.Track(QueryEvent{Kind: "boolean", Query: "late"})
	if got := pub.total(); got != 1 {
		t.Errorf("expected 1 published event, got %d", got)
	}
}

func TestCollectorConcurrentTrackAndClose(t *testing.T) {
	c := NewCollector(&fakePublisher{}, 100, 10, time.Hour)
	c.Start(context.Background())
	var wg sync.WaitGroup
	for i := 0; i < 8; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			for j := 0; j < 100; j++ {
				c.Track(QueryEvent{Kind: "proximity"})
			}
		}()
	}
	c.Close()
	wg.Wait()
}

func TestCollectorDropsWhenFull(t *testing.T) {
	pub := &fakePublisher{}
	c := NewCollector(pub, 1, 10, time.Hour)
	// Not started: the second event cannot be buffered.
	c.Track(QueryEvent{Kind: "boolean"})
	c.Track(QueryEvent{Kind: "boolean"})
	if got := len(c.eventCh); got != 1 {
		t.Errorf("expected 1 buffered event, got %d", got)
	}
}

func TestAggregatorStats(t *testing.T) {
	agg := NewAggregator()
	agg.Record(QueryEvent{Kind: "boolean", Query: "cat", TotalHits: 2, LatencyMicros: 10})
	agg.Record(QueryEvent{Kind: "boolean", Query: "cat", TotalHits: 2, LatencyMicros: 30})
	agg.Record(QueryEvent{Kind: "proximity", Query: "cat dog", TotalHits: 0, LatencyMicros: 20})
	agg.Record(QueryEvent{Kind: "boolean", Query: "AND", ErrorKind: "malformed_query"})

	s := agg.Stats()
	if s.TotalQueries != 4 {
		t.Errorf("expected 4 total queries, got %d", s.TotalQueries)
	}
	if s.QueriesByKind["boolean"] != 3 || s.QueriesByKind["proximity"] != 1 {
		t.Errorf("unexpected per-kind counts: %v", s.QueriesByKind)
	}
	if s.InvalidQueries != 1 || s.ErrorsByKind["malformed_query"] != 1 {
		t.Errorf("unexpected invalid counts: %d %v", s.InvalidQueries, s.ErrorsByKind)
	}
	if s.ZeroResultCount != 1 {
		t.Errorf("expected 1 zero-result query, got %d", s.ZeroResultCount)
	}
	if s.AvgLatencyMicros != 20 {
		t.Errorf("expected avg latency 20, got %v", s.AvgLatencyMicros)
	}
	if len(s.TopQueries) == 0 || s.TopQueries[0].Query != "boolean: cat" || s.TopQueries[0].Count != 2 {
		t.Errorf("unexpected top queries: %v", s.TopQueries)
	}
	if len(s.ZeroResultQueries) != 1 || s.ZeroResultQueries[0].Query != "proximity: cat dog" {
		t.Errorf("unexpected zero-result queries: %v", s.ZeroResultQueries)
	}
}

func TestAggregatorLatencyWindowIsBounded(t *testing.T) {
	agg := NewAggregator()
	for i := 0; i < maxLatencySamples+10; i++ {
		agg.Record(QueryEvent{Kind: "boolean", Query: "q", TotalHits: 1, LatencyMicros: int64(i)})
	}
	if got := len(agg.latencies); got != maxLatencySamples {
		t.Errorf("expected %d samples, got %d", maxLatencySamples, got)
	}
}

func TestHandleEventSkipsGarbage(t *testing.T) {
	agg := NewAggregator()
	h := HandleEvent(agg)
	if err := h(context.Background(), nil, []byte("not json")); err != nil {
		t.Fatalf("expected garbage to be skipped, got %v", err)
	}
	value, _ := json.Marshal(QueryEvent{Kind: "boolean", Query: "cat", TotalHits: 1})
	if err := h(context.Background(), []byte("boolean"), value); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if got := agg.Stats().TotalQueries; got != 1 {
		t.Errorf("expected 1 recorded query, got %d", got)
	}
}

func TestHandlerStats(t *testing.T) {
	agg := NewAggregator()
	agg.Record(QueryEvent{Kind: "boolean", Query: "cat", TotalHits: 1})
	rec := httptest.NewRecorder()
	NewHandler(agg).Stats(rec, httptest.NewRequest(http.MethodGet, "/api/v1/analytics", nil))

	if rec.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d", rec.Code)
	}
	var body AggregatedStats
	if err := json.NewDecoder(rec.Body).Decode(&body); err != nil {
		t.Fatalf("decoding body: %v", err)
	}
	if body.TotalQueries != 1 {
		t.Errorf("expected 1 query, got %d", body.TotalQueries)
	}
}

func TestHandlerStatsTop(t *testing.T) {
	agg := NewAggregator()
	for _, q := range []string{"cat", "dog", "bird"} {
		agg.Record(QueryEvent{Kind: "boolean", Query: q, TotalHits: 1})
	}
	h := NewHandler(agg)

	rec := httptest.NewRecorder()
	h.Stats(rec, httptest.NewRequest(http.MethodGet, "/api/v1/analytics?top=2", nil))
	var body AggregatedStats
	if err := json.NewDecoder(rec.Body).Decode(&body); err != nil {
		t.Fatalf("decoding body: %v", err)
	}
	if len(body.TopQueries) != 2 {
		t.Errorf("expected 2 top queries, got %d", len(body.TopQueries))
	}

	rec = httptest.NewRecorder()
	h.Stats(rec, httptest.NewRequest(http.MethodGet, "/api/v1/analytics?top=x", nil))
	if rec.Code != http.StatusBadRequest {
		t.Errorf("expected 400 for bad top, got %d", rec.Code)
	}
}
