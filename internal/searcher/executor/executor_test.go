package executor

import (
	"context"
	"errors"
	"fmt"
	"reflect"
	"sync"
	"testing"

	"github.com/Adithya-Monish-Kumar-K/boolean-proximity-search/internal/analytics"
	"github.com/Adithya-Monish-Kumar-K/boolean-proximity-search/internal/index"
	"github.com/Adithya-Monish-Kumar-K/boolean-proximity-search/internal/query"
	"github.com/Adithya-Monish-Kumar-K/boolean-proximity-search/internal/stemmer"
	apperrors "github.com/Adithya-Monish-Kumar-K/boolean-proximity-search/pkg/errors"
	"github.com/Adithya-Monish-Kumar-K/boolean-proximity-search/pkg/health"
	"github.com/Adithya-Monish-Kumar-K/boolean-proximity-search/pkg/logger"
	"github.com/Adithya-Monish-Kumar-K/boolean-proximity-search/pkg/metrics"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/testutil"
)

type recordingTracker struct {
	mu     sync.Mutex
	events []analytics.QueryEvent
}

func (r *recordingTracker) Track(e analytics.QueryEvent) {
	r.mu.Lock()
	r.events = append(r.events, e)
	r.mu.Unlock()
}

func sampleIndex() *index.MemoryIndex {
	b := index.NewBuilder()
	b.AddPostings("cat", "doc3", "doc1", "doc2")
	b.AddPostings("dog", "doc2", "doc4")
	b.AddPositions("cat", "doc1", 1, 5, 9)
	b.AddPositions("dog", "doc1", 2)
	b.AddPositions("cat", "doc2", 3)
	b.AddPositions("dog", "doc2", 40)
	return b.Build()
}

func newTestExecutor(t *testing.T, idx *index.MemoryIndex, load index.LoadFunc) (*Executor, *metrics.Metrics, *recordingTracker) {
	t.Helper()
	if load == nil {
		load = func(context.Context) (*index.MemoryIndex, error) { return sampleIndex(), nil }
	}
	store := index.NewStore(load)
	if idx != nil {
		store.Set(idx)
	}
	m := metrics.NewWithRegisterer(prometheus.NewRegistry())
	tracker := &recordingTracker{}
	exec := New(Options{
		Parser:  query.NewParser(query.Options{MaxTokens: query.DefaultMaxTokens, Stemmer: stemmer.Identity{}}),
		Store:   store,
		Metrics: m,
		Tracker: tracker,
	})
	return exec, m, tracker
}

func TestBooleanReturnsSortedDocuments(t *testing.T) {
	exec, m, tracker := newTestExecutor(t, sampleIndex(), nil)
	res, err := exec.Boolean(context.Background(), "cat OR dog")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	want := []string{"doc1", "doc2", "doc3", "doc4"}
	if !reflect.DeepEqual(res.Documents, want) {
		t.Errorf("expected %v, got %v", want, res.Documents)
	}
	if res.TotalHits != 4 || res.Kind != KindBoolean {
		t.Errorf("unexpected result: %+v", res)
	}
	if !reflect.DeepEqual(res.Operators, []string{"OR"}) {
		t.Errorf("unexpected operators: %v", res.Operators)
	}
	if got := testutil.ToFloat64(m.QueriesTotal.WithLabelValues("boolean", metrics.OutcomeHit)); got != 1 {
		t.Errorf("expected 1 hit recorded, got %v", got)
	}
	if len(tracker.events) != 1 || tracker.events[0].Outcome != metrics.OutcomeHit {
		t.Errorf("unexpected analytics events: %+v", tracker.events)
	}
}

func TestBooleanZeroResultsIsNotAnError(t *testing.T) {
	exec, m, _ := newTestExecutor(t, sampleIndex(), nil)
	res, err := exec.Boolean(context.Background(), "cat AND fish")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if res.Documents == nil || len(res.Documents) != 0 {
		t.Errorf("expected empty non-nil documents, got %#v", res.Documents)
	}
	if got := testutil.ToFloat64(m.QueriesTotal.WithLabelValues("boolean", metrics.OutcomeZeroResult)); got != 1 {
		t.Errorf("expected zero_result recorded, got %v", got)
	}
}

func TestBooleanValidationError(t *testing.T) {
	exec, m, tracker := newTestExecutor(t, sampleIndex(), nil)
	_, err := exec.Boolean(context.Background(), "cat AND")
	if !errors.Is(err, query.ErrMalformedQuery) {
		t.Fatalf("expected ErrMalformedQuery, got %v", err)
	}
	if !errors.Is(err, apperrors.ErrInvalidInput) {
		t.Error("expected validation error to wrap ErrInvalidInput")
	}
	if got := testutil.ToFloat64(m.ValidationErrorsTotal.WithLabelValues("malformed_query")); got != 1 {
		t.Errorf("expected malformed_query counted, got %v", got)
	}
	if len(tracker.events) != 1 || tracker.events[0].ErrorKind != "malformed_query" {
		t.Errorf("unexpected analytics events: %+v", tracker.events)
	}
}

func TestValidationPrecedesIndexAvailability(t *testing.T) {
	exec, _, _ := newTestExecutor(t, nil, nil)
	if _, err := exec.Boolean(context.Background(), ""); !errors.Is(err, query.ErrEmptyQuery) {
		t.Errorf("expected ErrEmptyQuery, got %v", err)
	}
	if _, err := exec.Boolean(context.Background(), "cat"); !errors.Is(err, apperrors.ErrIndexUnavailable) {
		t.Errorf("expected ErrIndexUnavailable, got %v", err)
	}
	if _, err := exec.Proximity(context.Background(), "cat dog", 2); !errors.Is(err, apperrors.ErrIndexUnavailable) {
		t.Errorf("expected ErrIndexUnavailable, got %v", err)
	}
}

func TestProximity(t *testing.T) {
	exec, _, tracker := newTestExecutor(t, sampleIndex(), nil)
	ctx := logger.WithRequestID(context.Background(), "req-7")
	res, err := exec.Proximity(ctx, "Cat DOG", 1)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if !reflect.DeepEqual(res.Documents, []string{"doc1"}) {
		t.Errorf("expected [doc1], got %v", res.Documents)
	}
	if !reflect.DeepEqual(res.Terms, []string{"cat", "dog"}) || res.MaxDistance != 1 {
		t.Errorf("unexpected result: %+v", res)
	}
	if tracker.events[0].RequestID != "req-7" {
		t.Errorf("expected request ID on event, got %q", tracker.events[0].RequestID)
	}
}

func TestProximityInvalidDistance(t *testing.T) {
	exec, _, _ := newTestExecutor(t, sampleIndex(), nil)
	if _, err := exec.Proximity(context.Background(), "cat dog", 0); !errors.Is(err, query.ErrInvalidDistance) {
		t.Fatalf("expected ErrInvalidDistance, got %v", err)
	}
}

func TestReloadIndexUpdatesGauges(t *testing.T) {
	exec, m, _ := newTestExecutor(t, nil, nil)
	stats, err := exec.ReloadIndex(context.Background())
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if stats.Terms != 2 {
		t.Errorf("expected 2 terms, got %d", stats.Terms)
	}
	if got := testutil.ToFloat64(m.IndexTerms); got != 2 {
		t.Errorf("expected index_terms 2, got %v", got)
	}
	if got := testutil.ToFloat64(m.IndexReloadsTotal.WithLabelValues("success")); got != 1 {
		t.Errorf("expected 1 successful reload, got %v", got)
	}
}

func TestReloadIndexFailureKeepsSnapshot(t *testing.T) {
	loadErr := errors.New("source down")
	exec, m, _ := newTestExecutor(t, sampleIndex(), func(context.Context) (*index.MemoryIndex, error) {
		return nil, loadErr
	})
	if _, err := exec.ReloadIndex(context.Background()); !errors.Is(err, loadErr) {
		t.Fatalf("expected load error, got %v", err)
	}
	if got := testutil.ToFloat64(m.IndexReloadsTotal.WithLabelValues("error")); got != 1 {
		t.Errorf("expected 1 failed reload, got %v", got)
	}
	if _, err := exec.Boolean(context.Background(), "cat"); err != nil {
		t.Errorf("expected previous snapshot to keep serving, got %v", err)
	}
}

func TestHealthCheck(t *testing.T) {
	exec, _, _ := newTestExecutor(t, nil, nil)
	if got := exec.HealthCheck()(context.Background()).Status; got != health.StatusDown {
		t.Errorf("expected down before load, got %s", got)
	}
	exec.store.Set(index.NewBuilder().Build())
	if got := exec.HealthCheck()(context.Background()).Status; got != health.StatusDegraded {
		t.Errorf("expected degraded for empty index, got %s", got)
	}
	exec.store.Set(sampleIndex())
	if got := exec.HealthCheck()(context.Background()).Status; got != health.StatusUp {
		t.Errorf("expected up, got %s", got)
	}
}

func TestConcurrentQueriesDuringReload(t *testing.T) {
	exec, _, _ := newTestExecutor(t, sampleIndex(), nil)
	var wg sync.WaitGroup
	for i := 0; i < 8; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			for j := 0; j < 50; j++ {
				res, err := exec.Boolean(context.Background(), "cat AND dog")
				if err != nil {
					t.Errorf("unexpected error: %v", err)
					return
				}
				if !reflect.DeepEqual(res.Documents, []string{"doc2"}) {
					t.Errorf("unexpected documents: %v", res.Documents)
					return
				}
			}
		}()
	}
	for i := 0; i < 5; i++ {
		if _, err := exec.ReloadIndex(context.Background()); err != nil {
			t.Fatalf("reload: %v", err)
		}
	}
	wg.Wait()
}

func BenchmarkExecutorBoolean(b *testing.B) {
	builder := index.NewBuilder()
	for i := 0; i < 10000; i++ {
		doc := fmt.Sprintf("doc-%05d", i)
		builder.AddPostings("search", doc)
		if i%2 == 0 {
			builder.AddPostings("analytics", doc)
		}
		if i%7 == 0 {
			builder.AddPostings("deprecated", doc)
		}
	}
	store := index.NewStore(nil)
	store.Set(builder.Build())
	exec := New(Options{
		Parser: query.NewParser(query.Options{Stemmer: stemmer.Identity{}}),
		Store:  store,
	})
	ctx := context.Background()

	b.ReportAllocs()
	b.ResetTimer()
	for i := 0; i < b.N; i++ {
		if _, err := exec.Boolean(ctx, "search AND analytics NOT deprecated"); err != nil {
			b.Fatal(err)
		}
	}
}
