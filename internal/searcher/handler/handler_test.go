package handler

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"net/http/httptest"
	"net/url"
	"reflect"
	"testing"

	"github.com/Adithya-Monish-Kumar-K/boolean-proximity-search/internal/index"
	"github.com/Adithya-Monish-Kumar-K/boolean-proximity-search/internal/query"
	"github.com/Adithya-Monish-Kumar-K/boolean-proximity-search/internal/searcher/executor"
	"github.com/Adithya-Monish-Kumar-K/boolean-proximity-search/internal/stemmer"
	"github.com/Adithya-Monish-Kumar-K/boolean-proximity-search/pkg/resilience"
)

func newTestHandler(t *testing.T, loaded bool, load index.LoadFunc) *Handler {
	t.Helper()
	if load == nil {
		load = func(context.Context) (*index.MemoryIndex, error) { return sampleIndex(), nil }
	}
	store := index.NewStore(load)
	if loaded {
		store.Set(sampleIndex())
	}
	exec := executor.New(executor.Options{
		Parser: query.NewParser(query.Options{MaxTokens: query.DefaultMaxTokens, Stemmer: stemmer.Porter{}}),
		Store:  store,
	})
	return New(exec)
}

func sampleIndex() *index.MemoryIndex {
	b := index.NewBuilder()
	b.AddPostings("cat", "doc1", "doc2", "doc3")
	b.AddPostings("dog", "doc2", "doc4")
	b.AddPostings("run", "doc5")
	b.AddPositions("cat", "doc1", 1, 5, 9)
	b.AddPositions("dog", "doc1", 2)
	return b.Build()
}

func get(t *testing.T, h http.HandlerFunc, target string) *httptest.ResponseRecorder {
	t.Helper()
	rec := httptest.NewRecorder()
	h(rec, httptest.NewRequest(http.MethodGet, target, nil))
	return rec
}

func decode[T any](t *testing.T, rec *httptest.ResponseRecorder) T {
	t.Helper()
	var v T
	if err := json.NewDecoder(rec.Body).Decode(&v); err != nil {
		t.Fatalf("decoding response: %v", err)
	}
	return v
}

func TestBooleanEndpoint(t *testing.T) {
	h := newTestHandler(t, true, nil)
	tests := []struct {
		name  string
		query string
		want  []string
	}{
		{"and", "cat AND dog", []string{"doc2"}},
		{"or", "cat or dog", []string{"doc1", "doc2", "doc3", "doc4"}},
		{"not", "cat NOT dog", []string{"doc1", "doc3"}},
		{"stemmed", "cats AND dogs", []string{"doc2"}},
		{"stemmed verb", "running", []string{"doc5"}},
		{"no match", "cat AND fish", []string{}},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			rec := get(t, h.Boolean, "/api/v1/search/boolean?q="+url.QueryEscape(tt.query))
			if rec.Code != http.StatusOK {
				t.Fatalf("expected 200, got %d: %s", rec.Code, rec.Body.String())
			}
			res := decode[executor.Result](t, rec)
			if !reflect.DeepEqual(res.Documents, tt.want) {
				t.Errorf("expected %v, got %v", tt.want, res.Documents)
			}
			if res.TotalHits != len(tt.want) {
				t.Errorf("expected total_hits %d, got %d", len(tt.want), res.TotalHits)
			}
		})
	}
}

func TestBooleanEndpointValidation(t *testing.T) {
	h := newTestHandler(t, true, nil)
	tests := []struct {
		query string
		kind  string
	}{
		{"", "empty_query"},
		{"a AND b AND c AND d", "too_many_tokens"},
		{"cat AND d0g", "invalid_token"},
		{"AND cat", "malformed_query"},
		{"cat AND", "malformed_query"},
		{"cat dog", "malformed_query"},
	}
	for _, tt := range tests {
		t.Run(tt.kind+"/"+tt.query, func(t *testing.T) {
			rec := get(t, h.Boolean, "/api/v1/search/boolean?q="+url.QueryEscape(tt.query))
			if rec.Code != http.StatusBadRequest {
				t.Fatalf("expected 400, got %d", rec.Code)
			}
			body := decode[errorResponse](t, rec)
			if body.Kind != tt.kind {
				t.Errorf("expected kind %q, got %q (%s)", tt.kind, body.Kind, body.Error)
			}
		})
	}
}

func TestProximityEndpoint(t *testing.T) {
	h := newTestHandler(t, true, nil)
	rec := get(t, h.Proximity, "/api/v1/search/proximity?q=cat+dog&k=1")
	if rec.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d: %s", rec.Code, rec.Body.String())
	}
	res := decode[executor.Result](t, rec)
	if !reflect.DeepEqual(res.Documents, []string{"doc1"}) {
		t.Errorf("expected [doc1], got %v", res.Documents)
	}
}

func TestProximityEndpointValidation(t *testing.T) {
	h := newTestHandler(t, true, nil)
	tests := []struct {
		target string
		kind   string
	}{
		{"/api/v1/search/proximity?q=cat+dog", "invalid_distance"},
		{"/api/v1/search/proximity?q=cat+dog&k=two", "invalid_distance"},
		{"/api/v1/search/proximity?q=cat+dog&k=0", "invalid_distance"},
		{"/api/v1/search/proximity?q=cat&k=3", "malformed_query"},
		{"/api/v1/search/proximity?q=&k=3", "empty_query"},
	}
	for _, tt := range tests {
		rec := get(t, h.Proximity, tt.target)
		if rec.Code != http.StatusBadRequest {
			t.Errorf("%s: expected 400, got %d", tt.target, rec.Code)
			continue
		}
		if body := decode[errorResponse](t, rec); body.Kind != tt.kind {
			t.Errorf("%s: expected kind %q, got %q", tt.target, tt.kind, body.Kind)
		}
	}
}

func TestEndpointsBeforeIndexLoaded(t *testing.T) {
	h := newTestHandler(t, false, nil)
	rec := get(t, h.Boolean, "/api/v1/search/boolean?q=cat")
	if rec.Code != http.StatusServiceUnavailable {
		t.Fatalf("expected 503, got %d", rec.Code)
	}
	if body := decode[errorResponse](t, rec); body.Kind != "index_unavailable" {
		t.Errorf("expected index_unavailable, got %q", body.Kind)
	}
	if rec := get(t, h.IndexStats, "/api/v1/index/stats"); rec.Code != http.StatusServiceUnavailable {
		t.Errorf("expected 503 for stats, got %d", rec.Code)
	}
}

func TestReloadEndpoint(t *testing.T) {
	h := newTestHandler(t, false, nil)
	rec := httptest.NewRecorder()
	h.Reload(rec, httptest.NewRequest(http.MethodPost, "/api/v1/index/reload", nil))
	if rec.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d: %s", rec.Code, rec.Body.String())
	}
	body := decode[IndexStatsResponse](t, rec)
	if body.Terms != 3 || body.LoadedAt.IsZero() {
		t.Errorf("unexpected stats: %+v", body)
	}

	stats := get(t, h.IndexStats, "/api/v1/index/stats")
	if stats.Code != http.StatusOK {
		t.Errorf("expected stats to be served after reload, got %d", stats.Code)
	}
}

func TestReloadEndpointFailure(t *testing.T) {
	h := newTestHandler(t, true, func(context.Context) (*index.MemoryIndex, error) {
		return nil, errors.New("file missing")
	})
	rec := httptest.NewRecorder()
	h.Reload(rec, httptest.NewRequest(http.MethodPost, "/api/v1/index/reload", nil))
	if rec.Code != http.StatusServiceUnavailable {
		t.Fatalf("expected 503, got %d", rec.Code)
	}
	// The previous snapshot keeps serving.
	if rec := get(t, h.Boolean, "/api/v1/search/boolean?q=cat"); rec.Code != http.StatusOK {
		t.Errorf("expected 200 after failed reload, got %d", rec.Code)
	}
}

func TestReloadEndpointTimeout(t *testing.T) {
	h := newTestHandler(t, true, func(context.Context) (*index.MemoryIndex, error) {
		return nil, fmt.Errorf("index-load: %w", context.DeadlineExceeded)
	})
	rec := httptest.NewRecorder()
	h.Reload(rec, httptest.NewRequest(http.MethodPost, "/api/v1/index/reload", nil))
	if rec.Code != http.StatusGatewayTimeout {
		t.Fatalf("expected 504, got %d", rec.Code)
	}
	var body errorResponse
	if err := json.NewDecoder(rec.Body).Decode(&body); err != nil {
		t.Fatal(err)
	}
	if body.Kind != "timeout" {
		t.Errorf("expected kind timeout, got %q", body.Kind)
	}
}

func TestReloadEndpointCircuitOpen(t *testing.T) {
	h := newTestHandler(t, true, func(context.Context) (*index.MemoryIndex, error) {
		return nil, fmt.Errorf("%w: index-source-file", resilience.ErrCircuitOpen)
	})
	rec := httptest.NewRecorder()
	h.Reload(rec, httptest.NewRequest(http.MethodPost, "/api/v1/index/reload", nil))
	if rec.Code != http.StatusServiceUnavailable {
		t.Fatalf("expected 503, got %d", rec.Code)
	}
}
