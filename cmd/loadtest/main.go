// Command loadtest drives a running search service with a fixed mix of
// boolean and proximity queries and reports throughput, latency percentiles,
// and the spread of status codes and zero-result responses.
//
// Usage:
//
//	go run ./cmd/loadtest [-url http://localhost:8080] [-concurrency 10] [-duration 30s]
package main

import (
	"context"
	"encoding/json"
	"flag"
	"fmt"
	"math"
	"net/http"
	"net/url"
	"os"
	"sort"
	"strconv"
	"sync"
	"sync/atomic"
	"time"

	"golang.org/x/sync/errgroup"
)

// request is one entry of the query mix. K is only sent for proximity
// queries.
type request struct {
	Kind  string
	Query string
	K     int
}

func (r request) url(base string) string {
	v := url.Values{"q": {r.Query}}
	if r.Kind == "proximity" {
		v.Set("k", strconv.Itoa(r.K))
	}
	return fmt.Sprintf("%s/api/v1/search/%s?%s", base, r.Kind, v.Encode())
}

var defaultMix = []request{
	{Kind: "boolean", Query: "cat AND dog"},
	{Kind: "boolean", Query: "cat OR dog"},
	{Kind: "boolean", Query: "cat NOT dog"},
	{Kind: "boolean", Query: "running OR jumping NOT walking"},
	{Kind: "boolean", Query: "search AND index"},
	{Kind: "boolean", Query: "AND cat"},
	{Kind: "proximity", Query: "cat dog", K: 1},
	{Kind: "proximity", Query: "cat dog", K: 3},
	{Kind: "proximity", Query: "search index", K: 5},
	{Kind: "proximity", Query: "cat", K: 2},
}

type stats struct {
	total       atomic.Int64
	success     atomic.Int64
	failures    atomic.Int64
	zeroResults atomic.Int64

	mu          sync.Mutex
	latencies   []time.Duration
	statusCodes map[int]int64
}

func newStats() *stats {
	return &stats{
		latencies:   make([]time.Duration, 0, 100000),
		statusCodes: make(map[int]int64),
	}
}

func (s *stats) record(d time.Duration, status int, hits int, err error) {
	s.total.Add(1)
	if err != nil {
		s.failures.Add(1)
		return
	}
	if status == http.StatusOK {
		s.success.Add(1)
		if hits == 0 {
			s.zeroResults.Add(1)
		}
	} else {
		s.failures.Add(1)
	}
	s.mu.Lock()
	s.latencies = append(s.latencies, d)
	s.statusCodes[status]++
	s.mu.Unlock()
}

func main() {
	baseURL := flag.String("url", "http://localhost:8080", "base URL of the search service")
	concurrency := flag.Int("concurrency", 10, "number of concurrent workers")
	duration := flag.Duration("duration", 30*time.Second, "test duration")
	flag.Parse()

	fmt.Println("=== Boolean Search Load Test ===")
	fmt.Printf("Target:      %s\n", *baseURL)
	fmt.Printf("Concurrency: %d\n", *concurrency)
	fmt.Printf("Duration:    %s\n", *duration)
	fmt.Printf("Queries:     %d in mix\n", len(defaultMix))
	fmt.Println()

	s := run(*baseURL, *concurrency, *duration, defaultMix)
	if !report(s, *duration) {
		os.Exit(1)
	}
}

func run(baseURL string, concurrency int, duration time.Duration, mix []request) *stats {
	s := newStats()
	client := &http.Client{
		Timeout: 10 * time.Second,
		Transport: &http.Transport{
			MaxIdleConns:        concurrency * 2,
			MaxIdleConnsPerHost: concurrency * 2,
			IdleConnTimeout:     90 * time.Second,
		},
	}

	ctx, cancel := context.WithTimeout(context.Background(), duration)
	defer cancel()

	var g errgroup.Group
	for w := 0; w < concurrency; w++ {
		g.Go(func() error {
			for i := w; ctx.Err() == nil; i++ {
				req := mix[i%len(mix)]
				start := time.Now()
				status, hits, err := do(ctx, client, req.url(baseURL))
				if ctx.Err() != nil {
					return nil
				}
				s.record(time.Since(start), status, hits, err)
			}
			return nil
		})
	}
	g.Wait()
	return s
}

func do(ctx context.Context, client *http.Client, rawURL string) (int, int, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, rawURL, nil)
	if err != nil {
		return 0, 0, err
	}
	resp, err := client.Do(req)
	if err != nil {
		return 0, 0, err
	}
	defer resp.Body.Close()
	var body struct {
		TotalHits int `json:"total_hits"`
	}
	if resp.StatusCode == http.StatusOK {
		if err := json.NewDecoder(resp.Body).Decode(&body); err != nil {
			return resp.StatusCode, 0, fmt.Errorf("decoding response: %w", err)
		}
	}
	return resp.StatusCode, body.TotalHits, nil
}

func report(s *stats, duration time.Duration) bool {
	total := s.total.Load()
	fmt.Println("=== Results ===")
	fmt.Printf("Total Requests:  %d\n", total)
	fmt.Printf("Successful:      %d\n", s.success.Load())
	fmt.Printf("Zero results:    %d\n", s.zeroResults.Load())
	fmt.Printf("Failures:        %d\n", s.failures.Load())
	if total == 0 {
		fmt.Println()
		fmt.Println("WARNING: No requests completed. Is the service running?")
		return false
	}
	fmt.Printf("Requests/sec:    %.2f\n", float64(total)/duration.Seconds())

	s.mu.Lock()
	defer s.mu.Unlock()
	if len(s.latencies) > 0 {
		sort.Slice(s.latencies, func(i, j int) bool { return s.latencies[i] < s.latencies[j] })
		var sum time.Duration
		for _, l := range s.latencies {
			sum += l
		}
		fmt.Println()
		fmt.Println("=== Latency ===")
		fmt.Printf("Min:    %s\n", s.latencies[0])
		fmt.Printf("Avg:    %s\n", sum/time.Duration(len(s.latencies)))
		for _, p := range []float64{50, 90, 95, 99} {
			fmt.Printf("P%-5.0f %s\n", p, percentile(s.latencies, p))
		}
		fmt.Printf("Max:    %s\n", s.latencies[len(s.latencies)-1])
	}

	fmt.Println()
	fmt.Println("=== Status Codes ===")
	codes := make([]int, 0, len(s.statusCodes))
	for code := range s.statusCodes {
		codes = append(codes, code)
	}
	sort.Ints(codes)
	for _, code := range codes {
		fmt.Printf("  %d: %d\n", code, s.statusCodes[code])
	}
	return true
}

func percentile(sorted []time.Duration, p float64) time.Duration {
	idx := int(math.Ceil(p/100*float64(len(sorted)))) - 1
	return sorted[max(0, min(idx, len(sorted)-1))]
}
