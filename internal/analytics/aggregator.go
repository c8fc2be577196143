package analytics

import (
	"context"
	"log/slog"
	"sort"
	"sync"
	"time"

	"github.com/Adithya-Monish-Kumar-K/boolean-proximity-search/pkg/kafka"
)

const (
	maxLatencySamples = 10000
	topQueriesLimit   = 10
)

// AggregatedStats is the rolled-up view served by the analytics API.
type AggregatedStats struct {
	TotalQueries      int64            `json:"total_queries"`
	QueriesByKind     map[string]int64 `json:"queries_by_kind"`
	InvalidQueries    int64            `json:"invalid_queries"`
	ErrorsByKind      map[string]int64 `json:"errors_by_kind"`
	ZeroResultCount   int64            `json:"zero_result_count"`
	AvgLatencyMicros  float64          `json:"avg_latency_us"`
	P50LatencyMicros  int64            `json:"p50_latency_us"`
	P95LatencyMicros  int64            `json:"p95_latency_us"`
	P99LatencyMicros  int64            `json:"p99_latency_us"`
	TopQueries        []QueryCount     `json:"top_queries"`
	ZeroResultQueries []QueryCount     `json:"zero_result_queries"`
	QueriesPerMinute  float64          `json:"queries_per_minute"`
}

type QueryCount struct {
	Query string `json:"query"`
	Count int64  `json:"count"`
}

// Aggregator keeps running totals over QueryEvents. Latency percentiles are
// computed over the most recent maxLatencySamples queries.
type Aggregator struct {
	mu                sync.RWMutex
	totalQueries      int64
	byKind            map[string]int64
	invalid           int64
	errorsByKind      map[string]int64
	zeroResults       int64
	latencies         []int64
	nextLatency       int
	queryCounts       map[string]int64
	zeroResultQueries map[string]int64
	startTime         time.Time
	logger            *slog.Logger
}

func NewAggregator() *Aggregator {
	return &Aggregator{
		byKind:            make(map[string]int64),
		errorsByKind:      make(map[string]int64),
		latencies:         make([]int64, 0, maxLatencySamples),
		queryCounts:       make(map[string]int64),
		zeroResultQueries: make(map[string]int64),
		startTime:         time.Now(),
		logger:            slog.Default().With("component", "analytics-aggregator"),
	}
}

// HandleEvent returns a Kafka MessageHandler feeding agg. Undecodable
// messages are logged and skipped so they are still committed.
func HandleEvent(agg *Aggregator) kafka.MessageHandler {
	return func(ctx context.Context, key []byte, value []byte) error {
		event, err := kafka.DecodeJSON[QueryEvent](value)
		if err != nil {
			agg.logger.Error("failed to decode query event", "key", string(key), "error", err)
			return nil
		}
		agg.Record(event)
		return nil
	}
}

func (a *Aggregator) Record(event QueryEvent) {
	a.mu.Lock()
	defer a.mu.Unlock()

	a.totalQueries++
	a.byKind[event.Kind]++
	if event.ErrorKind != "" {
		a.invalid++
		a.errorsByKind[event.ErrorKind]++
		return
	}
	if len(a.latencies) < maxLatencySamples {
		a.latencies = append(a.latencies, event.LatencyMicros)
	} else {
		a.latencies[a.nextLatency] = event.LatencyMicros
		a.nextLatency = (a.nextLatency + 1) % maxLatencySamples
	}
	key := event.Kind + ": " + event.Query
	a.queryCounts[key]++
	if event.TotalHits == 0 {
		a.zeroResults++
		a.zeroResultQueries[key]++
	}
}

func (a *Aggregator) Stats() AggregatedStats {
	a.mu.RLock()
	defer a.mu.RUnlock()

	stats := AggregatedStats{
		TotalQueries:    a.totalQueries,
		QueriesByKind:   copyCounts(a.byKind),
		InvalidQueries:  a.invalid,
		ErrorsByKind:    copyCounts(a.errorsByKind),
		ZeroResultCount: a.zeroResults,
	}
	if len(a.latencies) > 0 {
		sorted := make([]int64, len(a.latencies))
		copy(sorted, a.latencies)
		sort.Slice(sorted, func(i, j int) bool { return sorted[i] < sorted[j] })

		var sum int64
		for _, l := range sorted {
			sum += l
		}
		stats.AvgLatencyMicros = float64(sum) / float64(len(sorted))
		stats.P50LatencyMicros = percentile(sorted, 50)
		stats.P95LatencyMicros = percentile(sorted, 95)
		stats.P99LatencyMicros = percentile(sorted, 99)
	}
	stats.TopQueries = topN(a.queryCounts, topQueriesLimit)
	stats.ZeroResultQueries = topN(a.zeroResultQueries, topQueriesLimit)
	elapsed := time.Since(a.startTime).Minutes()
	if elapsed > 0 {
		stats.QueriesPerMinute = float64(stats.TotalQueries) / elapsed
	}
	return stats
}

func copyCounts(in map[string]int64) map[string]int64 {
	out := make(map[string]int64, len(in))
	for k, v := range in {
		out[k] = v
	}
	return out
}

func percentile(sorted []int64, pct int) int64 {
	if len(sorted) == 0 {
		return 0
	}
	idx := (pct * len(sorted)) / 100
	if idx >= len(sorted) {
		idx = len(sorted) - 1
	}
	return sorted[idx]
}

// topN orders by count descending, then query ascending for stable output.
func topN(counts map[string]int64, n int) []QueryCount {
	result := make([]QueryCount, 0, len(counts))
	for query, count := range counts {
		result = append(result, QueryCount{Query: query, Count: count})
	}
	sort.Slice(result, func(i, j int) bool {
		if result[i].Count != result[j].Count {
			return result[i].Count > result[j].Count
		}
		return result[i].Query < result[j].Query
	})
	if len(result) > n {
		result = result[:n]
	}
	return result
}
