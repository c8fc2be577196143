// Package analytics records executed queries. The search service publishes a
// QueryEvent per query to Kafka through a Collector; the analytics service
// consumes them into an Aggregator and serves rolled-up stats.
package analytics

import "time"

// QueryEvent describes one executed or rejected query.
type QueryEvent struct {
	Kind          string    `json:"kind"`
	Query         string    `json:"query"`
	Terms         []string  `json:"terms,omitempty"`
	Operators     []string  `json:"operators,omitempty"`
	MaxDistance   int       `json:"max_distance,omitempty"`
	TotalHits     int       `json:"total_hits"`
	LatencyMicros int64     `json:"latency_us"`
	Outcome       string    `json:"outcome"`
	ErrorKind     string    `json:"error_kind,omitempty"`
	RequestID     string    `json:"request_id,omitempty"`
	Timestamp     time.Time `json:"timestamp"`
}
