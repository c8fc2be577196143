// Package executor runs validated queries against the active index snapshot.
// It ties the query parser, the evaluators and the index store together and
// records metrics, trace spans and analytics for every query.
package executor

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/Adithya-Monish-Kumar-K/boolean-proximity-search/internal/analytics"
	"github.com/Adithya-Monish-Kumar-K/boolean-proximity-search/internal/evaluator"
	"github.com/Adithya-Monish-Kumar-K/boolean-proximity-search/internal/index"
	"github.com/Adithya-Monish-Kumar-K/boolean-proximity-search/internal/query"
	apperrors "github.com/Adithya-Monish-Kumar-K/boolean-proximity-search/pkg/errors"
	"github.com/Adithya-Monish-Kumar-K/boolean-proximity-search/pkg/health"
	"github.com/Adithya-Monish-Kumar-K/boolean-proximity-search/pkg/logger"
	"github.com/Adithya-Monish-Kumar-K/boolean-proximity-search/pkg/metrics"
	"github.com/Adithya-Monish-Kumar-K/boolean-proximity-search/pkg/tracing"
	"github.com/google/uuid"
)

type Kind string

const (
	KindBoolean   Kind = "boolean"
	KindProximity Kind = "proximity"
)

// Result is a query's matching documents, sorted ascending. Documents is
// never nil.
type Result struct {
	Query       string   `json:"query"`
	Kind        Kind     `json:"kind"`
	Terms       []string `json:"terms"`
	Operators   []string `json:"operators,omitempty"`
	MaxDistance int      `json:"max_distance,omitempty"`
	TotalHits   int      `json:"total_hits"`
	Documents   []string `json:"documents"`
}

// Tracker receives one event per query; *analytics.Collector satisfies it.
type Tracker interface {
	Track(event analytics.QueryEvent)
}

type Options struct {
	Parser  *query.Parser
	Store   *index.Store
	Metrics *metrics.Metrics
	Tracker Tracker
}

// Executor is safe for concurrent use. Metrics and Tracker are optional.
type Executor struct {
	parser  *query.Parser
	store   *index.Store
	metrics *metrics.Metrics
	tracker Tracker
	logger  *slog.Logger
}

func New(opts Options) *Executor {
	return &Executor{
		parser:  opts.Parser,
		store:   opts.Store,
		metrics: opts.Metrics,
		tracker: opts.Tracker,
		logger:  slog.Default().With("component", "query-executor"),
	}
}

// Boolean parses raw and evaluates it left to right over the inverted index.
func (e *Executor) Boolean(ctx context.Context, raw string) (*Result, error) {
	start := time.Now()
	ctx, span := e.startSpan(ctx, KindBoolean)

	_, parseSpan := tracing.StartChildSpan(ctx, "parse")
	q, err := e.parser.ParseBoolean(raw)
	parseSpan.End()
	if err != nil {
		return nil, e.finish(ctx, span, start, &Result{Query: raw, Kind: KindBoolean}, err)
	}

	res := &Result{
		Query:     raw,
		Kind:      KindBoolean,
		Terms:     q.Terms,
		Operators: operatorNames(q.Operators),
	}
	idx := e.store.Current()
	if idx == nil {
		return nil, e.finish(ctx, span, start, res, apperrors.ErrIndexUnavailable)
	}

	_, evalSpan := tracing.StartChildSpan(ctx, "evaluate")
	docs := evaluator.EvaluateBoolean(q, idx)
	evalSpan.SetAttr("hits", docs.Len())
	evalSpan.End()

	res.Documents = docs.Sorted()
	res.TotalHits = len(res.Documents)
	return res, e.finish(ctx, span, start, res, nil)
}

// Proximity parses raw as two terms and returns documents where they occur
// within k token offsets of each other.
func (e *Executor) Proximity(ctx context.Context, raw string, k int) (*Result, error) {
	start := time.Now()
	ctx, span := e.startSpan(ctx, KindProximity)

	_, parseSpan := tracing.StartChildSpan(ctx, "parse")
	q, err := e.parser.ParseProximity(raw, k)
	parseSpan.End()
	if err != nil {
		return nil, e.finish(ctx, span, start, &Result{Query: raw, Kind: KindProximity, MaxDistance: k}, err)
	}

	res := &Result{
		Query:       raw,
		Kind:        KindProximity,
		Terms:       []string{q.First, q.Second},
		MaxDistance: q.MaxDistance,
	}
	idx := e.store.Current()
	if idx == nil {
		return nil, e.finish(ctx, span, start, res, apperrors.ErrIndexUnavailable)
	}

	_, evalSpan := tracing.StartChildSpan(ctx, "evaluate")
	docs := evaluator.EvaluateProximityQuery(q, idx)
	evalSpan.SetAttr("hits", docs.Len())
	evalSpan.End()

	res.Documents = docs.Sorted()
	res.TotalHits = len(res.Documents)
	return res, e.finish(ctx, span, start, res, nil)
}

// ReloadIndex swaps in a freshly loaded snapshot and updates the index
// gauges. On failure the previous snapshot stays active.
func (e *Executor) ReloadIndex(ctx context.Context) (index.Stats, error) {
	stats, err := e.store.Reload(ctx)
	if err != nil {
		e.countReload("error")
		return index.Stats{}, err
	}
	e.countReload("success")
	e.setIndexGauges(stats)
	return stats, nil
}

// IndexStats describes the active snapshot.
func (e *Executor) IndexStats() (index.Stats, time.Time, error) {
	idx := e.store.Current()
	if idx == nil {
		return index.Stats{}, time.Time{}, apperrors.ErrIndexUnavailable
	}
	return idx.Stats(), e.store.LoadedAt(), nil
}

// HealthCheck reports the index as up once a snapshot is loaded.
func (e *Executor) HealthCheck() health.Check {
	return func(ctx context.Context) health.ComponentHealth {
		stats, loadedAt, err := e.IndexStats()
		if err != nil {
			return health.ComponentHealth{Status: health.StatusDown, Message: "no index snapshot loaded"}
		}
		if stats.Terms == 0 && stats.PositionalTerms == 0 {
			return health.ComponentHealth{Status: health.StatusDegraded, Message: "index snapshot is empty"}
		}
		return health.ComponentHealth{
			Status:  health.StatusUp,
			Message: fmt.Sprintf("%d terms, %d documents, loaded %s", stats.Terms, stats.Documents, loadedAt.UTC().Format(time.RFC3339)),
		}
	}
}

func (e *Executor) startSpan(ctx context.Context, kind Kind) (context.Context, *tracing.Span) {
	traceID := logger.RequestID(ctx)
	if traceID == "" {
		traceID = uuid.NewString()
	}
	return tracing.StartSpan(ctx, string(kind)+"-query", traceID)
}

// finish records the outcome of a query and returns err unchanged.
func (e *Executor) finish(ctx context.Context, span *tracing.Span, start time.Time, res *Result, err error) error {
	elapsed := time.Since(start)
	span.End()
	log := logger.FromContext(ctx).With("component", "query-executor")

	outcome := metrics.OutcomeHit
	errorKind := ""
	switch {
	case err == nil && res.TotalHits == 0:
		outcome = metrics.OutcomeZeroResult
	case errors.Is(err, apperrors.ErrInvalidInput):
		outcome = metrics.OutcomeInvalid
		errorKind = query.KindName(err)
	case err != nil:
		outcome = metrics.OutcomeUnavailable
		errorKind = "index_unavailable"
	}
	span.SetAttr("outcome", outcome)

	if m := e.metrics; m != nil {
		m.QueriesTotal.WithLabelValues(string(res.Kind), outcome).Inc()
		if outcome == metrics.OutcomeInvalid {
			m.ValidationErrorsTotal.WithLabelValues(errorKind).Inc()
		} else if err == nil {
			m.QueryLatency.WithLabelValues(string(res.Kind)).Observe(elapsed.Seconds())
			m.QueryResultsCount.WithLabelValues(string(res.Kind)).Observe(float64(res.TotalHits))
		}
	}

	if err != nil {
		log.Info("query rejected",
			"kind", res.Kind,
			"query", res.Query,
			"error_kind", errorKind,
			"error", err,
		)
	} else {
		log.Info("query executed",
			"kind", res.Kind,
			"query", res.Query,
			"terms", res.Terms,
			"total_hits", res.TotalHits,
			"latency_us", elapsed.Microseconds(),
		)
	}
	span.Log(log)

	if e.tracker != nil {
		e.tracker.Track(analytics.QueryEvent{
			Kind:          string(res.Kind),
			Query:         res.Query,
			Terms:         res.Terms,
			Operators:     res.Operators,
			MaxDistance:   res.MaxDistance,
			TotalHits:     res.TotalHits,
			LatencyMicros: elapsed.Microseconds(),
			Outcome:       outcome,
			ErrorKind:     errorKind,
			RequestID:     logger.RequestID(ctx),
			Timestamp:     time.Now().UTC(),
		})
	}
	return err
}

func (e *Executor) countReload(status string) {
	if e.metrics != nil {
		e.metrics.IndexReloadsTotal.WithLabelValues(status).Inc()
	}
}

func (e *Executor) setIndexGauges(stats index.Stats) {
	if e.metrics != nil {
		e.metrics.IndexTerms.Set(float64(stats.Terms))
		e.metrics.IndexDocuments.Set(float64(stats.Documents))
	}
}

func operatorNames(ops []query.Operator) []string {
	names := make([]string, len(ops))
	for i, op := range ops {
		names[i] = op.String()
	}
	return names
}
