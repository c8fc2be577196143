// Command analytics starts the standalone query analytics service.
//
// It consumes query events published by the search service, aggregates them
// in memory (query counts per kind, latency percentiles, zero-result and
// validation-error rates, top queries) and exposes GET /api/v1/analytics.
// When analytics.snapshotInterval is set, aggregates are also persisted to
// Postgres and the recent history is served at GET /api/v1/analytics/history.
//
// Usage:
//
//	go run ./cmd/analytics [-config configs/development.yaml]
package main

import (
	"context"
	"encoding/json"
	"flag"
	"fmt"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"strconv"
	"syscall"

	"github.com/Adithya-Monish-Kumar-K/boolean-proximity-search/internal/analytics"
	"github.com/Adithya-Monish-Kumar-K/boolean-proximity-search/internal/analytics/aggregator"
	"github.com/Adithya-Monish-Kumar-K/boolean-proximity-search/pkg/config"
	"github.com/Adithya-Monish-Kumar-K/boolean-proximity-search/pkg/health"
	"github.com/Adithya-Monish-Kumar-K/boolean-proximity-search/pkg/kafka"
	"github.com/Adithya-Monish-Kumar-K/boolean-proximity-search/pkg/logger"
	"github.com/Adithya-Monish-Kumar-K/boolean-proximity-search/pkg/metrics"
	"github.com/Adithya-Monish-Kumar-K/boolean-proximity-search/pkg/middleware"
	"github.com/Adithya-Monish-Kumar-K/boolean-proximity-search/pkg/postgres"
)

func main() {
	configPath := flag.String("config", "configs/development.yaml", "path to config file")
	flag.Parse()

	cfg, err := config.Load(*configPath)
	if err != nil {
		fmt.Fprintf(os.Stderr, "failed to load config: %v\n", err)
		os.Exit(1)
	}

	logger.Setup(cfg.Logging.Level, cfg.Logging.Format)
	slog.Info("starting analytics service", "port", cfg.Server.Port)

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	m := metrics.New()
	agg := analytics.NewAggregator()
	events := kafka.NewConsumer(cfg.Kafka, cfg.Kafka.Topics.QueryEvents, analytics.HandleEvent(agg))
	defer events.Close()
	go func() {
		if err := events.Start(ctx); err != nil {
			slog.Error("query event consumer error", "error", err)
		}
	}()
	slog.Info("analytics aggregator started", "topic", cfg.Kafka.Topics.QueryEvents)

	checker := health.NewChecker()
	checker.Register("kafka", func(ctx context.Context) health.ComponentHealth {
		return health.ComponentHealth{Status: health.StatusUp, Message: "consumer active"}
	})

	mux := http.NewServeMux()
	mux.HandleFunc("GET /api/v1/analytics", analytics.NewHandler(agg).Stats)
	mux.HandleFunc("GET /health/live", checker.LiveHandler())
	mux.HandleFunc("GET /health/ready", checker.ReadyHandler())
	mux.Handle("GET /metrics", metrics.Handler())

	if cfg.Analytics.SnapshotInterval > 0 {
		pg, err := postgres.New(ctx, cfg.Postgres)
		if err != nil {
			slog.Error("failed to connect to postgres", "error", err)
			os.Exit(1)
		}
		defer pg.Close()
		snapshots := aggregator.NewStore(pg.DB)
		snapshots.StartPeriodicSave(ctx, agg, cfg.Analytics.SnapshotInterval)
		checker.Register("postgres", func(ctx context.Context) health.ComponentHealth {
			if err := pg.Ping(ctx); err != nil {
				return health.ComponentHealth{Status: health.StatusDegraded, Message: err.Error()}
			}
			return health.ComponentHealth{Status: health.StatusUp}
		})
		mux.HandleFunc("GET /api/v1/analytics/history", historyHandler(snapshots))
	}

	var chain http.Handler = mux
	chain = middleware.Metrics(m, "/api/v1/analytics", "/api/v1/analytics/history", "/health/live", "/health/ready", "/metrics")(chain)
	chain = middleware.RequestID(chain)

	server := &http.Server{
		Addr:         fmt.Sprintf(":%d", cfg.Server.Port),
		Handler:      chain,
		ReadTimeout:  cfg.Server.ReadTimeout,
		WriteTimeout: cfg.Server.WriteTimeout,
	}

	// Deferred cleanup must wait until in-flight requests have drained.
	shutdownDone := make(chan struct{})
	go func() {
		defer close(shutdownDone)
		<-ctx.Done()
		slog.Info("shutdown signal received")
		shutdownCtx, cancel := context.WithTimeout(context.Background(), cfg.Server.ShutdownTimeout)
		defer cancel()
		if err := server.Shutdown(shutdownCtx); err != nil {
			slog.Error("server shutdown error", "error", err)
		}
	}()

	slog.Info("analytics service listening", "addr", server.Addr)
	if err := server.ListenAndServe(); err != nil && err != http.ErrServerClosed {
		slog.Error("server error", "error", err)
		os.Exit(1)
	}
	<-shutdownDone

	slog.Info("analytics service stopped")
}

// historyHandler serves the most recent snapshots, newest first. The limit
// query parameter defaults to 24 and is capped at 500.
func historyHandler(store *aggregator.Store) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		limit := 24
		if v := r.URL.Query().Get("limit"); v != "" {
			n, err := strconv.Atoi(v)
			if err != nil || n <= 0 {
				http.Error(w, `{"error":"limit must be a positive integer"}`, http.StatusBadRequest)
				return
			}
			limit = min(n, 500)
		}
		snapshots, err := store.ListSnapshots(r.Context(), limit)
		if err != nil {
			slog.Error("listing analytics snapshots", "error", err)
			http.Error(w, `{"error":"internal error"}`, http.StatusInternalServerError)
			return
		}
		w.Header().Set("Content-Type", "application/json")
		json.NewEncoder(w).Encode(snapshots)
	}
}
