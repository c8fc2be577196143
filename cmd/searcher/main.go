// Command searcher serves boolean and proximity queries over an inverted
// index loaded from files, Postgres, or Redis.
//
// Usage:
//
//	go run ./cmd/searcher [-config configs/development.yaml]
package main

import (
	"context"
	"flag"
	"fmt"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"

	"github.com/Adithya-Monish-Kumar-K/boolean-proximity-search/internal/analytics"
	"github.com/Adithya-Monish-Kumar-K/boolean-proximity-search/internal/index"
	"github.com/Adithya-Monish-Kumar-K/boolean-proximity-search/internal/index/consumer"
	"github.com/Adithya-Monish-Kumar-K/boolean-proximity-search/internal/index/loader"
	"github.com/Adithya-Monish-Kumar-K/boolean-proximity-search/internal/query"
	"github.com/Adithya-Monish-Kumar-K/boolean-proximity-search/internal/searcher/executor"
	"github.com/Adithya-Monish-Kumar-K/boolean-proximity-search/internal/searcher/handler"
	"github.com/Adithya-Monish-Kumar-K/boolean-proximity-search/internal/searcher/router"
	"github.com/Adithya-Monish-Kumar-K/boolean-proximity-search/internal/stemmer"
	"github.com/Adithya-Monish-Kumar-K/boolean-proximity-search/pkg/config"
	"github.com/Adithya-Monish-Kumar-K/boolean-proximity-search/pkg/health"
	"github.com/Adithya-Monish-Kumar-K/boolean-proximity-search/pkg/kafka"
	"github.com/Adithya-Monish-Kumar-K/boolean-proximity-search/pkg/logger"
	"github.com/Adithya-Monish-Kumar-K/boolean-proximity-search/pkg/metrics"
	"github.com/Adithya-Monish-Kumar-K/boolean-proximity-search/pkg/resilience"
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
	slog.Info("starting search service",
		"port", cfg.Server.Port,
		"index_source", cfg.Index.Source,
		"max_tokens", cfg.Query.MaxTokens,
		"stemmer", cfg.Query.Stemmer,
	)

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	m := metrics.New()
	if cfg.Metrics.Enabled {
		shutdownMetrics := metrics.StartServer(cfg.Metrics.Port)
		defer shutdownMetrics(context.Background())
	}

	st, err := stemmer.New(cfg.Query.Stemmer)
	if err != nil {
		slog.Error("invalid stemmer", "error", err)
		os.Exit(1)
	}
	parser := query.NewParser(query.Options{MaxTokens: cfg.Query.MaxTokens, Stemmer: st})

	src, closer, err := loader.Open(ctx, cfg)
	if err != nil {
		slog.Error("failed to open index source", "error", err)
		os.Exit(1)
	}
	defer closer.Close()

	breaker := resilience.NewCircuitBreaker("index-source-"+src.Name(), resilience.CircuitBreakerConfig{
		OnStateChange: func(name string, to resilience.State) {
			m.CircuitBreakerState.WithLabelValues(name).Set(float64(to))
		},
	})
	store := index.NewStore(loader.LoadFunc(src, cfg.Index.LoadTimeout, breaker))

	var tracker executor.Tracker
	if cfg.Analytics.Enabled {
		producer := kafka.NewProducer(cfg.Kafka, cfg.Kafka.Topics.QueryEvents)
		defer producer.Close()
		collector := analytics.NewCollector(producer, cfg.Analytics.BufferSize, cfg.Analytics.BatchSize, cfg.Analytics.FlushInterval)
		collector.Start(ctx)
		defer collector.Close()
		tracker = collector
		slog.Info("query analytics enabled", "topic", cfg.Kafka.Topics.QueryEvents)
	}

	exec := executor.New(executor.Options{
		Parser:  parser,
		Store:   store,
		Metrics: m,
		Tracker: tracker,
	})

	// A failed initial load leaves the service up but not ready; a later
	// reload (HTTP or Kafka) can still bring the index online.
	if _, err := exec.ReloadIndex(ctx); err != nil {
		slog.Error("initial index load failed", "error", err)
	}

	if cfg.Index.ReloadOnEvents {
		reloads := kafka.NewConsumer(cfg.Kafka, cfg.Kafka.Topics.IndexUpdated, consumer.HandleMessage(exec))
		defer reloads.Close()
		go func() {
			if err := reloads.Start(ctx); err != nil {
				slog.Error("index reload consumer error", "error", err)
			}
		}()
		slog.Info("reloading on index events", "topic", cfg.Kafka.Topics.IndexUpdated)
	}

	checker := health.NewChecker()
	checker.Register("index", exec.HealthCheck())
	checker.Register("index_source", func(ctx context.Context) health.ComponentHealth {
		if state := breaker.GetState(); state != resilience.StateClosed {
			return health.ComponentHealth{Status: health.StatusDegraded, Message: "circuit " + state.String()}
		}
		return health.ComponentHealth{Status: health.StatusUp, Message: src.Name()}
	})

	h := handler.New(exec)
	server := &http.Server{
		Addr:         fmt.Sprintf(":%d", cfg.Server.Port),
		Handler:      router.New(h, checker, m, cfg.Server.WriteTimeout),
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

	slog.Info("search service listening", "addr", server.Addr)
	if err := server.ListenAndServe(); err != nil && err != http.ErrServerClosed {
		slog.Error("server error", "error", err)
		os.Exit(1)
	}
	<-shutdownDone

	slog.Info("search service stopped")
}
