// Command indexer publishes index files into Redis or Postgres and announces
// the update on Kafka so running search services reload.
//
// Usage:
//
//	go run ./cmd/indexer -target redis [-inverted data/inverted_index.txt] [-positional data/positional_index.txt] [-notify]
package main

import (
	"context"
	"flag"
	"fmt"
	"io"
	"log/slog"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/Adithya-Monish-Kumar-K/boolean-proximity-search/internal/index"
	"github.com/Adithya-Monish-Kumar-K/boolean-proximity-search/internal/index/consumer"
	"github.com/Adithya-Monish-Kumar-K/boolean-proximity-search/internal/index/loader"
	"github.com/Adithya-Monish-Kumar-K/boolean-proximity-search/internal/index/sink"
	"github.com/Adithya-Monish-Kumar-K/boolean-proximity-search/pkg/config"
	"github.com/Adithya-Monish-Kumar-K/boolean-proximity-search/pkg/kafka"
	"github.com/Adithya-Monish-Kumar-K/boolean-proximity-search/pkg/logger"
	"github.com/Adithya-Monish-Kumar-K/boolean-proximity-search/pkg/postgres"
	pkgredis "github.com/Adithya-Monish-Kumar-K/boolean-proximity-search/pkg/redis"
)

func main() {
	configPath := flag.String("config", "configs/development.yaml", "path to config file")
	target := flag.String("target", "redis", "store to publish into: redis or postgres")
	inverted := flag.String("inverted", "", "inverted index file (defaults to index.invertedPath)")
	positional := flag.String("positional", "", "positional index file (defaults to index.positionalPath)")
	notify := flag.Bool("notify", true, "publish an index-updated event after writing")
	flag.Parse()

	cfg, err := config.Load(*configPath)
	if err != nil {
		fmt.Fprintf(os.Stderr, "failed to load config: %v\n", err)
		os.Exit(1)
	}

	logger.Setup(cfg.Logging.Level, cfg.Logging.Format)

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	src := &loader.FileSource{InvertedPath: cfg.Index.InvertedPath, PositionalPath: cfg.Index.PositionalPath}
	if *inverted != "" {
		src.InvertedPath = *inverted
	}
	if *positional != "" {
		src.PositionalPath = *positional
	}

	if err := run(ctx, cfg, src, *target, *notify); err != nil {
		slog.Error("indexer failed", "error", err)
		os.Exit(1)
	}
}

func run(ctx context.Context, cfg *config.Config, src *loader.FileSource, target string, notify bool) error {
	start := time.Now()
	postings, err := src.LoadPostings(ctx)
	if err != nil {
		return fmt.Errorf("reading postings: %w", err)
	}
	positions, err := src.LoadPositions(ctx)
	if err != nil {
		return fmt.Errorf("reading positions: %w", err)
	}

	out, closer, err := openSink(ctx, cfg, target)
	if err != nil {
		return err
	}
	defer closer.Close()

	if err := out.Write(ctx, postings, positions); err != nil {
		return fmt.Errorf("writing to %s: %w", out.Name(), err)
	}
	slog.Info("index published",
		"target", out.Name(),
		"terms", len(postings),
		"positional_terms", len(positions),
		"duration_ms", time.Since(start).Milliseconds(),
	)

	if !notify {
		return nil
	}
	producer := kafka.NewProducer(cfg.Kafka, cfg.Kafka.Topics.IndexUpdated)
	defer producer.Close()
	return consumer.Notify(ctx, producer, consumer.IndexUpdatedEvent{
		Source: out.Name(),
		Reason: "indexer publish",
		Terms:  countTerms(postings, positions),
	})
}

func openSink(ctx context.Context, cfg *config.Config, target string) (sink.Sink, io.Closer, error) {
	switch target {
	case "redis":
		client, err := pkgredis.NewClient(ctx, cfg.Redis)
		if err != nil {
			return nil, nil, fmt.Errorf("connecting to redis: %w", err)
		}
		return sink.NewRedisSink(client, cfg.Redis.KeyPrefix), client, nil
	case "postgres":
		client, err := postgres.New(ctx, cfg.Postgres)
		if err != nil {
			return nil, nil, fmt.Errorf("connecting to postgres: %w", err)
		}
		return sink.NewPostgresSink(client), client, nil
	default:
		return nil, nil, fmt.Errorf("unknown target %q (want redis or postgres)", target)
	}
}

func countTerms(postings, positions []index.TermEntry) int {
	terms := make(map[string]struct{}, len(postings)+len(positions))
	for _, e := range postings {
		terms[e.Term] = struct{}{}
	}
	for _, e := range positions {
		terms[e.Term] = struct{}{}
	}
	return len(terms)
}
