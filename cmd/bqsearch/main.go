// Command bqsearch loads index files and runs a single boolean or proximity
// query against them.
//
// Usage:
//
//	bqsearch [-inverted FILE] [-positional FILE] "cat NOT dog"
//	bqsearch -k 3 "cat dog"
//
// A non-negative -k selects a proximity query.
package main

import (
	"context"
	"encoding/json"
	"errors"
	"flag"
	"fmt"
	"io"
	"log/slog"
	"os"
	"strings"

	"github.com/Adithya-Monish-Kumar-K/boolean-proximity-search/internal/index"
	"github.com/Adithya-Monish-Kumar-K/boolean-proximity-search/internal/index/loader"
	"github.com/Adithya-Monish-Kumar-K/boolean-proximity-search/internal/query"
	"github.com/Adithya-Monish-Kumar-K/boolean-proximity-search/internal/searcher/executor"
	"github.com/Adithya-Monish-Kumar-K/boolean-proximity-search/internal/stemmer"
	apperrors "github.com/Adithya-Monish-Kumar-K/boolean-proximity-search/pkg/errors"
	"github.com/Adithya-Monish-Kumar-K/boolean-proximity-search/pkg/logger"
)

const (
	exitOK      = 0
	exitFailure = 1
	exitInvalid = 2
)

func main() {
	os.Exit(run(context.Background(), os.Args[1:], os.Stdout, os.Stderr))
}

func run(ctx context.Context, args []string, stdout, stderr io.Writer) int {
	fs := flag.NewFlagSet("bqsearch", flag.ContinueOnError)
	fs.SetOutput(stderr)
	inverted := fs.String("inverted", "data/inverted_index.txt", "inverted index file")
	positional := fs.String("positional", "data/positional_index.txt", "positional index file")
	k := fs.Int("k", -1, "maximum token distance; a non-negative value runs a proximity query")
	maxTokens := fs.Int("max-tokens", 5, "boolean token cap (0 disables)")
	stemmerName := fs.String("stemmer", "porter", "stemmer: porter, porter2, suffix or none")
	asJSON := fs.Bool("json", false, "print the result as JSON")
	logLevel := fs.String("log-level", "warn", "log level")
	if err := fs.Parse(args); err != nil {
		return exitInvalid
	}
	slog.SetDefault(logger.New(stderr, *logLevel, "text"))

	raw := strings.Join(fs.Args(), " ")
	st, err := stemmer.New(*stemmerName)
	if err != nil {
		fmt.Fprintln(stderr, err)
		return exitInvalid
	}

	src := &loader.FileSource{InvertedPath: *inverted}
	if *k >= 0 {
		src = &loader.FileSource{PositionalPath: *positional}
	}
	exec := executor.New(executor.Options{
		Parser: query.NewParser(query.Options{MaxTokens: *maxTokens, Stemmer: st}),
		Store:  index.NewStore(loader.LoadFunc(src, 0, nil)),
	})
	if _, err := exec.ReloadIndex(ctx); err != nil {
		fmt.Fprintf(stderr, "loading index: %v\n", err)
		return exitFailure
	}

	var res *executor.Result
	if *k >= 0 {
		res, err = exec.Proximity(ctx, raw, *k)
	} else {
		res, err = exec.Boolean(ctx, raw)
	}
	if err != nil {
		fmt.Fprintln(stderr, err)
		if errors.Is(err, apperrors.ErrInvalidInput) {
			return exitInvalid
		}
		return exitFailure
	}

	if *asJSON {
		enc := json.NewEncoder(stdout)
		enc.SetIndent("", "  ")
		if err := enc.Encode(res); err != nil {
			fmt.Fprintln(stderr, err)
			return exitFailure
		}
		return exitOK
	}
	if res.TotalHits == 0 {
		fmt.Fprintln(stdout, "no documents found")
		return exitOK
	}
	for _, doc := range res.Documents {
		fmt.Fprintln(stdout, doc)
	}
	return exitOK
}
