package loader

import (
	"bufio"
	"context"
	"fmt"
	"io"
	"os"
	"sort"
	"strings"

	"github.com/Adithya-Monish-Kumar-K/boolean-proximity-search/internal/index"
	apperrors "github.com/Adithya-Monish-Kumar-K/boolean-proximity-search/pkg/errors"
)

// FormatError reports a line of an index file that does not match the
// expected schema.
type FormatError struct {
	Source string
	Line   int
	Msg    string
}

func (e *FormatError) Error() string {
	if e.Line == 0 {
		return fmt.Sprintf("%s: %s", e.Source, e.Msg)
	}
	return fmt.Sprintf("%s:%d: %s", e.Source, e.Line, e.Msg)
}

func (e *FormatError) Unwrap() error {
	return apperrors.ErrIndexFormat
}

// FileSource reads the line-oriented "term : literal" files. Either path may
// be empty, in which case that view of the index is left empty.
type FileSource struct {
	InvertedPath   string
	PositionalPath string
}

func (f *FileSource) Name() string { return "file" }

func (f *FileSource) LoadPostings(ctx context.Context) ([]index.TermEntry, error) {
	if f.InvertedPath == "" {
		return nil, nil
	}
	return readFile(ctx, f.InvertedPath, ReadInverted)
}

func (f *FileSource) LoadPositions(ctx context.Context) ([]index.TermEntry, error) {
	if f.PositionalPath == "" {
		return nil, nil
	}
	return readFile(ctx, f.PositionalPath, ReadPositional)
}

func readFile(ctx context.Context, path string, read func(io.Reader, string) ([]index.TermEntry, error)) ([]index.TermEntry, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	file, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("opening index file: %w", err)
	}
	defer file.Close()
	return read(file, path)
}

// ReadInverted parses lines of the form
//
//	cat : {'doc1', 'doc2'}
//
// into entries without positions.
func ReadInverted(r io.Reader, name string) ([]index.TermEntry, error) {
	return readLines(r, name, func(term, literal string) (index.PostingList, error) {
		sc := &literalScanner{src: literal}
		ids, err := sc.parseDocIDs()
		if err != nil {
			return nil, err
		}
		seen := make(map[string]struct{}, len(ids))
		postings := make(index.PostingList, 0, len(ids))
		for _, id := range ids {
			if _, dup := seen[id]; dup {
				continue
			}
			seen[id] = struct{}{}
			postings = append(postings, index.Posting{DocID: id})
		}
		return postings, nil
	})
}

// ReadPositional parses lines of the form
//
//	cat : {'doc1': [1, 5, 9], 'doc2': [3]}
//
// into entries whose postings carry offsets.
func ReadPositional(r io.Reader, name string) ([]index.TermEntry, error) {
	return readLines(r, name, func(term, literal string) (index.PostingList, error) {
		sc := &literalScanner{src: literal}
		byDoc, err := sc.parsePositions()
		if err != nil {
			return nil, err
		}
		docIDs := make([]string, 0, len(byDoc))
		for id := range byDoc {
			docIDs = append(docIDs, id)
		}
		sort.Strings(docIDs)
		postings := make(index.PostingList, 0, len(byDoc))
		for _, id := range docIDs {
			postings = append(postings, index.Posting{DocID: id, Positions: byDoc[id]})
		}
		return postings, nil
	})
}

func readLines(r io.Reader, name string, parse func(term, literal string) (index.PostingList, error)) ([]index.TermEntry, error) {
	scanner := bufio.NewScanner(r)
	scanner.Buffer(make([]byte, 64*1024), 64*1024*1024)
	entries := make([]index.TermEntry, 0)
	seen := make(map[string]int)
	lineNo := 0
	for scanner.Scan() {
		lineNo++
		line := strings.TrimSpace(scanner.Text())
		if line == "" {
			continue
		}
		term, literal, ok := strings.Cut(line, ":")
		if !ok {
			return nil, &FormatError{Source: name, Line: lineNo, Msg: "missing ':' separator"}
		}
		term = strings.TrimSpace(term)
		literal = strings.TrimSpace(literal)
		if term == "" || strings.ContainsAny(term, " \t") {
			return nil, &FormatError{Source: name, Line: lineNo, Msg: fmt.Sprintf("invalid term %q", term)}
		}
		if first, dup := seen[term]; dup {
			return nil, &FormatError{Source: name, Line: lineNo, Msg: fmt.Sprintf("term %q already defined on line %d", term, first)}
		}
		postings, err := parse(term, literal)
		if err != nil {
			return nil, &FormatError{Source: name, Line: lineNo, Msg: err.Error()}
		}
		seen[term] = lineNo
		entries = append(entries, index.TermEntry{Term: term, Postings: postings})
	}
	if err := scanner.Err(); err != nil {
		return nil, fmt.Errorf("reading %s: %w", name, err)
	}
	return entries, nil
}
