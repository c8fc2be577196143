package query

import (
	"errors"
	"reflect"
	"strings"
	"testing"

	"github.com/Adithya-Monish-Kumar-K/boolean-proximity-search/internal/stemmer"
	apperrors "github.com/Adithya-Monish-Kumar-K/boolean-proximity-search/pkg/errors"
)

func newTestParser() *Parser {
	return NewParser(Options{MaxTokens: DefaultMaxTokens, Stemmer: stemmer.Porter{}})
}

func TestParseBooleanValid(t *testing.T) {
	tests := []struct {
		name  string
		raw   string
		terms []string
		ops   []Operator
	}{
		{"single term", "cat", []string{"cat"}, []Operator{}},
		{"and", "cat and dog", []string{"cat", "dog"}, []Operator{OpAnd}},
		{"upper-case operators", "Cat OR Dog", []string{"cat", "dog"}, []Operator{OpOr}},
		{"extra whitespace", "   cat \t not   dog  ", []string{"cat", "dog"}, []Operator{OpNot}},
		{"three terms stemmed", "running and cats or dogs", []string{"run", "cat", "dog"}, []Operator{OpAnd, OpOr}},
	}
	p := newTestParser()
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			q, err := p.ParseBoolean(tt.raw)
			if err != nil {
				t.Fatalf("ParseBoolean(%q) error: %v", tt.raw, err)
			}
			if !reflect.DeepEqual(q.Terms, tt.terms) {
				t.Errorf("terms = %v, want %v", q.Terms, tt.terms)
			}
			if !reflect.DeepEqual(q.Operators, tt.ops) {
				t.Errorf("operators = %v, want %v", q.Operators, tt.ops)
			}
			if len(q.Terms) != len(q.Operators)+1 {
				t.Errorf("term/operator invariant broken: %d terms, %d operators", len(q.Terms), len(q.Operators))
			}
			if q.RawQuery != tt.raw {
				t.Errorf("RawQuery = %q", q.RawQuery)
			}
		})
	}
}

func TestParseBooleanErrors(t *testing.T) {
	tests := []struct {
		name string
		raw  string
		want error
	}{
		{"empty", "", ErrEmptyQuery},
		{"blank", "  \t ", ErrEmptyQuery},
		{"trailing operator", "cat and", ErrMalformedQuery},
		{"missing operator", "cat dog", ErrMalformedQuery},
		{"leading operator", "and cat dog", ErrMalformedQuery},
		{"operator as term", "cat and or", ErrMalformedQuery},
		{"only operator", "not", ErrMalformedQuery},
		{"too many tokens", "cat AND dog OR fish AND bird NOT x", ErrTooManyTokens},
		{"digits", "cat and d0g", ErrInvalidToken},
		{"punctuation", "cat & dog", ErrInvalidToken},
	}
	p := newTestParser()
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			q, err := p.ParseBoolean(tt.raw)
			if q != nil {
				t.Errorf("expected nil query, got %+v", q)
			}
			if !errors.Is(err, tt.want) {
				t.Fatalf("ParseBoolean(%q) error = %v, want %v", tt.raw, err, tt.want)
			}
			if !errors.Is(err, apperrors.ErrInvalidInput) {
				t.Errorf("validation error must classify as invalid input: %v", err)
			}
			var verr *ValidationError
			if !errors.As(err, &verr) {
				t.Fatalf("expected *ValidationError, got %T", err)
			}
		})
	}
}

func TestParseBooleanTokenCapPrecedesTokenChecks(t *testing.T) {
	_, err := newTestParser().ParseBoolean("a1 b2 c3 d4 e5 f6")
	if !errors.Is(err, ErrTooManyTokens) {
		t.Errorf("expected ErrTooManyTokens, got %v", err)
	}
}

func TestParseBooleanReportsOffendingToken(t *testing.T) {
	_, err := newTestParser().ParseBoolean("cat dog")
	var verr *ValidationError
	if !errors.As(err, &verr) {
		t.Fatalf("expected *ValidationError, got %v", err)
	}
	if verr.Token != "dog" || verr.Position != 1 {
		t.Errorf("got token %q at %d, want \"dog\" at 1", verr.Token, verr.Position)
	}
	if !strings.Contains(err.Error(), `"dog"`) {
		t.Errorf("message should name the token: %q", err.Error())
	}
}

func TestParseBooleanUncapped(t *testing.T) {
	p := NewParser(Options{MaxTokens: 0})
	raw := "a and b or c not d and e or f and g"
	q, err := p.ParseBoolean(raw)
	if err != nil {
		t.Fatalf("uncapped parser rejected %q: %v", raw, err)
	}
	if len(q.Terms) != 7 || len(q.Operators) != 6 {
		t.Errorf("got %d terms, %d operators", len(q.Terms), len(q.Operators))
	}
	if q.String() != "a AND b OR c NOT d AND e OR f AND g" {
		t.Errorf("String() = %q", q.String())
	}
}

func TestParseBooleanNilStemmerKeepsTerms(t *testing.T) {
	q, err := NewParser(Options{}).ParseBoolean("Running")
	if err != nil {
		t.Fatal(err)
	}
	if q.Terms[0] != "running" {
		t.Errorf("term = %q, want lowercase unstemmed", q.Terms[0])
	}
}

func TestParseProximity(t *testing.T) {
	p := newTestParser()
	q, err := p.ParseProximity("  Running  Dogs ", 3)
	if err != nil {
		t.Fatalf("ParseProximity error: %v", err)
	}
	if q.First != "run" || q.Second != "dog" || q.MaxDistance != 3 {
		t.Errorf("got %+v", q)
	}
}

func TestParseProximityErrors(t *testing.T) {
	tests := []struct {
		name string
		raw  string
		k    int
		want error
	}{
		{"empty", "", 1, ErrEmptyQuery},
		{"one term", "cat", 1, ErrMalformedQuery},
		{"three terms", "cat and dog", 1, ErrMalformedQuery},
		{"non-alphabetic", "cat d0g", 1, ErrMalformedQuery},
		{"zero distance", "cat dog", 0, ErrInvalidDistance},
		{"negative distance", "cat dog", -2, ErrInvalidDistance},
	}
	p := newTestParser()
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := p.ParseProximity(tt.raw, tt.k)
			if !errors.Is(err, tt.want) {
				t.Errorf("ParseProximity(%q, %d) error = %v, want %v", tt.raw, tt.k, err, tt.want)
			}
		})
	}
}

func TestKindName(t *testing.T) {
	p := newTestParser()
	_, err := p.ParseBoolean("cat and")
	if got := KindName(err); got != "malformed_query" {
		t.Errorf("KindName = %q", got)
	}
	_, err = p.ParseProximity("cat dog", 0)
	if got := KindName(err); got != "invalid_distance" {
		t.Errorf("KindName = %q", got)
	}
	if got := KindName(errors.New("other")); got != "unknown" {
		t.Errorf("KindName = %q", got)
	}
}

func TestOperatorString(t *testing.T) {
	for op, want := range map[Operator]string{OpAnd: "AND", OpOr: "OR", OpNot: "NOT", Operator(9): "Operator(9)"} {
		if got := op.String(); got != want {
			t.Errorf("%d.String() = %q, want %q", int(op), got, want)
		}
	}
}

func BenchmarkParseBoolean(b *testing.B) {
	queries := []struct {
		name  string
		query string
	}{
		{"single", "distributed"},
		{"and", "search AND analytics"},
		{"or", "indexing OR caching OR ranking"},
		{"not", "distributed NOT monolithic"},
		{"mixed", "search AND ranking OR analytics NOT deprecated"},
	}
	p := NewParser(Options{Stemmer: stemmer.Porter{}})
	for _, q := range queries {
		b.Run(q.name, func(b *testing.B) {
			b.ReportAllocs()
			for i := 0; i < b.N; i++ {
				if _, err := p.ParseBoolean(q.query); err != nil {
					b.Fatal(err)
				}
			}
		})
	}
}
