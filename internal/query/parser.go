// Package query turns raw query strings into validated boolean and proximity
// queries. Boolean queries alternate terms and binary operators and are
// evaluated strictly left to right; proximity queries name exactly two terms
// and a maximum token distance.
package query

import (
	"fmt"
	"strings"
	"unicode"

	"github.com/Adithya-Monish-Kumar-K/boolean-proximity-search/internal/stemmer"
)

// DefaultMaxTokens caps boolean queries at three terms and two operators.
const DefaultMaxTokens = 5

// Operator is a boolean connective between two adjacent terms.
type Operator int

const (
	OpAnd Operator = iota
	OpOr
	OpNot
)

// String returns the upper-case keyword for o.
func (o Operator) String() string {
	switch o {
	case OpAnd:
		return "AND"
	case OpOr:
		return "OR"
	case OpNot:
		return "NOT"
	default:
		return fmt.Sprintf("Operator(%d)", int(o))
	}
}

// MarshalText encodes o as its keyword so JSON output reads "AND", not 0.
func (o Operator) MarshalText() ([]byte, error) {
	return []byte(o.String()), nil
}

var operatorKeywords = map[string]Operator{
	"and": OpAnd,
	"or":  OpOr,
	"not": OpNot,
}

// BooleanQuery holds stemmed terms and the operators between them in input
// order: Terms[0] Operators[0] Terms[1] Operators[1] ... Terms[n].
// len(Terms) == len(Operators)+1 always holds.
type BooleanQuery struct {
	Terms     []string   `json:"terms"`
	Operators []Operator `json:"operators"`
	RawQuery  string     `json:"raw_query"`
}

// String renders the query with its stemmed terms, e.g. "cat AND dog".
func (q *BooleanQuery) String() string {
	var b strings.Builder
	for i, term := range q.Terms {
		if i > 0 {
			b.WriteByte(' ')
			b.WriteString(q.Operators[i-1].String())
			b.WriteByte(' ')
		}
		b.WriteString(term)
	}
	return b.String()
}

// ProximityQuery matches documents where First and Second occur within
// MaxDistance token offsets of each other, in either order.
type ProximityQuery struct {
	First       string `json:"first"`
	Second      string `json:"second"`
	MaxDistance int    `json:"max_distance"`
	RawQuery    string `json:"raw_query"`
}

// Options configure a Parser.
type Options struct {
	// MaxTokens bounds the number of tokens in a boolean query. Zero or a
	// negative value disables the cap.
	MaxTokens int
	Stemmer   stemmer.Stemmer
}

// Parser validates and stems queries. It is stateless after construction and
// safe for concurrent use.
type Parser struct {
	maxTokens int
	stemmer   stemmer.Stemmer
}

// NewParser builds a Parser. A nil Stemmer leaves terms unchanged.
func NewParser(opts Options) *Parser {
	st := opts.Stemmer
	if st == nil {
		st = stemmer.Identity{}
	}
	return &Parser{
		maxTokens: opts.MaxTokens,
		stemmer:   st,
	}
}

// ParseBoolean validates raw as an alternating term/operator sequence. Rules
// are checked in order: emptiness, token cap, token alphabet, positions and
// parity. The first violation is returned.
func (p *Parser) ParseBoolean(raw string) (*BooleanQuery, error) {
	tokens := normalize(raw)
	if len(tokens) == 0 {
		return nil, newError(ErrEmptyQuery, "query is blank")
	}
	if p.maxTokens > 0 && len(tokens) > p.maxTokens {
		return nil, newError(ErrTooManyTokens,
			fmt.Sprintf("query has %d tokens, at most %d allowed", len(tokens), p.maxTokens))
	}
	for i, tok := range tokens {
		if _, isOp := operatorKeywords[tok]; !isOp && !isAlpha(tok) {
			return nil, newTokenError(ErrInvalidToken, tok, i, "terms may only contain letters")
		}
	}

	q := &BooleanQuery{
		Terms:     make([]string, 0, len(tokens)/2+1),
		Operators: make([]Operator, 0, len(tokens)/2),
		RawQuery:  raw,
	}
	for i, tok := range tokens {
		op, isOp := operatorKeywords[tok]
		if i%2 == 0 {
			if isOp {
				return nil, newTokenError(ErrMalformedQuery, tok, i, "expected a term, found an operator")
			}
			q.Terms = append(q.Terms, tok)
			continue
		}
		if !isOp {
			return nil, newTokenError(ErrMalformedQuery, tok, i, "expected AND, OR or NOT between terms")
		}
		q.Operators = append(q.Operators, op)
	}
	if len(tokens)%2 == 0 {
		last := len(tokens) - 1
		return nil, newTokenError(ErrMalformedQuery, tokens[last], last, "query must end with a term")
	}

	for i, term := range q.Terms {
		q.Terms[i] = p.stemmer.Stem(term)
	}
	return q, nil
}

// ParseProximity validates raw as exactly two alphabetic terms and k as a
// positive distance.
func (p *Parser) ParseProximity(raw string, k int) (*ProximityQuery, error) {
	tokens := normalize(raw)
	if len(tokens) == 0 {
		return nil, newError(ErrEmptyQuery, "query is blank")
	}
	if len(tokens) != 2 {
		return nil, newError(ErrMalformedQuery,
			fmt.Sprintf("proximity queries take exactly two terms, got %d", len(tokens)))
	}
	for i, tok := range tokens {
		if !isAlpha(tok) {
			return nil, newTokenError(ErrMalformedQuery, tok, i, "terms may only contain letters")
		}
	}
	if k < 1 {
		return nil, newError(ErrInvalidDistance,
			fmt.Sprintf("distance must be a positive integer, got %d", k))
	}
	return &ProximityQuery{
		First:       p.stemmer.Stem(tokens[0]),
		Second:      p.stemmer.Stem(tokens[1]),
		MaxDistance: k,
		RawQuery:    raw,
	}, nil
}

func normalize(raw string) []string {
	return strings.Fields(strings.ToLower(raw))
}

func isAlpha(s string) bool {
	if s == "" {
		return false
	}
	for _, r := range s {
		if !unicode.IsLetter(r) {
			return false
		}
	}
	return true
}
