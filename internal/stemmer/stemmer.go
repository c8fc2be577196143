// Package stemmer reduces query terms to the root form the index was built
// with. The default is the classic Porter algorithm, which matches indexes
// built with the usual Porter tooling. Snowball English (Porter2), a lighter
// suffix-stripping stemmer and an identity stemmer are also available.
package stemmer

import (
	"fmt"
	"strings"

	"github.com/blevesearch/go-porterstemmer"
	"github.com/kljensen/snowball/english"
)

// Stemmer maps a lowercase token to its stem. Implementations must be pure
// and safe for concurrent use.
type Stemmer interface {
	Stem(token string) string
}

// Func adapts an ordinary function to the Stemmer interface.
type Func func(token string) string

func (f Func) Stem(token string) string { return f(token) }

const (
	NamePorter   = "porter"
	NamePorter2  = "porter2"
	NameSnowball = "snowball"
	NameSuffix   = "suffix"
	NameNone     = "none"
)

// New returns the stemmer registered under name.
func New(name string) (Stemmer, error) {
	switch strings.ToLower(name) {
	case "", NamePorter:
		return Porter{}, nil
	case NamePorter2, NameSnowball:
		return Snowball{}, nil
	case NameSuffix:
		return Suffix{}, nil
	case NameNone:
		return Identity{}, nil
	default:
		return nil, fmt.Errorf("unknown stemmer %q", name)
	}
}

// Porter is the original 1980 Porter algorithm ("fairly" stems to "fairli",
// "generously" to "gener").
type Porter struct{}

func (Porter) Stem(token string) string {
	return porterstemmer.StemString(token)
}

// Snowball is the Snowball English (Porter2) stemmer. Stop words are stemmed
// like any other word so that every query term maps to exactly one index term.
type Snowball struct{}

func (Snowball) Stem(token string) string {
	return english.Stem(token, true)
}

// Identity returns tokens unchanged.
type Identity struct{}

func (Identity) Stem(token string) string { return token }

type suffixRule struct {
	suffix      string
	replacement string
	minLen      int
}

var suffixRules = []suffixRule{
	{"ational", "ate", 2},
	{"tional", "tion", 2},
	{"encies", "ence", 2},
	{"ances", "ance", 2},
	{"ments", "ment", 2},
	{"izing", "ize", 2},
	{"ating", "ate", 2},
	{"iness", "y", 2},
	{"ously", "ous", 2},
	{"ively", "ive", 2},
	{"eness", "ene", 2},
	{"tion", "t", 3},
	{"sion", "s", 3},
	{"ying", "y", 2},
	{"ling", "l", 3},
	{"ies", "y", 2},
	{"ing", "", 3},
	{"ers", "er", 2},
	{"est", "", 3},
	{"ful", "", 3},
	{"ous", "", 3},
	{"ess", "", 3},
	{"ble", "", 3},
	{"ed", "", 3},
	{"er", "", 3},
	{"ly", "", 3},
	{"es", "", 3},
	{"ss", "ss", 2},
	{"s", "", 3},
}

// Suffix strips the first matching suffix rule whose result keeps at least
// minLen characters.
type Suffix struct{}

func (Suffix) Stem(token string) string {
	for _, rule := range suffixRules {
		if strings.HasSuffix(token, rule.suffix) {
			stemmed := token[:len(token)-len(rule.suffix)] + rule.replacement
			if len(stemmed) >= rule.minLen {
				return stemmed
			}
		}
	}
	return token
}
