package loader

import (
	"fmt"
	"strconv"
	"strings"
	"unicode"
)

// literalScanner reads the collection literals found on the right-hand side
// of index lines. Only a fixed grammar is accepted:
//
//	docs      = "set()" | open item { "," item } [ "," ] close | open close
//	positions = "{" [ key ":" list { "," key ":" list } [ "," ] ] "}"
//	list      = "[" [ int { "," int } [ "," ] ] "]"
//	item, key = quoted string | bare word | integer
//
// where open/close are matching {}, [] or (). Nothing is ever evaluated.
type literalScanner struct {
	src string
	pos int
}

func (s *literalScanner) skipSpace() {
	for s.pos < len(s.src) && (s.src[s.pos] == ' ' || s.src[s.pos] == '\t') {
		s.pos++
	}
}

func (s *literalScanner) peek() byte {
	s.skipSpace()
	if s.pos >= len(s.src) {
		return 0
	}
	return s.src[s.pos]
}

func (s *literalScanner) expect(c byte) error {
	if s.peek() != c {
		return s.errorf("expected %q", c)
	}
	s.pos++
	return nil
}

func (s *literalScanner) done() error {
	if s.peek() != 0 {
		return s.errorf("unexpected trailing input")
	}
	return nil
}

func (s *literalScanner) errorf(format string, args ...any) error {
	msg := fmt.Sprintf(format, args...)
	if s.pos >= len(s.src) {
		return fmt.Errorf("%s at end of literal", msg)
	}
	return fmt.Errorf("%s at column %d near %q", msg, s.pos+1, excerpt(s.src[s.pos:]))
}

func excerpt(s string) string {
	if len(s) > 12 {
		return s[:12] + "..."
	}
	return s
}

// parseDocIDs reads a set, list or tuple of document IDs.
func (s *literalScanner) parseDocIDs() ([]string, error) {
	s.skipSpace()
	if strings.HasPrefix(s.src[s.pos:], "set()") {
		s.pos += len("set()")
		return []string{}, s.done()
	}
	open := s.peek()
	var close byte
	switch open {
	case '{':
		close = '}'
	case '[':
		close = ']'
	case '(':
		close = ')'
	default:
		return nil, s.errorf("expected a set or list of document IDs")
	}
	s.pos++
	ids := make([]string, 0)
	for {
		if s.peek() == close {
			s.pos++
			break
		}
		id, err := s.parseScalar()
		if err != nil {
			return nil, err
		}
		ids = append(ids, id)
		switch s.peek() {
		case ',':
			s.pos++
		case close:
		default:
			return nil, s.errorf("expected ',' or %q", close)
		}
	}
	return ids, s.done()
}

// parsePositions reads a mapping of document ID to a list of offsets.
func (s *literalScanner) parsePositions() (map[string][]int, error) {
	if err := s.expect('{'); err != nil {
		return nil, err
	}
	out := make(map[string][]int)
	for {
		if s.peek() == '}' {
			s.pos++
			break
		}
		key, err := s.parseScalar()
		if err != nil {
			return nil, err
		}
		if _, dup := out[key]; dup {
			return nil, s.errorf("duplicate document %q", key)
		}
		if err := s.expect(':'); err != nil {
			return nil, err
		}
		offsets, err := s.parseIntList()
		if err != nil {
			return nil, err
		}
		out[key] = offsets
		switch s.peek() {
		case ',':
			s.pos++
		case '}':
		default:
			return nil, s.errorf("expected ',' or '}'")
		}
	}
	return out, s.done()
}

func (s *literalScanner) parseIntList() ([]int, error) {
	if err := s.expect('['); err != nil {
		return nil, err
	}
	out := make([]int, 0)
	for {
		if s.peek() == ']' {
			s.pos++
			return out, nil
		}
		start := s.pos
		if s.pos < len(s.src) && s.src[s.pos] == '-' {
			s.pos++
		}
		for s.pos < len(s.src) && s.src[s.pos] >= '0' && s.src[s.pos] <= '9' {
			s.pos++
		}
		n, err := strconv.Atoi(s.src[start:s.pos])
		if err != nil {
			s.pos = start
			return nil, s.errorf("expected an integer offset")
		}
		if n < 0 {
			s.pos = start
			return nil, s.errorf("offsets must not be negative")
		}
		out = append(out, n)
		switch s.peek() {
		case ',':
			s.pos++
		case ']':
		default:
			return nil, s.errorf("expected ',' or ']'")
		}
	}
}

// parseScalar reads a quoted string, or a bare word of letters, digits and
// the punctuation common in file names.
func (s *literalScanner) parseScalar() (string, error) {
	c := s.peek()
	if c == '\'' || c == '"' {
		end := strings.IndexByte(s.src[s.pos+1:], c)
		if end < 0 {
			return "", s.errorf("unterminated string")
		}
		val := s.src[s.pos+1 : s.pos+1+end]
		if strings.ContainsRune(val, '\\') {
			return "", s.errorf("escape sequences are not supported")
		}
		s.pos += end + 2
		if val == "" {
			return "", s.errorf("empty document ID")
		}
		return val, nil
	}
	start := s.pos
	for s.pos < len(s.src) {
		r := rune(s.src[s.pos])
		if !unicode.IsLetter(r) && !unicode.IsDigit(r) && !strings.ContainsRune("_-./", r) {
			break
		}
		s.pos++
	}
	if s.pos == start {
		return "", s.errorf("expected a document ID")
	}
	return s.src[start:s.pos], nil
}
