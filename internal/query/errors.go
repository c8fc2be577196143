package query

import (
	"errors"
	"fmt"

	apperrors "github.com/Adithya-Monish-Kumar-K/boolean-proximity-search/pkg/errors"
)

// Validation failures. Each wraps apperrors.ErrInvalidInput so transport
// layers can classify them without knowing the query package.
var (
	ErrEmptyQuery      = fmt.Errorf("%w: empty query", apperrors.ErrInvalidInput)
	ErrTooManyTokens   = fmt.Errorf("%w: too many tokens", apperrors.ErrInvalidInput)
	ErrInvalidToken    = fmt.Errorf("%w: invalid token", apperrors.ErrInvalidInput)
	ErrMalformedQuery  = fmt.Errorf("%w: malformed query", apperrors.ErrInvalidInput)
	ErrInvalidDistance = fmt.Errorf("%w: invalid distance", apperrors.ErrInvalidInput)
)

// ValidationError names the violated rule and, where one exists, the
// offending token and its 0-based position.
type ValidationError struct {
	Kind     error
	Token    string
	Position int
	Message  string
}

func (e *ValidationError) Error() string {
	if e.Token != "" {
		return fmt.Sprintf("%s: %s (token %q at position %d)", e.Kind.Error(), e.Message, e.Token, e.Position)
	}
	return fmt.Sprintf("%s: %s", e.Kind.Error(), e.Message)
}

func (e *ValidationError) Unwrap() error {
	return e.Kind
}

// KindName returns a stable identifier for the failure, suitable for metric
// labels and API responses.
func KindName(err error) string {
	switch {
	case errors.Is(err, ErrEmptyQuery):
		return "empty_query"
	case errors.Is(err, ErrTooManyTokens):
		return "too_many_tokens"
	case errors.Is(err, ErrInvalidToken):
		return "invalid_token"
	case errors.Is(err, ErrMalformedQuery):
		return "malformed_query"
	case errors.Is(err, ErrInvalidDistance):
		return "invalid_distance"
	default:
		return "unknown"
	}
}

func newError(kind error, message string) *ValidationError {
	return &ValidationError{Kind: kind, Position: -1, Message: message}
}

func newTokenError(kind error, token string, pos int, message string) *ValidationError {
	return &ValidationError{Kind: kind, Token: token, Position: pos, Message: message}
}
