package numerator

import (
	"errors"
	"fmt"
	"strings"
)

// ErrorKind identifies which pattern rule was violated.
// The set is closed: callers switch on it instead of parsing messages.
type ErrorKind int

const (
	// KindNone is the zero value carried by valid results.
	KindNone ErrorKind = iota

	// EmptyPattern: pattern is empty or whitespace-only.
	EmptyPattern

	// MissingCounterToken: no {SEQ:n} token present.
	MissingCounterToken

	// AmbiguousCounterToken: more than one {SEQ:n} token present.
	AmbiguousCounterToken

	// InvalidCounterWidth: n is outside [MinPadding, MaxPadding].
	InvalidCounterWidth

	// DisallowedCharacters: literal characters outside the permitted set.
	DisallowedCharacters
)

// String returns a stable machine-readable name for the kind.
func (k ErrorKind) String() string {
	switch k {
	case KindNone:
		return "none"
	case EmptyPattern:
		return "empty_pattern"
	case MissingCounterToken:
		return "missing_counter_token"
	case AmbiguousCounterToken:
		return "ambiguous_counter_token"
	case InvalidCounterWidth:
		return "invalid_counter_width"
	case DisallowedCharacters:
		return "disallowed_characters"
	default:
		return fmt.Sprintf("kind(%d)", int(k))
	}
}

// PatternError is returned by Generate and Preview when the pattern is invalid.
// Message is meant to be shown to the account owner as is.
type PatternError struct {
	Kind       ErrorKind
	Message    string
	Disallowed []rune
}

// Error implements error.
func (e *PatternError) Error() string {
	return e.Message
}

// Characters returns the offending characters as strings (DisallowedCharacters only).
func (e *PatternError) Characters() []string {
	if len(e.Disallowed) == 0 {
		return nil
	}
	out := make([]string, len(e.Disallowed))
	for i, r := range e.Disallowed {
		out[i] = string(r)
	}
	return out
}

// AsPatternError extracts PatternError from error chain.
func AsPatternError(err error) (*PatternError, bool) {
	var pe *PatternError
	if errors.As(err, &pe) {
		return pe, true
	}
	return nil, false
}

// ErrUnknownDocType is returned for document types other than invoice and quote.
var ErrUnknownDocType = errors.New("unknown document type")

// ErrNumberMismatch is returned by Parse when a number was not produced by the pattern.
var ErrNumberMismatch = errors.New("number does not match pattern")

func messageFor(kind ErrorKind, disallowed []rune) string {
	switch kind {
	case EmptyPattern:
		return "pattern is empty"
	case MissingCounterToken:
		return "pattern has no counter token: add {SEQ:n} with n between 1 and 6"
	case AmbiguousCounterToken:
		return "pattern has more than one counter token: keep exactly one {SEQ:n}"
	case InvalidCounterWidth:
		return fmt.Sprintf("counter width must be between %d and %d", MinPadding, MaxPadding)
	case DisallowedCharacters:
		quoted := make([]string, len(disallowed))
		for i, r := range disallowed {
			quoted[i] = fmt.Sprintf("%q", r)
		}
		return "pattern contains disallowed characters: " + strings.Join(quoted, ", ")
	default:
		return ""
	}
}
