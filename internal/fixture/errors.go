package fixture

import (
	"errors"
	"fmt"
)

// ErrorKind categorizes fixture parse errors.
type ErrorKind string

const (
	// ErrMissingHeader marks content that needs a case but has none,
	// e.g. a marker before the first header.
	ErrMissingHeader ErrorKind = "missing-header"

	// ErrMalformedHeader marks a header line that names no category code.
	ErrMalformedHeader ErrorKind = "malformed-header"

	// ErrMalformedMarker marks a marker with nothing to assert, a | with no
	// marker before it, or a pattern that is not a valid regexp.
	ErrMalformedMarker ErrorKind = "malformed-marker"

	// ErrOffsetOutOfRange marks a marker resolving outside its case span.
	ErrOffsetOutOfRange ErrorKind = "offset-out-of-range"

	// ErrNoExpectations marks a case without markers.
	ErrNoExpectations ErrorKind = "no-expectations"

	// ErrDuplicateCategory marks a category code used twice.
	ErrDuplicateCategory ErrorKind = "duplicate-category"
)

// ParseError describes one structural problem in a fixture file.
type ParseError struct {
	File string
	// Line is the file line the problem was found on.
	Line    int
	Code    string
	Kind    ErrorKind
	Message string
}

func (e *ParseError) Error() string {
	if e.Code != "" {
		return fmt.Sprintf("%s:%d: %s: %s: %s", e.File, e.Line, e.Kind, e.Code, e.Message)
	}
	return fmt.Sprintf("%s:%d: %s: %s", e.File, e.Line, e.Kind, e.Message)
}

// IsParseError returns true if err is or wraps a *ParseError.
func IsParseError(err error) bool {
	var pe *ParseError
	return errors.As(err, &pe)
}

// ParseErrors flattens err (possibly an errors.Join tree) into its
// *ParseError leaves, in order.
func ParseErrors(err error) []*ParseError {
	if err == nil {
		return nil
	}
	if pe, ok := err.(*ParseError); ok {
		return []*ParseError{pe}
	}
	var out []*ParseError
	switch u := err.(type) {
	case interface{ Unwrap() []error }:
		for _, e := range u.Unwrap() {
			out = append(out, ParseErrors(e)...)
		}
	case interface{ Unwrap() error }:
		out = append(out, ParseErrors(u.Unwrap())...)
	}
	return out
}
