// Package diag holds the diagnostic model shared by the fixture parser, the
// checker adapter and the matcher.
//
// This package contains type definitions only. It imports nothing internal,
// so every other package can depend on it without cycles.
//
// Lines are 1-based and expressed in case coordinates: line 1 is the header
// line of the test case the diagnostic belongs to.
package diag

import (
	"fmt"
	"strings"
)

// Severity classifies a diagnostic.
// The zero value means "not specified" and is only meaningful on expectations.
type Severity uint8

const (
	SevUnspecified Severity = iota
	SevHelp
	SevNote
	SevWarning
	SevError
)

func (s Severity) String() string {
	switch s {
	case SevHelp:
		return "help"
	case SevNote:
		return "note"
	case SevWarning:
		return "warning"
	case SevError:
		return "error"
	}
	return "unspecified"
}

// ParseSeverity maps a marker keyword or analyzer level to a Severity.
// Matching is case-insensitive; rustc's "error: internal compiler error"
// style levels are reduced to their first word.
func ParseSeverity(s string) (Severity, bool) {
	word := strings.ToLower(strings.TrimSpace(s))
	if i := strings.IndexAny(word, " :"); i >= 0 {
		word = word[:i]
	}
	switch word {
	case "error":
		return SevError, true
	case "warn", "warning":
		return SevWarning, true
	case "note":
		return SevNote, true
	case "help":
		return SevHelp, true
	}
	return SevUnspecified, false
}

// MarshalText implements encoding.TextMarshaler so severities render as
// words in JSON and YAML.
func (s Severity) MarshalText() ([]byte, error) {
	return []byte(s.String()), nil
}

// Diagnostic is one finding emitted by the analyzer under test.
type Diagnostic struct {
	Code     string   `json:"code,omitempty"`
	Severity Severity `json:"severity"`
	Line     int      `json:"line"`
	Column   int      `json:"column,omitempty"`
	Message  string   `json:"message"`
}

// String renders the diagnostic in the short one-line form
// "<severity> <code> <line>:<col> <message>".
func (d Diagnostic) String() string {
	code := d.Code
	if code == "" {
		code = "-"
	}
	return fmt.Sprintf("%s %s %d:%d %s", d.Severity, code, d.Line, d.Column, d.Message)
}
