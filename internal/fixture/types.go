package fixture

import (
	"fmt"
	"regexp"
	"strings"

	"golang.org/x/text/unicode/norm"

	"github.com/roach88/ownercheck/internal/diag"
)

// Status is the declared maturity of the detection a case exercises.
// It is a filter value only.
type Status string

const (
	StatusEasy    Status = "easy"
	StatusStarted Status = "started"
	StatusDone    Status = "done"
	// StatusAll cases run regardless of the status filter.
	StatusAll Status = "all"
)

// Statuses lists every status in report order.
var Statuses = []Status{StatusEasy, StatusStarted, StatusDone, StatusAll}

// ParseStatus returns the Status named by s.
func ParseStatus(s string) (Status, bool) {
	st := Status(strings.ToLower(strings.TrimSpace(s)))
	switch st {
	case StatusEasy, StatusStarted, StatusDone, StatusAll:
		return st, true
	}
	return "", false
}

// Expectation is one diagnostic a marker asserts.
type Expectation struct {
	// MarkerLine is the case line holding the marker comment.
	MarkerLine int `json:"marker_line"`
	// Offset is the number of ^ characters in the marker.
	Offset int `json:"offset"`
	// Line is the resolved case line the diagnostic must appear on.
	Line     int           `json:"line"`
	Severity diag.Severity `json:"severity"`
	Pattern  string        `json:"pattern"`
	// Trailing is set when the marker shares its line with code.
	Trailing bool `json:"trailing,omitempty"`

	re *regexp.Regexp
}

// IsRegexp reports whether Pattern is a /regular expression/.
func (e *Expectation) IsRegexp() bool {
	return e.re != nil
}

// MatchesMessage reports whether msg satisfies the pattern.
// Both sides are NFC normalized so composed and decomposed text compare equal.
func (e *Expectation) MatchesMessage(msg string) bool {
	msg = norm.NFC.String(msg)
	if e.re != nil {
		return e.re.MatchString(msg)
	}
	return strings.Contains(msg, norm.NFC.String(e.Pattern))
}

// MatchesSeverity reports whether sev satisfies the expected severity.
func (e *Expectation) MatchesSeverity(sev diag.Severity) bool {
	return e.Severity == diag.SevUnspecified || e.Severity == sev
}

func (e *Expectation) String() string {
	return e.At(e.Line)
}

// At renders the expectation as if it sat on line, usually the file line
// from TestCase.FileLine.
func (e *Expectation) At(line int) string {
	var b strings.Builder
	fmt.Fprintf(&b, "line %d:", line)
	if e.Severity != diag.SevUnspecified {
		b.WriteString(" " + strings.ToUpper(e.Severity.String()))
	}
	if e.Pattern != "" {
		b.WriteString(" " + e.Pattern)
	}
	return b.String()
}

// TestCase is one named fixture case.
// Cases are immutable once parsed.
type TestCase struct {
	// ID is a content fingerprint of the code and source span.
	ID        string `json:"id"`
	Code      string `json:"code"`
	Title     string `json:"title"`
	Status    Status `json:"status"`
	Tentative bool   `json:"tentative,omitempty"`
	File      string `json:"file"`
	// StartLine is the file line of the header.
	StartLine int `json:"start_line"`
	// Source is the verbatim span, header included. Case line 1 is the header.
	Source   string        `json:"source"`
	Expected []Expectation `json:"expected"`
}

// Lines returns the number of lines in the case span.
func (tc *TestCase) Lines() int {
	return strings.Count(tc.Source, "\n")
}

// FileLine converts a case line to a line in the fixture file.
func (tc *TestCase) FileLine(caseLine int) int {
	return tc.StartLine + caseLine - 1
}

func (tc *TestCase) String() string {
	return fmt.Sprintf("%s (%s) %s:%d", tc.Code, tc.Status, tc.File, tc.StartLine)
}
