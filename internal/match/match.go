// Package match aligns a case's expectations with the diagnostics the
// analyzer actually reported and decides the case verdict.
package match

import (
	"fmt"
	"strings"

	"github.com/roach88/ownercheck/internal/diag"
	"github.com/roach88/ownercheck/internal/fixture"
)

// Verdict is the outcome of one case.
type Verdict string

const (
	VerdictPass  Verdict = "pass"
	VerdictFail  Verdict = "fail"
	VerdictError Verdict = "error"
)

// Reason explains one Failure.
type Reason string

const (
	// ReasonMissing: no actual diagnostic resembles the expectation.
	ReasonMissing Reason = "missing"
	// ReasonUnexpected: an actual diagnostic matched no expectation (strict only).
	ReasonUnexpected Reason = "unexpected"
	// ReasonMismatchedLine: the message was reported, on another line.
	ReasonMismatchedLine Reason = "mismatched-line"
	// ReasonMismatchedMessage: something was reported on the line, with
	// another message or severity.
	ReasonMismatchedMessage Reason = "mismatched-message"
)

// Failure is one discrepancy between expected and actual diagnostics.
// Expected is nil for unexpected diagnostics; Actual is nil for missing ones.
type Failure struct {
	Reason   Reason
	Expected *fixture.Expectation
	Actual   *diag.Diagnostic
	Detail   string
}

// Result is the verdict for one case.
type Result struct {
	Verdict  Verdict
	Failures []Failure
	// AdapterErr is set when Verdict is VerdictError.
	AdapterErr error
	// Actual is the analyzer output the verdict was decided on.
	Actual []diag.Diagnostic
}

// Options controls matching.
type Options struct {
	// Strict fails cases on actual diagnostics no expectation claims.
	Strict bool
}

// Errored returns the result for a case whose analyzer invocation failed.
func Errored(err error) Result {
	return Result{Verdict: VerdictError, AdapterErr: err}
}

// Match decides the verdict of tc given the analyzer's diagnostics.
//
// Expectations are taken in source order; each claims the first unclaimed
// diagnostic, in analyzer order, on its line with a matching message and
// severity. Assignment is greedy, not optimal.
func Match(tc *fixture.TestCase, actual []diag.Diagnostic, opts Options) Result {
	used := make([]bool, len(actual))
	var unmatched []int

	for i := range tc.Expected {
		exp := &tc.Expected[i]
		j := find(actual, used, func(d *diag.Diagnostic) bool {
			return d.Line == exp.Line && exp.MatchesMessage(d.Message) && exp.MatchesSeverity(d.Severity)
		})
		if j < 0 {
			unmatched = append(unmatched, i)
			continue
		}
		used[j] = true
	}

	// Diffs only look at diagnostics no expectation claimed, so a near miss
	// never points at a diagnostic that satisfied another marker. A
	// diagnostic a diff cites is not reported again as unexpected.
	var failures []Failure
	cited := make([]bool, len(actual))
	for _, i := range unmatched {
		f := diff(tc, &tc.Expected[i], actual, used)
		if j := index(actual, f.Actual); j >= 0 {
			cited[j] = true
		}
		failures = append(failures, f)
	}
	if opts.Strict {
		for j := range actual {
			if used[j] || cited[j] {
				continue
			}
			d := &actual[j]
			failures = append(failures, Failure{
				Reason: ReasonUnexpected,
				Actual: d,
				Detail: fmt.Sprintf("unexpected %s", inFile(tc, d)),
			})
		}
	}

	if len(failures) > 0 {
		return Result{Verdict: VerdictFail, Failures: failures, Actual: actual}
	}
	return Result{Verdict: VerdictPass, Actual: actual}
}

// diff explains why exp went unmatched. Lines in Detail are file lines.
func diff(tc *fixture.TestCase, exp *fixture.Expectation, actual []diag.Diagnostic, used []bool) Failure {
	want := exp.At(tc.FileLine(exp.Line))
	onLine := find(actual, used, func(d *diag.Diagnostic) bool {
		return d.Line == exp.Line
	})
	if onLine >= 0 {
		d := &actual[onLine]
		return Failure{
			Reason:   ReasonMismatchedMessage,
			Expected: exp,
			Actual:   d,
			Detail:   fmt.Sprintf("expected %s, found %s", want, describe(d)),
		}
	}

	elsewhere := find(actual, used, func(d *diag.Diagnostic) bool {
		return exp.MatchesMessage(d.Message) && exp.MatchesSeverity(d.Severity)
	})
	if elsewhere >= 0 {
		d := &actual[elsewhere]
		return Failure{
			Reason:   ReasonMismatchedLine,
			Expected: exp,
			Actual:   d,
			Detail:   fmt.Sprintf("expected %s, reported on line %d", want, tc.FileLine(d.Line)),
		}
	}

	return Failure{
		Reason:   ReasonMissing,
		Expected: exp,
		Detail:   fmt.Sprintf("expected %s, not reported", want),
	}
}

func find(actual []diag.Diagnostic, used []bool, pred func(*diag.Diagnostic) bool) int {
	for j := range actual {
		if !used[j] && pred(&actual[j]) {
			return j
		}
	}
	return -1
}

func index(actual []diag.Diagnostic, d *diag.Diagnostic) int {
	for j := range actual {
		if &actual[j] == d {
			return j
		}
	}
	return -1
}

// inFile returns d with its line moved from case to file numbering.
func inFile(tc *fixture.TestCase, d *diag.Diagnostic) diag.Diagnostic {
	out := *d
	out.Line = tc.FileLine(d.Line)
	return out
}

func describe(d *diag.Diagnostic) string {
	return fmt.Sprintf("%s %q", strings.ToUpper(d.Severity.String()), d.Message)
}
