package testutil

import (
	"context"
	"fmt"
	"strings"
	"sync"
	"time"

	"github.com/roach88/ownercheck/internal/checker"
	"github.com/roach88/ownercheck/internal/diag"
	"github.com/roach88/ownercheck/internal/fixture"
)

// Response scripts what a ScriptedChecker does for one unit.
type Response struct {
	Diags []diag.Diagnostic
	Err   error
	// Block waits for the invocation context to end, simulating a hung
	// analyzer.
	Block bool
	// Delay sleeps before answering, honoring the context.
	Delay time.Duration
	Panic any
}

// ScriptedChecker answers each unit from a table keyed by unit name
// ("case_e382" for category E382). Units without an entry get no
// diagnostics. It records the units it was asked to check.
//
// Thread-safety: safe for concurrent use.
type ScriptedChecker struct {
	Responses map[string]Response

	mu    sync.Mutex
	units []checker.Unit
}

// Check implements checker.Checker.
func (s *ScriptedChecker) Check(ctx context.Context, u checker.Unit) ([]diag.Diagnostic, error) {
	s.mu.Lock()
	s.units = append(s.units, u)
	s.mu.Unlock()

	resp := s.Responses[u.Name]
	if resp.Panic != nil {
		panic(resp.Panic)
	}
	if resp.Block {
		<-ctx.Done()
		return nil, ctx.Err()
	}
	if resp.Delay > 0 {
		select {
		case <-time.After(resp.Delay):
		case <-ctx.Done():
			return nil, ctx.Err()
		}
	}
	return resp.Diags, resp.Err
}

// Units returns the units checked so far, in call order.
func (s *ScriptedChecker) Units() []checker.Unit {
	s.mu.Lock()
	defer s.mu.Unlock()
	return append([]checker.Unit(nil), s.units...)
}

// MarkerChecker is a perfect analyzer: it re-reads the markers in each unit
// and reports exactly the diagnostics they expect, on the lines they
// target. Regex patterns are reported verbatim, slashes removed, so they
// only match themselves by accident. Markers without a severity are
// reported as errors.
//
// Thread-safety: MarkerChecker is stateless and safe for concurrent use.
type MarkerChecker struct{}

// Check implements checker.Checker.
func (MarkerChecker) Check(ctx context.Context, u checker.Unit) ([]diag.Diagnostic, error) {
	cases, err := fixture.Parse(u.Name, []byte(u.Source))
	if err != nil {
		return nil, fmt.Errorf("marker checker: %w", err)
	}

	var diags []diag.Diagnostic
	for _, tc := range cases {
		for _, exp := range tc.Expected {
			sev := exp.Severity
			if sev == diag.SevUnspecified {
				sev = diag.SevError
			}
			msg := exp.Pattern
			if exp.IsRegexp() {
				msg = strings.TrimSuffix(strings.TrimPrefix(msg, "/"), "/")
			}
			diags = append(diags, diag.Diagnostic{
				Code:     tc.Code,
				Severity: sev,
				Line:     tc.FileLine(exp.Line),
				Column:   1,
				Message:  msg,
			})
		}
	}
	return diags, nil
}
