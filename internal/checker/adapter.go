// Package checker invokes the analyzer under test and normalizes its
// diagnostics into case coordinates.
package checker

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"regexp"
	"runtime/debug"
	"strings"
	"time"

	"github.com/roach88/ownercheck/internal/diag"
	"github.com/roach88/ownercheck/internal/fixture"
)

// DefaultTimeout bounds one analyzer invocation.
const DefaultTimeout = 30 * time.Second

// Unit is a self-contained source unit handed to the analyzer.
type Unit struct {
	// Name is a file-name-safe identifier for the unit.
	Name   string
	Source string
}

// Checker is the analyzer under test.
//
// Implementations must keep invocations independent: Check may be called
// concurrently, and no call may observe state left by another.
// Lines in the returned diagnostics are 1-based lines of u.Source.
type Checker interface {
	Check(ctx context.Context, u Unit) ([]diag.Diagnostic, error)
}

// CheckerFunc adapts a function to the Checker interface.
type CheckerFunc func(ctx context.Context, u Unit) ([]diag.Diagnostic, error)

func (f CheckerFunc) Check(ctx context.Context, u Unit) ([]diag.Diagnostic, error) {
	return f(ctx, u)
}

// Scaffold is text wrapped around every case before analysis, such as
// crate attributes or a main function. It is never stored on a case.
type Scaffold struct {
	Prelude  string
	Epilogue string
}

// Adapter runs one case through a Checker with a deadline, panic
// recovery and line remapping. It holds no per-invocation state.
type Adapter struct {
	checker  Checker
	timeout  time.Duration
	scaffold Scaffold
	logger   *slog.Logger
}

// AdapterOption configures an Adapter.
type AdapterOption func(*Adapter)

// WithTimeout sets the per-invocation deadline. Zero or negative keeps
// DefaultTimeout.
func WithTimeout(d time.Duration) AdapterOption {
	return func(a *Adapter) {
		if d > 0 {
			a.timeout = d
		}
	}
}

// WithScaffold sets the text surrounding each case.
func WithScaffold(s Scaffold) AdapterOption {
	return func(a *Adapter) {
		a.scaffold = s
	}
}

// WithLogger sets the adapter logger.
func WithLogger(l *slog.Logger) AdapterOption {
	return func(a *Adapter) {
		if l != nil {
			a.logger = l
		}
	}
}

// NewAdapter wraps c.
func NewAdapter(c Checker, opts ...AdapterOption) *Adapter {
	a := &Adapter{
		checker: c,
		timeout: DefaultTimeout,
		logger:  slog.New(slog.DiscardHandler),
	}
	for _, opt := range opts {
		opt(a)
	}
	return a
}

// Timeout returns the per-invocation deadline.
func (a *Adapter) Timeout() time.Duration {
	return a.timeout
}

type checkResult struct {
	diags []diag.Diagnostic
	err   error
}

// Invoke analyzes tc and returns its diagnostics in analyzer order, with
// lines in case coordinates. Any failure is an *AdapterError.
//
// Invoke returns once the deadline passes even if the Checker ignores its
// context; the abandoned call finishes in the background.
func (a *Adapter) Invoke(ctx context.Context, tc *fixture.TestCase) ([]diag.Diagnostic, error) {
	ctx, cancel := context.WithTimeout(ctx, a.timeout)
	defer cancel()

	unit, offset := a.unit(tc)
	done := make(chan checkResult, 1)

	go func() {
		defer func() {
			if r := recover(); r != nil {
				done <- checkResult{err: &AdapterError{
					Kind:   KindCrash,
					Err:    fmt.Errorf("analyzer panicked: %v", r),
					Stderr: string(debug.Stack()),
				}}
			}
		}()
		diags, err := a.checker.Check(ctx, unit)
		done <- checkResult{diags: diags, err: err}
	}()

	var res checkResult
	select {
	case res = <-done:
	case <-ctx.Done():
		res = checkResult{err: ctx.Err()}
	}

	if res.err != nil {
		err := a.classify(ctx, tc, res.err)
		a.logger.Debug("analyzer failed", "case", tc.Code, "error", err)
		return nil, err
	}

	out := make([]diag.Diagnostic, len(res.diags))
	for i, d := range res.diags {
		d.Line -= offset
		out[i] = d
	}
	a.logger.Debug("analyzer finished", "case", tc.Code, "diagnostics", len(out))
	return out, nil
}

func (a *Adapter) classify(ctx context.Context, tc *fixture.TestCase, err error) error {
	var ae *AdapterError
	if errors.As(err, &ae) {
		cp := *ae
		cp.Case = tc.Code
		return &cp
	}
	if errors.Is(err, context.DeadlineExceeded) || errors.Is(ctx.Err(), context.DeadlineExceeded) {
		return &AdapterError{
			Kind: KindTimeout,
			Case: tc.Code,
			Err:  fmt.Errorf("no result within %s: %w", a.timeout, err),
		}
	}
	return &AdapterError{Kind: KindCrash, Case: tc.Code, Err: err}
}

var unsafeName = regexp.MustCompile(`[^a-z0-9_]+`)

// unit builds the source unit for tc and returns the number of prelude
// lines to subtract from analyzer lines.
func (a *Adapter) unit(tc *fixture.TestCase) (Unit, int) {
	prelude := a.scaffold.Prelude
	if prelude != "" && !strings.HasSuffix(prelude, "\n") {
		prelude += "\n"
	}
	name := "case_" + unsafeName.ReplaceAllString(strings.ToLower(tc.Code), "_")
	return Unit{
		Name:   name,
		Source: prelude + tc.Source + a.scaffold.Epilogue,
	}, strings.Count(prelude, "\n")
}
