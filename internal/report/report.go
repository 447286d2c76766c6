// Package report aggregates case verdicts into a run summary and renders
// it for people or machines. It never decides exit codes.
package report

import (
	"context"
	"fmt"
	"log/slog"

	"github.com/roach88/ownercheck/internal/fixture"
	"github.com/roach88/ownercheck/internal/match"
	"github.com/roach88/ownercheck/internal/store"
)

// Totals counts verdicts.
type Totals struct {
	Total   int
	Passed  int
	Failed  int
	Errored int
}

func (t *Totals) add(verdict match.Verdict, n int) {
	t.Total += n
	switch verdict {
	case match.VerdictPass:
		t.Passed += n
	case match.VerdictFail:
		t.Failed += n
	case match.VerdictError:
		t.Errored += n
	}
}

// FailureDetail is one expected/actual discrepancy. Lines are fixture file
// lines; zero means the side is absent.
type FailureDetail struct {
	Reason       match.Reason
	ExpectedLine int
	Expected     string
	ActualLine   int
	Actual       string
	Detail       string
}

// CaseFailure is a case that did not pass.
type CaseFailure struct {
	Code      string
	ID        string
	Title     string
	Status    fixture.Status
	Tentative bool
	File      string
	// Line is the file line of the case header.
	Line    int
	Verdict match.Verdict
	// Error is the adapter failure for error verdicts.
	Error    string
	Failures []FailureDetail
}

// Report is the summary of one run.
type Report struct {
	RunID  string
	Strict bool
	Totals Totals
	// ByStatus holds an entry for every status with at least one case.
	ByStatus map[fixture.Status]Totals
	// Failures are sorted by category code.
	Failures   []CaseFailure
	Structural []string
}

// OK reports whether every case passed and the fixtures were well formed.
func (r *Report) OK() bool {
	return r.Totals.Failed == 0 && r.Totals.Errored == 0 && len(r.Structural) == 0
}

// Aggregator accumulates verdicts in a run ledger.
// Add and AddStructural may be called from concurrent workers.
type Aggregator struct {
	store  *store.Store
	runID  string
	strict bool
	logger *slog.Logger
}

// Config configures an Aggregator.
type Config struct {
	RunID   string
	Strict  bool
	Workers int
	Logger  *slog.Logger
}

// NewAggregator begins a run in st.
func NewAggregator(ctx context.Context, st *store.Store, cfg Config) (*Aggregator, error) {
	if cfg.RunID == "" {
		return nil, fmt.Errorf("aggregator: empty run ID")
	}
	if err := st.BeginRun(ctx, cfg.RunID, cfg.Strict, cfg.Workers); err != nil {
		return nil, err
	}
	logger := cfg.Logger
	if logger == nil {
		logger = slog.New(slog.DiscardHandler)
	}
	return &Aggregator{store: st, runID: cfg.RunID, strict: cfg.Strict, logger: logger}, nil
}

// RunID returns the run this aggregator records.
func (a *Aggregator) RunID() string {
	return a.runID
}

// Add records the verdict of one case.
func (a *Aggregator) Add(ctx context.Context, tc *fixture.TestCase, res match.Result) error {
	rec := store.CaseRecord{
		RunID:     a.runID,
		CaseID:    tc.ID,
		Code:      tc.Code,
		Title:     tc.Title,
		Status:    string(tc.Status),
		Tentative: tc.Tentative,
		File:      tc.File,
		StartLine: tc.StartLine,
		Verdict:   string(res.Verdict),
		Actual:    res.Actual,
	}
	if res.AdapterErr != nil {
		rec.AdapterError = res.AdapterErr.Error()
	}
	for _, f := range res.Failures {
		fr := store.FailureRecord{Reason: string(f.Reason), Detail: f.Detail}
		if f.Expected != nil {
			fr.ExpectedLine = tc.FileLine(f.Expected.Line)
			fr.Expected = f.Expected.At(fr.ExpectedLine)
		}
		if f.Actual != nil {
			d := *f.Actual
			d.Line = tc.FileLine(d.Line)
			fr.ActualLine = d.Line
			fr.Actual = d.String()
		}
		rec.Failures = append(rec.Failures, fr)
	}

	if err := a.store.WriteCase(ctx, rec); err != nil {
		return err
	}
	a.logger.Debug("case recorded", "case", tc.Code, "verdict", res.Verdict, "failures", len(res.Failures))
	return nil
}

// AddStructural records fixture problems. Joined errors are recorded one
// entry per leaf.
func (a *Aggregator) AddStructural(ctx context.Context, err error) error {
	for _, leaf := range leaves(err) {
		if err := a.store.WriteStructural(ctx, a.runID, leaf.Error()); err != nil {
			return err
		}
		a.logger.Debug("structural error recorded", "error", leaf)
	}
	return nil
}

func leaves(err error) []error {
	if err == nil {
		return nil
	}
	if j, ok := err.(interface{ Unwrap() []error }); ok {
		var out []error
		for _, e := range j.Unwrap() {
			out = append(out, leaves(e)...)
		}
		return out
	}
	return []error{err}
}

// Report reads the accumulated results back as a summary.
func (a *Aggregator) Report(ctx context.Context) (*Report, error) {
	rep := &Report{
		RunID:    a.runID,
		Strict:   a.strict,
		ByStatus: make(map[fixture.Status]Totals),
	}

	counts, err := a.store.Counts(ctx, a.runID)
	if err != nil {
		return nil, fmt.Errorf("report: %w", err)
	}
	for _, c := range counts {
		v := match.Verdict(c.Verdict)
		rep.Totals.add(v, c.Count)
		st := rep.ByStatus[fixture.Status(c.Status)]
		st.add(v, c.Count)
		rep.ByStatus[fixture.Status(c.Status)] = st
	}

	unpassed, err := a.store.ReadUnpassed(ctx, a.runID)
	if err != nil {
		return nil, fmt.Errorf("report: %w", err)
	}
	rep.Failures = make([]CaseFailure, 0, len(unpassed))
	for _, rec := range unpassed {
		cf := CaseFailure{
			Code:      rec.Code,
			ID:        rec.CaseID,
			Title:     rec.Title,
			Status:    fixture.Status(rec.Status),
			Tentative: rec.Tentative,
			File:      rec.File,
			Line:      rec.StartLine,
			Verdict:   match.Verdict(rec.Verdict),
			Error:     rec.AdapterError,
		}
		for _, f := range rec.Failures {
			cf.Failures = append(cf.Failures, FailureDetail{
				Reason:       match.Reason(f.Reason),
				ExpectedLine: f.ExpectedLine,
				Expected:     f.Expected,
				ActualLine:   f.ActualLine,
				Actual:       f.Actual,
				Detail:       f.Detail,
			})
		}
		rep.Failures = append(rep.Failures, cf)
	}

	rep.Structural, err = a.store.ReadStructural(ctx, a.runID)
	if err != nil {
		return nil, fmt.Errorf("report: %w", err)
	}
	return rep, nil
}
