package harness

import (
	"context"
	"fmt"
	"iter"
	"log/slog"
	"runtime"

	"golang.org/x/sync/errgroup"

	"github.com/roach88/ownercheck/internal/checker"
	"github.com/roach88/ownercheck/internal/diag"
	"github.com/roach88/ownercheck/internal/fixture"
	"github.com/roach88/ownercheck/internal/match"
	"github.com/roach88/ownercheck/internal/report"
	"github.com/roach88/ownercheck/internal/store"
)

// Invoker analyzes one case. *checker.Adapter implements it.
type Invoker interface {
	Invoke(ctx context.Context, tc *fixture.TestCase) ([]diag.Diagnostic, error)
}

// Options configures a run.
type Options struct {
	// Workers bounds concurrent invocations. Zero means GOMAXPROCS.
	Workers int
	Strict  bool

	// Structural errors found while loading fixtures are recorded in the
	// report and fail the run.
	Structural []error

	// Store receives the run ledger. A private in-memory store is used
	// when nil.
	Store *store.Store

	// IDs generates the run ID. Defaults to UUIDv7Generator.
	IDs    RunIDGenerator
	Logger *slog.Logger
}

type runner struct {
	invoker Invoker
	agg     *report.Aggregator
	match   match.Options
	logger  *slog.Logger
}

// Run evaluates every case in cases and returns the aggregated report.
//
// A case never aborts the run: adapter failures and panics become error
// verdicts. Run returns an error only if the ledger fails or ctx is
// cancelled.
func Run(ctx context.Context, cases iter.Seq[*fixture.TestCase], inv Invoker, opts Options) (*report.Report, error) {
	logger := opts.Logger
	if logger == nil {
		logger = slog.New(slog.DiscardHandler)
	}
	workers := opts.Workers
	if workers <= 0 {
		workers = runtime.GOMAXPROCS(0)
	}
	ids := opts.IDs
	if ids == nil {
		ids = UUIDv7Generator{}
	}

	st := opts.Store
	if st == nil {
		var err error
		st, err = store.Open(store.MemoryPath)
		if err != nil {
			return nil, fmt.Errorf("failed to create run ledger: %w", err)
		}
		defer st.Close()
	}

	agg, err := report.NewAggregator(ctx, st, report.Config{
		RunID:   ids.Generate(),
		Strict:  opts.Strict,
		Workers: workers,
		Logger:  logger,
	})
	if err != nil {
		return nil, fmt.Errorf("failed to start run: %w", err)
	}
	logger.Info("run started", "run_id", agg.RunID(), "workers", workers, "strict", opts.Strict)

	for _, serr := range opts.Structural {
		if err := agg.AddStructural(ctx, serr); err != nil {
			return nil, err
		}
	}

	r := &runner{
		invoker: inv,
		agg:     agg,
		match:   match.Options{Strict: opts.Strict},
		logger:  logger,
	}

	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(workers)
	dispatched := 0
	for tc := range cases {
		if gctx.Err() != nil {
			break
		}
		dispatched++
		g.Go(func() error {
			return r.agg.Add(gctx, tc, r.evaluate(gctx, tc))
		})
	}
	if err := g.Wait(); err != nil {
		return nil, fmt.Errorf("run aborted: %w", err)
	}
	if err := ctx.Err(); err != nil {
		return nil, fmt.Errorf("run cancelled: %w", err)
	}

	rep, err := agg.Report(ctx)
	if err != nil {
		return nil, err
	}
	logger.Info("run finished",
		"run_id", rep.RunID,
		"cases", dispatched,
		"passed", rep.Totals.Passed,
		"failed", rep.Totals.Failed,
		"errored", rep.Totals.Errored,
	)
	return rep, nil
}

// evaluate produces the verdict of one case. It does not panic.
func (r *runner) evaluate(ctx context.Context, tc *fixture.TestCase) (res match.Result) {
	defer func() {
		if p := recover(); p != nil {
			r.logger.Error("case panicked", "case", tc.Code, "panic", p)
			res = match.Errored(&checker.AdapterError{
				Kind: checker.KindCrash,
				Case: tc.Code,
				Err:  fmt.Errorf("panic while evaluating case: %v", p),
			})
		}
	}()

	diags, err := r.invoker.Invoke(ctx, tc)
	if err != nil {
		r.logger.Warn("adapter failed", "case", tc.Code, "error", err)
		return match.Errored(err)
	}
	res = match.Match(tc, diags, r.match)
	r.logger.Debug("case evaluated", "case", tc.Code, "verdict", res.Verdict, "diagnostics", len(diags))
	return res
}
