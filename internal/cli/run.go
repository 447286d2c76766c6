package cli

import (
	"fmt"
	"time"

	"github.com/spf13/cobra"

	"github.com/roach88/ownercheck/internal/config"
	"github.com/roach88/ownercheck/internal/harness"
	"github.com/roach88/ownercheck/internal/report"
	"github.com/roach88/ownercheck/internal/store"
)

// RunOptions holds flags for the run command.
type RunOptions struct {
	SelectOptions
	Strict  bool
	Workers int
	Timeout time.Duration
	DBPath  string
}

// NewRunCommand creates the run command.
func NewRunCommand(rootOpts *RootOptions) *cobra.Command {
	opts := &RunOptions{SelectOptions: SelectOptions{RootOptions: rootOpts}}

	cmd := &cobra.Command{
		Use:   "run [paths...]",
		Short: "Run fixtures through the analyzer and report conformance",
		Long: `Run every selected fixture case through the configured analyzer and
compare the diagnostics it reports with the case's expectation markers.

Paths may be fixture files or directories. Without paths the fixtures
listed in the config file are used.

With --format json the report document is written as canonical JSON.

Exit codes:
  0 - All selected cases passed
  1 - A case failed or errored, or a fixture is malformed
  2 - Command error (invalid flags, config or paths)

Examples:
  ownercheck run tests/ui
  ownercheck run --status done,easy --strict
  ownercheck run --category E0382 --timeout 10s main.rs
  ownercheck run --db ledger.sqlite --format json`,
		SilenceUsage:  true,
		SilenceErrors: true,
		RunE: func(cmd *cobra.Command, args []string) error {
			return runRun(opts, args, cmd)
		},
	}

	opts.bind(cmd)
	cmd.Flags().BoolVar(&opts.Strict, "strict", false, "fail cases on diagnostics no marker expects")
	cmd.Flags().IntVarP(&opts.Workers, "workers", "j", 0, "concurrent analyzer invocations (default GOMAXPROCS)")
	cmd.Flags().DurationVar(&opts.Timeout, "timeout", 0, "per-case analyzer timeout (default 30s)")
	cmd.Flags().StringVar(&opts.DBPath, "db", "", "write the run ledger to this SQLite file")

	return cmd
}

func runRun(opts *RunOptions, args []string, cmd *cobra.Command) error {
	ctx := cmd.Context()
	logger := opts.Logger()

	cfg, paths, err := opts.resolve(cmd, args)
	if err != nil {
		return err
	}
	if cmd.Flags().Changed("strict") {
		cfg.Strict = opts.Strict
	}
	if cmd.Flags().Changed("workers") {
		cfg.Workers = opts.Workers
	}
	if cmd.Flags().Changed("timeout") {
		cfg.Analyzer.Timeout = opts.Timeout.String()
	}
	if err := config.Validate(cfg); err != nil {
		return WrapExitError(ExitCommandError, "invalid settings", err)
	}

	filter, err := cfg.Filter(opts.Categories)
	if err != nil {
		return WrapExitError(ExitCommandError, "invalid case filter", err)
	}
	adapter, err := cfg.Analyzer.Adapter(logger)
	if err != nil {
		return WrapExitError(ExitCommandError, "invalid analyzer", err)
	}

	reg, structural, err := loadFixtures(cfg, paths, logger)
	if err != nil {
		return err
	}
	logger.Debug("fixtures loaded", "cases", reg.Len(), "structural_errors", len(structural))

	st, err := store.Open(store.MemoryPath)
	if err != nil {
		return WrapExitError(ExitCommandError, "failed to open run ledger", err)
	}
	defer st.Close()

	rep, err := harness.Run(ctx, reg.Select(filter), adapter, harness.Options{
		Workers:    cfg.Workers,
		Strict:     cfg.Strict,
		Structural: structural,
		Store:      st,
		Logger:     logger,
	})
	if err != nil {
		return WrapExitError(ExitCommandError, "run failed", err)
	}

	if opts.DBPath != "" {
		if err := st.Export(ctx, opts.DBPath); err != nil {
			return WrapExitError(ExitCommandError, "failed to write run ledger", err)
		}
		logger.Info("run ledger written", "path", opts.DBPath)
	}

	return writeReport(opts.RootOptions, cmd, rep)
}

// writeReport renders rep and turns a failed run into exit code 1.
func writeReport(opts *RootOptions, cmd *cobra.Command, rep *report.Report) error {
	w := cmd.OutOrStdout()
	var err error
	if opts.Format == FormatJSON {
		err = report.RenderJSON(w, rep)
	} else {
		err = report.RenderText(w, rep, opts.useColor(w))
	}
	if err != nil {
		return WrapExitError(ExitCommandError, "failed to write report", err)
	}

	if !rep.OK() {
		return NewExitError(ExitFailure, fmt.Sprintf("%s failed, %s errored, %s",
			countLabel(rep.Totals.Failed, "case"),
			countLabel(rep.Totals.Errored, "case"),
			countLabel(len(rep.Structural), "structural error")))
	}
	return nil
}
