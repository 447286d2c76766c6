package cli

import (
	"os"

	"github.com/spf13/cobra"

	"github.com/roach88/ownercheck/internal/report"
)

// NewReportCommand creates the report command.
func NewReportCommand(rootOpts *RootOptions) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "report <report.json>",
		Short: "Render a saved JSON report",
		Long: `Check a report written by "run --format json" against the report schema
and render it again, as text by default.

The exit code is the one the original run ended with.`,
		Args:          cobra.ExactArgs(1),
		SilenceUsage:  true,
		SilenceErrors: true,
		RunE: func(cmd *cobra.Command, args []string) error {
			return runReport(rootOpts, args[0], cmd)
		},
	}
	return cmd
}

func runReport(opts *RootOptions, path string, cmd *cobra.Command) error {
	data, err := os.ReadFile(path)
	if err != nil {
		return WrapExitError(ExitCommandError, "failed to read report", err)
	}
	rep, err := report.DecodeJSON(data)
	if err != nil {
		return WrapExitError(ExitCommandError, "invalid report", err)
	}
	return writeReport(opts, cmd, rep)
}
