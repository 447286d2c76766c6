package cli

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/roach88/ownercheck/internal/config"
)

// ValidationResult holds validation results.
type ValidationResult struct {
	Valid  bool     `json:"valid"`
	Cases  int      `json:"cases"`
	Errors []string `json:"errors,omitempty"`
}

// NewValidateCommand creates the validate command.
func NewValidateCommand(rootOpts *RootOptions) *cobra.Command {
	opts := &SelectOptions{RootOptions: rootOpts}

	cmd := &cobra.Command{
		Use:   "validate [paths...]",
		Short: "Check fixtures for structural errors without running the analyzer",
		Long: `Parse fixture files and report malformed headers and markers, markers
that point outside their case, cases without markers and repeated
category codes. The analyzer is not invoked.`,
		SilenceUsage:  true,
		SilenceErrors: true,
		RunE: func(cmd *cobra.Command, args []string) error {
			return runValidate(opts, args, cmd)
		},
	}
	cmd.Flags().StringVarP(&opts.ConfigPath, "config", "c", "", "config file (default: ownercheck.{yaml,yml,toml,cue} in the working directory)")
	return cmd
}

func runValidate(opts *SelectOptions, args []string, cmd *cobra.Command) error {
	cfg, paths, err := opts.resolve(cmd, args)
	if err != nil {
		return err
	}
	if err := config.Validate(cfg); err != nil {
		return WrapExitError(ExitCommandError, "invalid settings", err)
	}
	reg, structural, err := loadFixtures(cfg, paths, opts.Logger())
	if err != nil {
		return err
	}

	result := ValidationResult{
		Valid:  len(structural) == 0,
		Cases:  reg.Len(),
		Errors: structuralMessages(structural),
	}
	formatter := &OutputFormatter{Format: opts.Format, Writer: cmd.OutOrStdout()}

	if result.Valid {
		if opts.Format == FormatJSON {
			return formatter.Success(result)
		}
		fmt.Fprintf(cmd.OutOrStdout(), "✓ %s valid\n", countLabel(result.Cases, "case"))
		return nil
	}

	exitErr := NewExitError(ExitFailure, fmt.Sprintf("validation failed with %s", countLabel(len(result.Errors), "error")))
	if opts.Format == FormatJSON {
		if err := formatter.Failure(exitErr.Message, result, nil); err != nil {
			return err
		}
		return exitErr
	}

	w := cmd.OutOrStdout()
	fmt.Fprintln(w, "✗ Validation failed")
	fmt.Fprintln(w)
	for _, msg := range result.Errors {
		fmt.Fprintf(w, "  %s\n", msg)
	}
	return exitErr
}
