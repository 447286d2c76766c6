package cli

import (
	"fmt"
	"strings"

	"github.com/spf13/cobra"

	"github.com/roach88/ownercheck/internal/config"
)

// ListEntry describes one selected case.
type ListEntry struct {
	Code         string `json:"code"`
	ID           string `json:"id"`
	Title        string `json:"title"`
	Status       string `json:"status"`
	Tentative    bool   `json:"tentative,omitempty"`
	File         string `json:"file"`
	Line         int    `json:"line"`
	Expectations int    `json:"expectations"`
}

// ListResult is the JSON payload of the list command.
type ListResult struct {
	Cases      []ListEntry `json:"cases"`
	Structural []string    `json:"structural,omitempty"`
}

// NewListCommand creates the list command.
func NewListCommand(rootOpts *RootOptions) *cobra.Command {
	opts := &SelectOptions{RootOptions: rootOpts}

	cmd := &cobra.Command{
		Use:   "list [paths...]",
		Short: "List the selected fixture cases",
		Long: `List the cases a run with the same paths and filters would evaluate,
with their status and number of expectation markers. The analyzer is not
invoked.`,
		SilenceUsage:  true,
		SilenceErrors: true,
		RunE: func(cmd *cobra.Command, args []string) error {
			return runList(opts, args, cmd)
		},
	}
	opts.bind(cmd)
	return cmd
}

func runList(opts *SelectOptions, args []string, cmd *cobra.Command) error {
	cfg, paths, err := opts.resolve(cmd, args)
	if err != nil {
		return err
	}
	if err := config.Validate(cfg); err != nil {
		return WrapExitError(ExitCommandError, "invalid settings", err)
	}
	filter, err := cfg.Filter(opts.Categories)
	if err != nil {
		return WrapExitError(ExitCommandError, "invalid case filter", err)
	}
	reg, structural, err := loadFixtures(cfg, paths, opts.Logger())
	if err != nil {
		return err
	}

	result := ListResult{Cases: []ListEntry{}, Structural: structuralMessages(structural)}
	for tc := range reg.Select(filter) {
		result.Cases = append(result.Cases, ListEntry{
			Code:         tc.Code,
			ID:           tc.ID,
			Title:        tc.Title,
			Status:       string(tc.Status),
			Tentative:    tc.Tentative,
			File:         tc.File,
			Line:         tc.StartLine,
			Expectations: len(tc.Expected),
		})
	}

	formatter := &OutputFormatter{Format: opts.Format, Writer: cmd.OutOrStdout()}
	if opts.Format == FormatJSON {
		if len(result.Structural) > 0 {
			if err := formatter.Failure("malformed fixtures", result, nil); err != nil {
				return err
			}
			return NewExitError(ExitFailure, countLabel(len(result.Structural), "structural error"))
		}
		return formatter.Success(result)
	}

	w := cmd.OutOrStdout()
	for _, e := range result.Cases {
		status := e.Status
		if e.Tentative {
			status += "?"
		}
		fmt.Fprintf(w, "%-8s %-9s %3d  %s\n", e.Code, status, e.Expectations, e.Title)
	}
	fmt.Fprintln(w, countLabel(len(result.Cases), "case"))

	if len(result.Structural) > 0 {
		fmt.Fprintf(w, "\nStructural errors:\n  %s\n", strings.Join(result.Structural, "\n  "))
		return NewExitError(ExitFailure, countLabel(len(result.Structural), "structural error"))
	}
	return nil
}
