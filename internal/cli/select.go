package cli

import (
	"fmt"
	"log/slog"
	"os"

	"github.com/spf13/cobra"

	"github.com/roach88/ownercheck/internal/config"
	"github.com/roach88/ownercheck/internal/fixture"
	"github.com/roach88/ownercheck/internal/registry"
)

// SelectOptions are the flags shared by commands that load fixtures.
type SelectOptions struct {
	*RootOptions
	ConfigPath   string
	Statuses     []string
	SkipStatuses []string
	Categories   []string
}

func (o *SelectOptions) bind(cmd *cobra.Command) {
	cmd.Flags().StringVarP(&o.ConfigPath, "config", "c", "", "config file (default: ownercheck.{yaml,yml,toml,cue} in the working directory)")
	cmd.Flags().StringSliceVar(&o.Statuses, "status", nil, "only run cases with these statuses (easy,started,done,all)")
	cmd.Flags().StringSliceVar(&o.SkipStatuses, "skip-status", nil, "skip cases with these statuses")
	cmd.Flags().StringSliceVar(&o.Categories, "category", nil, "only run these category codes")
}

// resolve loads the config, applies the selection flags and returns the
// fixture paths: args, or the configured fixtures when args is empty.
func (o *SelectOptions) resolve(cmd *cobra.Command, args []string) (*config.Config, []string, error) {
	cfg, err := loadConfig(o.ConfigPath)
	if err != nil {
		return nil, nil, WrapExitError(ExitCommandError, "failed to load config", err)
	}
	if cmd.Flags().Changed("status") {
		cfg.Statuses = o.Statuses
	}
	if cmd.Flags().Changed("skip-status") {
		cfg.SkipStatuses = o.SkipStatuses
	}

	paths := args
	if len(paths) == 0 {
		paths = cfg.Fixtures
	}
	if len(paths) == 0 {
		return nil, nil, NewExitError(ExitCommandError, "no fixture paths given and none configured")
	}
	return cfg, paths, nil
}

func loadConfig(path string) (*config.Config, error) {
	if path == "" {
		wd, err := os.Getwd()
		if err != nil {
			return nil, err
		}
		if path, err = config.Find(wd); err != nil {
			return nil, err
		}
		if path == "" {
			return config.Default(), nil
		}
	}
	return config.Load(path)
}

// loadFixtures parses paths into a registry. Problems with the fixtures
// themselves are returned as structural errors; anything else, such as a
// missing path, is a command error.
func loadFixtures(cfg *config.Config, paths []string, logger *slog.Logger) (*registry.Registry, []error, error) {
	reg, errs := registry.LoadPaths(paths, cfg.LoadOptions(logger))

	var structural []error
	for _, err := range errs {
		if fixture.IsParseError(err) || registry.IsDuplicateCategory(err) {
			structural = append(structural, err)
			continue
		}
		return nil, nil, WrapExitError(ExitCommandError, "failed to load fixtures", err)
	}
	return reg, structural, nil
}

// structuralMessages flattens structural errors to one message per
// problem.
func structuralMessages(errs []error) []string {
	var out []string
	for _, err := range errs {
		if pes := fixture.ParseErrors(err); len(pes) > 0 {
			for _, pe := range pes {
				out = append(out, pe.Error())
			}
			continue
		}
		out = append(out, err.Error())
	}
	return out
}

func countLabel(n int, noun string) string {
	if n == 1 {
		return fmt.Sprintf("1 %s", noun)
	}
	return fmt.Sprintf("%d %ss", n, noun)
}
