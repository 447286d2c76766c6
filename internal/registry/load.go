package registry

import (
	"fmt"
	"io/fs"
	"log/slog"
	"os"
	"path/filepath"
	"slices"

	"github.com/roach88/ownercheck/internal/fixture"
)

// DefaultExtensions are the fixture file extensions LoadPaths walks for.
var DefaultExtensions = []string{".rs"}

// LoadOptions configures LoadPaths.
type LoadOptions struct {
	// Extensions filters files found while walking directories.
	// Files named explicitly are always parsed.
	Extensions []string
	Syntax     fixture.Syntax
	Logger     *slog.Logger
}

// LoadPaths parses every fixture file under paths into a new registry.
//
// Problems are collected rather than returned early: a file that fails to
// parse contributes no cases, and a case whose code is already registered
// is dropped with a *DuplicateCategoryError. Every other file still loads.
func LoadPaths(paths []string, opts LoadOptions) (*Registry, []error) {
	if len(opts.Extensions) == 0 {
		opts.Extensions = DefaultExtensions
	}
	logger := opts.Logger
	if logger == nil {
		logger = slog.New(slog.DiscardHandler)
	}
	var parseOpts []fixture.Option
	if opts.Syntax.LineComment != "" {
		parseOpts = append(parseOpts, fixture.WithSyntax(opts.Syntax))
	}

	reg := New()
	var errs []error

	for _, path := range paths {
		files, err := fixtureFiles(path, opts.Extensions)
		if err != nil {
			errs = append(errs, err)
			continue
		}
		for _, file := range files {
			cases, err := fixture.ParseFile(file, parseOpts...)
			if err != nil {
				logger.Debug("fixture rejected", "file", file, "error", err)
				errs = append(errs, err)
				continue
			}
			for _, tc := range cases {
				if err := reg.Register(tc); err != nil {
					errs = append(errs, err)
				}
			}
			logger.Debug("fixture loaded", "file", file, "cases", len(cases))
		}
	}
	return reg, errs
}

func fixtureFiles(path string, exts []string) ([]string, error) {
	info, err := os.Stat(path)
	if err != nil {
		return nil, fmt.Errorf("failed to stat fixture path: %w", err)
	}
	if !info.IsDir() {
		return []string{path}, nil
	}

	var files []string
	err = filepath.WalkDir(path, func(p string, d fs.DirEntry, err error) error {
		if err != nil {
			return err
		}
		if !d.IsDir() && slices.Contains(exts, filepath.Ext(p)) {
			files = append(files, p)
		}
		return nil
	})
	if err != nil {
		return nil, fmt.Errorf("failed to walk fixture directory %s: %w", path, err)
	}
	if len(files) == 0 {
		return nil, fmt.Errorf("no fixture files with extensions %v under %s", exts, path)
	}
	return files, nil
}
