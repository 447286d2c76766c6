// Package config loads ownercheck configuration from YAML, TOML or CUE
// files and checks it against an embedded CUE schema.
package config

import (
	"bytes"
	_ "embed"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"os"
	"path/filepath"
	"slices"
	"strings"
	"time"

	"cuelang.org/go/cue"
	"cuelang.org/go/cue/cuecontext"
	"github.com/BurntSushi/toml"
	"gopkg.in/yaml.v3"

	"github.com/roach88/ownercheck/internal/checker"
	"github.com/roach88/ownercheck/internal/fixture"
	"github.com/roach88/ownercheck/internal/registry"
)

//go:embed schema.cue
var schemaSource string

// DefaultNames are the file names Find looks for, in order.
var DefaultNames = []string{"ownercheck.yaml", "ownercheck.yml", "ownercheck.toml", "ownercheck.cue"}

// Config is the full harness configuration.
// Zero fields take their defaults when the config is loaded.
type Config struct {
	// Fixtures are files or directories to load. Command line paths
	// replace them.
	Fixtures     []string `yaml:"fixtures" toml:"fixtures" json:"fixtures,omitempty"`
	Extensions   []string `yaml:"extensions" toml:"extensions" json:"extensions,omitempty"`
	Comment      Comment  `yaml:"comment" toml:"comment" json:"comment"`
	Analyzer     Analyzer `yaml:"analyzer" toml:"analyzer" json:"analyzer"`
	Strict       bool     `yaml:"strict" toml:"strict" json:"strict,omitempty"`
	Workers      int      `yaml:"workers" toml:"workers" json:"workers,omitempty"`
	Statuses     []string `yaml:"statuses" toml:"statuses" json:"statuses,omitempty"`
	SkipStatuses []string `yaml:"skip_statuses" toml:"skip_statuses" json:"skip_statuses,omitempty"`
}

// Comment is the comment syntax of the analyzed language.
type Comment struct {
	Line       string `yaml:"line" toml:"line" json:"line,omitempty"`
	BlockClose string `yaml:"block_close" toml:"block_close" json:"block_close,omitempty"`
}

// Analyzer describes how to run the analyzer under test.
type Analyzer struct {
	Command string `yaml:"command" toml:"command" json:"command,omitempty"`
	// Args may contain {file} and {dir}.
	Args            []string `yaml:"args" toml:"args" json:"args,omitempty"`
	Stdin           bool     `yaml:"stdin" toml:"stdin" json:"stdin,omitempty"`
	Stream          string   `yaml:"stream" toml:"stream" json:"stream,omitempty"`
	Decoder         string   `yaml:"decoder" toml:"decoder" json:"decoder,omitempty"`
	AcceptExitCodes []int    `yaml:"accept_exit_codes" toml:"accept_exit_codes" json:"accept_exit_codes,omitempty"`
	// Timeout is a Go duration string such as "30s".
	Timeout  string   `yaml:"timeout" toml:"timeout" json:"timeout,omitempty"`
	Prelude  string   `yaml:"prelude" toml:"prelude" json:"prelude,omitempty"`
	Epilogue string   `yaml:"epilogue" toml:"epilogue" json:"epilogue,omitempty"`
	Env      []string `yaml:"env" toml:"env" json:"env,omitempty"`
	Ext      string   `yaml:"ext" toml:"ext" json:"ext,omitempty"`
}

// Default returns the configuration used when no file is given.
func Default() *Config {
	cfg := &Config{}
	cfg.applyDefaults()
	return cfg
}

func (c *Config) applyDefaults() {
	if len(c.Extensions) == 0 {
		c.Extensions = slices.Clone(registry.DefaultExtensions)
	}
	if c.Comment.Line == "" {
		c.Comment = Comment{Line: fixture.RustSyntax.LineComment}
	}
	a := &c.Analyzer
	if a.Stream == "" {
		a.Stream = string(checker.StreamStderr)
	}
	if a.Decoder == "" {
		a.Decoder = checker.DecoderJSON
	}
	if a.Timeout == "" {
		a.Timeout = checker.DefaultTimeout.String()
	}
	if len(a.AcceptExitCodes) == 0 {
		a.AcceptExitCodes = slices.Clone(checker.DefaultAcceptExitCodes)
	}
}

// Find returns the first of DefaultNames present in dir, or "" if there
// is none.
func Find(dir string) (string, error) {
	for _, name := range DefaultNames {
		path := filepath.Join(dir, name)
		_, err := os.Stat(path)
		if err == nil {
			return path, nil
		}
		if !errors.Is(err, os.ErrNotExist) {
			return "", fmt.Errorf("failed to stat config file: %w", err)
		}
	}
	return "", nil
}

// Load reads, validates and defaults the config file at path.
// The format follows the extension: .yaml, .yml, .toml or .cue.
// Unknown keys are errors in every format. Relative fixture paths are
// resolved against the directory of the file.
func Load(path string) (*Config, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read config file: %w", err)
	}

	cfg := &Config{}
	switch ext := strings.ToLower(filepath.Ext(path)); ext {
	case ".yaml", ".yml":
		err = decodeYAML(data, cfg)
	case ".toml":
		err = decodeTOML(data, cfg)
	case ".cue":
		err = decodeCUE(path, data, cfg)
	default:
		return nil, fmt.Errorf("%s: unsupported config format %q", path, ext)
	}
	if err != nil {
		return nil, fmt.Errorf("%s: %w", path, err)
	}

	if err := Validate(cfg); err != nil {
		return nil, fmt.Errorf("%s: %w", path, err)
	}
	cfg.applyDefaults()

	base := filepath.Dir(path)
	for i, f := range cfg.Fixtures {
		if !filepath.IsAbs(f) {
			cfg.Fixtures[i] = filepath.Join(base, f)
		}
	}
	return cfg, nil
}

func decodeYAML(data []byte, cfg *Config) error {
	dec := yaml.NewDecoder(bytes.NewReader(data))
	dec.KnownFields(true)
	if err := dec.Decode(cfg); err != nil && !errors.Is(err, io.EOF) {
		return fmt.Errorf("invalid YAML: %w", err)
	}
	return nil
}

func decodeTOML(data []byte, cfg *Config) error {
	md, err := toml.Decode(string(data), cfg)
	if err != nil {
		return fmt.Errorf("invalid TOML: %w", err)
	}
	if undecoded := md.Undecoded(); len(undecoded) > 0 {
		keys := make([]string, len(undecoded))
		for i, k := range undecoded {
			keys[i] = k.String()
		}
		return fmt.Errorf("unknown keys: %s", strings.Join(keys, ", "))
	}
	return nil
}

func decodeCUE(path string, data []byte, cfg *Config) error {
	ctx := cuecontext.New()
	schema, err := configSchema(ctx)
	if err != nil {
		return err
	}
	v := ctx.CompileBytes(data, cue.Filename(path))
	if err := v.Err(); err != nil {
		return fmt.Errorf("invalid CUE: %w", err)
	}
	v = schema.Unify(v)
	if err := v.Validate(cue.Concrete(true)); err != nil {
		return fmt.Errorf("invalid config: %w", err)
	}
	if err := v.Decode(cfg); err != nil {
		return fmt.Errorf("failed to decode config: %w", err)
	}
	return nil
}

// Validate checks cfg against the embedded schema and the rules the
// schema cannot express.
func Validate(cfg *Config) error {
	ctx := cuecontext.New()
	schema, err := configSchema(ctx)
	if err != nil {
		return err
	}
	v := ctx.Encode(cfg)
	if err := v.Err(); err != nil {
		return fmt.Errorf("failed to encode config: %w", err)
	}
	if err := schema.Unify(v).Validate(cue.Concrete(true)); err != nil {
		return fmt.Errorf("invalid config: %w", err)
	}

	a := cfg.Analyzer
	if a.Stdin && slices.ContainsFunc(a.Args, func(s string) bool {
		return strings.Contains(s, checker.PlaceholderFile)
	}) {
		return errors.New("invalid config: analyzer.stdin and a {file} argument are mutually exclusive")
	}
	for _, st := range cfg.SkipStatuses {
		if slices.Contains(cfg.Statuses, st) {
			return fmt.Errorf("invalid config: status %q is both selected and skipped", st)
		}
	}
	return nil
}

func configSchema(ctx *cue.Context) (cue.Value, error) {
	v := ctx.CompileString(schemaSource, cue.Filename("schema.cue"))
	if err := v.Err(); err != nil {
		return cue.Value{}, fmt.Errorf("failed to compile config schema: %w", err)
	}
	return v.LookupPath(cue.ParsePath("#Config")), nil
}

// Syntax returns the fixture comment syntax.
func (c *Config) Syntax() fixture.Syntax {
	return fixture.Syntax{LineComment: c.Comment.Line, BlockClose: c.Comment.BlockClose}
}

// LoadOptions returns registry options for the configured fixtures.
func (c *Config) LoadOptions(logger *slog.Logger) registry.LoadOptions {
	return registry.LoadOptions{
		Extensions: c.Extensions,
		Syntax:     c.Syntax(),
		Logger:     logger,
	}
}

// Filter builds the case filter. Skipped statuses are removed from the
// selected ones, or from every status when none are selected.
func (c *Config) Filter(categories []string) (registry.Filter, error) {
	selected, err := parseStatuses(c.Statuses)
	if err != nil {
		return registry.Filter{}, err
	}
	skipped, err := parseStatuses(c.SkipStatuses)
	if err != nil {
		return registry.Filter{}, err
	}

	f := registry.Filter{Statuses: selected, Categories: categories}
	if len(skipped) > 0 {
		if len(f.Statuses) == 0 {
			f.Statuses = slices.Clone(fixture.Statuses)
		}
		f.Statuses = slices.DeleteFunc(f.Statuses, func(st fixture.Status) bool {
			return slices.Contains(skipped, st)
		})
	}
	return f, nil
}

func parseStatuses(names []string) ([]fixture.Status, error) {
	var out []fixture.Status
	for _, name := range names {
		st, ok := fixture.ParseStatus(name)
		if !ok {
			return nil, fmt.Errorf("unknown status %q", name)
		}
		out = append(out, st)
	}
	return out, nil
}

// TimeoutDuration parses Timeout. An empty timeout means the adapter
// default.
func (a *Analyzer) TimeoutDuration() (time.Duration, error) {
	if a.Timeout == "" {
		return checker.DefaultTimeout, nil
	}
	d, err := time.ParseDuration(a.Timeout)
	if err != nil {
		return 0, fmt.Errorf("invalid analyzer timeout: %w", err)
	}
	if d <= 0 {
		return 0, fmt.Errorf("invalid analyzer timeout: %s is not positive", a.Timeout)
	}
	return d, nil
}

// Checker builds the process checker for this analyzer.
func (a *Analyzer) Checker() (*checker.CommandChecker, error) {
	if a.Command == "" {
		return nil, errors.New("no analyzer command configured")
	}
	dec, err := checker.DecoderByName(a.Decoder)
	if err != nil {
		return nil, err
	}
	return &checker.CommandChecker{
		Command:         a.Command,
		Args:            slices.Clone(a.Args),
		Stdin:           a.Stdin,
		Stream:          checker.Stream(a.Stream),
		Decoder:         dec,
		AcceptExitCodes: slices.Clone(a.AcceptExitCodes),
		Env:             slices.Clone(a.Env),
		Ext:             a.Ext,
	}, nil
}

// Adapter wraps the process checker with the configured timeout and
// scaffold.
func (a *Analyzer) Adapter(logger *slog.Logger) (*checker.Adapter, error) {
	c, err := a.Checker()
	if err != nil {
		return nil, err
	}
	timeout, err := a.TimeoutDuration()
	if err != nil {
		return nil, err
	}
	return checker.NewAdapter(c,
		checker.WithTimeout(timeout),
		checker.WithScaffold(checker.Scaffold{Prelude: a.Prelude, Epilogue: a.Epilogue}),
		checker.WithLogger(logger),
	), nil
}
