package cli

import (
	"bytes"
	"context"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/roach88/ownercheck/internal/checker"
	"github.com/roach88/ownercheck/internal/testutil"
)

const fakeAnalyzerEnv = "OWNERCHECK_CLI_FAKE_ANALYZER"

var fixturesDir = filepath.Join("..", "..", "testdata", "fixtures")

// TestMain lets the test binary double as an analyzer process.
func TestMain(m *testing.M) {
	if mode := os.Getenv(fakeAnalyzerEnv); mode != "" {
		os.Exit(fakeAnalyzer(mode, os.Args[1:]))
	}
	os.Exit(m.Run())
}

// fakeAnalyzer prints, in rustc short format, exactly the diagnostics the
// unit's markers expect.
func fakeAnalyzer(mode string, args []string) int {
	if mode == "crash" {
		fmt.Fprintln(os.Stderr, "error: internal compiler error: unexpected panic")
		return 101
	}
	if len(args) == 0 {
		return 2
	}
	src, err := os.ReadFile(args[0])
	if err != nil {
		fmt.Fprintln(os.Stderr, err)
		return 101
	}
	name := strings.TrimSuffix(filepath.Base(args[0]), filepath.Ext(args[0]))
	diags, err := testutil.MarkerChecker{}.Check(context.Background(), checker.Unit{Name: name, Source: string(src)})
	if err != nil {
		fmt.Fprintln(os.Stderr, err)
		return 101
	}
	for _, d := range diags {
		fmt.Fprintf(os.Stderr, "%s:%d:%d: %s[%s]: %s\n", args[0], d.Line, d.Column, d.Severity, d.Code, d.Message)
	}
	if len(diags) > 0 {
		fmt.Fprintf(os.Stderr, "error: aborting due to %d previous errors\n", len(diags))
		return 1
	}
	return 0
}

// writeConfig writes a config running the fake analyzer in mode.
func writeConfig(t *testing.T, mode string) string {
	t.Helper()
	content := fmt.Sprintf(`analyzer:
  command: %q
  args: ["{file}"]
  decoder: short
  timeout: 20s
  env: [%q]
`, os.Args[0], fakeAnalyzerEnv+"="+mode)
	path := filepath.Join(t.TempDir(), "ownercheck.yaml")
	require.NoError(t, os.WriteFile(path, []byte(content), 0o644))
	return path
}

// execute runs the root command and returns its standard output.
func execute(t *testing.T, args ...string) (string, error) {
	t.Helper()
	var out, errOut bytes.Buffer
	cmd := NewRootCommand()
	cmd.SetOut(&out)
	cmd.SetErr(&errOut)
	cmd.SetArgs(append([]string{"--color", "off"}, args...))
	err := cmd.Execute()
	return out.String(), err
}

// writeFixture writes a fixture file into dir.
func writeFixture(t *testing.T, dir, name, content string) {
	t.Helper()
	require.NoError(t, os.WriteFile(filepath.Join(dir, name), []byte(content), 0o644))
}
