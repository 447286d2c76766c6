package checker

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"os"
	"os/exec"
	"path/filepath"
	"slices"
	"strings"
	"time"

	"github.com/roach88/ownercheck/internal/diag"
)

// Placeholders expanded in CommandChecker.Args.
const (
	PlaceholderFile = "{file}"
	PlaceholderDir  = "{dir}"
)

// Stream selects which output stream carries diagnostics.
type Stream string

const (
	StreamStderr Stream = "stderr"
	StreamStdout Stream = "stdout"
)

// DefaultAcceptExitCodes are the exit codes treated as a completed analysis.
// Analyzers conventionally exit 1 when they report errors.
var DefaultAcceptExitCodes = []int{0, 1}

const maxStderr = 4096

// DefaultWaitDelay bounds how long Check waits for output pipes after the
// analyzer exits or is killed. A wrapper such as cargo can leave a child
// holding them open.
const DefaultWaitDelay = 2 * time.Second

// CommandChecker runs an external analyzer process per unit.
//
// Every call gets its own temporary directory and process, so nothing an
// analyzer caches on disk or in memory is visible to another case.
type CommandChecker struct {
	Command string
	// Args may contain {file} and {dir} placeholders.
	Args []string
	// Stdin pipes the unit source to the process instead of relying on {file}.
	Stdin bool
	// Stream carries the diagnostics. Defaults to stderr, where rustc
	// writes them.
	Stream          Stream
	Decoder         Decoder
	AcceptExitCodes []int
	// Env is appended to the current environment.
	Env []string
	// Ext is the extension of the written unit. Defaults to ".rs".
	Ext string
	// TempDir is the parent of per-unit directories. Defaults to os.TempDir.
	TempDir string
	// WaitDelay defaults to DefaultWaitDelay.
	WaitDelay time.Duration
}

// Check implements Checker.
func (c *CommandChecker) Check(ctx context.Context, u Unit) ([]diag.Diagnostic, error) {
	if c.Command == "" {
		return nil, errors.New("no analyzer command configured")
	}

	dir, err := os.MkdirTemp(c.TempDir, "ownercheck-")
	if err != nil {
		return nil, fmt.Errorf("failed to create unit directory: %w", err)
	}
	defer os.RemoveAll(dir)

	ext := c.Ext
	if ext == "" {
		ext = ".rs"
	}
	file := filepath.Join(dir, u.Name+ext)
	if err := os.WriteFile(file, []byte(u.Source), 0o644); err != nil {
		return nil, fmt.Errorf("failed to write unit: %w", err)
	}

	args := make([]string, len(c.Args))
	for i, arg := range c.Args {
		arg = strings.ReplaceAll(arg, PlaceholderFile, file)
		args[i] = strings.ReplaceAll(arg, PlaceholderDir, dir)
	}

	cmd := exec.CommandContext(ctx, c.Command, args...)
	cmd.Dir = dir
	cmd.WaitDelay = c.WaitDelay
	if cmd.WaitDelay <= 0 {
		cmd.WaitDelay = DefaultWaitDelay
	}
	cmd.Env = append(os.Environ(), c.Env...)
	if c.Stdin {
		cmd.Stdin = strings.NewReader(u.Source)
	}
	var stdout, stderr bytes.Buffer
	cmd.Stdout = &stdout
	cmd.Stderr = &stderr

	runErr := cmd.Run()
	if ctx.Err() != nil {
		return nil, ctx.Err()
	}
	if runErr != nil {
		if err := c.checkExit(runErr); err != nil {
			return nil, &AdapterError{Kind: KindCrash, Err: err, Stderr: tail(stderr.String())}
		}
	}

	out := stderr.Bytes()
	if c.Stream == StreamStdout {
		out = stdout.Bytes()
	}
	decode := c.Decoder
	if decode == nil {
		decode = DecodeJSON
	}
	diags, err := decode(out)
	if err != nil {
		return nil, &AdapterError{Kind: KindMalformedOutput, Err: err, Stderr: tail(stderr.String())}
	}
	return diags, nil
}

// checkExit returns nil when runErr is an accepted exit code.
func (c *CommandChecker) checkExit(runErr error) error {
	var exitErr *exec.ExitError
	if !errors.As(runErr, &exitErr) {
		return fmt.Errorf("failed to start analyzer: %w", runErr)
	}
	code := exitErr.ExitCode()
	if code < 0 {
		return fmt.Errorf("analyzer terminated: %w", runErr)
	}
	accept := c.AcceptExitCodes
	if len(accept) == 0 {
		accept = DefaultAcceptExitCodes
	}
	if slices.Contains(accept, code) {
		return nil
	}
	return fmt.Errorf("analyzer exited with status %d", code)
}

func tail(s string) string {
	s = strings.TrimSpace(s)
	if len(s) > maxStderr {
		s = "..." + s[len(s)-maxStderr:]
	}
	return s
}
