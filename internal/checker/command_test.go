package checker

import (
	"context"
	"fmt"
	"io"
	"os"
	"os/exec"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/roach88/ownercheck/internal/diag"
)

const fakeAnalyzerEnv = "OWNERCHECK_FAKE_ANALYZER"

// TestMain lets the test binary double as a fake analyzer process.
func TestMain(m *testing.M) {
	if mode := os.Getenv(fakeAnalyzerEnv); mode != "" {
		os.Exit(fakeAnalyzer(mode, os.Args[1:]))
	}
	os.Exit(m.Run())
}

// fakeAnalyzer reports an error on every line containing "do_x".
func fakeAnalyzer(mode string, args []string) int {
	var src []byte
	var err error
	switch {
	case mode == "stdin-short":
		src, err = io.ReadAll(os.Stdin)
	case len(args) > 0:
		src, err = os.ReadFile(args[0])
	}
	if err != nil {
		fmt.Fprintln(os.Stderr, err)
		return 101
	}

	switch mode {
	case "json":
		for i, line := range strings.Split(string(src), "\n") {
			if col := strings.Index(line, "do_x"); col >= 0 {
				fmt.Fprintf(os.Stderr, `{"message":"cannot do X here","code":{"code":"E999"},"level":"error","spans":[{"line_start":%d,"column_start":%d,"is_primary":true}],"children":[]}`+"\n", i+1, col+1)
			}
		}
		return 1
	case "stdin-short":
		for i, line := range strings.Split(string(src), "\n") {
			if strings.Contains(line, "do_x") {
				fmt.Printf("case.rs:%d:1: error[E999]: cannot do X here\n", i+1)
			}
		}
		return 0
	case "garbage":
		fmt.Fprintln(os.Stderr, "thread 'rustc' panicked at borrowck")
		return 1
	case "exit":
		fmt.Fprintln(os.Stderr, "internal compiler error")
		return 101
	case "sleep":
		time.Sleep(30 * time.Second)
		return 0
	case "orphan":
		// Like cargo: a child inherits stderr and outlives the killed parent.
		child := exec.Command(os.Args[0])
		child.Env = append(os.Environ(), fakeAnalyzerEnv+"=sleep")
		child.Stderr = os.Stderr
		if err := child.Start(); err != nil {
			fmt.Fprintln(os.Stderr, err)
			return 101
		}
		time.Sleep(30 * time.Second)
		return 0
	}
	return 2
}

func fakeChecker(mode string) *CommandChecker {
	return &CommandChecker{
		Command: os.Args[0],
		Args:    []string{PlaceholderFile},
		Env:     []string{fakeAnalyzerEnv + "=" + mode},
	}
}

func TestCommandChecker_JSON(t *testing.T) {
	c := fakeChecker("json")
	got, err := c.Check(context.Background(), Unit{Name: "case_e999", Source: "// ==== E999: sample (done) ====\n    do_x();\n"})
	require.NoError(t, err)
	assert.Equal(t, []diag.Diagnostic{
		{Code: "E999", Severity: diag.SevError, Line: 2, Column: 5, Message: "cannot do X here"},
	}, got)
}

func TestCommandChecker_StdinShort(t *testing.T) {
	c := fakeChecker("stdin-short")
	c.Args = nil
	c.Stdin = true
	c.Stream = StreamStdout
	c.Decoder = DecodeShort

	got, err := c.Check(context.Background(), Unit{Name: "u", Source: "a\nb\ndo_x();\n"})
	require.NoError(t, err)
	require.Len(t, got, 1)
	assert.Equal(t, 3, got[0].Line)
}

func TestCommandChecker_Failures(t *testing.T) {
	tests := []struct {
		mode  string
		check func(error) bool
		text  string
	}{
		{"garbage", IsMalformedOutput, "panicked"},
		{"exit", IsCrash, "internal compiler error"},
	}
	for _, tt := range tests {
		t.Run(tt.mode, func(t *testing.T) {
			_, err := fakeChecker(tt.mode).Check(context.Background(), Unit{Name: "u", Source: "do_x();\n"})
			require.Error(t, err)
			assert.True(t, tt.check(err), "got %v", err)

			var ae *AdapterError
			require.ErrorAs(t, err, &ae)
			assert.Contains(t, ae.Stderr, tt.text)
		})
	}
}

func TestCommandChecker_AcceptExitCodes(t *testing.T) {
	c := fakeChecker("exit")
	c.AcceptExitCodes = []int{0, 101}
	c.Decoder = DecodeShort

	got, err := c.Check(context.Background(), Unit{Name: "u", Source: "x\n"})
	require.NoError(t, err)
	assert.Empty(t, got)
}

func TestCommandChecker_TimeoutThroughAdapter(t *testing.T) {
	a := NewAdapter(fakeChecker("sleep"), WithTimeout(200*time.Millisecond))
	_, err := a.Invoke(context.Background(), sampleCase(t))
	assert.True(t, IsTimeout(err), "got %v", err)
}

func TestCommandChecker_KilledAnalyzerDoesNotWaitOnInheritedPipes(t *testing.T) {
	c := fakeChecker("orphan")
	c.WaitDelay = 100 * time.Millisecond
	ctx, cancel := context.WithTimeout(context.Background(), 500*time.Millisecond)
	defer cancel()

	start := time.Now()
	_, err := c.Check(ctx, Unit{Name: "u", Source: "loop {}\n"})
	assert.ErrorIs(t, err, context.DeadlineExceeded)
	assert.Less(t, time.Since(start), 10*time.Second)
}

func TestCommandChecker_MissingCommand(t *testing.T) {
	c := &CommandChecker{Command: filepath.Join(t.TempDir(), "no-such-analyzer")}
	_, err := c.Check(context.Background(), Unit{Name: "u", Source: "x\n"})
	assert.True(t, IsCrash(err))
	assert.ErrorContains(t, err, "failed to start analyzer")

	_, err = (&CommandChecker{}).Check(context.Background(), Unit{Name: "u"})
	assert.ErrorContains(t, err, "no analyzer command")
}

func TestCommandChecker_CleansUpUnitDirectory(t *testing.T) {
	base := t.TempDir()
	c := fakeChecker("json")
	c.TempDir = base

	_, err := c.Check(context.Background(), Unit{Name: "u", Source: "do_x();\n"})
	require.NoError(t, err)

	entries, err := os.ReadDir(base)
	require.NoError(t, err)
	assert.Empty(t, entries)
}
