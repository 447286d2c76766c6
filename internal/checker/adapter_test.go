package checker

import (
	"context"
	"errors"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/roach88/ownercheck/internal/diag"
	"github.com/roach88/ownercheck/internal/fixture"
)

func sampleCase(t *testing.T) *fixture.TestCase {
	t.Helper()
	cases, err := fixture.Parse("sample.rs", []byte("// ==== E999: sample (done) ====\ndo_x();\n//~ ERROR cannot do X\n"))
	require.NoError(t, err)
	return cases[0]
}

func TestInvoke_ReturnsDiagnosticsInOrder(t *testing.T) {
	want := []diag.Diagnostic{
		{Code: "E999", Severity: diag.SevError, Line: 2, Message: "cannot do X here"},
		{Severity: diag.SevNote, Line: 2, Message: "first"},
	}
	a := NewAdapter(CheckerFunc(func(ctx context.Context, u Unit) ([]diag.Diagnostic, error) {
		return want, nil
	}))

	got, err := a.Invoke(context.Background(), sampleCase(t))
	require.NoError(t, err)
	assert.Equal(t, want, got)
}

func TestInvoke_ScaffoldAndLineRemap(t *testing.T) {
	var seen Unit
	a := NewAdapter(CheckerFunc(func(ctx context.Context, u Unit) ([]diag.Diagnostic, error) {
		seen = u
		return []diag.Diagnostic{{Severity: diag.SevError, Line: 4, Message: "cannot do X"}}, nil
	}), WithScaffold(Scaffold{Prelude: "#![allow(warnings)]\nfn main() {}", Epilogue: "// end\n"}))

	tc := sampleCase(t)
	got, err := a.Invoke(context.Background(), tc)
	require.NoError(t, err)

	assert.Equal(t, "case_e999", seen.Name)
	assert.Equal(t, "#![allow(warnings)]\nfn main() {}\n"+tc.Source+"// end\n", seen.Source)
	require.Len(t, got, 1)
	assert.Equal(t, 2, got[0].Line)
}

func TestInvoke_TimeoutWhenCheckerIgnoresContext(t *testing.T) {
	release := make(chan struct{})
	defer close(release)
	a := NewAdapter(CheckerFunc(func(ctx context.Context, u Unit) ([]diag.Diagnostic, error) {
		<-release
		return nil, nil
	}), WithTimeout(50*time.Millisecond))

	start := time.Now()
	_, err := a.Invoke(context.Background(), sampleCase(t))
	require.Error(t, err)
	assert.True(t, IsTimeout(err), "got %v", err)
	assert.Less(t, time.Since(start), 5*time.Second)

	var ae *AdapterError
	require.True(t, errors.As(err, &ae))
	assert.Equal(t, "E999", ae.Case)
	assert.True(t, errors.Is(err, context.DeadlineExceeded))
}

func TestInvoke_TimeoutWhenCheckerHonorsContext(t *testing.T) {
	a := NewAdapter(CheckerFunc(func(ctx context.Context, u Unit) ([]diag.Diagnostic, error) {
		<-ctx.Done()
		return nil, ctx.Err()
	}), WithTimeout(20*time.Millisecond))

	_, err := a.Invoke(context.Background(), sampleCase(t))
	assert.True(t, IsTimeout(err), "got %v", err)
}

func TestInvoke_PanicBecomesCrash(t *testing.T) {
	a := NewAdapter(CheckerFunc(func(ctx context.Context, u Unit) ([]diag.Diagnostic, error) {
		panic("analyzer exploded")
	}))

	_, err := a.Invoke(context.Background(), sampleCase(t))
	require.Error(t, err)
	assert.True(t, IsCrash(err))
	assert.Contains(t, err.Error(), "analyzer exploded")
	assert.Contains(t, err.Error(), "E999")
}

func TestInvoke_ErrorClassification(t *testing.T) {
	tests := []struct {
		name  string
		err   error
		check func(error) bool
	}{
		{"plain error is crash", errors.New("boom"), IsCrash},
		{"typed malformed output keeps kind", &AdapterError{Kind: KindMalformedOutput, Err: ErrMalformedOutput}, IsMalformedOutput},
		{"deadline is timeout", context.DeadlineExceeded, IsTimeout},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			a := NewAdapter(CheckerFunc(func(ctx context.Context, u Unit) ([]diag.Diagnostic, error) {
				return nil, tt.err
			}))
			_, err := a.Invoke(context.Background(), sampleCase(t))
			assert.True(t, tt.check(err), "got %v", err)

			var ae *AdapterError
			require.True(t, errors.As(err, &ae))
			assert.Equal(t, "E999", ae.Case)
		})
	}
}

func TestInvoke_IndependentCalls(t *testing.T) {
	var calls atomic.Int32
	a := NewAdapter(CheckerFunc(func(ctx context.Context, u Unit) ([]diag.Diagnostic, error) {
		calls.Add(1)
		return []diag.Diagnostic{{Line: 2, Message: u.Name}}, nil
	}))
	tc := sampleCase(t)

	first, err := a.Invoke(context.Background(), tc)
	require.NoError(t, err)
	second, err := a.Invoke(context.Background(), tc)
	require.NoError(t, err)

	assert.Equal(t, first, second)
	assert.EqualValues(t, 2, calls.Load())
}

func TestAdapterError_Message(t *testing.T) {
	err := &AdapterError{Kind: KindCrash, Case: "E382", Err: errors.New("exit 101")}
	assert.Equal(t, "adapter crash: E382: exit 101", err.Error())
	assert.False(t, IsTimeout(errors.New("x")))
}

func TestNewAdapter_Defaults(t *testing.T) {
	a := NewAdapter(nil, WithTimeout(0), WithLogger(nil))
	assert.Equal(t, DefaultTimeout, a.Timeout())
}
