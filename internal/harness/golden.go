package harness

import (
	"bytes"
	"testing"

	"github.com/sebdah/goldie/v2"

	"github.com/roach88/ownercheck/internal/report"
)

// AssertGolden renders rep as uncolored text and compares it against
// testdata/golden/{name}.golden.
//
// To regenerate golden files, run:
//
//	go test ./internal/harness -update
//
// Reports are only comparable when the run ID is fixed; use a generator
// from internal/testutil.
func AssertGolden(t *testing.T, name string, rep *report.Report) {
	t.Helper()

	var buf bytes.Buffer
	if err := report.RenderText(&buf, rep, false); err != nil {
		t.Fatalf("render report: %v", err)
	}

	g := goldie.New(t,
		goldie.WithFixtureDir("testdata/golden"),
		goldie.WithNameSuffix(".golden"),
	)
	g.Assert(t, name, buf.Bytes())
}
