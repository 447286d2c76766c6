package report

import (
	"bytes"
	"encoding/json"
	"errors"
	"testing"

	"github.com/sebdah/goldie/v2"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/roach88/ownercheck/internal/fixture"
	"github.com/roach88/ownercheck/internal/match"
)

const testRunID = "01890a5d-ac96-774b-bcce-b302099a8057"

func failingReport() *Report {
	return &Report{
		RunID:  testRunID,
		Strict: true,
		Totals: Totals{Total: 4, Passed: 1, Failed: 2, Errored: 1},
		ByStatus: map[fixture.Status]Totals{
			fixture.StatusDone:    {Total: 2, Passed: 1, Failed: 1},
			fixture.StatusStarted: {Total: 2, Failed: 1, Errored: 1},
		},
		Failures: []CaseFailure{
			{
				Code: "E382", ID: "id382", Title: "used after move", Status: fixture.StatusDone,
				File: "main.rs", Line: 27, Verdict: match.VerdictFail,
				Failures: []FailureDetail{{
					Reason:       match.ReasonMissing,
					ExpectedLine: 35,
					Expected:     "line 35: ERROR assign to part of moved value: `x`",
					Detail:       "expected line 35: ERROR assign to part of moved value: `x`, not reported",
				}},
			},
			{
				Code: "E502", ID: "id502", Title: "immutable borrow + mutable borrow", Status: fixture.StatusStarted,
				Tentative: true, File: "region_point.rs", Line: 18, Verdict: match.VerdictFail,
				Failures: []FailureDetail{{
					Reason:     match.ReasonUnexpected,
					ActualLine: 22,
					Actual:     "note - 22:9 immutable borrow later used here",
					Detail:     "unexpected note - 22:9 immutable borrow later used here",
				}},
			},
			{
				Code: "E716", ID: "id716", Title: "temp value dropped", Status: fixture.StatusStarted,
				File: "main.rs", Line: 102, Verdict: match.VerdictError,
				Error: "adapter timeout: E716: no result within 30s: context deadline exceeded",
			},
		},
		Structural: []string{"b.rs:1: duplicate-category: E999: already defined at a.rs:1"},
	}
}

func passingReport() *Report {
	return &Report{
		RunID:  testRunID,
		Totals: Totals{Total: 2, Passed: 2},
		ByStatus: map[fixture.Status]Totals{
			fixture.StatusEasy: {Total: 1, Passed: 1},
			fixture.StatusAll:  {Total: 1, Passed: 1},
		},
		Failures: []CaseFailure{},
	}
}

func newGoldie(t *testing.T) *goldie.Goldie {
	return goldie.New(t,
		goldie.WithFixtureDir("testdata/golden"),
		goldie.WithNameSuffix(".golden"),
	)
}

func TestRenderText_Failing(t *testing.T) {
	var buf bytes.Buffer
	require.NoError(t, RenderText(&buf, failingReport(), false))
	newGoldie(t).Assert(t, "text_failing", buf.Bytes())
}

func TestRenderText_Passing(t *testing.T) {
	var buf bytes.Buffer
	require.NoError(t, RenderText(&buf, passingReport(), false))
	newGoldie(t).Assert(t, "text_passing", buf.Bytes())
}

func TestRenderText_Color(t *testing.T) {
	var plain, colored bytes.Buffer
	require.NoError(t, RenderText(&plain, failingReport(), false))
	require.NoError(t, RenderText(&colored, failingReport(), true))

	assert.NotContains(t, plain.String(), "\x1b[")
	assert.Contains(t, colored.String(), "\x1b[")
}

func TestRenderJSON_Failing(t *testing.T) {
	var buf bytes.Buffer
	require.NoError(t, RenderJSON(&buf, failingReport()))
	newGoldie(t).Assert(t, "json_failing", buf.Bytes())

	var decoded map[string]any
	require.NoError(t, json.Unmarshal(buf.Bytes(), &decoded))
	assert.Equal(t, false, decoded["ok"])
}

func TestRenderJSON_EmptyCollections(t *testing.T) {
	var buf bytes.Buffer
	require.NoError(t, RenderJSON(&buf, &Report{RunID: "r"}))
	assert.Equal(t,
		`{"by_status":{},"failures":[],"ok":true,"run_id":"r","strict":false,"structural":[],"totals":{"errored":0,"failed":0,"passed":0,"total":0}}`+"\n",
		buf.String())
}

type failingWriter struct{}

func (failingWriter) Write([]byte) (int, error) { return 0, errors.New("disk full") }

func TestRender_WriteErrors(t *testing.T) {
	assert.ErrorContains(t, RenderText(failingWriter{}, failingReport(), false), "disk full")
	assert.ErrorContains(t, RenderJSON(failingWriter{}, failingReport()), "disk full")
}

func TestReport_OK(t *testing.T) {
	assert.False(t, failingReport().OK())
	assert.True(t, passingReport().OK())

	rep := passingReport()
	rep.Structural = []string{"x"}
	assert.False(t, rep.OK())
}
