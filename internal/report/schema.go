package report

import (
	"bytes"
	_ "embed"
	"encoding/json"
	"fmt"
	"sync"

	"github.com/santhosh-tekuri/jsonschema/v6"

	"github.com/roach88/ownercheck/internal/fixture"
	"github.com/roach88/ownercheck/internal/match"
)

//go:embed report.schema.json
var schemaData []byte

var (
	reportSchema *jsonschema.Schema
	compileOnce  sync.Once
	compileErr   error
)

func compileSchema() error {
	compileOnce.Do(func() {
		doc, err := jsonschema.UnmarshalJSON(bytes.NewReader(schemaData))
		if err != nil {
			compileErr = fmt.Errorf("unmarshal report schema: %w", err)
			return
		}
		compiler := jsonschema.NewCompiler()
		if err := compiler.AddResource("report.schema.json", doc); err != nil {
			compileErr = fmt.Errorf("add report schema resource: %w", err)
			return
		}
		reportSchema, err = compiler.Compile("report.schema.json")
		if err != nil {
			compileErr = fmt.Errorf("compile report schema: %w", err)
		}
	})
	return compileErr
}

// ValidateJSON checks data, as written by RenderJSON, against the report
// schema.
func ValidateJSON(data []byte) error {
	if err := compileSchema(); err != nil {
		return err
	}
	v, err := jsonschema.UnmarshalJSON(bytes.NewReader(data))
	if err != nil {
		return fmt.Errorf("invalid JSON: %w", err)
	}
	if err := reportSchema.Validate(v); err != nil {
		return fmt.Errorf("report validation failed: %w", err)
	}
	return nil
}

type jsonTotals struct {
	Total   int `json:"total"`
	Passed  int `json:"passed"`
	Failed  int `json:"failed"`
	Errored int `json:"errored"`
}

type jsonFailure struct {
	Reason       string `json:"reason"`
	Detail       string `json:"detail"`
	Expected     string `json:"expected"`
	ExpectedLine int    `json:"expected_line"`
	Actual       string `json:"actual"`
	ActualLine   int    `json:"actual_line"`
}

type jsonCase struct {
	Code      string        `json:"code"`
	ID        string        `json:"id"`
	Title     string        `json:"title"`
	Status    string        `json:"status"`
	Tentative bool          `json:"tentative"`
	File      string        `json:"file"`
	Line      int           `json:"line"`
	Verdict   string        `json:"verdict"`
	Error     string        `json:"error"`
	Failures  []jsonFailure `json:"failures"`
}

type jsonReport struct {
	RunID      string                `json:"run_id"`
	Strict     bool                  `json:"strict"`
	Totals     jsonTotals            `json:"totals"`
	ByStatus   map[string]jsonTotals `json:"by_status"`
	Failures   []jsonCase            `json:"failures"`
	Structural []string              `json:"structural"`
}

// DecodeJSON reads a report written by RenderJSON. The document is
// validated first, so a decoded report renders the same as the original.
func DecodeJSON(data []byte) (*Report, error) {
	if err := ValidateJSON(data); err != nil {
		return nil, err
	}
	var jr jsonReport
	if err := json.Unmarshal(data, &jr); err != nil {
		return nil, fmt.Errorf("decode report: %w", err)
	}

	rep := &Report{
		RunID:      jr.RunID,
		Strict:     jr.Strict,
		Totals:     Totals(jr.Totals),
		ByStatus:   make(map[fixture.Status]Totals, len(jr.ByStatus)),
		Failures:   make([]CaseFailure, len(jr.Failures)),
		Structural: jr.Structural,
	}
	for st, t := range jr.ByStatus {
		rep.ByStatus[fixture.Status(st)] = Totals(t)
	}
	for i, jc := range jr.Failures {
		cf := CaseFailure{
			Code:      jc.Code,
			ID:        jc.ID,
			Title:     jc.Title,
			Status:    fixture.Status(jc.Status),
			Tentative: jc.Tentative,
			File:      jc.File,
			Line:      jc.Line,
			Verdict:   match.Verdict(jc.Verdict),
			Error:     jc.Error,
		}
		for _, jf := range jc.Failures {
			cf.Failures = append(cf.Failures, FailureDetail{
				Reason:       match.Reason(jf.Reason),
				ExpectedLine: jf.ExpectedLine,
				Expected:     jf.Expected,
				ActualLine:   jf.ActualLine,
				Actual:       jf.Actual,
				Detail:       jf.Detail,
			})
		}
		rep.Failures[i] = cf
	}
	return rep, nil
}
