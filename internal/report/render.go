package report

import (
	"fmt"
	"io"

	"github.com/fatih/color"

	"github.com/roach88/ownercheck/internal/canon"
	"github.com/roach88/ownercheck/internal/fixture"
	"github.com/roach88/ownercheck/internal/match"
)

type palette struct {
	pass, fail, errored, dim, bold *color.Color
}

func newPalette(enabled bool) palette {
	p := palette{
		pass:    color.New(color.FgGreen),
		fail:    color.New(color.FgRed),
		errored: color.New(color.FgYellow),
		dim:     color.New(color.Faint),
		bold:    color.New(color.Bold),
	}
	for _, c := range []*color.Color{p.pass, p.fail, p.errored, p.dim, p.bold} {
		if enabled {
			c.EnableColor()
		} else {
			c.DisableColor()
		}
	}
	return p
}

func statusLabel(st fixture.Status, tentative bool) string {
	if tentative {
		return string(st) + "?"
	}
	return string(st)
}

// RenderText writes the human-readable summary. Every case that did not
// pass is listed with its reasons.
func RenderText(w io.Writer, rep *Report, useColor bool) error {
	p := newPalette(useColor)
	ew := &errWriter{w: w}

	mode := "non-strict"
	if rep.Strict {
		mode = "strict"
	}
	ew.printf("%s\n", p.dim.Sprintf("Run %s (%s)", rep.RunID, mode))

	for _, cf := range rep.Failures {
		mark := p.fail.Sprint("✗")
		if cf.Verdict == match.VerdictError {
			mark = p.errored.Sprint("!")
		}
		ew.printf("%s %s %s [%s] %s\n", mark, p.bold.Sprint(cf.Code), cf.Title,
			statusLabel(cf.Status, cf.Tentative), p.dim.Sprintf("%s:%d", cf.File, cf.Line))
		if cf.Error != "" {
			ew.printf("    %s\n", cf.Error)
		}
		for _, f := range cf.Failures {
			ew.printf("    %s: %s\n", f.Reason, f.Detail)
		}
	}

	if len(rep.Structural) > 0 {
		ew.printf("\n%s\n", p.fail.Sprint("Structural errors:"))
		for _, s := range rep.Structural {
			ew.printf("  %s\n", s)
		}
	}

	if len(rep.ByStatus) > 0 {
		ew.printf("\nBy status:\n")
		for _, st := range fixture.Statuses {
			t, ok := rep.ByStatus[st]
			if !ok {
				continue
			}
			ew.printf("  %-8s %d passed, %d failed, %d errored\n", st, t.Passed, t.Failed, t.Errored)
		}
	}

	t := rep.Totals
	ew.printf("\nTest Summary: %d passed, %d failed, %d errored, %d total\n", t.Passed, t.Failed, t.Errored, t.Total)
	if rep.OK() {
		ew.printf("%s\n", p.pass.Sprint("✓ All cases passed"))
	}
	return ew.err
}

// RenderJSON writes the report as canonical JSON followed by a newline.
func RenderJSON(w io.Writer, rep *Report) error {
	data, err := canon.Marshal(rep.canonicalMap())
	if err != nil {
		return fmt.Errorf("render report: %w", err)
	}
	data = append(data, '\n')
	_, err = w.Write(data)
	return err
}

func totalsMap(t Totals) map[string]any {
	return map[string]any{
		"total":   t.Total,
		"passed":  t.Passed,
		"failed":  t.Failed,
		"errored": t.Errored,
	}
}

func (r *Report) canonicalMap() map[string]any {
	byStatus := make(map[string]any, len(r.ByStatus))
	for st, t := range r.ByStatus {
		byStatus[string(st)] = totalsMap(t)
	}

	failures := make([]any, len(r.Failures))
	for i, cf := range r.Failures {
		details := make([]any, len(cf.Failures))
		for j, f := range cf.Failures {
			d := map[string]any{
				"reason": string(f.Reason),
				"detail": f.Detail,
			}
			if f.Expected != "" {
				d["expected"] = f.Expected
				d["expected_line"] = f.ExpectedLine
			}
			if f.Actual != "" {
				d["actual"] = f.Actual
				d["actual_line"] = f.ActualLine
			}
			details[j] = d
		}
		m := map[string]any{
			"code":      cf.Code,
			"id":        cf.ID,
			"title":     cf.Title,
			"status":    string(cf.Status),
			"tentative": cf.Tentative,
			"file":      cf.File,
			"line":      cf.Line,
			"verdict":   string(cf.Verdict),
			"failures":  details,
		}
		if cf.Error != "" {
			m["error"] = cf.Error
		}
		failures[i] = m
	}

	structural := r.Structural
	if structural == nil {
		structural = []string{}
	}

	return map[string]any{
		"run_id":     r.RunID,
		"strict":     r.Strict,
		"ok":         r.OK(),
		"totals":     totalsMap(r.Totals),
		"by_status":  byStatus,
		"failures":   failures,
		"structural": structural,
	}
}

// errWriter keeps the first write error so rendering code stays linear.
type errWriter struct {
	w   io.Writer
	err error
}

func (e *errWriter) printf(format string, args ...any) {
	if e.err != nil {
		return
	}
	_, e.err = fmt.Fprintf(e.w, format, args...)
}
