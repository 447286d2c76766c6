package checker

import (
	"bufio"
	"bytes"
	"encoding/json"
	"errors"
	"fmt"
	"regexp"
	"strconv"
	"strings"

	"github.com/roach88/ownercheck/internal/diag"
)

// ErrMalformedOutput is wrapped by decoders when analyzer output has an
// unexpected shape.
var ErrMalformedOutput = errors.New("malformed analyzer output")

// Decoder turns raw analyzer output into diagnostics, in output order.
type Decoder func(out []byte) ([]diag.Diagnostic, error)

// Decoder names accepted by DecoderByName.
const (
	DecoderJSON  = "json"
	DecoderShort = "short"
)

// DecoderByName returns the named decoder.
func DecoderByName(name string) (Decoder, error) {
	switch name {
	case "", DecoderJSON:
		return DecodeJSON, nil
	case DecoderShort:
		return DecodeShort, nil
	}
	return nil, fmt.Errorf("unknown decoder %q (valid: %s, %s)", name, DecoderJSON, DecoderShort)
}

// jsonDiagnostic is the subset of rustc's --error-format=json record we read.
type jsonDiagnostic struct {
	MessageType string `json:"$message_type"`
	Message     string `json:"message"`
	Level       string `json:"level"`
	Code        *struct {
		Code string `json:"code"`
	} `json:"code"`
	Spans    []jsonSpan       `json:"spans"`
	Children []jsonDiagnostic `json:"children"`
}

type jsonSpan struct {
	FileName    string `json:"file_name"`
	LineStart   int    `json:"line_start"`
	ColumnStart int    `json:"column_start"`
	IsPrimary   bool   `json:"is_primary"`
	Label       string `json:"label"`
}

// DecodeJSON reads one JSON diagnostic per line. Labelled secondary spans
// become notes carrying the parent's code, then child diagnostics follow.
// Secondary spans in a file other than the primary span's (std macro
// expansions, dependencies) are skipped because their lines belong to that
// file. Records without a span, such as "aborting due to previous
// error", are dropped since they cannot be placed on a line. Non-diagnostic
// records (artifact notifications) are skipped.
func DecodeJSON(out []byte) ([]diag.Diagnostic, error) {
	var diags []diag.Diagnostic
	sc := bufio.NewScanner(bytes.NewReader(out))
	sc.Buffer(make([]byte, 0, 64*1024), 16*1024*1024)
	n := 0
	for sc.Scan() {
		n++
		line := bytes.TrimSpace(sc.Bytes())
		if len(line) == 0 {
			continue
		}
		var rec jsonDiagnostic
		if err := json.Unmarshal(line, &rec); err != nil {
			return nil, fmt.Errorf("%w: line %d: %v", ErrMalformedOutput, n, err)
		}
		if rec.MessageType != "" && rec.MessageType != "diagnostic" {
			continue
		}
		var err error
		diags, err = appendJSON(diags, rec, "")
		if err != nil {
			return nil, fmt.Errorf("%w: line %d: %v", ErrMalformedOutput, n, err)
		}
	}
	if err := sc.Err(); err != nil {
		return nil, fmt.Errorf("%w: %v", ErrMalformedOutput, err)
	}
	return diags, nil
}

func appendJSON(diags []diag.Diagnostic, rec jsonDiagnostic, parentCode string) ([]diag.Diagnostic, error) {
	if rec.Message == "" && rec.Level == "" {
		return nil, errors.New("record has neither message nor level")
	}
	code := parentCode
	if rec.Code != nil && rec.Code.Code != "" {
		code = rec.Code.Code
	}
	if span, ok := primarySpan(rec.Spans); ok {
		sev, ok := diag.ParseSeverity(rec.Level)
		if !ok {
			return nil, fmt.Errorf("unknown level %q", rec.Level)
		}
		diags = append(diags, diag.Diagnostic{
			Code:     code,
			Severity: sev,
			Line:     span.LineStart,
			Column:   span.ColumnStart,
			Message:  rec.Message,
		})
		for _, s := range rec.Spans {
			if s.IsPrimary || s.Label == "" || s.FileName != span.FileName {
				continue
			}
			diags = append(diags, diag.Diagnostic{
				Code:     code,
				Severity: diag.SevNote,
				Line:     s.LineStart,
				Column:   s.ColumnStart,
				Message:  s.Label,
			})
		}
	}
	for _, child := range rec.Children {
		var err error
		diags, err = appendJSON(diags, child, code)
		if err != nil {
			return nil, err
		}
	}
	return diags, nil
}

func primarySpan(spans []jsonSpan) (jsonSpan, bool) {
	for _, s := range spans {
		if s.IsPrimary {
			return s, true
		}
	}
	if len(spans) > 0 {
		return spans[0], true
	}
	return jsonSpan{}, false
}

// shortLine matches rustc's --error-format=short output:
//
//	src/case.rs:5:5: error[E0382]: borrow of moved value: `x`
var shortLine = regexp.MustCompile(`^(.+?):(\d+):(\d+): ([a-z][a-z ]*?)(?:\[(\w+)\])?: (.*)$`)

// DecodeShort reads rustc short-format lines. Lines without a location
// ("error: aborting due to 2 previous errors") carry nothing to match and
// are skipped.
func DecodeShort(out []byte) ([]diag.Diagnostic, error) {
	var diags []diag.Diagnostic
	for i, line := range strings.Split(string(out), "\n") {
		m := shortLine.FindStringSubmatch(strings.TrimRight(line, "\r"))
		if m == nil {
			continue
		}
		sev, ok := diag.ParseSeverity(m[4])
		if !ok {
			return nil, fmt.Errorf("%w: line %d: unknown level %q", ErrMalformedOutput, i+1, m[4])
		}
		ln, _ := strconv.Atoi(m[2])
		col, _ := strconv.Atoi(m[3])
		diags = append(diags, diag.Diagnostic{
			Code:     m[5],
			Severity: sev,
			Line:     ln,
			Column:   col,
			Message:  m[6],
		})
	}
	return diags, nil
}
