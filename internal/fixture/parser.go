package fixture

import (
	"errors"
	"fmt"
	"os"
	"regexp"
	"strings"

	"github.com/roach88/ownercheck/internal/canon"
	"github.com/roach88/ownercheck/internal/diag"
)

// DomainCase is the fingerprint domain for TestCase.ID.
const DomainCase = "ownercheck/case/v1"

// Syntax describes the comment delimiters of the analyzed language.
type Syntax struct {
	// LineComment opens a comment, e.g. "//".
	LineComment string
	// BlockClose optionally closes it, e.g. "*/" when LineComment is "/*".
	BlockClose string
}

// RustSyntax is the default comment syntax.
var RustSyntax = Syntax{LineComment: "//"}

// Option configures Parse.
type Option func(*parser)

// WithSyntax overrides the comment syntax.
func WithSyntax(s Syntax) Option {
	return func(p *parser) {
		if s.LineComment != "" {
			p.syntax = s
		}
	}
}

var (
	headerCode   = regexp.MustCompile(`^([A-Za-z0-9]+)\s*:\s*(.*)$`)
	headerStatus = regexp.MustCompile(`\(\s*(\w+)(\?)?\s*\)\s*$`)
)

// ParseFile reads path and parses it.
func ParseFile(path string, opts ...Option) ([]*TestCase, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read fixture file: %w", err)
	}
	return Parse(path, data, opts...)
}

// Parse extracts the test cases of one fixture file.
// On any structural problem it returns no cases and every problem found,
// joined; see ParseError.
func Parse(file string, src []byte, opts ...Option) ([]*TestCase, error) {
	p := &parser{file: file, syntax: RustSyntax}
	for _, opt := range opts {
		opt(p)
	}
	p.run(splitLines(string(src)))
	if len(p.errs) > 0 {
		return nil, errors.Join(p.errs...)
	}
	return p.cases, nil
}

// lineKind classifies a source line.
type lineKind int

const (
	lineOther lineKind = iota
	lineHeader
	lineTerminator
	lineMarker
	lineTrailingMarker
)

// chain is the marker state carried across consecutive marker lines.
// The zero value is an idle chain.
type chain struct {
	active bool
	// anchor is the case line carets are counted from.
	anchor int
	// last is the resolved line of the previous marker in the chain.
	last int
}

// pending is a case whose span is still open.
type pending struct {
	tc     *TestCase
	start  int // index into lines of the header
	marker []int
}

type parser struct {
	file     string
	syntax   Syntax
	trailing *regexp.Regexp
	lines    []string

	cur   *pending
	chain chain
	seen  map[string]int
	cases []*TestCase
	errs  []error
}

func (p *parser) run(lines []string) {
	p.lines = lines
	p.seen = make(map[string]int)
	p.trailing = regexp.MustCompile(regexp.QuoteMeta(p.syntax.LineComment) + `\s*~`)

	for i, line := range lines {
		fileLine := i + 1
		kind, body := p.classify(line)

		switch kind {
		case lineHeader:
			p.closeCase(i)
			p.chain = chain{}
			p.openCase(i, body)
		case lineTerminator:
			p.closeCase(i)
			p.chain = chain{}
		case lineMarker, lineTrailingMarker:
			if p.cur == nil {
				p.fail(fileLine, "", ErrMissingHeader, "expectation marker outside of any case")
				p.chain = chain{}
				continue
			}
			p.marker(i, kind == lineTrailingMarker, body)
		default:
			p.chain = chain{}
		}
	}
	p.closeCase(len(lines))
}

// classify returns the kind of line and the comment body after the header
// rule or marker sigil.
func (p *parser) classify(line string) (lineKind, string) {
	open := p.syntax.LineComment
	trimmed := strings.TrimSpace(line)

	if strings.HasPrefix(trimmed, open) {
		body := p.stripClose(strings.TrimPrefix(trimmed, open))
		rest := strings.TrimSpace(body)
		if strings.HasPrefix(rest, "====") {
			inner := strings.TrimSpace(strings.Trim(rest, "="))
			if inner == "" {
				return lineTerminator, ""
			}
			return lineHeader, inner
		}
		if strings.HasPrefix(rest, "~") {
			return lineMarker, rest[1:]
		}
		return lineOther, ""
	}

	if loc := p.trailing.FindStringIndex(line); loc != nil {
		body := p.stripClose(line[loc[1]:])
		return lineTrailingMarker, body
	}
	return lineOther, ""
}

func (p *parser) stripClose(s string) string {
	s = strings.TrimRight(s, " \t")
	if p.syntax.BlockClose != "" {
		s = strings.TrimSuffix(s, p.syntax.BlockClose)
	}
	return s
}

func (p *parser) openCase(idx int, inner string) {
	fileLine := idx + 1
	m := headerCode.FindStringSubmatch(inner)
	if m == nil {
		p.fail(fileLine, "", ErrMalformedHeader, fmt.Sprintf("header %q has no category code", inner))
		return
	}
	code, title := m[1], strings.TrimSpace(strings.TrimRight(m[2], "="))

	status := StatusStarted
	tentative := false
	if sm := headerStatus.FindStringSubmatchIndex(title); sm != nil {
		if st, ok := ParseStatus(title[sm[2]:sm[3]]); ok {
			status = st
			tentative = sm[4] >= 0
			title = strings.TrimSpace(title[:sm[0]])
		}
	}

	if first, dup := p.seen[code]; dup {
		p.fail(fileLine, code, ErrDuplicateCategory,
			fmt.Sprintf("category already defined at line %d", first))
	} else {
		p.seen[code] = fileLine
	}

	p.cur = &pending{
		start: idx,
		tc: &TestCase{
			Code:      code,
			Title:     title,
			Status:    status,
			Tentative: tentative,
			File:      p.file,
			StartLine: fileLine,
		},
	}
}

// marker parses one expectation marker at lines[idx] and advances the chain.
func (p *parser) marker(idx int, trailing bool, body string) {
	tc := p.cur.tc
	fileLine := idx + 1
	caseLine := idx - p.cur.start + 1

	same := strings.HasPrefix(body, "|")
	carets := 0
	if same {
		body = body[1:]
	} else {
		for carets < len(body) && body[carets] == '^' {
			carets++
		}
		body = body[carets:]
	}

	exp := Expectation{MarkerLine: caseLine, Offset: carets, Trailing: trailing}
	if err := parseAssertion(&exp, body); err != nil {
		p.fail(fileLine, tc.Code, ErrMalformedMarker, err.Error())
		p.chain = chain{}
		return
	}

	switch {
	case same && (!p.chain.active || trailing):
		p.fail(fileLine, tc.Code, ErrMalformedMarker, "| marker has no preceding marker to share a line with")
		p.chain = chain{}
		return
	case same:
		exp.Line = p.chain.last
	case trailing:
		exp.Line = caseLine - carets
	default:
		if !p.chain.active {
			p.chain = chain{active: true, anchor: caseLine}
		}
		exp.Line = p.chain.anchor - max(carets, 1)
	}

	if trailing {
		// A marker on the next line continues from the code line.
		p.chain = chain{active: true, anchor: caseLine + 1}
	}
	p.chain.last = exp.Line

	tc.Expected = append(tc.Expected, exp)
	p.cur.marker = append(p.cur.marker, fileLine)
}

// parseAssertion fills severity and pattern from the marker text after the
// sigil and offset characters.
func parseAssertion(exp *Expectation, body string) error {
	rest := strings.TrimSpace(body)

	word, tail, _ := strings.Cut(rest, " ")
	word = strings.TrimSuffix(word, ":")
	if sev, ok := diag.ParseSeverity(word); ok && word == strings.ToUpper(word) {
		exp.Severity = sev
		rest = strings.TrimSpace(tail)
	}

	if rest == "" && exp.Severity == diag.SevUnspecified {
		return fmt.Errorf("marker asserts neither a severity nor a message")
	}
	exp.Pattern = rest

	if len(rest) >= 2 && strings.HasPrefix(rest, "/") && strings.HasSuffix(rest, "/") {
		re, err := regexp.Compile(rest[1 : len(rest)-1])
		if err != nil {
			return fmt.Errorf("invalid message pattern: %w", err)
		}
		exp.re = re
	}
	return nil
}

// closeCase ends the open case before lines[end].
func (p *parser) closeCase(end int) {
	if p.cur == nil {
		return
	}
	cur := p.cur
	p.cur = nil
	tc := cur.tc

	tc.Source = strings.Join(p.lines[cur.start:end], "\n") + "\n"
	span := end - cur.start

	if len(tc.Expected) == 0 {
		p.fail(tc.StartLine, tc.Code, ErrNoExpectations, "case asserts no diagnostics")
		return
	}
	for i, exp := range tc.Expected {
		if exp.Line < 2 || exp.Line > span {
			p.fail(cur.marker[i], tc.Code, ErrOffsetOutOfRange,
				fmt.Sprintf("marker resolves to case line %d, outside the case body (lines 2-%d)", exp.Line, span))
		}
	}

	id, err := canon.Fingerprint(DomainCase, map[string]any{
		"code":   tc.Code,
		"source": tc.Source,
	})
	if err != nil {
		p.errs = append(p.errs, err)
		return
	}
	tc.ID = id
	p.cases = append(p.cases, tc)
}

func (p *parser) fail(line int, code string, kind ErrorKind, msg string) {
	p.errs = append(p.errs, &ParseError{
		File:    p.file,
		Line:    line,
		Code:    code,
		Kind:    kind,
		Message: msg,
	})
}

// splitLines splits src into lines without terminators, tolerating CRLF.
// A trailing newline does not produce an empty final line.
func splitLines(src string) []string {
	src = strings.TrimSuffix(src, "\n")
	if src == "" {
		return nil
	}
	lines := strings.Split(src, "\n")
	for i, l := range lines {
		lines[i] = strings.TrimSuffix(l, "\r")
	}
	return lines
}
