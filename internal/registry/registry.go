// Package registry holds the parsed test cases of a fixture set, keyed by
// category code.
package registry

import (
	"errors"
	"fmt"
	"iter"
	"slices"
	"sort"

	"github.com/roach88/ownercheck/internal/fixture"
)

// DuplicateCategoryError is returned when a category code is registered twice.
// The first registration is kept.
type DuplicateCategoryError struct {
	Code   string
	First  *fixture.TestCase
	Second *fixture.TestCase
}

func (e *DuplicateCategoryError) Error() string {
	return fmt.Sprintf("%s:%d: duplicate-category: %s: already defined at %s:%d",
		e.Second.File, e.Second.StartLine, e.Code, e.First.File, e.First.StartLine)
}

// IsDuplicateCategory returns true if err is or wraps a *DuplicateCategoryError.
func IsDuplicateCategory(err error) bool {
	var de *DuplicateCategoryError
	return errors.As(err, &de)
}

// Registry is an ordered set of test cases with unique category codes.
// It is not safe for concurrent registration; Select may be called
// concurrently once registration is done.
type Registry struct {
	cases  []*fixture.TestCase
	byCode map[string]*fixture.TestCase
}

// New returns an empty registry.
func New() *Registry {
	return &Registry{byCode: make(map[string]*fixture.TestCase)}
}

// Register adds tc. It fails with *DuplicateCategoryError if tc.Code is
// already present.
func (r *Registry) Register(tc *fixture.TestCase) error {
	if tc == nil {
		return errors.New("registry: nil test case")
	}
	if first, ok := r.byCode[tc.Code]; ok {
		return &DuplicateCategoryError{Code: tc.Code, First: first, Second: tc}
	}
	r.byCode[tc.Code] = tc
	r.cases = append(r.cases, tc)
	return nil
}

// Len returns the number of registered cases.
func (r *Registry) Len() int {
	return len(r.cases)
}

// Get returns the case registered under code.
func (r *Registry) Get(code string) (*fixture.TestCase, bool) {
	tc, ok := r.byCode[code]
	return tc, ok
}

// Codes returns all category codes, sorted.
func (r *Registry) Codes() []string {
	codes := make([]string, 0, len(r.byCode))
	for code := range r.byCode {
		codes = append(codes, code)
	}
	sort.Strings(codes)
	return codes
}

// Filter selects cases. An empty field selects everything.
type Filter struct {
	Statuses   []fixture.Status
	Categories []string
}

// Matches reports whether tc passes both predicates.
// Cases with status all pass the status predicate unconditionally.
func (f Filter) Matches(tc *fixture.TestCase) bool {
	if len(f.Statuses) > 0 && tc.Status != fixture.StatusAll && !slices.Contains(f.Statuses, tc.Status) {
		return false
	}
	if len(f.Categories) > 0 && !slices.Contains(f.Categories, tc.Code) {
		return false
	}
	return true
}

// Select returns the cases matching f in registration order.
// The sequence is lazy and may be iterated more than once.
func (r *Registry) Select(f Filter) iter.Seq[*fixture.TestCase] {
	return func(yield func(*fixture.TestCase) bool) {
		for _, tc := range r.cases {
			if !f.Matches(tc) {
				continue
			}
			if !yield(tc) {
				return
			}
		}
	}
}

// ExcludeStatuses returns every status except the given ones, for filters
// like "everything except started".
func ExcludeStatuses(skip ...fixture.Status) []fixture.Status {
	var out []fixture.Status
	for _, st := range fixture.Statuses {
		if !slices.Contains(skip, st) {
			out = append(out, st)
		}
	}
	return out
}
