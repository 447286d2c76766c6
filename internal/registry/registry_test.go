package registry

import (
	"os"
	"path/filepath"
	"slices"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/roach88/ownercheck/internal/fixture"
)

func testCase(code string, status fixture.Status) *fixture.TestCase {
	return &fixture.TestCase{Code: code, Title: code + " title", Status: status, File: "f.rs", StartLine: 1}
}

func codes(seq func(func(*fixture.TestCase) bool)) []string {
	var out []string
	for tc := range seq {
		out = append(out, tc.Code)
	}
	return out
}

func TestRegister_Duplicate(t *testing.T) {
	r := New()
	first := testCase("E382", fixture.StatusDone)
	second := testCase("E382", fixture.StatusEasy)
	second.File = "other.rs"
	second.StartLine = 10

	require.NoError(t, r.Register(first))
	err := r.Register(second)
	require.Error(t, err)
	assert.True(t, IsDuplicateCategory(err))
	assert.Contains(t, err.Error(), "other.rs:10")
	assert.Contains(t, err.Error(), "f.rs:1")

	got, ok := r.Get("E382")
	require.True(t, ok)
	assert.Same(t, first, got, "first registration wins")
	assert.Equal(t, 1, r.Len())
}

func TestRegister_Nil(t *testing.T) {
	assert.Error(t, New().Register(nil))
}

func TestCodes_Sorted(t *testing.T) {
	r := New()
	for _, c := range []string{"E716", "E373", "E502"} {
		require.NoError(t, r.Register(testCase(c, fixture.StatusDone)))
	}
	assert.Equal(t, []string{"E373", "E502", "E716"}, r.Codes())
}

func TestSelect(t *testing.T) {
	r := New()
	require.NoError(t, r.Register(testCase("A1", fixture.StatusEasy)))
	require.NoError(t, r.Register(testCase("B2", fixture.StatusStarted)))
	require.NoError(t, r.Register(testCase("C3", fixture.StatusDone)))
	require.NoError(t, r.Register(testCase("D4", fixture.StatusAll)))

	tests := []struct {
		name   string
		filter Filter
		want   []string
	}{
		{"empty selects all", Filter{}, []string{"A1", "B2", "C3", "D4"}},
		{"single status keeps all-tagged", Filter{Statuses: []fixture.Status{fixture.StatusDone}}, []string{"C3", "D4"}},
		{"except started", Filter{Statuses: ExcludeStatuses(fixture.StatusStarted)}, []string{"A1", "C3", "D4"}},
		{"category", Filter{Categories: []string{"B2"}}, []string{"B2"}},
		{"category still applies to all-tagged", Filter{Statuses: []fixture.Status{fixture.StatusEasy}, Categories: []string{"C3"}}, nil},
		{"both", Filter{Statuses: []fixture.Status{fixture.StatusEasy, fixture.StatusStarted}, Categories: []string{"B2", "D4"}}, []string{"B2", "D4"}},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, codes(r.Select(tt.filter)))
		})
	}
}

func TestSelect_Restartable(t *testing.T) {
	r := New()
	require.NoError(t, r.Register(testCase("A1", fixture.StatusEasy)))
	require.NoError(t, r.Register(testCase("B2", fixture.StatusEasy)))

	seq := r.Select(Filter{})
	assert.Equal(t, codes(seq), codes(seq))

	// Early break stops the sequence.
	var seen []string
	for tc := range seq {
		seen = append(seen, tc.Code)
		break
	}
	assert.Equal(t, []string{"A1"}, seen)
}

func TestSelect_Lazy(t *testing.T) {
	r := New()
	require.NoError(t, r.Register(testCase("A1", fixture.StatusEasy)))
	seq := r.Select(Filter{})
	require.NoError(t, r.Register(testCase("B2", fixture.StatusEasy)))
	assert.Equal(t, []string{"A1", "B2"}, codes(seq))
}

func TestExcludeStatuses(t *testing.T) {
	got := ExcludeStatuses(fixture.StatusStarted)
	assert.Equal(t, []fixture.Status{fixture.StatusEasy, fixture.StatusDone, fixture.StatusAll}, got)
	assert.Equal(t, fixture.Statuses, ExcludeStatuses())
}

func writeFixture(t *testing.T, dir, name, content string) string {
	t.Helper()
	path := filepath.Join(dir, name)
	require.NoError(t, os.MkdirAll(filepath.Dir(path), 0o755))
	require.NoError(t, os.WriteFile(path, []byte(content), 0o644))
	return path
}

func TestLoadPaths_DuplicateAcrossFiles(t *testing.T) {
	dir := t.TempDir()
	writeFixture(t, dir, "a.rs", "// ==== E999: sample (done) ====\ndo_x();\n//~ ERROR cannot do X\n")
	writeFixture(t, dir, "b.rs", "// ==== E999: again (easy) ====\ndo_y();\n//~ ERROR cannot do Y\n// ==== E100: other (easy) ====\nz();\n//~ ERROR z\n")

	reg, errs := LoadPaths([]string{dir}, LoadOptions{})
	require.Len(t, errs, 1)
	assert.True(t, IsDuplicateCategory(errs[0]))

	tc, ok := reg.Get("E999")
	require.True(t, ok)
	assert.Equal(t, "sample", tc.Title)
	assert.Equal(t, filepath.Join(dir, "a.rs"), tc.File)
	assert.Equal(t, []string{"E100", "E999"}, reg.Codes())
}

func TestLoadPaths_BadFileDoesNotStopOthers(t *testing.T) {
	dir := t.TempDir()
	writeFixture(t, dir, "bad.rs", "// ==== E1: no markers (done) ====\nfn f() {}\n")
	writeFixture(t, dir, "good.rs", "// ==== E2: ok (done) ====\nx();\n//~ ERROR x\n")
	writeFixture(t, dir, "notes.txt", "//~ ERROR not a fixture\n")

	reg, errs := LoadPaths([]string{dir}, LoadOptions{})
	require.Len(t, errs, 1)
	assert.True(t, fixture.IsParseError(errs[0]))
	assert.Equal(t, []string{"E2"}, reg.Codes())
}

func TestLoadPaths_ExplicitFileAndExtensions(t *testing.T) {
	dir := t.TempDir()
	py := writeFixture(t, dir, "sub/case.py", "# ==== P1: python (done) ====\nx = y\n#~ ERROR y\n")

	reg, errs := LoadPaths([]string{py}, LoadOptions{Syntax: fixture.Syntax{LineComment: "#"}})
	require.Empty(t, errs)
	assert.Equal(t, 1, reg.Len())

	reg, errs = LoadPaths([]string{dir}, LoadOptions{Extensions: []string{".py"}, Syntax: fixture.Syntax{LineComment: "#"}})
	require.Empty(t, errs)
	assert.Equal(t, []string{"P1"}, reg.Codes())
}

func TestLoadPaths_MissingAndEmpty(t *testing.T) {
	dir := t.TempDir()
	_, errs := LoadPaths([]string{filepath.Join(dir, "nope"), dir}, LoadOptions{})
	require.Len(t, errs, 2)
	assert.ErrorContains(t, errs[0], "failed to stat fixture path")
	assert.ErrorContains(t, errs[1], "no fixture files")
}

func TestLoadPaths_Testdata(t *testing.T) {
	reg, errs := LoadPaths([]string{filepath.Join("..", "..", "testdata", "fixtures")}, LoadOptions{})
	require.Empty(t, errs)
	assert.Greater(t, reg.Len(), 10)
	assert.True(t, slices.Contains(reg.Codes(), "E382"))

	for _, code := range reg.Codes() {
		tc, _ := reg.Get(code)
		assert.NotEmpty(t, tc.ID, code)
	}
}
