package diag

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestParseSeverity(t *testing.T) {
	tests := []struct {
		in   string
		want Severity
		ok   bool
	}{
		{"ERROR", SevError, true},
		{"error", SevError, true},
		{"WARN", SevWarning, true},
		{"warning", SevWarning, true},
		{"NOTE", SevNote, true},
		{"HELP", SevHelp, true},
		{"error: internal compiler error", SevError, true},
		{"failure-note", SevUnspecified, false},
		{"", SevUnspecified, false},
	}

	for _, tt := range tests {
		t.Run(tt.in, func(t *testing.T) {
			got, ok := ParseSeverity(tt.in)
			assert.Equal(t, tt.ok, ok)
			assert.Equal(t, tt.want, got)
		})
	}
}

func TestDiagnostic_String(t *testing.T) {
	d := Diagnostic{Code: "E0382", Severity: SevError, Line: 7, Column: 5, Message: "borrow of moved value: `x`"}
	assert.Equal(t, "error E0382 7:5 borrow of moved value: `x`", d.String())

	d.Code = ""
	assert.Equal(t, "error - 7:5 borrow of moved value: `x`", d.String())
}

func TestSeverity_MarshalText(t *testing.T) {
	b, err := SevNote.MarshalText()
	assert.NoError(t, err)
	assert.Equal(t, "note", string(b))
	assert.Equal(t, "unspecified", SevUnspecified.String())
}
