package store

import (
	"fmt"

	"github.com/roach88/ownercheck/internal/canon"
	"github.com/roach88/ownercheck/internal/diag"
)

// marshalDiagnostics converts analyzer output to canonical JSON TEXT.
// A nil slice is stored as "[]".
func marshalDiagnostics(diags []diag.Diagnostic) (string, error) {
	arr := make([]any, len(diags))
	for i, d := range diags {
		arr[i] = map[string]any{
			"code":     d.Code,
			"severity": d.Severity.String(),
			"line":     d.Line,
			"column":   d.Column,
			"message":  d.Message,
		}
	}
	data, err := canon.Marshal(arr)
	if err != nil {
		return "", fmt.Errorf("marshal diagnostics: %w", err)
	}
	return string(data), nil
}
