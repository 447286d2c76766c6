package store

import (
	"context"
	"testing"

	"github.com/roach88/ownercheck/internal/diag"
)

const testRunID = "run-1"

// createTestStore creates a new in-memory store with one begun run.
func createTestStore(t *testing.T) *Store {
	t.Helper()
	s, err := Open(MemoryPath)
	if err != nil {
		t.Fatalf("Open() failed: %v", err)
	}
	t.Cleanup(func() { s.Close() })
	if err := s.BeginRun(context.Background(), testRunID, false, 4); err != nil {
		t.Fatalf("BeginRun() failed: %v", err)
	}
	return s
}

// createTestRecord creates a case record with minimal required fields.
func createTestRecord(code, status, verdict string) CaseRecord {
	return CaseRecord{
		RunID:     testRunID,
		CaseID:    "id-" + code,
		Code:      code,
		Title:     code + " title",
		Status:    status,
		File:      "main.rs",
		StartLine: 10,
		Verdict:   verdict,
		Actual: []diag.Diagnostic{
			{Code: code, Severity: diag.SevError, Line: 2, Column: 5, Message: "cannot do X"},
		},
	}
}
