package store

import (
	"context"
	"fmt"

	"github.com/roach88/ownercheck/internal/diag"
)

// CaseRecord is one executed case as stored in the ledger.
type CaseRecord struct {
	RunID     string
	CaseID    string
	Code      string
	Title     string
	Status    string
	Tentative bool
	File      string
	StartLine int
	Verdict   string
	// AdapterError is the adapter failure message for error verdicts.
	AdapterError string
	Actual       []diag.Diagnostic
	Failures     []FailureRecord
}

// FailureRecord is one expected/actual discrepancy of a failing case.
// Zero lines and empty strings stand for an absent side.
type FailureRecord struct {
	Reason       string
	ExpectedLine int
	Expected     string
	ActualLine   int
	Actual       string
	Detail       string
}

// BeginRun records a new run. Case results must reference a begun run.
func (s *Store) BeginRun(ctx context.Context, runID string, strict bool, workers int) error {
	_, err := s.db.ExecContext(ctx, `
		INSERT INTO runs (id, strict, workers) VALUES (?, ?, ?)
	`, runID, strict, workers)
	if err != nil {
		return fmt.Errorf("begin run: %w", err)
	}
	return nil
}

// WriteCase stores one case result and its failures atomically.
// A second result for the same (run, code) is a constraint error.
func (s *Store) WriteCase(ctx context.Context, rec CaseRecord) error {
	actualJSON, err := marshalDiagnostics(rec.Actual)
	if err != nil {
		return fmt.Errorf("write case %s: %w", rec.Code, err)
	}

	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("write case %s: begin: %w", rec.Code, err)
	}
	defer tx.Rollback()

	res, err := tx.ExecContext(ctx, `
		INSERT INTO case_results
		(run_id, case_id, code, title, status, tentative, file, start_line, verdict, adapter_error, actual)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)
	`,
		rec.RunID,
		rec.CaseID,
		rec.Code,
		rec.Title,
		rec.Status,
		rec.Tentative,
		rec.File,
		rec.StartLine,
		rec.Verdict,
		rec.AdapterError,
		actualJSON,
	)
	if err != nil {
		return fmt.Errorf("write case %s: %w", rec.Code, err)
	}
	seq, err := res.LastInsertId()
	if err != nil {
		return fmt.Errorf("write case %s: %w", rec.Code, err)
	}

	for i, f := range rec.Failures {
		_, err := tx.ExecContext(ctx, `
			INSERT INTO case_failures
			(result_seq, ord, reason, expected_line, expected, actual_line, actual, detail)
			VALUES (?, ?, ?, ?, ?, ?, ?, ?)
		`, seq, i, f.Reason, f.ExpectedLine, f.Expected, f.ActualLine, f.Actual, f.Detail)
		if err != nil {
			return fmt.Errorf("write case %s: failure %d: %w", rec.Code, i, err)
		}
	}

	if err := tx.Commit(); err != nil {
		return fmt.Errorf("write case %s: commit: %w", rec.Code, err)
	}
	return nil
}

// WriteStructural records a fixture-level problem for the run.
func (s *Store) WriteStructural(ctx context.Context, runID, message string) error {
	_, err := s.db.ExecContext(ctx, `
		INSERT INTO structural_errors (run_id, message) VALUES (?, ?)
	`, runID, message)
	if err != nil {
		return fmt.Errorf("write structural error: %w", err)
	}
	return nil
}
