package store

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
)

// VerdictCount is the number of cases with one status and verdict.
type VerdictCount struct {
	Status  string
	Verdict string
	Count   int
}

// Counts returns result counts grouped by status and verdict, ordered by
// status then verdict.
func (s *Store) Counts(ctx context.Context, runID string) ([]VerdictCount, error) {
	rows, err := s.db.QueryContext(ctx, `
		SELECT status, verdict, COUNT(*)
		FROM case_results
		WHERE run_id = ?
		GROUP BY status, verdict
		ORDER BY status COLLATE BINARY ASC, verdict COLLATE BINARY ASC
	`, runID)
	if err != nil {
		return nil, fmt.Errorf("query counts: %w", err)
	}
	defer rows.Close()

	counts := []VerdictCount{}
	for rows.Next() {
		var c VerdictCount
		if err := rows.Scan(&c.Status, &c.Verdict, &c.Count); err != nil {
			return nil, fmt.Errorf("scan count: %w", err)
		}
		counts = append(counts, c)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate counts: %w", err)
	}
	return counts, nil
}

// ReadUnpassed returns every case that did not pass, ordered by category
// code, with failures in match order. Actual diagnostics are not loaded.
//
// Returns an empty slice (not nil) if every case passed.
func (s *Store) ReadUnpassed(ctx context.Context, runID string) ([]CaseRecord, error) {
	rows, err := s.db.QueryContext(ctx, `
		SELECT seq, case_id, code, title, status, tentative, file, start_line, verdict, adapter_error
		FROM case_results
		WHERE run_id = ? AND verdict != 'pass'
		ORDER BY code COLLATE BINARY ASC
	`, runID)
	if err != nil {
		return nil, fmt.Errorf("query unpassed cases: %w", err)
	}

	var seqs []int64
	records := []CaseRecord{}
	for rows.Next() {
		var seq int64
		rec := CaseRecord{RunID: runID}
		err := rows.Scan(&seq, &rec.CaseID, &rec.Code, &rec.Title, &rec.Status, &rec.Tentative,
			&rec.File, &rec.StartLine, &rec.Verdict, &rec.AdapterError)
		if err != nil {
			rows.Close()
			return nil, fmt.Errorf("scan case: %w", err)
		}
		seqs = append(seqs, seq)
		records = append(records, rec)
	}
	if err := rows.Err(); err != nil {
		rows.Close()
		return nil, fmt.Errorf("iterate cases: %w", err)
	}
	// The single pooled connection must be free before the next query.
	rows.Close()

	for i, seq := range seqs {
		failures, err := s.readFailures(ctx, seq)
		if err != nil {
			return nil, err
		}
		records[i].Failures = failures
	}
	return records, nil
}

func (s *Store) readFailures(ctx context.Context, seq int64) ([]FailureRecord, error) {
	rows, err := s.db.QueryContext(ctx, `
		SELECT reason, expected_line, expected, actual_line, actual, detail
		FROM case_failures
		WHERE result_seq = ?
		ORDER BY ord ASC
	`, seq)
	if err != nil {
		return nil, fmt.Errorf("query failures: %w", err)
	}
	defer rows.Close()

	var failures []FailureRecord
	for rows.Next() {
		var f FailureRecord
		if err := rows.Scan(&f.Reason, &f.ExpectedLine, &f.Expected, &f.ActualLine, &f.Actual, &f.Detail); err != nil {
			return nil, fmt.Errorf("scan failure: %w", err)
		}
		failures = append(failures, f)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate failures: %w", err)
	}
	return failures, nil
}

// ReadStructural returns the run's structural errors in recording order.
func (s *Store) ReadStructural(ctx context.Context, runID string) ([]string, error) {
	rows, err := s.db.QueryContext(ctx, `
		SELECT message FROM structural_errors WHERE run_id = ? ORDER BY seq ASC
	`, runID)
	if err != nil {
		return nil, fmt.Errorf("query structural errors: %w", err)
	}
	defer rows.Close()

	messages := []string{}
	for rows.Next() {
		var m string
		if err := rows.Scan(&m); err != nil {
			return nil, fmt.Errorf("scan structural error: %w", err)
		}
		messages = append(messages, m)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate structural errors: %w", err)
	}
	return messages, nil
}

// ReadActual returns the stored analyzer output of one case as canonical JSON.
func (s *Store) ReadActual(ctx context.Context, runID, code string) (string, error) {
	var actual string
	err := s.db.QueryRowContext(ctx, `
		SELECT actual FROM case_results WHERE run_id = ? AND code = ?
	`, runID, code).Scan(&actual)
	if errors.Is(err, sql.ErrNoRows) {
		return "", fmt.Errorf("no result for case %s in run %s", code, runID)
	}
	if err != nil {
		return "", fmt.Errorf("read actual: %w", err)
	}
	return actual, nil
}
