package store

import (
	"context"
	"fmt"

	"github.com/Piyawat-Pienmak/data-quality-reconciliation-pipeline/internal/model"
)

// InsertTestResult appends one quality assertion outcome. Rows are never
// updated or deleted afterwards.
func (u *UnitOfWork) InsertTestResult(ctx context.Context, r model.TestResult) error {
	_, err := u.tx.ExecContext(ctx, `
		INSERT INTO test_results (run_id, test_name, passed, details, run_ts)
		VALUES (?, ?, ?, ?, ?)
	`, r.RunID, string(r.Name), boolToInt(r.Passed), r.Details, formatTime(r.RunTS))
	if err != nil {
		return fmt.Errorf("insert test result %s: %w", r.Name, err)
	}
	return nil
}

// TestResultsForRun returns the assertion outcomes for a run in insertion
// order.
func (s *Store) TestResultsForRun(ctx context.Context, runID string) ([]model.TestResult, error) {
	return testResultsForRun(ctx, s.db, runID)
}

// TestResultsForRun is the in-transaction variant.
func (u *UnitOfWork) TestResultsForRun(ctx context.Context, runID string) ([]model.TestResult, error) {
	return testResultsForRun(ctx, u.tx, runID)
}

func testResultsForRun(ctx context.Context, q dbtx, runID string) ([]model.TestResult, error) {
	rows, err := q.QueryContext(ctx, `
		SELECT run_id, test_name, passed, details, run_ts
		FROM test_results
		WHERE run_id = ?
		ORDER BY rowid
	`, runID)
	if err != nil {
		return nil, fmt.Errorf("query test results: %w", err)
	}
	defer rows.Close()

	var out []model.TestResult
	for rows.Next() {
		var r model.TestResult
		var name, ts string
		var passed int
		if err := rows.Scan(&r.RunID, &name, &passed, &r.Details, &ts); err != nil {
			return nil, fmt.Errorf("scan test result: %w", err)
		}
		r.Name = model.CheckKind(name)
		r.Passed = passed != 0
		if r.RunTS, err = parseTime(ts); err != nil {
			return nil, err
		}
		out = append(out, r)
	}
	return out, rows.Err()
}

func boolToInt(b bool) int {
	if b {
		return 1
	}
	return 0
}
