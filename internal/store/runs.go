package store

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"github.com/Piyawat-Pienmak/data-quality-reconciliation-pipeline/internal/model"
)

// ErrRunNotFound is returned when a run id has no ledger row.
var ErrRunNotFound = errors.New("run not found")

// RunTerminal carries the fields written by the single terminal update of
// a ledger row. Nil pointers stay NULL, which is how an ERROR finish
// records its pass/count fields as unknown.
type RunTerminal struct {
	Status                  model.RunStatus
	FinishedTS              time.Time
	TestsOK                 *bool
	ReconOK                 *bool
	MismatchCount           *int
	SuppressedMismatchCount *int
	FailingMetricCount      *int
	ErrorMessage            string
}

// InsertRun writes the RUNNING ledger row. This goes through the store's
// auto-commit connection, never through a unit of work, so the row
// survives a later rollback.
func (s *Store) InsertRun(ctx context.Context, run model.PipelineRun) error {
	_, err := s.db.ExecContext(ctx, `
		INSERT INTO pipeline_runs (run_id, data_dir, build_sha, started_ts, status)
		VALUES (?, ?, ?, ?, ?)
	`, run.RunID, run.DataDir, run.BuildSHA, formatTime(run.StartedTS), string(run.Status))
	if err != nil {
		return fmt.Errorf("insert pipeline run %s: %w", run.RunID, err)
	}
	return nil
}

// UpdateRunTerminal transitions a RUNNING row to a terminal status.
// Returns the number of rows updated: zero means the run was not RUNNING
// (already terminal, or unknown), and the caller must treat the
// transition as refused.
func (s *Store) UpdateRunTerminal(ctx context.Context, runID string, fin RunTerminal) (int64, error) {
	return updateRunTerminal(ctx, s.db, runID, fin)
}

// UpdateRunTerminal is the in-transaction variant used for SUCCESS/FAIL
// finishes inside the run's unit of work.
func (u *UnitOfWork) UpdateRunTerminal(ctx context.Context, runID string, fin RunTerminal) (int64, error) {
	return updateRunTerminal(ctx, u.tx, runID, fin)
}

func updateRunTerminal(ctx context.Context, q dbtx, runID string, fin RunTerminal) (int64, error) {
	res, err := q.ExecContext(ctx, `
		UPDATE pipeline_runs
		SET finished_ts = ?,
		    status = ?,
		    tests_ok = ?,
		    recon_ok = ?,
		    mismatch_count = ?,
		    suppressed_mismatch_count = ?,
		    failing_metric_count = ?,
		    error_message = ?
		WHERE run_id = ? AND status = ?
	`,
		formatTime(fin.FinishedTS),
		string(fin.Status),
		nullableBool(fin.TestsOK),
		nullableBool(fin.ReconOK),
		nullableInt(fin.MismatchCount),
		nullableInt(fin.SuppressedMismatchCount),
		nullableInt(fin.FailingMetricCount),
		nullableString(fin.ErrorMessage),
		runID,
		string(model.RunStatusRunning),
	)
	if err != nil {
		return 0, fmt.Errorf("finish pipeline run %s: %w", runID, err)
	}
	n, err := res.RowsAffected()
	if err != nil {
		return 0, fmt.Errorf("finish pipeline run %s: rows affected: %w", runID, err)
	}
	return n, nil
}

// RunByID returns one ledger row. Returns ErrRunNotFound for unknown ids.
func (s *Store) RunByID(ctx context.Context, runID string) (model.PipelineRun, error) {
	row := s.db.QueryRowContext(ctx, `
		SELECT run_id, data_dir, build_sha, started_ts, finished_ts, status,
		       tests_ok, recon_ok, mismatch_count, suppressed_mismatch_count,
		       failing_metric_count, error_message
		FROM pipeline_runs
		WHERE run_id = ?
	`, runID)

	run, err := scanRun(row)
	if errors.Is(err, sql.ErrNoRows) {
		return model.PipelineRun{}, fmt.Errorf("%w: %s", ErrRunNotFound, runID)
	}
	return run, err
}

// ListRuns returns ledger rows newest first. A limit of 0 means no limit.
func (s *Store) ListRuns(ctx context.Context, limit int) ([]model.PipelineRun, error) {
	query := `
		SELECT run_id, data_dir, build_sha, started_ts, finished_ts, status,
		       tests_ok, recon_ok, mismatch_count, suppressed_mismatch_count,
		       failing_metric_count, error_message
		FROM pipeline_runs
		ORDER BY started_ts DESC, run_id DESC
	`
	args := []any{}
	if limit > 0 {
		query += " LIMIT ?"
		args = append(args, limit)
	}

	rows, err := s.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("query pipeline runs: %w", err)
	}
	defer rows.Close()

	var out []model.PipelineRun
	for rows.Next() {
		run, err := scanRun(rows)
		if err != nil {
			return nil, err
		}
		out = append(out, run)
	}
	return out, rows.Err()
}

// scanner abstracts sql.Row and sql.Rows for scanRun.
type scanner interface {
	Scan(dest ...any) error
}

func scanRun(sc scanner) (model.PipelineRun, error) {
	var run model.PipelineRun
	var started string
	var finished, buildSHA, errMsg sql.NullString
	var status string
	var testsOK, reconOK sql.NullBool
	var mismatches, suppressed, failing sql.NullInt64

	err := sc.Scan(&run.RunID, &run.DataDir, &buildSHA, &started, &finished, &status,
		&testsOK, &reconOK, &mismatches, &suppressed, &failing, &errMsg)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return model.PipelineRun{}, err
		}
		return model.PipelineRun{}, fmt.Errorf("scan pipeline run: %w", err)
	}

	run.BuildSHA = buildSHA.String
	run.Status = model.RunStatus(status)
	run.ErrorMessage = errMsg.String
	if run.StartedTS, err = parseTime(started); err != nil {
		return model.PipelineRun{}, err
	}
	if finished.Valid {
		t, err := parseTime(finished.String)
		if err != nil {
			return model.PipelineRun{}, err
		}
		run.FinishedTS = &t
	}
	if testsOK.Valid {
		v := testsOK.Bool
		run.TestsOK = &v
	}
	if reconOK.Valid {
		v := reconOK.Bool
		run.ReconOK = &v
	}
	if mismatches.Valid {
		v := int(mismatches.Int64)
		run.MismatchCount = &v
	}
	if suppressed.Valid {
		v := int(suppressed.Int64)
		run.SuppressedMismatchCount = &v
	}
	if failing.Valid {
		v := int(failing.Int64)
		run.FailingMetricCount = &v
	}
	return run, nil
}

func nullableBool(b *bool) any {
	if b == nil {
		return nil
	}
	return boolToInt(*b)
}

func nullableInt(n *int) any {
	if n == nil {
		return nil
	}
	return *n
}

func nullableString(s string) any {
	if s == "" {
		return nil
	}
	return s
}
