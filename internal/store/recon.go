package store

import (
	"context"
	"database/sql"
	"fmt"

	"github.com/Piyawat-Pienmak/data-quality-reconciliation-pipeline/internal/model"
)

// InsertRowMismatch appends a row-level mismatch and returns its id.
// Mismatches are created unsuppressed; suppression is applied separately
// by MarkMismatchSuppressed within the same run.
func (u *UnitOfWork) InsertRowMismatch(ctx context.Context, m model.RowMismatch) (int64, error) {
	res, err := u.tx.ExecContext(ctx, `
		INSERT INTO row_mismatches (run_id, mismatch_type, key, details, suppressed, run_ts)
		VALUES (?, ?, ?, ?, 0, ?)
	`, m.RunID, string(m.Kind), m.Key, m.Details, formatTime(m.RunTS))
	if err != nil {
		return 0, fmt.Errorf("insert row mismatch: %w", err)
	}
	id, err := res.LastInsertId()
	if err != nil {
		return 0, fmt.Errorf("insert row mismatch: last insert id: %w", err)
	}
	return id, nil
}

// MarkMismatchSuppressed records that the mismatch is covered by a valid
// exception. The one and only post-insert mutation a mismatch row sees.
func (u *UnitOfWork) MarkMismatchSuppressed(ctx context.Context, id int64, exc model.ExceptionRecord) error {
	_, err := u.tx.ExecContext(ctx, `
		UPDATE row_mismatches
		SET suppressed = 1, ticket_id = ?, exception_expiry = ?
		WHERE id = ?
	`, exc.TicketID, formatTime(exc.Expires), id)
	if err != nil {
		return fmt.Errorf("mark mismatch %d suppressed: %w", id, err)
	}
	return nil
}

// MismatchCounts returns the active and suppressed mismatch counts for a
// run, computed strictly from that run's rows.
func (u *UnitOfWork) MismatchCounts(ctx context.Context, runID string) (active, suppressed int, err error) {
	err = u.tx.QueryRowContext(ctx, `
		SELECT
			COALESCE(SUM(CASE WHEN suppressed = 0 THEN 1 ELSE 0 END), 0),
			COALESCE(SUM(CASE WHEN suppressed = 1 THEN 1 ELSE 0 END), 0)
		FROM row_mismatches
		WHERE run_id = ?
	`, runID).Scan(&active, &suppressed)
	if err != nil {
		return 0, 0, fmt.Errorf("count mismatches: %w", err)
	}
	return active, suppressed, nil
}

// MismatchesForRun returns a run's mismatches ordered by id. A limit of 0
// means no limit.
func (s *Store) MismatchesForRun(ctx context.Context, runID string, limit int) ([]model.RowMismatch, error) {
	return mismatchesForRun(ctx, s.db, runID, limit)
}

// MismatchesForRun is the in-transaction variant.
func (u *UnitOfWork) MismatchesForRun(ctx context.Context, runID string, limit int) ([]model.RowMismatch, error) {
	return mismatchesForRun(ctx, u.tx, runID, limit)
}

func mismatchesForRun(ctx context.Context, q dbtx, runID string, limit int) ([]model.RowMismatch, error) {
	query := `
		SELECT id, run_id, mismatch_type, key, details, suppressed, ticket_id, exception_expiry, run_ts
		FROM row_mismatches
		WHERE run_id = ?
		ORDER BY id
	`
	args := []any{runID}
	if limit > 0 {
		query += " LIMIT ?"
		args = append(args, limit)
	}

	rows, err := q.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("query row mismatches: %w", err)
	}
	defer rows.Close()

	var out []model.RowMismatch
	for rows.Next() {
		var m model.RowMismatch
		var kind, ts string
		var suppressed int
		var ticket, expiry sql.NullString
		if err := rows.Scan(&m.ID, &m.RunID, &kind, &m.Key, &m.Details, &suppressed, &ticket, &expiry, &ts); err != nil {
			return nil, fmt.Errorf("scan row mismatch: %w", err)
		}
		m.Kind = model.MismatchKind(kind)
		m.Suppressed = suppressed != 0
		m.TicketID = ticket.String
		if expiry.Valid {
			t, err := parseTime(expiry.String)
			if err != nil {
				return nil, err
			}
			m.ExceptionExpiry = &t
		}
		if m.RunTS, err = parseTime(ts); err != nil {
			return nil, err
		}
		out = append(out, m)
	}
	return out, rows.Err()
}

// ActiveMismatchSample returns up to limit unsuppressed mismatches for the
// diagnostic summary.
func (u *UnitOfWork) ActiveMismatchSample(ctx context.Context, runID string, limit int) ([]model.RowMismatch, error) {
	rows, err := u.tx.QueryContext(ctx, `
		SELECT id, run_id, mismatch_type, key, details, run_ts
		FROM row_mismatches
		WHERE run_id = ? AND suppressed = 0
		ORDER BY id
		LIMIT ?
	`, runID, limit)
	if err != nil {
		return nil, fmt.Errorf("query mismatch sample: %w", err)
	}
	defer rows.Close()

	var out []model.RowMismatch
	for rows.Next() {
		var m model.RowMismatch
		var kind, ts string
		if err := rows.Scan(&m.ID, &m.RunID, &kind, &m.Key, &m.Details, &ts); err != nil {
			return nil, fmt.Errorf("scan mismatch sample: %w", err)
		}
		m.Kind = model.MismatchKind(kind)
		if m.RunTS, err = parseTime(ts); err != nil {
			return nil, err
		}
		out = append(out, m)
	}
	return out, rows.Err()
}

// InsertMetricComparison appends one (day, metric) comparison row.
// Every comparison is persisted regardless of pass/fail.
func (u *UnitOfWork) InsertMetricComparison(ctx context.Context, c model.MetricComparison, runTS string) error {
	var deltaPct any
	if c.DeltaPct != nil {
		deltaPct = model.FormatDecimal(c.DeltaPct)
	}
	_, err := u.tx.ExecContext(ctx, `
		INSERT INTO metric_comparisons
			(run_id, metric_date, metric_name, system_a_value, system_b_value, delta, delta_pct, passed, run_ts)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?)
	`,
		c.RunID,
		c.Date,
		string(c.Metric),
		model.FormatDecimal(c.SystemA),
		model.FormatDecimal(c.SystemB),
		model.FormatDecimal(c.Delta),
		deltaPct,
		boolToInt(c.Passed),
		runTS,
	)
	if err != nil {
		return fmt.Errorf("insert metric comparison %s %s: %w", c.Metric, c.Date, err)
	}
	return nil
}

// FailingMetricCount returns how many metric comparisons failed for a run.
func (u *UnitOfWork) FailingMetricCount(ctx context.Context, runID string) (int, error) {
	var n int
	err := u.tx.QueryRowContext(ctx, `
		SELECT COUNT(*) FROM metric_comparisons WHERE run_id = ? AND passed = 0
	`, runID).Scan(&n)
	if err != nil {
		return 0, fmt.Errorf("count failing metrics: %w", err)
	}
	return n, nil
}

// MetricsForRun returns a run's metric comparisons ordered by date then
// metric name.
func (s *Store) MetricsForRun(ctx context.Context, runID string) ([]model.MetricComparison, error) {
	return metricsForRun(ctx, s.db, runID)
}

// MetricsForRun is the in-transaction variant.
func (u *UnitOfWork) MetricsForRun(ctx context.Context, runID string) ([]model.MetricComparison, error) {
	return metricsForRun(ctx, u.tx, runID)
}

func metricsForRun(ctx context.Context, q dbtx, runID string) ([]model.MetricComparison, error) {
	rows, err := q.QueryContext(ctx, `
		SELECT run_id, metric_date, metric_name, system_a_value, system_b_value, delta, delta_pct, passed
		FROM metric_comparisons
		WHERE run_id = ?
		ORDER BY metric_date, metric_name
	`, runID)
	if err != nil {
		return nil, fmt.Errorf("query metric comparisons: %w", err)
	}
	defer rows.Close()

	var out []model.MetricComparison
	for rows.Next() {
		var c model.MetricComparison
		var metric, a, b, delta string
		var deltaPct sql.NullString
		var passed int
		if err := rows.Scan(&c.RunID, &c.Date, &metric, &a, &b, &delta, &deltaPct, &passed); err != nil {
			return nil, fmt.Errorf("scan metric comparison: %w", err)
		}
		c.Metric = model.MetricKind(metric)
		c.Passed = passed != 0
		if c.SystemA, err = model.ParseDecimal(a); err != nil {
			return nil, err
		}
		if c.SystemB, err = model.ParseDecimal(b); err != nil {
			return nil, err
		}
		if c.Delta, err = model.ParseDecimal(delta); err != nil {
			return nil, err
		}
		if deltaPct.Valid {
			if c.DeltaPct, err = model.ParseDecimal(deltaPct.String); err != nil {
				return nil, err
			}
		}
		out = append(out, c)
	}
	return out, rows.Err()
}
