package store

import (
	"context"
	"fmt"

	"github.com/cockroachdb/apd/v3"

	"github.com/Piyawat-Pienmak/data-quality-reconciliation-pipeline/internal/model"
)

// TruncateRevenueDaily clears the mart ahead of a rebuild.
func (u *UnitOfWork) TruncateRevenueDaily(ctx context.Context) error {
	if _, err := u.tx.ExecContext(ctx, "DELETE FROM fact_revenue_daily"); err != nil {
		return fmt.Errorf("truncate fact_revenue_daily: %w", err)
	}
	return nil
}

// InsertRevenueDaily writes one mart row.
func (u *UnitOfWork) InsertRevenueDaily(ctx context.Context, day string, amount *apd.Decimal, count int) error {
	_, err := u.tx.ExecContext(ctx, `
		INSERT INTO fact_revenue_daily (day, paid_amount, paid_count)
		VALUES (?, ?, ?)
	`, day, model.FormatDecimal(amount), count)
	if err != nil {
		return fmt.Errorf("insert fact_revenue_daily %s: %w", day, err)
	}
	return nil
}

// RevenueDaily returns the mart rows ordered by day.
func (s *Store) RevenueDaily(ctx context.Context) (days []string, amounts []*apd.Decimal, counts []int, err error) {
	rows, err := s.db.QueryContext(ctx, `
		SELECT day, paid_amount, paid_count
		FROM fact_revenue_daily
		ORDER BY day
	`)
	if err != nil {
		return nil, nil, nil, fmt.Errorf("query fact_revenue_daily: %w", err)
	}
	defer rows.Close()

	for rows.Next() {
		var day, amount string
		var count int
		if err := rows.Scan(&day, &amount, &count); err != nil {
			return nil, nil, nil, fmt.Errorf("scan fact_revenue_daily: %w", err)
		}
		d, err := model.ParseDecimal(amount)
		if err != nil {
			return nil, nil, nil, err
		}
		days = append(days, day)
		amounts = append(amounts, d)
		counts = append(counts, count)
	}
	return days, amounts, counts, rows.Err()
}
