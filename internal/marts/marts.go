// Package marts materializes downstream aggregates from validated
// staging data. Pure consumer: it runs inside the run's unit of work, so
// a failed run never publishes a mart.
package marts

import (
	"context"
	"log/slog"
	"sort"

	"github.com/cockroachdb/apd/v3"

	"github.com/Piyawat-Pienmak/data-quality-reconciliation-pipeline/internal/model"
	"github.com/Piyawat-Pienmak/data-quality-reconciliation-pipeline/internal/store"
)

// Rebuild truncates and reloads fact_revenue_daily from PAID payments in
// the current staging snapshot.
func Rebuild(ctx context.Context, uow *store.UnitOfWork) error {
	payments, err := uow.CleanPayments(ctx)
	if err != nil {
		return err
	}

	type daily struct {
		amount *apd.Decimal
		count  int
	}
	totals := make(map[string]daily)
	for _, p := range payments {
		if p.Status != model.PaymentStatusPaid {
			continue
		}
		day := model.DayKey(p.PaidTS)
		t, ok := totals[day]
		if !ok {
			t = daily{amount: model.ZeroDecimal()}
		}
		sum := new(apd.Decimal)
		if _, err := model.DecimalContext().Add(sum, t.amount, p.Amount); err != nil {
			return err
		}
		t.amount = sum
		t.count++
		totals[day] = t
	}

	if err := uow.TruncateRevenueDaily(ctx); err != nil {
		return err
	}

	days := make([]string, 0, len(totals))
	for day := range totals {
		days = append(days, day)
	}
	sort.Strings(days)

	for _, day := range days {
		t := totals[day]
		if err := uow.InsertRevenueDaily(ctx, day, t.amount, t.count); err != nil {
			return err
		}
	}

	slog.Info("mart rebuilt", "table", "fact_revenue_daily", "days", len(days))
	return nil
}
