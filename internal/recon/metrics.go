package recon

import (
	"context"
	"fmt"
	"sort"
	"time"

	"github.com/cockroachdb/apd/v3"

	"github.com/Piyawat-Pienmak/data-quality-reconciliation-pipeline/internal/model"
	"github.com/Piyawat-Pienmak/data-quality-reconciliation-pipeline/internal/store"
)

// dayTotals is one side's daily PAID aggregate.
type dayTotals struct {
	amount *apd.Decimal
	count  int64
}

// reconcileMetrics aggregates both datasets into daily PAID metrics and
// compares them day by day. A day present on only one side compares
// against an implicit zero on the other. Every (day, metric) comparison
// is persisted regardless of outcome.
func (e *Engine) reconcileMetrics(ctx context.Context, uow *store.UnitOfWork, runID string, orders []model.Order, payments []model.Payment, tolerancePct *apd.Decimal, now time.Time) (allPassed bool, failing []string, err error) {
	// System A: payments by paid date. System B: orders by placed date.
	sideA, err := aggregatePayments(payments)
	if err != nil {
		return false, nil, err
	}
	sideB, err := aggregateOrders(orders)
	if err != nil {
		return false, nil, err
	}

	allPassed = true
	runTS := now.UTC().Format(time.RFC3339Nano)

	for _, day := range unionDays(sideA, sideB) {
		a := totalsOrZero(sideA, day)
		b := totalsOrZero(sideB, day)

		amountCmp, err := CompareAmount(runID, day, a.amount, b.amount, tolerancePct)
		if err != nil {
			return false, nil, err
		}
		if err := uow.InsertMetricComparison(ctx, amountCmp, runTS); err != nil {
			return false, nil, err
		}
		if !amountCmp.Passed {
			allPassed = false
			failing = append(failing, describeFailure(amountCmp))
		}

		countCmp := CompareCount(runID, day, a.count, b.count)
		if err := uow.InsertMetricComparison(ctx, countCmp, runTS); err != nil {
			return false, nil, err
		}
		if !countCmp.Passed {
			allPassed = false
			failing = append(failing, describeFailure(countCmp))
		}
	}

	return allPassed, failing, nil
}

// CompareAmount builds the daily amount comparison under a relative
// tolerance. delta = A - B; delta_pct = (A - B) / B when B is nonzero.
// When B is zero the relative delta is undefined (stored NULL): the pair
// passes iff A is zero too - a nonzero A against an absent B is always a
// failure, whatever the tolerance.
func CompareAmount(runID, day string, a, b, tolerancePct *apd.Decimal) (model.MetricComparison, error) {
	decCtx := model.DecimalContext()

	delta := new(apd.Decimal)
	if _, err := decCtx.Sub(delta, a, b); err != nil {
		return model.MetricComparison{}, fmt.Errorf("amount delta %s: %w", day, err)
	}

	cmp := model.MetricComparison{
		RunID:   runID,
		Date:    day,
		Metric:  model.MetricPaidAmountDaily,
		SystemA: a,
		SystemB: b,
		Delta:   delta,
	}

	if b.IsZero() {
		cmp.Passed = a.IsZero()
		return cmp, nil
	}

	deltaPct := new(apd.Decimal)
	if _, err := decCtx.Quo(deltaPct, delta, b); err != nil {
		return model.MetricComparison{}, fmt.Errorf("amount delta_pct %s: %w", day, err)
	}
	cmp.DeltaPct = deltaPct

	absPct := new(apd.Decimal).Abs(deltaPct)
	cmp.Passed = absPct.Cmp(tolerancePct) <= 0
	return cmp, nil
}

// CompareCount builds the daily count comparison. Exact match only; the
// tolerance never applies and delta_pct is always NULL.
func CompareCount(runID, day string, a, b int64) model.MetricComparison {
	return model.MetricComparison{
		RunID:   runID,
		Date:    day,
		Metric:  model.MetricPaidCountDaily,
		SystemA: apd.New(a, 0),
		SystemB: apd.New(b, 0),
		Delta:   apd.New(a-b, 0),
		Passed:  a == b,
	}
}

func aggregatePayments(payments []model.Payment) (map[string]dayTotals, error) {
	totals := make(map[string]dayTotals)
	for _, p := range payments {
		if p.Status != model.PaymentStatusPaid {
			continue
		}
		if err := addToDay(totals, model.DayKey(p.PaidTS), p.Amount); err != nil {
			return nil, err
		}
	}
	return totals, nil
}

func aggregateOrders(orders []model.Order) (map[string]dayTotals, error) {
	totals := make(map[string]dayTotals)
	for _, o := range orders {
		if o.Status != model.OrderStatusPaid {
			continue
		}
		if err := addToDay(totals, model.DayKey(o.OrderTS), o.Amount); err != nil {
			return nil, err
		}
	}
	return totals, nil
}

func addToDay(totals map[string]dayTotals, day string, amount *apd.Decimal) error {
	t, ok := totals[day]
	if !ok {
		t = dayTotals{amount: model.ZeroDecimal()}
	}
	sum := new(apd.Decimal)
	if _, err := model.DecimalContext().Add(sum, t.amount, amount); err != nil {
		return fmt.Errorf("sum amounts for %s: %w", day, err)
	}
	t.amount = sum
	t.count++
	totals[day] = t
	return nil
}

func unionDays(a, b map[string]dayTotals) []string {
	seen := make(map[string]bool, len(a)+len(b))
	for day := range a {
		seen[day] = true
	}
	for day := range b {
		seen[day] = true
	}
	days := make([]string, 0, len(seen))
	for day := range seen {
		days = append(days, day)
	}
	sort.Strings(days)
	return days
}

func totalsOrZero(totals map[string]dayTotals, day string) dayTotals {
	if t, ok := totals[day]; ok {
		return t
	}
	return dayTotals{amount: model.ZeroDecimal()}
}

func describeFailure(c model.MetricComparison) string {
	deltaPct := "n/a"
	if c.DeltaPct != nil {
		deltaPct = model.FormatDecimal(c.DeltaPct)
	}
	return fmt.Sprintf("%s %s: payments=%s orders=%s delta=%s delta_pct=%s",
		c.Metric, c.Date,
		model.FormatDecimal(c.SystemA), model.FormatDecimal(c.SystemB),
		model.FormatDecimal(c.Delta), deltaPct)
}
