// Package transform normalizes the raw landing area into the staging
// snapshot: typed timestamps, canonical decimal amounts, uppercased
// statuses, and order deduplication.
//
// Normalization is forgiving about shape (blank ids are dropped, blank
// amounts default to zero - the raw reality of exported CSVs) but strict
// about types: an unparseable timestamp or amount aborts the run as an
// operational error rather than leaking garbage into the quality gate.
package transform

import (
	"context"
	"fmt"
	"log/slog"
	"sort"
	"strings"
	"time"

	"github.com/cockroachdb/apd/v3"

	"github.com/Piyawat-Pienmak/data-quality-reconciliation-pipeline/internal/model"
	"github.com/Piyawat-Pienmak/data-quality-reconciliation-pipeline/internal/store"
)

// Run replaces the staging snapshot with the normalized form of the
// current landing area. Runs inside the caller's unit of work.
func Run(ctx context.Context, uow *store.UnitOfWork) error {
	rawOrders, err := uow.RawOrders(ctx)
	if err != nil {
		return err
	}
	orders, err := NormalizeOrders(rawOrders)
	if err != nil {
		return err
	}

	rawPayments, err := uow.RawPayments(ctx)
	if err != nil {
		return err
	}
	payments, err := NormalizePayments(rawPayments)
	if err != nil {
		return err
	}

	if err := uow.TruncateStaging(ctx); err != nil {
		return err
	}
	if err := uow.InsertCleanOrders(ctx, orders); err != nil {
		return err
	}
	if err := uow.InsertCleanPayments(ctx, payments); err != nil {
		return err
	}

	slog.Info("staging snapshot replaced",
		"orders_raw", len(rawOrders), "orders_clean", len(orders),
		"payments_raw", len(rawPayments), "payments_clean", len(payments))
	return nil
}

// NormalizeOrders cleans raw order rows: blank order_ids are dropped,
// duplicates are resolved keeping the latest order_ts (later input wins
// ties), statuses are uppercased, blank amounts become zero.
func NormalizeOrders(raw []store.RawOrder) ([]model.Order, error) {
	latest := make(map[string]model.Order, len(raw))
	for _, r := range raw {
		id := strings.TrimSpace(r.OrderID)
		if id == "" {
			continue
		}

		ts, err := parseSourceTime(r.OrderTS)
		if err != nil {
			return nil, fmt.Errorf("order %s: %w", id, err)
		}
		amount, err := parseAmount(r.Amount)
		if err != nil {
			return nil, fmt.Errorf("order %s: %w", id, err)
		}

		o := model.Order{
			OrderID:    id,
			CustomerID: strings.TrimSpace(r.CustomerID),
			OrderTS:    ts,
			Status:     normalizeStatus(r.Status),
			Amount:     amount,
		}
		if prev, ok := latest[id]; !ok || !o.OrderTS.Before(prev.OrderTS) {
			latest[id] = o
		}
	}

	orders := make([]model.Order, 0, len(latest))
	for _, o := range latest {
		orders = append(orders, o)
	}
	sort.Slice(orders, func(i, j int) bool { return orders[i].OrderID < orders[j].OrderID })
	return orders, nil
}

// NormalizePayments cleans raw payment rows: blank payment_ids are
// dropped, statuses are uppercased, blank amounts become zero. A blank
// order reference is kept as-is - catching it is the quality gate's job.
func NormalizePayments(raw []store.RawPayment) ([]model.Payment, error) {
	payments := make([]model.Payment, 0, len(raw))
	for _, r := range raw {
		id := strings.TrimSpace(r.PaymentID)
		if id == "" {
			continue
		}

		ts, err := parseSourceTime(r.PaidTS)
		if err != nil {
			return nil, fmt.Errorf("payment %s: %w", id, err)
		}
		amount, err := parseAmount(r.Amount)
		if err != nil {
			return nil, fmt.Errorf("payment %s: %w", id, err)
		}

		payments = append(payments, model.Payment{
			PaymentID: id,
			OrderID:   strings.TrimSpace(r.OrderID),
			PaidTS:    ts,
			Status:    normalizeStatus(r.Status),
			Amount:    amount,
		})
	}
	return payments, nil
}

func normalizeStatus(s string) string {
	return strings.ToUpper(strings.TrimSpace(s))
}

func parseAmount(s string) (*apd.Decimal, error) {
	if strings.TrimSpace(s) == "" {
		return model.ZeroDecimal(), nil
	}
	return model.ParseDecimal(s)
}

// sourceTimeFormats are the timestamp shapes seen in source exports.
var sourceTimeFormats = []string{
	time.RFC3339Nano,
	time.RFC3339,
	"2006-01-02 15:04:05",
	"2006-01-02",
}

func parseSourceTime(s string) (time.Time, error) {
	s = strings.TrimSpace(s)
	for _, layout := range sourceTimeFormats {
		if t, err := time.Parse(layout, s); err == nil {
			return t.UTC(), nil
		}
	}
	return time.Time{}, fmt.Errorf("unrecognized timestamp %q", s)
}
