// Package recon cross-reconciles the two normalized datasets at row level
// and metric level, applies time-bounded suppression from externally
// curated exception records, and produces the pass/fail verdict plus a
// human-readable diagnostic summary.
//
// All reconciliation failures are captured as rows (row_mismatches,
// metric_comparisons), never as errors: a failed reconciliation is a
// normal, fully recorded outcome. Errors from this package mean the store
// itself misbehaved.
package recon

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"github.com/cockroachdb/apd/v3"

	"github.com/Piyawat-Pienmak/data-quality-reconciliation-pipeline/internal/model"
	"github.com/Piyawat-Pienmak/data-quality-reconciliation-pipeline/internal/store"
)

// SampleLimit bounds the active-mismatch sample carried in the diagnostic
// summary. Full detail stays queryable in the audit tables.
const SampleLimit = 20

// Engine reconciles one run's staging snapshot.
type Engine struct {
	clock func() time.Time
}

// Option configures an Engine.
type Option func(*Engine)

// WithClock overrides the evaluation clock. Suppression expiry is judged
// against this clock; tests use it to move time across exception expiry.
func WithClock(clock func() time.Time) Option {
	return func(e *Engine) {
		e.clock = clock
	}
}

// New creates a reconciliation engine.
func New(opts ...Option) *Engine {
	e := &Engine{clock: time.Now}
	for _, opt := range opts {
		opt(e)
	}
	return e
}

// Result is the reconciliation verdict plus the diagnostic detail the
// orchestrator reports. Suppressed mismatches never affect Passed; only
// active ones gate.
type Result struct {
	Passed               bool
	ActiveMismatches     int
	SuppressedMismatches int
	FailingMetrics       []string
	MismatchSample       []model.RowMismatch
}

// Reconcile runs row-level reconciliation, suppression, and metric-level
// reconciliation for one run, persisting every finding. tolerancePct is a
// decimal fraction (0.01 = 1%); zero demands exact equality.
func (e *Engine) Reconcile(ctx context.Context, uow *store.UnitOfWork, runID string, orders []model.Order, payments []model.Payment, tolerancePct *apd.Decimal) (Result, error) {
	now := e.clock().UTC()

	inserted, err := e.flagRowMismatches(ctx, uow, runID, orders, payments, now)
	if err != nil {
		return Result{}, err
	}

	if err := e.applySuppression(ctx, uow, inserted, now); err != nil {
		return Result{}, err
	}

	metricsPassed, failing, err := e.reconcileMetrics(ctx, uow, runID, orders, payments, tolerancePct, now)
	if err != nil {
		return Result{}, err
	}

	active, suppressed, err := uow.MismatchCounts(ctx, runID)
	if err != nil {
		return Result{}, err
	}
	sample, err := uow.ActiveMismatchSample(ctx, runID, SampleLimit)
	if err != nil {
		return Result{}, err
	}

	res := Result{
		Passed:               metricsPassed && active == 0,
		ActiveMismatches:     active,
		SuppressedMismatches: suppressed,
		FailingMetrics:       failing,
		MismatchSample:       sample,
	}

	slog.Info("reconciliation evaluated",
		"run_id", runID,
		"passed", res.Passed,
		"active_mismatches", active,
		"suppressed_mismatches", suppressed,
		"failing_metrics", len(failing))
	return res, nil
}

// insertedMismatch pairs a fresh mismatch row id with its suppression
// lookup key.
type insertedMismatch struct {
	id   int64
	kind model.MismatchKind
	key  string
}

// flagRowMismatches performs the anti-join: every PAID payment whose
// order reference has no matching order becomes a mismatch row.
func (e *Engine) flagRowMismatches(ctx context.Context, uow *store.UnitOfWork, runID string, orders []model.Order, payments []model.Payment, now time.Time) ([]insertedMismatch, error) {
	orderIDs := make(map[string]bool, len(orders))
	for _, o := range orders {
		orderIDs[o.OrderID] = true
	}

	var inserted []insertedMismatch
	for _, p := range payments {
		if p.Status != model.PaymentStatusPaid || orderIDs[p.OrderID] {
			continue
		}

		id, err := uow.InsertRowMismatch(ctx, model.RowMismatch{
			RunID:   runID,
			Kind:    model.MismatchPaymentOrderMissing,
			Key:     p.PaymentID,
			Details: fmt.Sprintf("order_id=%s, amount=%s", p.OrderID, model.FormatDecimal(p.Amount)),
			RunTS:   now,
		})
		if err != nil {
			return nil, err
		}
		inserted = append(inserted, insertedMismatch{
			id:   id,
			kind: model.MismatchPaymentOrderMissing,
			key:  p.PaymentID,
		})
	}
	return inserted, nil
}

// applySuppression marks this run's fresh mismatches suppressed where a
// still-valid exception matches on (type, key). Suppression is re-derived
// every run: it never carries over from a previous run, and an expired
// exception makes the mismatch active again with no source-data change.
func (e *Engine) applySuppression(ctx context.Context, uow *store.UnitOfWork, inserted []insertedMismatch, now time.Time) error {
	if len(inserted) == 0 {
		return nil
	}

	exceptions, err := uow.Exceptions(ctx)
	if err != nil {
		return err
	}

	type exKey struct {
		kind model.MismatchKind
		key  string
	}
	byKey := make(map[exKey]model.ExceptionRecord, len(exceptions))
	for _, ex := range exceptions {
		byKey[exKey{ex.Kind, ex.Key}] = ex
	}

	for _, m := range inserted {
		ex, ok := byKey[exKey{m.kind, m.key}]
		if !ok || !ex.ActiveAt(now) {
			continue
		}
		if err := uow.MarkMismatchSuppressed(ctx, m.id, ex); err != nil {
			return err
		}
		slog.Debug("mismatch suppressed", "key", m.key, "ticket", ex.TicketID, "expires", ex.Expires)
	}
	return nil
}
