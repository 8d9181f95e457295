// Package quality evaluates the fixed battery of data-quality assertions
// against the normalized staging snapshot.
//
// The battery is a closed enumeration (model.AllChecks), each kind backed
// by a pure evaluation function over the snapshot. Every check always
// runs - a failure never short-circuits the rest - and every check
// appends exactly one TestResult row. The aggregate gate passes iff all
// checks pass.
package quality

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"github.com/Piyawat-Pienmak/data-quality-reconciliation-pipeline/internal/model"
	"github.com/Piyawat-Pienmak/data-quality-reconciliation-pipeline/internal/store"
)

// checkFn is a pure assertion over the snapshot. It never mutates data.
type checkFn func(orders []model.Order, payments []model.Payment) (passed bool, details string)

// battery maps every CheckKind to its evaluation function. Kept in sync
// with model.AllChecks; Evaluate panics on a missing entry so an
// incomplete battery cannot ship.
var battery = map[model.CheckKind]checkFn{
	model.CheckOrderIDUnique:         checkOrderIDUnique,
	model.CheckOrderStatusAccepted:   checkOrderStatusAccepted,
	model.CheckPaymentStatusAccepted: checkPaymentStatusAccepted,
	model.CheckPaymentOrderIDPresent: checkPaymentOrderIDPresent,
}

// Evaluate runs every assertion against the snapshot, appending one
// TestResult per assertion, and returns whether all of them passed.
func Evaluate(ctx context.Context, uow *store.UnitOfWork, runID string, orders []model.Order, payments []model.Payment, now time.Time) (bool, error) {
	allPassed := true

	for _, kind := range model.AllChecks {
		fn, ok := battery[kind]
		if !ok {
			panic(fmt.Sprintf("quality: no evaluation function for check %s", kind))
		}

		passed, details := fn(orders, payments)
		allPassed = allPassed && passed

		err := uow.InsertTestResult(ctx, model.TestResult{
			RunID:   runID,
			Name:    kind,
			Passed:  passed,
			Details: details,
			RunTS:   now,
		})
		if err != nil {
			return false, err
		}

		slog.Debug("quality check", "check", kind, "passed", passed, "details", details)
	}

	slog.Info("quality gate evaluated", "run_id", runID, "passed", allPassed)
	return allPassed, nil
}

// checkOrderIDUnique: the order count equals the distinct order_id count.
func checkOrderIDUnique(orders []model.Order, _ []model.Payment) (bool, string) {
	seen := make(map[string]bool, len(orders))
	for _, o := range orders {
		seen[o.OrderID] = true
	}
	return len(orders) == len(seen), fmt.Sprintf("total=%d, distinct=%d", len(orders), len(seen))
}

// checkOrderStatusAccepted: every order status is in the accepted
// vocabulary.
func checkOrderStatusAccepted(orders []model.Order, _ []model.Payment) (bool, string) {
	bad := 0
	for _, o := range orders {
		if !model.AcceptedOrderStatuses[o.Status] {
			bad++
		}
	}
	return bad == 0, fmt.Sprintf("bad_rows=%d", bad)
}

// checkPaymentStatusAccepted: every payment status is in the accepted
// vocabulary.
func checkPaymentStatusAccepted(_ []model.Order, payments []model.Payment) (bool, string) {
	bad := 0
	for _, p := range payments {
		if !model.AcceptedPaymentStatuses[p.Status] {
			bad++
		}
	}
	return bad == 0, fmt.Sprintf("bad_rows=%d", bad)
}

// checkPaymentOrderIDPresent: no payment is missing its order reference.
func checkPaymentOrderIDPresent(_ []model.Order, payments []model.Payment) (bool, string) {
	bad := 0
	for _, p := range payments {
		if p.OrderID == "" {
			bad++
		}
	}
	return bad == 0, fmt.Sprintf("bad_rows=%d", bad)
}
