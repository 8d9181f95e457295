// Package pipeline sequences one end-to-end run: ingestion,
// normalization, quality gate, reconciliation, mart rebuild, and the
// ledger's terminal transition - all inside a single unit of work.
//
// Outcomes follow the taxonomy in three branches:
//   - SUCCESS / FAIL: the run completed every stage; both gates' verdicts
//     are recorded and the error return is nil. A failed gate is data,
//     not an error.
//   - ERROR: a stage hit an operational fault. The unit of work rolls
//     back (the RUNNING ledger row, committed eagerly, survives), an
//     ERROR finish is attempted best-effort, and the fault propagates.
package pipeline

import (
	"context"
	"log/slog"
	"time"

	"github.com/cockroachdb/apd/v3"
	"github.com/google/uuid"

	"github.com/Piyawat-Pienmak/data-quality-reconciliation-pipeline/internal/ingest"
	"github.com/Piyawat-Pienmak/data-quality-reconciliation-pipeline/internal/ledger"
	"github.com/Piyawat-Pienmak/data-quality-reconciliation-pipeline/internal/marts"
	"github.com/Piyawat-Pienmak/data-quality-reconciliation-pipeline/internal/model"
	"github.com/Piyawat-Pienmak/data-quality-reconciliation-pipeline/internal/quality"
	"github.com/Piyawat-Pienmak/data-quality-reconciliation-pipeline/internal/recon"
	"github.com/Piyawat-Pienmak/data-quality-reconciliation-pipeline/internal/store"
	"github.com/Piyawat-Pienmak/data-quality-reconciliation-pipeline/internal/transform"
)

// Params configures one pipeline run.
type Params struct {
	// RunID overrides the generated run id. Tests use this; production
	// leaves it empty for a fresh UUID.
	RunID string

	// Source yields orders.csv and payments.csv.
	Source ingest.Source

	// DataDir is the source descriptor recorded in the ledger.
	DataDir string

	// BuildSHA is optional build provenance for the ledger.
	BuildSHA string

	// TolerancePct is the relative amount tolerance as a decimal
	// fraction. Nil means zero: exact match required.
	TolerancePct *apd.Decimal

	// Clock overrides time for tests. Nil means time.Now.
	Clock func() time.Time
}

// Outcome is the typed result of a completed or aborted run.
type Outcome struct {
	RunID                string
	Status               model.RunStatus
	QualityPassed        bool
	ReconPassed          bool
	ActiveMismatches     int
	SuppressedMismatches int
	FailingMetrics       int
	Summary              string
}

// Run executes one pipeline run against the store. The returned error is
// non-nil only for operational faults (Outcome.Status == ERROR); a run
// that completes with a failed gate returns (Outcome{Status: FAIL}, nil).
func Run(ctx context.Context, s *store.Store, p Params) (Outcome, error) {
	runID := p.RunID
	if runID == "" {
		runID = uuid.NewString()
	}
	clock := p.Clock
	if clock == nil {
		clock = time.Now
	}
	tolerance := p.TolerancePct
	if tolerance == nil {
		tolerance = model.ZeroDecimal()
	}

	// The RUNNING row commits before anything else so a later abort still
	// leaves an auditable trace.
	if err := ledger.Start(ctx, s, runID, p.DataDir, p.BuildSHA, clock()); err != nil {
		return Outcome{RunID: runID, Status: model.RunStatusError}, err
	}

	outcome, err := execute(ctx, s, runID, p.Source, tolerance, clock)
	if err != nil {
		// Best-effort ERROR finish. Its own failure is swallowed so it can
		// never mask the fault being reported; the row is then simply left
		// RUNNING forever - an operationally visible stuck-run signal.
		finErr := ledger.Finish(ctx, s, runID, store.RunTerminal{
			Status:       model.RunStatusError,
			FinishedTS:   clock().UTC(),
			ErrorMessage: err.Error(),
		})
		if finErr != nil {
			slog.Error("failed to record ERROR status", "run_id", runID, "error", finErr)
		}
		return Outcome{RunID: runID, Status: model.RunStatusError}, err
	}

	return outcome, nil
}

// execute runs every stage inside one unit of work and finishes the
// ledger with the computed terminal status before committing.
func execute(ctx context.Context, s *store.Store, runID string, src ingest.Source, tolerance *apd.Decimal, clock func() time.Time) (Outcome, error) {
	uow, err := s.Begin(ctx)
	if err != nil {
		return Outcome{}, err
	}
	defer uow.Rollback()

	if err := ingest.LoadRaw(ctx, uow, src); err != nil {
		return Outcome{}, err
	}
	if err := transform.Run(ctx, uow); err != nil {
		return Outcome{}, err
	}

	orders, err := uow.CleanOrders(ctx)
	if err != nil {
		return Outcome{}, err
	}
	payments, err := uow.CleanPayments(ctx)
	if err != nil {
		return Outcome{}, err
	}

	qualityPassed, err := quality.Evaluate(ctx, uow, runID, orders, payments, clock().UTC())
	if err != nil {
		return Outcome{}, err
	}

	engine := recon.New(recon.WithClock(clock))
	res, err := engine.Reconcile(ctx, uow, runID, orders, payments, tolerance)
	if err != nil {
		return Outcome{}, err
	}

	if err := marts.Rebuild(ctx, uow); err != nil {
		return Outcome{}, err
	}

	failingMetrics, err := uow.FailingMetricCount(ctx, runID)
	if err != nil {
		return Outcome{}, err
	}

	status := model.RunStatusFail
	if qualityPassed && res.Passed {
		status = model.RunStatusSuccess
	}

	err = ledger.Finish(ctx, uow, runID, store.RunTerminal{
		Status:                  status,
		FinishedTS:              clock().UTC(),
		TestsOK:                 &qualityPassed,
		ReconOK:                 &res.Passed,
		MismatchCount:           &res.ActiveMismatches,
		SuppressedMismatchCount: &res.SuppressedMismatches,
		FailingMetricCount:      &failingMetrics,
	})
	if err != nil {
		return Outcome{}, err
	}

	if err := uow.Commit(); err != nil {
		return Outcome{}, err
	}

	return Outcome{
		RunID:                runID,
		Status:               status,
		QualityPassed:        qualityPassed,
		ReconPassed:          res.Passed,
		ActiveMismatches:     res.ActiveMismatches,
		SuppressedMismatches: res.SuppressedMismatches,
		FailingMetrics:       failingMetrics,
		Summary:              res.Summary(),
	}, nil
}
