// Package ledger maintains the pipeline_runs audit trail: the single
// source of truth for whether a run's outputs may be trusted downstream.
//
// Lifecycle: Start inserts a RUNNING row on the store's auto-commit
// connection - durably, before any other pipeline work - so that even a
// run that dies mid-flight leaves a trace. Finish performs the one and
// only terminal transition; a second Finish for the same run returns
// ErrNotRunning. Ledger rows are never deleted.
package ledger

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/Piyawat-Pienmak/data-quality-reconciliation-pipeline/internal/model"
	"github.com/Piyawat-Pienmak/data-quality-reconciliation-pipeline/internal/store"
)

// ErrNotRunning is returned by Finish when the run has no RUNNING row:
// either the id is unknown or the run already reached a terminal status.
var ErrNotRunning = errors.New("run is not in RUNNING state")

// TerminalWriter is where a terminal transition lands: the run's unit of
// work for SUCCESS/FAIL, or the store's auto-commit connection for the
// best-effort ERROR write after a rollback.
type TerminalWriter interface {
	UpdateRunTerminal(ctx context.Context, runID string, fin store.RunTerminal) (int64, error)
}

// Start durably records the RUNNING row for a new run. Must be called,
// and committed, before any other pipeline work begins.
func Start(ctx context.Context, s *store.Store, runID, dataDir, buildSHA string, now time.Time) error {
	err := s.InsertRun(ctx, model.PipelineRun{
		RunID:     runID,
		DataDir:   dataDir,
		BuildSHA:  buildSHA,
		StartedTS: now.UTC(),
		Status:    model.RunStatusRunning,
	})
	if err != nil {
		return err
	}
	slog.Info("run started", "run_id", runID, "data_dir", dataDir)
	return nil
}

// Finish transitions a RUNNING run to a terminal status, exactly once.
func Finish(ctx context.Context, w TerminalWriter, runID string, fin store.RunTerminal) error {
	if !fin.Status.Terminal() {
		return fmt.Errorf("finish run %s: %q is not a terminal status", runID, fin.Status)
	}

	n, err := w.UpdateRunTerminal(ctx, runID, fin)
	if err != nil {
		return err
	}
	if n == 0 {
		return fmt.Errorf("finish run %s: %w", runID, ErrNotRunning)
	}

	slog.Info("run finished", "run_id", runID, "status", fin.Status)
	return nil
}
