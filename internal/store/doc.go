// Package store provides SQLite-backed durable storage for the pipeline.
//
// Tables fall into four groups:
//   - Landing area: raw_orders, raw_payments - rows as received, all TEXT
//   - Staging snapshot: orders_clean, payments_clean - fully replaced per run
//   - Audit trail: test_results, row_mismatches, metric_comparisons,
//     recon_exceptions - scoped by run_id, append-mostly
//   - Ledger: pipeline_runs - one row per execution, the downstream gate
//
// # Transaction model
//
// All per-run work happens inside a single UnitOfWork (one *sql.Tx): a run
// either commits everything or rolls back everything. The two deliberate
// exceptions, both on the auto-commit connection:
//   - InsertRun: the RUNNING ledger row must survive a later rollback
//   - Store.UpdateRunTerminal: the best-effort ERROR finish after rollback
//
// # Invariants
//
//   - Every test_results / row_mismatches / metric_comparisons row belongs
//     to exactly one run_id and is never touched by another run.
//   - row_mismatches suppression columns are written at most once, by the
//     same run that inserted the row.
//   - pipeline_runs rows are never deleted; a terminal status is final
//     (UpdateRunTerminal guards on status = RUNNING).
//
// Monetary values are stored as canonical decimal text and computed with
// cockroachdb/apd; SQLite's float arithmetic is never used on amounts.
package store
