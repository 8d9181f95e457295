package store

import (
	"context"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/Piyawat-Pienmak/data-quality-reconciliation-pipeline/internal/model"
)

func TestOpen_CreatesNewDatabase(t *testing.T) {
	path := filepath.Join(t.TempDir(), "test.db")

	s, err := Open(path)
	if err != nil {
		t.Fatalf("Open() failed: %v", err)
	}
	defer s.Close()

	if _, err := os.Stat(path); os.IsNotExist(err) {
		t.Error("database file was not created")
	}
}

func TestOpen_Idempotent(t *testing.T) {
	path := filepath.Join(t.TempDir(), "test.db")

	for i := 0; i < 3; i++ {
		s, err := Open(path)
		if err != nil {
			t.Fatalf("Open() iteration %d failed: %v", i, err)
		}
		s.Close()
	}
}

func TestOpen_AppliesPragmas(t *testing.T) {
	s, err := Open(filepath.Join(t.TempDir(), "test.db"))
	if err != nil {
		t.Fatalf("Open() failed: %v", err)
	}
	defer s.Close()

	if err := s.verifyPragma("journal_mode", "wal"); err != nil {
		t.Error(err)
	}
	if err := s.verifyPragma("foreign_keys", "1"); err != nil {
		t.Error(err)
	}
}

func TestOpen_SchemaHasAllTables(t *testing.T) {
	s, err := Open(filepath.Join(t.TempDir(), "test.db"))
	if err != nil {
		t.Fatalf("Open() failed: %v", err)
	}
	defer s.Close()

	tables := []string{
		"raw_orders", "raw_payments",
		"orders_clean", "payments_clean",
		"test_results", "row_mismatches", "metric_comparisons",
		"recon_exceptions", "pipeline_runs", "fact_revenue_daily",
	}
	for _, table := range tables {
		var count int
		err := s.db.QueryRow(
			"SELECT COUNT(*) FROM sqlite_master WHERE type = 'table' AND name = ?", table,
		).Scan(&count)
		if err != nil {
			t.Fatalf("query sqlite_master: %v", err)
		}
		if count != 1 {
			t.Errorf("table %s missing from schema", table)
		}
	}
}

func TestInsertRun_SurvivesRollback(t *testing.T) {
	s, err := Open(filepath.Join(t.TempDir(), "test.db"))
	if err != nil {
		t.Fatalf("Open() failed: %v", err)
	}
	defer s.Close()

	ctx := context.Background()
	run := model.PipelineRun{
		RunID:     "run-1",
		DataDir:   "data",
		StartedTS: time.Now(),
		Status:    model.RunStatusRunning,
	}
	if err := s.InsertRun(ctx, run); err != nil {
		t.Fatalf("InsertRun() failed: %v", err)
	}

	// Abort a unit of work that wrote staging data; the ledger row must
	// remain.
	uow, err := s.Begin(ctx)
	if err != nil {
		t.Fatalf("Begin() failed: %v", err)
	}
	if err := uow.InsertRawOrders(ctx, []RawOrder{{OrderID: "O1"}}); err != nil {
		t.Fatalf("InsertRawOrders() failed: %v", err)
	}
	if err := uow.Rollback(); err != nil {
		t.Fatalf("Rollback() failed: %v", err)
	}

	got, err := s.RunByID(ctx, "run-1")
	if err != nil {
		t.Fatalf("RunByID() failed: %v", err)
	}
	if got.Status != model.RunStatusRunning {
		t.Errorf("status = %s, want RUNNING", got.Status)
	}

	var rawCount int
	if err := s.db.QueryRow("SELECT COUNT(*) FROM raw_orders").Scan(&rawCount); err != nil {
		t.Fatalf("count raw_orders: %v", err)
	}
	if rawCount != 0 {
		t.Errorf("raw_orders has %d rows after rollback, want 0", rawCount)
	}
}

func TestUpdateRunTerminal_OnlyOnce(t *testing.T) {
	s, err := Open(filepath.Join(t.TempDir(), "test.db"))
	if err != nil {
		t.Fatalf("Open() failed: %v", err)
	}
	defer s.Close()

	ctx := context.Background()
	if err := s.InsertRun(ctx, model.PipelineRun{
		RunID: "run-1", DataDir: "data", StartedTS: time.Now(), Status: model.RunStatusRunning,
	}); err != nil {
		t.Fatalf("InsertRun() failed: %v", err)
	}

	ok := true
	fin := RunTerminal{Status: model.RunStatusSuccess, FinishedTS: time.Now(), TestsOK: &ok, ReconOK: &ok}

	n, err := s.UpdateRunTerminal(ctx, "run-1", fin)
	if err != nil {
		t.Fatalf("first UpdateRunTerminal() failed: %v", err)
	}
	if n != 1 {
		t.Fatalf("first terminal update affected %d rows, want 1", n)
	}

	// Terminal status is final: a second transition must be refused.
	fin.Status = model.RunStatusFail
	n, err = s.UpdateRunTerminal(ctx, "run-1", fin)
	if err != nil {
		t.Fatalf("second UpdateRunTerminal() failed: %v", err)
	}
	if n != 0 {
		t.Errorf("second terminal update affected %d rows, want 0", n)
	}

	got, err := s.RunByID(ctx, "run-1")
	if err != nil {
		t.Fatalf("RunByID() failed: %v", err)
	}
	if got.Status != model.RunStatusSuccess {
		t.Errorf("status = %s, want SUCCESS to stick", got.Status)
	}
}

func TestMismatchCounts_PartitionActiveSuppressed(t *testing.T) {
	s, err := Open(filepath.Join(t.TempDir(), "test.db"))
	if err != nil {
		t.Fatalf("Open() failed: %v", err)
	}
	defer s.Close()

	ctx := context.Background()
	uow, err := s.Begin(ctx)
	if err != nil {
		t.Fatalf("Begin() failed: %v", err)
	}
	defer uow.Rollback()

	now := time.Now()
	var ids []int64
	for _, key := range []string{"P1", "P2", "P3"} {
		id, err := uow.InsertRowMismatch(ctx, model.RowMismatch{
			RunID: "run-1", Kind: model.MismatchPaymentOrderMissing, Key: key, RunTS: now,
		})
		if err != nil {
			t.Fatalf("InsertRowMismatch() failed: %v", err)
		}
		ids = append(ids, id)
	}

	err = uow.MarkMismatchSuppressed(ctx, ids[1], model.ExceptionRecord{
		Kind: model.MismatchPaymentOrderMissing, Key: "P2", TicketID: "DATA-1", Expires: now.Add(time.Hour),
	})
	if err != nil {
		t.Fatalf("MarkMismatchSuppressed() failed: %v", err)
	}

	active, suppressed, err := uow.MismatchCounts(ctx, "run-1")
	if err != nil {
		t.Fatalf("MismatchCounts() failed: %v", err)
	}
	if active != 2 || suppressed != 1 {
		t.Errorf("counts = (%d, %d), want (2, 1)", active, suppressed)
	}

	// Counts for a different run id must not see these rows.
	active, suppressed, err = uow.MismatchCounts(ctx, "run-2")
	if err != nil {
		t.Fatalf("MismatchCounts() failed: %v", err)
	}
	if active != 0 || suppressed != 0 {
		t.Errorf("foreign run counts = (%d, %d), want (0, 0)", active, suppressed)
	}
}

func TestUpsertException_ReplacesExpiry(t *testing.T) {
	s, err := Open(filepath.Join(t.TempDir(), "test.db"))
	if err != nil {
		t.Fatalf("Open() failed: %v", err)
	}
	defer s.Close()

	ctx := context.Background()
	first := time.Date(2026, 1, 1, 0, 0, 0, 0, time.UTC)
	second := time.Date(2026, 6, 1, 0, 0, 0, 0, time.UTC)

	for _, expires := range []time.Time{first, second} {
		err := s.UpsertException(ctx, model.ExceptionRecord{
			Kind: model.MismatchPaymentOrderMissing, Key: "P9", TicketID: "DATA-9", Expires: expires,
		})
		if err != nil {
			t.Fatalf("UpsertException() failed: %v", err)
		}
	}

	records, err := s.Exceptions(ctx)
	if err != nil {
		t.Fatalf("Exceptions() failed: %v", err)
	}
	if len(records) != 1 {
		t.Fatalf("got %d exception rows, want 1", len(records))
	}
	if !records[0].Expires.Equal(second) {
		t.Errorf("expires = %v, want %v", records[0].Expires, second)
	}
}

func TestStagingRoundTrip(t *testing.T) {
	s, err := Open(filepath.Join(t.TempDir(), "test.db"))
	if err != nil {
		t.Fatalf("Open() failed: %v", err)
	}
	defer s.Close()

	ctx := context.Background()
	uow, err := s.Begin(ctx)
	if err != nil {
		t.Fatalf("Begin() failed: %v", err)
	}
	defer uow.Rollback()

	ts := time.Date(2026, 3, 1, 12, 30, 0, 0, time.UTC)
	in := []model.Order{{
		OrderID: "O1", CustomerID: "C1", OrderTS: ts,
		Status: model.OrderStatusPaid, Amount: model.MustDecimal("100.00"),
	}}
	if err := uow.InsertCleanOrders(ctx, in); err != nil {
		t.Fatalf("InsertCleanOrders() failed: %v", err)
	}

	out, err := uow.CleanOrders(ctx)
	if err != nil {
		t.Fatalf("CleanOrders() failed: %v", err)
	}
	if len(out) != 1 {
		t.Fatalf("got %d orders, want 1", len(out))
	}
	if !out[0].OrderTS.Equal(ts) {
		t.Errorf("order_ts = %v, want %v", out[0].OrderTS, ts)
	}
	if out[0].Amount.Cmp(in[0].Amount) != 0 {
		t.Errorf("amount = %s, want %s", out[0].Amount, in[0].Amount)
	}
}
