package api

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/Piyawat-Pienmak/data-quality-reconciliation-pipeline/internal/model"
	"github.com/Piyawat-Pienmak/data-quality-reconciliation-pipeline/internal/store"
	"github.com/Piyawat-Pienmak/data-quality-reconciliation-pipeline/internal/testutil"
)

// seedRun inserts a finished run with one test result, one mismatch, and
// one metric comparison.
func seedRun(t *testing.T, s *store.Store, runID string) {
	t.Helper()
	ctx := context.Background()
	now := testutil.MustTime(t, "2026-03-01T08:00:00Z")

	require.NoError(t, s.InsertRun(ctx, model.PipelineRun{
		RunID: runID, DataDir: "data", StartedTS: now, Status: model.RunStatusRunning,
	}))

	uow, err := s.Begin(ctx)
	require.NoError(t, err)

	require.NoError(t, uow.InsertTestResult(ctx, model.TestResult{
		RunID: runID, Name: model.CheckOrderIDUnique, Passed: true,
		Details: "total=2, distinct=2", RunTS: now,
	}))
	_, err = uow.InsertRowMismatch(ctx, model.RowMismatch{
		RunID: runID, Kind: model.MismatchPaymentOrderMissing, Key: "P3",
		Details: "order_id=O9, amount=25.00", RunTS: now,
	})
	require.NoError(t, err)
	require.NoError(t, uow.InsertMetricComparison(ctx, model.MetricComparison{
		RunID: runID, Date: "2026-03-01", Metric: model.MetricPaidCountDaily,
		SystemA: model.MustDecimal("2"), SystemB: model.MustDecimal("1"),
		Delta: model.MustDecimal("1"), Passed: false,
	}, now.Format(time.RFC3339Nano)))

	ok, bad := true, false
	_, err = uow.UpdateRunTerminal(ctx, runID, store.RunTerminal{
		Status: model.RunStatusFail, FinishedTS: now.Add(time.Minute),
		TestsOK: &ok, ReconOK: &bad,
	})
	require.NoError(t, err)
	require.NoError(t, uow.Commit())
}

func doGET(t *testing.T, h http.Handler, path string) *httptest.ResponseRecorder {
	t.Helper()
	rec := httptest.NewRecorder()
	h.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, path, nil))
	return rec
}

func TestHealthz(t *testing.T) {
	s := testutil.OpenStore(t)
	rec := doGET(t, NewServer(s).Router(), "/healthz")

	assert.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, "application/json", rec.Header().Get("Content-Type"))
}

func TestListRuns(t *testing.T) {
	s := testutil.OpenStore(t)
	seedRun(t, s, "run-1")

	rec := doGET(t, NewServer(s).Router(), "/api/runs")
	require.Equal(t, http.StatusOK, rec.Code)

	var runs []runJSON
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &runs))
	require.Len(t, runs, 1)
	assert.Equal(t, "run-1", runs[0].RunID)
	assert.Equal(t, "FAIL", runs[0].Status)
	require.NotNil(t, runs[0].TestsOK)
	assert.True(t, *runs[0].TestsOK)
	require.NotNil(t, runs[0].ReconOK)
	assert.False(t, *runs[0].ReconOK)
}

func TestGetRun_NotFound(t *testing.T) {
	s := testutil.OpenStore(t)
	rec := doGET(t, NewServer(s).Router(), "/api/runs/no-such-run")
	assert.Equal(t, http.StatusNotFound, rec.Code)
}

func TestRunResults(t *testing.T) {
	s := testutil.OpenStore(t)
	seedRun(t, s, "run-1")

	rec := doGET(t, NewServer(s).Router(), "/api/runs/run-1/results")
	require.Equal(t, http.StatusOK, rec.Code)

	var results []testResultJSON
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &results))
	require.Len(t, results, 1)
	assert.Equal(t, "orders_clean_order_id_unique", results[0].Name)
	assert.True(t, results[0].Passed)
	assert.Equal(t, "total=2, distinct=2", results[0].Details)
}

func TestRunMismatches(t *testing.T) {
	s := testutil.OpenStore(t)
	seedRun(t, s, "run-1")

	rec := doGET(t, NewServer(s).Router(), "/api/runs/run-1/mismatches")
	require.Equal(t, http.StatusOK, rec.Code)

	var mismatches []mismatchJSON
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &mismatches))
	require.Len(t, mismatches, 1)
	assert.Equal(t, "payment_order_missing", mismatches[0].Type)
	assert.Equal(t, "P3", mismatches[0].Key)
	assert.False(t, mismatches[0].Suppressed)
}

func TestRunMetrics(t *testing.T) {
	s := testutil.OpenStore(t)
	seedRun(t, s, "run-1")

	rec := doGET(t, NewServer(s).Router(), "/api/runs/run-1/metrics")
	require.Equal(t, http.StatusOK, rec.Code)

	var metrics []metricJSON
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &metrics))
	require.Len(t, metrics, 1)
	assert.Equal(t, "paid_count_daily", metrics[0].Metric)
	assert.Equal(t, "2", metrics[0].SystemA)
	assert.Equal(t, "1", metrics[0].SystemB)
	assert.Nil(t, metrics[0].DeltaPct, "undefined relative delta serializes as null")
	assert.False(t, metrics[0].Passed)
}

func TestEmptyCollectionsAreArrays(t *testing.T) {
	s := testutil.OpenStore(t)
	seedRun(t, s, "run-1")

	rec := doGET(t, NewServer(s).Router(), "/api/runs/run-1/metrics")
	require.Equal(t, http.StatusOK, rec.Code)

	rec = doGET(t, NewServer(s).Router(), "/api/runs/run-2/mismatches")
	require.Equal(t, http.StatusOK, rec.Code)
	assert.JSONEq(t, "[]", rec.Body.String(), "empty collections encode as [], not null")
}
