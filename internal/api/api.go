// Package api exposes the audit trail over HTTP for operators and
// downstream systems deciding whether to trust the marts. Read-only by
// construction: there are no mutation endpoints.
package api

import (
	"encoding/json"
	"errors"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"

	"github.com/Piyawat-Pienmak/data-quality-reconciliation-pipeline/internal/model"
	"github.com/Piyawat-Pienmak/data-quality-reconciliation-pipeline/internal/store"
)

// Server serves the read-only audit API.
type Server struct {
	store *store.Store
}

// NewServer creates an audit API server over the store.
func NewServer(s *store.Store) *Server {
	return &Server{store: s}
}

// Router builds the HTTP routes.
func (s *Server) Router() http.Handler {
	r := chi.NewRouter()
	r.Use(middleware.RequestID)
	r.Use(middleware.Recoverer)

	r.Get("/healthz", s.handleHealth)
	r.Route("/api", func(r chi.Router) {
		r.Get("/runs", s.handleListRuns)
		r.Route("/runs/{runID}", func(r chi.Router) {
			r.Get("/", s.handleGetRun)
			r.Get("/results", s.handleRunResults)
			r.Get("/mismatches", s.handleRunMismatches)
			r.Get("/metrics", s.handleRunMetrics)
		})
	})

	return r
}

func (s *Server) handleHealth(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, map[string]string{"status": "ok"})
}

func (s *Server) handleListRuns(w http.ResponseWriter, r *http.Request) {
	runs, err := s.store.ListRuns(r.Context(), 100)
	if err != nil {
		writeError(w, http.StatusInternalServerError, err)
		return
	}

	out := make([]runJSON, 0, len(runs))
	for _, run := range runs {
		out = append(out, toRunJSON(run))
	}
	writeJSON(w, http.StatusOK, out)
}

func (s *Server) handleGetRun(w http.ResponseWriter, r *http.Request) {
	run, err := s.store.RunByID(r.Context(), chi.URLParam(r, "runID"))
	if err != nil {
		if errors.Is(err, store.ErrRunNotFound) {
			writeError(w, http.StatusNotFound, err)
			return
		}
		writeError(w, http.StatusInternalServerError, err)
		return
	}
	writeJSON(w, http.StatusOK, toRunJSON(run))
}

func (s *Server) handleRunResults(w http.ResponseWriter, r *http.Request) {
	results, err := s.store.TestResultsForRun(r.Context(), chi.URLParam(r, "runID"))
	if err != nil {
		writeError(w, http.StatusInternalServerError, err)
		return
	}

	out := make([]testResultJSON, 0, len(results))
	for _, res := range results {
		out = append(out, testResultJSON{
			RunID:   res.RunID,
			Name:    string(res.Name),
			Passed:  res.Passed,
			Details: res.Details,
			RunTS:   res.RunTS.Format(time.RFC3339Nano),
		})
	}
	writeJSON(w, http.StatusOK, out)
}

func (s *Server) handleRunMismatches(w http.ResponseWriter, r *http.Request) {
	mismatches, err := s.store.MismatchesForRun(r.Context(), chi.URLParam(r, "runID"), 0)
	if err != nil {
		writeError(w, http.StatusInternalServerError, err)
		return
	}

	out := make([]mismatchJSON, 0, len(mismatches))
	for _, m := range mismatches {
		mj := mismatchJSON{
			RunID:      m.RunID,
			Type:       string(m.Kind),
			Key:        m.Key,
			Details:    m.Details,
			Suppressed: m.Suppressed,
			TicketID:   m.TicketID,
		}
		if m.ExceptionExpiry != nil {
			mj.ExceptionExpiry = m.ExceptionExpiry.Format(time.RFC3339Nano)
		}
		out = append(out, mj)
	}
	writeJSON(w, http.StatusOK, out)
}

func (s *Server) handleRunMetrics(w http.ResponseWriter, r *http.Request) {
	metrics, err := s.store.MetricsForRun(r.Context(), chi.URLParam(r, "runID"))
	if err != nil {
		writeError(w, http.StatusInternalServerError, err)
		return
	}

	out := make([]metricJSON, 0, len(metrics))
	for _, c := range metrics {
		mj := metricJSON{
			RunID:   c.RunID,
			Date:    c.Date,
			Metric:  string(c.Metric),
			SystemA: model.FormatDecimal(c.SystemA),
			SystemB: model.FormatDecimal(c.SystemB),
			Delta:   model.FormatDecimal(c.Delta),
			Passed:  c.Passed,
		}
		if c.DeltaPct != nil {
			v := model.FormatDecimal(c.DeltaPct)
			mj.DeltaPct = &v
		}
		out = append(out, mj)
	}
	writeJSON(w, http.StatusOK, out)
}

type runJSON struct {
	RunID                   string  `json:"run_id"`
	DataDir                 string  `json:"data_dir"`
	BuildSHA                string  `json:"build_sha,omitempty"`
	StartedTS               string  `json:"started_ts"`
	FinishedTS              *string `json:"finished_ts,omitempty"`
	Status                  string  `json:"status"`
	TestsOK                 *bool   `json:"tests_ok,omitempty"`
	ReconOK                 *bool   `json:"recon_ok,omitempty"`
	MismatchCount           *int    `json:"mismatch_count,omitempty"`
	SuppressedMismatchCount *int    `json:"suppressed_mismatch_count,omitempty"`
	FailingMetricCount      *int    `json:"failing_metric_count,omitempty"`
	ErrorMessage            string  `json:"error_message,omitempty"`
}

type testResultJSON struct {
	RunID   string `json:"run_id"`
	Name    string `json:"test_name"`
	Passed  bool   `json:"passed"`
	Details string `json:"details"`
	RunTS   string `json:"run_ts"`
}

type mismatchJSON struct {
	RunID           string `json:"run_id"`
	Type            string `json:"mismatch_type"`
	Key             string `json:"key"`
	Details         string `json:"details"`
	Suppressed      bool   `json:"suppressed"`
	TicketID        string `json:"ticket_id,omitempty"`
	ExceptionExpiry string `json:"exception_expiry,omitempty"`
}

type metricJSON struct {
	RunID    string  `json:"run_id"`
	Date     string  `json:"metric_date"`
	Metric   string  `json:"metric_name"`
	SystemA  string  `json:"system_a_value"`
	SystemB  string  `json:"system_b_value"`
	Delta    string  `json:"delta"`
	DeltaPct *string `json:"delta_pct"`
	Passed   bool    `json:"passed"`
}

func toRunJSON(run model.PipelineRun) runJSON {
	rj := runJSON{
		RunID:                   run.RunID,
		DataDir:                 run.DataDir,
		BuildSHA:                run.BuildSHA,
		StartedTS:               run.StartedTS.Format(time.RFC3339Nano),
		Status:                  string(run.Status),
		TestsOK:                 run.TestsOK,
		ReconOK:                 run.ReconOK,
		MismatchCount:           run.MismatchCount,
		SuppressedMismatchCount: run.SuppressedMismatchCount,
		FailingMetricCount:      run.FailingMetricCount,
		ErrorMessage:            run.ErrorMessage,
	}
	if run.FinishedTS != nil {
		v := run.FinishedTS.Format(time.RFC3339Nano)
		rj.FinishedTS = &v
	}
	return rj
}

func writeJSON(w http.ResponseWriter, status int, v interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}

func writeError(w http.ResponseWriter, status int, err error) {
	writeJSON(w, status, map[string]string{"error": err.Error()})
}
