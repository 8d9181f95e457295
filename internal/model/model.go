// Package model defines the domain types shared across the pipeline:
// normalized records, quality and reconciliation outputs, exception
// records, and the run ledger row.
//
// Monetary amounts are exact decimals (cockroachdb/apd); float64 is never
// used for money anywhere in this repository.
package model

import (
	"time"

	"github.com/cockroachdb/apd/v3"
)

// Order is a normalized order record from the staging snapshot.
// Snapshots are fully replaced each run, never merged.
type Order struct {
	OrderID    string
	CustomerID string
	OrderTS    time.Time
	Status     string
	Amount     *apd.Decimal
}

// Payment is a normalized payment record from the staging snapshot.
// OrderID is the counterpart reference into the orders dataset.
type Payment struct {
	PaymentID string
	OrderID   string
	PaidTS    time.Time
	Status    string
	Amount    *apd.Decimal
}

// TestResult is one quality assertion outcome for one run. Append-only:
// rows are never updated or deleted.
type TestResult struct {
	RunID   string
	Name    CheckKind
	Passed  bool
	Details string
	RunTS   time.Time
}

// RowMismatch is a row-level reconciliation finding. The suppression
// fields (Suppressed, TicketID, ExceptionExpiry) are the only fields ever
// mutated after insert, exactly once, by the suppression step of the same
// run that created the row.
type RowMismatch struct {
	ID              int64
	RunID           string
	Kind            MismatchKind
	Key             string
	Details         string
	Suppressed      bool
	TicketID        string
	ExceptionExpiry *time.Time
	RunTS           time.Time
}

// MetricComparison is one (day, metric) comparison between the two
// systems. DeltaPct is nil when the B-side denominator is zero (the
// relative delta is undefined). Append-only.
type MetricComparison struct {
	RunID    string
	Date     string // YYYY-MM-DD
	Metric   MetricKind
	SystemA  *apd.Decimal
	SystemB  *apd.Decimal
	Delta    *apd.Decimal
	DeltaPct *apd.Decimal
	Passed   bool
}

// ExceptionRecord is an externally authored, time-bounded suppression of
// a known mismatch. The engine only ever reads these.
type ExceptionRecord struct {
	Kind     MismatchKind
	Key      string
	TicketID string
	Expires  time.Time
}

// ActiveAt reports whether the exception still suppresses at instant t.
// Expiry is exclusive: an exception expiring exactly at t is no longer
// active.
func (e ExceptionRecord) ActiveAt(t time.Time) bool {
	return e.Expires.After(t)
}

// PipelineRun is the ledger row for one pipeline execution. The pointer
// fields are NULL until the run reaches a terminal status, and stay NULL
// forever on an ERROR finish.
type PipelineRun struct {
	RunID                   string
	DataDir                 string
	BuildSHA                string
	StartedTS               time.Time
	FinishedTS              *time.Time
	Status                  RunStatus
	TestsOK                 *bool
	ReconOK                 *bool
	MismatchCount           *int
	SuppressedMismatchCount *int
	FailingMetricCount      *int
	ErrorMessage            string
}

// DayKey truncates a timestamp to its UTC calendar day, the grouping key
// for daily metrics.
func DayKey(t time.Time) string {
	return t.UTC().Format("2006-01-02")
}
