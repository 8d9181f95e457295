// Package testutil provides shared helpers for pipeline tests: a
// deterministic clock, a temp-file store, and snapshot builders.
package testutil

import (
	"path/filepath"
	"sync"
	"testing"
	"time"

	"github.com/Piyawat-Pienmak/data-quality-reconciliation-pipeline/internal/model"
	"github.com/Piyawat-Pienmak/data-quality-reconciliation-pipeline/internal/store"
)

// DeterministicClock is a settable clock for suppression-expiry and
// ledger-timestamp tests.
//
// Thread-safety: all methods are safe for concurrent use via internal
// mutex.
type DeterministicClock struct {
	mu  sync.Mutex
	now time.Time
}

// NewDeterministicClock creates a clock frozen at the given instant.
func NewDeterministicClock(now time.Time) *DeterministicClock {
	return &DeterministicClock{now: now}
}

// Now returns the current frozen instant.
func (c *DeterministicClock) Now() time.Time {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.now
}

// Set moves the clock to a new instant.
func (c *DeterministicClock) Set(now time.Time) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.now = now
}

// Advance moves the clock forward by d.
func (c *DeterministicClock) Advance(d time.Duration) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.now = c.now.Add(d)
}

// OpenStore opens a fresh store in the test's temp dir.
func OpenStore(t *testing.T) *store.Store {
	t.Helper()
	s, err := store.Open(filepath.Join(t.TempDir(), "test.db"))
	if err != nil {
		t.Fatalf("open store: %v", err)
	}
	t.Cleanup(func() { s.Close() })
	return s
}

// MustTime parses an RFC3339 literal.
func MustTime(t *testing.T, s string) time.Time {
	t.Helper()
	ts, err := time.Parse(time.RFC3339, s)
	if err != nil {
		t.Fatalf("parse time %q: %v", s, err)
	}
	return ts
}

// Order builds a normalized order for snapshot fixtures.
func Order(t *testing.T, id, status, ts, amount string) model.Order {
	t.Helper()
	return model.Order{
		OrderID:    id,
		CustomerID: "C-" + id,
		OrderTS:    MustTime(t, ts),
		Status:     status,
		Amount:     model.MustDecimal(amount),
	}
}

// Payment builds a normalized payment for snapshot fixtures.
func Payment(t *testing.T, id, orderID, status, ts, amount string) model.Payment {
	t.Helper()
	return model.Payment{
		PaymentID: id,
		OrderID:   orderID,
		PaidTS:    MustTime(t, ts),
		Status:    status,
		Amount:    model.MustDecimal(amount),
	}
}
