package store

import (
	"context"
	"fmt"
)

// UnitOfWork wraps a single transaction covering one pipeline run's
// ingestion, normalization, quality, reconciliation, and mart work.
// Everything inside either commits together or rolls back together; the
// only write that deliberately lives outside it is the run-start ledger
// insert (see ledger.Start).
type UnitOfWork struct {
	tx   txLike
	done bool
}

// txLike is the transaction surface UnitOfWork needs. Satisfied by *sql.Tx.
type txLike interface {
	dbtx
	Commit() error
	Rollback() error
}

// Begin starts the unit of work for one run.
func (s *Store) Begin(ctx context.Context) (*UnitOfWork, error) {
	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return nil, fmt.Errorf("begin unit of work: %w", err)
	}
	return &UnitOfWork{tx: tx}, nil
}

// Commit commits the unit of work.
func (u *UnitOfWork) Commit() error {
	if u.done {
		return nil
	}
	u.done = true
	if err := u.tx.Commit(); err != nil {
		return fmt.Errorf("commit unit of work: %w", err)
	}
	return nil
}

// Rollback aborts the unit of work. Safe to call after Commit (no-op), so
// callers can `defer uow.Rollback()`.
func (u *UnitOfWork) Rollback() error {
	if u.done {
		return nil
	}
	u.done = true
	return u.tx.Rollback()
}
