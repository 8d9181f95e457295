package store

import (
	"context"
	"fmt"

	"github.com/Piyawat-Pienmak/data-quality-reconciliation-pipeline/internal/model"
)

// UpsertException records or refreshes an externally authored suppression.
// One exception per (mismatch_type, key); reloading a ticket replaces the
// previous expiry. Only the exceptions CLI calls this - the pipeline never
// writes here.
func (s *Store) UpsertException(ctx context.Context, e model.ExceptionRecord) error {
	_, err := s.db.ExecContext(ctx, `
		INSERT INTO recon_exceptions (mismatch_type, key, ticket_id, expires_ts)
		VALUES (?, ?, ?, ?)
		ON CONFLICT(mismatch_type, key) DO UPDATE SET
			ticket_id = excluded.ticket_id,
			expires_ts = excluded.expires_ts
	`, string(e.Kind), e.Key, e.TicketID, formatTime(e.Expires))
	if err != nil {
		return fmt.Errorf("upsert exception (%s, %s): %w", e.Kind, e.Key, err)
	}
	return nil
}

// Exceptions returns all exception records, expired ones included.
func (s *Store) Exceptions(ctx context.Context) ([]model.ExceptionRecord, error) {
	return exceptions(ctx, s.db)
}

// Exceptions is the in-transaction variant used by the reconciliation
// engine during a run.
func (u *UnitOfWork) Exceptions(ctx context.Context) ([]model.ExceptionRecord, error) {
	return exceptions(ctx, u.tx)
}

func exceptions(ctx context.Context, q dbtx) ([]model.ExceptionRecord, error) {
	rows, err := q.QueryContext(ctx, `
		SELECT mismatch_type, key, ticket_id, expires_ts
		FROM recon_exceptions
		ORDER BY mismatch_type, key
	`)
	if err != nil {
		return nil, fmt.Errorf("query exceptions: %w", err)
	}
	defer rows.Close()

	var out []model.ExceptionRecord
	for rows.Next() {
		var e model.ExceptionRecord
		var kind, expires string
		if err := rows.Scan(&kind, &e.Key, &e.TicketID, &expires); err != nil {
			return nil, fmt.Errorf("scan exception: %w", err)
		}
		e.Kind = model.MismatchKind(kind)
		if e.Expires, err = parseTime(expires); err != nil {
			return nil, err
		}
		out = append(out, e)
	}
	return out, rows.Err()
}
