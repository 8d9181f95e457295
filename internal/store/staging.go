package store

import (
	"context"
	"fmt"
	"time"

	"github.com/Piyawat-Pienmak/data-quality-reconciliation-pipeline/internal/model"
)

// RawOrder is an order row exactly as received, all columns untyped text.
type RawOrder struct {
	OrderID    string
	CustomerID string
	OrderTS    string
	Status     string
	Amount     string
}

// RawPayment is a payment row exactly as received.
type RawPayment struct {
	PaymentID string
	OrderID   string
	PaidTS    string
	Status    string
	Amount    string
}

// timeFormat is the storage form for all timestamps.
const timeFormat = time.RFC3339Nano

func formatTime(t time.Time) string {
	return t.UTC().Format(timeFormat)
}

func parseTime(s string) (time.Time, error) {
	t, err := time.Parse(timeFormat, s)
	if err != nil {
		return time.Time{}, fmt.Errorf("parse timestamp %q: %w", s, err)
	}
	return t, nil
}

// TruncateRaw clears the landing area ahead of a fresh load.
func (u *UnitOfWork) TruncateRaw(ctx context.Context) error {
	for _, table := range []string{"raw_orders", "raw_payments"} {
		if _, err := u.tx.ExecContext(ctx, "DELETE FROM "+table); err != nil {
			return fmt.Errorf("truncate %s: %w", table, err)
		}
	}
	return nil
}

// InsertRawOrders bulk-inserts received order rows.
func (u *UnitOfWork) InsertRawOrders(ctx context.Context, rows []RawOrder) error {
	for _, r := range rows {
		_, err := u.tx.ExecContext(ctx, `
			INSERT INTO raw_orders (order_id, customer_id, order_ts, status, amount)
			VALUES (?, ?, ?, ?, ?)
		`, r.OrderID, r.CustomerID, r.OrderTS, r.Status, r.Amount)
		if err != nil {
			return fmt.Errorf("insert raw order: %w", err)
		}
	}
	return nil
}

// InsertRawPayments bulk-inserts received payment rows.
func (u *UnitOfWork) InsertRawPayments(ctx context.Context, rows []RawPayment) error {
	for _, r := range rows {
		_, err := u.tx.ExecContext(ctx, `
			INSERT INTO raw_payments (payment_id, order_id, paid_ts, status, amount)
			VALUES (?, ?, ?, ?, ?)
		`, r.PaymentID, r.OrderID, r.PaidTS, r.Status, r.Amount)
		if err != nil {
			return fmt.Errorf("insert raw payment: %w", err)
		}
	}
	return nil
}

// RawOrders returns the landing-area order rows in insertion order.
func (u *UnitOfWork) RawOrders(ctx context.Context) ([]RawOrder, error) {
	rows, err := u.tx.QueryContext(ctx, `
		SELECT order_id, customer_id, order_ts, status, amount
		FROM raw_orders
		ORDER BY rowid
	`)
	if err != nil {
		return nil, fmt.Errorf("query raw orders: %w", err)
	}
	defer rows.Close()

	var out []RawOrder
	for rows.Next() {
		var r RawOrder
		if err := rows.Scan(&r.OrderID, &r.CustomerID, &r.OrderTS, &r.Status, &r.Amount); err != nil {
			return nil, fmt.Errorf("scan raw order: %w", err)
		}
		out = append(out, r)
	}
	return out, rows.Err()
}

// RawPayments returns the landing-area payment rows in insertion order.
func (u *UnitOfWork) RawPayments(ctx context.Context) ([]RawPayment, error) {
	rows, err := u.tx.QueryContext(ctx, `
		SELECT payment_id, order_id, paid_ts, status, amount
		FROM raw_payments
		ORDER BY rowid
	`)
	if err != nil {
		return nil, fmt.Errorf("query raw payments: %w", err)
	}
	defer rows.Close()

	var out []RawPayment
	for rows.Next() {
		var r RawPayment
		if err := rows.Scan(&r.PaymentID, &r.OrderID, &r.PaidTS, &r.Status, &r.Amount); err != nil {
			return nil, fmt.Errorf("scan raw payment: %w", err)
		}
		out = append(out, r)
	}
	return out, rows.Err()
}

// TruncateStaging clears the normalized snapshot. Called once per run:
// snapshots are fully replaced, never merged.
func (u *UnitOfWork) TruncateStaging(ctx context.Context) error {
	for _, table := range []string{"orders_clean", "payments_clean"} {
		if _, err := u.tx.ExecContext(ctx, "DELETE FROM "+table); err != nil {
			return fmt.Errorf("truncate %s: %w", table, err)
		}
	}
	return nil
}

// InsertCleanOrders writes normalized orders into the staging snapshot.
func (u *UnitOfWork) InsertCleanOrders(ctx context.Context, orders []model.Order) error {
	for _, o := range orders {
		_, err := u.tx.ExecContext(ctx, `
			INSERT INTO orders_clean (order_id, customer_id, order_ts, status, amount)
			VALUES (?, ?, ?, ?, ?)
		`, o.OrderID, o.CustomerID, formatTime(o.OrderTS), o.Status, model.FormatDecimal(o.Amount))
		if err != nil {
			return fmt.Errorf("insert clean order %s: %w", o.OrderID, err)
		}
	}
	return nil
}

// InsertCleanPayments writes normalized payments into the staging snapshot.
func (u *UnitOfWork) InsertCleanPayments(ctx context.Context, payments []model.Payment) error {
	for _, p := range payments {
		_, err := u.tx.ExecContext(ctx, `
			INSERT INTO payments_clean (payment_id, order_id, paid_ts, status, amount)
			VALUES (?, ?, ?, ?, ?)
		`, p.PaymentID, p.OrderID, formatTime(p.PaidTS), p.Status, model.FormatDecimal(p.Amount))
		if err != nil {
			return fmt.Errorf("insert clean payment %s: %w", p.PaymentID, err)
		}
	}
	return nil
}

// CleanOrders loads the normalized order snapshot.
func (u *UnitOfWork) CleanOrders(ctx context.Context) ([]model.Order, error) {
	rows, err := u.tx.QueryContext(ctx, `
		SELECT order_id, customer_id, order_ts, status, amount
		FROM orders_clean
		ORDER BY order_id
	`)
	if err != nil {
		return nil, fmt.Errorf("query clean orders: %w", err)
	}
	defer rows.Close()

	var out []model.Order
	for rows.Next() {
		var o model.Order
		var ts, amount string
		if err := rows.Scan(&o.OrderID, &o.CustomerID, &ts, &o.Status, &amount); err != nil {
			return nil, fmt.Errorf("scan clean order: %w", err)
		}
		if o.OrderTS, err = parseTime(ts); err != nil {
			return nil, err
		}
		if o.Amount, err = model.ParseDecimal(amount); err != nil {
			return nil, err
		}
		out = append(out, o)
	}
	return out, rows.Err()
}

// CleanPayments loads the normalized payment snapshot.
func (u *UnitOfWork) CleanPayments(ctx context.Context) ([]model.Payment, error) {
	rows, err := u.tx.QueryContext(ctx, `
		SELECT payment_id, order_id, paid_ts, status, amount
		FROM payments_clean
		ORDER BY payment_id
	`)
	if err != nil {
		return nil, fmt.Errorf("query clean payments: %w", err)
	}
	defer rows.Close()

	var out []model.Payment
	for rows.Next() {
		var p model.Payment
		var ts, amount string
		if err := rows.Scan(&p.PaymentID, &p.OrderID, &ts, &p.Status, &amount); err != nil {
			return nil, fmt.Errorf("scan clean payment: %w", err)
		}
		if p.PaidTS, err = parseTime(ts); err != nil {
			return nil, err
		}
		if p.Amount, err = model.ParseDecimal(amount); err != nil {
			return nil, err
		}
		out = append(out, p)
	}
	return out, rows.Err()
}
