package ingest

import (
	"context"
	"fmt"
	"io"
	"log/slog"

	"github.com/Piyawat-Pienmak/data-quality-reconciliation-pipeline/internal/store"
)

// File names expected in every data dir.
const (
	OrdersFile   = "orders.csv"
	PaymentsFile = "payments.csv"
)

// LoadRaw truncates the landing area and loads both input files from the
// source. Runs inside the caller's unit of work.
func LoadRaw(ctx context.Context, uow *store.UnitOfWork, src Source) error {
	if err := uow.TruncateRaw(ctx); err != nil {
		return err
	}

	orders, err := loadFile(ctx, src, OrdersFile, ReadOrders)
	if err != nil {
		return err
	}
	if err := uow.InsertRawOrders(ctx, orders); err != nil {
		return err
	}

	payments, err := loadFile(ctx, src, PaymentsFile, ReadPayments)
	if err != nil {
		return err
	}
	if err := uow.InsertRawPayments(ctx, payments); err != nil {
		return err
	}

	slog.Info("raw load complete", "orders", len(orders), "payments", len(payments))
	return nil
}

func loadFile[T any](ctx context.Context, src Source, name string, parse func(io.Reader) ([]T, error)) ([]T, error) {
	f, err := src.Open(ctx, name)
	if err != nil {
		return nil, err
	}
	defer f.Close()

	rows, err := parse(f)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", name, err)
	}
	return rows, nil
}
