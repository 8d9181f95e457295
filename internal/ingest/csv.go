package ingest

import (
	"encoding/csv"
	"fmt"
	"io"
	"strings"

	"github.com/Piyawat-Pienmak/data-quality-reconciliation-pipeline/internal/store"
)

var (
	orderColumns   = []string{"order_id", "customer_id", "order_ts", "status", "amount"}
	paymentColumns = []string{"payment_id", "order_id", "paid_ts", "status", "amount"}
)

// ReadOrders parses an orders CSV. The header must match orderColumns
// exactly; values are carried through untyped - typing happens in
// normalization.
func ReadOrders(r io.Reader) ([]store.RawOrder, error) {
	records, err := readCSV(r, orderColumns)
	if err != nil {
		return nil, fmt.Errorf("orders: %w", err)
	}

	rows := make([]store.RawOrder, 0, len(records))
	for _, rec := range records {
		rows = append(rows, store.RawOrder{
			OrderID:    rec[0],
			CustomerID: rec[1],
			OrderTS:    rec[2],
			Status:     rec[3],
			Amount:     rec[4],
		})
	}
	return rows, nil
}

// ReadPayments parses a payments CSV.
func ReadPayments(r io.Reader) ([]store.RawPayment, error) {
	records, err := readCSV(r, paymentColumns)
	if err != nil {
		return nil, fmt.Errorf("payments: %w", err)
	}

	rows := make([]store.RawPayment, 0, len(records))
	for _, rec := range records {
		rows = append(rows, store.RawPayment{
			PaymentID: rec[0],
			OrderID:   rec[1],
			PaidTS:    rec[2],
			Status:    rec[3],
			Amount:    rec[4],
		})
	}
	return rows, nil
}

func readCSV(r io.Reader, columns []string) ([][]string, error) {
	reader := csv.NewReader(r)
	reader.FieldsPerRecord = len(columns)

	header, err := reader.Read()
	if err != nil {
		return nil, fmt.Errorf("read header: %w", err)
	}
	for i, col := range columns {
		if strings.TrimSpace(header[i]) != col {
			return nil, fmt.Errorf("header column %d is %q, want %q", i, header[i], col)
		}
	}

	records, err := reader.ReadAll()
	if err != nil {
		return nil, fmt.Errorf("read rows: %w", err)
	}
	return records, nil
}
