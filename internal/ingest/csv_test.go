package ingest

import (
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestReadOrders(t *testing.T) {
	in := `order_id,customer_id,order_ts,status,amount
O1,C1,2026-03-01T10:00:00Z,PAID,100.00
O2,C2,2026-03-01T11:00:00Z,cancelled,
`
	rows, err := ReadOrders(strings.NewReader(in))
	require.NoError(t, err)
	require.Len(t, rows, 2)

	assert.Equal(t, "O1", rows[0].OrderID)
	assert.Equal(t, "100.00", rows[0].Amount)
	// Values pass through untyped and unnormalized.
	assert.Equal(t, "cancelled", rows[1].Status)
	assert.Empty(t, rows[1].Amount)
}

func TestReadOrders_WrongHeader(t *testing.T) {
	in := `id,customer_id,order_ts,status,amount
O1,C1,2026-03-01T10:00:00Z,PAID,100.00
`
	_, err := ReadOrders(strings.NewReader(in))
	require.Error(t, err)
	assert.Contains(t, err.Error(), `"order_id"`)
}

func TestReadOrders_EmptyInput(t *testing.T) {
	_, err := ReadOrders(strings.NewReader(""))
	require.Error(t, err)
	assert.Contains(t, err.Error(), "read header")
}

func TestReadOrders_HeaderOnly(t *testing.T) {
	rows, err := ReadOrders(strings.NewReader("order_id,customer_id,order_ts,status,amount\n"))
	require.NoError(t, err)
	assert.Empty(t, rows)
}

func TestReadPayments(t *testing.T) {
	in := `payment_id,order_id,paid_ts,status,amount
P1,O1,2026-03-01T10:05:00Z,PAID,100.00
`
	rows, err := ReadPayments(strings.NewReader(in))
	require.NoError(t, err)
	require.Len(t, rows, 1)
	assert.Equal(t, "P1", rows[0].PaymentID)
	assert.Equal(t, "O1", rows[0].OrderID)
}

func TestReadPayments_RaggedRow(t *testing.T) {
	in := `payment_id,order_id,paid_ts,status,amount
P1,O1,2026-03-01T10:05:00Z,PAID
`
	_, err := ReadPayments(strings.NewReader(in))
	require.Error(t, err)
}

func TestSplitS3URL(t *testing.T) {
	tests := []struct {
		in, bucket, prefix string
		wantErr            bool
	}{
		{in: "s3://bucket/drops/2026-03-01", bucket: "bucket", prefix: "drops/2026-03-01"},
		{in: "s3://bucket/drops/", bucket: "bucket", prefix: "drops"},
		{in: "s3://bucket", bucket: "bucket", prefix: ""},
		{in: "s3://", wantErr: true},
		{in: "/local/dir", wantErr: true},
	}
	for _, tt := range tests {
		bucket, prefix, err := splitS3URL(tt.in)
		if tt.wantErr {
			assert.Error(t, err, tt.in)
			continue
		}
		require.NoError(t, err, tt.in)
		assert.Equal(t, tt.bucket, bucket, tt.in)
		assert.Equal(t, tt.prefix, prefix, tt.in)
	}
}

func TestIsS3URL(t *testing.T) {
	assert.True(t, IsS3URL("s3://bucket/prefix"))
	assert.False(t, IsS3URL("data"))
	assert.False(t, IsS3URL("/var/data"))
}
