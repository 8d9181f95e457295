package exceptions

import (
	"context"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/Piyawat-Pienmak/data-quality-reconciliation-pipeline/internal/model"
	"github.com/Piyawat-Pienmak/data-quality-reconciliation-pipeline/internal/testutil"
)

const validYAML = `exceptions:
  - mismatch_type: payment_order_missing
    key: P2
    ticket_id: DATA-1234
    expires: 2026-12-31T00:00:00Z
  - mismatch_type: payment_order_missing
    key: P7
    ticket_id: DATA-1240
    expires: 2027-01-15T12:00:00Z
`

func TestParse(t *testing.T) {
	records, err := Parse(strings.NewReader(validYAML))
	require.NoError(t, err)
	require.Len(t, records, 2)

	assert.Equal(t, model.MismatchPaymentOrderMissing, records[0].Kind)
	assert.Equal(t, "P2", records[0].Key)
	assert.Equal(t, "DATA-1234", records[0].TicketID)
	assert.Equal(t, "2026-12-31T00:00:00Z", records[0].Expires.Format("2006-01-02T15:04:05Z"))
}

func TestParse_Invalid(t *testing.T) {
	tests := []struct {
		name, yaml, wantErr string
	}{
		{
			name: "unknown mismatch type",
			yaml: "exceptions:\n  - {mismatch_type: bogus, key: P1, ticket_id: T-1, expires: 2026-12-31T00:00:00Z}\n",
			wantErr: "unknown mismatch_type",
		},
		{
			name: "missing key",
			yaml: "exceptions:\n  - {mismatch_type: payment_order_missing, ticket_id: T-1, expires: 2026-12-31T00:00:00Z}\n",
			wantErr: "key must not be empty",
		},
		{
			name: "missing ticket",
			yaml: "exceptions:\n  - {mismatch_type: payment_order_missing, key: P1, expires: 2026-12-31T00:00:00Z}\n",
			wantErr: "ticket_id must not be empty",
		},
		{
			name: "missing expiry",
			yaml: "exceptions:\n  - {mismatch_type: payment_order_missing, key: P1, ticket_id: T-1}\n",
			wantErr: "expires must be set",
		},
		{
			name: "unknown field rejected",
			yaml: "exceptions:\n  - {mismatch_type: payment_order_missing, key: P1, ticket_id: T-1, expires: 2026-12-31T00:00:00Z, note: hi}\n",
			wantErr: "decode exceptions yaml",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := Parse(strings.NewReader(tt.yaml))
			require.Error(t, err)
			assert.Contains(t, err.Error(), tt.wantErr)
		})
	}
}

func TestParse_EmptyDocument(t *testing.T) {
	records, err := Parse(strings.NewReader("exceptions: []\n"))
	require.NoError(t, err)
	assert.Empty(t, records)
}

func TestLoadFile(t *testing.T) {
	s := testutil.OpenStore(t)
	ctx := context.Background()

	path := filepath.Join(t.TempDir(), "exceptions.yaml")
	require.NoError(t, os.WriteFile(path, []byte(validYAML), 0o644))

	n, err := LoadFile(ctx, s, path)
	require.NoError(t, err)
	assert.Equal(t, 2, n)

	records, err := s.Exceptions(ctx)
	require.NoError(t, err)
	assert.Len(t, records, 2)

	// Loading again upserts rather than duplicating.
	n, err = LoadFile(ctx, s, path)
	require.NoError(t, err)
	assert.Equal(t, 2, n)

	records, err = s.Exceptions(ctx)
	require.NoError(t, err)
	assert.Len(t, records, 2)
}

func TestLoadFile_MissingFile(t *testing.T) {
	s := testutil.OpenStore(t)
	_, err := LoadFile(context.Background(), s, filepath.Join(t.TempDir(), "nope.yaml"))
	require.Error(t, err)
}
