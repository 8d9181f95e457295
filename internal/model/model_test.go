package model

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestRunStatus_Terminal(t *testing.T) {
	assert.False(t, RunStatusRunning.Terminal())
	assert.True(t, RunStatusSuccess.Terminal())
	assert.True(t, RunStatusFail.Terminal())
	assert.True(t, RunStatusError.Terminal())
}

func TestExceptionRecord_ActiveAt(t *testing.T) {
	expiry := time.Date(2026, 3, 2, 0, 0, 0, 0, time.UTC)
	e := ExceptionRecord{Expires: expiry}

	assert.True(t, e.ActiveAt(expiry.Add(-time.Nanosecond)))
	assert.False(t, e.ActiveAt(expiry), "expiry instant itself is no longer active")
	assert.False(t, e.ActiveAt(expiry.Add(time.Nanosecond)))
}

func TestDayKey_UTCBoundary(t *testing.T) {
	// 23:30 in UTC-5 is already the next UTC day.
	loc := time.FixedZone("EST", -5*3600)
	ts := time.Date(2026, 3, 1, 23, 30, 0, 0, loc)
	assert.Equal(t, "2026-03-02", DayKey(ts))

	assert.Equal(t, "2026-03-01", DayKey(time.Date(2026, 3, 1, 0, 0, 0, 0, time.UTC)))
}

func TestParseDecimal(t *testing.T) {
	d, err := ParseDecimal("123.45")
	require.NoError(t, err)
	assert.Equal(t, "123.45", FormatDecimal(d))

	_, err = ParseDecimal("12.3.4")
	assert.Error(t, err)

	_, err = ParseDecimal("")
	assert.Error(t, err)
}

func TestFormatDecimal_PlainNotation(t *testing.T) {
	// Never scientific notation: amounts land in SQL text columns and
	// operator output.
	d, err := ParseDecimal("1e6")
	require.NoError(t, err)
	assert.Equal(t, "1000000", FormatDecimal(d))
}

func TestZeroDecimal(t *testing.T) {
	z := ZeroDecimal()
	assert.True(t, z.IsZero())

	// Fresh instance each call: mutating one never leaks into another.
	z2 := ZeroDecimal()
	_, err := DecimalContext().Add(z2, z2, MustDecimal("5"))
	require.NoError(t, err)
	assert.True(t, ZeroDecimal().IsZero())
}
