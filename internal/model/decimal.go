package model

import (
	"fmt"
	"strings"

	"github.com/cockroachdb/apd/v3"
)

// decCtx is the shared arithmetic context for money math. 34 digits
// matches IEEE decimal128 and is far beyond any realistic order amount.
var decCtx = apd.BaseContext.WithPrecision(34)

// DecimalContext returns the arithmetic context used for all monetary
// computation in the pipeline.
func DecimalContext() *apd.Context {
	return decCtx
}

// ParseDecimal parses an exact decimal from its text form.
func ParseDecimal(s string) (*apd.Decimal, error) {
	d, _, err := apd.NewFromString(strings.TrimSpace(s))
	if err != nil {
		return nil, fmt.Errorf("parse decimal %q: %w", s, err)
	}
	return d, nil
}

// MustDecimal parses a decimal literal, panicking on malformed input.
// For constants and tests only.
func MustDecimal(s string) *apd.Decimal {
	d, err := ParseDecimal(s)
	if err != nil {
		panic(err)
	}
	return d
}

// ZeroDecimal returns a fresh zero value.
func ZeroDecimal() *apd.Decimal {
	return apd.New(0, 0)
}

// FormatDecimal renders a decimal in plain (non-scientific) notation,
// the canonical storage form.
func FormatDecimal(d *apd.Decimal) string {
	return d.Text('f')
}
