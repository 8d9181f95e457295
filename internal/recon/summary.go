package recon

import (
	"fmt"
	"strings"
)

// Summary renders the human-readable diagnostic block for operators: the
// mismatch counts, a bounded sample of active mismatches, and the full
// list of failing metrics. Complete detail stays in the audit tables.
func (r Result) Summary() string {
	var b strings.Builder

	fmt.Fprintf(&b, "[recon] row_mismatches=%d (active=%d, suppressed=%d)\n",
		r.ActiveMismatches+r.SuppressedMismatches, r.ActiveMismatches, r.SuppressedMismatches)

	if len(r.MismatchSample) > 0 {
		fmt.Fprintf(&b, "[recon] active mismatch sample (first %d):\n", SampleLimit)
		for _, m := range r.MismatchSample {
			fmt.Fprintf(&b, "  - %s: %s | %s\n", m.Kind, m.Key, m.Details)
		}
	}

	if len(r.FailingMetrics) > 0 {
		fmt.Fprintf(&b, "[recon] failing metrics:\n")
		for _, line := range r.FailingMetrics {
			fmt.Fprintf(&b, "  - %s\n", line)
		}
	}

	return b.String()
}
