package cli

import (
	"fmt"
	"strings"
	"time"

	"github.com/spf13/cobra"

	"github.com/Piyawat-Pienmak/data-quality-reconciliation-pipeline/internal/exceptions"
)

// NewExceptionsCommand creates the exceptions command group for curating
// suppression records.
func NewExceptionsCommand(rootOpts *RootOptions) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "exceptions",
		Short: "Curate reconciliation suppression records",
		Long: `Suppression records tolerate a known, ticketed mismatch until an
expiry date. The pipeline only reads them; curation happens here.`,
	}

	cmd.AddCommand(newExceptionsLoadCommand(rootOpts))
	cmd.AddCommand(newExceptionsListCommand(rootOpts))
	return cmd
}

func newExceptionsLoadCommand(rootOpts *RootOptions) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "load <file.yaml>",
		Short: "Load exception records from a YAML file",
		Long: `Load (upsert) exception records from a YAML file:

  exceptions:
    - mismatch_type: payment_order_missing
      key: P2
      ticket_id: DATA-1234
      expires: 2026-12-31T00:00:00Z

Reloading a (mismatch_type, key) pair replaces its ticket and expiry.`,
		Args:          cobra.ExactArgs(1),
		SilenceUsage:  true,
		SilenceErrors: true,
		RunE: func(cmd *cobra.Command, args []string) error {
			st, err := openStore(rootOpts)
			if err != nil {
				return err
			}
			defer st.Close()

			n, err := exceptions.LoadFile(cmd.Context(), st, args[0])
			if err != nil {
				return WrapExitError(ExitCommandError, "failed to load exceptions", err)
			}

			formatter := &OutputFormatter{Format: rootOpts.Format, Writer: cmd.OutOrStdout()}
			if rootOpts.Format == "json" {
				return formatter.Success(map[string]int{"loaded": n})
			}
			return formatter.Success(fmt.Sprintf("loaded %d exception(s)\n", n))
		},
	}
	return cmd
}

func newExceptionsListCommand(rootOpts *RootOptions) *cobra.Command {
	cmd := &cobra.Command{
		Use:           "list",
		Short:         "List exception records",
		Args:          cobra.NoArgs,
		SilenceUsage:  true,
		SilenceErrors: true,
		RunE: func(cmd *cobra.Command, args []string) error {
			st, err := openStore(rootOpts)
			if err != nil {
				return err
			}
			defer st.Close()

			records, err := st.Exceptions(cmd.Context())
			if err != nil {
				return WrapExitError(ExitCommandError, "failed to list exceptions", err)
			}

			formatter := &OutputFormatter{Format: rootOpts.Format, Writer: cmd.OutOrStdout()}
			if rootOpts.Format == "json" {
				return formatter.Success(records)
			}

			now := time.Now()
			var b strings.Builder
			fmt.Fprintf(&b, "%-25s  %-12s  %-12s  %-24s  %s\n", "MISMATCH TYPE", "KEY", "TICKET", "EXPIRES", "STATE")
			for _, e := range records {
				state := "expired"
				if e.ActiveAt(now) {
					state = "active"
				}
				fmt.Fprintf(&b, "%-25s  %-12s  %-12s  %-24s  %s\n",
					e.Kind, e.Key, e.TicketID, e.Expires.Format(time.RFC3339), state)
			}
			return formatter.Success(b.String())
		},
	}
	return cmd
}
