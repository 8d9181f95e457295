package cli

import (
	"fmt"
	"strings"
	"time"

	"github.com/spf13/cobra"

	"github.com/Piyawat-Pienmak/data-quality-reconciliation-pipeline/internal/config"
	"github.com/Piyawat-Pienmak/data-quality-reconciliation-pipeline/internal/model"
	"github.com/Piyawat-Pienmak/data-quality-reconciliation-pipeline/internal/store"
)

// NewRunsCommand creates the runs command group for ledger queries.
func NewRunsCommand(rootOpts *RootOptions) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "runs",
		Short: "Query the run ledger",
	}

	cmd.AddCommand(newRunsListCommand(rootOpts))
	cmd.AddCommand(newRunsShowCommand(rootOpts))
	return cmd
}

func newRunsListCommand(rootOpts *RootOptions) *cobra.Command {
	var limit int

	cmd := &cobra.Command{
		Use:           "list",
		Short:         "List pipeline runs, newest first",
		Args:          cobra.NoArgs,
		SilenceUsage:  true,
		SilenceErrors: true,
		RunE: func(cmd *cobra.Command, args []string) error {
			st, err := openStore(rootOpts)
			if err != nil {
				return err
			}
			defer st.Close()

			runs, err := st.ListRuns(cmd.Context(), limit)
			if err != nil {
				return WrapExitError(ExitCommandError, "failed to list runs", err)
			}

			formatter := &OutputFormatter{Format: rootOpts.Format, Writer: cmd.OutOrStdout()}
			if rootOpts.Format == "json" {
				return formatter.Success(runs)
			}

			var b strings.Builder
			fmt.Fprintf(&b, "%-36s  %-7s  %-24s  %s\n", "RUN ID", "STATUS", "STARTED", "DATA DIR")
			for _, r := range runs {
				fmt.Fprintf(&b, "%-36s  %-7s  %-24s  %s\n",
					r.RunID, r.Status, r.StartedTS.Format(time.RFC3339), r.DataDir)
			}
			return formatter.Success(b.String())
		},
	}

	cmd.Flags().IntVar(&limit, "limit", 20, "maximum runs to list (0 for all)")
	return cmd
}

func newRunsShowCommand(rootOpts *RootOptions) *cobra.Command {
	cmd := &cobra.Command{
		Use:           "show <run-id>",
		Short:         "Show one run with its audit detail",
		Args:          cobra.ExactArgs(1),
		SilenceUsage:  true,
		SilenceErrors: true,
		RunE: func(cmd *cobra.Command, args []string) error {
			st, err := openStore(rootOpts)
			if err != nil {
				return err
			}
			defer st.Close()

			run, err := st.RunByID(cmd.Context(), args[0])
			if err != nil {
				return WrapExitError(ExitCommandError, "failed to load run", err)
			}
			results, err := st.TestResultsForRun(cmd.Context(), run.RunID)
			if err != nil {
				return WrapExitError(ExitCommandError, "failed to load test results", err)
			}
			mismatches, err := st.MismatchesForRun(cmd.Context(), run.RunID, 0)
			if err != nil {
				return WrapExitError(ExitCommandError, "failed to load mismatches", err)
			}
			metrics, err := st.MetricsForRun(cmd.Context(), run.RunID)
			if err != nil {
				return WrapExitError(ExitCommandError, "failed to load metric comparisons", err)
			}

			formatter := &OutputFormatter{Format: rootOpts.Format, Writer: cmd.OutOrStdout()}
			if rootOpts.Format == "json" {
				return formatter.Success(map[string]interface{}{
					"run":                run,
					"test_results":       results,
					"row_mismatches":     mismatches,
					"metric_comparisons": metrics,
				})
			}
			return formatter.Success(renderRunDetail(run, results, mismatches, metrics))
		},
	}
	return cmd
}

func renderRunDetail(run model.PipelineRun, results []model.TestResult, mismatches []model.RowMismatch, metrics []model.MetricComparison) string {
	var b strings.Builder

	fmt.Fprintf(&b, "run_id:   %s\n", run.RunID)
	fmt.Fprintf(&b, "status:   %s\n", run.Status)
	fmt.Fprintf(&b, "data_dir: %s\n", run.DataDir)
	fmt.Fprintf(&b, "started:  %s\n", run.StartedTS.Format(time.RFC3339))
	if run.FinishedTS != nil {
		fmt.Fprintf(&b, "finished: %s\n", run.FinishedTS.Format(time.RFC3339))
	}
	if run.ErrorMessage != "" {
		fmt.Fprintf(&b, "error:    %s\n", run.ErrorMessage)
	}

	if len(results) > 0 {
		fmt.Fprintf(&b, "\nquality checks:\n")
		for _, r := range results {
			fmt.Fprintf(&b, "  %-5s %s (%s)\n", passFail(r.Passed), r.Name, r.Details)
		}
	}

	if len(mismatches) > 0 {
		fmt.Fprintf(&b, "\nrow mismatches:\n")
		for _, m := range mismatches {
			suffix := ""
			if m.Suppressed {
				suffix = fmt.Sprintf(" [suppressed, ticket=%s]", m.TicketID)
			}
			fmt.Fprintf(&b, "  - %s: %s | %s%s\n", m.Kind, m.Key, m.Details, suffix)
		}
	}

	if len(metrics) > 0 {
		fmt.Fprintf(&b, "\nmetric comparisons:\n")
		for _, c := range metrics {
			deltaPct := "n/a"
			if c.DeltaPct != nil {
				deltaPct = model.FormatDecimal(c.DeltaPct)
			}
			fmt.Fprintf(&b, "  %-5s %s %s a=%s b=%s delta=%s delta_pct=%s\n",
				passFail(c.Passed), c.Metric, c.Date,
				model.FormatDecimal(c.SystemA), model.FormatDecimal(c.SystemB),
				model.FormatDecimal(c.Delta), deltaPct)
		}
	}

	return b.String()
}

func passFail(passed bool) string {
	if passed {
		return "PASS"
	}
	return "FAIL"
}

// openStore opens the database named by --db, falling back to the
// environment configuration.
func openStore(rootOpts *RootOptions) (*store.Store, error) {
	path := rootOpts.Database
	if path == "" {
		cfg, err := config.Load()
		if err != nil {
			return nil, WrapExitError(ExitCommandError, "failed to load configuration", err)
		}
		path = cfg.DatabasePath
	}

	st, err := store.Open(path)
	if err != nil {
		return nil, WrapExitError(ExitCommandError, "failed to open database", err)
	}
	return st, nil
}
