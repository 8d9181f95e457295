package cli

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/Piyawat-Pienmak/data-quality-reconciliation-pipeline/internal/config"
	"github.com/Piyawat-Pienmak/data-quality-reconciliation-pipeline/internal/ingest"
	"github.com/Piyawat-Pienmak/data-quality-reconciliation-pipeline/internal/model"
	"github.com/Piyawat-Pienmak/data-quality-reconciliation-pipeline/internal/pipeline"
	"github.com/Piyawat-Pienmak/data-quality-reconciliation-pipeline/internal/store"
)

// RunOptions holds flags for the run command.
type RunOptions struct {
	*RootOptions
	DataDir   string
	Tolerance string
	BuildSHA  string
}

// NewRunCommand creates the run command.
func NewRunCommand(rootOpts *RootOptions) *cobra.Command {
	opts := &RunOptions{RootOptions: rootOpts}

	cmd := &cobra.Command{
		Use:   "run",
		Short: "Execute one pipeline run",
		Long: `Execute one end-to-end pipeline run: load the raw CSV exports,
normalize them into the staging snapshot, evaluate the quality gate and
the reconciliation engine, rebuild the marts, and finalize the run
ledger.

The data dir may be a local directory or an s3://bucket/prefix URL.

Exit status: 0 on SUCCESS, 1 when a gate failed (FAIL), 2 on an
operational error (ERROR).

Example:
  dqpipe run --db ./dqpipe.db --data-dir ./data
  dqpipe run --db ./dqpipe.db --data-dir s3://exports/2026-08-28 --tolerance 0.001`,
		Args:          cobra.NoArgs,
		SilenceUsage:  true,
		SilenceErrors: true,
		RunE: func(cmd *cobra.Command, args []string) error {
			return runPipeline(opts, cmd)
		},
	}

	cmd.Flags().StringVarP(&opts.DataDir, "data-dir", "d", "", "input location (local dir or s3:// URL, defaults to DATA_DIR)")
	cmd.Flags().StringVar(&opts.Tolerance, "tolerance", "", "relative amount tolerance as a decimal fraction (defaults to TOLERANCE_PCT)")
	cmd.Flags().StringVar(&opts.BuildSHA, "build-sha", "", "build provenance tag (defaults to GITHUB_SHA)")

	return cmd
}

func runPipeline(opts *RunOptions, cmd *cobra.Command) error {
	cfg, err := config.Load()
	if err != nil {
		return WrapExitError(ExitCommandError, "failed to load configuration", err)
	}

	// Flags override environment.
	if opts.Database != "" {
		cfg.DatabasePath = opts.Database
	}
	if opts.DataDir != "" {
		cfg.DataDir = opts.DataDir
	}
	if opts.Tolerance != "" {
		cfg.TolerancePct = opts.Tolerance
	}
	if opts.BuildSHA != "" {
		cfg.BuildSHA = opts.BuildSHA
	}

	tolerance, err := model.ParseDecimal(cfg.TolerancePct)
	if err != nil {
		return WrapExitError(ExitCommandError, "invalid tolerance", err)
	}
	if tolerance.Sign() < 0 {
		return NewExitError(ExitCommandError, fmt.Sprintf("tolerance must not be negative: %s", cfg.TolerancePct))
	}

	src, err := buildSource(cmd, cfg)
	if err != nil {
		return WrapExitError(ExitCommandError, "failed to set up input source", err)
	}

	st, err := store.Open(cfg.DatabasePath)
	if err != nil {
		return WrapExitError(ExitCommandError, "failed to open database", err)
	}
	defer st.Close()

	outcome, err := pipeline.Run(cmd.Context(), st, pipeline.Params{
		Source:       src,
		DataDir:      cfg.DataDir,
		BuildSHA:     cfg.BuildSHA,
		TolerancePct: tolerance,
	})
	if err != nil {
		return WrapExitError(ExitCommandError, fmt.Sprintf("run %s aborted", outcome.RunID), err)
	}

	formatter := &OutputFormatter{Format: opts.Format, Writer: cmd.OutOrStdout()}
	if err := formatter.Success(renderOutcome(opts.Format, outcome)); err != nil {
		return WrapExitError(ExitCommandError, "failed to write output", err)
	}

	if outcome.Status != model.RunStatusSuccess {
		return NewExitError(ExitFailure, fmt.Sprintf("run %s finished with status %s", outcome.RunID, outcome.Status))
	}
	return nil
}

func buildSource(cmd *cobra.Command, cfg config.Config) (ingest.Source, error) {
	if ingest.IsS3URL(cfg.DataDir) {
		return ingest.NewS3Source(cmd.Context(), cfg.DataDir, ingest.S3Options{
			Region:   cfg.S3Region,
			Endpoint: cfg.S3Endpoint,
		})
	}
	return ingest.DirSource{Dir: cfg.DataDir}, nil
}

// renderOutcome produces the text status block, or the raw outcome for
// JSON encoding.
func renderOutcome(format string, o pipeline.Outcome) interface{} {
	if format == "json" {
		return outcomeJSON{
			RunID:                o.RunID,
			Status:               string(o.Status),
			QualityPassed:        o.QualityPassed,
			ReconPassed:          o.ReconPassed,
			ActiveMismatches:     o.ActiveMismatches,
			SuppressedMismatches: o.SuppressedMismatches,
			FailingMetrics:       o.FailingMetrics,
		}
	}

	out := fmt.Sprintf("[run] run_id=%s status=%s tests_ok=%t recon_ok=%t mismatches=%d suppressed=%d failing_metrics=%d\n",
		o.RunID, o.Status, o.QualityPassed, o.ReconPassed,
		o.ActiveMismatches, o.SuppressedMismatches, o.FailingMetrics)
	if o.Summary != "" {
		out += o.Summary
	}
	return out
}

type outcomeJSON struct {
	RunID                string `json:"run_id"`
	Status               string `json:"status"`
	QualityPassed        bool   `json:"quality_passed"`
	ReconPassed          bool   `json:"recon_passed"`
	ActiveMismatches     int    `json:"active_mismatches"`
	SuppressedMismatches int    `json:"suppressed_mismatches"`
	FailingMetrics       int    `json:"failing_metrics"`
}
