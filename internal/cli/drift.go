package cli

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/mirrordna/ledger/internal/canon"
	"github.com/mirrordna/ledger/internal/drift"
)

// DriftOptions holds flags for the drift command.
type DriftOptions struct {
	*RootOptions
	Expected string
	Actual   string
	Source   string
}

// NewDriftCommand creates the drift command.
func NewDriftCommand(rootOpts *RootOptions) *cobra.Command {
	opts := &DriftOptions{RootOptions: rootOpts}

	cmd := &cobra.Command{
		Use:   "drift",
		Short: "Compare expected state against observed state",
		Long: `Compare two structured documents canonically, so key order never causes
a false drift report. Exits 1 when the documents diverge.

Example:
  mirrordna drift --expected '{"name":"agent-primary"}' --actual '{"name":"impostor"}' --source identity_check`,
		SilenceUsage:  true,
		SilenceErrors: true,
		RunE: func(cmd *cobra.Command, args []string) error {
			return runDrift(opts, cmd)
		},
	}

	cmd.Flags().StringVar(&opts.Expected, "expected", "", "expected document as JSON (required)")
	cmd.Flags().StringVar(&opts.Actual, "actual", "", "observed document as JSON (required)")
	cmd.Flags().StringVar(&opts.Source, "source", "manual", "label for where the observation came from")
	cmd.MarkFlagRequired("expected")
	cmd.MarkFlagRequired("actual")

	return cmd
}

func runDrift(opts *DriftOptions, cmd *cobra.Command) error {
	expected, err := canon.FromJSON([]byte(opts.Expected))
	if err != nil {
		return fmt.Errorf("invalid --expected JSON: %w", err)
	}
	actual, err := canon.FromJSON([]byte(opts.Actual))
	if err != nil {
		return fmt.Errorf("invalid --actual JSON: %w", err)
	}

	r, err := drift.New().DetectValues(expected, actual, opts.Source)
	if err != nil {
		return err
	}

	out := formatter(opts.RootOptions, cmd.OutOrStdout())
	if r.Matches {
		if opts.Format == "json" {
			return out.Success(map[string]any{
				"matches":     true,
				"checksum":    r.Expected,
				"source":      r.Source,
				"detected_at": r.DetectedAt,
			})
		}
		return out.Success("no drift detected")
	}

	if opts.Format == "json" {
		if err := out.Failure("drift detected", map[string]any{
			"matches":           false,
			"source":            r.Source,
			"detected_at":       r.DetectedAt,
			"expected_checksum": r.Expected,
			"actual_checksum":   r.Actual,
			"expected":          canon.ToAny(expected),
			"actual":            canon.ToAny(actual),
		}); err != nil {
			return err
		}
	} else if err := out.Failure(fmt.Sprintf("drift detected (source %s)", r.Source), nil); err != nil {
		return err
	}
	return NewExitError(ExitFailure, "drift detected")
}
