package cli

import (
	"fmt"
	"log/slog"

	"github.com/spf13/cobra"

	"github.com/mirrordna/ledger/internal/store"
)

// NewVerifyCommand creates the verify command.
func NewVerifyCommand(rootOpts *RootOptions) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "verify <timeline-id>",
		Short: "Verify the integrity of a stored timeline",
		Long: `Recompute every event checksum and check sequence and timestamp
ordering for a stored timeline. Exits 1 if violations are found.`,
		Args:          cobra.ExactArgs(1),
		SilenceUsage:  true,
		SilenceErrors: true,
		RunE: func(cmd *cobra.Command, args []string) error {
			return runVerify(rootOpts, cmd, args[0])
		},
	}
	return cmd
}

func runVerify(opts *RootOptions, cmd *cobra.Command, timelineID string) error {
	s, err := store.Open(opts.DB)
	if err != nil {
		return err
	}
	defer s.Close()

	tl, err := s.LoadTimeline(cmd.Context(), timelineID)
	if err != nil {
		return err
	}
	slog.Debug("timeline loaded", "timeline_id", timelineID, "events", tl.Len())

	violations := tl.VerifyIntegrity()
	out := formatter(opts, cmd.OutOrStdout())

	if len(violations) == 0 {
		if opts.Format == "json" {
			return out.Success(map[string]any{
				"timeline_id": timelineID,
				"events":      tl.Len(),
				"violations":  []string{},
			})
		}
		return out.Success(fmt.Sprintf("timeline %s intact (%d events)", timelineID, tl.Len()))
	}

	if opts.Format == "json" {
		details := make([]map[string]any, len(violations))
		for i, v := range violations {
			details[i] = map[string]any{
				"kind":            string(v.Kind),
				"sequence_number": v.Seq,
				"event_id":        v.EventID,
				"detail":          v.Detail,
			}
		}
		if err := out.Failure("integrity violations found", details); err != nil {
			return err
		}
	} else {
		for _, v := range violations {
			fmt.Fprintln(cmd.OutOrStdout(), v.String())
		}
	}
	return NewExitError(ExitFailure, fmt.Sprintf("%d integrity violations in timeline %s", len(violations), timelineID))
}
