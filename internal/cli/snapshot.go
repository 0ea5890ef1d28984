package cli

import (
	"errors"
	"fmt"

	"github.com/spf13/cobra"

	"github.com/mirrordna/ledger/internal/canon"
	"github.com/mirrordna/ledger/internal/snapshot"
	"github.com/mirrordna/ledger/internal/store"
)

// SnapshotOptions holds flags for the snapshot command.
type SnapshotOptions struct {
	*RootOptions
	Identity   string
	Continuity string
	Vault      string
}

// NewSnapshotCommand creates the snapshot command.
func NewSnapshotCommand(rootOpts *RootOptions) *cobra.Command {
	opts := &SnapshotOptions{RootOptions: rootOpts}

	cmd := &cobra.Command{
		Use:   "snapshot <subcommand>",
		Short: "Capture and verify state snapshots",
	}

	capture := &cobra.Command{
		Use:   "capture <timeline-id>",
		Short: "Capture a checksummed snapshot of current state",
		Long: `Capture a composite snapshot: the given state documents plus the
timeline's summary, checksummed as one unit and stored in the ledger.`,
		Args:          cobra.ExactArgs(1),
		SilenceUsage:  true,
		SilenceErrors: true,
		RunE: func(cmd *cobra.Command, args []string) error {
			return runSnapshotCapture(opts, cmd, args[0])
		},
	}
	capture.Flags().StringVar(&opts.Identity, "identity", "{}", "identity state as JSON")
	capture.Flags().StringVar(&opts.Continuity, "continuity", "{}", "continuity state as JSON")
	capture.Flags().StringVar(&opts.Vault, "vault", "{}", "vault summary as JSON")

	verify := &cobra.Command{
		Use:           "verify <snapshot-id>",
		Short:         "Verify a stored snapshot's checksum",
		Args:          cobra.ExactArgs(1),
		SilenceUsage:  true,
		SilenceErrors: true,
		RunE: func(cmd *cobra.Command, args []string) error {
			return runSnapshotVerify(opts.RootOptions, cmd, args[0])
		},
	}

	cmd.AddCommand(capture)
	cmd.AddCommand(verify)
	return cmd
}

func runSnapshotCapture(opts *SnapshotOptions, cmd *cobra.Command, timelineID string) error {
	parse := func(flag, doc string) (canon.Value, error) {
		v, err := canon.FromJSON([]byte(doc))
		if err != nil {
			return nil, fmt.Errorf("invalid --%s JSON: %w", flag, err)
		}
		return v, nil
	}

	identityState, err := parse("identity", opts.Identity)
	if err != nil {
		return err
	}
	continuityState, err := parse("continuity", opts.Continuity)
	if err != nil {
		return err
	}
	vaultSummary, err := parse("vault", opts.Vault)
	if err != nil {
		return err
	}

	s, err := store.Open(opts.DB)
	if err != nil {
		return err
	}
	defer s.Close()

	ctx := cmd.Context()
	tl, err := s.LoadTimeline(ctx, timelineID)
	if errors.Is(err, store.ErrNotFound) {
		return fmt.Errorf("timeline %s not found", timelineID)
	}
	if err != nil {
		return err
	}

	snap, err := snapshot.New().Capture(snapshot.NewID(),
		identityState, continuityState, vaultSummary, tl.Summary())
	if err != nil {
		return err
	}
	if err := s.SaveSnapshot(ctx, snap); err != nil {
		return err
	}

	out := formatter(opts.RootOptions, cmd.OutOrStdout())
	if opts.Format == "json" {
		return out.Success(map[string]any{
			"snapshot_id": snap.SnapshotID,
			"captured_at": snap.CapturedAt,
			"checksum":    snap.Checksum,
		})
	}
	return out.Success(fmt.Sprintf("captured %s checksum=%s", snap.SnapshotID, snap.Checksum))
}

func runSnapshotVerify(opts *RootOptions, cmd *cobra.Command, snapshotID string) error {
	s, err := store.Open(opts.DB)
	if err != nil {
		return err
	}
	defer s.Close()

	snap, err := s.LoadSnapshot(cmd.Context(), snapshotID)
	if err != nil {
		return err
	}

	ok, err := snapshot.Verify(snap)
	if err != nil {
		return err
	}

	out := formatter(opts, cmd.OutOrStdout())
	if !ok {
		if err := out.Failure("snapshot checksum mismatch", map[string]string{
			"snapshot_id": snapshotID,
		}); err != nil {
			return err
		}
		return NewExitError(ExitFailure, fmt.Sprintf("snapshot %s failed verification", snapshotID))
	}
	return out.Success(fmt.Sprintf("snapshot %s verified", snapshotID))
}
