package cli

import (
	"errors"
	"fmt"

	"github.com/spf13/cobra"

	"github.com/mirrordna/ledger/internal/canon"
	"github.com/mirrordna/ledger/internal/store"
	"github.com/mirrordna/ledger/internal/timeline"
)

// AppendOptions holds flags for the append command.
type AppendOptions struct {
	*RootOptions
	Actor   string
	Payload string
}

// NewAppendCommand creates the append command.
func NewAppendCommand(rootOpts *RootOptions) *cobra.Command {
	opts := &AppendOptions{RootOptions: rootOpts}

	cmd := &cobra.Command{
		Use:   "append <timeline-id> <event-type>",
		Short: "Append an event to a timeline",
		Long: `Append a checksummed event to a timeline, creating the timeline if it
does not exist yet.

Example:
  mirrordna append tl-session-7 session_start --actor agent-primary --payload '{"phase":"boot"}'`,
		Args:          cobra.ExactArgs(2),
		SilenceUsage:  true,
		SilenceErrors: true,
		RunE: func(cmd *cobra.Command, args []string) error {
			return runAppend(opts, cmd, args[0], args[1])
		},
	}

	cmd.Flags().StringVar(&opts.Actor, "actor", "", "actor recording the event (required)")
	cmd.Flags().StringVar(&opts.Payload, "payload", "{}", "event payload as JSON")
	cmd.MarkFlagRequired("actor")

	return cmd
}

func runAppend(opts *AppendOptions, cmd *cobra.Command, timelineID, eventType string) error {
	payload, err := canon.FromJSON([]byte(opts.Payload))
	if err != nil {
		return fmt.Errorf("invalid --payload JSON: %w", err)
	}

	s, err := store.Open(opts.DB)
	if err != nil {
		return err
	}
	defer s.Close()

	ctx := cmd.Context()
	tl, err := s.LoadTimeline(ctx, timelineID)
	if errors.Is(err, store.ErrNotFound) {
		tl = timeline.New(timelineID)
	} else if err != nil {
		return err
	}

	ev, err := tl.Append(eventType, opts.Actor, payload)
	if err != nil {
		return err
	}

	if err := s.SaveTimeline(ctx, tl.ID(), tl.Events()); err != nil {
		return err
	}

	out := formatter(opts.RootOptions, cmd.OutOrStdout())
	if opts.Format == "json" {
		return out.Success(map[string]any{
			"timeline_id":     timelineID,
			"event_id":        ev.ID,
			"sequence_number": ev.Seq,
			"timestamp":       ev.Timestamp,
			"checksum":        ev.Checksum,
		})
	}
	return out.Success(fmt.Sprintf("appended %s seq=%d checksum=%s", ev.ID, ev.Seq, ev.Checksum))
}
