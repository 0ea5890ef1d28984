package cli

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/mirrordna/ledger/internal/canon"
	"github.com/mirrordna/ledger/internal/lineage"
	"github.com/mirrordna/ledger/internal/store"
)

// LineageOptions holds flags for the lineage commands.
type LineageOptions struct {
	*RootOptions
	Content     string
	Type        string
	Predecessor string
}

// NewLineageCommand creates the lineage command group.
func NewLineageCommand(rootOpts *RootOptions) *cobra.Command {
	opts := &LineageOptions{RootOptions: rootOpts}

	cmd := &cobra.Command{
		Use:   "lineage <subcommand>",
		Short: "Track and verify artifact lineage",
	}

	create := &cobra.Command{
		Use:   "create",
		Short: "Record a new artifact with its checksum and predecessor link",
		Long: `Checksum the given content, assign an artifact ID, and record the
lineage link.

Example:
  mirrordna lineage create --type config --content '{"retention_days":30}' --predecessor art_config_a1b2`,
		SilenceUsage:  true,
		SilenceErrors: true,
		RunE: func(cmd *cobra.Command, args []string) error {
			return runLineageCreate(opts, cmd)
		},
	}
	create.Flags().StringVar(&opts.Content, "content", "", "artifact content as JSON (required)")
	create.Flags().StringVar(&opts.Type, "type", "", "artifact type, used in the ID (required)")
	create.Flags().StringVar(&opts.Predecessor, "predecessor", "", "predecessor artifact ID")
	create.MarkFlagRequired("content")
	create.MarkFlagRequired("type")

	track := &cobra.Command{
		Use:   "track <artifact-id>",
		Short: "Walk an artifact's lineage chain and verify its links",
		Long: `Walk predecessor links backward from the artifact and verify the chain
structure. Content is not retained by the store, so this is link-structure
verification only. Exits 1 if the chain is broken.`,
		Args:          cobra.ExactArgs(1),
		SilenceUsage:  true,
		SilenceErrors: true,
		RunE: func(cmd *cobra.Command, args []string) error {
			return runLineageTrack(opts, cmd, args[0])
		},
	}

	cmd.AddCommand(create)
	cmd.AddCommand(track)
	return cmd
}

func runLineageCreate(opts *LineageOptions, cmd *cobra.Command) error {
	content, err := canon.FromJSON([]byte(opts.Content))
	if err != nil {
		return fmt.Errorf("invalid --content JSON: %w", err)
	}

	s, err := store.Open(opts.DB)
	if err != nil {
		return err
	}
	defer s.Close()

	tracker := lineage.New(s.LineageStore(cmd.Context()))

	var pred *string
	if opts.Predecessor != "" {
		pred = &opts.Predecessor
	}

	r, err := tracker.CreateArtifact(content, opts.Type, pred)
	if err != nil {
		return err
	}

	out := formatter(opts.RootOptions, cmd.OutOrStdout())
	if opts.Format == "json" {
		return out.Success(lineageRecordDoc(r))
	}
	return out.Success(fmt.Sprintf("created %s checksum=%s", r.ArtifactID, r.Checksum))
}

func runLineageTrack(opts *LineageOptions, cmd *cobra.Command, artifactID string) error {
	s, err := store.Open(opts.DB)
	if err != nil {
		return err
	}
	defer s.Close()

	tracker := lineage.New(s.LineageStore(cmd.Context()))

	chain, err := tracker.TrackLineage(artifactID)
	if err != nil {
		return err
	}
	report := lineage.VerifyChain(chain, nil)

	out := formatter(opts.RootOptions, cmd.OutOrStdout())
	if opts.Format == "json" {
		docs := make([]map[string]any, len(chain))
		for i, r := range chain {
			docs[i] = lineageRecordDoc(r)
		}
		findings := make([]string, len(report.Findings))
		for i, f := range report.Findings {
			findings[i] = f.String()
		}
		data := map[string]any{
			"chain":            docs,
			"findings":         findings,
			"content_verified": report.ContentVerified,
		}
		if report.Valid() {
			if err := out.Success(data); err != nil {
				return err
			}
		} else if err := out.Failure("lineage chain broken", data); err != nil {
			return err
		}
	} else {
		for _, r := range chain {
			pred := "(root)"
			if r.PredecessorID != nil {
				pred = *r.PredecessorID
			}
			fmt.Fprintf(cmd.OutOrStdout(), "%s <- %s checksum=%s\n", r.ArtifactID, pred, r.Checksum)
		}
		for _, f := range report.Findings {
			fmt.Fprintln(cmd.OutOrStdout(), f.String())
		}
	}

	if !report.Valid() {
		return NewExitError(ExitFailure, fmt.Sprintf("lineage chain for %s is broken", artifactID))
	}
	return nil
}

func lineageRecordDoc(r lineage.Record) map[string]any {
	doc := map[string]any{
		"artifact_id":    r.ArtifactID,
		"predecessor_id": nil,
		"checksum":       r.Checksum,
		"created_at":     r.CreatedAt,
	}
	if r.PredecessorID != nil {
		doc["predecessor_id"] = *r.PredecessorID
	}
	return doc
}
