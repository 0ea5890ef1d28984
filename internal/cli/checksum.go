package cli

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/mirrordna/ledger/internal/canon"
	"github.com/mirrordna/ledger/internal/checksum"
	"github.com/mirrordna/ledger/internal/schema"
)

// ChecksumOptions holds flags for the checksum command.
type ChecksumOptions struct {
	*RootOptions
	JSON   string
	Expect string
}

// NewChecksumCommand creates the checksum command.
func NewChecksumCommand(rootOpts *RootOptions) *cobra.Command {
	opts := &ChecksumOptions{RootOptions: rootOpts}

	cmd := &cobra.Command{
		Use:   "checksum [file]",
		Short: "Compute or verify a SHA-256 checksum",
		Long: `Compute the checksum of a file (streamed in chunks) or, with --json,
of a structured document in canonical form.

Examples:
  mirrordna checksum vault/identity.json
  mirrordna checksum --json '{"b":1,"a":2}'
  mirrordna checksum vault/identity.json --expect <64-hex>`,
		Args:          cobra.MaximumNArgs(1),
		SilenceUsage:  true,
		SilenceErrors: true,
		RunE: func(cmd *cobra.Command, args []string) error {
			return runChecksum(opts, cmd, args)
		},
	}

	cmd.Flags().StringVar(&opts.JSON, "json", "", "checksum this JSON document instead of a file")
	cmd.Flags().StringVar(&opts.Expect, "expect", "", "verify against this checksum instead of printing")

	return cmd
}

func runChecksum(opts *ChecksumOptions, cmd *cobra.Command, args []string) error {
	if (opts.JSON == "") == (len(args) == 0) {
		return fmt.Errorf("provide either a file argument or --json, not both")
	}

	if opts.Expect != "" {
		validator, err := schema.NewValidator()
		if err != nil {
			return err
		}
		if errs := validator.ValidateChecksum(opts.Expect); len(errs) > 0 {
			return fmt.Errorf("--expect: %s", errs[0].Message)
		}
	}

	var sum string
	var err error
	if opts.JSON != "" {
		var v canon.Value
		if v, err = canon.FromJSON([]byte(opts.JSON)); err != nil {
			return fmt.Errorf("invalid --json document: %w", err)
		}
		sum, err = checksum.Compute(v)
	} else {
		sum, err = checksum.ComputeFile(args[0])
	}
	if err != nil {
		return err
	}

	out := formatter(opts.RootOptions, cmd.OutOrStdout())
	if opts.Expect == "" {
		return out.Success(sum)
	}

	if sum != opts.Expect {
		if err := out.Failure("checksum mismatch", map[string]string{
			"expected": opts.Expect,
			"actual":   sum,
		}); err != nil {
			return err
		}
		return NewExitError(ExitFailure, "checksum mismatch")
	}
	return out.Success("checksum verified")
}
