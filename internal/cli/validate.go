package cli

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"

	"github.com/mirrordna/ledger/internal/schema"
)

// Document kinds accepted by the validate command.
var validateKinds = []string{"identity", "lineage", "event"}

// NewValidateCommand creates the validate command.
func NewValidateCommand(rootOpts *RootOptions) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "validate <kind> <file>",
		Short: "Validate a boundary document against the ledger schemas",
		Long: `Validate a JSON document against the embedded schemas before it enters
the ledger. Kind is one of: identity, lineage, event.

Example:
  mirrordna validate identity vault/identity.json`,
		Args:          cobra.ExactArgs(2),
		SilenceUsage:  true,
		SilenceErrors: true,
		RunE: func(cmd *cobra.Command, args []string) error {
			return runValidate(rootOpts, cmd, args[0], args[1])
		},
	}
	return cmd
}

func runValidate(opts *RootOptions, cmd *cobra.Command, kind, path string) error {
	data, err := os.ReadFile(path)
	if err != nil {
		return err
	}

	validator, err := schema.NewValidator()
	if err != nil {
		return err
	}

	var errs []schema.ValidationError
	switch kind {
	case "identity":
		errs = validator.ValidateIdentity(data)
	case "lineage":
		errs = validator.ValidateLineageRecord(data)
	case "event":
		errs = validator.ValidateEvent(data)
	default:
		return fmt.Errorf("unknown document kind %q: must be one of %v", kind, validateKinds)
	}

	out := formatter(opts, cmd.OutOrStdout())
	if len(errs) == 0 {
		return out.Success(fmt.Sprintf("%s document valid", kind))
	}

	if opts.Format == "json" {
		if err := out.Failure("document invalid", errs); err != nil {
			return err
		}
	} else {
		for _, e := range errs {
			fmt.Fprintln(cmd.OutOrStdout(), e.Error())
		}
	}
	return NewExitError(ExitFailure, fmt.Sprintf("%d schema violations in %s", len(errs), path))
}
