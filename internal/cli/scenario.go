package cli

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/mirrordna/ledger/internal/harness"
)

// NewScenarioCommand creates the scenario command.
func NewScenarioCommand(rootOpts *RootOptions) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "scenario <file.yaml>",
		Short: "Run a conformance scenario",
		Long: `Run a YAML conformance scenario: append events, apply controlled
corruption, and check that verification reports exactly the expected
findings. Exits 1 when an expectation fails.`,
		Args:          cobra.ExactArgs(1),
		SilenceUsage:  true,
		SilenceErrors: true,
		RunE: func(cmd *cobra.Command, args []string) error {
			return runScenario(rootOpts, cmd, args[0])
		},
	}
	return cmd
}

func runScenario(opts *RootOptions, cmd *cobra.Command, path string) error {
	scenario, err := harness.LoadScenario(path)
	if err != nil {
		return err
	}

	result, err := harness.Run(scenario)
	if err != nil {
		return NewExitError(ExitFailure, err.Error())
	}

	out := formatter(opts, cmd.OutOrStdout())
	if opts.Format == "json" {
		kinds := make([]string, len(result.Violations))
		for i, v := range result.Violations {
			kinds[i] = string(v.Kind)
		}
		return out.Success(map[string]any{
			"scenario":    scenario.Name,
			"steps":       len(scenario.Steps),
			"event_count": len(result.Events),
			"violations":  kinds,
		})
	}
	return out.Success(fmt.Sprintf("scenario %s passed (%d steps, %d events, %d violations)",
		scenario.Name, len(scenario.Steps), len(result.Events), len(result.Violations)))
}
