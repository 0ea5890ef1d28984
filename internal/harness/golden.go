package harness

import (
	"testing"

	"github.com/sebdah/goldie/v2"

	"github.com/mirrordna/ledger/internal/canon"
)

// snapshot builds the canonical document compared against golden files.
// Everything in it is deterministic across runs.
func snapshot(result *Result) canon.Value {
	return canon.Mapping{
		"scenario_name":    canon.String(result.Scenario.Name),
		"trace":            canon.Sequence(result.Trace),
		"event_count":      canon.Int(int64(len(result.Events))),
		"final_violations": kindsValue(violationKinds(result.Violations)),
	}
}

// RunWithGolden executes a scenario and compares its canonical trace
// against testdata/golden/{scenario.Name}.golden.
//
// To regenerate golden files, run:
//
//	go test ./internal/harness -update
func RunWithGolden(t *testing.T, scenario *Scenario) error {
	t.Helper()

	result, err := Run(scenario)
	if err != nil {
		return err
	}

	data, err := canon.Encode(snapshot(result))
	if err != nil {
		return err
	}

	g := goldie.New(t,
		goldie.WithFixtureDir("testdata/golden"),
		goldie.WithNameSuffix(".golden"),
	)
	g.Assert(t, scenario.Name, data)

	return nil
}
