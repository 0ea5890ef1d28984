package harness

import (
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/mirrordna/ledger/internal/timeline"
)

func loadTestScenario(t *testing.T, name string) *Scenario {
	t.Helper()
	s, err := LoadScenario(filepath.Join("testdata", "scenarios", name+".yaml"))
	require.NoError(t, err)
	return s
}

func TestScenarioGoldens(t *testing.T) {
	names := []string{
		"clean-append",
		"tamper-payload",
		"dropped-event",
		"timestamp-regression",
	}
	for _, name := range names {
		t.Run(name, func(t *testing.T) {
			scenario := loadTestScenario(t, name)
			require.NoError(t, RunWithGolden(t, scenario))
		})
	}
}

func TestRunCleanScenario(t *testing.T) {
	result, err := Run(loadTestScenario(t, "clean-append"))
	require.NoError(t, err)

	assert.Len(t, result.Events, 3)
	assert.Empty(t, result.Violations)
	assert.Len(t, result.Trace, 4)
}

func TestRunTamperScenario(t *testing.T) {
	result, err := Run(loadTestScenario(t, "tamper-payload"))
	require.NoError(t, err)

	require.Len(t, result.Violations, 1)
	assert.Equal(t, timeline.ViolationChecksum, result.Violations[0].Kind)
	assert.Equal(t, uint64(1), result.Violations[0].Seq)
}

func TestRunFailsOnVerifyMismatch(t *testing.T) {
	scenario, err := ParseScenario([]byte(`
name: wrong-expectation
description: A verify step expecting violations on a clean timeline fails.
steps:
  - append:
      event_type: session_start
      actor: agent-primary
  - verify:
      expect: [CHECKSUM_MISMATCH]
`))
	require.NoError(t, err)

	_, err = Run(scenario)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "expected [CHECKSUM_MISMATCH]")
}

func TestRunFailsOnExpectMismatch(t *testing.T) {
	scenario, err := ParseScenario([]byte(`
name: wrong-count
description: A final event-count expectation that does not hold fails the run.
steps:
  - append:
      event_type: session_start
      actor: agent-primary
expect:
  event_count: 2
`))
	require.NoError(t, err)

	_, err = Run(scenario)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "expected 2")
}

func TestRunTamperOutOfRange(t *testing.T) {
	scenario, err := ParseScenario([]byte(`
name: out-of-range
description: Tampering past the end of the timeline is a malformed step.
steps:
  - append:
      event_type: session_start
      actor: agent-primary
  - tamper:
      pos: 5
      field: actor
      value: impostor
`))
	require.NoError(t, err)

	_, err = Run(scenario)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "out of range")
}

func TestTamperChecksumDetected(t *testing.T) {
	scenario, err := ParseScenario([]byte(`
name: tamper-checksum
description: Rewriting a stored checksum is itself a checksum mismatch.
steps:
  - append:
      event_type: session_start
      actor: agent-primary
  - tamper:
      pos: 0
      field: checksum
      value: "0000000000000000000000000000000000000000000000000000000000000000"
  - verify:
      expect: [CHECKSUM_MISMATCH]
`))
	require.NoError(t, err)

	_, err = Run(scenario)
	require.NoError(t, err)
}

func TestAppendAfterDropContinuesFromRestoredState(t *testing.T) {
	scenario, err := ParseScenario([]byte(`
name: append-after-drop
description: Appends after a drop continue from the restored sequence.
steps:
  - append:
      event_type: session_start
      actor: agent-primary
  - append:
      event_type: checkpoint
      actor: agent-primary
  - drop:
      pos: 1
  - append:
      event_type: checkpoint
      actor: agent-primary
  - verify:
      expect: []
expect:
  event_count: 2
  violations: []
`))
	require.NoError(t, err)

	result, err := Run(scenario)
	require.NoError(t, err)
	assert.Equal(t, uint64(1), result.Events[1].Seq)
}
