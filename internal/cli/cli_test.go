package cli

import (
	"bytes"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func execute(t *testing.T, args ...string) (string, error) {
	t.Helper()
	cmd := NewRootCommand()
	var buf bytes.Buffer
	cmd.SetOut(&buf)
	cmd.SetErr(&buf)
	cmd.SetArgs(args)
	err := cmd.Execute()
	return buf.String(), err
}

func TestRootRejectsInvalidFormat(t *testing.T) {
	_, err := execute(t, "--format", "xml", "checksum", "--json", "{}")
	require.Error(t, err)
	assert.Contains(t, err.Error(), "invalid format")
}

func TestChecksumJSON(t *testing.T) {
	// Key order must not matter.
	out1, err := execute(t, "checksum", "--json", `{"a":1,"b":"x"}`)
	require.NoError(t, err)
	out2, err := execute(t, "checksum", "--json", `{"b":"x","a":1}`)
	require.NoError(t, err)

	assert.Equal(t, out1, out2)
	assert.Contains(t, out1, "ecf9e98ec0641e23113ff3ce8bdc78d0ddd249886517fd4a7f68cc83d4e65667")
}

func TestChecksumFile(t *testing.T) {
	path := filepath.Join(t.TempDir(), "sample.txt")
	require.NoError(t, os.WriteFile(path, []byte("Sample content for checksum\n"), 0o644))

	out, err := execute(t, "checksum", path)
	require.NoError(t, err)
	assert.Contains(t, out, "6318c06e086465057aca8a40fdfaa32ea70b73b0443dd560eb4625e699a3b2af")
}

func TestChecksumExpectMismatch(t *testing.T) {
	path := filepath.Join(t.TempDir(), "sample.txt")
	require.NoError(t, os.WriteFile(path, []byte("Sample content for checksum\n"), 0o644))

	wrong := "0000000000000000000000000000000000000000000000000000000000000000"
	_, err := execute(t, "checksum", path, "--expect", wrong)
	require.Error(t, err)
	assert.Equal(t, ExitFailure, GetExitCode(err))

	_, err = execute(t, "checksum", path, "--expect", "nothex")
	require.Error(t, err)
	assert.Contains(t, err.Error(), "well-formed")
}

func TestChecksumRequiresOneInput(t *testing.T) {
	_, err := execute(t, "checksum")
	require.Error(t, err)

	_, err = execute(t, "checksum", "file.txt", "--json", "{}")
	require.Error(t, err)
}

func TestAppendAndVerifyFlow(t *testing.T) {
	db := filepath.Join(t.TempDir(), "ledger.db")

	out, err := execute(t, "--db", db, "append", "tl-cli", "session_start",
		"--actor", "agent-primary", "--payload", `{"phase":"boot"}`)
	require.NoError(t, err)
	assert.Contains(t, out, "seq=0")

	out, err = execute(t, "--db", db, "append", "tl-cli", "checkpoint",
		"--actor", "agent-primary")
	require.NoError(t, err)
	assert.Contains(t, out, "seq=1")

	out, err = execute(t, "--db", db, "verify", "tl-cli")
	require.NoError(t, err)
	assert.Contains(t, out, "intact")
}

func TestVerifyUnknownTimeline(t *testing.T) {
	db := filepath.Join(t.TempDir(), "ledger.db")

	_, err := execute(t, "--db", db, "verify", "tl-missing")
	require.Error(t, err)
	assert.Equal(t, ExitCommandError, GetExitCode(err))
}

func TestSnapshotCaptureAndVerify(t *testing.T) {
	db := filepath.Join(t.TempDir(), "ledger.db")

	_, err := execute(t, "--db", db, "append", "tl-snap", "session_start",
		"--actor", "agent-primary")
	require.NoError(t, err)

	out, err := execute(t, "--db", db, "snapshot", "capture", "tl-snap",
		"--identity", `{"identity_id":"mdna_agt_0011223344556677"}`)
	require.NoError(t, err)
	assert.Contains(t, out, "captured snap_")
}

func TestLineageCreateAndTrack(t *testing.T) {
	db := filepath.Join(t.TempDir(), "ledger.db")

	out, err := execute(t, "--db", db, "lineage", "create",
		"--type", "config", "--content", `{"retention_days":30}`)
	require.NoError(t, err)
	assert.Contains(t, out, "created art_config_")
}

func TestDrift(t *testing.T) {
	_, err := execute(t, "drift",
		"--expected", `{"name":"agent-primary"}`,
		"--actual", `{"name":"agent-primary"}`)
	require.NoError(t, err)

	_, err = execute(t, "drift",
		"--expected", `{"name":"agent-primary"}`,
		"--actual", `{"name":"impostor"}`)
	require.Error(t, err)
	assert.Equal(t, ExitFailure, GetExitCode(err))
}

func TestValidateCommand(t *testing.T) {
	dir := t.TempDir()

	valid := filepath.Join(dir, "identity.json")
	require.NoError(t, os.WriteFile(valid, []byte(`{
		"identity_id": "mdna_agt_0011223344556677",
		"identity_type": "agt",
		"created_at": "2026-01-02T03:04:05Z",
		"metadata": {},
		"checksum": "ecf9e98ec0641e23113ff3ce8bdc78d0ddd249886517fd4a7f68cc83d4e65667"
	}`), 0o644))

	out, err := execute(t, "validate", "identity", valid)
	require.NoError(t, err)
	assert.Contains(t, out, "valid")

	invalid := filepath.Join(dir, "bad.json")
	require.NoError(t, os.WriteFile(invalid, []byte(`{"identity_id": "nope"}`), 0o644))

	_, err = execute(t, "validate", "identity", invalid)
	require.Error(t, err)
	assert.Equal(t, ExitFailure, GetExitCode(err))

	_, err = execute(t, "validate", "unknown-kind", valid)
	require.Error(t, err)
	assert.Equal(t, ExitCommandError, GetExitCode(err))
}

func TestScenarioCommand(t *testing.T) {
	scenario := filepath.Join(t.TempDir(), "scenario.yaml")
	require.NoError(t, os.WriteFile(scenario, []byte(`
name: cli-tamper
description: Tamper detection through the CLI scenario runner.
steps:
  - append:
      event_type: session_start
      actor: agent-primary
  - tamper:
      pos: 0
      field: actor
      value: impostor
  - verify:
      expect: [CHECKSUM_MISMATCH]
`), 0o644))

	out, err := execute(t, "scenario", scenario)
	require.NoError(t, err)
	assert.Contains(t, out, "passed")
}
