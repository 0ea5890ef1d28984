package identity

import (
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/mirrordna/ledger/internal/canon"
	"github.com/mirrordna/ledger/internal/checksum"
	"github.com/mirrordna/ledger/internal/testutil"
)

func newTestManager() *Manager {
	return New(
		WithClock(testutil.FixedClock{T: testutil.Epoch}),
		WithIDGenerator(testutil.NewSequentialIDs("i")),
	)
}

func TestCreateBindsChecksum(t *testing.T) {
	m := newTestManager()

	id, err := m.Create(KindAgent, canon.Map(canon.P("name", canon.String("agent-primary"))))
	require.NoError(t, err)

	assert.Equal(t, "mdna_agt_i-0001", id.ID)
	assert.Equal(t, KindAgent, id.Kind)
	assert.Equal(t, "2026-01-02T03:04:05Z", id.CreatedAt)
	assert.True(t, checksum.Valid(id.Checksum))

	ok, err := Verify(id)
	require.NoError(t, err)
	assert.True(t, ok)
}

func TestCreateKindPrefixes(t *testing.T) {
	m := newTestManager()

	for kind, prefix := range map[Kind]string{
		KindUser:   "mdna_usr_",
		KindAgent:  "mdna_agt_",
		KindSystem: "mdna_sys_",
	} {
		id, err := m.Create(kind, nil)
		require.NoError(t, err)
		assert.True(t, strings.HasPrefix(id.ID, prefix), "id %s for kind %s", id.ID, kind)
		assert.Equal(t, canon.Mapping{}, id.Metadata)
	}
}

func TestCreateRejectsUnknownKind(t *testing.T) {
	m := newTestManager()

	_, err := m.Create(Kind("bot"), nil)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "bot")
}

func TestVerifyDetectsTamperedMetadata(t *testing.T) {
	m := newTestManager()

	id, err := m.Create(KindAgent, canon.Map(canon.P("role", canon.String("primary"))))
	require.NoError(t, err)

	tampered := id
	tampered.Metadata = canon.Map(canon.P("role", canon.String("impostor")))
	ok, err := Verify(tampered)
	require.NoError(t, err)
	assert.False(t, ok)

	tampered = id
	tampered.CreatedAt = "2020-01-01T00:00:00Z"
	ok, err = Verify(tampered)
	require.NoError(t, err)
	assert.False(t, ok)
}

func TestDocumentIncludesChecksum(t *testing.T) {
	m := newTestManager()

	id, err := m.Create(KindSystem, nil)
	require.NoError(t, err)

	doc, ok := id.Document().(canon.Mapping)
	require.True(t, ok)
	assert.Equal(t, canon.String(id.ID), doc["identity_id"])
	assert.Equal(t, canon.String("sys"), doc["identity_type"])
	assert.Equal(t, canon.String(id.Checksum), doc["checksum"])
}

func TestRandomSuffixesAreUnique(t *testing.T) {
	m := New(WithClock(testutil.FixedClock{T: testutil.Epoch}))

	a, err := m.Create(KindAgent, nil)
	require.NoError(t, err)
	b, err := m.Create(KindAgent, nil)
	require.NoError(t, err)
	assert.NotEqual(t, a.ID, b.ID)
}
