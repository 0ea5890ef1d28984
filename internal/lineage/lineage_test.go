package lineage

import (
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/mirrordna/ledger/internal/canon"
	"github.com/mirrordna/ledger/internal/checksum"
	"github.com/mirrordna/ledger/internal/testutil"
)

func newTestTracker(t *testing.T) (*Tracker, *MemoryStore) {
	t.Helper()
	store := NewMemoryStore()
	tracker := New(store,
		WithClock(testutil.NewSteppingClock()),
		WithIDGenerator(testutil.NewSequentialIDs("a")),
	)
	return tracker, store
}

func buildChain(t *testing.T, tracker *Tracker, n int) ([]Record, map[string]canon.Value) {
	t.Helper()
	contents := make(map[string]canon.Value)
	var records []Record
	var pred *string
	for i := 0; i < n; i++ {
		content := canon.Map(canon.P("generation", canon.Int(int64(i))))
		r, err := tracker.CreateArtifact(content, "config", pred)
		require.NoError(t, err)
		contents[r.ArtifactID] = content
		records = append(records, r)
		id := r.ArtifactID
		pred = &id
	}
	return records, contents
}

func TestCreateArtifact(t *testing.T) {
	tracker, _ := newTestTracker(t)

	root, err := tracker.CreateArtifact(canon.Map(canon.P("v", canon.Int(1))), "config", nil)
	require.NoError(t, err)
	assert.Equal(t, "art_config_a-0001", root.ArtifactID)
	assert.Nil(t, root.PredecessorID)
	assert.True(t, checksum.Valid(root.Checksum))
	assert.True(t, strings.HasPrefix(root.CreatedAt, "2026-01-02T03:04:05"))

	child, err := tracker.CreateArtifact(canon.Map(canon.P("v", canon.Int(2))), "config", &root.ArtifactID)
	require.NoError(t, err)
	require.NotNil(t, child.PredecessorID)
	assert.Equal(t, root.ArtifactID, *child.PredecessorID)
	assert.NotEqual(t, root.Checksum, child.Checksum)
}

func TestCreateArtifactUnknownPredecessor(t *testing.T) {
	tracker, _ := newTestTracker(t)

	missing := "art_config_nope"
	_, err := tracker.CreateArtifact(canon.Mapping{}, "config", &missing)
	require.Error(t, err)
	assert.True(t, IsLineageError(err))
	assert.Contains(t, err.Error(), missing)
}

func TestCreateArtifactRejectsUnencodableContent(t *testing.T) {
	tracker, _ := newTestTracker(t)

	cyclic := canon.Mapping{}
	cyclic["self"] = cyclic

	_, err := tracker.CreateArtifact(cyclic, "config", nil)
	require.Error(t, err)
	assert.True(t, canon.IsEncodingError(err))
}

func TestTrackLineageRootFirst(t *testing.T) {
	tracker, _ := newTestTracker(t)
	records, _ := buildChain(t, tracker, 4)

	chain, err := tracker.TrackLineage(records[3].ArtifactID)
	require.NoError(t, err)
	require.Len(t, chain, 4)

	// Root ancestor first, the requested artifact last; each record's
	// predecessor is the record immediately before it.
	assert.Equal(t, records[0], chain[0])
	assert.Equal(t, records[3], chain[3])
	assert.Nil(t, chain[0].PredecessorID)
	for i := 1; i < len(chain); i++ {
		require.NotNil(t, chain[i].PredecessorID)
		assert.Equal(t, chain[i-1].ArtifactID, *chain[i].PredecessorID)
	}
}

func TestTrackLineageUnknownArtifact(t *testing.T) {
	tracker, _ := newTestTracker(t)

	_, err := tracker.TrackLineage("art_config_missing")
	require.Error(t, err)
	assert.True(t, IsLineageError(err))
}

func TestTrackLineageStopsAtMissingPredecessor(t *testing.T) {
	tracker, store := newTestTracker(t)
	records, _ := buildChain(t, tracker, 3)

	// Drop the root record, as a corrupted store might.
	delete(store.records, records[0].ArtifactID)

	chain, err := tracker.TrackLineage(records[2].ArtifactID)
	require.NoError(t, err)
	require.Len(t, chain, 2)

	report := VerifyChain(chain, nil)
	assert.False(t, report.Valid())
	assert.False(t, report.ContentVerified)
	require.Len(t, report.Findings, 1)
	assert.Equal(t, FindingMissingLink, report.Findings[0].Kind)
	assert.Equal(t, records[1].ArtifactID, report.Findings[0].ArtifactID)
}

func TestTrackLineageCycleTerminates(t *testing.T) {
	tracker, store := newTestTracker(t)
	records, _ := buildChain(t, tracker, 2)

	// Corrupt the root to point back at its descendant.
	root := records[0]
	root.PredecessorID = &records[1].ArtifactID
	require.NoError(t, store.Put(root))

	chain, err := tracker.TrackLineage(records[1].ArtifactID)
	require.NoError(t, err)
	require.Len(t, chain, 3, "walk must terminate on revisit")

	report := VerifyChain(chain, nil)
	assert.False(t, report.Valid())
	found := false
	for _, f := range report.Findings {
		if f.Kind == FindingDuplicate {
			found = true
		}
	}
	assert.True(t, found, "expected a duplicate finding, got %v", report.Findings)
}

func TestVerifyChainCleanWithContent(t *testing.T) {
	tracker, _ := newTestTracker(t)
	records, contents := buildChain(t, tracker, 3)

	chain, err := tracker.TrackLineage(records[2].ArtifactID)
	require.NoError(t, err)

	report := VerifyChain(chain, contents)
	assert.True(t, report.Valid())
	assert.True(t, report.ContentVerified)
}

func TestVerifyChainDetectsTamperedContent(t *testing.T) {
	tracker, _ := newTestTracker(t)
	records, contents := buildChain(t, tracker, 3)

	contents[records[1].ArtifactID] = canon.Map(canon.P("generation", canon.Int(999)))

	chain, err := tracker.TrackLineage(records[2].ArtifactID)
	require.NoError(t, err)

	report := VerifyChain(chain, contents)
	assert.False(t, report.Valid())
	require.Len(t, report.Findings, 1)
	assert.Equal(t, FindingChecksumMismatch, report.Findings[0].Kind)
	assert.Equal(t, records[1].ArtifactID, report.Findings[0].ArtifactID)
}

func TestVerifyChainWithoutContentIsLinkOnly(t *testing.T) {
	tracker, _ := newTestTracker(t)
	records, _ := buildChain(t, tracker, 2)

	chain, err := tracker.TrackLineage(records[1].ArtifactID)
	require.NoError(t, err)

	report := VerifyChain(chain, nil)
	assert.True(t, report.Valid())
	assert.False(t, report.ContentVerified,
		"link-only verification must be reported as such")
}

func TestVerifyChainDetectsBrokenLinkOrder(t *testing.T) {
	tracker, _ := newTestTracker(t)
	records, _ := buildChain(t, tracker, 3)

	// A chain assembled out of order: records whose predecessors do not
	// match the record immediately before them.
	mangled := []Record{records[2], records[0], records[1]}
	report := VerifyChain(mangled, nil)
	assert.False(t, report.Valid())
}

func TestVerifyChainSingleRoot(t *testing.T) {
	tracker, _ := newTestTracker(t)
	records, contents := buildChain(t, tracker, 1)

	report := VerifyChain(records, contents)
	assert.True(t, report.Valid())
	assert.True(t, report.ContentVerified)
}
