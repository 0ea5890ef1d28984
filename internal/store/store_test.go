package store

import (
	"context"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/mirrordna/ledger/internal/canon"
	"github.com/mirrordna/ledger/internal/identity"
	"github.com/mirrordna/ledger/internal/lineage"
	"github.com/mirrordna/ledger/internal/snapshot"
	"github.com/mirrordna/ledger/internal/testutil"
	"github.com/mirrordna/ledger/internal/timeline"
)

func openTestStore(t *testing.T) *Store {
	t.Helper()
	s, err := Open(filepath.Join(t.TempDir(), "ledger.db"))
	require.NoError(t, err)
	t.Cleanup(func() { s.Close() })
	return s
}

func newTestTimeline(t *testing.T, n int) *timeline.Timeline {
	t.Helper()
	tl := timeline.New("tl-store",
		timeline.WithClock(testutil.NewSteppingClock()),
		timeline.WithIDGenerator(testutil.NewSequentialIDs("evt")),
	)
	for i := 0; i < n; i++ {
		_, err := tl.Append("checkpoint", "agent-primary", canon.Mapping{
			"i": canon.Int(int64(i)),
		})
		require.NoError(t, err)
	}
	return tl
}

func TestOpenAppliesPragmas(t *testing.T) {
	s := openTestStore(t)

	assert.NoError(t, s.verifyPragma("journal_mode", "wal"))
	assert.NoError(t, s.verifyPragma("foreign_keys", "1"))
}

func TestOpenIsIdempotent(t *testing.T) {
	path := filepath.Join(t.TempDir(), "ledger.db")

	s1, err := Open(path)
	require.NoError(t, err)
	require.NoError(t, s1.Close())

	s2, err := Open(path)
	require.NoError(t, err)
	require.NoError(t, s2.Close())
}

func TestTimelineRoundTrip(t *testing.T) {
	s := openTestStore(t)
	ctx := context.Background()
	tl := newTestTimeline(t, 4)

	require.NoError(t, s.SaveTimeline(ctx, tl.ID(), tl.Events()))

	loaded, err := s.LoadTimeline(ctx, tl.ID())
	require.NoError(t, err)
	assert.Equal(t, tl.ID(), loaded.ID())
	assert.Equal(t, tl.Events(), loaded.Events())
	assert.Empty(t, loaded.VerifyIntegrity())
}

func TestTimelineRoundTripPreservesViolations(t *testing.T) {
	s := openTestStore(t)
	ctx := context.Background()
	tl := newTestTimeline(t, 3)

	// Save a tampered copy; the load must report the same findings.
	events := tl.Events()
	events[1].Payload = canon.Mapping{"i": canon.Int(999)}
	tampered := timeline.Restore(tl.ID(), events)
	before := tampered.VerifyIntegrity()
	require.Len(t, before, 1)

	require.NoError(t, s.SaveTimeline(ctx, tampered.ID(), tampered.Events()))
	loaded, err := s.LoadTimeline(ctx, tampered.ID())
	require.NoError(t, err)

	assert.Equal(t, before, loaded.VerifyIntegrity(),
		"verification after load must reproduce the pre-save result")
}

func TestSaveTimelineReplaces(t *testing.T) {
	s := openTestStore(t)
	ctx := context.Background()
	tl := newTestTimeline(t, 5)

	require.NoError(t, s.SaveTimeline(ctx, tl.ID(), tl.Events()))
	require.NoError(t, s.SaveTimeline(ctx, tl.ID(), tl.Events()[:2]))

	loaded, err := s.LoadTimeline(ctx, tl.ID())
	require.NoError(t, err)
	assert.Equal(t, 2, loaded.Len())
}

func TestLoadTimelineNotFound(t *testing.T) {
	s := openTestStore(t)

	_, err := s.LoadTimeline(context.Background(), "tl-missing")
	require.Error(t, err)
	assert.ErrorIs(t, err, ErrNotFound)
}

func TestListAndDeleteTimelines(t *testing.T) {
	s := openTestStore(t)
	ctx := context.Background()

	require.NoError(t, s.SaveTimeline(ctx, "tl-b", nil))
	require.NoError(t, s.SaveTimeline(ctx, "tl-a", nil))

	ids, err := s.ListTimelines(ctx)
	require.NoError(t, err)
	assert.Equal(t, []string{"tl-a", "tl-b"}, ids)

	require.NoError(t, s.DeleteTimeline(ctx, "tl-a"))
	ids, err = s.ListTimelines(ctx)
	require.NoError(t, err)
	assert.Equal(t, []string{"tl-b"}, ids)

	// Unknown id is a no-op.
	require.NoError(t, s.DeleteTimeline(ctx, "tl-missing"))
}

func TestSnapshotRoundTrip(t *testing.T) {
	s := openTestStore(t)
	ctx := context.Background()

	cap := snapshot.New(snapshot.WithClock(testutil.FixedClock{T: testutil.Epoch}))
	snap, err := cap.Capture("snap-store",
		canon.Map(canon.P("identity_id", canon.String("mdna_agt_0011223344556677"))),
		canon.Map(canon.P("score", canon.Float(0.9))),
		canon.Map(canon.P("artifact_count", canon.Int(2))),
		canon.Map(canon.P("event_count", canon.Int(3))),
	)
	require.NoError(t, err)

	require.NoError(t, s.SaveSnapshot(ctx, snap))

	loaded, err := s.LoadSnapshot(ctx, snap.SnapshotID)
	require.NoError(t, err)
	assert.Equal(t, snap, loaded)

	ok, err := snapshot.Verify(loaded)
	require.NoError(t, err)
	assert.True(t, ok, "loaded snapshot must verify without recomputation from other sources")

	ids, err := s.ListSnapshots(ctx)
	require.NoError(t, err)
	assert.Equal(t, []string{"snap-store"}, ids)
}

func TestLoadSnapshotNotFound(t *testing.T) {
	s := openTestStore(t)

	_, err := s.LoadSnapshot(context.Background(), "snap-missing")
	require.Error(t, err)
	assert.ErrorIs(t, err, ErrNotFound)
}

func TestLineageTrackerOverSQLite(t *testing.T) {
	s := openTestStore(t)
	ctx := context.Background()

	tracker := lineage.New(s.LineageStore(ctx),
		lineage.WithClock(testutil.NewSteppingClock()),
		lineage.WithIDGenerator(testutil.NewSequentialIDs("a")),
	)

	contents := make(map[string]canon.Value)
	var pred *string
	var last lineage.Record
	for i := 0; i < 3; i++ {
		content := canon.Map(canon.P("generation", canon.Int(int64(i))))
		r, err := tracker.CreateArtifact(content, "config", pred)
		require.NoError(t, err)
		contents[r.ArtifactID] = content
		id := r.ArtifactID
		pred = &id
		last = r
	}

	chain, err := tracker.TrackLineage(last.ArtifactID)
	require.NoError(t, err)
	require.Len(t, chain, 3)
	assert.Equal(t, last, chain[2])
	assert.Nil(t, chain[0].PredecessorID)

	report := lineage.VerifyChain(chain, contents)
	assert.True(t, report.Valid())
	assert.True(t, report.ContentVerified)
}

func TestGetLineageRecordMissing(t *testing.T) {
	s := openTestStore(t)

	_, found, err := s.GetLineageRecord(context.Background(), "art_config_missing")
	require.NoError(t, err)
	assert.False(t, found)
}

func TestIdentityRoundTrip(t *testing.T) {
	s := openTestStore(t)
	ctx := context.Background()

	m := identity.New(
		identity.WithClock(testutil.FixedClock{T: testutil.Epoch}),
		identity.WithIDGenerator(testutil.NewSequentialIDs("i")),
	)
	id, err := m.Create(identity.KindAgent, canon.Map(canon.P("name", canon.String("agent-primary"))))
	require.NoError(t, err)

	require.NoError(t, s.SaveIdentity(ctx, id))

	loaded, err := s.LoadIdentity(ctx, id.ID)
	require.NoError(t, err)
	assert.Equal(t, id, loaded)

	ok, err := identity.Verify(loaded)
	require.NoError(t, err)
	assert.True(t, ok)

	_, err = s.LoadIdentity(ctx, "mdna_agt_missing")
	assert.ErrorIs(t, err, ErrNotFound)
}
