// Package snapshot captures point-in-time composite state documents and
// checksums them for later corruption detection.
//
// Capture is a shallow aggregation: the sub-documents are trusted as given.
// The checksum guarantees "this is exactly what was captured", not that the
// captured metrics were themselves correct.
package snapshot

import (
	"encoding/json"
	"fmt"
	"time"

	"github.com/google/uuid"

	"github.com/mirrordna/ledger/internal/canon"
	"github.com/mirrordna/ledger/internal/checksum"
)

// Snapshot is an immutable composite state document. The checksum covers
// every field except itself.
type Snapshot struct {
	SnapshotID      string
	CapturedAt      string // RFC 3339 UTC
	IdentityState   canon.Value
	ContinuityState canon.Value
	VaultSummary    canon.Value
	TimelineSummary canon.Value
	Checksum        string
}

// Clock supplies the capture timestamp.
type Clock interface {
	Now() time.Time
}

type systemClock struct{}

func (systemClock) Now() time.Time { return time.Now() }

// Capturer builds snapshots. The zero value is not usable; call New.
type Capturer struct {
	clock Clock
}

// Option configures a Capturer.
type Option func(*Capturer)

// WithClock replaces the system clock.
func WithClock(c Clock) Option {
	return func(cap *Capturer) { cap.clock = c }
}

// New creates a Capturer.
func New(opts ...Option) *Capturer {
	c := &Capturer{clock: systemClock{}}
	for _, opt := range opts {
		opt(c)
	}
	return c
}

// NewID returns a fresh snapshot ID of the form snap_<uuid>.
func NewID() string { return "snap_" + uuid.NewString() }

// Capture assembles the composite document, checksums it, and returns the
// immutable snapshot. Nil sub-documents are captured as empty mappings.
func (c *Capturer) Capture(snapshotID string, identityState, continuityState, vaultSummary, timelineSummary canon.Value) (Snapshot, error) {
	s := Snapshot{
		SnapshotID:      snapshotID,
		CapturedAt:      c.clock.Now().UTC().Format(time.RFC3339Nano),
		IdentityState:   orEmpty(identityState),
		ContinuityState: orEmpty(continuityState),
		VaultSummary:    orEmpty(vaultSummary),
		TimelineSummary: orEmpty(timelineSummary),
	}

	sum, err := checksum.Compute(s.document())
	if err != nil {
		return Snapshot{}, fmt.Errorf("capture snapshot %s: %w", snapshotID, err)
	}
	s.Checksum = sum
	return s, nil
}

// Verify recomputes the checksum over the non-checksum fields and compares.
// Used on load to detect corruption; mismatch is a false result, not an
// error.
func Verify(s Snapshot) (bool, error) {
	actual, err := checksum.Compute(s.document())
	if err != nil {
		return false, fmt.Errorf("verify snapshot %s: %w", s.SnapshotID, err)
	}
	return actual == s.Checksum, nil
}

// document builds the structured value the checksum covers: every field
// except the checksum itself.
func (s Snapshot) document() canon.Value {
	return canon.Mapping{
		"snapshot_id":      canon.String(s.SnapshotID),
		"captured_at":      canon.String(s.CapturedAt),
		"identity_state":   s.IdentityState,
		"continuity_state": s.ContinuityState,
		"vault_summary":    s.VaultSummary,
		"timeline_summary": s.TimelineSummary,
	}
}

func orEmpty(v canon.Value) canon.Value {
	if v == nil {
		return canon.Mapping{}
	}
	return v
}

// snapshotDocument is the persisted JSON form. Sub-documents are embedded as
// canonical bytes so loading reproduces the exact checksummed values.
type snapshotDocument struct {
	SnapshotID      string          `json:"snapshot_id"`
	CapturedAt      string          `json:"captured_at"`
	IdentityState   json.RawMessage `json:"identity_state"`
	ContinuityState json.RawMessage `json:"continuity_state"`
	VaultSummary    json.RawMessage `json:"vault_summary"`
	TimelineSummary json.RawMessage `json:"timeline_summary"`
	Checksum        string          `json:"checksum"`
}

// Marshal serializes the snapshot to its persisted JSON form.
func Marshal(s Snapshot) ([]byte, error) {
	doc := snapshotDocument{
		SnapshotID: s.SnapshotID,
		CapturedAt: s.CapturedAt,
		Checksum:   s.Checksum,
	}

	var err error
	if doc.IdentityState, err = canon.Encode(s.IdentityState); err != nil {
		return nil, fmt.Errorf("marshal snapshot %s: %w", s.SnapshotID, err)
	}
	if doc.ContinuityState, err = canon.Encode(s.ContinuityState); err != nil {
		return nil, fmt.Errorf("marshal snapshot %s: %w", s.SnapshotID, err)
	}
	if doc.VaultSummary, err = canon.Encode(s.VaultSummary); err != nil {
		return nil, fmt.Errorf("marshal snapshot %s: %w", s.SnapshotID, err)
	}
	if doc.TimelineSummary, err = canon.Encode(s.TimelineSummary); err != nil {
		return nil, fmt.Errorf("marshal snapshot %s: %w", s.SnapshotID, err)
	}

	return json.MarshalIndent(doc, "", "  ")
}

// Unmarshal loads a snapshot from its persisted JSON form. The stored
// checksum is kept verbatim so Verify can be called immediately.
func Unmarshal(data []byte) (Snapshot, error) {
	var doc snapshotDocument
	if err := json.Unmarshal(data, &doc); err != nil {
		return Snapshot{}, fmt.Errorf("unmarshal snapshot: %w", err)
	}

	s := Snapshot{
		SnapshotID: doc.SnapshotID,
		CapturedAt: doc.CapturedAt,
		Checksum:   doc.Checksum,
	}

	var err error
	if s.IdentityState, err = canon.FromJSON(doc.IdentityState); err != nil {
		return Snapshot{}, fmt.Errorf("unmarshal snapshot %s identity_state: %w", doc.SnapshotID, err)
	}
	if s.ContinuityState, err = canon.FromJSON(doc.ContinuityState); err != nil {
		return Snapshot{}, fmt.Errorf("unmarshal snapshot %s continuity_state: %w", doc.SnapshotID, err)
	}
	if s.VaultSummary, err = canon.FromJSON(doc.VaultSummary); err != nil {
		return Snapshot{}, fmt.Errorf("unmarshal snapshot %s vault_summary: %w", doc.SnapshotID, err)
	}
	if s.TimelineSummary, err = canon.FromJSON(doc.TimelineSummary); err != nil {
		return Snapshot{}, fmt.Errorf("unmarshal snapshot %s timeline_summary: %w", doc.SnapshotID, err)
	}

	return s, nil
}
