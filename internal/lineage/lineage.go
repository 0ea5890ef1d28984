// Package lineage records artifact provenance as checksum-bearing records
// linked by predecessor references, and verifies chains of them.
package lineage

import (
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"

	"github.com/mirrordna/ledger/internal/canon"
	"github.com/mirrordna/ledger/internal/checksum"
)

// Record is one link in a lineage chain. PredecessorID is nil for a root
// artifact. CreatedAt is RFC 3339 UTC.
type Record struct {
	ArtifactID    string
	PredecessorID *string
	Checksum      string
	CreatedAt     string
}

// Store is the backing collection for lineage records. Get reports found
// separately from I/O failure so a missing artifact is not an error at this
// layer.
type Store interface {
	Put(Record) error
	Get(artifactID string) (Record, bool, error)
}

// MemoryStore is an in-process Store, suitable for tests and for callers
// that persist elsewhere.
type MemoryStore struct {
	records map[string]Record
}

// NewMemoryStore creates an empty MemoryStore.
func NewMemoryStore() *MemoryStore {
	return &MemoryStore{records: make(map[string]Record)}
}

// Put stores or replaces a record.
func (s *MemoryStore) Put(r Record) error {
	s.records[r.ArtifactID] = r
	return nil
}

// Get looks up a record by artifact ID.
func (s *MemoryStore) Get(artifactID string) (Record, bool, error) {
	r, ok := s.records[artifactID]
	return r, ok, nil
}

// Clock supplies record creation timestamps.
type Clock interface {
	Now() time.Time
}

type systemClock struct{}

func (systemClock) Now() time.Time { return time.Now() }

// IDGenerator supplies artifact ID suffixes.
type IDGenerator interface {
	NewID() string
}

type uuidGenerator struct{}

func (uuidGenerator) NewID() string {
	return strings.ReplaceAll(uuid.NewString(), "-", "")[:16]
}

// Tracker creates artifacts and walks their provenance over a Store.
type Tracker struct {
	store Store
	clock Clock
	ids   IDGenerator
}

// Option configures a Tracker.
type Option func(*Tracker)

// WithClock replaces the system clock.
func WithClock(c Clock) Option {
	return func(t *Tracker) { t.clock = c }
}

// WithIDGenerator replaces the random suffix generator.
func WithIDGenerator(g IDGenerator) Option {
	return func(t *Tracker) { t.ids = g }
}

// New creates a Tracker over the given store.
func New(store Store, opts ...Option) *Tracker {
	t := &Tracker{store: store, clock: systemClock{}, ids: uuidGenerator{}}
	for _, opt := range opts {
		opt(t)
	}
	return t
}

// CreateArtifact checksums the content, assigns an ID of the form
// art_<type>_<suffix>, links the predecessor if given, and stores the
// record. A predecessor that is not in the store is a *LineageError.
func (t *Tracker) CreateArtifact(content canon.Value, artifactType string, predecessorID *string) (Record, error) {
	sum, err := checksum.Compute(content)
	if err != nil {
		return Record{}, fmt.Errorf("create artifact: %w", err)
	}

	if predecessorID != nil {
		_, ok, err := t.store.Get(*predecessorID)
		if err != nil {
			return Record{}, fmt.Errorf("create artifact: lookup predecessor: %w", err)
		}
		if !ok {
			return Record{}, &LineageError{
				Op:         "create",
				ArtifactID: *predecessorID,
				Message:    "predecessor not found",
			}
		}
	}

	r := Record{
		ArtifactID:    fmt.Sprintf("art_%s_%s", artifactType, t.ids.NewID()),
		PredecessorID: predecessorID,
		Checksum:      sum,
		CreatedAt:     t.clock.Now().UTC().Format(time.RFC3339Nano),
	}
	if err := t.store.Put(r); err != nil {
		return Record{}, fmt.Errorf("create artifact %s: store: %w", r.ArtifactID, err)
	}
	return r, nil
}

// TrackLineage walks predecessor links backward from artifactID and returns
// the chain oldest-first (the root ancestor first, the requested artifact
// last). An unknown starting artifact is a *LineageError. A missing
// predecessor or a cycle mid-chain terminates the walk and returns the
// partial chain; VerifyChain surfaces both as findings.
func (t *Tracker) TrackLineage(artifactID string) ([]Record, error) {
	head, ok, err := t.store.Get(artifactID)
	if err != nil {
		return nil, fmt.Errorf("track lineage: %w", err)
	}
	if !ok {
		return nil, &LineageError{
			Op:         "track",
			ArtifactID: artifactID,
			Message:    "not found",
		}
	}

	chain := []Record{head}
	seen := map[string]struct{}{head.ArtifactID: {}}
	cur := head
	for cur.PredecessorID != nil {
		pred, ok, err := t.store.Get(*cur.PredecessorID)
		if err != nil {
			return nil, fmt.Errorf("track lineage: %w", err)
		}
		if !ok {
			break
		}
		if _, dup := seen[pred.ArtifactID]; dup {
			chain = append(chain, pred)
			break
		}
		seen[pred.ArtifactID] = struct{}{}
		chain = append(chain, pred)
		cur = pred
	}

	// The walk collects newest-first; the chain reads oldest-first.
	for i, j := 0, len(chain)-1; i < j; i, j = i+1, j-1 {
		chain[i], chain[j] = chain[j], chain[i]
	}
	return chain, nil
}
