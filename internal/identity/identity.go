// Package identity mints and verifies agent identity documents. An identity
// is a small structured document bound to the ledger by its checksum; there
// is no key material here, only integrity binding.
package identity

import (
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"

	"github.com/mirrordna/ledger/internal/canon"
	"github.com/mirrordna/ledger/internal/checksum"
)

// Kind selects the identity ID prefix.
type Kind string

const (
	KindUser   Kind = "usr"
	KindAgent  Kind = "agt"
	KindSystem Kind = "sys"
)

func (k Kind) valid() bool {
	switch k {
	case KindUser, KindAgent, KindSystem:
		return true
	}
	return false
}

// Identity is a checksummed identity document. The checksum covers every
// field except itself.
type Identity struct {
	ID        string
	Kind      Kind
	CreatedAt string // RFC 3339 UTC
	Metadata  canon.Value
	Checksum  string
}

// Clock supplies creation timestamps.
type Clock interface {
	Now() time.Time
}

type systemClock struct{}

func (systemClock) Now() time.Time { return time.Now() }

// IDGenerator supplies identity ID suffixes.
type IDGenerator interface {
	NewID() string
}

type uuidGenerator struct{}

func (uuidGenerator) NewID() string {
	return strings.ReplaceAll(uuid.NewString(), "-", "")[:16]
}

// Manager mints identities.
type Manager struct {
	clock Clock
	ids   IDGenerator
}

// Option configures a Manager.
type Option func(*Manager)

// WithClock replaces the system clock.
func WithClock(c Clock) Option {
	return func(m *Manager) { m.clock = c }
}

// WithIDGenerator replaces the random suffix generator.
func WithIDGenerator(g IDGenerator) Option {
	return func(m *Manager) { m.ids = g }
}

// New creates a Manager.
func New(opts ...Option) *Manager {
	m := &Manager{clock: systemClock{}, ids: uuidGenerator{}}
	for _, opt := range opts {
		opt(m)
	}
	return m
}

// Create mints an identity of the given kind with an ID of the form
// mdna_<kind>_<suffix>, stamps it, and binds the checksum. Nil metadata is
// recorded as an empty mapping.
func (m *Manager) Create(kind Kind, metadata canon.Value) (Identity, error) {
	if !kind.valid() {
		return Identity{}, fmt.Errorf("create identity: unknown kind %q", kind)
	}
	if metadata == nil {
		metadata = canon.Mapping{}
	}

	id := Identity{
		ID:        fmt.Sprintf("mdna_%s_%s", kind, m.ids.NewID()),
		Kind:      kind,
		CreatedAt: m.clock.Now().UTC().Format(time.RFC3339Nano),
		Metadata:  metadata,
	}
	sum, err := checksum.Compute(id.document())
	if err != nil {
		return Identity{}, fmt.Errorf("create identity %s: %w", id.ID, err)
	}
	id.Checksum = sum
	return id, nil
}

// Verify recomputes the identity checksum and compares it to the bound one.
// Mismatch is a false result, not an error.
func Verify(id Identity) (bool, error) {
	actual, err := checksum.Compute(id.document())
	if err != nil {
		return false, fmt.Errorf("verify identity %s: %w", id.ID, err)
	}
	return actual == id.Checksum, nil
}

// Document returns the structured form of the identity including its bound
// checksum, suitable for snapshots and storage.
func (id Identity) Document() canon.Value {
	doc := id.document().(canon.Mapping)
	doc["checksum"] = canon.String(id.Checksum)
	return doc
}

// document is the checksummed portion: every field except the checksum.
func (id Identity) document() canon.Value {
	return canon.Mapping{
		"identity_id":   canon.String(id.ID),
		"identity_type": canon.String(string(id.Kind)),
		"created_at":    canon.String(id.CreatedAt),
		"metadata":      id.Metadata,
	}
}
