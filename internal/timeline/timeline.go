// Package timeline implements the append-only event ledger. Events are
// checksummed at append time so later mutation of stored data is detectable.
//
// A Timeline instance is owned by exactly one logical session. Concurrent
// appends to the same instance are not synchronized here; serializing access
// is the storage collaborator's concern. Distinct instances are independent
// and safe to use from separate goroutines.
package timeline

import (
	"fmt"
	"time"

	"github.com/google/uuid"

	"github.com/mirrordna/ledger/internal/canon"
	"github.com/mirrordna/ledger/internal/checksum"
)

// Clock supplies timestamps for appended events. Injectable so tests can
// produce deterministic timelines.
type Clock interface {
	Now() time.Time
}

// SystemClock is the production clock.
type SystemClock struct{}

// Now returns the current wall-clock time.
func (SystemClock) Now() time.Time { return time.Now() }

// IDGenerator produces unique event IDs. Implemented by UUIDGenerator
// (production) and testutil.SequentialIDs (tests).
type IDGenerator interface {
	NewID() string
}

// UUIDGenerator generates event IDs of the form evt_<uuid>.
type UUIDGenerator struct{}

// NewID returns a fresh random event ID.
func (UUIDGenerator) NewID() string { return "evt_" + uuid.NewString() }

// Event is a single checksummed ledger entry. Immutable after append.
// The checksum covers event_type, actor, payload, and sequence_number.
type Event struct {
	ID        string
	Timestamp string // RFC 3339 UTC, non-decreasing within a timeline
	EventType string
	Actor     string
	Payload   canon.Value
	Seq       uint64
	Checksum  string
}

// Timeline is an append-only sequence of events. The only exposed state is
// "open": a timeline is never closed, it is simply no longer appended to.
type Timeline struct {
	id     string
	events []Event
	clock  Clock
	ids    IDGenerator
	lastTS time.Time
}

// Option configures a Timeline.
type Option func(*Timeline)

// WithClock replaces the system clock.
func WithClock(c Clock) Option {
	return func(t *Timeline) { t.clock = c }
}

// WithIDGenerator replaces the uuid-based event ID generator.
func WithIDGenerator(g IDGenerator) Option {
	return func(t *Timeline) { t.ids = g }
}

// New creates an empty timeline.
func New(timelineID string, opts ...Option) *Timeline {
	t := &Timeline{
		id:    timelineID,
		clock: SystemClock{},
		ids:   UUIDGenerator{},
	}
	for _, opt := range opts {
		opt(t)
	}
	return t
}

// ID returns the timeline identifier.
func (t *Timeline) ID() string { return t.id }

// Len returns the number of appended events.
func (t *Timeline) Len() int { return len(t.events) }

// Append creates, checksums, and stores a new event, returning a copy of the
// stored record. Sequence numbers are assigned in order with no gaps.
// Timestamps never decrease: a clock that steps backward is clamped to the
// previous event's timestamp.
func (t *Timeline) Append(eventType, actor string, payload canon.Value) (Event, error) {
	if payload == nil {
		payload = canon.Mapping{}
	}

	seq := uint64(len(t.events))
	sum, err := eventChecksum(eventType, actor, payload, seq)
	if err != nil {
		return Event{}, fmt.Errorf("append event: %w", err)
	}

	now := t.clock.Now().UTC()
	if now.Before(t.lastTS) {
		now = t.lastTS
	}
	t.lastTS = now

	ev := Event{
		ID:        t.ids.NewID(),
		Timestamp: now.Format(time.RFC3339Nano),
		EventType: eventType,
		Actor:     actor,
		Payload:   payload,
		Seq:       seq,
		Checksum:  sum,
	}
	t.events = append(t.events, ev)
	return ev, nil
}

// Events returns a copy of the event sequence in append order.
func (t *Timeline) Events() []Event {
	out := make([]Event, len(t.events))
	copy(out, t.events)
	return out
}

// Event returns the event with the given ID.
func (t *Timeline) Event(id string) (Event, bool) {
	for _, ev := range t.events {
		if ev.ID == id {
			return ev, true
		}
	}
	return Event{}, false
}

// EventAt returns the event with the given sequence number.
func (t *Timeline) EventAt(seq uint64) (Event, bool) {
	if seq >= uint64(len(t.events)) {
		return Event{}, false
	}
	return t.events[seq], true
}

// Summary returns a derived view for snapshot capture: event count, first
// and last timestamps, and per-type counts. Recomputed on every call so it
// can never go stale.
func (t *Timeline) Summary() canon.Value {
	typeCounts := canon.Mapping{}
	for _, ev := range t.events {
		n, _ := typeCounts[ev.EventType].(canon.Int)
		typeCounts[ev.EventType] = n + 1
	}

	var first, last canon.Value = canon.Null{}, canon.Null{}
	if len(t.events) > 0 {
		first = canon.String(t.events[0].Timestamp)
		last = canon.String(t.events[len(t.events)-1].Timestamp)
	}

	return canon.Mapping{
		"event_count":           canon.Int(len(t.events)),
		"first_event_timestamp": first,
		"last_event_timestamp":  last,
		"event_type_counts":     typeCounts,
	}
}

// eventChecksum computes the tamper-evidence digest for an event. Timestamp
// and ID are excluded: identity and ordering are covered by seq, and the ID
// is assigned, not content-derived.
func eventChecksum(eventType, actor string, payload canon.Value, seq uint64) (string, error) {
	doc := canon.Mapping{
		"event_type":      canon.String(eventType),
		"actor":           canon.String(actor),
		"payload":         payload,
		"sequence_number": canon.Int(seq),
	}
	return checksum.Compute(doc)
}
