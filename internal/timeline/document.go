package timeline

import (
	"encoding/json"
	"fmt"
	"time"

	"github.com/mirrordna/ledger/internal/canon"
)

// eventDocument is the persisted form of an Event. The payload is embedded
// as its canonical bytes so a save/load round-trip reproduces the exact
// value the checksum was computed over.
type eventDocument struct {
	ID        string          `json:"id"`
	Timestamp string          `json:"timestamp"`
	EventType string          `json:"event_type"`
	Actor     string          `json:"actor"`
	Payload   json.RawMessage `json:"payload"`
	Seq       uint64          `json:"sequence_number"`
	Checksum  string          `json:"checksum"`
}

type timelineDocument struct {
	TimelineID string          `json:"timeline_id"`
	Events     []eventDocument `json:"events"`
}

// MarshalDocument serializes the timeline to its persisted JSON form.
func (t *Timeline) MarshalDocument() ([]byte, error) {
	doc := timelineDocument{
		TimelineID: t.id,
		Events:     make([]eventDocument, 0, len(t.events)),
	}
	for _, ev := range t.events {
		payload, err := canon.Encode(ev.Payload)
		if err != nil {
			return nil, fmt.Errorf("marshal timeline %s event %d: %w", t.id, ev.Seq, err)
		}
		doc.Events = append(doc.Events, eventDocument{
			ID:        ev.ID,
			Timestamp: ev.Timestamp,
			EventType: ev.EventType,
			Actor:     ev.Actor,
			Payload:   payload,
			Seq:       ev.Seq,
			Checksum:  ev.Checksum,
		})
	}
	return json.MarshalIndent(doc, "", "  ")
}

// UnmarshalDocument loads a timeline from its persisted JSON form. Stored
// checksums are kept verbatim, never recomputed, so VerifyIntegrity after a
// load reports the same findings as before the save.
func UnmarshalDocument(data []byte, opts ...Option) (*Timeline, error) {
	var doc timelineDocument
	if err := json.Unmarshal(data, &doc); err != nil {
		return nil, fmt.Errorf("unmarshal timeline: %w", err)
	}

	events := make([]Event, 0, len(doc.Events))
	for _, ed := range doc.Events {
		payload, err := canon.FromJSON(ed.Payload)
		if err != nil {
			return nil, fmt.Errorf("unmarshal timeline %s event %d payload: %w", doc.TimelineID, ed.Seq, err)
		}
		events = append(events, Event{
			ID:        ed.ID,
			Timestamp: ed.Timestamp,
			EventType: ed.EventType,
			Actor:     ed.Actor,
			Payload:   payload,
			Seq:       ed.Seq,
			Checksum:  ed.Checksum,
		})
	}

	return Restore(doc.TimelineID, events, opts...), nil
}

// Restore rebuilds a timeline from already-persisted events, trusting them
// verbatim. Used by storage collaborators; new appends continue from the
// last event's sequence number and timestamp.
func Restore(timelineID string, events []Event, opts ...Option) *Timeline {
	t := New(timelineID, opts...)
	t.events = make([]Event, len(events))
	copy(t.events, events)
	if n := len(events); n > 0 {
		if ts, err := time.Parse(time.RFC3339Nano, events[n-1].Timestamp); err == nil {
			t.lastTS = ts
		}
	}
	return t
}
