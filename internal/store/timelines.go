package store

import (
	"context"
	"fmt"
	"time"

	"github.com/mirrordna/ledger/internal/canon"
	"github.com/mirrordna/ledger/internal/timeline"
)

// SaveTimeline replaces the stored copy of the timeline with the given
// events, verbatim and in order. Events are serialized with canonical
// payload bytes so a later load feeds verification the exact saved state.
func (s *Store) SaveTimeline(ctx context.Context, timelineID string, events []timeline.Event) error {
	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("save timeline %s: begin tx: %w", timelineID, err)
	}
	defer tx.Rollback() // No-op if committed

	_, err = tx.ExecContext(ctx, `
		INSERT INTO timelines (id, saved_at) VALUES (?, ?)
		ON CONFLICT(id) DO UPDATE SET saved_at = excluded.saved_at
	`, timelineID, s.clock().UTC().Format(time.RFC3339Nano))
	if err != nil {
		return fmt.Errorf("save timeline %s: upsert: %w", timelineID, err)
	}

	if _, err := tx.ExecContext(ctx,
		`DELETE FROM timeline_events WHERE timeline_id = ?`, timelineID); err != nil {
		return fmt.Errorf("save timeline %s: clear events: %w", timelineID, err)
	}

	for pos, ev := range events {
		payload, err := canon.Encode(ev.Payload)
		if err != nil {
			return fmt.Errorf("save timeline %s: event %d: %w", timelineID, pos, err)
		}
		_, err = tx.ExecContext(ctx, `
			INSERT INTO timeline_events
			(timeline_id, pos, id, timestamp, event_type, actor, payload, seq, checksum)
			VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?)
		`,
			timelineID,
			pos,
			ev.ID,
			ev.Timestamp,
			ev.EventType,
			ev.Actor,
			string(payload),
			ev.Seq,
			ev.Checksum,
		)
		if err != nil {
			return fmt.Errorf("save timeline %s: insert event %d: %w", timelineID, pos, err)
		}
	}

	if err := tx.Commit(); err != nil {
		return fmt.Errorf("save timeline %s: commit: %w", timelineID, err)
	}
	return nil
}

// LoadTimeline restores a timeline from storage. The events come back
// exactly as saved; checksums are not recomputed, so VerifyIntegrity on the
// result reports the same findings as before the save. Returns ErrNotFound
// for an unknown id.
func (s *Store) LoadTimeline(ctx context.Context, timelineID string, opts ...timeline.Option) (*timeline.Timeline, error) {
	var exists int
	err := s.db.QueryRowContext(ctx,
		`SELECT COUNT(*) FROM timelines WHERE id = ?`, timelineID).Scan(&exists)
	if err != nil {
		return nil, fmt.Errorf("load timeline %s: %w", timelineID, err)
	}
	if exists == 0 {
		return nil, fmt.Errorf("load timeline %s: %w", timelineID, ErrNotFound)
	}

	rows, err := s.db.QueryContext(ctx, `
		SELECT id, timestamp, event_type, actor, payload, seq, checksum
		FROM timeline_events
		WHERE timeline_id = ?
		ORDER BY pos
	`, timelineID)
	if err != nil {
		return nil, fmt.Errorf("load timeline %s: %w", timelineID, err)
	}
	defer rows.Close()

	var events []timeline.Event
	for rows.Next() {
		var ev timeline.Event
		var payload string
		if err := rows.Scan(&ev.ID, &ev.Timestamp, &ev.EventType, &ev.Actor,
			&payload, &ev.Seq, &ev.Checksum); err != nil {
			return nil, fmt.Errorf("load timeline %s: scan: %w", timelineID, err)
		}
		if ev.Payload, err = canon.FromJSON([]byte(payload)); err != nil {
			return nil, fmt.Errorf("load timeline %s: event %s payload: %w", timelineID, ev.ID, err)
		}
		events = append(events, ev)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("load timeline %s: %w", timelineID, err)
	}

	return timeline.Restore(timelineID, events, opts...), nil
}

// ListTimelines returns the IDs of all stored timelines, sorted.
func (s *Store) ListTimelines(ctx context.Context) ([]string, error) {
	rows, err := s.db.QueryContext(ctx, `SELECT id FROM timelines ORDER BY id`)
	if err != nil {
		return nil, fmt.Errorf("list timelines: %w", err)
	}
	defer rows.Close()

	var ids []string
	for rows.Next() {
		var id string
		if err := rows.Scan(&id); err != nil {
			return nil, fmt.Errorf("list timelines: scan: %w", err)
		}
		ids = append(ids, id)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("list timelines: %w", err)
	}
	return ids, nil
}

// DeleteTimeline removes a timeline and its events. Deleting an unknown id
// is a no-op.
func (s *Store) DeleteTimeline(ctx context.Context, timelineID string) error {
	if _, err := s.db.ExecContext(ctx,
		`DELETE FROM timelines WHERE id = ?`, timelineID); err != nil {
		return fmt.Errorf("delete timeline %s: %w", timelineID, err)
	}
	return nil
}
