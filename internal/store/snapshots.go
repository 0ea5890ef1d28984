package store

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	"github.com/mirrordna/ledger/internal/canon"
	"github.com/mirrordna/ledger/internal/snapshot"
)

// SaveSnapshot stores a snapshot with its sub-documents as canonical bytes
// and its checksum verbatim. Saving an existing ID replaces it.
func (s *Store) SaveSnapshot(ctx context.Context, snap snapshot.Snapshot) error {
	encode := func(field string, v canon.Value) (string, error) {
		data, err := canon.Encode(v)
		if err != nil {
			return "", fmt.Errorf("save snapshot %s: %s: %w", snap.SnapshotID, field, err)
		}
		return string(data), nil
	}

	identityState, err := encode("identity_state", snap.IdentityState)
	if err != nil {
		return err
	}
	continuityState, err := encode("continuity_state", snap.ContinuityState)
	if err != nil {
		return err
	}
	vaultSummary, err := encode("vault_summary", snap.VaultSummary)
	if err != nil {
		return err
	}
	timelineSummary, err := encode("timeline_summary", snap.TimelineSummary)
	if err != nil {
		return err
	}

	_, err = s.db.ExecContext(ctx, `
		INSERT INTO snapshots
		(id, captured_at, identity_state, continuity_state, vault_summary, timeline_summary, checksum)
		VALUES (?, ?, ?, ?, ?, ?, ?)
		ON CONFLICT(id) DO UPDATE SET
			captured_at = excluded.captured_at,
			identity_state = excluded.identity_state,
			continuity_state = excluded.continuity_state,
			vault_summary = excluded.vault_summary,
			timeline_summary = excluded.timeline_summary,
			checksum = excluded.checksum
	`,
		snap.SnapshotID,
		snap.CapturedAt,
		identityState,
		continuityState,
		vaultSummary,
		timelineSummary,
		snap.Checksum,
	)
	if err != nil {
		return fmt.Errorf("save snapshot %s: %w", snap.SnapshotID, err)
	}
	return nil
}

// LoadSnapshot restores a snapshot. The stored checksum comes back verbatim
// so snapshot.Verify can run immediately. Returns ErrNotFound for an
// unknown id.
func (s *Store) LoadSnapshot(ctx context.Context, snapshotID string) (snapshot.Snapshot, error) {
	var snap snapshot.Snapshot
	var identityState, continuityState, vaultSummary, timelineSummary string

	err := s.db.QueryRowContext(ctx, `
		SELECT id, captured_at, identity_state, continuity_state, vault_summary, timeline_summary, checksum
		FROM snapshots WHERE id = ?
	`, snapshotID).Scan(
		&snap.SnapshotID,
		&snap.CapturedAt,
		&identityState,
		&continuityState,
		&vaultSummary,
		&timelineSummary,
		&snap.Checksum,
	)
	if errors.Is(err, sql.ErrNoRows) {
		return snapshot.Snapshot{}, fmt.Errorf("load snapshot %s: %w", snapshotID, ErrNotFound)
	}
	if err != nil {
		return snapshot.Snapshot{}, fmt.Errorf("load snapshot %s: %w", snapshotID, err)
	}

	if snap.IdentityState, err = canon.FromJSON([]byte(identityState)); err != nil {
		return snapshot.Snapshot{}, fmt.Errorf("load snapshot %s: identity_state: %w", snapshotID, err)
	}
	if snap.ContinuityState, err = canon.FromJSON([]byte(continuityState)); err != nil {
		return snapshot.Snapshot{}, fmt.Errorf("load snapshot %s: continuity_state: %w", snapshotID, err)
	}
	if snap.VaultSummary, err = canon.FromJSON([]byte(vaultSummary)); err != nil {
		return snapshot.Snapshot{}, fmt.Errorf("load snapshot %s: vault_summary: %w", snapshotID, err)
	}
	if snap.TimelineSummary, err = canon.FromJSON([]byte(timelineSummary)); err != nil {
		return snapshot.Snapshot{}, fmt.Errorf("load snapshot %s: timeline_summary: %w", snapshotID, err)
	}

	return snap, nil
}

// ListSnapshots returns the IDs of all stored snapshots, sorted.
func (s *Store) ListSnapshots(ctx context.Context) ([]string, error) {
	rows, err := s.db.QueryContext(ctx, `SELECT id FROM snapshots ORDER BY id`)
	if err != nil {
		return nil, fmt.Errorf("list snapshots: %w", err)
	}
	defer rows.Close()

	var ids []string
	for rows.Next() {
		var id string
		if err := rows.Scan(&id); err != nil {
			return nil, fmt.Errorf("list snapshots: scan: %w", err)
		}
		ids = append(ids, id)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("list snapshots: %w", err)
	}
	return ids, nil
}
