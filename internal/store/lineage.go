package store

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	"github.com/mirrordna/ledger/internal/canon"
	"github.com/mirrordna/ledger/internal/identity"
	"github.com/mirrordna/ledger/internal/lineage"
)

// PutLineageRecord stores or replaces a lineage record.
func (s *Store) PutLineageRecord(ctx context.Context, r lineage.Record) error {
	var pred any
	if r.PredecessorID != nil {
		pred = *r.PredecessorID
	}
	_, err := s.db.ExecContext(ctx, `
		INSERT INTO lineage_records (artifact_id, predecessor_id, checksum, created_at)
		VALUES (?, ?, ?, ?)
		ON CONFLICT(artifact_id) DO UPDATE SET
			predecessor_id = excluded.predecessor_id,
			checksum = excluded.checksum,
			created_at = excluded.created_at
	`, r.ArtifactID, pred, r.Checksum, r.CreatedAt)
	if err != nil {
		return fmt.Errorf("put lineage record %s: %w", r.ArtifactID, err)
	}
	return nil
}

// GetLineageRecord looks up a lineage record. Missing records report
// found=false, not an error, matching the lineage.Store contract.
func (s *Store) GetLineageRecord(ctx context.Context, artifactID string) (lineage.Record, bool, error) {
	var r lineage.Record
	var pred sql.NullString

	err := s.db.QueryRowContext(ctx, `
		SELECT artifact_id, predecessor_id, checksum, created_at
		FROM lineage_records WHERE artifact_id = ?
	`, artifactID).Scan(&r.ArtifactID, &pred, &r.Checksum, &r.CreatedAt)
	if errors.Is(err, sql.ErrNoRows) {
		return lineage.Record{}, false, nil
	}
	if err != nil {
		return lineage.Record{}, false, fmt.Errorf("get lineage record %s: %w", artifactID, err)
	}

	if pred.Valid {
		r.PredecessorID = &pred.String
	}
	return r, true, nil
}

// LineageStore adapts the store to the lineage.Store interface with the
// given context bound, so a lineage.Tracker can run directly over SQLite.
func (s *Store) LineageStore(ctx context.Context) lineage.Store {
	return &boundLineageStore{ctx: ctx, store: s}
}

type boundLineageStore struct {
	ctx   context.Context
	store *Store
}

func (b *boundLineageStore) Put(r lineage.Record) error {
	return b.store.PutLineageRecord(b.ctx, r)
}

func (b *boundLineageStore) Get(artifactID string) (lineage.Record, bool, error) {
	return b.store.GetLineageRecord(b.ctx, artifactID)
}

// SaveIdentity stores an identity document with its metadata as canonical
// bytes and its bound checksum verbatim.
func (s *Store) SaveIdentity(ctx context.Context, id identity.Identity) error {
	metadata, err := canon.Encode(id.Metadata)
	if err != nil {
		return fmt.Errorf("save identity %s: %w", id.ID, err)
	}

	_, err = s.db.ExecContext(ctx, `
		INSERT INTO identities (id, kind, created_at, metadata, checksum)
		VALUES (?, ?, ?, ?, ?)
		ON CONFLICT(id) DO UPDATE SET
			kind = excluded.kind,
			created_at = excluded.created_at,
			metadata = excluded.metadata,
			checksum = excluded.checksum
	`, id.ID, string(id.Kind), id.CreatedAt, string(metadata), id.Checksum)
	if err != nil {
		return fmt.Errorf("save identity %s: %w", id.ID, err)
	}
	return nil
}

// LoadIdentity restores an identity document. Returns ErrNotFound for an
// unknown id.
func (s *Store) LoadIdentity(ctx context.Context, identityID string) (identity.Identity, error) {
	var id identity.Identity
	var kind, metadata string

	err := s.db.QueryRowContext(ctx, `
		SELECT id, kind, created_at, metadata, checksum
		FROM identities WHERE id = ?
	`, identityID).Scan(&id.ID, &kind, &id.CreatedAt, &metadata, &id.Checksum)
	if errors.Is(err, sql.ErrNoRows) {
		return identity.Identity{}, fmt.Errorf("load identity %s: %w", identityID, ErrNotFound)
	}
	if err != nil {
		return identity.Identity{}, fmt.Errorf("load identity %s: %w", identityID, err)
	}

	id.Kind = identity.Kind(kind)
	if id.Metadata, err = canon.FromJSON([]byte(metadata)); err != nil {
		return identity.Identity{}, fmt.Errorf("load identity %s: metadata: %w", identityID, err)
	}
	return id, nil
}
