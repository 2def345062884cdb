package store

import (
	"bytes"
	"context"
	"encoding/hex"
	"fmt"

	"golang.org/x/sync/singleflight"
	"lukechampine.com/blake3"
)

// ContentID returns the content address of a payload: the hex BLAKE3-256
// digest of its bytes.
func ContentID(content []byte) string {
	sum := blake3.Sum256(content)
	return hex.EncodeToString(sum[:])
}

// SnapshotStore keeps immutable, deduplicated payloads. Rows describing each
// snapshot live in the database; the encoded bytes live in the vault under the
// snapshot id.
type SnapshotStore struct {
	database    Database
	vault       Vault
	codec       Codec
	clock       Clock
	verifyDedup bool

	// uploads coalesces concurrent puts of the same content so it is encoded
	// and uploaded once.
	uploads singleflight.Group
}

// NewSnapshotStore creates a SnapshotStore. When verifyDedup is true, a put
// that hits an existing snapshot re-reads the stored payload and compares it
// byte for byte; otherwise only the sizes are compared.
func NewSnapshotStore(database Database, vault Vault, codec Codec, clock Clock, verifyDedup bool) *SnapshotStore {
	return &SnapshotStore{
		database:    database,
		vault:       vault,
		codec:       codec,
		clock:       clock,
		verifyDedup: verifyDedup,
	}
}

type preparedSnapshot struct {
	snapshot *Snapshot
	existing bool
}

// prepare makes sure the payload for content is in the vault and returns the
// snapshot row to record. existing is true if the row is already stored.
//
// Upload happens before any database transaction. If the caller's transaction
// later fails the vault keeps a payload with no row; a later put of the same
// content overwrites it.
func (s *SnapshotStore) prepare(ctx context.Context, content []byte) (*Snapshot, bool, error) {
	id := ContentID(content)

	v, err, _ := s.uploads.Do(id, func() (any, error) {
		// Coalesced callers share this upload; one of them cancelling must not
		// fail the others.
		ctx := context.WithoutCancel(ctx)

		existing, err := s.database.FindSnapshot(ctx, id)
		if err != nil {
			return nil, fmt.Errorf("finding snapshot: %w", err)
		}
		if existing != nil {
			if err := s.checkCollision(ctx, existing, content); err != nil {
				return nil, err
			}
			return preparedSnapshot{snapshot: existing, existing: true}, nil
		}

		data, encoding, err := s.codec.Encode(content)
		if err != nil {
			return nil, fmt.Errorf("encoding snapshot: %w", err)
		}
		if err := s.vault.PutContent(ctx, id, bytes.NewReader(data), int64(len(data))); err != nil {
			return nil, fmt.Errorf("uploading snapshot: %w", err)
		}

		return preparedSnapshot{
			snapshot: &Snapshot{
				ID:        id,
				Size:      int64(len(content)),
				Encoding:  encoding,
				CreatedAt: s.clock.Now(),
			},
		}, nil
	})
	if err != nil {
		return nil, false, err
	}

	p := v.(preparedSnapshot)
	snap := *p.snapshot
	return &snap, p.existing, nil
}

// checkCollision verifies that content really is the payload stored under
// existing.ID.
func (s *SnapshotStore) checkCollision(ctx context.Context, existing *Snapshot, content []byte) error {
	if existing.Size != int64(len(content)) {
		return fmt.Errorf("%w: snapshot %s has %d bytes, new content has %d",
			ErrContentConflict, existing.ID, existing.Size, len(content))
	}
	if !s.verifyDedup {
		return nil
	}

	stored, err := s.load(ctx, existing)
	if err != nil {
		return err
	}
	if !bytes.Equal(stored, content) {
		return fmt.Errorf("%w: snapshot %s payload differs", ErrContentConflict, existing.ID)
	}
	return nil
}

// Put stores content and returns its snapshot. Identical content always maps
// to the same snapshot. The returned version is 0 when nothing new was stored.
func (s *SnapshotStore) Put(ctx context.Context, content []byte) (*Snapshot, uint64, error) {
	snap, existing, err := s.prepare(ctx, content)
	if err != nil {
		return nil, 0, err
	}
	if existing {
		return snap, 0, nil
	}

	version, err := s.database.InsertSnapshot(ctx, snap)
	if err != nil {
		return nil, 0, fmt.Errorf("recording snapshot: %w", err)
	}
	return snap, version, nil
}

// Get returns the content of a snapshot.
func (s *SnapshotStore) Get(ctx context.Context, id string) ([]byte, error) {
	snap, err := s.database.FindSnapshot(ctx, id)
	if err != nil {
		return nil, fmt.Errorf("finding snapshot: %w", err)
	}
	if snap == nil {
		return nil, fmt.Errorf("%w: snapshot %s", ErrNotFound, id)
	}
	return s.load(ctx, snap)
}

// load reads and decodes a snapshot payload and checks it against its address.
func (s *SnapshotStore) load(ctx context.Context, snap *Snapshot) ([]byte, error) {
	var buf bytes.Buffer
	if err := s.vault.GetContent(ctx, snap.ID, &buf); err != nil {
		return nil, fmt.Errorf("reading snapshot %s: %w", snap.ID, err)
	}

	content, err := s.codec.Decode(buf.Bytes(), snap.Encoding)
	if err != nil {
		return nil, fmt.Errorf("decoding snapshot %s: %w", snap.ID, err)
	}

	if int64(len(content)) != snap.Size || ContentID(content) != snap.ID {
		return nil, fmt.Errorf("%w: snapshot %s does not match its content address", ErrContentConflict, snap.ID)
	}
	return content, nil
}

// Count returns the number of stored snapshots.
func (s *SnapshotStore) Count(ctx context.Context) (int64, error) {
	n, err := s.database.CountSnapshots(ctx)
	if err != nil {
		return 0, fmt.Errorf("counting snapshots: %w", err)
	}
	return n, nil
}

// remove deletes vault payloads whose rows are already gone.
func (s *SnapshotStore) remove(ctx context.Context, ids []string) error {
	for _, id := range ids {
		if err := s.vault.DeleteContent(ctx, id); err != nil {
			return fmt.Errorf("deleting snapshot %s: %w", id, err)
		}
	}
	return nil
}
