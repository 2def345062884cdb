package store

import (
	"context"
	"fmt"

	"changestore/internal/diff"
)

// GarbageCollect removes snapshots that no change and no file references and
// deletes their payloads from the vault. Returns the removed snapshot ids.
//
// Rows are deleted first so a payload is never removed while a row still points
// at it. Payloads orphaned by aborted writes have no row and are left alone.
// Writes in this process wait until collection finishes.
func (s *Store) GarbageCollect(ctx context.Context) ([]string, error) {
	s.gc.Lock()
	defer s.gc.Unlock()

	ids, version, err := s.database.DeleteUnreferencedSnapshots(ctx)
	if err != nil {
		return nil, fmt.Errorf("deleting unreferenced snapshots: %w", err)
	}
	s.publish(version, "gc")

	if err := s.snapshots.remove(ctx, ids); err != nil {
		return ids, err
	}

	s.logger.Info("garbage collected snapshots", "count", len(ids))
	return ids, nil
}

// Diff compares the content of two changes line by line.
func (s *Store) Diff(ctx context.Context, fromID, toID int64) (*diff.Result, error) {
	from, err := s.ChangeContent(ctx, fromID)
	if err != nil {
		return nil, err
	}
	to, err := s.ChangeContent(ctx, toID)
	if err != nil {
		return nil, err
	}
	return diff.Compare(from, to, fmt.Sprintf("change %d", fromID), fmt.Sprintf("change %d", toID)), nil
}

// Stats returns row counts and the persisted version.
func (s *Store) Stats(ctx context.Context) (*Stats, error) {
	stats, err := s.database.Stats(ctx)
	if err != nil {
		return nil, fmt.Errorf("reading stats: %w", err)
	}
	return stats, nil
}
