package store

import (
	"context"
	"fmt"
	"time"
)

// History returns every change to an entity in a branch, newest first.
func (s *Store) History(ctx context.Context, fileID, entityID, branchName string) ([]*Change, error) {
	defer s.observe("history", time.Now())
	return s.ChangesFor(ctx, fileID, entityID, branchName)
}

// ChangesFor lists the change log of one entity within a branch, newest first
// by (created_at, id). Each call re-reads the log.
func (s *Store) ChangesFor(ctx context.Context, fileID, entityID, branchName string) ([]*Change, error) {
	branch, err := s.branch(ctx, branchName)
	if err != nil {
		return nil, err
	}

	changes, err := s.database.ListChangesForEntity(ctx, fileID, entityID, branch.ID)
	if err != nil {
		return nil, fmt.Errorf("listing changes: %w", err)
	}
	return changes, nil
}

// Change returns a change by id.
func (s *Store) Change(ctx context.Context, id int64) (*Change, error) {
	change, err := s.database.FindChange(ctx, id)
	if err != nil {
		return nil, fmt.Errorf("finding change: %w", err)
	}
	if change == nil {
		return nil, fmt.Errorf("%w: change %d", ErrNotFound, id)
	}
	return change, nil
}

// ChangeContent returns the content a change references.
func (s *Store) ChangeContent(ctx context.Context, id int64) ([]byte, error) {
	change, err := s.Change(ctx, id)
	if err != nil {
		return nil, err
	}
	return s.snapshots.Get(ctx, change.SnapshotID)
}
