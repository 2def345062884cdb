package store

import (
	"context"
	"errors"
	"fmt"
	"sort"
)

// branch resolves a branch name. An empty name selects the default branch.
func (s *Store) branch(ctx context.Context, name string) (*Branch, error) {
	if name == "" {
		name = s.defaultBranch
	}
	branch, err := s.database.FindBranchByName(ctx, name)
	if err != nil {
		return nil, fmt.Errorf("finding branch: %w", err)
	}
	if branch == nil {
		return nil, fmt.Errorf("%w: branch %q", ErrNotFound, name)
	}
	return branch, nil
}

// Branch returns a branch by name.
func (s *Store) Branch(ctx context.Context, name string) (*Branch, error) {
	return s.branch(ctx, name)
}

// CreateBranch creates an empty branch. Branches never inherit changes from
// each other.
func (s *Store) CreateBranch(ctx context.Context, name string) (*Branch, error) {
	if name == "" {
		return nil, fmt.Errorf("%w: empty branch name", ErrInvalidArgument)
	}

	existing, err := s.database.FindBranchByName(ctx, name)
	if err != nil {
		return nil, fmt.Errorf("finding branch: %w", err)
	}
	if existing != nil {
		return nil, fmt.Errorf("%w: branch %q", ErrAlreadyExists, name)
	}

	branch := &Branch{ID: s.idgen.New(), Name: name, CreatedAt: s.clock.Now()}
	version, err := s.database.CreateBranch(ctx, branch)
	if err != nil {
		return nil, fmt.Errorf("creating branch: %w", err)
	}
	s.publish(version, "branch")

	s.logger.Info("branch created", "branch", name, "branch_id", branch.ID)
	return branch, nil
}

// EnsureBranch returns the named branch, creating it if it does not exist.
func (s *Store) EnsureBranch(ctx context.Context, name string) (*Branch, error) {
	branch, err := s.database.FindBranchByName(ctx, name)
	if err != nil {
		return nil, fmt.Errorf("finding branch: %w", err)
	}
	if branch != nil {
		return branch, nil
	}

	branch, err = s.CreateBranch(ctx, name)
	if errors.Is(err, ErrAlreadyExists) {
		return s.branch(ctx, name)
	}
	return branch, err
}

// DeleteBranch removes a branch from index lookups. Its changes stay in the log.
// The default branch cannot be deleted.
func (s *Store) DeleteBranch(ctx context.Context, name string) error {
	if name == s.defaultBranch {
		return fmt.Errorf("%w: cannot delete default branch %q", ErrInvalidArgument, name)
	}

	branch, err := s.branch(ctx, name)
	if err != nil {
		return err
	}

	version, err := s.database.DeleteBranch(ctx, branch.ID)
	if err != nil {
		return fmt.Errorf("deleting branch: %w", err)
	}
	s.publish(version, "branch")

	s.logger.Info("branch deleted", "branch", name, "branch_id", branch.ID)
	return nil
}

// ListBranches returns every branch ordered by name.
func (s *Store) ListBranches(ctx context.Context) ([]*Branch, error) {
	branches, err := s.database.ListBranches(ctx)
	if err != nil {
		return nil, fmt.Errorf("listing branches: %w", err)
	}
	return branches, nil
}

// IndexMismatch is an entity whose stored leaf pointer disagrees with the leaf
// computed from the change log. A zero id means no pointer or no changes.
type IndexMismatch struct {
	BranchID string
	FileID   string
	EntityID string
	Stored   int64
	Expected int64
}

func (m IndexMismatch) String() string {
	return fmt.Sprintf("branch %s file %s entity %s: index points at %d, log leaf is %d",
		m.BranchID, m.FileID, m.EntityID, m.Stored, m.Expected)
}

// Verify recomputes every leaf by full scan of the change log and reports the
// entities whose indexed leaf differs. An empty result means the index is
// consistent.
func (s *Store) Verify(ctx context.Context) ([]IndexMismatch, error) {
	branches, err := s.ListBranches(ctx)
	if err != nil {
		return nil, err
	}

	expected := make(map[entityKey]int64)
	for _, b := range branches {
		changes, err := s.database.ListChangesForBranch(ctx, b.ID)
		if err != nil {
			return nil, fmt.Errorf("listing changes for branch %s: %w", b.Name, err)
		}

		groups := make(map[entityKey][]*Change)
		for _, c := range changes {
			key := entityKey{branchID: b.ID, fileID: c.FileID, entityID: c.EntityID}
			groups[key] = append(groups[key], c)
		}
		for key, group := range groups {
			expected[key] = LeafOf(group).ID
		}
	}

	pointers, err := s.database.ListLeafPointers(ctx)
	if err != nil {
		return nil, fmt.Errorf("listing leaf pointers: %w", err)
	}
	stored := make(map[entityKey]int64, len(pointers))
	for _, p := range pointers {
		stored[entityKey{branchID: p.BranchID, fileID: p.FileID, entityID: p.EntityID}] = p.ChangeID
	}

	var mismatches []IndexMismatch
	for key, want := range expected {
		if got := stored[key]; got != want {
			mismatches = append(mismatches, mismatch(key, got, want))
		}
	}
	for key, got := range stored {
		if _, ok := expected[key]; !ok {
			mismatches = append(mismatches, mismatch(key, got, 0))
		}
	}

	sort.Slice(mismatches, func(i, j int) bool {
		a, b := mismatches[i], mismatches[j]
		if a.BranchID != b.BranchID {
			return a.BranchID < b.BranchID
		}
		if a.FileID != b.FileID {
			return a.FileID < b.FileID
		}
		return a.EntityID < b.EntityID
	})
	return mismatches, nil
}

func mismatch(key entityKey, stored, expected int64) IndexMismatch {
	return IndexMismatch{
		BranchID: key.branchID,
		FileID:   key.fileID,
		EntityID: key.entityID,
		Stored:   stored,
		Expected: expected,
	}
}

// RebuildIndex recomputes every leaf pointer from the change log and returns
// the number of pointers written.
func (s *Store) RebuildIndex(ctx context.Context) (int64, error) {
	n, version, err := s.database.ReplaceLeaves(ctx)
	if err != nil {
		return 0, fmt.Errorf("rebuilding branch index: %w", err)
	}
	s.publish(version, "reindex")

	s.logger.Info("branch index rebuilt", "leaves", n)
	return n, nil
}
