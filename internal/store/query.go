package store

import (
	"context"
	"fmt"
	"time"
)

// Predicate is one typed condition on a change. Queries are conjunctions of
// predicates; the database compiles them into joins over its indices.
type Predicate interface {
	predicate()
}

// InBranch holds for changes appended to the branch.
type InBranch struct {
	BranchID string
}

// IsLeaf holds for the change that is the current value of its entity in the
// branch.
type IsLeaf struct {
	BranchID string
}

// HasLabel holds for changes that belong to at least one change set carrying a
// label with this name.
type HasLabel struct {
	Name string
}

// Not negates a predicate.
type Not struct {
	P Predicate
}

func (InBranch) predicate() {}
func (IsLeaf) predicate()   {}
func (HasLabel) predicate() {}
func (Not) predicate()      {}

// ChangeQuery selects changes of a file, optionally of one entity, that satisfy
// every predicate in Where. Results are ordered newest first.
type ChangeQuery struct {
	FileID   string
	EntityID string
	Where    []Predicate
	Limit    int
}

// ChangeInBranch returns a predicate that holds iff the change was appended to
// branch. Branches never see each other's changes.
func ChangeInBranch(branch *Branch) func(*Change) bool {
	return func(c *Change) bool {
		return c.BranchID == branch.ID
	}
}

// LeafOf returns the leaf among changes by full scan: the newest by
// (created_at, id). Changes are assumed to share branch, file and entity.
// Returns nil for an empty slice.
func LeafOf(changes []*Change) *Change {
	var leaf *Change
	for _, c := range changes {
		if c.NewerThan(leaf) {
			leaf = c
		}
	}
	return leaf
}

// Changes runs a query against the change log.
func (s *Store) Changes(ctx context.Context, q ChangeQuery) ([]*Change, error) {
	defer s.observe("changes", time.Now())

	if q.FileID == "" {
		return nil, fmt.Errorf("%w: file id is required", ErrInvalidArgument)
	}
	for _, p := range q.Where {
		if err := validatePredicate(p); err != nil {
			return nil, err
		}
	}

	changes, err := s.database.QueryChanges(ctx, q)
	if err != nil {
		return nil, fmt.Errorf("querying changes: %w", err)
	}
	return changes, nil
}

// Matches evaluates a single predicate against one change.
func (s *Store) Matches(ctx context.Context, p Predicate, c *Change) (bool, error) {
	switch p := p.(type) {
	case InBranch:
		return c.BranchID == p.BranchID, nil
	case IsLeaf:
		if c.BranchID != p.BranchID {
			return false, nil
		}
		leaf, err := s.database.FindLeaf(ctx, p.BranchID, c.FileID, c.EntityID)
		if err != nil {
			return false, fmt.Errorf("finding leaf: %w", err)
		}
		return leaf != nil && leaf.ID == c.ID, nil
	case HasLabel:
		ok, err := s.database.ChangeHasLabel(ctx, c.ID, p.Name)
		if err != nil {
			return false, fmt.Errorf("checking label: %w", err)
		}
		return ok, nil
	case Not:
		ok, err := s.Matches(ctx, p.P, c)
		if err != nil {
			return false, err
		}
		return !ok, nil
	default:
		return false, fmt.Errorf("%w: unknown predicate %T", ErrInvalidArgument, p)
	}
}

// ChangeIsLeafInBranch reports whether c is the current value of its entity in
// the named branch.
func (s *Store) ChangeIsLeafInBranch(ctx context.Context, branch string, c *Change) (bool, error) {
	b, err := s.branch(ctx, branch)
	if err != nil {
		return false, err
	}
	return s.Matches(ctx, IsLeaf{BranchID: b.ID}, c)
}

// ChangeHasLabel reports whether c belongs to a change set carrying the label.
func (s *Store) ChangeHasLabel(ctx context.Context, labelName string, c *Change) (bool, error) {
	return s.Matches(ctx, HasLabel{Name: labelName}, c)
}

func validatePredicate(p Predicate) error {
	switch p := p.(type) {
	case InBranch:
		if p.BranchID == "" {
			return fmt.Errorf("%w: InBranch without branch id", ErrInvalidArgument)
		}
	case IsLeaf:
		if p.BranchID == "" {
			return fmt.Errorf("%w: IsLeaf without branch id", ErrInvalidArgument)
		}
	case HasLabel:
		if p.Name == "" {
			return fmt.Errorf("%w: HasLabel without name", ErrInvalidArgument)
		}
	case Not:
		if p.P == nil {
			return fmt.Errorf("%w: empty Not", ErrInvalidArgument)
		}
		return validatePredicate(p.P)
	case nil:
		return fmt.Errorf("%w: nil predicate", ErrInvalidArgument)
	default:
		return fmt.Errorf("%w: unknown predicate %T", ErrInvalidArgument, p)
	}
	return nil
}
