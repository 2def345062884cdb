package store

import (
	"context"
	"errors"
	"fmt"
)

// ConfirmedLabel marks change sets whose changes have been reviewed.
const ConfirmedLabel = "confirmed"

// CreateChangeSet creates an empty change set.
func (s *Store) CreateChangeSet(ctx context.Context, name string) (*ChangeSet, error) {
	set := &ChangeSet{ID: s.idgen.New(), Name: name, CreatedAt: s.clock.Now()}
	version, err := s.database.CreateChangeSet(ctx, set)
	if err != nil {
		return nil, fmt.Errorf("creating change set: %w", err)
	}
	s.publish(version, "change_set")
	return set, nil
}

// ChangeSet returns a change set by id.
func (s *Store) ChangeSet(ctx context.Context, id string) (*ChangeSet, error) {
	set, err := s.database.FindChangeSet(ctx, id)
	if err != nil {
		return nil, fmt.Errorf("finding change set: %w", err)
	}
	if set == nil {
		return nil, fmt.Errorf("%w: change set %s", ErrNotFound, id)
	}
	return set, nil
}

// AddChange adds a change to a change set. Adding a change that is already a
// member is a no-op.
func (s *Store) AddChange(ctx context.Context, setID string, changeID int64) error {
	if _, err := s.ChangeSet(ctx, setID); err != nil {
		return err
	}
	if _, err := s.Change(ctx, changeID); err != nil {
		return err
	}

	version, err := s.database.AddChangeSetElement(ctx, setID, changeID)
	if err != nil {
		return fmt.Errorf("adding change to set: %w", err)
	}
	s.publish(version, "change_set_element")
	return nil
}

// RemoveChange removes a change from a change set. Removing a non-member is a
// no-op.
func (s *Store) RemoveChange(ctx context.Context, setID string, changeID int64) error {
	if _, err := s.ChangeSet(ctx, setID); err != nil {
		return err
	}

	version, err := s.database.RemoveChangeSetElement(ctx, setID, changeID)
	if err != nil {
		return fmt.Errorf("removing change from set: %w", err)
	}
	s.publish(version, "change_set_element")
	return nil
}

// ChangeSetChanges returns the members of a change set, oldest first.
func (s *Store) ChangeSetChanges(ctx context.Context, setID string) ([]*Change, error) {
	if _, err := s.ChangeSet(ctx, setID); err != nil {
		return nil, err
	}
	changes, err := s.database.ListChangeSetElements(ctx, setID)
	if err != nil {
		return nil, fmt.Errorf("listing change set elements: %w", err)
	}
	return changes, nil
}

// ChangeSetsForChange returns every change set containing the change.
func (s *Store) ChangeSetsForChange(ctx context.Context, changeID int64) ([]*ChangeSet, error) {
	sets, err := s.database.ListChangeSetsForChange(ctx, changeID)
	if err != nil {
		return nil, fmt.Errorf("listing change sets: %w", err)
	}
	return sets, nil
}

// CreateLabel creates a label. Names are unique.
func (s *Store) CreateLabel(ctx context.Context, name string) (*Label, error) {
	if name == "" {
		return nil, fmt.Errorf("%w: empty label name", ErrInvalidArgument)
	}

	existing, err := s.database.FindLabelByName(ctx, name)
	if err != nil {
		return nil, fmt.Errorf("finding label: %w", err)
	}
	if existing != nil {
		return nil, fmt.Errorf("%w: label %q", ErrAlreadyExists, name)
	}

	label := &Label{ID: s.idgen.New(), Name: name}
	version, err := s.database.CreateLabel(ctx, label)
	if err != nil {
		return nil, fmt.Errorf("creating label: %w", err)
	}
	s.publish(version, "label")
	return label, nil
}

// EnsureLabel returns the named label, creating it if it does not exist.
func (s *Store) EnsureLabel(ctx context.Context, name string) (*Label, error) {
	label, err := s.database.FindLabelByName(ctx, name)
	if err != nil {
		return nil, fmt.Errorf("finding label: %w", err)
	}
	if label != nil {
		return label, nil
	}

	label, err = s.CreateLabel(ctx, name)
	if errors.Is(err, ErrAlreadyExists) {
		return s.label(ctx, name)
	}
	return label, err
}

func (s *Store) label(ctx context.Context, name string) (*Label, error) {
	label, err := s.database.FindLabelByName(ctx, name)
	if err != nil {
		return nil, fmt.Errorf("finding label: %w", err)
	}
	if label == nil {
		return nil, fmt.Errorf("%w: label %q", ErrNotFound, name)
	}
	return label, nil
}

// ListLabels returns every label ordered by name.
func (s *Store) ListLabels(ctx context.Context) ([]*Label, error) {
	labels, err := s.database.ListLabels(ctx)
	if err != nil {
		return nil, fmt.Errorf("listing labels: %w", err)
	}
	return labels, nil
}

// AttachLabel attaches a label to a change set, creating the label on first use.
// Attaching a label twice is a no-op.
func (s *Store) AttachLabel(ctx context.Context, setID, labelName string) error {
	if _, err := s.ChangeSet(ctx, setID); err != nil {
		return err
	}
	label, err := s.EnsureLabel(ctx, labelName)
	if err != nil {
		return err
	}

	version, err := s.database.AttachLabel(ctx, setID, label.ID)
	if err != nil {
		return fmt.Errorf("attaching label: %w", err)
	}
	s.publish(version, "label_attach")
	return nil
}

// RemoveLabel detaches a label from a change set.
func (s *Store) RemoveLabel(ctx context.Context, setID, labelName string) error {
	if _, err := s.ChangeSet(ctx, setID); err != nil {
		return err
	}
	label, err := s.label(ctx, labelName)
	if err != nil {
		return err
	}

	version, err := s.database.DetachLabel(ctx, setID, label.ID)
	if err != nil {
		return fmt.Errorf("detaching label: %w", err)
	}
	s.publish(version, "label_detach")
	return nil
}

// ChangeSetLabels returns the labels attached to a change set.
func (s *Store) ChangeSetLabels(ctx context.Context, setID string) ([]*Label, error) {
	if _, err := s.ChangeSet(ctx, setID); err != nil {
		return nil, err
	}
	labels, err := s.database.ListChangeSetLabels(ctx, setID)
	if err != nil {
		return nil, fmt.Errorf("listing change set labels: %w", err)
	}
	return labels, nil
}

// Confirm marks a change as confirmed. A change set holding only this change is
// reused when one exists; otherwise one named "confirm/<id>" is created. The
// label attachment commits in a single transaction. Confirming an already
// confirmed change does nothing.
func (s *Store) Confirm(ctx context.Context, changeID int64) error {
	if _, err := s.Change(ctx, changeID); err != nil {
		return err
	}

	now := s.clock.Now()
	version, err := s.database.ConfirmChange(ctx, ConfirmParams{
		ChangeID: changeID,
		Label:    &Label{ID: s.idgen.New(), Name: ConfirmedLabel},
		ChangeSet: &ChangeSet{
			ID:        s.idgen.New(),
			Name:      fmt.Sprintf("confirm/%d", changeID),
			CreatedAt: now,
		},
	})
	if err != nil {
		return fmt.Errorf("confirming change: %w", err)
	}
	s.publish(version, "confirm")

	if version != 0 {
		s.logger.Info("change confirmed", "change_id", changeID)
	}
	return nil
}

// Unconfirm makes the change unconfirmed without touching other changes. A
// confirmed set holding only this change loses the label; a confirmed set
// shared with other changes drops this change instead.
func (s *Store) Unconfirm(ctx context.Context, changeID int64) error {
	if _, err := s.Change(ctx, changeID); err != nil {
		return err
	}

	version, err := s.database.UnconfirmChange(ctx, changeID, ConfirmedLabel)
	if err != nil {
		return fmt.Errorf("unconfirming change: %w", err)
	}
	s.publish(version, "unconfirm")

	if version != 0 {
		s.logger.Info("change unconfirmed", "change_id", changeID)
	}
	return nil
}

// IsConfirmed reports whether the change carries the confirmed label.
func (s *Store) IsConfirmed(ctx context.Context, c *Change) (bool, error) {
	return s.ChangeHasLabel(ctx, ConfirmedLabel, c)
}

// UnconfirmedChanges returns the changes of a file that are leaves in the branch
// and lack the confirmed label, newest first.
func (s *Store) UnconfirmedChanges(ctx context.Context, fileID, branchName string) ([]*Change, error) {
	branch, err := s.branch(ctx, branchName)
	if err != nil {
		return nil, err
	}

	return s.Changes(ctx, ChangeQuery{
		FileID: fileID,
		Where: []Predicate{
			InBranch{BranchID: branch.ID},
			IsLeaf{BranchID: branch.ID},
			Not{P: HasLabel{Name: ConfirmedLabel}},
		},
	})
}

// WriteChangeSet writes several entities into a branch and groups the resulting
// changes in a new change set. Each write commits on its own; if one fails, the
// set keeps the changes that already landed and the error is returned with them.
func (s *Store) WriteChangeSet(ctx context.Context, name, branch string, reqs []WriteRequest) (*ChangeSet, []*Change, error) {
	if _, err := s.branch(ctx, branch); err != nil {
		return nil, nil, err
	}

	set, err := s.CreateChangeSet(ctx, name)
	if err != nil {
		return nil, nil, err
	}

	changes := make([]*Change, 0, len(reqs))
	for i, req := range reqs {
		req.Branch = branch
		change, err := s.write(ctx, req, set.ID)
		if err != nil {
			return set, changes, fmt.Errorf("writing entity %d of %d (%s): %w", i+1, len(reqs), req.EntityID, err)
		}
		changes = append(changes, change)
	}

	s.logger.Info("change set written", "change_set_id", set.ID, "name", name, "changes", len(changes))
	return set, changes, nil
}
