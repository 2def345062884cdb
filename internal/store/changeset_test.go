package store_test

import (
	"context"
	"errors"
	"testing"

	"changestore/internal/store"
	"changestore/internal/testutil"
)

func TestStore_ChangeSets(t *testing.T) {
	ctx := context.Background()

	t.Run("add is idempotent", func(t *testing.T) {
		s := testutil.NewTestStore(t)
		file := openFile(t, s, "strings.csv")
		change := write(t, s, file.ID, "row:1", "a", "")

		set, err := s.CreateChangeSet(ctx, "review")
		if err != nil {
			t.Fatalf("CreateChangeSet() error = %v", err)
		}
		if err := s.AddChange(ctx, set.ID, change.ID); err != nil {
			t.Fatalf("AddChange() error = %v", err)
		}
		v := s.CurrentVersion()
		if err := s.AddChange(ctx, set.ID, change.ID); err != nil {
			t.Fatalf("second AddChange() error = %v", err)
		}
		if s.CurrentVersion() != v {
			t.Error("second AddChange() moved the version")
		}

		changes, err := s.ChangeSetChanges(ctx, set.ID)
		if err != nil {
			t.Fatalf("ChangeSetChanges() error = %v", err)
		}
		if len(changes) != 1 || changes[0].ID != change.ID {
			t.Errorf("ChangeSetChanges() = %v, want [%d]", changes, change.ID)
		}

		if err := s.RemoveChange(ctx, set.ID, change.ID); err != nil {
			t.Fatalf("RemoveChange() error = %v", err)
		}
		changes, _ = s.ChangeSetChanges(ctx, set.ID)
		if len(changes) != 0 {
			t.Errorf("ChangeSetChanges() after remove = %v, want empty", changes)
		}
	})

	t.Run("missing references are not found", func(t *testing.T) {
		s := testutil.NewTestStore(t)
		set, _ := s.CreateChangeSet(ctx, "review")

		if err := s.AddChange(ctx, set.ID, 999); !errors.Is(err, store.ErrNotFound) {
			t.Errorf("AddChange(unknown change) error = %v, want ErrNotFound", err)
		}
		if err := s.AddChange(ctx, "missing", 1); !errors.Is(err, store.ErrNotFound) {
			t.Errorf("AddChange(unknown set) error = %v, want ErrNotFound", err)
		}
		if err := s.RemoveLabel(ctx, set.ID, "nope"); !errors.Is(err, store.ErrNotFound) {
			t.Errorf("RemoveLabel(unknown label) error = %v, want ErrNotFound", err)
		}
	})

	t.Run("labels", func(t *testing.T) {
		s := testutil.NewTestStore(t)
		file := openFile(t, s, "strings.csv")
		change := write(t, s, file.ID, "row:1", "a", "")
		set, _ := s.CreateChangeSet(ctx, "review")
		if err := s.AddChange(ctx, set.ID, change.ID); err != nil {
			t.Fatalf("AddChange() error = %v", err)
		}

		if err := s.AttachLabel(ctx, set.ID, "approved"); err != nil {
			t.Fatalf("AttachLabel() error = %v", err)
		}
		has, err := s.ChangeHasLabel(ctx, "approved", change)
		if err != nil {
			t.Fatalf("ChangeHasLabel() error = %v", err)
		}
		if !has {
			t.Error("ChangeHasLabel(approved) = false after attach")
		}

		labels, _ := s.ChangeSetLabels(ctx, set.ID)
		if len(labels) != 1 || labels[0].Name != "approved" {
			t.Errorf("ChangeSetLabels() = %v, want [approved]", labels)
		}

		if err := s.RemoveLabel(ctx, set.ID, "approved"); err != nil {
			t.Fatalf("RemoveLabel() error = %v", err)
		}
		has, _ = s.ChangeHasLabel(ctx, "approved", change)
		if has {
			t.Error("ChangeHasLabel(approved) = true after remove")
		}

		if _, err := s.CreateLabel(ctx, "approved"); !errors.Is(err, store.ErrAlreadyExists) {
			t.Errorf("CreateLabel(duplicate) error = %v, want ErrAlreadyExists", err)
		}
		all, _ := s.ListLabels(ctx)
		if len(all) != 1 {
			t.Errorf("ListLabels() = %v, want one label", all)
		}
	})
}

func TestStore_ConfirmWorkflow(t *testing.T) {
	ctx := context.Background()

	t.Run("confirm then unconfirm", func(t *testing.T) {
		s := testutil.NewTestStore(t)
		file := openFile(t, s, "strings.csv")
		change := write(t, s, file.ID, "row:1", "a", "")

		if err := s.Confirm(ctx, change.ID); err != nil {
			t.Fatalf("Confirm() error = %v", err)
		}
		confirmed, err := s.IsConfirmed(ctx, change)
		if err != nil {
			t.Fatalf("IsConfirmed() error = %v", err)
		}
		if !confirmed {
			t.Error("IsConfirmed() = false after Confirm()")
		}

		if err := s.Unconfirm(ctx, change.ID); err != nil {
			t.Fatalf("Unconfirm() error = %v", err)
		}
		confirmed, _ = s.IsConfirmed(ctx, change)
		if confirmed {
			t.Error("IsConfirmed() = true after Unconfirm()")
		}
	})

	t.Run("unconfirmed changes exclude confirmed leaves", func(t *testing.T) {
		s := testutil.NewTestStore(t)
		file := openFile(t, s, "strings.csv")
		write(t, s, file.ID, "row:1", "old", "main")
		leaf := write(t, s, file.ID, "row:1", "a", "main")

		pending, err := s.UnconfirmedChanges(ctx, file.ID, "main")
		if err != nil {
			t.Fatalf("UnconfirmedChanges() error = %v", err)
		}
		if len(pending) != 1 || pending[0].ID != leaf.ID {
			t.Fatalf("UnconfirmedChanges() = %v, want only leaf %d", pending, leaf.ID)
		}

		if err := s.Confirm(ctx, leaf.ID); err != nil {
			t.Fatalf("Confirm() error = %v", err)
		}
		pending, err = s.UnconfirmedChanges(ctx, file.ID, "main")
		if err != nil {
			t.Fatalf("UnconfirmedChanges() error = %v", err)
		}
		if len(pending) != 0 {
			t.Errorf("UnconfirmedChanges() after confirm = %v, want empty", pending)
		}

		// A newer write is unconfirmed again.
		next := write(t, s, file.ID, "row:1", "b", "main")
		pending, _ = s.UnconfirmedChanges(ctx, file.ID, "main")
		if len(pending) != 1 || pending[0].ID != next.ID {
			t.Errorf("UnconfirmedChanges() after new write = %v, want [%d]", pending, next.ID)
		}
	})

	t.Run("confirm reuses a singleton change set", func(t *testing.T) {
		s := testutil.NewTestStore(t)
		file := openFile(t, s, "strings.csv")
		change := write(t, s, file.ID, "row:1", "a", "")
		set, _ := s.CreateChangeSet(ctx, "single")
		if err := s.AddChange(ctx, set.ID, change.ID); err != nil {
			t.Fatalf("AddChange() error = %v", err)
		}

		if err := s.Confirm(ctx, change.ID); err != nil {
			t.Fatalf("Confirm() error = %v", err)
		}
		sets, _ := s.ChangeSetsForChange(ctx, change.ID)
		if len(sets) != 1 || sets[0].ID != set.ID {
			t.Errorf("ChangeSetsForChange() = %v, want only %s", sets, set.ID)
		}
	})

	t.Run("unconfirm leaves siblings in a shared set confirmed", func(t *testing.T) {
		s := testutil.NewTestStore(t)
		file := openFile(t, s, "strings.csv")
		set, changes, err := s.WriteChangeSet(ctx, "import", "", []store.WriteRequest{
			{FileID: file.ID, EntityID: "row:1", Type: "create", Content: []byte("a")},
			{FileID: file.ID, EntityID: "row:2", Type: "create", Content: []byte("b")},
		})
		if err != nil {
			t.Fatalf("WriteChangeSet() error = %v", err)
		}
		if err := s.AttachLabel(ctx, set.ID, store.ConfirmedLabel); err != nil {
			t.Fatalf("AttachLabel() error = %v", err)
		}

		if err := s.Unconfirm(ctx, changes[0].ID); err != nil {
			t.Fatalf("Unconfirm() error = %v", err)
		}

		if confirmed, _ := s.IsConfirmed(ctx, changes[0]); confirmed {
			t.Error("IsConfirmed(unconfirmed change) = true, want false")
		}
		if confirmed, _ := s.IsConfirmed(ctx, changes[1]); !confirmed {
			t.Error("IsConfirmed(sibling) = false, want true")
		}
		members, _ := s.ChangeSetChanges(ctx, set.ID)
		if len(members) != 1 || members[0].ID != changes[1].ID {
			t.Errorf("ChangeSetChanges() = %v, want only %d", members, changes[1].ID)
		}
		labels, _ := s.ChangeSetLabels(ctx, set.ID)
		if len(labels) != 1 || labels[0].Name != store.ConfirmedLabel {
			t.Errorf("ChangeSetLabels() = %v, want [confirmed]", labels)
		}

		pending, _ := s.UnconfirmedChanges(ctx, file.ID, "")
		if len(pending) != 1 || pending[0].ID != changes[0].ID {
			t.Errorf("UnconfirmedChanges() = %v, want [%d]", pending, changes[0].ID)
		}

		before := s.CurrentVersion()
		if err := s.Unconfirm(ctx, changes[0].ID); err != nil {
			t.Fatalf("second Unconfirm() error = %v", err)
		}
		if got := s.CurrentVersion(); got != before {
			t.Errorf("CurrentVersion() after no-op Unconfirm() = %d, want %d", got, before)
		}
	})

	t.Run("unknown change", func(t *testing.T) {
		s := testutil.NewTestStore(t)

		if err := s.Confirm(ctx, 42); !errors.Is(err, store.ErrNotFound) {
			t.Errorf("Confirm() error = %v, want ErrNotFound", err)
		}
		if err := s.Unconfirm(ctx, 42); !errors.Is(err, store.ErrNotFound) {
			t.Errorf("Unconfirm() error = %v, want ErrNotFound", err)
		}
	})
}

func TestStore_WriteChangeSet(t *testing.T) {
	ctx := context.Background()
	s := testutil.NewTestStore(t)
	file := openFile(t, s, "strings.csv")

	set, changes, err := s.WriteChangeSet(ctx, "import", "", []store.WriteRequest{
		{FileID: file.ID, EntityID: "row:1", Type: "create", Content: []byte("a")},
		{FileID: file.ID, EntityID: "row:2", Type: "create", Content: []byte("b")},
	})
	if err != nil {
		t.Fatalf("WriteChangeSet() error = %v", err)
	}
	if len(changes) != 2 {
		t.Fatalf("len(changes) = %d, want 2", len(changes))
	}

	members, _ := s.ChangeSetChanges(ctx, set.ID)
	if len(members) != 2 {
		t.Errorf("ChangeSetChanges() = %v, want 2 members", members)
	}

	t.Run("partial failure keeps landed changes", func(t *testing.T) {
		set, changes, err := s.WriteChangeSet(ctx, "broken", "", []store.WriteRequest{
			{FileID: file.ID, EntityID: "row:3", Content: []byte("c")},
			{FileID: file.ID, EntityID: "", Content: []byte("d")},
		})
		if !errors.Is(err, store.ErrInvalidArgument) {
			t.Fatalf("WriteChangeSet() error = %v, want ErrInvalidArgument", err)
		}
		if len(changes) != 1 {
			t.Errorf("len(changes) = %d, want 1", len(changes))
		}
		members, _ := s.ChangeSetChanges(ctx, set.ID)
		if len(members) != 1 {
			t.Errorf("ChangeSetChanges() = %v, want 1 member", members)
		}
	})
}
