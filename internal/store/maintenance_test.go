package store_test

import (
	"context"
	"io"
	"sync"
	"testing"

	"changestore/internal/diff"
	"changestore/internal/store"
	"changestore/internal/testutil"
)

func TestStore_GarbageCollect(t *testing.T) {
	ctx := context.Background()
	s := testutil.NewTestStore(t)
	file := openFile(t, s, "strings.csv")
	kept := write(t, s, file.ID, "row:1", "kept", "")

	orphan, err := s.PutSnapshot(ctx, []byte("orphan"))
	if err != nil {
		t.Fatalf("PutSnapshot() error = %v", err)
	}

	// File content that was replaced leaves its first snapshot unreferenced.
	replaced, err := s.WriteFileContent(ctx, file.ID, []byte("v1"))
	if err != nil {
		t.Fatalf("WriteFileContent() error = %v", err)
	}
	current, err := s.WriteFileContent(ctx, file.ID, []byte("v2"))
	if err != nil {
		t.Fatalf("WriteFileContent() error = %v", err)
	}

	removed, err := s.GarbageCollect(ctx)
	if err != nil {
		t.Fatalf("GarbageCollect() error = %v", err)
	}

	gone := map[string]bool{}
	for _, id := range removed {
		gone[id] = true
	}
	if len(removed) != 2 || !gone[orphan.ID] || !gone[replaced.ID] {
		t.Errorf("GarbageCollect() = %v, want [%s %s]", removed, orphan.ID, replaced.ID)
	}

	for _, id := range []string{orphan.ID, replaced.ID} {
		if ok, _ := s.Vault.HasContent(ctx, id); ok {
			t.Errorf("payload %s still in vault", id)
		}
	}
	for _, id := range []string{kept.SnapshotID, current.ID} {
		if ok, _ := s.Vault.HasContent(ctx, id); !ok {
			t.Errorf("referenced payload %s was deleted", id)
		}
	}

	if got := readContent(t, s, file.ID, "row:1", ""); string(got) != "kept" {
		t.Errorf("Read() after gc = %q, want kept", got)
	}

	again, err := s.GarbageCollect(ctx)
	if err != nil {
		t.Fatalf("GarbageCollect() error = %v", err)
	}
	if len(again) != 0 {
		t.Errorf("second GarbageCollect() = %v, want nothing", again)
	}
}

// hookedVault runs callbacks before payload uploads and deletions.
type hookedVault struct {
	store.Vault
	beforePut    func(key string)
	beforeDelete func(key string)
}

func (v *hookedVault) PutContent(ctx context.Context, key string, r io.Reader, size int64) error {
	if v.beforePut != nil {
		v.beforePut(key)
	}
	return v.Vault.PutContent(ctx, key, r, size)
}

func (v *hookedVault) DeleteContent(ctx context.Context, key string) error {
	if v.beforeDelete != nil {
		v.beforeDelete(key)
	}
	return v.Vault.DeleteContent(ctx, key)
}

func newHookedStore(t *testing.T) (*testutil.TestStore, *hookedVault) {
	t.Helper()
	hooks := &hookedVault{}
	s := testutil.NewTestStore(t, testutil.WithVaultWrapper(func(v store.Vault) store.Vault {
		hooks.Vault = v
		return hooks
	}))
	return s, hooks
}

func TestStore_GarbageCollectConcurrentWrite(t *testing.T) {
	ctx := context.Background()
	s, hooks := newHookedStore(t)
	file := openFile(t, s, "strings.csv")

	orphan, err := s.PutSnapshot(ctx, []byte("x"))
	if err != nil {
		t.Fatalf("PutSnapshot() error = %v", err)
	}

	// A write of the collected content starts while payloads are being deleted.
	written := make(chan error, 1)
	var once sync.Once
	hooks.beforeDelete = func(string) {
		once.Do(func() {
			go func() {
				_, err := s.Write(ctx, store.WriteRequest{FileID: file.ID, EntityID: "row:1", Type: "update", Content: []byte("x")})
				written <- err
			}()
		})
	}

	removed, err := s.GarbageCollect(ctx)
	if err != nil {
		t.Fatalf("GarbageCollect() error = %v", err)
	}
	if len(removed) != 1 || removed[0] != orphan.ID {
		t.Errorf("GarbageCollect() = %v, want [%s]", removed, orphan.ID)
	}

	if err := <-written; err != nil {
		t.Fatalf("Write() during gc error = %v", err)
	}
	if got := readContent(t, s, file.ID, "row:1", ""); string(got) != "x" {
		t.Errorf("Read() = %q, want x", got)
	}
	if ok, _ := s.Vault.HasContent(ctx, orphan.ID); !ok {
		t.Error("payload of the written change is missing from the vault")
	}
}

func TestStore_Diff(t *testing.T) {
	ctx := context.Background()
	s := testutil.NewTestStore(t)
	file := openFile(t, s, "strings.csv")
	from := write(t, s, file.ID, "row:1", "hello\nworld\n", "")
	to := write(t, s, file.ID, "row:1", "hello\nthere\n", "")

	result, err := s.Diff(ctx, from.ID, to.ID)
	if err != nil {
		t.Fatalf("Diff() error = %v", err)
	}
	if !result.Changed() || result.Added != 1 || result.Removed != 1 {
		t.Errorf("Diff() added=%d removed=%d, want 1 and 1", result.Added, result.Removed)
	}

	var removed, added string
	for _, l := range result.Lines {
		switch l.Op {
		case diff.OpRemoved:
			removed = l.Content
		case diff.OpAdded:
			added = l.Content
		}
	}
	if removed != "world" || added != "there" {
		t.Errorf("Diff() removed %q added %q, want world and there", removed, added)
	}

	same, err := s.Diff(ctx, from.ID, from.ID)
	if err != nil {
		t.Fatalf("Diff() error = %v", err)
	}
	if same.Changed() {
		t.Error("Diff() of a change with itself reports changes")
	}
}

func TestStore_Stats(t *testing.T) {
	ctx := context.Background()
	s := testutil.NewTestStore(t)
	file := openFile(t, s, "strings.csv")
	write(t, s, file.ID, "row:1", "a", "")
	write(t, s, file.ID, "row:2", "a", "")
	write(t, s, file.ID, "row:2", "b", "")
	if _, err := s.CreateChangeSet(ctx, "review"); err != nil {
		t.Fatalf("CreateChangeSet() error = %v", err)
	}

	got, err := s.Stats(ctx)
	if err != nil {
		t.Fatalf("Stats() error = %v", err)
	}
	want := store.Stats{
		Files:      1,
		Branches:   1,
		Changes:    3,
		Snapshots:  2,
		ChangeSets: 1,
		Version:    s.CurrentVersion(),
	}
	if *got != want {
		t.Errorf("Stats() = %+v, want %+v", *got, want)
	}
}
