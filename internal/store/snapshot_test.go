package store_test

import (
	"bytes"
	"context"
	"errors"
	"strings"
	"sync"
	"testing"
	"time"

	"changestore/internal/store"
	"changestore/internal/testutil"
)

func TestContentID(t *testing.T) {
	a := store.ContentID([]byte("a"))
	if len(a) != 64 {
		t.Errorf("len(ContentID()) = %d, want 64 hex chars", len(a))
	}
	if a != store.ContentID([]byte("a")) {
		t.Error("ContentID() is not stable")
	}
	if a == store.ContentID([]byte("b")) {
		t.Error("ContentID() collides for different content")
	}
}

func TestStore_PutSnapshot(t *testing.T) {
	ctx := context.Background()

	t.Run("identical content maps to one snapshot", func(t *testing.T) {
		s := testutil.NewTestStore(t)

		first, err := s.PutSnapshot(ctx, []byte("payload"))
		if err != nil {
			t.Fatalf("PutSnapshot() error = %v", err)
		}
		v := s.CurrentVersion()

		second, err := s.PutSnapshot(ctx, []byte("payload"))
		if err != nil {
			t.Fatalf("PutSnapshot() error = %v", err)
		}
		if first.ID != second.ID {
			t.Errorf("ids differ: %s vs %s", first.ID, second.ID)
		}
		if s.CurrentVersion() != v {
			t.Errorf("version moved on a dedup hit: %d -> %d", v, s.CurrentVersion())
		}

		got, err := s.Snapshot(ctx, first.ID)
		if err != nil {
			t.Fatalf("Snapshot() error = %v", err)
		}
		if string(got) != "payload" {
			t.Errorf("Snapshot() = %q, want payload", got)
		}
	})

	t.Run("missing snapshot is not found", func(t *testing.T) {
		s := testutil.NewTestStore(t)

		_, err := s.Snapshot(ctx, store.ContentID([]byte("never stored")))
		if !errors.Is(err, store.ErrNotFound) {
			t.Errorf("Snapshot() error = %v, want ErrNotFound", err)
		}
	})

	t.Run("concurrent puts of the same content", func(t *testing.T) {
		s := testutil.NewTestStore(t)
		content := []byte(strings.Repeat("x", 4096))

		var wg sync.WaitGroup
		ids := make([]string, 16)
		for i := range ids {
			wg.Add(1)
			go func(i int) {
				defer wg.Done()
				snap, err := s.PutSnapshot(ctx, content)
				if err != nil {
					t.Errorf("PutSnapshot() error = %v", err)
					return
				}
				ids[i] = snap.ID
			}(i)
		}
		wg.Wait()

		for _, id := range ids {
			if id != ids[0] {
				t.Errorf("ids differ: %s vs %s", id, ids[0])
			}
		}
		count, _ := s.SnapshotCount(ctx)
		if count != 1 {
			t.Errorf("SnapshotCount() = %d, want 1", count)
		}
	})
}

func TestStore_SnapshotConflicts(t *testing.T) {
	ctx := context.Background()

	t.Run("size mismatch under one address", func(t *testing.T) {
		s := testutil.NewTestStore(t)
		id := store.ContentID([]byte("a"))
		if _, err := s.DB.InsertSnapshot(ctx, &store.Snapshot{ID: id, Size: 99, Encoding: "identity", CreatedAt: s.Clock.Now()}); err != nil {
			t.Fatalf("InsertSnapshot() error = %v", err)
		}

		_, err := s.PutSnapshot(ctx, []byte("a"))
		if !errors.Is(err, store.ErrContentConflict) {
			t.Errorf("PutSnapshot() error = %v, want ErrContentConflict", err)
		}
	})

	t.Run("payload mismatch with byte verification", func(t *testing.T) {
		s := testutil.NewTestStore(t, testutil.WithVerifyDedup())
		id := store.ContentID([]byte("a"))
		if err := s.Vault.PutContent(ctx, id, bytes.NewReader([]byte("b")), 1); err != nil {
			t.Fatalf("PutContent() error = %v", err)
		}
		if _, err := s.DB.InsertSnapshot(ctx, &store.Snapshot{ID: id, Size: 1, Encoding: "identity", CreatedAt: s.Clock.Now()}); err != nil {
			t.Fatalf("InsertSnapshot() error = %v", err)
		}

		_, err := s.PutSnapshot(ctx, []byte("a"))
		if !errors.Is(err, store.ErrContentConflict) {
			t.Errorf("PutSnapshot() error = %v, want ErrContentConflict", err)
		}
	})

	t.Run("corrupt payload is detected on read", func(t *testing.T) {
		s := testutil.NewTestStore(t)
		snap, err := s.PutSnapshot(ctx, []byte("a"))
		if err != nil {
			t.Fatalf("PutSnapshot() error = %v", err)
		}
		if err := s.Vault.PutContent(ctx, snap.ID, bytes.NewReader([]byte("z")), 1); err != nil {
			t.Fatalf("PutContent() error = %v", err)
		}

		_, err = s.Snapshot(ctx, snap.ID)
		if !errors.Is(err, store.ErrContentConflict) {
			t.Errorf("Snapshot() error = %v, want ErrContentConflict", err)
		}
	})

	t.Run("cancelled caller does not fail a coalesced put", func(t *testing.T) {
		s, hooks := newHookedStore(t)

		started := make(chan struct{})
		release := make(chan struct{})
		var once sync.Once
		hooks.beforePut = func(string) {
			once.Do(func() {
				close(started)
				<-release
			})
		}

		cancelCtx, cancel := context.WithCancel(ctx)
		first := make(chan error, 1)
		go func() {
			_, err := s.PutSnapshot(cancelCtx, []byte("shared"))
			first <- err
		}()
		<-started

		type result struct {
			snap *store.Snapshot
			err  error
		}
		second := make(chan result, 1)
		go func() {
			snap, err := s.PutSnapshot(ctx, []byte("shared"))
			second <- result{snap, err}
		}()

		// Give the second caller time to join the upload in flight.
		time.Sleep(20 * time.Millisecond)
		cancel()
		close(release)
		<-first

		got := <-second
		if got.err != nil {
			t.Fatalf("PutSnapshot() error = %v", got.err)
		}
		content, err := s.Snapshot(ctx, got.snap.ID)
		if err != nil {
			t.Fatalf("Snapshot() error = %v", err)
		}
		if string(content) != "shared" {
			t.Errorf("Snapshot() = %q, want shared", content)
		}
	})
}
