package store

import (
	"sync"
	"testing"
	"time"
)

func TestEntityLocks(t *testing.T) {
	t.Run("serializes the same key", func(t *testing.T) {
		l := newEntityLocks()
		key := entityKey{branchID: "b", fileID: "f", entityID: "e"}

		var (
			wg      sync.WaitGroup
			mu      sync.Mutex
			holders int
			maxSeen int
		)
		for i := 0; i < 20; i++ {
			wg.Add(1)
			go func() {
				defer wg.Done()
				unlock := l.lock(key)
				defer unlock()

				mu.Lock()
				holders++
				if holders > maxSeen {
					maxSeen = holders
				}
				mu.Unlock()

				time.Sleep(time.Millisecond)

				mu.Lock()
				holders--
				mu.Unlock()
			}()
		}
		wg.Wait()

		if maxSeen != 1 {
			t.Errorf("max concurrent holders = %d, want 1", maxSeen)
		}
		if n := l.size(); n != 0 {
			t.Errorf("size() after release = %d, want 0", n)
		}
	})

	t.Run("different keys do not block each other", func(t *testing.T) {
		l := newEntityLocks()
		a := entityKey{branchID: "b", fileID: "f", entityID: "a"}
		b := entityKey{branchID: "b", fileID: "f", entityID: "b"}

		unlockA := l.lock(a)
		defer unlockA()

		done := make(chan struct{})
		go func() {
			unlock := l.lock(b)
			unlock()
			close(done)
		}()

		select {
		case <-done:
		case <-time.After(5 * time.Second):
			t.Fatal("lock on a different key blocked")
		}
		if n := l.size(); n != 1 {
			t.Errorf("size() = %d, want 1", n)
		}
	})
}
