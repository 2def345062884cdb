package store

import "sync"

// entityKey identifies one leaf pointer in the branch index.
type entityKey struct {
	branchID string
	fileID   string
	entityID string
}

// entityLocks serializes writers of the same entity within a branch while
// leaving writers of different entities independent. Entries are reference
// counted and dropped when the last holder unlocks.
type entityLocks struct {
	mu    sync.Mutex
	locks map[entityKey]*entityLock
}

type entityLock struct {
	mu   sync.Mutex
	refs int
}

func newEntityLocks() *entityLocks {
	return &entityLocks{locks: make(map[entityKey]*entityLock)}
}

// lock acquires the lock for key and returns its release function.
func (l *entityLocks) lock(key entityKey) func() {
	l.mu.Lock()
	el, ok := l.locks[key]
	if !ok {
		el = &entityLock{}
		l.locks[key] = el
	}
	el.refs++
	l.mu.Unlock()

	el.mu.Lock()

	return func() {
		el.mu.Unlock()

		l.mu.Lock()
		el.refs--
		if el.refs == 0 {
			delete(l.locks, key)
		}
		l.mu.Unlock()
	}
}

// size returns the number of live lock entries.
func (l *entityLocks) size() int {
	l.mu.Lock()
	defer l.mu.Unlock()
	return len(l.locks)
}
