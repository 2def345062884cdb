package store

import (
	"context"
	"sync"
	"sync/atomic"
)

// Notifier holds the store version: a counter that increases exactly once per
// committed mutation. Consumers poll Version and re-run their queries when it
// moves, or block in Wait / Subscribe instead of polling.
//
// Versions are published only after the mutation's transaction commits, so a
// reader that observes version v sees every mutation numbered v or lower.
type Notifier struct {
	version atomic.Uint64

	mu      sync.Mutex
	changed chan struct{} // closed and replaced on every publish
}

// NewNotifier creates a Notifier starting at initial.
func NewNotifier(initial uint64) *Notifier {
	n := &Notifier{changed: make(chan struct{})}
	n.version.Store(initial)
	return n
}

// Version returns the latest published version. It never blocks.
func (n *Notifier) Version() uint64 {
	return n.version.Load()
}

// Publish raises the version to v. Stale values are ignored, which keeps the
// counter monotonic when commits from several goroutines publish out of order.
// Returns true if the version moved.
func (n *Notifier) Publish(v uint64) bool {
	n.mu.Lock()
	defer n.mu.Unlock()

	if v <= n.version.Load() {
		return false
	}
	n.version.Store(v)
	close(n.changed)
	n.changed = make(chan struct{})
	return true
}

// Wait blocks until the version is greater than since, then returns it.
func (n *Notifier) Wait(ctx context.Context, since uint64) (uint64, error) {
	for {
		n.mu.Lock()
		ch := n.changed
		n.mu.Unlock()

		if v := n.version.Load(); v > since {
			return v, nil
		}

		select {
		case <-ctx.Done():
			return n.version.Load(), ctx.Err()
		case <-ch:
		}
	}
}

// Subscribe delivers each new version on the returned channel until ctx is
// done, then closes it. Slow consumers only ever see the latest version.
func (n *Notifier) Subscribe(ctx context.Context) <-chan uint64 {
	out := make(chan uint64, 1)
	last := n.Version()

	go func() {
		defer close(out)
		for {
			v, err := n.Wait(ctx, last)
			if err != nil {
				return
			}
			last = v

			select {
			case out <- v:
			default:
				// Replace the undelivered value with the newer one.
				select {
				case <-out:
				default:
				}
				out <- v
			}
		}
	}()

	return out
}
