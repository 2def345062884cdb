package store

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"
)

func TestNotifier_Publish(t *testing.T) {
	n := NewNotifier(5)

	tests := []struct {
		publish uint64
		moved   bool
		want    uint64
	}{
		{publish: 4, moved: false, want: 5},
		{publish: 5, moved: false, want: 5},
		{publish: 7, moved: true, want: 7},
		{publish: 6, moved: false, want: 7},
	}
	for _, tt := range tests {
		if got := n.Publish(tt.publish); got != tt.moved {
			t.Errorf("Publish(%d) = %v, want %v", tt.publish, got, tt.moved)
		}
		if got := n.Version(); got != tt.want {
			t.Errorf("Version() after Publish(%d) = %d, want %d", tt.publish, got, tt.want)
		}
	}
}

func TestNotifier_Wait(t *testing.T) {
	t.Run("returns immediately when already past", func(t *testing.T) {
		n := NewNotifier(3)

		v, err := n.Wait(context.Background(), 2)
		if err != nil || v != 3 {
			t.Errorf("Wait() = %d, %v, want 3, nil", v, err)
		}
	})

	t.Run("wakes on publish", func(t *testing.T) {
		n := NewNotifier(0)

		done := make(chan uint64)
		go func() {
			v, _ := n.Wait(context.Background(), 0)
			done <- v
		}()

		n.Publish(1)
		select {
		case v := <-done:
			if v != 1 {
				t.Errorf("Wait() = %d, want 1", v)
			}
		case <-time.After(5 * time.Second):
			t.Fatal("Wait() did not return after Publish")
		}
	})

	t.Run("honors cancellation", func(t *testing.T) {
		n := NewNotifier(0)
		ctx, cancel := context.WithTimeout(context.Background(), 10*time.Millisecond)
		defer cancel()

		if _, err := n.Wait(ctx, 0); !errors.Is(err, context.DeadlineExceeded) {
			t.Errorf("Wait() error = %v, want DeadlineExceeded", err)
		}
	})
}

func TestNotifier_Subscribe(t *testing.T) {
	n := NewNotifier(0)
	ctx, cancel := context.WithCancel(context.Background())

	ch := n.Subscribe(ctx)
	for i := uint64(1); i <= 10; i++ {
		n.Publish(i)
	}

	// Intermediate versions may be coalesced, but the last one arrives.
	deadline := time.After(5 * time.Second)
	var last uint64
	for last < 10 {
		select {
		case v := <-ch:
			if v <= last {
				t.Fatalf("Subscribe() delivered %d after %d", v, last)
			}
			last = v
		case <-deadline:
			t.Fatalf("Subscribe() stalled at %d", last)
		}
	}

	cancel()
	for range ch {
	}
}

func TestNotifier_ConcurrentPublish(t *testing.T) {
	n := NewNotifier(0)

	var wg sync.WaitGroup
	for i := 1; i <= 100; i++ {
		wg.Add(1)
		go func(v uint64) {
			defer wg.Done()
			n.Publish(v)
		}(uint64(i))
	}
	wg.Wait()

	if got := n.Version(); got != 100 {
		t.Errorf("Version() = %d, want 100", got)
	}
}
