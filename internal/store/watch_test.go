package store

import (
	"context"
	"testing"
	"time"
)

func TestWatcherSelfWriteSuppressed(t *testing.T) {
	s := newTestStore(t)

	fired := make(chan struct{}, 1)
	w := NewWatcher(s, func() { fired <- struct{}{} }, nil)

	// A write through this store marks the self-write window; external-change
	// notifications inside it are swallowed.
	s.PutWorkOrder(sampleOrder("WO-100"))
	w.scheduleNotify()

	select {
	case <-fired:
		t.Fatal("own write should not fire the external-change callback")
	case <-time.After(3 * watchDebounce):
	}
}

func TestWatcherNotifiesAfterWindow(t *testing.T) {
	s := newTestStore(t)

	fired := make(chan struct{}, 1)
	w := NewWatcher(s, func() { fired <- struct{}{} }, nil)

	// No self-write recorded, so the notification goes through.
	w.scheduleNotify()

	select {
	case <-fired:
	case <-time.After(time.Second):
		t.Fatal("external change never reported")
	}
}

func TestWatcherCoalescesBursts(t *testing.T) {
	s := newTestStore(t)

	fired := make(chan struct{}, 8)
	w := NewWatcher(s, func() { fired <- struct{}{} }, nil)

	for i := 0; i < 5; i++ {
		w.scheduleNotify()
	}

	time.Sleep(3 * watchDebounce)
	if n := len(fired); n != 1 {
		t.Fatalf("burst fired %d callbacks, want 1", n)
	}
}

func TestWatcherStartRunsUntilCancel(t *testing.T) {
	s, err := New(t.TempDir() + "/fieldops.db")
	if err != nil {
		t.Fatalf("New: %v", err)
	}
	t.Cleanup(func() { s.Close() })

	w := NewWatcher(s, func() {}, nil)

	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan struct{})
	go func() {
		w.Start(ctx)
		close(done)
	}()

	// Start is a blocking loop; callers run it on its own goroutine. It must
	// still be running before cancellation and return promptly after it.
	select {
	case <-done:
		t.Fatal("Start returned before the context was cancelled")
	case <-time.After(3 * watchDebounce):
	}

	cancel()
	select {
	case <-done:
	case <-time.After(time.Second):
		t.Fatal("Start did not return after cancellation")
	}
}

func TestWatcherStartNoopForMemory(t *testing.T) {
	s := newTestStore(t)
	w := NewWatcher(s, func() {}, nil)

	ctx, cancel := context.WithTimeout(context.Background(), 50*time.Millisecond)
	defer cancel()

	done := make(chan struct{})
	go func() {
		w.Start(ctx)
		close(done)
	}()

	select {
	case <-done:
	case <-time.After(time.Second):
		t.Fatal("Start should return immediately for an in-memory store")
	}
}
