package guard_test

import (
	"io"
	"log/slog"
	"sync"
	"sync/atomic"
	"testing"

	"launcherd/internal/guard"
)

func newTestGuard() *guard.Guard {
	return guard.New(slog.New(slog.NewJSONHandler(io.Discard, nil)))
}

func TestTryAcquireAndRelease(t *testing.T) {
	g := newTestGuard()

	if !g.TryAcquire("alpha") {
		t.Fatal("first TryAcquire failed")
	}
	if g.TryAcquire("alpha") {
		t.Fatal("second TryAcquire succeeded while held")
	}
	// A different title is independent.
	if !g.TryAcquire("beta") {
		t.Fatal("TryAcquire for unrelated title failed")
	}

	g.Release("alpha")
	if !g.TryAcquire("alpha") {
		t.Fatal("TryAcquire after Release failed")
	}
}

func TestReleaseIdempotent(t *testing.T) {
	g := newTestGuard()
	g.TryAcquire("alpha")
	g.Release("alpha")
	g.Release("alpha") // must not panic or disturb other entries
	g.Release("never-acquired")
}

func TestBindAndOwner(t *testing.T) {
	g := newTestGuard()
	g.TryAcquire("alpha")
	g.Bind("alpha", 7)

	id, ok := g.Owner("alpha")
	if !ok || id != 7 {
		t.Errorf("Owner = (%d, %v), want (7, true)", id, ok)
	}

	// Bind after release is a no-op.
	g.Release("alpha")
	g.Bind("alpha", 9)
	if _, ok := g.Owner("alpha"); ok {
		t.Error("Bind recreated a released entry")
	}
}

func TestRemoveReturnsOwner(t *testing.T) {
	g := newTestGuard()
	g.TryAcquire("alpha")
	g.Bind("alpha", 3)

	id, ok := g.Remove("alpha")
	if !ok || id != 3 {
		t.Errorf("Remove = (%d, %v), want (3, true)", id, ok)
	}
	if _, ok := g.Remove("alpha"); ok {
		t.Error("second Remove found an entry")
	}
}

func TestReleaseOwned(t *testing.T) {
	g := newTestGuard()
	g.TryAcquire("alpha")
	g.Bind("alpha", 3)

	// Wrong owner must not release.
	g.ReleaseOwned("alpha", 9)
	if _, ok := g.Owner("alpha"); !ok {
		t.Fatal("ReleaseOwned with wrong task removed the entry")
	}

	g.ReleaseOwned("alpha", 3)
	if _, ok := g.Owner("alpha"); ok {
		t.Fatal("ReleaseOwned with matching task left the entry")
	}

	// A cancelled task's deferred release must not touch a successor's claim.
	g.TryAcquire("alpha")
	g.Bind("alpha", 4)
	g.Remove("alpha")
	g.TryAcquire("alpha")
	g.ReleaseOwned("alpha", 4)
	if _, ok := g.Owner("alpha"); !ok {
		t.Fatal("stale ReleaseOwned removed the successor's reservation")
	}
}

// Concurrent acquire attempts for the same title: exactly one must win.
func TestTryAcquireConcurrent(t *testing.T) {
	g := newTestGuard()

	const attempts = 64
	var wins atomic.Int32
	var wg sync.WaitGroup
	start := make(chan struct{})

	for i := 0; i < attempts; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			<-start
			if g.TryAcquire("alpha") {
				wins.Add(1)
			}
		}()
	}
	close(start)
	wg.Wait()

	if wins.Load() != 1 {
		t.Errorf("got %d winners, want exactly 1", wins.Load())
	}
}
