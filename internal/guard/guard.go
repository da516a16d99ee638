// Package guard provides per-title mutual exclusion for long-running
// operations: at most one install, update, or verify runs per title.
package guard

import (
	"log/slog"
	"sync"

	"launcherd/internal/model"
)

// Guard maps each title with an operation in flight to the task running it.
// The check-and-insert in TryAcquire is a single critical section; splitting
// it would reintroduce the duplicate-operation race.
type Guard struct {
	logger *slog.Logger

	mu     sync.Mutex
	owners map[string]model.TaskID
}

// New creates an empty operation guard.
func New(logger *slog.Logger) *Guard {
	return &Guard{
		logger: logger,
		owners: make(map[string]model.TaskID),
	}
}

// TryAcquire atomically claims the title before its task exists, so a
// duplicate request fails fast without ever spawning a goroutine. Returns
// false when another operation already owns the title. The owning task is
// recorded afterwards with Bind.
func (g *Guard) TryAcquire(titleID string) bool {
	g.mu.Lock()
	defer g.mu.Unlock()
	if _, busy := g.owners[titleID]; busy {
		return false
	}
	g.owners[titleID] = 0 // reserved, task not started yet
	return true
}

// Bind records the task that owns the title's reservation. A no-op if the
// entry was already released (the task finished or was cancelled first).
func (g *Guard) Bind(titleID string, taskID model.TaskID) {
	g.mu.Lock()
	defer g.mu.Unlock()
	if _, ok := g.owners[titleID]; ok {
		g.owners[titleID] = taskID
	}
}

// Release removes the title's entry. It is idempotent and is called
// unconditionally when the owning task's closure exits, on every path.
func (g *Guard) Release(titleID string) {
	g.mu.Lock()
	defer g.mu.Unlock()
	if _, ok := g.owners[titleID]; ok {
		delete(g.owners, titleID)
		g.logger.Info("released operation entry", "title_id", titleID)
	}
}

// ReleaseOwned removes the title's entry only if taskID still owns it. A
// task whose entry was removed by the cancellation path must not release an
// entry claimed by a successor operation in the meantime.
func (g *Guard) ReleaseOwned(titleID string, taskID model.TaskID) {
	g.mu.Lock()
	defer g.mu.Unlock()
	owner, ok := g.owners[titleID]
	if ok && owner == taskID {
		delete(g.owners, titleID)
		g.logger.Info("released operation entry", "title_id", titleID, "task_id", taskID)
	}
}

// Owner returns the task currently holding the title, if any.
func (g *Guard) Owner(titleID string) (model.TaskID, bool) {
	g.mu.Lock()
	defer g.mu.Unlock()
	id, ok := g.owners[titleID]
	return id, ok
}

// Remove drops the entry and reports the task that held it. Used by the
// cancellation path, which frees the title immediately even though the
// background goroutine may still be unwinding.
func (g *Guard) Remove(titleID string) (model.TaskID, bool) {
	g.mu.Lock()
	defer g.mu.Unlock()
	id, ok := g.owners[titleID]
	if ok {
		delete(g.owners, titleID)
	}
	return id, ok
}
