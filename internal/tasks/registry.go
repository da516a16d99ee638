// Package tasks owns the set of background tasks, their status, and their
// cancellation flags. It is the only place the core spawns goroutines for
// long-running work.
package tasks

import (
	"context"
	"fmt"
	"log/slog"
	"sync"
	"sync/atomic"

	"launcherd/internal/model"
)

// ProgressFunc reports fractional progress (0..1) along with a user-facing
// description. The latest description wins.
type ProgressFunc func(fraction float64, description string)

// Work is the unit of work a background task executes. The context is
// cancelled when cancellation is requested for the task; cancellation is
// cooperative, so work that never consults the context runs to natural
// completion. A nil return marks the task succeeded, any error marks it
// failed with the error's message.
type Work func(ctx context.Context, report ProgressFunc) error

// task holds the registry-internal state for one background task.
// info.Status and info.Error are guarded by the registry mutex; the progress
// fields have their own mutex so worker progress writes never contend with
// registry map operations.
type task struct {
	id     model.TaskID
	status string
	errMsg string

	progressMu  sync.Mutex
	progress    float64 // 0–100
	description string

	cancelRequested atomic.Bool
	cancel          context.CancelFunc
	done            chan struct{}
}

// Registry tracks background tasks for the lifetime of the process. Tasks are
// created by StartTask, mutated only by their own worker goroutine or by
// RequestCancellation, and retained after completion so late snapshots still
// observe the terminal status.
type Registry struct {
	logger *slog.Logger

	mu    sync.Mutex
	tasks map[model.TaskID]*task

	nextID atomic.Uint64
	wg     sync.WaitGroup
}

// NewRegistry creates an empty task registry.
func NewRegistry(logger *slog.Logger) *Registry {
	return &Registry{
		logger: logger,
		tasks:  make(map[model.TaskID]*task),
	}
}

// StartTask registers a pending task, spawns its worker goroutine, and
// returns the new task's ID without waiting for anything. The worker itself
// transitions the task to running before invoking work.
func (r *Registry) StartTask(work Work, initialDescription string) model.TaskID {
	id := model.TaskID(r.nextID.Add(1)) // IDs start from 1

	ctx, cancel := context.WithCancel(context.Background())
	t := &task{
		id:          id,
		status:      model.TaskPending,
		description: initialDescription,
		cancel:      cancel,
		done:        make(chan struct{}),
	}

	r.mu.Lock()
	r.tasks[id] = t
	r.mu.Unlock()

	r.logger.Info("task queued", "task_id", id, "description", initialDescription)
	tasksStarted.Inc()

	r.wg.Add(1)
	go r.run(ctx, t, work)

	return id
}

// run executes the task lifecycle: pending → running → terminal. Any panic
// escaping the work function is recovered and turned into a failure; nothing
// propagates past the worker goroutine.
func (r *Registry) run(ctx context.Context, t *task, work Work) {
	defer r.wg.Done()
	defer close(t.done)

	r.setStatus(t, model.TaskRunning, "")
	r.logger.Info("task started", "task_id", t.id)

	err := func() (err error) {
		defer func() {
			if p := recover(); p != nil {
				err = fmt.Errorf("task panicked: %v", p)
			}
		}()
		return work(ctx, t.report)
	}()

	switch {
	case t.cancelRequested.Load():
		r.setStatus(t, model.TaskCancelled, "")
		r.logger.Info("task cancelled", "task_id", t.id)
		tasksFinished.WithLabelValues(model.TaskCancelled).Inc()
	case err != nil:
		msg := err.Error()
		if msg == "" {
			msg = "task failed"
		}
		r.setStatus(t, model.TaskFailed, msg)
		r.logger.Error("task failed", "task_id", t.id, "error", msg)
		tasksFinished.WithLabelValues(model.TaskFailed).Inc()
	default:
		t.progressMu.Lock()
		t.progress = 100
		t.progressMu.Unlock()
		r.setStatus(t, model.TaskSucceeded, "")
		r.logger.Info("task succeeded", "task_id", t.id)
		tasksFinished.WithLabelValues(model.TaskSucceeded).Inc()
	}
}

func (r *Registry) setStatus(t *task, status, errMsg string) {
	r.mu.Lock()
	defer r.mu.Unlock()
	if !model.ValidTaskTransition(t.status, status) {
		// Terminal statuses never regress; anything else is a worker bug.
		r.logger.Warn("ignoring invalid task transition",
			"task_id", t.id, "from", t.status, "to", status)
		return
	}
	t.status = status
	t.errMsg = errMsg
}

// report is the ProgressFunc handed to the work function.
func (t *task) report(fraction float64, description string) {
	if fraction < 0 {
		fraction = 0
	}
	if fraction > 1 {
		fraction = 1
	}
	t.progressMu.Lock()
	t.progress = fraction * 100
	t.description = description
	t.progressMu.Unlock()
}

// snapshot assembles a TaskInfo while holding the registry mutex for the
// status fields; the progress mutex is taken and released inside so the two
// locks are never held together with anything else.
func (r *Registry) snapshot(t *task) model.TaskInfo {
	info := model.TaskInfo{
		ID:     t.id,
		Status: t.status,
		Error:  t.errMsg,
	}
	t.progressMu.Lock()
	info.Progress = t.progress
	info.Description = t.description
	t.progressMu.Unlock()
	return info
}

// GetTaskInfo returns a non-blocking snapshot of the task, or false if the
// ID was never issued. Progress text is eventually consistent with respect
// to terminal status: the last reported description wins even if it lands
// after the status write.
func (r *Registry) GetTaskInfo(id model.TaskID) (model.TaskInfo, bool) {
	r.mu.Lock()
	defer r.mu.Unlock()
	t, ok := r.tasks[id]
	if !ok {
		return model.TaskInfo{}, false
	}
	return r.snapshot(t), true
}

// GetActiveTasks returns snapshots of every task that is pending, running,
// or paused, in unspecified order.
func (r *Registry) GetActiveTasks() []model.TaskInfo {
	r.mu.Lock()
	defer r.mu.Unlock()
	var active []model.TaskInfo
	for _, t := range r.tasks {
		if model.TaskActive(t.status) {
			active = append(active, r.snapshot(t))
		}
	}
	return active
}

// RequestCancellation sets the cooperative cancellation flag for an active
// task and cancels its context. It does not stop execution: work that never
// observes the context finishes naturally, and the task then ends Cancelled
// only because the flag was set while it was still active. Returns false if
// the task is unknown or already terminal.
func (r *Registry) RequestCancellation(id model.TaskID) bool {
	r.mu.Lock()
	t, ok := r.tasks[id]
	if !ok || !model.TaskActive(t.status) {
		r.mu.Unlock()
		return false
	}
	t.cancelRequested.Store(true)
	r.mu.Unlock()

	// Cancel outside the registry lock; context callbacks are arbitrary code.
	t.cancel()
	r.logger.Info("task cancellation requested", "task_id", id)
	return true
}

// Done returns a channel that is closed when the task's worker goroutine
// exits, or false for an unknown ID. Monitors select on this instead of
// polling for readiness.
func (r *Registry) Done(id model.TaskID) (<-chan struct{}, bool) {
	r.mu.Lock()
	defer r.mu.Unlock()
	t, ok := r.tasks[id]
	if !ok {
		return nil, false
	}
	return t.done, true
}

// Wait blocks until every worker goroutine has exited. Used on shutdown.
func (r *Registry) Wait() {
	r.wg.Wait()
}
