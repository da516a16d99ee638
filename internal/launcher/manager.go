// Package launcher is the orchestration facade over the catalog, the task
// registry, the operation guard, the install pipeline, and the status hub.
// API handlers call it; nothing below it knows about HTTP.
package launcher

import (
	"context"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"sync"

	"launcherd/internal/catalog"
	"launcherd/internal/fault"
	"launcherd/internal/guard"
	"launcherd/internal/manifest"
	"launcherd/internal/model"
	"launcherd/internal/pipeline"
	"launcherd/internal/status"
	"launcherd/internal/tasks"
)

// HistoryRecorder persists the life cycle of operations for later inspection.
// A nil recorder disables history.
type HistoryRecorder interface {
	RecordStart(taskID model.TaskID, titleID, operation, description string) error
	RecordFinish(taskID model.TaskID, status string, progress float64, errMsg string) error
}

// Options carries the manager's collaborators. Catalog, Registry, Guard,
// Pipeline, and Hub are required; History and Procs may be nil.
type Options struct {
	Logger     *slog.Logger
	Catalog    *catalog.Catalog
	Registry   *tasks.Registry
	Guard      *guard.Guard
	Pipeline   *pipeline.Pipeline
	Hub        *status.Hub
	History    HistoryRecorder
	Procs      ProcessLauncher
	InstallDir string
}

// Manager coordinates the long-running operations on titles. All of its
// methods are safe for concurrent use.
type Manager struct {
	logger     *slog.Logger
	catalog    *catalog.Catalog
	registry   *tasks.Registry
	guard      *guard.Guard
	pipe       *pipeline.Pipeline
	hub        *status.Hub
	history    HistoryRecorder
	procs      ProcessLauncher
	installDir string

	wg sync.WaitGroup
}

// NewManager wires the manager from its collaborators. A nil Procs falls
// back to launching real processes.
func NewManager(opts Options) *Manager {
	procs := opts.Procs
	if procs == nil {
		procs = &ExecLauncher{}
	}
	return &Manager{
		logger:     opts.Logger,
		catalog:    opts.Catalog,
		registry:   opts.Registry,
		guard:      opts.Guard,
		pipe:       opts.Pipeline,
		hub:        opts.Hub,
		history:    opts.History,
		procs:      procs,
		installDir: opts.InstallDir,
	}
}

// InstallPath resolves where a title's files live: the catalog's explicit
// install path, or a directory named after the title under the install root.
func (m *Manager) InstallPath(rec model.TitleRecord) string {
	if rec.InstallPath != "" {
		return rec.InstallPath
	}
	return filepath.Join(m.installDir, rec.ID)
}

// SeedStates publishes the initial state for every catalog title: installed
// when a local manifest exists on disk, not installed otherwise. Called once
// at startup before any subscriber attaches.
func (m *Manager) SeedStates() {
	for _, rec := range m.catalog.Titles() {
		state := model.StateNotInstalled
		if _, err := os.Stat(manifest.LocalPath(rec.ID, m.InstallPath(rec))); err == nil {
			state = model.StateReadyToLaunch
		}
		m.hub.Publish(model.StatusUpdate{TitleID: rec.ID, State: state})
	}
}

// InstallTitle starts a background install of the title and returns the
// task running it. Fails fast with ErrAlreadyInProgress when another
// operation owns the title.
func (m *Manager) InstallTitle(titleID string) (model.TaskID, error) {
	rec, ok := m.catalog.Get(titleID)
	if !ok {
		return 0, fmt.Errorf("title %q: %w", titleID, fault.ErrNotFound)
	}
	if rec.ManifestURL == "" {
		return 0, fmt.Errorf("title %q has no manifest URL: %w", titleID, fault.ErrFailedPrecondition)
	}

	installPath := m.InstallPath(rec)
	work := m.pipe.Install(rec.ID, rec.ManifestURL, installPath)
	return m.startOperation(rec, model.OpInstall, fmt.Sprintf("Installing %s", rec.Name), work)
}

// UpdateTitle re-runs the install pipeline against the title's current
// manifest. The title must already be installed.
func (m *Manager) UpdateTitle(titleID string) (model.TaskID, error) {
	rec, ok := m.catalog.Get(titleID)
	if !ok {
		return 0, fmt.Errorf("title %q: %w", titleID, fault.ErrNotFound)
	}
	if rec.ManifestURL == "" {
		return 0, fmt.Errorf("title %q has no manifest URL: %w", titleID, fault.ErrFailedPrecondition)
	}
	installPath := m.InstallPath(rec)
	if _, err := os.Stat(manifest.LocalPath(rec.ID, installPath)); err != nil {
		return 0, fmt.Errorf("title %q is not installed: %w", titleID, fault.ErrFailedPrecondition)
	}

	work := m.pipe.Install(rec.ID, rec.ManifestURL, installPath)
	return m.startOperation(rec, model.OpUpdate, fmt.Sprintf("Updating %s", rec.Name), work)
}

// VerifyTitle starts a background integrity check of every installed file
// against the local manifest.
func (m *Manager) VerifyTitle(titleID string) (model.TaskID, error) {
	rec, ok := m.catalog.Get(titleID)
	if !ok {
		return 0, fmt.Errorf("title %q: %w", titleID, fault.ErrNotFound)
	}
	installPath := m.InstallPath(rec)
	if _, err := os.Stat(manifest.LocalPath(rec.ID, installPath)); err != nil {
		return 0, fmt.Errorf("title %q is not installed: %w", titleID, fault.ErrFailedPrecondition)
	}

	work := m.pipe.Verify(rec.ID, installPath)
	return m.startOperation(rec, model.OpVerify, fmt.Sprintf("Verifying %s", rec.Name), work)
}

// startOperation claims the title, registers the work, and attaches the
// status monitor and history recording. The guard claim happens before the
// task exists so a duplicate request never spawns a goroutine.
func (m *Manager) startOperation(rec model.TitleRecord, operation, description string, work tasks.Work) (model.TaskID, error) {
	if !m.guard.TryAcquire(rec.ID) {
		return 0, fmt.Errorf("title %q: %w", rec.ID, fault.ErrAlreadyInProgress)
	}

	// The worker must not start until its task ID is bound, so the deferred
	// release can name the owner it is releasing.
	ready := make(chan struct{})
	var taskID model.TaskID
	wrapped := func(ctx context.Context, report tasks.ProgressFunc) error {
		<-ready
		defer m.guard.ReleaseOwned(rec.ID, taskID)
		return work(ctx, report)
	}

	id := m.registry.StartTask(wrapped, description)
	taskID = id
	m.guard.Bind(rec.ID, id)
	close(ready)

	initial := model.StatusUpdate{TitleID: rec.ID, State: model.StateInstallPending, Message: description}
	if operation == model.OpVerify {
		initial.State = model.StateCheckingStatus
	}
	m.hub.Publish(initial)
	m.hub.MonitorOperation(m.registry, rec.ID, operation, id)
	m.recordHistory(id, rec.ID, operation, description)

	m.logger.Info("operation started",
		"title_id", rec.ID, "operation", operation, "task_id", id)
	return id, nil
}

func (m *Manager) recordHistory(id model.TaskID, titleID, operation, description string) {
	if m.history == nil {
		return
	}
	if err := m.history.RecordStart(id, titleID, operation, description); err != nil {
		m.logger.Warn("failed to record operation start", "task_id", id, "error", err)
	}
	done, ok := m.registry.Done(id)
	if !ok {
		return
	}
	m.wg.Add(1)
	go func() {
		defer m.wg.Done()
		<-done
		info, ok := m.registry.GetTaskInfo(id)
		if !ok {
			return
		}
		if err := m.history.RecordFinish(id, info.Status, info.Progress, info.Error); err != nil {
			m.logger.Warn("failed to record operation finish", "task_id", id, "error", err)
		}
	}()
}

// CancelOperation requests cooperative cancellation of the title's current
// operation and frees the title immediately, so a new operation can start
// while the old goroutine unwinds. Returns the cancelled task.
func (m *Manager) CancelOperation(titleID string) (model.TaskID, error) {
	id, ok := m.guard.Remove(titleID)
	if !ok {
		return 0, fmt.Errorf("no operation in progress for title %q: %w", titleID, fault.ErrNotFound)
	}
	if id != 0 {
		m.registry.RequestCancellation(id)
	}
	m.logger.Info("cancellation requested", "title_id", titleID, "task_id", id)
	return id, nil
}

// LaunchTitle starts the title's executable. The title must be installed
// and free of in-flight operations.
func (m *Manager) LaunchTitle(ctx context.Context, titleID string) error {
	rec, ok := m.catalog.Get(titleID)
	if !ok {
		return fmt.Errorf("title %q: %w", titleID, fault.ErrNotFound)
	}
	if _, busy := m.guard.Owner(titleID); busy {
		return fmt.Errorf("title %q: %w", titleID, fault.ErrAlreadyInProgress)
	}
	installPath := m.InstallPath(rec)
	if _, err := os.Stat(manifest.LocalPath(rec.ID, installPath)); err != nil {
		return fmt.Errorf("title %q is not installed: %w", titleID, fault.ErrFailedPrecondition)
	}
	if rec.ExecutablePath == "" {
		return fmt.Errorf("title %q has no executable: %w", titleID, fault.ErrFailedPrecondition)
	}

	m.hub.Publish(model.StatusUpdate{TitleID: rec.ID, State: model.StateLaunching, Message: fmt.Sprintf("Launching %s", rec.Name)})

	pid, err := m.procs.Launch(ctx, filepath.Join(installPath, rec.ExecutablePath), installPath)
	if err != nil {
		m.hub.Publish(model.StatusUpdate{TitleID: rec.ID, State: model.StateLaunchFailed, Message: err.Error()})
		return fmt.Errorf("launching title %q: %w", titleID, err)
	}

	m.hub.Publish(model.StatusUpdate{TitleID: rec.ID, State: model.StateRunning, Message: fmt.Sprintf("Running (pid %d)", pid)})
	m.logger.Info("title launched", "title_id", titleID, "pid", pid)
	return nil
}

// UninstallTitle is not implemented yet.
//
// TODO: remove installed files and the local manifest, with the same guard
// claim install takes.
func (m *Manager) UninstallTitle(titleID string) error {
	if _, ok := m.catalog.Get(titleID); !ok {
		return fmt.Errorf("title %q: %w", titleID, fault.ErrNotFound)
	}
	return fmt.Errorf("uninstall: %w", fault.ErrUnimplemented)
}

// Wait blocks until the history recording goroutines have drained. Tasks
// themselves are waited on via the registry.
func (m *Manager) Wait() {
	m.wg.Wait()
}
