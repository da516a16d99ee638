package status

import (
	"time"

	"launcherd/internal/model"
	"launcherd/internal/tasks"
)

// monitorInterval is how often a running operation's progress is sampled.
const monitorInterval = 100 * time.Millisecond

// MonitorOperation follows a task until it reaches a terminal status,
// publishing a state update whenever the derived GameState, progress, or
// message changes. It returns immediately; the sampling happens on its own
// goroutine, which exits when the task finishes.
func (h *Hub) MonitorOperation(registry *tasks.Registry, titleID, operation string, taskID model.TaskID) {
	done, ok := registry.Done(taskID)
	if !ok {
		h.logger.Warn("cannot monitor unknown task", "task_id", taskID, "title_id", titleID)
		return
	}

	h.wg.Add(1)
	go func() {
		defer h.wg.Done()

		ticker := time.NewTicker(monitorInterval)
		defer ticker.Stop()

		var last model.StatusUpdate
		for {
			select {
			case <-done:
				info, ok := registry.GetTaskInfo(taskID)
				if !ok {
					return
				}
				h.Publish(terminalUpdate(titleID, operation, info))
				return
			case <-ticker.C:
				info, ok := registry.GetTaskInfo(taskID)
				if !ok {
					return
				}
				update := runningUpdate(titleID, operation, info)
				if update.State == last.State && progressEqual(update.Progress, last.Progress) && update.Message == last.Message {
					continue
				}
				last = update
				h.Publish(update)
			}
		}
	}()
}

func runningUpdate(titleID string, operation string, info model.TaskInfo) model.StatusUpdate {
	progress := int(info.Progress)
	update := model.StatusUpdate{
		TitleID:  titleID,
		Progress: &progress,
		Message:  info.Description,
	}

	switch {
	case operation == model.OpVerify:
		if info.Status == model.TaskPending {
			update.State = model.StateCheckingStatus
		} else {
			update.State = model.StateVerifying
		}
	case info.Status == model.TaskPending:
		update.State = model.StateInstallPending
	case info.Progress >= 95:
		update.State = model.StateInstalling
	default:
		update.State = model.StateDownloading
	}
	return update
}

func terminalUpdate(titleID string, operation string, info model.TaskInfo) model.StatusUpdate {
	progress := int(info.Progress)
	update := model.StatusUpdate{
		TitleID:  titleID,
		Progress: &progress,
		Message:  info.Description,
	}

	switch info.Status {
	case model.TaskSucceeded:
		update.State = model.StateReadyToLaunch
	case model.TaskCancelled:
		update.State = model.StateIdle
		update.Message = "operation cancelled"
	case model.TaskFailed:
		if operation == model.OpUpdate {
			update.State = model.StateUpdateFailed
		} else {
			update.State = model.StateInstallFailed
		}
		if info.Error != "" {
			update.Message = info.Error
		}
	default:
		update.State = model.StateIdle
	}
	return update
}

func progressEqual(a, b *int) bool {
	if a == nil || b == nil {
		return a == b
	}
	return *a == *b
}
