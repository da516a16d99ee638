package model

// TaskID identifies one background task for the lifetime of the process.
// IDs are monotonically increasing and never zero.
type TaskID uint64

// Task status constants.
const (
	TaskPending   = "pending"
	TaskRunning   = "running"
	TaskPaused    = "paused"
	TaskSucceeded = "succeeded"
	TaskFailed    = "failed"
	TaskCancelled = "cancelled"
)

// validTaskTransitions maps each status to the set of statuses it may move to.
// Terminal statuses have no entries: once terminal, a task never changes.
var validTaskTransitions = map[string]map[string]bool{
	TaskPending: {
		TaskRunning:   true,
		TaskFailed:    true,
		TaskCancelled: true,
	},
	TaskRunning: {
		TaskPaused:    true,
		TaskSucceeded: true,
		TaskFailed:    true,
		TaskCancelled: true,
	},
	TaskPaused: {
		TaskRunning:   true,
		TaskCancelled: true,
	},
}

// ValidTaskTransition reports whether moving from one task status to another
// is allowed.
func ValidTaskTransition(from, to string) bool {
	targets, ok := validTaskTransitions[from]
	if !ok {
		return false
	}
	return targets[to]
}

// TaskActive reports whether a status counts as in-flight.
func TaskActive(status string) bool {
	return status == TaskPending || status == TaskRunning || status == TaskPaused
}

// TaskTerminal reports whether a status is terminal.
func TaskTerminal(status string) bool {
	return status == TaskSucceeded || status == TaskFailed || status == TaskCancelled
}

// TaskInfo is a point-in-time snapshot of one background task. Progress runs
// 0–100; Error is set only when Status is failed.
type TaskInfo struct {
	ID          TaskID  `json:"id"`
	Status      string  `json:"status"`
	Progress    float64 `json:"progress"`
	Description string  `json:"description"`
	Error       string  `json:"error,omitempty"`
}
