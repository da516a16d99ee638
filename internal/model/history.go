package model

import "time"

// TaskRecord is the persisted life cycle of one operation, kept after the
// in-memory task is gone so past installs and failures stay inspectable.
type TaskRecord struct {
	TaskID      TaskID     `json:"task_id"`
	TitleID     string     `json:"title_id"`
	Operation   string     `json:"operation"`
	Description string     `json:"description"`
	Status      string     `json:"status"`
	Progress    float64    `json:"progress"`
	Error       string     `json:"error,omitempty"`
	StartedAt   time.Time  `json:"started_at"`
	FinishedAt  *time.Time `json:"finished_at,omitempty"`
}
