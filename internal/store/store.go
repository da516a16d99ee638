// Package store persists task history and status events in SQLite so past
// operations stay inspectable across restarts.
package store

import (
	"context"

	"launcherd/internal/model"
)

// Store defines the persistence operations for task history and status
// events.
type Store interface {
	CreateTask(ctx context.Context, rec *model.TaskRecord) error
	FinishTask(ctx context.Context, id model.TaskID, status string, progress float64, errMsg string) error
	GetTask(ctx context.Context, id model.TaskID) (*model.TaskRecord, error)
	ListTasks(ctx context.Context, limit, offset int) ([]*model.TaskRecord, int, error)
	InsertStatusEvent(ctx context.Context, update model.StatusUpdate) error
	ListStatusEvents(ctx context.Context, titleID string, limit int) ([]model.StatusUpdate, error)
	Close() error
}
